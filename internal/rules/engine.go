package rules

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/mixelka/mailnotify/pkg/models"
)

// Engine evaluates ordered rules against messages, first match wins
type Engine struct {
	logger *slog.Logger
	match  func(rule *models.Rule, msg *models.Message) bool

	mu      sync.Mutex
	regexps map[string]*regexp.Regexp // nil value = pattern does not compile
}

// NewEngine creates a new rule engine
func NewEngine(logger *slog.Logger) *Engine {
	e := &Engine{
		logger:  logger.With("component", "rules"),
		regexps: make(map[string]*regexp.Regexp),
	}
	e.match = e.Matches
	return e
}

// FirstMatch returns the first enabled rule in scope for accountID whose
// conditions all match, or nil. Rules must be ordered by position.
// Evaluation stops at the first match.
func (e *Engine) FirstMatch(rules []*models.Rule, accountID int64, msg *models.Message) *models.Rule {
	for _, rule := range rules {
		if !rule.Enabled || !rule.AppliesTo(accountID) {
			continue
		}
		if e.match(rule, msg) {
			return rule
		}
	}
	return nil
}

// Matches reports whether every condition of rule matches msg.
// A rule without conditions never matches.
func (e *Engine) Matches(rule *models.Rule, msg *models.Message) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	for i := range rule.Conditions {
		if !e.MatchCondition(&rule.Conditions[i], msg) {
			return false
		}
	}
	return true
}

// MatchCondition evaluates a single condition. Text comparisons ignore case;
// regex conditions search anywhere in the value and never match when malformed.
func (e *Engine) MatchCondition(c *models.RuleCondition, msg *models.Message) bool {
	value, ok := fieldValue(c.Field, msg)
	if !ok {
		return false
	}

	switch c.MatchType {
	case models.MatchPrefix:
		return strings.HasPrefix(strings.ToLower(value), strings.ToLower(c.Pattern))
	case models.MatchSuffix:
		return strings.HasSuffix(strings.ToLower(value), strings.ToLower(c.Pattern))
	case models.MatchContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(c.Pattern))
	case models.MatchRegex:
		re := e.compile(c.Pattern)
		return re != nil && re.MatchString(value)
	}
	return false
}

func (e *Engine) compile(pattern string) *regexp.Regexp {
	e.mu.Lock()
	defer e.mu.Unlock()

	if re, ok := e.regexps[pattern]; ok {
		return re
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		e.logger.Warn("invalid regex pattern, condition never matches", "pattern", pattern, "error", err)
		re = nil
	}
	e.regexps[pattern] = re
	return re
}

func fieldValue(f models.Field, msg *models.Message) (string, bool) {
	switch f {
	case models.FieldFrom:
		return msg.From, true
	case models.FieldTo:
		return msg.To, true
	case models.FieldSubject:
		return msg.Subject, true
	}
	return "", false
}
