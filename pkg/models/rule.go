package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidField is returned for an unknown condition field tag
var ErrInvalidField = errors.New("invalid condition field")

// ErrInvalidMatchType is returned for an unknown match type tag
var ErrInvalidMatchType = errors.New("invalid match type")

// Field message field inspected by a condition
type Field string

const (
	FieldFrom    Field = "from"
	FieldTo      Field = "to"
	FieldSubject Field = "subject"
)

// ParseField validates a field tag
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldFrom, FieldTo, FieldSubject:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
}

// MatchType how a condition pattern is applied
type MatchType string

const (
	MatchPrefix   MatchType = "prefix"
	MatchSuffix   MatchType = "suffix"
	MatchContains MatchType = "contains"
	MatchRegex    MatchType = "regex"
)

// ParseMatchType validates a match type tag
func ParseMatchType(s string) (MatchType, error) {
	switch m := MatchType(s); m {
	case MatchPrefix, MatchSuffix, MatchContains, MatchRegex:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMatchType, s)
}

// Rule notification rule, evaluated in position order
type Rule struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Position  int       `db:"position"`
	Enabled   bool      `db:"enabled"`
	AccountID *int64    `db:"account_id"` // Restricts the rule to one account
	WebhookID *int64    `db:"webhook_id"`
	FormatID  *int64    `db:"format_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Conditions []RuleCondition     `db:"-"`
	Webhook    *Webhook            `db:"-"`
	Format     *NotificationFormat `db:"-"`
}

// AppliesTo reports whether the rule is in scope for an account
func (r *Rule) AppliesTo(accountID int64) bool {
	return r.AccountID == nil || *r.AccountID == accountID
}

// RuleCondition a single AND-combined clause of a rule
type RuleCondition struct {
	ID        int64     `db:"id"`
	RuleID    int64     `db:"rule_id"`
	Field     Field     `db:"field"`
	MatchType MatchType `db:"match_type"`
	Pattern   string    `db:"pattern"`
}

// Webhook delivery endpoint
type Webhook struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	URL  string `db:"url"`
}

// NotificationFormat named body template
type NotificationFormat struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Template string `db:"template"`
}
