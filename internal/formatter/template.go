package formatter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mixelka/mailnotify/pkg/models"
)

var (
	// ErrUnknownPlaceholder is returned for a placeholder without a value
	ErrUnknownPlaceholder = errors.New("unknown placeholder")
	// ErrMalformedTemplate is returned for unbalanced braces or empty placeholders
	ErrMalformedTemplate = errors.New("malformed template")
)

// Vars values available to notification templates
type Vars struct {
	AccountName string
	FromAddress string
	Subject     string
	RuleName    string
	Date        string
}

// NewVars collects template values for a matched message
func NewVars(account *models.Account, rule *models.Rule, msg *models.Message) Vars {
	return Vars{
		AccountName: account.Name,
		FromAddress: msg.From,
		Subject:     msg.Subject,
		RuleName:    rule.Name,
		Date:        msg.Date,
	}
}

func (v Vars) lookup(name string) (string, bool) {
	switch name {
	case "account_name":
		return v.AccountName, true
	case "from_address":
		return v.FromAddress, true
	case "subject":
		return v.Subject, true
	case "rule_name":
		return v.RuleName, true
	case "date":
		return v.Date, true
	}
	return "", false
}

// Render substitutes {name} placeholders. Doubled braces produce literal braces.
// Format specs and conversions are not supported.
func Render(template string, vars Vars) (string, error) {
	var sb strings.Builder
	sb.Grow(len(template))

	for i := 0; i < len(template); i++ {
		ch := template[i]
		switch ch {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed '{' at offset %d", ErrMalformedTemplate, i)
			}
			name := template[i+1 : i+1+end]
			if name == "" || strings.ContainsAny(name, "{:!") {
				return "", fmt.Errorf("%w: invalid placeholder %q", ErrMalformedTemplate, name)
			}
			value, ok := vars.lookup(name)
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrUnknownPlaceholder, name)
			}
			sb.WriteString(value)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, i)
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String(), nil
}

// Fallback is the fixed body used when no template is bound or rendering fails
func Fallback(vars Vars) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**Account:** %s\n", vars.AccountName))
	sb.WriteString(fmt.Sprintf("**Rule:** %s\n", vars.RuleName))
	sb.WriteString(fmt.Sprintf("**From:** %s\n", vars.FromAddress))
	sb.WriteString(fmt.Sprintf("**Subject:** %s", vars.Subject))
	return sb.String()
}

// Rendered result of RenderBody
type Rendered struct {
	Body     string
	Fallback bool  // Body is the fixed fallback
	Err      error // Template error that caused the fallback, if any
}

// RenderBody renders the bound format, falling back to the fixed body when
// the format is missing, empty or fails to render
func RenderBody(format *models.NotificationFormat, vars Vars) Rendered {
	if format == nil || format.Template == "" {
		return Rendered{Body: Fallback(vars), Fallback: true}
	}
	body, err := Render(format.Template, vars)
	if err != nil {
		return Rendered{Body: Fallback(vars), Fallback: true, Err: err}
	}
	return Rendered{Body: body}
}
