package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mixelka/mailnotify/internal/formatter"
	"github.com/mixelka/mailnotify/internal/rules"
	"github.com/mixelka/mailnotify/pkg/models"
)

// Outcome result of dispatching one message
type Outcome int

const (
	// NoMatch no enabled in-scope rule matched
	NoMatch Outcome = iota
	// NoWebhook the first matching rule has no webhook
	NoWebhook
	// Delivered the webhook accepted the notification
	Delivered
	// Failed delivery failed and was recorded
	Failed
)

func (o Outcome) String() string {
	switch o {
	case NoMatch:
		return "no_match"
	case NoWebhook:
		return "no_webhook"
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Sender delivers a payload to a webhook URL
type Sender interface {
	Send(ctx context.Context, url string, payload *formatter.Payload) error
}

// FailureRecorder persists failure log entries
type FailureRecorder interface {
	CreateFailure(ctx context.Context, f *models.FailureLog) error
}

// Dispatcher matches messages against rules and delivers notifications
type Dispatcher struct {
	engine   *rules.Engine
	sender   Sender
	failures FailureRecorder
	logger   *slog.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(engine *rules.Engine, sender Sender, failures FailureRecorder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		engine:   engine,
		sender:   sender,
		failures: failures,
		logger:   logger.With("component", "notify"),
	}
}

// Dispatch evaluates the ordered rules for msg and notifies through the first
// matching rule. Delivery errors are recorded as failures and never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, account *models.Account, ruleSet []*models.Rule, msg *models.Message) Outcome {
	rule := d.engine.FirstMatch(ruleSet, account.ID, msg)
	if rule == nil {
		return NoMatch
	}

	logger := d.logger.With("account", account.Name, "rule", rule.Name, "message_id", msg.MessageID)

	if rule.Webhook == nil || rule.Webhook.URL == "" {
		logger.Warn("rule matched but has no webhook configured")
		return NoWebhook
	}

	vars := formatter.NewVars(account, rule, msg)
	rendered := formatter.RenderBody(rule.Format, vars)
	if rendered.Err != nil {
		logger.Warn("format rendering failed, using fallback body", "error", rendered.Err)
	}

	start := time.Now()
	if err := d.sender.Send(ctx, rule.Webhook.URL, formatter.BuildPayload(rendered.Body, vars)); err != nil {
		logger.Error("webhook delivery failed", "webhook", rule.Webhook.Name, "error", err)
		d.recordFailure(ctx, account, rule, msg, err)
		return Failed
	}

	logger.Info("notification delivered",
		"webhook", rule.Webhook.Name,
		"subject", msg.Subject,
		"duration", time.Since(start),
	)
	return Delivered
}

func (d *Dispatcher) recordFailure(ctx context.Context, account *models.Account, rule *models.Rule, msg *models.Message, cause error) {
	entry := &models.FailureLog{
		AccountID:    &account.ID,
		RuleID:       &rule.ID,
		MessageID:    optional(msg.MessageID, msg.NativeID),
		FromAddress:  optional(msg.From),
		Subject:      optional(msg.Subject),
		ErrorMessage: fmt.Sprintf("webhook error: %v", cause),
	}
	if err := d.failures.CreateFailure(ctx, entry); err != nil {
		d.logger.Error("failed to record delivery failure", "account", account.Name, "error", err)
	}
}

// optional returns a pointer to the first non-empty value, or nil
func optional(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return &v
		}
	}
	return nil
}
