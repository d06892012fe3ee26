package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mixelka/mailnotify/pkg/models"
)

// ListRules returns all rules in evaluation order (position, then id) with their
// conditions, webhook and notification format attached
func (db *DB) ListRules(ctx context.Context) ([]*models.Rule, error) {
	var rules []*models.Rule
	err := db.SelectContext(ctx, &rules, `
		SELECT id, name, position, enabled, account_id, webhook_id, format_id, created_at, updated_at
		FROM rules ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get rules: %w", err)
	}
	if len(rules) == 0 {
		return rules, nil
	}

	var conditions []models.RuleCondition
	err = db.SelectContext(ctx, &conditions, `SELECT id, rule_id, field, match_type, pattern FROM rule_conditions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get rule conditions: %w", err)
	}

	var webhooks []*models.Webhook
	if err := db.SelectContext(ctx, &webhooks, `SELECT id, name, url FROM webhooks`); err != nil {
		return nil, fmt.Errorf("failed to get webhooks: %w", err)
	}

	var formats []*models.NotificationFormat
	if err := db.SelectContext(ctx, &formats, `SELECT id, name, template FROM notification_formats`); err != nil {
		return nil, fmt.Errorf("failed to get notification formats: %w", err)
	}

	webhookByID := make(map[int64]*models.Webhook, len(webhooks))
	for _, w := range webhooks {
		webhookByID[w.ID] = w
	}
	formatByID := make(map[int64]*models.NotificationFormat, len(formats))
	for _, f := range formats {
		formatByID[f.ID] = f
	}
	ruleByID := make(map[int64]*models.Rule, len(rules))
	for _, r := range rules {
		ruleByID[r.ID] = r
		if r.WebhookID != nil {
			r.Webhook = webhookByID[*r.WebhookID]
		}
		if r.FormatID != nil {
			r.Format = formatByID[*r.FormatID]
		}
	}

	for _, c := range conditions {
		if _, err := models.ParseField(string(c.Field)); err != nil {
			return nil, fmt.Errorf("condition %d: %w", c.ID, err)
		}
		if _, err := models.ParseMatchType(string(c.MatchType)); err != nil {
			return nil, fmt.Errorf("condition %d: %w", c.ID, err)
		}
		if r, ok := ruleByID[c.RuleID]; ok {
			r.Conditions = append(r.Conditions, c)
		}
	}

	return rules, nil
}

// SetRuleEnabled sets the enabled flag of a rule
func (db *DB) SetRuleEnabled(ctx context.Context, id int64, enabled bool) error {
	return db.updateRule(ctx, id, `UPDATE rules SET enabled = ?, updated_at = ? WHERE id = ?`, enabled)
}

// SetRulePosition moves a rule; rules sharing a position are ordered by id
func (db *DB) SetRulePosition(ctx context.Context, id int64, position int) error {
	return db.updateRule(ctx, id, `UPDATE rules SET position = ?, updated_at = ? WHERE id = ?`, position)
}

func (db *DB) updateRule(ctx context.Context, id int64, query string, value any) error {
	res, err := db.ExecContext(ctx, db.q(query), value, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateWebhook creates a webhook
func (db *DB) CreateWebhook(ctx context.Context, w *models.Webhook) error {
	return upsertWebhook(ctx, db.DB, w)
}

// CreateFormat creates a notification format
func (db *DB) CreateFormat(ctx context.Context, f *models.NotificationFormat) error {
	return upsertFormat(ctx, db.DB, f)
}

// CreateRule creates a rule together with its conditions
func (db *DB) CreateRule(ctx context.Context, r *models.Rule) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertRule(ctx, tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertWebhook(ctx context.Context, ex sqlx.ExtContext, w *models.Webhook) error {
	query := ex.Rebind(`
		INSERT INTO webhooks (name, url) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET url = excluded.url
		RETURNING id
	`)
	if err := ex.QueryRowxContext(ctx, query, w.Name, w.URL).Scan(&w.ID); err != nil {
		return fmt.Errorf("failed to save webhook: %w", err)
	}
	return nil
}

func upsertFormat(ctx context.Context, ex sqlx.ExtContext, f *models.NotificationFormat) error {
	query := ex.Rebind(`
		INSERT INTO notification_formats (name, template) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET template = excluded.template
		RETURNING id
	`)
	if err := ex.QueryRowxContext(ctx, query, f.Name, f.Template).Scan(&f.ID); err != nil {
		return fmt.Errorf("failed to save notification format: %w", err)
	}
	return nil
}

// upsertRule saves a rule by name and replaces its conditions
func upsertRule(ctx context.Context, ex sqlx.ExtContext, r *models.Rule) error {
	query := ex.Rebind(`
		INSERT INTO rules (name, position, enabled, account_id, webhook_id, format_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			position = excluded.position,
			enabled = excluded.enabled,
			account_id = excluded.account_id,
			webhook_id = excluded.webhook_id,
			format_id = excluded.format_id,
			updated_at = excluded.updated_at
		RETURNING id
	`)
	now := time.Now().UTC()
	err := ex.QueryRowxContext(ctx, query,
		r.Name, r.Position, r.Enabled, r.AccountID, r.WebhookID, r.FormatID, now, now,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	if _, err := ex.ExecContext(ctx, ex.Rebind(`DELETE FROM rule_conditions WHERE rule_id = ?`), r.ID); err != nil {
		return fmt.Errorf("failed to clear rule conditions: %w", err)
	}

	insert := ex.Rebind(`INSERT INTO rule_conditions (rule_id, field, match_type, pattern) VALUES (?, ?, ?, ?) RETURNING id`)
	for i := range r.Conditions {
		c := &r.Conditions[i]
		if _, err := models.ParseField(string(c.Field)); err != nil {
			return err
		}
		if _, err := models.ParseMatchType(string(c.MatchType)); err != nil {
			return err
		}
		c.RuleID = r.ID
		if err := ex.QueryRowxContext(ctx, insert, c.RuleID, c.Field, c.MatchType, c.Pattern).Scan(&c.ID); err != nil {
			return fmt.Errorf("failed to save rule condition: %w", err)
		}
	}
	return nil
}
