package database

import (
	"context"
	"fmt"

	"github.com/mixelka/mailnotify/internal/config"
	"github.com/mixelka/mailnotify/pkg/models"
)

// ImportResult counts the records written by ImportSeed
type ImportResult struct {
	Webhooks int
	Formats  int
	Accounts int
	Rules    int
}

// ImportSeed upserts everything in a seed document by name in one transaction.
// seal is applied to every account password before it is stored.
func (db *DB) ImportSeed(ctx context.Context, seed *config.Seed, seal func(string) (string, error)) (*ImportResult, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &ImportResult{}

	webhookIDs := make(map[string]int64, len(seed.Webhooks))
	for _, sw := range seed.Webhooks {
		w := &models.Webhook{Name: sw.Name, URL: sw.URL}
		if err := upsertWebhook(ctx, tx, w); err != nil {
			return nil, err
		}
		webhookIDs[w.Name] = w.ID
		result.Webhooks++
	}

	formatIDs := make(map[string]int64, len(seed.Formats))
	for _, sf := range seed.Formats {
		f := &models.NotificationFormat{Name: sf.Name, Template: sf.Template}
		if err := upsertFormat(ctx, tx, f); err != nil {
			return nil, err
		}
		formatIDs[f.Name] = f.ID
		result.Formats++
	}

	accountIDs := make(map[string]int64, len(seed.Accounts))
	for _, sa := range seed.Accounts {
		password, err := seal(sa.Password)
		if err != nil {
			return nil, fmt.Errorf("account %s: failed to encrypt password: %w", sa.Name, err)
		}
		account := &models.Account{
			Name:     sa.Name,
			Host:     sa.Host,
			Port:     sa.Port,
			Username: sa.Username,
			Password: password,
			Security: models.SecurityMode(sa.Security),
			Mailbox:  sa.Mailbox,
			Protocol: models.Protocol(sa.Protocol),
			Enabled:  sa.IsEnabled(),
		}
		if err := upsertAccount(ctx, tx, account); err != nil {
			return nil, fmt.Errorf("account %s: %w", sa.Name, err)
		}
		accountIDs[sa.Name] = account.ID
		result.Accounts++
	}

	for _, sr := range seed.Rules {
		r := &models.Rule{
			Name:     sr.Name,
			Position: sr.Position,
			Enabled:  sr.IsEnabled(),
		}
		if sr.Account != "" {
			id := accountIDs[sr.Account]
			r.AccountID = &id
		}
		if sr.Webhook != "" {
			id := webhookIDs[sr.Webhook]
			r.WebhookID = &id
		}
		if sr.Format != "" {
			id := formatIDs[sr.Format]
			r.FormatID = &id
		}
		for _, sc := range sr.Conditions {
			r.Conditions = append(r.Conditions, models.RuleCondition{
				Field:     models.Field(sc.Field),
				MatchType: models.MatchType(sc.Match),
				Pattern:   sc.Pattern,
			})
		}
		if err := upsertRule(ctx, tx, r); err != nil {
			return nil, fmt.Errorf("rule %s: %w", sr.Name, err)
		}
		result.Rules++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return result, nil
}
