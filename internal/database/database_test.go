package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mixelka/mailnotify/internal/config"
	"github.com/mixelka/mailnotify/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func createAccount(t *testing.T, db *DB, name string) *models.Account {
	t.Helper()
	account := &models.Account{
		Name:     name,
		Host:     "mail.example.com",
		Username: name + "@example.com",
		Password: "secret",
		Security: models.SecuritySSL,
		Protocol: models.ProtocolIMAP,
		Enabled:  true,
	}
	if err := db.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return account
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestAccountCursorLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	account := createAccount(t, db, "work")

	got, err := db.GetAccountByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccountByID: %v", err)
	}
	if got.LastProcessedDate != nil || got.Mailbox != "INBOX" || got.ResolvedPort() != 993 {
		t.Fatalf("fresh account = %+v", got)
	}

	first := time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC)
	if err := db.InitializeCursor(ctx, account.ID, first); err != nil {
		t.Fatal(err)
	}
	// A second initialization never overrides an existing cursor
	if err := db.InitializeCursor(ctx, account.ID, first.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetAccountByID(ctx, account.ID)
	if got.LastProcessedDate == nil || !got.LastProcessedDate.Equal(first) {
		t.Fatalf("cursor = %v, want %v", got.LastProcessedDate, first)
	}

	next := first.Add(time.Minute)
	if err := db.AdvanceCursor(ctx, account.ID, next, `["<a@x>"]`); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveProcessedIDs(ctx, account.ID, `["<a@x>","<b@x>"]`); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetAccountByID(ctx, account.ID)
	if !got.LastProcessedDate.Equal(next) || got.ProcessedMessageIDs != `["<a@x>","<b@x>"]` {
		t.Fatalf("after advance = %v %s", got.LastProcessedDate, got.ProcessedMessageIDs)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetAccountByID(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := db.SetAccountEnabled(context.Background(), 404, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestEnabledAccounts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	a := createAccount(t, db, "a")
	b := createAccount(t, db, "b")
	if err := db.SetAccountEnabled(ctx, a.ID, false); err != nil {
		t.Fatal(err)
	}

	enabled, err := db.GetEnabledAccounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(enabled) != 1 || enabled[0].ID != b.ID {
		t.Fatalf("enabled = %+v", enabled)
	}

	all, err := db.ListAccounts(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListAccounts = %d, %v", len(all), err)
	}
}

func TestListRulesOrderAndAttachments(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	hook := &models.Webhook{Name: "ops", URL: "https://hooks.example/1"}
	if err := db.CreateWebhook(ctx, hook); err != nil {
		t.Fatal(err)
	}
	format := &models.NotificationFormat{Name: "short", Template: "{subject}"}
	if err := db.CreateFormat(ctx, format); err != nil {
		t.Fatal(err)
	}

	mk := func(name string, position int) *models.Rule {
		r := &models.Rule{
			Name:      name,
			Position:  position,
			Enabled:   true,
			WebhookID: &hook.ID,
			FormatID:  &format.ID,
			Conditions: []models.RuleCondition{
				{Field: models.FieldSubject, MatchType: models.MatchContains, Pattern: name},
				{Field: models.FieldFrom, MatchType: models.MatchSuffix, Pattern: "@example.com"},
			},
		}
		if err := db.CreateRule(ctx, r); err != nil {
			t.Fatalf("CreateRule %s: %v", name, err)
		}
		return r
	}
	late := mk("late", 5)
	early := mk("early", 1)
	tie := mk("tie", 5)

	rules, err := db.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 3 || rules[0].ID != early.ID || rules[1].ID != late.ID || rules[2].ID != tie.ID {
		t.Fatalf("order = %v", ruleNames(rules))
	}
	r := rules[0]
	if len(r.Conditions) != 2 || r.Webhook == nil || r.Webhook.URL != hook.URL || r.Format == nil || r.Format.Template != "{subject}" {
		t.Fatalf("attachments = %+v", r)
	}
}

func TestRuleToggleAndMove(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	first := &models.Rule{Name: "first", Position: 1, Enabled: true}
	second := &models.Rule{Name: "second", Position: 2, Enabled: true}
	for _, r := range []*models.Rule{first, second} {
		if err := db.CreateRule(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.SetRulePosition(ctx, second.ID, 0); err != nil {
		t.Fatal(err)
	}
	if err := db.SetRuleEnabled(ctx, first.ID, false); err != nil {
		t.Fatal(err)
	}

	rules, err := db.ListRules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 || rules[0].ID != second.ID || rules[1].Enabled {
		t.Fatalf("rules = %v", ruleNames(rules))
	}

	if err := db.SetRuleEnabled(ctx, 999, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateRuleRejectsUnknownTags(t *testing.T) {
	db := newTestDB(t)
	r := &models.Rule{Name: "bad", Conditions: []models.RuleCondition{
		{Field: models.Field("cc"), MatchType: models.MatchContains, Pattern: "x"},
	}}
	if err := db.CreateRule(context.Background(), r); !errors.Is(err, models.ErrInvalidField) {
		t.Fatalf("err = %v", err)
	}
	rules, _ := db.ListRules(context.Background())
	if len(rules) != 0 {
		t.Fatal("rule persisted despite invalid condition")
	}
}

func ruleNames(rules []*models.Rule) []string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Name)
	}
	return names
}

func TestFailureLogs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	account := createAccount(t, db, "work")

	subject := "Hello"
	old := &models.FailureLog{AccountID: &account.ID, ErrorMessage: "old", CreatedAt: time.Now().Add(-40 * 24 * time.Hour)}
	recent := &models.FailureLog{AccountID: &account.ID, Subject: &subject, ErrorMessage: "recent"}
	for _, f := range []*models.FailureLog{old, recent} {
		if err := db.CreateFailure(ctx, f); err != nil {
			t.Fatal(err)
		}
	}

	logs, err := db.ListFailures(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 || logs[0].ErrorMessage != "recent" || *logs[0].Subject != "Hello" || logs[1].Subject != nil {
		t.Fatalf("logs = %+v", logs)
	}

	purged, err := db.PurgeFailuresBefore(ctx, time.Now().Add(-30*24*time.Hour))
	if err != nil || purged != 1 {
		t.Fatalf("purged = %d, %v", purged, err)
	}

	cleared, err := db.ClearFailures(ctx)
	if err != nil || cleared != 1 {
		t.Fatalf("cleared = %d, %v", cleared, err)
	}
}

func TestGetWorkerStateDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	state, err := db.GetWorkerState(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if !state.IsRunning || state.PollInterval != 30 || state.DisplayTimezone != "UTC" {
		t.Fatalf("defaults = %+v", state)
	}

	var rows int
	if err := db.GetContext(ctx, &rows, `SELECT COUNT(*) FROM worker_state`); err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Fatalf("worker_state rows = %d, want 0", rows)
	}

	state.IsRunning = false
	if err := db.SaveWorkerState(ctx, state); err != nil {
		t.Fatal(err)
	}
	again, err := db.GetWorkerState(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if again.IsRunning {
		t.Fatal("stored state not returned")
	}
}

func TestWorkerStateDefaultsAndSave(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	state, err := db.LoadWorkerState(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !state.IsRunning || state.PollInterval != models.MinPollInterval || state.DisplayTimezone != "UTC" {
		t.Fatalf("default state = %+v", state)
	}

	state.IsRunning = false
	state.PollInterval = 3
	state.DisplayTimezone = "Asia/Tokyo"
	if err := db.SaveWorkerState(ctx, state); err != nil {
		t.Fatal(err)
	}

	// The default only applies when the row is missing
	again, err := db.LoadWorkerState(ctx, 120)
	if err != nil {
		t.Fatal(err)
	}
	if again.IsRunning || again.PollInterval != models.MinPollInterval || again.DisplayTimezone != "Asia/Tokyo" {
		t.Fatalf("saved state = %+v", again)
	}
}

func TestTriggerQueue(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	a := createAccount(t, db, "a")
	b := createAccount(t, db, "b")

	first, err := db.EnqueueTrigger(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.EnqueueTrigger(ctx, a.ID); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingTriggers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].ID != first.ID || pending[0].AccountID != b.ID {
		t.Fatalf("pending = %+v", pending)
	}

	if err := db.AckTrigger(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	pending, _ = db.PendingTriggers(ctx)
	if len(pending) != 1 || pending[0].AccountID != a.ID {
		t.Fatalf("pending after ack = %+v", pending)
	}
}

func TestImportSeedUpsertsByName(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	seed, err := config.ParseSeed([]byte(`
webhooks:
  - {name: ops, url: "https://hooks.example/1"}
formats:
  - {name: short, template: "{subject}"}
accounts:
  - {name: work, host: imap.example.com, username: me@example.com, password: secret}
rules:
  - name: alerts
    position: 1
    account: work
    webhook: ops
    format: short
    conditions:
      - {field: subject, match: contains, pattern: alert}
`))
	if err != nil {
		t.Fatal(err)
	}

	seal := func(p string) (string, error) { return "sealed:" + p, nil }
	res, err := db.ImportSeed(ctx, seed, seal)
	if err != nil {
		t.Fatalf("ImportSeed: %v", err)
	}
	if *res != (ImportResult{Webhooks: 1, Formats: 1, Accounts: 1, Rules: 1}) {
		t.Fatalf("result = %+v", res)
	}

	accounts, _ := db.ListAccounts(ctx)
	if len(accounts) != 1 || accounts[0].Password != "sealed:secret" {
		t.Fatalf("accounts = %+v", accounts)
	}

	// Cursor state survives a re-import
	cursor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := db.AdvanceCursor(ctx, accounts[0].ID, cursor, `["<a@x>"]`); err != nil {
		t.Fatal(err)
	}
	seed.Accounts[0].Host = "imap2.example.com"
	if _, err := db.ImportSeed(ctx, seed, seal); err != nil {
		t.Fatalf("second ImportSeed: %v", err)
	}

	accounts, _ = db.ListAccounts(ctx)
	if len(accounts) != 1 || accounts[0].Host != "imap2.example.com" || !accounts[0].LastProcessedDate.Equal(cursor) {
		t.Fatalf("accounts after re-import = %+v", accounts[0])
	}

	rules, _ := db.ListRules(ctx)
	if len(rules) != 1 || len(rules[0].Conditions) != 1 || *rules[0].AccountID != accounts[0].ID {
		t.Fatalf("rules = %+v", rules)
	}
}
