package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mixelka/mailnotify/pkg/models"
)

// Persister stores the per-account cursor and dedup window
type Persister interface {
	InitializeCursor(ctx context.Context, accountID int64, at time.Time) error
	AdvanceCursor(ctx context.Context, accountID int64, cursor time.Time, processedIDs string) error
	SaveProcessedIDs(ctx context.Context, accountID int64, processedIDs string) error
}

// Tracker keeps track of the high-water mark and processed message ids of each account
type Tracker struct {
	store  Persister
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates a new tracker
func NewTracker(store Persister, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger.With("component", "dedup"),
		now:    time.Now,
	}
}

// WithClock replaces the time source used to initialize cursors
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Initialize sets the cursor of an account that has none to the current time.
// It reports whether initialization happened; in that case nothing should be fetched.
func (t *Tracker) Initialize(ctx context.Context, account *models.Account) (bool, error) {
	if account.LastProcessedDate != nil {
		return false, nil
	}

	now := t.now().UTC()
	if err := t.store.InitializeCursor(ctx, account.ID, now); err != nil {
		return false, fmt.Errorf("failed to initialize cursor: %w", err)
	}
	account.LastProcessedDate = &now
	t.logger.Info("cursor initialized, existing mail ignored", "account", account.Name, "cursor", now)
	return true, nil
}

// Begin opens a batch for one fetch of an account.
// A corrupt persisted window is reset with a warning.
func (t *Tracker) Begin(account *models.Account) *Batch {
	window, err := ParseWindow(account.ProcessedMessageIDs, Capacity)
	if err != nil {
		t.logger.Warn("processed id cache unreadable, resetting", "account", account.Name, "error", err)
		window = NewWindow(Capacity)
	}

	b := &Batch{
		accountID: account.ID,
		account:   account,
		window:    window,
	}
	if account.LastProcessedDate != nil {
		b.cursor = *account.LastProcessedDate
		b.max = b.cursor
	}
	return b
}

// Commit persists the batch result. The cursor moves only forward; when it
// stays, the window is still saved if the batch saw any message.
func (t *Tracker) Commit(ctx context.Context, b *Batch) error {
	if b.Processed == 0 && b.Skipped == 0 {
		return nil
	}

	ids, err := b.window.Encode()
	if err != nil {
		return err
	}

	if b.max.After(b.cursor) {
		if err := t.store.AdvanceCursor(ctx, b.accountID, b.max, ids); err != nil {
			return fmt.Errorf("failed to advance cursor: %w", err)
		}
		cursor := b.max
		b.account.LastProcessedDate = &cursor
		b.account.ProcessedMessageIDs = ids
		t.logger.Info("cursor advanced",
			"account", b.account.Name,
			"cursor", cursor,
			"processed", b.Processed,
			"skipped", b.Skipped,
		)
		return nil
	}

	if b.window.Len() == 0 {
		return nil
	}
	if err := t.store.SaveProcessedIDs(ctx, b.accountID, ids); err != nil {
		return fmt.Errorf("failed to save processed ids: %w", err)
	}
	b.account.ProcessedMessageIDs = ids
	t.logger.Debug("processed ids saved",
		"account", b.account.Name,
		"processed", b.Processed,
		"skipped", b.Skipped,
	)
	return nil
}

// Batch accumulates the messages of one fetch
type Batch struct {
	accountID int64
	account   *models.Account
	window    *Window
	cursor    time.Time
	max       time.Time

	Processed int
	Skipped   int
}

// Seen exposes the window so fetchers can skip known identifiers early
func (b *Batch) Seen() *Window {
	return b.window
}

// Admit reports whether msg is new. Known messages are counted as skipped;
// new ones are counted as processed, their id recorded and the high-water mark raised.
func (b *Batch) Admit(msg *models.Message) bool {
	if msg.MessageID != "" && b.window.Contains(msg.MessageID) {
		b.Skipped++
		return false
	}

	b.Processed++
	if msg.Timestamp.After(b.max) {
		b.max = msg.Timestamp
	}
	b.window.Add(msg.MessageID)
	return true
}
