package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mixelka/mailnotify/internal/crypto"
	"github.com/mixelka/mailnotify/internal/database"
	"github.com/mixelka/mailnotify/internal/dedup"
	"github.com/mixelka/mailnotify/internal/email"
	"github.com/mixelka/mailnotify/internal/notify"
	"github.com/mixelka/mailnotify/pkg/models"
)

// FailureRetention age after which failure log entries are purged
const FailureRetention = 30 * 24 * time.Hour

// Store is the persistence the worker needs
type Store interface {
	dedup.Persister
	notify.FailureRecorder

	LoadWorkerState(ctx context.Context, defaultInterval int) (*models.WorkerState, error)
	PurgeFailuresBefore(ctx context.Context, cutoff time.Time) (int64, error)
	PendingTriggers(ctx context.Context) ([]*models.WorkerTrigger, error)
	AckTrigger(ctx context.Context, id int64) error
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	GetEnabledAccounts(ctx context.Context) ([]*models.Account, error)
	ListRules(ctx context.Context) ([]*models.Rule, error)
}

// Worker polls all enabled accounts in a single loop
type Worker struct {
	store           Store
	fetchers        email.Registry
	tracker         *dedup.Tracker
	dispatcher      *notify.Dispatcher
	passwords       *crypto.PasswordCipher
	defaultInterval int
	logger          *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new worker. defaultInterval seeds the control state in seconds;
// a nil cipher means passwords are stored in plain text.
func New(
	store Store,
	fetchers email.Registry,
	dispatcher *notify.Dispatcher,
	passwords *crypto.PasswordCipher,
	defaultInterval int,
	logger *slog.Logger,
) *Worker {
	w := &Worker{
		store:           store,
		fetchers:        fetchers,
		dispatcher:      dispatcher,
		passwords:       passwords,
		defaultInterval: models.ClampPollInterval(defaultInterval),
		logger:          logger.With("component", "worker"),
		now:             time.Now,
		sleep:           sleepContext,
	}
	w.tracker = dedup.NewTracker(store, logger).WithClock(func() time.Time { return w.now() })
	return w
}

// Run executes cycles until ctx is cancelled. The account being processed
// when cancellation arrives is finished first.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	interval := time.Duration(w.defaultInterval) * time.Second

	for {
		report, err := w.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.logger.Error("cycle failed, retrying after interval", "error", err, "interval", interval)
		} else {
			interval = report.Interval
		}

		if err := w.sleep(ctx, interval); err != nil {
			break
		}
	}

	w.logger.Info("worker stopped")
	return ctx.Err()
}

// CycleReport summarizes one cycle
type CycleReport struct {
	ID        string
	Paused    bool
	Interval  time.Duration
	Purged    int64
	Triggers  int
	Processed []int64 // Account ids in processing order
}

// RunCycle performs one cycle: read control state, purge old failures,
// drain triggers, then sweep the remaining enabled accounts.
func (w *Worker) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{ID: uuid.NewString()}
	logger := w.logger.With("cycle", report.ID)

	state, err := w.store.LoadWorkerState(ctx, w.defaultInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to load worker state: %w", err)
	}
	report.Interval = state.Interval()

	if !state.IsRunning {
		report.Paused = true
		logger.Debug("worker paused", "interval", report.Interval)
		return report, nil
	}

	purged, err := w.store.PurgeFailuresBefore(ctx, w.now().Add(-FailureRetention))
	if err != nil {
		logger.Error("failed to purge old failures", "error", err)
	} else if purged > 0 {
		report.Purged = purged
		logger.Info("purged old failures", "count", purged)
	}

	handled := make(map[int64]bool)

	triggers, err := w.store.PendingTriggers(ctx)
	if err != nil {
		logger.Error("failed to read triggers", "error", err)
	}
	for _, trigger := range triggers {
		report.Triggers++
		if !handled[trigger.AccountID] {
			handled[trigger.AccountID] = true
			w.runTrigger(ctx, logger, trigger, report)
		}
		if err := w.store.AckTrigger(ctx, trigger.ID); err != nil {
			logger.Error("failed to acknowledge trigger", "trigger_id", trigger.ID, "error", err)
		}
	}

	accounts, err := w.store.GetEnabledAccounts(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list accounts: %w", err)
	}
	for _, account := range accounts {
		if handled[account.ID] {
			continue
		}
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		handled[account.ID] = true
		w.processAccount(ctx, logger, account)
		report.Processed = append(report.Processed, account.ID)
	}

	logger.Debug("cycle finished",
		"accounts", len(report.Processed),
		"triggers", report.Triggers,
		"interval", report.Interval,
	)
	return report, nil
}

func (w *Worker) runTrigger(ctx context.Context, logger *slog.Logger, trigger *models.WorkerTrigger, report *CycleReport) {
	account, err := w.store.GetAccountByID(ctx, trigger.AccountID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		logger.Warn("trigger for unknown account", "account_id", trigger.AccountID)
		return
	case err != nil:
		logger.Error("failed to load triggered account", "account_id", trigger.AccountID, "error", err)
		return
	case !account.Enabled:
		logger.Info("trigger for disabled account ignored", "account", account.Name)
		return
	}

	logger.Info("processing triggered account", "account", account.Name)
	w.processAccount(ctx, logger, account)
	report.Processed = append(report.Processed, account.ID)
}

// processAccount fetches, dispatches and commits one account. Failures and
// panics stay inside this account. Cancelling parent aborts the fetch only.
func (w *Worker) processAccount(parent context.Context, logger *slog.Logger, account *models.Account) {
	// Only the fetch observes shutdown; fetched messages are always dispatched and committed.
	ctx := context.WithoutCancel(parent)
	logger = logger.With("account", account.Name, "protocol", account.Protocol)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while processing account", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	logger.Debug("checking account", "address", fmt.Sprintf("%s@%s", account.Username, account.Address()))

	initialized, err := w.tracker.Initialize(ctx, account)
	if err != nil {
		logger.Error("failed to initialize cursor", "error", err)
		return
	}
	if initialized {
		return
	}

	fetcher, err := w.fetchers.For(account.Protocol)
	if err != nil {
		w.recordAccountFailure(ctx, logger, account, err)
		return
	}

	password, err := w.passwords.Open(account.Password)
	if err != nil {
		w.recordAccountFailure(ctx, logger, account, err)
		return
	}

	batch := w.tracker.Begin(account)
	start := time.Now()

	msgs, err := fetcher.Fetch(parent, email.ParamsFor(account, password), account.LastProcessedDate, batch.Seen())
	if err != nil {
		if parent.Err() != nil {
			logger.Info("fetch interrupted by shutdown", "error", err)
			return
		}
		w.recordAccountFailure(ctx, logger, account, err)
		return
	}
	if len(msgs) == 0 {
		logger.Debug("no new messages")
		return
	}

	ruleSet, err := w.store.ListRules(ctx)
	if err != nil {
		logger.Error("failed to load rules, batch left for next cycle", "error", err)
		return
	}

	outcomes := make(map[notify.Outcome]int)
	for _, msg := range msgs {
		if !batch.Admit(msg) {
			logger.Debug("duplicate message skipped", "message_id", msg.MessageID)
			continue
		}
		logger.Info("new message",
			"timestamp", msg.Timestamp,
			"from", msg.From,
			"subject", msg.Subject,
		)
		outcomes[w.dispatcher.Dispatch(ctx, account, ruleSet, msg)]++
	}

	if err := w.tracker.Commit(ctx, batch); err != nil {
		logger.Error("failed to save cursor", "error", err)
		return
	}

	logger.Info("account processed",
		"fetched", len(msgs),
		"processed", batch.Processed,
		"skipped", batch.Skipped,
		"delivered", outcomes[notify.Delivered],
		"failed", outcomes[notify.Failed],
		"duration", time.Since(start),
	)
}

// recordAccountFailure stores a fetch-level failure; the cursor stays untouched
func (w *Worker) recordAccountFailure(ctx context.Context, logger *slog.Logger, account *models.Account, cause error) {
	logger.Error("failed to fetch messages", "error", cause)

	entry := &models.FailureLog{
		AccountID:    &account.ID,
		ErrorMessage: fmt.Sprintf("%s error: %v", strings.ToUpper(string(account.Protocol)), cause),
	}
	if err := w.store.CreateFailure(ctx, entry); err != nil {
		logger.Error("failed to record failure", "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
