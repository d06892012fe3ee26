package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mixelka/mailnotify/pkg/models"
)

const workerStateID = 1

// LoadWorkerState returns the worker control state, creating the default row if absent
func (db *DB) LoadWorkerState(ctx context.Context, defaultInterval int) (*models.WorkerState, error) {
	insert := db.q(`
		INSERT INTO worker_state (id, is_running, poll_interval, display_timezone, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)
	_, err := db.ExecContext(ctx, insert,
		workerStateID, true, models.ClampPollInterval(defaultInterval), "UTC", time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize worker state: %w", err)
	}

	var state models.WorkerState
	query := db.q(`SELECT id, is_running, poll_interval, display_timezone, updated_at FROM worker_state WHERE id = ?`)
	if err := db.GetContext(ctx, &state, query, workerStateID); err != nil {
		return nil, fmt.Errorf("failed to get worker state: %w", err)
	}
	return &state, nil
}

// GetWorkerState returns the worker control state without writing. When the
// row does not exist yet the defaults are returned in memory.
func (db *DB) GetWorkerState(ctx context.Context, defaultInterval int) (*models.WorkerState, error) {
	var state models.WorkerState
	query := db.q(`SELECT id, is_running, poll_interval, display_timezone, updated_at FROM worker_state WHERE id = ?`)
	err := db.GetContext(ctx, &state, query, workerStateID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.WorkerState{
			ID:              workerStateID,
			IsRunning:       true,
			PollInterval:    models.ClampPollInterval(defaultInterval),
			DisplayTimezone: "UTC",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker state: %w", err)
	}
	return &state, nil
}

// SaveWorkerState stores the worker control state
func (db *DB) SaveWorkerState(ctx context.Context, state *models.WorkerState) error {
	state.PollInterval = models.ClampPollInterval(state.PollInterval)
	if state.DisplayTimezone == "" {
		state.DisplayTimezone = "UTC"
	}
	state.UpdatedAt = time.Now().UTC()

	query := db.q(`
		INSERT INTO worker_state (id, is_running, poll_interval, display_timezone, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			is_running = excluded.is_running,
			poll_interval = excluded.poll_interval,
			display_timezone = excluded.display_timezone,
			updated_at = excluded.updated_at
	`)
	_, err := db.ExecContext(ctx, query,
		workerStateID, state.IsRunning, state.PollInterval, state.DisplayTimezone, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save worker state: %w", err)
	}
	state.ID = workerStateID
	return nil
}

// EnqueueTrigger requests an immediate poll of one account
func (db *DB) EnqueueTrigger(ctx context.Context, accountID int64) (*models.WorkerTrigger, error) {
	trigger := &models.WorkerTrigger{
		AccountID:   accountID,
		RequestedAt: time.Now().UTC(),
	}
	query := db.q(`INSERT INTO worker_triggers (account_id, requested_at) VALUES (?, ?) RETURNING id`)
	if err := db.QueryRowxContext(ctx, query, trigger.AccountID, trigger.RequestedAt).Scan(&trigger.ID); err != nil {
		return nil, fmt.Errorf("failed to enqueue trigger: %w", err)
	}
	return trigger, nil
}

// PendingTriggers returns queued triggers, oldest first
func (db *DB) PendingTriggers(ctx context.Context) ([]*models.WorkerTrigger, error) {
	var triggers []*models.WorkerTrigger
	err := db.SelectContext(ctx, &triggers, `SELECT id, account_id, requested_at FROM worker_triggers ORDER BY requested_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get triggers: %w", err)
	}
	return triggers, nil
}

// AckTrigger removes a consumed trigger from the queue
func (db *DB) AckTrigger(ctx context.Context, id int64) error {
	query := db.q(`DELETE FROM worker_triggers WHERE id = ?`)
	if _, err := db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to ack trigger: %w", err)
	}
	return nil
}
