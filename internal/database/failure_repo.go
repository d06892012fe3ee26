package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mixelka/mailnotify/pkg/models"
)

// DefaultFailureListLimit number of failure logs returned when no limit is given
const DefaultFailureListLimit = 100

// CreateFailure appends a failure log entry
func (db *DB) CreateFailure(ctx context.Context, f *models.FailureLog) error {
	query := db.q(`
		INSERT INTO failure_logs (account_id, rule_id, message_id, from_address, subject, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	err := db.QueryRowxContext(ctx, query,
		f.AccountID,
		f.RuleID,
		f.MessageID,
		f.FromAddress,
		f.Subject,
		f.ErrorMessage,
		f.CreatedAt.UTC(),
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to create failure log: %w", err)
	}
	return nil
}

// ListFailures returns the newest failure logs first
func (db *DB) ListFailures(ctx context.Context, limit int) ([]*models.FailureLog, error) {
	if limit <= 0 {
		limit = DefaultFailureListLimit
	}
	var logs []*models.FailureLog
	query := db.q(`
		SELECT id, account_id, rule_id, message_id, from_address, subject, error_message, created_at
		FROM failure_logs ORDER BY created_at DESC, id DESC LIMIT ?
	`)
	if err := db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get failure logs: %w", err)
	}
	return logs, nil
}

// PurgeFailuresBefore deletes failure logs created before cutoff
func (db *DB) PurgeFailuresBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := db.q(`DELETE FROM failure_logs WHERE created_at < ?`)
	res, err := db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge failure logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// ClearFailures deletes all failure logs
func (db *DB) ClearFailures(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM failure_logs`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear failure logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
