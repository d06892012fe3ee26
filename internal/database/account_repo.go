package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mixelka/mailnotify/pkg/models"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

const accountColumns = `id, name, host, port, username, password, security, mailbox_name, protocol, enabled,
	last_processed_date, processed_message_ids, last_uid, created_at, updated_at`

// CreateAccount creates a new mail account
func (db *DB) CreateAccount(ctx context.Context, account *models.Account) error {
	query := db.q(`
		INSERT INTO accounts (name, host, port, username, password, security, mailbox_name, protocol, enabled,
			last_processed_date, processed_message_ids, last_uid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	now := time.Now().UTC()
	err := db.QueryRowxContext(ctx, query,
		account.Name,
		account.Host,
		account.Port,
		account.Username,
		account.Password,
		account.Security,
		account.MailboxName(),
		account.Protocol,
		account.Enabled,
		account.LastProcessedDate,
		account.ProcessedMessageIDs,
		account.LastUID,
		now,
		now,
	).Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// UpsertAccount creates an account or updates the connection settings of the account with the same name.
// Cursor state of an existing account is left untouched.
func (db *DB) UpsertAccount(ctx context.Context, account *models.Account) error {
	return upsertAccount(ctx, db.DB, account)
}

func upsertAccount(ctx context.Context, ex sqlx.ExtContext, account *models.Account) error {
	query := ex.Rebind(`
		INSERT INTO accounts (name, host, port, username, password, security, mailbox_name, protocol, enabled,
			processed_message_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			host = excluded.host,
			port = excluded.port,
			username = excluded.username,
			password = excluded.password,
			security = excluded.security,
			mailbox_name = excluded.mailbox_name,
			protocol = excluded.protocol,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
		RETURNING id
	`)
	now := time.Now().UTC()
	err := ex.QueryRowxContext(ctx, query,
		account.Name,
		account.Host,
		account.Port,
		account.Username,
		account.Password,
		account.Security,
		account.MailboxName(),
		account.Protocol,
		account.Enabled,
		now,
		now,
	).Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

// GetAccountByID returns an account by ID
func (db *DB) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	query := db.q(`SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`)
	err := db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// ListAccounts returns all accounts ordered by name
func (db *DB) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY name, id`
	err := db.SelectContext(ctx, &accounts, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	return accounts, nil
}

// GetEnabledAccounts returns all enabled accounts
func (db *DB) GetEnabledAccounts(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	query := db.q(`SELECT ` + accountColumns + ` FROM accounts WHERE enabled = ? ORDER BY id`)
	err := db.SelectContext(ctx, &accounts, query, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled accounts: %w", err)
	}
	return accounts, nil
}

// InitializeCursor sets the cursor of an account that has never been polled
func (db *DB) InitializeCursor(ctx context.Context, id int64, at time.Time) error {
	query := db.q(`UPDATE accounts SET last_processed_date = ?, updated_at = ? WHERE id = ? AND last_processed_date IS NULL`)
	_, err := db.ExecContext(ctx, query, at.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to initialize cursor: %w", err)
	}
	return nil
}

// AdvanceCursor stores a new cursor together with the dedup window
func (db *DB) AdvanceCursor(ctx context.Context, id int64, cursor time.Time, processedIDs string) error {
	query := db.q(`UPDATE accounts SET last_processed_date = ?, processed_message_ids = ?, updated_at = ? WHERE id = ?`)
	_, err := db.ExecContext(ctx, query, cursor.UTC(), processedIDs, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}
	return nil
}

// SaveProcessedIDs stores the dedup window without moving the cursor
func (db *DB) SaveProcessedIDs(ctx context.Context, id int64, processedIDs string) error {
	query := db.q(`UPDATE accounts SET processed_message_ids = ?, updated_at = ? WHERE id = ?`)
	_, err := db.ExecContext(ctx, query, processedIDs, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to save processed ids: %w", err)
	}
	return nil
}

// SetAccountEnabled sets the enabled flag of an account
func (db *DB) SetAccountEnabled(ctx context.Context, id int64, enabled bool) error {
	query := db.q(`UPDATE accounts SET enabled = ?, updated_at = ? WHERE id = ?`)
	res, err := db.ExecContext(ctx, query, enabled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set account enabled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAccount deletes an account; scoped rules and pending triggers cascade
func (db *DB) DeleteAccount(ctx context.Context, id int64) error {
	query := db.q(`DELETE FROM accounts WHERE id = ?`)
	res, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
