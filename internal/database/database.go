package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mixelka/mailnotify/internal/config"
)

// DB wraps sqlx.DB
type DB struct {
	*sqlx.DB
	postgres bool
}

// Open connects to the database selected by the configuration
func Open(cfg *config.Config) (*DB, error) {
	if cfg.UsePostgres() {
		return NewPostgres(cfg.DatabaseURL)
	}
	return New(cfg.DatabasePath)
}

// New creates a new SQLite database connection
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Connect with WAL mode and foreign keys enabled
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{DB: db}, nil
}

// NewPostgres creates a new PostgreSQL database connection
func NewPostgres(dsn string) (*DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{DB: db, postgres: true}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if db.postgres {
		schema = postgresSchema
	}
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// q rebinds a query written with ? placeholders for the active driver
func (db *DB) q(query string) string {
	return db.Rebind(query)
}
