// Package storage persists documents, the department directory and notifications in SQL.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"DocumentClassifier/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store is a squirrel-backed repository over postgres or sqlite.
type Store struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
	now     func() time.Time
}

// Open connects using the configured driver and DSN.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	dsn := cfg.DSN
	if driver == DriverSQLite && !strings.Contains(dsn, "_time_format=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_time_format=sqlite"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return New(db, driver), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, driver string) *Store {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &Store{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.driver, err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	ts := "TIMESTAMPTZ"
	if s.driver == DriverSQLite {
		ts = "DATETIME"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS departments (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS memberships (
			user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			department_id TEXT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
			role_title    TEXT NOT NULL DEFAULT '',
			role_level    TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (user_id, department_id)
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id                      TEXT PRIMARY KEY,
			title                   TEXT NOT NULL DEFAULT '',
			file_name               TEXT NOT NULL DEFAULT '',
			mime_type               TEXT NOT NULL DEFAULT '',
			source_url              TEXT NOT NULL DEFAULT '',
			uploader_id             TEXT NOT NULL DEFAULT '',
			parent_id               TEXT NOT NULL DEFAULT '',
			status                  TEXT NOT NULL,
			action_points           TEXT NOT NULL DEFAULT '[]',
			department_id           TEXT NOT NULL DEFAULT '',
			priority                TEXT NOT NULL DEFAULT '',
			cross_department        TEXT NOT NULL DEFAULT '{}',
			affected_department_ids TEXT NOT NULL DEFAULT '[]',
			targeting               TEXT NOT NULL DEFAULT '',
			original_language       TEXT NOT NULL DEFAULT '',
			summary                 TEXT NOT NULL DEFAULT '',
			error_message           TEXT NOT NULL DEFAULT '',
			archive_stats           TEXT NOT NULL DEFAULT '',
			created_at              ` + ts + ` NOT NULL,
			updated_at              ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS documents_status_updated_idx ON documents (status, updated_at)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			message    TEXT NOT NULL,
			href       TEXT NOT NULL DEFAULT '',
			is_read    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
