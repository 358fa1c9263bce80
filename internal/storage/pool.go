// Package storage reads the orchestration store that queuedash reports on.
//
// The store is owned by the task-queue system: queuedash opens it read-only
// and never writes. Two backends are supported through database/sql, a local
// SQLite file (modernc.org/sqlite) and PostgreSQL (pgx stdlib). Query text is
// written once with ? placeholders and rebound per dialect.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Options.Driver.
const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

// Options selects and locates the backing store.
type Options struct {
	Driver string
	// Path is the SQLite database file.
	Path string
	// DSN is the Postgres connection string.
	DSN string
}

// DB is a read-only handle on the orchestration store.
type DB struct {
	sql     *sql.DB
	dialect dialect
	path    string
	logger  *slog.Logger
}

// New opens the store. A missing SQLite file is not an error here: the
// dashboard starts anyway and reports the store as unavailable until the
// orchestrator creates it.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*DB, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return openSQLite(opts.Path, logger)
	case DriverPgx:
		return openPostgres(ctx, opts.DSN, logger)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
}

func openSQLite(path string, logger *slog.Logger) (*DB, error) {
	if path == "" {
		return nil, errors.New("storage: sqlite path is required")
	}
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", "busy_timeout(5000)")
	dsn := "file:" + path + "?" + q.Encode()

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)
	return &DB{sql: sqlDB, dialect: sqliteDialect{}, path: path, logger: logger}, nil
}

func openPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse DSN: %w", err)
	}
	// Every session is read-only; a stray write fails at the server.
	cfg.RuntimeParams["default_transaction_read_only"] = "on"
	cfg.RuntimeParams["application_name"] = "queuedash"

	sqlDB := stdlib.OpenDB(*cfg)
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Warn("storage: postgres not reachable at startup", "error", err)
	}
	return &DB{sql: sqlDB, dialect: postgresDialect{}, logger: logger}, nil
}

// Driver returns the backend name.
func (db *DB) Driver() string {
	return db.dialect.name()
}

// Ping reports whether the store can answer queries. Failures are wrapped
// with ErrUnavailable.
func (db *DB) Ping(ctx context.Context) error {
	if db.path != "" {
		if _, err := os.Stat(db.path); err != nil {
			return fmt.Errorf("%w: database file %s: %w", ErrUnavailable, db.path, err)
		}
	}
	if err := db.sql.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close releases all connections.
func (db *DB) Close() error {
	return db.sql.Close()
}

// query runs a read with transient-contention retries and classifies
// connection failures as ErrUnavailable.
func (db *DB) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := WithRetry(ctx, 3, retryDelay, func() error {
		var err error
		rows, err = db.sql.QueryContext(ctx, db.dialect.rebind(q), args...)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (db *DB) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return db.sql.QueryRowContext(ctx, db.dialect.rebind(q), args...)
}
