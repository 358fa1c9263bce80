package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrUnavailable is returned when the store cannot be reached at all:
	// the SQLite file is missing or unreadable, or Postgres refuses connections.
	ErrUnavailable = errors.New("storage: backing store unavailable")

	// ErrQueryFailure is returned when a query ran but its result could not
	// be used, for example a row failing validation.
	ErrQueryFailure = errors.New("storage: query failure")
)

// SQLite primary result codes the store layer cares about.
const (
	sqliteBusy     = 5
	sqliteLocked   = 6
	sqliteCantOpen = 14
	sqliteNotADB   = 26
)

// classify wraps connection-level failures with ErrUnavailable and leaves
// other errors untouched.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	if isUnavailable(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqliteCantOpen, sqliteNotADB:
			return true
		}
	}
	return false
}

// invalidRow wraps a validation failure with ErrQueryFailure.
func invalidRow(err error) error {
	return fmt.Errorf("%w: %w", ErrQueryFailure, err)
}
