// Package testutil builds throwaway orchestration stores for tests.
//
// A Store is a writable fixture: tests seed rows through it and then read
// them back through storage.DB, which opens the same store read-only.
//
//	st := testutil.NewSQLiteStore(t)
//	q := st.Queue("execution")
//	task := st.Task(testutil.Task{Title: "build", Priority: 5})
//	st.Place(q, task, "queued", now)
//	db := st.Open(t)
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/logyard/queuedash/internal/storage"
	"github.com/logyard/queuedash/migrations"
)

// Store is a writable fixture store.
type Store struct {
	Driver string
	Path   string
	DSN    string

	t testing.TB
	w *sql.DB
}

// NewSQLiteStore creates a SQLite store with the fixture schema in a
// temporary directory.
func NewSQLiteStore(t testing.TB) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".agent-queue.db")
	w, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("testutil: open sqlite: %v", err)
	}
	w.SetMaxOpenConns(1)
	s := &Store{Driver: storage.DriverSQLite, Path: path, t: t, w: w}
	t.Cleanup(func() { _ = w.Close() })
	s.migrate()
	return s
}

func (s *Store) migrate() {
	s.t.Helper()
	stmts, err := migrations.Statements(s.Driver)
	if err != nil {
		s.t.Fatalf("testutil: %v", err)
	}
	for _, stmt := range stmts {
		if _, err := s.w.Exec(stmt); err != nil {
			s.t.Fatalf("testutil: apply schema: %v\n%s", err, stmt)
		}
	}
}

// Open returns a read-only storage.DB on the fixture, closed at test end.
func (s *Store) Open(t testing.TB) *storage.DB {
	t.Helper()
	db, err := storage.New(context.Background(), storage.Options{
		Driver: s.Driver,
		Path:   s.Path,
		DSN:    s.DSN,
	}, TestLogger())
	if err != nil {
		t.Fatalf("testutil: open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Exec runs a statement against the fixture. Placeholders are written as ?.
func (s *Store) Exec(q string, args ...any) {
	s.t.Helper()
	if _, err := s.w.Exec(s.rebind(q), args...); err != nil {
		s.t.Fatalf("testutil: exec %q: %v", q, err)
	}
}

// Count runs a single-value COUNT query.
func (s *Store) Count(q string, args ...any) int {
	s.t.Helper()
	var n int
	if err := s.w.QueryRow(s.rebind(q), args...).Scan(&n); err != nil {
		s.t.Fatalf("testutil: count %q: %v", q, err)
	}
	return n
}

func (s *Store) insert(q string, args ...any) int64 {
	s.t.Helper()
	var id int64
	if err := s.w.QueryRow(s.rebind(q+" RETURNING id"), args...).Scan(&id); err != nil {
		s.t.Fatalf("testutil: insert %q: %v", q, err)
	}
	return id
}

func (s *Store) rebind(q string) string {
	if s.Driver != storage.DriverPgx {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ts converts a fixture time to the store's native form. The zero time is NULL.
func (s *Store) ts(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	if s.Driver == storage.DriverPgx {
		return t.UTC()
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// TestLogger returns a logger configured for test output (warns only).
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
