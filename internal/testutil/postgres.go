package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/logyard/queuedash/internal/storage"
)

// TestContainer wraps a Postgres testcontainer with an admin DSN.
//
// Usage in TestMain:
//
//	func TestMain(m *testing.M) {
//	    pg = testutil.MustStartPostgres()
//	    code := m.Run()
//	    pg.Terminate()
//	    os.Exit(code)
//	}
type TestContainer struct {
	Container testcontainers.Container
	DSN       string

	host, port string
	seq        atomic.Int64
}

// MustStartPostgres starts a Postgres container. Calls os.Exit(1) on failure
// (suitable for TestMain).
func MustStartPostgres() *TestContainer {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "queuedash",
			"POSTGRES_PASSWORD": "queuedash",
			"POSTGRES_DB":       "queuedash",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "testutil: failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "testutil: failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "testutil: failed to get container port: %v\n", err)
		os.Exit(1)
	}

	tc := &TestContainer{Container: container, host: host, port: port.Port()}
	tc.DSN = tc.dsn("queuedash")
	return tc
}

func (tc *TestContainer) dsn(database string) string {
	return fmt.Sprintf("postgres://queuedash:queuedash@%s:%s/%s?sslmode=disable", tc.host, tc.port, database)
}

// NewStore creates a fresh database in the container with the fixture schema.
func (tc *TestContainer) NewStore(t testing.TB) *Store {
	t.Helper()
	name := fmt.Sprintf("qd_%d_%s", tc.seq.Add(1), strings.ReplaceAll(uuid.NewString()[:8], "-", ""))

	admin, err := sql.Open("pgx", tc.DSN)
	if err != nil {
		t.Fatalf("testutil: open admin connection: %v", err)
	}
	defer func() { _ = admin.Close() }()
	if _, err := admin.Exec("CREATE DATABASE " + name); err != nil {
		t.Fatalf("testutil: create database: %v", err)
	}

	dsn := tc.dsn(name)
	w, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("testutil: open store: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	s := &Store{Driver: storage.DriverPgx, DSN: dsn, t: t, w: w}
	s.migrate()
	return s
}

// Terminate stops and removes the container.
func (tc *TestContainer) Terminate() {
	_ = tc.Container.Terminate(context.Background())
}
