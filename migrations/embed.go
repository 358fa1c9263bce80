// Package migrations embeds a fixture copy of the orchestration store schema,
// one file set per backend. The orchestrator owns the real schema; tests use
// these files to build stores to read from.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

// FS holds sqlite/*.sql and postgres/*.sql.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Statements returns the schema for a backend ("sqlite" or "pgx") as
// individual statements in file order.
func Statements(driver string) ([]string, error) {
	dir := "sqlite"
	if driver == "pgx" {
		dir = "postgres"
	}
	names, err := fs.Glob(FS, dir+"/*.sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: list %s: %w", dir, err)
	}
	sort.Strings(names)

	var stmts []string
	for _, name := range names {
		raw, err := fs.ReadFile(FS, name)
		if err != nil {
			return nil, fmt.Errorf("migrations: read %s: %w", name, err)
		}
		stmts = append(stmts, split(string(raw))...)
	}
	return stmts, nil
}
