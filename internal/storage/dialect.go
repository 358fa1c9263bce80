package storage

import (
	"strconv"
	"strings"
	"time"
)

// sqliteTimeLayout is the text form the orchestrator writes with
// CURRENT_TIMESTAMP.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// dialect captures the few places SQLite and Postgres disagree.
type dialect interface {
	name() string
	rebind(q string) string
	// since returns a predicate that is true when col is at or after the
	// cutoff bound to the next placeholder.
	since(col string) string
	// cutoff converts a cutoff instant to the bind value since expects.
	cutoff(t time.Time) any
}

type sqliteDialect struct{}

func (sqliteDialect) name() string           { return DriverSQLite }
func (sqliteDialect) rebind(q string) string { return q }

// datetime() normalizes both sides, so ISO-8601 values with a T separator or
// a Z suffix compare correctly against the space-separated form.
func (sqliteDialect) since(col string) string {
	return "datetime(" + col + ") >= datetime(?)"
}

func (sqliteDialect) cutoff(t time.Time) any {
	return t.UTC().Format(sqliteTimeLayout)
}

type postgresDialect struct{}

func (postgresDialect) name() string { return DriverPgx }

func (postgresDialect) rebind(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (postgresDialect) since(col string) string { return col + " >= ?" }
func (postgresDialect) cutoff(t time.Time) any  { return t.UTC() }
