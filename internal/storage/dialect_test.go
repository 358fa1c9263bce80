package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostgresRebind(t *testing.T) {
	got := postgresDialect{}.rebind(`SELECT a FROM t WHERE x = ? AND y IN (SELECT z FROM u WHERE w = ?)`)
	assert.Equal(t, `SELECT a FROM t WHERE x = $1 AND y IN (SELECT z FROM u WHERE w = $2)`, got)
}

func TestCutoffForms(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.FixedZone("X", 2*3600))
	assert.Equal(t, "2026-03-01 08:30:00", sqliteDialect{}.cutoff(at))
	assert.Equal(t, at.UTC(), postgresDialect{}.cutoff(at))
	assert.Equal(t, "datetime(qt.updated_at) >= datetime(?)", sqliteDialect{}.since("qt.updated_at"))
}

func TestNullTimeScan(t *testing.T) {
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, src := range []any{
		"2026-03-01 10:00:00",
		"2026-03-01T10:00:00",
		"2026-03-01T10:00:00Z",
		"2026-03-01T12:00:00+02:00",
		[]byte("2026-03-01 10:00:00.000"),
		want.In(time.FixedZone("Y", -3600)),
	} {
		var n nullTime
		if assert.NoError(t, n.Scan(src), "src %v", src) {
			assert.True(t, n.Valid)
			assert.True(t, want.Equal(n.Time), "src %v gave %v", src, n.Time)
		}
	}

	var n nullTime
	assert.NoError(t, n.Scan(nil))
	assert.Nil(t, n.ptr())
	assert.Error(t, n.Scan("yesterday"))
	assert.Error(t, n.Scan(42))
}
