package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const retryDelay = 25 * time.Millisecond

type rowScanner interface {
	Scan(dest ...any) error
}

// rowErr maps the error of a single-row lookup: no row is ErrNotFound.
func rowErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return classify(err)
}

// collect scans every row. Rows that fail validation are skipped with a
// warning so one bad row does not blank a whole section.
func collect[T any](db *DB, rows *sql.Rows, entity string, scan func(rowScanner) (T, error), validate func(T) error) ([]T, error) {
	defer func() { _ = rows.Close() }()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", ErrQueryFailure, entity, err)
		}
		if err := validate(v); err != nil {
			db.logger.Warn("storage: skipping invalid row", "entity", entity, "error", err)
			continue
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}
