package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chronoutil/pkg/chrono"
)

// ErrNotFound is returned when no journal row matches.
var ErrNotFound = errors.New("sqlite: instant not found")

const selectEntry = `SELECT id, label, ticks, recorded_ticks FROM instants`

// Get returns the entry with the given ID.
func (j *Journal) Get(ctx context.Context, id int64) (Entry, error) {
	return j.queryOne(ctx, selectEntry+` WHERE id = ?`, id)
}

// Latest returns the entry with the greatest instant for label.
func (j *Journal) Latest(ctx context.Context, label string) (Entry, error) {
	return j.queryOne(ctx, selectEntry+` WHERE label = ? ORDER BY ticks DESC, id DESC LIMIT 1`, label)
}

// Range returns entries with from <= At < to, ordered by instant.
// An empty label matches every label.
func (j *Journal) Range(ctx context.Context, label string, from, to chrono.DateTime) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, selectEntry+`
		WHERE ticks >= ? AND ticks < ? AND (? = '' OR label = ?)
		ORDER BY ticks ASC, id ASC
	`, from, to, label, label)
	if err != nil {
		return nil, fmt.Errorf("sqlite query instants: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Label, &e.At, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("sqlite scan instants: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of journaled entries.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite count instants: %w", err)
	}
	return n, nil
}

func (j *Journal) queryOne(ctx context.Context, query string, args ...any) (Entry, error) {
	var e Entry
	err := j.db.QueryRowContext(ctx, query, args...).Scan(&e.ID, &e.Label, &e.At, &e.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("sqlite read instant: %w", err)
	}
	return e, nil
}
