package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"

	"chronoutil/pkg/chrono"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// Config configures the instant journal.
type Config struct {
	Path string // path to SQLite database file, e.g. "data/instants.db"

	// CommitDur observes insert latency when set.
	CommitDur prometheus.Observer
}

// Entry is one journaled instant.
type Entry struct {
	ID         int64           `json:"id"`
	Label      string          `json:"label"`
	At         chrono.DateTime `json:"at"`
	RecordedAt chrono.DateTime `json:"recorded_at"`
}

// Journal stores labelled instants as raw tick counts.
type Journal struct {
	db        *sql.DB
	commitDur prometheus.Observer
}

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Open opens the database with WAL mode and creates the schema.
func Open(cfg Config) (*Journal, error) {
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened journal at %s", cfg.Path)
	return &Journal{db: db, commitDur: cfg.CommitDur}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS instants (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			label          TEXT    NOT NULL,
			ticks          INTEGER NOT NULL,
			recorded_ticks INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_instants_label_ticks ON instants (label, ticks);
		CREATE INDEX IF NOT EXISTS idx_instants_ticks ON instants (ticks);
	`)
	return err
}

// Record stores one instant and returns it with its assigned ID.
func (j *Journal) Record(ctx context.Context, label string, at, recordedAt chrono.DateTime) (Entry, error) {
	start := time.Now()
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO instants (label, ticks, recorded_ticks) VALUES (?, ?, ?)`,
		label, at, recordedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("sqlite insert instant: %w", err)
	}
	j.observe(start)
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("sqlite insert id: %w", err)
	}
	return Entry{ID: id, Label: label, At: at, RecordedAt: recordedAt}, nil
}

// Run reads entries from entryCh and inserts them in batched transactions.
// Flushes every batchSize entries OR every flushDelay, whichever first.
// Blocks until ctx is cancelled or entryCh is closed.
func (j *Journal) Run(ctx context.Context, entryCh <-chan Entry) {
	batch := make([]Entry, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := j.insertBatch(batch); err != nil {
			log.Printf("[sqlite] batch insert error: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case e, ok := <-entryCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, e)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// insertBatch inserts a batch of entries in a single transaction.
func (j *Journal) insertBatch(entries []Entry) error {
	start := time.Now()
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO instants (label, ticks, recorded_ticks) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Label, e.At, e.RecordedAt); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	j.observe(start)
	return nil
}

func (j *Journal) observe(start time.Time) {
	if j.commitDur != nil {
		j.commitDur.Observe(time.Since(start).Seconds())
	}
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
