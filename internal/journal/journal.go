// Package journal keeps an audit trail of terminal outcomes in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muratoffalex/discordctl/internal/config"
	"github.com/muratoffalex/discordctl/internal/dispatch"
	"github.com/muratoffalex/discordctl/internal/logger"
	_ "modernc.org/sqlite"
)

const bufferSize = 256

// Entry is one stored outcome.
type Entry struct {
	InvocationID     string
	Tag              string
	Command          string
	Kind             string
	Message          string
	StatusCode       int
	SecondsRemaining int64
	Error            string
	Duration         time.Duration
	CreatedAt        time.Time
}

func entryFromOutcome(o dispatch.Outcome) Entry {
	e := Entry{
		InvocationID:     o.ID,
		Tag:              o.Tag,
		Command:          o.Command,
		Kind:             o.Kind.String(),
		Message:          o.Message,
		StatusCode:       o.StatusCode,
		SecondsRemaining: o.SecondsRemaining,
		Duration:         o.Duration,
		CreatedAt:        o.At.UTC(),
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return e
}

// Journal records outcomes asynchronously. Observe never blocks: when the
// writer falls behind, entries are dropped and counted.
type Journal struct {
	db     *sql.DB
	logger logger.Logger

	entries chan Entry
	done    chan struct{}
	once    sync.Once
	started atomic.Bool

	mu      sync.Mutex
	closed  bool
	dropped int64
}

func Open(cfg config.JournalConfig, log logger.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"DSN": cfg.DSN,
	}).Debug("Journal opened")

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{
		db:      db,
		logger:  log.WithField("component", "journal"),
		entries: make(chan Entry, bufferSize),
		done:    make(chan struct{}),
	}, nil
}

// Start runs the writer until Close. It is not tied to the process context
// so outcomes produced while the dispatcher drains still reach the database.
func (j *Journal) Start() {
	if !j.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(j.done)
		for e := range j.entries {
			j.write(e)
		}
	}()
}

func (j *Journal) flush() {
	for {
		select {
		case e, ok := <-j.entries:
			if !ok {
				return
			}
			j.write(e)
		default:
			return
		}
	}
}

func (j *Journal) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.Save(ctx, e); err != nil {
		j.logger.WithError(err).WithFields(logger.Fields{
			"invocation_id": e.InvocationID,
			"tag":           e.Tag,
		}).Error("Failed to save outcome")
	}
}

// Observe implements dispatch.Observer. Outcomes observed after Close are
// dropped.
func (j *Journal) Observe(o dispatch.Outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		j.dropped++
		j.logger.WithField("invocation_id", o.ID).Debug("Journal closed, outcome dropped")
		return
	}
	select {
	case j.entries <- entryFromOutcome(o):
	default:
		j.dropped++
		j.logger.WithField("invocation_id", o.ID).Warn("Journal buffer full, outcome dropped")
	}
}

func (j *Journal) Dropped() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}

func (j *Journal) Save(ctx context.Context, e Entry) error {
	_, err := j.execWithRetry(ctx, `
		INSERT OR IGNORE INTO outcomes
			(invocation_id, tag, command, kind, message, status_code, seconds_remaining, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.InvocationID, e.Tag, e.Command, e.Kind, e.Message, e.StatusCode, e.SecondsRemaining,
		e.Error, e.Duration.Milliseconds(), e.CreatedAt)
	return err
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT invocation_id, tag, command, kind, message, status_code, seconds_remaining, error, duration_ms, created_at
		FROM outcomes ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			durationMS int64
		)
		if err := rows.Scan(&e.InvocationID, &e.Tag, &e.Command, &e.Kind, &e.Message,
			&e.StatusCode, &e.SecondsRemaining, &e.Error, &durationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

// Purge deletes entries older than days. Zero or negative keeps everything.
func (j *Journal) Purge(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	res, err := j.execWithRetry(ctx, "DELETE FROM outcomes WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge outcomes: %w", err)
	}
	n, _ := res.RowsAffected()
	j.logger.WithFields(logger.Fields{
		"days":    days,
		"deleted": n,
	}).Debug("Purged old outcomes")
	return n, nil
}

// Close stops intake, writes what is buffered and closes the database.
func (j *Journal) Close() error {
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.entries)
		j.mu.Unlock()
	})
	if j.started.Load() {
		select {
		case <-j.done:
		case <-time.After(5 * time.Second):
			j.logger.Warn("Journal writer did not stop in time")
		}
	}
	// entries left when the writer never started
	j.flush()
	return j.db.Close()
}

func (j *Journal) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	var err error
	for i := range 3 {
		res, err = j.db.ExecContext(ctx, query, args...)
		if err == nil || !strings.Contains(err.Error(), "database is locked") {
			return res, err
		}
		j.logger.WithFields(logger.Fields{
			"attempt": i + 1,
			"error":   err.Error(),
		}).Warn("Database locked, retrying...")
		time.Sleep(100 * time.Millisecond * time.Duration(i+1))
	}
	return res, err
}
