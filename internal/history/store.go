// Package history records every command sent to the kernel in a local
// SQLite database: polls, bootstraps, widget renders and ad-hoc executes,
// with their outcome and latency. It backs the history command and gives
// failed sessions an audit trail.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one recorded kernel command.
type Entry struct {
	ID         string
	Kind       string
	Code       string
	Status     string
	ElapsedMS  int64
	RecordedAt time.Time
}

// Store implements the poller and loader Recorder interface on SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the history database and initializes its schema.
// Use ":memory:" for an in-memory database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one command entry. Recording is best effort: failures are
// logged, never propagated, so a broken history file cannot take the panel
// down with it.
func (s *Store) Record(ctx context.Context, kind, code, status string, elapsed time.Duration) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commands (id, kind, code, status, elapsed_ms, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), kind, code, status, elapsed.Milliseconds(), time.Now().UTC(),
	)
	if err != nil {
		s.logger.Warn("history entry not recorded", "kind", kind, "error", err)
	}
}

// Recent returns the newest entries, most recent first. kind filters to one
// command kind; empty means all.
func (s *Store) Recent(ctx context.Context, kind string, limit int) ([]Entry, error) {
	query := `SELECT id, kind, code, status, elapsed_ms, recorded_at FROM commands`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY recorded_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Code, &e.Status, &e.ElapsedMS, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Prune deletes entries older than the cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM commands WHERE recorded_at < ?`,
		time.Now().UTC().Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
