// Package history keeps a local SQLite journal of what the notification
// surface showed and what happened to each entry.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an event does not exist.
var ErrNotFound = errors.New("history event not found")

// EventKind is what happened to an entry.
type EventKind string

const (
	EventShown   EventKind = "shown"
	EventRead    EventKind = "read"
	EventClosed  EventKind = "closed"
	EventExpired EventKind = "expired"
	EventClicked EventKind = "clicked"
)

var validKinds = map[EventKind]bool{
	EventShown:   true,
	EventRead:    true,
	EventClosed:  true,
	EventExpired: true,
	EventClicked: true,
}

// ParseEventKind validates a kind given on the command line.
func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(strings.ToLower(strings.TrimSpace(s)))
	if !validKinds[k] {
		return "", fmt.Errorf("invalid event %q", s)
	}
	return k, nil
}

// Event is one journal row.
type Event struct {
	ID             int64     `db:"id"`
	EntryKey       string    `db:"entry_key"`
	NotificationID int64     `db:"notification_id"`
	UserID         int64     `db:"user_id"`
	Kind           EventKind `db:"event"`
	Type           string    `db:"type"`
	Sender         string    `db:"sender"`
	Preview        string    `db:"preview"`
	Temporary      bool      `db:"temporary"`
	Destination    string    `db:"destination"`
	CreatedAt      time.Time `db:"created_at"`
}

// Filter narrows List.
type Filter struct {
	Kind   EventKind
	UserID int64
	Limit  int
}

// Store is the SQLite journal.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the journal at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("history: db path cannot be empty")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("history: create db directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	// One connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: running migrations: %w", err)
	}
	return s, nil
}

// DefaultPath returns the journal location under stateDir.
func DefaultPath(stateDir string) string {
	return filepath.Join(stateDir, "history.db")
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		tx, err := s.db.Beginx()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Record appends e and returns its id. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Event) (int64, error) {
	if !validKinds[e.Kind] {
		return 0, fmt.Errorf("history: invalid event %q", e.Kind)
	}
	if e.EntryKey == "" {
		return 0, fmt.Errorf("history: entry key cannot be empty")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	res, err := s.db.NamedExecContext(ctx, `
INSERT INTO notification_events
	(entry_key, notification_id, user_id, event, type, sender, preview, temporary, destination, created_at)
VALUES
	(:entry_key, :notification_id, :user_id, :event, :type, :sender, :preview, :temporary, :destination, :created_at)`, e)
	if err != nil {
		return 0, fmt.Errorf("history: inserting event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: reading event id: %w", err)
	}
	return id, nil
}

// Get returns one event by id.
func (s *Store) Get(ctx context.Context, id int64) (Event, error) {
	var e Event
	err := s.db.GetContext(ctx, &e, "SELECT * FROM notification_events WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, fmt.Errorf("history: getting event %d: %w", id, err)
	}
	return e, nil
}

// List returns events newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "event = ?")
		args = append(args, string(f.Kind))
	}
	if f.UserID > 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}

	query := "SELECT * FROM notification_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	events := []Event{}
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("history: listing events: %w", err)
	}
	return events, nil
}

// Prune deletes events older than before and reports how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notification_events WHERE created_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("history: pruning events: %w", err)
	}
	return res.RowsAffected()
}
