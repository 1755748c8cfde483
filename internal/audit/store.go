// Package audit keeps a local record of guarded deletions.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type Outcome string

const (
	OutcomeDeleted   Outcome = "deleted"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

var ErrInvalidEntry = errors.New("invalid audit entry")

// Entry is one deletion attempt that reached the confirmation prompt.
type Entry struct {
	ID         string    `db:"id"`
	Mailbox    string    `db:"mailbox"`
	Expression string    `db:"expression"`
	Candidates int       `db:"candidates"`
	Deleted    int       `db:"deleted"`
	Outcome    Outcome   `db:"outcome"`
	Error      string    `db:"error"`
	CreatedAt  time.Time `db:"created_at"`
}

// Store is a SQLite backed audit log.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// Record appends entry. ID and CreatedAt are filled in when empty.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	switch entry.Outcome {
	case OutcomeDeleted, OutcomeCancelled, OutcomeFailed:
	default:
		return fmt.Errorf("%w: outcome %q", ErrInvalidEntry, entry.Outcome)
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO deletions (
			id, mailbox, expression, candidates, deleted, outcome, error, created_at
		) VALUES (
			:id, :mailbox, :expression, :candidates, :deleted, :outcome, :error, :created_at
		)`, entry)
	if err != nil {
		return fmt.Errorf("recording deletion %s: %w", entry.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, mailbox, expression, candidates, deleted, outcome, error, created_at
		FROM deletions
		ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	entries := []Entry{}
	if err := s.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("querying deletions: %w", err)
	}
	return entries, nil
}
