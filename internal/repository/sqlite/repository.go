// Package sqlite stores the transition journal: an append-only audit trail
// of every status the engine published. The engine never reads it back.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"branch-tracker/internal/errors"
	"branch-tracker/internal/repository/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// DefaultRecentLimit caps Recent when the caller passes no limit.
const DefaultRecentLimit = 20

// Journal records and lists transitions
type Journal interface {
	Append(ctx context.Context, t *Transition) error
	Recent(ctx context.Context, limit int) ([]*Transition, error)
	ForSession(ctx context.Context, sessionID string) ([]*Transition, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// SQLiteJournal implements Journal on a single SQLite file
type SQLiteJournal struct {
	db *sql.DB
}

// New opens (creating if needed) the journal at dbPath and brings its schema
// up to date. ":memory:" gives a private in-memory journal.
func New(ctx context.Context, dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.NewStorageError("open journal", err)
	}
	// One connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := migrations.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, errors.NewStorageError("run migrations", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// Close closes the database connection
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Append stores t and sets its ID
func (j *SQLiteJournal) Append(ctx context.Context, t *Transition) error {
	if t.SessionID == "" {
		return errors.NewInvalidInputError("session_id", t.SessionID, "must not be empty")
	}
	if t.At.IsZero() {
		t.At = time.Now()
	}

	query := `
	INSERT INTO transitions (session_id, state, branch, description, entry_id, reason, at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	id, err := ExecuteWithLastInsertID(ctx, j.db, query,
		t.SessionID, t.State, t.Branch, t.Description, NullableInt64(t.EntryID), t.Reason, FormatTimeForDB(t.At))
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// Recent returns the latest transitions, newest first
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]*Transition, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	query := `
	SELECT id, session_id, state, branch, description, entry_id, reason, at
	FROM transitions
	ORDER BY id DESC
	LIMIT ?`

	return QueryMultiple(ctx, j.db, query, ScanTransitions, "transitions", limit)
}

// ForSession returns every transition of one watch session, oldest first
func (j *SQLiteJournal) ForSession(ctx context.Context, sessionID string) ([]*Transition, error) {
	query := `
	SELECT id, session_id, state, branch, description, entry_id, reason, at
	FROM transitions
	WHERE session_id = ?
	ORDER BY id ASC`

	return QueryMultiple(ctx, j.db, query, ScanTransitions, "transitions", sessionID)
}

// Prune deletes transitions recorded before the cutoff
func (j *SQLiteJournal) Prune(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM transitions WHERE at < ?`
	return ExecuteWithRowsAffected(ctx, j.db, query, FormatTimeForDB(before))
}
