package sqlite

import (
	"database/sql"
)

// Scanner is satisfied by both sql.Row and sql.Rows
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Rows is the subset of sql.Rows used when scanning result sets
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// ScanTransition scans a single transition row
func ScanTransition(scanner Scanner) (*Transition, error) {
	t := &Transition{}
	var entryID sql.NullInt64
	var at string

	err := scanner.Scan(
		&t.ID,
		&t.SessionID,
		&t.State,
		&t.Branch,
		&t.Description,
		&entryID,
		&t.Reason,
		&at,
	)
	if err != nil {
		return nil, err
	}

	if entryID.Valid {
		id := entryID.Int64
		t.EntryID = &id
	}
	if t.At, err = ParseTimeFromDB(at); err != nil {
		return nil, err
	}
	return t, nil
}

// ScanTransitions scans every row of a result set
func ScanTransitions(rows Rows) ([]*Transition, error) {
	var out []*Transition
	for rows.Next() {
		t, err := ScanTransition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
