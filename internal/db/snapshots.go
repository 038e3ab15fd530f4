package db

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNoSnapshot is returned when a scope has never been saved
var ErrNoSnapshot = errors.New("no snapshot")

// Snapshot is the last good payload saved for a scope
type Snapshot struct {
	Scope   string
	Data    []byte
	SavedAt time.Time
}

// SaveSnapshot replaces the payload for scope
func (db *DB) SaveSnapshot(scope string, data []byte) error {
	_, err := db.Exec(`
		INSERT INTO snapshots (scope, data, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(scope) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at
	`, scope, data, time.Now().UTC())
	return err
}

// GetSnapshot retrieves the payload for scope
func (db *DB) GetSnapshot(scope string) (*Snapshot, error) {
	s := &Snapshot{}
	err := db.QueryRow(`
		SELECT scope, data, saved_at FROM snapshots WHERE scope = ?
	`, scope).Scan(&s.Scope, &s.Data, &s.SavedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSnapshots returns saved scopes without payloads, newest first
func (db *DB) ListSnapshots() ([]Snapshot, error) {
	rows, err := db.Query(`
		SELECT scope, saved_at FROM snapshots ORDER BY saved_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.Scope, &s.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes a scope
func (db *DB) DeleteSnapshot(scope string) error {
	_, err := db.Exec("DELETE FROM snapshots WHERE scope = ?", scope)
	return err
}
