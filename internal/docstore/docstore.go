package docstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNoDocument is returned when no document exists under the given key.
	ErrNoDocument = errors.New("no document for key")
)

// Store is a string-keyed JSON document store backed by SQLite. Each logical
// collection lives under a single key and is rewritten in full on every
// mutation; a write timestamp per key supports freshness checks.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) a document store at path.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}

	// A single connection serializes writes and keeps ":memory:" databases
	// from splitting across pool connections.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			written_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put replaces the document under key with value, stamped with the current
// time. The write is a whole-document replacement.
func (s *Store) Put(key string, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (key, value, written_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, written_at = excluded.written_at
	`, key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing document %q: %w", key, err)
	}
	return nil
}

// Get returns the document under key and its write timestamp.
func (s *Store) Get(key string) ([]byte, time.Time, error) {
	var value string
	var writtenAt time.Time

	err := s.db.QueryRow(
		`SELECT value, written_at FROM documents WHERE key = ?`, key,
	).Scan(&value, &writtenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoDocument
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading document %q: %w", key, err)
	}

	return []byte(value), writtenAt.UTC(), nil
}

// Delete removes the document under key. Deleting a missing key is not an
// error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting document %q: %w", key, err)
	}
	return nil
}

// Quarantine moves a document that failed to decode to a backup key
// (key + ":corrupt") so it is preserved for inspection instead of being
// silently lost. Any prior backup under that key is replaced.
func (s *Store) Quarantine(key string) error {
	value, writtenAt, err := s.Get(key)
	if err != nil {
		return err
	}

	backup := key + ":corrupt"
	_, err = s.db.Exec(`
		INSERT INTO documents (key, value, written_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, written_at = excluded.written_at
	`, backup, string(value), writtenAt)
	if err != nil {
		return fmt.Errorf("backing up document %q: %w", key, err)
	}

	return s.Delete(key)
}
