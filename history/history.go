// Package history persists recent dictations so users can recover text
// that was injected into the wrong window or lost to a crashed app.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// retention is how long entries are kept before badger expires them.
const retention = 30 * 24 * time.Hour

// Entry is one completed dictation.
type Entry struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Language  string        `json:"language,omitempty"`
	Backend   string        `json:"backend"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Store keeps dictation entries in a badger database.
type Store struct {
	db *badger.DB
}

// Open opens or creates the history database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Add records a dictation. The entry ID is assigned here.
func (s *Store) Add(e Entry) (Entry, error) {
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key(e.CreatedAt, e.ID), data).WithTTL(retention)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("store entry: %w", err)
	}
	return e, nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts past the last key.
		for it.Seek([]byte("\xff")); it.Valid() && len(out) < n; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("unmarshal entry: %w", err)
				}
				out = append(out, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// key orders entries chronologically. The ID suffix keeps entries created
// in the same nanosecond distinct.
func key(at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d:%s", at.UnixNano(), id))
}
