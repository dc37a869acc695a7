// Package dedup persists the set of Gmail message IDs that have already
// been processed, so restarting the agent never handles a message twice.
package dedup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store is a JSON-file-backed set of processed message IDs.
// All methods are safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
	seen map[string]time.Time
}

// NewStore opens the store at path, loading any existing entries.
// A missing file yields an empty store.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		seen: make(map[string]time.Time),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read dedup store: %w", err)
	}

	if err := json.Unmarshal(data, &s.seen); err != nil {
		return nil, fmt.Errorf("failed to parse dedup store %s: %w", path, err)
	}

	return s, nil
}

// Seen reports whether the message ID has already been processed.
func (s *Store) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// MarkProcessed records the message ID and persists the store.
func (s *Store) MarkProcessed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return nil
	}
	s.seen[id] = time.Now().UTC()
	return s.flushLocked()
}

// Count returns the number of processed message IDs.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Prune drops entries older than the cutoff and persists the store.
// It returns the number of entries removed.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, at := range s.seen {
		if at.Before(cutoff) {
			delete(s.seen, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.flushLocked()
}

// flushLocked writes the store to disk. Callers must hold mu.
func (s *Store) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(s.seen, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dedup store: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write dedup store: %w", err)
	}

	return nil
}
