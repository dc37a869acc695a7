// Package reminder persists lightweight follow-up reminders created by the
// create_reminder tool.
package reminder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reminder is a single follow-up created from an email.
type Reminder struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id,omitempty"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	Due       time.Time `json:"due"`
	CreatedAt time.Time `json:"created_at"`
	Done      bool      `json:"done"`
}

// Store is a JSON-file-backed reminder list. All methods are safe for
// concurrent use.
type Store struct {
	mu        sync.Mutex
	path      string
	reminders []Reminder
}

// NewStore opens the store at path, loading any existing reminders.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read reminder store: %w", err)
	}

	if err := json.Unmarshal(data, &s.reminders); err != nil {
		return nil, fmt.Errorf("failed to parse reminder store %s: %w", path, err)
	}

	return s, nil
}

// Add stores the reminder and persists. A missing ID or CreatedAt is filled
// in. The stored reminder is returned.
func (s *Store) Add(r Reminder) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	s.reminders = append(s.reminders, r)
	if err := s.flushLocked(); err != nil {
		return Reminder{}, err
	}
	return r, nil
}

// List returns all reminders ordered by due time.
func (s *Store) List() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Reminder, len(s.reminders))
	copy(out, s.reminders)
	sort.Slice(out, func(i, j int) bool { return out[i].Due.Before(out[j].Due) })
	return out
}

// Pending returns reminders that are not done and due at or before now,
// ordered by due time.
func (s *Store) Pending(now time.Time) []Reminder {
	var out []Reminder
	for _, r := range s.List() {
		if !r.Done && !r.Due.After(now) {
			out = append(out, r)
		}
	}
	return out
}

// MarkDone marks the reminder with the given ID as done and persists.
func (s *Store) MarkDone(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.reminders {
		if s.reminders[i].ID == id {
			if s.reminders[i].Done {
				return nil
			}
			s.reminders[i].Done = true
			return s.flushLocked()
		}
	}
	return fmt.Errorf("reminder %s not found", id)
}

func (s *Store) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(s.reminders, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal reminder store: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write reminder store: %w", err)
	}

	return nil
}
