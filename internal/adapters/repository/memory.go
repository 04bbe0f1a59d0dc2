package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/metrics"
)

// MemoryStore keeps entries in an append-only slice.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []model.PulseEntry
	byID    map[string]int
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{byID: make(map[string]int)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save appends an entry.
func (s *MemoryStore) Save(ctx context.Context, entry model.PulseEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(entry); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, dup := s.byID[entry.ID]; dup {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidEntry, entry.ID)
	}
	s.byID[entry.ID] = len(s.entries)
	s.entries = append(s.entries, cloneEntry(entry))
	metrics.UpdateStoredEntries(len(s.entries))
	return nil
}

// Get returns an entry by id.
func (s *MemoryStore) Get(_ context.Context, id string) (model.PulseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.PulseEntry{}, ErrClosed
	}
	i, ok := s.byID[id]
	if !ok {
		return model.PulseEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneEntry(s.entries[i]), nil
}

// ListByUser scans from the newest entry backwards.
func (s *MemoryStore) ListByUser(_ context.Context, userID string, limit int) ([]model.PulseEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]model.PulseEntry, 0, min(limit, len(s.entries)))
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if ownedBy(s.entries[i], userID) {
			out = append(out, cloneEntry(s.entries[i]))
		}
	}
	return out, nil
}

// Count returns the number of stored entries.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func validate(e model.PulseEntry) error {
	if strings.TrimSpace(e.GameID) == "" {
		return fmt.Errorf("%w: empty game id", ErrInvalidEntry)
	}
	return nil
}

func ownedBy(e model.PulseEntry, userID string) bool {
	if userID == "" {
		return e.UserID == nil
	}
	return e.UserID != nil && *e.UserID == userID
}

func cloneEntry(e model.PulseEntry) model.PulseEntry {
	if e.UserID != nil {
		u := *e.UserID
		e.UserID = &u
	}
	return e
}
