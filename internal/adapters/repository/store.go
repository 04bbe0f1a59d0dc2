// Package repository defines the pulse event store interface and its
// in-memory and SQLite implementations.
package repository

import (
	"context"

	"github.com/okian/pulse/internal/domain/model"
)

// Store persists PulseEntry audit records. It is append-only.
type Store interface {
	// Save appends an entry. An empty ID is filled with a new UUID.
	Save(ctx context.Context, entry model.PulseEntry) error

	// Get returns one entry by id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.PulseEntry, error)

	// ListByUser returns up to limit entries for a user, newest first.
	// An empty userID lists anonymous entries.
	ListByUser(ctx context.Context, userID string, limit int) ([]model.PulseEntry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) int

	// Close releases resources. Further calls return ErrClosed.
	Close() error
}
