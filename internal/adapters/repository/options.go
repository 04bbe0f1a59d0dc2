package repository

import (
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

// SQLiteOption applies a configuration option to the SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithMaxOpenConns bounds the connection pool.
func WithMaxOpenConns(n int) SQLiteOption {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithSQLiteLogger sets the logger.
func WithSQLiteLogger(l logger.Logger) SQLiteOption {
	return func(s *SQLiteStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSQLLogLevel sets how much of gorm's own output reaches the logger.
// Defaults to warnings (failed and slow statements).
func WithSQLLogLevel(level gormlogger.LogLevel) SQLiteOption {
	return func(s *SQLiteStore) {
		s.sqlLogLevel = level
	}
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithInitialCapacity preallocates room for n entries.
func WithInitialCapacity(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.entries = make([]model.PulseEntry, 0, n)
		}
	}
}
