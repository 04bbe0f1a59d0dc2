package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

const defaultMaxOpenConns = 4

// pulseEntryRow is the pulse_entries table. Seq keeps insertion order.
type pulseEntryRow struct {
	Seq         uint    `gorm:"primaryKey;autoIncrement"`
	ID          string  `gorm:"uniqueIndex:idx_pulse_entry_id;type:varchar(36);not null"`
	UserID      *string `gorm:"index:idx_pulse_user;type:varchar(128)"`
	GameID      string  `gorm:"index:idx_pulse_game;not null"`
	League      string
	Confidence  float64
	MatchReason string
	Timestamp   string
	CreatedAt   time.Time
}

func (pulseEntryRow) TableName() string { return "pulse_entries" }

func rowFromEntry(e model.PulseEntry) pulseEntryRow {
	return pulseEntryRow{
		ID:          e.ID,
		UserID:      e.UserID,
		GameID:      e.GameID,
		League:      e.League,
		Confidence:  e.RawMeta.Confidence,
		MatchReason: e.RawMeta.MatchReason,
		Timestamp:   e.RawMeta.Timestamp,
	}
}

func (r pulseEntryRow) entry() model.PulseEntry {
	return model.PulseEntry{
		ID:     r.ID,
		UserID: r.UserID,
		GameID: r.GameID,
		League: r.League,
		RawMeta: model.RawMeta{
			Confidence:  r.Confidence,
			MatchReason: r.MatchReason,
			Timestamp:   r.Timestamp,
		},
	}
}

// SQLiteStore persists entries with gorm on a pure-Go SQLite driver.
type SQLiteStore struct {
	db    *gorm.DB
	sqlDB *sql.DB
	log   logger.Logger

	maxOpenConns int
	sqlLogLevel  gormlogger.LogLevel

	// stored mirrors the row count for the gauge without querying per insert.
	stored atomic.Int64

	mu     sync.RWMutex
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and migrates the schema.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{maxOpenConns: defaultMaxOpenConns, sqlLogLevel: gormlogger.Warn}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("store.sqlite")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         newGormLog(s.log.Named("gorm"), s.sqlLogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(s.maxOpenConns)
	sqlDB.SetMaxIdleConns(s.maxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&pulseEntryRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	s.db, s.sqlDB = db, sqlDB
	s.stored.Store(int64(s.Count(context.Background())))
	metrics.UpdateStoredEntries(int(s.stored.Load()))
	s.log.Info(context.Background(), "sqlite store opened", logger.String("path", path))
	return s, nil
}

// Save inserts one row.
func (s *SQLiteStore) Save(ctx context.Context, entry model.PulseEntry) error {
	if err := validate(entry); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	row := rowFromEntry(entry)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidEntry, entry.ID)
		}
		return fmt.Errorf("saving pulse entry: %w", err)
	}
	metrics.UpdateStoredEntries(int(s.stored.Add(1)))
	return nil
}

// Get returns one entry by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.PulseEntry, error) {
	if err := s.checkOpen(); err != nil {
		return model.PulseEntry{}, err
	}
	var row pulseEntryRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PulseEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return model.PulseEntry{}, fmt.Errorf("querying pulse entry: %w", err)
	}
	return row.entry(), nil
}

// ListByUser returns the newest entries for a user.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.PulseEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&pulseEntryRow{})
	if userID == "" {
		q = q.Where("user_id IS NULL")
	} else {
		q = q.Where("user_id = ?", userID)
	}

	var rows []pulseEntryRow
	if err := q.Order("seq DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing pulse entries: %w", err)
	}
	out := make([]model.PulseEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}

// Count returns the number of rows, or 0 when the query fails.
func (s *SQLiteStore) Count(ctx context.Context) int {
	if s.checkOpen() != nil {
		return 0
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&pulseEntryRow{}).Count(&n).Error; err != nil {
		s.log.Warn(ctx, "counting pulse entries failed", logger.Error(err))
		return 0
	}
	return int(n)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sqlDB.Close()
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
