package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the settlement record store backed by an embedded database.
type Store struct {
	db *gorm.DB
}

// Open opens the database at the given path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open settlement database: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate settlement schema: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already opened gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save upserts the record. Calling Save twice with the same id overwrites the
// stored row; callers that need first-writer-wins semantics use
// CreateIfAbsent instead.
func (s *Store) Save(ctx context.Context, rec *Settlement) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
}

// CreateIfAbsent inserts the record only when no row with its id exists yet.
// It returns the row now present in the store and whether this call inserted
// it. The insert uses an ON CONFLICT DO NOTHING clause so that two concurrent
// calls for the same id cannot both observe "absent": exactly one inserts,
// the other reads the winner's row.
func (s *Store) CreateIfAbsent(ctx context.Context, rec *Settlement) (*Settlement, bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(rec)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return rec, true, nil
	}
	existing, err := s.Get(ctx, rec.ID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("settlement %s vanished during insert", rec.ID)
	}
	return existing, false, nil
}

// Get returns the record with the given id, or nil when none exists.
func (s *Store) Get(ctx context.Context, id string) (*Settlement, error) {
	var rec Settlement
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateStatus moves the record to the given status, recording the final
// transaction hash when one is known.
func (s *Store) UpdateStatus(ctx context.Context, id string, status SettlementStatus, txHash string) error {
	updates := map[string]any{"status": status}
	if txHash != "" {
		updates["tx_hash"] = txHash
	}
	result := s.db.WithContext(ctx).Model(&Settlement{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("settlement %s not found", id)
	}
	return nil
}

// ReopenFailed moves a failed record back to pending for a retry. The update
// is conditional on the record still being failed, so of several concurrent
// retries exactly one reopens it; the others see false.
func (s *Store) ReopenFailed(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&Settlement{}).
		Where("id = ? AND status = ?", id, StatusFailed).
		Update("status", StatusPending)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteExpired purges records whose validity window has elapsed. Records
// without an expiry are kept. Returns the number of purged rows.
func (s *Store) DeleteExpired(ctx context.Context, nowEpoch int64) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("valid_before > 0 AND valid_before < ?", nowEpoch).
		Delete(&Settlement{})
	return result.RowsAffected, result.Error
}

// GetUnread returns completed settlements that no consumer has read yet.
func (s *Store) GetUnread(ctx context.Context) ([]Settlement, error) {
	var recs []Settlement
	err := s.db.WithContext(ctx).
		Where("status = ? AND read = ?", StatusCompleted, false).
		Order("created_at").
		Find(&recs).Error
	return recs, err
}

// MarkAsRead flips the read flag on the given records.
func (s *Store) MarkAsRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&Settlement{}).
		Where("id IN ?", ids).
		Update("read", true).Error
}
