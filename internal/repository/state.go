package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerKey is the state key holding the conversation → last message id map.
const LedgerKey = "lastMessagePerChat"

// StateEntry is one durable key/value row.
type StateEntry struct {
	Key       string    `gorm:"column:state_key;type:varchar(128);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (StateEntry) TableName() string { return "observer_state" }

// StateRepository handles observer_state table operations
type StateRepository struct {
	db *gorm.DB
}

// NewStateRepository creates a new state repository
func NewStateRepository(db *gorm.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Migrate creates the observer_state table if needed
func (r *StateRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&StateEntry{}); err != nil {
		return fmt.Errorf("migrate observer_state: %w", err)
	}
	return nil
}

// Get returns the value stored under key; ok is false when the key is absent
func (r *StateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry StateEntry
	err := r.db.WithContext(ctx).Where("state_key = ?", key).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get state %s: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set upserts value under key, overwriting any previous value
func (r *StateRepository) Set(ctx context.Context, key, value string) error {
	entry := StateEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (r *StateRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("state_key = ?", key).Delete(&StateEntry{}).Error; err != nil {
		return fmt.Errorf("delete state %s: %w", key, err)
	}
	return nil
}
