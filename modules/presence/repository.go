package presence

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when no presence record exists for a user.
var ErrNotFound = errors.New("presence record not found")

// Repository persists presence records.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a presence repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes a presence record, replacing any existing row for the user.
func (r *Repository) Upsert(record *PresenceRecord) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert presence record: %w", err)
	}
	return nil
}

// FindByUser retrieves the presence record for a user.
func (r *Repository) FindByUser(userID string) (*PresenceRecord, error) {
	var record PresenceRecord
	if err := r.db.First(&record, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find presence record: %w", err)
	}
	return &record, nil
}

// ListOnline retrieves every user currently flagged online.
func (r *Repository) ListOnline() ([]*PresenceRecord, error) {
	var records []*PresenceRecord
	if err := r.db.Where("is_online = ?", true).Order("last_active DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list online users: %w", err)
	}
	return records, nil
}
