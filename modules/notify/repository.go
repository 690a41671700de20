package notify

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a notification does not exist.
var ErrNotFound = errors.New("notification not found")

// Repository handles notification persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new notification repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create saves a new notification.
func (r *Repository) Create(n *Notification) error {
	if err := r.db.Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// FindByID retrieves a notification by id.
func (r *Repository) FindByID(id string) (*Notification, error) {
	var n Notification
	if err := r.db.First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return &n, nil
}

// ListByRecipient returns the recipient's notifications, newest first.
// When unreadOnly is set, read notifications are filtered out.
func (r *Repository) ListByRecipient(recipientID string, limit int, unreadOnly bool) ([]*Notification, error) {
	query := r.db.
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var ns []*Notification
	if err := query.Find(&ns).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return ns, nil
}

// MarkRead flips the read flag on one notification.
func (r *Repository) MarkRead(id string) error {
	result := r.db.Model(&Notification{}).Where("id = ?", id).Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flips the read flag on every unread notification for the
// recipient. Returns the number of rows updated.
func (r *Repository) MarkAllRead(recipientID string) (int64, error) {
	result := r.db.Model(&Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UnreadCount returns the number of unread notifications for the recipient.
func (r *Repository) UnreadCount(recipientID string) (int64, error) {
	var count int64
	err := r.db.Model(&Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
