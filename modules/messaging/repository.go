package messaging

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a message does not exist.
var ErrNotFound = errors.New("message not found")

// Repository persists direct and group chat messages.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a messaging repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateDirect saves a new direct message.
func (r *Repository) CreateDirect(msg *DirectMessage) error {
	if err := r.db.Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create direct message: %w", err)
	}
	return nil
}

// FindDirectByID retrieves a direct message.
func (r *Repository) FindDirectByID(id string) (*DirectMessage, error) {
	var msg DirectMessage
	if err := r.db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find direct message: %w", err)
	}
	return &msg, nil
}

// Conversation returns up to limit messages between two users created
// before the cursor, newest first. Callers reverse for display order.
func (r *Repository) Conversation(userID, peerID string, limit int, before time.Time) ([]*DirectMessage, error) {
	query := r.db.
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, peerID, peerID, userID).
		Order("created_at DESC").
		Limit(limit)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var msgs []*DirectMessage
	if err := query.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return msgs, nil
}

// MarkDirectRead flips the read flag on one message.
func (r *Repository) MarkDirectRead(id string) error {
	result := r.db.Model(&DirectMessage{}).Where("id = ?", id).Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark message read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkConversationRead flips the read flag on every unread message the
// peer sent to the user. Returns the number of rows updated.
func (r *Repository) MarkConversationRead(userID, peerID string) (int64, error) {
	result := r.db.Model(&DirectMessage{}).
		Where("recipient_id = ? AND sender_id = ? AND is_read = ?", userID, peerID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UnreadCount counts unread messages addressed to the user. Recomputed per
// request; correct but O(rows), which is the accepted tradeoff at this
// scale.
func (r *Repository) UnreadCount(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&DirectMessage{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// DeleteDirect removes a direct message.
func (r *Repository) DeleteDirect(id string) error {
	result := r.db.Delete(&DirectMessage{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete direct message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateChat saves a new group chat message.
func (r *Repository) CreateChat(msg *ChatMessage) error {
	if err := r.db.Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

// FindChatByID retrieves a group chat message.
func (r *Repository) FindChatByID(id string) (*ChatMessage, error) {
	var msg ChatMessage
	if err := r.db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find chat message: %w", err)
	}
	return &msg, nil
}

// ChatHistory returns the most recent limit group messages, newest first.
func (r *Repository) ChatHistory(limit int) ([]*ChatMessage, error) {
	var msgs []*ChatMessage
	err := r.db.Order("created_at DESC").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	return msgs, nil
}

// FindChatByIDs retrieves the group chat messages with the given ids.
// Missing ids are skipped, not an error.
func (r *Repository) FindChatByIDs(ids []string) ([]*ChatMessage, error) {
	var msgs []*ChatMessage
	if err := r.db.Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to find chat messages: %w", err)
	}
	return msgs, nil
}

// UpdateChatSeenBy persists a message's seen-by set.
func (r *Repository) UpdateChatSeenBy(msg *ChatMessage) error {
	result := r.db.Model(&ChatMessage{}).Where("id = ?", msg.ID).Update("seen_by", msg.SeenBy)
	if result.Error != nil {
		return fmt.Errorf("failed to update seen_by: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChat removes a group chat message.
func (r *Repository) DeleteChat(id string) error {
	result := r.db.Delete(&ChatMessage{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete chat message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
