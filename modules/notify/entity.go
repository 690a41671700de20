package notify

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is a durable per-user notification. Kind and payload are
// opaque to this module; producers define their own shapes and clients
// interpret them.
type Notification struct {
	ID          string         `gorm:"primarykey;size:36" json:"id"`
	RecipientID string         `gorm:"size:36;index;not null" json:"recipient_id"`
	SenderID    string         `gorm:"size:36" json:"sender_id,omitempty"`
	Kind        string         `gorm:"size:64;index;not null" json:"kind"`
	Payload     datatypes.JSON `json:"payload,omitempty"`
	IsRead      bool           `gorm:"not null;default:false" json:"is_read"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

// TableName returns the table name for Notification.
func (Notification) TableName() string {
	return "notifications"
}
