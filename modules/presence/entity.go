package presence

import "time"

// PresenceRecord is the durable per-user presence row. It is mutated only
// on online/offline transitions so REST reads reflect the live registry.
type PresenceRecord struct {
	UserID     string    `gorm:"primarykey;size:36" json:"user_id"`
	IsOnline   bool      `gorm:"not null;default:false" json:"is_online"`
	LastActive time.Time `gorm:"index" json:"last_active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the table name for PresenceRecord.
func (PresenceRecord) TableName() string {
	return "presence_records"
}
