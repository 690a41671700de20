package presence

import "time"

// GetPresenceRequest asks for one user's presence.
type GetPresenceRequest struct {
	UserID string `json:"user_id"`
}

// GetPresenceResponse carries the durable presence state. A user with no
// record has simply never been online; that is a valid answer, not an
// error.
type GetPresenceResponse struct {
	UserID     string    `json:"user_id"`
	IsOnline   bool      `json:"is_online"`
	LastActive time.Time `json:"last_active"`
}

// ListOnlineRequest asks for every online user.
type ListOnlineRequest struct{}

// ListOnlineResponse lists the users currently online.
type ListOnlineResponse struct {
	Users []GetPresenceResponse `json:"users"`
	Total int                   `json:"total"`
}
