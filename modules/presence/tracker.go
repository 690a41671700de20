package presence

import "sync"

// Tracker is the live view of who is online. It refcounts authenticated
// connections per user so that a second device going away does not mark a
// user offline while the first is still connected. A user is online while
// the count is positive; the durable record is only touched on the
// offline→online and online→offline edges.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]int)}
}

// Bind records one more authenticated connection for the user and reports
// whether this was the offline→online transition.
func (t *Tracker) Bind(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessions[userID]++
	return t.sessions[userID] == 1
}

// Release records one fewer authenticated connection and reports whether
// this was the online→offline transition. Releasing an unbound user is a
// no-op.
func (t *Tracker) Release(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.sessions[userID]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(t.sessions, userID)
		return true
	}
	t.sessions[userID] = n - 1
	return false
}

// IsOnline reports whether the user has at least one bound connection.
func (t *Tracker) IsOnline(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[userID] > 0
}

// Sessions returns the number of bound connections for the user.
func (t *Tracker) Sessions(userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[userID]
}

// OnlineCount returns the number of distinct online users.
func (t *Tracker) OnlineCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
