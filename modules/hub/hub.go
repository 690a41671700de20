package hub

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/jaevor/go-nanoid"
)

// Envelope is the JSON frame shape every push uses.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// TypingIndicator is the transient typing payload relayed to a target room.
type TypingIndicator struct {
	SenderID string `json:"sender_id"`
	IsTyping bool   `json:"is_typing"`
}

// EventTypingIndicator is the event name for typing pushes, including the
// synthetic clear emitted when a typing connection drops.
const EventTypingIndicator = "typing_indicator"

// newConnID generates compact opaque connection ids.
var newConnID = func() func() string {
	gen, err := nanoid.Standard(21)
	if err != nil {
		panic(err)
	}
	return gen
}()

// Hub is the connection registry and room bus. It owns every live
// connection and the room membership tables. Rooms are created lazily on
// first join and deleted when their last member leaves.
//
// Locking: h.mu guards both tables. Membership mutations hold it
// exclusively; publishes hold it shared plus the target room's own mutex,
// so concurrent publishes to independent rooms do not contend while
// publishes to the same room serialize in call order.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]*room
}

type room struct {
	mu      sync.Mutex
	members map[string]*Client
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]*room),
	}
}

// Admit registers a new anonymous connection and starts its write pump.
func (h *Hub) Admit(conn Conn) *Client {
	c := newClient(newConnID(), conn)

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	go c.writePump()
	return c
}

// Bind attaches a verified user identity to a connection. The identity must
// come from the connection's validated session token, never from an
// unchecked client payload.
func (h *Hub) Bind(clientID, userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return false
	}
	c.userID = userID
	return true
}

// UserID returns the bound user id for a connection, or "" while anonymous.
func (h *Hub) UserID(clientID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[clientID]
	if !ok {
		return ""
	}
	return c.userID
}

// Join adds a connection to a room, creating the room on first join.
// Joining a room twice is a no-op.
func (h *Hub) Join(clientID, roomName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return
	}

	r, ok := h.rooms[roomName]
	if !ok {
		r = &room{members: make(map[string]*Client)}
		h.rooms[roomName] = r
	}
	r.members[clientID] = c
	c.rooms[roomName] = struct{}{}
}

// Leave removes a connection from a room. Leaving a room never joined is a
// no-op. The room is deleted when its last member leaves.
func (h *Hub) Leave(clientID, roomName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	h.leaveLocked(c, roomName)
}

func (h *Hub) leaveLocked(c *Client, roomName string) {
	r, ok := h.rooms[roomName]
	if !ok {
		return
	}
	delete(r.members, c.ID)
	delete(c.rooms, roomName)
	if len(r.members) == 0 {
		delete(h.rooms, roomName)
	}
}

// SetTyping records or clears a typing target for a connection and relays
// the indicator to the target room, excluding the sender's own connections.
// The recorded targets drive the synthetic clear on Drop.
func (h *Hub) SetTyping(clientID, targetRoom string, isTyping bool) {
	h.mu.Lock()
	c, ok := h.clients[clientID]
	if !ok {
		h.mu.Unlock()
		return
	}
	senderID := c.userID
	if isTyping {
		c.typing[targetRoom] = struct{}{}
	} else {
		delete(c.typing, targetRoom)
	}
	h.mu.Unlock()

	if senderID == "" {
		return
	}
	h.PublishExcept(targetRoom, EventTypingIndicator, TypingIndicator{
		SenderID: senderID,
		IsTyping: isTyping,
	}, senderID)
}

// Drop removes a connection from every room it joined and unregisters it.
// If the connection was mid-"typing", a synthetic is_typing=false is
// relayed to each recorded target so recipients never keep a stuck
// indicator. Membership removal completes before the synthetic clears are
// published, so no publish after Drop returns can reach the connection.
// Returns the bound user id, or "" if the connection was anonymous.
func (h *Hub) Drop(clientID string) string {
	h.mu.Lock()
	c, ok := h.clients[clientID]
	if !ok {
		h.mu.Unlock()
		return ""
	}

	userID := c.userID
	typingTargets := make([]string, 0, len(c.typing))
	for target := range c.typing {
		typingTargets = append(typingTargets, target)
	}

	for roomName := range c.rooms {
		h.leaveLocked(c, roomName)
	}
	delete(h.clients, clientID)
	h.mu.Unlock()

	if userID != "" {
		for _, target := range typingTargets {
			h.PublishExcept(target, EventTypingIndicator, TypingIndicator{
				SenderID: userID,
				IsTyping: false,
			}, userID)
		}
	}

	c.close()
	return userID
}

// Publish fans an event out to every current member of a room, in call
// order per room. A room with no members is a silent no-op: producers
// publish whether or not anyone is listening, and absent subscribers
// recover through durable reads.
func (h *Hub) Publish(roomName, event string, data any) {
	h.publish(roomName, event, data, "")
}

// PublishExcept is Publish minus every connection bound to exceptUserID.
func (h *Hub) PublishExcept(roomName, event string, data any, exceptUserID string) {
	h.publish(roomName, event, data, exceptUserID)
}

func (h *Hub) publish(roomName, event string, data any, exceptUserID string) {
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("[hub] drop undeliverable %s payload: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[roomName]
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.members {
		if exceptUserID != "" && c.userID == exceptUserID {
			continue
		}
		c.enqueue(frame)
	}
}

// Broadcast delivers an event to every live connection regardless of room
// membership. Used for presence changes, which all clients render.
func (h *Hub) Broadcast(event string, data any) {
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("[hub] drop undeliverable %s payload: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(frame)
	}
}

// Members returns the connection ids currently joined to a room.
func (h *Hub) Members(roomName string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[roomName]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

// Rooms returns the rooms a connection is currently joined to.
func (h *Hub) Rooms(clientID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[clientID]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(c.rooms))
	for name := range c.rooms {
		names = append(names, name)
	}
	return names
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of non-empty rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// CloseAll closes every connection and clears the tables. Called on
// shutdown only.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]*room)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
