package hub

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// sendBufferSize bounds the number of pending outbound frames per connection.
const sendBufferSize = 128

// Conn is the subset of the websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live connection. It is created anonymous by Admit and may
// later be bound to a user id. All membership state on it is owned by the
// Hub and mutated only under the Hub's locks.
type Client struct {
	ID string

	conn Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}

	// Guarded by Hub.mu.
	userID string
	rooms  map[string]struct{}
	typing map[string]struct{}
}

func newClient(id string, conn Conn) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
		rooms:  make(map[string]struct{}),
		typing: make(map[string]struct{}),
	}
}

// enqueue hands a frame to the write pump. A full buffer means the client
// cannot keep up; the connection is closed so backpressure stays bounded and
// the transport read loop observes the close and triggers Drop.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	case c.send <- frame:
		return true
	default:
		c.close()
		return false
	}
}

// Send marshals an envelope onto this connection's outbound queue. Used by
// the transport for per-connection acks and errors; room traffic goes
// through the Hub.
func (c *Client) Send(event string, data any) bool {
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return false
	}
	return c.enqueue(frame)
}

// close terminates the underlying connection exactly once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

// writePump drains the send channel onto the wire in enqueue order.
func (c *Client) writePump() {
	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		}
	}
}
