package wsserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/example/social-realtime-hub/modules/auth"
	"github.com/example/social-realtime-hub/modules/hub"
	"github.com/example/social-realtime-hub/modules/messaging"
	"github.com/example/social-realtime-hub/modules/notify"
	"github.com/example/social-realtime-hub/modules/presence"
	"github.com/example/social-realtime-hub/modules/relay"
)

// Per-connection signal rate limits.
const (
	signalsPerSecond = 10
	burstSize        = 20
)

// ClientSignal is the frame shape clients send upstream.
type ClientSignal struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Upstream signal names.
const (
	SignalAuthenticate = "authenticate"
	SignalTyping       = "typing"
	SignalSubscribe    = "subscribe"
	SignalUnsubscribe  = "unsubscribe"
	SignalSeen         = "seen"
)

// AuthenticatePayload carries the session token. UserID is optional; when
// present it must match the token's verified subject.
type AuthenticatePayload struct {
	Token  string `json:"token"`
	UserID string `json:"user_id,omitempty"`
}

// TypingPayload targets a typing indicator at a room.
type TypingPayload struct {
	Room     string `json:"room"`
	IsTyping bool   `json:"is_typing"`
}

// SubscribePayload names a topic room.
type SubscribePayload struct {
	Topic string `json:"topic"`
}

// SeenPayload lists group chat messages the client has rendered.
type SeenPayload struct {
	MessageIDs []string `json:"message_ids"`
}

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(maxTokens, refillRate int) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * r.refillRate
	if tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// Handlers contains the HTTP and WebSocket handlers.
type Handlers struct {
	hub            *hub.Hub
	presenceModule *presence.Module

	authPort      auth.AuthPort
	messagingPort messaging.MessagingPort
	notifyPort    notify.NotifyPort
	presencePort  presence.PresencePort
	relayPort     relay.RelayPort

	logger *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	h *hub.Hub,
	presenceModule *presence.Module,
	authPort auth.AuthPort,
	messagingPort messaging.MessagingPort,
	notifyPort notify.NotifyPort,
	presencePort presence.PresencePort,
	relayPort relay.RelayPort,
) *Handlers {
	return &Handlers{
		hub:            h,
		presenceModule: presenceModule,
		authPort:       authPort,
		messagingPort:  messagingPort,
		notifyPort:     notifyPort,
		presencePort:   presencePort,
		relayPort:      relayPort,
		logger:         slog.Default(),
	}
}

// HandleWebSocket runs the read loop for one connection. The connection is
// admitted anonymous and may subscribe to shared topic rooms right away;
// typing and seen signals are rejected until authenticate binds a user.
// Teardown always goes through Drop so room membership, typing indicators
// and the presence refcount are settled no matter how the connection ends.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	client := h.hub.Admit(c)
	limiter := newRateLimiter(burstSize, signalsPerSecond)

	h.logger.Info("connection admitted", "connID", client.ID)

	defer func() {
		userID := h.hub.Drop(client.ID)
		if userID != "" {
			if err := h.presenceModule.Release(context.Background(), userID); err != nil {
				h.logger.Error("presence release failed", "userID", userID, "error", err)
			}
		}
		h.logger.Info("connection dropped", "connID", client.ID, "userID", userID)
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("read failed", "connID", client.ID, "error", err)
			}
			return
		}

		var sig ClientSignal
		if err := json.Unmarshal(raw, &sig); err != nil {
			h.sendError(client, "invalid frame")
			continue
		}

		if sig.Event == SignalAuthenticate {
			h.handleAuthenticate(client, sig.Data)
			continue
		}

		if !limiter.allow() {
			h.sendError(client, "rate limit exceeded, slow down")
			continue
		}

		// Topic subscriptions are open to anonymous connections; they
		// watch shared rooms without ever touching presence. Typing and
		// seen act as a user, so they need a bound identity.
		switch sig.Event {
		case SignalSubscribe:
			h.handleSubscribe(client, sig.Data)
		case SignalUnsubscribe:
			h.handleUnsubscribe(client, sig.Data)
		case SignalTyping:
			if h.hub.UserID(client.ID) == "" {
				h.sendError(client, "authenticate first")
				continue
			}
			h.handleTyping(client, sig.Data)
		case SignalSeen:
			userID := h.hub.UserID(client.ID)
			if userID == "" {
				h.sendError(client, "authenticate first")
				continue
			}
			h.handleSeen(client, userID, sig.Data)
		default:
			h.sendError(client, "unknown signal: "+sig.Event)
		}
	}
}

// handleAuthenticate verifies the session token and binds the connection.
// The bound identity always comes from the token; a caller-supplied user_id
// that disagrees with the token's subject is rejected outright.
func (h *Handlers) handleAuthenticate(client *hub.Client, data json.RawMessage) {
	var payload AuthenticatePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Token == "" {
		h.sendError(client, "authenticate needs a token")
		return
	}

	if h.hub.UserID(client.ID) != "" {
		h.sendError(client, "already authenticated")
		return
	}

	identity, err := h.authPort.ValidateToken(context.Background(), payload.Token)
	if err != nil {
		h.sendError(client, "invalid or expired token")
		return
	}
	if payload.UserID != "" && payload.UserID != identity.UserID {
		h.logger.Warn("identity mismatch on authenticate",
			"connID", client.ID, "claimed", payload.UserID, "verified", identity.UserID)
		h.sendError(client, "user_id does not match token")
		return
	}

	if !h.hub.Bind(client.ID, identity.UserID) {
		return
	}
	h.hub.Join(client.ID, hub.PersonalRoom(identity.UserID))
	h.hub.Join(client.ID, hub.GlobalChatRoom)

	if err := h.presenceModule.Bind(context.Background(), identity.UserID); err != nil {
		h.logger.Error("presence bind failed", "userID", identity.UserID, "error", err)
	}

	client.Send("authenticated", map[string]string{"user_id": identity.UserID})
	h.logger.Info("connection authenticated", "connID", client.ID, "userID", identity.UserID)
}

// handleTyping relays a typing indicator. Valid targets are the global chat
// room and personal rooms; the sender identity on the indicator is always
// the bound one.
func (h *Handlers) handleTyping(client *hub.Client, data json.RawMessage) {
	var payload TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(client, "invalid typing payload")
		return
	}
	if payload.Room != hub.GlobalChatRoom && !hub.IsPersonalRoom(payload.Room) {
		h.sendError(client, "invalid typing target")
		return
	}

	h.hub.SetTyping(client.ID, payload.Room, payload.IsTyping)
}

// handleSubscribe joins a topic room. Personal rooms cannot be subscribed;
// they are joined only through authenticate.
func (h *Handlers) handleSubscribe(client *hub.Client, data json.RawMessage) {
	var payload SubscribePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(client, "invalid subscribe payload")
		return
	}
	if !hub.IsSubscribableTopic(payload.Topic) {
		h.sendError(client, "unknown topic: "+payload.Topic)
		return
	}

	h.hub.Join(client.ID, payload.Topic)
	client.Send("subscribed", map[string]string{"topic": payload.Topic})
}

// handleUnsubscribe leaves a topic room.
func (h *Handlers) handleUnsubscribe(client *hub.Client, data json.RawMessage) {
	var payload SubscribePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(client, "invalid unsubscribe payload")
		return
	}
	if !hub.IsSubscribableTopic(payload.Topic) {
		h.sendError(client, "unknown topic: "+payload.Topic)
		return
	}

	h.hub.Leave(client.ID, payload.Topic)
	client.Send("unsubscribed", map[string]string{"topic": payload.Topic})
}

// handleSeen marks group chat messages seen by the bound user.
func (h *Handlers) handleSeen(client *hub.Client, userID string, data json.RawMessage) {
	var payload SeenPayload
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.MessageIDs) == 0 {
		h.sendError(client, "invalid seen payload")
		return
	}

	resp, err := h.messagingPort.MarkSeen(context.Background(), messaging.MarkSeenRequest{
		MessageIDs: payload.MessageIDs,
		UserID:     userID,
	})
	if err != nil {
		h.logger.Error("mark seen failed", "userID", userID, "error", err)
		h.sendError(client, "could not mark messages seen")
		return
	}

	client.Send("seen_ack", map[string]int{"marked": resp.Marked})
}

// sendError pushes an error frame to one connection.
func (h *Handlers) sendError(client *hub.Client, message string) {
	client.Send("error", map[string]string{"message": message})
}
