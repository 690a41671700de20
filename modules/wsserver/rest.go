package wsserver

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/social-realtime-hub/modules/messaging"
	"github.com/example/social-realtime-hub/modules/notify"
	"github.com/example/social-realtime-hub/modules/relay"
)

// statusForCode maps domain rejection codes onto HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case "not_found":
		return fiber.StatusNotFound
	case "permission_denied":
		return fiber.StatusForbidden
	default:
		return fiber.StatusBadRequest
	}
}

func rejection(c *fiber.Ctx, code string) error {
	return c.Status(statusForCode(code)).JSON(fiber.Map{"error": code})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

// SendDirectMessage handles POST /api/v1/messages.
func (h *Handlers) SendDirectMessage(c *fiber.Ctx) error {
	identity := identityFrom(c)

	var body struct {
		RecipientID   string `json:"recipient_id"`
		Body          string `json:"body"`
		AttachmentURL string `json:"attachment_url"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.messagingPort.SendDirect(c.UserContext(), messaging.SendDirectRequest{
		SenderID:      identity.UserID,
		RecipientID:   body.RecipientID,
		Body:          body.Body,
		AttachmentURL: body.AttachmentURL,
	})
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(resp.Message)
}

// GetConversation handles GET /api/v1/conversations/:peerID.
func (h *Handlers) GetConversation(c *fiber.Ctx) error {
	identity := identityFrom(c)
	peerID := c.Params("peerID")

	var before time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return badRequest(c, "before must be RFC3339")
		}
		before = parsed
	}

	resp, err := h.messagingPort.Conversation(c.UserContext(), messaging.ConversationRequest{
		UserID: identity.UserID,
		PeerID: peerID,
		Limit:  c.QueryInt("limit", 0),
		Before: before,
	})
	if err != nil {
		return internalError(c)
	}
	return c.JSON(resp)
}

// MarkMessageRead handles POST /api/v1/messages/:id/read.
func (h *Handlers) MarkMessageRead(c *fiber.Ctx) error {
	identity := identityFrom(c)

	resp, err := h.messagingPort.MarkRead(c.UserContext(), messaging.MarkReadRequest{
		MessageID: c.Params("id"),
		UserID:    identity.UserID,
	})
	if err != nil {
		return internalError(c)
	}
	if resp.Error != "" {
		return rejection(c, resp.Error)
	}
	return c.JSON(fiber.Map{"updated": resp.Updated})
}

// MarkConversationRead handles POST /api/v1/conversations/:peerID/read.
func (h *Handlers) MarkConversationRead(c *fiber.Ctx) error {
	identity := identityFrom(c)

	resp, err := h.messagingPort.MarkConversationRead(c.UserContext(), messaging.MarkConversationReadRequest{
		UserID: identity.UserID,
		PeerID: c.Params("peerID"),
	})
	if err != nil {
		return internalError(c)
	}
	return c.JSON(fiber.Map{"updated": resp.Updated})
}

// GetUnreadCount handles GET /api/v1/messages/unread-count.
func (h *Handlers) GetUnreadCount(c *fiber.Ctx) error {
	identity := identityFrom(c)

	resp, err := h.messagingPort.UnreadCount(c.UserContext(), messaging.UnreadCountRequest{
		UserID: identity.UserID,
	})
	if err != nil {
		return internalError(c)
	}
	return c.JSON(fiber.Map{"count": resp.Count})
}

// DeleteDirectMessage handles DELETE /api/v1/messages/:id.
func (h *Handlers) DeleteDirectMessage(c *fiber.Ctx) error {
	identity := identityFrom(c)

	resp, err := h.messagingPort.DeleteDirect(c.UserContext(), messaging.DeleteDirectRequest{
		MessageID: c.Params("id"),
		UserID:    identity.UserID,
	})
	if err != nil {
		return internalError(c)
	}
	if resp.Error != "" {
		return rejection(c, resp.Error)
	}
	return c.JSON(fiber.Map{"deleted": resp.Deleted})
}

// GetChatHistory handles GET /api/v1/chat/history.
func (h *Handlers) GetChatHistory(c *fiber.Ctx) error {
	resp, err := h.messagingPort.History(c.UserContext(), messaging.HistoryRequest{
		Limit: c.QueryInt("limit", 0),
	})
	if err != nil {
		return internalError(c)
	}
	return c.JSON(resp)
}

// SendGroupMessage handles POST /api/v1/chat/messages.
func (h *Handlers) SendGroupMessage(c *fiber.Ctx) error {
	identity := identityFrom(c)

	var body struct {
		Body     string `json:"body"`
		AudioURL string `json:"audio_url"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.messagingPort.SendGroup(c.UserContext(), messaging.SendGroupRequest{
		SenderID: identity.UserID,
		Body:     body.Body,
		AudioURL: body.AudioURL,
	})
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(resp.Message)
}

// MarkChatSeen handles POST /api/v1/chat/seen.
func (h *Handlers) MarkChatSeen(c *fiber.Ctx) error {
	identity := identityFrom(c)

	var body struct {
		MessageIDs []string `json:"message_ids"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.MessageIDs) == 0 {
		return badRequest(c, "message_ids is required")
	}

	resp, err := h.messagingPort.MarkSeen(c.UserContext(), messaging.MarkSeenRequest{
		MessageIDs: body.MessageIDs,
		UserID:     identity.UserID,
	})
	if err != nil {
		return internalError(c)
	}
	return c.JSON(fiber.Map{"marked": resp.Marked})
}

// DeleteGroupMessage handles DELETE /api/v1/chat/messages/:id.
func (h *Handlers) DeleteGroupMessage(c *fiber.Ctx) error {
	identity := identityFrom(c)

	resp, err := h.messagingPort.DeleteGroup(c.UserContext(), messaging.DeleteGroupRequest{
		MessageID: c.Params("id"),
		UserID:    identity.UserID,
	})
	if err != nil {
		return internalError(c)
	}
	if resp.Error != "" {
		return rejection(c, resp.Error)
	}
	return c.JSON(fiber.Map{"deleted": resp.Deleted})
}

// ListNotifications handles GET /api/v1/notifications.
func (h *Handlers) ListNotifications(c *fiber.Ctx) error {
	identity := identityFrom(c)

	resp, err := h.notifyPort.List(c.UserContext(), notify.ListRequest{
		UserID:     identity.UserID,
		Limit:      c.QueryInt("limit", 0),
		UnreadOnly: c.QueryBool("unread_only", false),
	})
	if err != nil {
		return internalError(c)
	}
	return c.JSON(resp)
}

// CreateNotification handles POST /api/v1/notifications. The sender is
// always the authenticated caller.
func (h *Handlers) CreateNotification(c *fiber.Ctx) error {
	identity := identityFrom(c)

	var body struct {
		RecipientID string          `json:"recipient_id"`
		Kind        string          `json:"kind"`
		Payload     json.RawMessage `json:"payload"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.notifyPort.Create(c.UserContext(), notify.CreateRequest{
		RecipientID: body.RecipientID,
		SenderID:    identity.UserID,
		Kind:        body.Kind,
		Payload:     body.Payload,
	})
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(resp.Notification)
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read.
func (h *Handlers) MarkNotificationRead(c *fiber.Ctx) error {
	identity := identityFrom(c)

	resp, err := h.notifyPort.MarkRead(c.UserContext(), notify.MarkReadRequest{
		NotificationID: c.Params("id"),
		UserID:         identity.UserID,
	})
	if err != nil {
		return internalError(c)
	}
	if resp.Error != "" {
		return rejection(c, resp.Error)
	}
	return c.JSON(fiber.Map{"updated": resp.Updated})
}

// MarkAllNotificationsRead handles POST /api/v1/notifications/read-all.
func (h *Handlers) MarkAllNotificationsRead(c *fiber.Ctx) error {
	identity := identityFrom(c)

	resp, err := h.notifyPort.MarkAllRead(c.UserContext(), notify.MarkAllReadRequest{
		UserID: identity.UserID,
	})
	if err != nil {
		return internalError(c)
	}
	return c.JSON(fiber.Map{"updated": resp.Updated})
}

// GetPresence handles GET /api/v1/presence/:userID.
func (h *Handlers) GetPresence(c *fiber.Ctx) error {
	resp, err := h.presencePort.Get(c.UserContext(), c.Params("userID"))
	if err != nil {
		return internalError(c)
	}
	return c.JSON(resp)
}

// ListOnlineUsers handles GET /api/v1/presence/online.
func (h *Handlers) ListOnlineUsers(c *fiber.Ctx) error {
	resp, err := h.presencePort.ListOnline(c.UserContext())
	if err != nil {
		return internalError(c)
	}
	return c.JSON(resp)
}

// PostTopicTick handles POST /api/v1/topics/:topic/tick.
func (h *Handlers) PostTopicTick(c *fiber.Ctx) error {
	var body struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.relayPort.Tick(c.UserContext(), relay.TickRequest{
		Topic:   c.Params("topic"),
		Event:   body.Event,
		Payload: body.Payload,
	})
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": resp.Accepted})
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "social-realtime-hub",
		"clients": h.hub.ClientCount(),
		"rooms":   h.hub.RoomCount(),
	})
}
