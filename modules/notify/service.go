package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/example/social-realtime-hub/events"
)

// create validates, persists, then publishes a notification. The kind and
// payload are relayed verbatim to the recipient's personal room.
func (m *Module) create(_ context.Context, req CreateRequest, _ *mono.Msg) (CreateResponse, error) {
	if req.RecipientID == "" {
		return CreateResponse{}, ErrEmptyRecipient
	}
	if req.Kind == "" {
		return CreateResponse{}, ErrEmptyKind
	}
	if len(req.Kind) > MaxKindLength {
		return CreateResponse{}, ErrKindTooLong
	}
	if len(req.Payload) > 0 && !json.Valid(req.Payload) {
		return CreateResponse{}, fmt.Errorf("payload is not valid JSON")
	}

	n := &Notification{
		ID:          uuid.New().String(),
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Kind:        req.Kind,
		Payload:     datatypes.JSON(req.Payload),
		CreatedAt:   time.Now(),
	}
	if err := m.repo.Create(n); err != nil {
		return CreateResponse{}, err
	}

	m.publishCreated(n)
	return CreateResponse{Notification: *n}, nil
}

// list pages the caller's notifications and bundles in the unread total so
// clients can render a badge without a second round trip.
func (m *Module) list(_ context.Context, req ListRequest, _ *mono.Msg) (ListResponse, error) {
	if req.UserID == "" {
		return ListResponse{}, fmt.Errorf("user_id is required")
	}

	ns, err := m.repo.ListByRecipient(req.UserID, clampLimit(req.Limit), req.UnreadOnly)
	if err != nil {
		return ListResponse{}, err
	}
	unread, err := m.repo.UnreadCount(req.UserID)
	if err != nil {
		return ListResponse{}, err
	}

	resp := ListResponse{
		Notifications: make([]Notification, 0, len(ns)),
		UnreadCount:   unread,
	}
	for _, n := range ns {
		resp.Notifications = append(resp.Notifications, *n)
	}
	resp.Total = len(resp.Notifications)
	return resp, nil
}

// markRead flips the read flag on one notification. Only the recipient may
// do this.
func (m *Module) markRead(_ context.Context, req MarkReadRequest, _ *mono.Msg) (MarkReadResponse, error) {
	if req.NotificationID == "" || req.UserID == "" {
		return MarkReadResponse{}, fmt.Errorf("notification_id and user_id are required")
	}

	n, err := m.repo.FindByID(req.NotificationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return MarkReadResponse{Error: ErrCodeNotFound}, nil
		}
		return MarkReadResponse{}, err
	}
	if n.RecipientID != req.UserID {
		return MarkReadResponse{Error: ErrCodePermissionDenied}, nil
	}
	if n.IsRead {
		return MarkReadResponse{Updated: false}, nil
	}

	if err := m.repo.MarkRead(req.NotificationID); err != nil {
		return MarkReadResponse{}, err
	}
	return MarkReadResponse{Updated: true}, nil
}

// markAllRead marks every unread notification for the caller read.
func (m *Module) markAllRead(_ context.Context, req MarkAllReadRequest, _ *mono.Msg) (MarkAllReadResponse, error) {
	if req.UserID == "" {
		return MarkAllReadResponse{}, fmt.Errorf("user_id is required")
	}

	updated, err := m.repo.MarkAllRead(req.UserID)
	if err != nil {
		return MarkAllReadResponse{}, err
	}
	return MarkAllReadResponse{Updated: updated}, nil
}

func (m *Module) publishCreated(n *Notification) {
	if m.eventBus == nil {
		return
	}
	event := events.NotificationCreatedEvent{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		SenderID:       n.SenderID,
		Kind:           n.Kind,
		Payload:        json.RawMessage(n.Payload),
		CreatedAt:      n.CreatedAt,
	}
	if err := events.NotificationCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[notify] Failed to publish NotificationCreated for %s: %v", n.ID, err)
	}
}
