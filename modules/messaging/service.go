package messaging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/google/uuid"

	"github.com/example/social-realtime-hub/events"
)

// sendDirect validates, persists, then publishes a direct message. The
// event goes out only after the row is on disk, so a delivered push always
// has a durable backing record.
func (m *Module) sendDirect(_ context.Context, req SendDirectRequest, _ *mono.Msg) (SendDirectResponse, error) {
	if req.SenderID == "" || req.RecipientID == "" {
		return SendDirectResponse{}, fmt.Errorf("sender_id and recipient_id are required")
	}
	if req.SenderID == req.RecipientID {
		return SendDirectResponse{}, fmt.Errorf("cannot message yourself")
	}
	if err := ValidateContent(req.Body, req.AttachmentURL); err != nil {
		return SendDirectResponse{}, err
	}

	msg := &DirectMessage{
		ID:            uuid.New().String(),
		SenderID:      req.SenderID,
		RecipientID:   req.RecipientID,
		Body:          req.Body,
		AttachmentURL: req.AttachmentURL,
		CreatedAt:     time.Now(),
	}
	if err := m.repo.CreateDirect(msg); err != nil {
		return SendDirectResponse{}, err
	}

	m.invalidateUnread(req.RecipientID)
	m.publishDirect(msg)
	return SendDirectResponse{Message: *msg}, nil
}

// conversation pages the history between the caller and a peer. Rows come
// out of the store newest first and are reversed so clients render in
// creation order.
func (m *Module) conversation(_ context.Context, req ConversationRequest, _ *mono.Msg) (ConversationResponse, error) {
	if req.UserID == "" || req.PeerID == "" {
		return ConversationResponse{}, fmt.Errorf("user_id and peer_id are required")
	}

	msgs, err := m.repo.Conversation(req.UserID, req.PeerID, clampLimit(req.Limit), req.Before)
	if err != nil {
		return ConversationResponse{}, err
	}

	resp := ConversationResponse{Messages: make([]DirectMessage, 0, len(msgs))}
	for i := len(msgs) - 1; i >= 0; i-- {
		resp.Messages = append(resp.Messages, *msgs[i])
	}
	resp.Total = len(resp.Messages)
	return resp, nil
}

// markRead flips the read flag on one message. Only the recipient may do
// this; rejections travel as error codes so the transport can map them.
func (m *Module) markRead(_ context.Context, req MarkReadRequest, _ *mono.Msg) (MarkReadResponse, error) {
	if req.MessageID == "" || req.UserID == "" {
		return MarkReadResponse{}, fmt.Errorf("message_id and user_id are required")
	}

	msg, err := m.repo.FindDirectByID(req.MessageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return MarkReadResponse{Error: ErrCodeNotFound}, nil
		}
		return MarkReadResponse{}, err
	}
	if msg.RecipientID != req.UserID {
		return MarkReadResponse{Error: ErrCodePermissionDenied}, nil
	}
	if msg.IsRead {
		return MarkReadResponse{Updated: false}, nil
	}

	if err := m.repo.MarkDirectRead(req.MessageID); err != nil {
		return MarkReadResponse{}, err
	}
	m.invalidateUnread(req.UserID)
	return MarkReadResponse{Updated: true}, nil
}

// markConversationRead marks every unread message from the peer read.
func (m *Module) markConversationRead(_ context.Context, req MarkConversationReadRequest, _ *mono.Msg) (MarkConversationReadResponse, error) {
	if req.UserID == "" || req.PeerID == "" {
		return MarkConversationReadResponse{}, fmt.Errorf("user_id and peer_id are required")
	}

	updated, err := m.repo.MarkConversationRead(req.UserID, req.PeerID)
	if err != nil {
		return MarkConversationReadResponse{}, err
	}
	if updated > 0 {
		m.invalidateUnread(req.UserID)
	}
	return MarkConversationReadResponse{Updated: updated}, nil
}

// unreadCount returns the caller's unread total. Concurrent lookups for
// the same user collapse into one query, and the answer is cached until
// the next write invalidates it.
func (m *Module) unreadCount(ctx context.Context, req UnreadCountRequest, _ *mono.Msg) (UnreadCountResponse, error) {
	if req.UserID == "" {
		return UnreadCountResponse{}, fmt.Errorf("user_id is required")
	}

	if m.cache != nil {
		var cached UnreadCountResponse
		if hit, err := m.cache.Get(ctx, unreadKey(req.UserID), &cached); err == nil && hit {
			return cached, nil
		}
	}

	count, err, _ := m.unreadGroup.Do(req.UserID, func() (any, error) {
		return m.repo.UnreadCount(req.UserID)
	})
	if err != nil {
		return UnreadCountResponse{}, err
	}

	resp := UnreadCountResponse{Count: count.(int64)}
	if m.cache != nil {
		if err := m.cache.Set(ctx, unreadKey(req.UserID), resp); err != nil {
			log.Printf("[messaging] Failed to cache unread count for %s: %v", req.UserID, err)
		}
	}
	return resp, nil
}

// deleteDirect removes a direct message. Only the sender may delete.
func (m *Module) deleteDirect(_ context.Context, req DeleteDirectRequest, _ *mono.Msg) (DeleteDirectResponse, error) {
	if req.MessageID == "" || req.UserID == "" {
		return DeleteDirectResponse{}, fmt.Errorf("message_id and user_id are required")
	}

	msg, err := m.repo.FindDirectByID(req.MessageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DeleteDirectResponse{Error: ErrCodeNotFound}, nil
		}
		return DeleteDirectResponse{}, err
	}
	if msg.SenderID != req.UserID {
		return DeleteDirectResponse{Error: ErrCodePermissionDenied}, nil
	}

	if err := m.repo.DeleteDirect(req.MessageID); err != nil {
		return DeleteDirectResponse{}, err
	}
	if !msg.IsRead {
		m.invalidateUnread(msg.RecipientID)
	}
	return DeleteDirectResponse{Deleted: true}, nil
}

// sendGroup validates, persists, then publishes a group chat message. The
// sender starts in the seen-by set.
func (m *Module) sendGroup(_ context.Context, req SendGroupRequest, _ *mono.Msg) (SendGroupResponse, error) {
	if req.SenderID == "" {
		return SendGroupResponse{}, fmt.Errorf("sender_id is required")
	}
	if err := ValidateContent(req.Body, req.AudioURL); err != nil {
		return SendGroupResponse{}, err
	}

	msg := &ChatMessage{
		ID:        uuid.New().String(),
		SenderID:  req.SenderID,
		Body:      req.Body,
		AudioURL:  req.AudioURL,
		SeenBy:    UserSet{req.SenderID: struct{}{}},
		CreatedAt: time.Now(),
	}
	if err := m.repo.CreateChat(msg); err != nil {
		return SendGroupResponse{}, err
	}

	m.publishGroup(msg)
	return SendGroupResponse{Message: *msg}, nil
}

// history pages the group chat, returned in creation order.
func (m *Module) history(_ context.Context, req HistoryRequest, _ *mono.Msg) (HistoryResponse, error) {
	msgs, err := m.repo.ChatHistory(clampLimit(req.Limit))
	if err != nil {
		return HistoryResponse{}, err
	}

	resp := HistoryResponse{Messages: make([]ChatMessage, 0, len(msgs))}
	for i := len(msgs) - 1; i >= 0; i-- {
		resp.Messages = append(resp.Messages, *msgs[i])
	}
	resp.Total = len(resp.Messages)
	return resp, nil
}

// markSeen adds the caller to the seen-by set of each message. Messages the
// caller has already seen, and ids that do not exist, are skipped.
func (m *Module) markSeen(_ context.Context, req MarkSeenRequest, _ *mono.Msg) (MarkSeenResponse, error) {
	if req.UserID == "" {
		return MarkSeenResponse{}, fmt.Errorf("user_id is required")
	}
	if len(req.MessageIDs) == 0 {
		return MarkSeenResponse{}, nil
	}

	msgs, err := m.repo.FindChatByIDs(req.MessageIDs)
	if err != nil {
		return MarkSeenResponse{}, err
	}

	marked := 0
	for _, msg := range msgs {
		if msg.SeenBy.Contains(req.UserID) {
			continue
		}
		msg.SeenBy.Add(req.UserID)
		if err := m.repo.UpdateChatSeenBy(msg); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return MarkSeenResponse{}, err
		}
		marked++
	}
	return MarkSeenResponse{Marked: marked}, nil
}

// deleteGroup removes a group chat message. Only the sender may delete.
func (m *Module) deleteGroup(_ context.Context, req DeleteGroupRequest, _ *mono.Msg) (DeleteGroupResponse, error) {
	if req.MessageID == "" || req.UserID == "" {
		return DeleteGroupResponse{}, fmt.Errorf("message_id and user_id are required")
	}

	msg, err := m.repo.FindChatByID(req.MessageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DeleteGroupResponse{Error: ErrCodeNotFound}, nil
		}
		return DeleteGroupResponse{}, err
	}
	if msg.SenderID != req.UserID {
		return DeleteGroupResponse{Error: ErrCodePermissionDenied}, nil
	}

	if err := m.repo.DeleteChat(req.MessageID); err != nil {
		return DeleteGroupResponse{}, err
	}
	return DeleteGroupResponse{Deleted: true}, nil
}

func (m *Module) publishDirect(msg *DirectMessage) {
	if m.eventBus == nil {
		return
	}
	event := events.DirectMessageSentEvent{
		MessageID:     msg.ID,
		SenderID:      msg.SenderID,
		RecipientID:   msg.RecipientID,
		Body:          msg.Body,
		AttachmentURL: msg.AttachmentURL,
		CreatedAt:     msg.CreatedAt,
	}
	if err := events.DirectMessageSentV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[messaging] Failed to publish DirectMessageSent for %s: %v", msg.ID, err)
	}
}

func (m *Module) publishGroup(msg *ChatMessage) {
	if m.eventBus == nil {
		return
	}
	event := events.GroupMessageSentEvent{
		MessageID: msg.ID,
		SenderID:  msg.SenderID,
		Body:      msg.Body,
		AudioURL:  msg.AudioURL,
		CreatedAt: msg.CreatedAt,
	}
	if err := events.GroupMessageSentV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[messaging] Failed to publish GroupMessageSent for %s: %v", msg.ID, err)
	}
}

func (m *Module) invalidateUnread(userID string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Delete(context.Background(), unreadKey(userID)); err != nil {
		log.Printf("[messaging] Failed to invalidate unread count for %s: %v", userID, err)
	}
}

func unreadKey(userID string) string {
	return "unread:" + userID
}
