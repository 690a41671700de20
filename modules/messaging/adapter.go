package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// MessagingPort is the messaging interface other modules depend on.
type MessagingPort interface {
	SendDirect(ctx context.Context, req SendDirectRequest) (*SendDirectResponse, error)
	Conversation(ctx context.Context, req ConversationRequest) (*ConversationResponse, error)
	MarkRead(ctx context.Context, req MarkReadRequest) (*MarkReadResponse, error)
	MarkConversationRead(ctx context.Context, req MarkConversationReadRequest) (*MarkConversationReadResponse, error)
	UnreadCount(ctx context.Context, req UnreadCountRequest) (*UnreadCountResponse, error)
	DeleteDirect(ctx context.Context, req DeleteDirectRequest) (*DeleteDirectResponse, error)
	SendGroup(ctx context.Context, req SendGroupRequest) (*SendGroupResponse, error)
	History(ctx context.Context, req HistoryRequest) (*HistoryResponse, error)
	MarkSeen(ctx context.Context, req MarkSeenRequest) (*MarkSeenResponse, error)
	DeleteGroup(ctx context.Context, req DeleteGroupRequest) (*DeleteGroupResponse, error)
}

// Adapter implements MessagingPort over the service container.
type Adapter struct {
	container mono.ServiceContainer
}

// Compile-time interface check.
var _ MessagingPort = (*Adapter)(nil)

// NewAdapter creates a MessagingPort backed by the messaging module's services.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	return &Adapter{container: container}
}

func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, name string, req *Req) (*Resp, error) {
	var resp Resp
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		name,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", name, err)
	}
	return &resp, nil
}

// SendDirect persists and pushes a direct message.
func (a *Adapter) SendDirect(ctx context.Context, req SendDirectRequest) (*SendDirectResponse, error) {
	return call[SendDirectRequest, SendDirectResponse](ctx, a.container, "send-direct", &req)
}

// Conversation pages the caller's conversation with a peer.
func (a *Adapter) Conversation(ctx context.Context, req ConversationRequest) (*ConversationResponse, error) {
	return call[ConversationRequest, ConversationResponse](ctx, a.container, "conversation", &req)
}

// MarkRead marks one direct message read.
func (a *Adapter) MarkRead(ctx context.Context, req MarkReadRequest) (*MarkReadResponse, error) {
	return call[MarkReadRequest, MarkReadResponse](ctx, a.container, "mark-read", &req)
}

// MarkConversationRead marks every unread message from a peer read.
func (a *Adapter) MarkConversationRead(ctx context.Context, req MarkConversationReadRequest) (*MarkConversationReadResponse, error) {
	return call[MarkConversationReadRequest, MarkConversationReadResponse](ctx, a.container, "mark-conversation-read", &req)
}

// UnreadCount returns the caller's unread message count.
func (a *Adapter) UnreadCount(ctx context.Context, req UnreadCountRequest) (*UnreadCountResponse, error) {
	return call[UnreadCountRequest, UnreadCountResponse](ctx, a.container, "unread-count", &req)
}

// DeleteDirect deletes a direct message the caller sent.
func (a *Adapter) DeleteDirect(ctx context.Context, req DeleteDirectRequest) (*DeleteDirectResponse, error) {
	return call[DeleteDirectRequest, DeleteDirectResponse](ctx, a.container, "delete-direct", &req)
}

// SendGroup persists and pushes a group chat message.
func (a *Adapter) SendGroup(ctx context.Context, req SendGroupRequest) (*SendGroupResponse, error) {
	return call[SendGroupRequest, SendGroupResponse](ctx, a.container, "send-group", &req)
}

// History pages the group chat.
func (a *Adapter) History(ctx context.Context, req HistoryRequest) (*HistoryResponse, error) {
	return call[HistoryRequest, HistoryResponse](ctx, a.container, "history", &req)
}

// MarkSeen appends the caller to the seen-by set of each message.
func (a *Adapter) MarkSeen(ctx context.Context, req MarkSeenRequest) (*MarkSeenResponse, error) {
	return call[MarkSeenRequest, MarkSeenResponse](ctx, a.container, "mark-seen", &req)
}

// DeleteGroup deletes a group chat message the caller sent.
func (a *Adapter) DeleteGroup(ctx context.Context, req DeleteGroupRequest) (*DeleteGroupResponse, error) {
	return call[DeleteGroupRequest, DeleteGroupResponse](ctx, a.container, "delete-group", &req)
}
