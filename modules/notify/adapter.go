package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// NotifyPort is the notification interface other modules depend on.
type NotifyPort interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResponse, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	MarkRead(ctx context.Context, req MarkReadRequest) (*MarkReadResponse, error)
	MarkAllRead(ctx context.Context, req MarkAllReadRequest) (*MarkAllReadResponse, error)
}

// Adapter implements NotifyPort over the service container.
type Adapter struct {
	container mono.ServiceContainer
}

// Compile-time interface check.
var _ NotifyPort = (*Adapter)(nil)

// NewAdapter creates a NotifyPort backed by the notify module's services.
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

// Create persists and pushes a notification.
func (a *Adapter) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	return call[CreateRequest, CreateResponse](ctx, a.container, "create", &req)
}

// List pages the caller's notifications.
func (a *Adapter) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	return call[ListRequest, ListResponse](ctx, a.container, "list", &req)
}

// MarkRead marks one notification read.
func (a *Adapter) MarkRead(ctx context.Context, req MarkReadRequest) (*MarkReadResponse, error) {
	return call[MarkReadRequest, MarkReadResponse](ctx, a.container, "mark-read", &req)
}

// MarkAllRead marks every unread notification for the caller read.
func (a *Adapter) MarkAllRead(ctx context.Context, req MarkAllReadRequest) (*MarkAllReadResponse, error) {
	return call[MarkAllReadRequest, MarkAllReadResponse](ctx, a.container, "mark-all-read", &req)
}
