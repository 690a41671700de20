package presence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// PresencePort is the presence read interface other modules depend on.
type PresencePort interface {
	Get(ctx context.Context, userID string) (*GetPresenceResponse, error)
	ListOnline(ctx context.Context) (*ListOnlineResponse, error)
}

// Adapter implements PresencePort over the service container.
type Adapter struct {
	container mono.ServiceContainer
}

// Compile-time interface check.
var _ PresencePort = (*Adapter)(nil)

// NewAdapter creates a PresencePort backed by the presence module's services.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	return &Adapter{container: container}
}

// Get returns the durable presence record for a user.
func (a *Adapter) Get(ctx context.Context, userID string) (*GetPresenceResponse, error) {
	req := GetPresenceRequest{UserID: userID}
	var resp GetPresenceResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get request failed: %w", err)
	}
	return &resp, nil
}

// ListOnline returns every user currently marked online.
func (a *Adapter) ListOnline(ctx context.Context) (*ListOnlineResponse, error) {
	req := ListOnlineRequest{}
	var resp ListOnlineResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list-online",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("list-online request failed: %w", err)
	}
	return &resp, nil
}
