package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RelayPort is the tick interface producers depend on.
type RelayPort interface {
	Tick(ctx context.Context, req TickRequest) (*TickResponse, error)
}

// Adapter implements RelayPort over the service container.
type Adapter struct {
	container mono.ServiceContainer
}

// Compile-time interface check.
var _ RelayPort = (*Adapter)(nil)

// NewAdapter creates a RelayPort backed by the relay module's services.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	return &Adapter{container: container}
}

// Tick pushes an opaque update to a topic room.
func (a *Adapter) Tick(ctx context.Context, req TickRequest) (*TickResponse, error) {
	var resp TickResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"tick",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("tick request failed: %w", err)
	}
	return &resp, nil
}
