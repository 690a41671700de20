package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Identity is a verified session identity.
type Identity struct {
	UserID string
	Wallet string
}

// AuthPort is the token verification interface other modules depend on.
type AuthPort interface {
	ValidateToken(ctx context.Context, token string) (*Identity, error)
}

// Adapter implements AuthPort over the service container.
type Adapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates an AuthPort backed by the auth module's services.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	return &Adapter{container: container}
}

// ValidateToken verifies a session token and returns the bound identity.
func (a *Adapter) ValidateToken(ctx context.Context, token string) (*Identity, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"validate-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}

	if !resp.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, resp.Error)
	}

	return &Identity{UserID: resp.UserID, Wallet: resp.Wallet}, nil
}
