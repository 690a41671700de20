package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module verifies the session tokens that gate room membership.
type Module struct {
	sessions *SessionManager
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)

// NewModule creates the auth module, reading SESSION_SECRET and
// SESSION_TTL from the environment.
func NewModule() *Module {
	config := DefaultSessionConfig()
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		config.SecretKey = secret
	}
	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.TokenDuration = d
		}
	}
	return &Module{sessions: NewSessionManager(config)}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// Sessions returns the session manager for in-process callers.
func (m *Module) Sessions() *SessionManager {
	return m.sessions
}

// RegisterServices registers the token validation service.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.validateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	log.Println("[auth] Registered services: services.auth.validate-token")
	return nil
}

// validateToken handles the auth.validate-token service request. Rejection
// reasons travel in the response rather than as an error so callers can
// surface them.
func (m *Module) validateToken(_ context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.sessions.Verify(req.Token)
	if err != nil {
		return ValidateTokenResponse{Valid: false, Error: err.Error()}, nil
	}
	return ValidateTokenResponse{
		Valid:  true,
		UserID: claims.UserID,
		Wallet: claims.Wallet,
	}, nil
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[auth] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[auth] Module stopped")
	return nil
}
