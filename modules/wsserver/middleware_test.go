package wsserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/example/social-realtime-hub/modules/auth"
)

// mockAuthPort implements auth.AuthPort for testing.
type mockAuthPort struct {
	validateTokenFunc func(ctx context.Context, token string) (*auth.Identity, error)
}

func (m *mockAuthPort) ValidateToken(ctx context.Context, token string) (*auth.Identity, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		mockAuth       *mockAuthPort
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "missing authorization header",
			authHeader:     "",
			mockAuth:       &mockAuthPort{},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"Authorization header is required"`,
		},
		{
			name:           "invalid authorization format",
			authHeader:     "Basic token123",
			mockAuth:       &mockAuthPort{},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `Invalid authorization header format`,
		},
		{
			name:       "invalid token",
			authHeader: "Bearer invalid-token",
			mockAuth: &mockAuthPort{
				validateTokenFunc: func(_ context.Context, _ string) (*auth.Identity, error) {
					return nil, errors.New("invalid token")
				},
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"Invalid or expired token"`,
		},
		{
			name:       "valid token",
			authHeader: "Bearer valid-token",
			mockAuth: &mockAuthPort{
				validateTokenFunc: func(_ context.Context, _ string) (*auth.Identity, error) {
					return &auth.Identity{UserID: "user-123", Wallet: "0xabc"}, nil
				},
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"ok"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(AuthMiddleware(tt.mockAuth))
			app.Get("/test", func(c *fiber.Ctx) error {
				return c.JSON(fiber.Map{"status": "ok"})
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("status = %v, want %v", resp.StatusCode, tt.expectedStatus)
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("io.ReadAll() error = %v", err)
			}
			if !strings.Contains(string(body), tt.expectedBody) {
				t.Errorf("body = %v, want to contain %v", string(body), tt.expectedBody)
			}
		})
	}
}

func TestAuthMiddleware_StoresIdentity(t *testing.T) {
	mockAuth := &mockAuthPort{
		validateTokenFunc: func(_ context.Context, _ string) (*auth.Identity, error) {
			return &auth.Identity{UserID: "user-456", Wallet: "0xdef"}, nil
		},
	}

	app := fiber.New()
	app.Use(AuthMiddleware(mockAuth))

	var captured *auth.Identity
	app.Get("/test", func(c *fiber.Ctx) error {
		captured = identityFrom(c)
		return c.JSON(fiber.Map{"status": "ok"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer valid-token")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %v, want %v", resp.StatusCode, http.StatusOK)
	}
	if captured == nil {
		t.Fatal("identity not set in context")
	}
	if captured.UserID != "user-456" {
		t.Errorf("identity.UserID = %v, want user-456", captured.UserID)
	}
}

func TestRelayKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		configuredKey  string
		providedKey    string
		expectedStatus int
	}{
		{"no key configured", "", "anything", http.StatusForbidden},
		{"wrong key", "secret", "wrong", http.StatusUnauthorized},
		{"missing key", "secret", "", http.StatusUnauthorized},
		{"matching key", "secret", "secret", http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RELAY_API_KEY", tt.configuredKey)

			app := fiber.New()
			app.Post("/tick", RelayKeyMiddleware(), func(c *fiber.Ctx) error {
				return c.SendStatus(http.StatusAccepted)
			})

			req := httptest.NewRequest("POST", "/tick", nil)
			if tt.providedKey != "" {
				req.Header.Set("X-Api-Key", tt.providedKey)
			}

			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("status = %v, want %v", resp.StatusCode, tt.expectedStatus)
			}
		})
	}
}
