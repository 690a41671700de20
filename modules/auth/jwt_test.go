package auth

import (
	"errors"
	"testing"
	"time"
)

func testConfig() SessionConfig {
	return SessionConfig{
		SecretKey:     "test-secret-key",
		TokenDuration: time.Hour,
		Issuer:        "test-issuer",
	}
}

func TestSessionManager_GenerateAndVerify(t *testing.T) {
	manager := NewSessionManager(testConfig())

	token, err := manager.Generate("user-123", "9xWallet")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, "user-123")
	}
	if claims.Wallet != "9xWallet" {
		t.Errorf("claims.Wallet = %q, want %q", claims.Wallet, "9xWallet")
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("claims.Issuer = %q, want %q", claims.Issuer, "test-issuer")
	}
}

func TestSessionManager_RejectsWrongSecret(t *testing.T) {
	manager := NewSessionManager(testConfig())
	token, err := manager.Generate("user-123", "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	other := NewSessionManager(SessionConfig{
		SecretKey:     "a-different-secret",
		TokenDuration: time.Hour,
		Issuer:        "test-issuer",
	})
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() with wrong secret error = %v, want ErrInvalidToken", err)
	}
}

func TestSessionManager_RejectsExpiredToken(t *testing.T) {
	config := testConfig()
	config.TokenDuration = -time.Minute
	manager := NewSessionManager(config)

	token, err := manager.Generate("user-123", "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := manager.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() of expired token error = %v, want ErrExpiredToken", err)
	}
}

func TestSessionManager_RejectsGarbage(t *testing.T) {
	manager := NewSessionManager(testConfig())

	for _, token := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		if _, err := manager.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}
