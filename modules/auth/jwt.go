package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token is malformed, mis-signed
	// or otherwise unusable.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("session token has expired")
)

// SessionConfig holds session token configuration.
type SessionConfig struct {
	SecretKey     string
	TokenDuration time.Duration
	Issuer        string
}

// DefaultSessionConfig returns the default configuration. The secret key is
// expected to be overridden from SESSION_SECRET in production.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SecretKey:     "change-me-in-production",
		TokenDuration: 24 * time.Hour,
		Issuer:        "social-realtime-hub",
	}
}

// SessionClaims are the custom claims carried by a session token. The
// login flow that mints these tokens (wallet signature verification) lives
// in the account service; the hub only verifies them.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Wallet string `json:"wallet,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager verifies and mints HS256 session tokens.
type SessionManager struct {
	config SessionConfig
}

// NewSessionManager creates a SessionManager with the given configuration.
func NewSessionManager(config SessionConfig) *SessionManager {
	return &SessionManager{config: config}
}

// Generate mints a session token for the given user.
func (m *SessionManager) Generate(userID, wallet string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID: userID,
		Wallet: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// Verify validates a session token and returns its claims. The user id in
// the claims is the only identity a connection may bind to.
func (m *SessionManager) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
