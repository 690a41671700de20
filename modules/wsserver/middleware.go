package wsserver

import (
	"crypto/subtle"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/social-realtime-hub/modules/auth"
)

// IdentityContextKey is the key used to store the verified identity in the
// Fiber context.
const IdentityContextKey = "identity"

// AuthMiddleware creates a middleware that validates Bearer session tokens.
func AuthMiddleware(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header is required",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format. Use: Bearer <token>",
			})
		}

		identity, err := authPort.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(IdentityContextKey, identity)
		return c.Next()
	}
}

// RelayKeyMiddleware gates the tick intake behind a shared key. With no
// RELAY_API_KEY configured the intake is disabled outright.
func RelayKeyMiddleware() fiber.Handler {
	key := os.Getenv("RELAY_API_KEY")
	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "tick intake disabled",
			})
		}
		provided := c.Get("X-Api-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid api key",
			})
		}
		return c.Next()
	}
}

// identityFrom returns the verified identity stored by AuthMiddleware.
func identityFrom(c *fiber.Ctx) *auth.Identity {
	identity, _ := c.Locals(IdentityContextKey).(*auth.Identity)
	return identity
}
