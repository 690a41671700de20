package wsserver

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	redisstorage "github.com/gofiber/storage/redis/v3"

	"github.com/example/social-realtime-hub/modules/auth"
	"github.com/example/social-realtime-hub/modules/hub"
	"github.com/example/social-realtime-hub/modules/messaging"
	"github.com/example/social-realtime-hub/modules/notify"
	"github.com/example/social-realtime-hub/modules/presence"
	"github.com/example/social-realtime-hub/modules/relay"
)

// Module is the outer transport: one Fiber app serving the WebSocket
// endpoint, the REST API and the health probe. Domain work happens in the
// modules behind the service container; this module only authenticates,
// validates shape and translates.
type Module struct {
	app      *fiber.App
	handlers *Handlers
	addr     string

	hubModule      *hub.Module
	presenceModule *presence.Module

	authPort      auth.AuthPort
	messagingPort messaging.MessagingPort
	notifyPort    notify.NotifyPort
	presencePort  presence.PresencePort
	relayPort     relay.RelayPort
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the transport module. The hub and presence modules are
// passed directly: Admit, Drop, Bind and Release are connection lifecycle
// calls, not request-reply services.
func NewModule(hubModule *hub.Module, presenceModule *presence.Module) *Module {
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return &Module{
		addr:           addr,
		hubModule:      hubModule,
		presenceModule: presenceModule,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ws-server"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"auth", "messaging", "notify", "presence", "relay"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authPort = auth.NewAdapter(container)
	case "messaging":
		m.messagingPort = messaging.NewAdapter(container)
	case "notify":
		m.notifyPort = notify.NewAdapter(container)
	case "presence":
		m.presencePort = presence.NewAdapter(container)
	case "relay":
		m.relayPort = relay.NewAdapter(container)
	}
}

// Start initializes and starts the server.
func (m *Module) Start(_ context.Context) error {
	if m.authPort == nil || m.messagingPort == nil || m.notifyPort == nil ||
		m.presencePort == nil || m.relayPort == nil {
		return fmt.Errorf("module dependencies not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "social-realtime-hub",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization,X-Api-Key",
	}))

	m.handlers = NewHandlers(
		m.hubModule.Hub(),
		m.presenceModule,
		m.authPort,
		m.messagingPort,
		m.notifyPort,
		m.presencePort,
		m.relayPort,
	)

	m.registerRoutes()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[ws-server] Listening on %s", m.addr)
	return nil
}

// Stop gracefully shuts down the server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	log.Println("[ws-server] Stopped")
	return nil
}

// Health reports the transport status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr": m.addr,
		},
	}
}

// registerRoutes sets up all HTTP and WebSocket routes.
func (m *Module) registerRoutes() {
	m.app.Get("/health", m.handlers.HealthCheck)

	// WebSocket upgrade gate.
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))

	api := m.app.Group("/api/v1", m.apiLimiter())

	// Tick intake for backend pollers, keyed rather than user-authenticated.
	api.Post("/topics/:topic/tick", RelayKeyMiddleware(), m.handlers.PostTopicTick)

	authed := api.Group("", AuthMiddleware(m.authPort))

	authed.Post("/messages", m.handlers.SendDirectMessage)
	authed.Get("/messages/unread-count", m.handlers.GetUnreadCount)
	authed.Post("/messages/:id/read", m.handlers.MarkMessageRead)
	authed.Delete("/messages/:id", m.handlers.DeleteDirectMessage)
	authed.Get("/conversations/:peerID", m.handlers.GetConversation)
	authed.Post("/conversations/:peerID/read", m.handlers.MarkConversationRead)

	authed.Get("/chat/history", m.handlers.GetChatHistory)
	authed.Post("/chat/messages", m.handlers.SendGroupMessage)
	authed.Post("/chat/seen", m.handlers.MarkChatSeen)
	authed.Delete("/chat/messages/:id", m.handlers.DeleteGroupMessage)

	authed.Get("/notifications", m.handlers.ListNotifications)
	authed.Post("/notifications", m.handlers.CreateNotification)
	authed.Post("/notifications/:id/read", m.handlers.MarkNotificationRead)
	authed.Post("/notifications/read-all", m.handlers.MarkAllNotificationsRead)

	authed.Get("/presence/online", m.handlers.ListOnlineUsers)
	authed.Get("/presence/:userID", m.handlers.GetPresence)
}

// apiLimiter builds the REST rate limiter. With REDIS_ADDR set the counters
// live in Redis so limits hold across instances; otherwise they are
// per-process.
func (m *Module) apiLimiter() fiber.Handler {
	cfg := limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate_limited",
			})
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		host, port := parseRedisAddr(addr)
		cfg.Storage = redisstorage.New(redisstorage.Config{
			Host: host,
			Port: port,
		})
		log.Printf("[ws-server] Rate limit counters in Redis at %s", addr)
	}

	return limiter.New(cfg)
}

// parseRedisAddr parses "host:port", falling back to localhost defaults.
func parseRedisAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "127.0.0.1", 6379
	}
	if host == "" {
		host = "127.0.0.1"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6379
	}
	return host, port
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	log.Printf("[ws-server] HTTP error %d: %v", code, err)

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
