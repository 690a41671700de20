package cache

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * time.Second

// Module manages the Redis connection behind the Cache. Redis is optional:
// with no REDIS_ADDR configured the module starts disabled and GetCache
// returns nil, which every consumer treats as "no cache".
type Module struct {
	client    *redis.Client
	cache     *Cache
	redisAddr string
	prefix    string
	ttl       time.Duration
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the cache module, reading REDIS_ADDR from the
// environment.
func NewModule() *Module {
	return &Module{
		redisAddr: os.Getenv("REDIS_ADDR"),
		prefix:    "hub:",
		ttl:       defaultTTL,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "cache"
}

// GetCache returns the cache, or nil when Redis is not configured.
func (m *Module) GetCache() *Cache {
	return m.cache
}

// Start connects to Redis when configured.
func (m *Module) Start(_ context.Context) error {
	if m.redisAddr == "" {
		log.Println("[cache] REDIS_ADDR not set, cache disabled")
		return nil
	}

	m.client = redis.NewClient(&redis.Options{
		Addr:         m.redisAddr,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := m.client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m.cache = New(m.client, m.prefix, m.ttl)
	log.Printf("[cache] Connected to Redis at %s (prefix: %s, TTL: %s)", m.redisAddr, m.prefix, m.ttl)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			return fmt.Errorf("failed to close Redis connection: %w", err)
		}
	}
	log.Println("[cache] Module stopped")
	return nil
}

// Health pings Redis when the cache is enabled.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.cache == nil {
		return mono.HealthStatus{Healthy: true, Message: "disabled"}
	}
	if err := m.cache.Ping(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}

	hits, misses, errs := m.cache.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"hits":   hits,
			"misses": misses,
			"errors": errs,
		},
	}
}
