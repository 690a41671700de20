package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"golang.org/x/sync/singleflight"

	"github.com/example/social-realtime-hub/events"
	"github.com/example/social-realtime-hub/modules/cache"
	"github.com/example/social-realtime-hub/modules/store"
)

// Module owns direct and group chat messages. Every send persists first
// and publishes second, so the fan-out layer never pushes a message that
// could not be found again.
type Module struct {
	repo        *Repository
	cache       *cache.Cache
	unreadGroup singleflight.Group

	storeModule *store.Module
	cacheModule *cache.Module
	eventBus    mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the messaging module.
func NewModule(storeModule *store.Module, cacheModule *cache.Module) *Module {
	return &Module{
		storeModule: storeModule,
		cacheModule: cacheModule,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "messaging"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.DirectMessageSentV1.ToBase(),
		events.GroupMessageSentV1.ToBase(),
	}
}

// Start runs migrations and wires the repository.
func (m *Module) Start(_ context.Context) error {
	db := m.storeModule.DB()
	if db == nil {
		return fmt.Errorf("store module not started")
	}
	if err := db.AutoMigrate(&DirectMessage{}, &ChatMessage{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	m.repo = NewRepository(db)
	m.cache = m.cacheModule.GetCache()

	log.Println("[messaging] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[messaging] Module stopped")
	return nil
}

// Health reports the module status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
	}
}

// RegisterServices registers the messaging request-reply services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	services := []struct {
		name     string
		register func() error
	}{
		{"send-direct", func() error {
			return helper.RegisterTypedRequestReplyService(container, "send-direct", json.Unmarshal, json.Marshal, m.sendDirect)
		}},
		{"conversation", func() error {
			return helper.RegisterTypedRequestReplyService(container, "conversation", json.Unmarshal, json.Marshal, m.conversation)
		}},
		{"mark-read", func() error {
			return helper.RegisterTypedRequestReplyService(container, "mark-read", json.Unmarshal, json.Marshal, m.markRead)
		}},
		{"mark-conversation-read", func() error {
			return helper.RegisterTypedRequestReplyService(container, "mark-conversation-read", json.Unmarshal, json.Marshal, m.markConversationRead)
		}},
		{"unread-count", func() error {
			return helper.RegisterTypedRequestReplyService(container, "unread-count", json.Unmarshal, json.Marshal, m.unreadCount)
		}},
		{"delete-direct", func() error {
			return helper.RegisterTypedRequestReplyService(container, "delete-direct", json.Unmarshal, json.Marshal, m.deleteDirect)
		}},
		{"send-group", func() error {
			return helper.RegisterTypedRequestReplyService(container, "send-group", json.Unmarshal, json.Marshal, m.sendGroup)
		}},
		{"history", func() error {
			return helper.RegisterTypedRequestReplyService(container, "history", json.Unmarshal, json.Marshal, m.history)
		}},
		{"mark-seen", func() error {
			return helper.RegisterTypedRequestReplyService(container, "mark-seen", json.Unmarshal, json.Marshal, m.markSeen)
		}},
		{"delete-group", func() error {
			return helper.RegisterTypedRequestReplyService(container, "delete-group", json.Unmarshal, json.Marshal, m.deleteGroup)
		}},
	}

	for _, s := range services {
		if err := s.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", s.name, err)
		}
	}

	log.Println("[messaging] Registered services: services.messaging.{send-direct,conversation,mark-read,mark-conversation-read,unread-count,delete-direct,send-group,history,mark-seen,delete-group}")
	return nil
}
