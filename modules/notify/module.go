package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/social-realtime-hub/events"
	"github.com/example/social-realtime-hub/modules/store"
)

// Module owns durable notifications. Creation persists first and publishes
// second; delivery failure never loses a notification because clients can
// always fetch the backlog.
type Module struct {
	repo *Repository

	storeModule *store.Module
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

// NewModule creates the notify module.
func NewModule(storeModule *store.Module) *Module {
	return &Module{storeModule: storeModule}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "notify"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.NotificationCreatedV1.ToBase(),
	}
}

// Start runs migrations and wires the repository.
func (m *Module) Start(_ context.Context) error {
	db := m.storeModule.DB()
	if db == nil {
		return fmt.Errorf("store module not started")
	}
	if err := db.AutoMigrate(&Notification{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	m.repo = NewRepository(db)

	log.Println("[notify] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[notify] Module stopped")
	return nil
}

// Health reports the module status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
	}
}

// RegisterServices registers the notification request-reply services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create", json.Unmarshal, json.Marshal, m.create,
	); err != nil {
		return fmt.Errorf("failed to register create service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "list", json.Unmarshal, json.Marshal, m.list,
	); err != nil {
		return fmt.Errorf("failed to register list service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "mark-read", json.Unmarshal, json.Marshal, m.markRead,
	); err != nil {
		return fmt.Errorf("failed to register mark-read service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "mark-all-read", json.Unmarshal, json.Marshal, m.markAllRead,
	); err != nil {
		return fmt.Errorf("failed to register mark-all-read service: %w", err)
	}

	log.Println("[notify] Registered services: services.notify.{create,list,mark-read,mark-all-read}")
	return nil
}
