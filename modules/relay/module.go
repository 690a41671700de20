package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/social-realtime-hub/events"
	"github.com/example/social-realtime-hub/modules/hub"
)

// Module bridges external pollers into topic rooms. A tick is never
// persisted; subscribers who were offline simply miss it.
type Module struct {
	eventBus mono.EventBus

	ticks    atomic.Uint64
	rejected atomic.Uint64
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the relay module.
func NewModule() *Module {
	return &Module{}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TopicTickV1.ToBase(),
	}
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[relay] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[relay] Module stopped")
	return nil
}

// Health reports tick counters.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"ticks_accepted": m.ticks.Load(),
			"ticks_rejected": m.rejected.Load(),
		},
	}
}

// RegisterServices registers the tick service.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "tick", json.Unmarshal, json.Marshal, m.tick,
	); err != nil {
		return fmt.Errorf("failed to register tick service: %w", err)
	}

	log.Println("[relay] Registered services: services.relay.tick")
	return nil
}

// tick validates the topic and publishes the update. Personal rooms are
// not reachable through the relay; callers wanting a per-user push go
// through notifications instead.
func (m *Module) tick(_ context.Context, req TickRequest, _ *mono.Msg) (TickResponse, error) {
	if req.Topic == "" {
		return TickResponse{}, ErrEmptyTopic
	}
	if req.Event == "" {
		return TickResponse{}, ErrEmptyEvent
	}
	if !hub.IsTopicRoom(req.Topic) {
		m.rejected.Add(1)
		return TickResponse{}, fmt.Errorf("%w: %s", ErrUnknownTopic, req.Topic)
	}

	event := events.TopicTickEvent{
		Topic:   req.Topic,
		Event:   req.Event,
		Payload: req.Payload,
	}
	if err := events.TopicTickV1.Publish(m.eventBus, event, nil); err != nil {
		return TickResponse{}, fmt.Errorf("failed to publish tick: %w", err)
	}

	m.ticks.Add(1)
	return TickResponse{Accepted: true}, nil
}
