package hub

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/social-realtime-hub/events"
)

// Event names pushed over the wire.
const (
	EventPresenceChanged = "presence_changed"
	EventDirectMessage   = "message"
	EventGroupMessage    = "new_group_message"
	EventNotification    = "notification"
)

// Module exposes the hub to the rest of the application and consumes the
// domain events that need live fan-out. Durable writes happen upstream in
// the emitting modules, so by the time a consumer runs here the
// corresponding REST read already reflects the data.
type Module struct {
	hub *Hub
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the hub module.
func NewModule() *Module {
	return &Module{hub: New()}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "hub"
}

// Hub returns the connection registry and room bus.
func (m *Module) Hub() *Hub {
	return m.hub
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[hub] Module started")
	return nil
}

// Stop closes every live connection.
func (m *Module) Stop(_ context.Context) error {
	n := m.hub.ClientCount()
	m.hub.CloseAll()
	log.Printf("[hub] Module stopped, closed %d connections", n)
	return nil
}

// Health reports live connection and room counts.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections": m.hub.ClientCount(),
			"rooms":       m.hub.RoomCount(),
		},
	}
}

// RegisterEventConsumers subscribes the hub to every event that fans out to
// live connections.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.PresenceChangedV1, m.handlePresenceChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register PresenceChanged consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.DirectMessageSentV1, m.handleDirectMessage, m,
	); err != nil {
		return fmt.Errorf("failed to register DirectMessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.GroupMessageSentV1, m.handleGroupMessage, m,
	); err != nil {
		return fmt.Errorf("failed to register GroupMessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.NotificationCreatedV1, m.handleNotification, m,
	); err != nil {
		return fmt.Errorf("failed to register NotificationCreated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.TopicTickV1, m.handleTopicTick, m,
	); err != nil {
		return fmt.Errorf("failed to register TopicTick consumer: %w", err)
	}

	log.Println("[hub] Registered event consumers: PresenceChanged, DirectMessageSent, GroupMessageSent, NotificationCreated, TopicTick")
	return nil
}

func (m *Module) handlePresenceChanged(_ context.Context, event events.PresenceChangedEvent, _ *mono.Msg) error {
	m.hub.Broadcast(EventPresenceChanged, event)
	return nil
}

func (m *Module) handleDirectMessage(_ context.Context, event events.DirectMessageSentEvent, _ *mono.Msg) error {
	m.hub.Publish(PersonalRoom(event.RecipientID), EventDirectMessage, event)
	return nil
}

func (m *Module) handleGroupMessage(_ context.Context, event events.GroupMessageSentEvent, _ *mono.Msg) error {
	m.hub.Publish(GlobalChatRoom, EventGroupMessage, event)
	return nil
}

func (m *Module) handleNotification(_ context.Context, event events.NotificationCreatedEvent, _ *mono.Msg) error {
	m.hub.Publish(PersonalRoom(event.RecipientID), EventNotification, event)
	return nil
}

// handleTopicTick forwards an opaque poller payload verbatim to its topic
// room.
func (m *Module) handleTopicTick(_ context.Context, event events.TopicTickEvent, _ *mono.Msg) error {
	if !IsTopicRoom(event.Topic) {
		log.Printf("[hub] Ignoring tick for unknown topic %q", event.Topic)
		return nil
	}
	m.hub.Publish(event.Topic, event.Event, event.Payload)
	return nil
}
