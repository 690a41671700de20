package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/social-realtime-hub/events"
	"github.com/example/social-realtime-hub/modules/cache"
	"github.com/example/social-realtime-hub/modules/store"
)

// Module is the presence registry: the refcounted live view plus the
// durable record, kept in step on every transition. Only the offline→online
// and online→offline edges persist and publish; a second device coming or
// going is invisible outside the refcount.
type Module struct {
	tracker *Tracker
	repo    *Repository
	cache   *cache.Cache

	storeModule *store.Module
	cacheModule *cache.Module
	eventBus    mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the presence module.
func NewModule(storeModule *store.Module, cacheModule *cache.Module) *Module {
	return &Module{
		tracker:     NewTracker(),
		storeModule: storeModule,
		cacheModule: cacheModule,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "presence"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.PresenceChangedV1.ToBase(),
	}
}

// Start runs migrations and wires the repository.
func (m *Module) Start(_ context.Context) error {
	db := m.storeModule.DB()
	if db == nil {
		return fmt.Errorf("store module not started")
	}
	if err := db.AutoMigrate(&PresenceRecord{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	m.repo = NewRepository(db)
	m.cache = m.cacheModule.GetCache()

	log.Println("[presence] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[presence] Module stopped")
	return nil
}

// Health reports the live view.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"online_users": m.tracker.OnlineCount(),
		},
	}
}

// RegisterServices registers presence read services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "get", json.Unmarshal, json.Marshal, m.getPresence,
	); err != nil {
		return fmt.Errorf("failed to register get service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-online", json.Unmarshal, json.Marshal, m.listOnline,
	); err != nil {
		return fmt.Errorf("failed to register list-online service: %w", err)
	}

	log.Println("[presence] Registered services: services.presence.{get,list-online}")
	return nil
}

// Bind records an authenticated connection for the user. On the
// offline→online edge it persists the durable flag first and publishes the
// presence change only after the write succeeded; a failed write rolls the
// refcount back so a retry can redo the transition.
func (m *Module) Bind(ctx context.Context, userID string) error {
	if !m.tracker.Bind(userID) {
		return nil
	}

	now := time.Now()
	if err := m.persist(ctx, userID, true, now); err != nil {
		m.tracker.Release(userID)
		return err
	}

	m.publishChange(userID, true, now)
	return nil
}

// Release records a dropped authenticated connection. Only the loss of the
// last connection marks the user offline.
func (m *Module) Release(ctx context.Context, userID string) error {
	if !m.tracker.Release(userID) {
		return nil
	}

	now := time.Now()
	if err := m.persist(ctx, userID, false, now); err != nil {
		// The live view already treats the user as offline; the stale
		// durable flag heals on their next transition. Publishing is
		// still withheld because the write did not land.
		return err
	}

	m.publishChange(userID, false, now)
	return nil
}

// IsOnline reports the live view of a user's presence.
func (m *Module) IsOnline(userID string) bool {
	return m.tracker.IsOnline(userID)
}

func (m *Module) persist(ctx context.Context, userID string, online bool, at time.Time) error {
	record := &PresenceRecord{
		UserID:     userID,
		IsOnline:   online,
		LastActive: at,
	}
	if err := m.repo.Upsert(record); err != nil {
		return err
	}
	if m.cache != nil {
		if err := m.cache.Delete(ctx, presenceKey(userID)); err != nil {
			log.Printf("[presence] Failed to invalidate cache for %s: %v", userID, err)
		}
	}
	return nil
}

func (m *Module) publishChange(userID string, online bool, at time.Time) {
	event := events.PresenceChangedEvent{
		UserID:     userID,
		IsOnline:   online,
		LastActive: at,
	}
	if err := events.PresenceChangedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[presence] Failed to publish PresenceChanged for %s: %v", userID, err)
	}
}

// getPresence handles the presence.get service request, cache-aside over
// the durable record.
func (m *Module) getPresence(ctx context.Context, req GetPresenceRequest, _ *mono.Msg) (GetPresenceResponse, error) {
	if req.UserID == "" {
		return GetPresenceResponse{}, fmt.Errorf("user_id is required")
	}

	if m.cache != nil {
		var cached GetPresenceResponse
		if hit, err := m.cache.Get(ctx, presenceKey(req.UserID), &cached); err == nil && hit {
			return cached, nil
		}
	}

	record, err := m.repo.FindByUser(req.UserID)
	if err != nil {
		if err == ErrNotFound {
			// Never seen: offline with no last-active time.
			return GetPresenceResponse{UserID: req.UserID, IsOnline: false}, nil
		}
		return GetPresenceResponse{}, err
	}

	resp := GetPresenceResponse{
		UserID:     record.UserID,
		IsOnline:   record.IsOnline,
		LastActive: record.LastActive,
	}
	if m.cache != nil {
		if err := m.cache.Set(ctx, presenceKey(req.UserID), resp); err != nil {
			log.Printf("[presence] Failed to cache presence for %s: %v", req.UserID, err)
		}
	}
	return resp, nil
}

// listOnline handles the presence.list-online service request.
func (m *Module) listOnline(_ context.Context, _ ListOnlineRequest, _ *mono.Msg) (ListOnlineResponse, error) {
	records, err := m.repo.ListOnline()
	if err != nil {
		return ListOnlineResponse{}, err
	}

	resp := ListOnlineResponse{Users: make([]GetPresenceResponse, 0, len(records))}
	for _, record := range records {
		resp.Users = append(resp.Users, GetPresenceResponse{
			UserID:     record.UserID,
			IsOnline:   record.IsOnline,
			LastActive: record.LastActive,
		})
	}
	resp.Total = len(resp.Users)
	return resp, nil
}

func presenceKey(userID string) string {
	return "presence:" + userID
}
