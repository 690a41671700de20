package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestTick_RejectsBadRequests(t *testing.T) {
	m := NewModule()
	ctx := context.Background()

	tests := []struct {
		name    string
		req     TickRequest
		wantErr error
	}{
		{
			name:    "empty topic",
			req:     TickRequest{Event: "price_update"},
			wantErr: ErrEmptyTopic,
		},
		{
			name:    "empty event",
			req:     TickRequest{Topic: "crypto-updates"},
			wantErr: ErrEmptyEvent,
		},
		{
			name:    "unknown topic",
			req:     TickRequest{Topic: "weather-updates", Event: "tick"},
			wantErr: ErrUnknownTopic,
		},
		{
			name:    "personal room is not a topic",
			req:     TickRequest{Topic: "user-alice", Event: "tick"},
			wantErr: ErrUnknownTopic,
		},
		{
			name:    "global chat is not a topic",
			req:     TickRequest{Topic: "global-chat", Event: "tick"},
			wantErr: ErrUnknownTopic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.tick(ctx, tt.req, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("tick() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := m.rejected.Load(); got != 3 {
		t.Errorf("rejected counter = %d, want 3", got)
	}
}

func TestTick_PayloadForwardedOpaque(t *testing.T) {
	// The tick handler never inspects the payload beyond validation at
	// the transport; a nested blob must survive marshalling untouched.
	payload := json.RawMessage(`{"prices":{"BTC":64000.5},"ts":1735689600}`)
	req := TickRequest{Topic: "crypto-updates", Event: "price_update", Payload: payload}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded TickRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if string(decoded.Payload) != string(payload) {
		t.Errorf("payload changed in flight: %s", decoded.Payload)
	}
}
