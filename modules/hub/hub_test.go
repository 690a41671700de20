package hub

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// fakeConn records frames the hub writes, in order.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	f.frames = append(f.frames, buf)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeConn) envelopes() []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]Envelope, 0, len(f.frames))
	for _, frame := range f.frames {
		var env Envelope
		if err := json.Unmarshal(frame, &env); err == nil {
			result = append(result, env)
		}
	}
	return result
}

// waitFrames waits until the write pump has delivered n frames.
func waitFrames(t *testing.T, fc *fakeConn, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for fc.count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d frames, got %d", n, fc.count())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHub_JoinLeaveMembership(t *testing.T) {
	h := New()
	c := h.Admit(&fakeConn{})

	h.Join(c.ID, "room-a")
	if got := h.Members("room-a"); len(got) != 1 || got[0] != c.ID {
		t.Fatalf("Members() = %v, want [%s]", got, c.ID)
	}

	// Joining twice is a no-op.
	h.Join(c.ID, "room-a")
	if got := h.Members("room-a"); len(got) != 1 {
		t.Errorf("Members() after double join = %v, want 1 member", got)
	}

	h.Leave(c.ID, "room-a")
	if got := h.Members("room-a"); len(got) != 0 {
		t.Errorf("Members() after leave = %v, want empty", got)
	}

	// Leaving a room never joined is a no-op, not an error.
	h.Leave(c.ID, "never-joined")

	// Empty rooms are garbage-collected.
	if got := h.RoomCount(); got != 0 {
		t.Errorf("RoomCount() = %d, want 0", got)
	}
}

func TestHub_DropLeavesAllRooms(t *testing.T) {
	h := New()
	c := h.Admit(&fakeConn{})
	h.Bind(c.ID, "user-1")
	h.Join(c.ID, "room-a")
	h.Join(c.ID, "room-b")

	userID := h.Drop(c.ID)
	if userID != "user-1" {
		t.Errorf("Drop() returned user %q, want %q", userID, "user-1")
	}

	if got := h.Members("room-a"); len(got) != 0 {
		t.Errorf("room-a still has members after drop: %v", got)
	}
	if got := h.Members("room-b"); len(got) != 0 {
		t.Errorf("room-b still has members after drop: %v", got)
	}
	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0", got)
	}
}

func TestHub_DropAnonymousConnection(t *testing.T) {
	h := New()
	c := h.Admit(&fakeConn{})
	h.Join(c.ID, GlobalChatRoom)

	if userID := h.Drop(c.ID); userID != "" {
		t.Errorf("Drop() returned user %q for anonymous connection, want empty", userID)
	}
}

func TestHub_FanOutExactlyOnce(t *testing.T) {
	h := New()

	conns := make([]*fakeConn, 5)
	for i := range conns {
		conns[i] = &fakeConn{}
		c := h.Admit(conns[i])
		h.Join(c.ID, GlobalChatRoom)
	}

	// A connection not joined at publish time never receives the push.
	outside := &fakeConn{}
	h.Admit(outside)

	h.Publish(GlobalChatRoom, "new_group_message", map[string]string{"body": "hello"})

	for i, fc := range conns {
		waitFrames(t, fc, 1)
		if got := fc.count(); got != 1 {
			t.Errorf("member %d received %d frames, want exactly 1", i, got)
		}
		envs := fc.envelopes()
		if envs[0].Event != "new_group_message" {
			t.Errorf("member %d event = %q, want new_group_message", i, envs[0].Event)
		}
	}

	time.Sleep(20 * time.Millisecond)
	if got := outside.count(); got != 0 {
		t.Errorf("non-member received %d frames, want 0", got)
	}
}

func TestHub_PublishOrderPerRoom(t *testing.T) {
	h := New()
	fc := &fakeConn{}
	c := h.Admit(fc)
	h.Join(c.ID, "room-a")

	for i := 0; i < 50; i++ {
		h.Publish("room-a", "tick", i)
	}
	waitFrames(t, fc, 50)

	for i, env := range fc.envelopes() {
		var n int
		raw, _ := json.Marshal(env.Data)
		if err := json.Unmarshal(raw, &n); err != nil || n != i {
			t.Fatalf("frame %d carries %v, want %d", i, env.Data, i)
		}
	}
}

func TestHub_PublishToEmptyRoomIsNoOp(t *testing.T) {
	h := New()
	// No members, no room: must not panic and must not create the room.
	h.Publish("crypto-updates", "crypto_update", map[string]string{"price": "1"})
	if got := h.RoomCount(); got != 0 {
		t.Errorf("RoomCount() = %d, want 0", got)
	}
}

func TestHub_PublishExceptSkipsAllSenderConnections(t *testing.T) {
	h := New()

	// Two devices for the sender, one for the recipient.
	senderA, senderB, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	ca := h.Admit(senderA)
	cb := h.Admit(senderB)
	co := h.Admit(other)
	h.Bind(ca.ID, "alice")
	h.Bind(cb.ID, "alice")
	h.Bind(co.ID, "bob")
	for _, c := range []*Client{ca, cb, co} {
		h.Join(c.ID, GlobalChatRoom)
	}

	h.PublishExcept(GlobalChatRoom, EventTypingIndicator, TypingIndicator{SenderID: "alice", IsTyping: true}, "alice")

	waitFrames(t, other, 1)
	time.Sleep(20 * time.Millisecond)
	if got := senderA.count(); got != 0 {
		t.Errorf("sender conn A received %d frames, want 0", got)
	}
	if got := senderB.count(); got != 0 {
		t.Errorf("sender conn B received %d frames, want 0", got)
	}
}

func TestHub_TypingAutoClearOnDrop(t *testing.T) {
	h := New()

	typerConn, watcherConn := &fakeConn{}, &fakeConn{}
	typer := h.Admit(typerConn)
	watcher := h.Admit(watcherConn)
	h.Bind(typer.ID, "alice")
	h.Bind(watcher.ID, "bob")
	h.Join(typer.ID, GlobalChatRoom)
	h.Join(watcher.ID, GlobalChatRoom)

	h.SetTyping(typer.ID, GlobalChatRoom, true)
	waitFrames(t, watcherConn, 1)

	// The typing connection drops without ever sending is_typing=false.
	h.Drop(typer.ID)
	waitFrames(t, watcherConn, 2)

	envs := watcherConn.envelopes()
	last := envs[len(envs)-1]
	if last.Event != EventTypingIndicator {
		t.Fatalf("last event = %q, want %q", last.Event, EventTypingIndicator)
	}
	raw, _ := json.Marshal(last.Data)
	var ind TypingIndicator
	if err := json.Unmarshal(raw, &ind); err != nil {
		t.Fatalf("failed to decode typing indicator: %v", err)
	}
	if ind.SenderID != "alice" || ind.IsTyping {
		t.Errorf("synthetic clear = %+v, want sender alice with is_typing=false", ind)
	}
}

func TestHub_TypingClearedExplicitlyNotReplayedOnDrop(t *testing.T) {
	h := New()

	typerConn, watcherConn := &fakeConn{}, &fakeConn{}
	typer := h.Admit(typerConn)
	watcher := h.Admit(watcherConn)
	h.Bind(typer.ID, "alice")
	h.Bind(watcher.ID, "bob")
	h.Join(typer.ID, GlobalChatRoom)
	h.Join(watcher.ID, GlobalChatRoom)

	h.SetTyping(typer.ID, GlobalChatRoom, true)
	h.SetTyping(typer.ID, GlobalChatRoom, false)
	waitFrames(t, watcherConn, 2)

	h.Drop(typer.ID)
	time.Sleep(20 * time.Millisecond)
	if got := watcherConn.count(); got != 2 {
		t.Errorf("watcher received %d frames, want 2 (no synthetic clear after explicit clear)", got)
	}
}

func TestHub_DropThenPublishExcludesConnection(t *testing.T) {
	h := New()

	fc := &fakeConn{}
	c := h.Admit(fc)
	h.Join(c.ID, "room-a")

	h.Drop(c.ID)
	h.Publish("room-a", "tick", 1)

	time.Sleep(20 * time.Millisecond)
	if got := fc.count(); got != 0 {
		t.Errorf("dropped connection received %d frames, want 0", got)
	}
}

func TestHub_BroadcastReachesUnjoinedConnections(t *testing.T) {
	h := New()

	fc := &fakeConn{}
	h.Admit(fc) // never joins any room

	h.Broadcast(EventPresenceChanged, map[string]any{"user_id": "alice", "is_online": true})
	waitFrames(t, fc, 1)
}

// blockingConn stalls every write until closed, simulating a client that
// stopped reading.
type blockingConn struct {
	done      chan struct{}
	closeOnce sync.Once
}

func newBlockingConn() *blockingConn {
	return &blockingConn{done: make(chan struct{})}
}

func (b *blockingConn) WriteMessage(int, []byte) error {
	<-b.done
	return nil
}

func (b *blockingConn) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}

func (b *blockingConn) isClosed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func TestHub_SlowConsumerIsClosed(t *testing.T) {
	h := New()

	bc := newBlockingConn()
	c := h.Admit(bc)
	h.Join(c.ID, "room-a")

	// Overflow the send buffer while the pump is stalled on the wire.
	for i := 0; i < sendBufferSize+2; i++ {
		h.Publish("room-a", "tick", i)
	}

	if !bc.isClosed() {
		t.Error("slow consumer connection was not closed")
	}
}

func TestRoomNames(t *testing.T) {
	if got := PersonalRoom("42"); got != "user-42" {
		t.Errorf("PersonalRoom() = %q, want user-42", got)
	}
	if got := QuestRoom("42"); got != "quest-42" {
		t.Errorf("QuestRoom() = %q, want quest-42", got)
	}

	for _, topic := range []string{GlobalChatRoom, "crypto-updates", "solana-updates", "fear-greed-updates", "graduated-tokens-updates", "quest-42"} {
		if !IsSubscribableTopic(topic) {
			t.Errorf("IsSubscribableTopic(%q) = false, want true", topic)
		}
	}
	if IsSubscribableTopic("user-42") {
		t.Error("IsSubscribableTopic(user-42) = true, personal rooms must not be subscribable")
	}

	if IsTopicRoom(GlobalChatRoom) {
		t.Error("IsTopicRoom(global-chat) = true, chat traffic must not come from tick producers")
	}
	if !IsTopicRoom("crypto-updates") || !IsTopicRoom("quest-42") {
		t.Error("IsTopicRoom() = false for valid tick targets")
	}
}
