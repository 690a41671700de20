package presence

import (
	"sync"
	"testing"
)

func TestTracker_SingleSession(t *testing.T) {
	tracker := NewTracker()

	if !tracker.Bind("alice") {
		t.Error("first Bind() = false, want true (offline→online)")
	}
	if !tracker.IsOnline("alice") {
		t.Error("IsOnline() = false after bind, want true")
	}
	if !tracker.Release("alice") {
		t.Error("last Release() = false, want true (online→offline)")
	}
	if tracker.IsOnline("alice") {
		t.Error("IsOnline() = true after last release, want false")
	}
}

func TestTracker_MultiDevice(t *testing.T) {
	tracker := NewTracker()

	// Two devices authenticate as the same user.
	if !tracker.Bind("alice") {
		t.Error("first Bind() = false, want true")
	}
	if tracker.Bind("alice") {
		t.Error("second Bind() = true, want false (already online)")
	}
	if got := tracker.Sessions("alice"); got != 2 {
		t.Errorf("Sessions() = %d, want 2", got)
	}

	// One device drops: still online.
	if tracker.Release("alice") {
		t.Error("Release() with one session remaining = true, want false")
	}
	if !tracker.IsOnline("alice") {
		t.Error("IsOnline() = false with one session remaining, want true")
	}

	// Last device drops: offline.
	if !tracker.Release("alice") {
		t.Error("last Release() = false, want true")
	}
	if tracker.IsOnline("alice") {
		t.Error("IsOnline() = true after last release, want false")
	}
}

func TestTracker_ReleaseUnboundIsNoOp(t *testing.T) {
	tracker := NewTracker()

	if tracker.Release("ghost") {
		t.Error("Release() of unbound user = true, want false")
	}
	if tracker.IsOnline("ghost") {
		t.Error("IsOnline() = true for unbound user, want false")
	}
}

func TestTracker_IndependentUsers(t *testing.T) {
	tracker := NewTracker()

	tracker.Bind("alice")
	tracker.Bind("bob")

	if got := tracker.OnlineCount(); got != 2 {
		t.Errorf("OnlineCount() = %d, want 2", got)
	}

	tracker.Release("alice")
	if tracker.IsOnline("alice") {
		t.Error("alice should be offline")
	}
	if !tracker.IsOnline("bob") {
		t.Error("bob should still be online")
	}
}

func TestTracker_ConcurrentBindRelease(t *testing.T) {
	tracker := NewTracker()

	const sessions = 64
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Bind("alice")
		}()
	}
	wg.Wait()

	if got := tracker.Sessions("alice"); got != sessions {
		t.Fatalf("Sessions() = %d, want %d", got, sessions)
	}

	transitions := 0
	var mu sync.Mutex
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.Release("alice") {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if transitions != 1 {
		t.Errorf("online→offline transitions = %d, want exactly 1", transitions)
	}
	if tracker.IsOnline("alice") {
		t.Error("IsOnline() = true after all releases, want false")
	}
}
