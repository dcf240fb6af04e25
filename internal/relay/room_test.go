package relay

import (
	"net"
	"testing"
	"time"
)

func fakeEndpoint(t *testing.T) *endpoint {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return &endpoint{conn: a}
}

func TestJoinCreatesRoom(t *testing.T) {
	m := NewRoomManager()
	status, room := m.join("abc123", fakeEndpoint(t))
	if status != joinCreated {
		t.Fatalf("status = %v, want joinCreated", status)
	}
	if room.name != "abc123" {
		t.Errorf("room.name = %q, want abc123", room.name)
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestSecondJoinPairsRoom(t *testing.T) {
	m := NewRoomManager()
	m.join("room1", fakeEndpoint(t))
	status, room := m.join("room1", fakeEndpoint(t))
	if status != joinPaired {
		t.Fatalf("status = %v, want joinPaired", status)
	}
	if room.second == nil {
		t.Fatal("expected second endpoint to be set")
	}
}

func TestThirdJoinRejectedFull(t *testing.T) {
	m := NewRoomManager()
	m.join("room1", fakeEndpoint(t))
	m.join("room1", fakeEndpoint(t))
	status, _ := m.join("room1", fakeEndpoint(t))
	if status != joinFull {
		t.Fatalf("status = %v, want joinFull", status)
	}
}

func TestTakeForBridgeMarksBridging(t *testing.T) {
	m := NewRoomManager()
	m.join("room1", fakeEndpoint(t))
	_, room := m.join("room1", fakeEndpoint(t))

	first, second := room.takeForBridge()
	if first == nil || second == nil {
		t.Fatal("expected both endpoints from takeForBridge")
	}
	if room.stillWaiting() {
		t.Error("stillWaiting() = true after takeForBridge, want false")
	}

	status, _ := m.join("room1", fakeEndpoint(t))
	if status != joinFull {
		t.Errorf("join after bridging started = %v, want joinFull", status)
	}
}

func TestRemoveDropsRoom(t *testing.T) {
	m := NewRoomManager()
	m.join("room1", fakeEndpoint(t))
	m.remove("room1")
	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after remove", m.Count())
	}
}

func TestSweepExpiredEvictsStaleUnpairedRooms(t *testing.T) {
	m := NewRoomManager()
	m.join("stale", fakeEndpoint(t))

	removed := m.sweepExpired(0)
	if removed != 1 {
		t.Fatalf("sweepExpired() = %d, want 1", removed)
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after sweep", m.Count())
	}
}

func TestSweepExpiredKeepsFreshRooms(t *testing.T) {
	m := NewRoomManager()
	m.join("fresh", fakeEndpoint(t))

	removed := m.sweepExpired(time.Hour)
	if removed != 0 {
		t.Fatalf("sweepExpired() = %d, want 0", removed)
	}
}

func TestSweepExpiredSparesPairedRooms(t *testing.T) {
	m := NewRoomManager()
	m.join("paired", fakeEndpoint(t))
	m.join("paired", fakeEndpoint(t))

	removed := m.sweepExpired(0)
	if removed != 0 {
		t.Fatalf("sweepExpired() = %d, want 0 for a paired room", removed)
	}
}
