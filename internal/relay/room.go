package relay

import (
	"net"
	"sync"
	"time"

	"github.com/postalsys/croc-go/internal/protocol"
)

// endpoint is one side of a paired room: the raw connection and the
// framer reading/writing it, preserved across negotiation so bridging
// never loses bytes already buffered by the framer's reader.
type endpoint struct {
	conn   net.Conn
	framer *protocol.Framer
}

// joinStatus reports the outcome of a RoomManager.join call.
type joinStatus int

const (
	joinCreated joinStatus = iota
	joinPaired
	joinFull
)

// Room pairs at most two endpoints under a shared room name. The first
// endpoint to arrive waits (receiving keepalive pings); the second
// triggers bridging and the room is immediately retired.
type Room struct {
	name    string
	created time.Time

	mu       sync.Mutex
	first    *endpoint
	second   *endpoint
	bridging bool
}

// RoomManager tracks rooms by name. The map lock is held only to look up
// or insert/remove a room; all mutation of a room's endpoints happens
// under that room's own lock, so a held room lock never blocks unrelated
// rooms. No room lock is held while a bridge runs.
type RoomManager struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRoomManager returns an empty RoomManager.
func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room)}
}

// join adds ep to the named room, creating it if absent. It reports
// whether ep became the room's first participant, its second (pairing
// the room), or found the room already paired.
func (m *RoomManager) join(name string, ep *endpoint) (joinStatus, *Room) {
	m.mu.Lock()
	room, ok := m.rooms[name]
	if !ok {
		room = &Room{name: name, created: time.Now(), first: ep}
		m.rooms[name] = room
		m.mu.Unlock()
		return joinCreated, room
	}
	m.mu.Unlock()

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.second != nil || room.bridging {
		return joinFull, room
	}
	room.second = ep
	return joinPaired, room
}

// remove drops a room from the map. Safe to call even if the room is
// already gone.
func (m *RoomManager) remove(name string) {
	m.mu.Lock()
	delete(m.rooms, name)
	m.mu.Unlock()
}

// Count returns the number of rooms currently tracked.
func (m *RoomManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// sweepExpired evicts unpaired rooms older than ttl and returns how many
// were removed.
func (m *RoomManager) sweepExpired(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for name, room := range m.rooms {
		room.mu.Lock()
		stale := room.second == nil && !room.bridging && time.Since(room.created) > ttl
		room.mu.Unlock()
		if stale {
			if room.first != nil {
				room.first.conn.Close()
			}
			delete(m.rooms, name)
			removed++
		}
	}
	return removed
}

// stillWaiting reports whether room has not yet paired or started
// bridging; used by the keepalive loop to decide whether to keep pinging.
func (r *Room) stillWaiting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.second == nil && !r.bridging
}

// takeForBridge marks the room as bridging and returns both endpoints.
// Only the goroutine that successfully paired the room (joinPaired) may
// call this, so it runs at most once per room.
func (r *Room) takeForBridge() (*endpoint, *endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bridging = true
	return r.first, r.second
}
