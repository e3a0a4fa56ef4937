package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// subscriberBuffer is the per-subscriber channel depth.  A subscriber that
// cannot drain this many pending events loses the overflow; delivery is
// at-most-once by contract, so dropping beats blocking the dispatch path.
const subscriberBuffer = 32

// Subscription is one connection's membership in a room.  Events arrive on
// C in emission order.  Close must be called exactly once, when the
// connection leaves the room or goes away.
type Subscription struct {
	room string
	ch   chan Envelope
	hub  *Hub
	once sync.Once
}

// C returns the channel delivering the room's events.  The channel is
// closed after Close.
func (s *Subscription) C() <-chan Envelope { return s.ch }

// Close removes the subscription from its room and closes the channel.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s) })
}

// Hub is the in-process fan-out point.  Each room is a set of subscriber
// channels; publishing walks the set under the room lock, which is the
// single dispatch point that gives every subscriber the same emission
// order.  No ordering is guaranteed across rooms.  The hub holds no state
// about past events: a late joiner gets nothing until it asks (snapshot,
// status query) per the subsystem's at-most-once design.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscription]struct{}
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Subscription]struct{})}
}

// Subscribe adds a new member to the given room and returns its
// subscription handle.
func (h *Hub) Subscribe(room string) *Subscription {
	sub := &Subscription{room: room, ch: make(chan Envelope, subscriberBuffer), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Subscription]struct{})
		h.rooms[room] = members
	}
	members[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[sub.room]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.rooms, sub.room)
		}
	}
	close(sub.ch)
}

// Publish marshals payload and delivers it to every current member of the
// room.  Slow subscribers whose buffer is full are skipped rather than
// waited for.  Marshal failures are programming errors on the payload
// types; they are logged and the event is dropped.
func (h *Hub) Publish(room, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("realtime: marshal %s event failed: %v", event, err)
		return
	}
	h.deliver(Envelope{Room: room, Event: event, Data: data})
}

// deliver hands an already-encoded envelope to the room's members.  Also
// the entry point for envelopes relayed from other server instances.  The
// exclusive lock serializes concurrent publishes so every member of a room
// observes the same emission order.
func (h *Hub) deliver(env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.rooms[env.Room] {
		select {
		case sub.ch <- env:
		default:
			// Buffer full: at-most-once permits the drop.
		}
	}
}

// RoomSize reports the current number of subscribers in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
