// Package realtime fans refresh events out to connected browsers.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LavishGent/boardcache/internal/types"
)

// Event types.
const (
	EventRefreshed     = "refreshed"
	EventRefreshFailed = "refresh_failed"
	EventState         = "state"
)

// Event describes one completed refresh attempt, or the current state when
// a client first connects.
type Event struct {
	At        time.Time `json:"at"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
	Type      string    `json:"type"`
	Outcome   string    `json:"outcome,omitempty"`
	Version   string    `json:"version,omitempty"`
	Error     string    `json:"error,omitempty"`
	Members   int       `json:"members"`
	ElapsedMs int64     `json:"elapsed_ms,omitempty"`
}

// EventFromResult converts a refresh result into an event.
func EventFromResult(r types.RefreshResult, at time.Time) Event {
	ev := Event{
		At:        at,
		Type:      EventRefreshed,
		Outcome:   r.Outcome.String(),
		FetchedAt: r.Snapshot.FetchedAt,
		Version:   r.Snapshot.Version(),
		Members:   r.Snapshot.Data.MemberCount(),
		ElapsedMs: r.Elapsed.Milliseconds(),
	}
	if r.Outcome != types.OutcomeSuccess {
		ev.Type = EventRefreshFailed
		ev.Error = r.Snapshot.Err
	}
	return ev
}

// StateEvent describes a snapshot without an attempt attached.
func StateEvent(snap types.Snapshot, at time.Time) Event {
	return Event{
		At:        at,
		Type:      EventState,
		FetchedAt: snap.FetchedAt,
		Version:   snap.Version(),
		Error:     snap.Err,
		Members:   snap.Data.MemberCount(),
	}
}

// Hub is a small pub/sub. Slow subscribers miss events rather than block
// the refresh that produced them.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	closed bool

	dropped atomic.Int64
}

func NewHub() *Hub { return &Hub{subs: map[int]chan Event{}} }

// Subscribe registers a receiver with the given buffer. After Close it
// returns an already closed channel.
func (h *Hub) Subscribe(buffer int) (int, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Event, buffer)
	if h.closed {
		close(ch)
		return 0, ch
	}
	h.next++
	id := h.next
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Broadcast delivers ev to every subscriber with buffer space.
func (h *Hub) Broadcast(_ context.Context, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Listener returns a refresh listener that broadcasts each attempt.
func (h *Hub) Listener() types.RefreshListener {
	return func(r types.RefreshResult) {
		h.Broadcast(context.Background(), EventFromResult(r, time.Now()))
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close ends every subscription. Handlers see their channel close and
// disconnect.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// MarshalJSON converts an event to the bytes sent on the wire.
func MarshalJSON(ev Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
