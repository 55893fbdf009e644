// Package fanout delivers change-event wake-up signals to every device
// currently viewing a session.  It owns the subscriber registry: the
// coordinator publishes an event kind and never learns who, if anyone,
// receives it.  Delivery is at-least-once with no ordering guarantee
// beyond the coordinator's per-session serialization; clients treat
// every frame as a freshness signal and re-fetch state.
package fanout

import (
	"context"
	"encoding/json"
	"log"

	"github.com/easycheck/easycheck/internal/event"
)

// envelope is one event addressed to a session's subscriber group.
type envelope struct {
	sessionID string
	payload   []byte
}

// Hub routes events to per-session subscriber sets.  All registry
// mutations happen on the Run goroutine, so no locking is needed.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan envelope
	sessions   map[string]map[*client]bool
	// done is closed when Run exits so pumps and Serve calls never
	// block on a registry nobody drains anymore.
	done chan struct{}
}

// NewHub returns a Hub; callers must start Run before serving clients.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan envelope, 256),
		sessions:   make(map[string]map[*client]bool),
		done:       make(chan struct{}),
	}
}

// wireEvent is the frame format: the kind of change and the session it
// happened in, nothing more.
type wireEvent struct {
	Type      event.Type `json:"type"`
	SessionID string     `json:"session_id"`
}

// Publish enqueues an event for every subscriber of the session.  It
// never blocks the caller: if the hub's queue is full the signal is
// dropped, which a re-fetching client tolerates by design of the
// event contract.
func (h *Hub) Publish(sessionID string, t event.Type) {
	payload, err := json.Marshal(wireEvent{Type: t, SessionID: sessionID})
	if err != nil {
		log.Printf("fanout: marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- envelope{sessionID: sessionID, payload: payload}:
	default:
		log.Printf("fanout: broadcast queue full, dropping %s for session %s", t, sessionID)
	}
}

// Run owns the subscriber registry until ctx is cancelled.  A client
// whose send buffer is full is dropped rather than allowed to stall the
// fanout; it can reconnect and re-fetch.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, group := range h.sessions {
				for c := range group {
					close(c.send)
				}
			}
			return
		case c := <-h.register:
			group, ok := h.sessions[c.sessionID]
			if !ok {
				group = make(map[*client]bool)
				h.sessions[c.sessionID] = group
			}
			group[c] = true
		case c := <-h.unregister:
			if group, ok := h.sessions[c.sessionID]; ok {
				if group[c] {
					delete(group, c)
					close(c.send)
				}
				if len(group) == 0 {
					delete(h.sessions, c.sessionID)
				}
			}
		case env := <-h.broadcast:
			for c := range h.sessions[env.sessionID] {
				select {
				case c.send <- env.payload:
				default:
					delete(h.sessions[env.sessionID], c)
					close(c.send)
				}
			}
		}
	}
}
