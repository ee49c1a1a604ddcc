// Package hub implements the in-process event broker.
// It is transport-agnostic: subscribers register, receive events through a
// non-blocking Send, and any component may publish. The classifier and the
// save orchestrator publish; the notifier, the recent-files recorder and the
// IPC status handler subscribe.
package hub

import (
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/clipsave/internal/content"
)

// Type identifies the kind of event.
type Type string

const (
	TypeContentChanged    Type = "content-changed"
	TypeMonitoringStarted Type = "monitoring-started"
	TypeMonitoringStopped Type = "monitoring-stopped"
	TypeSaveCompleted     Type = "save-completed"
	TypeSaveFailed        Type = "save-failed"
)

// Event is a single notification delivered to subscribers.
type Event struct {
	Type Type
	At   time.Time

	// TypeContentChanged
	Snapshot content.Snapshot

	// TypeSaveCompleted
	Path string

	// TypeSaveFailed
	Err error
}

// Subscriber is anything that can receive events from the hub.
type Subscriber interface {
	ID() string
	// Send delivers an event to the subscriber. Must be non-blocking.
	Send(Event)
}

// Filter is an optional interface a Subscriber may implement to receive only
// some event types. An empty Accepts means everything.
type Filter interface {
	Subscriber
	Accepts() []Type
}

// Hub routes events between publishers and all registered subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]Subscriber
	latest *Event // most recent TypeContentChanged
	log    *slog.Logger
}

// New returns an empty Hub. A nil logger uses slog.Default().
func New(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		subs: make(map[string]Subscriber),
		log:  log.With("component", "hub"),
	}
}

// Register adds a subscriber and immediately delivers the latest
// content-changed event, if any, so late subscribers see current state.
func (h *Hub) Register(s Subscriber) {
	h.mu.Lock()
	h.subs[s.ID()] = s
	latest := h.latest
	total := len(h.subs)
	h.mu.Unlock()

	h.log.Debug("subscriber registered", "subscriber", s.ID(), "total", total)

	if latest != nil && accepts(s, latest.Type) {
		s.Send(*latest)
	}
}

// Unregister removes a subscriber.
func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	delete(h.subs, s.ID())
	total := len(h.subs)
	h.mu.Unlock()

	h.log.Debug("subscriber unregistered", "subscriber", s.ID(), "total", total)
}

// Publish fans ev out to every subscriber that accepts its type. A zero At is
// stamped with the current time.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.Lock()
	if ev.Type == TypeContentChanged {
		latest := ev
		h.latest = &latest
	}
	targets := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		if accepts(s, ev.Type) {
			targets = append(targets, s)
		}
	}
	h.mu.Unlock()

	LogEvent(h.log, ev)

	for _, s := range targets {
		s.Send(ev)
	}
}

// Latest returns the most recent content-changed event.
func (h *Hub) Latest() (Event, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return Event{}, false
	}
	return *h.latest, true
}

// Subscribers returns the IDs of all registered subscribers.
func (h *Hub) Subscribers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.subs))
	for id := range h.subs {
		out = append(out, id)
	}
	return out
}

func accepts(s Subscriber, t Type) bool {
	f, ok := s.(Filter)
	if !ok {
		return true
	}
	types := f.Accepts()
	if len(types) == 0 {
		return true
	}
	for _, a := range types {
		if a == t {
			return true
		}
	}
	return false
}
