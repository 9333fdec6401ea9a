package game

import (
	"log/slog"
	"sync/atomic"
)

// Router fans global events out to every registered player's mailbox. One
// long-lived goroutine consumes the event channel; a full or closed mailbox
// costs that player the event but never stalls delivery to anyone else.
type Router struct {
	state     *State
	events    <-chan Event
	log       *slog.Logger
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewRouter wires a router over the global event channel.
func NewRouter(state *State, events <-chan Event, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		state:  state,
		events: events,
		log:    log.With("component", "router"),
	}
}

// Run consumes events until the channel is closed. Each event is delivered
// at most once per player registered at the moment of fan-out.
func (r *Router) Run() {
	for ev := range r.events {
		for _, sub := range r.state.subscribers() {
			if sub.mailbox.TryPut(Delivery{Player: sub.name, Event: ev}) {
				r.delivered.Add(1)
				continue
			}
			r.dropped.Add(1)
			r.log.Warn("dropped event for player", "player", sub.name, "event", string(ev.Kind))
		}
	}
	r.log.Info("router stopped", "delivered", r.delivered.Load(), "dropped", r.dropped.Load())
}

// Delivered returns how many per-player deliveries have succeeded.
func (r *Router) Delivered() uint64 { return r.delivered.Load() }

// Dropped returns how many per-player deliveries were discarded.
func (r *Router) Dropped() uint64 { return r.dropped.Load() }
