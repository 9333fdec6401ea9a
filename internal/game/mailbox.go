package game

import (
	"sync"
	"sync/atomic"
)

// MailboxCapacity is the bound on each player's outbound delivery queue.
const MailboxCapacity = 250

// Mailbox is a player's bounded, ordered delivery queue for outbound events.
// Producers use TryPut and never block; the player's writer goroutine drains
// C() until the mailbox is closed.
type Mailbox struct {
	mu      sync.RWMutex
	ch      chan Delivery
	closed  bool
	dropped atomic.Uint64
}

// NewMailbox returns a mailbox with the given capacity; capacity <= 0 falls
// back to MailboxCapacity.
func NewMailbox(capacity int) *Mailbox {
	if capacity <= 0 {
		capacity = MailboxCapacity
	}
	return &Mailbox{ch: make(chan Delivery, capacity)}
}

// TryPut attempts a non-blocking delivery. It reports false, and counts the
// drop, when the mailbox is full or already closed.
func (m *Mailbox) TryPut(d Delivery) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.dropped.Add(1)
		return false
	}
	select {
	case m.ch <- d:
		return true
	default:
		m.dropped.Add(1)
		return false
	}
}

// C is the receive side drained by the owning writer goroutine. It is closed
// when the mailbox is closed; queued deliveries remain readable until then.
func (m *Mailbox) C() <-chan Delivery {
	return m.ch
}

// Close marks the mailbox closed and releases the draining writer. Safe to
// call more than once.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}

// Closed reports whether the mailbox has been closed.
func (m *Mailbox) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Dropped returns how many deliveries were discarded because the mailbox was
// full or closed.
func (m *Mailbox) Dropped() uint64 {
	return m.dropped.Load()
}
