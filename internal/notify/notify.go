// Package notify broadcasts "categorization changed" signals to whoever
// renders derived state. A signal carries no payload beyond a version: the
// listener refetches.
package notify

import (
	"sync"
	"time"

	"ssmartr/internal/log"
)

// Reasons attached to published events.
const (
	ReasonCategorized     = "categorized"
	ReasonUndo            = "undo"
	ReasonCategoryChanged = "category_changed"
	ReasonIgnored         = "ignored"
	ReasonSeeded          = "seeded"
	ReasonRemote          = "remote"
)

// Event is one change signal. Version increases by one per Publish.
type Event struct {
	Version   uint64    `json:"version"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is the sending half, used by the engine and services.
type Publisher interface {
	Publish(reason string) Event
}

// Notifier fans events out to subscribers. Delivery never blocks the
// publisher: each subscriber holds at most one pending event, and a newer
// event replaces an unread one.
type Notifier struct {
	mu      sync.Mutex
	version uint64
	nextID  uint64
	subs    map[uint64]*Subscription
	closed  bool
	logger  *log.Logger
	now     func() time.Time
}

var _ Publisher = (*Notifier)(nil)

func New(logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.Discard()
	}
	return &Notifier{
		subs:   map[uint64]*Subscription{},
		logger: logger.WithComponent(log.ComponentNotify),
		now:    time.Now,
	}
}

// Publish bumps the version and signals every live subscriber.
func (n *Notifier) Publish(reason string) Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.version++
	ev := Event{Version: n.version, Reason: reason, Timestamp: n.now()}
	if n.closed {
		return ev
	}
	for _, s := range n.subs {
		s.offer(ev)
	}
	n.logger.Debug("Published change",
		log.FieldVersion, ev.Version,
		log.FieldReason, reason,
		"subscribers", len(n.subs))
	return ev
}

// Version returns the number of events published so far.
func (n *Notifier) Version() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.version
}

// Subscribe registers a new listener. Subscribing after Close returns a
// subscription whose channel is already closed.
func (n *Notifier) Subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	s := &Subscription{id: n.nextID, ch: make(chan Event, 1), n: n}
	if n.closed {
		close(s.ch)
		s.done = true
		return s
	}
	n.subs[s.id] = s
	return s
}

// Close ends every subscription. Later publishes still bump the version.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for id, s := range n.subs {
		s.done = true
		close(s.ch)
		delete(n.subs, id)
	}
}

func (n *Notifier) remove(s *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	delete(n.subs, s.id)
	close(s.ch)
}

// Subscription is a single listener's view of the notifier.
type Subscription struct {
	id   uint64
	ch   chan Event
	n    *Notifier
	done bool // guarded by n.mu
}

// C delivers events. It is closed after Close on either side.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.n.remove(s)
}

// offer is called with n.mu held.
func (s *Subscription) offer(ev Event) {
	select {
	case s.ch <- ev:
		return
	default:
	}
	// Replace the stale pending event with the newer one.
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- ev:
	default:
	}
}
