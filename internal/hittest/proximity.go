package hittest

import (
	"sync"

	"github.com/google/uuid"
)

// Hover is the highlight state while dragging. Highlighted is nil when no
// target is near. Pulse is true only on the update where a new target first
// becomes highlighted.
type Hover struct {
	Highlighted *uuid.UUID `json:"highlighted,omitempty"`
	Active      bool      `json:"active"`
	Pulse       bool      `json:"pulse"`
}

// Proximity tracks which target a drag is hovering near. It never affects
// how a drop resolves.
type Proximity struct {
	Radius float64

	mu      sync.Mutex
	current uuid.UUID
	active  bool
}

func NewProximity() *Proximity {
	return &Proximity{Radius: DefaultProximityRadius}
}

// Update moves the drag to p and returns the new hover state.
func (t *Proximity) Update(p Point, targets map[uuid.UUID]Rect) Hover {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, d, found := nearest(p, targets, nil)
	if !found || d > t.Radius {
		t.current, t.active = uuid.Nil, false
		return Hover{}
	}

	pulse := !t.active || t.current != id
	t.current, t.active = id, true
	return Hover{Highlighted: &id, Active: true, Pulse: pulse}
}

// Reset clears the state when the drag ends.
func (t *Proximity) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current, t.active = uuid.Nil, false
}
