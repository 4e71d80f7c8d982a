package hittest

import (
	"bytes"

	"github.com/google/uuid"
)

// Default gesture constants, in layout units.
const (
	DefaultSnapRadius      = 120
	DefaultMargin          = 24
	DefaultProximityRadius = 100
	DefaultCardSide        = 320
)

// Rule names how a drop was resolved.
type Rule string

const (
	RuleNone      Rule = "none"
	RuleNearest   Rule = "nearest"
	RuleIntersect Rule = "intersect"
)

// Matcher resolves a released card to one target.
type Matcher struct {
	SnapRadius float64
	Margin     float64
	Card       Size
}

func NewMatcher(card Size) Matcher {
	if card.Width <= 0 || card.Height <= 0 {
		card = Size{Width: DefaultCardSide, Height: DefaultCardSide}
	}
	return Matcher{SnapRadius: DefaultSnapRadius, Margin: DefaultMargin, Card: card}
}

// Resolve picks the target for a card released with its centre at p.
//
// The nearest target centre within SnapRadius wins. Failing that, every
// target is grown by Margin and tested against the card rectangle; among
// those that overlap the closest centre wins. Equal distances go to the
// smallest ID. ok is false when nothing matched and the card must return to
// rest without categorizing.
func (m Matcher) Resolve(p Point, targets map[uuid.UUID]Rect) (id uuid.UUID, rule Rule, ok bool) {
	if len(targets) == 0 {
		return uuid.Nil, RuleNone, false
	}

	if id, d, found := nearest(p, targets, nil); found && d <= m.SnapRadius {
		return id, RuleNearest, true
	}

	card := RectCentered(p, m.Card)
	overlaps := func(r Rect) bool {
		return r.Inset(-m.Margin).Intersects(card)
	}
	if id, _, found := nearest(p, targets, overlaps); found {
		return id, RuleIntersect, true
	}
	return uuid.Nil, RuleNone, false
}

// nearest returns the target whose centre is closest to p among those
// accepted by keep (all when keep is nil). Ties go to the smallest ID.
func nearest(p Point, targets map[uuid.UUID]Rect, keep func(Rect) bool) (uuid.UUID, float64, bool) {
	var (
		best     uuid.UUID
		bestDist float64
		found    bool
	)
	for id, r := range targets {
		if keep != nil && !keep(r) {
			continue
		}
		d := p.Distance(r.Center())
		if !found || d < bestDist || (d == bestDist && bytes.Compare(id[:], best[:]) < 0) {
			best, bestDist, found = id, d, true
		}
	}
	return best, bestDist, found
}
