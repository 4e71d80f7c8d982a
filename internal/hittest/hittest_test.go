package hittest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

var (
	idA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	idB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	idC = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
)

func bubble(cx, cy, side float64) Rect {
	return RectCentered(Point{X: cx, Y: cy}, Size{Width: side, Height: side})
}

func TestRectIntersects(t *testing.T) {
	base := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	tests := []struct {
		name string
		o    Rect
		want bool
	}{
		{"overlap", Rect{X: 5, Y: 5, Width: 10, Height: 10}, true},
		{"contained", Rect{X: 2, Y: 2, Width: 2, Height: 2}, true},
		{"shared edge", Rect{X: 10, Y: 0, Width: 5, Height: 5}, false},
		{"disjoint", Rect{X: 20, Y: 20, Width: 1, Height: 1}, false},
		{"empty", Rect{X: 1, Y: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Intersects(tt.o); got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
			if got := tt.o.Intersects(base); got != tt.want {
				t.Errorf("Intersects() not symmetric")
			}
		})
	}
}

func TestRectInsetAndCenter(t *testing.T) {
	r := bubble(50, 60, 20).Inset(-24)
	if r.Width != 68 || r.Height != 68 {
		t.Errorf("inflated size = %vx%v", r.Width, r.Height)
	}
	if c := r.Center(); c != (Point{X: 50, Y: 60}) {
		t.Errorf("Center() = %v", c)
	}
}

func TestResolve(t *testing.T) {
	m := NewMatcher(Size{Width: 320, Height: 320})
	card := Point{X: 200, Y: 200}

	tests := []struct {
		name     string
		targets  map[uuid.UUID]Rect
		wantID   uuid.UUID
		wantRule Rule
		wantOK   bool
	}{
		{
			name:     "no targets",
			targets:  nil,
			wantRule: RuleNone,
		},
		{
			name:     "within snap radius",
			targets:  map[uuid.UUID]Rect{idA: bubble(200, 300, 20)},
			wantID:   idA,
			wantRule: RuleNearest,
			wantOK:   true,
		},
		{
			name:     "too far for either rule",
			targets:  map[uuid.UUID]Rect{idA: bubble(200, 400, 20)},
			wantRule: RuleNone,
		},
		{
			name:     "snap radius is inclusive",
			targets:  map[uuid.UUID]Rect{idA: bubble(320, 200, 10)},
			wantID:   idA,
			wantRule: RuleNearest,
			wantOK:   true,
		},
		{
			name: "nearest wins over farther",
			targets: map[uuid.UUID]Rect{
				idA: bubble(200, 310, 20),
				idB: bubble(200, 290, 20),
			},
			wantID:   idB,
			wantRule: RuleNearest,
			wantOK:   true,
		},
		{
			name:     "large target caught by inflated rect",
			targets:  map[uuid.UUID]Rect{idA: bubble(200, 460, 200)},
			wantID:   idA,
			wantRule: RuleIntersect,
			wantOK:   true,
		},
		{
			name:     "margin makes the difference",
			targets:  map[uuid.UUID]Rect{idA: bubble(200, 400, 60)},
			wantID:   idA,
			wantRule: RuleIntersect,
			wantOK:   true,
		},
		{
			name: "intersect picks closest centre",
			targets: map[uuid.UUID]Rect{
				idA: bubble(200, 470, 200),
				idB: bubble(200, 450, 200),
				idC: bubble(900, 900, 10),
			},
			wantID:   idB,
			wantRule: RuleIntersect,
			wantOK:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, rule, ok := m.Resolve(card, tt.targets)
			if ok != tt.wantOK || rule != tt.wantRule || id != tt.wantID {
				t.Errorf("Resolve() = %v, %v, %v; want %v, %v, %v", id, rule, ok, tt.wantID, tt.wantRule, tt.wantOK)
			}
		})
	}
}

func TestResolveTieBreakIsDeterministic(t *testing.T) {
	m := NewMatcher(Size{Width: 320, Height: 320})
	p := Point{X: 0, Y: 0}

	snap := map[uuid.UUID]Rect{
		idC: bubble(-50, 0, 10),
		idA: bubble(50, 0, 10),
		idB: bubble(0, 50, 10),
	}
	inflated := map[uuid.UUID]Rect{
		idB: bubble(-200, 0, 200),
		idA: bubble(200, 0, 200),
	}

	for i := 0; i < 50; i++ {
		if id, rule, _ := m.Resolve(p, snap); id != idA || rule != RuleNearest {
			t.Fatalf("snap tie resolved to %v via %v, want smallest ID", id, rule)
		}
		if id, rule, _ := m.Resolve(p, inflated); id != idA || rule != RuleIntersect {
			t.Fatalf("intersect tie resolved to %v via %v, want smallest ID", id, rule)
		}
	}
}

func TestNewMatcherDefaults(t *testing.T) {
	m := NewMatcher(Size{})
	if m.Card.Width != DefaultCardSide || m.SnapRadius != 120 || m.Margin != 24 {
		t.Errorf("NewMatcher() = %+v", m)
	}
}

func highlighted(h Hover) uuid.UUID {
	if h.Highlighted == nil {
		return uuid.Nil
	}
	return *h.Highlighted
}

func TestProximity(t *testing.T) {
	p := NewProximity()
	targets := map[uuid.UUID]Rect{
		idA: bubble(0, 0, 40),
		idB: bubble(300, 0, 40),
	}

	steps := []struct {
		name      string
		at        Point
		want      uuid.UUID
		wantOn    bool
		wantPulse bool
	}{
		{"far away", Point{X: 150, Y: 300}, uuid.Nil, false, false},
		{"enters A", Point{X: 80, Y: 0}, idA, true, true},
		{"stays near A", Point{X: 60, Y: 10}, idA, true, false},
		{"switches to B", Point{X: 220, Y: 0}, idB, true, true},
		{"leaves", Point{X: 150, Y: 200}, uuid.Nil, false, false},
		{"re-enters B", Point{X: 300, Y: 90}, idB, true, true},
	}
	for _, s := range steps {
		h := p.Update(s.at, targets)
		if highlighted(h) != s.want || h.Active != s.wantOn || h.Pulse != s.wantPulse {
			t.Fatalf("%s: Update() = %+v", s.name, h)
		}
	}

	p.Reset()
	if h := p.Update(Point{X: 300, Y: 90}, targets); !h.Pulse {
		t.Errorf("first highlight after Reset should pulse")
	}
	if h := p.Update(Point{}, nil); h.Active {
		t.Errorf("no targets must clear the highlight")
	}
}

func TestHoverJSONOmitsEmptyHighlight(t *testing.T) {
	p := NewProximity()

	raw, err := json.Marshal(p.Update(Point{X: 1000, Y: 1000}, map[uuid.UUID]Rect{idA: bubble(0, 0, 40)}))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(raw) != `{"active":false,"pulse":false}` {
		t.Errorf("idle hover = %s", raw)
	}

	raw, err = json.Marshal(p.Update(Point{X: 10, Y: 0}, map[uuid.UUID]Rect{idA: bubble(0, 0, 40)}))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(raw), `"highlighted":"`+idA.String()+`"`) {
		t.Errorf("active hover = %s", raw)
	}
}
