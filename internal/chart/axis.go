package chart

import (
	"math"

	"depth-chart/internal/scene"
)

// Scale is the mapping contract the engine consumes; scale.Linear
// satisfies it. Domain returns the endpoints in declaration order, which
// may be descending.
type Scale interface {
	Scale(v float64) float64
	Invert(px float64) float64
	Domain() (float64, float64)
	Ticks(count int) []float64
	TickFormat(count int) func(float64) string
}

const (
	axisTickDensity = 200.0 // logical px of width per tick
	axisFontSize    = 11.0
	axisMarkLen     = 6.0
	axisLabelPad    = 10.0
)

// tickSlot is one arena entry: the retained label and mark nodes for a
// formatted tick string.
type tickSlot struct {
	key   string
	label *scene.Node
	mark  *scene.Node
}

// HorizontalAxis reconciles price tick marks and labels against a retained
// cache keyed by formatted label, so a tick whose label survives an update
// keeps its nodes and only moves.
type HorizontalAxis struct {
	container *scene.Node
	slots     []tickSlot
	index     map[string]int // formatted label -> arena slot
	free      []int
}

func NewHorizontalAxis(parent *scene.Node) *HorizontalAxis {
	c := scene.NewContainer()
	parent.AddChild(c)
	return &HorizontalAxis{container: c, index: make(map[string]int)}
}

// Len reports how many ticks are currently retained.
func (a *HorizontalAxis) Len() int { return len(a.index) }

// Node returns the retained label node for a formatted tick, or nil.
func (a *HorizontalAxis) Node(key string) *scene.Node {
	if i, ok := a.index[key]; ok {
		return a.slots[i].label
	}
	return nil
}

// Reconcile diffs the tick set for the current scale and viewport against
// the cache. domain, when non-nil, restricts which tick values are shown;
// the controller passes the visible window so edges stay clean mid-zoom.
func (a *HorizontalAxis) Reconcile(s Scale, width, height, resolution float64, domain *[2]float64) {
	count := int(math.Round(width / resolution / axisTickDensity))
	if count < 1 {
		count = 1
	}
	ticks := s.Ticks(count)
	format := s.TickFormat(count)

	// Desired set first, then the diff is applied in three passes.
	type entry struct {
		key string
		x   float64
	}
	desired := make([]entry, 0, len(ticks))
	keep := make(map[string]bool, len(ticks))
	for _, tv := range ticks {
		if domain != nil {
			lo, hi := domain[0], domain[1]
			if hi < lo {
				lo, hi = hi, lo
			}
			if tv < lo || tv > hi {
				continue
			}
		}
		key := format(tv)
		if keep[key] {
			continue
		}
		keep[key] = true
		desired = append(desired, entry{key: key, x: s.Scale(tv)})
	}

	// exit
	for key, i := range a.index {
		if keep[key] {
			continue
		}
		a.slots[i].label.Remove()
		a.slots[i].mark.Remove()
		a.slots[i] = tickSlot{}
		a.free = append(a.free, i)
		delete(a.index, key)
	}

	// enter + update
	for _, e := range desired {
		i, ok := a.index[e.key]
		if !ok {
			i = a.alloc()
			label := scene.NewText(e.key, axisFontSize*resolution, colorAxisLabel)
			label.SetAnchor(0.5, 1)
			mark := scene.NewLine(0, axisMarkLen*resolution, resolution, colorAxisMark)
			a.container.AddChild(mark, label)
			a.slots[i] = tickSlot{key: e.key, label: label, mark: mark}
			a.index[e.key] = i
		}
		sl := a.slots[i]
		sl.label.SetPosition(e.x, height-axisLabelPad*resolution)
		sl.label.SetFontSize(axisFontSize * resolution)
		sl.label.SetColor(colorAxisLabel)
		sl.mark.SetPosition(e.x, height-axisMarkLen*resolution)
		sl.mark.SetEndpoint(0, axisMarkLen*resolution)
		sl.mark.SetThickness(resolution)
		sl.mark.SetColor(colorAxisMark)
	}
}

func (a *HorizontalAxis) alloc() int {
	if n := len(a.free); n > 0 {
		i := a.free[n-1]
		a.free = a.free[:n-1]
		return i
	}
	a.slots = append(a.slots, tickSlot{})
	return len(a.slots) - 1
}
