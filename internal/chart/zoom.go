package chart

import (
	"math"
	"sync"
	"time"
)

const (
	wheelZoomRate  = 0.002
	wheelCtrlBoost = 10.0

	// DefaultWheelDelay is how long wheel input must stay quiet before the
	// gesture counts as finished.
	DefaultWheelDelay = 150 * time.Millisecond
)

// Touch is one contact point in logical pixels, keyed by the input
// device's identifier.
type Touch struct {
	ID int64
	X  float64
	Y  float64
}

type touchPhase uint8

const (
	touchNone touchPhase = iota
	touchOne
	touchTwo
)

// touchSlots is a tagged variant over active contacts: none, one or two.
// first is meaningful from touchOne on, second only in touchTwo.
type touchSlots struct {
	phase  touchPhase
	first  touchRecord
	second touchRecord
}

type touchRecord struct {
	id         int64
	curX, curY float64
	orgX, orgY float64
}

func newTouchRecord(t Touch) touchRecord {
	return touchRecord{id: t.ID, curX: t.X, curY: t.Y, orgX: t.X, orgY: t.Y}
}

// ZoomBehavior turns wheel and touch input into a clamped scalar zoom
// transform plus zoomstart/zoom/zoomend events. The wheel debounce timer
// is the only asynchronous callback in the engine; everything it touches
// stays behind the mutex, and events are emitted only after the lock is
// released so listeners can call back in safely.
type ZoomBehavior struct {
	mu        sync.Mutex
	min, max  float64
	k         float64
	originalK float64 // captured at touch gesture start; pinch anchors on it
	wheeling  bool
	touches   touchSlots
	wheelGen  uint64
	timer     *time.Timer
	delay     time.Duration
	events    *Emitter
}

// NewZoomBehavior builds a zoom machine with transform clamped to
// [minK, maxK]. delay <= 0 selects DefaultWheelDelay.
func NewZoomBehavior(minK, maxK float64, delay time.Duration) *ZoomBehavior {
	if maxK < minK {
		minK, maxK = maxK, minK
	}
	if delay <= 0 {
		delay = DefaultWheelDelay
	}
	return &ZoomBehavior{
		min:    minK,
		max:    maxK,
		k:      clampK(1, minK, maxK),
		delay:  delay,
		events: NewEmitter(),
	}
}

func (z *ZoomBehavior) Events() *Emitter { return z.events }

func (z *ZoomBehavior) Transform() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.k
}

func (z *ZoomBehavior) Extent() (float64, float64) { return z.min, z.max }

// SetTransform force-sets the transform, clamped, without emitting.
func (z *ZoomBehavior) SetTransform(k float64) {
	z.mu.Lock()
	z.k = clampK(k, z.min, z.max)
	z.mu.Unlock()
}

func (z *ZoomBehavior) Touching() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.touches.phase != touchNone
}

// Wheel applies one wheel event. deltaY follows DOM conventions, so
// negative deltas zoom in: k' = k * 2^(-deltaY*0.002), with the rate
// boosted tenfold while ctrl is held. The first wheel of a quiet period
// opens the gesture; the debounce timer closes it.
func (z *ZoomBehavior) Wheel(deltaY float64, ctrlKey bool) {
	z.mu.Lock()
	if z.touches.phase != touchNone {
		z.mu.Unlock()
		return
	}
	var evs []ZoomEvent
	if !z.wheeling {
		z.wheeling = true
		evs = append(evs, ZoomEvent{Type: EventZoomStart, Transform: z.k})
	}
	rate := wheelZoomRate
	if ctrlKey {
		rate *= wheelCtrlBoost
	}
	z.k = clampK(z.k*math.Exp2(-deltaY*rate), z.min, z.max)
	evs = append(evs, ZoomEvent{Type: EventZoom, Transform: z.k})

	// Re-arm the quiet timer. The generation counter makes a stale
	// callback (one that fired but lost the race for the lock) a no-op.
	z.wheelGen++
	gen := z.wheelGen
	if z.timer != nil {
		z.timer.Stop()
	}
	z.timer = time.AfterFunc(z.delay, func() { z.finishWheel(gen) })
	z.mu.Unlock()

	z.emitAll(evs)
}

func (z *ZoomBehavior) finishWheel(gen uint64) {
	z.mu.Lock()
	if !z.wheeling || gen != z.wheelGen {
		z.mu.Unlock()
		return
	}
	z.wheeling = false
	k := z.k
	z.mu.Unlock()
	z.events.Emit(ZoomEvent{Type: EventZoomEnd, Transform: k})
}

// TouchStart records a contact. The first contact opens the gesture and
// captures the transform the pinch will anchor on; a second distinct
// identifier upgrades it to pinch-zooming. Touch takes precedence over a
// wheel gesture still waiting on its timer.
func (z *ZoomBehavior) TouchStart(t Touch) {
	z.mu.Lock()
	var evs []ZoomEvent
	switch z.touches.phase {
	case touchNone:
		if z.wheeling {
			z.wheeling = false
			z.wheelGen++
			evs = append(evs, ZoomEvent{Type: EventZoomEnd, Transform: z.k})
		}
		z.touches.phase = touchOne
		z.touches.first = newTouchRecord(t)
		z.originalK = z.k
		evs = append(evs, ZoomEvent{Type: EventZoomStart, Transform: z.k})
	case touchOne:
		if t.ID == z.touches.first.id {
			z.touches.first = newTouchRecord(t)
		} else {
			z.touches.second = newTouchRecord(t)
			z.touches.phase = touchTwo
		}
	case touchTwo:
		// A third contact is ignored; a repeated identifier only refreshes
		// its current position, the pinch origin stays planted.
		switch t.ID {
		case z.touches.first.id:
			z.touches.first.curX, z.touches.first.curY = t.X, t.Y
		case z.touches.second.id:
			z.touches.second.curX, z.touches.second.curY = t.X, t.Y
		}
	}
	z.mu.Unlock()
	z.emitAll(evs)
}

// TouchMove updates the matching contact. In pinch state the transform is
// recomputed from scratch: originalK scaled by the ratio of the current
// contact distance to the origin distance.
func (z *ZoomBehavior) TouchMove(t Touch) {
	z.mu.Lock()
	var evs []ZoomEvent
	switch z.touches.phase {
	case touchOne:
		if t.ID == z.touches.first.id {
			z.touches.first.curX, z.touches.first.curY = t.X, t.Y
		}
	case touchTwo:
		moved := false
		switch t.ID {
		case z.touches.first.id:
			z.touches.first.curX, z.touches.first.curY = t.X, t.Y
			moved = true
		case z.touches.second.id:
			z.touches.second.curX, z.touches.second.curY = t.X, t.Y
			moved = true
		}
		if moved {
			d0 := sqDist(z.touches.first.orgX, z.touches.first.orgY, z.touches.second.orgX, z.touches.second.orgY)
			d1 := sqDist(z.touches.first.curX, z.touches.first.curY, z.touches.second.curX, z.touches.second.curY)
			if d0 > 0 {
				z.k = clampK(z.originalK*math.Sqrt(d1/d0), z.min, z.max)
				evs = append(evs, ZoomEvent{Type: EventZoom, Transform: z.k})
			}
		}
	}
	z.mu.Unlock()
	z.emitAll(evs)
}

// TouchEnd clears the matching contact. Ending either contact of a pinch
// clears both; there is no fallback to single-touch mid-gesture. Clearing
// the last contact closes the gesture.
func (z *ZoomBehavior) TouchEnd(t Touch) {
	z.mu.Lock()
	var evs []ZoomEvent
	switch z.touches.phase {
	case touchOne:
		if t.ID == z.touches.first.id {
			z.touches = touchSlots{}
			evs = append(evs, ZoomEvent{Type: EventZoomEnd, Transform: z.k})
		}
	case touchTwo:
		if t.ID == z.touches.first.id || t.ID == z.touches.second.id {
			z.touches = touchSlots{}
			evs = append(evs, ZoomEvent{Type: EventZoomEnd, Transform: z.k})
		}
	}
	z.mu.Unlock()
	z.emitAll(evs)
}

func (z *ZoomBehavior) emitAll(evs []ZoomEvent) {
	for _, ev := range evs {
		z.events.Emit(ev)
	}
}

func sqDist(x0, y0, x1, y1 float64) float64 {
	dx := x1 - x0
	dy := y1 - y0
	return dx*dx + dy*dy
}

func clampK(k, lo, hi float64) float64 {
	if k < lo {
		return lo
	}
	if k > hi {
		return hi
	}
	return k
}
