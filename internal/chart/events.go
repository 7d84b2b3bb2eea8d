package chart

import (
	"sync"

	"github.com/google/uuid"
)

type ZoomEventType string

const (
	EventZoomStart ZoomEventType = "zoomstart"
	EventZoom      ZoomEventType = "zoom"
	EventZoomEnd   ZoomEventType = "zoomend"
)

// ZoomEvent carries the transform in effect when the event fired.
type ZoomEvent struct {
	Type      ZoomEventType
	Transform float64
}

// Emitter dispatches zoom events to listeners synchronously, in
// subscription order. Listeners must not block; emission happens on
// whatever goroutine produced the gesture (including the wheel debounce
// timer).
type Emitter struct {
	mu   sync.Mutex
	subs []subscription
}

type subscription struct {
	id uuid.UUID
	fn func(ZoomEvent)
}

func NewEmitter() *Emitter { return &Emitter{} }

// Subscribe registers a listener and returns its handle.
func (e *Emitter) Subscribe(fn func(ZoomEvent)) uuid.UUID {
	id := uuid.New()
	e.mu.Lock()
	e.subs = append(e.subs, subscription{id: id, fn: fn})
	e.mu.Unlock()
	return id
}

func (e *Emitter) Unsubscribe(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

// Emit calls every listener with ev. The list is snapshotted first so a
// listener may unsubscribe (itself included) mid-emission.
func (e *Emitter) Emit(ev ZoomEvent) {
	e.mu.Lock()
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()
	for _, s := range subs {
		s.fn(ev)
	}
}
