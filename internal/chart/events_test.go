package chart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEmitterPreservesSubscriptionOrder(t *testing.T) {
	e := NewEmitter()
	var got []string
	first := e.Subscribe(func(ZoomEvent) { got = append(got, "a") })
	e.Subscribe(func(ZoomEvent) { got = append(got, "b") })
	e.Subscribe(func(ZoomEvent) { got = append(got, "c") })

	e.Emit(ZoomEvent{Type: EventZoom, Transform: 1})
	require.Equal(t, []string{"a", "b", "c"}, got)

	e.Unsubscribe(first)
	got = nil
	e.Emit(ZoomEvent{Type: EventZoom, Transform: 1})
	require.Equal(t, []string{"b", "c"}, got)
}

func TestEmitterUnsubscribeDuringEmit(t *testing.T) {
	e := NewEmitter()
	calls := 0
	var id uuid.UUID
	id = e.Subscribe(func(ZoomEvent) {
		calls++
		e.Unsubscribe(id)
	})

	e.Emit(ZoomEvent{Type: EventZoomStart, Transform: 1})
	e.Emit(ZoomEvent{Type: EventZoomStart, Transform: 1})
	require.Equal(t, 1, calls)
}

func TestEmitterUnsubscribeUnknownIsNoop(t *testing.T) {
	e := NewEmitter()
	hits := 0
	e.Subscribe(func(ZoomEvent) { hits++ })
	e.Unsubscribe(uuid.New())
	e.Emit(ZoomEvent{Type: EventZoomEnd, Transform: 1})
	require.Equal(t, 1, hits)
}
