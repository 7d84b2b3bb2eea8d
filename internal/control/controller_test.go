package control

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depth-chart/internal/chart"
	"depth-chart/internal/depth"
	"depth-chart/internal/observability"
	"depth-chart/internal/scene"
	"depth-chart/internal/state"
)

type recRenderer struct {
	frames int
	root   *scene.Node
}

func (r *recRenderer) Render(root *scene.Node) {
	r.frames++
	r.root = root
}

type feedSpy struct {
	auction []bool
	symbols []string
	err     error
}

func (f *feedSpy) SetAuction(v bool) { f.auction = append(f.auction, v) }
func (f *feedSpy) SetSymbol(s string) error {
	f.symbols = append(f.symbols, s)
	return f.err
}

func newTestController() (*Controller, *recRenderer, *state.State) {
	rec := &recRenderer{}
	st := state.NewState("TEST")
	m := observability.NewMetrics("", prometheus.NewRegistry())
	c := New(rec, st, m, Options{
		Width:         800,
		Height:        400,
		Resolution:    1,
		ZoomExtent:    [2]float64{0.5, 8},
		WheelDebounce: 20 * time.Millisecond,
	}, nil)
	return c, rec, st
}

// testSnapshot is a two-level book per side: mid lands on 100 and the
// curve spans pixels across the whole viewport.
func testSnapshot() depth.Snapshot {
	return depth.Snapshot{
		Symbol: "TEST",
		Bids: []depth.Level{
			{Side: "BID", Price: decimal.NewFromInt(99), Size: 10, Venue: "X"},
			{Side: "BID", Price: decimal.NewFromInt(98), Size: 20, Venue: "X"},
		},
		Asks: []depth.Level{
			{Side: "ASK", Price: decimal.NewFromInt(101), Size: 5, Venue: "X"},
			{Side: "ASK", Price: decimal.NewFromInt(102), Size: 15, Venue: "X"},
		},
	}
}

func hasText(ops []scene.DrawOp, s string) bool {
	for _, op := range ops {
		if op.Op == "text" && op.Text == s {
			return true
		}
	}
	return false
}

func TestApplySnapshotBuildsFrame(t *testing.T) {
	c, rec, _ := newTestController()
	c.ApplySnapshot(testSnapshot())

	require.Equal(t, 1, rec.frames)

	// Book span 98..102 padded by 5% each side, centered on mid 100.
	d0, d1 := c.priceScale.Domain()
	assert.InDelta(t, 97.8, d0, 1e-9)
	assert.InDelta(t, 102.2, d1, 1e-9)
	r0, r1 := c.priceScale.Range()
	assert.InDelta(t, 0.0, r0, 1e-9)
	assert.InDelta(t, 800.0, r1, 1e-9)

	// Two step segments per same-side pair, none across the spread.
	assert.Len(t, c.ui.Underlay().Children(), 4)

	// The mid label and the axis ticks made it into the frame.
	ops := scene.Flatten(rec.root)
	assert.True(t, hasText(ops, "100"), "mid price label")
	assert.True(t, hasText(ops, "Mid Market Price"))
}

func TestEmptySnapshotKeepsPriorFrame(t *testing.T) {
	c, rec, _ := newTestController()
	c.ApplySnapshot(testSnapshot())
	d0, _ := c.priceScale.Domain()

	c.ApplySnapshot(depth.Snapshot{Symbol: "TEST"})
	assert.Equal(t, 1, rec.frames)
	got, _ := c.priceScale.Domain()
	assert.Equal(t, d0, got)
}

func TestWheelZoomNarrowsDomain(t *testing.T) {
	c, rec, _ := newTestController()
	c.ApplySnapshot(testSnapshot())

	c.Wheel(-100, false)
	require.Equal(t, 2, rec.frames)

	k := math.Exp2(0.2)
	d0, d1 := c.priceScale.Domain()
	assert.InDelta(t, 100-2.2/k, d0, 1e-9)
	assert.InDelta(t, 100+2.2/k, d1, 1e-9)
}

func TestPinchZoomThroughController(t *testing.T) {
	c, _, _ := newTestController()
	c.ApplySnapshot(testSnapshot())

	c.TouchStart(chart.Touch{ID: 1, X: 0, Y: 0}, chart.Touch{ID: 2, X: 3, Y: 4})
	c.TouchMove(chart.Touch{ID: 2, X: 6, Y: 8}) // doubled spread

	assert.InDelta(t, 2.0, c.Transform(), 1e-9)
	d0, d1 := c.priceScale.Domain()
	assert.InDelta(t, 98.9, d0, 1e-9)
	assert.InDelta(t, 101.1, d1, 1e-9)

	c.TouchEnd(0, chart.Touch{ID: 1})
	assert.False(t, c.zoom.Touching())
}

func TestPointerIgnoredDuringTouch(t *testing.T) {
	c, rec, _ := newTestController()
	c.ApplySnapshot(testSnapshot())
	c.TouchStart(chart.Touch{ID: 1, X: 0, Y: 0})

	before := rec.frames
	c.PointerMove(400, 100)
	assert.Equal(t, before, rec.frames)

	c.TouchEnd(0, chart.Touch{ID: 1})
	c.PointerMove(400, 100)
	assert.Greater(t, rec.frames, before)
}

func TestSetPricePinsCrosshair(t *testing.T) {
	c, rec, st := newTestController()
	c.ApplySnapshot(testSnapshot())

	c.SetPrice(decimal.NewFromInt(101))
	_, pinned := st.Price()
	require.True(t, pinned)

	ops := scene.Flatten(rec.root)
	assert.True(t, hasText(ops, "+1.00%"), "sell ratio for the pinned price")
	assert.True(t, hasText(ops, "-1.00%"), "derived buy ratio")

	// The pin survives a data refresh.
	c.ApplySnapshot(testSnapshot())
	ops = scene.Flatten(rec.root)
	assert.True(t, hasText(ops, "+1.00%"))

	c.ClearPrice()
	_, pinned = st.Price()
	assert.False(t, pinned)
	ops = scene.Flatten(rec.root)
	assert.False(t, hasText(ops, "+1.00%"))
}

func TestSetAuctionSteersFeedAndRedraws(t *testing.T) {
	c, _, st := newTestController()
	spy := &feedSpy{}
	c.SetFeed(spy)
	c.ApplySnapshot(testSnapshot())

	c.SetAuction(true)
	require.Equal(t, []bool{true}, spy.auction)
	assert.True(t, st.Auction())

	// Discrete markers replace the step curve.
	children := c.ui.Underlay().Children()
	require.Len(t, children, 4)
	for _, ch := range children {
		assert.Equal(t, scene.KindRect, ch.Kind())
	}

	// Re-setting the same mode is a no-op.
	c.SetAuction(true)
	assert.Equal(t, []bool{true}, spy.auction)
}

func TestSetSymbolPropagates(t *testing.T) {
	c, _, st := newTestController()
	spy := &feedSpy{}
	c.SetFeed(spy)

	require.NoError(t, c.SetSymbol(" eth-usd "))
	assert.Equal(t, []string{"ETH-USD"}, spy.symbols)
	assert.Equal(t, "ETH-USD", st.Symbol())

	require.Error(t, c.SetSymbol("   "))
}

func TestResizeRecomputesScales(t *testing.T) {
	c, rec, _ := newTestController()
	c.ApplySnapshot(testSnapshot())

	c.Resize(1200, 600, 2)
	require.Equal(t, 2, rec.frames)
	_, r1 := c.priceScale.Range()
	assert.InDelta(t, 2400.0, r1, 1e-9)

	// Bad geometry is ignored outright.
	c.Resize(0, 600, 2)
	_, r1 = c.priceScale.Range()
	assert.InDelta(t, 2400.0, r1, 1e-9)
}

func TestPumpConsumesUntilClose(t *testing.T) {
	c, rec, _ := newTestController()
	ch := make(chan depth.Snapshot, 2)
	ch <- testSnapshot()
	ch <- testSnapshot()
	close(ch)

	c.Pump(context.Background(), ch)
	assert.Equal(t, 2, rec.frames)
}

func TestPumpStopsOnContext(t *testing.T) {
	c, _, _ := newTestController()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		c.Pump(ctx, make(chan depth.Snapshot))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop on context cancel")
	}
}
