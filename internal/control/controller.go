// Package control wires the data path to the interaction engine. One
// controller owns the scales, the zoom machine, and the UI; every input
// and every snapshot is serialized under a single mutex, so the engine
// itself never needs internal locking.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"depth-chart/internal/chart"
	"depth-chart/internal/depth"
	"depth-chart/internal/observability"
	"depth-chart/internal/scale"
	"depth-chart/internal/scene"
	"depth-chart/internal/state"
)

const (
	curveBuy  scene.Color = "#26a69a"
	curveSell scene.Color = "#ef5350"

	// domainPad keeps a margin past the book's end prices so the curve
	// does not touch the viewport edges at transform 1.
	domainPad = 0.05
	// topPad is the logical-px headroom above the tallest curve point.
	topPad = 10.0
	// volHeadroom scales the volume domain past the max cumulative size.
	volHeadroom = 1.1
)

type Options struct {
	Width         float64 // logical px
	Height        float64 // logical px
	Resolution    float64 // device px per logical px
	ZoomExtent    [2]float64
	WheelDebounce time.Duration
	HitRadius     float64 // auction hit radius, logical px
	MaxLevels     int     // price levels per book side; 0 is uncapped
}

func (o *Options) defaults() {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 480
	}
	if o.Resolution <= 0 {
		o.Resolution = 1
	}
	if o.ZoomExtent == ([2]float64{}) {
		o.ZoomExtent = [2]float64{0.5, 8}
	}
	if o.WheelDebounce <= 0 {
		o.WheelDebounce = chart.DefaultWheelDelay
	}
	if o.HitRadius <= 0 {
		o.HitRadius = chart.DefaultAuctionRadius
	}
}

// FeedControl is the slice of the feed the controller steers.
type FeedControl interface {
	SetAuction(bool)
	SetSymbol(string) error
}

type Controller struct {
	log     *slog.Logger
	metrics *observability.Metrics
	st      *state.State
	feed    FeedControl

	mu          sync.Mutex
	ui          *chart.UI
	zoom        *chart.ZoomBehavior
	priceScale  *scale.Linear
	volumeScale *scale.Linear
	builder     *depth.Builder

	width, height, resolution float64

	book    depth.Book
	hasBook bool
	base    [2]float64 // unzoomed price domain from the current book
}

func New(renderer scene.Renderer, st *state.State, m *observability.Metrics, opts Options, logger *slog.Logger) *Controller {
	opts.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		log:        logger,
		metrics:    m,
		st:         st,
		ui:         chart.NewUI(renderer, logger),
		zoom:       chart.NewZoomBehavior(opts.ZoomExtent[0], opts.ZoomExtent[1], opts.WheelDebounce),
		builder:    depth.NewBuilder(opts.MaxLevels),
		width:      opts.Width,
		height:     opts.Height,
		resolution: opts.Resolution,
	}
	c.ui.SetAuctionRadius(opts.HitRadius)
	c.priceScale = scale.NewLinear(0, 1, 0, opts.Width*opts.Resolution)
	c.volumeScale = scale.NewLinear(0, 1, opts.Height*opts.Resolution, 0)

	// Transform changes are applied by the input methods themselves; the
	// subscription only observes gesture completion, and must not take
	// c.mu because zoomstart/zoomend can fire on the input goroutine.
	c.zoom.Events().Subscribe(func(ev chart.ZoomEvent) {
		if ev.Type != chart.EventZoomEnd {
			return
		}
		if c.metrics != nil {
			c.metrics.ZoomGestures.Inc()
		}
		c.log.Debug("zoom gesture finished", slog.Float64("transform", ev.Transform))
	})
	return c
}

// SetFeed attaches the feed the controller steers on symbol and mode
// changes. Call before Pump.
func (c *Controller) SetFeed(f FeedControl) { c.feed = f }

// Transform reports the current zoom factor.
func (c *Controller) Transform() float64 { return c.zoom.Transform() }

// Pump consumes snapshots until the context ends or the channel closes.
func (c *Controller) Pump(ctx context.Context, snaps <-chan depth.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			c.ApplySnapshot(snap)
		}
	}
}

// ApplySnapshot builds the cumulative book and refreshes the whole frame.
func (c *Controller) ApplySnapshot(snap depth.Snapshot) {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.book = c.builder.Build(snap)
	c.hasBook = len(c.book.Points) > 0
	if !c.hasBook {
		c.log.Warn("empty book snapshot", slog.String("symbol", snap.Symbol))
		return
	}

	lo := c.book.Points[0].Price.InexactFloat64()
	hi := c.book.Points[len(c.book.Points)-1].Price.InexactFloat64()
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	c.base = [2]float64{lo - span*domainPad, hi + span*domainPad}

	c.refreshLocked()

	if c.metrics != nil {
		c.metrics.SnapshotsProcessed.Inc()
		c.metrics.FrameBuildDuration.Observe(time.Since(start).Seconds())
	}
}

// refreshLocked recomputes scales and series from the cached book and the
// current transform, repaints the curve underlay, and pushes the frame
// into the engine. Callers hold c.mu.
func (c *Controller) refreshLocked() {
	if !c.hasBook {
		return
	}

	res := c.resolution
	devW := c.width * res
	devH := c.height * res

	mid := c.book.MidPrice.InexactFloat64()
	half := (c.base[1] - c.base[0]) / 2 / c.zoom.Transform()
	dom := [2]float64{mid - half, mid + half}

	c.priceScale.SetDomain(dom[0], dom[1])
	c.priceScale.SetRange(0, devW)

	maxVol := 0
	for _, pt := range c.book.Points {
		if pt.Volume > maxVol {
			maxVol = pt.Volume
		}
	}
	c.volumeScale.SetDomain(0, float64(maxVol)*volHeadroom)
	c.volumeScale.SetRange(devH-chart.AxisReserve*res, topPad*res)

	n := len(c.book.Points)
	prices := make([]float64, n)
	volumes := make([]float64, n)
	priceLabels := make([]string, n)
	volumeLabels := make([]string, n)
	for i, pt := range c.book.Points {
		prices[i] = c.priceScale.Scale(pt.Price.InexactFloat64())
		volumes[i] = c.volumeScale.Scale(float64(pt.Volume))
		priceLabels[i] = pt.Price.String()
		volumeLabels[i] = strconv.Itoa(pt.Volume)
	}

	auction := c.st.Auction() || c.book.Auction
	title := "Mid Market Price"
	if auction {
		title = "Indicative Price"
	}

	c.redrawCurves(prices, volumes, auction)

	err := c.ui.Update(chart.UpdateParams{
		Width:         devW,
		Height:        devH,
		Resolution:    res,
		Prices:        prices,
		Volumes:       volumes,
		PriceLabels:   priceLabels,
		VolumeLabels:  volumeLabels,
		MidPrice:      mid,
		MidPriceLabel: c.book.MidPrice.String(),
		MidPriceTitle: title,
		PriceScale:    c.priceScale,
		VolumeScale:   c.volumeScale,
		Domain:        dom,
		AuctionMode:   auction,
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.UpdateErrors.Inc()
		}
		c.log.Warn("chart update rejected", slog.Any("err", err))
		return
	}

	// A pinned crosshair follows the data across refreshes.
	if p, ok := c.st.Price(); ok {
		c.ui.UpdatePrice(p.InexactFloat64())
	}
}

// redrawCurves repaints the depth silhouette beneath the overlays: step
// lines per side in continuous mode, discrete markers in auction mode.
func (c *Controller) redrawCurves(prices, volumes []float64, auction bool) {
	under := c.ui.Underlay()
	under.RemoveChildren()

	res := c.resolution
	if auction {
		sz := 4 * res
		for i := range prices {
			m := scene.NewRect(sz, sz, curveColor(c.book.Points[i].Sell))
			m.SetPosition(prices[i]-sz/2, volumes[i]-sz/2)
			under.AddChild(m)
		}
		return
	}

	for i := 1; i < len(prices); i++ {
		if c.book.Points[i].Sell != c.book.Points[i-1].Sell {
			continue // no segment across the spread
		}
		color := curveColor(c.book.Points[i].Sell)
		run := scene.NewLine(prices[i]-prices[i-1], 0, res, color)
		run.SetPosition(prices[i-1], volumes[i-1])
		rise := scene.NewLine(0, volumes[i]-volumes[i-1], res, color)
		rise.SetPosition(prices[i], volumes[i-1])
		under.AddChild(run, rise)
	}
}

func curveColor(sell bool) scene.Color {
	if sell {
		return curveSell
	}
	return curveBuy
}

// ---- Input forwarding ----

func (c *Controller) PointerMove(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui.PointerMove(x, y)
}

func (c *Controller) PointerOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui.PointerOut()
}

func (c *Controller) Wheel(deltaY float64, ctrl bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := c.zoom.Transform()
	c.zoom.Wheel(deltaY, ctrl)
	if c.zoom.Transform() != before {
		c.refreshLocked()
	}
}

func (c *Controller) TouchStart(touches ...chart.Touch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui.TouchStart()
	for _, t := range touches {
		c.zoom.TouchStart(t)
	}
}

func (c *Controller) TouchMove(touches ...chart.Touch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := c.zoom.Transform()
	for _, t := range touches {
		c.zoom.TouchMove(t)
	}
	if c.zoom.Transform() != before {
		c.refreshLocked()
	}
}

func (c *Controller) TouchEnd(remaining int, ended ...chart.Touch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range ended {
		c.zoom.TouchEnd(t)
	}
	c.ui.TouchEnd(remaining)
}

// SetPrice pins the crosshair to a data-space price until ClearPrice.
func (c *Controller) SetPrice(p decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.SetPrice(p)
	c.ui.UpdatePrice(p.InexactFloat64())
}

func (c *Controller) ClearPrice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.ClearPrice()
	c.ui.ClearPrice()
}

// SetAuction flips the rendering mode and steers the feed with it.
func (c *Controller) SetAuction(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.st.SetAuction(v) {
		return
	}
	if c.feed != nil {
		c.feed.SetAuction(v)
	}
	c.log.Info("mode switched", slog.Bool("auction", v))
	c.refreshLocked()
}

// SetSymbol switches the active symbol on the feed and then the state, so
// a rejected switch leaves the previous symbol in place.
func (c *Controller) SetSymbol(sym string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	canon := strings.ToUpper(strings.TrimSpace(sym))
	if canon == "" {
		return fmt.Errorf("empty symbol")
	}
	if c.feed != nil {
		if err := c.feed.SetSymbol(canon); err != nil {
			return err
		}
	}
	c.st.SetSymbol(canon)
	c.log.Info("symbol switched", slog.String("symbol", canon))
	return nil
}

// Resize adopts new viewport geometry (logical px and devicePixelRatio)
// and rebuilds the frame.
func (c *Controller) Resize(width, height, resolution float64) {
	if width <= 0 || height <= 0 || resolution <= 0 {
		c.log.Warn("ignoring bad resize",
			slog.Float64("width", width),
			slog.Float64("height", height),
			slog.Float64("resolution", resolution),
		)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height, c.resolution = width, height, resolution
	c.refreshLocked()
}
