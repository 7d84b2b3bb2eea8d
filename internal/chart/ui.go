// Package chart is the interaction engine of the depth chart: it owns the
// overlay scene nodes, derives buy/sell hover state from pointer input,
// reconciles the price axis, and runs the zoom gesture machine. It draws
// nothing itself; it mutates a scene tree and asks the renderer to flush.
package chart

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"github.com/shopspring/decimal"

	"depth-chart/internal/scene"
)

const (
	colorBuy       scene.Color = "#26a69a"
	colorSell      scene.Color = "#ef5350"
	colorMidLine   scene.Color = "#787b86"
	colorLabelText scene.Color = "#d1d4dc"
	colorAxisLabel scene.Color = "#787b86"
	colorAxisMark  scene.Color = "#363a45"
	colorShade     scene.Color = "#2962ff"
	colorTooltipBG scene.Color = "#1e222d"
)

const (
	labelFontSize = 12.0
	titleFontSize = 10.0
	labelMargin   = 4.0
	labelLineGap  = 18.0
	indicatorSize = 7.0
	shadeAlpha    = 0.12
	tooltipPad    = 6.0
	tooltipGap    = 12.0

	// AxisReserve is the bottom strip, in logical px, kept for the axis.
	AxisReserve = 24.0

	// DefaultAuctionRadius is the auction-mode hit radius in logical px.
	DefaultAuctionRadius = 50.0
)

// UpdateParams is the full refresh payload. Prices and Volumes are
// device-pixel coordinates per curve point, prices ascending; MidPrice is
// the data-space mid. The engine borrows the slices until the next Update.
type UpdateParams struct {
	Width      float64
	Height     float64
	Resolution float64

	Prices       []float64
	Volumes      []float64
	PriceLabels  []string
	VolumeLabels []string

	MidPrice      float64
	MidPriceLabel string
	MidPriceTitle string

	PriceScale  Scale
	VolumeScale Scale

	// Domain is the visible data window; the zero value falls back to the
	// price scale's domain.
	Domain [2]float64

	AuctionMode bool
}

type frameState struct {
	UpdateParams
	midX  float64
	index *quadtree.Quadtree
	valid bool
}

type pointerState struct {
	x, y float64 // logical px
}

// sideOverlay is the retained node set for one hovered side of the book.
type sideOverlay struct {
	sell      bool
	group     *scene.Node
	shade     *scene.Node
	indicator *scene.Node
	price     *scene.Node
	volume    *scene.Node
	ratio     *scene.Node
}

func newSideOverlay(parent *scene.Node, color scene.Color, sell bool) *sideOverlay {
	o := &sideOverlay{sell: sell, group: scene.NewContainer()}
	o.group.SetVisible(false)

	o.shade = scene.NewRect(0, 0, colorShade)
	o.shade.SetAlpha(shadeAlpha)
	o.indicator = scene.NewRect(0, 0, color)
	o.price = scene.NewText("", labelFontSize, color)
	o.price.SetAnchor(0.5, 1)
	o.volume = scene.NewText("", labelFontSize, colorLabelText)
	o.volume.SetAnchor(0.5, 1)
	o.ratio = scene.NewText("", labelFontSize, color)
	o.ratio.SetAnchor(0.5, 0)

	o.group.AddChild(o.shade, o.indicator, o.price, o.volume, o.ratio)
	parent.AddChild(o.group)
	return o
}

// auctionOverlay is the single combined tooltip used in auction mode.
type auctionOverlay struct {
	group  *scene.Node
	marker *scene.Node
	bg     *scene.Node
	price  *scene.Node
	volume *scene.Node
}

func newAuctionOverlay(parent *scene.Node) *auctionOverlay {
	o := &auctionOverlay{group: scene.NewContainer()}
	o.group.SetVisible(false)

	o.marker = scene.NewRect(0, 0, colorLabelText)
	o.bg = scene.NewRect(0, 0, colorTooltipBG)
	o.bg.SetAlpha(0.92)
	o.price = scene.NewText("", labelFontSize, colorLabelText)
	o.price.SetAnchor(0, 0)
	o.volume = scene.NewText("", labelFontSize, colorLabelText)
	o.volume.SetAnchor(0, 0)

	o.group.AddChild(o.marker, o.bg, o.price, o.volume)
	parent.AddChild(o.group)
	return o
}

// UI is the interaction engine. It is single-owner: all methods must be
// called from one goroutine (or externally serialized); the only internal
// concurrency lives inside ZoomBehavior.
type UI struct {
	renderer scene.Renderer
	log      *slog.Logger

	stage    *scene.Node
	underlay *scene.Node
	axis     *HorizontalAxis
	midLine  *scene.Node
	midLabel *scene.Node
	midTitle *scene.Node
	buy      *sideOverlay
	sell     *sideOverlay
	auction  *auctionOverlay

	frame       frameState
	pointer     *pointerState
	touchActive bool
	hitRadius   float64 // logical px
}

func NewUI(renderer scene.Renderer, logger *slog.Logger) *UI {
	if logger == nil {
		logger = slog.Default()
	}
	stage := scene.NewContainer()
	underlay := scene.NewContainer()
	stage.AddChild(underlay)

	ui := &UI{
		renderer:  renderer,
		log:       logger,
		stage:     stage,
		underlay:  underlay,
		hitRadius: DefaultAuctionRadius,
	}
	ui.axis = NewHorizontalAxis(stage)
	ui.buy = newSideOverlay(stage, colorBuy, false)
	ui.sell = newSideOverlay(stage, colorSell, true)

	ui.midLine = scene.NewLine(0, 0, 1, colorMidLine)
	ui.midLine.SetVisible(false)
	ui.midLabel = scene.NewText("", labelFontSize, colorLabelText)
	ui.midLabel.SetAnchor(0.5, 0)
	ui.midLabel.SetVisible(false)
	ui.midTitle = scene.NewText("", titleFontSize, colorMidLine)
	ui.midTitle.SetAnchor(0.5, 0)
	ui.midTitle.SetVisible(false)
	stage.AddChild(ui.midLine, ui.midLabel, ui.midTitle)

	ui.auction = newAuctionOverlay(stage)
	return ui
}

// Stage returns the scene root the engine mutates.
func (ui *UI) Stage() *scene.Node { return ui.stage }

// Underlay is the container painted beneath every overlay; the controller
// draws the depth curves into it.
func (ui *UI) Underlay() *scene.Node { return ui.underlay }

// Axis exposes the tick reconciler, mostly for tests and tooling.
func (ui *UI) Axis() *HorizontalAxis { return ui.axis }

// SetAuctionRadius overrides the auction hit radius (logical px).
func (ui *UI) SetAuctionRadius(px float64) {
	if px > 0 {
		ui.hitRadius = px
	}
}

// Update replaces the frame state wholesale: it validates the series,
// reconciles the axis, repositions the mid-price group, rebuilds the
// auction index, and re-evaluates the cached pointer against the new data
// so overlays never show stale points. On error the prior frame is kept.
func (ui *UI) Update(p UpdateParams) error {
	if p.Width <= 0 || p.Height <= 0 || p.Resolution <= 0 {
		return fmt.Errorf("chart: invalid viewport %gx%g at resolution %g", p.Width, p.Height, p.Resolution)
	}
	if p.PriceScale == nil || p.VolumeScale == nil {
		return fmt.Errorf("chart: nil scale")
	}
	n := len(p.Prices)
	if len(p.Volumes) != n || len(p.PriceLabels) != n || len(p.VolumeLabels) != n {
		return fmt.Errorf("chart: mismatched series lengths: prices=%d volumes=%d priceLabels=%d volumeLabels=%d",
			n, len(p.Volumes), len(p.PriceLabels), len(p.VolumeLabels))
	}
	for i := 1; i < n; i++ {
		if p.Prices[i] < p.Prices[i-1] {
			return fmt.Errorf("chart: prices must ascend: prices[%d]=%g after %g", i, p.Prices[i], p.Prices[i-1])
		}
	}

	f := frameState{UpdateParams: p, valid: true}
	if f.Domain == ([2]float64{}) {
		d0, d1 := p.PriceScale.Domain()
		f.Domain = [2]float64{d0, d1}
	}
	f.midX = p.PriceScale.Scale(p.MidPrice)
	if p.AuctionMode {
		f.index = buildPointIndex(p.Prices, p.Volumes)
	}
	ui.frame = f

	ui.log.Debug("chart update",
		slog.Int("points", n),
		slog.Bool("auction", p.AuctionMode),
		slog.Float64("mid_px", f.midX),
	)

	dom := f.Domain
	ui.axis.Reconcile(p.PriceScale, p.Width, p.Height, p.Resolution, &dom)
	ui.layoutMid()
	ui.layoutPointer()
	ui.render()
	return nil
}

// UpdatePrice drives the crosshair from data instead of input: it
// synthesizes a pointer at the price's pixel position and reuses the
// normal pointer path.
func (ui *UI) UpdatePrice(price float64) {
	f := &ui.frame
	if !f.valid || len(f.Prices) < 2 {
		return
	}
	x := f.PriceScale.Scale(price)
	idx := nearestIndex(f.Prices, x)
	ui.pointer = &pointerState{x: x / f.Resolution, y: f.Volumes[idx] / f.Resolution}
	ui.layoutPointer()
	ui.render()
}

// ClearPrice drops the synthetic (or real) pointer and hides every hover
// overlay.
func (ui *UI) ClearPrice() {
	ui.pointer = nil
	ui.hideHover()
	ui.render()
}

// PointerMove handles mouse movement in logical px. Ignored while a touch
// session is active.
func (ui *UI) PointerMove(x, y float64) {
	if ui.touchActive {
		return
	}
	ui.pointer = &pointerState{x: x, y: y}
	ui.layoutPointer()
	ui.render()
}

// PointerOut handles the pointer leaving the chart.
func (ui *UI) PointerOut() {
	if ui.touchActive {
		return
	}
	ui.pointer = nil
	ui.hideHover()
	ui.render()
}

// TouchStart suppresses mouse-pointer handling for the rest of the touch
// session; browsers synthesize mouse events from taps and the overlays
// must not be driven twice.
func (ui *UI) TouchStart() {
	ui.touchActive = true
	if ui.pointer != nil {
		ui.pointer = nil
		ui.hideHover()
		ui.render()
	}
}

// TouchEnd lifts the suppression once the last contact is gone.
func (ui *UI) TouchEnd(remaining int) {
	if remaining <= 0 {
		ui.touchActive = false
	}
}

func (ui *UI) render() {
	if ui.renderer != nil {
		ui.renderer.Render(ui.stage)
	}
}

func (ui *UI) hideHover() {
	ui.buy.group.SetVisible(false)
	ui.sell.group.SetVisible(false)
	ui.auction.group.SetVisible(false)
}

func (ui *UI) layoutMid() {
	f := &ui.frame
	res := f.Resolution
	bottom := f.Height - AxisReserve*res

	visible := f.midX >= 0 && f.midX <= f.Width
	ui.midLine.SetPosition(f.midX, 0)
	ui.midLine.SetEndpoint(0, bottom)
	ui.midLine.SetThickness(res)
	ui.midLine.SetVisible(visible)

	ui.midLabel.SetText(f.MidPriceLabel)
	ui.midLabel.SetFontSize(labelFontSize * res)
	ui.midTitle.SetText(f.MidPriceTitle)
	ui.midTitle.SetFontSize(titleFontSize * res)

	lw, lh := ui.midLabel.Measure()
	tw, _ := ui.midTitle.Measure()
	half := math.Max(lw, tw)/2 + labelMargin*res
	x := clampF(f.midX, half, f.Width-half)
	ui.midLabel.SetPosition(x, labelMargin*res)
	ui.midTitle.SetPosition(x, labelMargin*res+lh)

	ui.midLabel.SetVisible(visible && f.MidPriceLabel != "")
	ui.midTitle.SetVisible(visible && f.MidPriceTitle != "")
}

// layoutPointer recomputes every hover overlay from the cached pointer and
// the current frame.
func (ui *UI) layoutPointer() {
	f := &ui.frame
	if !f.valid || ui.pointer == nil || len(f.Prices) < 2 {
		ui.hideHover()
		return
	}
	if f.AuctionMode {
		ui.buy.group.SetVisible(false)
		ui.sell.group.SetVisible(false)
		ui.layoutAuction()
		return
	}
	ui.auction.group.SetVisible(false)

	x := ui.pointer.x * f.Resolution
	midX := f.midX

	nearest := nearestIndex(f.Prices, x)
	var buyIdx, sellIdx int
	if x >= midX {
		sellIdx = nearest
		buyIdx = nearestIndex(f.Prices, 2*midX-f.Prices[sellIdx])
	} else {
		buyIdx = nearest
		sellIdx = nearestIndex(f.Prices, 2*midX-f.Prices[buyIdx])
	}
	// A derived point that lands on the wrong side of mid means that side
	// has no depth at this pixel.
	if sellIdx >= 0 && f.Prices[sellIdx] <= midX {
		sellIdx = -1
	}
	if buyIdx >= 0 && f.Prices[buyIdx] >= midX {
		buyIdx = -1
	}

	ui.layoutSide(ui.buy, buyIdx)
	ui.layoutSide(ui.sell, sellIdx)
}

func (ui *UI) layoutSide(side *sideOverlay, idx int) {
	f := &ui.frame
	if idx < 0 || !ui.sideHasData(side.sell) || !ui.insideDomain(idx) {
		side.group.SetVisible(false)
		return
	}
	res := f.Resolution
	px := f.Prices[idx]
	py := f.Volumes[idx]
	bottom := f.Height - AxisReserve*res

	x0 := math.Min(px, f.midX)
	side.shade.SetPosition(x0, 0)
	side.shade.SetSize(math.Abs(f.midX-px), bottom)

	sz := indicatorSize * res
	side.indicator.SetSize(sz, sz)
	side.indicator.SetPosition(px-sz/2, py-sz/2)

	side.price.SetText(f.PriceLabels[idx])
	side.price.SetFontSize(labelFontSize * res)
	side.volume.SetText(f.VolumeLabels[idx])
	side.volume.SetFontSize(labelFontSize * res)

	ratio, ok := ui.ratioLabel(f.PriceLabels[idx], side.sell)
	side.ratio.SetText(ratio)
	side.ratio.SetFontSize(labelFontSize * res)
	side.ratio.SetVisible(ok)

	_, lh := side.volume.Measure()
	vy := clampF(py-labelLineGap*res, lh+labelMargin*res, bottom-lh-labelMargin*res)
	ui.placeSideLabel(side.volume, px, vy)
	ui.placeSideLabel(side.ratio, px, vy+2*res)
	ui.placeSideLabel(side.price, px, bottom-labelMargin*res)

	side.group.SetVisible(true)
}

// placeSideLabel clamps a label in device pixels: fully inside the
// viewport by its own measured width, and never astride the mid-line.
func (ui *UI) placeSideLabel(n *scene.Node, x, y float64) {
	f := &ui.frame
	w, _ := n.Measure()
	half := w/2 + labelMargin*f.Resolution
	lo, hi := half, f.Width-half

	sell := x >= f.midX
	if sell {
		lo = math.Max(lo, f.midX+half)
	} else {
		hi = math.Min(hi, f.midX-half)
	}
	switch {
	case hi < lo && sell:
		x = lo
	case hi < lo:
		x = hi
	default:
		x = clampF(x, lo, hi)
	}
	n.SetPosition(x, y)
}

func (ui *UI) sideHasData(sell bool) bool {
	f := &ui.frame
	if sell {
		return f.Prices[len(f.Prices)-1] > f.midX
	}
	return f.Prices[0] < f.midX
}

// insideDomain is the last visibility guard: the point's pixel must invert
// to a value inside the price scale's own domain, which suppresses
// reflected points that overshoot the data window.
func (ui *UI) insideDomain(idx int) bool {
	f := &ui.frame
	v := f.PriceScale.Invert(f.Prices[idx])
	d0, d1 := f.PriceScale.Domain()
	if d1 < d0 {
		d0, d1 = d1, d0
	}
	eps := (d1 - d0) * 1e-9
	return v >= d0-eps && v <= d1+eps
}

// ratioLabel renders the percent offset of a hovered price from mid.
// Parsing is fail-closed: a label that is not a plain number hides the
// ratio instead of guessing.
func (ui *UI) ratioLabel(priceLabel string, sell bool) (string, bool) {
	v, err := decimal.NewFromString(priceLabel)
	if err != nil {
		return "", false
	}
	mid := decimal.NewFromFloat(ui.frame.MidPrice)
	if mid.IsZero() {
		return "", false
	}
	pct := v.Sub(mid).Div(mid).Mul(decimal.NewFromInt(100))
	s := pct.StringFixed(2) + "%"
	if sell && !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s, true
}

func (ui *UI) layoutAuction() {
	f := &ui.frame
	au := ui.auction
	if f.index == nil {
		au.group.SetVisible(false)
		return
	}
	res := f.Resolution
	px := ui.pointer.x * res
	py := ui.pointer.y * res

	found := f.index.Find(orb.Point{px, py})
	if found == nil {
		au.group.SetVisible(false)
		return
	}
	cp := found.(curvePoint)
	if math.Hypot(cp.pt[0]-px, cp.pt[1]-py) > ui.hitRadius*res {
		au.group.SetVisible(false)
		return
	}

	idx := cp.index
	x := f.Prices[idx]
	y := f.Volumes[idx]

	sz := indicatorSize * res
	au.marker.SetSize(sz, sz)
	au.marker.SetPosition(x-sz/2, y-sz/2)

	au.price.SetText(f.PriceLabels[idx])
	au.price.SetFontSize(labelFontSize * res)
	au.volume.SetText(f.VolumeLabels[idx])
	au.volume.SetFontSize(labelFontSize * res)

	pw, ph := au.price.Measure()
	vw, _ := au.volume.Measure()
	bw := math.Max(pw, vw) + 2*tooltipPad*res
	bh := 2*ph + 2*tooltipPad*res

	// Tooltip sits beside the point, flipped to whichever half of the
	// viewport has room, then clamped inside it.
	bx := x + tooltipGap*res
	if x > f.Width/2 {
		bx = x - tooltipGap*res - bw
	}
	bx = clampF(bx, labelMargin*res, f.Width-bw-labelMargin*res)
	by := clampF(y-bh/2, labelMargin*res, f.Height-AxisReserve*res-bh-labelMargin*res)

	au.bg.SetPosition(bx, by)
	au.bg.SetSize(bw, bh)
	au.price.SetPosition(bx+tooltipPad*res, by+tooltipPad*res)
	au.volume.SetPosition(bx+tooltipPad*res, by+tooltipPad*res+ph)
	au.group.SetVisible(true)
}

// curvePoint carries its series index through the quadtree.
type curvePoint struct {
	pt    orb.Point
	index int
}

func (p curvePoint) Point() orb.Point { return p.pt }

// buildPointIndex loads every curve point into a quadtree once per update;
// pointer moves then run nearest-point queries against it instead of
// scanning the series.
func buildPointIndex(xs, ys []float64) *quadtree.Quadtree {
	if len(xs) == 0 {
		return nil
	}
	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := range xs {
		minX = math.Min(minX, xs[i])
		maxX = math.Max(maxX, xs[i])
		minY = math.Min(minY, ys[i])
		maxY = math.Max(maxY, ys[i])
	}
	// Zero-area bounds break subdivision; pad them open.
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}
	qt := quadtree.New(orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}})
	for i := range xs {
		_ = qt.Add(curvePoint{pt: orb.Point{xs[i], ys[i]}, index: i})
	}
	return qt
}

// nearestIndex is a centered binary search: the index whose x is closest
// to px, ties toward the lower index; px beyond either end clamps to the
// first or last point.
func nearestIndex(xs []float64, px float64) int {
	n := len(xs)
	if n == 0 {
		return -1
	}
	i := sort.SearchFloat64s(xs, px)
	if i == 0 {
		return 0
	}
	if i == n {
		return n - 1
	}
	if xs[i]-px < px-xs[i-1] {
		return i
	}
	return i - 1
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
