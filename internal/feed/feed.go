package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"depth-chart/internal/depth"
)

// Feed produces order-book snapshots for one symbol at a time.
type Feed interface {
	Run(ctx context.Context, onStatus func(connected bool))
	SetSymbol(symbol string) error
	SetAuction(v bool)
	Snapshots() <-chan depth.Snapshot
	Errors() <-chan error
	Connected() bool
	Close()
}

// Options shape the synthetic book. Zero values fall back to defaults.
type Options struct {
	Symbol     string
	BasePrice  decimal.Decimal
	TickSize   decimal.Decimal
	Levels     int           // price levels per side
	BaseSize   int           // size scale at each level
	Volatility float64       // mid random-walk step, in ticks
	Interval   time.Duration // snapshot cadence
	Seed       int64         // 0 seeds from the clock
}

func (o *Options) defaults() {
	if o.Symbol == "" {
		o.Symbol = "SYN"
	}
	if o.BasePrice.IsZero() {
		o.BasePrice = decimal.NewFromInt(100)
	}
	if o.TickSize.IsZero() {
		o.TickSize = decimal.RequireFromString("0.01")
	}
	if o.Levels <= 0 {
		o.Levels = 20
	}
	if o.BaseSize <= 0 {
		o.BaseSize = 1000
	}
	if o.Volatility <= 0 {
		o.Volatility = 2
	}
	if o.Interval <= 0 {
		o.Interval = 250 * time.Millisecond
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
}

// Synthetic is a random-walk book generator: the mid drifts in ticks, each
// side lays out contiguous levels from its best price, and levels are
// occasionally split across two venues so downstream aggregation has work
// to do. It implements Feed.
type Synthetic struct {
	log  *slog.Logger
	opts Options

	mu         sync.RWMutex
	symbol     string
	auction    bool
	connected  bool
	driftTicks int64

	snapCh chan depth.Snapshot
	errCh  chan error
	rng    *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
}

var venues = []string{"ARCA", "NSDQ", "EDGX", "BATS"}

func NewSynthetic(opts Options, logger *slog.Logger) *Synthetic {
	opts.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthetic{
		log:    logger,
		opts:   opts,
		symbol: strings.ToUpper(strings.TrimSpace(opts.Symbol)),
		snapCh: make(chan depth.Snapshot, 64),
		errCh:  make(chan error, 16),
		rng:    rand.New(rand.NewSource(opts.Seed)),
	}
}

func (f *Synthetic) Snapshots() <-chan depth.Snapshot { return f.snapCh }
func (f *Synthetic) Errors() <-chan error             { return f.errCh }

func (f *Synthetic) Connected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

func (f *Synthetic) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

// SetSymbol switches the generated book to a new symbol and resets the
// walk so the price re-centers on the base.
func (f *Synthetic) SetSymbol(symbol string) error {
	canon := strings.ToUpper(strings.TrimSpace(symbol))
	if canon == "" {
		return fmt.Errorf("empty symbol")
	}
	f.mu.Lock()
	f.symbol = canon
	f.driftTicks = 0
	f.mu.Unlock()
	return nil
}

// SetAuction switches between the continuous two-sided book and a sparse
// indicative auction book.
func (f *Synthetic) SetAuction(v bool) {
	f.mu.Lock()
	f.auction = v
	f.mu.Unlock()
}

// Close stops the feed. Run owns the channels and closes them on the
// way out, so consumers drain and stop naturally.
func (f *Synthetic) Close() {
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *Synthetic) Run(ctx context.Context, onStatus func(connected bool)) {
	if f.cancel != nil {
		return
	}
	f.ctx, f.cancel = context.WithCancel(ctx)

	f.setConnected(true)
	onStatus(true)

	ticker := time.NewTicker(f.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			f.setConnected(false)
			onStatus(false)
			close(f.snapCh)
			close(f.errCh)
			return
		case <-ticker.C:
			snap := f.next(time.Now())
			select {
			case f.snapCh <- snap:
			default:
				// Consumers lag; the latest book supersedes anyway.
				f.log.Debug("feed: dropped snapshot", slog.String("symbol", snap.Symbol))
			}
		}
	}
}

// next advances the walk one step and lays out a full snapshot.
func (f *Synthetic) next(now time.Time) depth.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.driftTicks += int64(math.Round(f.rng.NormFloat64() * f.opts.Volatility))
	// Keep the deepest bid level above zero.
	floor := -f.opts.BasePrice.Div(f.opts.TickSize).IntPart() + int64(f.opts.Levels) + 2
	if f.driftTicks < floor {
		f.driftTicks = floor
	}
	mid := f.opts.BasePrice.Add(f.opts.TickSize.Mul(decimal.NewFromInt(f.driftTicks)))

	snap := depth.Snapshot{
		Symbol:  f.symbol,
		Auction: f.auction,
		Time:    now,
	}

	levels, stride := f.opts.Levels, int64(1)
	if f.auction {
		// Auction previews are sparse: a handful of widely spaced
		// indicative crossings.
		if levels > 8 {
			levels = 8
		}
		stride = 5
	}

	for i := 0; i < levels; i++ {
		off := f.opts.TickSize.Mul(decimal.NewFromInt(int64(i)*stride + 1))
		snap.Bids = append(snap.Bids, f.venueRows("BID", mid.Sub(off))...)
		snap.Asks = append(snap.Asks, f.venueRows("ASK", mid.Add(off))...)
	}
	return snap
}

// venueRows emits one or two rows for a price level; a coin flip splits
// the size across two venues.
func (f *Synthetic) venueRows(side string, price decimal.Decimal) []depth.Level {
	size := f.opts.BaseSize/2 + f.rng.Intn(f.opts.BaseSize)
	v := venues[f.rng.Intn(len(venues))]
	if f.rng.Intn(2) == 0 {
		return []depth.Level{{Side: side, Price: price, Size: size, Venue: v}}
	}
	w := venues[f.rng.Intn(len(venues))]
	return []depth.Level{
		{Side: side, Price: price, Size: size / 2, Venue: v},
		{Side: side, Price: price, Size: size - size/2, Venue: w},
	}
}
