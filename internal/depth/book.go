package depth

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

type Builder struct {
	maxLevels int
}

// NewBuilder caps each side of the built curve at maxLevels price levels
// counted from the best level; zero or negative means no cap.
func NewBuilder(maxLevels int) *Builder {
	return &Builder{maxLevels: maxLevels}
}

// Build turns a raw snapshot into the chart-ready cumulative curve: venue
// rows are aggregated by price, each side is walked from its best level
// accumulating size, and the two sides are merged ascending by price. Mid
// is the midpoint of best bid and best ask, or the best of whichever side
// exists.
func (b *Builder) Build(snap Snapshot) Book {
	bids := b.sideLevels(snap.Bids, "BID")
	asks := b.sideLevels(snap.Asks, "ASK")

	book := Book{
		Symbol:  snap.Symbol,
		Auction: snap.Auction,
		Time:    snap.Time,
		Points:  make([]CurvePoint, 0, len(bids)+len(asks)),
	}

	switch {
	case len(bids) > 0 && len(asks) > 0:
		book.MidPrice = decimal.Avg(bids[0].Price, asks[0].Price)
	case len(bids) > 0:
		book.MidPrice = bids[0].Price
	case len(asks) > 0:
		book.MidPrice = asks[0].Price
	default:
		return book
	}

	// Bids accumulate from best (highest) downward; reversing the walk
	// leaves the merged slice ascending.
	sum := 0
	for i := range bids {
		sum += bids[i].Volume
		bids[i].Volume = sum
	}
	for i := len(bids) - 1; i >= 0; i-- {
		book.Points = append(book.Points, bids[i])
	}
	sum = 0
	for i := range asks {
		sum += asks[i].Volume
		asks[i].Volume = sum
		book.Points = append(book.Points, asks[i])
	}
	return book
}

// sideLevels aggregates one side's venue rows by price and orders them
// best-first: descending for bids, ascending for asks.
// IMPORTANT: decimal.Decimal values that are numerically equal can carry
// different exponents (e.g., "100" vs "100.00"). If we use Decimal as a
// map key, those become distinct keys. To ensure correct aggregation,
// canonicalize the price into a normalized string key.
func (b *Builder) sideLevels(rows []Level, side string) []CurvePoint {
	sumByKey := map[string]int{}
	priceByKey := map[string]decimal.Decimal{}
	for _, lvl := range rows {
		if strings.ToUpper(lvl.Side) != side {
			continue
		}
		k := canonicalPriceKey(lvl.Price)
		sumByKey[k] += lvl.Size
		if _, ok := priceByKey[k]; !ok {
			priceByKey[k] = lvl.Price
		}
	}
	if len(sumByKey) == 0 {
		return nil
	}

	keys := make([]string, 0, len(sumByKey))
	for k := range sumByKey {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(ka, kb string) int {
		pa := priceByKey[ka]
		pb := priceByKey[kb]
		if side == "BID" {
			// best bid is highest price first (descending)
			return pb.Cmp(pa)
		}
		// best ask is lowest price first (ascending)
		return pa.Cmp(pb)
	})
	if b.maxLevels > 0 && len(keys) > b.maxLevels {
		keys = keys[:b.maxLevels]
	}

	out := make([]CurvePoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, CurvePoint{
			Price:  priceByKey[k],
			Volume: sumByKey[k],
			Sell:   side == "ASK",
		})
	}
	return out
}

// canonicalPriceKey normalizes a Decimal so numerically equal values hash
// to the same key. String() removes redundant trailing zeros
// (e.g., "100.00" -> "100").
func canonicalPriceKey(p decimal.Decimal) string {
	return p.String()
}
