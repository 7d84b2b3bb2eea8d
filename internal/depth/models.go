package depth

import (
	"time"

	"github.com/shopspring/decimal"
)

type Level struct {
	Side  string          `json:"side"`  // "ASK" or "BID"
	Price decimal.Decimal `json:"price"` // price level
	Size  int             `json:"size"`  // shares at this venue at this price
	Venue string          `json:"venue"` // exchange/venue
}

type Snapshot struct {
	Symbol string // canonical UPPER symbol
	Asks   []Level
	Bids   []Level
	// Auction marks an indicative-price snapshot; the chart renders it as
	// discrete points instead of two cumulative curves.
	Auction bool
	Time    time.Time
}

// CurvePoint is one point of the chart-ready depth curve. Volume is the
// cumulative size from the best level outward.
type CurvePoint struct {
	Price  decimal.Decimal `json:"price"`
	Volume int             `json:"volume"`
	Sell   bool            `json:"sell"`
}

// Book is a built depth curve: points strictly ascending by price, bids
// below mid and asks above it.
type Book struct {
	Symbol   string          `json:"symbol"`
	Points   []CurvePoint    `json:"points"`
	MidPrice decimal.Decimal `json:"midPrice"`
	Auction  bool            `json:"auction"`
	Time     time.Time       `json:"time"`
}
