package depth

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBuildAggregatesVenueRows(t *testing.T) {
	b := NewBuilder(10)

	// Same price from two venues, with different decimal exponents.
	book := b.Build(Snapshot{
		Symbol: "AAPL",
		Asks: []Level{
			{Side: "ASK", Price: decimal.NewFromFloat(100.00), Size: 5000, Venue: "X"},
			{Side: "ASK", Price: decimal.RequireFromString("100.00"), Size: 7000, Venue: "Y"},
			{Side: "ASK", Price: decimal.NewFromFloat(100.01), Size: 3000, Venue: "X"},
		},
	})

	if len(book.Points) != 2 {
		t.Fatalf("points got %d want 2", len(book.Points))
	}
	if !book.Points[0].Price.Equals(decimal.NewFromFloat(100.00)) {
		t.Fatalf("best ask price got %v want 100.00", book.Points[0].Price)
	}
	if book.Points[0].Volume != 12000 { // 5000 + 7000 aggregated
		t.Fatalf("sum at best ask got %d want 12000", book.Points[0].Volume)
	}
}

func TestBuildCumulativeCurve(t *testing.T) {
	b := NewBuilder(0)

	book := b.Build(Snapshot{
		Symbol: "MSFT",
		Bids: []Level{
			{Side: "BID", Price: decimal.NewFromInt(99), Size: 10, Venue: "X"},
			{Side: "BID", Price: decimal.NewFromInt(98), Size: 20, Venue: "X"},
		},
		Asks: []Level{
			{Side: "ASK", Price: decimal.NewFromInt(101), Size: 5, Venue: "X"},
			{Side: "ASK", Price: decimal.NewFromInt(102), Size: 15, Venue: "X"},
		},
	})

	if !book.MidPrice.Equals(decimal.NewFromInt(100)) {
		t.Fatalf("mid got %v want 100", book.MidPrice)
	}
	if len(book.Points) != 4 {
		t.Fatalf("points got %d want 4", len(book.Points))
	}

	// Ascending by price, volumes cumulative from each side's best level.
	wantPrices := []int64{98, 99, 101, 102}
	wantVolumes := []int{30, 10, 5, 20}
	wantSell := []bool{false, false, true, true}
	for i, p := range book.Points {
		if !p.Price.Equals(decimal.NewFromInt(wantPrices[i])) {
			t.Fatalf("point %d price got %v want %d", i, p.Price, wantPrices[i])
		}
		if p.Volume != wantVolumes[i] {
			t.Fatalf("point %d volume got %d want %d", i, p.Volume, wantVolumes[i])
		}
		if p.Sell != wantSell[i] {
			t.Fatalf("point %d sell got %v want %v", i, p.Sell, wantSell[i])
		}
	}
}

func TestBuildCapsLevelsFromBest(t *testing.T) {
	b := NewBuilder(1)

	book := b.Build(Snapshot{
		Symbol: "TSLA",
		Bids: []Level{
			{Side: "BID", Price: decimal.NewFromInt(99), Size: 10, Venue: "X"},
			{Side: "BID", Price: decimal.NewFromInt(98), Size: 20, Venue: "X"},
		},
		Asks: []Level{
			{Side: "ASK", Price: decimal.NewFromInt(101), Size: 5, Venue: "X"},
			{Side: "ASK", Price: decimal.NewFromInt(102), Size: 15, Venue: "X"},
		},
	})

	if len(book.Points) != 2 {
		t.Fatalf("points got %d want 2", len(book.Points))
	}
	if !book.Points[0].Price.Equals(decimal.NewFromInt(99)) {
		t.Fatalf("kept bid got %v want 99 (best level)", book.Points[0].Price)
	}
	if !book.Points[1].Price.Equals(decimal.NewFromInt(101)) {
		t.Fatalf("kept ask got %v want 101 (best level)", book.Points[1].Price)
	}
}

func TestBuildOneSidedBook(t *testing.T) {
	b := NewBuilder(0)

	book := b.Build(Snapshot{
		Symbol: "NVDA",
		Asks: []Level{
			{Side: "ASK", Price: decimal.NewFromInt(101), Size: 5, Venue: "X"},
			{Side: "ASK", Price: decimal.NewFromInt(102), Size: 15, Venue: "X"},
		},
	})

	if !book.MidPrice.Equals(decimal.NewFromInt(101)) {
		t.Fatalf("one-sided mid got %v want best ask 101", book.MidPrice)
	}
	for i, p := range book.Points {
		if !p.Sell {
			t.Fatalf("point %d should be sell side", i)
		}
	}
}

func TestBuildEmptySnapshot(t *testing.T) {
	b := NewBuilder(10)
	book := b.Build(Snapshot{Symbol: "AMD"})
	if len(book.Points) != 0 {
		t.Fatalf("points got %d want 0", len(book.Points))
	}
	if !book.MidPrice.IsZero() {
		t.Fatalf("mid got %v want zero", book.MidPrice)
	}
}

func TestBuildSkipsMislabeledRows(t *testing.T) {
	b := NewBuilder(0)
	book := b.Build(Snapshot{
		Symbol: "INTC",
		Bids: []Level{
			{Side: "ASK", Price: decimal.NewFromInt(99), Size: 10, Venue: "X"},
			{Side: "bid", Price: decimal.NewFromInt(98), Size: 20, Venue: "X"},
		},
	})
	if len(book.Points) != 1 {
		t.Fatalf("points got %d want 1", len(book.Points))
	}
	if book.Points[0].Volume != 20 {
		t.Fatalf("volume got %d want 20", book.Points[0].Volume)
	}
}
