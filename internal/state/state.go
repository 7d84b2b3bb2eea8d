package state

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// State is the shared runtime state of the chart service: the active
// symbol, the book mode, feed health, client count, and the externally
// pinned crosshair price. Safe for concurrent use.
type State struct {
	activeMu     sync.RWMutex
	activeSymbol string

	auction   atomic.Bool
	connected atomic.Bool
	clients   atomic.Int64

	priceMu  sync.Mutex
	price    decimal.Decimal
	hasPrice bool
}

func NewState(symbol string) *State {
	s := &State{}
	s.SetSymbol(symbol)
	return s
}

func (s *State) SetSymbol(sym string) string {
	canon := strings.ToUpper(strings.TrimSpace(sym))
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.activeSymbol = canon
	return canon
}

func (s *State) Symbol() string {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	return s.activeSymbol
}

// SetAuction flips between continuous-book and auction rendering and
// reports whether the value changed.
func (s *State) SetAuction(v bool) bool {
	return s.auction.Swap(v) != v
}

func (s *State) Auction() bool { return s.auction.Load() }

func (s *State) SetConnected(v bool) { s.connected.Store(v) }
func (s *State) Connected() bool     { return s.connected.Load() }

func (s *State) ClientJoined() int { return int(s.clients.Add(1)) }
func (s *State) ClientLeft() int   { return int(s.clients.Add(-1)) }
func (s *State) Clients() int      { return int(s.clients.Load()) }

// SetPrice pins the crosshair to an externally supplied price; it stays
// until ClearPrice.
func (s *State) SetPrice(p decimal.Decimal) {
	s.priceMu.Lock()
	defer s.priceMu.Unlock()
	s.price = p
	s.hasPrice = true
}

func (s *State) ClearPrice() {
	s.priceMu.Lock()
	defer s.priceMu.Unlock()
	s.price = decimal.Decimal{}
	s.hasPrice = false
}

func (s *State) Price() (decimal.Decimal, bool) {
	s.priceMu.Lock()
	defer s.priceMu.Unlock()
	return s.price, s.hasPrice
}
