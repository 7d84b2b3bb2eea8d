package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"depth-chart/internal/chart"
	"depth-chart/internal/observability"
	"depth-chart/internal/state"
)

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Inbound envelope. Data stays raw until the type is known.
type wsInput struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Engine is the interaction surface browser events are forwarded to.
// *control.Controller satisfies it.
type Engine interface {
	PointerMove(x, y float64)
	PointerOut()
	Wheel(deltaY float64, ctrl bool)
	TouchStart(touches ...chart.Touch)
	TouchMove(touches ...chart.Touch)
	TouchEnd(remaining int, ended ...chart.Touch)
	SetPrice(p decimal.Decimal)
	ClearPrice()
	SetAuction(on bool)
	SetSymbol(sym string) error
	Resize(width, height, resolution float64)
	Transform() float64
}

type hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	frames     chan []byte
	lastFrame  []byte // replayed to late joiners
	engine     Engine
	st         *state.State
	metrics    *observability.Metrics
	logger     *slog.Logger
}

type client struct {
	id   uuid.UUID
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

func newHub(engine Engine, st *state.State, m *observability.Metrics, logger *slog.Logger) *hub {
	return &hub{
		clients:    map[*client]bool{},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 1024),
		frames:     make(chan []byte, 64),
		engine:     engine,
		st:         st,
		metrics:    m,
		logger:     logger,
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.metrics.ConnectedClients.Set(float64(h.st.ClientJoined()))
			// Late joiners get the most recent frame right away instead
			// of waiting for the next book tick.
			if h.lastFrame != nil {
				select {
				case c.send <- h.lastFrame:
				default:
				}
			}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
		case msg := <-h.frames:
			h.lastFrame = msg
			h.fanout(msg)
		case msg := <-h.broadcast:
			h.fanout(msg)
		}
	}
}

func (h *hub) fanout(msg []byte) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow consumer; cut it loose rather than stall the hub.
			h.drop(c)
		}
	}
}

func (h *hub) drop(c *client) {
	close(c.send)
	delete(h.clients, c)
	h.metrics.ConnectedClients.Set(float64(h.st.ClientLeft()))
	h.logger.Debug("ws client gone", slog.String("id", c.id.String()))
}

var upgrader = websocket.Upgrader{
	HandshakeTimeout:  10 * time.Second,
	ReadBufferSize:    4096,
	WriteBufferSize:   4096,
	CheckOrigin:       func(r *http.Request) bool { return true }, // SPA local
	EnableCompression: true,
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade", slog.String("err", err.Error()))
		return
	}
	c := &client{
		id:   uuid.New(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.hub.handleInput(c, raw)
	}
}

// Input payloads. Coordinates arrive in logical pixels; the engine owns
// the device-pixel conversion.
type pointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wheelPayload struct {
	DeltaY float64 `json:"deltaY"`
	Ctrl   bool    `json:"ctrl"`
}

type touchPoint struct {
	ID int64   `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type touchPayload struct {
	Touches   []touchPoint `json:"touches"`
	Remaining int          `json:"remaining"`
}

type resizePayload struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Resolution float64 `json:"resolution"`
}

type modePayload struct {
	Auction bool `json:"auction"`
}

type pricePayload struct {
	Price string `json:"price"`
}

type symbolPayload struct {
	Symbol string `json:"symbol"`
}

// handleInput runs on the client's read goroutine; the engine does its
// own locking, so concurrent clients are fine.
func (h *hub) handleInput(c *client, raw []byte) {
	var msg wsInput
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Debug("ws bad message", slog.String("id", c.id.String()), slog.String("err", err.Error()))
		return
	}
	h.metrics.InputEvents.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case "pointermove":
		var p pointerPayload
		if json.Unmarshal(msg.Data, &p) == nil {
			h.engine.PointerMove(p.X, p.Y)
		}
	case "pointerout":
		h.engine.PointerOut()
	case "wheel":
		var p wheelPayload
		if json.Unmarshal(msg.Data, &p) == nil {
			h.engine.Wheel(p.DeltaY, p.Ctrl)
		}
	case "touchstart":
		var p touchPayload
		if json.Unmarshal(msg.Data, &p) == nil {
			h.engine.TouchStart(wsTouches(p.Touches)...)
		}
	case "touchmove":
		var p touchPayload
		if json.Unmarshal(msg.Data, &p) == nil {
			h.engine.TouchMove(wsTouches(p.Touches)...)
		}
	case "touchend":
		var p touchPayload
		if json.Unmarshal(msg.Data, &p) == nil {
			h.engine.TouchEnd(p.Remaining, wsTouches(p.Touches)...)
		}
	case "resize":
		var p resizePayload
		if json.Unmarshal(msg.Data, &p) == nil {
			h.engine.Resize(p.Width, p.Height, p.Resolution)
		}
	case "mode":
		var p modePayload
		if json.Unmarshal(msg.Data, &p) == nil {
			h.engine.SetAuction(p.Auction)
		}
	case "price":
		var p pricePayload
		if json.Unmarshal(msg.Data, &p) != nil {
			return
		}
		if strings.TrimSpace(p.Price) == "" {
			h.engine.ClearPrice()
			return
		}
		d, err := decimal.NewFromString(p.Price)
		if err != nil {
			h.logger.Debug("ws bad price", slog.String("price", p.Price))
			return
		}
		h.engine.SetPrice(d)
	case "clearprice":
		h.engine.ClearPrice()
	case "symbol":
		var p symbolPayload
		if json.Unmarshal(msg.Data, &p) == nil {
			if err := h.engine.SetSymbol(p.Symbol); err != nil {
				h.logger.Warn("symbol change rejected",
					slog.String("symbol", p.Symbol),
					slog.String("err", err.Error()))
			}
		}
	default:
		h.logger.Debug("ws unknown message type", slog.String("type", msg.Type))
	}
}

func wsTouches(pts []touchPoint) []chart.Touch {
	out := make([]chart.Touch, len(pts))
	for i, p := range pts {
		out[i] = chart.Touch{ID: p.ID, X: p.X, Y: p.Y}
	}
	return out
}

func (c *client) writePump() {
	ticker := time.NewTicker(25 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

// helper
func marshalWS(t string, v any) []byte {
	b, _ := json.Marshal(wsMessage{Type: t, Data: v})
	return b
}
