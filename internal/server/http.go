package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"depth-chart/internal/config"
	"depth-chart/internal/observability"
	"depth-chart/internal/scene"
	"depth-chart/internal/state"
)

type HTTPServer struct {
	cfg    config.Config
	st     *state.State
	engine Engine
	hub    *hub
	log    *slog.Logger
	mux    *http.ServeMux
}

func NewHTTPServer(cfg config.Config, st *state.State, engine Engine, m *observability.Metrics, logger *slog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg:    cfg,
		st:     st,
		engine: engine,
		hub:    newHub(engine, st, m, logger),
		log:    logger,
		mux:    http.NewServeMux(),
	}
	s.routes()
	go s.hub.run()
	return s
}

func (s *HTTPServer) Router() http.Handler { return s.mux }

// --------- WS broadcasts ----------

// BroadcastFrame pushes a rendered frame to every client. Frames are
// full repaints, so dropping one under pressure loses nothing.
func (s *HTTPServer) BroadcastFrame(ops []scene.DrawOp) {
	select {
	case s.hub.frames <- marshalWS("frame", ops):
		s.hub.metrics.FramesBroadcast.Inc()
	default:
		s.log.Debug("frame dropped, hub busy")
	}
}

func (s *HTTPServer) BroadcastStatus() {
	msg := map[string]any{
		"connected": s.st.Connected(),
		"symbol":    s.st.Symbol(),
		"auction":   s.st.Auction(),
	}
	s.hub.broadcast <- marshalWS("status", msg)
}

func (s *HTTPServer) BroadcastError(msg string) {
	s.hub.broadcast <- marshalWS("error", map[string]string{"message": msg})
}

// --------- Routes ----------

func (s *HTTPServer) routes() {
	// SPA
	s.mux.HandleFunc("/", s.serveIndex)
	s.mux.HandleFunc("/index.html", s.serveIndex)
	s.mux.HandleFunc("/app.js", s.serveAppJS)
	s.mux.HandleFunc("/styles.css", s.serveCSS)

	// WS
	s.mux.HandleFunc("/ws", s.hub.serveWS)

	// Prometheus
	s.mux.Handle("/metrics", observability.Handler())

	// API
	s.mux.HandleFunc("/api/health", s.apiHealth)
	s.mux.HandleFunc("/api/config", s.apiConfig)
	s.mux.HandleFunc("/api/mode", s.apiMode)
	s.mux.HandleFunc("/api/symbol", s.apiSymbol)
	s.mux.HandleFunc("/api/price", s.apiPrice)
}

func (s *HTTPServer) serveIndex(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/index.html")
	if err != nil {
		http.Error(w, "index missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) serveAppJS(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/app.js")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) serveCSS(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/styles.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) apiHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ok":        true,
		"connected": s.st.Connected(),
		"symbol":    s.st.Symbol(),
		"auction":   s.st.Auction(),
		"clients":   s.st.Clients(),
		"transform": s.engine.Transform(),
	})
}

func (s *HTTPServer) apiConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"symbol":          s.cfg.Symbol,
		"width":           s.cfg.Chart.Width,
		"height":          s.cfg.Chart.Height,
		"zoomMin":         s.cfg.Chart.ZoomMin,
		"zoomMax":         s.cfg.Chart.ZoomMax,
		"wheelDebounceMs": s.cfg.Chart.WheelDebounceMS,
		"hitRadiusPx":     s.cfg.Chart.HitRadiusPX,
		"maxLevels":       s.cfg.Chart.MaxLevels,
		"intervalMs":      s.cfg.Feed.IntervalMS,
	})
}

// POST /api/mode { "auction": true|false }
func (s *HTTPServer) apiMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Auction bool `json:"auction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	s.engine.SetAuction(req.Auction)
	s.BroadcastStatus()
	writeJSON(w, map[string]any{"ok": true, "auction": s.st.Auction()})
}

// POST /api/symbol { "symbol": "BTC-USD" }
func (s *HTTPServer) apiSymbol(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.engine.SetSymbol(req.Symbol); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.BroadcastStatus()
	writeJSON(w, map[string]any{"ok": true, "symbol": s.st.Symbol()})
}

// POST /api/price { "price": "101.25" }. An empty price clears the pin.
func (s *HTTPServer) apiPrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Price string `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	raw := strings.TrimSpace(req.Price)
	if raw == "" {
		s.engine.ClearPrice()
		writeJSON(w, map[string]any{"ok": true, "pinned": false})
		return
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		http.Error(w, "price must be a decimal number", http.StatusBadRequest)
		return
	}
	s.engine.SetPrice(d)
	writeJSON(w, map[string]any{"ok": true, "pinned": true, "price": d.String()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
