package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"depth-chart/internal/config"
	"depth-chart/internal/control"
	"depth-chart/internal/feed"
	"depth-chart/internal/observability"
	"depth-chart/internal/scene"
	"depth-chart/internal/server"
	"depth-chart/internal/state"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // best-effort: .env is optional

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config.yaml: %v\n", err)
		os.Exit(1)
	}
	if p := os.Getenv("PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 && n <= 65535 {
			cfg.Port = n
		}
	}

	logger := config.NewLogger(cfg.LogLevel)

	logger.Info("depth-chart starting",
		slog.Int("port", cfg.Port),
		slog.String("symbol", cfg.Symbol),
		slog.Int("interval_ms", cfg.Feed.IntervalMS),
	)

	// State + metrics
	st := state.NewState(cfg.Symbol)
	metrics := observability.NewMetrics("", nil)

	// Synthetic book feed
	fd := feed.NewSynthetic(feed.Options{
		Symbol:     cfg.Symbol,
		BasePrice:  cfg.Feed.BasePriceDecimal(),
		TickSize:   cfg.Feed.TickSizeDecimal(),
		Levels:     cfg.Feed.Levels,
		BaseSize:   cfg.Feed.BaseSize,
		Volatility: cfg.Feed.Volatility,
		Interval:   time.Duration(cfg.Feed.IntervalMS) * time.Millisecond,
		Seed:       cfg.Feed.Seed,
	}, logger)

	// Interaction engine. Rendered frames go out over the hub; the sink
	// pointer breaks the controller/server construction cycle.
	var frameSink atomic.Pointer[server.HTTPServer]
	renderer := scene.RendererFunc(func(root *scene.Node) {
		if s := frameSink.Load(); s != nil {
			s.BroadcastFrame(scene.Flatten(root))
		}
	})

	ctrl := control.New(renderer, st, metrics, control.Options{
		Width:         cfg.Chart.Width,
		Height:        cfg.Chart.Height,
		ZoomExtent:    [2]float64{cfg.Chart.ZoomMin, cfg.Chart.ZoomMax},
		WheelDebounce: time.Duration(cfg.Chart.WheelDebounceMS) * time.Millisecond,
		HitRadius:     cfg.Chart.HitRadiusPX,
		MaxLevels:     cfg.Chart.MaxLevels,
	}, logger)
	ctrl.SetFeed(fd)

	// HTTP server + WS hub
	srv := server.NewHTTPServer(cfg, st, ctrl, metrics, logger)
	frameSink.Store(srv)

	// Context & signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start feed
	go fd.Run(ctx, func(connected bool) {
		st.SetConnected(connected)
		if connected {
			metrics.FeedConnected.Set(1)
		} else {
			metrics.FeedConnected.Set(0)
		}
		srv.BroadcastStatus()
	})

	// Pipe feed -> engine -> hub
	go ctrl.Pump(ctx, fd.Snapshots())

	// Surface feed errors to connected browsers
	go func() {
		for {
			select {
			case err, ok := <-fd.Errors():
				if !ok {
					return
				}
				if err != nil {
					logger.Error("book feed error", slog.String("err", err.Error()))
					srv.BroadcastError(err.Error())
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// HTTP serving
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Router(),
	}

	done := make(chan struct{})
	go func() {
		logger.Info("HTTP server listening", slog.Int("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
		close(done)
	}()

	// Graceful shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info("shutting down...")
	shCtx, shCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shCancel()

	_ = httpSrv.Shutdown(shCtx)
	fd.Close()
	<-done
	logger.Info("bye")
}
