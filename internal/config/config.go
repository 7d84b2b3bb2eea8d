package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	Symbol   string `yaml:"symbol"`

	Chart ChartConfig `yaml:"chart"`
	Feed  FeedConfig  `yaml:"feed"`
}

// ChartConfig sizes the logical viewport and tunes interaction. Pixel
// values are logical; the browser reports its own resolution.
type ChartConfig struct {
	Width           float64 `yaml:"width"`
	Height          float64 `yaml:"height"`
	ZoomMin         float64 `yaml:"zoom_min"`
	ZoomMax         float64 `yaml:"zoom_max"`
	WheelDebounceMS int     `yaml:"wheel_debounce_ms"`
	HitRadiusPX     float64 `yaml:"hit_radius_px"`
	MaxLevels       int     `yaml:"max_levels"` // 0 = uncapped
}

// FeedConfig drives the synthetic book generator. Prices are decimal
// strings so ticks stay exact.
type FeedConfig struct {
	BasePrice  string  `yaml:"base_price"`
	TickSize   string  `yaml:"tick_size"`
	Levels     int     `yaml:"levels"`
	BaseSize   int     `yaml:"base_size"`
	Volatility float64 `yaml:"volatility"`
	IntervalMS int     `yaml:"interval_ms"`
	Seed       int64   `yaml:"seed"` // 0 = seed from the clock
}

func (f FeedConfig) BasePriceDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(f.BasePrice)
	return d
}

func (f FeedConfig) TickSizeDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(f.TickSize)
	return d
}

func defaults() Config {
	return Config{
		Port:     8087,
		LogLevel: "info",
		Symbol:   "BTC-USD",
		Chart: ChartConfig{
			Width:           960,
			Height:          540,
			ZoomMin:         0.5,
			ZoomMax:         8,
			WheelDebounceMS: 150,
			HitRadiusPX:     50,
			MaxLevels:       24,
		},
		Feed: FeedConfig{
			BasePrice:  "27500.00",
			TickSize:   "0.50",
			Levels:     20,
			BaseSize:   1500,
			Volatility: 2,
			IntervalMS: 250,
			Seed:       0,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	// Validation & normalization
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, errors.New("invalid port")
	}
	cfg.Symbol = strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	if cfg.Symbol == "" {
		return cfg, errors.New("symbol required")
	}
	if cfg.Chart.Width <= 0 || cfg.Chart.Height <= 0 {
		return cfg, errors.New("chart width and height must be > 0")
	}
	if cfg.Chart.ZoomMin <= 0 || cfg.Chart.ZoomMax <= 0 {
		return cfg, errors.New("zoom_min and zoom_max must be > 0")
	}
	if cfg.Chart.WheelDebounceMS < 0 {
		return cfg, errors.New("wheel_debounce_ms must be >= 0")
	}
	if cfg.Chart.HitRadiusPX <= 0 {
		return cfg, errors.New("hit_radius_px must be > 0")
	}
	if cfg.Chart.MaxLevels < 0 {
		return cfg, errors.New("max_levels must be >= 0")
	}
	base, err := decimal.NewFromString(cfg.Feed.BasePrice)
	if err != nil || base.Sign() <= 0 {
		return cfg, errors.New("base_price must be a positive decimal")
	}
	tick, err := decimal.NewFromString(cfg.Feed.TickSize)
	if err != nil || tick.Sign() <= 0 {
		return cfg, errors.New("tick_size must be a positive decimal")
	}
	if cfg.Feed.Levels < 1 {
		return cfg, errors.New("feed levels must be >= 1")
	}
	if cfg.Feed.BaseSize < 1 {
		return cfg, errors.New("base_size must be >= 1")
	}
	if cfg.Feed.Volatility <= 0 {
		return cfg, errors.New("volatility must be > 0")
	}
	if cfg.Feed.IntervalMS < 10 {
		return cfg, errors.New("interval_ms must be >= 10")
	}
	return cfg, nil
}

func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
