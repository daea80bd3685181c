package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/arena.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:""`

	// Watchdog tuning. The interval is a cadence knob, not a correctness
	// knob: advancement stays safe at any tick rate.
	WatchdogInterval time.Duration `env:"WATCHDOG_INTERVAL" envDefault:"1s"`
	AdvanceDebounce  time.Duration `env:"ADVANCE_DEBOUNCE" envDefault:"3s"`
	StuckCeiling     time.Duration `env:"STUCK_CEILING" envDefault:"1h"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
