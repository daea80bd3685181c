package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.WatchdogInterval != time.Second {
		t.Errorf("watchdog interval = %v", cfg.WatchdogInterval)
	}
	if cfg.AdvanceDebounce != 3*time.Second {
		t.Errorf("advance debounce = %v", cfg.AdvanceDebounce)
	}
	if cfg.StuckCeiling != time.Hour {
		t.Errorf("stuck ceiling = %v", cfg.StuckCeiling)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("ADVANCE_DEBOUNCE", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.AdvanceDebounce != 10*time.Second {
		t.Errorf("advance debounce = %v", cfg.AdvanceDebounce)
	}
}
