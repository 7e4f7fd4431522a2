package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults().Validate(): %v", err)
	}
	if cfg.Mode != "full" {
		t.Errorf("mode = %q, want full", cfg.Mode)
	}
	if cfg.Market.Horizon.Duration != 72*time.Hour {
		t.Errorf("horizon = %s, want 72h", cfg.Market.Horizon.Duration)
	}
	if cfg.Market.SweepInterval.Duration != time.Hour {
		t.Errorf("sweep interval = %s, want 1h", cfg.Market.SweepInterval.Duration)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "trade" }},
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
		{"zero horizon", func(c *Config) { c.Market.Horizon = duration{} }},
		{"zero sweep interval", func(c *Config) { c.Market.SweepInterval = duration{} }},
		{"host without database", func(c *Config) { c.Database.Host = "db.internal" }},
		{"bucket without region", func(c *Config) { c.S3.Bucket = "archive" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	toml := `
mode = "serve"
log_level = "debug"

[server]
port = 9090

[market]
horizon = "48h"
admin_address = "0xadmin"

[redis]
addr = "localhost:6379"
`
	if err := os.WriteFile(path, []byte(toml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SAFETYD_SERVER_PORT", "7070")
	t.Setenv("SAFETYD_MARKET_SWEEP_INTERVAL", "30m")
	t.Setenv("SAFETYD_REDIS_ADDR", "redis.internal:6380")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "serve" {
		t.Errorf("mode = %q, want serve", cfg.Mode)
	}
	if cfg.Market.Horizon.Duration != 48*time.Hour {
		t.Errorf("horizon = %s, want 48h", cfg.Market.Horizon.Duration)
	}
	if cfg.Market.AdminAddress != "0xadmin" {
		t.Errorf("admin = %q", cfg.Market.AdminAddress)
	}

	// Environment overrides beat the file.
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Market.SweepInterval.Duration != 30*time.Minute {
		t.Errorf("sweep = %s, want 30m", cfg.Market.SweepInterval.Duration)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("redis addr = %q, want env override", cfg.Redis.Addr)
	}
	if !cfg.Redis.Enabled() {
		t.Error("redis should be enabled")
	}
	if cfg.Database.Enabled() {
		t.Error("database should be disabled")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Mode != "full" {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}
