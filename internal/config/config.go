// Package config defines the top-level configuration for the safety-market
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SAFETYD_* environment
// variables.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Market   MarketConfig   `toml:"market"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters. With no DSN and no
// host, the service runs on the in-memory ledger (single-node mode).
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether a PostgreSQL endpoint is configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.DSN) != "" || strings.TrimSpace(d.Host) != ""
}

// RedisConfig holds Redis connection parameters. With no address, locks and
// the event bus stay in-process.
type RedisConfig struct {
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	PoolSize        int    `toml:"pool_size"`
	MaxRetries      int    `toml:"max_retries"`
	TLSEnabled      bool   `toml:"tls_enabled"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// S3Config holds S3-compatible object storage parameters for the resolved-
// market archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Enabled reports whether object storage is configured.
func (s S3Config) Enabled() bool {
	return strings.TrimSpace(s.Bucket) != ""
}

// MarketConfig holds the market-engine tunables.
type MarketConfig struct {
	// Horizon is the betting window of a new market.
	Horizon duration `toml:"horizon"`
	// SweepInterval is how often expired markets are auto-resolved.
	SweepInterval duration `toml:"sweep_interval"`
	// AdminAddress may cancel markets. Empty disables cancellation checks.
	AdminAddress string `toml:"admin_address"`
	// ArchiveAfter is how long resolved markets stay in the hot ledger
	// before the archiver copies them to object storage.
	ArchiveAfter duration `toml:"archive_after"`
	// ArchiveInterval is how often the archiver runs.
	ArchiveInterval duration `toml:"archive_interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "72h", "30m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration: full mode on port 8080, a
// three-day market horizon, hourly sweeps, weekly archive runs over markets
// resolved more than 30 days ago.
func Defaults() Config {
	return Config{
		Mode:     "full",
		LogLevel: "info",
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Market: MarketConfig{
			Horizon:         duration{72 * time.Hour},
			SweepInterval:   duration{time.Hour},
			ArchiveAfter:    duration{30 * 24 * time.Hour},
			ArchiveInterval: duration{24 * time.Hour},
		},
	}
}

// Validate checks the configuration for inconsistencies that would only
// surface later at runtime.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "full", "serve", "sweep":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Market.Horizon.Duration <= 0 {
		return fmt.Errorf("config: market horizon must be positive")
	}
	if c.Market.SweepInterval.Duration <= 0 {
		return fmt.Errorf("config: sweep interval must be positive")
	}
	if c.Database.Enabled() && c.Database.DSN == "" {
		if c.Database.Database == "" || c.Database.User == "" {
			return fmt.Errorf("config: database host set but database/user missing")
		}
	}
	if c.S3.Enabled() && c.S3.Region == "" && c.S3.Endpoint == "" {
		return fmt.Errorf("config: s3 bucket set but neither region nor endpoint given")
	}
	return nil
}
