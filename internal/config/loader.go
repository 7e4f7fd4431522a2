package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SAFETYD_* environment variable overrides, and
// returns the final Config. The caller should invoke Config.Validate()
// after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env if present; missing is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SAFETYD_* environment variables and
// overwrites the corresponding Config fields when set, so operators can
// inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "SAFETYD_DATABASE_DSN")
	setStr(&cfg.Database.Host, "SAFETYD_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SAFETYD_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SAFETYD_DATABASE_NAME")
	setStr(&cfg.Database.User, "SAFETYD_DATABASE_USER")
	setStr(&cfg.Database.Password, "SAFETYD_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SAFETYD_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "SAFETYD_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SAFETYD_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SAFETYD_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SAFETYD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SAFETYD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SAFETYD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SAFETYD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SAFETYD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SAFETYD_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.CacheTTLMinutes, "SAFETYD_REDIS_CACHE_TTL_MINUTES")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SAFETYD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SAFETYD_S3_REGION")
	setStr(&cfg.S3.Bucket, "SAFETYD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SAFETYD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SAFETYD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SAFETYD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SAFETYD_S3_FORCE_PATH_STYLE")

	// ── Market ──
	setDuration(&cfg.Market.Horizon, "SAFETYD_MARKET_HORIZON")
	setDuration(&cfg.Market.SweepInterval, "SAFETYD_MARKET_SWEEP_INTERVAL")
	setStr(&cfg.Market.AdminAddress, "SAFETYD_MARKET_ADMIN_ADDRESS")
	setDuration(&cfg.Market.ArchiveAfter, "SAFETYD_MARKET_ARCHIVE_AFTER")
	setDuration(&cfg.Market.ArchiveInterval, "SAFETYD_MARKET_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SAFETYD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SAFETYD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SAFETYD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SAFETYD_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SAFETYD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SAFETYD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SAFETYD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SAFETYD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SAFETYD_MODE")
	setStr(&cfg.LogLevel, "SAFETYD_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
