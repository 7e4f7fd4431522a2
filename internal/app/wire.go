package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/dluxlabs/safetymarket/internal/blob/s3"
	"github.com/dluxlabs/safetymarket/internal/cache/redis"
	"github.com/dluxlabs/safetymarket/internal/config"
	"github.com/dluxlabs/safetymarket/internal/domain"
	"github.com/dluxlabs/safetymarket/internal/notify"
	"github.com/dluxlabs/safetymarket/internal/server/handler"
	"github.com/dluxlabs/safetymarket/internal/server/middleware"
	"github.com/dluxlabs/safetymarket/internal/store/memory"
	"github.com/dluxlabs/safetymarket/internal/store/postgres"
)

// Dependencies bundles every concrete collaborator the application modes
// need. Wire constructs it; the returned cleanup function tears it down.
type Dependencies struct {
	MarketStore domain.MarketStore
	FlagStore   domain.FlagStore

	// MarketCache and RateLimiter are nil without Redis; LockManager and
	// SignalBus fall back to in-process implementations.
	MarketCache domain.MarketCache
	LockManager domain.LockManager
	SignalBus   domain.SignalBus
	RateLimiter middleware.RateLimiter

	// Archiver is nil without object storage.
	Archiver *s3blob.Archiver

	Notifier *notify.Notifier

	// HealthProbes maps component names to connectivity checks for the
	// health endpoint.
	HealthProbes map[string]handler.Pinger
}

// pingerFunc adapts a plain function to handler.Pinger.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Wire constructs the dependency graph from the configuration. Postgres,
// Redis, and S3 are each optional: without them the engine runs on the
// in-memory ledger with in-process locks and bus, which is the single-node
// development setup.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		HealthProbes: make(map[string]handler.Pinger),
	}

	// ── Ledger ──
	if cfg.Database.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.FlagStore = postgres.NewFlagStore(pool)
		deps.HealthProbes["postgres"] = pingerFunc(pool.Ping)
	} else {
		logger.InfoContext(ctx, "no database configured, using in-memory ledger")
		deps.MarketStore = memory.NewMarketStore()
		deps.FlagStore = memory.NewFlagStore()
	}

	// ── Locks, cache, bus ──
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		cacheTTL := time.Duration(cfg.Redis.CacheTTLMinutes) * time.Minute
		deps.MarketCache = redis.NewMarketCache(redisClient, cacheTTL)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.HealthProbes["redis"] = pingerFunc(redisClient.Ping)
	} else {
		logger.InfoContext(ctx, "no redis configured, using in-process locks and bus")
		deps.LockManager = memory.NewLockManager()
		deps.SignalBus = memory.NewSignalBus()
	}

	// ── Object storage ──
	if cfg.S3.Enabled() {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.MarketStore,
			cfg.Market.ArchiveAfter.Duration,
			cfg.Market.ArchiveInterval.Duration,
			logger,
		)
		deps.HealthProbes["s3"] = pingerFunc(s3Client.Health)
	}

	// ── Notifications ──
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	return deps, cleanup, nil
}
