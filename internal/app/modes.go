package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dluxlabs/safetymarket/internal/scheduler"
	"github.com/dluxlabs/safetymarket/internal/server"
	"github.com/dluxlabs/safetymarket/internal/server/handler"
	"github.com/dluxlabs/safetymarket/internal/server/ws"
	"github.com/dluxlabs/safetymarket/internal/service"
)

// apiRateLimit is the per-IP request budget when a rate limiter is wired.
const (
	apiRateLimit  = 120
	apiRateWindow = time.Minute
)

// buildServices constructs the service layer over the wired dependencies.
func (a *App) buildServices(deps *Dependencies) (*service.MarketService, *service.SafetyService) {
	marketSvc := service.NewMarketService(
		deps.MarketStore,
		deps.LockManager,
		service.MarketServiceOpts{
			Cache:        deps.MarketCache,
			Bus:          deps.SignalBus,
			Notifier:     deps.Notifier,
			AdminAddress: a.cfg.Market.AdminAddress,
			Horizon:      a.cfg.Market.Horizon.Duration,
		},
		a.logger,
	)
	safetySvc := service.NewSafetyService(deps.MarketStore, deps.FlagStore, marketSvc, nil, a.logger)
	return marketSvc, safetySvc
}

// FullMode runs everything: the HTTP and WebSocket API, the expiry sweeper,
// and the archiver when object storage is configured.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	marketSvc, safetySvc := a.buildServices(deps)

	sweeper := scheduler.NewSweeper(marketSvc, a.cfg.Market.SweepInterval.Duration, a.logger)
	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, marketSvc, safetySvc)
	}

	return g.Wait()
}

// ServeMode runs the API only; markets expire but are not auto-resolved
// until an external sweeper or an explicit resolve call settles them.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	marketSvc, safetySvc := a.buildServices(deps)

	a.startHTTPServer(ctx, g, deps, marketSvc, safetySvc)

	return g.Wait()
}

// SweepMode runs the background workers only: the expiry sweeper plus the
// archiver when object storage is configured. Used to settle markets for a
// fleet of serve-mode replicas.
func (a *App) SweepMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sweep mode")

	g, ctx := errgroup.WithContext(ctx)
	marketSvc, _ := a.buildServices(deps)

	sweeper := scheduler.NewSweeper(marketSvc, a.cfg.Market.SweepInterval.Duration, a.logger)
	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	return g.Wait()
}

// startHTTPServer adds the API server and WebSocket hub to the errgroup and
// arranges graceful shutdown on context cancellation.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	marketSvc *service.MarketService,
	safetySvc *service.SafetyService,
) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Server.CORSOrigins, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimiter: deps.RateLimiter,
			RateLimit:   apiRateLimit,
			RateWindow:  apiRateWindow,
		},
		server.Handlers{
			Health: handler.NewHealthHandler(deps.HealthProbes, deps.MarketStore, a.logger),
			Market: handler.NewMarketHandler(marketSvc, a.logger),
			Safety: handler.NewSafetyHandler(safetySvc, marketSvc, a.logger),
		},
		hub,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
