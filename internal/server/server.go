// Package server assembles the HTTP API: route registration, the middleware
// chain, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dluxlabs/safetymarket/internal/server/handler"
	"github.com/dluxlabs/safetymarket/internal/server/middleware"
	"github.com/dluxlabs/safetymarket/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication

	// RateLimiter, when set, limits each client IP to RateLimit requests
	// per RateWindow.
	RateLimiter middleware.RateLimiter
	RateLimit   int
	RateWindow  time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health *handler.HealthHandler
	Market *handler.MarketHandler
	Safety *handler.SafetyHandler
}

// Server is the HTTP and WebSocket front of the market engine.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain. wsHub may
// be nil when no event bus is wired.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("POST /api/markets", handlers.Market.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Market.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/status", handlers.Market.GetMarketStatus)
	mux.HandleFunc("POST /api/markets/{id}/bets", handlers.Market.PlaceBet)
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Market.ResolveMarket)
	mux.HandleFunc("POST /api/markets/{id}/cancel", handlers.Market.CancelMarket)

	mux.HandleFunc("GET /api/dapps/{dappId}/markets", handlers.Safety.ListDAppMarkets)
	mux.HandleFunc("GET /api/dapps/{dappId}/safety", handlers.Safety.GetDAppSafety)
	mux.HandleFunc("POST /api/flags", handlers.Safety.FlagDApp)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if cfg.RateLimiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start listens until the server errors or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
