package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks one backing dependency (database, cache, object store).
type Pinger interface {
	Ping(ctx context.Context) error
}

// MarketCounter reports the ledger size for the health payload.
type MarketCounter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthHandler serves the health-check endpoint, probing each registered
// dependency with a short deadline.
type HealthHandler struct {
	deps      map[string]Pinger
	markets   MarketCounter
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. deps maps a component name to its
// probe; nil entries are ignored. markets may be nil.
func NewHealthHandler(deps map[string]Pinger, markets MarketCounter, logger *slog.Logger) *HealthHandler {
	filtered := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			filtered[name] = p
		}
	}
	return &HealthHandler{
		deps:      filtered,
		markets:   markets,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

// HealthCheck reports overall liveness plus per-dependency status.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	components := make(map[string]string, len(h.deps))
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "health probe failed",
				slog.String("component", name),
				slog.String("error", err.Error()),
			)
			components[name] = "down"
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status":         status,
		"components":     components,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	if h.markets != nil {
		if n, err := h.markets.Count(ctx); err != nil {
			h.logger.WarnContext(ctx, "market count failed",
				slog.String("error", err.Error()),
			)
		} else {
			body["markets"] = n
		}
	}

	writeJSON(w, code, body)
}
