package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dluxlabs/safetymarket/internal/domain"
	"github.com/dluxlabs/safetymarket/internal/service"
)

// SafetyService is the slice of the service layer the safety handler needs.
type SafetyService interface {
	DAppSafetyStatus(ctx context.Context, dappID string) (domain.DAppSafetyStatus, error)
	FlagDApp(ctx context.Context, in service.FlagInput) (domain.SafetyFlag, error)
}

// ActiveMarketLister lists the open markets of a dApp.
type ActiveMarketLister interface {
	ActiveMarkets(ctx context.Context, dappID string) ([]domain.Market, error)
}

// SafetyHandler serves the per-dApp safety endpoints.
type SafetyHandler struct {
	safety  SafetyService
	markets ActiveMarketLister
	logger  *slog.Logger
}

// NewSafetyHandler creates a SafetyHandler.
func NewSafetyHandler(safety SafetyService, markets ActiveMarketLister, logger *slog.Logger) *SafetyHandler {
	return &SafetyHandler{
		safety:  safety,
		markets: markets,
		logger:  logger,
	}
}

// dappMarketsResponse wraps the active-market listing.
type dappMarketsResponse struct {
	DAppID  string          `json:"dappId"`
	Markets []domain.Market `json:"markets"`
}

// ListDAppMarkets returns the open, unexpired markets for a dApp.
// GET /api/dapps/{dappId}/markets
func (h *SafetyHandler) ListDAppMarkets(w http.ResponseWriter, r *http.Request) {
	dappID := pathParam(r, "dappId")
	if dappID == "" {
		writeError(w, http.StatusBadRequest, "missing dapp id")
		return
	}

	markets, err := h.markets.ActiveMarkets(r.Context(), dappID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list dapp markets failed",
			slog.String("dapp_id", dappID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to list markets")
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}

	writeJSON(w, http.StatusOK, dappMarketsResponse{
		DAppID:  dappID,
		Markets: markets,
	})
}

// GetDAppSafety returns the aggregated safety verdict for a dApp.
// GET /api/dapps/{dappId}/safety
func (h *SafetyHandler) GetDAppSafety(w http.ResponseWriter, r *http.Request) {
	dappID := pathParam(r, "dappId")
	if dappID == "" {
		writeError(w, http.StatusBadRequest, "missing dapp id")
		return
	}

	status, err := h.safety.DAppSafetyStatus(r.Context(), dappID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "dapp safety status failed",
			slog.String("dapp_id", dappID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to compute safety status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// FlagDApp files a safety flag and opens a market for it.
// POST /api/flags
func (h *SafetyHandler) FlagDApp(w http.ResponseWriter, r *http.Request) {
	var in service.FlagInput
	if err := decodeBody(r, &in); err != nil {
		writeDomainError(w, err, "failed to file flag")
		return
	}

	flag, err := h.safety.FlagDApp(r.Context(), in)
	if err != nil {
		h.logger.WarnContext(r.Context(), "flag dapp failed",
			slog.String("dapp_id", in.DAppID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to file flag")
		return
	}

	writeJSON(w, http.StatusCreated, flag)
}
