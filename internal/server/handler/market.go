package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dluxlabs/safetymarket/internal/domain"
	"github.com/dluxlabs/safetymarket/internal/service"
)

// MarketService is the slice of the service layer the market handler needs,
// declared locally so the handler package stays decoupled from the concrete
// implementation.
type MarketService interface {
	CreateMarket(ctx context.Context, in service.CreateMarketInput) (domain.Market, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	MarketStatus(ctx context.Context, id string) (domain.MarketStatusView, error)
	PlaceBet(ctx context.Context, in service.PlaceBetInput) (domain.Bet, error)
	ResolveMarket(ctx context.Context, in service.ResolveMarketInput) (domain.Market, error)
	CancelMarket(ctx context.Context, marketID, requestedBy string) (domain.Market, error)
}

// MarketHandler serves the market lifecycle endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// CreateMarket opens a new market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var in service.CreateMarketInput
	if err := decodeBody(r, &in); err != nil {
		writeDomainError(w, err, "failed to create market")
		return
	}

	market, err := h.markets.CreateMarket(r.Context(), in)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "create market failed",
			slog.String("dapp_id", in.DAppID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to create market")
		return
	}

	writeJSON(w, http.StatusCreated, market)
}

// GetMarket returns a single market by id, including its bets.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// GetMarketStatus returns the derived view of a market: odds, status color,
// confidence, and days remaining.
// GET /api/markets/{id}/status
func (h *MarketHandler) GetMarketStatus(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	view, err := h.markets.MarketStatus(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get market status")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// PlaceBet stakes on one side of a market. The market id in the path wins
// over any id in the body.
// POST /api/markets/{id}/bets
func (h *MarketHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var in service.PlaceBetInput
	if err := decodeBody(r, &in); err != nil {
		writeDomainError(w, err, "failed to place bet")
		return
	}
	in.MarketID = id

	bet, err := h.markets.PlaceBet(r.Context(), in)
	if err != nil {
		h.logger.WarnContext(r.Context(), "place bet failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to place bet")
		return
	}

	writeJSON(w, http.StatusCreated, bet)
}

// ResolveMarket settles a market. The optional resolution in the body
// overrides the odds-determined outcome.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var in service.ResolveMarketInput
	if err := decodeBody(r, &in); err != nil {
		writeDomainError(w, err, "failed to resolve market")
		return
	}
	in.MarketID = id

	market, err := h.markets.ResolveMarket(r.Context(), in)
	if err != nil {
		h.logger.WarnContext(r.Context(), "resolve market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to resolve market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// cancelRequest carries the caller identity for an administrative cancel.
type cancelRequest struct {
	RequestedBy string `json:"requestedBy"`
}

// CancelMarket voids a market without payouts.
// POST /api/markets/{id}/cancel
func (h *MarketHandler) CancelMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req cancelRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, err, "failed to cancel market")
		return
	}

	market, err := h.markets.CancelMarket(r.Context(), id, req.RequestedBy)
	if err != nil {
		h.logger.WarnContext(r.Context(), "cancel market failed",
			slog.String("market_id", id),
			slog.String("requested_by", req.RequestedBy),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to cancel market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}
