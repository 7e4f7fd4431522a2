package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dluxlabs/safetymarket/internal/domain"
	"github.com/dluxlabs/safetymarket/internal/service"
)

// stubMarketService returns canned results so handler tests exercise routing,
// decoding, and error mapping only.
type stubMarketService struct {
	market domain.Market
	bet    domain.Bet
	view   domain.MarketStatusView
	err    error
}

func (s *stubMarketService) CreateMarket(ctx context.Context, in service.CreateMarketInput) (domain.Market, error) {
	return s.market, s.err
}

func (s *stubMarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	return s.market, s.err
}

func (s *stubMarketService) MarketStatus(ctx context.Context, id string) (domain.MarketStatusView, error) {
	return s.view, s.err
}

func (s *stubMarketService) PlaceBet(ctx context.Context, in service.PlaceBetInput) (domain.Bet, error) {
	return s.bet, s.err
}

func (s *stubMarketService) ResolveMarket(ctx context.Context, in service.ResolveMarketInput) (domain.Market, error) {
	return s.market, s.err
}

func (s *stubMarketService) CancelMarket(ctx context.Context, marketID, requestedBy string) (domain.Market, error) {
	return s.market, s.err
}

func newTestMux(svc MarketService) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewMarketHandler(svc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/markets", h.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", h.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/status", h.GetMarketStatus)
	mux.HandleFunc("POST /api/markets/{id}/bets", h.PlaceBet)
	mux.HandleFunc("POST /api/markets/{id}/resolve", h.ResolveMarket)
	mux.HandleFunc("POST /api/markets/{id}/cancel", h.CancelMarket)
	return mux
}

func TestCreateMarketReturns201(t *testing.T) {
	svc := &stubMarketService{market: domain.Market{ID: "pm_1", DAppID: "dapp-1"}}
	mux := newTestMux(svc)

	body := `{"dappId":"dapp-1","safetyMetric":"nsfw","triggeredBy":"posting","triggeredByAddress":"0xpub"}`
	req := httptest.NewRequest(http.MethodPost, "/api/markets", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body)
	}
	var got domain.Market
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "pm_1" {
		t.Errorf("id = %s, want pm_1", got.ID)
	}
}

func TestCreateMarketRejectsMalformedBody(t *testing.T) {
	mux := newTestMux(&stubMarketService{})

	req := httptest.NewRequest(http.MethodPost, "/api/markets", strings.NewReader(`{"dappId":`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"not open", fmt.Errorf("market pm_1: %w", domain.ErrMarketNotOpen), http.StatusConflict},
		{"expired", domain.ErrMarketExpired, http.StatusConflict},
		{"lock held", domain.ErrLockHeld, http.StatusConflict},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"unknown", fmt.Errorf("pool exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(&stubMarketService{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/markets/pm_1/bets",
				strings.NewReader(`{"bettor":"0xa","side":"safe","amount":10}`))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestGetMarketStatusReturnsView(t *testing.T) {
	svc := &stubMarketService{view: domain.MarketStatusView{
		Market:        domain.Market{ID: "pm_1"},
		StatusColor:   domain.ColorYellow,
		Confidence:    0.2,
		DaysRemaining: 3,
	}}
	mux := newTestMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/markets/pm_1/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got domain.MarketStatusView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.StatusColor != domain.ColorYellow || got.DaysRemaining != 3 {
		t.Errorf("view = %+v", got)
	}
}

func TestCancelMarketPassesRequester(t *testing.T) {
	svc := &stubMarketService{market: domain.Market{ID: "pm_1", Status: domain.MarketStatusCancelled}}
	mux := newTestMux(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/markets/pm_1/cancel",
		strings.NewReader(`{"requestedBy":"0xadmin"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
}
