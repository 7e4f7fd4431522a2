package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dluxlabs/safetymarket/internal/domain"
	"github.com/dluxlabs/safetymarket/internal/store/memory"
)

func newSafetyFixture(t *testing.T) (*SafetyService, *memory.MarketStore, *memory.FlagStore, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	markets := memory.NewMarketStore()
	flags := memory.NewFlagStore()
	marketSvc := NewMarketService(markets, memory.NewLockManager(), MarketServiceOpts{Now: clock.Now}, testLogger())
	svc := NewSafetyService(markets, flags, marketSvc, clock.Now, testLogger())
	return svc, markets, flags, clock
}

// seedMarket stores a market directly so tests control pools and status
// precisely.
func seedMarket(t *testing.T, store *memory.MarketStore, clock *testClock, id string, status domain.MarketStatus, resolution domain.Resolution, safePool, unsafePool int64) {
	t.Helper()
	m := domain.Market{
		ID:           id,
		DAppID:       "dapp-1",
		SafetyMetric: domain.MetricScam,
		Status:       status,
		Resolution:   resolution,
		SafePool:     safePool,
		UnsafePool:   unsafePool,
		TotalPool:    safePool + unsafePool,
		CreatedAt:    clock.Now(),
		ExpiresAt:    clock.Now().Add(48 * time.Hour),
		TriggeredBy:  domain.TriggerFlag,
	}
	if status == domain.MarketStatusResolved {
		resolvedAt := clock.Now()
		m.ResolvedAt = &resolvedAt
	}
	if err := store.Save(context.Background(), m); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestDAppSafetyStatusVerdicts(t *testing.T) {
	tests := []struct {
		name      string
		seed      func(t *testing.T, store *memory.MarketStore, clock *testClock)
		status    domain.OverallStatus
		color     domain.StatusColor
	}{
		{
			name:   "no history is unknown",
			seed:   func(t *testing.T, store *memory.MarketStore, clock *testClock) {},
			status: domain.StatusUnknown,
			color:  domain.ColorGray,
		},
		{
			name: "contested active market warns",
			seed: func(t *testing.T, store *memory.MarketStore, clock *testClock) {
				seedMarket(t, store, clock, "pm_1", domain.MarketStatusOpen, "", 60, 40)
			},
			status: domain.StatusWarning,
			color:  domain.ColorYellow,
		},
		{
			name: "red active market dominates green",
			seed: func(t *testing.T, store *memory.MarketStore, clock *testClock) {
				seedMarket(t, store, clock, "pm_1", domain.MarketStatusOpen, "", 90, 10)
				seedMarket(t, store, clock, "pm_2", domain.MarketStatusOpen, "", 10, 90)
			},
			status: domain.StatusUnsafe,
			color:  domain.ColorRed,
		},
		{
			name: "confident safe active markets",
			seed: func(t *testing.T, store *memory.MarketStore, clock *testClock) {
				seedMarket(t, store, clock, "pm_1", domain.MarketStatusOpen, "", 90, 10)
				seedMarket(t, store, clock, "pm_2", domain.MarketStatusOpen, "", 70, 30)
			},
			status: domain.StatusSafe,
			color:  domain.ColorGreen,
		},
		{
			name: "resolved unsafe taints the dapp",
			seed: func(t *testing.T, store *memory.MarketStore, clock *testClock) {
				seedMarket(t, store, clock, "pm_1", domain.MarketStatusResolved, domain.SideSafe, 80, 20)
				seedMarket(t, store, clock, "pm_2", domain.MarketStatusResolved, domain.SideUnsafe, 10, 90)
			},
			status: domain.StatusUnsafe,
			color:  domain.ColorRed,
		},
		{
			name: "all resolved safe",
			seed: func(t *testing.T, store *memory.MarketStore, clock *testClock) {
				seedMarket(t, store, clock, "pm_1", domain.MarketStatusResolved, domain.SideSafe, 80, 20)
			},
			status: domain.StatusSafe,
			color:  domain.ColorGreen,
		},
		{
			name: "cancelled markets carry no verdict",
			seed: func(t *testing.T, store *memory.MarketStore, clock *testClock) {
				seedMarket(t, store, clock, "pm_1", domain.MarketStatusCancelled, "", 10, 90)
			},
			status: domain.StatusUnknown,
			color:  domain.ColorGray,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _, clock := newSafetyFixture(t)
			tt.seed(t, store, clock)

			got, err := svc.DAppSafetyStatus(context.Background(), "dapp-1")
			if err != nil {
				t.Fatalf("DAppSafetyStatus: %v", err)
			}
			if got.OverallStatus != tt.status {
				t.Errorf("status = %s, want %s", got.OverallStatus, tt.status)
			}
			if got.OverallColor != tt.color {
				t.Errorf("color = %s, want %s", got.OverallColor, tt.color)
			}
		})
	}
}

func TestDAppSafetyStatusPartitionsExpired(t *testing.T) {
	svc, store, _, clock := newSafetyFixture(t)

	// Open but past its horizon: not active, not resolved.
	seedMarket(t, store, clock, "pm_old", domain.MarketStatusOpen, "", 10, 90)
	clock.Advance(72 * time.Hour)

	got, err := svc.DAppSafetyStatus(context.Background(), "dapp-1")
	if err != nil {
		t.Fatalf("DAppSafetyStatus: %v", err)
	}
	if len(got.ActiveMarkets) != 0 {
		t.Errorf("active = %d, want 0", len(got.ActiveMarkets))
	}
	if got.OverallStatus != domain.StatusUnknown {
		t.Errorf("status = %s, want unknown while awaiting sweep", got.OverallStatus)
	}
}

func TestDAppSafetyStatusRequiresDAppID(t *testing.T) {
	svc, _, _, _ := newSafetyFixture(t)
	if _, err := svc.DAppSafetyStatus(context.Background(), "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestFlagDAppOpensMarket(t *testing.T) {
	svc, store, flags, _ := newSafetyFixture(t)
	ctx := context.Background()

	flag, err := svc.FlagDApp(ctx, FlagInput{
		DAppID:      "dapp-1",
		Metric:      domain.MetricPhishing,
		Description: "login page mimics wallet provider",
		FlaggedBy:   "0xwatcher",
	})
	if err != nil {
		t.Fatalf("FlagDApp: %v", err)
	}

	saved, err := flags.ListByDApp(ctx, "dapp-1")
	if err != nil {
		t.Fatalf("ListByDApp: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != flag.ID {
		t.Fatalf("stored flags = %+v, want the filed flag", saved)
	}

	markets, err := store.ListByDApp(ctx, "dapp-1")
	if err != nil {
		t.Fatalf("ListByDApp markets: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("markets = %d, want 1 opened by the flag", len(markets))
	}
	m := markets[0]
	if m.TriggeredBy != domain.TriggerFlag {
		t.Errorf("triggeredBy = %s, want flag", m.TriggeredBy)
	}
	if m.TriggeredByAddress != "0xwatcher" {
		t.Errorf("triggeredByAddress = %s, want 0xwatcher", m.TriggeredByAddress)
	}
	if m.SafetyMetric != domain.MetricPhishing {
		t.Errorf("metric = %s, want phishing", m.SafetyMetric)
	}
}

func TestFlagDAppValidation(t *testing.T) {
	svc, _, _, _ := newSafetyFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   FlagInput
	}{
		{"missing dapp", FlagInput{Metric: domain.MetricScam, FlaggedBy: "0xw"}},
		{"bad metric", FlagInput{DAppID: "d", Metric: "bogus", FlaggedBy: "0xw"}},
		{"missing flagger", FlagInput{DAppID: "d", Metric: domain.MetricScam}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.FlagDApp(ctx, tt.in); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}
