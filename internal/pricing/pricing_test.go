package pricing

import (
	"testing"
	"time"

	"github.com/dluxlabs/safetymarket/internal/domain"
)

func TestSharesBootstrap(t *testing.T) {
	for _, amount := range []int64{1, 50, 1000000000} {
		if got := Shares(0, amount); got != amount {
			t.Errorf("Shares(0, %d) = %d, want %d", amount, got, amount)
		}
	}
}

func TestSharesBondingCurve(t *testing.T) {
	testCases := []struct {
		pool   int64
		amount int64
		want   int64 // amount + floor(amount^2 / pool)
	}{
		{pool: 1, amount: 1, want: 2},
		{pool: 1, amount: 50, want: 2550},
		{pool: 100, amount: 1, want: 1},
		{pool: 100, amount: 50, want: 75},
		{pool: 100, amount: 100, want: 200},
		{pool: 10000, amount: 1, want: 1},
		{pool: 10000, amount: 50, want: 50},
		{pool: 10000, amount: 10000, want: 20000},
	}

	for _, tc := range testCases {
		if got := Shares(tc.pool, tc.amount); got != tc.want {
			t.Errorf("Shares(%d, %d) = %d, want %d", tc.pool, tc.amount, got, tc.want)
		}
	}
}

func TestSharesSuperLinearity(t *testing.T) {
	// A bet large relative to the pool must earn strictly more than 1:1,
	// while a small bet against a deep pool stays close to 1:1.
	if got := Shares(100, 1000); got <= 1000 {
		t.Errorf("large bet shares = %d, want > 1000", got)
	}
	if got := Shares(1000000000, 10); got != 10 {
		t.Errorf("small bet shares = %d, want 10", got)
	}
}

func TestSharesNoOverflow(t *testing.T) {
	// Pools near the int64 range must not wrap when squared.
	const big = int64(1) << 50
	got := Shares(big, big)
	if got != 2*big {
		t.Errorf("Shares(%d, %d) = %d, want %d", big, big, got, 2*big)
	}
}

func TestPayout(t *testing.T) {
	testCases := []struct {
		name        string
		stake       int64
		winningPool int64
		losingPool  int64
		want        int64
	}{
		{name: "sole winner takes losing pool", stake: 100, winningPool: 100, losingPool: 300, want: 400},
		{name: "half the winning pool", stake: 50, winningPool: 100, losingPool: 300, want: 200},
		{name: "no losing pool returns stake", stake: 50, winningPool: 100, losingPool: 0, want: 50},
		{name: "empty winning pool owes nothing", stake: 0, winningPool: 0, losingPool: 100, want: 0},
		{name: "fractional share floors", stake: 1, winningPool: 3, losingPool: 100, want: 34},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Payout(tc.stake, tc.winningPool, tc.losingPool); got != tc.want {
				t.Errorf("Payout(%d, %d, %d) = %d, want %d",
					tc.stake, tc.winningPool, tc.losingPool, got, tc.want)
			}
		})
	}
}

func TestDistributeConservesValue(t *testing.T) {
	m := domain.Market{
		Status: domain.MarketStatusOpen,
		Bets: []domain.Bet{
			{Bettor: "a", Side: domain.SideSafe, Amount: 7},
			{Bettor: "b", Side: domain.SideSafe, Amount: 13},
			{Bettor: "c", Side: domain.SideUnsafe, Amount: 11},
			{Bettor: "d", Side: domain.SideSafe, Amount: 3},
			{Bettor: "e", Side: domain.SideUnsafe, Amount: 9},
		},
	}
	for _, b := range m.Bets {
		m.AddStake(b.Side, b.Amount)
	}

	for _, resolution := range []domain.Resolution{domain.SideSafe, domain.SideUnsafe} {
		c := m.Clone()
		Distribute(&c, resolution)

		var total int64
		for _, b := range c.Bets {
			if b.Payout == nil {
				t.Fatalf("resolution %s: bet by %s has no payout", resolution, b.Bettor)
			}
			if *b.Payout < 0 {
				t.Fatalf("resolution %s: negative payout for %s", resolution, b.Bettor)
			}
			if b.Side != resolution && *b.Payout != 0 {
				t.Errorf("resolution %s: losing bet by %s paid %d", resolution, b.Bettor, *b.Payout)
			}
			total += *b.Payout
		}
		if total > c.TotalPool {
			t.Errorf("resolution %s: payouts %d exceed pool %d", resolution, total, c.TotalPool)
		}
	}
}

func TestDistributeEmptyWinningPool(t *testing.T) {
	// Seeded markets always have an unsafe pool, but a feeless market with no
	// bets must still resolve without dividing by zero.
	m := domain.Market{Status: domain.MarketStatusOpen}
	Distribute(&m, MarketResolution(m.SafePool, m.UnsafePool))

	if len(m.Bets) != 0 {
		t.Fatalf("unexpected bets: %d", len(m.Bets))
	}
}

func TestMarketResolution(t *testing.T) {
	testCases := []struct {
		safePool   int64
		unsafePool int64
		want       domain.Resolution
	}{
		{safePool: 100, unsafePool: 50, want: domain.SideSafe},
		{safePool: 50, unsafePool: 100, want: domain.SideUnsafe},
		{safePool: 100, unsafePool: 100, want: domain.SideUnsafe}, // tie breaks unsafe
		{safePool: 0, unsafePool: 0, want: domain.SideUnsafe},
	}

	for _, tc := range testCases {
		if got := MarketResolution(tc.safePool, tc.unsafePool); got != tc.want {
			t.Errorf("MarketResolution(%d, %d) = %s, want %s",
				tc.safePool, tc.unsafePool, got, tc.want)
		}
	}
}

func TestOddsAndConfidence(t *testing.T) {
	safeOdds, unsafeOdds := Odds(0, 0)
	if safeOdds != 0.5 || unsafeOdds != 0.5 {
		t.Errorf("empty market odds = %v/%v, want 0.5/0.5", safeOdds, unsafeOdds)
	}
	if got := Confidence(0, 0); got != 0 {
		t.Errorf("empty market confidence = %v, want 0", got)
	}
	if got := Confidence(75, 25); got != 0.5 {
		t.Errorf("Confidence(75, 25) = %v, want 0.5", got)
	}
	if got := Confidence(0, 100); got != 1 {
		t.Errorf("Confidence(0, 100) = %v, want 1", got)
	}
}

func TestColor(t *testing.T) {
	resolvedAt := time.Now()

	testCases := []struct {
		name   string
		market domain.Market
		want   domain.StatusColor
	}{
		{
			name:   "open contested",
			market: domain.Market{Status: domain.MarketStatusOpen, SafePool: 50, UnsafePool: 50, TotalPool: 100},
			want:   domain.ColorYellow,
		},
		{
			name:   "open exactly at threshold stays yellow",
			market: domain.Market{Status: domain.MarketStatusOpen, SafePool: 60, UnsafePool: 40, TotalPool: 100},
			want:   domain.ColorYellow,
		},
		{
			name:   "open safe leading",
			market: domain.Market{Status: domain.MarketStatusOpen, SafePool: 70, UnsafePool: 30, TotalPool: 100},
			want:   domain.ColorGreen,
		},
		{
			name:   "open unsafe leading",
			market: domain.Market{Status: domain.MarketStatusOpen, SafePool: 20, UnsafePool: 80, TotalPool: 100},
			want:   domain.ColorRed,
		},
		{
			name:   "open empty",
			market: domain.Market{Status: domain.MarketStatusOpen},
			want:   domain.ColorYellow,
		},
		{
			name:   "resolved safe",
			market: domain.Market{Status: domain.MarketStatusResolved, Resolution: domain.SideSafe, ResolvedAt: &resolvedAt},
			want:   domain.ColorGreen,
		},
		{
			name:   "resolved unsafe",
			market: domain.Market{Status: domain.MarketStatusResolved, Resolution: domain.SideUnsafe, ResolvedAt: &resolvedAt},
			want:   domain.ColorRed,
		},
		{
			name:   "cancelled",
			market: domain.Market{Status: domain.MarketStatusCancelled},
			want:   domain.ColorGray,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Color(&tc.market); got != tc.want {
				t.Errorf("Color() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		expiresAt time.Time
		want      int
	}{
		{name: "three days out", expiresAt: now.Add(72 * time.Hour), want: 3},
		{name: "partial day rounds up", expiresAt: now.Add(25 * time.Hour), want: 2},
		{name: "one hour left", expiresAt: now.Add(time.Hour), want: 1},
		{name: "expired floors at zero", expiresAt: now.Add(-time.Hour), want: 0},
		{name: "expiring now", expiresAt: now, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DaysRemaining(tc.expiresAt, now); got != tc.want {
				t.Errorf("DaysRemaining() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestStatusViewIdempotent(t *testing.T) {
	now := time.Now()
	m := domain.Market{
		ID:        "pm_1",
		Status:    domain.MarketStatusOpen,
		ExpiresAt: now.Add(48 * time.Hour),
		Bets: []domain.Bet{
			{Bettor: "a", Side: domain.SideSafe, Amount: 10},
			{Bettor: "a", Side: domain.SideSafe, Amount: 5},
			{Bettor: "b", Side: domain.SideUnsafe, Amount: 20},
		},
	}
	for _, b := range m.Bets {
		m.AddStake(b.Side, b.Amount)
	}

	first := StatusView(m, now)
	second := StatusView(m, now)

	if first.Confidence != second.Confidence ||
		first.StatusColor != second.StatusColor ||
		first.DaysRemaining != second.DaysRemaining {
		t.Errorf("status view not stable: %+v vs %+v", first, second)
	}
	if first.TotalBets != 3 {
		t.Errorf("TotalBets = %d, want 3", first.TotalBets)
	}
	if first.ActiveBettors != 2 {
		t.Errorf("ActiveBettors = %d, want 2", first.ActiveBettors)
	}
}

func TestRecommendedAge(t *testing.T) {
	testCases := []struct {
		name        string
		metric      domain.SafetyMetric
		description string
		want        domain.AgeRating
	}{
		{name: "nsfw always adult", metric: domain.MetricNSFW, description: "suitable for 13+", want: "18+"},
		{name: "age restricted parses rating", metric: domain.MetricAgeRestricted, description: "content rated 13+ by submitter", want: "13+"},
		{name: "age restricted two digits", metric: domain.MetricAgeRestricted, description: "21+ gambling content", want: "21+"},
		{name: "age restricted defaults", metric: domain.MetricAgeRestricted, description: "age restricted content", want: "18+"},
		{name: "age restricted empty description", metric: domain.MetricAgeRestricted, description: "", want: "18+"},
		{name: "other metrics unrated", metric: domain.MetricMalware, description: "18+ mentioned", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RecommendedAge(tc.metric, tc.description); got != tc.want {
				t.Errorf("RecommendedAge(%s, %q) = %q, want %q",
					tc.metric, tc.description, got, tc.want)
			}
		})
	}
}
