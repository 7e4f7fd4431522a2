// Package pricing holds the pure market-maker math for safety prediction
// markets: bonding-curve share calculation, proportional payout
// distribution, odds, and the derived status view. Nothing here performs
// I/O; callers pass market values in and apply the results.
//
// Amounts are int64 minor units. Intermediate products use big.Int and all
// divisions floor, so repeated bet/payout cycles cannot drift and the sum of
// payouts never exceeds the total pool.
package pricing

import (
	"math"
	"math/big"
	"regexp"
	"time"

	"github.com/dluxlabs/safetymarket/internal/domain"
)

const (
	// DefaultHorizon is the fixed betting window of a new market.
	DefaultHorizon = 72 * time.Hour

	// confidentOdds separates a confidently priced open market from a
	// contested one when deriving its status color.
	confidentOdds = 0.6
)

// mulDiv returns floor(a*b/den), with the product widened through big.Int so
// large pools cannot overflow int64. A zero denominator yields zero.
func mulDiv(a, b, den int64) int64 {
	if den == 0 {
		return 0
	}
	n := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	n.Quo(n, big.NewInt(den))
	return n.Int64()
}

// Shares prices a bet of amount against the chosen side's pool as it stood
// before the bet. The first stake on a side converts 1:1; after that the
// simplified constant-product curve pays a super-linear bonus to bets that
// are large relative to the existing pool:
//
//	shares = amount + amount^2 / pool
func Shares(sidePool, amount int64) int64 {
	if sidePool == 0 {
		return amount
	}
	return amount + mulDiv(amount, amount, sidePool)
}

// Payout returns what a winning stake collects: the stake itself plus a
// proportional slice of the losing pool. A zero winning pool (possible only
// when nothing was ever staked on the winning side) owes nothing.
func Payout(stake, winningPool, losingPool int64) int64 {
	if winningPool == 0 {
		return 0
	}
	return stake + mulDiv(stake, losingPool, winningPool)
}

// MarketResolution is the odds-determined outcome: safe only when the safe
// pool strictly exceeds the unsafe pool. Ties resolve to unsafe, the
// cautious default.
func MarketResolution(safePool, unsafePool int64) domain.Resolution {
	if safePool > unsafePool {
		return domain.SideSafe
	}
	return domain.SideUnsafe
}

// Distribute writes final payouts onto every bet of a market resolving to
// the given outcome. Winning bets receive stake plus a proportional share of
// the losing pool; losing bets receive zero.
func Distribute(m *domain.Market, resolution domain.Resolution) {
	winningPool := m.Pool(resolution)
	var losingPool int64
	if resolution == domain.SideSafe {
		losingPool = m.UnsafePool
	} else {
		losingPool = m.SafePool
	}

	for i := range m.Bets {
		var payout int64
		if m.Bets[i].Side == resolution {
			payout = Payout(m.Bets[i].Amount, winningPool, losingPool)
		}
		p := payout
		m.Bets[i].Payout = &p
	}
}

// Odds returns the implied probability of each side from the pool balance.
// An empty market is a coin flip.
func Odds(safePool, unsafePool int64) (safeOdds, unsafeOdds float64) {
	total := safePool + unsafePool
	if total == 0 {
		return 0.5, 0.5
	}
	safeOdds = float64(safePool) / float64(total)
	return safeOdds, 1 - safeOdds
}

// Confidence is how one-sided the market is: 0 for a fully contested market,
// 1 for a unanimous one.
func Confidence(safePool, unsafePool int64) float64 {
	safeOdds, unsafeOdds := Odds(safePool, unsafePool)
	return math.Abs(safeOdds - unsafeOdds)
}

// Color derives the traffic-light color for a market. Resolved markets are
// green or red by outcome; open markets are green or red only once one side
// holds more than 60% of the pool, yellow otherwise. Cancelled markets are
// gray.
func Color(m *domain.Market) domain.StatusColor {
	switch m.Status {
	case domain.MarketStatusResolved:
		if m.Resolution == domain.SideSafe {
			return domain.ColorGreen
		}
		return domain.ColorRed
	case domain.MarketStatusCancelled:
		return domain.ColorGray
	}

	safeOdds, unsafeOdds := Odds(m.SafePool, m.UnsafePool)
	switch {
	case safeOdds > confidentOdds:
		return domain.ColorGreen
	case unsafeOdds > confidentOdds:
		return domain.ColorRed
	default:
		return domain.ColorYellow
	}
}

// DaysRemaining is the number of whole or partial days until expiry, floored
// at zero once the horizon has passed.
func DaysRemaining(expiresAt, now time.Time) int {
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// StatusView assembles the derived read-only view of a market as of now.
func StatusView(m domain.Market, now time.Time) domain.MarketStatusView {
	bettors := make(map[string]struct{}, len(m.Bets))
	for _, b := range m.Bets {
		bettors[b.Bettor] = struct{}{}
	}

	return domain.MarketStatusView{
		Market:        m,
		StatusColor:   Color(&m),
		Confidence:    Confidence(m.SafePool, m.UnsafePool),
		DaysRemaining: DaysRemaining(m.ExpiresAt, now),
		TotalBets:     len(m.Bets),
		ActiveBettors: len(bettors),
	}
}

var agePattern = regexp.MustCompile(`(\d{1,2})\+`)

// RecommendedAge derives the age rating recorded on a market at creation.
// NSFW is always 18+; age-restricted markets parse a rating like "13+" out
// of the description and fall back to 18+. Other metrics carry no rating.
func RecommendedAge(metric domain.SafetyMetric, description string) domain.AgeRating {
	switch metric {
	case domain.MetricNSFW:
		return domain.AgeRating("18+")
	case domain.MetricAgeRestricted:
		if m := agePattern.FindStringSubmatch(description); m != nil {
			return domain.AgeRating(m[1] + "+")
		}
		return domain.AgeRating("18+")
	}
	return ""
}
