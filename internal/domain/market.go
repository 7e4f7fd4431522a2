package domain

import "time"

// MarketStatus represents the lifecycle state of a safety market.
type MarketStatus string

const (
	MarketStatusOpen      MarketStatus = "open"
	MarketStatusResolved  MarketStatus = "resolved"
	MarketStatusCancelled MarketStatus = "cancelled"
)

// Side is the position a bettor takes on a market.
type Side string

const (
	SideSafe   Side = "safe"
	SideUnsafe Side = "unsafe"
)

// Valid reports whether s is a recognized side.
func (s Side) Valid() bool {
	return s == SideSafe || s == SideUnsafe
}

// Resolution is the final determination of a resolved market. It uses the
// same values as Side; an empty Resolution means the market is unresolved.
type Resolution = Side

// SafetyMetric identifies the concern a market evaluates.
type SafetyMetric string

const (
	MetricNSFW          SafetyMetric = "nsfw"
	MetricAgeRestricted SafetyMetric = "age-restricted"
	MetricPenTest       SafetyMetric = "pen-test"
	MetricGDPR          SafetyMetric = "gdpr-compliance"
	MetricCookieBanner  SafetyMetric = "cookie-banner"
	MetricMalware       SafetyMetric = "malware"
	MetricPhishing      SafetyMetric = "phishing"
	MetricScam          SafetyMetric = "scam"
	MetricOther         SafetyMetric = "other"
)

// Valid reports whether m is a recognized safety metric.
func (m SafetyMetric) Valid() bool {
	switch m {
	case MetricNSFW, MetricAgeRestricted, MetricPenTest, MetricGDPR,
		MetricCookieBanner, MetricMalware, MetricPhishing, MetricScam, MetricOther:
		return true
	}
	return false
}

// TriggerSource records what caused a market to be created.
type TriggerSource string

const (
	TriggerPosting    TriggerSource = "posting"
	TriggerFileChange TriggerSource = "file-change"
	TriggerFlag       TriggerSource = "flag"
)

// Valid reports whether t is a recognized trigger source.
func (t TriggerSource) Valid() bool {
	return t == TriggerPosting || t == TriggerFileChange || t == TriggerFlag
}

// AgeRating is a recommended minimum age for age-related metrics, e.g. "18+".
type AgeRating string

// Market is one open question about one dApp: is it safe with respect to a
// given metric? Stakes accumulate in the safe and unsafe pools until the
// market resolves or is cancelled.
//
// All monetary amounts are in minor units (MIST; 1e9 per SUI).
type Market struct {
	ID           string       `json:"id"`
	DAppID       string       `json:"dappId"`
	SafetyMetric SafetyMetric `json:"safetyMetric"`
	Description  string       `json:"description"`

	Status     MarketStatus `json:"status"`
	Resolution Resolution   `json:"resolution,omitempty"`

	// TotalPool == SafePool + UnsafePool, maintained after every mutation.
	TotalPool              int64 `json:"totalPool"`
	SafePool               int64 `json:"safePool"`
	UnsafePool             int64 `json:"unsafePool"`
	PostingFeeContribution int64 `json:"postingFeeContribution"`

	RecommendedAge AgeRating `json:"recommendedAge,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`

	// Bets is append-only while the market is open. A bet belongs to exactly
	// one market and never outlives it.
	Bets []Bet `json:"bets"`

	TriggeredBy        TriggerSource `json:"triggeredBy"`
	TriggeredByAddress string        `json:"triggeredByAddress"`
}

// Pool returns the stake accumulated on the given side.
func (m *Market) Pool(side Side) int64 {
	if side == SideSafe {
		return m.SafePool
	}
	return m.UnsafePool
}

// AddStake credits amount to the given side's pool and recomputes TotalPool.
func (m *Market) AddStake(side Side, amount int64) {
	if side == SideSafe {
		m.SafePool += amount
	} else {
		m.UnsafePool += amount
	}
	m.TotalPool = m.SafePool + m.UnsafePool
}

// Expired reports whether the market's betting horizon has passed. A bet at
// exactly ExpiresAt is already too late.
func (m *Market) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}

// Clone returns a deep copy of the market, including its bets.
func (m *Market) Clone() Market {
	out := *m
	if m.ResolvedAt != nil {
		t := *m.ResolvedAt
		out.ResolvedAt = &t
	}
	out.Bets = make([]Bet, len(m.Bets))
	for i, b := range m.Bets {
		out.Bets[i] = b.Clone()
	}
	return out
}

// Bet is one stake placed by one participant on one side of a market.
type Bet struct {
	ID       string `json:"id"`
	MarketID string `json:"marketId"`
	Bettor   string `json:"bettor"`
	Side     Side   `json:"side"`

	// Amount is the stake in minor units. Shares are computed once at
	// placement time from the bonding curve and never recomputed.
	Amount int64 `json:"amount"`
	Shares int64 `json:"shares"`

	// Payout is nil while the market is open and set at resolution
	// (zero for the losing side).
	Payout *int64 `json:"payout,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy of the bet with its own payout pointer.
func (b Bet) Clone() Bet {
	out := b
	if b.Payout != nil {
		p := *b.Payout
		out.Payout = &p
	}
	return out
}
