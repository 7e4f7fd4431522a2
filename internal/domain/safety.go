package domain

import "time"

// StatusColor is the traffic-light rendering hint for a market or dApp.
type StatusColor string

const (
	ColorGreen  StatusColor = "green"
	ColorYellow StatusColor = "yellow"
	ColorRed    StatusColor = "red"
	ColorGray   StatusColor = "gray"
)

// OverallStatus is the aggregated safety verdict for a dApp.
type OverallStatus string

const (
	StatusSafe    OverallStatus = "safe"
	StatusWarning OverallStatus = "warning"
	StatusUnsafe  OverallStatus = "unsafe"
	StatusUnknown OverallStatus = "unknown"
)

// MarketStatusView is the derived, read-only view of a single market used by
// warning banners and feeds. It is recomputed on each request.
type MarketStatusView struct {
	Market        Market      `json:"market"`
	StatusColor   StatusColor `json:"statusColor"`
	Confidence    float64     `json:"confidence"`
	DaysRemaining int         `json:"daysRemaining"`
	TotalBets     int         `json:"totalBets"`
	ActiveBettors int         `json:"activeBettors"`
}

// DAppSafetyStatus rolls up every market and flag for one dApp into a single
// worst-case-wins verdict. It is derived, never stored.
type DAppSafetyStatus struct {
	DAppID          string        `json:"dappId"`
	ActiveMarkets   []Market      `json:"activeMarkets"`
	ResolvedMarkets []Market      `json:"resolvedMarkets"`
	Flags           []SafetyFlag  `json:"flags"`
	OverallStatus   OverallStatus `json:"overallStatus"`
	OverallColor    StatusColor   `json:"overallColor"`
	LastChecked     time.Time     `json:"lastChecked"`
}
