package domain

import "time"

// SafetyFlag is a manual report that a dApp may violate a safety metric.
// Filing a flag opens a prediction market; the flag itself is immutable
// after creation.
type SafetyFlag struct {
	ID          string       `json:"id"`
	DAppID      string       `json:"dappId"`
	Metric      SafetyMetric `json:"metric"`
	Description string       `json:"description"`
	FlaggedBy   string       `json:"flaggedBy"`
	CreatedAt   time.Time    `json:"createdAt"`
}
