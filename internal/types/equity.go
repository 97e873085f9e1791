package types

import (
	"time"
)

// EquityPoint represents the simulated capital pool after one trade closed.
// The first point of a curve carries the initial capital and no ticker.
type EquityPoint struct {
	Date      time.Time `json:"date"`
	Equity    float64   `json:"equity"`
	Ticker    string    `json:"ticker,omitempty"`
	ReturnPct float64   `json:"return_pct,omitempty"`
}
