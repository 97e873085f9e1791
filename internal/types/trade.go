package types

import (
	"time"
)

// SimulatedTrade represents one simulated entry/exit pair. Created once by
// the trade simulator and read-only thereafter.
type SimulatedTrade struct {
	Ticker            string    `json:"ticker"`
	EntryDate         time.Time `json:"entry_date"`
	ExitDate          time.Time `json:"exit_date"`
	EntryPrice        float64   `json:"entry_price"`
	ExitPrice         float64   `json:"exit_price"`
	ReturnPct         float64   `json:"return_pct"`
	HoldDays          int       `json:"hold_days"`
	Tier              Tier      `json:"tier"`
	Score             float64   `json:"score"`
	TimingConvergence bool      `json:"timing_convergence"`
	MaxDrawdownPct    float64   `json:"max_drawdown_pct"`
	Win               bool      `json:"win"`

	// ExitedEarly marks trades whose simulation horizon exceeded the
	// available history, so the exit fell on the last known bar rather
	// than the full holding period.
	ExitedEarly bool `json:"exited_early"`
}
