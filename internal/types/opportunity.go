package types

import (
	"encoding/json"
	"strings"
	"time"
)

// Tier is the closed set of confidence labels assigned by the upstream
// scorer. Each tier carries the default holding period the trade simulator
// uses for it.
type Tier int

const (
	TierModerate Tier = iota
	TierGood
	TierExcellent
	TierEpic
	TierLegendary
)

// HoldDays returns the default simulated holding period for the tier.
func (t Tier) HoldDays() int {
	switch t {
	case TierLegendary:
		return 90
	case TierEpic:
		return 60
	case TierExcellent:
		return 45
	case TierGood:
		return 30
	case TierModerate:
		return 20
	default:
		return 30
	}
}

// String returns the canonical tier label
func (t Tier) String() string {
	switch t {
	case TierLegendary:
		return "Legendary"
	case TierEpic:
		return "Epic"
	case TierExcellent:
		return "Excellent"
	case TierGood:
		return "Good"
	case TierModerate:
		return "Moderate"
	default:
		return "Good"
	}
}

// ParseTier maps a legacy free-text tier label onto the closed enum.
// Upstream labels arrive decorated (emoji prefixes, mixed casing, rating
// suffixes), so matching is by case-insensitive substring. Unrecognized
// labels fall back to TierGood and its 30-day hold.
func ParseTier(label string) Tier {
	normalized := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(normalized, "legendary"):
		return TierLegendary
	case strings.Contains(normalized, "epic"):
		return TierEpic
	case strings.Contains(normalized, "excellent"):
		return TierExcellent
	case strings.Contains(normalized, "moderate"):
		return TierModerate
	case strings.Contains(normalized, "good"):
		return TierGood
	default:
		return TierGood
	}
}

// MarshalJSON serializes the tier as its canonical label
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses a tier label back into the enum
func (t *Tier) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	*t = ParseTier(label)
	return nil
}

// Opportunity represents one ranked trading opportunity produced by the
// upstream scoring subsystem. Instances are immutable inputs to the
// backtest pipeline.
type Opportunity struct {
	Ticker            string     `json:"ticker"`
	Score             float64    `json:"score"`
	Tier              Tier       `json:"tier"`
	TimingConvergence bool       `json:"timing_convergence"`
	Sector            string     `json:"sector,omitempty"`

	// AsOf is the scorer's explicit point-in-time stamp. Records without
	// it cannot be cleared of look-ahead bias by the diagnostics pass.
	AsOf *time.Time `json:"as_of,omitempty"`
}
