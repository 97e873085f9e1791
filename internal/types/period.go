package types

import (
	"encoding/json"
	"fmt"
	"math"
)

// PeriodResult represents one (dataset, lookback window) backtest compared
// against the benchmark index over the same window
type PeriodResult struct {
	PeriodLabel  string         `json:"period_label"`
	LookbackDays int            `json:"lookback_days"`
	Backtest     BacktestResult `json:"backtest"`

	// Benchmark context over the same window
	BenchmarkTicker     string  `json:"benchmark_ticker"`
	BenchmarkReturn     float64 `json:"benchmark_return"`
	BenchmarkVolatility float64 `json:"benchmark_volatility"`
	BenchmarkSmoothed   float64 `json:"benchmark_smoothed"`

	// Outperformance = avg_return - benchmark_return
	Outperformance float64 `json:"outperformance"`
}

// ThresholdTrial represents one candidate score threshold evaluated by the
// optimizer
type ThresholdTrial struct {
	Threshold        float64        `json:"threshold"`
	OpportunityCount int            `json:"opportunity_count"`
	Result           BacktestResult `json:"result"`
	ObjectiveValue   float64        `json:"objective_value"`
	MeetsCutoffs     bool           `json:"meets_cutoffs"`
	Warnings         []string       `json:"warnings,omitempty"`
}

// MarshalJSON resolves an IEEE-infinite objective value into the same
// sentinel strings ProfitFactor uses. The infinity exists in memory as a
// sort key only (profit_factor objective with zero losing trades); strict
// JSON cannot carry it as a number.
func (t ThresholdTrial) MarshalJSON() ([]byte, error) {
	type plain ThresholdTrial
	payload := struct {
		plain
		ObjectiveValue interface{} `json:"objective_value"`
	}{plain: plain(t), ObjectiveValue: t.ObjectiveValue}

	switch {
	case math.IsInf(t.ObjectiveValue, 1):
		payload.ObjectiveValue = infinitySentinel
	case math.IsInf(t.ObjectiveValue, -1):
		payload.ObjectiveValue = negativeInfinitySentinel
	}
	return json.Marshal(payload)
}

// UnmarshalJSON parses the objective value back, accepting the sentinels
func (t *ThresholdTrial) UnmarshalJSON(data []byte) error {
	type plain ThresholdTrial
	payload := struct {
		*plain
		ObjectiveValue json.RawMessage `json:"objective_value"`
	}{plain: (*plain)(t)}

	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if len(payload.ObjectiveValue) == 0 {
		return nil
	}

	var value float64
	if err := json.Unmarshal(payload.ObjectiveValue, &value); err == nil {
		t.ObjectiveValue = value
		return nil
	}

	var sentinel string
	if err := json.Unmarshal(payload.ObjectiveValue, &sentinel); err != nil {
		return err
	}
	switch sentinel {
	case infinitySentinel:
		t.ObjectiveValue = math.Inf(1)
	case negativeInfinitySentinel:
		t.ObjectiveValue = math.Inf(-1)
	default:
		return fmt.Errorf("unknown objective value sentinel: %q", sentinel)
	}
	return nil
}

// Bias risk levels
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// BiasReport classifies the look-ahead bias risk of an opportunity source.
// The classification is advisory; downstream reporting runs regardless.
type BiasReport struct {
	RiskLevel     string   `json:"risk_level"`
	EvidenceFlags []string `json:"evidence_flags"`
	RecordCount   int      `json:"record_count"`
	MissingAsOf   int      `json:"missing_as_of"`
	Violations    int      `json:"violations"`
}

// Degradation severity levels
const (
	DegradationNone     = "NONE"
	DegradationModerate = "MODERATE"
	DegradationSevere   = "SEVERE"
)

// DegradationReport captures win-rate decay between the shortest and
// longest lookback windows of a cross-period run
type DegradationReport struct {
	ShortestPeriod  string  `json:"shortest_period"`
	LongestPeriod   string  `json:"longest_period"`
	ShortestWinRate float64 `json:"shortest_win_rate"`
	LongestWinRate  float64 `json:"longest_win_rate"`
	WinRateDelta    float64 `json:"win_rate_delta"`
	Severity        string  `json:"severity"`
}
