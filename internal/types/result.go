package types

// Timing impact group keys. The timing_convergence flag is a bool upstream;
// reports key the two cohorts by name so JSON consumers see stable keys.
const (
	TimingWithConvergence    = "with_timing"
	TimingWithoutConvergence = "without_timing"
)

// GroupStats holds per-group aggregate statistics (per tier, or per
// timing-convergence cohort)
type GroupStats struct {
	Trades       int     `json:"trades"`
	WinRate      float64 `json:"win_rate"`
	AvgReturn    float64 `json:"avg_return"`
	MedianReturn float64 `json:"median_return"`
	BestReturn   float64 `json:"best_return"`
	WorstReturn  float64 `json:"worst_return"`
}

// BacktestResult is the immutable aggregate produced from one simulated
// opportunity set. An empty result (zero trades) is a normal value, not an
// error; IsEmpty distinguishes it.
type BacktestResult struct {
	// Trade counts
	TotalTrades   int `json:"total_trades"`
	WinningTrades int `json:"winning_trades"`
	LosingTrades  int `json:"losing_trades"`

	// Return distribution
	WinRate      float64 `json:"win_rate"`
	AvgReturn    float64 `json:"avg_return"`
	MedianReturn float64 `json:"median_return"`
	TotalReturn  float64 `json:"total_return"`

	// Risk-adjusted metrics. SharpeRatio is per-trade and unannualized:
	// mean(return_pct) / stdev(return_pct).
	SharpeRatio  float64      `json:"sharpe_ratio"`
	ProfitFactor ProfitFactor `json:"profit_factor"`
	Expectancy   float64      `json:"expectancy"`

	// Extremes
	BestTrade  *SimulatedTrade `json:"best_trade,omitempty"`
	WorstTrade *SimulatedTrade `json:"worst_trade,omitempty"`

	// Averages over the trade list
	AvgHoldDays    float64 `json:"avg_hold_days"`
	AvgMaxDrawdown float64 `json:"avg_max_drawdown"`

	// Breakdowns; groups with zero trades are omitted
	TierMetrics  map[string]GroupStats `json:"tier_metrics"`
	TimingImpact map[string]GroupStats `json:"timing_impact"`

	// Trade history
	Trades []SimulatedTrade `json:"trades"`
}

// IsEmpty reports whether the result aggregates zero trades
func (r BacktestResult) IsEmpty() bool {
	return r.TotalTrades == 0
}
