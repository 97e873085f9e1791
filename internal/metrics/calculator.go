// Package metrics aggregates simulated trades into an immutable backtest
// result.
package metrics

import (
	"math"
	"sort"

	"rankback/internal/types"
)

// Compute aggregates a trade list into a BacktestResult. An empty trade
// list yields the explicit empty result, never an error.
func Compute(trades []types.SimulatedTrade) types.BacktestResult {
	if len(trades) == 0 {
		return EmptyResult()
	}

	result := types.BacktestResult{
		TotalTrades:  len(trades),
		TierMetrics:  make(map[string]types.GroupStats),
		TimingImpact: make(map[string]types.GroupStats),
		Trades:       trades,
	}

	returns := make([]float64, len(trades))
	var grossWin, grossLoss float64
	var sumWin, sumLoss float64
	var totalHoldDays, totalDrawdown float64
	bestIdx, worstIdx := 0, 0

	for i, trade := range trades {
		returns[i] = trade.ReturnPct
		totalHoldDays += float64(trade.HoldDays)
		totalDrawdown += trade.MaxDrawdownPct

		if trade.Win {
			result.WinningTrades++
			grossWin += trade.ReturnPct
			sumWin += trade.ReturnPct
		} else {
			result.LosingTrades++
			grossLoss += math.Abs(trade.ReturnPct)
			sumLoss += trade.ReturnPct
		}

		if trade.ReturnPct > trades[bestIdx].ReturnPct {
			bestIdx = i
		}
		if trade.ReturnPct < trades[worstIdx].ReturnPct {
			worstIdx = i
		}
	}

	total := float64(result.TotalTrades)
	result.WinRate = float64(result.WinningTrades) / total * 100
	result.AvgReturn = mean(returns)
	result.MedianReturn = median(returns)
	result.TotalReturn = sum(returns)
	result.AvgHoldDays = totalHoldDays / total
	result.AvgMaxDrawdown = totalDrawdown / total

	best, worst := trades[bestIdx], trades[worstIdx]
	result.BestTrade = &best
	result.WorstTrade = &worst

	// Per-trade, unannualized Sharpe: mean over population stdev
	result.SharpeRatio = sharpe(returns)

	// Zero losing trades with any winning return is the infinity sentinel,
	// resolved only at the serialization boundary
	switch {
	case grossLoss > 0:
		result.ProfitFactor = types.FiniteProfitFactor(grossWin / grossLoss)
	case grossWin > 0:
		result.ProfitFactor = types.InfiniteProfitFactor()
	default:
		result.ProfitFactor = types.FiniteProfitFactor(0)
	}

	result.Expectancy = expectancy(result, sumWin, sumLoss)

	for tier, group := range groupByTier(trades) {
		result.TierMetrics[tier] = groupStats(group)
	}
	for cohort, group := range groupByTiming(trades) {
		result.TimingImpact[cohort] = groupStats(group)
	}

	return result
}

// EmptyResult returns the explicit no-trades value with all expected keys
// present
func EmptyResult() types.BacktestResult {
	return types.BacktestResult{
		ProfitFactor: types.FiniteProfitFactor(0),
		TierMetrics:  make(map[string]types.GroupStats),
		TimingImpact: make(map[string]types.GroupStats),
		Trades:       []types.SimulatedTrade{},
	}
}

// expectancy is the probability-weighted expected return per trade
func expectancy(result types.BacktestResult, sumWin, sumLoss float64) float64 {
	pWin := float64(result.WinningTrades) / float64(result.TotalTrades)
	pLoss := float64(result.LosingTrades) / float64(result.TotalTrades)

	var avgWin, avgLoss float64
	if result.WinningTrades > 0 {
		avgWin = sumWin / float64(result.WinningTrades)
	}
	if result.LosingTrades > 0 {
		avgLoss = sumLoss / float64(result.LosingTrades)
	}
	return pWin*avgWin + pLoss*avgLoss
}

// groupByTier buckets trades by canonical tier label
func groupByTier(trades []types.SimulatedTrade) map[string][]types.SimulatedTrade {
	groups := make(map[string][]types.SimulatedTrade)
	for _, trade := range trades {
		label := trade.Tier.String()
		groups[label] = append(groups[label], trade)
	}
	return groups
}

// groupByTiming buckets trades by timing-convergence cohort
func groupByTiming(trades []types.SimulatedTrade) map[string][]types.SimulatedTrade {
	groups := make(map[string][]types.SimulatedTrade)
	for _, trade := range trades {
		key := types.TimingWithoutConvergence
		if trade.TimingConvergence {
			key = types.TimingWithConvergence
		}
		groups[key] = append(groups[key], trade)
	}
	return groups
}

// groupStats aggregates one non-empty group. Empty groups never reach here;
// they are skipped at the bucketing stage, so no divide-by-zero guard fires.
func groupStats(trades []types.SimulatedTrade) types.GroupStats {
	returns := make([]float64, len(trades))
	wins := 0
	for i, trade := range trades {
		returns[i] = trade.ReturnPct
		if trade.Win {
			wins++
		}
	}

	best, worst := returns[0], returns[0]
	for _, r := range returns {
		if r > best {
			best = r
		}
		if r < worst {
			worst = r
		}
	}

	return types.GroupStats{
		Trades:       len(trades),
		WinRate:      float64(wins) / float64(len(trades)) * 100,
		AvgReturn:    mean(returns),
		MedianReturn: median(returns),
		BestReturn:   best,
		WorstReturn:  worst,
	}
}

// sharpe computes mean/stdev of the per-trade return distribution using the
// population standard deviation. No annualization factor is applied.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	avg := mean(returns)
	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-avg, 2)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev == 0 {
		return 0
	}
	return avg / stdDev
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
