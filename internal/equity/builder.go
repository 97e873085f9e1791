// Package equity compounds closed trade returns into a capital time series.
package equity

import (
	"sort"

	"rankback/internal/logging"
	"rankback/internal/types"
)

// Build compounds trades into an equity curve, ordered by exit date. The
// model is one undiversified capital pool: each trade stakes
// positionSize * current equity and the pool compounds trade by trade.
// Overlapping holding windows are not detected in the default mode, so
// concurrent trades double-count capital exposure — a known approximation.
// With strict=true a trade whose entry falls inside the previous trade's
// open window is rejected instead.
func Build(trades []types.SimulatedTrade, initialCapital, positionSize float64, strict bool) []types.EquityPoint {
	if len(trades) == 0 {
		return nil
	}

	logger := logging.NewComponentLogger("equity")

	ordered := make([]types.SimulatedTrade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitDate.Before(ordered[j].ExitDate)
	})

	curve := make([]types.EquityPoint, 0, len(ordered)+1)
	curve = append(curve, types.EquityPoint{
		Date:   ordered[0].EntryDate,
		Equity: initialCapital,
	})

	equity := initialCapital
	openUntil := ordered[0].EntryDate

	for i, trade := range ordered {
		if strict && i > 0 && trade.EntryDate.Before(openUntil) {
			logger.Warnf("Rejecting overlapping trade %s (entry %s inside open window until %s)",
				trade.Ticker, trade.EntryDate.Format("2006-01-02"), openUntil.Format("2006-01-02"))
			continue
		}

		positionValue := equity * positionSize
		pnl := positionValue * trade.ReturnPct / 100
		equity += pnl

		if trade.ExitDate.After(openUntil) {
			openUntil = trade.ExitDate
		}

		curve = append(curve, types.EquityPoint{
			Date:      trade.ExitDate,
			Equity:    equity,
			Ticker:    trade.Ticker,
			ReturnPct: trade.ReturnPct,
		})
	}

	return curve
}
