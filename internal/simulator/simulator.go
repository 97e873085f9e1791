// Package simulator turns one ranked opportunity into one simulated
// entry/exit trade against historical daily bars.
package simulator

import (
	"context"
	"time"

	"rankback/internal/logging"
	"rankback/internal/pricedata"
	"rankback/internal/types"

	"github.com/cinar/indicator"
)

// timingConvergenceBonusDays extends the hold when a secondary
// technical-timing signal co-occurred with the opportunity
const timingConvergenceBonusDays = 15

// horizonBufferDays pads the fetch window so weekends and holidays do not
// starve the bar series before the exit index is reached
const horizonBufferDays = 7

// Simulator simulates entries against price history served by the provider
type Simulator struct {
	provider *pricedata.Provider
	logger   *logging.Logger
}

// NewSimulator creates a new trade simulator
func NewSimulator(provider *pricedata.Provider) *Simulator {
	return &Simulator{
		provider: provider,
		logger:   logging.NewComponentLogger("simulator"),
	}
}

// HoldPeriod returns the simulated holding period in bars for an
// opportunity: the tier's canonical hold plus the timing-convergence bonus.
func HoldPeriod(opp types.Opportunity) int {
	holdDays := opp.Tier.HoldDays()
	if opp.TimingConvergence {
		holdDays += timingConvergenceBonusDays
	}
	return holdDays
}

// SimulateEntry simulates one trade entered at the first available bar at or
// after signalDate. It returns (nil, nil) when the series is too short to
// simulate (fewer than 2 bars) or the entry price is non-positive — both are
// normal skips. Unavailable price data surfaces as ErrDataUnavailable.
func (s *Simulator) SimulateEntry(ctx context.Context, opp types.Opportunity, signalDate time.Time) (*types.SimulatedTrade, error) {
	holdDays := HoldPeriod(opp)

	// The exit is indexed in bars, so fetch past the calendar horizon to
	// cover non-trading days
	fetchEnd := signalDate.AddDate(0, 0, holdDays+holdDays/2+horizonBufferDays)

	bars, err := s.provider.Get(ctx, opp.Ticker, signalDate, fetchEnd)
	if err != nil {
		return nil, err
	}

	if len(bars) < 2 {
		s.logger.Debugf("Skipping %s: insufficient history (%d bars)", opp.Ticker, len(bars))
		return nil, nil
	}

	entryIdx := 0
	for entryIdx < len(bars) && bars[entryIdx].Date.Before(signalDate) {
		entryIdx++
	}
	if entryIdx > len(bars)-2 {
		s.logger.Debugf("Skipping %s: no tradable bars at or after %s", opp.Ticker, signalDate.Format("2006-01-02"))
		return nil, nil
	}

	entryBar := bars[entryIdx]
	entryPrice := entryBar.Close
	if entryPrice <= 0 {
		s.logger.Debugf("Skipping %s: non-positive entry price %.4f", opp.Ticker, entryPrice)
		return nil, nil
	}

	// Exit at the holding period, or at the last bar when the horizon
	// exceeds available history. The early exit is a flagged approximation.
	exitIdx := entryIdx + holdDays
	exitedEarly := false
	if exitIdx > len(bars)-1 {
		exitIdx = len(bars) - 1
		exitedEarly = true
	}
	exitBar := bars[exitIdx]

	returnPct := (exitBar.Close - entryPrice) / entryPrice * 100

	trade := &types.SimulatedTrade{
		Ticker:            opp.Ticker,
		EntryDate:         entryBar.Date,
		ExitDate:          exitBar.Date,
		EntryPrice:        entryPrice,
		ExitPrice:         exitBar.Close,
		ReturnPct:         returnPct,
		HoldDays:          int(exitBar.Date.Sub(entryBar.Date).Hours() / 24),
		Tier:              opp.Tier,
		Score:             opp.Score,
		TimingConvergence: opp.TimingConvergence,
		MaxDrawdownPct:    windowDrawdown(bars[entryIdx : exitIdx+1]),
		Win:               returnPct > 0,
		ExitedEarly:       exitedEarly,
	}

	s.logger.LogTrade(trade.Ticker, trade.Tier.String(), trade.ReturnPct, trade.HoldDays, trade.Win)
	return trade, nil
}

// windowDrawdown computes (min_close - max_close) / max_close * 100 over the
// holding window; always <= 0
func windowDrawdown(window []types.PriceBar) float64 {
	closes := types.Closes(window)
	n := len(closes)
	if n == 0 {
		return 0
	}

	minClose := indicator.Min(n, closes)[n-1]
	maxClose := indicator.Max(n, closes)[n-1]
	if maxClose <= 0 {
		return 0
	}
	return (minClose - maxClose) / maxClose * 100
}
