// Package backtest orchestrates the simulation of one opportunity set over
// one lookback window: filter by score threshold, simulate each survivor,
// aggregate into a result, and persist reports.
package backtest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rankback/internal/config"
	"rankback/internal/equity"
	"rankback/internal/logging"
	"rankback/internal/metrics"
	"rankback/internal/pricedata"
	"rankback/internal/simulator"
	"rankback/internal/types"
)

// Engine represents the backtest engine
type Engine struct {
	cfg       *config.Config
	provider  *pricedata.Provider
	simulator *simulator.Simulator
	logger    *logging.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewEngine creates a new backtest engine
func NewEngine(cfg *config.Config, provider *pricedata.Provider) *Engine {
	return &Engine{
		cfg:       cfg,
		provider:  provider,
		simulator: simulator.NewSimulator(provider),
		logger:    logging.NewComponentLogger("backtest"),
		now:       time.Now,
	}
}

// SetClock overrides the engine's time source
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// FilterByScore returns the opportunities admitted by the score threshold
func FilterByScore(opportunities []types.Opportunity, threshold float64) []types.Opportunity {
	filtered := make([]types.Opportunity, 0, len(opportunities))
	for _, opp := range opportunities {
		if opp.Score >= threshold {
			filtered = append(filtered, opp)
		}
	}
	return filtered
}

// Run backtests one opportunity set over one lookback window. Every
// opportunity is entered at the same reference date (now - lookbackDays) —
// a point-in-time simplification the bias diagnostics interrogate later.
// Per-ticker data failures are skipped, never fatal.
func (e *Engine) Run(ctx context.Context, dataset string, opportunities []types.Opportunity, lookbackDays int, threshold float64) (types.BacktestResult, error) {
	admitted := FilterByScore(opportunities, threshold)
	referenceDate := e.now().AddDate(0, 0, -lookbackDays)

	e.logger.Infof("Backtesting %s: %d/%d opportunities admitted at threshold %.1f, entry %s",
		dataset, len(admitted), len(opportunities), threshold, referenceDate.Format("2006-01-02"))

	e.prefetch(ctx, admitted, referenceDate)

	trades := make([]types.SimulatedTrade, 0, len(admitted))
	skipped := 0

	for _, opp := range admitted {
		if err := ctx.Err(); err != nil {
			return types.BacktestResult{}, err
		}

		trade, err := e.simulator.SimulateEntry(ctx, opp, referenceDate)
		if err != nil {
			if errors.Is(err, pricedata.ErrDataUnavailable) {
				e.logger.Warnf("Skipping %s: %v", opp.Ticker, err)
				skipped++
				continue
			}
			return types.BacktestResult{}, fmt.Errorf("simulation failed for %s: %w", opp.Ticker, err)
		}
		if trade == nil {
			skipped++
			continue
		}
		trades = append(trades, *trade)
	}

	result := metrics.Compute(trades)
	e.logger.LogBacktest(dataset, result.TotalTrades, result.WinRate, result.AvgReturn, result.SharpeRatio)
	if skipped > 0 {
		e.logger.Infof("Skipped %d of %d admitted opportunities (insufficient or unavailable data)", skipped, len(admitted))
	}

	return result, nil
}

// prefetch warms the price cache for the admitted tickers in parallel
func (e *Engine) prefetch(ctx context.Context, admitted []types.Opportunity, referenceDate time.Time) {
	tickers := make([]string, 0, len(admitted))
	seen := make(map[string]bool, len(admitted))
	maxHold := 0

	for _, opp := range admitted {
		if hold := simulator.HoldPeriod(opp); hold > maxHold {
			maxHold = hold
		}
		if !seen[opp.Ticker] {
			seen[opp.Ticker] = true
			tickers = append(tickers, opp.Ticker)
		}
	}

	if len(tickers) == 0 {
		return
	}
	// Widest horizon any admitted opportunity can need; per-opportunity
	// fetches then hit the per-key cache or dedupe in flight
	end := referenceDate.AddDate(0, 0, maxHold+maxHold/2+7)
	e.provider.Prefetch(ctx, tickers, referenceDate, end)
}

// SaveResults persists the metrics report and, per configuration, the
// trades table and equity curve. Returns the path of the JSON report.
func (e *Engine) SaveResults(dataset string, result types.BacktestResult) (string, error) {
	if err := os.MkdirAll(e.cfg.Backtest.ResultsDirectory, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	timestamp := e.now().Format("20060102_150405")
	baseName := fmt.Sprintf("backtest_%s_%s", dataset, timestamp)

	jsonPath := filepath.Join(e.cfg.Backtest.ResultsDirectory, baseName+".json")
	if err := e.saveJSON(jsonPath, result); err != nil {
		return "", err
	}

	if e.cfg.Backtest.ExportTrades {
		tradesPath := filepath.Join(e.cfg.Backtest.ResultsDirectory, baseName+"_trades.csv")
		if err := e.exportTrades(tradesPath, result.Trades); err != nil {
			return "", err
		}
	}

	if e.cfg.Backtest.ExportEquity {
		curve := equity.Build(result.Trades, e.cfg.Backtest.InitialCapital,
			e.cfg.Backtest.PositionSize, e.cfg.Backtest.StrictOverlap)
		equityPath := filepath.Join(e.cfg.Backtest.ResultsDirectory, baseName+"_equity.csv")
		if err := e.exportEquityCurve(equityPath, curve); err != nil {
			return "", err
		}
	}

	e.logger.Infof("Results saved to %s", e.cfg.Backtest.ResultsDirectory)
	return jsonPath, nil
}

// saveJSON writes the metrics report. The ProfitFactor type resolves its
// infinity sentinel during marshaling.
func (e *Engine) saveJSON(filename string, result types.BacktestResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return os.WriteFile(filename, data, 0644)
}

// exportTrades writes one CSV row per simulated trade
func (e *Engine) exportTrades(filename string, trades []types.SimulatedTrade) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create trades file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"ticker", "entry_date", "exit_date", "entry_price", "exit_price",
		"return_pct", "hold_days", "tier", "score", "timing_convergence", "max_drawdown_pct", "win", "exited_early"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, trade := range trades {
		record := []string{
			trade.Ticker,
			trade.EntryDate.Format("2006-01-02"),
			trade.ExitDate.Format("2006-01-02"),
			fmt.Sprintf("%.4f", trade.EntryPrice),
			fmt.Sprintf("%.4f", trade.ExitPrice),
			fmt.Sprintf("%.4f", trade.ReturnPct),
			fmt.Sprintf("%d", trade.HoldDays),
			trade.Tier.String(),
			fmt.Sprintf("%.2f", trade.Score),
			fmt.Sprintf("%t", trade.TimingConvergence),
			fmt.Sprintf("%.4f", trade.MaxDrawdownPct),
			fmt.Sprintf("%t", trade.Win),
			fmt.Sprintf("%t", trade.ExitedEarly),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

// exportEquityCurve writes date,equity pairs
func (e *Engine) exportEquityCurve(filename string, curve []types.EquityPoint) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create equity file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"date", "equity"}); err != nil {
		return err
	}

	for _, point := range curve {
		record := []string{
			point.Date.Format("2006-01-02"),
			fmt.Sprintf("%.2f", point.Equity),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}
