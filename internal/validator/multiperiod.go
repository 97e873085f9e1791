// Package validator runs the backtest engine across several lookback
// windows and datasets and compares each run against a benchmark index.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rankback/internal/backtest"
	"rankback/internal/config"
	"rankback/internal/logging"
	"rankback/internal/pricedata"
	"rankback/internal/types"

	"github.com/cinar/indicator"
)

// Report is the nested dataset -> period -> result table produced by a
// comprehensive sweep
type Report struct {
	GeneratedAt     time.Time                       `json:"generated_at"`
	BenchmarkTicker string                          `json:"benchmark_ticker"`
	Datasets        map[string][]types.PeriodResult `json:"datasets"`
}

// Validator represents the multi-period validator
type Validator struct {
	engine   *backtest.Engine
	provider *pricedata.Provider
	cfg      *config.Config
	logger   *logging.Logger
	now      func() time.Time
}

// NewValidator creates a new multi-period validator
func NewValidator(engine *backtest.Engine, provider *pricedata.Provider, cfg *config.Config) *Validator {
	return &Validator{
		engine:   engine,
		provider: provider,
		cfg:      cfg,
		logger:   logging.NewComponentLogger("validator"),
		now:      time.Now,
	}
}

// SetClock overrides the validator's time source
func (v *Validator) SetClock(now func() time.Time) {
	v.now = now
}

// Run sweeps every dataset across every configured lookback window. A
// failing (dataset, window) pair is logged and skipped; sibling work
// continues.
func (v *Validator) Run(ctx context.Context, datasets map[string][]types.Opportunity, thresholds map[string]float64) (*Report, error) {
	report := &Report{
		GeneratedAt:     v.now(),
		BenchmarkTicker: v.cfg.Backtest.BenchmarkTicker,
		Datasets:        make(map[string][]types.PeriodResult),
	}

	for name, opportunities := range datasets {
		var periods []types.PeriodResult

		for _, window := range v.cfg.Validation.LookbackWindows {
			period, err := v.runPeriod(ctx, name, opportunities, window, thresholds[name])
			if err != nil {
				v.logger.LogError("period_validation", err, map[string]interface{}{
					"dataset": name,
					"window":  window,
				})
				continue
			}
			periods = append(periods, period)
		}

		if len(periods) > 0 {
			report.Datasets[name] = periods
		}
	}

	if len(report.Datasets) == 0 {
		return nil, fmt.Errorf("no dataset produced any period result")
	}
	return report, nil
}

// runPeriod backtests one (dataset, window) pair and attaches the benchmark
// comparison
func (v *Validator) runPeriod(ctx context.Context, dataset string, opportunities []types.Opportunity, window int, threshold float64) (types.PeriodResult, error) {
	result, err := v.engine.Run(ctx, dataset, opportunities, window, threshold)
	if err != nil {
		return types.PeriodResult{}, err
	}

	period := types.PeriodResult{
		PeriodLabel:     fmt.Sprintf("%dd", window),
		LookbackDays:    window,
		Backtest:        result,
		BenchmarkTicker: v.cfg.Backtest.BenchmarkTicker,
	}

	benchReturn, volatility, smoothed, err := v.benchmark(ctx, window)
	if err != nil {
		// Benchmark gaps degrade the comparison, not the backtest
		v.logger.Warnf("Benchmark %s unavailable for %s: %v", v.cfg.Backtest.BenchmarkTicker, period.PeriodLabel, err)
	} else {
		period.BenchmarkReturn = benchReturn
		period.BenchmarkVolatility = volatility
		period.BenchmarkSmoothed = smoothed
		period.Outperformance = result.AvgReturn - benchReturn
	}

	v.logger.LogPeriod(dataset, period.PeriodLabel, result.AvgReturn, period.BenchmarkReturn, period.Outperformance)
	return period, nil
}

// benchmark computes the same-window return of the reference index plus its
// close-series volatility and smoothed level
func (v *Validator) benchmark(ctx context.Context, window int) (benchReturn, volatility, smoothed float64, err error) {
	end := v.now()
	start := end.AddDate(0, 0, -window)

	bars, err := v.provider.Get(ctx, v.cfg.Backtest.BenchmarkTicker, start, end)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(bars) < 2 {
		return 0, 0, 0, fmt.Errorf("benchmark series too short: %d bars", len(bars))
	}

	closes := types.Closes(bars)
	n := len(closes)

	first, last := closes[0], closes[n-1]
	if first <= 0 {
		return 0, 0, 0, fmt.Errorf("non-positive benchmark base price %.4f", first)
	}
	benchReturn = (last - first) / first * 100
	volatility = indicator.Std(n, closes)[n-1]
	smoothed = indicator.Sma(n, closes)[n-1]
	return benchReturn, volatility, smoothed, nil
}

// AverageProfitFactor averages profit factors across periods. Infinite
// entries are excluded from the arithmetic mean; a set with only infinite
// entries stays infinite.
func AverageProfitFactor(periods []types.PeriodResult) types.ProfitFactor {
	var total float64
	finite := 0
	infinite := 0

	for _, period := range periods {
		pf := period.Backtest.ProfitFactor
		if pf.IsInfinite() {
			infinite++
			continue
		}
		total += pf.Value()
		finite++
	}

	if finite == 0 {
		if infinite > 0 {
			return types.InfiniteProfitFactor()
		}
		return types.FiniteProfitFactor(0)
	}
	return types.FiniteProfitFactor(total / float64(finite))
}

// Save persists the nested cross-period report. Returns the written path.
func (v *Validator) Save(report *Report) (string, error) {
	if err := os.MkdirAll(v.cfg.Backtest.ResultsDirectory, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	filename := fmt.Sprintf("comprehensive_%s.json", v.now().Format("20060102_150405"))
	path := filepath.Join(v.cfg.Backtest.ResultsDirectory, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal comprehensive report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write comprehensive report: %w", err)
	}

	v.logger.Infof("Comprehensive report saved to %s", path)
	return path, nil
}
