// Package optimizer grid-searches score thresholds to maximize a chosen
// objective metric.
package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"rankback/internal/backtest"
	"rankback/internal/config"
	"rankback/internal/logging"
	"rankback/internal/types"
)

// Supported objective metrics
const (
	ObjectiveSharpe       = "sharpe"
	ObjectiveProfitFactor = "profit_factor"
	ObjectiveExpectancy   = "expectancy"
	ObjectiveWinRate      = "win_rate"
)

// Optimizer represents the threshold optimizer
type Optimizer struct {
	engine *backtest.Engine
	cfg    *config.Config
	logger *logging.Logger
	now    func() time.Time
}

// NewOptimizer creates a new threshold optimizer
func NewOptimizer(engine *backtest.Engine, cfg *config.Config) *Optimizer {
	return &Optimizer{
		engine: engine,
		cfg:    cfg,
		logger: logging.NewComponentLogger("optimizer"),
		now:    time.Now,
	}
}

// Optimize backtests every candidate threshold and returns the trials
// ranked descending by the objective metric. Warnings on a trial are
// advisory rule-of-thumb checks, not hypothesis tests.
func (o *Optimizer) Optimize(ctx context.Context, dataset string, opportunities []types.Opportunity, thresholds []float64, lookbackDays int, objective string) ([]types.ThresholdTrial, error) {
	if err := validateObjective(objective); err != nil {
		return nil, err
	}

	trials := make([]types.ThresholdTrial, 0, len(thresholds))

	for _, threshold := range thresholds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		admitted := backtest.FilterByScore(opportunities, threshold)
		result, err := o.engine.Run(ctx, dataset, opportunities, lookbackDays, threshold)
		if err != nil {
			return nil, fmt.Errorf("trial at threshold %.1f: %w", threshold, err)
		}

		trial := types.ThresholdTrial{
			Threshold:        threshold,
			OpportunityCount: len(admitted),
			Result:           result,
			ObjectiveValue:   objectiveValue(result, objective),
		}
		o.annotate(&trial)

		o.logger.LogThreshold(threshold, trial.OpportunityCount, objective, trial.ObjectiveValue)
		trials = append(trials, trial)
	}

	sort.SliceStable(trials, func(i, j int) bool {
		return trials[i].ObjectiveValue > trials[j].ObjectiveValue
	})

	return trials, nil
}

// annotate attaches the advisory sample-size warning and rule-of-thumb
// cutoff verdict to a trial
func (o *Optimizer) annotate(trial *types.ThresholdTrial) {
	result := trial.Result

	if result.TotalTrades < o.cfg.Optimizer.MinSampleSize {
		trial.Warnings = append(trial.Warnings,
			fmt.Sprintf("only %d trades (below %d): statistically weak sample",
				result.TotalTrades, o.cfg.Optimizer.MinSampleSize))
	}

	pfOK := result.ProfitFactor.IsInfinite() || result.ProfitFactor.Value() >= o.cfg.Optimizer.MinProfitFactor
	trial.MeetsCutoffs = !result.IsEmpty() &&
		result.WinRate >= o.cfg.Optimizer.MinWinRate &&
		result.SharpeRatio >= o.cfg.Optimizer.MinSharpe &&
		pfOK

	if !trial.MeetsCutoffs && !result.IsEmpty() {
		trial.Warnings = append(trial.Warnings,
			fmt.Sprintf("below rule-of-thumb cutoffs (win_rate>=%.0f%%, sharpe>=%.1f, profit_factor>=%.1f)",
				o.cfg.Optimizer.MinWinRate, o.cfg.Optimizer.MinSharpe, o.cfg.Optimizer.MinProfitFactor))
	}
}

// objectiveValue extracts the ranking key for a result. An infinite profit
// factor sorts above every finite one; IEEE infinity is used for ordering
// only and never serialized.
func objectiveValue(result types.BacktestResult, objective string) float64 {
	switch objective {
	case ObjectiveSharpe:
		return result.SharpeRatio
	case ObjectiveProfitFactor:
		if result.ProfitFactor.IsInfinite() {
			return math.Inf(1)
		}
		return result.ProfitFactor.Value()
	case ObjectiveExpectancy:
		return result.Expectancy
	case ObjectiveWinRate:
		return result.WinRate
	default:
		return 0
	}
}

func validateObjective(objective string) error {
	switch objective {
	case ObjectiveSharpe, ObjectiveProfitFactor, ObjectiveExpectancy, ObjectiveWinRate:
		return nil
	default:
		return fmt.Errorf("unknown objective metric: %s", objective)
	}
}

// Save persists one ranked trial table for an objective. Returns the
// written path.
func (o *Optimizer) Save(dataset, objective string, trials []types.ThresholdTrial) (string, error) {
	if err := os.MkdirAll(o.cfg.Backtest.ResultsDirectory, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	filename := fmt.Sprintf("thresholds_%s_%s_%s.json", dataset, objective, o.now().Format("20060102_150405"))
	path := filepath.Join(o.cfg.Backtest.ResultsDirectory, filename)

	payload := struct {
		Dataset   string                 `json:"dataset"`
		Objective string                 `json:"objective"`
		Trials    []types.ThresholdTrial `json:"trials"`
	}{Dataset: dataset, Objective: objective, Trials: trials}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal threshold report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write threshold report: %w", err)
	}

	o.logger.Infof("Threshold report saved to %s", path)
	return path, nil
}
