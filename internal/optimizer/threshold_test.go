package optimizer

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"rankback/internal/backtest"
	"rankback/internal/config"
	"rankback/internal/pricedata"
	"rankback/internal/types"
)

// rampSource serves synthetic rising daily bars for any requested range
type rampSource struct{}

func (s *rampSource) Query(ctx context.Context, ticker string, start, end time.Time) ([]types.PriceBar, error) {
	var bars []types.PriceBar
	price := 100.0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		bars = append(bars, types.PriceBar{
			Ticker: ticker,
			Date:   d,
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		})
		price++
	}
	return bars, nil
}

func newTestOptimizer(t *testing.T) *Optimizer {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Backtest.ResultsDirectory = t.TempDir()

	provider := pricedata.NewProvider(&rampSource{}, pricedata.NewMemoryCache(), config.PriceDataConfig{
		MaxParallel: 2,
	})
	engine := backtest.NewEngine(cfg, provider)
	engine.SetClock(func() time.Time {
		return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	return NewOptimizer(engine, cfg)
}

func scored(ticker string, score float64) types.Opportunity {
	return types.Opportunity{Ticker: ticker, Score: score, Tier: types.TierGood}
}

func TestOptimizeRanksTrials(t *testing.T) {
	o := newTestOptimizer(t)

	opportunities := []types.Opportunity{
		scored("A", 80), scored("B", 70), scored("C", 60), scored("D", 50), scored("E", 40),
	}
	thresholds := []float64{45, 65, 85}

	trials, err := o.Optimize(context.Background(), "main", opportunities, thresholds, 180, ObjectiveWinRate)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(trials) != 3 {
		t.Fatalf("expected 3 trials, got %d", len(trials))
	}

	for i := 1; i < len(trials); i++ {
		if trials[i].ObjectiveValue > trials[i-1].ObjectiveValue {
			t.Fatalf("trials not ranked descending: %v before %v",
				trials[i-1].ObjectiveValue, trials[i].ObjectiveValue)
		}
	}

	counts := make(map[float64]int, len(trials))
	for _, trial := range trials {
		counts[trial.Threshold] = trial.OpportunityCount
	}
	if counts[45] != 4 || counts[65] != 2 || counts[85] != 0 {
		t.Errorf("admission counts wrong: %v", counts)
	}
}

func TestOptimizeInfinitePFSortsFirst(t *testing.T) {
	o := newTestOptimizer(t)

	// Rising series: every threshold with survivors yields only winners, so
	// profit factor is infinite; the empty trial must rank below them
	opportunities := []types.Opportunity{scored("A", 80), scored("B", 70)}
	trials, err := o.Optimize(context.Background(), "main", opportunities, []float64{65, 95}, 180, ObjectiveProfitFactor)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	if trials[0].Threshold != 65 {
		t.Errorf("infinite-PF trial must rank first, got threshold %.0f", trials[0].Threshold)
	}
	if !trials[0].Result.ProfitFactor.IsInfinite() {
		t.Error("expected infinite profit factor on the all-winner trial")
	}
}

func TestSaveWithInfiniteObjective(t *testing.T) {
	o := newTestOptimizer(t)

	// Rising series: the surviving trials have zero losers, so the
	// profit_factor objective carries IEEE infinity as its sort key
	opportunities := []types.Opportunity{scored("A", 80), scored("B", 70)}
	trials, err := o.Optimize(context.Background(), "main", opportunities, []float64{65}, 180, ObjectiveProfitFactor)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if !math.IsInf(trials[0].ObjectiveValue, 1) {
		t.Fatal("expected an infinite objective value on the all-winner trial")
	}

	path, err := o.Save("main", ObjectiveProfitFactor, trials)
	if err != nil {
		t.Fatalf("saving an all-winner report must not fail: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), `"Infinity"`) {
		t.Error("report must carry the Infinity sentinel for the infinite objective")
	}

	var payload struct {
		Trials []types.ThresholdTrial `json:"trials"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("report must parse back: %v", err)
	}
	if !math.IsInf(payload.Trials[0].ObjectiveValue, 1) {
		t.Errorf("objective value lost on round trip: %v", payload.Trials[0].ObjectiveValue)
	}
}

func TestOptimizeAnnotatesSmallSamples(t *testing.T) {
	o := newTestOptimizer(t)

	opportunities := []types.Opportunity{scored("A", 80)}
	trials, err := o.Optimize(context.Background(), "main", opportunities, []float64{65}, 180, ObjectiveSharpe)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	if len(trials[0].Warnings) == 0 {
		t.Error("one-trade trial must carry the small-sample warning")
	}
}

func TestOptimizeRejectsUnknownObjective(t *testing.T) {
	o := newTestOptimizer(t)

	_, err := o.Optimize(context.Background(), "main", []types.Opportunity{scored("A", 80)}, []float64{65}, 180, "sortino")
	if err == nil {
		t.Error("unknown objective must be rejected")
	}
}
