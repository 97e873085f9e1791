package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rankback/internal/backtest"
	"rankback/internal/config"
	"rankback/internal/diagnostics"
	"rankback/internal/logging"
	"rankback/internal/opportunities"
	"rankback/internal/optimizer"
	"rankback/internal/pricedata"
	"rankback/internal/server"
	"rankback/internal/storage"
	"rankback/internal/types"
	"rankback/internal/validator"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	// Application constants
	AppName           = "rankback"
	AppVersion        = "1.0.0"
	DefaultConfigPath = "./config.json"
)

var (
	// Command line flags
	configPath = flag.String("config", DefaultConfigPath, "Path to configuration file (.json or .yaml)")
	mode       = flag.String("mode", "backtest", "Run mode: backtest, sweep, optimize, diagnose, serve")
	dataset    = flag.String("dataset", "", "Restrict to one configured dataset (default: all)")
	lookback   = flag.Int("lookback", 0, "Override lookback days for backtest/optimize modes")
	minScore   = flag.Float64("min-score", -1, "Override the score threshold (backtest mode)")
	objective  = flag.String("objective", "", "Override the optimizer objective metric")
	debugMode  = flag.Bool("debug", false, "Enable debug mode")
	version    = flag.Bool("version", false, "Show version information")

	cfg    *config.Config
	logger *logging.Logger
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s %s\n", AppName, AppVersion)
		os.Exit(0)
	}

	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	var err error
	cfg, err = config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *debugMode {
		cfg.App.Debug = true
		cfg.Logging.Level = "debug"
	}
	applyEnvOverrides(cfg)

	logging.InitGlobalLogger(cfg.Logging)
	logger = logging.GetGlobalLogger()

	logger.WithFields(map[string]interface{}{
		"version":     AppVersion,
		"environment": cfg.App.Environment,
		"config_path": *configPath,
		"mode":        *mode,
	}).Info("Starting rankback")

	if err := run(); err != nil {
		logger.Fatalf("Run failed: %v", err)
	}

	logger.Info("Done")
}

// applyEnvOverrides lets credentials come from the environment instead of
// the config file
func applyEnvOverrides(cfg *config.Config) {
	cfg.PriceData.APIKey = config.GetEnv("RANKBACK_BINANCE_API_KEY", cfg.PriceData.APIKey)
	cfg.PriceData.SecretKey = config.GetEnv("RANKBACK_BINANCE_SECRET_KEY", cfg.PriceData.SecretKey)
	cfg.Database.Password = config.GetEnv("RANKBACK_DB_PASSWORD", cfg.Database.Password)
}

func run() error {
	ctx := context.Background()

	if *mode == "serve" {
		return server.NewServer(cfg).Run()
	}

	provider, repo, err := buildProvider()
	if err != nil {
		return err
	}

	engine := backtest.NewEngine(cfg, provider)

	switch *mode {
	case "backtest":
		return runBacktest(ctx, engine, repo)
	case "sweep":
		return runSweep(ctx, engine, provider, repo)
	case "optimize":
		return runOptimize(ctx, engine)
	case "diagnose":
		return runDiagnose(ctx, engine, provider)
	default:
		return fmt.Errorf("unknown mode: %s", *mode)
	}
}

// buildProvider wires the configured price source and cache, plus the run
// repository when persistence is enabled
func buildProvider() (*pricedata.Provider, *storage.RunRepository, error) {
	var repo *storage.RunRepository
	var dbCache pricedata.Cache

	if cfg.Database.Enabled {
		db, err := storage.Open(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("database setup failed: %w", err)
		}
		repo = storage.NewRunRepository(db)
		dbCache = storage.NewPriceCache(db)
	}

	var cache pricedata.Cache
	switch cfg.PriceData.CacheType {
	case "memory":
		cache = pricedata.NewMemoryCache()
	case "file":
		fileCache, err := pricedata.NewFileCache(cfg.PriceData.CacheDirectory)
		if err != nil {
			return nil, nil, fmt.Errorf("file cache setup failed: %w", err)
		}
		cache = fileCache
	case "postgres":
		cache = dbCache
	}

	var source pricedata.Source
	switch cfg.PriceData.SourceType {
	case "csv":
		source = pricedata.NewCSVSource(cfg.PriceData.CSVDirectory)
	case "binance":
		source = pricedata.NewBinanceSource(cfg.PriceData.APIKey, cfg.PriceData.SecretKey)
	}

	return pricedata.NewProvider(source, cache, cfg.PriceData), repo, nil
}

// selectedDatasets loads every configured (or the one requested) dataset.
// A missing or unreadable table skips that dataset and the run continues.
func selectedDatasets() (map[string][]types.Opportunity, map[string]float64) {
	datasets := make(map[string][]types.Opportunity)
	thresholds := make(map[string]float64)

	for _, ds := range cfg.Datasets {
		if *dataset != "" && ds.Name != *dataset {
			continue
		}
		opps, err := opportunities.LoadFile(ds.Path)
		if err != nil {
			logger.Warnf("Skipping dataset %s: %v", ds.Name, err)
			continue
		}
		datasets[ds.Name] = opps
		thresholds[ds.Name] = ds.MinScore
	}
	return datasets, thresholds
}

func lookbackDays() int {
	if *lookback > 0 {
		return *lookback
	}
	return cfg.Backtest.LookbackDays
}

// runBacktest runs the default single backtest per dataset
func runBacktest(ctx context.Context, engine *backtest.Engine, repo *storage.RunRepository) error {
	datasets, thresholds := selectedDatasets()
	if len(datasets) == 0 {
		return fmt.Errorf("no dataset could be loaded")
	}

	succeeded := 0
	for name, opps := range datasets {
		threshold := thresholds[name]
		if *minScore >= 0 {
			threshold = *minScore
		}

		result, err := engine.Run(ctx, name, opps, lookbackDays(), threshold)
		if err != nil {
			logger.LogError("backtest", err, map[string]interface{}{"dataset": name})
			continue
		}

		if _, err := engine.SaveResults(name, result); err != nil {
			logger.LogError("save_results", err, map[string]interface{}{"dataset": name})
			continue
		}

		persistRun(repo, name, "backtest", lookbackDays(), threshold, result)
		succeeded++
	}

	if succeeded == 0 {
		return fmt.Errorf("every dataset failed")
	}
	return nil
}

// runSweep runs the comprehensive multi-period validation
func runSweep(ctx context.Context, engine *backtest.Engine, provider *pricedata.Provider, repo *storage.RunRepository) error {
	datasets, thresholds := selectedDatasets()
	if len(datasets) == 0 {
		return fmt.Errorf("no dataset could be loaded")
	}

	v := validator.NewValidator(engine, provider, cfg)
	report, err := v.Run(ctx, datasets, thresholds)
	if err != nil {
		return err
	}

	if _, err := v.Save(report); err != nil {
		return err
	}

	for name, periods := range report.Datasets {
		avgPF := validator.AverageProfitFactor(periods)
		logger.WithFields(map[string]interface{}{
			"dataset":           name,
			"periods":           len(periods),
			"avg_profit_factor": avgPF.String(),
		}).Info("Dataset sweep complete")

		for _, period := range periods {
			persistRun(repo, name, "sweep", period.LookbackDays, thresholds[name], period.Backtest)
		}
	}
	return nil
}

// runOptimize grid-searches score thresholds per dataset
func runOptimize(ctx context.Context, engine *backtest.Engine) error {
	datasets, _ := selectedDatasets()
	if len(datasets) == 0 {
		return fmt.Errorf("no dataset could be loaded")
	}

	obj := cfg.Optimizer.Objective
	if *objective != "" {
		obj = *objective
	}

	o := optimizer.NewOptimizer(engine, cfg)
	succeeded := 0

	for name, opps := range datasets {
		trials, err := o.Optimize(ctx, name, opps, cfg.Optimizer.Thresholds, lookbackDays(), obj)
		if err != nil {
			logger.LogError("optimize", err, map[string]interface{}{"dataset": name})
			continue
		}
		if _, err := o.Save(name, obj, trials); err != nil {
			logger.LogError("save_thresholds", err, map[string]interface{}{"dataset": name})
			continue
		}
		succeeded++
	}

	if succeeded == 0 {
		return fmt.Errorf("every dataset failed")
	}
	return nil
}

// diagnosticsReport is the consolidated bias + degradation report
type diagnosticsReport struct {
	GeneratedAt time.Time                          `json:"generated_at"`
	Bias        map[string]types.BiasReport        `json:"bias"`
	Degradation map[string]types.DegradationReport `json:"degradation"`
}

// runDiagnose produces the consolidated bias/degradation report. Bias risk
// is surfaced prominently but never blocks the cross-period analysis.
func runDiagnose(ctx context.Context, engine *backtest.Engine, provider *pricedata.Provider) error {
	datasets, thresholds := selectedDatasets()
	if len(datasets) == 0 {
		return fmt.Errorf("no dataset could be loaded")
	}

	report := diagnosticsReport{
		GeneratedAt: time.Now(),
		Bias:        make(map[string]types.BiasReport),
		Degradation: make(map[string]types.DegradationReport),
	}

	referenceDate := time.Now().AddDate(0, 0, -lookbackDays())
	for name, opps := range datasets {
		bias := diagnostics.DiagnoseLookaheadBias(opps, referenceDate)
		logger.LogBias(bias.RiskLevel, bias.EvidenceFlags)
		report.Bias[name] = bias
	}

	v := validator.NewValidator(engine, provider, cfg)
	sweep, err := v.Run(ctx, datasets, thresholds)
	if err != nil {
		logger.LogError("degradation_sweep", err, nil)
	} else {
		for name, periods := range sweep.Datasets {
			degradation := diagnostics.AnalyzeCohortDegradation(periods,
				cfg.Validation.SevereDeltaPoints, cfg.Validation.ModerateDeltaPoints)
			if degradation.Severity == types.DegradationSevere {
				logger.WithFields(logrus.Fields{
					"dataset":        name,
					"win_rate_delta": degradation.WinRateDelta,
				}).Warn("Severe cross-period win-rate degradation")
			}
			report.Degradation[name] = degradation
		}
	}

	return saveDiagnostics(report)
}

// saveDiagnostics persists the consolidated diagnostics report
func saveDiagnostics(report diagnosticsReport) error {
	if err := os.MkdirAll(cfg.Backtest.ResultsDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	filename := fmt.Sprintf("diagnostics_%s.json", report.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(cfg.Backtest.ResultsDirectory, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write diagnostics report: %w", err)
	}

	logger.Infof("Diagnostics report saved to %s", path)
	return nil
}

// persistRun stores a run in the database when persistence is enabled
func persistRun(repo *storage.RunRepository, dataset, mode string, lookbackDays int, threshold float64, result types.BacktestResult) {
	if repo == nil {
		return
	}
	if _, err := repo.SaveRun(dataset, mode, lookbackDays, threshold, result); err != nil {
		logger.LogError("persist_run", err, map[string]interface{}{"dataset": dataset})
	}
}
