package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	// Application settings
	App       AppConfig       `json:"app" yaml:"app"`
	Datasets  []DatasetConfig `json:"datasets" yaml:"datasets"`
	PriceData PriceDataConfig `json:"price_data" yaml:"price_data"`
	Backtest  BacktestConfig  `json:"backtest" yaml:"backtest"`
	Validation ValidateConfig `json:"validation" yaml:"validation"`
	Optimizer OptimizerConfig `json:"optimizer" yaml:"optimizer"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// AppConfig contains basic application configuration
type AppConfig struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Environment string `json:"environment" yaml:"environment"` // "development", "production", "test"
	Debug       bool   `json:"debug" yaml:"debug"`
}

// DatasetConfig describes one opportunity table produced by the upstream
// scoring subsystem
type DatasetConfig struct {
	Name     string  `json:"name" yaml:"name"`
	Path     string  `json:"path" yaml:"path"`
	MinScore float64 `json:"min_score" yaml:"min_score"` // default admission threshold
}

// PriceDataConfig contains price history provider configuration
type PriceDataConfig struct {
	// Source selection
	SourceType   string `json:"source_type" yaml:"source_type"` // "csv", "binance"
	CSVDirectory string `json:"csv_directory" yaml:"csv_directory"`

	// Binance credentials (read from env when empty)
	APIKey    string `json:"api_key" yaml:"api_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`

	// Cache selection
	CacheType      string `json:"cache_type" yaml:"cache_type"` // "memory", "file", "postgres"
	CacheDirectory string `json:"cache_directory" yaml:"cache_directory"`

	// Fetch behavior. MaxParallel bounds concurrent fetches across distinct
	// tickers; identical in-flight keys are always collapsed to one request.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
	MaxParallel    int           `json:"max_parallel" yaml:"max_parallel"`
}

// BacktestConfig contains backtest engine configuration
type BacktestConfig struct {
	// Simulation
	LookbackDays    int     `json:"lookback_days" yaml:"lookback_days"`
	InitialCapital  float64 `json:"initial_capital" yaml:"initial_capital"`
	PositionSize    float64 `json:"position_size" yaml:"position_size"` // fraction of the pool per trade
	BenchmarkTicker string  `json:"benchmark_ticker" yaml:"benchmark_ticker"`

	// Equity curve. The default model compounds one undiversified pool and
	// does not detect overlapping holding windows; strict mode rejects a
	// trade whose window overlaps an already-open position.
	StrictOverlap bool `json:"strict_overlap" yaml:"strict_overlap"`

	// Output
	ResultsDirectory string `json:"results_directory" yaml:"results_directory"`
	ExportTrades     bool   `json:"export_trades" yaml:"export_trades"`
	ExportEquity     bool   `json:"export_equity" yaml:"export_equity"`
}

// ValidateConfig contains multi-period validation configuration
type ValidateConfig struct {
	LookbackWindows []int `json:"lookback_windows" yaml:"lookback_windows"` // days

	// Degradation flags
	SevereDeltaPoints   float64 `json:"severe_delta_points" yaml:"severe_delta_points"`
	ModerateDeltaPoints float64 `json:"moderate_delta_points" yaml:"moderate_delta_points"`
}

// OptimizerConfig contains threshold optimizer configuration
type OptimizerConfig struct {
	Thresholds []float64 `json:"thresholds" yaml:"thresholds"`
	Objective  string    `json:"objective" yaml:"objective"` // "sharpe", "profit_factor", "expectancy", "win_rate"

	// Advisory sample-size and rule-of-thumb cutoffs; these are fixed
	// heuristics, not hypothesis tests
	MinSampleSize   int     `json:"min_sample_size" yaml:"min_sample_size"`
	MinWinRate      float64 `json:"min_win_rate" yaml:"min_win_rate"`
	MinSharpe       float64 `json:"min_sharpe" yaml:"min_sharpe"`
	MinProfitFactor float64 `json:"min_profit_factor" yaml:"min_profit_factor"`
}

// DatabaseConfig contains optional Postgres persistence configuration
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Database string `json:"database" yaml:"database"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"`
}

// DSN builds the Postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode)
}

// ServerConfig contains report API configuration
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Output
	Level     string `json:"level" yaml:"level"`         // "debug", "info", "warn", "error"
	Format    string `json:"format" yaml:"format"`       // "json", "text"
	Output    string `json:"output" yaml:"output"`       // "stdout", "file", "both"
	Directory string `json:"directory" yaml:"directory"` // log file directory

	// File rotation
	MaxSize    int  `json:"max_size" yaml:"max_size"`       // max MB per file
	MaxBackups int  `json:"max_backups" yaml:"max_backups"` // max number of old files
	MaxAge     int  `json:"max_age" yaml:"max_age"`         // max days to retain
	Compress   bool `json:"compress" yaml:"compress"`       // compress old files
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "rankback",
			Version:     "1.0.0",
			Environment: "development",
			Debug:       false,
		},
		Datasets: []DatasetConfig{
			{Name: "main", Path: "./data/opportunities.csv", MinScore: 65},
		},
		PriceData: PriceDataConfig{
			SourceType:     "csv",
			CSVDirectory:   "./data/prices",
			CacheType:      "file",
			CacheDirectory: "./data/price_cache",
			RequestTimeout: 30 * time.Second,
			MaxParallel:    4,
		},
		Backtest: BacktestConfig{
			LookbackDays:     180,
			InitialCapital:   100000.0,
			PositionSize:     0.10, // 10% of the pool per trade
			BenchmarkTicker:  "SPY",
			StrictOverlap:    false,
			ResultsDirectory: "./backtest_results",
			ExportTrades:     true,
			ExportEquity:     true,
		},
		Validation: ValidateConfig{
			LookbackWindows:     []int{90, 180, 365},
			SevereDeltaPoints:   50,
			ModerateDeltaPoints: 25,
		},
		Optimizer: OptimizerConfig{
			Thresholds:      []float64{40, 45, 50, 55, 60, 65, 70, 75, 80},
			Objective:       "sharpe",
			MinSampleSize:   30,
			MinWinRate:      60, // %
			MinSharpe:       0.5,
			MinProfitFactor: 2.0,
		},
		Database: DatabaseConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			Database: "rankback",
			Username: "rankback",
			SSLMode:  "disable",
		},
		Server: ServerConfig{
			Addr: ":8090",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "both",
			Directory:  "./logs",
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from a JSON or YAML file, selected by
// extension. A default config file is written when none exists.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaultConfig := DefaultConfig()
		if err := SaveConfig(defaultConfig, configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return defaultConfig, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(configPath) {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a file, format selected by extension
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(configPath) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if len(c.Datasets) == 0 {
		return fmt.Errorf("at least one dataset is required")
	}
	for _, ds := range c.Datasets {
		if ds.Name == "" {
			return fmt.Errorf("dataset name is required")
		}
		if ds.Path == "" {
			return fmt.Errorf("dataset %s: path is required", ds.Name)
		}
	}

	switch c.PriceData.SourceType {
	case "csv", "binance":
	default:
		return fmt.Errorf("invalid price source type: %s", c.PriceData.SourceType)
	}
	switch c.PriceData.CacheType {
	case "memory", "file", "postgres":
	default:
		return fmt.Errorf("invalid price cache type: %s", c.PriceData.CacheType)
	}
	if c.PriceData.CacheType == "postgres" && !c.Database.Enabled {
		return fmt.Errorf("postgres price cache requires database.enabled")
	}
	if c.PriceData.MaxParallel <= 0 {
		return fmt.Errorf("max parallel fetches must be positive")
	}

	if c.Backtest.LookbackDays <= 0 {
		return fmt.Errorf("lookback days must be positive")
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive")
	}
	if c.Backtest.PositionSize <= 0 || c.Backtest.PositionSize > 1 {
		return fmt.Errorf("position size must be between 0 and 1")
	}
	if c.Backtest.BenchmarkTicker == "" {
		return fmt.Errorf("benchmark ticker is required")
	}

	if len(c.Validation.LookbackWindows) == 0 {
		return fmt.Errorf("at least one lookback window is required")
	}
	for _, w := range c.Validation.LookbackWindows {
		if w <= 0 {
			return fmt.Errorf("lookback windows must be positive, got %d", w)
		}
	}

	if len(c.Optimizer.Thresholds) == 0 {
		return fmt.Errorf("at least one optimizer threshold is required")
	}
	switch c.Optimizer.Objective {
	case "sharpe", "profit_factor", "expectancy", "win_rate":
	default:
		return fmt.Errorf("invalid optimizer objective: %s", c.Optimizer.Objective)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, level := range validLevels {
		if c.Logging.Level == level {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validFormats := []string{"json", "text"}
	formatValid := false
	for _, format := range validFormats {
		if c.Logging.Format == format {
			formatValid = true
			break
		}
	}
	if !formatValid {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// GetEnv returns environment variable with default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvBool returns boolean environment variable with default value
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

// GetEnvFloat returns float environment variable with default value
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvInt returns integer environment variable with default value
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
