package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"rankback/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus logger with component awareness
type Logger struct {
	*logrus.Logger
	component string
}

// Global logger instance
var globalLogger *Logger

// NewLogger creates a new logger with the given configuration
func NewLogger(cfg config.LoggingConfig) *Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	var output io.Writer
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "file":
		output = createFileWriter(cfg)
	case "both":
		output = io.MultiWriter(os.Stdout, createFileWriter(cfg))
	default:
		output = os.Stdout
	}

	logger.SetOutput(output)

	return &Logger{
		Logger: logger,
	}
}

// createFileWriter creates a rotating file writer
func createFileWriter(cfg config.LoggingConfig) io.Writer {
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		fmt.Printf("Warning: Failed to create log directory: %v\n", err)
		return os.Stdout
	}

	logFile := filepath.Join(cfg.Directory, "rankback.log")

	return &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}
}

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg config.LoggingConfig) {
	globalLogger = NewLogger(cfg)
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewLogger(config.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		})
	}
	return globalLogger
}

// NewComponentLogger creates a logger for a specific pipeline component
func NewComponentLogger(component string) *Logger {
	baseLogger := GetGlobalLogger()
	return &Logger{
		Logger:    baseLogger.Logger,
		component: component,
	}
}

// Logging methods with component awareness. Each delegates to the embedded
// logrus logger; the component tag rides along as a field.

// entry builds the base log entry carrying the component field
func (l *Logger) entry() *logrus.Entry {
	if l.component != "" {
		return l.Logger.WithField("component", l.component)
	}
	return logrus.NewEntry(l.Logger)
}

// Debug logs a debug message
func (l *Logger) Debug(args ...interface{}) {
	l.entry().Debug(args...)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.entry().Debugf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(args ...interface{}) {
	l.entry().Info(args...)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.entry().Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(args ...interface{}) {
	l.entry().Warn(args...)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry().Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(args ...interface{}) {
	l.entry().Error(args...)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry().Errorf(format, args...)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.entry().Fatalf(format, args...)
}

// WithFields returns an entry carrying the fields and the component tag
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.entry().WithFields(fields)
}

// WithField returns an entry carrying one field and the component tag
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.entry().WithField(key, value)
}

// WithError returns an entry carrying the error and the component tag
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.entry().WithError(err)
}

// Pipeline-specific logging methods

// LogTrade logs one simulated trade
func (l *Logger) LogTrade(ticker string, tier string, returnPct float64, holdDays int, win bool) {
	l.WithFields(logrus.Fields{
		"event":      "simulated_trade",
		"ticker":     ticker,
		"tier":       tier,
		"return_pct": returnPct,
		"hold_days":  holdDays,
		"win":        win,
	}).Info("Trade simulated")
}

// LogBacktest logs the aggregate result of one backtest run
func (l *Logger) LogBacktest(dataset string, totalTrades int, winRate float64, avgReturn float64, sharpe float64) {
	l.WithFields(logrus.Fields{
		"event":        "backtest_complete",
		"dataset":      dataset,
		"total_trades": totalTrades,
		"win_rate":     winRate,
		"avg_return":   avgReturn,
		"sharpe_ratio": sharpe,
	}).Info("Backtest completed")
}

// LogPeriod logs one cross-period comparison row
func (l *Logger) LogPeriod(dataset string, period string, avgReturn float64, benchmarkReturn float64, outperformance float64) {
	l.WithFields(logrus.Fields{
		"event":            "period_result",
		"dataset":          dataset,
		"period":           period,
		"avg_return":       avgReturn,
		"benchmark_return": benchmarkReturn,
		"outperformance":   outperformance,
	}).Info("Period validated")
}

// LogThreshold logs one threshold optimization trial
func (l *Logger) LogThreshold(threshold float64, opportunityCount int, objective string, value float64) {
	l.WithFields(logrus.Fields{
		"event":             "threshold_trial",
		"threshold":         threshold,
		"opportunity_count": opportunityCount,
		"objective":         objective,
		"objective_value":   value,
	}).Info("Threshold evaluated")
}

// LogBias logs a bias diagnostics classification. HIGH risk is surfaced as a
// warning but never stops downstream work.
func (l *Logger) LogBias(riskLevel string, flags []string) {
	entry := l.WithFields(logrus.Fields{
		"event":          "bias_diagnostics",
		"risk_level":     riskLevel,
		"evidence_flags": flags,
	})
	if riskLevel == "HIGH" {
		entry.Warn("Look-ahead bias risk classified HIGH")
	} else {
		entry.Info("Look-ahead bias risk classified")
	}
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error, context map[string]interface{}) {
	fields := logrus.Fields{
		"event":     "error",
		"operation": operation,
		"error":     err.Error(),
	}
	for k, v := range context {
		fields[k] = v
	}
	l.WithFields(fields).Error("Operation failed")
}

// Global convenience functions

// Debugf logs a formatted debug message using the global logger
func Debugf(format string, args ...interface{}) {
	GetGlobalLogger().Debugf(format, args...)
}

// Infof logs a formatted info message using the global logger
func Infof(format string, args ...interface{}) {
	GetGlobalLogger().Infof(format, args...)
}

// Warnf logs a formatted warning message using the global logger
func Warnf(format string, args ...interface{}) {
	GetGlobalLogger().Warnf(format, args...)
}

// Errorf logs a formatted error message using the global logger
func Errorf(format string, args ...interface{}) {
	GetGlobalLogger().Errorf(format, args...)
}
