package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"rankback/internal/config"
)

func newCapturedLogger(t *testing.T, component string) (*Logger, *bytes.Buffer) {
	t.Helper()

	base := NewLogger(config.LoggingConfig{
		Level:  "debug",
		Format: "json",
		Output: "stdout",
	})

	var buf bytes.Buffer
	base.SetOutput(&buf)

	return &Logger{Logger: base.Logger, component: component}, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("no log output captured")
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, line)
	}
	return fields
}

func TestComponentLoggerEmitsComponentField(t *testing.T) {
	logger, buf := newCapturedLogger(t, "simulator")

	logger.Infof("processed %d items", 7)

	fields := decodeLine(t, buf)
	if fields["component"] != "simulator" {
		t.Errorf("component = %v, expected simulator", fields["component"])
	}
	if fields["msg"] != "processed 7 items" {
		t.Errorf("msg = %v", fields["msg"])
	}
}

func TestWithFieldsReachOutput(t *testing.T) {
	logger, buf := newCapturedLogger(t, "backtest")

	logger.WithFields(map[string]interface{}{
		"dataset": "main",
		"trades":  42,
	}).Info("Backtest completed")

	fields := decodeLine(t, buf)
	if fields["dataset"] != "main" {
		t.Errorf("dataset field lost: %v", fields)
	}
	if fields["trades"] != float64(42) {
		t.Errorf("trades field lost: %v", fields)
	}
	if fields["component"] != "backtest" {
		t.Errorf("component field lost: %v", fields)
	}
}

func TestLogTradeCarriesStructuredFields(t *testing.T) {
	logger, buf := newCapturedLogger(t, "simulator")

	logger.LogTrade("AAPL", "Epic", 12.5, 60, true)

	fields := decodeLine(t, buf)
	if fields["ticker"] != "AAPL" {
		t.Errorf("ticker field lost: %v", fields)
	}
	if fields["tier"] != "Epic" {
		t.Errorf("tier field lost: %v", fields)
	}
	if fields["win"] != true {
		t.Errorf("win field lost: %v", fields)
	}
	if fields["event"] != "simulated_trade" {
		t.Errorf("event field lost: %v", fields)
	}
}

func TestLoggerWithoutComponent(t *testing.T) {
	logger, buf := newCapturedLogger(t, "")

	logger.Warnf("heads up")

	fields := decodeLine(t, buf)
	if _, ok := fields["component"]; ok {
		t.Errorf("component field must be absent without a component: %v", fields)
	}
	if fields["msg"] != "heads up" {
		t.Errorf("msg = %v", fields["msg"])
	}
}
