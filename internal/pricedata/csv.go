package pricedata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rankback/internal/logging"
	"rankback/internal/types"
)

// CSVSource reads daily OHLCV history from per-ticker CSV files in a
// directory. Expected columns: date, open, high, low, close, volume.
type CSVSource struct {
	dir    string
	logger *logging.Logger
}

// NewCSVSource creates a CSV-backed market data source
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{
		dir:    dir,
		logger: logging.NewComponentLogger("csvsource"),
	}
}

var csvRequiredColumns = []string{"date", "open", "high", "low", "close", "volume"}

var csvDateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	"2006/01/02",
}

// Query reads the ticker's file and returns bars within [start, end]
func (s *CSVSource) Query(ctx context.Context, ticker string, start, end time.Time) ([]types.PriceBar, error) {
	file, path, err := s.open(ticker)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header of %s: %w", path, err)
	}
	columns, err := mapColumns(header, csvRequiredColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var bars []types.PriceBar
	lineNumber := 1

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record at line %d: %w", lineNumber, err)
		}
		lineNumber++

		bar, err := s.parseRecord(record, columns, ticker)
		if err != nil {
			s.logger.Warnf("Skipping %s line %d: %v", path, lineNumber, err)
			continue
		}

		if !bar.Date.Before(start) && !bar.Date.After(end) {
			bars = append(bars, bar)
		}
	}

	return bars, nil
}

// open tries the common filename variants for a ticker
func (s *CSVSource) open(ticker string) (*os.File, string, error) {
	candidates := []string{
		filepath.Join(s.dir, ticker+".csv"),
		filepath.Join(s.dir, strings.ToUpper(ticker)+".csv"),
		filepath.Join(s.dir, strings.ToLower(ticker)+".csv"),
	}

	for _, path := range candidates {
		file, err := os.Open(path)
		if err == nil {
			return file, path, nil
		}
	}
	return nil, "", fmt.Errorf("no CSV file found for ticker %s (tried: %v)", ticker, candidates)
}

// mapColumns resolves required column names to their indexes,
// case-insensitively
func mapColumns(header []string, required []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range required {
		if _, ok := columns[req]; !ok {
			return nil, fmt.Errorf("invalid CSV header, missing column %q (required: %v)", req, required)
		}
	}
	return columns, nil
}

// parseRecord parses a single CSV record into a price bar
func (s *CSVSource) parseRecord(record []string, columns map[string]int, ticker string) (types.PriceBar, error) {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var date time.Time
	var err error
	dateStr := field("date")
	for _, format := range csvDateFormats {
		date, err = time.Parse(format, dateStr)
		if err == nil {
			break
		}
	}
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid date: %s", dateStr)
	}

	values := make(map[string]float64, 5)
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil {
			return types.PriceBar{}, fmt.Errorf("invalid %s: %s", name, field(name))
		}
		values[name] = v
	}

	open, high, low, close := values["open"], values["high"], values["low"], values["close"]
	if high < low || high < open || high < close || low > open || low > close {
		return types.PriceBar{}, fmt.Errorf("invalid OHLC relationships: O=%.2f H=%.2f L=%.2f C=%.2f", open, high, low, close)
	}

	return types.NewPriceBar(ticker, date, open, high, low, close, values["volume"]), nil
}
