// Package opportunities ingests opportunity tables produced by the upstream
// scoring subsystem. Legacy free-text tier labels are parsed into the closed
// Tier enum here, at the boundary, so the core engine never sees them.
package opportunities

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"rankback/internal/logging"
	"rankback/internal/types"
)

var requiredColumns = []string{"ticker", "score", "tier"}

var asOfFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// LoadFile reads one opportunity table from a CSV file. A missing file is
// returned as an error so the caller can skip that dataset and continue
// with the others.
func LoadFile(path string) ([]types.Opportunity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open opportunity table: %w", err)
	}
	defer file.Close()

	return Load(file, path)
}

// Load reads an opportunity table from a reader. name is used in error
// messages only.
func Load(r io.Reader, name string) ([]types.Opportunity, error) {
	logger := logging.NewComponentLogger("opportunities")

	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range requiredColumns {
		if _, ok := columns[req]; !ok {
			return nil, fmt.Errorf("%s: missing column %q (required: %v)", name, req, requiredColumns)
		}
	}

	var opportunities []types.Opportunity
	lineNumber := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s at line %d: %w", name, lineNumber, err)
		}
		lineNumber++

		opp, err := parseRecord(record, columns)
		if err != nil {
			logger.Warnf("Skipping %s line %d: %v", name, lineNumber, err)
			continue
		}
		opportunities = append(opportunities, opp)
	}

	logger.Infof("Loaded %d opportunities from %s", len(opportunities), name)
	return opportunities, nil
}

// parseRecord parses one CSV record into an opportunity
func parseRecord(record []string, columns map[string]int) (types.Opportunity, error) {
	field := func(name string) (string, bool) {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[idx]), true
	}

	ticker, _ := field("ticker")
	if ticker == "" {
		return types.Opportunity{}, fmt.Errorf("empty ticker")
	}

	scoreStr, _ := field("score")
	score, err := strconv.ParseFloat(scoreStr, 64)
	if err != nil {
		return types.Opportunity{}, fmt.Errorf("invalid score: %s", scoreStr)
	}

	tierLabel, _ := field("tier")
	opp := types.Opportunity{
		Ticker: strings.ToUpper(ticker),
		Score:  score,
		Tier:   types.ParseTier(tierLabel),
	}

	if raw, ok := field("timing_convergence"); ok {
		opp.TimingConvergence = parseBool(raw)
	}
	if sector, ok := field("sector"); ok {
		opp.Sector = sector
	}
	if raw, ok := field("as_of"); ok && raw != "" {
		for _, format := range asOfFormats {
			if asOf, err := time.Parse(format, raw); err == nil {
				opp.AsOf = &asOf
				break
			}
		}
		if opp.AsOf == nil {
			return types.Opportunity{}, fmt.Errorf("invalid as_of timestamp: %s", raw)
		}
	}

	return opp, nil
}

// parseBool accepts the truthy spellings seen in upstream exports
func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}
