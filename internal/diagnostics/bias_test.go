package diagnostics

import (
	"testing"
	"time"

	"rankback/internal/types"
)

func stamped(ticker string, asOf time.Time) types.Opportunity {
	return types.Opportunity{Ticker: ticker, Score: 70, Tier: types.TierGood, AsOf: &asOf}
}

func TestDiagnoseLookaheadBiasHighWhenNoTimestamps(t *testing.T) {
	reference := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	opps := []types.Opportunity{
		{Ticker: "AAA", Score: 70, Tier: types.TierGood},
		{Ticker: "BBB", Score: 60, Tier: types.TierGood},
	}

	report := DiagnoseLookaheadBias(opps, reference)
	if report.RiskLevel != types.RiskHigh {
		t.Errorf("risk = %s, expected HIGH with no as-of timestamps", report.RiskLevel)
	}
	if report.MissingAsOf != 2 {
		t.Errorf("missing count = %d, expected 2", report.MissingAsOf)
	}
	if len(report.EvidenceFlags) == 0 {
		t.Error("HIGH classification must carry evidence")
	}
}

func TestDiagnoseLookaheadBiasHighWhenEmpty(t *testing.T) {
	reference := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	report := DiagnoseLookaheadBias(nil, reference)
	if report.RiskLevel != types.RiskHigh {
		t.Errorf("risk = %s, expected HIGH for an empty source", report.RiskLevel)
	}
}

func TestDiagnoseLookaheadBiasMediumOnPartialCoverage(t *testing.T) {
	reference := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	opps := []types.Opportunity{
		stamped("AAA", reference.AddDate(0, 0, -10)),
		{Ticker: "BBB", Score: 60, Tier: types.TierGood},
	}

	report := DiagnoseLookaheadBias(opps, reference)
	if report.RiskLevel != types.RiskMedium {
		t.Errorf("risk = %s, expected MEDIUM with partial coverage", report.RiskLevel)
	}
}

func TestDiagnoseLookaheadBiasMediumOnViolation(t *testing.T) {
	reference := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	opps := []types.Opportunity{
		stamped("AAA", reference.AddDate(0, 0, -10)),
		stamped("BBB", reference), // at the entry date, not before it
	}

	report := DiagnoseLookaheadBias(opps, reference)
	if report.RiskLevel != types.RiskMedium {
		t.Errorf("risk = %s, expected MEDIUM with a contract violation", report.RiskLevel)
	}
	if report.Violations != 1 {
		t.Errorf("violations = %d, expected 1", report.Violations)
	}
}

func TestDiagnoseLookaheadBiasLow(t *testing.T) {
	reference := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	opps := []types.Opportunity{
		stamped("AAA", reference.AddDate(0, 0, -10)),
		stamped("BBB", reference.AddDate(0, 0, -1)),
	}

	report := DiagnoseLookaheadBias(opps, reference)
	if report.RiskLevel != types.RiskLow {
		t.Errorf("risk = %s, expected LOW with full valid coverage", report.RiskLevel)
	}
	if report.MissingAsOf != 0 || report.Violations != 0 {
		t.Errorf("unexpected counts: missing=%d violations=%d", report.MissingAsOf, report.Violations)
	}
}

func period(label string, days int, winRate float64) types.PeriodResult {
	return types.PeriodResult{
		PeriodLabel:  label,
		LookbackDays: days,
		Backtest:     types.BacktestResult{TotalTrades: 50, WinRate: winRate},
	}
}

func TestAnalyzeCohortDegradationSevere(t *testing.T) {
	periods := []types.PeriodResult{
		period("365d", 365, 18),
		period("90d", 90, 70),
		period("180d", 180, 55),
	}

	report := AnalyzeCohortDegradation(periods, 50, 25)
	if report.Severity != types.DegradationSevere {
		t.Errorf("severity = %s, expected SEVERE", report.Severity)
	}
	if report.ShortestPeriod != "90d" || report.LongestPeriod != "365d" {
		t.Errorf("period ordering wrong: %s vs %s", report.ShortestPeriod, report.LongestPeriod)
	}
	if report.WinRateDelta != 52 {
		t.Errorf("delta = %v, expected 52", report.WinRateDelta)
	}
}

func TestAnalyzeCohortDegradationModerate(t *testing.T) {
	periods := []types.PeriodResult{
		period("90d", 90, 60),
		period("365d", 365, 30),
	}

	report := AnalyzeCohortDegradation(periods, 50, 25)
	if report.Severity != types.DegradationModerate {
		t.Errorf("severity = %s, expected MODERATE", report.Severity)
	}
}

func TestAnalyzeCohortDegradationNone(t *testing.T) {
	periods := []types.PeriodResult{
		period("90d", 90, 60),
		period("365d", 365, 55),
	}

	report := AnalyzeCohortDegradation(periods, 50, 25)
	if report.Severity != types.DegradationNone {
		t.Errorf("severity = %s, expected NONE", report.Severity)
	}

	// Improvement over time is not degradation
	improving := []types.PeriodResult{
		period("90d", 90, 30),
		period("365d", 365, 80),
	}
	if got := AnalyzeCohortDegradation(improving, 50, 25); got.Severity != types.DegradationNone {
		t.Errorf("improving cohort classified %s", got.Severity)
	}
}

func TestAnalyzeCohortDegradationNeedsTwoPeriods(t *testing.T) {
	report := AnalyzeCohortDegradation([]types.PeriodResult{period("90d", 90, 60)}, 50, 25)
	if report.Severity != types.DegradationNone {
		t.Errorf("single period must classify NONE, got %s", report.Severity)
	}
}
