// Package diagnostics audits an opportunity source for look-ahead bias and
// a cross-period run for performance degradation. Both checks are advisory:
// a HIGH classification is surfaced loudly but never blocks downstream
// threshold optimization or reporting.
package diagnostics

import (
	"fmt"
	"sort"
	"time"

	"rankback/internal/types"
)

// DiagnoseLookaheadBias classifies the bias risk of an opportunity source
// against the as-of contract: every record should carry an explicit
// timestamp, and each timestamp must predate the simulated entry date.
//
//	HIGH   — no record carries an as-of timestamp
//	MEDIUM — timestamps exist but some are missing or violate the contract
//	LOW    — every record carries a valid as-of timestamp
func DiagnoseLookaheadBias(opportunities []types.Opportunity, referenceDate time.Time) types.BiasReport {
	report := types.BiasReport{
		RecordCount: len(opportunities),
	}

	for _, opp := range opportunities {
		if opp.AsOf == nil {
			report.MissingAsOf++
			continue
		}
		if !opp.AsOf.Before(referenceDate) {
			report.Violations++
		}
	}

	switch {
	case len(opportunities) == 0:
		report.RiskLevel = types.RiskHigh
		report.EvidenceFlags = append(report.EvidenceFlags, "empty opportunity source")
	case report.MissingAsOf == len(opportunities):
		report.RiskLevel = types.RiskHigh
		report.EvidenceFlags = append(report.EvidenceFlags,
			"no record carries an as-of timestamp; entries cannot be proven point-in-time")
	case report.MissingAsOf > 0 || report.Violations > 0:
		report.RiskLevel = types.RiskMedium
		if report.MissingAsOf > 0 {
			report.EvidenceFlags = append(report.EvidenceFlags,
				fmt.Sprintf("%d of %d records missing as-of timestamp", report.MissingAsOf, len(opportunities)))
		}
		if report.Violations > 0 {
			report.EvidenceFlags = append(report.EvidenceFlags,
				fmt.Sprintf("%d records stamped at or after the %s entry date",
					report.Violations, referenceDate.Format("2006-01-02")))
		}
	default:
		report.RiskLevel = types.RiskLow
		report.EvidenceFlags = append(report.EvidenceFlags,
			"all records carry as-of timestamps predating the entry date")
	}

	return report
}

// AnalyzeCohortDegradation computes the win-rate delta between the shortest
// and longest lookback windows of a cross-period run. severeDelta and
// moderateDelta are empirical points thresholds, not significance tests.
func AnalyzeCohortDegradation(periods []types.PeriodResult, severeDelta, moderateDelta float64) types.DegradationReport {
	if len(periods) < 2 {
		return types.DegradationReport{Severity: types.DegradationNone}
	}

	ordered := make([]types.PeriodResult, len(periods))
	copy(ordered, periods)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LookbackDays < ordered[j].LookbackDays
	})

	shortest := ordered[0]
	longest := ordered[len(ordered)-1]
	delta := shortest.Backtest.WinRate - longest.Backtest.WinRate

	report := types.DegradationReport{
		ShortestPeriod:  shortest.PeriodLabel,
		LongestPeriod:   longest.PeriodLabel,
		ShortestWinRate: shortest.Backtest.WinRate,
		LongestWinRate:  longest.Backtest.WinRate,
		WinRateDelta:    delta,
	}

	switch {
	case delta >= severeDelta:
		report.Severity = types.DegradationSevere
	case delta >= moderateDelta:
		report.Severity = types.DegradationModerate
	default:
		report.Severity = types.DegradationNone
	}

	return report
}
