package pipeline

import (
	"fmt"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/reporting"
)

// Data quality thresholds.
const (
	MinTradingDays = 2
	// MinUniverseFill is the minimum average constituent count as a share
	// of the configured universe size.
	MinUniverseFill = 0.5
	// MaxCalendarGapDays is the longest accepted gap between consecutive
	// trading dates. Four covers a weekend next to a holiday.
	MaxCalendarGapDays = 4
)

// QualityCheck represents one data quality criterion.
type QualityCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// QualityResult contains all checks.
type QualityResult struct {
	Checks  []QualityCheck
	AllPass bool
	Errors  []string // per-day integrity findings
}

// CheckQuality evaluates the panel and the daily records produced from it.
// snapshots and daily must be aligned (one record per snapshot).
func CheckQuality(snapshots []*domain.Snapshot, daily []domain.DailyRecord, universeSize int) *QualityResult {
	result := &QualityResult{
		Checks:  make([]QualityCheck, 0, 5),
		AllPass: true,
		Errors:  []string{},
	}

	add := func(c QualityCheck, errs []string) {
		result.Checks = append(result.Checks, c)
		if !c.Pass {
			result.AllPass = false
		}
		result.Errors = append(result.Errors, errs...)
	}

	add(checkTradingDays(daily), nil)
	add(checkUniverseFill(daily, universeSize), nil)
	add(checkDegenerateDays(daily))
	add(checkMissingCloses(snapshots))
	add(checkCalendarGaps(snapshots))

	return result
}

// checkTradingDays: at least two days so one return exists.
func checkTradingDays(daily []domain.DailyRecord) QualityCheck {
	return QualityCheck{
		Name:      "Trading days",
		Threshold: fmt.Sprintf(">= %d", MinTradingDays),
		Actual:    fmt.Sprintf("%d", len(daily)),
		Pass:      len(daily) >= MinTradingDays,
	}
}

// checkUniverseFill: average constituents relative to the universe size.
func checkUniverseFill(daily []domain.DailyRecord, universeSize int) QualityCheck {
	avg := 0.0
	if len(daily) > 0 {
		total := 0
		for _, d := range daily {
			total += d.ConstituentCount
		}
		avg = float64(total) / float64(len(daily))
	}
	want := MinUniverseFill * float64(universeSize)
	return QualityCheck{
		Name:      "Average constituents",
		Threshold: fmt.Sprintf(">= %.1f", want),
		Actual:    fmt.Sprintf("%.1f", avg),
		Pass:      len(daily) > 0 && avg >= want,
	}
}

// checkDegenerateDays: days after inception where no shared ticker had
// usable prices on both sides, so the return fell back to zero.
func checkDegenerateDays(daily []domain.DailyRecord) (QualityCheck, []string) {
	var errs []string
	for i, d := range daily {
		if i == 0 || d.ReturnSampleSize > 0 {
			continue
		}
		errs = append(errs, fmt.Sprintf("%s: no usable shared prices, return set to 0", d.Date.Format(domain.DateLayout)))
	}
	return QualityCheck{
		Name:      "Days without usable returns",
		Threshold: "== 0",
		Actual:    fmt.Sprintf("%d", len(errs)),
		Pass:      len(errs) == 0,
	}, errs
}

// checkMissingCloses: constituents listed without a usable close.
func checkMissingCloses(snapshots []*domain.Snapshot) (QualityCheck, []string) {
	var errs []string
	missing := 0
	for _, s := range snapshots {
		var tickers []string
		for _, t := range s.Tickers.Sorted() {
			if p, ok := s.Price(t); !ok || p == 0 {
				tickers = append(tickers, t)
			}
		}
		if len(tickers) > 0 {
			missing += len(tickers)
			errs = append(errs, fmt.Sprintf("%s: no usable close for %s", s.DateKey(), domain.JoinTickers(tickers)))
		}
	}
	return QualityCheck{
		Name:      "Constituent closes missing or zero",
		Threshold: "== 0",
		Actual:    fmt.Sprintf("%d", missing),
		Pass:      missing == 0,
	}, errs
}

// checkCalendarGaps: consecutive trading dates more than MaxCalendarGapDays apart.
func checkCalendarGaps(snapshots []*domain.Snapshot) (QualityCheck, []string) {
	var errs []string
	for i := 1; i < len(snapshots); i++ {
		gap := int(snapshots[i].Date.Sub(snapshots[i-1].Date).Hours() / 24)
		if gap > MaxCalendarGapDays {
			errs = append(errs, fmt.Sprintf("%s: %d calendar days since %s", snapshots[i].DateKey(), gap, snapshots[i-1].DateKey()))
		}
	}
	return QualityCheck{
		Name:      "Calendar gaps",
		Threshold: fmt.Sprintf("<= %d days", MaxCalendarGapDays),
		Actual:    fmt.Sprintf("%d gaps", len(errs)),
		Pass:      len(errs) == 0,
	}, errs
}

// convertToDataQuality converts QualityResult to reporting.DataQualitySection.
func convertToDataQuality(result *QualityResult) reporting.DataQualitySection {
	checks := make([]reporting.SufficiencyCheckRow, len(result.Checks))
	for i, c := range result.Checks {
		checks[i] = reporting.SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return reporting.DataQualitySection{
		SufficiencyChecks: checks,
		IntegrityErrors:   result.Errors,
		AllChecksPassed:   result.AllPass,
	}
}

// DataQuality runs CheckQuality and converts the result for reports.
func DataQuality(snapshots []*domain.Snapshot, daily []domain.DailyRecord, universeSize int) reporting.DataQualitySection {
	return convertToDataQuality(CheckQuality(snapshots, daily, universeSize))
}
