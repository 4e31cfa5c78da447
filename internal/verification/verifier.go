// Package verification re-checks emitted index runs. It validates the
// internal consistency of a daily record sequence and compares stored
// runs against a fresh recomputation from the same snapshots.
package verification

import (
	"fmt"
	"math"

	"equal-weight-index/internal/domain"
)

// FloatTolerance is the tolerance for comparing stored and recomputed
// values, which are produced by the same rounding and must agree.
const FloatTolerance = 1e-7

// RecurrenceTolerance bounds the relative error of the cumulative
// multiplier recurrence when it is reconstructed from 4-dp percentages.
// Each of the three rounded inputs contributes up to 5e-7.
const RecurrenceTolerance = 2e-6

// FieldDivergence represents a mismatch between expected and actual values.
type FieldDivergence struct {
	Date     string      // YYYY-MM-DD, "" for run-level fields
	Field    string      // field name
	Expected interface{} // expected value
	Actual   interface{} // observed value
}

// String formats the divergence for reports.
func (d FieldDivergence) String() string {
	if d.Date == "" {
		return fmt.Sprintf("%s: expected %v, got %v", d.Field, d.Expected, d.Actual)
	}
	return fmt.Sprintf("%s %s: expected %v, got %v", d.Date, d.Field, d.Expected, d.Actual)
}

// VerificationReport contains the result of verifying one run.
type VerificationReport struct {
	TotalDays   int               // daily records examined
	Divergences []FieldDivergence // every failed check
}

// Match reports whether every check passed.
func (r *VerificationReport) Match() bool {
	return len(r.Divergences) == 0
}

// Issues renders the divergences as report lines.
func (r *VerificationReport) Issues() []string {
	out := make([]string, len(r.Divergences))
	for i, d := range r.Divergences {
		out[i] = d.String()
	}
	return out
}

func (r *VerificationReport) add(date, field string, expected, actual interface{}) {
	r.Divergences = append(r.Divergences, FieldDivergence{
		Date:     date,
		Field:    field,
		Expected: expected,
		Actual:   actual,
	})
}

// VerifyRun checks the emitted sequence on its own:
// the inception seed, rebalance bookkeeping, the cumulative multiplier
// recurrence and the summary trailer.
func VerifyRun(daily []domain.DailyRecord, summary domain.SummaryRecord) *VerificationReport {
	report := &VerificationReport{TotalDays: len(daily)}
	if len(daily) == 0 {
		report.add("", "DailyRecords", "at least one day", 0)
		return report
	}

	verifySeed(report, daily[0])

	rebalanceDays := 0
	var prev *domain.DailyRecord
	for i := range daily {
		d := &daily[i]
		key := d.Date.Format(domain.DateLayout)

		if prev != nil && !d.Date.After(prev.Date) {
			report.add(key, "Date", "after "+prev.Date.Format(domain.DateLayout), key)
		}

		members := domain.SplitTickers(d.Constituents)
		if d.ConstituentCount != len(members) {
			report.add(key, "ConstituentCount", len(members), d.ConstituentCount)
		}

		if d.IsRebalanceDay {
			rebalanceDays++
			verifyRebalance(report, key, d)
		} else if d.TickersAdded != "" || d.TickersRemoved != "" || d.CompositionChangeCount != 0 || d.RebalanceDate != "" {
			report.add(key, "CompositionChange", "none on a non-rebalance day",
				fmt.Sprintf("added=%q removed=%q count=%d", d.TickersAdded, d.TickersRemoved, d.CompositionChangeCount))
		}

		if prev != nil {
			verifyComposition(report, key, prev, d)
			verifyRecurrence(report, key, prev, d)
		}
		prev = d
	}

	verifySummary(report, daily, summary, rebalanceDays)
	return report
}

// verifySeed checks the inception convention: all tickers added, zero return.
func verifySeed(report *VerificationReport, first domain.DailyRecord) {
	key := first.Date.Format(domain.DateLayout)
	if first.ConstituentCount > 0 && !first.IsRebalanceDay {
		report.add(key, "IsRebalanceDay", true, false)
	}
	if first.TickersAdded != first.Constituents {
		report.add(key, "TickersAdded", first.Constituents, first.TickersAdded)
	}
	if first.TickersRemoved != "" {
		report.add(key, "TickersRemoved", "", first.TickersRemoved)
	}
	if first.DailyReturnPercent != 0 {
		report.add(key, "DailyReturnPercent", 0.0, first.DailyReturnPercent)
	}
	if first.CumulativeReturnPercent != 0 {
		report.add(key, "CumulativeReturnPercent", 0.0, first.CumulativeReturnPercent)
	}
}

func verifyRebalance(report *VerificationReport, key string, d *domain.DailyRecord) {
	want := len(domain.SplitTickers(d.TickersAdded)) + len(domain.SplitTickers(d.TickersRemoved))
	if d.CompositionChangeCount != want {
		report.add(key, "CompositionChangeCount", want, d.CompositionChangeCount)
	}
	if d.RebalanceDate != key {
		report.add(key, "RebalanceDate", key, d.RebalanceDate)
	}
}

// verifyComposition recomputes added/removed from consecutive constituent lists.
func verifyComposition(report *VerificationReport, key string, prev, d *domain.DailyRecord) {
	yesterday := domain.NewTickerSet(domain.SplitTickers(prev.Constituents)...)
	today := domain.NewTickerSet(domain.SplitTickers(d.Constituents)...)

	changed := !today.Equal(yesterday)
	if changed != d.IsRebalanceDay {
		report.add(key, "IsRebalanceDay", changed, d.IsRebalanceDay)
		return
	}
	if !changed {
		return
	}
	if added := domain.JoinTickers(today.Minus(yesterday)); added != d.TickersAdded {
		report.add(key, "TickersAdded", added, d.TickersAdded)
	}
	if removed := domain.JoinTickers(yesterday.Minus(today)); removed != d.TickersRemoved {
		report.add(key, "TickersRemoved", removed, d.TickersRemoved)
	}
}

// verifyRecurrence checks cumulative(d) == cumulative(d-1) * (1 + daily(d)).
func verifyRecurrence(report *VerificationReport, key string, prev, d *domain.DailyRecord) {
	prevMult := 1 + prev.CumulativeReturnPercent/100
	mult := 1 + d.CumulativeReturnPercent/100
	want := prevMult * (1 + d.DailyReturnPercent/100)

	if math.Abs(mult-want) > RecurrenceTolerance*math.Max(1, math.Abs(want)) {
		report.add(key, "CumulativeReturnPercent", (want-1)*100, d.CumulativeReturnPercent)
	}
}

func verifySummary(report *VerificationReport, daily []domain.DailyRecord, summary domain.SummaryRecord, rebalanceDays int) {
	last := daily[len(daily)-1]
	if summary.AggregateReturnPercent != last.CumulativeReturnPercent {
		report.add("", "AggregateReturnPercent", last.CumulativeReturnPercent, summary.AggregateReturnPercent)
	}
	if summary.TotalCompositionChanges != rebalanceDays {
		report.add("", "TotalCompositionChanges", rebalanceDays, summary.TotalCompositionChanges)
	}

	best, worst := daily[0].DailyReturnPercent, daily[0].DailyReturnPercent
	for _, d := range daily[1:] {
		best = math.Max(best, d.DailyReturnPercent)
		worst = math.Min(worst, d.DailyReturnPercent)
	}
	if summary.BestReturnPercent != best {
		report.add("", "BestReturnPercent", best, summary.BestReturnPercent)
	}
	if summary.WorstReturnPercent != worst {
		report.add("", "WorstReturnPercent", worst, summary.WorstReturnPercent)
	}
	checkExtremumDate(report, daily, "BestPerformingDate", summary.BestPerformingDate.Format(domain.DateLayout), summary.BestReturnPercent)
	checkExtremumDate(report, daily, "WorstPerformingDate", summary.WorstPerformingDate.Format(domain.DateLayout), summary.WorstReturnPercent)
}

// checkExtremumDate requires the named date to exist and carry the extremum.
func checkExtremumDate(report *VerificationReport, daily []domain.DailyRecord, field, date string, value float64) {
	for _, d := range daily {
		if d.Date.Format(domain.DateLayout) == date {
			if d.DailyReturnPercent != value {
				report.add(date, field, value, d.DailyReturnPercent)
			}
			return
		}
	}
	report.add("", field, "a date in the run", date)
}

// CompareDailyRecords compares stored and recomputed records field by field.
// Uses FloatTolerance for float64 comparisons.
func CompareDailyRecords(stored, recomputed domain.DailyRecord) []FieldDivergence {
	r := &VerificationReport{}
	key := stored.Date.Format(domain.DateLayout)

	if other := recomputed.Date.Format(domain.DateLayout); key != other {
		r.add(key, "Date", other, key)
	}
	if !floatEquals(stored.IndexLevel, recomputed.IndexLevel) {
		r.add(key, "IndexLevel", recomputed.IndexLevel, stored.IndexLevel)
	}
	if !floatEquals(stored.DailyReturnPercent, recomputed.DailyReturnPercent) {
		r.add(key, "DailyReturnPercent", recomputed.DailyReturnPercent, stored.DailyReturnPercent)
	}
	if !floatEquals(stored.CumulativeReturnPercent, recomputed.CumulativeReturnPercent) {
		r.add(key, "CumulativeReturnPercent", recomputed.CumulativeReturnPercent, stored.CumulativeReturnPercent)
	}
	if stored.Constituents != recomputed.Constituents {
		r.add(key, "Constituents", recomputed.Constituents, stored.Constituents)
	}
	if stored.ConstituentCount != recomputed.ConstituentCount {
		r.add(key, "ConstituentCount", recomputed.ConstituentCount, stored.ConstituentCount)
	}
	if stored.IsRebalanceDay != recomputed.IsRebalanceDay {
		r.add(key, "IsRebalanceDay", recomputed.IsRebalanceDay, stored.IsRebalanceDay)
	}
	if stored.RebalanceDate != recomputed.RebalanceDate {
		r.add(key, "RebalanceDate", recomputed.RebalanceDate, stored.RebalanceDate)
	}
	if stored.TickersAdded != recomputed.TickersAdded {
		r.add(key, "TickersAdded", recomputed.TickersAdded, stored.TickersAdded)
	}
	if stored.TickersRemoved != recomputed.TickersRemoved {
		r.add(key, "TickersRemoved", recomputed.TickersRemoved, stored.TickersRemoved)
	}
	if stored.CompositionChangeCount != recomputed.CompositionChangeCount {
		r.add(key, "CompositionChangeCount", recomputed.CompositionChangeCount, stored.CompositionChangeCount)
	}
	if stored.ReturnSampleSize != recomputed.ReturnSampleSize {
		r.add(key, "ReturnSampleSize", recomputed.ReturnSampleSize, stored.ReturnSampleSize)
	}
	return r.Divergences
}

// CompareSummaries compares stored and recomputed summary rows.
func CompareSummaries(stored, recomputed domain.SummaryRecord) []FieldDivergence {
	r := &VerificationReport{}

	if !floatEquals(stored.AggregateReturnPercent, recomputed.AggregateReturnPercent) {
		r.add("", "AggregateReturnPercent", recomputed.AggregateReturnPercent, stored.AggregateReturnPercent)
	}
	if a, b := stored.BestPerformingDate.Format(domain.DateLayout), recomputed.BestPerformingDate.Format(domain.DateLayout); a != b {
		r.add("", "BestPerformingDate", b, a)
	}
	if !floatEquals(stored.BestReturnPercent, recomputed.BestReturnPercent) {
		r.add("", "BestReturnPercent", recomputed.BestReturnPercent, stored.BestReturnPercent)
	}
	if a, b := stored.WorstPerformingDate.Format(domain.DateLayout), recomputed.WorstPerformingDate.Format(domain.DateLayout); a != b {
		r.add("", "WorstPerformingDate", b, a)
	}
	if !floatEquals(stored.WorstReturnPercent, recomputed.WorstReturnPercent) {
		r.add("", "WorstReturnPercent", recomputed.WorstReturnPercent, stored.WorstReturnPercent)
	}
	if stored.TotalCompositionChanges != recomputed.TotalCompositionChanges {
		r.add("", "TotalCompositionChanges", recomputed.TotalCompositionChanges, stored.TotalCompositionChanges)
	}
	return r.Divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
