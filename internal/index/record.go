package index

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"equal-weight-index/internal/domain"
)

// RoundPlaces is the number of decimals kept in emitted records.
const RoundPlaces = 4

// round4 rounds for display only. Results never feed back into the fold.
// The exact binary value is rounded, ties to even, so 0.03125 becomes
// 0.0312 and 2.50005 (stored just below the tie) becomes 2.5.
func round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.RequireFromString(strconv.FormatFloat(v, 'f', RoundPlaces, 64)).InexactFloat64()
}

// buildDailyRecord assembles the emitted row for one processed day.
func buildDailyRecord(s *domain.Snapshot, rb Rebalance, acc Accumulator, basis float64, sampleSize int) domain.DailyRecord {
	rec := domain.DailyRecord{
		Date:                    s.Date,
		IndexLevel:              round4(acc.Level),
		DailyReturnPercent:      round4(basis * 100),
		CumulativeReturnPercent: round4((acc.Multiplier - 1) * 100),
		Constituents:            domain.JoinTickers(s.Tickers.Sorted()),
		ConstituentCount:        len(s.Tickers),
		IsRebalanceDay:          rb.IsRebalance,
		ReturnSampleSize:        sampleSize,
	}
	if rb.IsRebalance {
		rec.RebalanceDate = s.DateKey()
		rec.TickersAdded = domain.JoinTickers(rb.Added)
		rec.TickersRemoved = domain.JoinTickers(rb.Removed)
		rec.CompositionChangeCount = rb.ChangeCount
	}
	return rec
}

// buildSummary assembles the trailer row from the last record and the
// final extremum tracker.
func buildSummary(last domain.DailyRecord, ext ExtremumTracker, rebalanceDays int) domain.SummaryRecord {
	return domain.SummaryRecord{
		AggregateReturnPercent:  last.CumulativeReturnPercent,
		BestPerformingDate:      ext.Best.Date,
		BestReturnPercent:       round4(ext.Best.Return * 100),
		WorstPerformingDate:     ext.Worst.Date,
		WorstReturnPercent:      round4(ext.Worst.Return * 100),
		TotalCompositionChanges: rebalanceDays,
	}
}
