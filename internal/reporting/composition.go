package reporting

import (
	"fmt"
	"strconv"

	"equal-weight-index/internal/domain"
)

// CompositionChanges lists every rebalance day. The intersection column
// compares each rebalance day with the previous rebalance day, not with
// the previous trading day.
func CompositionChanges(daily []domain.DailyRecord) []CompositionChangeRow {
	var rows []CompositionChangeRow
	var prev domain.TickerSet

	for _, d := range daily {
		if !d.IsRebalanceDay {
			continue
		}
		current := domain.NewTickerSet(domain.SplitTickers(d.Constituents)...)

		intersection := ""
		if prev != nil {
			intersection = domain.JoinTickers(current.Intersect(prev))
		}

		rows = append(rows, CompositionChangeRow{
			RebalanceDate:            d.Date.Format(domain.DateLayout),
			TickersAdded:             d.TickersAdded,
			TickersRemoved:           d.TickersRemoved,
			IntersectionWithPrevious: intersection,
		})
		prev = current
	}
	return rows
}

// SummaryMetrics renders the summary record as Metric/Value pairs.
func SummaryMetrics(summary domain.SummaryRecord) []SummaryMetricRow {
	return []SummaryMetricRow{
		{Metric: "Total Composition Changes", Value: strconv.Itoa(summary.TotalCompositionChanges)},
		{Metric: "Best Performing Day", Value: summary.BestPerformingDate.Format(domain.DateLayout)},
		{Metric: "Best Day % Return", Value: fmt.Sprintf("%.2f", summary.BestReturnPercent)},
		{Metric: "Worst Performing Day", Value: summary.WorstPerformingDate.Format(domain.DateLayout)},
		{Metric: "Worst Day % Return", Value: fmt.Sprintf("%.2f", summary.WorstReturnPercent)},
		{Metric: "Aggregate Return", Value: fmt.Sprintf("%.2f", summary.AggregateReturnPercent)},
	}
}
