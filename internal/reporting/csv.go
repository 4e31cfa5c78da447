package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"equal-weight-index/internal/domain"
)

// IndexCSVHeader is the column order of the daily rebalance CSV.
var IndexCSVHeader = []string{
	"Date",
	"Equal_Weighted_Index",
	"Daily_Percent_Return",
	"Cumulative_Return",
	"Constituent_Tickers",
	"Rebalance_Date",
	"Tickers_Added",
	"Tickers_Removed",
	"Composition_Change_Count",
	"Best_Performing_Day",
	"Worst_Performing_Day",
	"Aggregate_Return",
}

// RenderIndexCSV renders the daily records followed by a SUMMARY row.
// Ticker lists contain commas and are quoted.
func RenderIndexCSV(daily []domain.DailyRecord, summary domain.SummaryRecord) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	// strings.Builder writes cannot fail, so Write errors are ignored.
	_ = w.Write(IndexCSVHeader)

	for _, d := range daily {
		_ = w.Write([]string{
			d.Date.Format(domain.DateLayout),
			formatNumber(d.IndexLevel),
			formatNumber(d.DailyReturnPercent),
			formatNumber(d.CumulativeReturnPercent),
			d.Constituents,
			d.RebalanceDate,
			d.TickersAdded,
			d.TickersRemoved,
			strconv.Itoa(d.CompositionChangeCount),
			"", "", "",
		})
	}

	_ = w.Write([]string{
		"SUMMARY",
		"", "",
		formatNumber(summary.AggregateReturnPercent),
		"", "", "", "", "",
		summary.BestPerformingDate.Format(domain.DateLayout),
		summary.WorstPerformingDate.Format(domain.DateLayout),
		formatNumber(summary.AggregateReturnPercent),
	})

	w.Flush()
	return sb.String()
}

// formatNumber prints the shortest representation, always with a decimal
// point so whole numbers read as floats.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
