package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"equal-weight-index/internal/domain"
)

// Workbook sheet names.
const (
	SheetIndexPerformance   = "index_performance"
	SheetDailyComposition   = "daily_composition"
	SheetCompositionChanges = "composition_changes"
	SheetSummaryMetrics     = "summary_metrics"
)

// WriteWorkbook writes the four-sheet XLSX export of a run to w.
func WriteWorkbook(w io.Writer, daily []domain.DailyRecord, summary domain.SummaryRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the first named sheet.
	if err := f.SetSheetName("Sheet1", SheetIndexPerformance); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{SheetDailyComposition, SheetCompositionChanges, SheetSummaryMetrics} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	perf := [][]interface{}{{"Date", "Equal Weighted Index Value", "Daily % Return", "Cumulative Return"}}
	comp := [][]interface{}{{"Date", "Constituent_Tickers"}}
	for _, d := range daily {
		date := d.Date.Format(domain.DateLayout)
		perf = append(perf, []interface{}{date, round2(d.IndexLevel), d.DailyReturnPercent, d.CumulativeReturnPercent})
		comp = append(comp, []interface{}{date, d.Constituents})
	}

	changes := [][]interface{}{{"Rebalance_Date", "Tickers_Added", "Tickers_Removed", "Intersection_with_Previous_Day"}}
	for _, c := range CompositionChanges(daily) {
		changes = append(changes, []interface{}{c.RebalanceDate, c.TickersAdded, c.TickersRemoved, c.IntersectionWithPrevious})
	}

	metrics := [][]interface{}{{"Metric", "Value"}}
	for _, m := range SummaryMetrics(summary) {
		metrics = append(metrics, []interface{}{m.Metric, m.Value})
	}

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{SheetIndexPerformance, perf},
		{SheetDailyComposition, comp},
		{SheetCompositionChanges, changes},
		{SheetSummaryMetrics, metrics},
	}
	for _, s := range sheets {
		if err := writeRows(f, s.name, s.rows); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// round2 rounds the exact binary value to 2 dp, ties to even.
func round2(v float64) float64 {
	return decimal.RequireFromString(strconv.FormatFloat(v, 'f', 2, 64)).InexactFloat64()
}
