package reporting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"equal-weight-index/internal/domain"
)

// RenderTable prints the last limit daily records as a terminal table.
// limit <= 0 prints every record.
func RenderTable(w io.Writer, daily []domain.DailyRecord, limit int) {
	rows := daily
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.SeparateRows = false

	tw.AppendHeader(table.Row{"Date", "Level", "Daily %", "Cumulative %", "Members", "Added", "Removed"})

	right := []int{2, 3, 4, 5}
	cfgs := make([]table.ColumnConfig, 0, len(right)+2)
	for _, n := range right {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}
	cfgs = append(cfgs,
		table.ColumnConfig{Number: 6, WidthMax: 30},
		table.ColumnConfig{Number: 7, WidthMax: 30},
	)
	tw.SetColumnConfigs(cfgs)

	for _, d := range rows {
		tw.AppendRow(table.Row{
			d.Date.Format(domain.DateLayout),
			fmt.Sprintf("%.4f", d.IndexLevel),
			fmt.Sprintf("%.4f", d.DailyReturnPercent),
			fmt.Sprintf("%.4f", d.CumulativeReturnPercent),
			d.ConstituentCount,
			d.TickersAdded,
			d.TickersRemoved,
		})
	}

	tw.Render()
}

// RenderSummaryTable prints the summary metrics as a two-column table.
func RenderSummaryTable(w io.Writer, summary domain.SummaryRecord) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	for _, m := range SummaryMetrics(summary) {
		tw.AppendRow(table.Row{m.Metric, m.Value})
	}
	tw.Render()
}
