package domain

import "time"

// DefaultBaseLevel is the index level on the inception day.
const DefaultBaseLevel = 100.0

// DailyRecord is one emitted row of the equal-weighted index.
// Corresponds to index_daily_records table in PostgreSQL.
// Levels and percentages are rounded to 4 decimals.
type DailyRecord struct {
	Date                    time.Time // trading date
	IndexLevel              float64   // index value after the day's move
	DailyReturnPercent      float64   // day return x 100
	CumulativeReturnPercent float64   // (cumulative multiplier - 1) x 100
	Constituents            string    // comma-joined sorted tickers
	ConstituentCount        int       // number of constituents
	IsRebalanceDay          bool      // constituent set differs from prior day
	RebalanceDate           string    // YYYY-MM-DD on rebalance days, else ""
	TickersAdded            string    // comma-joined sorted, "" when not rebalancing
	TickersRemoved          string    // comma-joined sorted, "" when not rebalancing
	CompositionChangeCount  int       // len(added)+len(removed), 0 when not rebalancing
	ReturnSampleSize        int       // tickers that contributed to the day's average
}

// SummaryRecord is the single trailer row emitted after the last day.
// Corresponds to index_summaries table in PostgreSQL.
type SummaryRecord struct {
	AggregateReturnPercent  float64   // equals last DailyRecord.CumulativeReturnPercent
	BestPerformingDate      time.Time // first date with the highest daily return
	BestReturnPercent       float64   // that day's return x 100 (4 dp)
	WorstPerformingDate     time.Time // first date with the lowest daily return
	WorstReturnPercent      float64   // that day's return x 100 (4 dp)
	TotalCompositionChanges int       // number of rebalance days
}

// IndexRun describes one persisted computation of the index.
// Corresponds to index_runs table in PostgreSQL.
type IndexRun struct {
	RunID        string    // deterministic hash of inputs
	UniverseSize int       // top-N cutoff used to build the universe
	BaseLevel    float64   // inception level
	StartDate    time.Time // first trading date
	EndDate      time.Time // last trading date
	Days         int       // number of daily records
	CreatedAt    time.Time // persistence timestamp
}
