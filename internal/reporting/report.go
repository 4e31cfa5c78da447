package reporting

import (
	"time"

	"equal-weight-index/internal/domain"
)

// Report is everything rendered for one index run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Run         domain.IndexRun

	// Fold output, daily ordered by date
	Daily   []domain.DailyRecord
	Summary domain.SummaryRecord

	// Data Quality (sufficiency checks)
	DataQuality DataQualitySection

	// Verification findings; empty when the run verified clean
	VerificationIssues []string
}

// DataQualitySection contains data sufficiency checks and integrity errors.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// CompositionChangeRow is one rebalance day in the composition_changes view.
type CompositionChangeRow struct {
	RebalanceDate            string
	TickersAdded             string
	TickersRemoved           string
	IntersectionWithPrevious string // shared with the previous rebalance row, "" for the first
}

// SummaryMetricRow is one Metric/Value pair of the summary_metrics view.
type SummaryMetricRow struct {
	Metric string
	Value  string
}
