package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/index"
	"equal-weight-index/internal/observability"
	"equal-weight-index/internal/panel"
	"equal-weight-index/internal/reporting"
	"equal-weight-index/internal/storage"
	"equal-weight-index/internal/verification"
)

// ReportBuilder regenerates the report of a stored run. Data quality and
// verification are recomputed from the price store.
type ReportBuilder struct {
	priceStore storage.PriceStore
	runStore   storage.IndexRunStore
	clock      func() time.Time
	logger     *log.Logger
}

// NewReportBuilder creates a builder over the given stores.
func NewReportBuilder(priceStore storage.PriceStore, runStore storage.IndexRunStore) *ReportBuilder {
	return &ReportBuilder{
		priceStore: priceStore,
		runStore:   runStore,
		clock:      func() time.Time { return time.Now().UTC() },
		logger:     log.New(io.Discard, "", 0),
	}
}

// WithClock sets a custom clock function for deterministic output.
func (b *ReportBuilder) WithClock(clock func() time.Time) *ReportBuilder {
	b.clock = clock
	return b
}

// WithLogger sets the progress logger.
func (b *ReportBuilder) WithLogger(logger *log.Logger) *ReportBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// LatestRunID returns the newest stored run. Returns storage.ErrNotFound
// when nothing is stored.
func (b *ReportBuilder) LatestRunID(ctx context.Context) (string, error) {
	runs, err := b.runStore.ListRuns(ctx)
	if err != nil {
		return "", fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		return "", storage.ErrNotFound
	}
	return runs[0].RunID, nil
}

// Build loads runID and fills in its data quality and verification sections.
func (b *ReportBuilder) Build(ctx context.Context, runID string) (*reporting.Report, error) {
	report, err := reporting.NewGenerator(b.runStore).WithClock(b.clock).Generate(ctx, runID)
	if err != nil {
		return nil, err
	}
	run := report.Run

	rows, err := b.priceStore.TopNByMarketCap(ctx, run.UniverseSize)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	rows = withinRun(rows, &run)
	b.logger.Printf("Loaded %d universe rows for run %s", len(rows), runID)

	snapshots, err := panel.Group(ctx, rows, panel.GroupOptions{})
	if err != nil {
		return nil, err
	}

	report.DataQuality = DataQuality(snapshots, report.Daily, run.UniverseSize)

	vr, err := verification.VerifyAgainstRecompute(snapshots, report.Daily, report.Summary,
		index.Options{BaseLevel: run.BaseLevel})
	if err != nil {
		// The stored run no longer has matching prices.
		report.VerificationIssues = []string{err.Error()}
		observability.RecordVerification(1)
		return report, nil
	}
	report.VerificationIssues = vr.Issues()
	observability.RecordVerification(len(vr.Divergences))
	if !vr.Match() {
		b.logger.Printf("Run %s: %d verification issue(s)", runID, len(vr.Divergences))
	}

	return report, nil
}

func withinRun(rows []*domain.PriceRow, run *domain.IndexRun) []*domain.PriceRow {
	out := rows[:0:0]
	for _, r := range rows {
		if r.Date.Before(run.StartDate) || r.Date.After(run.EndDate) {
			continue
		}
		out = append(out, r)
	}
	return out
}
