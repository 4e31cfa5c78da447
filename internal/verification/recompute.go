package verification

import (
	"context"
	"errors"
	"fmt"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/index"
	"equal-weight-index/internal/panel"
	"equal-weight-index/internal/storage"
)

// ErrRunNotFound is returned when the run ID doesn't exist.
var ErrRunNotFound = errors.New("run not found")

// VerifyAgainstRecompute re-runs the fold over snapshots and compares every
// emitted field with the stored records. It also runs VerifyRun so the
// report covers both kinds of drift.
func VerifyAgainstRecompute(
	snapshots []*domain.Snapshot,
	daily []domain.DailyRecord,
	summary domain.SummaryRecord,
	opts index.Options,
) (*VerificationReport, error) {
	result, err := index.RunWithOptions(snapshots, opts)
	if err != nil {
		return nil, fmt.Errorf("recompute index: %w", err)
	}

	report := VerifyRun(daily, summary)

	if len(daily) != len(result.Daily) {
		report.add("", "DailyRecords", len(result.Daily), len(daily))
	}
	n := len(daily)
	if len(result.Daily) < n {
		n = len(result.Daily)
	}
	for i := 0; i < n; i++ {
		report.Divergences = append(report.Divergences, CompareDailyRecords(daily[i], result.Daily[i])...)
	}
	report.Divergences = append(report.Divergences, CompareSummaries(summary, result.Summary)...)

	return report, nil
}

// RunVerifier verifies stored runs against the stored price panel.
type RunVerifier struct {
	runStore   storage.IndexRunStore
	priceStore storage.PriceStore
}

// RunVerifierOptions contains configuration for creating a RunVerifier.
type RunVerifierOptions struct {
	RunStore   storage.IndexRunStore
	PriceStore storage.PriceStore
}

// NewRunVerifier creates a new RunVerifier.
func NewRunVerifier(opts RunVerifierOptions) *RunVerifier {
	return &RunVerifier{
		runStore:   opts.RunStore,
		priceStore: opts.PriceStore,
	}
}

// VerifyStored rebuilds the run's universe from the price store, restricted
// to the run's date range, and compares the recomputation with the stored
// records.
func (v *RunVerifier) VerifyStored(ctx context.Context, runID string) (*VerificationReport, error) {
	// 1. Load stored run
	run, err := v.runStore.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	daily, err := v.runStore.GetDailyRecords(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load daily records: %w", err)
	}
	summary, err := v.runStore.GetSummary(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}

	// 2. Rebuild snapshots for the same universe and dates
	rows, err := v.priceStore.TopNByMarketCap(ctx, run.UniverseSize)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	rows = withinRange(rows, run)

	snapshots, err := panel.Group(ctx, rows, panel.GroupOptions{})
	if err != nil {
		return nil, err
	}

	// 3. Recompute and compare
	return VerifyAgainstRecompute(snapshots, daily, *summary, index.Options{BaseLevel: run.BaseLevel})
}

func withinRange(rows []*domain.PriceRow, run *domain.IndexRun) []*domain.PriceRow {
	out := rows[:0:0]
	for _, r := range rows {
		if r.Date.Before(run.StartDate) || r.Date.After(run.EndDate) {
			continue
		}
		out = append(out, r)
	}
	return out
}
