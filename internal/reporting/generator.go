package reporting

import (
	"context"
	"fmt"
	"time"

	"equal-weight-index/internal/storage"
)

// Generator produces reports from stored index runs.
type Generator struct {
	runStore storage.IndexRunStore
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.IndexRunStore) *Generator {
	return &Generator{
		runStore: runStore,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads a stored run and assembles its report.
// Data quality and verification sections are left for the caller to fill.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	daily, err := g.runStore.GetDailyRecords(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load daily records: %w", err)
	}

	summary, err := g.runStore.GetSummary(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}

	return &Report{
		GeneratedAt: g.now(),
		Run:         *run,
		Daily:       daily,
		Summary:     *summary,
	}, nil
}
