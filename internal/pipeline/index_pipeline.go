package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/idhash"
	"equal-weight-index/internal/index"
	"equal-weight-index/internal/observability"
	"equal-weight-index/internal/panel"
	"equal-weight-index/internal/reporting"
	"equal-weight-index/internal/storage"
	"equal-weight-index/internal/verification"
)

// Output file names.
const (
	IndexCSVFile  = "custom_index_daily_rebalance.csv"
	ReportMDFile  = "INDEX_REPORT.md"
	WorkbookFile  = "equal_weighted_index_data.xlsx"
	pipelineStage = "index"
)

// IndexPipeline builds the universe, folds the index, persists the run
// and writes the export files.
type IndexPipeline struct {
	priceStore   storage.PriceStore
	runStore     storage.IndexRunStore
	levelStore   storage.IndexLevelStore // optional analytical copy
	outputDir    string
	universeSize int
	baseLevel    float64
	concurrency  int
	from, to     time.Time // optional inclusive date range
	clock        func() time.Time
	logger       *log.Logger
}

// RunOutput is what one pipeline run produced.
type RunOutput struct {
	Run     *domain.IndexRun
	Result  *index.Result
	Report  *reporting.Report
	Files   []string
	Reused  bool // the run ID was already stored
	Quality *QualityResult
}

// NewIndexPipeline creates a pipeline with the default universe size and
// base level.
func NewIndexPipeline(priceStore storage.PriceStore, runStore storage.IndexRunStore, outputDir string) *IndexPipeline {
	return &IndexPipeline{
		priceStore:   priceStore,
		runStore:     runStore,
		outputDir:    outputDir,
		universeSize: 100,
		baseLevel:    domain.DefaultBaseLevel,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// WithUniverseSize sets the top-N market cap cutoff.
func (p *IndexPipeline) WithUniverseSize(n int) *IndexPipeline {
	p.universeSize = n
	return p
}

// WithBaseLevel sets the inception level.
func (p *IndexPipeline) WithBaseLevel(level float64) *IndexPipeline {
	p.baseLevel = level
	return p
}

// WithLevelStore also writes daily levels to store.
func (p *IndexPipeline) WithLevelStore(store storage.IndexLevelStore) *IndexPipeline {
	p.levelStore = store
	return p
}

// WithDateRange restricts the run to [from, to]. Zero values leave that
// side open.
func (p *IndexPipeline) WithDateRange(from, to time.Time) *IndexPipeline {
	p.from = from
	p.to = to
	return p
}

// WithConcurrency bounds parallel snapshot building.
func (p *IndexPipeline) WithConcurrency(n int) *IndexPipeline {
	p.concurrency = n
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *IndexPipeline) WithClock(clock func() time.Time) *IndexPipeline {
	p.clock = clock
	return p
}

// WithLogger sets the progress logger. nil disables logging.
func (p *IndexPipeline) WithLogger(logger *log.Logger) *IndexPipeline {
	p.logger = logger
	return p
}

// Run executes the full pipeline and writes output files:
// - custom_index_daily_rebalance.csv
// - INDEX_REPORT.md
// - equal_weighted_index_data.xlsx
func (p *IndexPipeline) Run(ctx context.Context) (*RunOutput, error) {
	start := time.Now()
	out, err := p.run(ctx)

	status := "success"
	if err != nil {
		status = "failure"
	}
	observability.RecordPipelineRun(pipelineStage, status, time.Since(start).Seconds())
	if err == nil {
		observability.RecordPipelineSuccess(p.clock().Unix())
	}
	return out, err
}

func (p *IndexPipeline) run(ctx context.Context) (*RunOutput, error) {
	if p.universeSize < 1 {
		return nil, fmt.Errorf("universe size must be >= 1, got %d", p.universeSize)
	}
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	// 1. Universe
	rows, err := p.priceStore.TopNByMarketCap(ctx, p.universeSize)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	rows = p.inRange(rows)
	p.logf("Loaded %d universe rows (top %d by market cap)", len(rows), p.universeSize)

	// 2. Snapshots
	snapshots, err := panel.Group(ctx, rows, panel.GroupOptions{Concurrency: p.concurrency})
	if err != nil {
		return nil, err
	}

	// 3. Fold
	result, err := index.RunWithOptions(snapshots, index.Options{BaseLevel: p.baseLevel})
	if err != nil {
		return nil, fmt.Errorf("compute index: %w", err)
	}
	p.logf("Processed %d days", len(result.Daily))

	// 4. Data quality
	quality := CheckQuality(snapshots, result.Daily, p.universeSize)
	if !quality.AllPass {
		p.logf("Data quality: %d finding(s)", len(quality.Errors))
	}

	// 5. Persist
	run := &domain.IndexRun{
		RunID:        idhash.ComputeRunID(p.universeSize, p.baseLevel, snapshots),
		UniverseSize: p.universeSize,
		BaseLevel:    p.baseLevel,
		StartDate:    result.Daily[0].Date,
		EndDate:      result.Daily[len(result.Daily)-1].Date,
		Days:         len(result.Daily),
		CreatedAt:    p.clock(),
	}
	reused, err := p.persist(ctx, run, result)
	if err != nil {
		return nil, err
	}

	// 6. Verify and report
	vr := verification.VerifyRun(result.Daily, result.Summary)
	observability.RecordVerification(len(vr.Divergences))
	observability.RecordIndexRun(len(result.Daily), result.Summary.TotalCompositionChanges,
		degenerateDays(result.Daily), result.Daily[len(result.Daily)-1].IndexLevel,
		result.Daily[len(result.Daily)-1].ConstituentCount)

	report := &reporting.Report{
		GeneratedAt:        p.clock(),
		Run:                *run,
		Daily:              result.Daily,
		Summary:            result.Summary,
		DataQuality:        convertToDataQuality(quality),
		VerificationIssues: vr.Issues(),
	}

	files, err := WriteOutputs(p.outputDir, report)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		p.logf("Wrote %s", f)
	}

	return &RunOutput{
		Run:     run,
		Result:  result,
		Report:  report,
		Files:   files,
		Reused:  reused,
		Quality: quality,
	}, nil
}

// persist stores the run. A run ID that already exists means the same
// inputs were processed before; the stored run is reused.
func (p *IndexPipeline) persist(ctx context.Context, run *domain.IndexRun, result *index.Result) (bool, error) {
	reused := false
	err := p.runStore.Insert(ctx, run, result.Daily, &result.Summary)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		stored, getErr := p.runStore.GetRun(ctx, run.RunID)
		if getErr != nil {
			return false, fmt.Errorf("load existing run: %w", getErr)
		}
		*run = *stored
		reused = true
		p.logf("Run %s already stored, reusing", run.RunID)
	case err != nil:
		return false, fmt.Errorf("store run: %w", err)
	default:
		p.logf("Stored run %s", run.RunID)
	}

	if p.levelStore != nil {
		points := domain.LevelPointsFromRecords(run.RunID, result.Daily)
		if err := p.levelStore.InsertBulk(ctx, points); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return false, fmt.Errorf("store index levels: %w", err)
		}
	}
	return reused, nil
}

// WriteOutputs renders the CSV, Markdown and XLSX files for report into dir
// and returns their paths.
func WriteOutputs(dir string, report *reporting.Report) ([]string, error) {
	csvPath := filepath.Join(dir, IndexCSVFile)
	if err := os.WriteFile(csvPath, []byte(reporting.RenderIndexCSV(report.Daily, report.Summary)), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", IndexCSVFile, err)
	}
	observability.RecordReport("csv")

	mdPath := filepath.Join(dir, ReportMDFile)
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ReportMDFile, err)
	}
	observability.RecordReport("markdown")

	var buf bytes.Buffer
	if err := reporting.WriteWorkbook(&buf, report.Daily, report.Summary); err != nil {
		return nil, err
	}
	xlsxPath := filepath.Join(dir, WorkbookFile)
	if err := os.WriteFile(xlsxPath, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", WorkbookFile, err)
	}
	observability.RecordReport("xlsx")

	return []string{csvPath, mdPath, xlsxPath}, nil
}

func (p *IndexPipeline) inRange(rows []*domain.PriceRow) []*domain.PriceRow {
	if p.from.IsZero() && p.to.IsZero() {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		if !p.from.IsZero() && r.Date.Before(p.from) {
			continue
		}
		if !p.to.IsZero() && r.Date.After(p.to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func degenerateDays(daily []domain.DailyRecord) int {
	n := 0
	for i, d := range daily {
		if i > 0 && d.ReturnSampleSize == 0 {
			n++
		}
	}
	return n
}

func (p *IndexPipeline) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
