// Package main builds the top-N universe, runs the equal-weight index
// fold, persists the run and writes the CSV, Markdown and XLSX exports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"equal-weight-index/internal/config"
	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/pipeline"
	"equal-weight-index/internal/reporting"
	"equal-weight-index/internal/storage"
	chstore "equal-weight-index/internal/storage/clickhouse"
	"equal-weight-index/internal/storage/memory"
	"equal-weight-index/internal/storage/migrations"
	pgstore "equal-weight-index/internal/storage/postgres"
)

// stores groups the stores one run needs.
type stores struct {
	prices storage.PriceStore
	runs   storage.IndexRunStore
	levels storage.IndexLevelStore // nil without ClickHouse
}

func main() {
	logger := log.New(os.Stderr, "[index] ", log.LstdFlags)

	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatalf("Error loading config: %v", err)
	}

	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string (optional level copy)")
	useFixtures := flag.Bool("fixtures", false, "Use the in-memory demo panel instead of a database")
	universeSize := flag.Int("universe-size", cfg.UniverseSize, "Constituents per day (top N by market cap)")
	baseLevel := flag.Float64("base-level", cfg.BaseLevel, "Index level on the first day")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Output directory for generated files")
	from := flag.String("from", "", "First date to include (YYYY-MM-DD)")
	to := flag.String("to", "", "Last date to include (YYYY-MM-DD)")
	concurrency := flag.Int("concurrency", 0, "Parallel snapshot builders (0 = default)")
	printRows := flag.Int("print", 0, "Print the last N daily records as a table")
	flag.Parse()

	if *universeSize < 1 {
		logger.Fatalf("Error: -universe-size must be >= 1, got %d", *universeSize)
	}
	if *baseLevel <= 0 {
		logger.Fatalf("Error: -base-level must be > 0, got %v", *baseLevel)
	}
	if !*useFixtures && *postgresDSN == "" {
		logger.Println("Error: -postgres-dsn or INDEX_POSTGRES_DSN is required when not using fixtures")
		logger.Fatal("Use -fixtures to run with demo data instead")
	}

	fromDate, err := parseOptionalDate(*from)
	if err != nil {
		logger.Fatalf("Error parsing -from: %v", err)
	}
	toDate, err := parseOptionalDate(*to)
	if err != nil {
		logger.Fatalf("Error parsing -to: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		st      *stores
		cleanup func()
	)
	if *useFixtures {
		st, cleanup, err = createMemoryStores(ctx)
		if !flagSet("universe-size") {
			*universeSize = pipeline.DemoUniverseSize
		}
	} else {
		st, cleanup, err = createDatabaseStores(ctx, logger, *postgresDSN, *clickhouseDSN)
	}
	if err != nil {
		logger.Fatalf("Error creating stores: %v", err)
	}
	defer cleanup()

	p := pipeline.NewIndexPipeline(st.prices, st.runs, *outputDir).
		WithUniverseSize(*universeSize).
		WithBaseLevel(*baseLevel).
		WithDateRange(fromDate, toDate).
		WithConcurrency(*concurrency).
		WithLogger(logger)
	if st.levels != nil {
		p = p.WithLevelStore(st.levels)
	}
	if *useFixtures {
		// Fixed clock so the demo exports are byte-for-byte reproducible.
		fixedTime := time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)
		p = p.WithClock(func() time.Time { return fixedTime })
	}

	out, err := p.Run(ctx)
	if err != nil {
		logger.Fatalf("Error running index pipeline: %v", err)
	}

	if *printRows > 0 {
		reporting.RenderTable(os.Stdout, out.Result.Daily, *printRows)
		reporting.RenderSummaryTable(os.Stdout, out.Result.Summary)
	}

	status := "stored"
	if out.Reused {
		status = "already stored"
	}
	fmt.Printf("Index run %s (%s):\n", out.Run.RunID, status)
	for _, f := range out.Files {
		fmt.Printf("  - %s\n", f)
	}
	if !out.Quality.AllPass {
		fmt.Printf("Data quality checks failed, see %s\n", pipeline.ReportMDFile)
	}
}

// createMemoryStores creates in-memory stores loaded with the demo panel.
func createMemoryStores(ctx context.Context) (*stores, func(), error) {
	st := &stores{
		prices: memory.NewPriceStore(),
		runs:   memory.NewIndexRunStore(),
		levels: memory.NewIndexLevelStore(),
	}
	if err := pipeline.LoadFixtures(ctx, st.prices); err != nil {
		return nil, nil, fmt.Errorf("load fixtures: %w", err)
	}
	return st, func() {}, nil
}

// createDatabaseStores connects to PostgreSQL and, when configured,
// ClickHouse, applying migrations to both.
func createDatabaseStores(ctx context.Context, logger *log.Logger, postgresDSN, clickhouseDSN string) (*stores, func(), error) {
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	st := &stores{
		prices: pgstore.NewPriceStore(pool),
		runs:   pgstore.NewIndexRunStore(pool),
	}
	cleanup := func() { pool.Close() }

	if clickhouseDSN == "" {
		return st, cleanup, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	st.levels = chstore.NewIndexLevelStore(conn)

	return st, func() {
		conn.Close()
		pool.Close()
	}, nil
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return domain.ParseDate(s)
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
