// Package main re-exports a stored index run as CSV, Markdown and XLSX,
// recomputing its data quality and verification sections.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"equal-weight-index/internal/config"
	"equal-weight-index/internal/pipeline"
	"equal-weight-index/internal/storage"
	"equal-weight-index/internal/storage/memory"
	pgstore "equal-weight-index/internal/storage/postgres"
	"equal-weight-index/internal/verification"
)

func main() {
	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatalf("Error loading config: %v", err)
	}

	outputDir := flag.String("output-dir", cfg.OutputDir, "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	runID := flag.String("run-id", "", "Run to export (default: newest stored run)")
	useFixtures := flag.Bool("use-fixtures", false, "Build the demo run in memory and export it")
	verifyOnly := flag.Bool("verify", false, "Only verify the run against the price store; exit 1 on divergence")
	flag.Parse()

	if !*useFixtures && *postgresDSN == "" {
		logger.Println("Error: -postgres-dsn or INDEX_POSTGRES_DSN is required when not using fixtures")
		logger.Fatal("Use -use-fixtures to run with demo data instead")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		priceStore storage.PriceStore
		runStore   storage.IndexRunStore
		clock      = func() time.Time { return time.Now().UTC() }
	)

	if *useFixtures {
		fixedTime := time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)
		clock = func() time.Time { return fixedTime }
		priceStore, runStore, err = createFixtureStores(ctx, *outputDir, clock)
		if err != nil {
			logger.Fatalf("Error building fixture run: %v", err)
		}
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Error connecting to postgres: %v", err)
		}
		defer pool.Close()
		priceStore = pgstore.NewPriceStore(pool)
		runStore = pgstore.NewIndexRunStore(pool)
	}

	builder := pipeline.NewReportBuilder(priceStore, runStore).WithClock(clock).WithLogger(logger)

	id := *runID
	if id == "" {
		id, err = builder.LatestRunID(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			logger.Fatal("No stored runs; run cmd/index first")
		}
		if err != nil {
			logger.Fatalf("Error finding latest run: %v", err)
		}
	}

	if *verifyOnly {
		os.Exit(verify(ctx, priceStore, runStore, id, logger))
	}

	report, err := builder.Build(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Fatalf("Run %s not found", id)
		}
		logger.Fatalf("Error building report: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Fatalf("Error creating output dir: %v", err)
	}
	files, err := pipeline.WriteOutputs(*outputDir, report)
	if err != nil {
		logger.Fatalf("Error writing report: %v", err)
	}

	fmt.Printf("Report for run %s generated successfully:\n", id)
	for _, f := range files {
		fmt.Printf("  - %s\n", f)
	}
}

// verify recomputes the run and prints every divergence. Returns the
// process exit code.
func verify(ctx context.Context, priceStore storage.PriceStore, runStore storage.IndexRunStore, runID string, logger *log.Logger) int {
	v := verification.NewRunVerifier(verification.RunVerifierOptions{
		RunStore:   runStore,
		PriceStore: priceStore,
	})
	vr, err := v.VerifyStored(ctx, runID)
	if err != nil {
		logger.Printf("Error verifying run %s: %v", runID, err)
		return 1
	}
	if vr.Match() {
		fmt.Printf("Run %s verified: %d days, no divergences\n", runID, vr.TotalDays)
		return 0
	}
	fmt.Printf("Run %s: %d divergence(s)\n", runID, len(vr.Divergences))
	for _, issue := range vr.Issues() {
		fmt.Printf("  - %s\n", issue)
	}
	return 1
}

// createFixtureStores loads the demo panel and stores one run built from it.
func createFixtureStores(ctx context.Context, outputDir string, clock func() time.Time) (storage.PriceStore, storage.IndexRunStore, error) {
	priceStore := memory.NewPriceStore()
	runStore := memory.NewIndexRunStore()
	if err := pipeline.LoadFixtures(ctx, priceStore); err != nil {
		return nil, nil, fmt.Errorf("load fixtures: %w", err)
	}
	_, err := pipeline.NewIndexPipeline(priceStore, runStore, outputDir).
		WithUniverseSize(pipeline.DemoUniverseSize).
		WithClock(clock).
		Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	return priceStore, runStore, nil
}
