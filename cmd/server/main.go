// Package main serves stored index runs over HTTP and, optionally,
// rebuilds the index on a schedule:
// - API: /api/runs, /api/runs/{id}/daily|summary|levels
// - Ops: /healthz, /metrics
// - Pipeline (scheduled): universe -> fold -> persist -> exports
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"equal-weight-index/internal/api"
	"equal-weight-index/internal/config"
	"equal-weight-index/internal/pipeline"
	"equal-weight-index/internal/storage"
	chstore "equal-weight-index/internal/storage/clickhouse"
	"equal-weight-index/internal/storage/memory"
	"equal-weight-index/internal/storage/migrations"
	pgstore "equal-weight-index/internal/storage/postgres"
)

// allStores holds every store the server touches.
type allStores struct {
	prices storage.PriceStore
	runs   storage.IndexRunStore
	levels storage.IndexLevelStore // nil without ClickHouse
}

// Server holds the HTTP server and the pipeline scheduler state.
type Server struct {
	stores           *allStores
	outputDir        string
	universeSize     int
	baseLevel        float64
	pipelineInterval time.Duration
	logger           *log.Logger

	mu              sync.Mutex
	pipelineRunning bool
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatalf("Error loading config: %v", err)
	}

	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string (enables /levels)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage loaded with the demo panel")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Output directory for scheduled exports")
	universeSize := flag.Int("universe-size", cfg.UniverseSize, "Constituents per day for scheduled runs")
	pipelineInterval := flag.Duration("pipeline-interval", 0, "Rebuild the index on this interval (0 disables)")
	rps := flag.Float64("rps", cfg.HTTPRPS, "API requests per second (0 disables limiting)")
	shutdownTimeout := flag.Duration("shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	flag.Parse()

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("Error: -postgres-dsn or INDEX_POSTGRES_DSN is required unless -use-memory is set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, logger, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Error creating stores: %v", err)
	}
	defer cleanup()

	size := *universeSize
	if *useMemory && !flagSet("universe-size") {
		size = pipeline.DemoUniverseSize
	}

	srv := &Server{
		stores:           stores,
		outputDir:        *outputDir,
		universeSize:     size,
		baseLevel:        cfg.BaseLevel,
		pipelineInterval: *pipelineInterval,
		logger:           logger,
	}

	// The demo stores start empty of runs; build one so the API has data.
	if *useMemory {
		srv.runPipeline(ctx)
	}
	if srv.pipelineInterval > 0 {
		go srv.runPipelineScheduler(ctx)
	}

	httpServer := &http.Server{
		Addr: *addr,
		Handler: api.NewRouter(api.Options{
			RunStore:   stores.runs,
			LevelStore: stores.levels,
			Logger:     logger,
			RPS:        *rps,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("HTTP server listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-errCh:
		if err != nil {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Graceful shutdown failed: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates stores based on configuration.
func createStores(ctx context.Context, logger *log.Logger, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			prices: memory.NewPriceStore(),
			runs:   memory.NewIndexRunStore(),
			levels: memory.NewIndexLevelStore(),
		}
		if err := pipeline.LoadFixtures(ctx, stores.prices); err != nil {
			return nil, nil, fmt.Errorf("load fixtures: %w", err)
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &allStores{
		prices: pgstore.NewPriceStore(pool),
		runs:   pgstore.NewIndexRunStore(pool),
	}
	if clickhouseDSN == "" {
		return stores, func() { pool.Close() }, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	stores.levels = chstore.NewIndexLevelStore(conn)

	return stores, func() {
		conn.Close()
		pool.Close()
	}, nil
}

// runPipelineScheduler rebuilds the index every pipelineInterval.
func (s *Server) runPipelineScheduler(ctx context.Context) {
	s.logger.Printf("Starting pipeline scheduler (interval: %v)...", s.pipelineInterval)

	ticker := time.NewTicker(s.pipelineInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPipeline(ctx)
		}
	}
}

// runPipeline executes one index pipeline run unless one is in flight.
func (s *Server) runPipeline(ctx context.Context) {
	s.mu.Lock()
	if s.pipelineRunning {
		s.mu.Unlock()
		s.logger.Println("Pipeline already running, skipping...")
		return
	}
	s.pipelineRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pipelineRunning = false
		s.mu.Unlock()
	}()

	p := pipeline.NewIndexPipeline(s.stores.prices, s.stores.runs, s.outputDir).
		WithUniverseSize(s.universeSize).
		WithBaseLevel(s.baseLevel).
		WithLogger(log.New(os.Stdout, "[index] ", log.LstdFlags))
	if s.stores.levels != nil {
		p = p.WithLevelStore(s.stores.levels)
	}

	out, err := p.Run(ctx)
	if err != nil {
		s.logger.Printf("Pipeline error: %v", err)
		return
	}
	s.logger.Printf("Pipeline completed: run %s, %d days (reused: %v)", out.Run.RunID, out.Run.Days, out.Reused)
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
