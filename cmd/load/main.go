// Package main loads a raw price CSV into the stock_prices table.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"equal-weight-index/internal/config"
	"equal-weight-index/internal/marketdata"
	"equal-weight-index/internal/observability"
	"equal-weight-index/internal/storage"
	"equal-weight-index/internal/storage/migrations"
	pgstore "equal-weight-index/internal/storage/postgres"
)

const defaultChunkSize = 1000

func main() {
	logger := log.New(os.Stderr, "[load] ", log.LstdFlags)

	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatalf("Error loading config: %v", err)
	}

	in := flag.String("in", filepath.Join(cfg.OutputDir, "stock_data.csv"), "Raw price CSV to load")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	chunkSize := flag.Int("chunk-size", defaultChunkSize, "Rows per insert batch")
	replace := flag.Bool("replace", false, "Delete existing rows before loading")
	flag.Parse()

	if *postgresDSN == "" {
		logger.Fatal("Error: -postgres-dsn or INDEX_POSTGRES_DSN is required")
	}
	if *chunkSize < 1 {
		logger.Fatalf("Error: -chunk-size must be >= 1, got %d", *chunkSize)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Error connecting to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		logger.Fatalf("Error running migrations: %v", err)
	}

	priceStore := pgstore.NewPriceStore(pool)
	if *replace {
		if err := priceStore.Truncate(ctx); err != nil {
			logger.Fatalf("Error truncating stock_prices: %v", err)
		}
		logger.Println("Cleared existing rows")
	}

	f, err := os.Open(*in)
	if err != nil {
		logger.Fatalf("Error opening %s: %v", *in, err)
	}
	defer f.Close()

	stored, skipped, err := load(ctx, f, priceStore, *chunkSize, logger)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			logger.Fatalf("Error loading rows: %v (rerun with -replace to reload)", err)
		}
		logger.Fatalf("Error loading rows: %v", err)
	}

	logger.Printf("Loaded %d rows, skipped %d invalid rows", stored, skipped)
}

// load streams r into store chunk by chunk. Each chunk is one InsertBulk.
func load(ctx context.Context, r io.Reader, store storage.PriceStore, chunkSize int, logger *log.Logger) (int, int, error) {
	rr, err := marketdata.NewRowReader(r)
	if err != nil {
		return 0, 0, err
	}

	stored, skipped := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return stored, skipped, err
		}

		rows, bad, err := rr.ReadChunk(chunkSize)
		skipped += bad
		if errors.Is(err, io.EOF) {
			observability.RecordLoad(0, bad)
			return stored, skipped, nil
		}
		if err != nil {
			return stored, skipped, err
		}

		if err := store.InsertBulk(ctx, rows); err != nil {
			return stored, skipped, err
		}
		stored += len(rows)
		observability.RecordLoad(len(rows), bad)
		logger.Printf("Stored %d rows", stored)
	}
}
