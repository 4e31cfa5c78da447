// Package main fetches daily closes and market caps for the candidate
// universe and writes them as a raw price CSV for cmd/load.
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
	"path/filepath"
	"syscall"
	"time"

	"equal-weight-index/internal/config"
	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/marketdata"
	"equal-weight-index/internal/observability"
)

func main() {
	logger := log.New(os.Stderr, "[extract] ", log.LstdFlags)

	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatalf("Error loading config: %v", err)
	}

	apiURL := flag.String("api-url", cfg.APIBaseURL, "Market-data API base URL")
	apiKey := flag.String("api-key", cfg.APIKey, "Market-data API key")
	rps := flag.Float64("rps", cfg.APIRPS, "Maximum API requests per second")
	source := flag.String("source", cfg.TickerSource, "Ticker source: csv or api")
	constituents := flag.String("constituents", cfg.ConstituentsCSV, "Constituents CSV (Ticker,Security) when -source=csv")
	tickerLimit := flag.Int("ticker-limit", 1000, "Maximum tickers requested when -source=api")
	paginate := flag.Bool("paginate", false, "Follow next_url pages when -source=api")
	lookback := flag.Int("lookback-days", cfg.LookbackDays, "Number of calendar days to fetch, ending today")
	out := flag.String("out", filepath.Join(cfg.OutputDir, "stock_data.csv"), "Output CSV path")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address while running")
	flag.Parse()

	if *apiKey == "" {
		logger.Fatal("Error: -api-key or INDEX_API_KEY is required")
	}
	if *lookback < 1 {
		logger.Fatalf("Error: -lookback-days must be >= 1, got %d", *lookback)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	client := marketdata.NewHTTPClient(*apiURL, *apiKey, marketdata.WithRateLimit(*rps))

	securities, err := loadSecurities(ctx, client, *source, *constituents, *tickerLimit, *paginate)
	if err != nil {
		logger.Fatalf("Error loading tickers: %v", err)
	}
	logger.Printf("Loaded %d tickers from %s", len(securities), *source)

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -*lookback)
	logger.Printf("Fetching %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))

	extractor := marketdata.NewExtractor(client, marketdata.ExtractorOptions{Logger: logger})
	rows, stats, err := extractor.Extract(ctx, securities, from, to)
	if err != nil {
		logger.Fatalf("Error extracting prices: %v", err)
	}
	if len(rows) == 0 {
		logger.Fatal("No rows extracted")
	}

	if err := writeRows(*out, rows); err != nil {
		logger.Fatalf("Error writing %s: %v", *out, err)
	}

	logger.Printf("Extracted %d rows from %d tickers (%d failed, %d bars dropped)",
		stats.Rows, stats.Tickers, stats.FailedTickers, stats.Dropped)
	fmt.Println(*out)
}

func loadSecurities(ctx context.Context, client *marketdata.HTTPClient, source, constituents string, limit int, paginate bool) ([]marketdata.Security, error) {
	switch source {
	case config.TickerSourceCSV:
		return marketdata.ReadConstituents(constituents)
	case config.TickerSourceAPI:
		return client.ActiveTickers(ctx, limit, paginate)
	default:
		return nil, fmt.Errorf("unknown ticker source %q", source)
	}
}

func writeRows(path string, rows []*domain.PriceRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := marketdata.WriteRowsCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func serveMetrics(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	logger.Printf("Metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("Metrics server error: %v", err)
	}
}
