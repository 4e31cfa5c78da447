package marketdata

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/observability"
)

// Source is the subset of the API the extractor needs.
type Source interface {
	DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]Bar, error)
	MarketCap(ctx context.Context, ticker string, date time.Time) (float64, error)
}

var _ Source = (*HTTPClient)(nil)

// ExtractStats summarises one extraction.
type ExtractStats struct {
	Tickers       int // securities requested
	FailedTickers int // securities skipped after an error
	Bars          int // bars received
	Rows          int // rows emitted
	Dropped       int // bars without a usable close or market cap
}

// ExtractorOptions configures an Extractor.
type ExtractorOptions struct {
	Logger *log.Logger // nil discards progress output
}

// Extractor joins daily bars with per-day market caps.
type Extractor struct {
	src    Source
	logger *log.Logger
}

// NewExtractor creates an extractor reading from src.
func NewExtractor(src Source, opts ExtractorOptions) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Extractor{src: src, logger: logger}
}

// Extract fetches every security's bars in [from, to] and the market cap
// on each bar date. A row is emitted only when both the close and the
// market cap are non-zero. A failing security is logged and skipped;
// only context cancellation aborts the run. Rows are sorted by ticker, date.
func (e *Extractor) Extract(ctx context.Context, securities []Security, from, to time.Time) ([]*domain.PriceRow, ExtractStats, error) {
	stats := ExtractStats{Tickers: len(securities)}
	var rows []*domain.PriceRow

	for i, sec := range securities {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		secRows, bars, dropped, err := e.extractOne(ctx, sec, from, to)
		stats.Bars += bars
		stats.Dropped += dropped
		if err != nil {
			if ctx.Err() != nil {
				return nil, stats, ctx.Err()
			}
			stats.FailedTickers++
			observability.RecordTickerExtracted("failed", 0)
			if errors.Is(err, ErrNoResults) {
				e.logger.Printf("No bars for %s, skipping", sec.Ticker)
			} else {
				e.logger.Printf("Skipping %s: %v", sec.Ticker, err)
			}
			continue
		}

		rows = append(rows, secRows...)
		observability.RecordTickerExtracted("ok", len(secRows))
		if (i+1)%25 == 0 {
			e.logger.Printf("Extracted %d/%d tickers (%d rows)", i+1, len(securities), len(rows))
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Ticker != rows[j].Ticker {
			return rows[i].Ticker < rows[j].Ticker
		}
		return rows[i].Date.Before(rows[j].Date)
	})

	stats.Rows = len(rows)
	return rows, stats, nil
}

func (e *Extractor) extractOne(ctx context.Context, sec Security, from, to time.Time) ([]*domain.PriceRow, int, int, error) {
	bars, err := e.src.DailyBars(ctx, sec.Ticker, from, to)
	if err != nil {
		return nil, 0, 0, err
	}

	var rows []*domain.PriceRow
	dropped := 0
	for _, bar := range bars {
		date := bar.Date()
		mcap, err := e.src.MarketCap(ctx, sec.Ticker, date)
		if err != nil {
			return nil, len(bars), dropped, err
		}
		if bar.Close == 0 || mcap == 0 {
			dropped++
			continue
		}
		rows = append(rows, &domain.PriceRow{
			Ticker:     sec.Ticker,
			Security:   sec.Name,
			Date:       date,
			ClosePrice: domain.Float64Ptr(round2(bar.Close)),
			MarketCap:  round2(mcap),
		})
	}
	return rows, len(bars), dropped, nil
}

// round2 rounds the exact binary value to 2 dp, ties to even.
func round2(v float64) float64 {
	return decimal.RequireFromString(strconv.FormatFloat(v, 'f', 2, 64)).InexactFloat64()
}
