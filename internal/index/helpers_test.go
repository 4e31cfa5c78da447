package index

import (
	"math"
	"testing"
	"time"

	"equal-weight-index/internal/domain"
)

const tolerance = 1e-9

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func snap(d time.Time, prices map[string]float64) *domain.Snapshot {
	tickers := make([]string, 0, len(prices))
	for t := range prices {
		tickers = append(tickers, t)
	}
	return &domain.Snapshot{
		Date:    d,
		Tickers: domain.NewTickerSet(tickers...),
		Prices:  prices,
	}
}

func assertClose(t *testing.T, name string, want, got float64) {
	t.Helper()
	if math.Abs(want-got) > tolerance {
		t.Errorf("%s: expected %.10f, got %.10f", name, want, got)
	}
}
