// Package panel turns flat price rows into the ordered per-day
// snapshots consumed by the index engine.
package panel

import (
	"sort"

	"equal-weight-index/internal/domain"
)

// TopN keeps, for each date, the n rows with the largest market cap.
// Ties are broken by ticker ascending so the cut is deterministic.
// The result is ordered by date, then rank. n <= 0 yields nil.
func TopN(rows []*domain.PriceRow, n int) []*domain.PriceRow {
	if n <= 0 || len(rows) == 0 {
		return nil
	}

	byDate := make(map[string][]*domain.PriceRow)
	for _, r := range rows {
		if r == nil {
			continue
		}
		key := r.DateKey()
		byDate[key] = append(byDate[key], r)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var result []*domain.PriceRow
	for _, d := range dates {
		group := byDate[d]
		sort.SliceStable(group, func(i, j int) bool {
			return rankLess(group[i], group[j])
		})
		if len(group) > n {
			group = group[:n]
		}
		for _, r := range group {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	return result
}

// rankLess orders by market cap DESC, ticker ASC.
func rankLess(a, b *domain.PriceRow) bool {
	if a.MarketCap != b.MarketCap {
		return a.MarketCap > b.MarketCap
	}
	return a.Ticker < b.Ticker
}
