package index

import "equal-weight-index/internal/domain"

// PriceLookup returns a ticker's close and whether one is present.
type PriceLookup func(ticker string) (float64, bool)

// MapLookup adapts a ticker->close map to a PriceLookup.
func MapLookup(prices map[string]float64) PriceLookup {
	return func(ticker string) (float64, bool) {
		p, ok := prices[ticker]
		return p, ok
	}
}

// AverageReturn computes the equal-weighted mean simple return over the
// tickers present on both days. A ticker contributes only when it has a
// present, non-zero close on both days.
// Returns (0, 0) when yesterday is empty, the intersection is empty, or
// no shared ticker has usable prices. The second value is the number of
// tickers that contributed.
func AverageReturn(today, yesterday domain.TickerSet, todayPrice, yesterdayPrice PriceLookup) (float64, int) {
	if len(yesterday) == 0 {
		return 0, 0
	}

	shared := today.Intersect(yesterday)
	if len(shared) == 0 {
		return 0, 0
	}

	// shared is sorted, so the sum does not depend on map iteration order.
	sum := 0.0
	n := 0
	for _, ticker := range shared {
		prev, ok := yesterdayPrice(ticker)
		if !ok || prev == 0 {
			continue
		}
		cur, ok := todayPrice(ticker)
		if !ok || cur == 0 {
			continue
		}
		sum += (cur - prev) / prev
		n++
	}

	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}
