package domain

import (
	"sort"
	"strings"
	"time"
)

// TickerSet is an unordered set of ticker symbols.
type TickerSet map[string]struct{}

// NewTickerSet builds a set from the given symbols.
func NewTickerSet(tickers ...string) TickerSet {
	s := make(TickerSet, len(tickers))
	for _, t := range tickers {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports whether ticker is in the set.
func (s TickerSet) Contains(ticker string) bool {
	_, ok := s[ticker]
	return ok
}

// Sorted returns the members in ascending order.
func (s TickerSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same members.
func (s TickerSet) Equal(other TickerSet) bool {
	if len(s) != len(other) {
		return false
	}
	for t := range s {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

// Minus returns the sorted members of s that are not in other.
func (s TickerSet) Minus(other TickerSet) []string {
	var out []string
	for t := range s {
		if !other.Contains(t) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Intersect returns the sorted members present in both sets.
func (s TickerSet) Intersect(other TickerSet) []string {
	var out []string
	for t := range s {
		if other.Contains(t) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// JoinTickers joins symbols with commas, the on-disk list format.
func JoinTickers(tickers []string) string {
	return strings.Join(tickers, ",")
}

// SplitTickers is the inverse of JoinTickers. Empty input yields nil.
func SplitTickers(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Snapshot is the per-date view of index constituents and their closes.
// A ticker may be listed in Tickers without an entry in Prices when its
// close is missing. Snapshots are immutable once built.
type Snapshot struct {
	Date    time.Time          // trading date
	Tickers TickerSet          // constituents present on Date
	Prices  map[string]float64 // ticker -> close, only for present closes
}

// Price returns the close for ticker and whether one is present.
func (s *Snapshot) Price(ticker string) (float64, bool) {
	p, ok := s.Prices[ticker]
	return p, ok
}

// DateKey returns the snapshot date formatted as YYYY-MM-DD.
func (s *Snapshot) DateKey() string {
	return s.Date.Format(DateLayout)
}
