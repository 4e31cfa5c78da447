package index

import "equal-weight-index/internal/domain"

// Rebalance describes how today's constituents differ from yesterday's.
type Rebalance struct {
	Added       []string // sorted(today - yesterday)
	Removed     []string // sorted(yesterday - today)
	IsRebalance bool     // today != yesterday
	ChangeCount int      // len(Added) + len(Removed)
}

// DetectRebalance compares two constituent sets.
// On the first day yesterday is empty, so every ticker is reported as
// added and the day counts as a rebalance.
func DetectRebalance(today, yesterday domain.TickerSet) Rebalance {
	added := today.Minus(yesterday)
	removed := yesterday.Minus(today)
	return Rebalance{
		Added:       added,
		Removed:     removed,
		IsRebalance: !today.Equal(yesterday),
		ChangeCount: len(added) + len(removed),
	}
}
