package index

import (
	"math"
	"time"
)

// Extremum is a daily return and the date it occurred.
type Extremum struct {
	Date   time.Time
	Return float64
}

// ExtremumTracker keeps the best and worst daily return seen so far.
type ExtremumTracker struct {
	Best  Extremum
	Worst Extremum
}

// NewExtremumTracker returns a tracker seeded with -Inf / +Inf sentinels.
func NewExtremumTracker() ExtremumTracker {
	return ExtremumTracker{
		Best:  Extremum{Return: math.Inf(-1)},
		Worst: Extremum{Return: math.Inf(1)},
	}
}

// Observe folds one day's return into the tracker.
// Comparisons are strict, so ties keep the earlier date.
func (t ExtremumTracker) Observe(date time.Time, ret float64) ExtremumTracker {
	if ret > t.Best.Return {
		t.Best = Extremum{Date: date, Return: ret}
	}
	if ret < t.Worst.Return {
		t.Worst = Extremum{Date: date, Return: ret}
	}
	return t
}

// Seen reports whether at least one day has been observed.
func (t ExtremumTracker) Seen() bool {
	return !math.IsInf(t.Best.Return, -1)
}
