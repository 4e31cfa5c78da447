package index

import (
	"errors"
	"math"
	"testing"

	"equal-weight-index/internal/domain"
)

// threeDayPanel: B leaves and C joins on day 3.
func threeDayPanel() []*domain.Snapshot {
	return []*domain.Snapshot{
		snap(day(1), map[string]float64{"A": 10, "B": 20}),
		snap(day(2), map[string]float64{"A": 11, "B": 19}),
		snap(day(3), map[string]float64{"A": 12, "C": 5}),
	}
}

func TestRun_EndToEnd(t *testing.T) {
	res, err := Run(threeDayPanel())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Daily) != 3 {
		t.Fatalf("expected 3 daily records, got %d", len(res.Daily))
	}

	d1, d2, d3 := res.Daily[0], res.Daily[1], res.Daily[2]

	// Day 1: seed convention.
	if d1.IndexLevel != 100 || d1.DailyReturnPercent != 0 || d1.CumulativeReturnPercent != 0 {
		t.Errorf("day 1: unexpected values %+v", d1)
	}
	if !d1.IsRebalanceDay || d1.TickersAdded != "A,B" || d1.TickersRemoved != "" || d1.CompositionChangeCount != 2 {
		t.Errorf("day 1: unexpected rebalance fields %+v", d1)
	}
	if d1.RebalanceDate != "2024-01-01" {
		t.Errorf("day 1: expected rebalance date 2024-01-01, got %q", d1.RebalanceDate)
	}

	// Day 2: avg(0.10, -0.05) = 0.025.
	if d2.IndexLevel != 102.5 {
		t.Errorf("day 2: expected level 102.5, got %f", d2.IndexLevel)
	}
	if d2.DailyReturnPercent != 2.5 {
		t.Errorf("day 2: expected return 2.5, got %f", d2.DailyReturnPercent)
	}
	if d2.IsRebalanceDay || d2.TickersAdded != "" || d2.TickersRemoved != "" || d2.CompositionChangeCount != 0 {
		t.Errorf("day 2: expected no rebalance, got %+v", d2)
	}
	if d2.ReturnSampleSize != 2 {
		t.Errorf("day 2: expected 2 contributing tickers, got %d", d2.ReturnSampleSize)
	}

	// Day 3: only A is shared, 11 -> 12.
	if d3.IndexLevel != 111.8182 {
		t.Errorf("day 3: expected level 111.8182, got %f", d3.IndexLevel)
	}
	if d3.DailyReturnPercent != 9.0909 {
		t.Errorf("day 3: expected return 9.0909, got %f", d3.DailyReturnPercent)
	}
	if d3.CumulativeReturnPercent != 11.8182 {
		t.Errorf("day 3: expected cumulative 11.8182, got %f", d3.CumulativeReturnPercent)
	}
	if !d3.IsRebalanceDay || d3.TickersAdded != "C" || d3.TickersRemoved != "B" || d3.CompositionChangeCount != 2 {
		t.Errorf("day 3: unexpected rebalance fields %+v", d3)
	}
	if d3.Constituents != "A,C" {
		t.Errorf("day 3: expected constituents A,C, got %q", d3.Constituents)
	}

	s := res.Summary
	if s.AggregateReturnPercent != d3.CumulativeReturnPercent {
		t.Errorf("summary aggregate %f != last cumulative %f", s.AggregateReturnPercent, d3.CumulativeReturnPercent)
	}
	if !s.BestPerformingDate.Equal(day(3)) {
		t.Errorf("expected best date day 3, got %v", s.BestPerformingDate)
	}
	if !s.WorstPerformingDate.Equal(day(1)) {
		t.Errorf("expected worst date day 1, got %v", s.WorstPerformingDate)
	}
	if s.TotalCompositionChanges != 2 {
		t.Errorf("expected 2 rebalance days, got %d", s.TotalCompositionChanges)
	}
}

func TestRun_Empty(t *testing.T) {
	res, err := Run(nil)
	if !errors.Is(err, ErrEmptySnapshotSequence) {
		t.Fatalf("expected ErrEmptySnapshotSequence, got %v", err)
	}
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}
}

func TestRun_MalformedPrice(t *testing.T) {
	cases := map[string]float64{
		"negative": -1,
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			snaps := threeDayPanel()
			snaps[1] = snap(day(2), map[string]float64{"A": 11, "B": bad})

			_, err := Run(snaps)
			if !errors.Is(err, ErrMalformedSnapshot) {
				t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
			}
			var mErr *MalformedSnapshotError
			if !errors.As(err, &mErr) {
				t.Fatalf("expected *MalformedSnapshotError, got %T", err)
			}
			if mErr.Ticker != "B" || !mErr.Date.Equal(day(2)) {
				t.Errorf("expected offending B on day 2, got %s on %v", mErr.Ticker, mErr.Date)
			}
		})
	}
}

func TestRun_LevelOverflowRejected(t *testing.T) {
	cases := map[string]struct {
		base  float64
		snaps []*domain.Snapshot
	}{
		"huge base": {
			base: 1e308,
			snaps: []*domain.Snapshot{
				snap(day(1), map[string]float64{"A": 1}),
				snap(day(2), map[string]float64{"A": 3}),
				snap(day(3), map[string]float64{"A": 3}),
			},
		},
		"huge ratio": {
			base: 100,
			snaps: []*domain.Snapshot{
				snap(day(1), map[string]float64{"A": 1e-200}),
				snap(day(2), map[string]float64{"A": 1e200}),
				snap(day(3), map[string]float64{"A": 1e200}),
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := NewEngine(Options{BaseLevel: tc.base})
			if _, err := e.Step(tc.snaps[0]); err != nil {
				t.Fatalf("day 1: %v", err)
			}

			_, err := e.Step(tc.snaps[1])
			var mErr *MalformedSnapshotError
			if !errors.As(err, &mErr) {
				t.Fatalf("expected *MalformedSnapshotError, got %v", err)
			}
			if !mErr.Date.Equal(day(2)) || mErr.Reason != "index level overflow" {
				t.Errorf("unexpected error %v", mErr)
			}

			// The rejected day leaves the carried state finite.
			rs := e.RunState()
			if math.IsInf(rs.Accumulator.Level, 0) || math.IsNaN(rs.Accumulator.Multiplier) {
				t.Errorf("state corrupted: %+v", rs.Accumulator)
			}
			if !rs.PreviousDate.Equal(day(1)) {
				t.Errorf("expected previous date day 1, got %v", rs.PreviousDate)
			}

			if _, err := RunWithOptions(tc.snaps, Options{BaseLevel: tc.base}); !errors.Is(err, ErrMalformedSnapshot) {
				t.Errorf("RunWithOptions: expected ErrMalformedSnapshot, got %v", err)
			}
		})
	}
}

func TestRun_DatesMustIncrease(t *testing.T) {
	snaps := threeDayPanel()
	snaps[2].Date = day(2)

	_, err := Run(snaps)
	var mErr *MalformedSnapshotError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected *MalformedSnapshotError, got %v", err)
	}
	if mErr.Reason != "date not strictly increasing" {
		t.Errorf("unexpected reason %q", mErr.Reason)
	}
}

func TestRun_ZeroPriceIsNotAnError(t *testing.T) {
	snaps := []*domain.Snapshot{
		snap(day(1), map[string]float64{"A": 0}),
		snap(day(2), map[string]float64{"A": 10}),
	}

	res, err := Run(snaps)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Daily[1].DailyReturnPercent != 0 || res.Daily[1].ReturnSampleSize != 0 {
		t.Errorf("expected degenerate zero-return day, got %+v", res.Daily[1])
	}
}

func TestRun_CumulativeRecurrence(t *testing.T) {
	snaps := []*domain.Snapshot{
		snap(day(1), map[string]float64{"A": 10, "B": 20, "C": 30}),
		snap(day(2), map[string]float64{"A": 10.5, "B": 19, "C": 31}),
		snap(day(3), map[string]float64{"A": 10.1, "B": 19.7, "D": 4}),
		snap(day(4), map[string]float64{"A": 10.9, "B": 19.1, "D": 4.4}),
		snap(day(5), map[string]float64{"A": 10.2, "B": 21, "D": 4.1}),
	}

	e := NewEngine(Options{})
	mult := 1.0
	for i, s := range snaps {
		rec, err := e.Step(s)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		mult *= 1 + (rec.DailyReturnPercent / 100)
	}

	res, err := e.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	// Emitted percentages are rounded, so the replayed product is
	// only accurate to the rounding of each day.
	last := res.Daily[len(res.Daily)-1]
	if math.Abs((mult-1)*100-last.CumulativeReturnPercent) > 1e-3 {
		t.Errorf("cumulative %f does not match product of daily returns %f", last.CumulativeReturnPercent, (mult-1)*100)
	}

	// The carried multiplier is exact.
	rs := e.RunState()
	assertClose(t, "level/base", rs.Accumulator.Level/100, rs.Accumulator.Multiplier)
}

func TestEngine_StateMachine(t *testing.T) {
	e := NewEngine(Options{BaseLevel: 1000})
	if e.State() != AwaitingFirstDay {
		t.Fatalf("expected AwaitingFirstDay, got %s", e.State())
	}

	if _, err := e.Finish(); !errors.Is(err, ErrEmptySnapshotSequence) {
		t.Fatalf("expected ErrEmptySnapshotSequence, got %v", err)
	}

	rec, err := e.Step(snap(day(1), map[string]float64{"A": 1}))
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if rec.IndexLevel != 1000 {
		t.Errorf("expected base level 1000, got %f", rec.IndexLevel)
	}
	if e.State() != Accumulating {
		t.Fatalf("expected Accumulating, got %s", e.State())
	}

	// A rejected snapshot leaves the engine where it was.
	if _, err := e.Step(snap(day(1), map[string]float64{"A": 2})); err == nil {
		t.Fatal("expected error for repeated date")
	}
	if got := e.RunState().PreviousPrices["A"]; got != 1 {
		t.Errorf("expected previous price 1 after rejected step, got %f", got)
	}

	if _, err := e.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if e.State() != Halted {
		t.Fatalf("expected Halted, got %s", e.State())
	}
	if _, err := e.Step(snap(day(2), map[string]float64{"A": 1})); !errors.Is(err, ErrEngineHalted) {
		t.Errorf("expected ErrEngineHalted, got %v", err)
	}
	if _, err := e.Finish(); !errors.Is(err, ErrEngineHalted) {
		t.Errorf("expected ErrEngineHalted, got %v", err)
	}
}

func TestRun_UnchangedSetNotRebalance(t *testing.T) {
	snaps := []*domain.Snapshot{
		snap(day(1), map[string]float64{"A": 10, "B": 20}),
		snap(day(2), map[string]float64{"A": 50, "B": 1}),
	}
	res, err := Run(snaps)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	d2 := res.Daily[1]
	if d2.IsRebalanceDay || d2.TickersAdded != "" || d2.TickersRemoved != "" || d2.RebalanceDate != "" {
		t.Errorf("expected no rebalance on unchanged set, got %+v", d2)
	}
}

func TestRun_RemovalOnlyDayIsCompositionChange(t *testing.T) {
	snaps := []*domain.Snapshot{
		snap(day(1), map[string]float64{"A": 10, "B": 20}),
		snap(day(2), map[string]float64{"A": 11}),
	}
	res, err := Run(snaps)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	d2 := res.Daily[1]
	if !d2.IsRebalanceDay || d2.TickersAdded != "" || d2.TickersRemoved != "B" {
		t.Errorf("expected removal-only rebalance, got %+v", d2)
	}
	if res.Summary.TotalCompositionChanges != 2 {
		t.Errorf("removal-only day should count, got %d changes", res.Summary.TotalCompositionChanges)
	}
}

func TestRun_RoundingDoesNotFeedBack(t *testing.T) {
	// 1/3 growth each day: rounded levels would drift if re-used.
	snaps := []*domain.Snapshot{
		snap(day(1), map[string]float64{"A": 3}),
		snap(day(2), map[string]float64{"A": 4}),
		snap(day(3), map[string]float64{"A": 16.0 / 3}),
	}
	res, err := Run(snaps)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := 100 * (4.0 / 3) * (4.0 / 3)
	if res.Daily[2].IndexLevel != round4(want) {
		t.Errorf("expected level %f, got %f", round4(want), res.Daily[2].IndexLevel)
	}
}
