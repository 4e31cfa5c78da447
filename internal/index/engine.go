package index

import (
	"math"
	"time"

	"equal-weight-index/internal/domain"
)

// State is the engine lifecycle position.
type State int

const (
	// AwaitingFirstDay is the initial state; no snapshot has been folded.
	AwaitingFirstDay State = iota
	// Accumulating means at least one day has been folded.
	Accumulating
	// Halted means Finish has emitted the summary record.
	Halted
)

func (s State) String() string {
	switch s {
	case AwaitingFirstDay:
		return "AWAITING_FIRST_DAY"
	case Accumulating:
		return "ACCUMULATING"
	case Halted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// RunState is the value carried between fold steps.
type RunState struct {
	PreviousDate    time.Time
	PreviousTickers domain.TickerSet
	PreviousPrices  map[string]float64
	Accumulator     Accumulator
	Extrema         ExtremumTracker
	RebalanceDays   int
}

// NewRunState returns the initial carried state for the given base level.
func NewRunState(baseLevel float64) RunState {
	return RunState{
		PreviousTickers: domain.TickerSet{},
		PreviousPrices:  map[string]float64{},
		Accumulator:     NewAccumulator(baseLevel),
		Extrema:         NewExtremumTracker(),
	}
}

// Step folds one validated snapshot into state and returns the next
// state together with the day's record. Step does not mutate its input.
func Step(state RunState, s *domain.Snapshot) (RunState, domain.DailyRecord) {
	rb := DetectRebalance(s.Tickers, state.PreviousTickers)

	avg, n := AverageReturn(
		s.Tickers,
		state.PreviousTickers,
		MapLookup(s.Prices),
		MapLookup(state.PreviousPrices),
	)

	acc, basis := state.Accumulator.Advance(avg)
	rec := buildDailyRecord(s, rb, acc, basis, n)

	next := RunState{
		PreviousDate:    s.Date,
		PreviousTickers: s.Tickers,
		PreviousPrices:  s.Prices,
		Accumulator:     acc,
		Extrema:         state.Extrema.Observe(s.Date, basis),
		RebalanceDays:   state.RebalanceDays,
	}
	if rb.IsRebalance {
		next.RebalanceDays++
	}
	return next, rec
}

// Result is the complete output of a run.
type Result struct {
	Daily   []domain.DailyRecord
	Summary domain.SummaryRecord
}

// Options configures an Engine.
type Options struct {
	BaseLevel float64 // inception level; 0 means domain.DefaultBaseLevel
}

// Engine drives the fold as an explicit state machine.
// An Engine is not safe for concurrent use.
type Engine struct {
	state State
	run   RunState
	daily []domain.DailyRecord
}

// NewEngine creates an engine in the AwaitingFirstDay state.
func NewEngine(opts Options) *Engine {
	base := opts.BaseLevel
	if base == 0 {
		base = domain.DefaultBaseLevel
	}
	return &Engine{
		state: AwaitingFirstDay,
		run:   NewRunState(base),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// RunState returns a copy of the carried state.
func (e *Engine) RunState() RunState {
	return e.run
}

// Step validates and folds one snapshot. A malformed snapshot leaves the
// engine unchanged.
func (e *Engine) Step(s *domain.Snapshot) (domain.DailyRecord, error) {
	if e.state == Halted {
		return domain.DailyRecord{}, ErrEngineHalted
	}
	if err := ValidateSnapshot(s, e.run.PreviousDate); err != nil {
		return domain.DailyRecord{}, err
	}

	next, rec := Step(e.run, s)
	if !finite(next.Accumulator.Level) || !finite(next.Accumulator.Multiplier) {
		return domain.DailyRecord{}, &MalformedSnapshotError{
			Date:   s.Date,
			Price:  next.Accumulator.Level,
			Reason: "index level overflow",
		}
	}
	e.run = next
	e.daily = append(e.daily, rec)
	e.state = Accumulating
	return rec, nil
}

// Finish emits the summary record and halts the engine.
// Returns ErrEmptySnapshotSequence if no day was processed.
func (e *Engine) Finish() (*Result, error) {
	switch e.state {
	case Halted:
		return nil, ErrEngineHalted
	case AwaitingFirstDay:
		return nil, ErrEmptySnapshotSequence
	}

	last := e.daily[len(e.daily)-1]
	summary := buildSummary(last, e.run.Extrema, e.run.RebalanceDays)
	e.state = Halted

	return &Result{
		Daily:   e.daily,
		Summary: summary,
	}, nil
}

// Run folds the snapshots with the default base level.
func Run(snapshots []*domain.Snapshot) (*Result, error) {
	return RunWithOptions(snapshots, Options{})
}

// RunWithOptions folds the snapshots in order and returns every daily
// record plus the summary.
func RunWithOptions(snapshots []*domain.Snapshot, opts Options) (*Result, error) {
	if len(snapshots) == 0 {
		return nil, ErrEmptySnapshotSequence
	}

	e := NewEngine(opts)
	for _, s := range snapshots {
		if _, err := e.Step(s); err != nil {
			return nil, err
		}
	}
	return e.Finish()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
