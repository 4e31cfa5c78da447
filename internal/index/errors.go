package index

import (
	"errors"
	"fmt"
	"time"

	"equal-weight-index/internal/domain"
)

var (
	// ErrEmptySnapshotSequence is returned when there are no days to
	// process, so no summary record can be produced.
	ErrEmptySnapshotSequence = errors.New("empty snapshot sequence")

	// ErrMalformedSnapshot is the sentinel matched by MalformedSnapshotError.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrEngineHalted is returned when an engine is used after Finish.
	ErrEngineHalted = errors.New("engine halted")
)

// MalformedSnapshotError identifies the offending date and ticker of a
// snapshot that would corrupt the cumulative product.
type MalformedSnapshotError struct {
	Date   time.Time
	Ticker string  // empty for snapshot-level problems
	Price  float64 // offending value, when applicable
	Reason string
}

func (e *MalformedSnapshotError) Error() string {
	date := e.Date.Format(domain.DateLayout)
	if e.Ticker == "" {
		return fmt.Sprintf("malformed snapshot %s: %s", date, e.Reason)
	}
	return fmt.Sprintf("malformed snapshot %s: ticker %s: %s (price=%v)", date, e.Ticker, e.Reason, e.Price)
}

// Unwrap lets errors.Is match ErrMalformedSnapshot.
func (e *MalformedSnapshotError) Unwrap() error {
	return ErrMalformedSnapshot
}
