package index

import (
	"math"
	"time"

	"equal-weight-index/internal/domain"
)

// ValidateSnapshot rejects snapshots that cannot be folded safely.
// prevDate is the date of the previously accepted snapshot, or the zero
// time before the first day.
func ValidateSnapshot(s *domain.Snapshot, prevDate time.Time) error {
	if s == nil {
		return &MalformedSnapshotError{Date: prevDate, Reason: "nil snapshot"}
	}
	if s.Date.IsZero() {
		return &MalformedSnapshotError{Reason: "missing date"}
	}
	if !prevDate.IsZero() && !s.Date.After(prevDate) {
		return &MalformedSnapshotError{Date: s.Date, Reason: "date not strictly increasing"}
	}

	for ticker := range s.Tickers {
		if ticker == "" {
			return &MalformedSnapshotError{Date: s.Date, Reason: "empty ticker symbol"}
		}
	}

	for ticker, price := range s.Prices {
		switch {
		case math.IsNaN(price):
			return &MalformedSnapshotError{Date: s.Date, Ticker: ticker, Price: price, Reason: "price is NaN"}
		case math.IsInf(price, 0):
			return &MalformedSnapshotError{Date: s.Date, Ticker: ticker, Price: price, Reason: "price is infinite"}
		case price < 0:
			return &MalformedSnapshotError{Date: s.Date, Ticker: ticker, Price: price, Reason: "negative price"}
		}
	}
	return nil
}
