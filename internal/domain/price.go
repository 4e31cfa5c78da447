package domain

import "time"

// DateLayout is the calendar date format used in every input and output.
const DateLayout = "2006-01-02"

// PriceRow represents one daily observation for a listed security.
// Corresponds to the stock_prices table in PostgreSQL.
// A nil ClosePrice marks a missing close.
type PriceRow struct {
	Ticker     string    `validate:"required"`
	Security   string    `validate:"-"`
	Date       time.Time `validate:"required"`
	ClosePrice *float64  `validate:"omitempty,gte=0"`
	MarketCap  float64   `validate:"gte=0"`
}

// DateKey returns the row date formatted as YYYY-MM-DD.
func (r *PriceRow) DateKey() string {
	return r.Date.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}
