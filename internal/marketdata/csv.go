package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"equal-weight-index/internal/domain"
)

// RawHeader is the column layout of the raw price CSV.
var RawHeader = []string{"Ticker", "Security", "Date", "Close_Price", "Market_Cap"}

var validate = validator.New()

// ValidateRow checks a parsed row against the domain.PriceRow tags.
func ValidateRow(r *domain.PriceRow) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("validate row %s: %w", r.Ticker, err)
	}
	return nil
}

// ReadConstituents reads a constituents CSV: a header row, then ticker in
// the first column and security name in the second. Blank rows are skipped.
func ReadConstituents(path string) ([]Security, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open constituents: %w", err)
	}
	defer f.Close()

	return parseConstituents(f)
}

func parseConstituents(r io.Reader) ([]Security, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read constituents header: %w", err)
	}

	var out []Security
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read constituents: %w", err)
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		sec := Security{Ticker: strings.TrimSpace(rec[0])}
		if len(rec) > 1 {
			sec.Name = strings.TrimSpace(rec[1])
		}
		out = append(out, sec)
	}
	return out, nil
}

// WriteRowsCSV writes rows in the raw CSV layout. A nil close is written
// as an empty field.
func WriteRowsCSV(w io.Writer, rows []*domain.PriceRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RawHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		closePrice := ""
		if r.ClosePrice != nil {
			closePrice = formatFloat(*r.ClosePrice)
		}
		rec := []string{r.Ticker, r.Security, r.DateKey(), closePrice, formatFloat(r.MarketCap)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", r.Ticker, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RowError reports a record that could not be parsed into a row.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// RowReader streams rows from a raw price CSV.
type RowReader struct {
	cr   *csv.Reader
	cols map[string]int
	line int
}

// NewRowReader reads the header and prepares to stream rows.
// Columns are located by name so extra or reordered columns are accepted.
func NewRowReader(r io.Reader) (*RowReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{"Ticker", "Date", "Close_Price", "Market_Cap"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %s", required)
		}
	}

	return &RowReader{cr: cr, cols: cols, line: 1}, nil
}

// Next returns the next row, a *RowError for an unparsable record, or
// io.EOF at the end of input. Tickers are trimmed; rows are not validated.
func (rr *RowReader) Next() (*domain.PriceRow, error) {
	rec, err := rr.cr.Read()
	rr.line++
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &RowError{Line: rr.line, Err: err}
	}

	field := func(name string) string {
		i, ok := rr.cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	row := &domain.PriceRow{
		Ticker:   field("Ticker"),
		Security: field("Security"),
	}

	row.Date, err = domain.ParseDate(field("Date"))
	if err != nil {
		return nil, &RowError{Line: rr.line, Err: fmt.Errorf("parse date: %w", err)}
	}

	if s := field("Close_Price"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &RowError{Line: rr.line, Err: fmt.Errorf("parse close price: %w", err)}
		}
		row.ClosePrice = &v
	}

	if s := field("Market_Cap"); s != "" {
		row.MarketCap, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &RowError{Line: rr.line, Err: fmt.Errorf("parse market cap: %w", err)}
		}
	}

	return row, nil
}

// ReadChunk returns up to n valid rows. Invalid records are counted in
// skipped. The returned error is io.EOF once input is exhausted and no
// rows remain.
func (rr *RowReader) ReadChunk(n int) (rows []*domain.PriceRow, skipped int, err error) {
	for len(rows) < n {
		row, err := rr.Next()
		if errors.Is(err, io.EOF) {
			if len(rows) == 0 {
				return nil, skipped, io.EOF
			}
			return rows, skipped, nil
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, skipped, err
		}
		if ValidateRow(row) != nil {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

// ReadRowsCSV reads every valid row of a raw price CSV.
func ReadRowsCSV(r io.Reader) ([]*domain.PriceRow, int, error) {
	rr, err := NewRowReader(r)
	if err != nil {
		return nil, 0, err
	}

	var all []*domain.PriceRow
	skipped := 0
	for {
		rows, s, err := rr.ReadChunk(1000)
		skipped += s
		if errors.Is(err, io.EOF) {
			return all, skipped, nil
		}
		if err != nil {
			return nil, skipped, err
		}
		all = append(all, rows...)
	}
}
