package marketdata

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equal-weight-index/internal/domain"
)

func TestReadConstituents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constituents.csv")
	content := "Symbol,Security,GICS Sector\nAAPL,Apple Inc.,Information Technology\n\nMSFT, Microsoft ,Information Technology\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	secs, err := ReadConstituents(path)
	require.NoError(t, err)
	assert.Equal(t, []Security{
		{Ticker: "AAPL", Name: "Apple Inc."},
		{Ticker: "MSFT", Name: "Microsoft"},
	}, secs)

	_, err = ReadConstituents(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestWriteAndReadRowsCSV(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := []*domain.PriceRow{
		{Ticker: "AAPL", Security: "Apple Inc.", Date: date, ClosePrice: domain.Float64Ptr(185.64), MarketCap: 2.9e12},
		{Ticker: "BRK.B", Security: "Berkshire Hathaway, Inc.", Date: date, MarketCap: 8.1e11},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRowsCSV(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), "Ticker,Security,Date,Close_Price,Market_Cap\n"))

	got, skipped, err := ReadRowsCSV(&buf)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, got, 2)

	assert.Equal(t, "Berkshire Hathaway, Inc.", got[1].Security)
	assert.Nil(t, got[1].ClosePrice)
	require.NotNil(t, got[0].ClosePrice)
	assert.Equal(t, 185.64, *got[0].ClosePrice)
	assert.True(t, got[0].Date.Equal(date))
}

func TestRowReader_SkipsInvalidRows(t *testing.T) {
	input := strings.Join([]string{
		"Ticker,Security,Date,Close_Price,Market_Cap",
		" AAPL ,Apple,2024-01-02,185.64,2900000000000",
		"MSFT,Microsoft,not-a-date,370,2700000000000",
		",Blank,2024-01-02,1,1",
		"NVDA,Nvidia,2024-01-02,-1,1",
		"AMZN,Amazon,2024-01-02,151.5,abc",
		"GOOG,Alphabet,2024-01-02,,1700000000000",
	}, "\n")

	rr, err := NewRowReader(strings.NewReader(input))
	require.NoError(t, err)

	rows, skipped, err := rr.ReadChunk(10)
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	require.Len(t, rows, 2)
	assert.Equal(t, "AAPL", rows[0].Ticker)
	assert.Equal(t, "GOOG", rows[1].Ticker)

	_, _, err = rr.ReadChunk(10)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestRowReader_Chunks(t *testing.T) {
	var b strings.Builder
	b.WriteString("Ticker,Date,Close_Price,Market_Cap\n")
	for i := 0; i < 5; i++ {
		b.WriteString("T,2024-01-0")
		b.WriteByte(byte('1' + i))
		b.WriteString(",1,1\n")
	}

	rr, err := NewRowReader(strings.NewReader(b.String()))
	require.NoError(t, err)

	var sizes []int
	for {
		rows, _, err := rr.ReadChunk(2)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(rows))
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestNewRowReader_MissingColumn(t *testing.T) {
	_, err := NewRowReader(strings.NewReader("Ticker,Date\nA,2024-01-01\n"))
	assert.Error(t, err)
}

func TestValidateRow(t *testing.T) {
	ok := &domain.PriceRow{Ticker: "A", Date: time.Now(), MarketCap: 1}
	assert.NoError(t, ValidateRow(ok))

	assert.Error(t, ValidateRow(&domain.PriceRow{Ticker: "A", MarketCap: 1}))
	assert.Error(t, ValidateRow(&domain.PriceRow{Ticker: "A", Date: time.Now(), MarketCap: -5}))
}
