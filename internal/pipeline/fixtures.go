package pipeline

import (
	"context"
	"math"
	"time"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/storage"
)

// DemoUniverseSize is the universe size the demo panel is built for.
const DemoUniverseSize = 8

type fixtureSecurity struct {
	ticker string
	name   string
	base   float64 // first-day close
	shares float64 // billions of shares
	drift  float64 // daily drift
}

// Seven large names always rank in the top 8. TSLA holds the last slot
// until V's market cap jumps on the fifth trading day.
var fixtureSecurities = []fixtureSecurity{
	{"AAPL", "Apple Inc.", 185, 15.4, 0.002},
	{"MSFT", "Microsoft Corp.", 370, 7.43, 0.001},
	{"GOOGL", "Alphabet Inc.", 138, 12.5, -0.001},
	{"AMZN", "Amazon.com Inc.", 150, 10.4, 0.003},
	{"NVDA", "NVIDIA Corp.", 480, 2.47, 0.004},
	{"META", "Meta Platforms Inc.", 345, 2.57, 0.002},
	{"BRK.B", "Berkshire Hathaway Inc.", 355, 2.2, 0.0005},
	{"TSLA", "Tesla Inc.", 250, 2.12, -0.002},
	{"LLY", "Eli Lilly and Co.", 590, 0.83, 0.001},
	{"V", "Visa Inc.", 260, 1.85, 0.001},
	{"JPM", "JPMorgan Chase & Co.", 170, 2.76, 0.0},
	{"AVGO", "Broadcom Inc.", 1000, 0.45, 0.002},
}

// fixtureDates are ten NYSE sessions; Jan 15 2024 was a holiday.
var fixtureDates = []string{
	"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08",
	"2024-01-09", "2024-01-10", "2024-01-11", "2024-01-12", "2024-01-16",
}

// FixtureRows returns the deterministic demo panel. It includes one
// missing close (META on the fourth day) and one zero close (NVDA on the
// seventh day).
func FixtureRows() []*domain.PriceRow {
	rows := make([]*domain.PriceRow, 0, len(fixtureSecurities)*len(fixtureDates))

	for d, ds := range fixtureDates {
		date, err := domain.ParseDate(ds)
		if err != nil {
			panic(err)
		}
		for i, s := range fixtureSecurities {
			rows = append(rows, fixtureRow(i, d, s, date))
		}
	}
	return rows
}

func fixtureRow(i, d int, s fixtureSecurity, date time.Time) *domain.PriceRow {
	wiggle := float64((i*31+d*17)%9-4) / 200
	closePrice := round2(s.base * (1 + s.drift*float64(d) + wiggle))

	shares := s.shares
	if s.ticker == "V" && d >= 4 {
		shares *= 1.25
	}

	row := &domain.PriceRow{
		Ticker:     s.ticker,
		Security:   s.name,
		Date:       date,
		ClosePrice: domain.Float64Ptr(closePrice),
		MarketCap:  round2(closePrice * shares),
	}

	switch {
	case s.ticker == "META" && d == 3:
		row.ClosePrice = nil
		row.MarketCap = round2(s.base * shares)
	case s.ticker == "NVDA" && d == 6:
		row.ClosePrice = domain.Float64Ptr(0)
		row.MarketCap = round2(s.base * shares)
	}
	return row
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LoadFixtures populates the price store with the demo panel.
func LoadFixtures(ctx context.Context, priceStore storage.PriceStore) error {
	return priceStore.InsertBulk(ctx, FixtureRows())
}
