package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"equal-weight-index/internal/domain"
)

// Security is a listed ticker with its display name.
type Security struct {
	Ticker string
	Name   string
}

// Bar is one daily aggregate. Only the close and the timestamp are used.
type Bar struct {
	Close       float64 `json:"c"`
	TimestampMs int64   `json:"t"`
}

// Date returns the UTC calendar date of the bar.
func (b Bar) Date() time.Time {
	t := time.UnixMilli(b.TimestampMs).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type tickersResponse struct {
	Results []struct {
		Ticker string `json:"ticker"`
		Name   string `json:"name"`
	} `json:"results"`
	NextURL string `json:"next_url"`
}

type tickerDetailsResponse struct {
	Results *struct {
		MarketCap *float64 `json:"market_cap"`
	} `json:"results"`
}

type aggsResponse struct {
	ResultsCount int   `json:"resultsCount"`
	Results      []Bar `json:"results"`
}

// ActiveTickers lists active stock tickers, limit per page. When
// paginated is true next_url links are followed until exhausted.
func (c *HTTPClient) ActiveTickers(ctx context.Context, limit int, paginated bool) ([]Security, error) {
	next := c.baseURL + "/v3/reference/tickers"
	params := url.Values{
		"market": {"stocks"},
		"active": {"true"},
		"limit":  {strconv.Itoa(limit)},
	}

	var out []Security
	for next != "" {
		var resp tickersResponse
		if err := c.getJSON(ctx, "tickers", next, params, &resp); err != nil {
			return nil, fmt.Errorf("get active tickers: %w", err)
		}
		for _, r := range resp.Results {
			out = append(out, Security{Ticker: r.Ticker, Name: r.Name})
		}

		if !paginated {
			break
		}
		// next_url already carries the cursor and filters.
		next = resp.NextURL
		params = nil
	}

	if len(out) == 0 {
		return nil, ErrNoResults
	}
	return out, nil
}

// MarketCap returns the market capitalisation of ticker on date.
// A response without a market cap yields 0 and no error.
func (c *HTTPClient) MarketCap(ctx context.Context, ticker string, date time.Time) (float64, error) {
	endpoint := c.baseURL + "/v3/reference/tickers/" + url.PathEscape(ticker)
	params := url.Values{"date": {date.Format(domain.DateLayout)}}

	var resp tickerDetailsResponse
	if err := c.getJSON(ctx, "ticker_details", endpoint, params, &resp); err != nil {
		return 0, fmt.Errorf("get market cap %s %s: %w", ticker, date.Format(domain.DateLayout), err)
	}
	if resp.Results == nil || resp.Results.MarketCap == nil {
		return 0, nil
	}
	return *resp.Results.MarketCap, nil
}

// DailyBars returns split-adjusted daily bars for ticker in [from, to].
// Returns ErrNoResults when the range holds no bars.
func (c *HTTPClient) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]Bar, error) {
	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s",
		c.baseURL, url.PathEscape(ticker),
		from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	)
	params := url.Values{"adjusted": {"true"}}

	var resp aggsResponse
	if err := c.getJSON(ctx, "aggs", endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("get daily bars %s: %w", ticker, err)
	}
	if len(resp.Results) == 0 {
		return nil, ErrNoResults
	}
	return resp.Results, nil
}
