package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string, opts ...ClientOption) *HTTPClient {
	base := []ClientOption{
		WithRetryDelay(5 * time.Millisecond),
		WithRateLimit(0),
	}
	return NewHTTPClient(url, "test-key", append(base, opts...)...)
}

func TestHTTPClient_DailyBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/aggs/ticker/AAPL/range/1/day/2024-01-01/2024-01-31" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("adjusted") != "true" {
			t.Errorf("expected adjusted=true")
		}
		if r.URL.Query().Get("apiKey") != "test-key" {
			t.Errorf("expected api key to be sent")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"resultsCount": 2,
			"results": []map[string]interface{}{
				{"c": 185.64, "t": int64(1704171600000)},
				{"c": 184.25, "t": int64(1704258000000)},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	bars, err := client.DailyBars(context.Background(), "AAPL", from, to)
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 185.64 {
		t.Errorf("expected close 185.64, got %f", bars[0].Close)
	}
	if got := bars[0].Date().Format("2006-01-02"); got != "2024-01-02" {
		t.Errorf("expected bar date 2024-01-02, got %s", got)
	}
}

func TestHTTPClient_DailyBars_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultsCount":0}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).DailyBars(context.Background(), "ZZZZ", time.Now(), time.Now())
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}
}

func TestHTTPClient_MarketCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") != "2024-01-02" {
			t.Errorf("expected date param, got %q", r.URL.Query().Get("date"))
		}
		if strings.HasSuffix(r.URL.Path, "/MISSING") {
			w.Write([]byte(`{"results":{"ticker":"MISSING"}}`))
			return
		}
		w.Write([]byte(`{"results":{"ticker":"AAPL","market_cap":2870000000000.5}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	mcap, err := client.MarketCap(context.Background(), "AAPL", date)
	if err != nil {
		t.Fatalf("MarketCap: %v", err)
	}
	if mcap != 2870000000000.5 {
		t.Errorf("unexpected market cap %f", mcap)
	}

	mcap, err = client.MarketCap(context.Background(), "MISSING", date)
	if err != nil {
		t.Fatalf("MarketCap missing: %v", err)
	}
	if mcap != 0 {
		t.Errorf("expected 0 for missing market cap, got %f", mcap)
	}
}

func TestHTTPClient_ActiveTickers_Paginated(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			if r.URL.Query().Get("market") != "stocks" || r.URL.Query().Get("active") != "true" {
				t.Errorf("expected stock/active filters on first page")
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"results":  []map[string]string{{"ticker": "AAPL", "name": "Apple Inc."}},
				"next_url": server.URL + "/v3/reference/tickers?cursor=abc",
			})
			return
		}
		if r.URL.Query().Get("apiKey") != "test-key" {
			t.Errorf("expected api key on next_url request")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]string{{"ticker": "MSFT", "name": "Microsoft Corp"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	secs, err := client.ActiveTickers(context.Background(), 100, true)
	if err != nil {
		t.Fatalf("ActiveTickers: %v", err)
	}
	if len(secs) != 2 || secs[1].Ticker != "MSFT" || secs[0].Name != "Apple Inc." {
		t.Errorf("unexpected securities %+v", secs)
	}

	secs, err = client.ActiveTickers(context.Background(), 100, false)
	if err != nil {
		t.Fatalf("ActiveTickers single page: %v", err)
	}
	if len(secs) != 1 {
		t.Errorf("expected only the first page, got %d", len(secs))
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		switch count {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
			return
		case 2:
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"results":{"market_cap":10}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	mcap, err := client.MarketCap(context.Background(), "AAPL", time.Now())
	if err != nil {
		t.Fatalf("MarketCap: %v", err)
	}
	if mcap != 10 {
		t.Errorf("expected 10, got %f", mcap)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).MarketCap(context.Background(), "AAPL", time.Now())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts.Load() != int32(DefaultMaxRetries+1) {
		t.Errorf("expected %d attempts, got %d", DefaultMaxRetries+1, attempts.Load())
	}
}

func TestHTTPClient_ClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":"ERROR"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).DailyBars(context.Background(), "AAPL", time.Now(), time.Now())

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", statusErr.Code)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", attempts.Load())
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithRetryDelay(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.MarketCap(ctx, "AAPL", time.Now())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
