package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/model"
)

func avServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
}

func TestGetQuote_ParsesGlobalQuote(t *testing.T) {
	srv := avServer(t, `{"Global Quote": {
		"01. symbol": "AAPL",
		"05. price": "189.4100",
		"08. previous close": "187.0000",
		"09. change": "2.4100",
		"10. change percent": "1.2888%"
	}}`)
	defer srv.Close()

	av := NewAlphaVantage(srv.URL, "test-key")
	quote, err := av.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", quote.Symbol)
	}
	if !quote.Price.Equal(decimal.NewFromFloat(189.41)) {
		t.Errorf("expected price 189.41, got %s", quote.Price)
	}
	if !quote.ChangePercent.Equal(decimal.NewFromFloat(0.012888)) {
		t.Errorf("expected change percent 0.012888, got %s", quote.ChangePercent)
	}
}

func TestGetQuote_EmptyQuoteIsUnavailable(t *testing.T) {
	srv := avServer(t, `{"Global Quote": {}}`)
	defer srv.Close()

	av := NewAlphaVantage(srv.URL, "test-key")
	_, err := av.GetQuote(context.Background(), "NOPE")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGetQuote_RateLimitNoteIsUnavailable(t *testing.T) {
	srv := avServer(t, `{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`)
	defer srv.Close()

	av := NewAlphaVantage(srv.URL, "test-key")
	_, err := av.GetQuote(context.Background(), "AAPL")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on rate limit, got %v", err)
	}
}

func TestGetDailyHistory_SortsOldestFirst(t *testing.T) {
	srv := avServer(t, `{"Time Series (Daily)": {
		"2024-03-04": {"1. open": "186.0", "2. high": "190.0", "3. low": "185.5", "4. close": "189.4", "5. volume": "52000000"},
		"2024-03-01": {"1. open": "184.0", "2. high": "187.2", "3. low": "183.9", "4. close": "187.0", "5. volume": "48000000"}
	}}`)
	defer srv.Close()

	av := NewAlphaVantage(srv.URL, "test-key")
	candles, err := av.GetDailyHistory(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if candles[0].Date != "2024-03-01" || candles[1].Date != "2024-03-04" {
		t.Errorf("expected oldest-first ordering, got %s then %s", candles[0].Date, candles[1].Date)
	}
	if !candles[0].Close.Equal(decimal.NewFromFloat(187.0)) {
		t.Errorf("expected close 187.0, got %s", candles[0].Close)
	}
	if candles[1].Volume != 52000000 {
		t.Errorf("expected volume 52000000, got %d", candles[1].Volume)
	}
}

func TestSearch_MapsMatches(t *testing.T) {
	srv := avServer(t, `{"bestMatches": [
		{"1. symbol": "AAPL", "2. name": "Apple Inc."},
		{"1. symbol": "APLE", "2. name": "Apple Hospitality REIT"}
	]}`)
	defer srv.Close()

	av := NewAlphaVantage(srv.URL, "test-key")
	quotes, err := av.Search(context.Background(), "apple")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(quotes))
	}
	if quotes[0].Symbol != "AAPL" || quotes[0].CompanyName != "Apple Inc." {
		t.Errorf("unexpected first match %+v", quotes[0])
	}
}

func TestGetNews_MapsFeed(t *testing.T) {
	srv := avServer(t, `{"feed": [
		{"title": "Apple launches thing", "url": "https://example.com/a", "time_published": "20240301T120000", "summary": "s", "banner_image": "", "source": "Example"}
	]}`)
	defer srv.Close()

	av := NewAlphaVantage(srv.URL, "test-key")
	articles, err := av.GetNews(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "Apple launches thing" {
		t.Errorf("unexpected articles %+v", articles)
	}
}

func TestStatic_QuoteLifecycle(t *testing.T) {
	s := NewStatic()
	s.SetQuote(model.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(50)})

	q, err := s.GetQuote(context.Background(), "AAPL")
	if err != nil || !q.Price.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected seeded quote, got %v %v", q, err)
	}

	s.RemoveQuote("AAPL")
	if _, err := s.GetQuote(context.Background(), "AAPL"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after removal, got %v", err)
	}
}

func TestQuoteTicker_RefreshesTrackedSymbols(t *testing.T) {
	s := NewStatic()
	s.SetQuote(model.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(50)})

	var mu sync.Mutex
	var got []string
	qt := NewQuoteTicker(s, 10*time.Millisecond, func(q model.Quote) {
		mu.Lock()
		got = append(got, q.Symbol)
		mu.Unlock()
	})
	qt.Track("AAPL")
	qt.Start()
	defer qt.Stop()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("ticker never delivered a quote")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "AAPL" {
		t.Errorf("expected AAPL refresh, got %v", got)
	}
}

func TestQuoteTicker_RestartsAfterStop(t *testing.T) {
	s := NewStatic()
	s.SetQuote(model.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(50)})

	var mu sync.Mutex
	var count int
	qt := NewQuoteTicker(s, 10*time.Millisecond, func(model.Quote) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	qt.Track("AAPL")

	waitForRefresh := func(after int) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			mu.Lock()
			n := count
			mu.Unlock()
			if n > after {
				return
			}
			select {
			case <-deadline:
				t.Fatal("ticker never delivered a quote")
			case <-time.After(10 * time.Millisecond):
			}
		}
	}

	qt.Start()
	waitForRefresh(0)
	qt.Stop()

	mu.Lock()
	stopped := count
	mu.Unlock()

	// A second Start must refresh again instead of exiting on the old
	// closed stop channel.
	qt.Start()
	defer qt.Stop()
	waitForRefresh(stopped)
}
