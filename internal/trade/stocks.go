package trade

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apextrader/paper-engine/internal/marketdata"
	"github.com/apextrader/paper-engine/internal/metrics"
	"github.com/apextrader/paper-engine/internal/model"
)

// GetQuote handles GET /api/stocks/{symbol}/quote.
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	quote, err := s.provider.GetQuote(r.Context(), symbol)
	if err != nil {
		metrics.QuoteFailures.Inc()
		if errors.Is(err, marketdata.ErrUnavailable) {
			writeError(w, "quote unavailable for "+symbol, http.StatusBadGateway)
			return
		}
		writeError(w, "failed to fetch quote", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// SearchStocks handles GET /api/stocks/search?q=...
func (s *Service) SearchStocks(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, "missing query parameter q", http.StatusBadRequest)
		return
	}
	results, err := s.provider.Search(r.Context(), q)
	if err != nil {
		writeError(w, "search unavailable", http.StatusBadGateway)
		return
	}
	if results == nil {
		results = []model.Quote{}
	}
	writeJSON(w, http.StatusOK, results)
}

// GetHistory handles GET /api/stocks/{symbol}/history?range=1M.
// Short ranges (1D, 5D) use intraday candles; longer ranges slice the
// daily series by cutoff date.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "1M"
	}

	ctx := r.Context()
	switch rng {
	case "1D", "5D":
		interval := "5min"
		if rng == "5D" {
			interval = "60min"
		}
		candles, err := s.provider.GetIntradayHistory(ctx, symbol, interval)
		if err != nil {
			writeError(w, "history unavailable for "+symbol, http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, candles)
	case "1M", "6M", "1Y":
		candles, err := s.provider.GetDailyHistory(ctx, symbol)
		if err != nil {
			writeError(w, "history unavailable for "+symbol, http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, sliceByRange(candles, rng, time.Now()))
	default:
		writeError(w, "invalid range: "+rng, http.StatusBadRequest)
	}
}

// sliceByRange returns the trailing window of an oldest-first daily series.
// Candle dates are ISO (YYYY-MM-DD) so string comparison orders correctly.
func sliceByRange(candles []model.Candle, rng string, now time.Time) []model.Candle {
	var cutoff time.Time
	switch rng {
	case "1M":
		cutoff = now.AddDate(0, -1, 0)
	case "6M":
		cutoff = now.AddDate(0, -6, 0)
	case "1Y":
		cutoff = now.AddDate(-1, 0, 0)
	default:
		return candles
	}
	day := cutoff.UTC().Format("2006-01-02")
	for i, c := range candles {
		if c.Date >= day {
			return candles[i:]
		}
	}
	return []model.Candle{}
}

// GetNews handles GET /api/stocks/{symbol}/news.
func (s *Service) GetNews(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	articles, err := s.provider.GetNews(r.Context(), symbol)
	if err != nil {
		writeError(w, "news unavailable for "+symbol, http.StatusBadGateway)
		return
	}
	if articles == nil {
		articles = []model.NewsArticle{}
	}
	writeJSON(w, http.StatusOK, articles)
}
