package marketdata

import (
	"context"
	"sync"

	"github.com/apextrader/paper-engine/internal/model"
)

// Static implements Provider from fixed in-memory data. Used in tests and
// for development without a vendor API key. Symbols without seeded data
// return ErrUnavailable, which makes quote-failure paths easy to exercise.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]model.Quote
	daily  map[string][]model.Candle
	news   map[string][]model.NewsArticle
}

// NewStatic creates an empty static provider. Seed it with SetQuote and
// SetDailyHistory.
func NewStatic() *Static {
	return &Static{
		quotes: make(map[string]model.Quote),
		daily:  make(map[string][]model.Candle),
		news:   make(map[string][]model.NewsArticle),
	}
}

// SetQuote seeds or replaces the current quote for a symbol.
func (s *Static) SetQuote(q model.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.Symbol] = q
}

// RemoveQuote drops a symbol's quote so lookups fail with ErrUnavailable.
func (s *Static) RemoveQuote(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotes, symbol)
}

// SetDailyHistory seeds the daily series for a symbol, oldest first.
func (s *Static) SetDailyHistory(symbol string, candles []model.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily[symbol] = candles
}

// SetNews seeds news articles for a symbol.
func (s *Static) SetNews(symbol string, articles []model.NewsArticle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.news[symbol] = articles
}

func (s *Static) GetQuote(_ context.Context, symbol string) (*model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return nil, ErrUnavailable
	}
	return &q, nil
}

func (s *Static) GetDailyHistory(_ context.Context, symbol string) ([]model.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Candle(nil), s.daily[symbol]...), nil
}

func (s *Static) GetIntradayHistory(_ context.Context, symbol, _ string) ([]model.Candle, error) {
	return s.GetDailyHistory(context.Background(), symbol)
}

func (s *Static) Search(_ context.Context, query string) ([]model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Quote
	for _, q := range s.quotes {
		if query == "" || q.Symbol == query {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Static) GetNews(_ context.Context, symbol string) ([]model.NewsArticle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.NewsArticle(nil), s.news[symbol]...), nil
}
