// Package marketdata abstracts the market-data vendor behind a Provider
// interface. The engine only ever sees typed quotes, candles, and news;
// vendor wire formats stay inside the implementation.
package marketdata

import (
	"context"
	"errors"

	"github.com/apextrader/paper-engine/internal/model"
)

// ErrUnavailable is returned when the vendor cannot supply a usable quote or
// series (rate limit, unknown symbol, outage). Trade execution treats it as
// fatal for the order: no mutation is attempted without a live price.
var ErrUnavailable = errors.New("marketdata: data unavailable")

// Provider supplies quotes, price history, search, and news for symbols.
// The benchmark ticker goes through the same GetDailyHistory as any symbol.
type Provider interface {
	// GetQuote returns the current quote for a symbol.
	GetQuote(ctx context.Context, symbol string) (*model.Quote, error)

	// GetDailyHistory returns the full daily series, oldest first, one
	// candle per trading day.
	GetDailyHistory(ctx context.Context, symbol string) ([]model.Candle, error)

	// GetIntradayHistory returns intraday candles at the given interval
	// (e.g. "5min"), oldest first.
	GetIntradayHistory(ctx context.Context, symbol, interval string) ([]model.Candle, error)

	// Search returns quote stubs matching a ticker or company-name query.
	Search(ctx context.Context, query string) ([]model.Quote, error)

	// GetNews returns recent news articles for a symbol.
	GetNews(ctx context.Context, symbol string) ([]model.NewsArticle, error)
}
