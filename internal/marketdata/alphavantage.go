package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/model"
)

// AlphaVantage implements Provider against the Alpha Vantage REST API.
// Free-tier keys are heavily rate limited; limit responses come back as a
// "Note"/"Information" payload rather than an HTTP error, and are mapped to
// ErrUnavailable.
type AlphaVantage struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAlphaVantage creates a provider for the given endpoint and API key.
func NewAlphaVantage(baseURL, apiKey string) *AlphaVantage {
	return &AlphaVantage{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *AlphaVantage) get(ctx context.Context, params url.Values, out any) error {
	params.Set("apikey", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Rate limits and soft errors arrive as 200s with a message payload.
	var probe struct {
		Note        string `json:"Note"`
		Information string `json:"Information"`
		ErrMessage  string `json:"Error Message"`
	}
	if json.Unmarshal(body, &probe) == nil {
		if probe.Note != "" || probe.Information != "" {
			return fmt.Errorf("%w: rate limited", ErrUnavailable)
		}
		if probe.ErrMessage != "" {
			return fmt.Errorf("%w: %s", ErrUnavailable, probe.ErrMessage)
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: bad response: %v", ErrUnavailable, err)
	}
	return nil
}

type avGlobalQuote struct {
	Quote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		PreviousClose string `json:"08. previous close"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
}

func (a *AlphaVantage) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	params := url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}}
	var resp avGlobalQuote
	if err := a.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Quote.Symbol == "" || resp.Quote.Price == "" {
		return nil, fmt.Errorf("%w: no quote for %s", ErrUnavailable, symbol)
	}

	price, err := decimal.NewFromString(resp.Quote.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: bad price %q", ErrUnavailable, resp.Quote.Price)
	}
	change, _ := decimal.NewFromString(resp.Quote.Change)
	prevClose, _ := decimal.NewFromString(resp.Quote.PreviousClose)

	changePct := decimal.Zero
	if pct, err := decimal.NewFromString(strings.TrimSuffix(resp.Quote.ChangePercent, "%")); err == nil {
		changePct = pct.Div(decimal.NewFromInt(100))
	}

	return &model.Quote{
		Symbol:        resp.Quote.Symbol,
		CompanyName:   resp.Quote.Symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		PreviousClose: prevClose,
	}, nil
}

type avCandle struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// parseSeries converts an Alpha Vantage time-series map (newest first by
// key) into candles sorted oldest first.
func parseSeries(series map[string]avCandle) []model.Candle {
	candles := make([]model.Candle, 0, len(series))
	for date, v := range series {
		open, _ := decimal.NewFromString(v.Open)
		high, _ := decimal.NewFromString(v.High)
		low, _ := decimal.NewFromString(v.Low)
		closePx, err := decimal.NewFromString(v.Close)
		if err != nil {
			continue
		}
		volume, _ := strconv.ParseInt(v.Volume, 10, 64)
		candles = append(candles, model.Candle{
			Date: date, Open: open, High: high, Low: low, Close: closePx, Volume: volume,
		})
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Date < candles[j].Date })
	return candles
}

func (a *AlphaVantage) GetDailyHistory(ctx context.Context, symbol string) ([]model.Candle, error) {
	params := url.Values{
		"function":   {"TIME_SERIES_DAILY_ADJUSTED"},
		"symbol":     {symbol},
		"outputsize": {"full"},
	}
	var resp struct {
		Series map[string]avCandle `json:"Time Series (Daily)"`
	}
	if err := a.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	return parseSeries(resp.Series), nil
}

func (a *AlphaVantage) GetIntradayHistory(ctx context.Context, symbol, interval string) ([]model.Candle, error) {
	params := url.Values{
		"function": {"TIME_SERIES_INTRADAY"},
		"symbol":   {symbol},
		"interval": {interval},
	}
	var resp map[string]json.RawMessage
	if err := a.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	raw, ok := resp[fmt.Sprintf("Time Series (%s)", interval)]
	if !ok {
		return nil, nil
	}
	var series map[string]avCandle
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("%w: bad series: %v", ErrUnavailable, err)
	}
	return parseSeries(series), nil
}

type avSearchMatch struct {
	Symbol string `json:"1. symbol"`
	Name   string `json:"2. name"`
}

func (a *AlphaVantage) Search(ctx context.Context, query string) ([]model.Quote, error) {
	if query == "" {
		return nil, nil
	}
	params := url.Values{"function": {"SYMBOL_SEARCH"}, "keywords": {query}}
	var resp struct {
		Matches []avSearchMatch `json:"bestMatches"`
	}
	if err := a.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	quotes := make([]model.Quote, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		// Search results carry no price; callers fetch quotes on demand.
		quotes = append(quotes, model.Quote{Symbol: m.Symbol, CompanyName: m.Name})
	}
	return quotes, nil
}

type avNewsItem struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	TimePublished string `json:"time_published"`
	Summary       string `json:"summary"`
	BannerImage   string `json:"banner_image"`
	Source        string `json:"source"`
}

func (a *AlphaVantage) GetNews(ctx context.Context, symbol string) ([]model.NewsArticle, error) {
	params := url.Values{
		"function": {"NEWS_SENTIMENT"},
		"tickers":  {symbol},
		"limit":    {"20"},
	}
	var resp struct {
		Feed []avNewsItem `json:"feed"`
	}
	if err := a.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	articles := make([]model.NewsArticle, 0, len(resp.Feed))
	for _, item := range resp.Feed {
		articles = append(articles, model.NewsArticle{
			Title:         item.Title,
			URL:           item.URL,
			TimePublished: item.TimePublished,
			Summary:       item.Summary,
			BannerImage:   item.BannerImage,
			Source:        item.Source,
		})
	}
	return articles, nil
}
