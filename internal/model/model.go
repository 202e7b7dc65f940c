// Package model defines the core domain types shared across the paper-trading
// engine. All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order types. Limit and stop fields are recorded for audit; execution always
// fills at the current market quote.
const (
	OrderMarket = "MARKET"
	OrderLimit  = "LIMIT"
	OrderStop   = "STOP"
)

// Trade is an immutable record of an executed paper trade. Once appended to a
// portfolio's history it is never modified or reordered.
type Trade struct {
	ID         string           `json:"id" db:"id"`
	Symbol     string           `json:"symbol" db:"symbol"`
	Quantity   int64            `json:"quantity" db:"quantity"` // whole shares, > 0
	Price      decimal.Decimal  `json:"price" db:"price"`       // execution price per share
	Side       string           `json:"side" db:"side"`         // "BUY" or "SELL"
	OrderType  string           `json:"orderType" db:"order_type"`
	LimitPrice *decimal.Decimal `json:"limitPrice,omitempty" db:"limit_price"`
	StopPrice  *decimal.Decimal `json:"stopPrice,omitempty" db:"stop_price"`
	Timestamp  time.Time        `json:"timestamp" db:"timestamp"`
}

// Date returns the trade's UTC calendar date in ISO form (YYYY-MM-DD), the
// granularity used by daily price series.
func (t Trade) Date() string {
	return t.Timestamp.UTC().Format("2006-01-02")
}

// Position is an open holding in one symbol. Quantity is always positive;
// closed positions are removed from the portfolio, never stored at zero.
// AveragePrice is the quantity-weighted cost basis of the shares still held.
type Position struct {
	Symbol       string          `json:"symbol" db:"symbol"`
	Quantity     int64           `json:"quantity" db:"quantity"`
	AveragePrice decimal.Decimal `json:"averagePrice" db:"average_price"`
}

// Portfolio is the full per-user trading state. TradeHistory is append-only
// and chronological; Achievements grows monotonically and is never revoked.
type Portfolio struct {
	ID           string          `json:"id" db:"id"`
	Cash         decimal.Decimal `json:"cash" db:"cash"`
	Positions    []Position      `json:"positions"`
	TradeHistory []Trade         `json:"tradeHistory"`
	Achievements []string        `json:"achievements"`
}

// Clone returns a deep copy. Mutating the copy never affects the original,
// which is what makes optimistic trade application safe to roll back.
func (p Portfolio) Clone() Portfolio {
	cp := p
	cp.Positions = append([]Position(nil), p.Positions...)
	cp.TradeHistory = append([]Trade(nil), p.TradeHistory...)
	cp.Achievements = append([]string(nil), p.Achievements...)
	return cp
}

// Position returns the open position for symbol, or nil.
func (p *Portfolio) Position(symbol string) *Position {
	for i := range p.Positions {
		if p.Positions[i].Symbol == symbol {
			return &p.Positions[i]
		}
	}
	return nil
}

// HoldingsAtCost values open positions at their average purchase price.
// Used for the leaderboard and the "baller" achievement, which deliberately
// do not require a live quote.
func (p *Portfolio) HoldingsAtCost() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range p.Positions {
		total = total.Add(pos.AveragePrice.Mul(decimal.NewFromInt(pos.Quantity)))
	}
	return total
}

// HasAchievement reports whether the achievement id is already unlocked.
func (p *Portfolio) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// NewPortfolio returns a fresh portfolio with the given starting cash and no
// positions, history, or achievements.
func NewPortfolio(id string, cash decimal.Decimal) *Portfolio {
	return &Portfolio{
		ID:           id,
		Cash:         cash,
		Positions:    []Position{},
		TradeHistory: []Trade{},
		Achievements: []string{},
	}
}

// Achievement is a static catalog entry. A portfolio references unlocked
// achievements by id.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// LeaderboardEntry is one row of the ranked top-N leaderboard view.
type LeaderboardEntry struct {
	UserID         string          `json:"userId" db:"user_id"`
	Username       string          `json:"username" db:"username"`
	PortfolioValue decimal.Decimal `json:"portfolioValue" db:"portfolio_value"`
	Rank           int             `json:"rank" db:"rank"`
}

// PortfolioHistoryPoint is one day of the reconstructed performance series.
// The initial values are carried on every point so consumers can compute
// percentage returns without re-fetching the first point.
type PortfolioHistoryPoint struct {
	Date                  string          `json:"date"`
	Value                 decimal.Decimal `json:"value"`
	BenchmarkValue        decimal.Decimal `json:"benchmarkValue"`
	InitialPortfolioValue decimal.Decimal `json:"initialPortfolioValue"`
	InitialBenchmarkValue decimal.Decimal `json:"initialBenchmarkValue"`
}

// Quote is a current market quote for one symbol.
type Quote struct {
	Symbol        string          `json:"symbol"`
	CompanyName   string          `json:"companyName"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	PreviousClose decimal.Decimal `json:"previousClose"`
}

// Candle is one day (or intraday interval) of OHLCV price data. Date is an
// ISO string so candles from daily series compare and sort lexicographically.
type Candle struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// NewsArticle is a single news item attached to a symbol.
type NewsArticle struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	TimePublished string `json:"time_published"`
	Summary       string `json:"summary"`
	BannerImage   string `json:"banner_image"`
	Source        string `json:"source"`
}

// User is a community board participant.
type User struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Chat is a community chat board.
type Chat struct {
	ID    string `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
}

// ChatMessage is one message on a chat board.
type ChatMessage struct {
	ID     string    `json:"id" db:"id"`
	ChatID string    `json:"chatId" db:"chat_id"`
	UserID string    `json:"userId" db:"user_id"`
	Text   string    `json:"text" db:"text"`
	TS     time.Time `json:"ts" db:"ts"`
}
