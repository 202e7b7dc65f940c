// Package ledger implements the authoritative cash and cost-basis arithmetic
// for applying trades to a portfolio.
//
// The same arithmetic is used in two places: live trade execution and the
// historical replay behind performance reconstruction. Keeping both on one
// implementation guarantees the reconstructed series agrees with what the
// execution path actually did.
//
// All monetary values use shopspring/decimal — never float64 for money.
package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/model"
)

var (
	// ErrInsufficientFunds is returned when a buy's cost plus commission
	// exceeds available cash.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInsufficientShares is returned when a sell exceeds the held quantity.
	ErrInsufficientShares = errors.New("ledger: insufficient shares")

	// ErrInsufficientProceeds is returned when cash plus sale proceeds would
	// not cover the commission, which would drive cash negative.
	ErrInsufficientProceeds = errors.New("ledger: proceeds do not cover commission")

	// ErrInvalidOrder is returned for malformed order requests.
	ErrInvalidOrder = errors.New("ledger: invalid order")
)

// DefaultFee is the flat commission charged on every trade, buy or sell.
var DefaultFee = decimal.NewFromInt(1)

// symbolRegex matches ticker symbols like AAPL, BRK.B, SPY.
var symbolRegex = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// Order is a validated-on-apply trade request. LimitPrice and StopPrice are
// audit metadata: conditional orders are not enforced, every order fills at
// the supplied execution price.
type Order struct {
	Symbol     string           `json:"symbol"`
	Quantity   int64            `json:"quantity"`
	Side       string           `json:"side"`
	OrderType  string           `json:"orderType"`
	LimitPrice *decimal.Decimal `json:"limitPrice,omitempty"`
	StopPrice  *decimal.Decimal `json:"stopPrice,omitempty"`
}

// Validate checks the order's shape without touching portfolio state.
func (o Order) Validate() error {
	if !symbolRegex.MatchString(o.Symbol) {
		return fmt.Errorf("%w: bad symbol %q", ErrInvalidOrder, o.Symbol)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, o.Quantity)
	}
	if o.Side != model.SideBuy && o.Side != model.SideSell {
		return fmt.Errorf("%w: side must be BUY or SELL, got %q", ErrInvalidOrder, o.Side)
	}
	switch o.OrderType {
	case model.OrderMarket, model.OrderLimit, model.OrderStop:
		return nil
	default:
		return fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, o.OrderType)
	}
}

// Engine applies trades with a fixed per-trade commission. The fee is
// injected rather than read from a global so replays and tests can pin it.
type Engine struct {
	Fee decimal.Decimal
}

// NewEngine returns an engine charging the given flat commission per trade.
func NewEngine(fee decimal.Decimal) Engine {
	return Engine{Fee: fee}
}

// Apply executes one order against a portfolio snapshot at the given
// execution price and returns the resulting snapshot plus the emitted trade
// record. The input portfolio is never mutated: on any error the caller's
// state is byte-for-byte what it was.
func (e Engine) Apply(p model.Portfolio, ord Order, price decimal.Decimal, id string, now time.Time) (model.Portfolio, model.Trade, error) {
	if err := ord.Validate(); err != nil {
		return p, model.Trade{}, err
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return p, model.Trade{}, fmt.Errorf("%w: non-positive execution price %s", ErrInvalidOrder, price)
	}

	next := p.Clone()
	qty := decimal.NewFromInt(ord.Quantity)
	gross := price.Mul(qty)

	switch ord.Side {
	case model.SideBuy:
		total := gross.Add(e.Fee)
		if next.Cash.LessThan(total) {
			return p, model.Trade{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, total, next.Cash)
		}
		next.Cash = next.Cash.Sub(total)
		if pos := next.Position(ord.Symbol); pos != nil {
			// Quantity-weighted cost basis over held shares only.
			totalCost := pos.AveragePrice.Mul(decimal.NewFromInt(pos.Quantity)).Add(gross)
			pos.Quantity += ord.Quantity
			pos.AveragePrice = totalCost.Div(decimal.NewFromInt(pos.Quantity))
		} else {
			next.Positions = append(next.Positions, model.Position{
				Symbol:       ord.Symbol,
				Quantity:     ord.Quantity,
				AveragePrice: price,
			})
		}

	case model.SideSell:
		pos := next.Position(ord.Symbol)
		if pos == nil || pos.Quantity < ord.Quantity {
			held := int64(0)
			if pos != nil {
				held = pos.Quantity
			}
			return p, model.Trade{}, fmt.Errorf("%w: selling %d, holding %d", ErrInsufficientShares, ord.Quantity, held)
		}
		if next.Cash.Add(gross).LessThan(e.Fee) {
			return p, model.Trade{}, fmt.Errorf("%w: cash %s + proceeds %s < fee %s", ErrInsufficientProceeds, next.Cash, gross, e.Fee)
		}
		next.Cash = next.Cash.Add(gross).Sub(e.Fee)
		pos.Quantity -= ord.Quantity
		if pos.Quantity == 0 {
			next.Positions = removePosition(next.Positions, ord.Symbol)
		}
	}

	trade := model.Trade{
		ID:         id,
		Symbol:     ord.Symbol,
		Quantity:   ord.Quantity,
		Price:      price,
		Side:       ord.Side,
		OrderType:  ord.OrderType,
		LimitPrice: ord.LimitPrice,
		StopPrice:  ord.StopPrice,
		Timestamp:  now.UTC(),
	}
	next.TradeHistory = append(next.TradeHistory, trade)

	return next, trade, nil
}

// Holding is the replay-time state of one symbol: quantity held and the
// weighted average cost of those shares.
type Holding struct {
	Quantity     int64
	AveragePrice decimal.Decimal
}

// Replay re-derives cash and holdings by applying each trade in order from a
// fresh starting balance, using exactly the Apply arithmetic. No validation
// is performed: the input is a history of trades that already passed it.
func (e Engine) Replay(trades []model.Trade, initialCash decimal.Decimal) (decimal.Decimal, map[string]Holding) {
	cash := initialCash
	holdings := make(map[string]Holding)

	for _, t := range trades {
		qty := decimal.NewFromInt(t.Quantity)
		gross := t.Price.Mul(qty)
		h := holdings[t.Symbol]

		if t.Side == model.SideBuy {
			cash = cash.Sub(gross).Sub(e.Fee)
			totalCost := h.AveragePrice.Mul(decimal.NewFromInt(h.Quantity)).Add(gross)
			h.Quantity += t.Quantity
			h.AveragePrice = totalCost.Div(decimal.NewFromInt(h.Quantity))
			holdings[t.Symbol] = h
		} else {
			cash = cash.Add(gross).Sub(e.Fee)
			h.Quantity -= t.Quantity
			if h.Quantity <= 0 {
				delete(holdings, t.Symbol)
			} else {
				holdings[t.Symbol] = h
			}
		}
	}

	return cash, holdings
}

func removePosition(positions []model.Position, symbol string) []model.Position {
	out := positions[:0]
	for _, p := range positions {
		if p.Symbol != symbol {
			out = append(out, p)
		}
	}
	return out
}
