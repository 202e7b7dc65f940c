// Package achievement evaluates the gamification rule catalog against
// portfolio state. Evaluation is pure: no I/O, no mutation, idempotent.
package achievement

import (
	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/model"
)

// Rule ids, in catalog order.
const (
	FirstTrade  = "first_trade"
	ProfitMaker = "profit_maker"
	PaperHands  = "paper_hands"
	Diversified = "diversified"
	Baller      = "baller"
)

// ballerThreshold values the portfolio at cost basis, not market price, so
// checking it never needs a live quote.
var ballerThreshold = decimal.NewFromInt(110000)

// Catalog is the static achievement list, in evaluation order.
var Catalog = []model.Achievement{
	{ID: FirstTrade, Name: "First Trade", Description: "Execute your first trade.", Icon: "Award"},
	{ID: ProfitMaker, Name: "Profit Maker", Description: "Close a position for a profit.", Icon: "TrendingUp"},
	{ID: PaperHands, Name: "Paper Hands", Description: "Close a position for a loss.", Icon: "TrendingDown"},
	{ID: Diversified, Name: "Diversified", Description: "Hold positions in 5 different stocks at once.", Icon: "Gem"},
	{ID: Baller, Name: "Baller", Description: "Grow your portfolio value to $110,000.", Icon: "Rocket"},
}

// ByID returns the catalog entry for an id, or nil.
func ByID(id string) *model.Achievement {
	for i := range Catalog {
		if Catalog[i].ID == id {
			return &Catalog[i]
		}
	}
	return nil
}

type check func(p *model.Portfolio, lastTrade *model.Trade) bool

var checks = map[string]check{
	FirstTrade: func(p *model.Portfolio, _ *model.Trade) bool {
		return len(p.TradeHistory) > 0
	},
	ProfitMaker: func(p *model.Portfolio, lastTrade *model.Trade) bool {
		avg, ok := sellContext(p, lastTrade)
		return ok && lastTrade.Price.GreaterThan(avg)
	},
	PaperHands: func(p *model.Portfolio, lastTrade *model.Trade) bool {
		avg, ok := sellContext(p, lastTrade)
		return ok && lastTrade.Price.LessThan(avg)
	},
	Diversified: func(p *model.Portfolio, _ *model.Trade) bool {
		return len(p.Positions) >= 5
	},
	Baller: func(p *model.Portfolio, _ *model.Trade) bool {
		return p.Cash.Add(p.HoldingsAtCost()).GreaterThanOrEqual(ballerThreshold)
	},
}

// sellContext returns the average buy price across all historical BUY trades
// of the last trade's symbol, including shares no longer held. ok is false
// when the last trade is not a sell or no buys exist for the symbol.
func sellContext(p *model.Portfolio, lastTrade *model.Trade) (decimal.Decimal, bool) {
	if lastTrade == nil || lastTrade.Side != model.SideSell {
		return decimal.Zero, false
	}
	totalCost := decimal.Zero
	var totalQty int64
	for _, t := range p.TradeHistory {
		if t.Symbol == lastTrade.Symbol && t.Side == model.SideBuy {
			totalCost = totalCost.Add(t.Price.Mul(decimal.NewFromInt(t.Quantity)))
			totalQty += t.Quantity
		}
	}
	if totalQty == 0 {
		return decimal.Zero, false
	}
	return totalCost.Div(decimal.NewFromInt(totalQty)), true
}

// Evaluate returns the ids of achievements that are newly satisfied by the
// portfolio state and not yet unlocked, in catalog order. It never returns
// an id already present on the portfolio, so unlocks stay monotonic.
func Evaluate(p *model.Portfolio, lastTrade *model.Trade) []string {
	var unlocked []string
	for _, a := range Catalog {
		if p.HasAchievement(a.ID) {
			continue
		}
		if checks[a.ID](p, lastTrade) {
			unlocked = append(unlocked, a.ID)
		}
	}
	return unlocked
}
