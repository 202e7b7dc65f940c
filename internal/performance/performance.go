// Package performance reconstructs a portfolio's day-by-day historical value
// series and a comparably-scaled benchmark series by replaying the trade
// history against daily closing prices.
//
// Reconstruction is a pure function of its inputs: identical trade history
// and price series always produce an identical result. Each day is fully
// re-derived from the starting balance rather than rolled forward, trading
// computation for auditability. Histories here are small enough that this
// does not matter.
package performance

import (
	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/ledger"
	"github.com/apextrader/paper-engine/internal/model"
)

// Reconstruct builds one PortfolioHistoryPoint per benchmark trading day from
// the first trade date onward.
//
// Missing price data never fails the reconstruction: a symbol with no close
// on a given date contributes zero to that day's holdings value, and an
// empty usable history yields an empty result.
func Reconstruct(eng ledger.Engine, trades []model.Trade, benchmark []model.Candle, series map[string][]model.Candle, initialCash decimal.Decimal) []model.PortfolioHistoryPoint {
	if len(trades) == 0 {
		return nil
	}

	firstDate := trades[0].Date()
	for _, t := range trades[1:] {
		if d := t.Date(); d < firstDate {
			firstDate = d
		}
	}

	var restricted []model.Candle
	for _, c := range benchmark {
		if c.Date >= firstDate {
			restricted = append(restricted, c)
		}
	}
	if len(restricted) == 0 {
		return nil
	}

	closes := make(map[string]map[string]decimal.Decimal, len(series))
	for symbol, candles := range series {
		bySymbol := make(map[string]decimal.Decimal, len(candles))
		for _, c := range candles {
			bySymbol[c.Date] = c.Close
		}
		closes[symbol] = bySymbol
	}

	initialBenchmark := restricted[0].Close

	points := make([]model.PortfolioHistoryPoint, 0, len(restricted))
	for _, day := range restricted {
		// Full replay of the history up to and including this date.
		var upTo []model.Trade
		for _, t := range trades {
			if t.Date() <= day.Date {
				upTo = append(upTo, t)
			}
		}
		cash, holdings := eng.Replay(upTo, initialCash)

		holdingsValue := decimal.Zero
		for symbol, h := range holdings {
			if close, ok := closes[symbol][day.Date]; ok {
				holdingsValue = holdingsValue.Add(close.Mul(decimal.NewFromInt(h.Quantity)))
			}
		}

		benchmarkValue := decimal.Zero
		if initialBenchmark.IsPositive() {
			benchmarkValue = day.Close.Div(initialBenchmark).Mul(initialCash)
		}

		points = append(points, model.PortfolioHistoryPoint{
			Date:                  day.Date,
			Value:                 cash.Add(holdingsValue),
			BenchmarkValue:        benchmarkValue,
			InitialPortfolioValue: initialCash,
			InitialBenchmarkValue: initialBenchmark,
		})
	}

	return points
}
