package performance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/ledger"
	"github.com/apextrader/paper-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func candle(date string, close float64) model.Candle {
	return model.Candle{Date: date, Close: d(close)}
}

func tradeAt(date string, symbol string, qty int64, price float64, side string) model.Trade {
	ts, _ := time.Parse("2006-01-02", date)
	return model.Trade{
		ID: "t-" + date + symbol, Symbol: symbol, Quantity: qty,
		Price: d(price), Side: side, OrderType: model.OrderMarket, Timestamp: ts,
	}
}

var eng = ledger.NewEngine(ledger.DefaultFee)

func TestReconstruct_EmptyTradeHistory(t *testing.T) {
	got := Reconstruct(eng, nil, []model.Candle{candle("2024-03-01", 500)}, nil, d(100000))
	if len(got) != 0 {
		t.Errorf("empty history must yield empty result, got %d points", len(got))
	}
}

func TestReconstruct_NoBenchmarkAfterFirstTrade(t *testing.T) {
	trades := []model.Trade{tradeAt("2024-03-05", "AAPL", 10, 100, model.SideBuy)}
	benchmark := []model.Candle{candle("2024-03-01", 500), candle("2024-03-04", 501)}
	got := Reconstruct(eng, trades, benchmark, nil, d(100000))
	if len(got) != 0 {
		t.Errorf("benchmark entirely before first trade must yield empty result, got %d", len(got))
	}
}

func TestReconstruct_SingleBuyFirstDay(t *testing.T) {
	trades := []model.Trade{tradeAt("2024-03-01", "AAPL", 10, 100, model.SideBuy)}
	benchmark := []model.Candle{candle("2024-03-01", 500)}
	series := map[string][]model.Candle{
		"AAPL": {candle("2024-03-01", 105)},
	}

	got := Reconstruct(eng, trades, benchmark, series, d(100000))
	if len(got) != 1 {
		t.Fatalf("expected 1 point, got %d", len(got))
	}
	// 100000 - 1000 - 1 + 10*105 = 100049
	if !got[0].Value.Equal(d(100049)) {
		t.Errorf("expected value 100049, got %s", got[0].Value)
	}
	// First benchmark point normalizes to the starting cash exactly.
	if !got[0].BenchmarkValue.Equal(d(100000)) {
		t.Errorf("first benchmark point should equal initial cash, got %s", got[0].BenchmarkValue)
	}
	if !got[0].InitialPortfolioValue.Equal(d(100000)) || !got[0].InitialBenchmarkValue.Equal(d(500)) {
		t.Errorf("initial values wrong: %+v", got[0])
	}
}

func TestReconstruct_BenchmarkNormalization(t *testing.T) {
	trades := []model.Trade{tradeAt("2024-03-01", "AAPL", 1, 10, model.SideBuy)}
	benchmark := []model.Candle{
		candle("2024-03-01", 500),
		candle("2024-03-04", 550), // +10%
	}
	got := Reconstruct(eng, trades, benchmark, nil, d(100000))
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if !got[1].BenchmarkValue.Equal(d(110000)) {
		t.Errorf("10%% benchmark gain should map to 110000, got %s", got[1].BenchmarkValue)
	}
}

func TestReconstruct_MissingPriceContributesZero(t *testing.T) {
	trades := []model.Trade{tradeAt("2024-03-01", "AAPL", 10, 100, model.SideBuy)}
	benchmark := []model.Candle{
		candle("2024-03-01", 500),
		candle("2024-03-04", 500),
	}
	// AAPL has a close only on the first day; the second day has a gap.
	series := map[string][]model.Candle{
		"AAPL": {candle("2024-03-01", 105)},
	}

	got := Reconstruct(eng, trades, benchmark, series, d(100000))
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	// Day 2: cash only, holdings contribute zero. 100000 - 1000 - 1 = 98999.
	if !got[1].Value.Equal(d(98999)) {
		t.Errorf("missing close should contribute zero, expected 98999, got %s", got[1].Value)
	}
}

func TestReconstruct_TradesOnlyCountThroughTheirDate(t *testing.T) {
	trades := []model.Trade{
		tradeAt("2024-03-01", "AAPL", 10, 100, model.SideBuy),
		tradeAt("2024-03-05", "AAPL", 10, 100, model.SideSell),
	}
	benchmark := []model.Candle{
		candle("2024-03-01", 500),
		candle("2024-03-04", 500),
		candle("2024-03-05", 500),
	}
	series := map[string][]model.Candle{
		"AAPL": {candle("2024-03-01", 100), candle("2024-03-04", 100), candle("2024-03-05", 100)},
	}

	got := Reconstruct(eng, trades, benchmark, series, d(100000))
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	// Before the sell: 100000 - 1000 - 1 + 10*100 = 99999.
	if !got[1].Value.Equal(d(99999)) {
		t.Errorf("day 2 expected 99999, got %s", got[1].Value)
	}
	// After the sell: 98999 + 1000 - 1 = 99998, no holdings left.
	if !got[2].Value.Equal(d(99998)) {
		t.Errorf("day 3 expected 99998, got %s", got[2].Value)
	}
}

func TestReconstruct_Idempotent(t *testing.T) {
	trades := []model.Trade{
		tradeAt("2024-03-01", "AAPL", 10, 100, model.SideBuy),
		tradeAt("2024-03-04", "TSLA", 5, 200, model.SideBuy),
	}
	benchmark := []model.Candle{candle("2024-03-01", 500), candle("2024-03-04", 505)}
	series := map[string][]model.Candle{
		"AAPL": {candle("2024-03-01", 101), candle("2024-03-04", 102)},
		"TSLA": {candle("2024-03-04", 201)},
	}

	first := Reconstruct(eng, trades, benchmark, series, d(100000))
	second := Reconstruct(eng, trades, benchmark, series, d(100000))

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Value.Equal(second[i].Value) || !first[i].BenchmarkValue.Equal(second[i].BenchmarkValue) {
			t.Errorf("point %d differs between identical runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestReconstruct_EarliestTradeByTimestamp(t *testing.T) {
	// History arrives with a slightly out-of-order first element; the
	// reconstruction window still starts at the earliest timestamp.
	trades := []model.Trade{
		tradeAt("2024-03-04", "TSLA", 1, 200, model.SideBuy),
		tradeAt("2024-03-01", "AAPL", 1, 100, model.SideBuy),
	}
	benchmark := []model.Candle{candle("2024-03-01", 500), candle("2024-03-04", 500)}
	got := Reconstruct(eng, trades, benchmark, nil, d(100000))
	if len(got) != 2 {
		t.Fatalf("expected window from 2024-03-01, got %d points", len(got))
	}
	if got[0].Date != "2024-03-01" {
		t.Errorf("expected first point on 2024-03-01, got %s", got[0].Date)
	}
}
