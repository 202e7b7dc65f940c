package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestMemoryStore_PortfolioRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.GetPortfolio(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing portfolio, got %v", err)
	}

	p := model.NewPortfolio("p1", d(100000))
	p.Positions = []model.Position{{Symbol: "AAPL", Quantity: 10, AveragePrice: d(50)}}
	if err := s.SavePortfolio(ctx, p); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.GetPortfolio(ctx, "p1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.Cash.Equal(d(100000)) || len(got.Positions) != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	// The store must hand out copies, not shared state.
	got.Positions[0].Quantity = 999
	again, _ := s.GetPortfolio(ctx, "p1")
	if again.Positions[0].Quantity != 10 {
		t.Error("mutating a returned portfolio leaked into the store")
	}
}

func TestMemoryStore_ResetPortfolioDropsHistory(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	p := model.NewPortfolio("p1", d(94999))
	p.Positions = []model.Position{{Symbol: "AAPL", Quantity: 100, AveragePrice: d(50)}}
	p.TradeHistory = []model.Trade{{ID: "t1", Symbol: "AAPL", Quantity: 100, Price: d(50), Side: model.SideBuy, Timestamp: time.Now().UTC()}}
	p.Achievements = []string{"first_trade"}
	if err := s.SavePortfolio(ctx, p); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := s.ResetPortfolio(ctx, model.NewPortfolio("p1", d(100000))); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	got, err := s.GetPortfolio(ctx, "p1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.Cash.Equal(d(100000)) {
		t.Errorf("cash = %s, want 100000", got.Cash)
	}
	if len(got.Positions) != 0 || len(got.TradeHistory) != 0 || len(got.Achievements) != 0 {
		t.Errorf("reset portfolio kept state: %+v", got)
	}
}

func TestMemoryStore_LeaderboardAtomicUpsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.UpsertLeaderboard(ctx, "a", "Alice", d(500))
	s.UpsertLeaderboard(ctx, "b", "Bob", d(900))

	entries, err := s.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != "b" || entries[0].Rank != 1 {
		t.Errorf("unexpected leaderboard %+v", entries)
	}

	s.RemoveLeaderboardEntry(ctx, "b")
	entries, _ = s.Leaderboard(ctx)
	if len(entries) != 1 || entries[0].UserID != "a" {
		t.Errorf("expected only Alice after removal, got %+v", entries)
	}
}

func TestMemoryStore_ChatMessages(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.ListMessages(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown chat, got %v", err)
	}
	if err := s.AppendMessage(ctx, &model.ChatMessage{ChatID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound appending to unknown chat, got %v", err)
	}

	s.CreateChat(ctx, &model.Chat{ID: "c1", Title: "General"})
	msg := &model.ChatMessage{ID: "m1", ChatID: "c1", UserID: "u1", Text: "hi", TS: time.Now().UTC()}
	if err := s.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	msgs, err := s.ListMessages(ctx, "c1")
	if err != nil || len(msgs) != 1 || msgs[0].Text != "hi" {
		t.Errorf("unexpected messages %+v (%v)", msgs, err)
	}
}

func TestMemoryStore_Users(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.CreateUser(ctx, &model.User{ID: "u1", Name: "Alice"})
	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 1 || users[0].Name != "Alice" {
		t.Errorf("unexpected users %+v (%v)", users, err)
	}
}
