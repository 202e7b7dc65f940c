// Package trade provides the HTTP handlers and business logic for executing
// paper trades, querying portfolios, and serving performance analytics.
//
// All monetary values use shopspring/decimal — never float64 for money.
package trade

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/achievement"
	"github.com/apextrader/paper-engine/internal/ledger"
	"github.com/apextrader/paper-engine/internal/marketdata"
	"github.com/apextrader/paper-engine/internal/metrics"
	"github.com/apextrader/paper-engine/internal/model"
	"github.com/apextrader/paper-engine/internal/performance"
	"github.com/apextrader/paper-engine/internal/store"
)

// Single-portfolio defaults, matching the dashboard's solo-player mode.
const (
	DefaultPortfolioID = "default-user"
	DefaultUsername    = "ApexAlpha"
)

// Options configures a Service.
type Options struct {
	InitialCash decimal.Decimal
	Fee         decimal.Decimal
	Benchmark   string
}

// Service handles portfolio operations. A mutex serializes trade execution
// so a second mutation never builds on a pre-persistence intermediate state
// (single-instance; for horizontal scaling, replace with distributed locking
// or database-level optimistic concurrency).
type Service struct {
	store    store.Store
	provider marketdata.Provider
	engine   ledger.Engine
	opts     Options
	mu       sync.Mutex
	// Optional: nil hub disables broadcasts, nil ticker disables tracking.
	wsHub  *WSHub
	ticker *marketdata.QuoteTicker
}

// NewService creates a new trade service. Pass nil for hub and ticker if
// real-time broadcasting is not needed.
func NewService(st store.Store, provider marketdata.Provider, opts Options, hub *WSHub, ticker *marketdata.QuoteTicker) *Service {
	return &Service{
		store:    st,
		provider: provider,
		engine:   ledger.NewEngine(opts.Fee),
		opts:     opts,
		wsHub:    hub,
		ticker:   ticker,
	}
}

// RegisterRoutes mounts all API routes on the router.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/portfolio", s.GetPortfolio)
	r.Post("/portfolio/reset", s.ResetPortfolio)
	r.Get("/portfolio/analytics", s.GetAnalytics)
	r.Post("/trade", s.ExecuteTrade)
	r.Get("/leaderboard", s.GetLeaderboard)
	r.Get("/achievements", s.GetAchievements)

	r.Get("/stocks/search", s.SearchStocks)
	r.Get("/stocks/{symbol}/quote", s.GetQuote)
	r.Get("/stocks/{symbol}/history", s.GetHistory)
	r.Get("/stocks/{symbol}/news", s.GetNews)

	r.Get("/users", s.ListUsers)
	r.Post("/users", s.CreateUser)
	r.Get("/chats", s.ListChats)
	r.Post("/chats", s.CreateChat)
	r.Get("/chats/{chatID}/messages", s.ListMessages)
	r.Post("/chats/{chatID}/messages", s.PostMessage)
}

// --- Request/Response types ---

// TradeResponse is the JSON body returned from POST /api/trade.
type TradeResponse struct {
	Portfolio *model.Portfolio    `json:"portfolio"`
	Trade     model.Trade         `json:"trade"`
	Unlocked  []model.Achievement `json:"unlockedAchievements"`
}

// --- Portfolio handlers ---

// GetPortfolio handles GET /api/portfolio. A portfolio is created on first
// access with the starting cash balance.
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.loadOrCreate(r)
	if err != nil {
		writeError(w, "failed to load portfolio", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ExecuteTrade handles POST /api/trade.
// Resolves the live quote, applies the order atomically, persists, updates
// the leaderboard, and reports any newly unlocked achievements.
func (s *Service) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var ord ledger.Order
	if err := json.NewDecoder(r.Body).Decode(&ord); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if ord.OrderType == "" {
		ord.OrderType = model.OrderMarket
	}
	if err := ord.Validate(); err != nil {
		metrics.TradeRejections.WithLabelValues("invalid_order").Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Quote resolution happens before any mutation: no price, no trade.
	quote, err := s.provider.GetQuote(ctx, ord.Symbol)
	if err != nil {
		metrics.QuoteFailures.Inc()
		writeError(w, "price unavailable for "+ord.Symbol, http.StatusBadGateway)
		return
	}

	// Serialize trade execution.
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadOrCreate(r)
	if err != nil {
		writeError(w, "failed to load portfolio", http.StatusServiceUnavailable)
		return
	}

	next, trade, err := s.engine.Apply(*p, ord, quote.Price, uuid.New().String(), time.Now())
	if err != nil {
		s.rejectTrade(w, err)
		return
	}

	// Achievements evaluate against the post-trade state; unlocks are
	// appended in catalog order and never revoked.
	unlockedIDs := achievement.Evaluate(&next, &trade)
	next.Achievements = append(next.Achievements, unlockedIDs...)

	// Persist the optimistic snapshot. On failure the pre-trade state in
	// the store stays authoritative and the local snapshot is discarded.
	if err := s.store.SavePortfolio(ctx, &next); err != nil {
		slog.Error("portfolio save failed, rolling back trade", "err", err, "trade_id", trade.ID)
		writeError(w, "failed to save portfolio, trade not applied", http.StatusServiceUnavailable)
		return
	}

	// Leaderboard values holdings at cost basis so no quote is needed.
	value := next.Cash.Add(next.HoldingsAtCost())
	if err := s.store.UpsertLeaderboard(ctx, next.ID, DefaultUsername, value); err != nil {
		slog.Warn("leaderboard update failed", "err", err, "user", next.ID)
	}

	unlocked := make([]model.Achievement, 0, len(unlockedIDs))
	for _, id := range unlockedIDs {
		if a := achievement.ByID(id); a != nil {
			unlocked = append(unlocked, *a)
		}
		metrics.AchievementsUnlocked.WithLabelValues(id).Inc()
	}

	metrics.TradesTotal.WithLabelValues(trade.Side).Inc()
	metrics.TradeLatency.WithLabelValues(trade.Side).Observe(time.Since(start).Seconds())

	if s.ticker != nil {
		s.ticker.Track(trade.Symbol)
	}

	slog.Info("trade executed",
		"trade_id", trade.ID,
		"user", next.ID,
		"symbol", trade.Symbol,
		"side", trade.Side,
		"qty", trade.Quantity,
		"price", trade.Price.String(),
		"cash", next.Cash.String(),
		"unlocked", unlockedIDs,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     EventTradeExecuted,
			UserID:   next.ID,
			Symbol:   trade.Symbol,
			Side:     trade.Side,
			Quantity: trade.Quantity,
			Price:    trade.Price.String(),
			Cash:     next.Cash.Round(2).String(),
		})
		for _, id := range unlockedIDs {
			s.wsHub.Broadcast(WSMessage{
				Type:        EventAchievementUnlocked,
				UserID:      next.ID,
				Achievement: id,
			})
		}
	}

	writeJSON(w, http.StatusOK, TradeResponse{Portfolio: &next, Trade: trade, Unlocked: unlocked})
}

func (s *Service) rejectTrade(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		metrics.TradeRejections.WithLabelValues("insufficient_funds").Inc()
		writeError(w, "not enough cash for purchase and commission", http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrInsufficientShares):
		metrics.TradeRejections.WithLabelValues("insufficient_shares").Inc()
		writeError(w, "not enough shares to sell", http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrInsufficientProceeds):
		metrics.TradeRejections.WithLabelValues("insufficient_proceeds").Inc()
		writeError(w, "proceeds do not cover the commission", http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrInvalidOrder):
		metrics.TradeRejections.WithLabelValues("invalid_order").Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		writeError(w, "trade failed", http.StatusInternalServerError)
	}
}

// ResetPortfolio handles POST /api/portfolio/reset.
// Reinitializes to the starting balance and resets the leaderboard value.
func (s *Service) ResetPortfolio(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := r.Context()
	p := model.NewPortfolio(portfolioID(r), s.opts.InitialCash)
	if err := s.store.ResetPortfolio(ctx, p); err != nil {
		writeError(w, "failed to reset portfolio", http.StatusServiceUnavailable)
		return
	}
	if err := s.store.UpsertLeaderboard(ctx, p.ID, DefaultUsername, p.Cash); err != nil {
		slog.Warn("leaderboard update failed", "err", err, "user", p.ID)
	}

	slog.Info("portfolio reset", "user", p.ID)
	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: EventPortfolioReset, UserID: p.ID, Cash: p.Cash.String()})
	}
	writeJSON(w, http.StatusOK, p)
}

// GetAnalytics handles GET /api/portfolio/analytics.
// Rebuilds the full daily value series and the normalized benchmark overlay
// by replaying the trade history against historical closes.
func (s *Service) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := s.loadOrCreate(r)
	if err != nil {
		writeError(w, "failed to load portfolio", http.StatusServiceUnavailable)
		return
	}
	if len(p.TradeHistory) == 0 {
		writeJSON(w, http.StatusOK, []model.PortfolioHistoryPoint{})
		return
	}

	benchmark, err := s.provider.GetDailyHistory(ctx, s.opts.Benchmark)
	if err != nil {
		writeError(w, "benchmark history unavailable", http.StatusBadGateway)
		return
	}

	series := make(map[string][]model.Candle)
	for _, t := range p.TradeHistory {
		if _, ok := series[t.Symbol]; ok {
			continue
		}
		candles, err := s.provider.GetDailyHistory(ctx, t.Symbol)
		if err != nil {
			// Missing data degrades to a zero contribution, never an error.
			slog.Warn("price history unavailable", "symbol", t.Symbol, "err", err)
			continue
		}
		series[t.Symbol] = candles
	}

	start := time.Now()
	points := performance.Reconstruct(s.engine, p.TradeHistory, benchmark, series, s.opts.InitialCash)
	metrics.ReconstructionDuration.Observe(time.Since(start).Seconds())

	// Currency-style rounding happens only here, at presentation.
	out := make([]model.PortfolioHistoryPoint, len(points))
	for i, pt := range points {
		pt.Value = pt.Value.Round(2)
		pt.BenchmarkValue = pt.BenchmarkValue.Round(2)
		out[i] = pt
	}
	writeJSON(w, http.StatusOK, out)
}

// GetLeaderboard handles GET /api/leaderboard.
func (s *Service) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.Leaderboard(r.Context())
	if err != nil {
		writeError(w, "failed to load leaderboard", http.StatusServiceUnavailable)
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetAchievements handles GET /api/achievements — the static catalog.
func (s *Service) GetAchievements(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, achievement.Catalog)
}

// loadOrCreate returns the request's portfolio, creating and persisting a
// fresh one with the starting balance on first access.
func (s *Service) loadOrCreate(r *http.Request) (*model.Portfolio, error) {
	ctx := r.Context()
	id := portfolioID(r)

	p, err := s.store.GetPortfolio(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		p = model.NewPortfolio(id, s.opts.InitialCash)
		if err := s.store.SavePortfolio(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return p, err
}

// portfolioID resolves the acting portfolio. The dashboard is single-player
// today; the query override keeps the API multi-portfolio capable.
func portfolioID(r *http.Request) string {
	if id := r.URL.Query().Get("portfolio"); id != "" {
		return id
	}
	return DefaultPortfolioID
}

// --- Shared helpers ---

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
