package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for portfolios and the leaderboard. Writes go to the primary store
// and invalidate the cache; reads check Redis first then fall back.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	data, err := s.rdb.Get(ctx, portfolioKey(id)).Bytes()
	if err == nil {
		var p model.Portfolio
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	p, err := s.primary.GetPortfolio(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cachePortfolio(ctx, p)
	return p, nil
}

func (s *CachedStore) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	data, err := s.rdb.Get(ctx, leaderboardKey()).Bytes()
	if err == nil {
		var entries []model.LeaderboardEntry
		if json.Unmarshal(data, &entries) == nil {
			return entries, nil
		}
	}

	entries, err := s.primary.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(entries); err == nil {
		s.rdb.Set(ctx, leaderboardKey(), data, s.ttl)
	}
	return entries, nil
}

// --- Write-through (write to primary, refresh or invalidate cache) ---

func (s *CachedStore) SavePortfolio(ctx context.Context, p *model.Portfolio) error {
	if err := s.primary.SavePortfolio(ctx, p); err != nil {
		return err
	}
	s.cachePortfolio(ctx, p)
	return nil
}

func (s *CachedStore) ResetPortfolio(ctx context.Context, p *model.Portfolio) error {
	if err := s.primary.ResetPortfolio(ctx, p); err != nil {
		return err
	}
	// Refresh, don't just invalidate: a stale cached copy outliving its TTL
	// would resurrect the pre-reset history.
	s.cachePortfolio(ctx, p)
	return nil
}

func (s *CachedStore) UpsertLeaderboard(ctx context.Context, userID, username string, value decimal.Decimal) error {
	if err := s.primary.UpsertLeaderboard(ctx, userID, username, value); err != nil {
		return err
	}
	// Invalidate; next read re-populates from the re-ranked board.
	s.rdb.Del(ctx, leaderboardKey())
	return nil
}

func (s *CachedStore) RemoveLeaderboardEntry(ctx context.Context, userID string) error {
	if err := s.primary.RemoveLeaderboardEntry(ctx, userID); err != nil {
		return err
	}
	s.rdb.Del(ctx, leaderboardKey())
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.primary.ListUsers(ctx)
}

func (s *CachedStore) CreateUser(ctx context.Context, u *model.User) error {
	return s.primary.CreateUser(ctx, u)
}

func (s *CachedStore) ListChats(ctx context.Context) ([]model.Chat, error) {
	return s.primary.ListChats(ctx)
}

func (s *CachedStore) CreateChat(ctx context.Context, c *model.Chat) error {
	return s.primary.CreateChat(ctx, c)
}

func (s *CachedStore) ListMessages(ctx context.Context, chatID string) ([]model.ChatMessage, error) {
	return s.primary.ListMessages(ctx, chatID)
}

func (s *CachedStore) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	return s.primary.AppendMessage(ctx, msg)
}

// --- Cache helpers ---

func (s *CachedStore) cachePortfolio(ctx context.Context, p *model.Portfolio) {
	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, portfolioKey(p.ID), data, s.ttl)
	}
}

func portfolioKey(id string) string { return fmt.Sprintf("portfolio:%s", id) }
func leaderboardKey() string        { return "leaderboard:global" }
