package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/leaderboard"
	"github.com/apextrader/paper-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu         sync.RWMutex
	portfolios map[string]model.Portfolio
	entries    []model.LeaderboardEntry
	users      []model.User
	chats      map[string]model.Chat
	messages   map[string][]model.ChatMessage
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		portfolios: make(map[string]model.Portfolio),
		chats:      make(map[string]model.Chat),
		messages:   make(map[string][]model.ChatMessage),
	}
}

func (s *MemoryStore) GetPortfolio(_ context.Context, id string) (*model.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[id]
	if !ok {
		return nil, ErrNotFound
	}
	// Return a copy to avoid external mutation.
	cp := p.Clone()
	return &cp, nil
}

func (s *MemoryStore) SavePortfolio(_ context.Context, p *model.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolios[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) ResetPortfolio(_ context.Context, p *model.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolios[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) UpsertLeaderboard(_ context.Context, userID, username string, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = leaderboard.Upsert(s.entries, userID, username, value)
	return nil
}

func (s *MemoryStore) RemoveLeaderboardEntry(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = leaderboard.Remove(s.entries, userID)
	return nil
}

func (s *MemoryStore) Leaderboard(_ context.Context) ([]model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.LeaderboardEntry(nil), s.entries...), nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.User(nil), s.users...), nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = append(s.users, *u)
	return nil
}

func (s *MemoryStore) ListChats(_ context.Context) ([]model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]model.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		chats = append(chats, c)
	}
	return chats, nil
}

func (s *MemoryStore) CreateChat(_ context.Context, c *model.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats[c.ID] = *c
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, chatID string) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.chats[chatID]; !ok {
		return nil, ErrNotFound
	}
	return append([]model.ChatMessage(nil), s.messages[chatID]...), nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, msg *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[msg.ChatID]; !ok {
		return ErrNotFound
	}
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], *msg)
	return nil
}
