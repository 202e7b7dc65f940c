// Package store defines the persistence interface for the paper-trading
// engine. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing and development).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/model"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. Leaderboard mutations are atomic
// read-modify-writes inside the implementation so concurrent portfolio
// saves cannot lose updates.
type Store interface {
	// --- Portfolios ---

	// GetPortfolio retrieves a portfolio by id. Returns ErrNotFound when
	// the user has never traded.
	GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error)

	// SavePortfolio durably replaces a portfolio's state. The trade
	// history is append-only: existing trade rows are never rewritten.
	SavePortfolio(ctx context.Context, p *model.Portfolio) error

	// ResetPortfolio replaces a portfolio with the given fresh state,
	// discarding all persisted trades and achievements. This is the only
	// operation that removes rows from the append-only history.
	ResetPortfolio(ctx context.Context, p *model.Portfolio) error

	// --- Leaderboard ---

	// UpsertLeaderboard replaces the user's entry and re-ranks the board.
	UpsertLeaderboard(ctx context.Context, userID, username string, value decimal.Decimal) error

	// RemoveLeaderboardEntry drops a user's entry without re-ranking.
	RemoveLeaderboardEntry(ctx context.Context, userID string) error

	// Leaderboard returns the ranked entries, best first.
	Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)

	// --- Community board ---

	// ListUsers returns all registered users.
	ListUsers(ctx context.Context) ([]model.User, error)

	// CreateUser registers a new user.
	CreateUser(ctx context.Context, u *model.User) error

	// ListChats returns all chat boards.
	ListChats(ctx context.Context) ([]model.Chat, error)

	// CreateChat creates a new chat board.
	CreateChat(ctx context.Context, c *model.Chat) error

	// ListMessages returns a chat's messages in send order. Returns
	// ErrNotFound for an unknown chat.
	ListMessages(ctx context.Context, chatID string) ([]model.ChatMessage, error)

	// AppendMessage appends a message to a chat. Returns ErrNotFound for
	// an unknown chat.
	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
}
