package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/leaderboard"
	"github.com/apextrader/paper-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// schema is applied idempotently at startup.
const schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id   TEXT PRIMARY KEY,
	cash NUMERIC NOT NULL
);
CREATE TABLE IF NOT EXISTS positions (
	portfolio_id  TEXT NOT NULL REFERENCES portfolios(id),
	symbol        TEXT NOT NULL,
	quantity      BIGINT NOT NULL,
	average_price NUMERIC NOT NULL,
	PRIMARY KEY (portfolio_id, symbol)
);
CREATE TABLE IF NOT EXISTS trades (
	id           TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id),
	symbol       TEXT NOT NULL,
	quantity     BIGINT NOT NULL,
	price        NUMERIC NOT NULL,
	side         TEXT NOT NULL,
	order_type   TEXT NOT NULL,
	limit_price  NUMERIC,
	stop_price   NUMERIC,
	timestamp    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_portfolio_ts ON trades (portfolio_id, timestamp);
CREATE TABLE IF NOT EXISTS portfolio_achievements (
	portfolio_id   TEXT NOT NULL REFERENCES portfolios(id),
	achievement_id TEXT NOT NULL,
	PRIMARY KEY (portfolio_id, achievement_id)
);
CREATE TABLE IF NOT EXISTS leaderboard (
	user_id         TEXT PRIMARY KEY,
	username        TEXT NOT NULL,
	portfolio_value NUMERIC NOT NULL,
	rank            INT NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chats (
	id    TEXT PRIMARY KEY,
	title TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_messages (
	id      TEXT PRIMARY KEY,
	chat_id TEXT NOT NULL REFERENCES chats(id),
	user_id TEXT NOT NULL,
	text    TEXT NOT NULL,
	ts      TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	var cashS string
	err := s.pool.QueryRow(ctx,
		`SELECT cash::TEXT FROM portfolios WHERE id = $1`, id).Scan(&cashS)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get portfolio %s: %w", id, err)
	}

	p := model.NewPortfolio(id, mustDecimal(cashS))

	rows, err := s.pool.Query(ctx,
		`SELECT symbol, quantity, average_price::TEXT
		 FROM positions WHERE portfolio_id = $1 ORDER BY symbol`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pos model.Position
		var avgS string
		if err := rows.Scan(&pos.Symbol, &pos.Quantity, &avgS); err != nil {
			return nil, err
		}
		pos.AveragePrice = mustDecimal(avgS)
		p.Positions = append(p.Positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trades, err := s.tradesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	p.TradeHistory = trades

	achRows, err := s.pool.Query(ctx,
		`SELECT achievement_id FROM portfolio_achievements WHERE portfolio_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer achRows.Close()
	for achRows.Next() {
		var achID string
		if err := achRows.Scan(&achID); err != nil {
			return nil, err
		}
		p.Achievements = append(p.Achievements, achID)
	}
	return p, achRows.Err()
}

func (s *PostgresStore) tradesFor(ctx context.Context, portfolioID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, symbol, quantity, price::TEXT, side, order_type,
		        limit_price::TEXT, stop_price::TEXT, timestamp
		 FROM trades WHERE portfolio_id = $1 ORDER BY timestamp, id`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		var t model.Trade
		var priceS string
		var limitS, stopS *string
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Quantity, &priceS, &t.Side,
			&t.OrderType, &limitS, &stopS, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Price = mustDecimal(priceS)
		t.LimitPrice = decimalPtr(limitS)
		t.StopPrice = decimalPtr(stopS)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *PostgresStore) SavePortfolio(ctx context.Context, p *model.Portfolio) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO portfolios (id, cash) VALUES ($1, $2::NUMERIC)
		 ON CONFLICT (id) DO UPDATE SET cash = EXCLUDED.cash`,
		p.ID, p.Cash.String()); err != nil {
		return err
	}

	// Positions are a full snapshot; rewrite them.
	if _, err := tx.Exec(ctx, `DELETE FROM positions WHERE portfolio_id = $1`, p.ID); err != nil {
		return err
	}
	for _, pos := range p.Positions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO positions (portfolio_id, symbol, quantity, average_price)
			 VALUES ($1, $2, $3, $4::NUMERIC)`,
			p.ID, pos.Symbol, pos.Quantity, pos.AveragePrice.String()); err != nil {
			return err
		}
	}

	// Trades are append-only; conflicts mean the row already exists.
	for _, t := range p.TradeHistory {
		if _, err := tx.Exec(ctx,
			`INSERT INTO trades (id, portfolio_id, symbol, quantity, price, side, order_type, limit_price, stop_price, timestamp)
			 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7, $8::NUMERIC, $9::NUMERIC, $10)
			 ON CONFLICT (id) DO NOTHING`,
			t.ID, p.ID, t.Symbol, t.Quantity, t.Price.String(), t.Side, t.OrderType,
			decimalString(t.LimitPrice), decimalString(t.StopPrice), t.Timestamp); err != nil {
			return err
		}
	}

	// Achievements only ever grow.
	for _, achID := range p.Achievements {
		if _, err := tx.Exec(ctx,
			`INSERT INTO portfolio_achievements (portfolio_id, achievement_id)
			 VALUES ($1, $2) ON CONFLICT DO NOTHING`, p.ID, achID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ResetPortfolio wipes the portfolio's trades, achievements, and positions
// before writing the fresh state. SavePortfolio treats trade and achievement
// rows as append-only, so a plain save after reset would leave the old
// history in place and the next load would resurrect it.
func (s *PostgresStore) ResetPortfolio(ctx context.Context, p *model.Portfolio) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, del := range []string{
		`DELETE FROM trades WHERE portfolio_id = $1`,
		`DELETE FROM portfolio_achievements WHERE portfolio_id = $1`,
		`DELETE FROM positions WHERE portfolio_id = $1`,
	} {
		if _, err := tx.Exec(ctx, del, p.ID); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO portfolios (id, cash) VALUES ($1, $2::NUMERIC)
		 ON CONFLICT (id) DO UPDATE SET cash = EXCLUDED.cash`,
		p.ID, p.Cash.String()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpsertLeaderboard re-ranks inside one transaction so concurrent saves
// serialize on the row lock instead of losing updates.
func (s *PostgresStore) UpsertLeaderboard(ctx context.Context, userID, username string, value decimal.Decimal) error {
	return s.mutateLeaderboard(ctx, func(entries []model.LeaderboardEntry) []model.LeaderboardEntry {
		return leaderboard.Upsert(entries, userID, username, value)
	})
}

func (s *PostgresStore) RemoveLeaderboardEntry(ctx context.Context, userID string) error {
	return s.mutateLeaderboard(ctx, func(entries []model.LeaderboardEntry) []model.LeaderboardEntry {
		return leaderboard.Remove(entries, userID)
	})
}

func (s *PostgresStore) mutateLeaderboard(ctx context.Context, apply func([]model.LeaderboardEntry) []model.LeaderboardEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE leaderboard IN EXCLUSIVE MODE`); err != nil {
		return err
	}

	entries, err := scanLeaderboard(tx, ctx)
	if err != nil {
		return err
	}

	next := apply(entries)

	if _, err := tx.Exec(ctx, `DELETE FROM leaderboard`); err != nil {
		return err
	}
	for _, e := range next {
		if _, err := tx.Exec(ctx,
			`INSERT INTO leaderboard (user_id, username, portfolio_value, rank)
			 VALUES ($1, $2, $3::NUMERIC, $4)`,
			e.UserID, e.Username, e.PortfolioValue.String(), e.Rank); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	return scanLeaderboard(s.pool, ctx)
}

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanLeaderboard(q queryer, ctx context.Context) ([]model.LeaderboardEntry, error) {
	rows, err := q.Query(ctx,
		`SELECT user_id, username, portfolio_value::TEXT, rank
		 FROM leaderboard ORDER BY rank`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		var valueS string
		if err := rows.Scan(&e.UserID, &e.Username, &valueS, &e.Rank); err != nil {
			return nil, err
		}
		e.PortfolioValue = mustDecimal(valueS)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (id, name) VALUES ($1, $2)`, u.ID, u.Name)
	return err
}

func (s *PostgresStore) ListChats(ctx context.Context) ([]model.Chat, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title FROM chats ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []model.Chat
	for rows.Next() {
		var c model.Chat
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (s *PostgresStore) CreateChat(ctx context.Context, c *model.Chat) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO chats (id, title) VALUES ($1, $2)`, c.ID, c.Title)
	return err
}

func (s *PostgresStore) ListMessages(ctx context.Context, chatID string) ([]model.ChatMessage, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1)`, chatID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, chat_id, user_id, text, ts
		 FROM chat_messages WHERE chat_id = $1 ORDER BY ts, id`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []model.ChatMessage{}
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.UserID, &m.Text, &m.TS); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1)`, msg.ChatID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (id, chat_id, user_id, text, ts)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.ChatID, msg.UserID, msg.Text, msg.TS)
	return err
}

func mustDecimal(s string) decimal.Decimal {
	dec, _ := decimal.NewFromString(s)
	return dec
}

func decimalPtr(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	dec := mustDecimal(*s)
	return &dec
}

func decimalString(dec *decimal.Decimal) *string {
	if dec == nil {
		return nil
	}
	s := dec.String()
	return &s
}
