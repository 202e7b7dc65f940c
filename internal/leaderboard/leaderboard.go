// Package leaderboard maintains the bounded, ranked top-N view of portfolio
// values. A full recompute per update is fine at N <= 100; stores apply these
// functions inside a single read-modify-write so concurrent saves cannot
// lose updates.
package leaderboard

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/model"
)

// MaxEntries bounds the leaderboard to the top 100 portfolios.
const MaxEntries = 100

// Upsert removes any prior entry for userID, appends the new value, sorts
// descending by portfolio value (stable, so equal values keep their merge
// order), truncates to MaxEntries, and renumbers ranks from 1.
func Upsert(entries []model.LeaderboardEntry, userID, username string, value decimal.Decimal) []model.LeaderboardEntry {
	next := Remove(entries, userID)
	next = append(next, model.LeaderboardEntry{
		UserID:         userID,
		Username:       username,
		PortfolioValue: value,
	})

	sort.SliceStable(next, func(i, j int) bool {
		return next[i].PortfolioValue.GreaterThan(next[j].PortfolioValue)
	})

	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}
	for i := range next {
		next[i].Rank = i + 1
	}
	return next
}

// Remove drops the entry for userID. Remaining ranks are left as-is; only
// Upsert renumbers.
func Remove(entries []model.LeaderboardEntry, userID string) []model.LeaderboardEntry {
	next := make([]model.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if e.UserID != userID {
			next = append(next, e)
		}
	}
	return next
}
