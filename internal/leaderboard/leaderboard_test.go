package leaderboard

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/apextrader/paper-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestUpsert_SortsAndRanks(t *testing.T) {
	var entries []model.LeaderboardEntry
	entries = Upsert(entries, "a", "Alice", d(500))
	entries = Upsert(entries, "b", "Bob", d(900))
	entries = Upsert(entries, "c", "Carol", d(700))

	want := []string{"b", "c", "a"}
	for i, userID := range want {
		if entries[i].UserID != userID {
			t.Fatalf("position %d: expected %s, got %s", i, userID, entries[i].UserID)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("expected rank %d, got %d", i+1, entries[i].Rank)
		}
	}
}

func TestUpsert_TiesAreStable(t *testing.T) {
	// B reached 900 before C; on a value tie B stays ahead.
	var entries []model.LeaderboardEntry
	entries = Upsert(entries, "a", "Alice", d(500))
	entries = Upsert(entries, "b", "Bob", d(900))
	entries = Upsert(entries, "c", "Carol", d(900))

	if entries[0].UserID != "b" || entries[1].UserID != "c" || entries[2].UserID != "a" {
		t.Fatalf("expected stable order b,c,a, got %s,%s,%s",
			entries[0].UserID, entries[1].UserID, entries[2].UserID)
	}
	for i, e := range entries {
		if e.Rank != i+1 {
			t.Errorf("expected ranks 1,2,3 top to bottom, got rank %d at %d", e.Rank, i)
		}
	}
}

func TestUpsert_ReplacesExistingEntry(t *testing.T) {
	var entries []model.LeaderboardEntry
	entries = Upsert(entries, "a", "Alice", d(500))
	entries = Upsert(entries, "b", "Bob", d(900))
	entries = Upsert(entries, "a", "Alice", d(1200))

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after re-upsert, got %d", len(entries))
	}
	if entries[0].UserID != "a" || !entries[0].PortfolioValue.Equal(d(1200)) {
		t.Errorf("expected Alice promoted to rank 1 with 1200, got %+v", entries[0])
	}
}

func TestUpsert_TruncatesToMaxEntries(t *testing.T) {
	var entries []model.LeaderboardEntry
	for i := 0; i < MaxEntries+20; i++ {
		entries = Upsert(entries, fmt.Sprintf("u%d", i), fmt.Sprintf("User%d", i), d(float64(i)))
	}

	if len(entries) != MaxEntries {
		t.Fatalf("expected %d entries, got %d", MaxEntries, len(entries))
	}
	// Highest value wins rank 1; the 20 lowest fell off.
	if !entries[0].PortfolioValue.Equal(d(float64(MaxEntries + 19))) {
		t.Errorf("expected top value %d, got %s", MaxEntries+19, entries[0].PortfolioValue)
	}
	if entries[MaxEntries-1].Rank != MaxEntries {
		t.Errorf("expected bottom rank %d, got %d", MaxEntries, entries[MaxEntries-1].Rank)
	}
}

func TestRemove_LeavesRanksUntouched(t *testing.T) {
	var entries []model.LeaderboardEntry
	entries = Upsert(entries, "a", "Alice", d(500))
	entries = Upsert(entries, "b", "Bob", d(900))
	entries = Upsert(entries, "c", "Carol", d(700))

	entries = Remove(entries, "c")

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Removal does not renumber: Alice keeps her pre-removal rank 3.
	if entries[0].Rank != 1 || entries[1].Rank != 3 {
		t.Errorf("expected ranks 1 and 3 preserved, got %d and %d", entries[0].Rank, entries[1].Rank)
	}
}

func TestRemove_UnknownUserIsNoop(t *testing.T) {
	var entries []model.LeaderboardEntry
	entries = Upsert(entries, "a", "Alice", d(500))
	got := Remove(entries, "zzz")
	if len(got) != 1 || got[0].UserID != "a" {
		t.Errorf("removing unknown user should change nothing, got %+v", got)
	}
}
