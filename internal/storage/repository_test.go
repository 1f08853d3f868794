package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"tradejournal/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestCreateUserAndLookup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, "mara", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("expected assigned id")
	}

	byName, err := repo.GetUserByUsername(ctx, "mara")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != u.ID || byName.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", byName)
	}

	byID, err := repo.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Username != "mara" {
		t.Fatalf("unexpected user: %+v", byID)
	}

	if _, err := repo.GetUserByUsername(ctx, "nobody"); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, "mara", "h1"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := repo.CreateUser(ctx, "mara", "h2"); !errors.Is(err, core.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestTransactionsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, "mara", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	other, err := repo.CreateUser(ctx, "other", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	entries := []core.Transaction{
		{UserID: u.ID, Date: core.NewDate(2024, 1, 2), Kind: "trade", Amount: decimal.RequireFromString("100"), Description: "long ES"},
		{UserID: u.ID, Date: core.NewDate(2024, 1, 1), Kind: "trade", Amount: decimal.RequireFromString("-50.25")},
		{UserID: other.ID, Date: core.NewDate(2024, 1, 1), Kind: "deposit", Amount: decimal.RequireFromString("1000")},
	}
	for _, e := range entries {
		if _, err := repo.CreateTransaction(ctx, e); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	// A listing is scoped to exactly one user and ordered by date.
	got, err := repo.ListTransactionsByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Date.String() != "2024-01-01" || got[1].Date.String() != "2024-01-02" {
		t.Fatalf("not ordered by date: %s, %s", got[0].Date, got[1].Date)
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("-50.25")) {
		t.Fatalf("amount round trip: got %s", got[0].Amount)
	}
	if got[1].Description != "long ES" {
		t.Fatalf("description round trip: got %q", got[1].Description)
	}
}

func TestListTransactionsEmpty(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, "mara", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	got, err := repo.ListTransactionsByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %d", len(got))
	}
}
