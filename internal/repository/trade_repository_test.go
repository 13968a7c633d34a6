package repository_test

import (
	"testing"
	"time"

	"github.com/fundval/fundval-backend/internal/repository"
	"github.com/fundval/fundval-backend/internal/testutil"
)

// TestTradeRepository_Settle tests the settle guard at the SQL level.
//
// WHY: The applied_at IS NULL predicate is the single line that makes
// settlement idempotent under concurrent reconciler passes. It has to
// report exactly one winner and refuse every later attempt.
func TestTradeRepository_Settle(t *testing.T) {
	t.Run("settles a pending trade exactly once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)
		trade := testutil.NewTrade().WithAccountID(account.ID).Add(1000).Build(t, db)

		repo := repository.NewTradeRepository(db)

		ok, err := repo.Settle(trade.ID, 2.0, 500, 2.0, nil, time.Now())
		if err != nil {
			t.Fatalf("Settle failed: %v", err)
		}
		if !ok {
			t.Fatal("Expected the first settle to win")
		}

		ok, err = repo.Settle(trade.ID, 3.0, 333.3333, 3.0, nil, time.Now())
		if err != nil {
			t.Fatalf("Settle failed: %v", err)
		}
		if ok {
			t.Error("Expected the second settle to be refused")
		}

		// The first outcome stands
		stored, err := repo.GetTrade(trade.ID)
		if err != nil {
			t.Fatalf("GetTrade failed: %v", err)
		}
		if stored.SettlementNav == nil || *stored.SettlementNav != 2.0 {
			t.Errorf("Expected the first settlement NAV to persist, got %v", stored.SettlementNav)
		}
	})

	t.Run("writes reduce proceeds only when provided", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)
		buy := testutil.NewTrade().WithAccountID(account.ID).Add(1000).Build(t, db)
		sell := testutil.NewTrade().WithAccountID(account.ID).Reduce(200).Build(t, db)

		repo := repository.NewTradeRepository(db)

		// nil amount keeps the recorded buy amount
		if _, err := repo.Settle(buy.ID, 2.0, 500, 2.0, nil, time.Now()); err != nil {
			t.Fatalf("Settle failed: %v", err)
		}
		storedBuy, _ := repo.GetTrade(buy.ID)
		if storedBuy.Amount != 1000 {
			t.Errorf("Expected buy amount preserved, got %v", storedBuy.Amount)
		}

		// reduce proceeds are only known at settlement
		proceeds := 500.0
		if _, err := repo.Settle(sell.ID, 2.5, -200, 2.0, &proceeds, time.Now()); err != nil {
			t.Fatalf("Settle failed: %v", err)
		}
		storedSell, _ := repo.GetTrade(sell.ID)
		if storedSell.Amount != 500 {
			t.Errorf("Expected proceeds 500 recorded, got %v", storedSell.Amount)
		}
	})
}

// TestTradeRepository_GetPending tests the reconciler scan predicate.
//
// WHY: A settled trade reappearing in this scan would be double-applied
// to a position; the predicate must be the exact complement of Settle.
func TestTradeRepository_GetPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	account := testutil.NewAccount().Build(t, db)

	pending := testutil.NewTrade().WithAccountID(account.ID).Add(1000).Build(t, db)
	testutil.NewTrade().WithAccountID(account.ID).Add(2000).
		WithSettlement(2.0, 1000, 2.0).Build(t, db)

	repo := repository.NewTradeRepository(db)
	trades, err := repo.GetPending()
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}

	if len(trades) != 1 {
		t.Fatalf("Expected 1 pending trade, got %d", len(trades))
	}
	if trades[0].ID != pending.ID {
		t.Errorf("Expected the pending trade, got %s", trades[0].ID)
	}
	if !trades[0].Pending() {
		t.Error("Expected Pending() to report true")
	}
}

// TestTradeRepository_ListTrades tests the trade log filters.
func TestTradeRepository_ListTrades(t *testing.T) {
	db := testutil.SetupTestDB(t)
	first := testutil.NewAccount().Build(t, db)
	second := testutil.NewAccount().Build(t, db)

	testutil.NewTrade().WithAccountID(first.ID).WithCode("000001").Add(1000).Build(t, db)
	testutil.NewTrade().WithAccountID(first.ID).WithCode("000002").Add(2000).Build(t, db)
	testutil.NewTrade().WithAccountID(second.ID).WithCode("000001").Add(3000).Build(t, db)

	repo := repository.NewTradeRepository(db)

	t.Run("filters by account", func(t *testing.T) {
		trades, err := repo.ListTrades(first.ID, "", 0)
		if err != nil {
			t.Fatalf("ListTrades failed: %v", err)
		}
		if len(trades) != 2 {
			t.Errorf("Expected 2 trades, got %d", len(trades))
		}
	})

	t.Run("filters by account and code", func(t *testing.T) {
		trades, err := repo.ListTrades(first.ID, "000002", 0)
		if err != nil {
			t.Fatalf("ListTrades failed: %v", err)
		}
		if len(trades) != 1 || trades[0].Amount != 2000 {
			t.Errorf("Expected the 000002 trade, got %+v", trades)
		}
	})

	t.Run("applies the limit", func(t *testing.T) {
		trades, err := repo.ListTrades("", "", 2)
		if err != nil {
			t.Fatalf("ListTrades failed: %v", err)
		}
		if len(trades) != 2 {
			t.Errorf("Expected 2 trades, got %d", len(trades))
		}
	})
}

// TestPositionRepository_Upsert tests position writes.
//
// WHY: The settlement path rewrites (account, fund) rows in place; the
// upsert must update, not duplicate, and deletion must be keyed to the
// exact pair.
func TestPositionRepository_Upsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	account := testutil.NewAccount().Build(t, db)
	repo := repository.NewPositionRepository(db)

	if err := repo.Upsert(account.ID, "000001", 1.5, 100); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.Upsert(account.ID, "000001", 1.75, 400); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	testutil.AssertRowCount(t, db, "position", 1)

	pos, err := repo.GetPosition(account.ID, "000001")
	if err != nil || pos == nil {
		t.Fatalf("GetPosition failed: %v, %v", pos, err)
	}
	if pos.Cost != 1.75 || pos.Shares != 400 {
		t.Errorf("Expected updated row (1.75, 400), got (%v, %v)", pos.Cost, pos.Shares)
	}

	if err := repo.Delete(account.ID, "000001"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	testutil.AssertRowCount(t, db, "position", 0)
}

// TestPositionRepository_DistinctHeldCodes tests the held-fund scan used
// by the snapshot collector and the nightly NAV refresh.
func TestPositionRepository_DistinctHeldCodes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	first := testutil.NewAccount().Build(t, db)
	second := testutil.NewAccount().Build(t, db)

	testutil.NewPosition().WithAccountID(first.ID).WithCode("000001").Build(t, db)
	testutil.NewPosition().WithAccountID(second.ID).WithCode("000001").Build(t, db)
	testutil.NewPosition().WithAccountID(second.ID).WithCode("000002").Build(t, db)

	codes, err := repository.NewPositionRepository(db).DistinctHeldCodes()
	if err != nil {
		t.Fatalf("DistinctHeldCodes failed: %v", err)
	}
	if len(codes) != 2 {
		t.Errorf("Expected 2 distinct codes, got %v", codes)
	}
}
