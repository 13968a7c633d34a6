package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fundval/fundval-backend/internal/apperrors"
	"github.com/fundval/fundval-backend/internal/repository"
	"github.com/fundval/fundval-backend/internal/testutil"
)

// fixedClock pins service time to a Thursday so the next trading day is
// deterministic (Friday 2025-06-06).
var (
	fixedNow       = time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)
	settlementDate = "2025-06-06"
)

// TestTradeService_AddTrade tests the buy path of the settlement engine.
//
// WHY: Buys are the only operation that changes the weighted-average
// cost. This ensures the cost blend, share rounding and the
// pending-versus-settled decision are all correct at entry time.
func TestTradeService_AddTrade(t *testing.T) {
	ctx := context.Background()

	t.Run("settles immediately when settlement NAV is published", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)

		navs := testutil.NewMockNavLookup().WithNav("000001", settlementDate, 2.0)
		svc := testutil.NewTestTradeService(t, db, navs)
		svc.SetNow(func() time.Time { return fixedNow })

		result, err := svc.AddTrade(ctx, account.ID, "000001", 1000, time.Time{})
		if err != nil {
			t.Fatalf("AddTrade failed: %v", err)
		}

		if result.Pending {
			t.Error("Expected trade to settle immediately")
		}
		if result.SettlementDate != settlementDate {
			t.Errorf("Expected settlement date %s, got %s", settlementDate, result.SettlementDate)
		}
		if result.SharesDelta != 500 {
			t.Errorf("Expected 500 shares, got %v", result.SharesDelta)
		}
		if result.CostAfter != 2.0 {
			t.Errorf("Expected cost 2.0, got %v", result.CostAfter)
		}

		// Position and trade land together
		pos, err := repository.NewPositionRepository(db).GetPosition(account.ID, "000001")
		if err != nil || pos == nil {
			t.Fatalf("Expected position to exist, got %v, %v", pos, err)
		}
		if pos.Shares != 500 || pos.Cost != 2.0 {
			t.Errorf("Expected 500 shares at cost 2.0, got %v at %v", pos.Shares, pos.Cost)
		}
		testutil.AssertRowCount(t, db, "trade", 1)
	})

	t.Run("blends weighted-average cost on subsequent buys", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)
		testutil.NewPosition().WithAccountID(account.ID).WithCode("000001").
			WithCost(1.0).WithShares(1000).Build(t, db)

		navs := testutil.NewMockNavLookup().WithNav("000001", settlementDate, 2.0)
		svc := testutil.NewTestTradeService(t, db, navs)
		svc.SetNow(func() time.Time { return fixedNow })

		// 1000 currency at NAV 2.0 buys 500 shares; blended cost is
		// (1.0*1000 + 2.0*500) / 1500 = 1.3333
		result, err := svc.AddTrade(ctx, account.ID, "000001", 1000, time.Time{})
		if err != nil {
			t.Fatalf("AddTrade failed: %v", err)
		}

		if result.SharesAfter != 1500 {
			t.Errorf("Expected 1500 shares after, got %v", result.SharesAfter)
		}
		if result.CostAfter != 1.3333 {
			t.Errorf("Expected blended cost 1.3333, got %v", result.CostAfter)
		}
	})

	t.Run("records pending trade when NAV is not yet published", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)

		svc := testutil.NewTestTradeService(t, db, testutil.NewMockNavLookup())
		svc.SetNow(func() time.Time { return fixedNow })

		result, err := svc.AddTrade(ctx, account.ID, "000001", 1000, time.Time{})
		if err != nil {
			t.Fatalf("AddTrade failed: %v", err)
		}

		if !result.Pending {
			t.Error("Expected trade to be pending")
		}
		// No position is created until settlement
		testutil.AssertRowCount(t, db, "position", 0)
		testutil.AssertRowCount(t, db, "trade", 1)
	})

	t.Run("rejects non-positive amount without writing anything", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)

		svc := testutil.NewTestTradeService(t, db, testutil.NewMockNavLookup())
		svc.SetNow(func() time.Time { return fixedNow })

		_, err := svc.AddTrade(ctx, account.ID, "000001", 0, time.Time{})
		if !errors.Is(err, apperrors.ErrNonPositiveAmount) {
			t.Errorf("Expected ErrNonPositiveAmount, got %v", err)
		}
		testutil.AssertRowCount(t, db, "trade", 0)
	})

	t.Run("derives the settlement date from an explicit trade time", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)

		// A trade backdated to Monday settles at Tuesday's NAV even though
		// the clock reads Thursday.
		navs := testutil.NewMockNavLookup().WithNav("000001", "2025-06-03", 2.0)
		svc := testutil.NewTestTradeService(t, db, navs)
		svc.SetNow(func() time.Time { return fixedNow })

		tradeTime := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
		result, err := svc.AddTrade(ctx, account.ID, "000001", 1000, tradeTime)
		if err != nil {
			t.Fatalf("AddTrade failed: %v", err)
		}

		if result.Pending {
			t.Error("Expected backdated trade to settle immediately")
		}
		if result.SettlementDate != "2025-06-03" {
			t.Errorf("Expected settlement date 2025-06-03, got %s", result.SettlementDate)
		}
		if result.SharesDelta != 500 {
			t.Errorf("Expected 500 shares, got %v", result.SharesDelta)
		}
	})
}

// TestTradeService_ReduceTrade tests the sell path of the settlement engine.
//
// WHY: Sells must never change the remaining cost basis, must reject
// oversells before recording anything, and a full redemption must remove
// the position row entirely.
func TestTradeService_ReduceTrade(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps cost and reduces shares", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)
		testutil.NewPosition().WithAccountID(account.ID).WithCode("000001").
			WithCost(2.0).WithShares(500).Build(t, db)

		navs := testutil.NewMockNavLookup().WithNav("000001", settlementDate, 2.5)
		svc := testutil.NewTestTradeService(t, db, navs)
		svc.SetNow(func() time.Time { return fixedNow })

		result, err := svc.ReduceTrade(ctx, account.ID, "000001", 200, time.Time{})
		if err != nil {
			t.Fatalf("ReduceTrade failed: %v", err)
		}

		if result.Amount != 500 {
			t.Errorf("Expected proceeds 500, got %v", result.Amount)
		}
		if result.SharesAfter != 300 {
			t.Errorf("Expected 300 shares after, got %v", result.SharesAfter)
		}
		if result.CostAfter != 2.0 {
			t.Errorf("Expected cost unchanged at 2.0, got %v", result.CostAfter)
		}
	})

	t.Run("deletes position on full redemption", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)
		testutil.NewPosition().WithAccountID(account.ID).WithCode("000001").
			WithCost(2.0).WithShares(500).Build(t, db)

		navs := testutil.NewMockNavLookup().WithNav("000001", settlementDate, 2.5)
		svc := testutil.NewTestTradeService(t, db, navs)
		svc.SetNow(func() time.Time { return fixedNow })

		result, err := svc.ReduceTrade(ctx, account.ID, "000001", 500, time.Time{})
		if err != nil {
			t.Fatalf("ReduceTrade failed: %v", err)
		}

		if result.SharesAfter != 0 {
			t.Errorf("Expected 0 shares after, got %v", result.SharesAfter)
		}
		if result.CostAfter != 0 {
			t.Errorf("Expected resulting cost 0 on full redemption, got %v", result.CostAfter)
		}
		testutil.AssertRowCount(t, db, "position", 0)

		// The persisted trade row reports the zero cost too
		trade, _ := repository.NewTradeRepository(db).GetTrade(result.TradeID)
		if trade == nil || trade.CostAfter == nil || *trade.CostAfter != 0 {
			t.Errorf("Expected recorded cost_after 0, got %+v", trade)
		}
	})

	t.Run("rejects oversell before recording the trade", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)
		testutil.NewPosition().WithAccountID(account.ID).WithCode("000001").
			WithCost(2.0).WithShares(100).Build(t, db)

		svc := testutil.NewTestTradeService(t, db, testutil.NewMockNavLookup())
		svc.SetNow(func() time.Time { return fixedNow })

		_, err := svc.ReduceTrade(ctx, account.ID, "000001", 101, time.Time{})
		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Errorf("Expected ErrInsufficientShares, got %v", err)
		}
		testutil.AssertRowCount(t, db, "trade", 0)
	})

	t.Run("rejects sell of a fund that is not held", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)

		svc := testutil.NewTestTradeService(t, db, testutil.NewMockNavLookup())
		svc.SetNow(func() time.Time { return fixedNow })

		_, err := svc.ReduceTrade(ctx, account.ID, "000001", 10, time.Time{})
		if !errors.Is(err, apperrors.ErrPositionNotFound) {
			t.Errorf("Expected ErrPositionNotFound, got %v", err)
		}
	})

	t.Run("records pending sell when NAV is not yet published", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)
		testutil.NewPosition().WithAccountID(account.ID).WithCode("000001").
			WithCost(2.0).WithShares(500).Build(t, db)

		svc := testutil.NewTestTradeService(t, db, testutil.NewMockNavLookup())
		svc.SetNow(func() time.Time { return fixedNow })

		result, err := svc.ReduceTrade(ctx, account.ID, "000001", 200, time.Time{})
		if err != nil {
			t.Fatalf("ReduceTrade failed: %v", err)
		}

		if !result.Pending {
			t.Error("Expected trade to be pending")
		}
		// Position stays untouched until settlement
		pos, _ := repository.NewPositionRepository(db).GetPosition(account.ID, "000001")
		if pos == nil || pos.Shares != 500 {
			t.Errorf("Expected position unchanged at 500 shares, got %+v", pos)
		}
	})
}

// TestTradeService_ProcessPendingTrades tests the settlement reconciler.
//
// WHY: Pending settlement is the system's core asynchronous path. A
// reconciled trade must produce exactly the same position as one that
// settled synchronously, must settle at most once even across repeated
// passes, and one broken trade must never block the rest of the queue.
func TestTradeService_ProcessPendingTrades(t *testing.T) {
	ctx := context.Background()

	t.Run("settles a pending buy once the NAV is published", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)

		navs := testutil.NewMockNavLookup()
		svc := testutil.NewTestTradeService(t, db, navs)
		svc.SetNow(func() time.Time { return fixedNow })

		result, err := svc.AddTrade(ctx, account.ID, "000001", 1000, time.Time{})
		if err != nil {
			t.Fatalf("AddTrade failed: %v", err)
		}
		if !result.Pending {
			t.Fatal("Expected trade to be pending")
		}

		// The NAV is published later; the next pass picks it up.
		navs.WithNav("000001", settlementDate, 2.0)

		settled, err := svc.ProcessPendingTrades(ctx)
		if err != nil {
			t.Fatalf("ProcessPendingTrades failed: %v", err)
		}
		if settled != 1 {
			t.Errorf("Expected 1 trade settled, got %d", settled)
		}

		// Outcome matches the synchronous path exactly
		pos, _ := repository.NewPositionRepository(db).GetPosition(account.ID, "000001")
		if pos == nil || pos.Shares != 500 || pos.Cost != 2.0 {
			t.Errorf("Expected 500 shares at cost 2.0, got %+v", pos)
		}

		trade, _ := repository.NewTradeRepository(db).GetTrade(result.TradeID)
		if trade == nil || trade.AppliedAt == nil || trade.SettlementNav == nil {
			t.Fatalf("Expected settled trade, got %+v", trade)
		}
		if *trade.SettlementNav != 2.0 || *trade.SharesDelta != 500 {
			t.Errorf("Expected settlement at 2.0 for 500 shares, got %v, %v",
				*trade.SettlementNav, *trade.SharesDelta)
		}
	})

	t.Run("settles a pending sell and records proceeds", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)
		testutil.NewPosition().WithAccountID(account.ID).WithCode("000001").
			WithCost(2.0).WithShares(500).Build(t, db)

		navs := testutil.NewMockNavLookup()
		svc := testutil.NewTestTradeService(t, db, navs)
		svc.SetNow(func() time.Time { return fixedNow })

		result, err := svc.ReduceTrade(ctx, account.ID, "000001", 200, time.Time{})
		if err != nil || !result.Pending {
			t.Fatalf("Expected pending sell, got %+v, %v", result, err)
		}

		navs.WithNav("000001", settlementDate, 2.5)
		if _, err := svc.ProcessPendingTrades(ctx); err != nil {
			t.Fatalf("ProcessPendingTrades failed: %v", err)
		}

		trade, _ := repository.NewTradeRepository(db).GetTrade(result.TradeID)
		if trade == nil || trade.AppliedAt == nil {
			t.Fatalf("Expected settled trade, got %+v", trade)
		}
		if trade.Amount != 500 {
			t.Errorf("Expected proceeds 500 recorded on the trade, got %v", trade.Amount)
		}

		pos, _ := repository.NewPositionRepository(db).GetPosition(account.ID, "000001")
		if pos == nil || pos.Shares != 300 || pos.Cost != 2.0 {
			t.Errorf("Expected 300 shares at cost 2.0, got %+v", pos)
		}
	})

	t.Run("leaves trades pending while NAV is unpublished", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)

		navs := testutil.NewMockNavLookup()
		svc := testutil.NewTestTradeService(t, db, navs)
		svc.SetNow(func() time.Time { return fixedNow })

		if _, err := svc.AddTrade(ctx, account.ID, "000001", 1000, time.Time{}); err != nil {
			t.Fatalf("AddTrade failed: %v", err)
		}

		settled, err := svc.ProcessPendingTrades(ctx)
		if err != nil {
			t.Fatalf("ProcessPendingTrades failed: %v", err)
		}
		if settled != 0 {
			t.Errorf("Expected 0 trades settled, got %d", settled)
		}
		testutil.AssertRowCount(t, db, "position", 0)
	})

	t.Run("second pass is a no-op after settlement", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)

		navs := testutil.NewMockNavLookup()
		svc := testutil.NewTestTradeService(t, db, navs)
		svc.SetNow(func() time.Time { return fixedNow })

		if _, err := svc.AddTrade(ctx, account.ID, "000001", 1000, time.Time{}); err != nil {
			t.Fatalf("AddTrade failed: %v", err)
		}
		navs.WithNav("000001", settlementDate, 2.0)

		if _, err := svc.ProcessPendingTrades(ctx); err != nil {
			t.Fatalf("first pass failed: %v", err)
		}
		settled, err := svc.ProcessPendingTrades(ctx)
		if err != nil {
			t.Fatalf("second pass failed: %v", err)
		}
		if settled != 0 {
			t.Errorf("Expected second pass to settle nothing, got %d", settled)
		}

		// Position was applied exactly once
		pos, _ := repository.NewPositionRepository(db).GetPosition(account.ID, "000001")
		if pos == nil || pos.Shares != 500 {
			t.Errorf("Expected 500 shares, got %+v", pos)
		}
	})

	t.Run("clamps a pending sell that exceeds the remaining position", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)

		// The sell was entered against 500 shares, but other sells settled
		// first and only 300 remain. It settles as a full redemption
		// instead of retrying forever.
		testutil.NewPosition().WithAccountID(account.ID).WithCode("000001").
			WithCost(2.0).WithShares(300).Build(t, db)
		pending := testutil.NewTrade().WithAccountID(account.ID).WithCode("000001").
			Reduce(500).WithSettlementDate(settlementDate).Build(t, db)

		navs := testutil.NewMockNavLookup().WithNav("000001", settlementDate, 2.5)
		svc := testutil.NewTestTradeService(t, db, navs)
		svc.SetNow(func() time.Time { return fixedNow })

		settled, err := svc.ProcessPendingTrades(ctx)
		if err != nil {
			t.Fatalf("ProcessPendingTrades failed: %v", err)
		}
		if settled != 1 {
			t.Errorf("Expected 1 trade settled, got %d", settled)
		}

		testutil.AssertRowCount(t, db, "position", 0)
		trade, _ := repository.NewTradeRepository(db).GetTrade(pending.ID)
		if trade == nil || trade.AppliedAt == nil {
			t.Fatalf("Expected settled trade, got %+v", trade)
		}
		if trade.CostAfter == nil || *trade.CostAfter != 0 {
			t.Errorf("Expected recorded cost_after 0, got %+v", trade.CostAfter)
		}
		if trade.Amount != 1250 {
			t.Errorf("Expected proceeds 1250, got %v", trade.Amount)
		}
	})

	t.Run("one failing trade does not block the rest", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		account := testutil.NewAccount().Build(t, db)

		navs := testutil.NewMockNavLookup()
		svc := testutil.NewTestTradeService(t, db, navs)
		svc.SetNow(func() time.Time { return fixedNow })

		// A pending sell whose position vanished cannot settle; the buy
		// behind it still must.
		testutil.NewTrade().WithAccountID(account.ID).WithCode("000002").
			Reduce(100).WithSettlementDate(settlementDate).Build(t, db)
		if _, err := svc.AddTrade(ctx, account.ID, "000001", 1000, time.Time{}); err != nil {
			t.Fatalf("AddTrade failed: %v", err)
		}

		navs.WithNav("000001", settlementDate, 2.0)
		navs.WithNav("000002", settlementDate, 3.0)

		settled, err := svc.ProcessPendingTrades(ctx)
		if err != nil {
			t.Fatalf("ProcessPendingTrades failed: %v", err)
		}
		if settled != 1 {
			t.Errorf("Expected 1 trade settled, got %d", settled)
		}

		pos, _ := repository.NewPositionRepository(db).GetPosition(account.ID, "000001")
		if pos == nil || pos.Shares != 500 {
			t.Errorf("Expected the buy to settle, got %+v", pos)
		}
	})
}

// TestTradeService_WorkedExample walks a buy and a partial sell end to
// end.
//
// WHY: This is the canonical lifecycle: 1000 bought at NAV 2.00 yields
// 500 shares; selling 200 at NAV 2.50 returns 500 in proceeds and leaves
// 300 shares at an unchanged cost of 2.00.
func TestTradeService_WorkedExample(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	account := testutil.NewAccount().Build(t, db)

	navs := testutil.NewMockNavLookup().WithNav("000001", settlementDate, 2.0)
	svc := testutil.NewTestTradeService(t, db, navs)
	svc.SetNow(func() time.Time { return fixedNow })

	buy, err := svc.AddTrade(ctx, account.ID, "000001", 1000, time.Time{})
	if err != nil {
		t.Fatalf("AddTrade failed: %v", err)
	}
	if buy.SharesDelta != 500 || buy.CostAfter != 2.0 {
		t.Fatalf("Expected 500 shares at cost 2.0, got %v at %v", buy.SharesDelta, buy.CostAfter)
	}

	navs.WithNav("000001", settlementDate, 2.5)
	sell, err := svc.ReduceTrade(ctx, account.ID, "000001", 200, time.Time{})
	if err != nil {
		t.Fatalf("ReduceTrade failed: %v", err)
	}

	if sell.Amount != 500 {
		t.Errorf("Expected proceeds 500, got %v", sell.Amount)
	}
	if sell.SharesAfter != 300 {
		t.Errorf("Expected 300 shares remaining, got %v", sell.SharesAfter)
	}
	if sell.CostAfter != 2.0 {
		t.Errorf("Expected cost unchanged at 2.0, got %v", sell.CostAfter)
	}
}
