package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/fundval/fundval-backend/internal/calendar"
	"github.com/fundval/fundval-backend/internal/model"
	"github.com/fundval/fundval-backend/internal/repository"
	"github.com/fundval/fundval-backend/internal/scheduler"
	"github.com/fundval/fundval-backend/internal/service"
	"github.com/fundval/fundval-backend/internal/testutil"
)

type emptyFundList struct{}

func (emptyFundList) FetchFundList(_ context.Context) ([]model.Fund, error) {
	return nil, nil
}

// TestScheduler_RunPass tests one reconciler pass end to end.
//
// WHY: RunPass is what the interval loop executes; a wiring mistake here
// would silently stall settlements and notifications even though every
// service works in isolation.
func TestScheduler_RunPass(t *testing.T) {
	db := testutil.SetupTestDB(t)
	account := testutil.NewAccount().Build(t, db)

	// A pending buy whose settlement NAV is now available
	trade := testutil.NewTrade().WithAccountID(account.ID).WithCode("000001").
		Add(1000).WithSettlementDate("2025-06-06").Build(t, db)
	navs := testutil.NewMockNavLookup().WithNav("000001", "2025-06-06", 2.0)
	trades := testutil.NewTestTradeService(t, db, navs)

	// A subscription whose threshold the live quote crosses
	testutil.NewSubscription().WithCode("000001").WithThresholds(2, -2).Build(t, db)
	primary := testutil.NewMockLiveProvider("primary").WithValuation("000001",
		model.Valuation{Code: "000001", Name: "Alpha Fund", Nav: 1.5, Estimate: 1.56, EstimateRate: 4})
	valuations := testutil.NewTestValuationService(t, db, primary,
		testutil.NewMockLiveProvider("secondary"), testutil.NewMockHistoryProvider())
	sender := &testutil.MockSender{}
	notifications := testutil.NewTestNotificationService(t, db, valuations, sender)

	funds := service.NewFundService(
		repository.NewFundRepository(db),
		repository.NewSnapshotRepository(db),
		repository.NewPositionRepository(db),
		valuations,
		emptyFundList{},
		calendar.New(time.UTC, nil),
		4,
		30*24*time.Hour,
		time.UTC,
	)
	// Mid-session on a trading day so the snapshot collector runs too
	funds.SetNow(func() time.Time { return time.Date(2025, 6, 5, 10, 30, 0, 0, time.UTC) })

	sched := scheduler.New(trades, notifications, funds, time.Minute, 16, time.UTC)
	sched.RunPass(context.Background())

	// The pending trade settled
	stored, err := repository.NewTradeRepository(db).GetTrade(trade.ID)
	if err != nil {
		t.Fatalf("GetTrade failed: %v", err)
	}
	if stored.Pending() {
		t.Error("Expected the pass to settle the pending trade")
	}

	// The alert went out
	if sender.SentCount() != 1 {
		t.Errorf("Expected 1 alert dispatched, got %d", sender.SentCount())
	}

	// The settled position got an intraday snapshot
	snaps, err := repository.NewSnapshotRepository(db).GetByCodeAndDate("000001", "2025-06-05")
	if err != nil {
		t.Fatalf("GetByCodeAndDate failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Errorf("Expected 1 snapshot, got %d", len(snaps))
	}
}
