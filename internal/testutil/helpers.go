package testutil

import (
	"database/sql"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fundval/fundval-backend/internal/calendar"
	"github.com/fundval/fundval-backend/internal/repository"
	"github.com/fundval/fundval-backend/internal/service"
)

// NewTestTradeService creates a TradeService wired to the test database
// and a mock settlement NAV source.
func NewTestTradeService(t *testing.T, db *sql.DB, navs *MockNavLookup) *service.TradeService {
	t.Helper()

	positionRepo := repository.NewPositionRepository(db)
	tradeRepo := repository.NewTradeRepository(db)

	return service.NewTradeService(
		db,
		positionRepo,
		tradeRepo,
		navs,
		calendar.New(time.UTC, nil),
	)
}

// NewTestValuationService creates a ValuationService with mock providers
// and a 24h cache TTL against a publish hour of 16.
func NewTestValuationService(t *testing.T, db *sql.DB, primary, secondary *MockLiveProvider, history *MockHistoryProvider) *service.ValuationService {
	t.Helper()

	return service.NewValuationService(
		primary,
		secondary,
		history,
		repository.NewNavCacheRepository(db),
		24*time.Hour,
		16,
		time.UTC,
	)
}

// NewTestPositionService creates a PositionService backed by the given
// valuation service.
func NewTestPositionService(t *testing.T, db *sql.DB, valuations *service.ValuationService) *service.PositionService {
	t.Helper()

	return service.NewPositionService(
		repository.NewPositionRepository(db),
		repository.NewFundRepository(db),
		valuations,
		4,
	)
}

// NewTestNotificationService creates a NotificationService backed by the
// given valuation service and mock sender.
func NewTestNotificationService(t *testing.T, db *sql.DB, valuations *service.ValuationService, sender *MockSender) *service.NotificationService {
	t.Helper()

	return service.NewNotificationService(
		repository.NewSubscriptionRepository(db),
		valuations,
		sender,
		time.UTC,
	)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeFundCode generates a random six-digit fund code for testing.
func MakeFundCode() string {
	//nolint:gosec // G404: Using math/rand for test data generation is acceptable
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}
