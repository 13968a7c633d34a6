package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/fundval/fundval-backend/internal/model"
)

// AccountBuilder provides a fluent interface for creating test accounts.
//
// Example usage:
//
//	// Simple creation with defaults
//	account := testutil.NewAccount().Build(t, db)
//
//	// Customized account
//	account := testutil.NewAccount().
//	    WithUserID(userID).
//	    WithName("Brokerage").
//	    Build(t, db)
type AccountBuilder struct {
	ID     string
	UserID string
	Name   string
}

// NewAccount creates an AccountBuilder with sensible defaults.
func NewAccount() *AccountBuilder {
	return &AccountBuilder{
		ID:     MakeID(),
		UserID: MakeID(),
		Name:   "Test Account",
	}
}

// WithID sets a custom ID.
func (b *AccountBuilder) WithID(id string) *AccountBuilder {
	b.ID = id
	return b
}

// WithUserID sets a custom owner.
func (b *AccountBuilder) WithUserID(userID string) *AccountBuilder {
	b.UserID = userID
	return b
}

// WithName sets a custom name.
func (b *AccountBuilder) WithName(name string) *AccountBuilder {
	b.Name = name
	return b
}

// Build creates the account in the database and returns it.
func (b *AccountBuilder) Build(t *testing.T, db *sql.DB) model.Account {
	t.Helper()

	_, err := db.Exec(`INSERT INTO account (id, user_id, name) VALUES (?, ?, ?)`,
		b.ID, b.UserID, b.Name)
	if err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}

	return model.Account{
		ID:     b.ID,
		UserID: b.UserID,
		Name:   b.Name,
	}
}

// PositionBuilder provides a fluent interface for creating test positions.
//
// Example usage:
//
//	position := testutil.NewPosition().
//	    WithAccountID(account.ID).
//	    WithCode("000001").
//	    WithCost(2.0).
//	    WithShares(500).
//	    Build(t, db)
type PositionBuilder struct {
	AccountID string
	Code      string
	Cost      float64
	Shares    float64
}

// NewPosition creates a PositionBuilder with sensible defaults.
func NewPosition() *PositionBuilder {
	return &PositionBuilder{
		AccountID: MakeID(),
		Code:      "000001",
		Cost:      1.0,
		Shares:    1000,
	}
}

// WithAccountID sets the owning account.
func (b *PositionBuilder) WithAccountID(accountID string) *PositionBuilder {
	b.AccountID = accountID
	return b
}

// WithCode sets the fund code.
func (b *PositionBuilder) WithCode(code string) *PositionBuilder {
	b.Code = code
	return b
}

// WithCost sets the weighted-average cost per share.
func (b *PositionBuilder) WithCost(cost float64) *PositionBuilder {
	b.Cost = cost
	return b
}

// WithShares sets the share count.
func (b *PositionBuilder) WithShares(shares float64) *PositionBuilder {
	b.Shares = shares
	return b
}

// Build creates the position in the database and returns it.
func (b *PositionBuilder) Build(t *testing.T, db *sql.DB) model.Position {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO position (account_id, code, cost, shares, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, b.AccountID, b.Code, b.Cost, b.Shares, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Failed to create test position: %v", err)
	}

	return model.Position{
		AccountID: b.AccountID,
		Code:      b.Code,
		Cost:      b.Cost,
		Shares:    b.Shares,
	}
}

// TradeBuilder provides a fluent interface for creating test trades.
// Trades built without WithSettlement are pending.
//
// Example usage:
//
//	trade := testutil.NewTrade().
//	    WithAccountID(account.ID).
//	    WithCode("000001").
//	    Add(1000).
//	    WithSettlementDate("2025-06-02").
//	    Build(t, db)
type TradeBuilder struct {
	ID             string
	AccountID      string
	Code           string
	OpType         string
	Amount         float64
	SharesRedeemed float64
	SettlementDate string
	SettlementNav  *float64
	SharesDelta    *float64
	CostAfter      *float64
	AppliedAt      *time.Time
}

// NewTrade creates a TradeBuilder with sensible defaults (a pending buy).
func NewTrade() *TradeBuilder {
	return &TradeBuilder{
		ID:             MakeID(),
		AccountID:      MakeID(),
		Code:           "000001",
		OpType:         model.TradeOpAdd,
		Amount:         1000,
		SettlementDate: time.Now().UTC().Format("2006-01-02"),
	}
}

// WithID sets a custom ID.
func (b *TradeBuilder) WithID(id string) *TradeBuilder {
	b.ID = id
	return b
}

// WithAccountID sets the owning account.
func (b *TradeBuilder) WithAccountID(accountID string) *TradeBuilder {
	b.AccountID = accountID
	return b
}

// WithCode sets the fund code.
func (b *TradeBuilder) WithCode(code string) *TradeBuilder {
	b.Code = code
	return b
}

// Add marks the trade as a buy of the given currency amount.
func (b *TradeBuilder) Add(amount float64) *TradeBuilder {
	b.OpType = model.TradeOpAdd
	b.Amount = amount
	b.SharesRedeemed = 0
	return b
}

// Reduce marks the trade as a sell of the given share count.
func (b *TradeBuilder) Reduce(shares float64) *TradeBuilder {
	b.OpType = model.TradeOpReduce
	b.SharesRedeemed = shares
	b.Amount = 0
	return b
}

// WithSettlementDate sets the settlement date (YYYY-MM-DD).
func (b *TradeBuilder) WithSettlementDate(date string) *TradeBuilder {
	b.SettlementDate = date
	return b
}

// WithSettlement records the trade as already settled at the given NAV.
func (b *TradeBuilder) WithSettlement(nav, sharesDelta, costAfter float64) *TradeBuilder {
	now := time.Now().UTC()
	b.SettlementNav = &nav
	b.SharesDelta = &sharesDelta
	b.CostAfter = &costAfter
	b.AppliedAt = &now
	return b
}

// Build creates the trade in the database and returns it.
func (b *TradeBuilder) Build(t *testing.T, db *sql.DB) model.Trade {
	t.Helper()

	var amount, sharesRedeemed, settlementNav, sharesDelta, costAfter, appliedAt any
	if b.Amount != 0 {
		amount = b.Amount
	}
	if b.SharesRedeemed != 0 {
		sharesRedeemed = b.SharesRedeemed
	}
	if b.SettlementNav != nil {
		settlementNav = *b.SettlementNav
	}
	if b.SharesDelta != nil {
		sharesDelta = *b.SharesDelta
	}
	if b.CostAfter != nil {
		costAfter = *b.CostAfter
	}
	if b.AppliedAt != nil {
		appliedAt = b.AppliedAt.UTC().Format(time.RFC3339)
	}

	createdAt := time.Now().UTC()

	_, err := db.Exec(`
		INSERT INTO trade (id, account_id, code, op_type, amount, shares_redeemed,
			settlement_date, settlement_nav, shares_delta, cost_after, created_at, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.AccountID, b.Code, b.OpType, amount, sharesRedeemed,
		b.SettlementDate, settlementNav, sharesDelta, costAfter,
		createdAt.Format(time.RFC3339), appliedAt)
	if err != nil {
		t.Fatalf("Failed to create test trade: %v", err)
	}

	return model.Trade{
		ID:             b.ID,
		AccountID:      b.AccountID,
		Code:           b.Code,
		OpType:         b.OpType,
		Amount:         b.Amount,
		SharesRedeemed: b.SharesRedeemed,
		SettlementDate: b.SettlementDate,
		SettlementNav:  b.SettlementNav,
		SharesDelta:    b.SharesDelta,
		CostAfter:      b.CostAfter,
		CreatedAt:      createdAt,
		AppliedAt:      b.AppliedAt,
	}
}

// SubscriptionBuilder provides a fluent interface for creating test
// subscriptions.
type SubscriptionBuilder struct {
	ID               string
	UserID           string
	Code             string
	Email            string
	ThresholdUp      float64
	ThresholdDown    float64
	EnableVolatility bool
	EnableDigest     bool
	DigestTime       string
	LastNotifiedAt   *time.Time
	LastDigestAt     *time.Time
}

// NewSubscription creates a SubscriptionBuilder with sensible defaults:
// volatility alerts at +/-2%, digests disabled.
func NewSubscription() *SubscriptionBuilder {
	return &SubscriptionBuilder{
		ID:               MakeID(),
		UserID:           MakeID(),
		Code:             "000001",
		Email:            "holder@example.com",
		ThresholdUp:      2,
		ThresholdDown:    -2,
		EnableVolatility: true,
		DigestTime:       "14:45",
	}
}

// WithUserID sets the subscriber.
func (b *SubscriptionBuilder) WithUserID(userID string) *SubscriptionBuilder {
	b.UserID = userID
	return b
}

// WithCode sets the fund code.
func (b *SubscriptionBuilder) WithCode(code string) *SubscriptionBuilder {
	b.Code = code
	return b
}

// WithEmail sets the destination address.
func (b *SubscriptionBuilder) WithEmail(email string) *SubscriptionBuilder {
	b.Email = email
	return b
}

// WithThresholds sets the volatility thresholds.
func (b *SubscriptionBuilder) WithThresholds(up, down float64) *SubscriptionBuilder {
	b.ThresholdUp = up
	b.ThresholdDown = down
	return b
}

// WithDigest enables the daily digest at the given HH:MM time.
func (b *SubscriptionBuilder) WithDigest(digestTime string) *SubscriptionBuilder {
	b.EnableDigest = true
	b.DigestTime = digestTime
	return b
}

// WithoutVolatility disables volatility alerts.
func (b *SubscriptionBuilder) WithoutVolatility() *SubscriptionBuilder {
	b.EnableVolatility = false
	return b
}

// NotifiedAt sets the last volatility alert time.
func (b *SubscriptionBuilder) NotifiedAt(at time.Time) *SubscriptionBuilder {
	b.LastNotifiedAt = &at
	return b
}

// DigestedAt sets the last digest time.
func (b *SubscriptionBuilder) DigestedAt(at time.Time) *SubscriptionBuilder {
	b.LastDigestAt = &at
	return b
}

// Build creates the subscription in the database and returns it.
func (b *SubscriptionBuilder) Build(t *testing.T, db *sql.DB) model.Subscription {
	t.Helper()

	var lastNotified, lastDigest any
	if b.LastNotifiedAt != nil {
		lastNotified = b.LastNotifiedAt.UTC().Format(time.RFC3339)
	}
	if b.LastDigestAt != nil {
		lastDigest = b.LastDigestAt.UTC().Format(time.RFC3339)
	}

	_, err := db.Exec(`
		INSERT INTO subscription (id, user_id, code, email, threshold_up, threshold_down,
			enable_volatility, enable_digest, digest_time, last_notified_at, last_digest_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.UserID, b.Code, b.Email, b.ThresholdUp, b.ThresholdDown,
		b.EnableVolatility, b.EnableDigest, b.DigestTime, lastNotified, lastDigest)
	if err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return model.Subscription{
		ID:               b.ID,
		UserID:           b.UserID,
		Code:             b.Code,
		Email:            b.Email,
		ThresholdUp:      b.ThresholdUp,
		ThresholdDown:    b.ThresholdDown,
		EnableVolatility: b.EnableVolatility,
		EnableDigest:     b.EnableDigest,
		DigestTime:       b.DigestTime,
		LastNotifiedAt:   b.LastNotifiedAt,
		LastDigestAt:     b.LastDigestAt,
	}
}

// Convenience functions

// CreateAccount creates an account for the given user with default values.
func CreateAccount(t *testing.T, db *sql.DB, userID string) model.Account {
	t.Helper()
	return NewAccount().WithUserID(userID).Build(t, db)
}

// CreateNavHistory writes NAV rows for a fund directly into the cache.
// Points map dates (YYYY-MM-DD) to NAVs.
func CreateNavHistory(t *testing.T, db *sql.DB, code string, points map[string]float64) {
	t.Helper()

	now := time.Now().UTC().Format(time.RFC3339)
	for date, nav := range points {
		_, err := db.Exec(`
			INSERT INTO nav_history (code, date, nav, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(code, date) DO UPDATE SET nav = excluded.nav, updated_at = excluded.updated_at
		`, code, date, nav, now)
		if err != nil {
			t.Fatalf("Failed to create test nav history: %v", err)
		}
	}
}

// CreateFund inserts a catalogue entry.
func CreateFund(t *testing.T, db *sql.DB, code, name, fundType string) model.Fund {
	t.Helper()

	_, err := db.Exec(`INSERT INTO fund (code, name, type) VALUES (?, ?, ?)`, code, name, fundType)
	if err != nil {
		t.Fatalf("Failed to create test fund: %v", err)
	}

	return model.Fund{Code: code, Name: name, Type: fundType}
}
