package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fundval/fundval-backend/internal/model"
)

// TradeRepository provides data access methods for the trade table, the
// append-only log of add/reduce intents and their settlement outcomes.
type TradeRepository struct {
	db DBTX
}

// NewTradeRepository creates a new TradeRepository with the provided database connection.
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (s *TradeRepository) WithTx(tx *sql.Tx) *TradeRepository {
	return &TradeRepository{db: tx}
}

// Insert writes a new trade row. Settlement fields (SettlementNav,
// SharesDelta, CostAfter, AppliedAt) may be nil for a pending trade; a
// synchronously settled trade carries all of them.
func (s *TradeRepository) Insert(t *model.Trade) error {
	query := `
		INSERT INTO trade (id, account_id, code, op_type, amount, shares_redeemed,
			settlement_date, settlement_nav, shares_delta, cost_after, created_at, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var amount, sharesRedeemed any
	if t.Amount != 0 {
		amount = t.Amount
	}
	if t.SharesRedeemed != 0 {
		sharesRedeemed = t.SharesRedeemed
	}

	var appliedAt any
	if t.AppliedAt != nil {
		appliedAt = t.AppliedAt.UTC().Format(time.RFC3339)
	}

	_, err := s.db.Exec(query,
		t.ID, t.AccountID, t.Code, t.OpType,
		amount, sharesRedeemed, t.SettlementDate,
		nullableFloat(t.SettlementNav), nullableFloat(t.SharesDelta), nullableFloat(t.CostAfter),
		t.CreatedAt.UTC().Format(time.RFC3339), appliedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	return nil
}

// GetPending retrieves all trades whose settlement price is still
// unknown, i.e. applied_at IS NULL AND settlement_nav IS NULL. This is
// the scan predicate of the settlement reconciler; settled rows can never
// be selected again.
func (s *TradeRepository) GetPending() ([]model.Trade, error) {
	query := `
		SELECT id, account_id, code, op_type, amount, shares_redeemed,
			settlement_date, settlement_nav, shares_delta, cost_after, created_at, applied_at
		FROM trade
		WHERE applied_at IS NULL AND settlement_nav IS NULL
		ORDER BY created_at ASC
	`
	return s.queryTrades(query)
}

// Settle writes the settlement outcome of a trade in a single statement.
// The applied_at IS NULL guard makes settling idempotent: a trade can
// transition Pending -> Settled at most once.
//
// amount is written for reduce trades whose proceeds are only known at
// settlement; pass nil to leave the recorded amount untouched.
func (s *TradeRepository) Settle(id string, nav float64, sharesDelta, costAfter float64, amount *float64, appliedAt time.Time) (bool, error) {
	query := `
		UPDATE trade
		SET settlement_nav = ?, shares_delta = ?, cost_after = ?,
			amount = COALESCE(?, amount), applied_at = ?
		WHERE id = ? AND applied_at IS NULL
	`

	var amountArg any
	if amount != nil {
		amountArg = *amount
	}

	res, err := s.db.Exec(query, nav, sharesDelta, costAfter, amountArg, appliedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return false, fmt.Errorf("failed to settle trade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read settle result: %w", err)
	}

	return n == 1, nil
}

// ListTrades retrieves trades, newest first, optionally filtered by
// account and fund code.
func (s *TradeRepository) ListTrades(accountID, code string, limit int) ([]model.Trade, error) {
	conditions := []string{}
	args := []any{}
	if accountID != "" {
		conditions = append(conditions, "account_id = ?")
		args = append(args, accountID)
	}
	if code != "" {
		conditions = append(conditions, "code = ?")
		args = append(args, code)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, account_id, code, op_type, amount, shares_redeemed,
			settlement_date, settlement_nav, shares_delta, cost_after, created_at, applied_at
		FROM trade %s
		ORDER BY created_at DESC
		LIMIT ?
	`, where)

	return s.queryTrades(query, args...)
}

// GetTrade retrieves a single trade by ID. Returns nil without error when
// no such trade exists.
func (s *TradeRepository) GetTrade(id string) (*model.Trade, error) {
	trades, err := s.queryTrades(`
		SELECT id, account_id, code, op_type, amount, shares_redeemed,
			settlement_date, settlement_nav, shares_delta, cost_after, created_at, applied_at
		FROM trade
		WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, nil
	}
	return &trades[0], nil
}

func (s *TradeRepository) queryTrades(query string, args ...any) ([]model.Trade, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade table: %w", err)
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		var t model.Trade
		var amount, sharesRedeemed, settlementNav, sharesDelta, costAfter sql.NullFloat64
		var createdAtStr string
		var appliedAtStr sql.NullString

		err := rows.Scan(
			&t.ID, &t.AccountID, &t.Code, &t.OpType,
			&amount, &sharesRedeemed, &t.SettlementDate,
			&settlementNav, &sharesDelta, &costAfter,
			&createdAtStr, &appliedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade table results: %w", err)
		}

		t.Amount = amount.Float64
		t.SharesRedeemed = sharesRedeemed.Float64
		if settlementNav.Valid {
			v := settlementNav.Float64
			t.SettlementNav = &v
		}
		if sharesDelta.Valid {
			v := sharesDelta.Float64
			t.SharesDelta = &v
		}
		if costAfter.Valid {
			v := costAfter.Float64
			t.CostAfter = &v
		}

		t.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil || t.CreatedAt.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		t.AppliedAt, err = parseNullTime(appliedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		trades = append(trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade table: %w", err)
	}

	return trades, nil
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
