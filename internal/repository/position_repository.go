package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fundval/fundval-backend/internal/model"
)

// PositionRepository provides data access methods for the position table.
// Positions are keyed by (account_id, code); a zero-share position is
// removed rather than stored.
type PositionRepository struct {
	db DBTX
}

// NewPositionRepository creates a new PositionRepository with the provided database connection.
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (s *PositionRepository) WithTx(tx *sql.Tx) *PositionRepository {
	return &PositionRepository{db: tx}
}

// GetPosition retrieves the position for one (account, fund) pair.
// Returns nil without error when no position exists.
func (s *PositionRepository) GetPosition(accountID, code string) (*model.Position, error) {
	query := `
		SELECT account_id, code, cost, shares
		FROM position
		WHERE account_id = ? AND code = ?
	`

	var p model.Position
	err := s.db.QueryRow(query, accountID, code).Scan(&p.AccountID, &p.Code, &p.Cost, &p.Shares)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}

	return &p, nil
}

// GetPositionsByAccount retrieves all positions with nonzero shares for
// one account.
func (s *PositionRepository) GetPositionsByAccount(accountID string) ([]model.Position, error) {
	query := `
		SELECT account_id, code, cost, shares
		FROM position
		WHERE account_id = ? AND shares > 0
	`
	return s.queryPositions(query, accountID)
}

// GetPositionsByUser retrieves all nonzero positions across every account
// owned by the given user. Used by the all-accounts merged view.
func (s *PositionRepository) GetPositionsByUser(userID string) ([]model.Position, error) {
	query := `
		SELECT p.account_id, p.code, p.cost, p.shares
		FROM position p
		JOIN account a ON p.account_id = a.id
		WHERE a.user_id = ? AND p.shares > 0
	`
	return s.queryPositions(query, userID)
}

// DistinctHeldCodes returns the distinct fund codes currently held with
// nonzero shares across all accounts.
func (s *PositionRepository) DistinctHeldCodes() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT code FROM position WHERE shares > 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to query held codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan held code: %w", err)
		}
		codes = append(codes, code)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating held codes: %w", err)
	}

	return codes, nil
}

// Upsert inserts or replaces the position row for (account, fund) with
// the given cost and shares in a single statement.
func (s *PositionRepository) Upsert(accountID, code string, cost, shares float64) error {
	query := `
		INSERT INTO position (account_id, code, cost, shares, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(account_id, code) DO UPDATE SET
			cost = excluded.cost,
			shares = excluded.shares,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, accountID, code, cost, shares, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

// Delete removes the position row for (account, fund). Deleting a
// non-existent row is not an error.
func (s *PositionRepository) Delete(accountID, code string) error {
	if _, err := s.db.Exec(`DELETE FROM position WHERE account_id = ? AND code = ?`, accountID, code); err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

func (s *PositionRepository) queryPositions(query string, args ...any) ([]model.Position, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query position table: %w", err)
	}
	defer rows.Close()

	positions := []model.Position{}
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.AccountID, &p.Code, &p.Cost, &p.Shares); err != nil {
			return nil, fmt.Errorf("failed to scan position table results: %w", err)
		}
		positions = append(positions, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position table: %w", err)
	}

	return positions, nil
}
