package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fundval/fundval-backend/internal/model"
)

// FundRepository provides data access methods for the fund catalogue.
type FundRepository struct {
	db DBTX
}

// NewFundRepository creates a new FundRepository with the provided database connection.
func NewFundRepository(db *sql.DB) *FundRepository {
	return &FundRepository{db: db}
}

// GetFund retrieves one catalogue entry by code. Returns nil without
// error when the code is unknown.
func (s *FundRepository) GetFund(code string) (*model.Fund, error) {
	var f model.Fund
	var fundType sql.NullString
	err := s.db.QueryRow(`SELECT code, name, type FROM fund WHERE code = ?`, code).
		Scan(&f.Code, &f.Name, &fundType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query fund: %w", err)
	}
	f.Type = fundType.String
	return &f, nil
}

// Search finds catalogue entries whose code or name contains the query
// string, capped at limit rows.
func (s *FundRepository) Search(q string, limit int) ([]model.Fund, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + q + "%"

	rows, err := s.db.Query(`
		SELECT code, name, type FROM fund
		WHERE code LIKE ? OR name LIKE ?
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search fund table: %w", err)
	}
	defer rows.Close()

	funds := []model.Fund{}
	for rows.Next() {
		var f model.Fund
		var fundType sql.NullString
		if err := rows.Scan(&f.Code, &f.Name, &fundType); err != nil {
			return nil, fmt.Errorf("failed to scan fund table results: %w", err)
		}
		f.Type = fundType.String
		funds = append(funds, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund table: %w", err)
	}

	return funds, nil
}

// UpsertAll replaces catalogue entries with the given batch, inserting
// new codes and refreshing names/types of existing ones.
func (s *FundRepository) UpsertAll(funds []model.Fund) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, f := range funds {
		_, err := s.db.Exec(`
			INSERT INTO fund (code, name, type, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(code) DO UPDATE SET
				name = excluded.name,
				type = excluded.type,
				updated_at = excluded.updated_at
		`, f.Code, f.Name, f.Type, now)
		if err != nil {
			return fmt.Errorf("failed to upsert fund: %w", err)
		}
	}
	return nil
}

// Count returns the number of catalogue entries. Used to decide whether
// an initial fund list fetch is needed.
func (s *FundRepository) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM fund`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count funds: %w", err)
	}
	return n, nil
}
