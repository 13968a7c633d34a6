package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fundval/fundval-backend/internal/model"
)

// NavCacheRepository provides data access methods for the nav_history
// table, the local cache of published NAVs that backs historical NAV
// lookups.
type NavCacheRepository struct {
	db DBTX
}

// CacheMeta describes the freshness of a fund's cached history.
type CacheMeta struct {
	LatestDate string    // newest cached NAV date, YYYY-MM-DD
	UpdatedAt  time.Time // when the newest row was written
	Rows       int       // number of cached rows
}

// NewNavCacheRepository creates a new NavCacheRepository with the provided database connection.
func NewNavCacheRepository(db *sql.DB) *NavCacheRepository {
	return &NavCacheRepository{db: db}
}

// GetNavOnDate returns the cached NAV for one fund on one date. The
// second return value is false when the date is not cached; that is the
// expected signal for an unpublished NAV, not an error.
func (s *NavCacheRepository) GetNavOnDate(code, date string) (float64, bool, error) {
	var nav float64
	err := s.db.QueryRow(`SELECT nav FROM nav_history WHERE code = ? AND date = ?`, code, date).Scan(&nav)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query nav history: %w", err)
	}
	return nav, true, nil
}

// GetHistory returns up to limit cached NAV points for a fund in
// ascending date order. A limit <= 0 returns the full history.
func (s *NavCacheRepository) GetHistory(code string, limit int) ([]model.NavPoint, error) {
	query := `SELECT date, nav FROM nav_history WHERE code = ? ORDER BY date DESC`
	args := []any{code}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nav history: %w", err)
	}
	defer rows.Close()

	points := []model.NavPoint{}
	for rows.Next() {
		var p model.NavPoint
		if err := rows.Scan(&p.Date, &p.Nav); err != nil {
			return nil, fmt.Errorf("failed to scan nav history results: %w", err)
		}
		points = append(points, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nav history: %w", err)
	}

	// Query is newest-first for the LIMIT; callers want ascending dates.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return points, nil
}

// Meta returns freshness information for a fund's cached history.
// Returns nil without error when nothing is cached.
func (s *NavCacheRepository) Meta(code string) (*CacheMeta, error) {
	var meta CacheMeta
	var updatedAtStr string
	err := s.db.QueryRow(`
		SELECT date, updated_at FROM nav_history
		WHERE code = ? ORDER BY date DESC LIMIT 1
	`, code).Scan(&meta.LatestDate, &updatedAtStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query nav history meta: %w", err)
	}

	meta.UpdatedAt, err = ParseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date: %w", err)
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM nav_history WHERE code = ?`, code).Scan(&meta.Rows); err != nil {
		return nil, fmt.Errorf("failed to count nav history rows: %w", err)
	}

	return &meta, nil
}

// UpsertHistory writes a batch of NAV points for one fund, replacing any
// existing rows for the same dates.
func (s *NavCacheRepository) UpsertHistory(code string, points []model.NavPoint) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range points {
		_, err := s.db.Exec(`
			INSERT INTO nav_history (code, date, nav, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(code, date) DO UPDATE SET
				nav = excluded.nav,
				updated_at = excluded.updated_at
		`, code, p.Date, p.Nav, now)
		if err != nil {
			return fmt.Errorf("failed to upsert nav history: %w", err)
		}
	}
	return nil
}
