package repository

import (
	"database/sql"
	"fmt"

	"github.com/fundval/fundval-backend/internal/model"
)

// SnapshotRepository provides data access methods for intraday estimate
// snapshots.
type SnapshotRepository struct {
	db DBTX
}

// NewSnapshotRepository creates a new SnapshotRepository with the provided database connection.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert records one snapshot; duplicates for the same (code, date, time)
// are ignored.
func (s *SnapshotRepository) Insert(snap model.IntradaySnapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO intraday_snapshot (code, date, time, estimate)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(code, date, time) DO NOTHING
	`, snap.Code, snap.Date, snap.Time, snap.Estimate)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// GetByCodeAndDate returns a fund's snapshots for one date in time order.
func (s *SnapshotRepository) GetByCodeAndDate(code, date string) ([]model.IntradaySnapshot, error) {
	rows, err := s.db.Query(`
		SELECT code, date, time, estimate FROM intraday_snapshot
		WHERE code = ? AND date = ?
		ORDER BY time ASC
	`, code, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []model.IntradaySnapshot{}
	for rows.Next() {
		var snap model.IntradaySnapshot
		if err := rows.Scan(&snap.Code, &snap.Date, &snap.Time, &snap.Estimate); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot results: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snaps, nil
}

// DeleteBefore removes snapshots older than the cutoff date (YYYY-MM-DD)
// and returns the number of rows removed.
func (s *SnapshotRepository) DeleteBefore(cutoff string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM intraday_snapshot WHERE date < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n, nil
}
