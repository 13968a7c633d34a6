package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fundval/fundval-backend/internal/model"
)

// SubscriptionRepository provides data access methods for the
// subscription table.
type SubscriptionRepository struct {
	db DBTX
}

// NewSubscriptionRepository creates a new SubscriptionRepository with the provided database connection.
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert inserts a subscription or, when the (user, code, email) triple
// already exists, updates its thresholds and digest settings in place.
// The notification timestamps are never reset by an upsert.
func (s *SubscriptionRepository) Upsert(sub *model.Subscription) error {
	query := `
		INSERT INTO subscription (id, user_id, code, email, threshold_up, threshold_down,
			enable_volatility, enable_digest, digest_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, code, email) DO UPDATE SET
			threshold_up = excluded.threshold_up,
			threshold_down = excluded.threshold_down,
			enable_volatility = excluded.enable_volatility,
			enable_digest = excluded.enable_digest,
			digest_time = excluded.digest_time
	`
	_, err := s.db.Exec(query,
		sub.ID, sub.UserID, sub.Code, sub.Email,
		sub.ThresholdUp, sub.ThresholdDown,
		sub.EnableVolatility, sub.EnableDigest, sub.DigestTime,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// GetAll retrieves every subscription. The notification reconciler
// evaluates all of them each pass.
func (s *SubscriptionRepository) GetAll() ([]model.Subscription, error) {
	return s.querySubscriptions(`
		SELECT id, user_id, code, email, threshold_up, threshold_down,
			enable_volatility, enable_digest, digest_time, last_notified_at, last_digest_at
		FROM subscription
	`)
}

// GetByUser retrieves all subscriptions belonging to one user.
func (s *SubscriptionRepository) GetByUser(userID string) ([]model.Subscription, error) {
	return s.querySubscriptions(`
		SELECT id, user_id, code, email, threshold_up, threshold_down,
			enable_volatility, enable_digest, digest_time, last_notified_at, last_digest_at
		FROM subscription
		WHERE user_id = ?
	`, userID)
}

// MarkNotified advances last_notified_at after a successful volatility
// alert dispatch.
func (s *SubscriptionRepository) MarkNotified(id string, at time.Time) error {
	if _, err := s.db.Exec(`UPDATE subscription SET last_notified_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id); err != nil {
		return fmt.Errorf("failed to update notification time: %w", err)
	}
	return nil
}

// MarkDigested advances last_digest_at after a successful digest dispatch.
func (s *SubscriptionRepository) MarkDigested(id string, at time.Time) error {
	if _, err := s.db.Exec(`UPDATE subscription SET last_digest_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id); err != nil {
		return fmt.Errorf("failed to update digest time: %w", err)
	}
	return nil
}

// Delete removes a subscription by ID.
func (s *SubscriptionRepository) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM subscription WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (s *SubscriptionRepository) querySubscriptions(query string, args ...any) ([]model.Subscription, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription table: %w", err)
	}
	defer rows.Close()

	subs := []model.Subscription{}
	for rows.Next() {
		var sub model.Subscription
		var lastNotified, lastDigest sql.NullString

		err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.Code, &sub.Email,
			&sub.ThresholdUp, &sub.ThresholdDown,
			&sub.EnableVolatility, &sub.EnableDigest, &sub.DigestTime,
			&lastNotified, &lastDigest,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription table results: %w", err)
		}

		sub.LastNotifiedAt, err = parseNullTime(lastNotified)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		sub.LastDigestAt, err = parseNullTime(lastDigest)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription table: %w", err)
	}

	return subs, nil
}
