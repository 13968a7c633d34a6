package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fundval/fundval-backend/internal/apperrors"
	"github.com/fundval/fundval-backend/internal/mail"
	"github.com/fundval/fundval-backend/internal/model"
	"github.com/fundval/fundval-backend/internal/repository"
)

// NotificationService evaluates subscriptions against live valuations
// and dispatches volatility alerts and daily digests, at most one of
// each per subscription per calendar day.
type NotificationService struct {
	subs       *repository.SubscriptionRepository
	valuations *ValuationService
	sender     mail.Sender
	loc        *time.Location
	now        func() time.Time
}

// NewNotificationService creates a new NotificationService. loc is the
// timezone in which calendar-day and time-of-day gates are evaluated.
func NewNotificationService(
	subs *repository.SubscriptionRepository,
	valuations *ValuationService,
	sender mail.Sender,
	loc *time.Location,
) *NotificationService {
	if loc == nil {
		loc = time.Local
	}
	return &NotificationService{
		subs:       subs,
		valuations: valuations,
		sender:     sender,
		loc:        loc,
		now:        time.Now,
	}
}

// SetNow overrides the clock used for the per-day dispatch gates. Tests
// use it to pin time.
func (s *NotificationService) SetNow(now func() time.Time) {
	s.now = now
}

// UpsertSubscription validates and saves a subscription. An existing
// (user, fund, email) triple is updated in place without resetting its
// notification timestamps.
func (s *NotificationService) UpsertSubscription(sub *model.Subscription) (*model.Subscription, error) {
	if sub.ThresholdUp < 0 || sub.ThresholdDown > 0 {
		return nil, apperrors.ErrInvalidThreshold
	}
	if sub.EnableDigest {
		if _, err := time.Parse("15:04", sub.DigestTime); err != nil {
			return nil, apperrors.ErrInvalidDigestTime
		}
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}

	if err := s.subs.Upsert(sub); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToSaveSubscription, err)
	}
	return sub, nil
}

// GetSubscriptionsByUser returns all subscriptions of one user.
func (s *NotificationService) GetSubscriptionsByUser(userID string) ([]model.Subscription, error) {
	subs, err := s.subs.GetByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveSubscriptions, err)
	}
	return subs, nil
}

// DeleteSubscription removes a subscription by ID.
func (s *NotificationService) DeleteSubscription(id string) error {
	return s.subs.Delete(id)
}

// CheckSubscriptions is the notification reconciler pass. Every
// subscription is evaluated against the current live valuation of its
// fund; each fund is fetched at most once per pass. A send failure is
// logged and leaves the subscription's gate untouched, so the next pass
// retries. Returns the number of mails dispatched.
func (s *NotificationService) CheckSubscriptions(ctx context.Context) (int, error) {
	subs, err := s.subs.GetAll()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveSubscriptions, err)
	}

	type memoEntry struct {
		val model.Valuation
		ok  bool
	}
	memo := map[string]memoEntry{}

	now := s.now().In(s.loc)
	sent := 0
	for i := range subs {
		sub := &subs[i]
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		entry, seen := memo[sub.Code]
		if !seen {
			v, ok := s.valuations.GetLiveValuation(ctx, sub.Code)
			entry = memoEntry{val: v, ok: ok}
			memo[sub.Code] = entry
		}
		if !entry.ok {
			continue
		}

		if s.volatilityDue(sub, entry.val, now) {
			if err := s.sendVolatilityAlert(sub, entry.val); err != nil {
				log.Printf("volatility alert failed for subscription %s: %v", sub.ID, err)
			} else if err := s.subs.MarkNotified(sub.ID, now); err != nil {
				log.Printf("failed to record alert time for subscription %s: %v", sub.ID, err)
			} else {
				sent++
			}
		}

		if s.digestDue(sub, now) {
			if err := s.sendDigest(sub, entry.val); err != nil {
				log.Printf("digest failed for subscription %s: %v", sub.ID, err)
			} else if err := s.subs.MarkDigested(sub.ID, now); err != nil {
				log.Printf("failed to record digest time for subscription %s: %v", sub.ID, err)
			} else {
				sent++
			}
		}
	}

	return sent, nil
}

// volatilityDue reports whether a volatility alert should fire now:
// alerts are enabled, the live move crosses a configured threshold, and
// none has been sent today.
func (s *NotificationService) volatilityDue(sub *model.Subscription, v model.Valuation, now time.Time) bool {
	if !sub.EnableVolatility || v.Estimate <= 0 {
		return false
	}
	crossed := (sub.ThresholdUp > 0 && v.EstimateRate >= sub.ThresholdUp) ||
		(sub.ThresholdDown < 0 && v.EstimateRate <= sub.ThresholdDown)
	if !crossed {
		return false
	}
	return !sameLocalDay(sub.LastNotifiedAt, now, s.loc)
}

// digestDue reports whether the daily digest should fire now: digests
// are enabled, the local clock has reached the configured time, and none
// has been sent today.
func (s *NotificationService) digestDue(sub *model.Subscription, now time.Time) bool {
	if !sub.EnableDigest || sub.DigestTime == "" {
		return false
	}
	if now.Format("15:04") < sub.DigestTime {
		return false
	}
	return !sameLocalDay(sub.LastDigestAt, now, s.loc)
}

// sameLocalDay reports whether last falls on now's calendar day in loc.
// A nil last means no dispatch has ever happened.
func sameLocalDay(last *time.Time, now time.Time, loc *time.Location) bool {
	if last == nil {
		return false
	}
	return last.In(loc).Format("2006-01-02") == now.Format("2006-01-02")
}

func (s *NotificationService) sendVolatilityAlert(sub *model.Subscription, v model.Valuation) error {
	direction := "up"
	if v.EstimateRate < 0 {
		direction = "down"
	}
	subject := fmt.Sprintf("Fund alert: %s %s %.2f%%", fundLabel(v, sub.Code), direction, v.EstimateRate)
	body := fmt.Sprintf(`<h3>%s (%s)</h3>
<p>Live estimate moved <b>%.2f%%</b>, crossing your alert threshold.</p>
<table>
<tr><td>Last NAV</td><td>%.4f</td></tr>
<tr><td>Estimate</td><td>%.4f</td></tr>
<tr><td>As of</td><td>%s</td></tr>
</table>`,
		fundLabel(v, sub.Code), sub.Code, v.EstimateRate, v.Nav, v.Estimate, v.Time)
	return s.sender.Send(sub.Email, subject, body, true)
}

func (s *NotificationService) sendDigest(sub *model.Subscription, v model.Valuation) error {
	subject := fmt.Sprintf("Daily fund digest: %s", fundLabel(v, sub.Code))
	body := fmt.Sprintf(`<h3>%s (%s)</h3>
<table>
<tr><td>Last NAV</td><td>%.4f</td></tr>
<tr><td>Estimate</td><td>%.4f</td></tr>
<tr><td>Estimated change</td><td>%.2f%%</td></tr>
<tr><td>As of</td><td>%s</td></tr>
</table>`,
		fundLabel(v, sub.Code), sub.Code, v.Nav, v.Estimate, v.EstimateRate, v.Time)
	return s.sender.Send(sub.Email, subject, body, true)
}

func fundLabel(v model.Valuation, code string) string {
	if v.Name != "" {
		return v.Name
	}
	return code
}
