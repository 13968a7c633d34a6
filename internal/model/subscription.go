package model

import "time"

// Subscription configures notifications for one (user, fund, email)
// triple. ThresholdUp/ThresholdDown of zero disable the corresponding
// direction. LastNotifiedAt and LastDigestAt advance monotonically and
// independently, gating at most one volatility alert and one digest per
// calendar day.
type Subscription struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	Code             string     `json:"code"`
	Email            string     `json:"email"`
	ThresholdUp      float64    `json:"thresholdUp"`
	ThresholdDown    float64    `json:"thresholdDown"`
	EnableVolatility bool       `json:"enableVolatility"`
	EnableDigest     bool       `json:"enableDigest"`
	DigestTime       string     `json:"digestTime"` // HH:MM local time
	LastNotifiedAt   *time.Time `json:"lastNotifiedAt,omitempty"`
	LastDigestAt     *time.Time `json:"lastDigestAt,omitempty"`
}
