package model

import "time"

// Account groups positions for one user. Account management itself is
// out of scope; the row exists so positions can be scoped and merged per
// user.
type Account struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}
