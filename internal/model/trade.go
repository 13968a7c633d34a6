package model

import "time"

// Trade operation types.
const (
	TradeOpAdd    = "add"
	TradeOpReduce = "reduce"
)

// Trade is an immutable append-only log entry for a buy ("add") or sell
// ("reduce") intent. A trade is Pending while SettlementNav and AppliedAt
// are unset; it becomes Settled exactly once, when the settlement fields
// are written together.
type Trade struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"accountId"`
	Code           string     `json:"code"`
	OpType         string     `json:"opType"`                   // add | reduce
	Amount         float64    `json:"amount,omitempty"`         // currency, for add; filled on settle for reduce
	SharesRedeemed float64    `json:"sharesRedeemed,omitempty"` // for reduce
	SettlementDate string     `json:"settlementDate"`           // YYYY-MM-DD
	SettlementNav  *float64   `json:"settlementNav,omitempty"`
	SharesDelta    *float64   `json:"sharesDelta,omitempty"`
	CostAfter      *float64   `json:"costAfter,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	AppliedAt      *time.Time `json:"appliedAt,omitempty"`
}

// Pending reports whether the trade still awaits its settlement price.
func (t Trade) Pending() bool {
	return t.SettlementNav == nil && t.AppliedAt == nil
}

// TradeResult is returned to callers of AddTrade/ReduceTrade. Pending is
// an expected outcome, not an error: the settlement NAV was not yet
// published and the reconciler will apply the trade later.
type TradeResult struct {
	TradeID        string  `json:"tradeId"`
	Pending        bool    `json:"pending"`
	SettlementDate string  `json:"settlementDate"`
	SettlementNav  float64 `json:"settlementNav,omitempty"`
	Amount         float64 `json:"amount,omitempty"`
	SharesDelta    float64 `json:"sharesDelta,omitempty"`
	CostAfter      float64 `json:"costAfter,omitempty"`
	SharesAfter    float64 `json:"sharesAfter,omitempty"`
}
