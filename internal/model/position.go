package model

import "time"

// AccountAll is the sentinel account ID that requests a merged view of
// every account owned by a user. It is never a real account row.
const AccountAll = "all"

// Position represents the current holding of one fund within one account.
// It is keyed by (account_id, code) and mutated only by the trade
// settlement path; read paths never write it.
type Position struct {
	AccountID string    `json:"accountId"`
	Code      string    `json:"code"`
	Cost      float64   `json:"cost"`   // weighted-average cost per share
	Shares    float64   `json:"shares"` // always > 0; zero-share rows are deleted
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// PositionView is a position enriched with live valuation data for API
// responses. When the live fetch for a code fails, FetchError is set and
// the valuation fields are zero.
type PositionView struct {
	Code                  string  `json:"code"`
	Name                  string  `json:"name"`
	Type                  string  `json:"type,omitempty"`
	Cost                  float64 `json:"cost"`
	Shares                float64 `json:"shares"`
	Nav                   float64 `json:"nav"`
	Estimate              float64 `json:"estimate"`
	EstimateRate          float64 `json:"estimateRate"`
	EstimateValid         bool    `json:"estimateValid"`
	CostBasis             float64 `json:"costBasis"`
	MarketValue           float64 `json:"marketValue"`
	AccumulatedIncome     float64 `json:"accumulatedIncome"`
	AccumulatedReturnRate float64 `json:"accumulatedReturnRate"`
	DayIncome             float64 `json:"dayIncome"`
	TotalIncome           float64 `json:"totalIncome"`
	TotalReturnRate       float64 `json:"totalReturnRate"`
	UpdateTime            string  `json:"updateTime,omitempty"`
	FetchError            bool    `json:"fetchError,omitempty"`
}

// PortfolioSummary aggregates valuation figures across all positions of
// an account (or of a merged all-accounts view).
type PortfolioSummary struct {
	TotalMarketValue float64 `json:"totalMarketValue"`
	TotalCost        float64 `json:"totalCost"`
	TotalDayIncome   float64 `json:"totalDayIncome"`
	TotalIncome      float64 `json:"totalIncome"`
	TotalReturnRate  float64 `json:"totalReturnRate"`
}

// PortfolioResponse is the full payload returned by the position
// aggregation endpoint.
type PortfolioResponse struct {
	Summary   PortfolioSummary `json:"summary"`
	Positions []PositionView   `json:"positions"`
}
