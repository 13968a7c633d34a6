package model

import "time"

// Fund is a catalogue entry for a tradable fund, refreshed periodically
// from the primary provider's fund list.
type Fund struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// FundDetail combines the live valuation of a fund with its cached NAV
// history and derived technical indicators.
type FundDetail struct {
	Code       string              `json:"code"`
	Name       string              `json:"name"`
	Type       string              `json:"type,omitempty"`
	Nav        float64             `json:"nav"`
	Estimate   float64             `json:"estimate"`
	EstRate    float64             `json:"estimateRate"`
	UpdateTime string              `json:"updateTime,omitempty"`
	History    []NavPoint          `json:"history,omitempty"`
	Indicators TechnicalIndicators `json:"indicators"`
}

// TechnicalIndicators are derived from a fund's NAV history. Values are
// zero when the history is too short to compute them.
type TechnicalIndicators struct {
	AnnualReturn float64 `json:"annualReturn"`
	Volatility   float64 `json:"volatility"`
	Sharpe       float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"maxDrawdown"`
}

// IntradaySnapshot records one intraday estimate observation, collected
// during the trading window and retained for a limited period.
type IntradaySnapshot struct {
	Code     string  `json:"code"`
	Date     string  `json:"date"` // YYYY-MM-DD
	Time     string  `json:"time"` // HH:MM
	Estimate float64 `json:"estimate"`
}
