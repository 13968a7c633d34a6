package model

// Valuation is a transient live quote for a fund, assembled from one or
// more providers. It is never persisted as authoritative state.
type Valuation struct {
	Code         string  `json:"code"`
	Name         string  `json:"name,omitempty"`
	Nav          float64 `json:"nav"`          // last published net asset value
	Estimate     float64 `json:"estimate"`     // live intraday estimate
	EstimateRate float64 `json:"estimateRate"` // estimate change percent vs last NAV
	Time         string  `json:"time,omitempty"`
	Source       string  `json:"source,omitempty"`
}

// Empty reports whether the valuation carries no usable data at all.
func (v Valuation) Empty() bool {
	return v.Nav == 0 && v.Estimate == 0 && v.Name == ""
}

// NavPoint is one published NAV observation in a fund's history.
type NavPoint struct {
	Date string  `json:"date"` // YYYY-MM-DD
	Nav  float64 `json:"nav"`
}
