package service

import (
	"math"

	"github.com/fundval/fundval-backend/internal/model"
)

// Indicator assumptions: ~250 trading days a year and a 2% risk-free
// rate for the Sharpe ratio.
const (
	tradingDaysPerYear = 250
	riskFreeRate       = 0.02
)

// computeIndicators derives technical indicators from a NAV history in
// ascending date order. Histories shorter than two points yield zeros.
func computeIndicators(history []model.NavPoint) model.TechnicalIndicators {
	if len(history) < 2 {
		return model.TechnicalIndicators{}
	}

	returns := dailyReturns(history)
	if len(returns) == 0 {
		return model.TechnicalIndicators{}
	}

	ind := model.TechnicalIndicators{
		AnnualReturn: annualReturn(history),
		Volatility:   round4(stddev(returns) * math.Sqrt(tradingDaysPerYear)),
		MaxDrawdown:  maxDrawdown(history),
	}
	if ind.Volatility > 0 {
		ind.Sharpe = round4((ind.AnnualReturn - riskFreeRate) / ind.Volatility)
	}
	return ind
}

// dailyReturns converts a NAV series into day-over-day simple returns,
// skipping non-positive NAVs.
func dailyReturns(history []model.NavPoint) []float64 {
	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Nav
		if prev <= 0 || history[i].Nav <= 0 {
			continue
		}
		returns = append(returns, history[i].Nav/prev-1)
	}
	return returns
}

// annualReturn compounds the total return over the covered span to a
// yearly rate.
func annualReturn(history []model.NavPoint) float64 {
	first, last := history[0].Nav, history[len(history)-1].Nav
	if first <= 0 || last <= 0 {
		return 0
	}
	years := float64(len(history)) / tradingDaysPerYear
	total := last/first - 1
	return round4(math.Pow(1+total, 1/years) - 1)
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}

// maxDrawdown is the largest peak-to-trough decline across the series,
// returned as a positive fraction.
func maxDrawdown(history []model.NavPoint) float64 {
	var peak, worst float64
	for _, p := range history {
		if p.Nav <= 0 {
			continue
		}
		if p.Nav > peak {
			peak = p.Nav
		}
		if peak > 0 {
			dd := (peak - p.Nav) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return round4(worst)
}
