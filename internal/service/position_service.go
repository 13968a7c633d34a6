package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fundval/fundval-backend/internal/apperrors"
	"github.com/fundval/fundval-backend/internal/fanout"
	"github.com/fundval/fundval-backend/internal/model"
	"github.com/fundval/fundval-backend/internal/repository"
)

// PositionService builds valued portfolio views: it merges stored
// positions with live valuations fetched concurrently and derives the
// per-position and portfolio-level figures.
type PositionService struct {
	positions   *repository.PositionRepository
	funds       *repository.FundRepository
	valuations  *ValuationService
	fanoutWidth int
}

// NewPositionService creates a new PositionService. fanoutWidth bounds
// how many live valuation fetches run concurrently.
func NewPositionService(
	positions *repository.PositionRepository,
	funds *repository.FundRepository,
	valuations *ValuationService,
	fanoutWidth int,
) *PositionService {
	return &PositionService{
		positions:   positions,
		funds:       funds,
		valuations:  valuations,
		fanoutWidth: fanoutWidth,
	}
}

// GetPositions returns the valued portfolio of one account, or the
// merged view of all the user's accounts when accountID is the "all"
// sentinel. Live fetches fan out concurrently; a failed fetch degrades
// that one position to a placeholder instead of failing the request.
func (s *PositionService) GetPositions(ctx context.Context, accountID, userID string) (*model.PortfolioResponse, error) {
	var positions []model.Position
	var err error
	if accountID == model.AccountAll {
		positions, err = s.positions.GetPositionsByUser(userID)
		if err == nil {
			positions = mergePositions(positions)
		}
	} else {
		positions, err = s.positions.GetPositionsByAccount(accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrievePositions, err)
	}

	codes := make([]string, len(positions))
	for i, p := range positions {
		codes[i] = p.Code
	}

	results := fanout.Fetch(ctx, codes, s.fanoutWidth, func(ctx context.Context, code string) (model.Valuation, error) {
		v, ok := s.valuations.GetLiveValuation(ctx, code)
		if !ok {
			return model.Valuation{}, fmt.Errorf("no valuation available for %s", code)
		}
		return v, nil
	})

	views := make([]model.PositionView, 0, len(positions))
	for _, p := range positions {
		res := results[p.Code]
		if res.Err != nil {
			views = append(views, s.placeholderView(p))
			continue
		}
		views = append(views, s.buildView(p, res.Value))
	}

	// Largest holdings first; placeholders sink to the bottom.
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].MarketValue > views[j].MarketValue
	})

	return &model.PortfolioResponse{
		Summary:   summarize(views),
		Positions: views,
	}, nil
}

// mergePositions collapses per-account rows for the same fund into one,
// summing shares and blending the cost by share weight.
func mergePositions(positions []model.Position) []model.Position {
	merged := map[string]*model.Position{}
	order := []string{}
	for _, p := range positions {
		m, ok := merged[p.Code]
		if !ok {
			cp := p
			cp.AccountID = model.AccountAll
			merged[p.Code] = &cp
			order = append(order, p.Code)
			continue
		}
		totalShares := m.Shares + p.Shares
		if totalShares > 0 {
			m.Cost = (m.Cost*m.Shares + p.Cost*p.Shares) / totalShares
		}
		m.Shares = totalShares
	}

	out := make([]model.Position, 0, len(order))
	for _, code := range order {
		out = append(out, *merged[code])
	}
	return out
}

// buildView derives the valued view of one position. When the live
// estimate fails the trustworthiness check, day figures fall back to the
// last published NAV.
func (s *PositionService) buildView(p model.Position, v model.Valuation) model.PositionView {
	name, fundType := s.resolveFundIdentity(p.Code, v.Name)

	estimateValid := trustworthyEstimate(v, name)
	price := v.Nav
	if estimateValid {
		price = v.Estimate
	}

	view := model.PositionView{
		Code:          p.Code,
		Name:          name,
		Type:          fundType,
		Cost:          p.Cost,
		Shares:        p.Shares,
		Nav:           v.Nav,
		Estimate:      v.Estimate,
		EstimateRate:  v.EstimateRate,
		EstimateValid: estimateValid,
		CostBasis:     round2(p.Cost * p.Shares),
		MarketValue:   round2(price * p.Shares),
		UpdateTime:    v.Time,
	}

	view.AccumulatedIncome = round2((v.Nav - p.Cost) * p.Shares)
	if p.Cost > 0 {
		view.AccumulatedReturnRate = round4((v.Nav - p.Cost) / p.Cost * 100)
	}
	if estimateValid {
		view.DayIncome = round2((v.Estimate - v.Nav) * p.Shares)
	}
	view.TotalIncome = round2(view.MarketValue - view.CostBasis)
	if view.CostBasis > 0 {
		view.TotalReturnRate = round4(view.TotalIncome / view.CostBasis * 100)
	}

	return view
}

// placeholderView is the degraded view of a position whose live fetch
// failed: identity and stored figures only, fetchError flagged.
func (s *PositionService) placeholderView(p model.Position) model.PositionView {
	name, fundType := s.resolveFundIdentity(p.Code, "")
	if name == "" {
		name = p.Code
	}
	return model.PositionView{
		Code:       p.Code,
		Name:       name,
		Type:       fundType,
		Cost:       p.Cost,
		Shares:     p.Shares,
		CostBasis:  round2(p.Cost * p.Shares),
		FetchError: true,
	}
}

// resolveFundIdentity prefers the live provider's name, falling back to
// the catalogue for the name and always using it for the type.
func (s *PositionService) resolveFundIdentity(code, liveName string) (name, fundType string) {
	name = liveName
	f, err := s.funds.GetFund(code)
	if err == nil && f != nil {
		if name == "" {
			name = f.Name
		}
		fundType = f.Type
	}
	return name, fundType
}

// trustworthyEstimate decides whether a live estimate is usable for
// valuation. Estimates are rejected when either figure is missing or
// when the implied move exceeds 10%, except for ETF and feeder funds
// which legitimately track large index moves.
func trustworthyEstimate(v model.Valuation, name string) bool {
	if v.Estimate <= 0 || v.Nav <= 0 {
		return false
	}
	if v.EstimateRate > -10 && v.EstimateRate < 10 {
		return true
	}
	return strings.Contains(name, "ETF") || strings.Contains(name, "联接")
}

// summarize aggregates position views into portfolio totals. Placeholder
// rows contribute their cost basis only.
func summarize(views []model.PositionView) model.PortfolioSummary {
	var sum model.PortfolioSummary
	for _, v := range views {
		sum.TotalCost += v.CostBasis
		if v.FetchError {
			continue
		}
		sum.TotalMarketValue += v.MarketValue
		sum.TotalDayIncome += v.DayIncome
		sum.TotalIncome += v.TotalIncome
	}
	sum.TotalCost = round2(sum.TotalCost)
	sum.TotalMarketValue = round2(sum.TotalMarketValue)
	sum.TotalDayIncome = round2(sum.TotalDayIncome)
	sum.TotalIncome = round2(sum.TotalIncome)
	if sum.TotalCost > 0 {
		sum.TotalReturnRate = round4(sum.TotalIncome / sum.TotalCost * 100)
	}
	return sum
}
