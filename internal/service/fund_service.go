package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fundval/fundval-backend/internal/apperrors"
	"github.com/fundval/fundval-backend/internal/calendar"
	"github.com/fundval/fundval-backend/internal/fanout"
	"github.com/fundval/fundval-backend/internal/model"
	"github.com/fundval/fundval-backend/internal/repository"
)

// Intraday snapshot collection window, local market time. Bounds are
// slightly padded around the trading session so the opening and closing
// estimates are captured.
const (
	snapshotWindowOpen  = "09:35"
	snapshotWindowClose = "15:05"
)

// FundListProvider fetches the full tradable fund catalogue.
type FundListProvider interface {
	FetchFundList(ctx context.Context) ([]model.Fund, error)
}

// FundService serves the fund catalogue, fund detail views, and the
// intraday snapshot collector.
type FundService struct {
	funds      *repository.FundRepository
	snapshots  *repository.SnapshotRepository
	positions  *repository.PositionRepository
	valuations *ValuationService
	list       FundListProvider
	cal        *calendar.Calendar

	fanoutWidth int
	retention   time.Duration
	loc         *time.Location
	now         func() time.Time
}

// NewFundService creates a new FundService. retention bounds how long
// intraday snapshots are kept.
func NewFundService(
	funds *repository.FundRepository,
	snapshots *repository.SnapshotRepository,
	positions *repository.PositionRepository,
	valuations *ValuationService,
	list FundListProvider,
	cal *calendar.Calendar,
	fanoutWidth int,
	retention time.Duration,
	loc *time.Location,
) *FundService {
	if loc == nil {
		loc = time.Local
	}
	return &FundService{
		funds:       funds,
		snapshots:   snapshots,
		positions:   positions,
		valuations:  valuations,
		list:        list,
		cal:         cal,
		fanoutWidth: fanoutWidth,
		retention:   retention,
		loc:         loc,
		now:         time.Now,
	}
}

// SetNow overrides the clock used for the snapshot window and retention
// cutoff. Tests use it to pin time.
func (s *FundService) SetNow(now func() time.Time) {
	s.now = now
}

// Search finds catalogue entries matching the query by code or name.
func (s *FundService) Search(q string, limit int) ([]model.Fund, error) {
	funds, err := s.funds.Search(q, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToSearchFunds, err)
	}
	return funds, nil
}

// GetValuation returns the current live valuation for one fund.
func (s *FundService) GetValuation(ctx context.Context, code string) (*model.Valuation, error) {
	v, ok := s.valuations.GetLiveValuation(ctx, code)
	if !ok {
		return nil, apperrors.ErrFailedToRetrieveValuation
	}
	return &v, nil
}

// GetHistory returns the cached NAV history of a fund in ascending date
// order, refreshed first when stale.
func (s *FundService) GetHistory(ctx context.Context, code string, limit int) ([]model.NavPoint, error) {
	points, err := s.valuations.GetHistory(ctx, code, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveFundHistory, err)
	}
	return points, nil
}

// GetDetail assembles the full detail view of one fund: identity, live
// valuation, NAV history and the technical indicators derived from it.
// A live fetch failure degrades the valuation fields to zero rather than
// failing the view.
func (s *FundService) GetDetail(ctx context.Context, code string, historyLimit int) (*model.FundDetail, error) {
	detail := &model.FundDetail{Code: code}

	if f, err := s.funds.GetFund(code); err == nil && f != nil {
		detail.Name = f.Name
		detail.Type = f.Type
	}

	if v, ok := s.valuations.GetLiveValuation(ctx, code); ok {
		if detail.Name == "" {
			detail.Name = v.Name
		}
		detail.Nav = v.Nav
		detail.Estimate = v.Estimate
		detail.EstRate = v.EstimateRate
		detail.UpdateTime = v.Time
	}

	history, err := s.valuations.GetHistory(ctx, code, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveFundHistory, err)
	}
	detail.History = history
	detail.Indicators = computeIndicators(history)

	if detail.Name == "" && len(history) == 0 {
		return nil, apperrors.ErrFundNotFound
	}

	return detail, nil
}

// RefreshFundList replaces the fund catalogue with the provider's current
// list. Returns the number of entries loaded.
func (s *FundService) RefreshFundList(ctx context.Context) (int, error) {
	funds, err := s.list.FetchFundList(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch fund list: %w", err)
	}
	if len(funds) == 0 {
		return 0, nil
	}
	if err := s.funds.UpsertAll(funds); err != nil {
		return 0, err
	}
	return len(funds), nil
}

// EnsureFundList loads the catalogue once at startup when it is empty.
func (s *FundService) EnsureFundList(ctx context.Context) error {
	n, err := s.funds.Count()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	loaded, err := s.RefreshFundList(ctx)
	if err != nil {
		return err
	}
	log.Printf("fund catalogue initialized with %d entries", loaded)
	return nil
}

// RefreshHoldingsNav refetches the published NAV history of every held
// fund. Scheduled after the daily publish hour so same-day NAVs land in
// the cache before the settlement reconciler needs them.
func (s *FundService) RefreshHoldingsNav(ctx context.Context) error {
	codes, err := s.positions.DistinctHeldCodes()
	if err != nil {
		return err
	}

	results := fanout.Fetch(ctx, codes, s.fanoutWidth, func(ctx context.Context, code string) (struct{}, error) {
		return struct{}{}, s.valuations.RefreshHistory(ctx, code)
	})
	for code, res := range results {
		if res.Err != nil {
			log.Printf("nav refresh failed for %s: %v", code, res.Err)
		}
	}
	return nil
}

// CollectIntradaySnapshots records the current estimate of every held
// fund, but only on trading days within the market session window.
// Returns the number of snapshots recorded.
func (s *FundService) CollectIntradaySnapshots(ctx context.Context) (int, error) {
	now := s.now().In(s.loc)
	if !s.cal.IsTradingDay(now) {
		return 0, nil
	}
	hhmm := now.Format("15:04")
	if hhmm < snapshotWindowOpen || hhmm > snapshotWindowClose {
		return 0, nil
	}

	codes, err := s.positions.DistinctHeldCodes()
	if err != nil {
		return 0, err
	}

	results := fanout.Fetch(ctx, codes, s.fanoutWidth, func(ctx context.Context, code string) (model.Valuation, error) {
		v, ok := s.valuations.GetLiveValuation(ctx, code)
		if !ok {
			return model.Valuation{}, fmt.Errorf("no valuation available for %s", code)
		}
		return v, nil
	})

	date := now.Format("2006-01-02")
	recorded := 0
	for code, res := range results {
		if res.Err != nil || res.Value.Estimate <= 0 {
			continue
		}
		err := s.snapshots.Insert(model.IntradaySnapshot{
			Code:     code,
			Date:     date,
			Time:     hhmm,
			Estimate: res.Value.Estimate,
		})
		if err != nil {
			log.Printf("snapshot insert failed for %s: %v", code, err)
			continue
		}
		recorded++
	}

	return recorded, nil
}

// GetSnapshots returns a fund's intraday snapshots for one date in time
// order. An empty date defaults to today.
func (s *FundService) GetSnapshots(code, date string) ([]model.IntradaySnapshot, error) {
	if date == "" {
		date = s.now().In(s.loc).Format("2006-01-02")
	}
	return s.snapshots.GetByCodeAndDate(code, date)
}

// CleanupSnapshots removes snapshots past the retention period and
// returns the number removed.
func (s *FundService) CleanupSnapshots() (int64, error) {
	cutoff := s.now().In(s.loc).Add(-s.retention).Format("2006-01-02")
	return s.snapshots.DeleteBefore(cutoff)
}
