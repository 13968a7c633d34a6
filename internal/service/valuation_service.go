package service

import (
	"context"
	"log"
	"time"

	"github.com/fundval/fundval-backend/internal/model"
	"github.com/fundval/fundval-backend/internal/repository"
)

// minCachedRows is the minimum history depth below which the NAV cache is
// considered too thin to answer from.
const minCachedRows = 10

// LiveProvider fetches a live valuation from one market data source.
type LiveProvider interface {
	Name() string
	FetchLive(ctx context.Context, code string) (model.Valuation, error)
}

// HistoryProvider fetches the full published NAV series for a fund.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, code string) ([]model.NavPoint, error)
}

// ValuationService is the valuation source adapter. It combines a primary
// and a secondary live provider into best-effort live valuations, and
// answers historical NAV lookups from a locally cached copy of the
// published history.
type ValuationService struct {
	primary   LiveProvider
	secondary LiveProvider
	history   HistoryProvider
	navRepo   *repository.NavCacheRepository

	cacheTTL    time.Duration
	publishHour int
	loc         *time.Location
	now         func() time.Time
}

// NewValuationService creates a new ValuationService. cacheTTL bounds the
// age of the NAV cache; publishHour is the local hour after which the
// current day's NAV is expected to have been published.
func NewValuationService(
	primary LiveProvider,
	secondary LiveProvider,
	history HistoryProvider,
	navRepo *repository.NavCacheRepository,
	cacheTTL time.Duration,
	publishHour int,
	loc *time.Location,
) *ValuationService {
	if loc == nil {
		loc = time.Local
	}
	return &ValuationService{
		primary:     primary,
		secondary:   secondary,
		history:     history,
		navRepo:     navRepo,
		cacheTTL:    cacheTTL,
		publishHour: publishHour,
		loc:         loc,
		now:         time.Now,
	}
}

// SetNow overrides the clock used for cache freshness decisions. Tests
// use it to pin time.
func (s *ValuationService) SetNow(now func() time.Time) {
	s.now = now
}

// GetLiveValuation fetches a best-effort live valuation for one fund.
// The primary provider is queried first; when it fails or yields no
// usable estimate, the secondary provider fills in any fields the primary
// left empty, never overwriting a populated one. Provider failures are
// treated as absence of data, not errors: the returned bool is false only
// when neither source produced anything usable.
func (s *ValuationService) GetLiveValuation(ctx context.Context, code string) (model.Valuation, bool) {
	v, err := s.primary.FetchLive(ctx, code)
	if err != nil {
		log.Printf("live valuation fetch failed for %s via %s: %v", code, s.primary.Name(), err)
		v = model.Valuation{Code: code}
	}

	if v.Estimate == 0 {
		fallback, err := s.secondary.FetchLive(ctx, code)
		if err != nil {
			log.Printf("live valuation fetch failed for %s via %s: %v", code, s.secondary.Name(), err)
		} else {
			v = overlayValuation(v, fallback)
		}
	}

	return v, !v.Empty()
}

// overlayValuation fills the zero/empty fields of primary from fallback.
func overlayValuation(primary, fallback model.Valuation) model.Valuation {
	if primary.Name == "" {
		primary.Name = fallback.Name
	}
	if primary.Nav == 0 {
		primary.Nav = fallback.Nav
	}
	if primary.Estimate == 0 {
		primary.Estimate = fallback.Estimate
	}
	if primary.EstimateRate == 0 {
		primary.EstimateRate = fallback.EstimateRate
	}
	if primary.Time == "" {
		primary.Time = fallback.Time
	}
	if primary.Source == "" || primary.Empty() {
		primary.Source = fallback.Source
	}
	if primary.Code == "" {
		primary.Code = fallback.Code
	}
	return primary
}

// GetHistoricalNav looks up the published NAV of one fund on one trading
// day (YYYY-MM-DD). A false result means the NAV for that date is not yet
// published: that is the expected pending-settlement signal, not an
// error. When the date is missing and the local cache is stale, the full
// recent history is refetched before answering.
func (s *ValuationService) GetHistoricalNav(ctx context.Context, code, date string) (float64, bool, error) {
	nav, ok, err := s.navRepo.GetNavOnDate(code, date)
	if err != nil {
		return 0, false, err
	}
	if ok {
		return nav, true, nil
	}

	stale, err := s.cacheStale(code)
	if err != nil {
		return 0, false, err
	}
	if !stale {
		return 0, false, nil
	}

	if err := s.refreshHistory(ctx, code); err != nil {
		// Provider trouble degrades to "no data"; the caller records a
		// pending trade and the reconciler retries on a later pass.
		log.Printf("nav history refresh failed for %s: %v", code, err)
		return 0, false, nil
	}

	return s.navRepo.GetNavOnDate(code, date)
}

// GetHistory returns up to limit cached NAV points for a fund in
// ascending date order, refreshing the cache first when it has gone
// stale.
func (s *ValuationService) GetHistory(ctx context.Context, code string, limit int) ([]model.NavPoint, error) {
	stale, err := s.cacheStale(code)
	if err != nil {
		return nil, err
	}
	if stale {
		if err := s.refreshHistory(ctx, code); err != nil {
			log.Printf("nav history refresh failed for %s: %v", code, err)
		}
	}
	return s.navRepo.GetHistory(code, limit)
}

// RefreshHistory forces a provider fetch of the fund's published history
// into the cache, regardless of freshness.
func (s *ValuationService) RefreshHistory(ctx context.Context, code string) error {
	return s.refreshHistory(ctx, code)
}

// cacheStale decides whether the cached history for a fund needs a
// refetch. The cache is stale when empty, too thin, or older than the
// TTL. Past the publish hour a cache whose newest date is before today is
// also stale; before it, same-day intraday calls never invalidate a
// fresher cache.
func (s *ValuationService) cacheStale(code string) (bool, error) {
	meta, err := s.navRepo.Meta(code)
	if err != nil {
		return false, err
	}
	if meta == nil || meta.Rows < minCachedRows {
		return true, nil
	}

	now := s.now().In(s.loc)
	if now.Sub(meta.UpdatedAt) >= s.cacheTTL {
		return true, nil
	}
	if now.Hour() >= s.publishHour && meta.LatestDate < now.Format("2006-01-02") {
		return true, nil
	}

	return false, nil
}

func (s *ValuationService) refreshHistory(ctx context.Context, code string) error {
	points, err := s.history.FetchHistory(ctx, code)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	return s.navRepo.UpsertHistory(code, points)
}
