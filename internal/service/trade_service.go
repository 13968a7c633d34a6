package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/fundval/fundval-backend/internal/apperrors"
	"github.com/fundval/fundval-backend/internal/calendar"
	"github.com/fundval/fundval-backend/internal/model"
	"github.com/fundval/fundval-backend/internal/repository"
)

// NavLookup resolves the published NAV of a fund on a settlement date.
// A false result means the NAV is not published yet.
type NavLookup interface {
	GetHistoricalNav(ctx context.Context, code, date string) (float64, bool, error)
}

// TradeService is the trade settlement engine. It records buy/sell
// intents at T+1 settlement dates, settles them synchronously when the
// settlement NAV is already published, and leaves them pending otherwise
// for ProcessPendingTrades to reconcile.
type TradeService struct {
	db        *sql.DB
	positions *repository.PositionRepository
	trades    *repository.TradeRepository
	navs      NavLookup
	cal       *calendar.Calendar
	now       func() time.Time
}

// NewTradeService creates a new TradeService with the provided
// dependencies.
func NewTradeService(
	db *sql.DB,
	positions *repository.PositionRepository,
	trades *repository.TradeRepository,
	navs NavLookup,
	cal *calendar.Calendar,
) *TradeService {
	return &TradeService{
		db:        db,
		positions: positions,
		trades:    trades,
		navs:      navs,
		cal:       cal,
		now:       time.Now,
	}
}

// SetNow overrides the clock used for settlement dates and applied-at
// stamps. Tests use it to pin time.
func (s *TradeService) SetNow(now func() time.Time) {
	s.now = now
}

// AddTrade records a buy of `amount` currency units of a fund. The trade
// settles at the NAV of the next trading day after tradeTime (the current
// time when zero, so backdated entries get the settlement date they would
// have had); when that NAV is already published the position is updated
// immediately, otherwise the trade is stored pending and the result
// reports Pending=true.
func (s *TradeService) AddTrade(ctx context.Context, accountID, code string, amount float64, tradeTime time.Time) (*model.TradeResult, error) {
	if amount <= 0 {
		return nil, apperrors.ErrNonPositiveAmount
	}

	if tradeTime.IsZero() {
		tradeTime = s.now()
	}
	settlementDate := s.cal.NextTradingDay(tradeTime).Format("2006-01-02")
	trade := &model.Trade{
		ID:             uuid.New().String(),
		AccountID:      accountID,
		Code:           code,
		OpType:         model.TradeOpAdd,
		Amount:         round2(amount),
		SettlementDate: settlementDate,
		CreatedAt:      s.now().UTC(),
	}

	nav, ok, err := s.navs.GetHistoricalNav(ctx, code, settlementDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRecordTrade, err)
	}
	if !ok {
		if err := s.trades.Insert(trade); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRecordTrade, err)
		}
		return &model.TradeResult{
			TradeID:        trade.ID,
			Pending:        true,
			SettlementDate: settlementDate,
			Amount:         trade.Amount,
		}, nil
	}

	return s.settleNewTrade(trade, nav)
}

// ReduceTrade records a sell of `shares` fund shares, settling at the
// next trading day after tradeTime (the current time when zero). Share
// sufficiency is checked against the current position before the trade is
// recorded; the proceeds amount is only known once the settlement NAV is.
func (s *TradeService) ReduceTrade(ctx context.Context, accountID, code string, shares float64, tradeTime time.Time) (*model.TradeResult, error) {
	if shares <= 0 {
		return nil, apperrors.ErrNonPositiveShares
	}

	pos, err := s.positions.GetPosition(accountID, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRecordTrade, err)
	}
	if pos == nil {
		return nil, apperrors.ErrPositionNotFound
	}
	if shares > pos.Shares {
		return nil, apperrors.ErrInsufficientShares
	}

	if tradeTime.IsZero() {
		tradeTime = s.now()
	}
	settlementDate := s.cal.NextTradingDay(tradeTime).Format("2006-01-02")
	trade := &model.Trade{
		ID:             uuid.New().String(),
		AccountID:      accountID,
		Code:           code,
		OpType:         model.TradeOpReduce,
		SharesRedeemed: round4(shares),
		SettlementDate: settlementDate,
		CreatedAt:      s.now().UTC(),
	}

	nav, ok, err := s.navs.GetHistoricalNav(ctx, code, settlementDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRecordTrade, err)
	}
	if !ok {
		if err := s.trades.Insert(trade); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRecordTrade, err)
		}
		return &model.TradeResult{
			TradeID:        trade.ID,
			Pending:        true,
			SettlementDate: settlementDate,
		}, nil
	}

	return s.settleNewTrade(trade, nav)
}

// settleNewTrade inserts a trade already settled at the given NAV and
// applies its position effect, atomically.
func (s *TradeService) settleNewTrade(trade *model.Trade, nav float64) (*model.TradeResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRecordTrade, err)
	}
	defer tx.Rollback()

	outcome, err := s.applyToPosition(s.positions.WithTx(tx), trade, nav)
	if err != nil {
		return nil, err
	}

	appliedAt := s.now().UTC()
	trade.SettlementNav = &nav
	trade.SharesDelta = &outcome.sharesDelta
	trade.CostAfter = &outcome.costAfter
	trade.Amount = outcome.amount
	trade.AppliedAt = &appliedAt
	if err := s.trades.WithTx(tx).Insert(trade); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRecordTrade, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRecordTrade, err)
	}

	return &model.TradeResult{
		TradeID:        trade.ID,
		Pending:        false,
		SettlementDate: trade.SettlementDate,
		SettlementNav:  nav,
		Amount:         outcome.amount,
		SharesDelta:    outcome.sharesDelta,
		CostAfter:      outcome.costAfter,
		SharesAfter:    outcome.sharesAfter,
	}, nil
}

// ProcessPendingTrades scans trades whose settlement NAV was unknown at
// entry and settles every one whose NAV has since been published. Each
// trade settles in its own transaction so one failure never blocks the
// rest; the applied_at guard in the settle statement keeps concurrent
// passes from applying a trade twice. Returns the number of trades
// settled in this pass.
func (s *TradeService) ProcessPendingTrades(ctx context.Context) (int, error) {
	pending, err := s.trades.GetPending()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveTrades, err)
	}

	settled := 0
	for i := range pending {
		trade := &pending[i]
		if err := ctx.Err(); err != nil {
			return settled, err
		}

		nav, ok, err := s.navs.GetHistoricalNav(ctx, trade.Code, trade.SettlementDate)
		if err != nil {
			log.Printf("pending trade %s: nav lookup failed for %s on %s: %v",
				trade.ID, trade.Code, trade.SettlementDate, err)
			continue
		}
		if !ok {
			continue
		}

		applied, err := s.settlePendingTrade(trade, nav)
		if err != nil {
			log.Printf("pending trade %s: settle failed: %v", trade.ID, err)
			continue
		}
		if applied {
			settled++
		}
	}

	return settled, nil
}

// settlePendingTrade applies one previously recorded pending trade at the
// given NAV. Returns false when another pass settled it first.
func (s *TradeService) settlePendingTrade(trade *model.Trade, nav float64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var amountArg *float64
	outcome, err := s.applyToPosition(s.positions.WithTx(tx), trade, nav)
	if err != nil {
		return false, err
	}
	if trade.OpType == model.TradeOpReduce {
		amountArg = &outcome.amount
	}

	ok, err := s.trades.WithTx(tx).Settle(trade.ID, nav, outcome.sharesDelta, outcome.costAfter, amountArg, s.now())
	if err != nil {
		return false, err
	}
	if !ok {
		// Already settled by a concurrent pass; discard our position write.
		return false, nil
	}

	return true, tx.Commit()
}

// settleOutcome is the computed position effect of settling one trade.
type settleOutcome struct {
	amount      float64
	sharesDelta float64
	costAfter   float64
	sharesAfter float64
}

// applyToPosition computes and writes the position change for a trade at
// the given settlement NAV. Buys blend the weighted-average cost; sells
// keep it and delete the position when it reaches zero shares.
func (s *TradeService) applyToPosition(positions *repository.PositionRepository, trade *model.Trade, nav float64) (settleOutcome, error) {
	pos, err := positions.GetPosition(trade.AccountID, trade.Code)
	if err != nil {
		return settleOutcome{}, err
	}

	switch trade.OpType {
	case model.TradeOpAdd:
		return s.applyAdd(positions, pos, trade, nav)
	case model.TradeOpReduce:
		return s.applyReduce(positions, pos, trade, nav)
	default:
		return settleOutcome{}, fmt.Errorf("unknown trade op type %q", trade.OpType)
	}
}

func (s *TradeService) applyAdd(positions *repository.PositionRepository, pos *model.Position, trade *model.Trade, nav float64) (settleOutcome, error) {
	var oldShares, oldCost float64
	if pos != nil {
		oldShares, oldCost = pos.Shares, pos.Cost
	}

	sharesDelta := round4(trade.Amount / nav)
	newShares := round4(oldShares + sharesDelta)
	newCost := round4((oldCost*oldShares + nav*sharesDelta) / newShares)

	if err := positions.Upsert(trade.AccountID, trade.Code, newCost, newShares); err != nil {
		return settleOutcome{}, err
	}

	return settleOutcome{
		amount:      trade.Amount,
		sharesDelta: sharesDelta,
		costAfter:   newCost,
		sharesAfter: newShares,
	}, nil
}

func (s *TradeService) applyReduce(positions *repository.PositionRepository, pos *model.Position, trade *model.Trade, nav float64) (settleOutcome, error) {
	if pos == nil {
		return settleOutcome{}, apperrors.ErrPositionNotFound
	}

	amount := round2(trade.SharesRedeemed * nav)
	newShares := round4(pos.Shares - trade.SharesRedeemed)
	costAfter := pos.Cost

	// Selling every remaining share removes the row and reports a zero
	// resulting cost. Sufficiency is checked at entry; a pending sell may
	// still exceed the position it settles against, and is clamped to a
	// full redemption rather than left unsettleable.
	if newShares <= 0 {
		if err := positions.Delete(trade.AccountID, trade.Code); err != nil {
			return settleOutcome{}, err
		}
		newShares = 0
		costAfter = 0
	} else {
		if err := positions.Upsert(trade.AccountID, trade.Code, pos.Cost, newShares); err != nil {
			return settleOutcome{}, err
		}
	}

	return settleOutcome{
		amount:      amount,
		sharesDelta: -trade.SharesRedeemed,
		costAfter:   costAfter,
		sharesAfter: newShares,
	}, nil
}

// ListTrades returns the trade log, newest first, optionally filtered by
// account and fund code.
func (s *TradeService) ListTrades(accountID, code string, limit int) ([]model.Trade, error) {
	trades, err := s.trades.ListTrades(accountID, code, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveTrades, err)
	}
	return trades, nil
}

// GetTrade returns a single trade by ID.
func (s *TradeService) GetTrade(id string) (*model.Trade, error) {
	trade, err := s.trades.GetTrade(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveTrades, err)
	}
	if trade == nil {
		return nil, apperrors.ErrTradeNotFound
	}
	return trade, nil
}

// round2 rounds to 2 decimal places, the precision of currency amounts.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// round4 rounds to 4 decimal places, the precision of fund shares and NAVs.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
