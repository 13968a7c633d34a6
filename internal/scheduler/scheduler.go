// Package scheduler drives the background reconcilers: the periodic
// pass that settles pending trades, evaluates notification
// subscriptions and collects intraday snapshots, plus the daily cron
// jobs that refresh cached data and prune old snapshots.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fundval/fundval-backend/internal/service"
)

// Scheduler owns the background work of the server. Start launches a
// single goroutine that runs RunPass on a fixed interval, so passes
// never overlap, and a cron runner for the daily jobs.
type Scheduler struct {
	trades        *service.TradeService
	notifications *service.NotificationService
	funds         *service.FundService

	interval    time.Duration
	publishHour int
	loc         *time.Location

	cron   *cron.Cron
	stop   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

// New creates a Scheduler. interval spaces the reconciler passes;
// publishHour anchors the daily NAV refresh job.
func New(
	trades *service.TradeService,
	notifications *service.NotificationService,
	funds *service.FundService,
	interval time.Duration,
	publishHour int,
	loc *time.Location,
) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		trades:        trades,
		notifications: notifications,
		funds:         funds,
		interval:      interval,
		publishHour:   publishHour,
		loc:           loc,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the reconciler loop and registers the daily cron jobs.
func (s *Scheduler) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.cron = cron.New(cron.WithLocation(s.loc))

	// NAV histories refresh shortly after the daily publish hour, then a
	// settlement pass picks up trades the fresh NAVs unblock.
	navRefreshSpec := fmt.Sprintf("5 %d * * *", s.publishHour)
	if _, err := s.cron.AddFunc(navRefreshSpec, func() {
		if err := s.funds.RefreshHoldingsNav(ctx); err != nil {
			log.Printf("scheduled nav refresh failed: %v", err)
		}
		if n, err := s.trades.ProcessPendingTrades(ctx); err != nil {
			log.Printf("post-refresh settlement pass failed: %v", err)
		} else if n > 0 {
			log.Printf("post-refresh settlement pass settled %d trades", n)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule nav refresh: %w", err)
	}

	if _, err := s.cron.AddFunc("30 7 * * *", func() {
		if n, err := s.funds.RefreshFundList(ctx); err != nil {
			log.Printf("scheduled fund list refresh failed: %v", err)
		} else {
			log.Printf("fund catalogue refreshed, %d entries", n)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule fund list refresh: %w", err)
	}

	if _, err := s.cron.AddFunc("0 2 * * *", func() {
		if n, err := s.funds.CleanupSnapshots(); err != nil {
			log.Printf("scheduled snapshot cleanup failed: %v", err)
		} else if n > 0 {
			log.Printf("snapshot cleanup removed %d rows", n)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule snapshot cleanup: %w", err)
	}

	s.cron.Start()
	go s.loop(ctx)

	return nil
}

// Stop halts the cron runner and the reconciler loop, waiting for an
// in-flight pass to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cron.Stop()
	s.cancel()
	close(s.stop)
	<-s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.RunPass(ctx)
		}
	}
}

// RunPass executes one reconciler pass: settle pending trades, evaluate
// notification subscriptions, collect intraday snapshots. Each step is
// isolated; one failing never skips the others.
func (s *Scheduler) RunPass(ctx context.Context) {
	if n, err := s.trades.ProcessPendingTrades(ctx); err != nil {
		log.Printf("settlement pass failed: %v", err)
	} else if n > 0 {
		log.Printf("settlement pass settled %d trades", n)
	}

	if n, err := s.notifications.CheckSubscriptions(ctx); err != nil {
		log.Printf("notification pass failed: %v", err)
	} else if n > 0 {
		log.Printf("notification pass sent %d mails", n)
	}

	if n, err := s.funds.CollectIntradaySnapshots(ctx); err != nil {
		log.Printf("snapshot pass failed: %v", err)
	} else if n > 0 {
		log.Printf("snapshot pass recorded %d estimates", n)
	}
}
