package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fundval/fundval-backend/internal/api"
	"github.com/fundval/fundval-backend/internal/calendar"
	"github.com/fundval/fundval-backend/internal/config"
	"github.com/fundval/fundval-backend/internal/database"
	"github.com/fundval/fundval-backend/internal/mail"
	"github.com/fundval/fundval-backend/internal/marketdata"
	"github.com/fundval/fundval-backend/internal/repository"
	"github.com/fundval/fundval-backend/internal/scheduler"
	"github.com/fundval/fundval-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Create repositories
	positionRepo := repository.NewPositionRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	navCacheRepo := repository.NewNavCacheRepository(db)
	fundRepo := repository.NewFundRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	settingRepo, err := repository.NewSettingRepository(db, cfg.Settings.FernetKey)
	if err != nil {
		log.Fatalf("Failed to create settings repository: %v", err)
	}

	// Market data providers
	eastmoney := marketdata.NewEastmoneyClient(cfg.Market.FetchTimeout, cfg.Market.RateLimit)
	sina := marketdata.NewSinaClient(cfg.Market.FetchTimeout, cfg.Market.RateLimit)

	cal := calendar.New(cfg.Location, nil)

	// Create services
	systemService := service.NewSystemService(db, settingRepo)
	valuationService := service.NewValuationService(
		eastmoney,
		sina,
		eastmoney,
		navCacheRepo,
		cfg.Market.CacheTTL,
		cfg.Market.PublishHour,
		cfg.Location,
	)
	tradeService := service.NewTradeService(
		db,
		positionRepo,
		tradeRepo,
		valuationService,
		cal,
	)
	positionService := service.NewPositionService(
		positionRepo,
		fundRepo,
		valuationService,
		cfg.Market.FanoutWidth,
	)
	notificationService := service.NewNotificationService(
		subscriptionRepo,
		valuationService,
		mail.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password),
		cfg.Location,
	)
	fundService := service.NewFundService(
		fundRepo,
		snapshotRepo,
		positionRepo,
		valuationService,
		eastmoney,
		cal,
		cfg.Market.FanoutWidth,
		cfg.Scheduler.SnapshotRetention,
		cfg.Location,
	)

	// Load the fund catalogue on first run
	if err := fundService.EnsureFundList(context.Background()); err != nil {
		log.Printf("Fund catalogue load failed, search will stay empty: %v", err)
	}

	// Start background reconcilers
	sched := scheduler.New(
		tradeService,
		notificationService,
		fundService,
		cfg.Scheduler.Interval,
		cfg.Market.PublishHour,
		cfg.Location,
	)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Create router
	router := api.NewRouter(systemService, positionService, tradeService, notificationService, fundService, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	sched.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
