package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fundval/fundval-backend/internal/api/handlers"
	custommiddleware "github.com/fundval/fundval-backend/internal/api/middleware"
	"github.com/fundval/fundval-backend/internal/config"
	"github.com/fundval/fundval-backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	positionService *service.PositionService,
	tradeService *service.TradeService,
	notificationService *service.NotificationService,
	fundService *service.FundService,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
			r.Get("/setting/{key}", systemHandler.GetSetting)
			r.Put("/setting", systemHandler.SetSetting)
		})

		r.Route("/position", func(r chi.Router) {
			positionHandler := handlers.NewPositionHandler(positionService)
			r.Get("/{accountId}", positionHandler.GetPositions)
		})

		r.Route("/trade", func(r chi.Router) {
			tradeHandler := handlers.NewTradeHandler(tradeService)
			r.Post("/", tradeHandler.CreateTrade)
			r.Get("/", tradeHandler.ListTrades)
			r.Post("/process-pending", tradeHandler.ProcessPending)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", tradeHandler.GetTrade)
			})
		})

		r.Route("/subscription", func(r chi.Router) {
			subscriptionHandler := handlers.NewSubscriptionHandler(notificationService)
			r.Post("/", subscriptionHandler.CreateSubscription)
			r.Post("/check", subscriptionHandler.CheckSubscriptions)
			r.Route("/user/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", subscriptionHandler.SubscriptionsPerUser)
			})
			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Delete("/", subscriptionHandler.DeleteSubscription)
			})
		})

		r.Route("/fund", func(r chi.Router) {
			fundHandler := handlers.NewFundHandler(fundService)
			r.Get("/search", fundHandler.Search)
			r.Post("/refresh-list", fundHandler.RefreshList)
			r.Route("/{code}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateFundCodeMiddleware)
				r.Get("/", fundHandler.Detail)
				r.Get("/valuation", fundHandler.Valuation)
				r.Get("/history", fundHandler.History)
				r.Get("/snapshots", fundHandler.Snapshots)
			})
		})
	})

	return r
}
