package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/eventpay/escrow-api/internal/config"
	"github.com/eventpay/escrow-api/internal/domain/dispute"
	"github.com/eventpay/escrow-api/internal/domain/escrow"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/domain/notification"
	"github.com/eventpay/escrow-api/internal/domain/wallet"
	"github.com/eventpay/escrow-api/internal/middleware"
	"github.com/eventpay/escrow-api/internal/pkg/jwt"
	"github.com/eventpay/escrow-api/internal/pkg/metrics"
	"github.com/eventpay/escrow-api/internal/pkg/payment"
	pkgresponse "github.com/eventpay/escrow-api/internal/pkg/response"
)

// app holds the wired services, handlers and background jobs.
type app struct {
	scheduler *escrow.Scheduler
	lifecycle *event.LifecycleJob
	cleanup   *notification.CleanupJob

	walletHandler       *wallet.Handler
	escrowHandler       *escrow.Handler
	disputeHandler      *dispute.Handler
	eventHandler        *event.Handler
	notificationHandler *notification.Handler
}

func newApp(cfg *config.Config, st stores, provider payment.Provider, publisher notification.RealtimePublisher) *app {
	notificationService := notification.NewService(st.notifications, publisher)
	walletService := wallet.NewService(st.wallets, provider)
	eventService := event.NewService(st.events)
	escrowService := escrow.NewService(st.escrows, st.events)
	disputeService := dispute.NewService(st.disputes, st.events, escrowService)
	scheduler := escrow.NewScheduler(st.escrows, dispute.NewGate(st.disputes), notificationService, cfg.SettlementInterval)

	return &app{
		scheduler: scheduler,
		lifecycle: event.NewLifecycleJob(st.events, cfg.LifecycleInterval),
		cleanup:   notification.NewCleanupJob(st.notifications, notificationRetentionDays),

		walletHandler:       wallet.NewHandler(walletService),
		escrowHandler:       escrow.NewHandler(escrowService, scheduler),
		disputeHandler:      dispute.NewHandler(disputeService),
		eventHandler:        event.NewHandler(eventService),
		notificationHandler: notification.NewHandler(notificationService),
	}
}

func newRouter(cfg *config.Config, jwtService *jwt.Service, a *app) http.Handler {
	authMiddleware := middleware.Auth(jwtService)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	if cfg.MetricsEnabled {
		r.Use(metrics.Middleware)
	}
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]interface{}{
			"status":     "ok",
			"settlement": a.scheduler.Running(),
		})
	})
	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/events/{id}", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/escrow", a.escrowHandler.Fund)
			r.Get("/escrow", a.escrowHandler.Status)
			r.Post("/disputes", a.disputeHandler.RaiseDispute)
			r.Get("/disputes", a.disputeHandler.ListDisputes)
		})
		r.Route("/escrows/{id}", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/refund-requests", a.disputeHandler.RequestRefund)
		})

		r.Mount("/wallet", a.walletHandler.Routes(authMiddleware))
		r.Mount("/notifications", a.notificationHandler.Routes(authMiddleware))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin())

		r.Mount("/events", a.eventHandler.AdminRoutes())
		r.Get("/escrows", a.escrowHandler.ListByEvent)
		r.Post("/disputes/{id}/resolve", a.disputeHandler.ResolveDispute)
		r.Post("/refund-requests/{id}/resolve", a.disputeHandler.ResolveRefundRequest)
		r.Post("/settlement/run", a.escrowHandler.RunSettlement)
	})

	return r
}
