package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/eventpay/escrow-api/internal/config"
	"github.com/eventpay/escrow-api/internal/domain/dispute"
	"github.com/eventpay/escrow-api/internal/domain/escrow"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/domain/notification"
	"github.com/eventpay/escrow-api/internal/domain/wallet"
	"github.com/eventpay/escrow-api/internal/pkg/database"
	"github.com/eventpay/escrow-api/internal/pkg/jwt"
	"github.com/eventpay/escrow-api/internal/pkg/logger"
	"github.com/eventpay/escrow-api/internal/pkg/metrics"
	"github.com/eventpay/escrow-api/internal/pkg/payment"
	"github.com/eventpay/escrow-api/internal/storage/memory"
)

const notificationRetentionDays = 90

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, LogFile: cfg.LogFile}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("store", cfg.StoreDriver).
		Msg("Starting escrow API")

	var db *sqlx.DB
	var st stores
	if cfg.UseMemoryStore() {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		st = memoryStores(memory.New())
	} else {
		var err error
		db, err = database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer database.ClosePostgres(db)
		st = postgresStores(db)
	}

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	var publisher notification.RealtimePublisher
	if redisClient != nil {
		publisher = notification.NewRedisPublisher(redisClient)
	}

	provider, err := paymentProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure payment provider")
	}

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	a := newApp(cfg, st, provider, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var jobs sync.WaitGroup
	runJob(&jobs, func() { a.scheduler.Start(ctx) })
	runJob(&jobs, func() { a.lifecycle.Start(ctx) })
	runJob(&jobs, func() { a.cleanup.Start(ctx, 24*time.Hour) })
	if db != nil && cfg.MetricsEnabled {
		runJob(&jobs, func() { metrics.StartDBStatsCollector(ctx, db.DB, 15*time.Second) })
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, jwtService, a),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	a.scheduler.Stop()
	a.lifecycle.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// A running settlement pass finishes before the stores close.
	if !waitJobs(shutdownCtx, &jobs) {
		log.Error().Msg("Background jobs did not finish before shutdown timeout")
	}

	log.Info().Msg("Server exited properly")
}

func runJob(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

// waitJobs blocks until every job returned or ctx expires. Reports whether all returned.
func waitJobs(ctx context.Context, wg *sync.WaitGroup) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// stores bundles the persistence backends of every domain.
type stores struct {
	wallets       wallet.Store
	events        event.Store
	disputes      dispute.Store
	escrows       escrow.Store
	notifications notification.Repository
}

func memoryStores(m *memory.Store) stores {
	return stores{wallets: m, events: m, disputes: m, escrows: m, notifications: m}
}

func postgresStores(db *sqlx.DB) stores {
	walletRepo := wallet.NewRepository(db)
	return stores{
		wallets:       walletRepo,
		events:        event.NewRepository(db),
		disputes:      dispute.NewRepository(db),
		escrows:       escrow.NewRepository(db, walletRepo),
		notifications: notification.NewRepository(db),
	}
}

func paymentProvider(cfg *config.Config) (payment.Provider, error) {
	registry := payment.NewRegistry()
	registry.Register(payment.NewStubProvider())
	registry.Register(payment.NewGatewayProvider(payment.GatewayConfig{
		BaseURL:    cfg.PaymentGatewayURL,
		MerchantID: cfg.PaymentGatewayMerchID,
		SecretKey:  cfg.PaymentGatewaySecret,
		Timeout:    cfg.PaymentGatewayTimeout,
	}))
	return registry.Get(cfg.PaymentProvider)
}
