package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transfer-ledger/internal/cache"
	"transfer-ledger/internal/config"
	"transfer-ledger/internal/db"
	"transfer-ledger/internal/logger"
	"transfer-ledger/internal/metrics"
	"transfer-ledger/internal/router"
	"transfer-ledger/internal/services"
	"transfer-ledger/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.InitLogger(cfg.LogLevel)
	log.Info().Str("store", cfg.Store).Msg("Starting transfer ledger")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheusCollector(cfg.MetricsNamespace)
	if err := collector.Register(registry); err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	var backend store.Store
	switch cfg.Store {
	case "memory":
		backend = store.NewMemoryStore()
		log.Warn().Msg("Using in-memory store, data is lost on restart")
	default:
		database := db.InitDB(cfg.DBUrl, log)
		defer database.Close()
		db.RunMigrations(database, log)
		backend = store.NewSQLStore(database, log)
	}

	breakerCfg := store.DefaultBreakerConfig()
	breakerCfg.Timeout = cfg.StoreTimeout
	ledger := store.NewBreakerStore(backend, breakerCfg, collector, log)

	var balanceCache cache.BalanceCache = cache.NoOpCache{}
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisBalanceCache(cache.RedisConfig{
			Addr: cfg.RedisAddr,
			TTL:  cfg.BalanceCacheTTL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, balance cache disabled")
		} else {
			balanceCache = redisCache
			log.Info().Str("addr", cfg.RedisAddr).Msg("Balance cache enabled")
		}
	}
	defer balanceCache.Close()

	balanceService := services.NewBalanceService(ledger, log,
		services.WithBalanceCache(balanceCache),
		services.WithBalanceMetrics(collector),
		services.WithListLimit(cfg.TransactionListLimit),
	)
	transferService := services.NewTransferService(ledger, balanceService, cfg.Statuses, cfg.Categories, collector, log)
	depositService := services.NewDepositService(ledger, balanceService, cfg.Statuses, cfg.Categories, log)
	reconcileService := services.NewReconcileService(ledger, balanceService, transferService,
		cfg.Statuses, cfg.Categories, cfg.ReconcileAfter, collector, log)

	handler := router.SetupRouter(router.Deps{
		Users:          services.NewUserService(ledger, log),
		Auth:           services.NewAuthService(cfg.JWTSecret, log),
		Balances:       balanceService,
		Transfers:      transferService,
		Deposits:       depositService,
		Gatherer:       registry,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, log)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.ReconcileInterval > 0 {
		go reconcileService.Run(ctx, cfg.ReconcileInterval)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Msgf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received")

	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
