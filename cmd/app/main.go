package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-loyalty/internal/config"
	pg "restaurant-loyalty/internal/infra/db/postgres"
	"restaurant-loyalty/internal/infra/logging"
	"restaurant-loyalty/internal/infra/metrics"
	red "restaurant-loyalty/internal/infra/redis"
	"restaurant-loyalty/internal/infra/sched"
	"restaurant-loyalty/internal/infra/web"
	"restaurant-loyalty/internal/infra/worker"
	"restaurant-loyalty/internal/usecase"
)

const version = "0.3.0"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	balanceRepo := pg.NewBalanceRepo(pool)
	itemRepo := red.NewRewardItemRepoCacheDecorator(pg.NewRewardItemRepo(pool), redisClient, cfg.Redis.TTL)
	redemptionRepo := pg.NewRedemptionRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Use cases ----
	balanceUC := usecase.NewBalanceUseCase(balanceRepo, logger)
	catalogUC := usecase.NewCatalogUseCase(itemRepo, cfg.Loyalty, logger)
	redemptionUC := usecase.NewRedemptionUseCase(redemptionRepo, itemRepo, balanceRepo, txManager, cfg.Loyalty, nil, logger)

	// ---- Expiry sweep ----
	pool2 := worker.NewPool(cfg.Scheduler.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()
	sweeper := sched.NewExpiryWorker(cfg.Scheduler.SweepInterval, cfg.Scheduler.SweepBatch, redemptionUC, locker, pool2, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	srv := web.NewServer(balanceUC, catalogUC, redemptionUC, auth, rateLimiter, cfg.Loyalty, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
