package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/clipboost/clipboost-backend/internal/balances"
	"github.com/clipboost/clipboost-backend/internal/campaigns"
	"github.com/clipboost/clipboost-backend/internal/cron"
	"github.com/clipboost/clipboost-backend/internal/ledger"
	"github.com/clipboost/clipboost-backend/internal/pacing"
	"github.com/clipboost/clipboost-backend/internal/tokens"
	"github.com/clipboost/clipboost-backend/pkg/config"
	"github.com/clipboost/clipboost-backend/pkg/db"
	"github.com/clipboost/clipboost-backend/pkg/logger"
	"github.com/clipboost/clipboost-backend/pkg/metrics"
	"github.com/clipboost/clipboost-backend/pkg/migrate"
	"github.com/clipboost/clipboost-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	finMetrics := metrics.NewFinancialMetrics(prometheus.DefaultRegisterer)

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	balancesRepo := balances.NewRepository(dbClient.DB())
	tokensRepo := tokens.NewRepository(dbClient.DB())
	campaignsRepo := campaigns.NewRepository(dbClient.DB())

	reconciliationJob, err := cron.NewReconciliationJob(
		ledgerRepo,
		balancesRepo,
		tokensRepo,
		campaignsRepo,
		finMetrics,
		logg,
		cfg.Cron.ReconcileBatch,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation job", err)
		os.Exit(1)
	}

	pacingService, err := pacing.NewService(campaignsRepo, cfg.Pacing, finMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create pacing service", err)
		os.Exit(1)
	}
	pacingJob, err := cron.NewPacingSweepJob(campaignsRepo, pacingService, finMetrics, logg, cfg.Cron.PacingSweepSize)
	if err != nil {
		logg.Error(context.Background(), "failed to create pacing sweep job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reconciliationJob, pacingJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}
