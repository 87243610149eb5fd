package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/clipboost/clipboost-backend/api/routes"
	"github.com/clipboost/clipboost-backend/internal/balances"
	"github.com/clipboost/clipboost-backend/internal/campaigns"
	"github.com/clipboost/clipboost-backend/internal/confidence"
	"github.com/clipboost/clipboost-backend/internal/ledger"
	"github.com/clipboost/clipboost-backend/internal/notifications"
	"github.com/clipboost/clipboost-backend/internal/pacing"
	"github.com/clipboost/clipboost-backend/internal/tokens"
	paymentswebhook "github.com/clipboost/clipboost-backend/internal/webhooks/payments"
	"github.com/clipboost/clipboost-backend/internal/withdrawals"
	"github.com/clipboost/clipboost-backend/pkg/config"
	"github.com/clipboost/clipboost-backend/pkg/db"
	"github.com/clipboost/clipboost-backend/pkg/logger"
	"github.com/clipboost/clipboost-backend/pkg/metrics"
	"github.com/clipboost/clipboost-backend/pkg/migrate"
	"github.com/clipboost/clipboost-backend/pkg/payout"
	"github.com/clipboost/clipboost-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	finMetrics := metrics.NewFinancialMetrics(prometheus.DefaultRegisterer)

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	balancesRepo := balances.NewRepository(dbClient.DB())
	withdrawalsRepo := withdrawals.NewRepository(dbClient.DB())
	campaignsRepo := campaigns.NewRepository(dbClient.DB())
	tokensRepo := tokens.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(ledgerRepo, finMetrics)
	requireService(logg, "ledger", err)

	balancesService, err := balances.NewService(balancesRepo, ledgerService, dbClient)
	requireService(logg, "balances", err)

	notificationsService, err := notifications.NewService(notificationsRepo)
	requireService(logg, "notifications", err)

	payoutClient, err := payout.NewClient(context.Background(), cfg.Payout, logg)
	requireService(logg, "payout provider", err)

	withdrawalsService, err := withdrawals.NewService(
		withdrawalsRepo,
		balancesService,
		dbClient,
		payoutClient,
		notificationsService,
		finMetrics,
		logg,
		cfg.Fees,
		cfg.Payout,
	)
	requireService(logg, "withdrawals", err)

	confidenceService, err := confidence.NewService(campaignsRepo, campaignsRepo, campaignsRepo, cfg.Confidence)
	requireService(logg, "confidence", err)

	campaignsService, err := campaigns.NewService(campaignsRepo, ledgerService, dbClient, confidenceService, balancesService, cfg.Confidence)
	requireService(logg, "campaigns", err)

	pacingService, err := pacing.NewService(campaignsRepo, cfg.Pacing, finMetrics)
	requireService(logg, "pacing", err)

	tokensService, err := tokens.NewService(tokensRepo, ledgerService, dbClient, cfg.Tokens)
	requireService(logg, "tokens", err)

	paymentWebhookService, err := paymentswebhook.NewService(tokensService)
	requireService(logg, "payment webhook", err)

	paymentWebhookGuard, err := paymentswebhook.NewIdempotencyGuard(redisClient, cfg.Payments.WebhookTTL, "payments-webhook")
	requireService(logg, "payment webhook guard", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			prometheus.DefaultGatherer,
			ledgerService,
			balancesService,
			withdrawalsService,
			campaignsService,
			pacingService,
			confidenceService,
			tokensService,
			notificationsService,
			paymentWebhookService,
			paymentWebhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
