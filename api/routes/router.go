package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clipboost/clipboost-backend/api/controllers"
	webhookcontrollers "github.com/clipboost/clipboost-backend/api/controllers/webhooks"
	"github.com/clipboost/clipboost-backend/api/middleware"
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
	"github.com/clipboost/clipboost-backend/pkg/enums"
	"github.com/clipboost/clipboost-backend/pkg/logger"
	"github.com/clipboost/clipboost-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	ledgerService ledger.Service,
	balancesService balances.Service,
	withdrawalsService withdrawals.Service,
	campaignsService campaigns.Service,
	pacingService pacing.Service,
	confidenceService confidence.Service,
	tokensService tokens.Service,
	notificationsService notifications.Service,
	paymentWebhookService *paymentswebhook.Service,
	paymentWebhookGuard *paymentswebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/token-purchase", webhookcontrollers.PaymentWebhook(paymentWebhookService, cfg.Payments, paymentWebhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(redisClient, cfg.RateLimit, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/withdrawals", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.MemberRoleCreator), logg))
			r.Get("/", controllers.ListWithdrawals(withdrawalsService, balancesService, logg))
			r.Post("/", controllers.RequestWithdrawal(withdrawalsService, balancesService, logg))
			r.Get("/{withdrawalId}", controllers.GetWithdrawal(withdrawalsService, logg))
			r.Post("/{withdrawalId}/cancel", controllers.CancelWithdrawal(withdrawalsService, logg))
		})

		r.Route("/v1/balance", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.MemberRoleCreator), logg))
			r.Get("/", controllers.GetCreatorBalance(balancesService, logg))
			r.Get("/ledger", controllers.ListLedgerEntries(ledgerService, logg))
		})

		r.Route("/v1/tokens", func(r chi.Router) {
			r.Get("/wallet", controllers.GetTokenWallet(tokensService, logg))
			r.Post("/consume", controllers.ConsumeTokens(tokensService, logg))
			r.Post("/purchase", controllers.PurchaseTokens(tokensService, logg))
			r.Get("/transactions", controllers.TokenHistory(tokensService, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/v1/campaigns", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.MemberRoleAdvertiser), logg))
			r.Post("/budgets", controllers.CreateCampaignBudget(campaignsService, logg))
			r.Get("/{campaignId}", controllers.GetCampaignBudget(campaignsService, logg))
			r.Post("/{campaignId}/spend", controllers.RecordCampaignSpend(campaignsService, logg))
			r.Post("/{campaignId}/stats", controllers.RecordCampaignStat(campaignsService, logg))
			r.Get("/{campaignId}/pacing", controllers.CampaignPacing(pacingService, logg))
			r.Get("/{campaignId}/financials", controllers.CampaignFinancials(campaignsService, logg))
			r.Get("/{campaignId}/confidence", controllers.CampaignConfidence(confidenceService, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.MemberRoleAdmin), logg))
		r.Use(middleware.RateLimit(redisClient, cfg.RateLimit, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.AdminPing())

		r.Route("/v1/withdrawals", func(r chi.Router) {
			r.Get("/", controllers.AdminListWithdrawals(withdrawalsService, logg))
			r.Post("/", controllers.AdminWithdrawalAction(withdrawalsService, logg))
		})

		r.Route("/v1/payouts", func(r chi.Router) {
			r.Post("/", controllers.AdminQueuePayout(campaignsService, logg))
			r.Post("/{payoutId}/release", controllers.AdminReleasePayout(campaignsService, logg))
			r.Post("/{payoutId}/paid", controllers.AdminMarkPayoutPaid(campaignsService, logg))
		})
	})

	return r
}
