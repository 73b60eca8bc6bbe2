package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unimart-ng/marketplace-backend/api/controllers"
	checkoutcontrollers "github.com/unimart-ng/marketplace-backend/api/controllers/checkout"
	reportcontrollers "github.com/unimart-ng/marketplace-backend/api/controllers/reports"
	subscriptioncontrollers "github.com/unimart-ng/marketplace-backend/api/controllers/subscriptions"
	"github.com/unimart-ng/marketplace-backend/api/controllers/vendorcontext"
	webhookcontrollers "github.com/unimart-ng/marketplace-backend/api/controllers/webhooks"
	"github.com/unimart-ng/marketplace-backend/api/middleware"
	"github.com/unimart-ng/marketplace-backend/pkg/config"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
	"github.com/unimart-ng/marketplace-backend/pkg/redis"
)

// Params wires the HTTP surface.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	RateLimiter   redis.RateLimiter
	Idempotency   redis.IdempotencyStore
	Vendors       vendorcontext.VendorLookup
	Subscriptions subscriptioncontrollers.SubscriptionService
	Products      subscriptioncontrollers.QuotaChecker
	Checkout      checkoutcontrollers.Service
	Reports       reportcontrollers.ReportService
	Webhooks      webhookcontrollers.StripeWebhookService
	SigningClient webhookcontrollers.StripeSigningClient
	WebhookGuard  webhookcontrollers.StripeWebhookGuard
	Gatherer      prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.AccessLog(logg),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
	)

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{"db": p.DB, "redis": p.Redis}, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.StripeWebhook(p.Webhooks, p.SigningClient, p.WebhookGuard, logg))
	})

	r.Get("/api/v1/plans", subscriptioncontrollers.PlanList())

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", time.Minute, cfg.HTTP.CheckoutRateLimit)

	// Route patterns stay flat so the idempotency rules see the full pattern.
	r.Group(func(r chi.Router) {
		r.Use(
			middleware.RequireUser(logg),
			middleware.Idempotency(p.Idempotency, logg),
		)

		vendorPath := "/api/v1/vendors/{" + vendorcontext.VendorIDParam + "}"
		r.Get(vendorPath+"/subscription", subscriptioncontrollers.VendorSubscriptionFetch(p.Subscriptions, p.Vendors, logg))
		r.Post(vendorPath+"/subscription", subscriptioncontrollers.VendorSubscriptionPurchase(p.Subscriptions, p.Vendors, logg))
		r.Get(vendorPath+"/listing-quota", subscriptioncontrollers.VendorListingQuota(p.Products, p.Vendors, logg))
		r.Get(vendorPath+"/transactions", reportcontrollers.VendorTransactions(p.Reports, p.Vendors, logg))

		limited := r.With(middleware.RateLimit(checkoutPolicy, p.RateLimiter, logg))
		limited.Post("/api/v1/checkout/quote", checkoutcontrollers.Quote(p.Checkout, logg))
		limited.Post("/api/v1/checkout", checkoutcontrollers.Start(p.Checkout, logg))
	})

	return r
}
