package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/nutriflow-backend/api/controllers"
	billingcontrollers "github.com/angelmondragon/nutriflow-backend/api/controllers/billing"
	patientcontrollers "github.com/angelmondragon/nutriflow-backend/api/controllers/patients"
	subscriptioncontrollers "github.com/angelmondragon/nutriflow-backend/api/controllers/subscriptions"
	"github.com/angelmondragon/nutriflow-backend/api/middleware"
	subscriptionsvc "github.com/angelmondragon/nutriflow-backend/internal/subscriptions"
	"github.com/angelmondragon/nutriflow-backend/pkg/config"
	"github.com/angelmondragon/nutriflow-backend/pkg/logger"
)

// NewRouter wires every HTTP route. redisP may be nil when redis is not
// configured; gatherer nil serves the default prometheus registry.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	gatherer prometheus.Gatherer,
	patientService patientcontrollers.Service,
	subscriptionService subscriptionsvc.Service,
	billingService billingcontrollers.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/patients", func(r chi.Router) {
			r.Post("/", patientcontrollers.Create(patientService, logg))
			r.Get("/", patientcontrollers.List(patientService, logg))

			r.Route("/{patientId}", func(r chi.Router) {
				r.Get("/", patientcontrollers.Get(patientService, logg))
				r.Patch("/", patientcontrollers.Update(patientService, logg))
				r.Delete("/", patientcontrollers.Delete(patientService, logg))

				r.Get("/subscription", subscriptioncontrollers.Get(subscriptionService, logg))
				r.Post("/plans", subscriptioncontrollers.StartPlan(subscriptionService, logg))
				r.Post("/pause", subscriptioncontrollers.Pause(subscriptionService, logg))
				r.Post("/resume", subscriptioncontrollers.Resume(subscriptionService, logg))
				r.Get("/extensions", subscriptioncontrollers.ListExtensions(subscriptionService, logg))
				r.Post("/extensions", subscriptioncontrollers.Extend(subscriptionService, logg))
				r.Get("/history", subscriptioncontrollers.ListHistory(subscriptionService, logg))
				r.Get("/pauses", subscriptioncontrollers.ListPauses(subscriptionService, logg))
				r.Get("/terms", billingcontrollers.Terms(billingService, logg))
			})
		})

		r.Route("/subscription-extensions/{extensionId}", func(r chi.Router) {
			r.Patch("/", subscriptioncontrollers.UpdateExtension(subscriptionService, logg))
			r.Delete("/", subscriptioncontrollers.DeleteExtension(subscriptionService, logg))
		})
		r.Route("/subscription-history/{entryId}", func(r chi.Router) {
			r.Patch("/", subscriptioncontrollers.UpdateHistoryEntry(subscriptionService, logg))
			r.Delete("/", subscriptioncontrollers.DeleteHistoryEntry(subscriptionService, logg))
		})
		r.Route("/subscription-pauses/{pauseId}", func(r chi.Router) {
			r.Patch("/", subscriptioncontrollers.UpdatePause(subscriptionService, logg))
			r.Delete("/", subscriptioncontrollers.DeletePause(subscriptionService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", billingcontrollers.CreatePayment(billingService, logg))
			r.Get("/", billingcontrollers.ListPayments(billingService, logg))
			r.Delete("/{paymentId}", billingcontrollers.DeletePayment(billingService, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/subscription-types", billingcontrollers.ListSubscriptionTypes(billingService, logg))
			r.Post("/subscription-types", billingcontrollers.CreateSubscriptionType(billingService, logg))
			r.Get("/payment-rates", billingcontrollers.ListPaymentRates(billingService, logg))
			r.Post("/payment-rates", billingcontrollers.CreatePaymentRate(billingService, logg))
		})

		r.Get("/renewals", subscriptioncontrollers.ListRenewals(subscriptionService, logg))
	})

	return r
}
