package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/printbridge-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/printbridge-backend/api/controllers/webhooks"
	"github.com/angelmondragon/printbridge-backend/api/middleware"
	"github.com/angelmondragon/printbridge-backend/pkg/config"
	"github.com/angelmondragon/printbridge-backend/pkg/logger"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        controllers.Pinger
	OrderWebhook webhookcontrollers.OrderWebhookParams
	Gatherer     prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	gatherer := params.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	orderWebhook := webhookcontrollers.OrderWebhook(params.OrderWebhook)
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/orders", orderWebhook)
		r.Post("/orders/{platform}", orderWebhook)
	})

	return r
}
