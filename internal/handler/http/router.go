package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baignoire/fitmatch/pkg/health"
	"github.com/baignoire/fitmatch/pkg/middleware"
)

// NewRouter creates a chi router with all fitmatch routes registered.
func NewRouter(
	intake Enqueuer,
	webhookSecret string,
	records SyncHistoryReader,
	resolver CompatibilityResolver,
	products CatalogReader,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("fitmatch"))
	r.Use(middleware.Tracing("fitmatch"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	webhookHandler := NewWebhookHandler(intake, webhookSecret, logger)
	statusHandler := NewStatusHandler(records, logger)
	lookupHandler := NewLookupHandler(resolver, logger)
	productHandler := NewProductHandler(products, logger)

	// Ingestion surface: the vendor notification endpoint and run history.
	r.With(ContentTypeJSON).Post("/webhook", webhookHandler.Receive)
	r.Get("/status", statusHandler.Get)

	// Compatibility lookups.
	r.Get("/compatible/{sku}", lookupHandler.Compatible)

	// Catalog browse endpoints. The catalog only changes on a feed sync;
	// compatibility lookups stay uncached since their server-side cache is
	// invalidated on sync completion.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.CacheControl(60))

		r.Get("/", productHandler.ListProducts)
		r.Get("/{sku}", productHandler.GetProduct)
	})

	return r
}
