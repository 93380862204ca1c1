package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/acp-checkout/internal/idempotency"
	"github.com/fjod/acp-checkout/internal/metrics"
	"github.com/fjod/acp-checkout/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	DebugEndpoints     bool
	DebugToken         string
}

// NewRouter wires the checkout, health, metrics and optional debug routes.
func NewRouter(svc service.CheckoutService, guard *idempotency.Guard, m *metrics.Metrics, log *slog.Logger, cfg Config) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	checkout := NewCheckoutHandler(svc, guard, m, log)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(AccessLog(log))
	r.Use(Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", idempotency.Header, RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, ReplayedHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(NewRateLimiter(cfg.RateLimitPerMinute).Middleware)
		r.Post("/create_checkout", checkout.Create)
		r.Post("/update_checkout", checkout.Update)
		r.Post("/complete_checkout", checkout.Complete)
		r.Post("/cancel_checkout", checkout.Cancel)
	})

	if cfg.DebugEndpoints {
		r.Get("/debug/sessions", NewDebugHandler(svc, cfg.DebugToken, log).Sessions)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "not_found", "Route not found", nil)
	})

	return otelhttp.NewHandler(r, "acp-checkout")
}
