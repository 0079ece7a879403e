package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/monitoring-core/internal/interfaces/http/handler"
	"github.com/dreschagin/monitoring-core/internal/interfaces/http/middleware"
	"github.com/dreschagin/monitoring-core/pkg/config"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// ReadinessCheck проверяет одну зависимость для /readyz
type ReadinessCheck func(ctx context.Context) error

// Handlers HTTP обработчики административного API
type Handlers struct {
	Thresholds  *handler.ThresholdHandler
	Alerts      *handler.AlertHandler
	Reports     *handler.ReportHandler
	Metrics     *handler.MetricsAPIHandler
	HealthCheck *handler.HealthCheckHandler
	WebSocket   *handler.WebSocketHandler
	Auth        *handler.AuthAPIHandler
}

// Router настраивает маршруты приложения
type Router struct {
	handlers  Handlers
	security  config.SecurityConfig
	observer  middleware.HTTPObserver
	gatherer  prometheus.Gatherer
	readiness map[string]ReadinessCheck
	limiter   *middleware.IPRateLimiter
	logger    *logger.Logger
}

// NewRouter создает новый router
// observer и gatherer могут быть nil: тогда метрики HTTP не собираются и /metrics не публикуется.
func NewRouter(
	handlers Handlers,
	security config.SecurityConfig,
	observer middleware.HTTPObserver,
	gatherer prometheus.Gatherer,
	readiness map[string]ReadinessCheck,
	logger *logger.Logger,
) *Router {
	return &Router{
		handlers:  handlers,
		security:  security,
		observer:  observer,
		gatherer:  gatherer,
		readiness: readiness,
		limiter:   middleware.NewIPRateLimiter(security.RateLimitRPS, security.RateLimitBurst),
		logger:    logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	if rt.observer != nil {
		r.Use(middleware.Metrics(rt.observer))
	}

	// Health endpoints are unauthenticated for probes.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", rt.ready)

	if rt.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	}

	authConfig := middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}
	authMiddleware := middleware.Auth(authConfig, rt.logger)

	// WebSocket: без сжатия, gzip writer не поддерживает Hijack
	if rt.handlers.WebSocket != nil {
		r.With(authMiddleware).Get("/ws", rt.handlers.WebSocket.HandleConnection)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.RateLimit(rt.limiter))
		api.Use(middleware.Compression)

		if rt.handlers.Auth != nil {
			api.Post("/auth/login", rt.handlers.Auth.Login)
			api.Post("/auth/logout", rt.handlers.Auth.Logout)
			api.Get("/auth/status", rt.handlers.Auth.Status)
		}

		api.Group(func(protected chi.Router) {
			protected.Use(authMiddleware)

			if rt.handlers.Thresholds != nil {
				rt.handlers.Thresholds.RegisterRoutes(protected)
			}
			if rt.handlers.Alerts != nil {
				rt.handlers.Alerts.RegisterRoutes(protected)
			}
			if rt.handlers.Reports != nil {
				rt.handlers.Reports.RegisterRoutes(protected)
			}
			if rt.handlers.Metrics != nil {
				rt.handlers.Metrics.RegisterRoutes(protected)
			}
			if rt.handlers.HealthCheck != nil {
				rt.handlers.HealthCheck.RegisterRoutes(protected)
			}
		})
	})

	return r
}

// Close останавливает фоновую очистку rate limiter
func (rt *Router) Close() {
	rt.limiter.Stop()
}

func (rt *Router) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(rt.readiness))
	for name := range rt.readiness {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := make(map[string]string)
	for _, name := range names {
		if err := rt.readiness[name](ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		rt.logger.Warn("Readiness check failed", "failed", len(failed))
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"failed": failed,
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
