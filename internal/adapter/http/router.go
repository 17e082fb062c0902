package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"
)

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned by the router, or "" outside
// a routed request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type Router struct {
	handler        *Handler
	log            *logger.Logger
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	allowedOrigins []string
}

func NewRouter(handler *Handler, log *logger.Logger, metrics *metrics.Metrics, gatherer prometheus.Gatherer, allowedOrigins []string) *Router {
	return &Router{
		handler:        handler,
		log:            log,
		metrics:        metrics,
		gatherer:       gatherer,
		allowedOrigins: allowedOrigins,
	}
}

func (r *Router) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := uuid.NewString()
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), requestIDKey{}, id)))
	})
}

func (r *Router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		next.ServeHTTP(ww, req)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		// Route patterns keep label cardinality bounded.
		path := req.URL.Path
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		duration := time.Since(start)
		if path != "/metrics" {
			r.metrics.HTTPRequestDuration.WithLabelValues(path, req.Method).Observe(duration.Seconds())
			r.metrics.HTTPRequestsTotal.WithLabelValues(path, req.Method, statusClass(status)).Inc()
		}

		r.log.Info("HTTP request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"duration", duration,
			"remote_addr", req.RemoteAddr,
			"request_id", RequestIDFromContext(req.Context()),
			"user_agent", req.UserAgent(),
		)
	})
}

func statusClass(status int) string {
	return string(rune('0'+status/100)) + "xx"
}

func (r *Router) SetupRoutes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RealIP)
	mux.Use(r.requestIDMiddleware)
	mux.Use(r.loggingMiddleware)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: r.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderAPIKey},
		ExposedHeaders: []string{HeaderRequestID, "Retry-After"},
		MaxAge:         300,
	}))

	mux.Post("/currency", r.handler.LegacyConvertHandler)
	mux.Route("/v1", func(v1 chi.Router) {
		v1.Post("/currency", r.handler.ConvertHandler)
		v1.Get("/stats", r.handler.StatsHandler)
	})
	mux.Get("/health", r.handler.HealthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))

	return mux
}
