package server

import (
	"net/http"

	"github.com/arm1-investment-group/rentzone-site/internal/constants"
	"github.com/arm1-investment-group/rentzone-site/internal/server/middleware"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// buildHandler assembles the router and the middleware chain, outermost first
func (s *Server) buildHandler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(otelhttp.NewMiddleware(constants.ServiceName,
		otelhttp.WithTracerProvider(s.tracer.Provider()),
	))
	r.Use(middleware.LoggingMiddleware(s.logger.Logger))
	r.Use(middleware.MetricsMiddleware(s.metrics))
	r.Use(middleware.SecurityHeadersMiddleware(s.config.Security.Headers, s.config.TLS.Enabled))
	if s.config.Security.CORS.Enabled {
		r.Use(middleware.NewCORSMiddleware(s.config.Security.CORS).Handler)
	}
	r.Use(middleware.RequestSizeLimitMiddleware(s.config.Server.MaxRequestSize))
	if s.config.IsRateLimitEnabled() {
		r.Use(s.rateLimiter.Middleware)
	}

	r.Get(constants.PathRoot, s.pageHandler)
	r.Head(constants.PathRoot, s.pageHandler)

	r.Get(constants.PathHealth, s.healthHandler)
	r.Get(constants.PathReady, s.readinessHandler)
	if s.config.Observability.Metrics.Enabled {
		r.Method(http.MethodGet, s.config.Observability.Metrics.Path, s.metrics.Handler())
	}

	r.NotFound(s.notFoundHandler)

	return r
}
