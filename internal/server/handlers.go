package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/arm1-investment-group/rentzone-site/internal/constants"
	"github.com/arm1-investment-group/rentzone-site/internal/observability"
	"github.com/arm1-investment-group/rentzone-site/internal/server/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// pageHandler serves the landing page. Query string, body and headers are
// ignored; every request sees the same markup with fresh status values.
func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "render_page",
		attribute.String("page.template", s.renderer.Source()),
	)
	defer span.End()

	status := s.renderer.Snapshot()
	span.SetAttributes(attribute.String("page.environment", status.Environment))

	// Render fully before writing so a failure can still become a clean 500
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, status); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		s.metrics.RecordRender(constants.OutcomeError)
		s.logger.Logger.Error("Failed to render page",
			zap.String("template", s.renderer.Source()),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeHTML)
	w.Header().Set(constants.HeaderServer, s.renderer.ServerSoftware())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		if _, err := w.Write(buf.Bytes()); err != nil {
			s.logger.Logger.Debug("Client went away during page write", zap.Error(err))
		}
	}
	s.metrics.RecordRender(constants.OutcomeOK)
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "health_check")
	defer span.End()

	health := observability.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   constants.Version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    map[string]bool{},
	}

	templateErr := s.renderer.Check()
	health.Checks["template"] = templateErr == nil

	code := http.StatusOK
	if !health.Healthy() {
		health.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, health)

	if templateErr != nil {
		s.logger.Logger.Warn("Page template health check failed",
			zap.String("template", s.renderer.Source()),
			zap.Error(templateErr),
		)
	}
	s.logger.Logger.Debug("Health check completed",
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("status", health.Status),
	)
}

// readinessHandler reports ready while a template is loaded and the server
// is not draining
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "readiness_check")
	defer span.End()

	ready := s.renderer != nil && !s.draining.Load()

	if ready {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	} else {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}

	s.logger.Logger.Debug("Readiness check completed",
		zap.String("path", r.URL.Path),
		zap.Bool("ready", ready),
	)
}

// notFoundHandler forwards unknown paths upstream when a proxy is configured.
// The site itself only serves the landing page.
func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	if s.proxy != nil {
		s.proxy.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
