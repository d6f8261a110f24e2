package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arm1-investment-group/rentzone-site/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestSecurityHeadersMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("headers set", func(t *testing.T) {
		cfg := config.DefaultSecurityHeaders()
		rr := httptest.NewRecorder()
		SecurityHeadersMiddleware(cfg, false)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
		assert.Equal(t, cfg.ContentSecurityPolicy, rr.Header().Get("Content-Security-Policy"))
		assert.Empty(t, rr.Header().Get("Strict-Transport-Security"), "no HSTS over plain HTTP")
	})

	t.Run("HSTS with TLS", func(t *testing.T) {
		cfg := config.DefaultSecurityHeaders()
		rr := httptest.NewRecorder()
		SecurityHeadersMiddleware(cfg, true)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := config.DefaultSecurityHeaders()
		cfg.Enabled = false
		rr := httptest.NewRecorder()
		SecurityHeadersMiddleware(cfg, true)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Empty(t, rr.Header().Get("X-Frame-Options"))
	})
}

func TestSecurityHeadersMiddleware_AllowedHosts(t *testing.T) {
	cfg := config.DefaultSecurityHeaders()
	cfg.AllowedHosts = []string{"arm1.example.com"}
	handler := SecurityHeadersMiddleware(cfg, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		host   string
		status int
	}{
		{"arm1.example.com", http.StatusOK},
		{"arm1.example.com:8080", http.StatusOK},
		{"ARM1.example.com", http.StatusOK},
		{"evil.example.com", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusForbidden {
				assert.Contains(t, rr.Body.String(), "HOST_NOT_ALLOWED")
			}
		})
	}
}
