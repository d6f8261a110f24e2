package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arm1-investment-group/rentzone-site/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProxy_Disabled(t *testing.T) {
	_, err := NewProxy(config.ProxyConfig{Enabled: false}, zap.NewNop())
	assert.Error(t, err)
}

func TestProxy_ForwardsRequests(t *testing.T) {
	var gotPath, gotRequestID, gotForwardedHost string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		gotForwardedHost = r.Header.Get("X-Forwarded-Host")
		w.Header().Set("Keep-Alive", "timeout=5")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("dashboard"))
	}))
	defer upstream.Close()

	p, err := NewProxy(config.ProxyConfig{Enabled: true, Target: upstream.URL + "/app", Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, upstream.URL+"/app", p.Target().String())

	req := httptest.NewRequest(http.MethodGet, "http://arm1.example.com/admin", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	RequestIDMiddleware(p).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "dashboard", rr.Body.String())
	assert.Empty(t, rr.Header().Get("Keep-Alive"))
	assert.Equal(t, "/app/admin", gotPath)
	assert.Equal(t, "abc-123", gotRequestID)
	assert.Equal(t, "arm1.example.com", gotForwardedHost)
}

func TestProxy_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	target := upstream.URL
	upstream.Close()

	p, err := NewProxy(config.ProxyConfig{Enabled: true, Target: target, Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	p.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/properties", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestProxy_Timeout(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer upstream.Close()
	defer close(release)

	p, err := NewProxy(config.ProxyConfig{Enabled: true, Target: upstream.URL, Timeout: 50 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	p.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/properties", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
}
