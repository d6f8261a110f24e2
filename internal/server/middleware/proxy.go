package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/arm1-investment-group/rentzone-site/internal/config"
	"github.com/arm1-investment-group/rentzone-site/internal/constants"
	"go.uber.org/zap"
)

// Proxy forwards requests the site does not serve itself, such as the
// dashboard and property listings, to the application behind it
type Proxy struct {
	target  *url.URL
	timeout time.Duration
	proxy   *httputil.ReverseProxy
}

// NewProxy creates a new proxy instance
func NewProxy(cfg config.ProxyConfig, logger *zap.Logger) (*Proxy, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("proxy is not enabled")
	}

	targetURL, err := url.Parse(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy target URL: %w", err)
	}

	reverseProxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			// SetURL joins the target path with the incoming one and points Host at the target
			pr.SetURL(targetURL)
			pr.SetXForwarded()
			if id := RequestIDFromContext(pr.In.Context()); id != "" {
				pr.Out.Header.Set(constants.HeaderXRequestID, id)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			removeHopByHopHeaders(resp.Header)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("Proxy request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("target", targetURL.String()),
				zap.Error(err),
			)

			status := http.StatusBadGateway
			if r.Context().Err() == context.DeadlineExceeded {
				status = http.StatusGatewayTimeout
			}
			w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   http.StatusText(status),
				"message": "upstream unavailable",
			})
		},
	}

	return &Proxy{
		target:  targetURL,
		timeout: cfg.Timeout,
		proxy:   reverseProxy,
	}, nil
}

// Target returns the upstream URL
func (p *Proxy) Target() *url.URL {
	return p.target
}

// ServeHTTP handles the HTTP request by forwarding it to the target server
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	p.proxy.ServeHTTP(w, r.WithContext(ctx))
}

// removeHopByHopHeaders removes hop-by-hop headers that should not be forwarded
func removeHopByHopHeaders(headers http.Header) {
	for _, h := range constants.HopHeaders {
		headers.Del(h)
	}
}
