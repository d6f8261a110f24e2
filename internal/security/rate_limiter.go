package security

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arm1-investment-group/rentzone-site/internal/config"
	"github.com/arm1-investment-group/rentzone-site/internal/constants"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client. Buckets live in an expiring
// cache so idle clients are forgotten.
type RateLimiter struct {
	limiters *cache.Cache
	config   *config.RateLimitConfig
	clock    Clock
	onReject func(r *http.Request)
	exempt   map[string]bool

	stop     chan struct{}
	stopOnce sync.Once
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// RateLimitStatus describes a client's bucket after a request
type RateLimitStatus struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	Reset      time.Time     `json:"reset"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

func NewRateLimiter(cfg *config.RateLimitConfig) *RateLimiter {
	rl := newRateLimiter(cfg, RealClock{})

	maxCacheSize := cfg.MaxCacheSize
	if maxCacheSize == 0 {
		maxCacheSize = constants.RateLimitMaxCacheSize
	}
	if cfg.Enabled {
		go rl.periodicCleanup(maxCacheSize)
	}

	return rl
}

func newRateLimiter(cfg *config.RateLimitConfig, clock Clock) *RateLimiter {
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = constants.RateLimitCleanupInterval
	}

	return &RateLimiter{
		limiters: cache.New(cfg.CleanupInterval, cfg.CleanupInterval*2),
		config:   cfg,
		clock:    clock,
		exempt: map[string]bool{
			constants.PathHealth:  true,
			constants.PathReady:   true,
			constants.PathMetrics: true,
		},
		stop: make(chan struct{}),
	}
}

// Exempt adds paths that bypass rate limiting, such as a relocated metrics path
func (rl *RateLimiter) Exempt(paths ...string) {
	for _, p := range paths {
		rl.exempt[p] = true
	}
}

// OnReject registers a callback invoked for every rejected request
func (rl *RateLimiter) OnReject(fn func(r *http.Request)) {
	rl.onReject = fn
}

// Stop ends the background cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// periodicCleanup bounds the cache size so a flood of distinct clients cannot
// exhaust memory
func (rl *RateLimiter) periodicCleanup(maxSize int) {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evict(maxSize)
		}
	}
}

func (rl *RateLimiter) evict(maxSize int) {
	currentSize := rl.limiters.ItemCount()
	if currentSize <= maxSize {
		return
	}

	// Remove an extra 10% to avoid running again on the next tick
	toRemove := currentSize - maxSize + maxSize/10

	// Map iteration order is random, which is all the fairness we need here
	removed := 0
	for key := range rl.limiters.Items() {
		if removed >= toRemove {
			break
		}
		rl.limiters.Delete(key)
		removed++
	}
}

// limiterFor returns the bucket for identifier, creating it on first use
func (rl *RateLimiter) limiterFor(identifier string, limit *config.RateLimit) *rate.Limiter {
	if item, found := rl.limiters.Get(identifier); found {
		return item.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rate.Limit(limit.RequestsPerSecond), limit.BurstSize)
	if err := rl.limiters.Add(identifier, limiter, cache.DefaultExpiration); err != nil {
		// Lost a race with another request for the same client
		if item, found := rl.limiters.Get(identifier); found {
			return item.(*rate.Limiter)
		}
	}
	return limiter
}

// Allow consumes one token for identifier and reports the resulting status
func (rl *RateLimiter) Allow(identifier string, limit *config.RateLimit) (bool, RateLimitStatus) {
	now := rl.clock.Now()
	limiter := rl.limiterFor(identifier, limit)

	allowed := limiter.AllowN(now, 1)
	tokens := limiter.TokensAt(now)

	status := RateLimitStatus{
		Limit:     limit.BurstSize,
		Remaining: int(math.Max(0, math.Floor(tokens))),
	}

	// Time until the bucket is full again
	missing := float64(limit.BurstSize) - tokens
	status.Reset = now.Add(time.Duration(missing / float64(limit.RequestsPerSecond) * float64(time.Second)))

	if !allowed {
		wait := (1 - tokens) / float64(limit.RequestsPerSecond)
		status.RetryAfter = time.Duration(math.Ceil(wait)) * time.Second
		if status.RetryAfter < time.Second {
			status.RetryAfter = time.Second
		}
	}

	return allowed, status
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.config.Enabled || rl.shouldSkipRateLimit(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		identifier := rl.getIdentifier(r)
		limit := rl.getRateLimit()

		allowed, status := rl.Allow(identifier, limit)

		w.Header().Set(constants.HeaderXRateLimitLimit, strconv.Itoa(status.Limit))
		w.Header().Set(constants.HeaderXRateLimitRemaining, strconv.Itoa(status.Remaining))
		w.Header().Set(constants.HeaderXRateLimitReset, strconv.FormatInt(status.Reset.Unix(), 10))

		if !allowed {
			if rl.onReject != nil {
				rl.onReject(r)
			}

			w.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(int(status.RetryAfter.Seconds())))
			w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
			w.WriteHeader(http.StatusTooManyRequests)

			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error":       constants.ErrorCodeRateLimitExceeded,
				"message":     fmt.Sprintf("Rate limit exceeded. Try again in %v", status.RetryAfter),
				"retry_after": int(status.RetryAfter.Seconds()),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) getIdentifier(r *http.Request) string {
	return "ip:" + rl.getClientIP(r)
}

// getClientIP keys a request by its peer address. Forwarding headers are
// only consulted when the config says a trusted proxy sets them, otherwise
// any client could pick a fresh bucket per request.
func (rl *RateLimiter) getClientIP(r *http.Request) string {
	if rl.config.TrustForwardedHeaders {
		if xff := r.Header.Get(constants.HeaderXForwardedFor); xff != "" {
			ips := strings.Split(xff, ",")
			if first := strings.TrimSpace(ips[0]); first != "" {
				return first
			}
		}
		if xri := strings.TrimSpace(r.Header.Get(constants.HeaderXRealIP)); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// getRateLimit prefers the per-IP limit and falls back to the global one
func (rl *RateLimiter) getRateLimit() *config.RateLimit {
	if rl.config.ByIP != nil {
		return rl.config.ByIP
	}
	if rl.config.Global != nil {
		return rl.config.Global
	}
	return config.DefaultRateLimit()
}

func (rl *RateLimiter) shouldSkipRateLimit(path string) bool {
	return rl.exempt[path]
}
