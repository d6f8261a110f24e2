package constants

import "time"

// Version is the service build version, overridden at link time with
// -ldflags "-X github.com/arm1-investment-group/rentzone-site/internal/constants.Version=..."
var Version = "1.0.0"

// ServiceName identifies the service in logs, traces and the server software label
const ServiceName = "rentzone-site"

// Environment variable constants for service configuration
const (
	EnvHost              = "RENTZONE_HOST"
	EnvPort              = "RENTZONE_PORT"
	EnvMetricsPort       = "RENTZONE_METRICS_PORT"
	EnvReadTimeout       = "RENTZONE_READ_TIMEOUT"
	EnvWriteTimeout      = "RENTZONE_WRITE_TIMEOUT"
	EnvIdleTimeout       = "RENTZONE_IDLE_TIMEOUT"
	EnvMaxRequestSize    = "RENTZONE_MAX_REQUEST_SIZE"
	EnvShutdownTimeout   = "RENTZONE_SHUTDOWN_TIMEOUT"
	EnvTemplateFile      = "RENTZONE_TEMPLATE_FILE"
	EnvEnvFile           = "RENTZONE_ENV_FILE"
	EnvServerSoftware    = "RENTZONE_SERVER_SOFTWARE"
	EnvLogLevel          = "RENTZONE_LOG_LEVEL"
	EnvLogFormat         = "RENTZONE_LOG_FORMAT"
	EnvRateLimit         = "RENTZONE_RATE_LIMIT_ENABLED"
	EnvRateLimitTrustXFF = "RENTZONE_RATE_LIMIT_TRUST_FORWARDED"
	EnvHotReload         = "RENTZONE_HOT_RELOAD"
	EnvHotReloadDebounce = "RENTZONE_HOT_RELOAD_DEBOUNCE"
	EnvProxyEnabled      = "RENTZONE_PROXY_ENABLED"
	EnvProxyTarget       = "RENTZONE_PROXY_TARGET"
	EnvProxyTimeout      = "RENTZONE_PROXY_TIMEOUT"
	EnvTLSEnabled        = "RENTZONE_TLS_ENABLED"
	EnvTLSCertFile       = "RENTZONE_TLS_CERT_FILE"
	EnvTLSKeyFile        = "RENTZONE_TLS_KEY_FILE"
	EnvTLSMinVersion     = "RENTZONE_TLS_MIN_VERSION"
)

// Page label environment variables. These are read at render time and are
// display labels only.
const (
	EnvDBHost = "DB_HOST"
	EnvAppEnv = "APP_ENV"

	DefaultDBHost = "RDS MySQL Connected"
	DefaultAppEnv = "Production"
)

// HTTP method constants
const (
	MethodGET     = "GET"
	MethodHEAD    = "HEAD"
	MethodOPTIONS = "OPTIONS"
)

// HTTP header constants
const (
	HeaderContentType   = "Content-Type"
	HeaderOrigin        = "Origin"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXRequestID    = "X-Request-ID"
	HeaderServer        = "Server"
)

// Content type constants
const (
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// CORS headers
const (
	HeaderAccessControlAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAccessControlAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAccessControlAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderAccessControlAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderAccessControlMaxAge           = "Access-Control-Max-Age"
)

// Rate limiting strategy constants
const (
	RateLimitStrategyIP = "ip"
)

// Rate limiting headers
const (
	HeaderXRateLimitLimit     = "X-RateLimit-Limit"
	HeaderXRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderXRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter          = "Retry-After"
)

// Rate limiter internal constants
const (
	// RateLimitCleanupInterval is the interval for cleaning up rate limit cache
	RateLimitCleanupInterval = 5 * time.Minute
	// RateLimitMaxCacheSize is the maximum size of the rate limit cache
	RateLimitMaxCacheSize = 10000
)

// Error code constants
const (
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrorCodeRequestTooLarge   = "REQUEST_TOO_LARGE"
	ErrorCodeHostNotAllowed    = "HOST_NOT_ALLOWED"
)

// Path constants
const (
	PathRoot    = "/"
	PathHealth  = "/health"
	PathReady   = "/ready"
	PathMetrics = "/metrics"
)

// Outcome labels for render and reload metrics
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// ServerTimeLayout renders the status panel timestamp as YYYY-MM-DD HH:MM:SS
const ServerTimeLayout = "2006-01-02 15:04:05"

// HopHeaders are hop-by-hop headers that should not be forwarded
var HopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}
