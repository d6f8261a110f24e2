package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/arm1-investment-group/rentzone-site/internal/constants"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration with precedence:
// 1. Explicitly set CLI flags (highest priority)
// 2. Environment variables
// 3. Configuration file values
// 4. Default configuration values (lowest priority)
func LoadConfig(configFile string, cliFlags *CLIFlags) (*Config, error) {
	config := DefaultConfig()

	if configFile != "" {
		if err := loadFromFile(configFile, config); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	overrideWithCLI(config, cliFlags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// CLIFlags carries the CLI flags the user actually set. A nil field means the
// flag was not given and must not override other sources.
type CLIFlags struct {
	Host              *string
	Port              *string
	MetricsPort       *string
	ReadTimeout       *time.Duration
	WriteTimeout      *time.Duration
	IdleTimeout       *time.Duration
	MaxRequestSize    *int64
	ShutdownTimeout   *time.Duration
	TemplateFile      *string
	EnvFile           *string
	ServerSoftware    *string
	LogLevel          *string
	LogFormat         *string
	RateLimitEnabled  *bool
	RateLimitRPS      *int
	RateLimitTrustXFF *bool
	HotReload         *bool
	HotReloadDebounce *time.Duration
	ProxyEnabled      *bool
	ProxyTarget       *string
	ProxyTimeout      *time.Duration
	TLSEnabled        *bool
	TLSCertFile       *string
	TLSKeyFile        *string
}

// loadFromFile decodes a YAML or JSON file on top of the given configuration,
// so keys missing from the file keep their current values
func loadFromFile(filePath string, config *Config) error {
	if err := validateFilePath(filePath); err != nil {
		return fmt.Errorf("invalid config file path %s: %w", filePath, err)
	}

	data, err := os.ReadFile(filepath.Clean(filePath)) // #nosec G304 - path validated above
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	ext := filepath.Ext(filePath)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

// envReader accumulates parse failures so that a malformed variable is
// reported rather than silently ignored
type envReader struct {
	errs []error
}

func (e *envReader) str(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) integer(key string, dst *int64) {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

// loadFromEnv loads configuration from RENTZONE_* environment variables
func loadFromEnv(config *Config) error {
	env := &envReader{}

	env.str(constants.EnvHost, &config.Server.Host)
	env.str(constants.EnvPort, &config.Server.Port)
	env.str(constants.EnvMetricsPort, &config.Server.MetricsPort)
	env.duration(constants.EnvReadTimeout, &config.Server.ReadTimeout)
	env.duration(constants.EnvWriteTimeout, &config.Server.WriteTimeout)
	env.duration(constants.EnvIdleTimeout, &config.Server.IdleTimeout)
	env.integer(constants.EnvMaxRequestSize, &config.Server.MaxRequestSize)
	env.duration(constants.EnvShutdownTimeout, &config.Server.ShutdownTimeout)

	env.str(constants.EnvTemplateFile, &config.Site.TemplateFile)
	env.str(constants.EnvEnvFile, &config.Site.EnvFile)
	env.str(constants.EnvServerSoftware, &config.Site.ServerSoftware)

	env.str(constants.EnvLogLevel, &config.Observability.Logging.Level)
	env.str(constants.EnvLogFormat, &config.Observability.Logging.Format)

	env.boolean(constants.EnvRateLimit, &config.Security.RateLimit.Enabled)
	env.boolean(constants.EnvRateLimitTrustXFF, &config.Security.RateLimit.TrustForwardedHeaders)

	env.boolean(constants.EnvHotReload, &config.HotReload.Enabled)
	env.duration(constants.EnvHotReloadDebounce, &config.HotReload.Debounce)

	env.boolean(constants.EnvProxyEnabled, &config.Proxy.Enabled)
	env.str(constants.EnvProxyTarget, &config.Proxy.Target)
	env.duration(constants.EnvProxyTimeout, &config.Proxy.Timeout)

	env.boolean(constants.EnvTLSEnabled, &config.TLS.Enabled)
	env.str(constants.EnvTLSCertFile, &config.TLS.CertFile)
	env.str(constants.EnvTLSKeyFile, &config.TLS.KeyFile)
	env.str(constants.EnvTLSMinVersion, &config.TLS.MinVersion)

	return errors.Join(env.errs...)
}

// overrideWithCLI overrides configuration with explicitly set CLI flags
func overrideWithCLI(config *Config, flags *CLIFlags) {
	if flags == nil {
		return
	}

	setString(&config.Server.Host, flags.Host)
	setString(&config.Server.Port, flags.Port)
	setString(&config.Server.MetricsPort, flags.MetricsPort)
	setDuration(&config.Server.ReadTimeout, flags.ReadTimeout)
	setDuration(&config.Server.WriteTimeout, flags.WriteTimeout)
	setDuration(&config.Server.IdleTimeout, flags.IdleTimeout)
	if flags.MaxRequestSize != nil {
		config.Server.MaxRequestSize = *flags.MaxRequestSize
	}
	setDuration(&config.Server.ShutdownTimeout, flags.ShutdownTimeout)

	setString(&config.Site.TemplateFile, flags.TemplateFile)
	setString(&config.Site.EnvFile, flags.EnvFile)
	setString(&config.Site.ServerSoftware, flags.ServerSoftware)

	setString(&config.Observability.Logging.Level, flags.LogLevel)
	setString(&config.Observability.Logging.Format, flags.LogFormat)

	setBool(&config.Security.RateLimit.Enabled, flags.RateLimitEnabled)
	if flags.RateLimitRPS != nil {
		if config.Security.RateLimit.Global == nil {
			config.Security.RateLimit.Global = &RateLimit{
				RequestsPerSecond: *flags.RateLimitRPS,
				BurstSize:         2 * *flags.RateLimitRPS,
				WindowSize:        time.Minute,
			}
		} else {
			config.Security.RateLimit.Global.RequestsPerSecond = *flags.RateLimitRPS
		}
		// The per-IP limit is the one enforced, so it follows the flag too
		if config.Security.RateLimit.ByIP != nil {
			config.Security.RateLimit.ByIP.RequestsPerSecond = *flags.RateLimitRPS
		}
	}

	setBool(&config.Security.RateLimit.TrustForwardedHeaders, flags.RateLimitTrustXFF)

	setBool(&config.HotReload.Enabled, flags.HotReload)
	setDuration(&config.HotReload.Debounce, flags.HotReloadDebounce)

	setBool(&config.Proxy.Enabled, flags.ProxyEnabled)
	setString(&config.Proxy.Target, flags.ProxyTarget)
	setDuration(&config.Proxy.Timeout, flags.ProxyTimeout)

	setBool(&config.TLS.Enabled, flags.TLSEnabled)
	setString(&config.TLS.CertFile, flags.TLSCertFile)
	setString(&config.TLS.KeyFile, flags.TLSKeyFile)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *time.Duration) {
	if src != nil {
		*dst = *src
	}
}

// validateFilePath rejects paths that climb out of their base directory
func validateFilePath(filePath string) error {
	for _, part := range strings.Split(filepath.ToSlash(filePath), "/") {
		if part == ".." {
			return fmt.Errorf("path contains directory traversal attempts")
		}
	}
	return nil
}
