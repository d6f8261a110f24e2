package config

import (
	"fmt"
	"net/url"
	"time"
)

// ProxyConfig forwards paths the site does not serve (such as /admin and
// /properties) to the application that does
type ProxyConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled"`
	Target  string        `json:"target" yaml:"target"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultProxyConfig returns default proxy configuration
func DefaultProxyConfig() ProxyConfig {
	return ProxyConfig{
		Enabled: false,
		Target:  "",
		Timeout: 30 * time.Second,
	}
}

// Validate validates the proxy configuration
func (p ProxyConfig) Validate() error {
	if !p.Enabled {
		return nil
	}

	if p.Target == "" {
		return fmt.Errorf("target cannot be empty when proxy is enabled")
	}

	u, err := url.Parse(p.Target)
	if err != nil {
		return fmt.Errorf("target is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("target must include a host")
	}

	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}
