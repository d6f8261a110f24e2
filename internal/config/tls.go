package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
)

// TLSConfig lets the site terminate HTTPS itself instead of behind a load
// balancer. Strict-Transport-Security is only sent when this is enabled.
type TLSConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	CertFile   string `json:"cert_file" yaml:"cert_file"`
	KeyFile    string `json:"key_file" yaml:"key_file"`
	MinVersion string `json:"min_version" yaml:"min_version"` // "1.2" or "1.3"
}

var tlsVersions = map[string]uint16{
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// DefaultTLSConfig returns default TLS configuration
func DefaultTLSConfig() TLSConfig {
	return TLSConfig{
		Enabled:    false,
		MinVersion: "1.2",
	}
}

// ServerTLSConfig returns the crypto/tls settings for the listener. The
// certificate itself is loaded by ServeTLS.
func (c TLSConfig) ServerTLSConfig() *tls.Config {
	version, ok := tlsVersions[c.MinVersion]
	if !ok {
		version = tls.VersionTLS12
	}
	return &tls.Config{MinVersion: version}
}

// Validate reports every missing piece at once, so an operator fixing a
// deployment sees both the cert and key problems in one run
func (c TLSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	for _, f := range []struct{ field, path string }{
		{"cert_file", c.CertFile},
		{"key_file", c.KeyFile},
	} {
		if f.path == "" {
			errs = append(errs, fmt.Errorf("%s is required when TLS is enabled", f.field))
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.field, err))
		}
	}
	if c.MinVersion != "" {
		if _, ok := tlsVersions[c.MinVersion]; !ok {
			errs = append(errs, fmt.Errorf("min_version must be 1.2 or 1.3, got %q", c.MinVersion))
		}
	}
	return errors.Join(errs...)
}
