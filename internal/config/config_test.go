package config

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig() should validate, got %v", err)
	}
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()

	if cfg.Host != "localhost" {
		t.Errorf("DefaultServerConfig Host got %s, want localhost", cfg.Host)
	}
	if cfg.Port != "8080" {
		t.Errorf("DefaultServerConfig Port got %s, want 8080", cfg.Port)
	}
	if cfg.MetricsPort != "9090" {
		t.Errorf("DefaultServerConfig MetricsPort got %s, want 9090", cfg.MetricsPort)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Errorf("DefaultServerConfig ReadTimeout got %v, want 15s", cfg.ReadTimeout)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("DefaultServerConfig ShutdownTimeout got %v, want 30s", cfg.ShutdownTimeout)
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = ""
	cfg.Observability.Logging.Level = "loud"
	cfg.Proxy.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"host cannot be empty", "invalid level", "target cannot be empty"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err.Error(), want)
		}
	}
}

func TestServerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
	}{
		{name: "Valid Server Config", mutate: func(*ServerConfig) {}},
		{name: "Empty Host", mutate: func(s *ServerConfig) { s.Host = "" }, wantErr: true},
		{name: "Port 80 allowed", mutate: func(s *ServerConfig) { s.Port = "80" }},
		{name: "Privileged port", mutate: func(s *ServerConfig) { s.Port = "22" }, wantErr: true},
		{name: "Port out of range", mutate: func(s *ServerConfig) { s.Port = "70000" }, wantErr: true},
		{name: "Port collision", mutate: func(s *ServerConfig) { s.MetricsPort = s.Port }, wantErr: true},
		{name: "Zero read timeout", mutate: func(s *ServerConfig) { s.ReadTimeout = 0 }, wantErr: true},
		{name: "Negative request size", mutate: func(s *ServerConfig) { s.MaxRequestSize = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServerConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("ServerConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSiteConfig_Validate(t *testing.T) {
	cfg := DefaultSiteConfig()
	if !strings.HasPrefix(cfg.ServerSoftware, "rentzone-site/") {
		t.Errorf("default server software %q should name the service", cfg.ServerSoftware)
	}

	cfg.ServerSoftware = "  "
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for blank server_software")
	}

	cfg = DefaultSiteConfig()
	cfg.TemplateFile = "../outside.html"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for traversing template_file")
	}
}

func TestSecurityConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SecurityConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*SecurityConfig) {}},
		{name: "rate limiting enabled", mutate: func(s *SecurityConfig) { s.RateLimit.Enabled = true }},
		{name: "unknown strategy", mutate: func(s *SecurityConfig) {
			s.RateLimit.Enabled = true
			s.RateLimit.Strategy = "api_key"
		}, wantErr: true},
		{name: "missing global", mutate: func(s *SecurityConfig) {
			s.RateLimit.Enabled = true
			s.RateLimit.Global = nil
		}, wantErr: true},
		{name: "missing global but disabled", mutate: func(s *SecurityConfig) {
			s.RateLimit.Enabled = false
			s.RateLimit.Global = nil
		}},
		{name: "zero burst", mutate: func(s *SecurityConfig) {
			s.RateLimit.Enabled = true
			s.RateLimit.ByIP.BurstSize = 0
		}, wantErr: true},
		{name: "negative hsts", mutate: func(s *SecurityConfig) { s.Headers.HSTSMaxAge = -1 }, wantErr: true},
		{name: "cors without origins", mutate: func(s *SecurityConfig) {
			s.CORS.Enabled = true
			s.CORS.AllowedOrigins = nil
		}, wantErr: true},
		{name: "cors empty origin", mutate: func(s *SecurityConfig) {
			s.CORS.Enabled = true
			s.CORS.AllowedOrigins = []string{""}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSecurityConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("SecurityConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestObservabilityConfig_Validate(t *testing.T) {
	cfg := DefaultObservabilityConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown format")
	}

	cfg = DefaultObservabilityConfig()
	cfg.Metrics.Path = "metrics"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for relative metrics path")
	}

	cfg.Metrics.Path = "/"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for metrics path shadowing the page")
	}
}

func TestProxyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ProxyConfig
		wantErr bool
	}{
		{name: "disabled", config: DefaultProxyConfig()},
		{name: "valid", config: ProxyConfig{Enabled: true, Target: "http://admin.internal:8000", Timeout: time.Second}},
		{name: "no target", config: ProxyConfig{Enabled: true, Timeout: time.Second}, wantErr: true},
		{name: "bad scheme", config: ProxyConfig{Enabled: true, Target: "ftp://files", Timeout: time.Second}, wantErr: true},
		{name: "no host", config: ProxyConfig{Enabled: true, Target: "http://", Timeout: time.Second}, wantErr: true},
		{name: "zero timeout", config: ProxyConfig{Enabled: true, Target: "http://admin.internal"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("ProxyConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, []byte("cert"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, []byte("key"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		config  TLSConfig
		wantErr bool
	}{
		{name: "disabled", config: DefaultTLSConfig()},
		{name: "valid", config: TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile}},
		{name: "missing cert", config: TLSConfig{Enabled: true, KeyFile: keyFile}, wantErr: true},
		{name: "missing key", config: TLSConfig{Enabled: true, CertFile: certFile}, wantErr: true},
		{name: "cert not found", config: TLSConfig{Enabled: true, CertFile: filepath.Join(dir, "nope.pem"), KeyFile: keyFile}, wantErr: true},
		{name: "tls 1.3 only", config: TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, MinVersion: "1.3"}},
		{name: "unsupported min version", config: TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, MinVersion: "1.0"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("TLSConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTLSConfig_ValidateReportsEveryProblem(t *testing.T) {
	err := TLSConfig{Enabled: true, MinVersion: "1.1"}.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"cert_file", "key_file", "min_version"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestTLSConfig_ServerTLSConfig(t *testing.T) {
	if got := DefaultTLSConfig().ServerTLSConfig().MinVersion; got != tls.VersionTLS12 {
		t.Errorf("default MinVersion = %x, want TLS 1.2", got)
	}
	if got := (TLSConfig{MinVersion: "1.3"}).ServerTLSConfig().MinVersion; got != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", got)
	}
}

func TestHotReloadConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		debounce time.Duration
		wantErr  bool
	}{
		{name: "default", debounce: DefaultHotReloadConfig().Debounce},
		{name: "zero", debounce: 0},
		{name: "negative", debounce: -time.Millisecond, wantErr: true},
		{name: "too slow for page edits", debounce: time.Minute, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := HotReloadConfig{Enabled: true, Debounce: tt.debounce}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("HotReloadConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHotReloadActive(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HotReloadActive() {
		t.Error("hot reload should be inactive without a template file")
	}
	cfg.Site.TemplateFile = "index.html"
	if !cfg.HotReloadActive() {
		t.Error("hot reload should be active with a template file")
	}
	cfg.HotReload.Enabled = false
	if cfg.HotReloadActive() {
		t.Error("hot reload should respect the enabled flag")
	}
}
