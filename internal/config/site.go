package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/arm1-investment-group/rentzone-site/internal/constants"
)

// SiteConfig controls the landing page itself
type SiteConfig struct {
	// TemplateFile replaces the embedded page template when set
	TemplateFile string `json:"template_file" yaml:"template_file"`
	// EnvFile is an optional dotenv file loaded before the first render
	EnvFile string `json:"env_file" yaml:"env_file"`
	// ServerSoftware is shown in the status panel as the hosting server
	ServerSoftware string `json:"server_software" yaml:"server_software"`
}

// DefaultSiteConfig returns the default site configuration
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		TemplateFile:   "",
		EnvFile:        ".env",
		ServerSoftware: DefaultServerSoftware(),
	}
}

// DefaultServerSoftware builds the server identifier used when none is configured
func DefaultServerSoftware() string {
	return fmt.Sprintf("%s/%s (Go net/http; %s/%s)", constants.ServiceName, constants.Version, runtime.GOOS, runtime.GOARCH)
}

// Validate validates the site configuration
func (s *SiteConfig) Validate() error {
	if strings.TrimSpace(s.ServerSoftware) == "" {
		return fmt.Errorf("server_software cannot be empty")
	}
	if s.TemplateFile != "" {
		if err := validateFilePath(s.TemplateFile); err != nil {
			return fmt.Errorf("template_file: %w", err)
		}
	}
	return nil
}
