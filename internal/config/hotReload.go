package config

import (
	"fmt"
	"time"
)

// maxDebounce keeps template edits visible on the page within seconds
const maxDebounce = 10 * time.Second

// HotReloadConfig controls re-parsing of site.template_file when it changes
// on disk. The embedded template never changes, so there is nothing to
// watch without a template file.
type HotReloadConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// DefaultHotReloadConfig returns default hot reload configuration
func DefaultHotReloadConfig() HotReloadConfig {
	return HotReloadConfig{
		Enabled:  true,
		Debounce: 500 * time.Millisecond,
	}
}

// Watches reports whether templateFile should be watched
func (h HotReloadConfig) Watches(templateFile string) bool {
	return h.Enabled && templateFile != ""
}

// Validate validates hot reload configuration
func (h HotReloadConfig) Validate() error {
	if h.Debounce < 0 {
		return fmt.Errorf("debounce must be non-negative")
	}
	if h.Debounce > maxDebounce {
		return fmt.Errorf("debounce %s exceeds %s", h.Debounce, maxDebounce)
	}
	return nil
}
