// Package page renders the ARM1 Investment Group landing page.
package page

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"text/template"

	"github.com/arm1-investment-group/rentzone-site/internal/constants"
)

// EmbeddedSource names the built-in template in Source()
const EmbeddedSource = "embedded:index.html.tmpl"

//go:embed templates/index.html.tmpl
var defaultTemplate string

type compiled struct {
	tmpl   *template.Template
	source string
}

// Renderer produces the landing page. The active template can be swapped at
// runtime; renders in flight keep the template they started with.
type Renderer struct {
	current        atomic.Pointer[compiled]
	serverSoftware string
	clock          Clock
	getenv         Getenv
}

type Option func(*Renderer)

// WithClock overrides the clock used for the server time
func WithClock(c Clock) Option {
	return func(r *Renderer) { r.clock = c }
}

// WithGetenv overrides the environment lookup used for DB_HOST and APP_ENV
func WithGetenv(g Getenv) Option {
	return func(r *Renderer) { r.getenv = g }
}

// WithServerSoftware sets the server identifier shown in the status panel
func WithServerSoftware(s string) Option {
	return func(r *Renderer) { r.serverSoftware = s }
}

// NewRenderer returns a renderer serving the embedded template
func NewRenderer(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		serverSoftware: constants.ServiceName,
		clock:          RealClock{},
		getenv:         defaultGetenv(),
	}
	for _, opt := range opts {
		opt(r)
	}

	c, err := compile(EmbeddedSource, defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("embedded template: %w", err)
	}
	r.current.Store(c)

	return r, nil
}

// LoadFile parses the template at path and makes it active. On any error the
// previous template stays active.
func (r *Renderer) LoadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - operator-supplied template path
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", path, err)
	}

	c, err := compile(path, string(data))
	if err != nil {
		return err
	}
	r.current.Store(c)
	return nil
}

// Source names the active template: EmbeddedSource or a file path
func (r *Renderer) Source() string {
	return r.current.Load().source
}

// ServerSoftware returns the configured server identifier
func (r *Renderer) ServerSoftware() string {
	return r.serverSoftware
}

// Snapshot gathers the status panel values for one render
func (r *Renderer) Snapshot() Status {
	return Status{
		ServerTime:     r.clock.Now().Format(constants.ServerTimeLayout),
		RuntimeVersion: runtimeVersion(),
		ServerSoftware: r.serverSoftware,
		Database:       envOr(r.getenv, constants.EnvDBHost, constants.DefaultDBHost),
		Environment:    envOr(r.getenv, constants.EnvAppEnv, constants.DefaultAppEnv),
	}
}

// Render writes the full document with status substituted into the panel
func (r *Renderer) Render(w io.Writer, status Status) error {
	c := r.current.Load()
	if err := c.tmpl.Execute(w, status); err != nil {
		return fmt.Errorf("render %s: %w", c.source, err)
	}
	return nil
}

// Check renders the active template with current values and discards the
// output. It fails when a template that parsed fine breaks on live values.
func (r *Renderer) Check() error {
	return r.Render(io.Discard, r.Snapshot())
}

// compile parses src and executes it once against sample values, so a
// template referring to unknown fields is rejected before it serves traffic
func compile(name, src string) (*compiled, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("template %s is empty", name)
	}
	tmpl, err := template.New(filepath.Base(name)).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	if err := tmpl.Execute(io.Discard, sampleStatus()); err != nil {
		return nil, fmt.Errorf("template %s does not render: %w", name, err)
	}
	return &compiled{tmpl: tmpl, source: name}, nil
}
