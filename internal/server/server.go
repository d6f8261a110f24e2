// Package server wires the landing page, health endpoints and operational
// middleware into an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/arm1-investment-group/rentzone-site/internal/config"
	"github.com/arm1-investment-group/rentzone-site/internal/constants"
	"github.com/arm1-investment-group/rentzone-site/internal/hotreload"
	"github.com/arm1-investment-group/rentzone-site/internal/observability"
	"github.com/arm1-investment-group/rentzone-site/internal/page"
	"github.com/arm1-investment-group/rentzone-site/internal/security"
	"github.com/arm1-investment-group/rentzone-site/internal/server/middleware"
	"go.uber.org/zap"
)

type Server struct {
	config        *config.Config
	server        *http.Server
	metricsServer *http.Server
	renderer      *page.Renderer
	proxy         *middleware.Proxy

	// Security
	rateLimiter *security.RateLimiter

	// Observability
	logger    *observability.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	startTime time.Time

	draining    atomic.Bool
	addr        atomic.Value // net.Addr of the main listener
	metricsAddr atomic.Value
	listening   chan struct{}
	closeOnce   sync.Once
}

func New(cfg *config.Config) (*Server, error) {
	// Initialize observability
	logger, err := observability.NewLogger(cfg.Observability.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return newServer(cfg, logger)
}

// newServer builds a server around an existing logger; tests pass a no-op one
func newServer(cfg *config.Config, logger *observability.Logger) (*Server, error) {
	metrics := observability.NewMetrics()
	tracer, err := observability.NewTracer(cfg.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	renderer, err := page.NewRenderer(page.WithServerSoftware(cfg.Site.ServerSoftware))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize page renderer: %w", err)
	}
	if cfg.Site.TemplateFile != "" {
		if err := renderer.LoadFile(cfg.Site.TemplateFile); err != nil {
			return nil, fmt.Errorf("failed to load page template: %w", err)
		}
	}

	var proxy *middleware.Proxy
	if cfg.Proxy.Enabled {
		proxy, err = middleware.NewProxy(cfg.Proxy, logger.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize proxy: %w", err)
		}
	}

	// Initialize security
	rateLimiter := security.NewRateLimiter(&cfg.Security.RateLimit)
	rateLimiter.Exempt(cfg.Observability.Metrics.Path)
	rateLimiter.OnReject(func(r *http.Request) {
		metrics.RateLimited.Inc()
	})

	return &Server{
		config:      cfg,
		renderer:    renderer,
		proxy:       proxy,
		rateLimiter: rateLimiter,
		logger:      logger,
		metrics:     metrics,
		tracer:      tracer,
		startTime:   time.Now(),
		listening:   make(chan struct{}),
	}, nil
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return s.Run(ctx)
}

// Run serves until ctx is done, then shuts down both listeners within the
// configured shutdown timeout
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.GetServerAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.GetServerAddress(), err)
	}

	var metricsLn net.Listener
	if s.config.Observability.Metrics.Enabled {
		metricsLn, err = net.Listen("tcp", s.config.GetMetricsAddress())
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.config.GetMetricsAddress(), err)
		}
	}

	s.server = &http.Server{
		Handler:           s.buildHandler(),
		ReadTimeout:       s.config.Server.ReadTimeout,
		ReadHeaderTimeout: s.config.Server.ReadTimeout,
		WriteTimeout:      s.config.Server.WriteTimeout,
		IdleTimeout:       s.config.Server.IdleTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
	}
	if s.config.TLS.Enabled {
		s.server.TLSConfig = s.config.TLS.ServerTLSConfig()
	}

	errCh := make(chan error, 2)

	if metricsLn != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(s.config.Observability.Metrics.Path, s.metrics.Handler())
		s.metricsServer = &http.Server{
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.metricsAddr.Store(metricsLn.Addr())
		s.logger.Logger.Info("Starting metrics server",
			zap.String("address", metricsLn.Addr().String()),
			zap.String("path", s.config.Observability.Metrics.Path),
		)
		go func() {
			if err := s.metricsServer.Serve(metricsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	s.logger.Logger.Info("Starting server",
		zap.String("address", ln.Addr().String()),
		zap.Bool("tls", s.config.TLS.Enabled),
		zap.String("template", s.renderer.Source()),
		zap.Bool("proxy", s.proxy != nil),
		zap.Bool("rate_limit", s.config.IsRateLimitEnabled()),
	)

	go func() {
		var err error
		if s.config.TLS.Enabled {
			err = s.server.ServeTLS(ln, s.config.TLS.CertFile, s.config.TLS.KeyFile)
		} else {
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("main server: %w", err)
		}
	}()

	s.addr.Store(ln.Addr())
	s.metrics.SetHealthStatus(true)
	close(s.listening)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		s.logger.Logger.Error("Server failed", zap.Error(serveErr))
	}

	if err := s.shutdown(); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}

// Listening is closed once Run has bound its listeners
func (s *Server) Listening() <-chan struct{} {
	return s.listening
}

// Addr returns the main listener's address, or nil before Run has started
func (s *Server) Addr() net.Addr {
	addr, _ := s.addr.Load().(net.Addr)
	return addr
}

// MetricsAddr returns the metrics listener's address, or nil when it is not running
func (s *Server) MetricsAddr() net.Addr {
	addr, _ := s.metricsAddr.Load().(net.Addr)
	return addr
}

// shutdown drains both servers in parallel and releases background resources
func (s *Server) shutdown() error {
	s.logger.Logger.Info("Shutting down server...")
	s.draining.Store(true)
	s.metrics.SetHealthStatus(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	if s.metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.metricsServer.Shutdown(ctx); err != nil {
				s.logger.Logger.Error("Failed to shutdown metrics server", zap.Error(err))
				errChan <- fmt.Errorf("metrics server shutdown: %w", err)
			}
		}()
	}

	if s.server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.server.Shutdown(ctx); err != nil {
				s.logger.Logger.Error("Failed to shutdown main server", zap.Error(err))
				errChan <- fmt.Errorf("main server shutdown: %w", err)
			}
		}()
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	s.closeOnce.Do(func() {
		s.rateLimiter.Stop()
		if err := s.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		_ = s.logger.Sync()
	})

	return errors.Join(errs...)
}

// Name identifies the server to the hot reload coordinator
func (s *Server) Name() string {
	return "page-template"
}

// Reload re-parses the configured template file. On failure the previous
// template keeps serving.
func (s *Server) Reload(ctx context.Context) error {
	path := s.config.Site.TemplateFile
	if path == "" {
		return nil
	}
	if err := s.renderer.LoadFile(path); err != nil {
		return err
	}
	s.logger.Logger.Info("Page template reloaded", zap.String("source", path))
	return nil
}

// AttachHotReload registers the template file, the server and its reload
// metrics with m
func (s *Server) AttachHotReload(m *hotreload.Manager) error {
	if s.config.Site.TemplateFile == "" {
		return errors.New("no template file configured")
	}
	if err := m.AddWatch(s.config.Site.TemplateFile); err != nil {
		return err
	}
	if err := m.RegisterReloadable(s); err != nil {
		return err
	}
	return m.AddListener(s.Name()+"-metrics", s.recordReload)
}

func (s *Server) recordReload(ctx context.Context, result hotreload.Result) error {
	if result.Name != s.Name() {
		return nil
	}
	if result.Err != nil {
		s.metrics.RecordReload(constants.OutcomeError)
		s.logger.Logger.Warn("Page template reload rejected, previous template kept",
			zap.String("source", s.renderer.Source()),
			zap.Error(result.Err),
		)
		return nil
	}
	s.metrics.RecordReload(constants.OutcomeOK)
	return nil
}
