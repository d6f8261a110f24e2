package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arm1-investment-group/rentzone-site/internal/config"
	"github.com/arm1-investment-group/rentzone-site/internal/constants"
	"github.com/arm1-investment-group/rentzone-site/internal/hotreload"
	"github.com/arm1-investment-group/rentzone-site/internal/page"
	"github.com/arm1-investment-group/rentzone-site/internal/server"
	flag "github.com/spf13/pflag"
)

func main() {
	fs := flag.NewFlagSet(constants.ServiceName, flag.ContinueOnError)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\nServes the ARM1 Investment Group landing page.\n\nFlags:\n", os.Args[0])
		fs.PrintDefaults()
	}

	configFile := fs.String("config", "", "Path to configuration file (YAML or JSON)")
	showVersion := fs.Bool("version", false, "Print the version and exit")

	// Server configuration
	fs.String("host", "localhost", "Host to listen on")
	fs.String("port", "8080", "Port to serve the site on")
	fs.String("metrics-port", "9090", "Port to run the metrics server on")
	fs.Duration("read-timeout", 15*time.Second, "HTTP server read timeout")
	fs.Duration("write-timeout", 15*time.Second, "HTTP server write timeout")
	fs.Duration("idle-timeout", 60*time.Second, "HTTP server idle timeout")
	fs.Int64("max-request-size", 1024*1024, "Maximum request size in bytes")
	fs.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")

	// Site
	fs.String("template-file", "", "Page template replacing the built-in one")
	fs.String("env-file", ".env", "Dotenv file supplying DB_HOST and APP_ENV")
	fs.String("server-software", config.DefaultServerSoftware(), "Server identifier shown on the page")

	// Logging
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "json", "Log format: json or console")

	// Security
	fs.Bool("rate-limit-enabled", false, "Enable per-client rate limiting")
	fs.Bool("rate-limit-trust-forwarded", false, "Key clients by X-Forwarded-For (only behind a trusted load balancer)")
	fs.Int("rate-limit-rps", 60, "Requests per second allowed per client")

	// Hot reload
	fs.Bool("hot-reload", true, "Reload the template file when it changes")
	fs.Duration("hot-reload-debounce", 500*time.Millisecond, "Debounce time for hot reload events")

	// Proxy
	fs.Bool("proxy-enabled", false, "Forward unknown paths such as /admin to --proxy-target")
	fs.String("proxy-target", "", "Target server URL for proxy mode")
	fs.Duration("proxy-timeout", 30*time.Second, "Timeout for proxy requests")

	// TLS
	fs.Bool("tls-enabled", false, "Serve HTTPS")
	fs.String("tls-cert-file", "", "TLS certificate file")
	fs.String("tls-key-file", "", "TLS private key file")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("Failed to parse flags: %v", err)
	}

	if *showVersion {
		fmt.Printf("%s %s\n", constants.ServiceName, constants.Version)
		return
	}

	// Only flags given on the command line override file and environment values
	cliFlags := &config.CLIFlags{
		Host:              changed(fs, "host", fs.GetString),
		Port:              changed(fs, "port", fs.GetString),
		MetricsPort:       changed(fs, "metrics-port", fs.GetString),
		ReadTimeout:       changed(fs, "read-timeout", fs.GetDuration),
		WriteTimeout:      changed(fs, "write-timeout", fs.GetDuration),
		IdleTimeout:       changed(fs, "idle-timeout", fs.GetDuration),
		MaxRequestSize:    changed(fs, "max-request-size", fs.GetInt64),
		ShutdownTimeout:   changed(fs, "shutdown-timeout", fs.GetDuration),
		TemplateFile:      changed(fs, "template-file", fs.GetString),
		EnvFile:           changed(fs, "env-file", fs.GetString),
		ServerSoftware:    changed(fs, "server-software", fs.GetString),
		LogLevel:          changed(fs, "log-level", fs.GetString),
		LogFormat:         changed(fs, "log-format", fs.GetString),
		RateLimitEnabled:  changed(fs, "rate-limit-enabled", fs.GetBool),
		RateLimitRPS:      changed(fs, "rate-limit-rps", fs.GetInt),
		RateLimitTrustXFF: changed(fs, "rate-limit-trust-forwarded", fs.GetBool),
		HotReload:         changed(fs, "hot-reload", fs.GetBool),
		HotReloadDebounce: changed(fs, "hot-reload-debounce", fs.GetDuration),
		ProxyEnabled:      changed(fs, "proxy-enabled", fs.GetBool),
		ProxyTarget:       changed(fs, "proxy-target", fs.GetString),
		ProxyTimeout:      changed(fs, "proxy-timeout", fs.GetDuration),
		TLSEnabled:        changed(fs, "tls-enabled", fs.GetBool),
		TLSCertFile:       changed(fs, "tls-cert-file", fs.GetString),
		TLSKeyFile:        changed(fs, "tls-key-file", fs.GetString),
	}

	// Load configuration with precedence (CLI > Env > File > Defaults)
	cfg, err := config.LoadConfig(*configFile, cliFlags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupSlog(cfg.Observability.Logging)

	if cfg.Site.EnvFile != "" {
		loaded, err := page.LoadDotEnv(cfg.Site.EnvFile)
		if err != nil {
			log.Fatalf("Failed to load env file: %v", err)
		}
		if loaded {
			log.Printf("Loaded environment from %s", cfg.Site.EnvFile)
		}
	}

	siteServer, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	var hotReloadManager *hotreload.Manager
	if cfg.HotReloadActive() {
		hotReloadManager, err = hotreload.NewManager(cfg.HotReload.Debounce)
		if err != nil {
			log.Fatalf("Failed to create hot reload manager: %v", err)
		}
		if err := siteServer.AttachHotReload(hotReloadManager); err != nil {
			log.Fatalf("Failed to watch template file: %v", err)
		}
		if err := hotReloadManager.Start(); err != nil {
			log.Fatalf("Failed to start hot reload: %v", err)
		}
		go reloadOnSIGHUP(hotReloadManager)

		log.Printf("Hot reload enabled for %s", cfg.Site.TemplateFile)
	}

	log.Printf("Starting %s %s on %s", constants.ServiceName, constants.Version, cfg.GetServerAddress())
	if cfg.Security.RateLimit.Enabled && cfg.Security.RateLimit.ByIP != nil {
		log.Printf("Rate limiting enabled (strategy: %s, rps: %d, burst: %d)",
			cfg.Security.RateLimit.Strategy,
			cfg.Security.RateLimit.ByIP.RequestsPerSecond,
			cfg.Security.RateLimit.ByIP.BurstSize)
	}

	startErr := siteServer.Start()

	if hotReloadManager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := hotReloadManager.Shutdown(ctx); err != nil {
			log.Printf("Failed to shutdown hot reload manager: %v", err)
		}
		cancel()
	}

	if startErr != nil {
		log.Fatalf("Server stopped with error: %v", startErr)
	}
}

// changed returns a pointer to the flag's value when it was set on the
// command line, and nil otherwise
func changed[T any](fs *flag.FlagSet, name string, get func(string) (T, error)) *T {
	if !fs.Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return nil
	}
	return &v
}

// setupSlog routes the hot reload package's slog output through the
// configured level and format
func setupSlog(cfg config.LoggingConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// reloadOnSIGHUP re-reads the template on SIGHUP, for deploys that swap files
// in ways the watcher cannot see
func reloadOnSIGHUP(m *hotreload.Manager) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	for range hup {
		slog.Info("SIGHUP received, reloading")
		m.Trigger()
	}
}
