package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/macos-calendar-mcp/internal/config"
	"github.com/teemow/macos-calendar-mcp/internal/instrumentation"
	"github.com/teemow/macos-calendar-mcp/internal/logging"
	"github.com/teemow/macos-calendar-mcp/internal/server"
	"github.com/teemow/macos-calendar-mcp/internal/tools/calendar_tools"
)

// configFileEnv names the YAML config file when --config is not given.
const configFileEnv = "MCP_CALENDAR_CONFIG"

// serveOptions holds the serve flags. A flag only overrides the
// configuration when it was set on the command line.
type serveOptions struct {
	configFile       string
	debug            bool
	transport        string
	httpHost         string
	httpPort         int
	disableStreaming bool
	readOnly         bool
	timeout          time.Duration
	language         string
	logFormat        string
	metricsEnabled   bool
	metricsAddr      string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server that exposes macOS Calendar
tools to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - http: Streamable HTTP transport on /mcp

Configuration is read from, in increasing precedence: built-in defaults,
a YAML file (--config or MCP_CALENDAR_CONFIG), the environment (a .env file
in the working directory is loaded first) and command-line flags.

Calendar access:
  The first tool call triggers the macOS automation prompt. Grant access in
  System Settings > Privacy & Security > Calendars and Automation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadDotEnv(config.DefaultDotEnvFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", config.DefaultDotEnvFile, err)
			}

			cfg, err := loadConfig(cmd, opts, os.LookupEnv)
			if err != nil {
				return err
			}
			return runServe(cfg, opts.debug, cmd.ErrOrStderr(), cmd.OutOrStdout())
		},
	}

	defaults := config.Default()
	cmd.Flags().StringVar(&opts.configFile, "config", "", "Path to a YAML configuration file. Can also use "+configFileEnv+" env var.")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.transport, "transport", defaults.Transport, "Transport type: stdio or http. Can also use MCP_TRANSPORT env var.")
	cmd.Flags().StringVar(&opts.httpHost, "http-host", defaults.HTTP.Host, "HTTP listen host (http transport). Can also use MCP_HTTP_HOST env var.")
	cmd.Flags().IntVar(&opts.httpPort, "http-port", defaults.HTTP.Port, "HTTP listen port (http transport). Can also use MCP_HTTP_PORT env var.")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Answer HTTP requests with plain JSON instead of SSE streams")
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "Only register tools that do not change calendars. Can also use MCP_READ_ONLY env var.")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaults.Script.Timeout, "Deadline of every AppleScript run. Can also use MCP_SCRIPT_TIMEOUT_SECONDS env var.")
	cmd.Flags().StringVar(&opts.language, "language", defaults.Language, "Language of suggestions and prompts: en, zh or de. Can also use MCP_LANGUAGE env var.")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", defaults.LogFormat, "Log format: text or json. Can also use LOG_FORMAT env var.")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", false, "Serve Prometheus metrics on a dedicated port (http transport). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", defaults.Metrics.Addr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadConfig layers the configuration sources: defaults, the YAML file,
// the environment and the flags that were set explicitly.
func loadConfig(cmd *cobra.Command, opts serveOptions, lookup config.LookupFunc) (config.Config, error) {
	path := opts.configFile
	if path == "" {
		path, _ = lookup(configFileEnv)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return config.Config{}, fmt.Errorf("invalid environment: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Transport = opts.transport
	}
	if flags.Changed("http-host") {
		cfg.HTTP.Host = opts.httpHost
	}
	if flags.Changed("http-port") {
		cfg.HTTP.Port = opts.httpPort
	}
	if flags.Changed("disable-streaming") {
		cfg.HTTP.DisableStreaming = opts.disableStreaming
	}
	if flags.Changed("read-only") {
		cfg.ReadOnly = opts.readOnly
	}
	if flags.Changed("timeout") {
		cfg.Script.Timeout = opts.timeout
	}
	if flags.Changed("language") {
		cfg.Language = opts.language
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	if flags.Changed("metrics-enabled") {
		cfg.Metrics.Enabled = opts.metricsEnabled
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cfg config.Config, debug bool, logOut, bannerOut io.Writer) error {
	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the protocol on stdio, so logs always go to logOut.
	logger := logging.NewLogger(logOut, debug, cfg.LogFormat)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := checkExporters(cfg.Transport, instrConfig); err != nil {
		return err
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	opts := []server.Option{server.WithLogger(logger)}
	if provider.Enabled() {
		opts = append(opts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)),
		)
	}

	serverContext, err := server.NewServerContext(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("macos-calendar-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	if err := registerAllTools(mcpSrv, serverContext, cfg.ReadOnly); err != nil {
		return err
	}
	if cfg.ReadOnly {
		logger.Info("read-only mode: tools that change calendars are disabled")
	}

	switch cfg.Transport {
	case config.TransportStdio:
		return runStdioServer(ctx, mcpSrv, logger)
	case config.TransportHTTP:
		return runHTTPServer(ctx, mcpSrv, serverContext, cfg, provider, bannerOut)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, http)", cfg.Transport)
	}
}

// checkExporters rejects stdout exporters on the stdio transport, where
// they would corrupt the protocol stream.
func checkExporters(transport string, instrConfig instrumentation.Config) error {
	if transport != config.TransportStdio || !instrConfig.Enabled {
		return nil
	}
	if instrConfig.MetricsExporter == instrumentation.ExporterStdout || instrConfig.TracingExporter == instrumentation.ExporterStdout {
		return errors.New("stdout exporters cannot be used with the stdio transport")
	}
	return nil
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	stdio := mcpserver.NewStdioServer(mcpSrv)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	logger.Info("serving MCP on stdio")
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register Calendar tools: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, cfg config.Config, provider *instrumentation.Provider, bannerOut io.Writer) error {
	logger := sc.Logger()

	httpServer := server.NewHTTPServer(mcpSrv, sc, server.HTTPServerConfig{
		Addr:               cfg.HTTP.Addr(),
		DisableStreaming:   cfg.HTTP.DisableStreaming,
		SessionIdleTimeout: cfg.HTTP.SessionIdleTimeout,
		Logger:             logger,
		Metrics:            sc.Metrics(),
	})
	if err := httpServer.Listen(); err != nil {
		httpServer.Sessions().Stop()
		return fmt.Errorf("failed to listen on %s: %w", cfg.HTTP.Addr(), err)
	}

	metricsServer := startMetricsServer(cfg, provider, logger)
	defer func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", logging.Err(err))
		}
	}()

	endpoints, err := server.ReachableEndpoints(cfg.HTTP.Host, cfg.HTTP.Port)
	if err != nil {
		logger.Warn("could not list network interfaces", logging.Err(err))
	}
	metricsAddr := ""
	if metricsServer != nil {
		metricsAddr = metricsServer.Addr()
	}
	writeBanner(bannerOut, cfg, endpoints, metricsAddr)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- httpServer.Serve()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server stopped")
	return nil
}

// startMetricsServer starts the dedicated metrics server when it is enabled
// and the provider exports to Prometheus. Failures are logged; the MCP
// server runs without metrics.
func startMetricsServer(cfg config.Config, provider *instrumentation.Provider, logger *slog.Logger) *server.MetricsServer {
	if !cfg.Metrics.Enabled {
		return nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Metrics.Addr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		logger.Warn("metrics server disabled", logging.Err(err))
		return nil
	}

	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", logging.Err(err))
		}
	}()
	return metricsServer
}

// writeBanner prints where the HTTP server can be reached.
func writeBanner(w io.Writer, cfg config.Config, endpoints []server.Endpoint, metricsAddr string) {
	fmt.Fprintf(w, "macos-calendar-mcp %s listening on %s\n", version, cfg.HTTP.Addr())
	if len(endpoints) > 0 {
		fmt.Fprintln(w, "  MCP endpoints:")
		for _, e := range endpoints {
			fmt.Fprintf(w, "    %-10s %s\n", e.Name, e.URL)
		}
	}
	fmt.Fprintln(w, "  Health endpoints: /health, /healthz, /readyz, /healthz/detailed")
	if metricsAddr != "" {
		fmt.Fprintf(w, "  Metrics endpoint: %s/metrics\n", metricsAddr)
	}
	if cfg.ReadOnly {
		fmt.Fprintln(w, "  Mode: read-only")
	}
}
