package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/macos-calendar-mcp/internal/calendar"
	"github.com/teemow/macos-calendar-mcp/internal/config"
	"github.com/teemow/macos-calendar-mcp/internal/i18n"
	"github.com/teemow/macos-calendar-mcp/internal/instrumentation"
	"github.com/teemow/macos-calendar-mcp/internal/osascript"
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx        context.Context
	cancel     context.CancelFunc
	cfg        config.Config
	calendar   *calendar.Client
	translator *i18n.Translator
	metrics    *instrumentation.Metrics
	audit      *instrumentation.AuditLogger
	logger     *slog.Logger
	mu         sync.RWMutex
	shutdown   bool
}

// Option customizes a ServerContext.
type Option func(*options)

type options struct {
	executor osascript.Executor
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	logger   *slog.Logger
}

// WithExecutor replaces the osascript runner, typically with a fake in tests.
func WithExecutor(exec osascript.Executor) Option {
	return func(o *options) { o.executor = exec }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithAuditLogger sets the audit logger for tool invocations.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(o *options) { o.audit = al }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewServerContext creates a new server context. cfg must already be
// normalized; it is validated here.
func NewServerContext(ctx context.Context, cfg config.Config, opts ...Option) (*ServerContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.executor == nil {
		o.executor = osascript.New(osascript.Config{
			Interpreter: cfg.Script.Interpreter,
			Logger:      o.logger,
			Metrics:     o.metrics,
		})
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		cfg:        cfg,
		calendar:   calendar.NewClient(o.executor, cfg.Script.Timeout),
		translator: cfg.Translator(),
		metrics:    o.metrics,
		audit:      o.audit,
		logger:     o.logger,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Calendar returns the Calendar client.
func (sc *ServerContext) Calendar() *calendar.Client {
	return sc.calendar
}

// Config returns the configuration the server was started with.
func (sc *ServerContext) Config() config.Config {
	return sc.cfg
}

// Translator returns the translator for suggestions and prompts.
func (sc *ServerContext) Translator() *i18n.Translator {
	return sc.translator
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.audit
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns true if the server is shutting down
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown marks the server as shutting down and cancels its context.
// Scripts still running are terminated through their contexts.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
