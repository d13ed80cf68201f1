package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/macos-calendar-mcp/internal/instrumentation"
)

// MCPEndpoint is the path of the streamable HTTP endpoint.
const MCPEndpoint = "/mcp"

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPServerConfig configures NewHTTPServer.
type HTTPServerConfig struct {
	// Addr is host:port to listen on.
	Addr string

	// DisableStreaming answers with plain JSON instead of SSE streams.
	DisableStreaming bool

	// SessionIdleTimeout expires sessions without requests for this long.
	SessionIdleTimeout time.Duration

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// HTTPServer serves the MCP server over streamable HTTP together with the
// health endpoints.
type HTTPServer struct {
	httpServer *http.Server
	sessions   *SessionIDManager
	health     *HealthChecker
	logger     *slog.Logger
	listener   net.Listener
}

// NewHTTPServer wires mcpServer to a streamable HTTP handler on MCPEndpoint.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, cfg HTTPServerConfig) *HTTPServer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	sessions := NewSessionIDManager(cfg.SessionIdleTimeout, cfg.Logger, cfg.Metrics)
	streamable := mcpserver.NewStreamableHTTPServer(mcpServer,
		mcpserver.WithEndpointPath(MCPEndpoint),
		mcpserver.WithSessionIdManager(sessions),
		mcpserver.WithDisableStreaming(cfg.DisableStreaming),
	)

	health := NewHealthChecker(sc)

	mux := http.NewServeMux()
	mux.Handle(MCPEndpoint, streamable)
	health.RegisterHealthEndpoints(mux, sessions.Count)

	return &HTTPServer{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           metricsMiddleware(cfg.Metrics, mux),
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			// SSE responses stay open for the whole tool call.
			WriteTimeout: 0,
			IdleTimeout:  defaultIdleTimeout,
		},
		sessions: sessions,
		health:   health,
		logger:   cfg.Logger,
	}
}

// Handler returns the root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Sessions returns the session registry.
func (s *HTTPServer) Sessions() *SessionIDManager {
	return s.sessions
}

// Listen binds the listening socket so that bind errors surface before
// Serve runs in the background.
func (s *HTTPServer) Listen() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *HTTPServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Serve accepts connections until Shutdown. It calls Listen when needed and
// returns http.ErrServerClosed after a graceful shutdown.
func (s *HTTPServer) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.logger.Info("MCP endpoint listening", "addr", s.Addr(), "path", MCPEndpoint)
	return s.httpServer.Serve(s.listener)
}

// Shutdown stops accepting requests, terminates every session and waits
// for in-flight requests until ctx is done.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	n := s.sessions.TerminateAll()
	s.sessions.Stop()
	if n > 0 {
		s.logger.Info("terminated sessions", "count", n)
	}

	err := s.httpServer.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// knownPaths bounds the path label of HTTP metrics.
var knownPaths = map[string]struct{}{
	MCPEndpoint:         {},
	"/health":           {},
	"/healthz":          {},
	"/readyz":           {},
	"/healthz/detailed": {},
}

func pathLabel(path string) string {
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return "other"
}

func metricsMiddleware(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, pathLabel(r.URL.Path), rec.status, time.Since(start))
	})
}

// statusRecorder captures the response status. It forwards Flush so SSE
// streams keep working behind it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
