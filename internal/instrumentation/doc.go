// Package instrumentation provides OpenTelemetry instrumentation for the
// macOS Calendar MCP server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of open MCP HTTP sessions
//
// Script Metrics:
//   - script_executions_total: Counter of osascript runs by operation and status
//   - script_execution_duration_seconds: Histogram of osascript run durations
//   - script_timeouts_total: Counter of runs terminated at their deadline
//
// Aggregation Metrics:
//   - batch_items_total: Counter of batch items by tool and status
//   - fanout_skipped_total: Counter of fan-out targets whose failure was swallowed
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// Operation and failure kind labels are bounded: unknown values collapse to
// "other" (see OperationLabel and KindLabel).
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and, as children,
// for each script execution (script.<operation>). Calendar names are hashed
// before they are attached to a span.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: macos-calendar-mcp)
//
// The stdout exporters write to stderr, since stdout carries the stdio transport.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordScriptExecution(ctx, "list_today", instrumentation.StatusSuccess, "", time.Since(start))
package instrumentation
