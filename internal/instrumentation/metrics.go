package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrKind      = "kind"
	attrTool      = "tool"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics is a valid no-op recorder, and so is a nil *Metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Script execution metrics
	scriptExecutionsTotal   metric.Int64Counter
	scriptExecutionDuration metric.Float64Histogram
	scriptTimeoutsTotal     metric.Int64Counter

	// Aggregation metrics
	batchItemsTotal    metric.Int64Counter
	fanOutSkippedTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels adds the failure kind to script metrics
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of open MCP HTTP sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	// Script Metrics
	m.scriptExecutionsTotal, err = meter.Int64Counter(
		"script_executions_total",
		metric.WithDescription("Total number of osascript executions"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create script_executions_total counter: %w", err)
	}

	m.scriptExecutionDuration, err = meter.Float64Histogram(
		"script_execution_duration_seconds",
		metric.WithDescription("osascript execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create script_execution_duration_seconds histogram: %w", err)
	}

	m.scriptTimeoutsTotal, err = meter.Int64Counter(
		"script_timeouts_total",
		metric.WithDescription("Total number of osascript executions terminated at their deadline"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create script_timeouts_total counter: %w", err)
	}

	// Aggregation Metrics
	m.batchItemsTotal, err = meter.Int64Counter(
		"batch_items_total",
		metric.WithDescription("Total number of batch items processed"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch_items_total counter: %w", err)
	}

	m.fanOutSkippedTotal, err = meter.Int64Counter(
		"fanout_skipped_total",
		metric.WithDescription("Total number of fan-out targets whose failure was swallowed"),
		metric.WithUnit("{target}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fanout_skipped_total counter: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)

	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordScriptExecution records one osascript run.
//
// Parameters:
//   - operation: script operation (list_today, create_event, ...)
//   - status: "success", "error" or "timeout"
//   - kind: failure kind, ignored unless detailed labels are enabled
//   - duration: time from spawn to resolution
func (m *Metrics) RecordScriptExecution(ctx context.Context, operation, status, kind string, duration time.Duration) {
	if m == nil || m.scriptExecutionsTotal == nil || m.scriptExecutionDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, OperationLabel(operation)),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && kind != "" {
		attrs = append(attrs, attribute.String(attrKind, KindLabel(kind)))
	}

	m.scriptExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.scriptExecutionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs[:2]...))
}

// RecordScriptTimeout records a script terminated at its deadline.
func (m *Metrics) RecordScriptTimeout(ctx context.Context, operation string) {
	if m == nil || m.scriptTimeoutsTotal == nil {
		return
	}

	m.scriptTimeoutsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, OperationLabel(operation)),
	))
}

// RecordBatchItems records n batch items of a tool finishing with status.
func (m *Metrics) RecordBatchItems(ctx context.Context, tool, status string, n int) {
	if m == nil || m.batchItemsTotal == nil || n <= 0 {
		return
	}

	m.batchItemsTotal.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	))
}

// RecordFanOutSkipped records n fan-out targets whose failure was swallowed.
func (m *Metrics) RecordFanOutSkipped(ctx context.Context, tool string, n int) {
	if m == nil || m.fanOutSkippedTotal == nil || n <= 0 {
		return
	}

	m.fanOutSkippedTotal.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String(attrTool, tool),
	))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "list-today-events", "create-batch-events")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)

	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}

	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}

	m.activeSessions.Add(ctx, -1)
}
