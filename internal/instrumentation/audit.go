package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/macos-calendar-mcp/internal/logging"
)

// ToolInvocation captures all information about a tool invocation for audit logging.
//
// # Privacy Considerations
//
// Calendar names are chosen by the user and can identify them or the people
// they meet. LogAttrs hashes them; only LogAuditAttrs emits them verbatim.
type ToolInvocation struct {
	// Tool name
	Tool string

	// Target calendars (one for most tools, several for fan-out searches)
	Calendars []string

	// Operation is the script operation, when the tool maps onto one
	Operation string

	// Items is the number of batch items or fan-out targets
	Items int

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	ErrorKind string
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging with calendar
// names anonymized.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	hashed := make([]string, len(ti.Calendars))
	for i, c := range ti.Calendars {
		hashed[i] = logging.Anonymize(c)
	}
	return ti.attrs(hashed)
}

// LogAuditAttrs returns slog attributes including calendar names in clear text.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	return ti.attrs(ti.Calendars)
}

func (ti *ToolInvocation) attrs(calendars []string) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if len(calendars) == 1 {
		attrs = append(attrs, slog.String("calendar", calendars[0]))
	} else if len(calendars) > 1 {
		attrs = append(attrs, slog.Any("calendars", calendars))
	}
	if ti.Operation != "" {
		attrs = append(attrs, slog.String("operation", ti.Operation))
	}
	if ti.Items > 0 {
		attrs = append(attrs, slog.Int("items", ti.Items))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.ErrorKind != "" {
		attrs = append(attrs, slog.String("kind", ti.ErrorKind))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithCalendars sets the target calendars. Empty names are skipped.
func (ti *ToolInvocation) WithCalendars(calendars ...string) *ToolInvocation {
	for _, c := range calendars {
		if c != "" {
			ti.Calendars = append(ti.Calendars, c)
		}
	}
	return ti
}

// WithOperation sets the script operation.
func (ti *ToolInvocation) WithOperation(operation string) *ToolInvocation {
	ti.Operation = operation
	return ti
}

// WithItems sets the number of batch items or fan-out targets.
func (ti *ToolInvocation) WithItems(n int) *ToolInvocation {
	ti.Items = n
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, errorKind, message string) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	ti.ErrorKind = errorKind
	ti.Error = message
	return ti
}

// CompleteWithError marks the invocation as failed.
func (ti *ToolInvocation) CompleteWithError(errorKind, message string) *ToolInvocation {
	return ti.Complete(false, errorKind, message)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, "", "")
}

// AuditLogger provides structured audit logging for tool invocations.
type AuditLogger struct {
	logger           *slog.Logger
	includeCalendars bool
	enabled          bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// Calendar names are anonymized by default.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:  logger,
		enabled: true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	al := NewAuditLogger(logger)
	al.includeCalendars = config.IncludeCalendarNames
	al.enabled = config.Enabled
	return al
}

// LogToolInvocation logs a tool invocation. Calendar names are logged in
// clear text only when the logger was configured to include them.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includeCalendars {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
