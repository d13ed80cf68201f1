package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
	"github.com/teemow/macos-calendar-mcp/internal/instrumentation"
	"github.com/teemow/macos-calendar-mcp/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

type invocationKey struct{}

// invocationFromContext returns the invocation record of the running tool call.
func invocationFromContext(ctx context.Context) *instrumentation.ToolInvocation {
	ti, _ := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation)
	return ti
}

// RecordCalendars notes the calendars a tool call addresses, for the audit log.
func RecordCalendars(ctx context.Context, calendars ...string) {
	if ti := invocationFromContext(ctx); ti != nil {
		ti.WithCalendars(calendars...)
	}
}

// RecordItems notes the number of batch items or fan-out targets.
func RecordItems(ctx context.Context, n int) {
	if ti := invocationFromContext(ctx); ti != nil {
		ti.WithItems(n)
	}
}

// RecordFailure notes the failure a tool call ended with. Handlers call it
// before turning err into an error result so the audit log and span carry
// the failure kind.
func RecordFailure(ctx context.Context, err error) {
	ti := invocationFromContext(ctx)
	if ti == nil || err == nil {
		return
	}
	fe := failure.From(err)
	ti.ErrorKind = fe.Kind.String()
	ti.Error = fe.Error()
}

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my-tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().WithReadOnly(sc.Config().ReadOnly).Build()...)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx)
		ctx = context.WithValue(ctx, invocationKey{}, invocation)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(failure.KindOf(err).String(), err.Error())
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			kind := invocation.ErrorKind
			if kind == "" {
				kind = failure.Unknown.String()
			}
			invocation.CompleteWithError(kind, invocation.Error)
			span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithFailureKind(kind).Build()...)
			instrumentation.SetSpanError(span, failure.New(failure.Kind(kind), invocation.Error))
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}
		if invocation.Items > 0 {
			span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithItems(invocation.Items).Build()...)
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, status, duration)
		sc.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}
