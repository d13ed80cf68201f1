package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/macos-calendar-mcp/internal/applescript"
	"github.com/teemow/macos-calendar-mcp/internal/config"
	"github.com/teemow/macos-calendar-mcp/internal/failure"
	"github.com/teemow/macos-calendar-mcp/internal/instrumentation"
	"github.com/teemow/macos-calendar-mcp/internal/osascript"
	"github.com/teemow/macos-calendar-mcp/internal/server"
)

type noopExecutor struct{}

func (noopExecutor) Run(context.Context, applescript.Script, time.Duration) osascript.Outcome {
	return osascript.Success("")
}

func newServerContext(t *testing.T, opts ...server.Option) *server.ServerContext {
	t.Helper()
	opts = append([]server.Option{server.WithExecutor(noopExecutor{})}, opts...)
	sc, err := server.NewServerContext(context.Background(), config.Default(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func newAuditedServerContext(t *testing.T) (*server.ServerContext, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	audit := instrumentation.NewAuditLoggerWithConfig(logger, instrumentation.AuditLoggingConfig{
		Enabled:              true,
		IncludeCalendarNames: true,
	})
	return newServerContext(t, server.WithAuditLogger(audit), server.WithMetrics(&instrumentation.Metrics{})), &buf
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc, audit := newAuditedServerContext(t)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		RecordCalendars(ctx, "Work")
		RecordItems(ctx, 2)
		return mcp.NewToolResultText("success"), nil
	}

	result, err := InstrumentedToolHandler("list-today-events", sc, handler)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, called)

	assert.Contains(t, audit.String(), `"msg":"tool_executed"`)
	assert.Contains(t, audit.String(), `"tool":"list-today-events"`)
	assert.Contains(t, audit.String(), `"calendar":"Work"`)
	assert.Contains(t, audit.String(), `"items":2`)
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	sc, audit := newAuditedServerContext(t)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		err := failure.FromMessage("Not allowed to send Apple events to Calendar (-1743)", "")
		RecordFailure(ctx, err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := InstrumentedToolHandler("create-event", sc, handler)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	assert.Contains(t, audit.String(), `"msg":"tool_failed"`)
	assert.Contains(t, audit.String(), `"kind":"permission_denied"`)
}

func TestInstrumentedToolHandler_ErrorResultWithoutRecordedFailure(t *testing.T) {
	sc, audit := newAuditedServerContext(t)

	handler := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("error message"), nil
	}

	result, err := InstrumentedToolHandler("create-event", sc, handler)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, audit.String(), `"kind":"unknown"`)
}

func TestInstrumentedToolHandler_GoError(t *testing.T) {
	sc, audit := newAuditedServerContext(t)

	expectedErr := errors.New("test error")
	handler := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	_, err := InstrumentedToolHandler("test-tool", sc, handler)(context.Background(), mcp.CallToolRequest{})
	assert.Equal(t, expectedErr, err)
	assert.Contains(t, audit.String(), `"error":"test error"`)
}

func TestInstrumentedToolHandler_NoInstrumentation(t *testing.T) {
	sc := newServerContext(t)

	handler := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	result, err := InstrumentedToolHandler("test-tool", sc, handler)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestRecordHelpers_OutsideToolCall(t *testing.T) {
	// No invocation in the context: the helpers are no-ops.
	RecordCalendars(context.Background(), "Work")
	RecordItems(context.Background(), 3)
	RecordFailure(context.Background(), errors.New("boom"))
}
