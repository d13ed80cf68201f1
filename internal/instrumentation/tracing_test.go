package instrumentation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withSpanRecorder installs a recording tracer provider for the duration of the test.
func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("search-events").
		WithOperation("search").
		WithCalendar("Work").
		WithFailureKind("timeout").
		WithItems(3).
		WithReadOnly(true).
		Build()

	if len(attrs) != 6 {
		t.Errorf("expected 6 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrTool] != "search-events" {
		t.Errorf("expected tool 'search-events', got %v", attrMap[SpanAttrTool])
	}
	if attrMap[SpanAttrOperation] != "search" {
		t.Errorf("expected operation 'search', got %v", attrMap[SpanAttrOperation])
	}
	if cal, _ := attrMap[SpanAttrCalendar].(string); !strings.HasPrefix(cal, "cal:") {
		t.Errorf("expected hashed calendar, got %v", attrMap[SpanAttrCalendar])
	}
	if attrMap[SpanAttrFailureKind] != "timeout" {
		t.Errorf("expected failure kind 'timeout', got %v", attrMap[SpanAttrFailureKind])
	}
	if attrMap[SpanAttrItems] != int64(3) {
		t.Errorf("expected items 3, got %v", attrMap[SpanAttrItems])
	}
	if attrMap[SpanAttrReadOnly] != true {
		t.Errorf("expected read_only true, got %v", attrMap[SpanAttrReadOnly])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("list-calendars").
		WithCalendar("").
		WithFailureKind("").
		Build()

	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (only tool), got %d", len(attrs))
	}
}

func TestStartToolSpan(t *testing.T) {
	recorder := withSpanRecorder(t)

	_, span := StartToolSpan(context.Background(), "list-today-events")
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Name() != "tool.list-today-events" {
		t.Errorf("unexpected span name %q", ended[0].Name())
	}
}

func TestStartScriptSpan(t *testing.T) {
	recorder := withSpanRecorder(t)

	ctx, parent := StartToolSpan(context.Background(), "create-event")
	_, span := StartScriptSpan(ctx, "create_event", 512)
	span.End()
	parent.End()

	ended := recorder.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(ended))
	}

	script := ended[0]
	if script.Name() != "script.create_event" {
		t.Errorf("unexpected span name %q", script.Name())
	}
	if script.Parent().SpanID() != ended[1].SpanContext().SpanID() {
		t.Error("script span should be a child of the tool span")
	}

	var bytes int64
	for _, kv := range script.Attributes() {
		if string(kv.Key) == SpanAttrScriptBytes {
			bytes = kv.Value.AsInt64()
		}
	}
	if bytes != 512 {
		t.Errorf("expected script.bytes 512, got %d", bytes)
	}
}

func TestStartSpan(t *testing.T) {
	withSpanRecorder(t)

	spanCtx, span := StartSpan(context.Background(), "test-span")
	defer span.End()

	if GetTraceID(spanCtx) == "" {
		t.Error("expected a trace ID inside a recorded span")
	}
	if GetSpanID(spanCtx) == "" {
		t.Error("expected a span ID inside a recorded span")
	}
	if !strings.HasPrefix(SpanContextString(spanCtx), "trace_id=") {
		t.Errorf("unexpected span context string %q", SpanContextString(spanCtx))
	}
}

func TestSetSpanError(t *testing.T) {
	recorder := withSpanRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanError(span, errors.New("test error"))
	SetSpanError(span, nil) // nil error should be safe
	span.End()

	if got := recorder.Ended()[0].Status().Code; got != codes.Error {
		t.Errorf("expected error status, got %v", got)
	}
}

func TestSetSpanSuccess(t *testing.T) {
	recorder := withSpanRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanSuccess(span)
	span.End()

	if got := recorder.Ended()[0].Status().Code; got != codes.Ok {
		t.Errorf("expected ok status, got %v", got)
	}
}

func TestAddSpanEvent(t *testing.T) {
	recorder := withSpanRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	AddSpanEvent(span, "process_killed")
	span.End()

	events := recorder.Ended()[0].Events()
	if len(events) != 1 || events[0].Name != "process_killed" {
		t.Errorf("unexpected events %v", events)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if traceID := GetTraceID(context.Background()); traceID != "" {
		t.Errorf("expected empty trace ID for context without span, got %q", traceID)
	}
}

func TestGetSpanID_NoSpan(t *testing.T) {
	if spanID := GetSpanID(context.Background()); spanID != "" {
		t.Errorf("expected empty span ID for context without span, got %q", spanID)
	}
}

func TestSpanContextString_NoSpan(t *testing.T) {
	if ctxStr := SpanContextString(context.Background()); ctxStr != "" {
		t.Errorf("expected empty context string for context without span, got %q", ctxStr)
	}
}
