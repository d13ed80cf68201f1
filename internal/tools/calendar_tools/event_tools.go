package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/macos-calendar-mcp/internal/applescript"
	"github.com/teemow/macos-calendar-mcp/internal/calendar"
	"github.com/teemow/macos-calendar-mcp/internal/config"
	"github.com/teemow/macos-calendar-mcp/internal/failure"
	"github.com/teemow/macos-calendar-mcp/internal/i18n"
	"github.com/teemow/macos-calendar-mcp/internal/instrumentation"
	"github.com/teemow/macos-calendar-mcp/internal/server"
	"github.com/teemow/macos-calendar-mcp/internal/tools/batch"
	"github.com/teemow/macos-calendar-mcp/internal/tools/common"
)

func eventTools(cfg config.Config) []toolRegistration {
	createEventTool := mcp.NewTool(ToolCreateEvent,
		mcp.WithDescription("Create an event in a macOS calendar"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("startDate",
			mcp.Required(),
			mcp.Description("Start, format YYYY-MM-DD HH:MM (24-hour clock, local time)"),
		),
		mcp.WithString("endDate",
			mcp.Required(),
			mcp.Description("End, format YYYY-MM-DD HH:MM; must not be before startDate"),
		),
		mcp.WithString("calendar",
			mcp.Description("Calendar name (default: '"+cfg.Calendar.Default+"')"),
		),
		mcp.WithString("description",
			mcp.Description("Event notes"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
		mcp.WithDestructiveHintAnnotation(false),
	)

	createBatchTool := mcp.NewTool(ToolCreateBatch,
		mcp.WithDescription("Create several events in one calendar. Every event is attempted; the reply lists the outcome of each one."),
		mcp.WithArray("events",
			mcp.Required(),
			mcp.Description("Events to create. Each has title, startDate and endDate (YYYY-MM-DD HH:MM) and optional description and location."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string"},
					"startDate":   map[string]any{"type": "string"},
					"endDate":     map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"location":    map[string]any{"type": "string"},
				},
				"required": []string{"title", "startDate", "endDate"},
			}),
		),
		mcp.WithString("calendar",
			mcp.Description("Calendar name (default: '"+cfg.Calendar.Work+"')"),
		),
		mcp.WithDestructiveHintAnnotation(false),
	)

	deleteTool := mcp.NewTool(ToolDeleteByKeyword,
		mcp.WithDescription("Delete every event whose title contains a keyword. Without confirm=true nothing is deleted and a confirmation prompt is returned."),
		mcp.WithString("keyword",
			mcp.Required(),
			mcp.Description("Text to look for in event titles (case-sensitive)"),
		),
		mcp.WithString("calendar",
			mcp.Description("Calendar name (default: '"+cfg.Calendar.Work+"')"),
		),
		mcp.WithBoolean("confirm",
			mcp.Description("Must be true to actually delete"),
			mcp.DefaultBool(false),
		),
		mcp.WithDestructiveHintAnnotation(true),
	)

	return []toolRegistration{
		{tool: createEventTool, handler: handleCreateEvent, write: true},
		{tool: createBatchTool, handler: handleCreateBatchEvents, write: true},
		{tool: deleteTool, handler: handleDeleteEventsByKeyword, write: true},
	}
}

type createEventArgs struct {
	calendar.EventInput
	Calendar string `json:"calendar"`
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	t := sc.Translator()

	var args createEventArgs
	if err := common.DecodeArgs(request, &args); err != nil {
		return errorResult(ctx, err, t), nil
	}
	cal := calendarOrDefault(args.Calendar, sc.Config().Calendar.Default)
	common.RecordCalendars(ctx, cal)

	event, err := sc.Calendar().CreateEvent(ctx, cal, args.EventInput)
	if err != nil {
		return errorResult(ctx, err, t), nil
	}

	return jsonResult(ctx, map[string]any{
		"created": true,
		"event":   event,
	}, t), nil
}

type createBatchArgs struct {
	Events   []calendar.EventInput `json:"events"`
	Calendar string                `json:"calendar"`
}

func handleCreateBatchEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	t := sc.Translator()

	var args createBatchArgs
	if err := common.DecodeArgs(request, &args); err != nil {
		return errorResult(ctx, err, t), nil
	}
	if args.Events == nil {
		return errorResult(ctx, failure.Missing("events"), t), nil
	}
	if len(args.Events) == 0 {
		return errorResult(ctx, failure.Validationf("events", "events cannot be empty"), t), nil
	}

	cal := calendarOrDefault(args.Calendar, sc.Config().Calendar.Work)
	common.RecordCalendars(ctx, cal)
	common.RecordItems(ctx, len(args.Events))

	client := sc.Calendar()
	report := batch.Run(ctx, args.Events, batch.Options[calendar.EventInput]{
		Concurrency: sc.Config().Batch.Concurrency,
		Validate: func(in calendar.EventInput) error {
			return applescript.CreateEvent{
				Calendar:  cal,
				Title:     in.Title,
				StartDate: in.StartDate,
				EndDate:   in.EndDate,
			}.Validate()
		},
	}, func(ctx context.Context, in calendar.EventInput) (*calendar.Event, error) {
		return client.CreateEvent(ctx, cal, in)
	})

	recordBatch(ctx, sc, ToolCreateBatch, report.SuccessCount(), report.FailCount())

	resp := formatReport(report, t,
		func(in calendar.EventInput) map[string]any {
			return map[string]any{
				"title":     in.Title,
				"startDate": in.StartDate,
				"endDate":   in.EndDate,
			}
		},
		func(event *calendar.Event) map[string]any {
			return map[string]any{"event": event}
		})

	return jsonResult(ctx, createBatchResponse{batchResponse: resp, Calendar: cal}, t), nil
}

type createBatchResponse struct {
	batchResponse
	Calendar string `json:"calendar"`
}

// recordBatch counts the items of a finished batch by outcome.
func recordBatch(ctx context.Context, sc *server.ServerContext, tool string, ok, failed int) {
	m := sc.Metrics()
	m.RecordBatchItems(ctx, tool, instrumentation.StatusSuccess, ok)
	m.RecordBatchItems(ctx, tool, instrumentation.StatusError, failed)
}

type deleteArgs struct {
	Keyword  string `json:"keyword"`
	Calendar string `json:"calendar"`
	Confirm  bool   `json:"confirm"`
}

func handleDeleteEventsByKeyword(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	t := sc.Translator()

	var args deleteArgs
	if err := common.DecodeArgs(request, &args); err != nil {
		return errorResult(ctx, err, t), nil
	}
	cal := calendarOrDefault(args.Calendar, sc.Config().Calendar.Work)
	common.RecordCalendars(ctx, cal)

	// Validate before asking for confirmation so a bad call is not confirmed.
	if err := (applescript.DeleteEvents{Calendar: cal, Keyword: args.Keyword}).Validate(); err != nil {
		return errorResult(ctx, err, t), nil
	}

	if !args.Confirm {
		return jsonResult(ctx, confirmation(t, cal, args.Keyword), t), nil
	}

	deleted, err := sc.Calendar().DeleteEventsByKeyword(ctx, cal, args.Keyword)
	if err != nil {
		return errorResult(ctx, err, t), nil
	}

	return jsonResult(ctx, map[string]any{
		"calendar":     cal,
		"keyword":      args.Keyword,
		"deletedCount": deleted,
	}, t), nil
}

func confirmation(t *i18n.Translator, cal, keyword string) map[string]any {
	return map[string]any{
		"requiresConfirmation": true,
		"message":              t.Sprintf(i18n.KeyConfirmDelete, cal, keyword),
		"calendar":             cal,
		"keyword":              keyword,
	}
}
