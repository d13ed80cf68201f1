package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/macos-calendar-mcp/internal/applescript"
	"github.com/teemow/macos-calendar-mcp/internal/calendar"
	"github.com/teemow/macos-calendar-mcp/internal/config"
	"github.com/teemow/macos-calendar-mcp/internal/failure"
	"github.com/teemow/macos-calendar-mcp/internal/i18n"
	"github.com/teemow/macos-calendar-mcp/internal/server"
	"github.com/teemow/macos-calendar-mcp/internal/tools/batch"
	"github.com/teemow/macos-calendar-mcp/internal/tools/common"
)

func schedulingTools(cfg config.Config) []toolRegistration {
	fixTool := mcp.NewTool(ToolFixEventTimes,
		mcp.WithDescription("Move events on one day to new times. Each correction moves the events whose title contains its keyword."),
		mcp.WithString("datePattern",
			mcp.Required(),
			mcp.Description("Day of the events, format YYYY-MM-DD"),
		),
		mcp.WithArray("corrections",
			mcp.Required(),
			mcp.Description("Corrections to apply. Each has keyword, newStartTime and newEndTime (HH:MM)."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"keyword":      map[string]any{"type": "string"},
					"newStartTime": map[string]any{"type": "string"},
					"newEndTime":   map[string]any{"type": "string"},
				},
				"required": []string{"keyword", "newStartTime", "newEndTime"},
			}),
		),
		mcp.WithString("calendar",
			mcp.Description("Calendar name (default: '"+cfg.Calendar.Work+"')"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)

	return []toolRegistration{
		{tool: fixTool, handler: handleFixEventTimes, write: true},
	}
}

type fixArgs struct {
	DatePattern string                `json:"datePattern"`
	Corrections []calendar.Correction `json:"corrections"`
	Calendar    string                `json:"calendar"`
}

func handleFixEventTimes(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	t := sc.Translator()

	var args fixArgs
	if err := common.DecodeArgs(request, &args); err != nil {
		return errorResult(ctx, err, t), nil
	}
	if args.DatePattern == "" {
		return errorResult(ctx, failure.Missing("datePattern"), t), nil
	}
	if _, err := applescript.ParseDate(args.DatePattern); err != nil {
		return errorResult(ctx, failure.InvalidDate("datePattern", args.DatePattern), t), nil
	}
	if args.Corrections == nil {
		return errorResult(ctx, failure.Missing("corrections"), t), nil
	}
	if len(args.Corrections) == 0 {
		return errorResult(ctx, failure.Validationf("corrections", "corrections cannot be empty"), t), nil
	}

	cal := calendarOrDefault(args.Calendar, sc.Config().Calendar.Work)
	common.RecordCalendars(ctx, cal)
	common.RecordItems(ctx, len(args.Corrections))

	client := sc.Calendar()
	report := batch.Run(ctx, args.Corrections, batch.Options[calendar.Correction]{
		Concurrency: sc.Config().Batch.Concurrency,
		Validate: func(c calendar.Correction) error {
			return applescript.FixTime{
				Calendar:     cal,
				DatePattern:  args.DatePattern,
				Keyword:      c.Keyword,
				NewStartTime: c.NewStartTime,
				NewEndTime:   c.NewEndTime,
			}.Validate()
		},
	}, func(ctx context.Context, c calendar.Correction) (int, error) {
		n, err := client.FixEventTime(ctx, cal, args.DatePattern, c)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, failure.New(failure.TargetNotFound, t.Sprintf(i18n.KeyNoMatchingEvents))
		}
		return n, nil
	})

	recordBatch(ctx, sc, ToolFixEventTimes, report.SuccessCount(), report.FailCount())

	fixed := 0
	for _, item := range report.Items {
		fixed += item.Payload
	}

	resp := formatReport(report, t,
		func(c calendar.Correction) map[string]any {
			return map[string]any{
				"keyword":      c.Keyword,
				"newStartTime": c.NewStartTime,
				"newEndTime":   c.NewEndTime,
			}
		},
		func(n int) map[string]any {
			return map[string]any{"fixed": n}
		})

	return jsonResult(ctx, fixResponse{
		batchResponse: resp,
		Calendar:      cal,
		DatePattern:   args.DatePattern,
		FixedEvents:   fixed,
	}, t), nil
}

type fixResponse struct {
	batchResponse
	Calendar    string `json:"calendar"`
	DatePattern string `json:"datePattern"`
	FixedEvents int    `json:"fixedEvents"`
}
