package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/macos-calendar-mcp/internal/calendar"
	"github.com/teemow/macos-calendar-mcp/internal/config"
	"github.com/teemow/macos-calendar-mcp/internal/failure"
	"github.com/teemow/macos-calendar-mcp/internal/server"
	"github.com/teemow/macos-calendar-mcp/internal/tools/batch"
	"github.com/teemow/macos-calendar-mcp/internal/tools/common"
)

func searchTools(cfg config.Config) []toolRegistration {
	searchTool := mcp.NewTool(ToolSearchEvents,
		mcp.WithDescription("Search events whose title or description contains a text. Searches one calendar, a list of calendars, or all of them."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to look for (case-sensitive)"),
		),
		mcp.WithString("calendar",
			mcp.Description("Calendar name (default: '"+cfg.Calendar.Default+"')"),
		),
		mcp.WithArray("calendars",
			mcp.Description("Search these calendars instead of one. Calendars that fail are skipped."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("allCalendars",
			mcp.Description("Search every calendar. Calendars that fail are skipped."),
			mcp.DefaultBool(false),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	return []toolRegistration{
		{tool: searchTool, handler: handleSearchEvents},
	}
}

type searchArgs struct {
	Query        string `json:"query"`
	Calendar     string `json:"calendar"`
	Calendars    any    `json:"calendars"`
	AllCalendars bool   `json:"allCalendars"`
}

func handleSearchEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	t := sc.Translator()

	var args searchArgs
	if err := common.DecodeArgs(request, &args); err != nil {
		return errorResult(ctx, err, t), nil
	}
	if args.Query == "" {
		return errorResult(ctx, failure.Missing("query"), t), nil
	}

	if !args.AllCalendars && args.Calendars == nil {
		cal := calendarOrDefault(args.Calendar, sc.Config().Calendar.Default)
		common.RecordCalendars(ctx, cal)

		events, err := sc.Calendar().SearchEvents(ctx, cal, args.Query)
		if err != nil {
			return errorResult(ctx, err, t), nil
		}
		return jsonResult(ctx, searchResponse{
			Query:     args.Query,
			Calendars: []string{cal},
			Events:    events,
			Count:     len(events),
		}, t), nil
	}

	targets, err := searchTargets(ctx, sc, args)
	if err != nil {
		return errorResult(ctx, err, t), nil
	}
	common.RecordCalendars(ctx, targets...)
	common.RecordItems(ctx, len(targets))

	fo := sc.Config().FanOut
	client := sc.Calendar()
	result := batch.FanOut(ctx, targets, batch.FanOutOptions{
		Concurrency:    fo.Concurrency,
		Limit:          fo.Limit,
		ReportFailures: fo.ReportFailures,
	}, func(ctx context.Context, cal string) ([]calendar.Event, error) {
		return client.SearchEvents(ctx, cal, args.Query)
	})

	sc.Metrics().RecordFanOutSkipped(ctx, ToolSearchEvents, result.Skipped)

	resp := searchResponse{
		Query:            args.Query,
		Calendars:        targets,
		Events:           result.Results,
		Count:            len(result.Results),
		Truncated:        result.Truncated,
		SkippedCalendars: result.Skipped,
	}
	for _, f := range result.Failures {
		entry := errorFields(f.Err, t)
		entry["calendar"] = f.Target
		resp.Failures = append(resp.Failures, entry)
	}
	return jsonResult(ctx, resp, t), nil
}

// searchTargets resolves the calendars of a multi-calendar search.
// allCalendars wins over an explicit list.
func searchTargets(ctx context.Context, sc *server.ServerContext, args searchArgs) ([]string, error) {
	if args.AllCalendars {
		names, err := sc.Calendar().ListCalendars(ctx)
		if err != nil {
			return nil, err
		}
		return names, nil
	}
	return batch.ParseStringOrArray(args.Calendars, "calendars")
}

type searchResponse struct {
	Query            string           `json:"query"`
	Calendars        []string         `json:"calendars"`
	Events           []calendar.Event `json:"events"`
	Count            int              `json:"count"`
	Truncated        bool             `json:"truncated"`
	SkippedCalendars int              `json:"skippedCalendars"`
	Failures         []map[string]any `json:"failures,omitempty"`
}
