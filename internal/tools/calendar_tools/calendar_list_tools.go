package calendar_tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/macos-calendar-mcp/internal/applescript"
	"github.com/teemow/macos-calendar-mcp/internal/calendar"
	"github.com/teemow/macos-calendar-mcp/internal/config"
	"github.com/teemow/macos-calendar-mcp/internal/server"
	"github.com/teemow/macos-calendar-mcp/internal/tools/common"
)

func calendarListTools(cfg config.Config) []toolRegistration {
	listCalendarsTool := mcp.NewTool(ToolListCalendars,
		mcp.WithDescription("List the names of all macOS calendars"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	listTodayTool := mcp.NewTool(ToolListTodayEvents,
		mcp.WithDescription("List the events starting today in a calendar"),
		mcp.WithString("calendar",
			mcp.Description("Calendar name (default: '"+cfg.Calendar.Default+"')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	listWeekTool := mcp.NewTool(ToolListWeekEvents,
		mcp.WithDescription("List the events starting in the seven days from weekStart"),
		mcp.WithString("weekStart",
			mcp.Required(),
			mcp.Description("First day of the week, format YYYY-MM-DD"),
		),
		mcp.WithString("calendar",
			mcp.Description("Calendar name (default: '"+cfg.Calendar.Work+"')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	return []toolRegistration{
		{tool: listCalendarsTool, handler: handleListCalendars},
		{tool: listTodayTool, handler: handleListTodayEvents},
		{tool: listWeekTool, handler: handleListWeekEvents},
	}
}

type listCalendarsArgs struct{}

func handleListCalendars(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	t := sc.Translator()

	var args listCalendarsArgs
	if err := common.DecodeArgs(request, &args); err != nil {
		return errorResult(ctx, err, t), nil
	}

	names, err := sc.Calendar().ListCalendars(ctx)
	if err != nil {
		return errorResult(ctx, err, t), nil
	}

	return jsonResult(ctx, map[string]any{
		"calendars": names,
		"count":     len(names),
	}, t), nil
}

type listTodayArgs struct {
	Calendar string `json:"calendar"`
}

func handleListTodayEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	t := sc.Translator()

	var args listTodayArgs
	if err := common.DecodeArgs(request, &args); err != nil {
		return errorResult(ctx, err, t), nil
	}
	cal := calendarOrDefault(args.Calendar, sc.Config().Calendar.Default)
	common.RecordCalendars(ctx, cal)

	events, err := sc.Calendar().ListTodayEvents(ctx, cal)
	if err != nil {
		return errorResult(ctx, err, t), nil
	}

	return jsonResult(ctx, eventList{
		Calendar: cal,
		Date:     time.Now().Format(applescript.DateLayout),
		Events:   events,
		Count:    len(events),
	}, t), nil
}

type listWeekArgs struct {
	WeekStart string `json:"weekStart"`
	Calendar  string `json:"calendar"`
}

func handleListWeekEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	t := sc.Translator()

	var args listWeekArgs
	if err := common.DecodeArgs(request, &args); err != nil {
		return errorResult(ctx, err, t), nil
	}
	cal := calendarOrDefault(args.Calendar, sc.Config().Calendar.Work)
	common.RecordCalendars(ctx, cal)

	start, end, err := applescript.ListRange{Calendar: cal, WeekStart: args.WeekStart}.Bounds()
	if err != nil {
		return errorResult(ctx, err, t), nil
	}

	events, err := sc.Calendar().ListWeekEvents(ctx, cal, args.WeekStart)
	if err != nil {
		return errorResult(ctx, err, t), nil
	}

	return jsonResult(ctx, eventList{
		Calendar:  cal,
		WeekStart: start.Time().Format(applescript.DateLayout),
		WeekEnd:   end.Time().Format(applescript.DateLayout),
		Events:    events,
		Count:     len(events),
	}, t), nil
}

// eventList is the reply of the listing tools.
type eventList struct {
	Calendar  string           `json:"calendar"`
	Date      string           `json:"date,omitempty"`
	WeekStart string           `json:"weekStart,omitempty"`
	WeekEnd   string           `json:"weekEnd,omitempty"`
	Events    []calendar.Event `json:"events"`
	Count     int              `json:"count"`
}
