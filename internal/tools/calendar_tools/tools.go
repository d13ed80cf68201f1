package calendar_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/macos-calendar-mcp/internal/server"
	"github.com/teemow/macos-calendar-mcp/internal/tools/common"
)

// Tool names.
const (
	ToolListCalendars   = "list-calendars"
	ToolCreateEvent     = "create-event"
	ToolCreateBatch     = "create-batch-events"
	ToolDeleteByKeyword = "delete-events-by-keyword"
	ToolListTodayEvents = "list-today-events"
	ToolListWeekEvents  = "list-week-events"
	ToolSearchEvents    = "search-events"
	ToolFixEventTimes   = "fix-event-times"
)

type handlerFunc func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

// toolRegistration pairs a tool definition with its handler.
type toolRegistration struct {
	tool    mcp.Tool
	handler handlerFunc
	// write marks tools that change calendars; they are hidden in read-only mode.
	write bool
}

func registrations(sc *server.ServerContext) []toolRegistration {
	cfg := sc.Config()
	var regs []toolRegistration
	regs = append(regs, calendarListTools(cfg)...)
	regs = append(regs, eventTools(cfg)...)
	regs = append(regs, searchTools(cfg)...)
	regs = append(regs, schedulingTools(cfg)...)
	return regs
}

// RegisterCalendarTools registers the Calendar tools with the MCP server.
// In read-only mode the tools that change calendars are left out.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	for _, reg := range registrations(sc) {
		if reg.write && readOnly {
			continue
		}
		handler := reg.handler
		s.AddTool(reg.tool, common.InstrumentedToolHandler(reg.tool.Name, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handler(ctx, request, sc)
			}))
	}
	return nil
}

// calendarOrDefault returns name, or fallback when name is empty.
func calendarOrDefault(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
