package calendar

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/macos-calendar-mcp/internal/applescript"
	"github.com/teemow/macos-calendar-mcp/internal/failure"
	"github.com/teemow/macos-calendar-mcp/internal/osascript"
)

// DefaultTimeout is the script deadline used when none is configured.
const DefaultTimeout = 30 * time.Second

// Client runs Calendar operations through an osascript.Executor.
// It is safe for concurrent use.
type Client struct {
	exec    osascript.Executor
	timeout time.Duration
}

// NewClient creates a Client. A non-positive timeout selects DefaultTimeout.
func NewClient(exec osascript.Executor, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{exec: exec, timeout: timeout}
}

// Timeout returns the deadline applied to every script.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// run builds req and executes it. target names the calendar the request
// addresses, for suggestions on failure.
func (c *Client) run(ctx context.Context, req applescript.Request, target string) (string, error) {
	script, err := applescript.Build(req)
	if err != nil {
		return "", err
	}

	outcome := c.exec.Run(ctx, script, c.timeout)
	if err := outcome.Err(target); err != nil {
		return "", err
	}
	return trimOutput(outcome.Stdout), nil
}

// ListCalendars returns the names of all calendars.
func (c *Client) ListCalendars(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, applescript.ListCalendars{}, "")
	if err != nil {
		return nil, err
	}
	return parseNames(out), nil
}

// CreateEvent creates an event in calendar and returns it as stored.
func (c *Client) CreateEvent(ctx context.Context, calendar string, in EventInput) (*Event, error) {
	req := applescript.CreateEvent{
		Calendar:    calendar,
		Title:       in.Title,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Description: in.Description,
		Location:    in.Location,
	}

	out, err := c.run(ctx, req, calendar)
	if err != nil {
		return nil, err
	}

	// Both dates were validated by the build; normalize them for the reply.
	start, _ := applescript.ParseDateTime(in.StartDate)
	end, _ := applescript.ParseDateTime(in.EndDate)

	return &Event{
		UID:         out,
		Calendar:    calendar,
		Title:       in.Title,
		StartDate:   start.String(),
		EndDate:     end.String(),
		Description: in.Description,
		Location:    in.Location,
	}, nil
}

// DeleteEventsByKeyword deletes every event in calendar whose title contains
// keyword and returns how many were deleted.
func (c *Client) DeleteEventsByKeyword(ctx context.Context, calendar, keyword string) (int, error) {
	out, err := c.run(ctx, applescript.DeleteEvents{Calendar: calendar, Keyword: keyword}, calendar)
	if err != nil {
		return 0, err
	}
	return parseCount(applescript.OpDeleteEvents, out)
}

// ListTodayEvents returns the events in calendar starting today.
func (c *Client) ListTodayEvents(ctx context.Context, calendar string) ([]Event, error) {
	out, err := c.run(ctx, applescript.ListToday{Calendar: calendar}, calendar)
	if err != nil {
		return nil, err
	}
	return parseEvents(out), nil
}

// ListWeekEvents returns the events in calendar starting in the seven days
// from weekStart ("YYYY-MM-DD").
func (c *Client) ListWeekEvents(ctx context.Context, calendar, weekStart string) ([]Event, error) {
	out, err := c.run(ctx, applescript.ListRange{Calendar: calendar, WeekStart: weekStart}, calendar)
	if err != nil {
		return nil, err
	}
	return parseEvents(out), nil
}

// SearchEvents returns the events in calendar whose title or description
// contains query.
func (c *Client) SearchEvents(ctx context.Context, calendar, query string) ([]Event, error) {
	out, err := c.run(ctx, applescript.Search{Calendar: calendar, Query: query}, calendar)
	if err != nil {
		return nil, err
	}
	return parseEvents(out), nil
}

// FixEventTime applies one correction to the events on datePattern
// ("YYYY-MM-DD") and returns how many events were moved.
func (c *Client) FixEventTime(ctx context.Context, calendar, datePattern string, fix Correction) (int, error) {
	req := applescript.FixTime{
		Calendar:     calendar,
		DatePattern:  datePattern,
		Keyword:      fix.Keyword,
		NewStartTime: fix.NewStartTime,
		NewEndTime:   fix.NewEndTime,
	}

	out, err := c.run(ctx, req, calendar)
	if err != nil {
		return 0, err
	}
	return parseCount(applescript.OpFixTime, out)
}

// trimOutput drops the newline osascript appends and the quoted empty
// string it prints for an empty text result.
func trimOutput(out string) string {
	out = strings.TrimRight(out, "\r\n")
	if out == `""` {
		return ""
	}
	return out
}

func parseCount(operation, out string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, &failure.Error{
			Kind:    failure.Unknown,
			Message: fmt.Sprintf("unexpected %s output %q", operation, out),
			Err:     err,
		}
	}
	return n, nil
}
