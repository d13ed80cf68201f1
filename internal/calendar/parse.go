package calendar

import (
	"sort"
	"strings"

	"github.com/teemow/macos-calendar-mcp/internal/applescript"
)

// parseNames splits list-calendars output into calendar names.
func parseNames(out string) []string {
	names := []string{}
	for _, name := range strings.Split(out, applescript.RecordSeparator) {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parseEvents decodes event records sorted by start date. Records with the
// wrong number of fields, such as the tail of truncated output, are dropped.
func parseEvents(out string) []Event {
	events := []Event{}
	if out == "" {
		return events
	}

	for _, record := range strings.Split(out, applescript.RecordSeparator) {
		fields := strings.Split(record, applescript.FieldSeparator)
		if len(fields) != applescript.EventFields {
			continue
		}
		events = append(events, Event{
			UID:         fields[0],
			Calendar:    fields[1],
			Title:       fields[2],
			StartDate:   fields[3],
			EndDate:     fields[4],
			Description: fields[5],
			Location:    fields[6],
		})
	}

	// The date layout is fixed-width, so string order is chronological.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartDate < events[j].StartDate
	})
	return events
}
