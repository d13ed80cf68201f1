// Package calendar_tools provides the MCP tools for macOS Calendar.
//
// Every tool runs one or more AppleScript programs through the calendar
// client held by the server context and replies with JSON text. Failures
// are returned as error results carrying the failure kind and, when one
// helps, a localized suggestion; handlers never return a Go error.
//
// The tools that change calendars (create-event, create-batch-events,
// delete-events-by-keyword and fix-event-times) are left out when the
// server runs read-only.
package calendar_tools
