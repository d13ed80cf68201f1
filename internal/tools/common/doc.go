// Package common provides helpers shared by the MCP tool packages:
// InstrumentedToolHandler wraps every handler with a span, metrics and an
// audit record, and DecodeArgs turns the loosely typed argument map into a
// typed request, rejecting unknown or mistyped parameters.
package common
