package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyCalendar  = "calendar"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyKind      = "kind"
	KeyTool      = "tool"
	KeyScript    = "script"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Format names accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger builds the process logger. Output goes to w, which must not be
// stdout when the stdio transport is active.
func NewLogger(w io.Writer, debug bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithCalendar returns a logger with the calendar attribute set.
func WithCalendar(logger *slog.Logger, calendar string) *slog.Logger {
	return logger.With(Calendar(calendar))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Calendar returns a slog attribute for a calendar name.
// Calendar names are user-chosen, so only a stable hash is logged.
func Calendar(name string) slog.Attr {
	return slog.String(KeyCalendar, Anonymize(name))
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Kind returns a slog attribute for a failure kind.
func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// Anonymize returns a hashed representation of a personal value such as a
// calendar name, so log entries can be correlated without exposing it.
func Anonymize(value string) string {
	if value == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(value))
	return "cal:" + hex.EncodeToString(hash[:8])
}

// SanitizeScript returns a length indicator for a generated script.
// Scripts embed event titles and descriptions and are never logged verbatim.
func SanitizeScript(body string) string {
	if body == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[script:%d bytes]", len(body))
}

// Script returns a slog attribute describing a script without its content.
func Script(body string) slog.Attr {
	return slog.String(KeyScript, SanitizeScript(body))
}
