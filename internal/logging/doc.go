// Package logging provides structured logging utilities for the calendar server.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog (text or JSON handler)
//   - Calendar name anonymization
//   - Script redaction (only the size of a generated script is ever logged)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "list_today")
//	logger.Info("script finished",
//	    logging.Status("success"))
//
// Sanitize personal data before logging:
//
//	logger.Debug("running script",
//	    logging.Calendar(name),
//	    logging.Script(body))
//
// When the server speaks MCP over stdio, stdout carries the protocol, so the
// logger returned by NewLogger must be pointed at stderr.
package logging
