package failure

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/macos-calendar-mcp/internal/i18n"
)

// Kind is the closed set of failure categories surfaced to clients.
type Kind string

const (
	PermissionDenied Kind = "permission_denied"
	TargetNotFound   Kind = "target_not_found"
	Timeout          Kind = "timeout"
	ValidationError  Kind = "validation_error"
	Unknown          Kind = "unknown"
)

// Kinds returns every Kind in classification precedence order.
func Kinds() []Kind {
	return []Kind{PermissionDenied, TargetNotFound, Timeout, ValidationError, Unknown}
}

// Retryable reports whether a failure of this kind may succeed on a plain retry.
func (k Kind) Retryable() bool {
	return k == Timeout
}

func (k Kind) String() string {
	return string(k)
}

// TimeoutMarker prefixes every timeout message produced by the script runner.
const TimeoutMarker = "osascript: timed out"

var (
	permissionPhrases = []string{
		"not allowed",
		"permission",
		"not authorized",
		"not authorised",
		"(-1743)",
		"access denied",
	}

	// macOS renders apostrophes in its error text as U+2019, so both forms are listed.
	targetPhrases = []string{
		`doesn't understand the "calendar" message`,
		`doesn’t understand the “calendar” message`,
		`doesn’t understand the "calendar" message`,
		"can't get calendar",
		"can’t get calendar",
		"not found",
		"(-1728)",
		"calendar.app",
	}
)

// Classify maps raw interpreter error text to a Kind. It is total: text that
// matches no known phrase is Unknown. Matching is case-insensitive and
// permission phrases take precedence over target phrases, which take
// precedence over the timeout marker.
func Classify(raw string) Kind {
	msg := strings.ToLower(raw)

	switch {
	case containsAny(msg, permissionPhrases):
		return PermissionDenied
	case containsAny(msg, targetPhrases):
		return TargetNotFound
	case strings.Contains(msg, TimeoutMarker):
		return Timeout
	default:
		return Unknown
	}
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Error is a classified failure. Target names the calendar or parameter the
// failure is about, when known, and is used to build the suggestion.
type Error struct {
	Kind    Kind
	Message string
	Target  string
	// Deadline is set for Timeout failures.
	Deadline time.Duration
	Err      error

	// hint is an i18n key overriding the default suggestion for the kind.
	hint string
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Suggestion returns a localized hint for resolving the failure, or "" when
// there is nothing useful to add.
func (e *Error) Suggestion(t *i18n.Translator) string {
	switch e.Kind {
	case PermissionDenied:
		return t.Sprintf(i18n.KeyPermissionDenied)
	case TargetNotFound:
		if e.Target == "" {
			if strings.Contains(strings.ToLower(e.Message), "calendar.app") {
				return t.Sprintf(i18n.KeyCalendarAppAccess)
			}
			return ""
		}
		return t.Sprintf(i18n.KeyTargetNotFound, e.Target)
	case Timeout:
		if e.Deadline <= 0 {
			return ""
		}
		return t.Sprintf(i18n.KeyTimeout, e.Deadline)
	case ValidationError:
		switch e.hint {
		case i18n.KeyMissingParameter:
			return t.Sprintf(i18n.KeyMissingParameter, e.Target)
		case "":
			return ""
		default:
			return t.Sprintf(e.hint)
		}
	default:
		return ""
	}
}

// New returns an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validationf returns a ValidationError about the named parameter.
func Validationf(param, format string, args ...any) *Error {
	return &Error{
		Kind:    ValidationError,
		Message: fmt.Sprintf(format, args...),
		Target:  param,
	}
}

// Missing returns a ValidationError for a required parameter that was not supplied.
func Missing(param string) *Error {
	return &Error{
		Kind:    ValidationError,
		Message: "Missing required parameter: " + param,
		Target:  param,
		hint:    i18n.KeyMissingParameter,
	}
}

// InvalidDateTime returns a ValidationError for a malformed "YYYY-MM-DD HH:MM" value.
func InvalidDateTime(param, raw string) *Error {
	return &Error{
		Kind:    ValidationError,
		Message: fmt.Sprintf("Invalid date format for %s: %q", param, raw),
		Target:  param,
		hint:    i18n.KeyInvalidDateTime,
	}
}

// InvalidDate returns a ValidationError for a malformed "YYYY-MM-DD" value.
func InvalidDate(param, raw string) *Error {
	return &Error{
		Kind:    ValidationError,
		Message: fmt.Sprintf("Invalid date format for %s: %q", param, raw),
		Target:  param,
		hint:    i18n.KeyInvalidDate,
	}
}

// FromMessage classifies raw interpreter error text.
func FromMessage(raw, target string) *Error {
	return &Error{Kind: Classify(raw), Message: raw, Target: target}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// From converts any error into an *Error. Errors that are not already
// classified are classified by their message.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if fe, ok := As(err); ok {
		return fe
	}
	return &Error{Kind: Classify(err.Error()), Message: err.Error(), Err: err}
}

// KindOf returns the Kind of err, or Unknown when err is not classified.
func KindOf(err error) Kind {
	if fe, ok := As(err); ok {
		return fe.Kind
	}
	return Unknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	fe, ok := As(err)
	return ok && fe.Kind == kind
}
