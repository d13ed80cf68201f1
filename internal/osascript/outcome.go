package osascript

import (
	"time"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

// Failure describes a script run that did not complete successfully.
// The runner only reports Timeout and Unknown; Err refines Unknown by
// classifying the message.
type Failure struct {
	Kind     failure.Kind
	Message  string
	ExitCode int
	// Deadline is the deadline that was exceeded, set for Timeout failures.
	Deadline time.Duration
}

// Outcome is the result of exactly one script run: either Stdout of a
// successful run or a Failure.
type Outcome struct {
	Stdout  string
	Failure *Failure
	// Truncated is set when stdout or stderr exceeded the output cap.
	Truncated bool
}

// Success returns a successful Outcome carrying stdout.
func Success(stdout string) Outcome {
	return Outcome{Stdout: stdout}
}

// Failed returns a failed Outcome.
func Failed(kind failure.Kind, message string, exitCode int) Outcome {
	return Outcome{Failure: &Failure{Kind: kind, Message: message, ExitCode: exitCode}}
}

// OK reports whether the run succeeded.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Err returns the classified failure of the run, or nil on success. target
// names the calendar the script addressed and feeds the suggestion.
func (o Outcome) Err(target string) error {
	if o.Failure == nil {
		return nil
	}

	kind := o.Failure.Kind
	if kind == failure.Unknown {
		kind = failure.Classify(o.Failure.Message)
	}

	return &failure.Error{
		Kind:     kind,
		Message:  o.Failure.Message,
		Target:   target,
		Deadline: o.Failure.Deadline,
	}
}
