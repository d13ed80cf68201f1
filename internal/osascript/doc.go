// Package osascript runs AppleScript programs as child processes under a
// deadline.
//
// Each call to Runner.Run spawns one interpreter process with the script as
// its final argument; no shell is involved, so the script body is never
// re-parsed. stdout is the only success channel. A non-zero exit is reported
// with stderr as the message.
//
// When the deadline passes, or the caller's context is cancelled, the
// outcome is a Timeout failure returned immediately. The process group
// receives SIGTERM and, if still alive after the grace period, SIGKILL.
// Reaping happens in the background and never delays the caller.
//
// Outcome.Err classifies a failure into a failure.Kind, so callers never
// inspect raw interpreter text themselves.
package osascript
