package osascript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/macos-calendar-mcp/internal/applescript"
	"github.com/teemow/macos-calendar-mcp/internal/failure"
	"github.com/teemow/macos-calendar-mcp/internal/instrumentation"
	"github.com/teemow/macos-calendar-mcp/internal/logging"
)

const (
	// DefaultInterpreter is the binary scripts are handed to.
	DefaultInterpreter = "osascript"

	// DefaultGracePeriod is the time between SIGTERM and SIGKILL once a
	// script's deadline has passed.
	DefaultGracePeriod = time.Second

	// DefaultMaxOutputBytes caps captured stdout and stderr, each.
	DefaultMaxOutputBytes = 10 << 20
)

// DefaultArgs is the argument prefix placed before the script body.
var DefaultArgs = []string{"-e"}

// Executor runs a script under a deadline. The calendar client depends on
// this rather than on *Runner so tests can substitute fakes.
type Executor interface {
	Run(ctx context.Context, script applescript.Script, deadline time.Duration) Outcome
}

// Config configures a Runner. Zero values select the defaults.
type Config struct {
	Interpreter    string
	Args           []string
	GracePeriod    time.Duration
	MaxOutputBytes int
	Logger         *slog.Logger
	Metrics        *instrumentation.Metrics
}

// Runner executes scripts as child processes, one process per call.
// It is safe for concurrent use.
type Runner struct {
	interpreter    string
	args           []string
	gracePeriod    time.Duration
	maxOutputBytes int
	logger         *slog.Logger
	metrics        *instrumentation.Metrics
}

// New returns a Runner for cfg.
func New(cfg Config) *Runner {
	r := &Runner{
		interpreter:    cfg.Interpreter,
		args:           cfg.Args,
		gracePeriod:    cfg.GracePeriod,
		maxOutputBytes: cfg.MaxOutputBytes,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}
	if r.interpreter == "" {
		r.interpreter = DefaultInterpreter
	}
	if r.args == nil {
		r.args = DefaultArgs
	}
	if r.gracePeriod <= 0 {
		r.gracePeriod = DefaultGracePeriod
	}
	if r.maxOutputBytes <= 0 {
		r.maxOutputBytes = DefaultMaxOutputBytes
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Interpreter returns the binary the runner spawns.
func (r *Runner) Interpreter() string {
	return r.interpreter
}

// Run executes script and waits for it to exit, for the deadline to pass,
// or for ctx to be cancelled, whichever comes first. The Outcome is decided
// exactly once. On deadline or cancellation the caller gets a Timeout
// failure immediately; the child is sent SIGTERM, then SIGKILL after the
// grace period, and reaped in the background.
func (r *Runner) Run(ctx context.Context, script applescript.Script, deadline time.Duration) Outcome {
	start := time.Now()
	ctx, span := instrumentation.StartScriptSpan(ctx, script.Operation, len(script.Body))
	defer span.End()

	logger := logging.WithOperation(r.logger, script.Operation)
	logger.Debug("running script", logging.Script(script.Body), slog.Duration("deadline", deadline))

	outcome := r.run(ctx, logger, span, script, deadline)
	r.record(ctx, logger, span, script.Operation, outcome, time.Since(start))
	return outcome
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, span trace.Span, script applescript.Script, deadline time.Duration) Outcome {
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	args := make([]string, 0, len(r.args)+1)
	args = append(args, r.args...)
	args = append(args, script.Body)

	stdout := newCappedBuffer(r.maxOutputBytes)
	stderr := newCappedBuffer(r.maxOutputBytes)

	cmd := exec.Command(r.interpreter, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Wait must not hang on a grandchild that inherited the pipes.
	cmd.WaitDelay = r.gracePeriod
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return Failed(failure.Unknown, fmt.Sprintf("failed to start %s: %v", r.interpreter, err), -1)
	}

	res := &resolution{done: make(chan struct{})}
	exited := make(chan struct{})

	go func() {
		err := cmd.Wait()
		res.resolve(completed(err, stdout, stderr))
		close(exited)
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case <-exited:
	case <-timer.C:
		if res.resolve(timedOut(deadline)) {
			instrumentation.AddSpanEvent(span, "deadline_exceeded")
			r.terminate(logger, cmd, exited)
		}
	case <-ctx.Done():
		if res.resolve(cancelled(ctx.Err())) {
			instrumentation.AddSpanEvent(span, "cancelled")
			r.terminate(logger, cmd, exited)
		}
	}

	return res.wait()
}

// terminate sends SIGTERM to the child and schedules SIGKILL after the grace
// period unless the child exits first. It does not block.
func (r *Runner) terminate(logger *slog.Logger, cmd *exec.Cmd, exited <-chan struct{}) {
	if err := interrupt(cmd); err != nil {
		// The group may be gone already; escalate anyway.
		_ = kill(cmd)
		return
	}

	go func() {
		grace := time.NewTimer(r.gracePeriod)
		defer grace.Stop()

		select {
		case <-exited:
		case <-grace.C:
			logger.Debug("script ignored SIGTERM, sending SIGKILL", slog.Int("pid", cmd.Process.Pid))
			_ = kill(cmd)
		}
	}()
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, span trace.Span, operation string, o Outcome, d time.Duration) {
	if o.Truncated {
		logger.Warn("script output exceeded cap and was truncated", slog.Int("max_bytes", r.maxOutputBytes))
	}

	if o.OK() {
		r.metrics.RecordScriptExecution(ctx, operation, instrumentation.StatusSuccess, "", d)
		instrumentation.SetSpanSuccess(span)
		logger.Debug("script completed", logging.Status(instrumentation.StatusSuccess), slog.Duration(logging.KeyDuration, d))
		return
	}

	err := o.Err("")
	kind := failure.KindOf(err)
	status := instrumentation.StatusError
	if kind == failure.Timeout {
		status = instrumentation.StatusTimeout
		r.metrics.RecordScriptTimeout(ctx, operation)
	}

	r.metrics.RecordScriptExecution(ctx, operation, status, string(kind), d)
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithFailureKind(string(kind)).Build()...)
	instrumentation.SetSpanError(span, err)
	logger.Warn("script failed",
		logging.Status(status),
		logging.Kind(string(kind)),
		slog.Int("exit_code", o.Failure.ExitCode),
		slog.Duration(logging.KeyDuration, d),
		logging.Err(err))
}

// resolution holds the single Outcome of a run. The exit watcher and the
// deadline or cancellation path race to resolve it; only the first wins.
type resolution struct {
	once    sync.Once
	outcome Outcome
	done    chan struct{}
}

// resolve stores o if nothing was stored yet and reports whether it did.
func (r *resolution) resolve(o Outcome) bool {
	won := false
	r.once.Do(func() {
		r.outcome = o
		won = true
		close(r.done)
	})
	return won
}

func (r *resolution) wait() Outcome {
	<-r.done
	return r.outcome
}

func completed(err error, stdout, stderr *cappedBuffer) Outcome {
	truncated := stdout.Truncated() || stderr.Truncated()
	if err == nil {
		return Outcome{Stdout: stdout.String(), Truncated: truncated}
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	message := strings.TrimSpace(stderr.String())
	if message == "" {
		message = err.Error()
	}

	o := Failed(failure.Unknown, message, exitCode)
	o.Truncated = truncated
	return o
}

func timedOut(deadline time.Duration) Outcome {
	o := Failed(failure.Timeout, fmt.Sprintf("%s after %s", failure.TimeoutMarker, deadline), -1)
	o.Failure.Deadline = deadline
	return o
}

func cancelled(err error) Outcome {
	return Failed(failure.Timeout, fmt.Sprintf("%s: request cancelled: %v", failure.TimeoutMarker, err), -1)
}
