//go:build unix

package osascript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/macos-calendar-mcp/internal/applescript"
	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

// newShellRunner returns a Runner that hands scripts to sh -c instead of
// osascript, so process handling can be tested on any unix host.
func newShellRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	cfg.Interpreter = "sh"
	cfg.Args = []string{"-c"}
	return New(cfg)
}

func shell(body string) applescript.Script {
	return applescript.Script{Operation: applescript.OpListCalendars, Body: body}
}

func TestNew_Defaults(t *testing.T) {
	r := New(Config{})
	assert.Equal(t, DefaultInterpreter, r.Interpreter())
	assert.Equal(t, DefaultArgs, r.args)
	assert.Equal(t, DefaultGracePeriod, r.gracePeriod)
	assert.Equal(t, DefaultMaxOutputBytes, r.maxOutputBytes)
}

func TestRunner_Success(t *testing.T) {
	r := newShellRunner(t, Config{})

	o := r.Run(context.Background(), shell(`printf 'Work\036Home'`), 5*time.Second)

	require.True(t, o.OK(), "unexpected failure: %+v", o.Failure)
	assert.Equal(t, "Work\x1eHome", o.Stdout)
	assert.False(t, o.Truncated)
}

func TestRunner_ScriptIsSingleArgument(t *testing.T) {
	r := newShellRunner(t, Config{})

	// Quotes and semicolons inside the body reach the interpreter untouched.
	o := r.Run(context.Background(), shell(`printf '%s' "a;b \"c\""`), 5*time.Second)

	require.True(t, o.OK())
	assert.Equal(t, `a;b "c"`, o.Stdout)
}

func TestRunner_NonZeroExit(t *testing.T) {
	r := newShellRunner(t, Config{})

	o := r.Run(context.Background(), shell(`echo "execution error: Not allowed to send Apple events (-1743)" >&2; exit 1`), 5*time.Second)

	require.False(t, o.OK())
	assert.Equal(t, failure.Unknown, o.Failure.Kind)
	assert.Equal(t, 1, o.Failure.ExitCode)
	assert.Contains(t, o.Failure.Message, "Not allowed")
	assert.True(t, failure.IsKind(o.Err("Work"), failure.PermissionDenied))
}

func TestRunner_NonZeroExitWithoutStderr(t *testing.T) {
	r := newShellRunner(t, Config{})

	o := r.Run(context.Background(), shell(`exit 3`), 5*time.Second)

	require.False(t, o.OK())
	assert.Equal(t, 3, o.Failure.ExitCode)
	assert.Contains(t, o.Failure.Message, "exit status 3")
}

func TestRunner_SpawnError(t *testing.T) {
	r := New(Config{Interpreter: filepath.Join(t.TempDir(), "missing-interpreter")})

	o := r.Run(context.Background(), shell(`true`), 5*time.Second)

	require.False(t, o.OK())
	assert.Equal(t, failure.Unknown, o.Failure.Kind)
	assert.Equal(t, -1, o.Failure.ExitCode)
	assert.Contains(t, o.Failure.Message, "failed to start")
}

func TestRunner_TimeoutReturnsAtDeadline(t *testing.T) {
	r := newShellRunner(t, Config{GracePeriod: 5 * time.Second})
	deadline := 200 * time.Millisecond

	start := time.Now()
	// The trap delays exit well past the deadline; the caller must not wait for it.
	o := r.Run(context.Background(), shell(`trap 'sleep 3; exit 0' TERM; sleep 10 & wait`), deadline)
	elapsed := time.Since(start)

	require.False(t, o.OK())
	assert.Equal(t, failure.Timeout, o.Failure.Kind)
	assert.Equal(t, deadline, o.Failure.Deadline)
	assert.True(t, strings.HasPrefix(o.Failure.Message, failure.TimeoutMarker), o.Failure.Message)
	assert.Less(t, elapsed, deadline+time.Second)
}

func TestRunner_TimeoutSendsSIGTERM(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "terminated")
	r := newShellRunner(t, Config{})

	body := fmt.Sprintf(`trap 'echo term > %s; exit 0' TERM; sleep 10 & wait`, marker)
	o := r.Run(context.Background(), shell(body), 300*time.Millisecond)

	require.Equal(t, failure.Timeout, o.Failure.Kind)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond, "script never received SIGTERM")
}

func TestRunner_TimeoutEscalatesToSIGKILL(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pid")
	r := newShellRunner(t, Config{GracePeriod: 200 * time.Millisecond})

	body := fmt.Sprintf(`trap '' TERM; echo $$ > %s; while :; do sleep 1; done`, pidFile)
	o := r.Run(context.Background(), shell(body), 300*time.Millisecond)
	require.Equal(t, failure.Timeout, o.Failure.Kind)

	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return syscall.Kill(pid, 0) != nil
	}, 3*time.Second, 20*time.Millisecond, "process ignoring SIGTERM was never killed")
}

func TestRunner_ContextCancellation(t *testing.T) {
	r := newShellRunner(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	o := r.Run(ctx, shell(`sleep 10`), 10*time.Second)

	require.False(t, o.OK())
	assert.Equal(t, failure.Timeout, o.Failure.Kind)
	assert.Contains(t, o.Failure.Message, "cancelled")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunner_AlreadyCancelledContext(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	r := newShellRunner(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := r.Run(ctx, shell("touch "+marker), 5*time.Second)

	assert.Equal(t, failure.Timeout, o.Failure.Kind)
	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err), "no process should be spawned for a cancelled context")
}

func TestRunner_OutputCap(t *testing.T) {
	r := newShellRunner(t, Config{MaxOutputBytes: 16})

	o := r.Run(context.Background(), shell(`i=0; while [ $i -lt 100 ]; do printf 'abcdefgh'; i=$((i+1)); done`), 5*time.Second)

	require.True(t, o.OK())
	assert.Len(t, o.Stdout, 16)
	assert.True(t, o.Truncated)
}

func TestRunner_ConcurrentRunsAreIndependent(t *testing.T) {
	r := newShellRunner(t, Config{})

	const n = 8
	outcomes := make([]Outcome, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			deadline := 5 * time.Second
			body := fmt.Sprintf("printf %d", i)
			if i%2 == 1 {
				// Odd runs time out without affecting their even siblings.
				deadline = 200 * time.Millisecond
				body = "sleep 10"
			}
			outcomes[i] = r.Run(context.Background(), shell(body), deadline)
		}(i)
	}
	wg.Wait()

	for i, o := range outcomes {
		if i%2 == 1 {
			assert.Equal(t, failure.Timeout, o.Failure.Kind, "run %d", i)
			continue
		}
		require.True(t, o.OK(), "run %d: %+v", i, o.Failure)
		assert.Equal(t, strconv.Itoa(i), o.Stdout)
	}
}
