package osascript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

func TestOutcome_ErrOnSuccess(t *testing.T) {
	o := Success("ok")
	assert.True(t, o.OK())
	assert.NoError(t, o.Err("Work"))
}

func TestOutcome_ErrClassifiesUnknown(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    failure.Kind
	}{
		{"permission", "execution error: Not allowed to send Apple events to Calendar. (-1743)", failure.PermissionDenied},
		{"missing calendar", `Calendar got an error: Can't get calendar "Nope". (-1728)`, failure.TargetNotFound},
		{"other", "syntax error: Expected end of line", failure.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Failed(failure.Unknown, tt.message, 1).Err("Nope")
			fe, ok := failure.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, fe.Kind)
			assert.Equal(t, "Nope", fe.Target)
			assert.Equal(t, tt.message, fe.Message)
		})
	}
}

func TestOutcome_ErrKeepsTimeout(t *testing.T) {
	o := timedOut(30 * time.Second)

	fe, ok := failure.As(o.Err("Work"))
	require.True(t, ok)
	assert.Equal(t, failure.Timeout, fe.Kind)
	assert.Equal(t, 30*time.Second, fe.Deadline)
	assert.Contains(t, fe.Message, failure.TimeoutMarker)
}
