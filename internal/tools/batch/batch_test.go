package batch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

func TestRun_MixedOutcomes(t *testing.T) {
	items := []string{"ok", "fail"}

	report := Run(context.Background(), items, Options[string]{}, func(_ context.Context, item string) (string, error) {
		if item == "fail" {
			return "", failure.New(failure.Unknown, "execution error")
		}
		return "created " + item, nil
	})

	require.Len(t, report.Items, 2)
	assert.Equal(t, Summary{SuccessCount: 1, FailCount: 1, Total: 2}, report.Summary())

	assert.True(t, report.Items[0].OK())
	assert.Equal(t, "created ok", report.Items[0].Payload)
	assert.False(t, report.Items[1].OK())
	assert.Equal(t, failure.Unknown, report.Items[1].Err.Kind)
}

func TestRun_CountsAndOrderUnderConcurrency(t *testing.T) {
	for _, n := range []int{0, 1, 7, 32} {
		for _, concurrency := range []int{0, 1, 4, 16} {
			t.Run(fmt.Sprintf("n=%d/concurrency=%d", n, concurrency), func(t *testing.T) {
				items := make([]int, n)
				wantFail := 0
				for i := range items {
					items[i] = i
					if i%3 == 0 {
						wantFail++
					}
				}

				report := Run(context.Background(), items, Options[int]{Concurrency: concurrency}, func(_ context.Context, i int) (int, error) {
					// Finish out of order.
					time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
					if i%3 == 0 {
						return 0, errors.New("boom")
					}
					return i * 10, nil
				})

				require.Len(t, report.Items, n)
				assert.Equal(t, n, report.SuccessCount()+report.FailCount())
				assert.Equal(t, wantFail, report.FailCount())
				for i, item := range report.Items {
					assert.Equal(t, i, item.Index)
					assert.Equal(t, i, item.Input)
					if i%3 != 0 {
						assert.Equal(t, i*10, item.Payload)
					}
				}
			})
		}
	}
}

func TestRun_ConcurrencyIsBounded(t *testing.T) {
	var inFlight, peak atomic.Int32

	items := make([]int, 20)
	Run(context.Background(), items, Options[int]{Concurrency: 3}, func(_ context.Context, _ int) (struct{}, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRun_ValidateSkipsExecution(t *testing.T) {
	var calls atomic.Int32
	items := []string{"good", "", "also good"}

	report := Run(context.Background(), items, Options[string]{
		Validate: func(s string) error {
			if s == "" {
				return failure.Missing("title")
			}
			return nil
		},
	}, func(_ context.Context, s string) (string, error) {
		calls.Add(1)
		return s, nil
	})

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, report.SuccessCount())
	require.False(t, report.Items[1].OK())
	assert.Equal(t, failure.ValidationError, report.Items[1].Err.Kind)
}

func TestRun_PlainValidationErrorIsWrapped(t *testing.T) {
	report := Run(context.Background(), []int{1}, Options[int]{
		Validate: func(int) error { return errors.New("bad shape") },
	}, func(context.Context, int) (int, error) { return 0, nil })

	require.NotNil(t, report.Items[0].Err)
	assert.Equal(t, failure.ValidationError, report.Items[0].Err.Kind)
	assert.Equal(t, "bad shape", report.Items[0].Err.Message)
}

func TestRun_UnclassifiedErrorsAreClassified(t *testing.T) {
	report := Run(context.Background(), []int{1}, Options[int]{}, func(context.Context, int) (int, error) {
		return 0, errors.New("Not allowed to send Apple events")
	})

	assert.Equal(t, failure.PermissionDenied, report.Items[0].Err.Kind)
}

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    []string
		wantErr bool
	}{
		{name: "single string", input: "Work", want: []string{"Work"}},
		{name: "array of strings", input: []interface{}{"Work", "Home"}, want: []string{"Work", "Home"}},
		{name: "typed string slice", input: []string{"Work"}, want: []string{"Work"}},
		{name: "JSON string array", input: `["Work", "Home, Family"]`, want: []string{"Work", "Home, Family"}},
		{name: "string starting with bracket (not JSON)", input: `[Archive] 2024`, want: []string{`[Archive] 2024`}},
		{name: "invalid JSON string", input: `[invalid json`, want: []string{`[invalid json`}},
		{name: "nil input", input: nil, wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "empty array", input: []interface{}{}, wantErr: true},
		{name: "JSON string empty array", input: `[]`, wantErr: true},
		{name: "array with non-string", input: []interface{}{"Work", 123}, wantErr: true},
		{name: "array with empty string", input: []interface{}{"Work", ""}, wantErr: true},
		{name: "invalid type", input: 123, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.input, "calendars")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, failure.IsKind(err, failure.ValidationError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
