package common

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

type sampleArgs struct {
	Calendar string `json:"calendar"`
	Confirm  bool   `json:"confirm"`
	Items    []struct {
		Title string `json:"title"`
	} `json:"items"`
}

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestDecodeArgs(t *testing.T) {
	var got sampleArgs
	err := DecodeArgs(request(map[string]any{
		"calendar": "Work",
		"confirm":  true,
		"items":    []any{map[string]any{"title": "Standup"}},
	}), &got)
	require.NoError(t, err)

	assert.Equal(t, "Work", got.Calendar)
	assert.True(t, got.Confirm)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Standup", got.Items[0].Title)
}

func TestDecodeArgs_NoArguments(t *testing.T) {
	var got sampleArgs
	require.NoError(t, DecodeArgs(mcp.CallToolRequest{}, &got))
	assert.Equal(t, sampleArgs{}, got)
}

func TestDecodeArgs_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"unknown parameter", map[string]any{"calender": "Work"}, "Unknown parameter: calender"},
		{"wrong type", map[string]any{"confirm": "yes"}, "Invalid type for parameter confirm"},
		{"wrong nested type", map[string]any{"items": []any{map[string]any{"title": 3}}}, "Invalid type"},
		{"unknown nested parameter", map[string]any{"items": []any{map[string]any{"name": "x"}}}, "Unknown parameter: name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got sampleArgs
			err := DecodeArgs(request(tt.args), &got)
			require.Error(t, err)
			assert.True(t, failure.IsKind(err, failure.ValidationError))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
