package calendar_tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
	"github.com/teemow/macos-calendar-mcp/internal/i18n"
	"github.com/teemow/macos-calendar-mcp/internal/tools/batch"
	"github.com/teemow/macos-calendar-mcp/internal/tools/common"
)

// errorFields renders a failure as {error, suggestion?, <kind>: true}.
func errorFields(fe *failure.Error, t *i18n.Translator) map[string]any {
	fields := map[string]any{
		"error":          fe.Error(),
		fe.Kind.String(): true,
	}
	if s := fe.Suggestion(t); s != "" {
		fields["suggestion"] = s
	}
	return fields
}

// errorResult records err on the running invocation and returns it as an
// error tool result.
func errorResult(ctx context.Context, err error, t *i18n.Translator) *mcp.CallToolResult {
	common.RecordFailure(ctx, err)

	body, marshalErr := json.Marshal(errorFields(failure.From(err), t))
	if marshalErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(body))
}

// jsonResult returns v as JSON text content.
func jsonResult(ctx context.Context, v any, t *i18n.Translator) *mcp.CallToolResult {
	body, err := json.Marshal(v)
	if err != nil {
		return errorResult(ctx, failure.New(failure.Unknown, "failed to encode result: "+err.Error()), t)
	}
	return mcp.NewToolResultText(string(body))
}

// batchResponse is the reply of a batch tool.
type batchResponse struct {
	batch.Summary
	Results []map[string]any `json:"results"`
}

// formatReport renders a batch report. describe adds the item's input
// fields; payload adds the fields of a successful item.
func formatReport[T, R any](report batch.Report[T, R], t *i18n.Translator, describe func(T) map[string]any, payload func(R) map[string]any) batchResponse {
	resp := batchResponse{
		Summary: report.Summary(),
		Results: make([]map[string]any, 0, len(report.Items)),
	}

	for _, item := range report.Items {
		entry := describe(item.Input)
		entry["index"] = item.Index
		entry["success"] = item.OK()
		if item.OK() {
			for k, v := range payload(item.Payload) {
				entry[k] = v
			}
		} else {
			for k, v := range errorFields(item.Err, t) {
				entry[k] = v
			}
		}
		resp.Results = append(resp.Results, entry)
	}
	return resp
}
