package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

// DecodeArgs decodes the tool arguments into dst, which must be a pointer
// to a struct with json tags. Unknown argument names and values of the wrong
// type are a ValidationError.
func DecodeArgs(request mcp.CallToolRequest, dst any) error {
	args := request.GetArguments()
	if args == nil {
		args = map[string]any{}
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return failure.Validationf("arguments", "arguments are not valid JSON: %v", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return argumentError(err)
	}
	return nil
}

func argumentError(err error) *failure.Error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return failure.Validationf(typeErr.Field, "Invalid type for parameter %s: expected %s, got %s",
			typeErr.Field, typeErr.Type.String(), typeErr.Value)
	}

	// encoding/json reports unknown fields as: json: unknown field "name"
	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		name = strings.Trim(name, `"`)
		return failure.Validationf(name, "Unknown parameter: %s", name)
	}
	return failure.Validationf("arguments", "Invalid arguments: %v", err)
}
