package batch

import (
	"encoding/json"
	"strings"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

// ParseStringOrArray parses a parameter that can be either a single string,
// an array of strings, or a JSON-encoded array of strings. Some clients send
// arrays as JSON text, so a string that decodes as a string array is
// treated as one.
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, failure.Missing(paramName)
	}

	var result []string

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, failure.Validationf(paramName, "%s cannot be empty", paramName)
		}
		if decoded, ok := decodeJSONArray(v); ok {
			return checkItems(decoded, paramName)
		}
		result = []string{v}
	case []string:
		return checkItems(v, paramName)
	case []interface{}:
		items := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, failure.Validationf(paramName, "%s[%d] must be a string", paramName, i)
			}
			items = append(items, str)
		}
		return checkItems(items, paramName)
	default:
		return nil, failure.Validationf(paramName, "%s must be a string or array of strings", paramName)
	}

	return result, nil
}

func decodeJSONArray(s string) ([]string, bool) {
	if !strings.HasPrefix(strings.TrimSpace(s), "[") {
		return nil, false
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, false
	}
	return items, true
}

func checkItems(items []string, paramName string) ([]string, error) {
	if len(items) == 0 {
		return nil, failure.Validationf(paramName, "%s cannot be empty", paramName)
	}
	for i, item := range items {
		if item == "" {
			return nil, failure.Validationf(paramName, "%s[%d] cannot be empty", paramName, i)
		}
	}
	return items, nil
}
