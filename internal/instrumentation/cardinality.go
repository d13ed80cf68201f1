package instrumentation

import (
	"github.com/teemow/macos-calendar-mcp/internal/applescript"
	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

// Cardinality management helpers for metrics.
// Label values that reach a metric must come from a closed set; anything
// else is folded into LabelOther so a bad caller cannot grow the series count.

// LabelOther replaces label values outside the known set.
const LabelOther = "other"

var (
	knownOperations = toSet(applescript.Operations())
	knownKinds      = toSet(kindStrings())
)

func kindStrings() []string {
	kinds := failure.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// OperationLabel returns op if it is a known script operation, LabelOther otherwise.
//
// Example:
//
//	OperationLabel("list_today")    // "list_today"
//	OperationLabel("drop_database") // "other"
func OperationLabel(op string) string {
	if _, ok := knownOperations[op]; ok {
		return op
	}
	return LabelOther
}

// KindLabel returns kind if it is a known failure kind, LabelOther otherwise.
func KindLabel(kind string) string {
	if _, ok := knownKinds[kind]; ok {
		return kind
	}
	return LabelOther
}
