// Package batch runs independent sub-operations and aggregates their outcomes.
//
// Run drives a batch where every item is reported: one item's failure never
// aborts its siblings, results keep input order, and the success and failure
// counts are derived from the items so they always add up.
//
// FanOut issues one sub-operation per target and merges the results. Failed
// targets are skipped by default, so one inaccessible calendar never blanks
// a search; the merged result is capped and reaching the cap cancels the
// targets still pending.
//
// ParseStringOrArray handles parameters that accept a single value, an
// array, or an array encoded as a JSON string.
package batch
