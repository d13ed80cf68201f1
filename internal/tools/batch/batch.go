package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

// ItemResult is the outcome of one batch item. Err is nil on success.
type ItemResult[T, R any] struct {
	Index   int
	Input   T
	Payload R
	Err     *failure.Error
}

// OK reports whether the item succeeded.
func (r ItemResult[T, R]) OK() bool {
	return r.Err == nil
}

// Summary holds the counters of a batch report.
type Summary struct {
	SuccessCount int `json:"successCount"`
	FailCount    int `json:"failCount"`
	Total        int `json:"total"`
}

// Report holds one ItemResult per input, in input order.
type Report[T, R any] struct {
	Items []ItemResult[T, R]
}

// SuccessCount returns the number of items that succeeded.
func (r Report[T, R]) SuccessCount() int {
	n := 0
	for _, item := range r.Items {
		if item.OK() {
			n++
		}
	}
	return n
}

// FailCount returns the number of items that failed.
func (r Report[T, R]) FailCount() int {
	return len(r.Items) - r.SuccessCount()
}

// Total returns the number of items.
func (r Report[T, R]) Total() int {
	return len(r.Items)
}

// Summary returns the report's counters.
func (r Report[T, R]) Summary() Summary {
	return Summary{
		SuccessCount: r.SuccessCount(),
		FailCount:    r.FailCount(),
		Total:        r.Total(),
	}
}

// Options configures Run.
type Options[T any] struct {
	// Concurrency bounds the items in flight. Values below 1 mean 1.
	Concurrency int

	// Validate, when set, rejects malformed items before any of them runs.
	// A rejected item is recorded as a ValidationError.
	Validate func(T) error
}

// Run calls perItem for every item and collects the outcomes. Failures never
// stop the batch: each item is attempted and recorded, and the report is
// returned only once every item has finished. Errors that are not a
// *failure.Error are classified by their message.
func Run[T, R any](ctx context.Context, items []T, opts Options[T], perItem func(context.Context, T) (R, error)) Report[T, R] {
	results := make([]ItemResult[T, R], len(items))
	pending := make([]int, 0, len(items))

	for i, item := range items {
		results[i] = ItemResult[T, R]{Index: i, Input: item}
		if opts.Validate != nil {
			if err := opts.Validate(item); err != nil {
				results[i].Err = asValidation(err)
				continue
			}
		}
		pending = append(pending, i)
	}

	// A plain Group: one item's error must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(max(1, opts.Concurrency))

	for _, i := range pending {
		g.Go(func() error {
			payload, err := perItem(ctx, items[i])
			if err != nil {
				results[i].Err = failure.From(err)
				return nil
			}
			results[i].Payload = payload
			return nil
		})
	}
	_ = g.Wait()

	return Report[T, R]{Items: results}
}

func asValidation(err error) *failure.Error {
	if fe, ok := failure.As(err); ok {
		return fe
	}
	return &failure.Error{Kind: failure.ValidationError, Message: err.Error(), Err: err}
}
