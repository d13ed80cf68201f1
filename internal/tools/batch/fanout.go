package batch

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

// DefaultFanOutLimit caps the merged result of a fan-out.
const DefaultFanOutLimit = 50

// FanOutOptions configures FanOut.
type FanOutOptions struct {
	// Concurrency bounds the targets in flight. Values below 1 mean 1.
	Concurrency int

	// Limit caps the merged result. Zero selects DefaultFanOutLimit.
	Limit int

	// ReportFailures lists failed targets in the result instead of only
	// counting them.
	ReportFailures bool
}

// TargetFailure records a target whose sub-operation failed.
type TargetFailure[T any] struct {
	Target T
	Err    *failure.Error
}

// FanOutResult is the merged outcome of a fan-out.
type FanOutResult[T, R any] struct {
	// Results in target order, then in per-target order, at most Limit long.
	Results []R

	// Skipped counts targets whose sub-operation failed.
	Skipped int

	// Failures lists the failed targets when ReportFailures is set.
	Failures []TargetFailure[T]

	// Truncated is set when results were dropped at the cap or targets
	// were cancelled because of it.
	Truncated bool
}

// stoppedByCap reports whether err is the cancellation FanOut caused once
// the cap was reached. Any other failure still counts against the target.
func stoppedByCap(err error) bool {
	return errors.Is(err, context.Canceled) || failure.IsKind(err, failure.Timeout)
}

// FanOut calls perTarget for every target with bounded concurrency and
// merges the results. Once Limit results are collected the remaining
// targets are cancelled; those not yet started are skipped and do not count
// as failures. A failed target,
// timeouts included, is excluded from the results and never fails the
// fan-out as a whole.
func FanOut[T, R any](ctx context.Context, targets []T, opts FanOutOptions, perTarget func(context.Context, T) ([]R, error)) FanOutResult[T, R] {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultFanOutLimit
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu        sync.Mutex
		collected int
		capped    bool
		cut       bool
		perResult = make([][]R, len(targets))
		errs      = make([]error, len(targets))
	)

	var g errgroup.Group
	g.SetLimit(max(1, opts.Concurrency))

	for i, target := range targets {
		g.Go(func() error {
			mu.Lock()
			if capped {
				cut = true
				mu.Unlock()
				return nil
			}
			mu.Unlock()

			if err := ctx.Err(); err != nil {
				mu.Lock()
				if capped {
					cut = true
				} else {
					errs[i] = err
				}
				mu.Unlock()
				return nil
			}

			results, err := perTarget(ctx, target)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if capped && stoppedByCap(err) {
					cut = true
					return nil
				}
				errs[i] = err
				return nil
			}

			perResult[i] = results
			collected += len(results)
			if collected >= limit && !capped {
				capped = true
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	out := FanOutResult[T, R]{Results: []R{}}
	for i, results := range perResult {
		if errs[i] != nil {
			out.Skipped++
			if opts.ReportFailures {
				out.Failures = append(out.Failures, TargetFailure[T]{Target: targets[i], Err: failure.From(errs[i])})
			}
			continue
		}
		out.Results = append(out.Results, results...)
	}

	if len(out.Results) > limit {
		out.Results = out.Results[:limit]
		cut = true
	}
	out.Truncated = cut
	return out
}
