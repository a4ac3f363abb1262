// Package concurrent runs independent work items on a bounded number of goroutines.
package concurrent

import (
	"context"
	"sync"
)

// DefaultConcurrency is used when a non-positive limit is requested.
const DefaultConcurrency = 10

// ParallelMap executes fn on each item in parallel and returns the results in
// input order. Items still waiting for a slot when ctx is done are skipped and
// report ctx.Err() in their position of errs.
func ParallelMap[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error), maxConcurrency int) (results []R, errs []error) {
	if len(items) == 0 {
		return nil, nil
	}

	if maxConcurrency <= 0 {
		maxConcurrency = DefaultConcurrency
	}
	if maxConcurrency > len(items) {
		maxConcurrency = len(items)
	}

	results = make([]R, len(items))
	errs = make([]error, len(items))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrency)

	for i, item := range items {
		wg.Add(1)
		go func(idx int, val T) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			case sem <- struct{}{}:
				defer func() { <-sem }()
				results[idx], errs[idx] = fn(ctx, val)
			}
		}(i, item)
	}

	wg.Wait()
	return results, errs
}

// FirstError returns the first non-nil error in errs.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
