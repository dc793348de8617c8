// Package concurrency implements the bounded, staggered-launch execution
// model shared by the loop and parallel steps: a semaphore-gated task set
// with fail-fast cancellation.
package concurrency

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Launcher runs a fixed set of items with bounded concurrency, staggered
// launches, and fail-fast cancellation.
type Launcher struct {
	// MaxConcurrency bounds simultaneously in-flight items. 0 means
	// unbounded; 1 means strictly sequential.
	MaxConcurrency int
	// Delay staggers launches of concurrent items; it does not stall
	// between completions.
	Delay time.Duration
	// FailFast cancels peers on the first item error when true. When
	// false, every item runs to completion and all errors are returned.
	FailFast bool
}

// Result is the outcome of running one item through Run.
type Result struct {
	Index int
	Err   error
}

// Run launches fn(ctx, i) for i in [0, n), honoring MaxConcurrency, Delay,
// and FailFast, and returns one Result per index in index order (not
// completion order) once every item has finished or been skipped due to
// fail-fast cancellation.
func Run(ctx context.Context, n int, l Launcher, fn func(ctx context.Context, index int) error) []Result {
	results := make([]Result, n)
	if n == 0 {
		return results
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	limit := l.MaxConcurrency
	if limit <= 0 {
		limit = n
	}
	sem := semaphore.NewWeighted(int64(limit))

	var wg sync.WaitGroup
	var failOnce sync.Once
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		if runCtx.Err() != nil && l.FailFast {
			results[i] = Result{Index: i, Err: runCtx.Err()}
			continue
		}

		if err := sem.Acquire(runCtx, 1); err != nil {
			results[i] = Result{Index: i, Err: err}
			continue
		}

		if l.Delay > 0 && i > 0 {
			select {
			case <-time.After(l.Delay):
			case <-runCtx.Done():
			}
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer sem.Release(1)

			err := fn(runCtx, idx)

			mu.Lock()
			results[idx] = Result{Index: idx, Err: err}
			mu.Unlock()

			if err != nil && l.FailFast {
				failOnce.Do(cancel)
			}
		}(i)
	}

	wg.Wait()
	return results
}
