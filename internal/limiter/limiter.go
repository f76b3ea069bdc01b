// Package limiter executes a batch of tasks with bounded parallelism while
// preserving input order in the output. Analyzer invocations are network
// calls with quota limits, so throughput needs a ceiling, but callers still
// match results to resources by position.
package limiter

import (
	"context"
	"sync"
)

// Outcome is one task's result-or-error value. A failed task never cancels
// its siblings.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Task is a single unit of work.
type Task[T any] func(ctx context.Context) (T, error)

// Run executes tasks with at most maxConcurrency in flight; once one
// finishes the next queued task starts. The returned slice is positionally
// aligned with tasks regardless of completion order.
func Run[T any](ctx context.Context, tasks []Task[T], maxConcurrency int) []Outcome[T] {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	results := make([]Outcome[T], len(tasks))
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, task Task[T]) {
			defer wg.Done()
			defer func() { <-sem }()
			v, err := task(ctx)
			results[i] = Outcome[T]{Value: v, Err: err}
		}(i, task)
	}
	wg.Wait()
	return results
}
