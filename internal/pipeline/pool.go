package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Pool runs building tasks on a bounded number of goroutines.
type Pool struct {
	workers int
}

// NewPool creates a pool. workers <= 0 selects runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int {
	return p.workers
}

// Run executes task once per building and returns the results in building
// order. onResult, when non-nil, is called from the worker goroutine as each
// task finishes and must be safe for concurrent use.
//
// Buildings not yet started when ctx is cancelled are reported as failed with
// the context error. A panicking task is reported as failed.
func (p *Pool) Run(ctx context.Context, stage Stage, buildings []string, task Task, onResult func(Result)) []Result {
	results := make([]Result, len(buildings))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	report := func(i int, r Result) {
		results[i] = r
		if onResult != nil {
			onResult(r)
		}
	}

	for i, building := range buildings {
		if err := ctx.Err(); err != nil {
			report(i, Result{Building: building, Stage: stage, Status: StatusFailed, Err: err})
			continue
		}
		select {
		case <-ctx.Done():
			report(i, Result{Building: building, Stage: stage, Status: StatusFailed, Err: ctx.Err()})
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, building string) {
			defer wg.Done()
			defer func() { <-sem }()
			report(i, runTask(ctx, stage, building, task))
		}(i, building)
	}

	wg.Wait()
	return results
}

func runTask(ctx context.Context, stage Stage, building string, task Task) (r Result) {
	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			r = Result{
				Building: building,
				Stage:    stage,
				Status:   StatusFailed,
				Elapsed:  time.Since(start),
				Err:      fmt.Errorf("panic: %v", v),
			}
		}
	}()
	return task(ctx, building)
}

// Summary counts results by status.
type Summary struct {
	Done    int
	Skipped int
	Failed  int
	Sensors int
}

// Summarize counts results by status and sums the surfaces written.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusDone:
			s.Done++
			s.Sensors += r.Sensors
		case StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}
