// Package runner executes many independent script instances concurrently,
// bounded by a fixed capacity, so a host can fan a batch of symbols (each
// its own driver.Script over its own bar stream) across a worker budget
// without oversubscribing goroutines.
//
// Grounded on the teacher's internal/concurrency.WorkerPool shape (a
// pool identity, job submission, result collection, metrics), rewritten
// on top of golang.org/x/sync/semaphore.Weighted instead of the
// teacher's hand-rolled channel-of-workers bookkeeping: one script run
// is one semaphore-gated goroutine rather than a job handed to a fixed
// worker, which fits bursty per-symbol workloads better than a fixed
// worker-per-slot pool.
package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"pine/internal/pine/check"
	"pine/internal/pine/driver"
	"pine/internal/pine/value"
)

// Job is one script run request: a checked program, its bar stream, and
// optional pre-bound input values.
type Job struct {
	ID     string
	Prog   *check.Program
	Bars   []driver.Bar
	Inputs []value.Value
}

// Result is one job's outcome.
type Result struct {
	JobID    string
	Script   *driver.Script
	Err      error
	Duration time.Duration
}

// Pool runs Jobs with bounded concurrency.
type Pool struct {
	sem *semaphore.Weighted

	completed int64
	failed    int64
}

// New creates a pool that runs at most capacity scripts at once.
func New(capacity int64) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{sem: semaphore.NewWeighted(capacity)}
}

// Run submits jobs and returns their results once every job has
// finished (or ctx is cancelled). Results are in submission order:
// results[i] belongs to jobs[i], and Result.JobID repeats the job's id.
func (p *Pool) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	var wg sync.WaitGroup

	for i, j := range jobs {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; record the remaining jobs as failed with
			// the cancellation error rather than leaving them zero-valued.
			for k := i; k < len(jobs); k++ {
				results[k] = Result{JobID: jobs[k].ID, Err: err}
			}
			break
		}
		wg.Add(1)
		go func(i int, j Job) {
			defer wg.Done()
			defer p.sem.Release(1)
			results[i] = p.runOne(j)
		}(i, j)
	}
	wg.Wait()
	return results, nil
}

func (p *Pool) runOne(j Job) Result {
	start := time.Now()
	s, err := driver.Run(j.Prog, j.Bars, j.Inputs)
	dur := time.Since(start)
	if err != nil {
		atomic.AddInt64(&p.failed, 1)
	} else {
		atomic.AddInt64(&p.completed, 1)
	}
	return Result{JobID: j.ID, Script: s, Err: err, Duration: dur}
}

// Stats is a point-in-time snapshot of completed/failed run counts.
type Stats struct {
	Completed int64
	Failed    int64
}

func (p *Pool) Stats() Stats {
	return Stats{
		Completed: atomic.LoadInt64(&p.completed),
		Failed:    atomic.LoadInt64(&p.failed),
	}
}
