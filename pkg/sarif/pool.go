// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package sarif

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
)

// JobFunc runs one extraction job. ExtractProject is the production
// implementation; tests substitute their own.
type JobFunc func(ctx context.Context, spec JobSpec) JobResult

// Pool runs extraction jobs on a fixed number of workers.
type Pool struct {
	// Workers is the degree of parallelism. Values <= 0 use every CPU.
	Workers int

	// Run executes a single job. Defaults to ExtractProject.
	Run JobFunc

	// OnDone, when set, is called once per finished job from the collecting
	// goroutine, so it needs no locking.
	OnDone func(JobResult)

	Logger *slog.Logger
}

// NewPool creates a pool of the given size that runs ExtractProject.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{Workers: workers, Logger: logger}
	p.Run = func(ctx context.Context, spec JobSpec) JobResult {
		return ExtractProject(ctx, spec, p.Logger)
	}
	return p
}

// EffectiveWorkers resolves the configured worker count against the number
// of jobs.
func (p *Pool) EffectiveWorkers(jobs int) int {
	n := p.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > jobs {
		n = jobs
	}
	if n < 1 {
		n = 1
	}
	return n
}

// RunAll executes every spec and returns the results in input order.
//
// Jobs share no state; a failing job only produces its own Failed result.
// Cancelling ctx stops dispatch, and specs that never reached a worker are
// reported as Failed with the context error.
func (p *Pool) RunAll(ctx context.Context, specs []JobSpec) []JobResult {
	results := make([]JobResult, len(specs))
	if len(specs) == 0 {
		return results
	}

	run := p.Run
	if run == nil {
		run = func(ctx context.Context, spec JobSpec) JobResult {
			return ExtractProject(ctx, spec, p.Logger)
		}
	}

	type indexed struct {
		index  int
		result JobResult
	}

	jobs := make(chan int)
	resultsChan := make(chan indexed, len(specs))

	workers := p.EffectiveWorkers(len(specs))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				resultsChan <- indexed{index: i, result: safeRun(ctx, run, specs[i])}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range specs {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for r := range resultsChan {
		results[r.index] = r.result
		if p.OnDone != nil {
			p.OnDone(r.result)
		}
	}

	// All workers have exited, so the dispatcher has finished writing.
	for i, res := range results {
		if res == nil {
			msg := "not dispatched"
			if err := ctx.Err(); err != nil {
				msg = err.Error()
			}
			results[i] = Failed{Project: specs[i].Project, Message: msg}
		}
	}
	return results
}

// safeRun shields the pool from a JobFunc that panics.
func safeRun(ctx context.Context, run JobFunc, spec JobSpec) (res JobResult) {
	defer func() {
		if p := recover(); p != nil {
			res = Failed{Project: spec.Project, Message: "panic: " + toString(p)}
		}
	}()
	res = run(ctx, spec)
	if res == nil {
		res = Failed{Project: spec.Project, Message: "job returned no result"}
	}
	return res
}

func toString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}

// Tally counts results per status.
type Tally struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Skipped int `json:"skipped"`
	Error   int `json:"error"`
	Results int `json:"results"`
}

// Summarize tallies pool results. Results counts the findings extracted
// across successful jobs.
func Summarize(results []JobResult) Tally {
	t := Tally{Total: len(results)}
	for _, r := range results {
		switch v := r.(type) {
		case Success:
			t.Success++
			t.Results += v.Count
		case Skipped:
			t.Skipped++
		case Failed:
			t.Error++
		}
	}
	return t
}

// RunPool runs ExtractProject for every spec on a pool of the given size.
func RunPool(ctx context.Context, specs []JobSpec, workers int, onDone func(JobResult), logger *slog.Logger) []JobResult {
	p := NewPool(workers, logger)
	p.OnDone = onDone
	return p.RunAll(ctx, specs)
}
