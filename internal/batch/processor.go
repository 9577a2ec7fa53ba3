package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"sofa-scene-importer/internal/config"
	"sofa-scene-importer/internal/descriptor"
	"sofa-scene-importer/internal/monitor"
)

// Job is one trajectory file to parse for one object.
type Job struct {
	Name string // object name, unique per run
	Path string
	Kind descriptor.Kind
}

// ParseFunc parses one trajectory file. It must not touch shared state.
type ParseFunc func(path string, kind descriptor.Kind, opts monitor.Options) (monitor.Trajectory, error)

// Config holds the loader settings for a run.
type Config struct {
	Workers   int
	Frequency int
	Parse     ParseFunc     // nil means monitor.Parse
	Progress  time.Duration // progress log interval, 0 means 2s
}

// Result holds the outcome of parsing one file.
type Result struct {
	Name       string
	Path       string
	Trajectory monitor.Trajectory
	Err        error
	Elapsed    time.Duration
}

// Run parses every job on a fixed pool of cfg.Workers goroutines and waits
// for all of them. The returned map has one entry per job; a failed parse is
// recorded in its Result and never stops the others.
//
// Workers <= 0 and duplicate job names are rejected with a *config.Error
// before anything is parsed. Once ctx is cancelled no queued job is started;
// running parses finish and ctx.Err() is returned without results.
func Run(ctx context.Context, cfg Config, jobs []Job) (map[string]Result, error) {
	if cfg.Workers <= 0 {
		return nil, config.Invalid("options", "workers", "must be at least 1, got %d", cfg.Workers)
	}
	seen := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		if seen[j.Name] {
			return nil, config.Invalid("options", "jobs", "duplicate object name %q", j.Name)
		}
		seen[j.Name] = true
	}

	parse := cfg.Parse
	if parse == nil {
		parse = monitor.Parse
	}
	opts := monitor.Options{Frequency: cfg.Frequency}

	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go reportProgress(ctx, done, &processed, total, start, cfg.Progress)

	// Worker pool
	workers := min(cfg.Workers, max(total, 1))
	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				// Queued jobs are drained, not started, once ctx is done.
				if ctx.Err() != nil {
					continue
				}
				results[idx] = parseJob(ctx, parse, opts, jobs[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
dispatch:
	for i := range jobs {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobChan <- i:
		}
	}
	close(jobChan)

	wg.Wait()
	close(done)

	if err := ctx.Err(); err != nil {
		slog.WarnContext(ctx, "trajectory loading aborted", "parsed", processed.Load(), "total", total, "err", err)
		return nil, err
	}

	out := make(map[string]Result, total)
	failed := 0
	for _, r := range results {
		out[r.Name] = r
		if r.Err != nil {
			failed++
		}
	}
	slog.InfoContext(ctx, "trajectories loaded",
		"total", total, "failed", failed, "workers", workers, "elapsed", time.Since(start).Round(time.Millisecond))
	return out, nil
}

func parseJob(ctx context.Context, parse ParseFunc, opts monitor.Options, job Job) Result {
	start := time.Now()
	traj, err := parse(job.Path, job.Kind, opts)
	r := Result{
		Name:       job.Name,
		Path:       job.Path,
		Trajectory: traj,
		Err:        err,
		Elapsed:    time.Since(start),
	}
	if err != nil {
		r.Trajectory = nil
		slog.DebugContext(ctx, "trajectory failed", "object", job.Name, "path", job.Path, "err", err)
	} else {
		slog.DebugContext(ctx, "trajectory parsed", "object", job.Name, "kind", traj.Kind(), "frames", traj.Len())
	}
	return r
}

func reportProgress(ctx context.Context, done <-chan struct{}, processed *atomic.Int64, total int, start time.Time, every time.Duration) {
	if every <= 0 {
		every = 2 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p := processed.Load()
			if p > 0 {
				elapsed := time.Since(start).Seconds()
				slog.InfoContext(ctx, "parsing trajectories",
					"progress", fmt.Sprintf("%d/%d", p, total),
					"rate", fmt.Sprintf("%.1f files/sec", float64(p)/elapsed))
			}
		}
	}
}
