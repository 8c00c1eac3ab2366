// Package parallel runs independent, index-addressed jobs on a bounded number
// of goroutines.
package parallel

import (
	"fmt"
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Upper bound on concurrently running goroutines.
	MinChunkSize int  // Minimum jobs per goroutine.
}

// DefaultConfig uses one worker per CPU. Jobs are assumed to be coarse (a
// whole gradient check each), so chunks may be a single job.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1,
	}
}

// WithWorkers returns a copy of c capped at n workers. n <= 1 selects
// sequential execution.
func (c Config) WithWorkers(n int) Config {
	c.NumWorkers = n
	c.Enabled = n > 1
	return c
}

// For executes f(i) for i in [0, n). Jobs are split into at most NumWorkers
// contiguous chunks of at least MinChunkSize jobs each. It falls back to a
// plain loop when parallelism is disabled or n is too small.
//
// If any job panics, For waits for the remaining chunks and then re-panics
// in the calling goroutine with the first recovered value.
func For(n int, f func(i int), cfg Config) {
	if n <= 0 {
		return
	}
	workers := cfg.NumWorkers
	minChunk := max(cfg.MinChunkSize, 1)
	if !cfg.Enabled || workers <= 1 || n < 2*minChunk {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		panicVal any
	)
	chunkSize := max((n+workers-1)/workers, minChunk)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { panicVal = r })
				}
			}()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()

	if panicVal != nil {
		panic(fmt.Sprintf("parallel: job panicked: %v", panicVal))
	}
}

// ForBatch runs f over every (outer, inner) pair of an outer×inner grid,
// e.g. (check, trial) in a gradient-check suite.
func ForBatch(outer, inner int, f func(o, i int), cfg Config) {
	if inner <= 0 {
		return
	}
	For(outer*inner, func(k int) {
		f(k/inner, k%inner)
	}, cfg)
}
