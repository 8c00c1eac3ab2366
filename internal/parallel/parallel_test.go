package parallel

import (
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}

	n := 37
	seen := make([]int32, n)
	For(n, func(i int) {
		atomic.AddInt32(&seen[i], 1)
	}, cfg)

	for i, v := range seen {
		if v != 1 {
			t.Errorf("job %d ran %d times, want 1", i, v)
		}
	}
}

func TestFor_BoundedWorkers(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1}

	var running, peak int64
	For(30, func(_ int) {
		cur := atomic.AddInt64(&running, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		atomic.AddInt64(&running, -1)
	}, cfg)

	if peak > 3 {
		t.Errorf("peak concurrency %d exceeds 3 workers", peak)
	}
}

func TestForBatch(t *testing.T) {
	cfg := DefaultConfig()

	checks, trials := 4, 8
	results := make([][]bool, checks)
	for c := range results {
		results[c] = make([]bool, trials)
	}

	ForBatch(checks, trials, func(c, tr int) {
		results[c][tr] = true
	}, cfg)

	for c := 0; c < checks; c++ {
		for tr := 0; tr < trials; tr++ {
			if !results[c][tr] {
				t.Errorf("Missing result at [%d][%d]", c, tr)
			}
		}
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := DefaultConfig().WithWorkers(1)
	if cfg.Enabled {
		t.Fatal("WithWorkers(1) should disable parallelism")
	}

	// Sequential execution preserves order.
	var order []int
	For(10, func(i int) {
		order = append(order, i)
	}, cfg)

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestFor_Empty(t *testing.T) {
	called := false
	For(0, func(_ int) { called = true }, DefaultConfig())
	ForBatch(3, 0, func(_, _ int) { called = true }, DefaultConfig())
	if called {
		t.Error("no jobs should run")
	}
}

func TestFor_PanicPropagates(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}

	var completed int64
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic from For")
		}
		// Chunks of 4: the panicking chunk stops at job 5, the others finish.
		if got := atomic.LoadInt64(&completed); got != 13 {
			t.Errorf("%d jobs completed, want 13", got)
		}
	}()

	For(16, func(i int) {
		if i == 5 {
			panic("boom")
		}
		atomic.AddInt64(&completed, 1)
	}, cfg)
}

func BenchmarkFor(b *testing.B) {
	work := func(_ int) {
		s := 0.0
		for k := 0; k < 1000; k++ {
			s += float64(k)
		}
		_ = s
	}

	b.Run("parallel", func(b *testing.B) {
		cfg := DefaultConfig()
		for i := 0; i < b.N; i++ {
			For(256, work, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfg := Config{Enabled: false}
		for i := 0; i < b.N; i++ {
			For(256, work, cfg)
		}
	})
}
