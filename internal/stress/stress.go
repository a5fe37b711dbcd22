// Package stress drives a boundary backend with many strings across
// goroutines and verifies that every handle comes back exactly once.
package stress

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wippyai/boundary"
	"github.com/wippyai/boundary/checked"
)

// Config holds configuration for a run
type Config struct {
	// Progress, when set, is incremented once per released string.
	Progress *atomic.Int64

	// Strings is the total number of strings allocated. 0 is a valid run.
	Strings int

	// Workers is the number of goroutines. 0 means GOMAXPROCS.
	// Each worker owns a disjoint slice of the strings.
	Workers int

	// Size is the maximum payload length in runes. String i carries
	// i % (Size+1) runes, so every run with Strings > 0 includes "".
	Size int

	// Batch is how many handles a worker keeps live before releasing them.
	// 0 means 16.
	Batch int
}

// Report summarises a finished run
type Report struct {
	Strings    int           `json:"strings"`
	Workers    int           `json:"workers"`
	Allocated  uint64        `json:"allocated"`
	Released   uint64        `json:"released"`
	Rejected   uint64        `json:"rejected"`
	Live       int           `json:"live"`
	Bytes      uint64        `json:"bytes"`
	Mismatches int64         `json:"mismatches"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// OK reports whether every handle was released exactly once and every
// read matched what was written.
func (r Report) OK() bool {
	return r.Live == 0 && r.Rejected == 0 && r.Mismatches == 0 &&
		r.Allocated == uint64(r.Strings) && r.Released == r.Allocated
}

var alphabet = []rune{'a', 'ż', '日', '🦀', 'Z', 'ü'}

// Payload returns the deterministic string used for index i.
func Payload(i, size int) string {
	n := i % (size + 1)
	var b strings.Builder
	for j := range n {
		b.WriteRune(alphabet[(i+j)%len(alphabet)])
	}
	return b.String()
}

// Run allocates cfg.Strings strings through b, reads each back and releases
// each once. Handles are tracked by a checked.Table so leaks, double frees
// and foreign handles show up in the report.
func Run[H comparable](ctx context.Context, b boundary.Boundary[H], cfg Config) (Report, error) {
	if cfg.Strings < 0 {
		return Report{}, fmt.Errorf("strings must be >= 0, got %d", cfg.Strings)
	}
	if cfg.Size < 0 {
		return Report{}, fmt.Errorf("size must be >= 0, got %d", cfg.Size)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = max(min(workers, cfg.Strings), 1)
	batch := cfg.Batch
	if batch <= 0 {
		batch = 16
	}

	table := checked.New(b)
	var bytes atomic.Uint64
	var mismatches atomic.Int64

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	per := (cfg.Strings + workers - 1) / workers
	for w := range workers {
		lo, hi := w*per, min((w+1)*per, cfg.Strings)
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			return work(gctx, table, cfg, lo, hi, batch, &bytes, &mismatches)
		})
	}
	runErr := g.Wait()
	elapsed := time.Since(start)

	stats := table.Stats()
	report := Report{
		Strings:    cfg.Strings,
		Workers:    workers,
		Allocated:  stats.Allocated,
		Released:   stats.Released,
		Rejected:   stats.Rejected,
		Live:       stats.Live,
		Bytes:      bytes.Load(),
		Mismatches: mismatches.Load(),
		Elapsed:    elapsed,
	}

	// reclaim whatever a failed worker left behind
	if closeErr := table.Close(ctx); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	return report, runErr
}

func work[H comparable](ctx context.Context, table *checked.Table[H], cfg Config, lo, hi, batch int, bytes *atomic.Uint64, mismatches *atomic.Int64) error {
	type entry struct {
		handle H
		want   string
	}
	live := make([]entry, 0, batch)

	release := func() error {
		// newest first, so frees interleave with other workers' allocations
		for i := len(live) - 1; i >= 0; i-- {
			e := live[i]
			got, err := table.Read(ctx, e.handle)
			if err != nil {
				return err
			}
			if got != e.want {
				mismatches.Add(1)
			}
			if err := table.Free(ctx, e.handle); err != nil {
				return err
			}
			if cfg.Progress != nil {
				cfg.Progress.Add(1)
			}
		}
		live = live[:0]
		return nil
	}

	for i := lo; i < hi; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := Payload(i, cfg.Size)
		h, err := table.Alloc(ctx, s)
		if err != nil {
			return err
		}
		bytes.Add(uint64(len(s)) + 1)
		live = append(live, entry{handle: h, want: s})
		if len(live) == batch {
			if err := release(); err != nil {
				return err
			}
		}
	}
	return release()
}
