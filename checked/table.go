package checked

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/boundary"
	"github.com/wippyai/boundary/errors"
)

// Table wraps a boundary backend with a registry of live handles.
//
// Every Free and Read is checked against the registry: the null handle is a
// no-op, a released handle is reported as a double free or use after free,
// and a handle the table never produced is reported as foreign. Rejected
// calls never reach the backend.
//
// Table is safe for concurrent use. Free and Read hold the table lock while
// the backend runs, so a handle cannot be released while it is being read.
type Table[H comparable] struct {
	backend   boundary.Boundary[H]
	live      map[H]struct{}
	tombs     map[H]uint64
	order     []tomb[H]
	observers []Observer[H]
	stats     Stats
	seq       uint64
	maxTombs  int
	head      int
	mu        sync.Mutex
	obsMu     sync.RWMutex
	closed    bool
}

type tomb[H comparable] struct {
	handle H
	seq    uint64
}

var _ boundary.Boundary[uint32] = (*Table[uint32])(nil)

// New creates a table over backend with default configuration.
func New[H comparable](backend boundary.Boundary[H]) *Table[H] {
	return NewWithConfig(backend, nil)
}

// NewWithConfig creates a table over backend.
func NewWithConfig[H comparable](backend boundary.Boundary[H], cfg *Config) *Table[H] {
	maxTombs := DefaultTombstones
	if cfg != nil && cfg.Tombstones != 0 {
		maxTombs = max(cfg.Tombstones, 0)
	}
	return &Table[H]{
		backend:  backend,
		live:     make(map[H]struct{}),
		tombs:    make(map[H]uint64),
		maxTombs: maxTombs,
	}
}

// Alloc allocates s through the backend and records the handle as live.
func (t *Table[H]) Alloc(ctx context.Context, s string) (H, error) {
	var zero H

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return zero, t.reject(zero, errors.Closed(errors.PhaseAlloc, "table"))
	}

	h, err := t.backend.Alloc(ctx, s)
	if err != nil {
		return zero, err
	}
	if h == zero {
		return zero, errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Detailf("backend returned the null handle for a %d byte string", len(s)).
			Build()
	}

	t.mu.Lock()
	if t.closed {
		// Close ran while the backend was allocating
		t.mu.Unlock()
		if ferr := t.backend.Free(ctx, h); ferr != nil {
			Logger().Warn("release after close failed", zap.Any("handle", h), zap.Error(ferr))
		}
		return zero, t.reject(zero, errors.Closed(errors.PhaseAlloc, "table"))
	}
	t.live[h] = struct{}{}
	// the backend reused a released address
	delete(t.tombs, h)
	t.stats.Allocated++
	t.mu.Unlock()

	t.notify(Event[H]{Type: EventAllocated, Handle: h})
	return h, nil
}

// Free releases a live handle through the backend. The null handle is a
// no-op. Released and unknown handles are rejected without touching the
// backend.
//
// If the backend fails the handle is still considered released; retrying
// could free memory the backend already reclaimed.
func (t *Table[H]) Free(ctx context.Context, h H) error {
	var zero H
	if h == zero {
		return nil
	}

	t.mu.Lock()
	if _, ok := t.live[h]; !ok {
		err := t.classify(errors.PhaseRelease, h)
		t.mu.Unlock()
		return t.reject(h, err)
	}
	delete(t.live, h)
	t.bury(h)
	t.stats.Released++
	err := t.backend.Free(ctx, h)
	t.mu.Unlock()

	t.notify(Event[H]{Type: EventReleased, Handle: h, Err: err})
	return err
}

// Read returns the contents of a live handle. Reading the null handle
// yields the empty string.
func (t *Table[H]) Read(ctx context.Context, h H) (string, error) {
	var zero H
	if h == zero {
		return "", nil
	}

	t.mu.Lock()
	if _, ok := t.live[h]; !ok {
		err := t.classify(errors.PhaseRead, h)
		t.mu.Unlock()
		return "", t.reject(h, err)
	}
	s, err := t.backend.Read(ctx, h)
	t.mu.Unlock()
	return s, err
}

// Live returns the number of handles allocated and not yet released.
func (t *Table[H]) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// IsLive reports whether h is currently live in this table.
func (t *Table[H]) IsLive(h H) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.live[h]
	return ok
}

// Stats returns a snapshot of the table counters.
func (t *Table[H]) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.Live = len(t.live)
	return s
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[H]) Subscribe(o Observer[H]) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Close releases every live handle and rejects further allocations.
// An Alloc still inside the backend when Close runs frees its handle and
// reports errors.KindClosed. Backend failures are collected and returned
// together and attached to each handle's EventReleased.
func (t *Table[H]) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	handles := make([]H, 0, len(t.live))
	for h := range t.live {
		handles = append(handles, h)
	}

	var errs error
	events := make([]Event[H], 0, len(handles))
	for _, h := range handles {
		delete(t.live, h)
		t.bury(h)
		t.stats.Released++
		err := t.backend.Free(ctx, h)
		errs = multierr.Append(errs, err)
		events = append(events, Event[H]{Type: EventReleased, Handle: h, Err: err})
	}
	t.mu.Unlock()

	if len(handles) > 0 {
		Logger().Debug("released outstanding handles on close", zap.Int("count", len(handles)))
	}
	for _, e := range events {
		t.notify(e)
	}
	return errs
}

// classify explains why h is not live. Caller holds t.mu.
func (t *Table[H]) classify(phase errors.Phase, h H) *errors.Error {
	if _, ok := t.tombs[h]; ok {
		if phase == errors.PhaseRelease {
			return errors.DoubleFree(h)
		}
		return errors.UseAfterFree(phase, h)
	}
	return errors.ForeignHandle(phase, h)
}

// bury remembers h as released, evicting the oldest tombstone when full.
// Caller holds t.mu.
func (t *Table[H]) bury(h H) {
	if t.maxTombs == 0 {
		return
	}
	t.seq++
	t.tombs[h] = t.seq
	entry := tomb[H]{handle: h, seq: t.seq}

	if len(t.order) < t.maxTombs {
		t.order = append(t.order, entry)
		return
	}

	old := t.order[t.head]
	if seq, ok := t.tombs[old.handle]; ok && seq == old.seq {
		delete(t.tombs, old.handle)
	}
	t.order[t.head] = entry
	t.head = (t.head + 1) % t.maxTombs
}

func (t *Table[H]) reject(h H, err *errors.Error) error {
	t.mu.Lock()
	t.stats.Rejected++
	t.mu.Unlock()

	Logger().Warn("boundary protocol violation",
		zap.String("kind", string(err.Kind)),
		zap.String("phase", string(err.Phase)),
		zap.Any("handle", h),
	)
	t.notify(Event[H]{Type: EventRejected, Handle: h, Err: err})
	return err
}

func (t *Table[H]) notify(e Event[H]) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}
