package checked

import "go.uber.org/zap"

// EventType identifies a handle lifecycle transition.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventReleased
	EventRejected
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventReleased:
		return "released"
	case EventRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Event describes one transition observed by a Table.
// Err is set for EventRejected and for releases the backend failed.
type Event[H comparable] struct {
	Handle H
	Err    error
	Type   EventType
}

// Observer receives lifecycle events. Calls happen after the table lock is
// released, on the goroutine that performed the operation.
type Observer[H comparable] interface {
	OnHandleEvent(e Event[H])
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc[H comparable] func(e Event[H])

// OnHandleEvent calls f(e).
func (f ObserverFunc[H]) OnHandleEvent(e Event[H]) {
	f(e)
}

// LogObserver returns an observer writing every event to l.
// Rejections are logged at warn level, everything else at debug.
func LogObserver[H comparable](l *zap.Logger) Observer[H] {
	return ObserverFunc[H](func(e Event[H]) {
		fields := []zap.Field{
			zap.Stringer("event", e.Type),
			zap.Any("handle", e.Handle),
		}
		if e.Err != nil {
			fields = append(fields, zap.Error(e.Err))
		}
		if e.Type == EventRejected {
			l.Warn("boundary handle rejected", fields...)
			return
		}
		l.Debug("boundary handle", fields...)
	})
}

// Stats is a snapshot of a table's counters.
type Stats struct {
	Allocated uint64
	Released  uint64
	Rejected  uint64
	Live      int
}

// Config tunes a Table. The zero value is usable.
type Config struct {
	// Tombstones bounds how many released handles are remembered for
	// double-free detection. Older entries are forgotten first; freeing a
	// forgotten handle reports a foreign handle instead of a double free.
	// 0 means DefaultTombstones, negative disables tombstones.
	Tombstones int
}

// DefaultTombstones is the tombstone capacity used when Config.Tombstones is 0.
const DefaultTombstones = 4096
