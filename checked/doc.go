// Package checked wraps a boundary backend with a live-handle registry that
// turns protocol violations into errors.
//
// The native core keeps no registry, so a double free or a foreign pointer is
// undefined behaviour there. Table trades a mutex per call for detection:
//
//	table := checked.New[cstring.Handle](cstring.Heap{})
//	h, _ := table.Alloc(ctx, "foo")
//	_ = table.Free(ctx, h)          // ok
//	err := table.Free(ctx, h)       // errors.ErrDoubleFree, backend untouched
//	err = table.Free(ctx, other)    // errors.ErrForeignHandle
//
// Released handles are remembered as tombstones, bounded by
// Config.Tombstones, so a second release can be told apart from a handle the
// table never saw. When the backend reuses an address the tombstone is
// cleared and the handle is live again.
//
// Observers receive allocation, release and rejection events. LogObserver
// writes them to a zap logger.
package checked
