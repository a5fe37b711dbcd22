// Package boundary hands owned strings across a language boundary and takes
// them back.
//
// A string crosses the boundary as a NUL-terminated UTF-8 buffer. The
// allocator copies the Go string into memory owned by the foreign side's
// allocator and returns a raw handle; the foreign caller later passes that
// handle to the releaser, which returns the buffer to the same allocator.
//
// # Architecture Overview
//
//	boundary/             Root package with the Allocator, Releaser and Boundary interfaces
//	├── cstring/          Native core: C heap buffers via cgo
//	├── checked/          Opt-in handle table that detects double free and foreign handles
//	├── guest/            Same protocol against a WebAssembly guest's linear memory (wazero)
//	├── errors/           Structured error types
//	├── internal/stress/  Concurrent allocation-tracking harness
//	└── cmd/
//	    ├── libboundary/    c-shared entry points for C, Swift, JNI and friends
//	    └── boundarycheck/  CLI driving the harness
//
// # Protocol
//
// Callers receiving a handle must:
//
//  1. never free a handle not obtained from the matching allocator
//  2. free each non-null handle exactly once
//  3. never dereference a handle after freeing it
//  4. treat the buffer as immutable and NUL-terminated
//
// The null handle is always safe to release. Violations are undefined
// behaviour in the native core; wrap a backend in checked.Table to turn them
// into errors at the cost of a mutex per call.
//
// # Quick Start
//
//	h := cstring.New("foo")
//	defer cstring.Free(h)
//	fmt.Println(cstring.String(h)) // "foo"
//
// Through the interfaces, with misuse detection:
//
//	table := checked.New[cstring.Handle](cstring.Heap{})
//	h, _ := table.Alloc(ctx, "foo")
//	_ = table.Free(ctx, h)
//	err := table.Free(ctx, h) // errors.ErrDoubleFree
//
// # Embedded NUL bytes
//
// A handle carries no length other than its terminator. Strings containing
// NUL are copied verbatim but read back truncated at the first NUL.
package boundary
