// Package cstring moves Go strings onto the C heap as NUL-terminated buffers
// and takes them back.
//
// This is the native core of the boundary. New copies a string into a buffer
// obtained from C malloc and hands the caller a Handle; Free returns that
// buffer to C free. Buffers are always created and destroyed by the same
// allocator, so a foreign caller may hold a Handle as a plain char pointer
// and release it through this package from any thread.
//
// # Ownership
//
// A Handle is in exactly one of three states:
//
//	null      the zero Handle, safe to Free any number of times
//	live      returned by New, not yet freed
//	released  passed to Free; must never be read or freed again
//
// The package keeps no registry of live handles and performs no validation.
// Freeing a released or foreign handle is undefined behaviour. Use
// checked.Table when misuse must be detected.
//
// # Allocation failure
//
// New never returns the null handle. If malloc fails the cgo runtime aborts
// the process; there is no recoverable error a foreign caller could confuse
// with an empty string.
//
// # Concurrency
//
// New and Free share no state. Distinct handles may be allocated and freed
// concurrently without coordination. A single handle must not be freed by one
// goroutine while another reads or frees it.
package cstring
