// Package guest runs the boundary string protocol against a WebAssembly
// guest, with the guest's linear memory as the foreign side.
//
// The host allocates each string through the guest's own allocator export,
// writes the bytes and a NUL terminator, and hands the guest a 32-bit
// offset. Releasing goes back through the same allocator, so the guest never
// sees memory it did not create.
//
// # Allocator exports
//
// Bind looks for, in order:
//
//	cabi_realloc(ptr, old_size, align, new_size) -> ptr   canonical ABI
//	canonical_abi_realloc(...)                            legacy name
//	allocate(size[, align]) -> ptr                        two-function form
//	alloc(size[, align]) -> ptr
//
// and for a deallocator cabi_free, deallocate or free taking (ptr[, size[,
// align]]). A realloc-style guest without a deallocator is freed with
// new_size 0. Strings are allocated with alignment 1.
//
// Because a handle carries no length, Free recovers the block size by
// scanning to the NUL terminator. A string with an embedded NUL is therefore
// freed with its truncated size.
//
// # Errors
//
// Unlike the native core, a failing guest allocator is not fatal to the host:
// traps and zero pointers are returned as errors.KindAllocation. Handles
// outside linear memory or without a terminator are errors.KindOutOfBounds.
//
// # Thread Safety
//
// A Boundary is NOT safe for concurrent use. Each goroutine should bind its
// own module instance, or access must be synchronized externally.
package guest
