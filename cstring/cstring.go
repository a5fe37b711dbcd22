package cstring

/*
#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"context"
	"unsafe"

	"github.com/wippyai/boundary"
)

// Handle addresses a NUL-terminated buffer on the C heap.
// The zero Handle is the null sentinel.
type Handle unsafe.Pointer

// New copies s into a freshly malloc'd buffer of len(s)+1 bytes, terminates
// it with NUL and returns the buffer's address. Ownership passes to the
// caller, who must release it with Free exactly once.
//
// The empty string yields a live handle to a single NUL byte.
func New(s string) Handle {
	// CString aborts the process when malloc returns NULL.
	return Handle(unsafe.Pointer(C.CString(s)))
}

// Free returns a buffer obtained from New to the C allocator.
// Freeing the null handle does nothing.
func Free(h Handle) {
	if h == nil {
		return
	}
	C.free(unsafe.Pointer(h))
}

// Len reports the number of bytes before the terminating NUL.
func Len(h Handle) int {
	if h == nil {
		return 0
	}
	return int(C.strlen((*C.char)(unsafe.Pointer(h))))
}

// Bytes copies the buffer contents up to, not including, the terminating NUL.
func Bytes(h Handle) []byte {
	if h == nil {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(h), C.int(Len(h)))
}

// String copies the buffer contents into a Go string.
func String(h Handle) string {
	if h == nil {
		return ""
	}
	return C.GoString((*C.char)(unsafe.Pointer(h)))
}

var _ boundary.Boundary[Handle] = Heap{}

// Heap adapts the package functions to boundary.Boundary[Handle].
// Its methods never return an error.
type Heap struct{}

// Alloc implements boundary.Allocator.
func (Heap) Alloc(_ context.Context, s string) (Handle, error) {
	return New(s), nil
}

// Free implements boundary.Releaser.
func (Heap) Free(_ context.Context, h Handle) error {
	Free(h)
	return nil
}

// Read implements boundary.Boundary.
func (Heap) Read(_ context.Context, h Handle) (string, error) {
	return String(h), nil
}
