// Command libboundary builds the boundary string entry points as a C shared
// library:
//
//	go build -buildmode=c-shared -o libboundary.so ./cmd/libboundary
//
// The generated libboundary.h declares:
//
//	char *boundary_version(void);
//	char *boundary_string_copy(char *s);
//	void  boundary_string_free(char *s);
//
// Every non-NULL pointer returned by this library is a NUL-terminated UTF-8
// buffer owned by the caller. The caller must:
//
//  1. never pass boundary_string_free a pointer not obtained from this library
//  2. free each non-NULL pointer exactly once
//  3. never dereference a pointer after freeing it
//  4. treat the buffer as immutable
//
// boundary_string_free(NULL) is a no-op. Violations are undefined behaviour;
// the library does not track live pointers.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/boundary/cstring"
)

// Version is reported by boundary_version.
// Set at link time with -ldflags "-X main.Version=v1.2.3".
var Version = "dev"

//export boundary_version
func boundary_version() *C.char {
	return (*C.char)(unsafe.Pointer(cstring.New(Version)))
}

// boundary_string_copy returns a library-owned copy of s, for callers that
// want to exercise the release path with their own content. NULL in, NULL
// out.
//
//export boundary_string_copy
func boundary_string_copy(s *C.char) *C.char {
	if s == nil {
		return nil
	}
	return (*C.char)(unsafe.Pointer(cstring.New(C.GoString(s))))
}

//export boundary_string_free
func boundary_string_free(s *C.char) {
	cstring.Free(cstring.Handle(unsafe.Pointer(s)))
}

func main() {}
