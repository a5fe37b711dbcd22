package boundary

import "context"

// Allocator hands a copy of s across the boundary and surrenders ownership
// of the returned handle to the caller.
type Allocator[H comparable] interface {
	Alloc(ctx context.Context, s string) (H, error)
}

// Releaser reclaims a handle produced by the matching Allocator.
// Releasing the zero handle is a no-op.
type Releaser[H comparable] interface {
	Free(ctx context.Context, h H) error
}

// Boundary is a complete string boundary: allocate, read back, release.
type Boundary[H comparable] interface {
	Allocator[H]
	Releaser[H]

	// Read returns the bytes up to the terminating NUL without taking ownership.
	Read(ctx context.Context, h H) (string, error)
}
