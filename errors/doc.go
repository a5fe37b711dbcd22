// Package errors provides structured error types for the boundary library.
//
// Errors are categorized by Phase (which protocol step failed) and Kind (what
// went wrong). The Error type carries the offending handle, a detail message
// and an optional cause.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRelease, errors.KindDoubleFree).
//		Handle(h).
//		Detail("handle released twice").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.DoubleFree(h)
//	err := errors.AllocationFailed(errors.PhaseAlloc, 4, 1, cause)
//
// Sentinels match on Kind alone, whatever the phase:
//
//	if errors.Is(err, errors.ErrForeignHandle) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
