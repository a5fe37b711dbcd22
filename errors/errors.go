package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates which protocol step produced the error
type Phase string

const (
	PhaseAlloc   Phase = "alloc"   // string handed across the boundary
	PhaseRelease Phase = "release" // handle returned for reclamation
	PhaseRead    Phase = "read"    // handle contents inspected
	PhaseBind    Phase = "bind"    // backend attached to a foreign module
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation    Kind = "allocation"
	KindDoubleFree    Kind = "double_free"
	KindForeignHandle Kind = "foreign_handle"
	KindUseAfterFree  Kind = "use_after_free"
	KindClosed        Kind = "closed"
	KindNotFound      Kind = "not_found"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindInvalidInput  Kind = "invalid_input"
)

// Sentinels for errors.Is. They carry no phase, so they match any phase.
var (
	ErrDoubleFree    = &Error{Kind: KindDoubleFree}
	ErrForeignHandle = &Error{Kind: KindForeignHandle}
	ErrUseAfterFree  = &Error{Kind: KindUseAfterFree}
	ErrClosed        = &Error{Kind: KindClosed}
	ErrAllocation    = &Error{Kind: KindAllocation}
	ErrNotFound      = &Error{Kind: KindNotFound}
)

// Error is the structured error type used throughout the library
type Error struct {
	Handle any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Handle != nil {
		fmt.Fprintf(&b, " handle=%v", e.Handle)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Is is errors.Is from the standard library, re-exported so callers
// importing this package under its usual name keep access to it.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Handle sets the offending handle
func (b *Builder) Handle(h any) *Builder {
	b.err.Handle = h
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message verbatim
func (b *Builder) Detail(msg string) *Builder {
	b.err.Detail = msg
	return b
}

// Detailf sets the detail message from a format string
func (b *Builder) Detailf(format string, args ...any) *Builder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// DoubleFree creates an error for a handle released a second time
func DoubleFree(h any) *Error {
	return &Error{
		Phase:  PhaseRelease,
		Kind:   KindDoubleFree,
		Handle: h,
		Detail: "handle already released",
	}
}

// ForeignHandle creates an error for a handle this boundary never produced
func ForeignHandle(phase Phase, h any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindForeignHandle,
		Handle: h,
		Detail: "handle was not produced by this boundary",
	}
}

// UseAfterFree creates an error for access to a released handle
func UseAfterFree(phase Phase, h any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUseAfterFree,
		Handle: h,
		Detail: "handle already released",
	}
}

// Closed creates an error for operations on a closed boundary
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// OutOfBounds creates an out of bounds error for guest memory access
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("offset %d length %d out of bounds", offset, length),
		Handle: offset,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
