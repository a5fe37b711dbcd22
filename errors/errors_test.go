package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseRelease,
				Kind:   KindDoubleFree,
				Handle: uint32(1024),
				Detail: "handle already released",
			},
			contains: []string{"[release]", "double_free", "handle=1024", "handle already released"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRead,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[read]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseAlloc,
				Kind:   KindAllocation,
				Detail: "guest memory full",
				Cause:  stderrors.New("trap"),
			},
			contains: []string{"[alloc]", "allocation", "guest memory full", "caused by", "trap"},
		},
		{
			name:     "sentinel",
			err:      ErrClosed,
			contains: []string{"closed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				assert.Contains(t, msg, s)
			}
		})
	}
}

func TestError_SentinelOmitsPhase(t *testing.T) {
	assert.Equal(t, "closed", ErrClosed.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := &Error{
		Phase: PhaseAlloc,
		Kind:  KindAllocation,
		Cause: cause,
	}

	assert.True(t, stderrors.Is(err.Unwrap(), cause))
	assert.True(t, stderrors.Is(stderrors.Unwrap(err), cause))
}

func TestError_Is(t *testing.T) {
	err := DoubleFree(uintptr(0x10))

	t.Run("same phase and kind", func(t *testing.T) {
		assert.True(t, Is(err, &Error{Phase: PhaseRelease, Kind: KindDoubleFree}))
	})

	t.Run("different phase", func(t *testing.T) {
		assert.False(t, Is(err, &Error{Phase: PhaseRead, Kind: KindDoubleFree}))
	})

	t.Run("different kind", func(t *testing.T) {
		assert.False(t, Is(err, &Error{Phase: PhaseRelease, Kind: KindForeignHandle}))
	})

	t.Run("sentinel ignores phase", func(t *testing.T) {
		assert.True(t, Is(err, ErrDoubleFree))
		assert.False(t, Is(err, ErrForeignHandle))
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("free: %w", err)
		assert.True(t, Is(wrapped, ErrDoubleFree))
	})

	t.Run("non structured target", func(t *testing.T) {
		assert.False(t, Is(err, stderrors.New("double_free")))
	})
}

func TestError_As(t *testing.T) {
	wrapped := fmt.Errorf("read: %w", UseAfterFree(PhaseRead, uint32(8)))

	var e *Error
	require.True(t, As(wrapped, &e))
	assert.Equal(t, KindUseAfterFree, e.Kind)
	assert.Equal(t, uint32(8), e.Handle)
}

func TestBuilder(t *testing.T) {
	cause := stderrors.New("cause")
	err := New(PhaseBind, KindNotFound).
		Handle("memory").
		Detailf("export %q missing", "memory").
		Cause(cause).
		Build()

	assert.Equal(t, PhaseBind, err.Phase)
	assert.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t, "memory", err.Handle)
	assert.Equal(t, `export "memory" missing`, err.Detail)
	assert.Same(t, cause, err.Cause)
}

func TestBuilder_DetailWithoutArgs(t *testing.T) {
	err := New(PhaseAlloc, KindInvalidInput).Detail("100% literal").Build()
	assert.Equal(t, "100% literal", err.Detail)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err   *Error
		name  string
		phase Phase
		kind  Kind
	}{
		{AllocationFailed(PhaseAlloc, 4, 1, nil), "allocation", PhaseAlloc, KindAllocation},
		{DoubleFree(1), "double free", PhaseRelease, KindDoubleFree},
		{ForeignHandle(PhaseRead, 1), "foreign", PhaseRead, KindForeignHandle},
		{UseAfterFree(PhaseRead, 1), "use after free", PhaseRead, KindUseAfterFree},
		{Closed(PhaseAlloc, "table"), "closed", PhaseAlloc, KindClosed},
		{NotFound(PhaseBind, "export", "memory"), "not found", PhaseBind, KindNotFound},
		{OutOfBounds(PhaseRead, 65530, 10), "out of bounds", PhaseRead, KindOutOfBounds},
		{InvalidInput(PhaseAlloc, "bad"), "invalid input", PhaseAlloc, KindInvalidInput},
		{Wrap(PhaseRelease, KindAllocation, stderrors.New("x"), "free"), "wrap", PhaseRelease, KindAllocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.phase, tt.err.Phase)
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestAllocationFailed_Detail(t *testing.T) {
	err := AllocationFailed(PhaseAlloc, 16, 1, stderrors.New("oom"))
	assert.Contains(t, err.Error(), "failed to allocate 16 bytes (align 1)")
	assert.Contains(t, err.Error(), "oom")
}
