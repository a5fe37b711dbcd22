package guest

import (
	"bytes"
	"context"
	"math"
	"reflect"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/boundary"
	"github.com/wippyai/boundary/errors"
)

// Handle is an offset into guest linear memory where a NUL-terminated
// string starts. The zero Handle is the null sentinel.
type Handle uint32

// Null is the sentinel handle. Freeing it is a no-op.
const Null Handle = 0

// Config holds configuration for binding a guest module
type Config struct {
	// Name is the module name used by Instantiate. Empty instantiates
	// anonymously so several guests can share a runtime.
	Name string

	// Alloc names the allocator export. Empty tries cabi_realloc,
	// canonical_abi_realloc, allocate and alloc in that order.
	Alloc string

	// Free names the deallocator export. Empty tries cabi_free, deallocate
	// and free, then falls back to the realloc export with a new size of 0.
	Free string
}

// Boundary hands strings to a WebAssembly guest and takes them back, using
// the guest's own allocator for both directions.
//
// It is NOT safe for concurrent use, matching the wazero module it wraps.
type Boundary struct {
	mod        api.Module
	mem        api.Memory
	allocFn    api.Function
	freeFn     api.Function
	stack      []uint64
	allocStack int
	freeStack  int
	realloc    bool
	owned      bool
}

var _ boundary.Boundary[Handle] = (*Boundary)(nil)

// Instantiate compiles and instantiates wasm in r and binds the result.
// Closing the returned Boundary closes the module.
func Instantiate(ctx context.Context, r wazero.Runtime, wasm []byte, cfg *Config) (*Boundary, error) {
	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBind, errors.KindInvalidInput, err, "compile guest")
	}

	modConfig := wazero.NewModuleConfig().WithName("")
	if cfg != nil && cfg.Name != "" {
		modConfig = modConfig.WithName(cfg.Name)
	}

	mod, err := r.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBind, errors.KindInvalidInput, err, "instantiate guest")
	}

	b, err := BindWithConfig(mod, cfg)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	b.owned = true
	return b, nil
}

// Bind attaches to an instantiated module using the standard export names.
func Bind(mod api.Module) (*Boundary, error) {
	return BindWithConfig(mod, nil)
}

// BindWithConfig attaches to an instantiated module.
func BindWithConfig(mod api.Module, cfg *Config) (*Boundary, error) {
	if mod == nil {
		return nil, errors.InvalidInput(errors.PhaseBind, "nil module")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	mem := mod.ExportedMemory(MemoryName)
	if !isValidMemory(mem) {
		return nil, errors.NotFound(errors.PhaseBind, "memory", MemoryName)
	}

	b := &Boundary{
		mod:   mod,
		mem:   mem,
		stack: make([]uint64, 4),
	}

	allocName, err := b.resolveAlloc(cfg.Alloc)
	if err != nil {
		return nil, err
	}
	freeName, err := b.resolveFree(cfg.Free)
	if err != nil {
		return nil, err
	}

	Logger().Debug("bound guest allocator",
		zap.String("module", mod.Name()),
		zap.String("alloc", allocName),
		zap.String("free", freeName),
		zap.Bool("realloc", b.realloc),
	)
	return b, nil
}

// isValidMemory rejects a nil memory and a typed nil behind the interface.
func isValidMemory(mem api.Memory) bool {
	if mem == nil {
		return false
	}
	return !reflect.ValueOf(mem).IsNil()
}

func (b *Boundary) resolveAlloc(name string) (string, error) {
	candidates := append(append([]string{}, reallocNames...), allocNames...)
	if name != "" {
		candidates = []string{name}
	}

	for _, n := range candidates {
		fn := b.mod.ExportedFunction(n)
		if fn == nil {
			continue
		}
		def := fn.Definition()
		params, results := len(def.ParamTypes()), len(def.ResultTypes())
		if results != 1 || params == 0 || params > 4 || params == 3 {
			return "", errors.New(errors.PhaseBind, errors.KindInvalidInput).
				Detailf("allocator %q has unsupported signature (%d params, %d results)", n, params, results).
				Build()
		}
		b.allocFn = fn
		b.realloc = params == 4
		b.allocStack = params
		return n, nil
	}

	if name == "" {
		name = CabiRealloc
	}
	return "", errors.NotFound(errors.PhaseBind, "allocator export", name)
}

func (b *Boundary) resolveFree(name string) (string, error) {
	candidates := freeNames
	if name != "" {
		candidates = []string{name}
	}

	for _, n := range candidates {
		fn := b.mod.ExportedFunction(n)
		if fn == nil {
			continue
		}
		def := fn.Definition()
		params := len(def.ParamTypes())
		if params == 0 || params > 3 {
			return "", errors.New(errors.PhaseBind, errors.KindInvalidInput).
				Detailf("deallocator %q has unsupported signature (%d params)", n, params).
				Build()
		}
		b.freeFn = fn
		b.freeStack = max(params, len(def.ResultTypes()))
		return n, nil
	}

	if name == "" && b.realloc {
		return b.allocFn.Definition().ExportNames()[0], nil
	}
	if name == "" {
		name = simpleFree
	}
	return "", errors.NotFound(errors.PhaseBind, "deallocator export", name)
}

// Alloc copies s into a block from the guest allocator, terminates it with
// NUL and returns the block's offset. A guest trap or a zero pointer is an
// allocation error; the host process is not at risk, so nothing aborts.
func (b *Boundary) Alloc(ctx context.Context, s string) (Handle, error) {
	if uint64(len(s)) >= math.MaxUint32 {
		return Null, errors.InvalidInput(errors.PhaseAlloc, "string does not fit in 32-bit linear memory")
	}
	size := uint32(len(s)) + 1

	ptr, err := b.allocate(ctx, size)
	if err != nil {
		return Null, errors.AllocationFailed(errors.PhaseAlloc, size, 1, err)
	}
	if ptr == 0 {
		return Null, errors.AllocationFailed(errors.PhaseAlloc, size, 1, nil)
	}

	if !b.mem.WriteString(ptr, s) || !b.mem.WriteByte(ptr+size-1, 0) {
		// the guest handed out a block outside its memory; give it back
		if err := b.release(ctx, ptr, size); err != nil {
			Logger().Warn("guest free after failed write failed",
				zap.Uint32("ptr", ptr),
				zap.Uint32("size", size),
				zap.Error(err))
		}
		return Null, errors.OutOfBounds(errors.PhaseAlloc, ptr, size)
	}
	return Handle(ptr), nil
}

// Free returns the block at h to the guest allocator. The block size passed
// to the guest is recovered from the NUL terminator. Freeing Null is a no-op.
//
// Freeing a handle twice or one this Boundary never produced is undefined:
// the guest allocator decides what happens. Wrap the Boundary in a
// checked.Table to detect it.
func (b *Boundary) Free(ctx context.Context, h Handle) error {
	if h == Null {
		return nil
	}

	n, err := b.strlen(errors.PhaseRelease, h)
	if err != nil {
		return err
	}
	size := n + 1

	if err := b.release(ctx, uint32(h), size); err != nil {
		Logger().Warn("guest free failed",
			zap.Uint32("ptr", uint32(h)),
			zap.Uint32("size", size),
			zap.Error(err))
		return errors.Wrap(errors.PhaseRelease, errors.KindAllocation, err, "guest deallocator trapped")
	}
	return nil
}

// Read returns the string at h up to its NUL terminator.
func (b *Boundary) Read(_ context.Context, h Handle) (string, error) {
	if h == Null {
		return "", nil
	}
	n, err := b.strlen(errors.PhaseRead, h)
	if err != nil {
		return "", err
	}
	view, _ := b.mem.Read(uint32(h), n)
	return string(view), nil
}

// Len returns the number of bytes before the NUL terminator at h.
func (b *Boundary) Len(h Handle) (uint32, error) {
	if h == Null {
		return 0, nil
	}
	return b.strlen(errors.PhaseRead, h)
}

// Module returns the bound guest module.
func (b *Boundary) Module() api.Module {
	return b.mod
}

// Close closes the guest module if it was created by Instantiate.
func (b *Boundary) Close(ctx context.Context) error {
	if !b.owned {
		return nil
	}
	return b.mod.Close(ctx)
}

func (b *Boundary) allocate(ctx context.Context, size uint32) (uint32, error) {
	if b.realloc {
		b.stack[0] = 0
		b.stack[1] = 0
		b.stack[2] = 1
		b.stack[3] = uint64(size)
	} else {
		b.stack[0] = uint64(size)
		b.stack[1] = 1
	}
	if err := b.allocFn.CallWithStack(ctx, b.stack[:b.allocStack]); err != nil {
		return 0, err
	}
	return uint32(b.stack[0]), nil
}

// release hands a block back to the guest deallocator, or to realloc with
// a new size of 0 when the guest exports no deallocator.
func (b *Boundary) release(ctx context.Context, ptr, size uint32) error {
	b.stack[0] = uint64(ptr)
	b.stack[1] = uint64(size)
	b.stack[2] = 1
	if b.freeFn == nil {
		b.stack[3] = 0
		return b.allocFn.CallWithStack(ctx, b.stack[:4])
	}
	return b.freeFn.CallWithStack(ctx, b.stack[:b.freeStack])
}

func (b *Boundary) strlen(phase errors.Phase, h Handle) (uint32, error) {
	size := b.mem.Size()
	if uint32(h) >= size {
		return 0, errors.OutOfBounds(phase, uint32(h), 1)
	}

	view, ok := b.mem.Read(uint32(h), size-uint32(h))
	if !ok {
		return 0, errors.OutOfBounds(phase, uint32(h), size-uint32(h))
	}
	n := bytes.IndexByte(view, 0)
	if n < 0 {
		return 0, errors.New(phase, errors.KindOutOfBounds).
			Handle(uint32(h)).
			Detail("no NUL terminator before end of memory").
			Build()
	}
	return uint32(n), nil
}
