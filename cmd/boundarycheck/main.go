// Command boundarycheck hammers a boundary backend with strings and verifies
// that every handle is released exactly once.
//
//	boundarycheck -n 100000 -workers 16
//	boundarycheck -backend guest -wasm allocator.wasm -json
//	boundarycheck -i
//
// The exit status is 0 when the run ends with no live handles, no rejected
// calls and no content mismatches.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/boundary/checked"
	"github.com/wippyai/boundary/cstring"
	"github.com/wippyai/boundary/guest"
	"github.com/wippyai/boundary/internal/stress"
)

const (
	backendNative = "native"
	backendGuest  = "guest"
)

type options struct {
	backend     string
	wasm        string
	strings     int
	workers     int
	size        int
	batch       int
	json        bool
	verbose     bool
	interactive bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("boundarycheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.backend, "backend", backendNative, "Backend to exercise (native|guest)")
	fs.StringVar(&opts.wasm, "wasm", "", "Guest module exporting memory and an allocator (guest backend)")
	fs.IntVar(&opts.strings, "n", 1000, "Number of strings to allocate")
	fs.IntVar(&opts.workers, "workers", 0, "Worker goroutines (0 = GOMAXPROCS; guest backend always uses 1)")
	fs.IntVar(&opts.size, "size", 32, "Maximum string length in runes")
	fs.IntVar(&opts.batch, "batch", 16, "Handles each worker keeps live before releasing")
	fs.BoolVar(&opts.json, "json", false, "Print the report as JSON")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging to stderr")
	fs.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch opts.backend {
	case backendNative:
	case backendGuest:
		if opts.wasm == "" {
			return nil, fmt.Errorf("-wasm is required with -backend %s", backendGuest)
		}
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", opts.backend, backendNative, backendGuest)
	}
	if opts.strings < 0 {
		return nil, fmt.Errorf("-n must be >= 0")
	}
	if opts.size < 0 {
		return nil, fmt.Errorf("-size must be >= 0")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(opts.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	checked.SetLogger(logger)
	guest.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.interactive {
		if err := runInteractive(ctx, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	report, err := run(ctx, opts, nil)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
	}

	if opts.json {
		if werr := writeJSON(os.Stdout, opts.backend, report); werr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", werr)
			os.Exit(1)
		}
	} else {
		styled := term.IsTerminal(int(os.Stdout.Fd()))
		fmt.Fprintln(os.Stdout, renderReport(opts, report, styled))
	}

	if err != nil || !report.OK() {
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func run(ctx context.Context, opts *options, progress *atomic.Int64) (stress.Report, error) {
	cfg := stress.Config{
		Strings:  opts.strings,
		Workers:  opts.workers,
		Size:     opts.size,
		Batch:    opts.batch,
		Progress: progress,
	}

	if opts.backend == backendNative {
		return stress.Run[cstring.Handle](ctx, cstring.Heap{}, cfg)
	}

	wasm, err := os.ReadFile(opts.wasm)
	if err != nil {
		return stress.Report{}, fmt.Errorf("read guest: %w", err)
	}

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	b, err := guest.Instantiate(ctx, r, wasm, nil)
	if err != nil {
		return stress.Report{}, fmt.Errorf("bind guest: %w", err)
	}
	defer b.Close(ctx)

	// a wazero module instance is single-threaded
	cfg.Workers = 1
	return stress.Run[guest.Handle](ctx, b, cfg)
}
