package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/boundary/internal/stress"
)

var bumpGuest = filepath.Join("..", "..", "guest", "testdata", "bump.wasm")

func TestParseFlags_Defaults(t *testing.T) {
	opts, err := parseFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, backendNative, opts.backend)
	assert.Equal(t, 1000, opts.strings)
	assert.Equal(t, 32, opts.size)
	assert.Equal(t, 16, opts.batch)
	assert.False(t, opts.json)
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"guest without wasm", []string{"-backend", "guest"}, "-wasm is required"},
		{"unknown backend", []string{"-backend", "jni"}, "unknown backend"},
		{"negative strings", []string{"-n", "-1"}, "-n must be"},
		{"negative size", []string{"-size", "-3"}, "-size must be"},
		{"unknown flag", []string{"-nope"}, "not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, io.Discard)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseFlags_Help(t *testing.T) {
	var out bytes.Buffer
	_, err := parseFlags([]string{"-h"}, &out)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out.String(), "-backend")
}

func TestRun_Native(t *testing.T) {
	opts, err := parseFlags([]string{"-n", "300", "-workers", "4", "-size", "6"}, io.Discard)
	require.NoError(t, err)

	var progress atomic.Int64
	report, err := run(context.Background(), opts, &progress)
	require.NoError(t, err)
	assert.True(t, report.OK(), "%+v", report)
	assert.Equal(t, int64(300), progress.Load())
}

func TestRun_Guest(t *testing.T) {
	opts, err := parseFlags([]string{"-backend", "guest", "-wasm", bumpGuest, "-n", "50", "-workers", "8"}, io.Discard)
	require.NoError(t, err)

	report, err := run(context.Background(), opts, nil)
	require.NoError(t, err)
	assert.True(t, report.OK(), "%+v", report)
	assert.Equal(t, 1, report.Workers)
}

func TestRun_GuestMissingFile(t *testing.T) {
	opts := &options{backend: backendGuest, wasm: filepath.Join(t.TempDir(), "missing.wasm"), strings: 1}
	_, err := run(context.Background(), opts, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read guest")
}

func TestRenderReport_Plain(t *testing.T) {
	opts := &options{backend: backendGuest, wasm: "a.wasm"}
	report := stress.Report{Strings: 2, Workers: 1, Allocated: 2, Released: 2, Bytes: 6, Elapsed: time.Millisecond}

	out := renderReport(opts, report, false)
	assert.Contains(t, out, "boundary check guest (a.wasm)")
	assert.Contains(t, out, "allocated  2")
	assert.Contains(t, out, "OK:")
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderReport_Fail(t *testing.T) {
	opts := &options{backend: backendNative}
	report := stress.Report{Strings: 2, Allocated: 2, Released: 1, Live: 1}

	out := renderReport(opts, report, false)
	assert.Contains(t, out, "FAIL:")
}

func TestWriteJSON(t *testing.T) {
	report := stress.Report{Strings: 3, Workers: 1, Allocated: 3, Released: 3, Bytes: 9}

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, backendNative, report))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "native", decoded["backend"])
	assert.Equal(t, true, decoded["ok"])
	assert.Equal(t, float64(3), decoded["allocated"])
	assert.Equal(t, float64(0), decoded["live"])
}

func TestNewLogger(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		l, err := newLogger(verbose)
		require.NoError(t, err)
		assert.Equal(t, verbose, l.Core().Enabled(-1))
	}
}

func TestInteractiveModel(t *testing.T) {
	opts := &options{backend: backendNative, strings: 10}
	m := newInteractiveModel(context.Background(), opts)
	defer m.cancel()

	assert.Contains(t, m.View(), "released 0 / 10 strings")

	msg := m.runCheck()
	done, ok := msg.(doneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	model, cmd := m.Update(done)
	assert.Nil(t, cmd)
	m = model.(*interactiveModel)
	assert.Equal(t, stateDone, m.state)
	assert.Contains(t, m.View(), "every handle released exactly once")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestInteractiveModel_QuitCancels(t *testing.T) {
	m := newInteractiveModel(context.Background(), &options{backend: backendNative})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.ErrorIs(t, m.ctx.Err(), context.Canceled)
}

func TestInteractiveModel_TickStopsWhenDone(t *testing.T) {
	m := newInteractiveModel(context.Background(), &options{backend: backendNative})
	defer m.cancel()

	_, cmd := m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd)

	m.Update(doneMsg{})
	_, cmd = m.Update(tickMsg(time.Now()))
	assert.Nil(t, cmd)
}

func TestRenderReport_StyledKeepsContent(t *testing.T) {
	out := renderReport(&options{backend: backendNative}, stress.Report{}, true)
	assert.True(t, strings.Contains(out, "boundary check"))
}
