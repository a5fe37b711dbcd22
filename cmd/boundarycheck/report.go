package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"

	"github.com/wippyai/boundary/internal/stress"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	okStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#90EE90"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type reportJSON struct {
	Backend string `json:"backend"`
	stress.Report
	OK bool `json:"ok"`
}

func writeJSON(w io.Writer, backend string, r stress.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reportJSON{Backend: backend, Report: r, OK: r.OK()})
}

func renderReport(opts *options, r stress.Report, styled bool) string {
	render := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	b.WriteString(render(titleStyle, "boundary check"))
	b.WriteString(" ")
	b.WriteString(opts.backend)
	if opts.backend == backendGuest {
		b.WriteString(" (" + opts.wasm + ")")
	}
	b.WriteString("\n\n")

	rows := []struct {
		label string
		value string
	}{
		{"strings", fmt.Sprint(r.Strings)},
		{"workers", fmt.Sprint(r.Workers)},
		{"allocated", fmt.Sprint(r.Allocated)},
		{"released", fmt.Sprint(r.Released)},
		{"live", fmt.Sprint(r.Live)},
		{"rejected", fmt.Sprint(r.Rejected)},
		{"mismatches", fmt.Sprint(r.Mismatches)},
		{"bytes", fmt.Sprint(r.Bytes)},
		{"elapsed", r.Elapsed.String()},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "  %s %s\n", render(labelStyle, fmt.Sprintf("%-10s", row.label)), row.value)
	}
	b.WriteString("\n")

	if r.OK() {
		b.WriteString(render(okStyle, "OK: every handle released exactly once"))
	} else {
		b.WriteString(render(failStyle, "FAIL: boundary protocol not upheld"))
	}
	return b.String()
}
