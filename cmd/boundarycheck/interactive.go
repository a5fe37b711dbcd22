package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/boundary/internal/stress"
)

type interactiveModel struct {
	err      error
	ctx      context.Context
	cancel   context.CancelFunc
	opts     *options
	progress *atomic.Int64
	report   stress.Report
	spinner  spinner.Model
	state    modelState
}

type modelState int

const (
	stateRunning modelState = iota
	stateDone
)

type tickMsg time.Time

type doneMsg struct {
	err    error
	report stress.Report
}

func newInteractiveModel(ctx context.Context, opts *options) *interactiveModel {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = labelStyle
	return &interactiveModel{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		progress: &atomic.Int64{},
		spinner:  s,
		state:    stateRunning,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runCheck, tick())
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *interactiveModel) runCheck() tea.Msg {
	report, err := run(m.ctx, m.opts, m.progress)
	return doneMsg{report: report, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			return m, tea.Quit
		case "enter":
			if m.state == stateDone {
				return m, tea.Quit
			}
		}

	case doneMsg:
		m.report = msg.report
		m.err = msg.err
		m.state = stateDone
		return m, nil

	case tickMsg:
		if m.state == stateRunning {
			return m, tick()
		}

	case spinner.TickMsg:
		if m.state == stateRunning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	switch m.state {
	case stateRunning:
		b.WriteString(titleStyle.Render("boundary check"))
		b.WriteString(" ")
		b.WriteString(m.opts.backend)
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "%s released %d / %d strings\n\n", m.spinner.View(), m.progress.Load(), m.opts.strings)
		b.WriteString(helpStyle.Render("q quit"))

	case stateDone:
		b.WriteString(renderReport(m.opts, m.report, true))
		if m.err != nil {
			b.WriteString("\n\n")
			b.WriteString(failStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter/q quit"))
	}

	return b.String()
}

func runInteractive(ctx context.Context, opts *options) error {
	m := newInteractiveModel(ctx, opts)
	defer m.cancel()

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(*interactiveModel); ok && fm.state == stateDone {
		// leave the report on the normal screen once the alt screen closes
		fmt.Println(renderReport(opts, fm.report, true))
		if fm.err != nil {
			return fm.err
		}
		if !fm.report.OK() {
			return fmt.Errorf("boundary protocol not upheld")
		}
	}
	return nil
}
