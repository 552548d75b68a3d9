package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"brdgen/internal/progress"
)

type sectionStatus int

const (
	sectionRunning sectionStatus = iota
	sectionDone
)

type sectionState struct {
	Name      string
	Status    sectionStatus
	Detail    string
	Iteration int
	StartedAt time.Time
}

// streamClosedMsg signals that the run finished and the stream drained.
type streamClosedMsg struct{}

// RunModel is the bubbletea model for one generation run. It only consumes
// the progress stream; the run itself executes in the caller's goroutine
// and closes the stream when done.
type RunModel struct {
	Stream   *progress.Stream
	Quitting bool

	spinner  spinner.Model
	phase    string
	sections []sectionState
	done     bool
}

// NewRunModel builds the TUI model over a progress stream.
func NewRunModel(stream *progress.Stream) RunModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StylePrimary
	return RunModel{
		Stream:  stream,
		spinner: s,
		phase:   "starting",
	}
}

func (m RunModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, listenForEvents(m.Stream))
}

func listenForEvents(stream *progress.Stream) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-stream.Events
		if !ok {
			return streamClosedMsg{}
		}
		return event
	}
}

func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.Event:
		m.apply(msg)
		return m, listenForEvents(m.Stream)

	case streamClosedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// apply folds one progress event into the display state.
func (m *RunModel) apply(e progress.Event) {
	switch e.Step {
	case progress.StepContext, progress.StepGraph, progress.StepFilesystem:
		m.phase = e.Detail

	case progress.StepSection:
		m.phase = "generating sections"
		m.sections = append(m.sections, sectionState{
			Name:      e.Section,
			Status:    sectionRunning,
			Detail:    "starting",
			StartedAt: e.At,
		})

	case progress.StepSectionComplete:
		if s := m.section(e.Section); s != nil {
			s.Status = sectionDone
			s.Detail = e.Detail
			s.Iteration = e.Iteration
		}

	default:
		if s := m.section(e.Section); s != nil {
			s.Detail = e.Detail
			if e.Iteration > s.Iteration {
				s.Iteration = e.Iteration
			}
		}
	}
}

func (m *RunModel) section(name string) *sectionState {
	for i := range m.sections {
		if m.sections[i].Name == name {
			return &m.sections[i]
		}
	}
	return nil
}

func (m RunModel) View() string {
	if m.Quitting || m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(" ")
	b.WriteString(StyleTitle.Render("brdgen"))
	b.WriteString(" ")
	b.WriteString(StyleSubtle.Render(m.phase))
	b.WriteString("\n")

	for _, s := range m.sections {
		b.WriteString(" ")
		switch s.Status {
		case sectionRunning:
			b.WriteString(m.spinner.View())
			b.WriteString(" ")
			b.WriteString(StyleTitle.Render(fmt.Sprintf("%-28s", s.Name)))
			b.WriteString(" ")
			detail := s.Detail
			if s.Iteration > 1 {
				detail = fmt.Sprintf("%s (attempt %d)", detail, s.Iteration)
			}
			b.WriteString(StyleSubtle.Render(detail))
		case sectionDone:
			b.WriteString(StyleSuccess.Render("✓"))
			b.WriteString(" ")
			b.WriteString(StyleTitle.Render(fmt.Sprintf("%-28s", s.Name)))
			b.WriteString(" ")
			b.WriteString(StyleSuccess.Render(s.Detail))
		}
		b.WriteString("\n")
	}

	b.WriteString(StyleSubtle.Render(" q to abort"))
	b.WriteString("\n")
	return b.String()
}
