package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"brdgen/internal/progress"
)

func event(step progress.Step, detail, section string, iter int) progress.Event {
	return progress.Event{Step: step, Detail: detail, Section: section, Iteration: iter, At: time.Now()}
}

func applyEvents(m RunModel, events ...progress.Event) RunModel {
	for _, e := range events {
		next, _ := m.Update(e)
		m = next.(RunModel)
	}
	return m
}

func TestRunModelTracksSections(t *testing.T) {
	m := NewRunModel(progress.NewStream(4))
	m = applyEvents(m,
		event(progress.StepContext, "aggregating codebase context", "", 0),
		event(progress.StepSection, "starting Executive Summary", "Executive Summary", 0),
		event(progress.StepGenerator, "generating (attempt 1)", "Executive Summary", 1),
		event(progress.StepSectionComplete, "Executive Summary (accepted, confidence 0.95)", "Executive Summary", 1),
		event(progress.StepSection, "starting Business Context", "Business Context", 0),
		event(progress.StepGenerator, "generating (attempt 2)", "Business Context", 2),
	)

	if len(m.sections) != 2 {
		t.Fatalf("sections = %+v", m.sections)
	}
	if m.sections[0].Status != sectionDone || !strings.Contains(m.sections[0].Detail, "accepted") {
		t.Errorf("first section = %+v", m.sections[0])
	}
	if m.sections[1].Status != sectionRunning || m.sections[1].Iteration != 2 {
		t.Errorf("second section = %+v", m.sections[1])
	}

	view := m.View()
	for _, want := range []string{"Executive Summary", "Business Context", "✓", "attempt 2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRunModelQuitKeys(t *testing.T) {
	m := NewRunModel(progress.NewStream(1))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(RunModel)

	if !m.Quitting {
		t.Error("q did not set Quitting")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
	if m.View() != "" {
		t.Error("quitting view must be empty")
	}
}

func TestRunModelQuitsWhenStreamCloses(t *testing.T) {
	stream := progress.NewStream(2)
	m := NewRunModel(stream)

	stream.Sink()(event(progress.StepContext, "x", "", 0))
	stream.Close()

	// Drain the buffered event, then the close.
	msg := listenForEvents(stream)()
	if _, ok := msg.(progress.Event); !ok {
		t.Fatalf("first msg = %T", msg)
	}
	msg = listenForEvents(stream)()
	if _, ok := msg.(streamClosedMsg); !ok {
		t.Fatalf("second msg = %T", msg)
	}

	next, cmd := m.Update(streamClosedMsg{})
	m = next.(RunModel)
	if !m.done || cmd == nil {
		t.Error("stream close must end the program")
	}
}

func TestRunModelIgnoresUnknownSection(t *testing.T) {
	m := NewRunModel(progress.NewStream(1))
	m = applyEvents(m, event(progress.StepVerifier, "verifying claims", "Ghost", 1))
	if len(m.sections) != 0 {
		t.Errorf("sections = %+v", m.sections)
	}
}
