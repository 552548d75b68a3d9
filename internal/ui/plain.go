package ui

import (
	"fmt"
	"io"
	"sync"

	"brdgen/internal/progress"
)

// PlainPrinter writes one line per progress event, for --plain mode and
// non-TTY output. Safe for concurrent emission.
type PlainPrinter struct {
	w  io.Writer
	mu sync.Mutex
}

func NewPlainPrinter(w io.Writer) *PlainPrinter {
	return &PlainPrinter{w: w}
}

// Sink adapts the printer to the progress sink contract.
func (p *PlainPrinter) Sink() progress.Sink {
	return func(e progress.Event) { p.print(e) }
}

func (p *PlainPrinter) print(e progress.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := e.At.Format("15:04:05")
	switch {
	case e.Section != "" && e.Iteration > 0:
		fmt.Fprintf(p.w, "[%s] %-16s %s (%s, attempt %d)\n", ts, e.Step, e.Detail, e.Section, e.Iteration)
	case e.Section != "":
		fmt.Fprintf(p.w, "[%s] %-16s %s (%s)\n", ts, e.Step, e.Detail, e.Section)
	default:
		fmt.Fprintf(p.w, "[%s] %-16s %s\n", ts, e.Step, e.Detail)
	}
}
