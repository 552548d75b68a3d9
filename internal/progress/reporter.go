package progress

import "time"

// Reporter emits events into a Sink with the swallow-on-failure contract:
// a panicking sink is recovered and reported to logf, and a nil sink is a
// no-op. The zero Reporter is usable.
type Reporter struct {
	sink Sink
	logf func(format string, args ...any)
}

// NewReporter wraps a sink. logf receives swallowed failures; nil disables
// that reporting too.
func NewReporter(sink Sink, logf func(format string, args ...any)) *Reporter {
	return &Reporter{sink: sink, logf: logf}
}

// Emit delivers one event, best-effort.
func (r *Reporter) Emit(step Step, detail string) {
	r.EmitSection(step, detail, "", 0)
}

// EmitSection delivers one event carrying section attribution.
func (r *Reporter) EmitSection(step Step, detail, section string, iteration int) {
	if r == nil || r.sink == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil && r.logf != nil {
			r.logf("progress callback failed on %s: %v", step, rec)
		}
	}()
	r.sink(Event{
		Step:      step,
		Detail:    detail,
		Section:   section,
		Iteration: iteration,
		At:        time.Now(),
	})
}
