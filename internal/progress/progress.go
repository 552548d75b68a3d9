/*
Package progress carries generation progress from the orchestrator to
whatever renders it. Emission is best-effort: a slow or failing consumer
never stalls or aborts a run.
*/
package progress

import "time"

// Step identifies a pipeline stage. The string values are a stable
// enumeration consumed by callers to drive UI stages; they must not change.
type Step string

const (
	StepContext         Step = "context"
	StepGraph           Step = "neo4j"
	StepFilesystem      Step = "filesystem"
	StepSection         Step = "section"
	StepGenerator       Step = "generator"
	StepVerifier        Step = "verifier"
	StepClaims          Step = "claims"
	StepVerifying       Step = "verifying"
	StepFeedback        Step = "feedback"
	StepSectionComplete Step = "section_complete"
)

// Event is one progress notification.
type Event struct {
	Step      Step      `json:"step"`
	Detail    string    `json:"detail"`
	Section   string    `json:"section,omitempty"`
	Iteration int       `json:"iteration,omitempty"`
	At        time.Time `json:"at"`
}

// Sink receives progress events. Implementations must be fast; heavy
// consumers should hand off to a Stream instead.
type Sink func(Event)
