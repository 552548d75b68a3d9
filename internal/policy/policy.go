// Package policy provides the optional Rego acceptance gate: sections that
// reach the confidence threshold can still be held back by organization
// rules, evaluated locally with OPA and no network calls.
package policy

import "time"

// Result constants for a decision.
const (
	ResultAllow = "allow"
	ResultDeny  = "deny"
)

// Decision is the outcome of evaluating the acceptance rules for a section.
type Decision struct {
	DecisionID  string    `json:"decision_id"`
	Result      string    `json:"result"`
	Violations  []string  `json:"violations,omitempty"`
	Contradicts []string  `json:"contradicts,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// IsAllowed reports whether the section passed the gate.
func (d *Decision) IsAllowed() bool {
	return d.Result == ResultAllow
}

// ClaimInput is the per-claim view exposed to Rego rules.
type ClaimInput struct {
	Text          string  `json:"text"`
	Kind          string  `json:"kind"`
	Status        string  `json:"status"`
	Confidence    float64 `json:"confidence"`
	EvidenceCount int     `json:"evidence_count"`
}

// SectionInput is the `input` document a policy evaluates.
type SectionInput struct {
	Section    string       `json:"section"`
	Confidence float64      `json:"confidence"`
	Risk       string       `json:"risk"`
	Claims     []ClaimInput `json:"claims"`
	Entities   []string     `json:"entities,omitempty"`
}
