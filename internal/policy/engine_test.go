package policy

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"brdgen/internal/brd"
)

const confidenceFloorPolicy = `package brdgen.policy

deny contains msg if {
	input.confidence < 0.9
	msg := sprintf("section %q below organization confidence floor", [input.section])
}

deny contains msg if {
	some claim in input.claims
	claim.status == "unverified"
	claim.kind == "integration"
	msg := sprintf("unverified integration claim: %s", [claim.text])
}

contradict contains claim.text if {
	some claim in input.claims
	claim.evidence_count == 0
	claim.kind == "integration"
}
`

func writePolicy(t *testing.T, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll(".brdgen/policies", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, ".brdgen/policies/acceptance.rego", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestEngineAllowsWithoutPolicies(t *testing.T) {
	e, err := NewEngine(afero.NewMemMapFs(), ".brdgen/policies")
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if e.PolicyCount() != 0 {
		t.Fatalf("policy count = %d", e.PolicyCount())
	}

	d, err := e.Evaluate(context.Background(), SectionInput{Section: "S", Confidence: 0.1})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.IsAllowed() {
		t.Error("empty engine must allow")
	}
}

func TestEngineDeniesOnRule(t *testing.T) {
	e, err := NewEngine(writePolicy(t, confidenceFloorPolicy), ".brdgen/policies")
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	d, err := e.Evaluate(context.Background(), SectionInput{Section: "Executive Summary", Confidence: 0.75})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.IsAllowed() {
		t.Fatal("expected denial")
	}
	if len(d.Violations) != 1 || !strings.Contains(d.Violations[0], "confidence floor") {
		t.Errorf("violations = %v", d.Violations)
	}
}

func TestEngineAllowsWhenRulesPass(t *testing.T) {
	e, err := NewEngine(writePolicy(t, confidenceFloorPolicy), ".brdgen/policies")
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	d, err := e.Evaluate(context.Background(), SectionInput{Section: "S", Confidence: 0.95})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.IsAllowed() || len(d.Violations) != 0 {
		t.Errorf("decision = %+v", d)
	}
}

func TestEngineContradictRule(t *testing.T) {
	e, err := NewEngine(writePolicy(t, confidenceFloorPolicy), ".brdgen/policies")
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	d, err := e.Evaluate(context.Background(), SectionInput{
		Section:    "Technical Specifications",
		Confidence: 0.95,
		Claims: []ClaimInput{
			{Text: "Integrates with Kafka.", Kind: "integration", Status: "unverified", EvidenceCount: 0},
			{Text: "Uses the session store.", Kind: "technical", Status: "verified", EvidenceCount: 2, Confidence: 0.95},
		},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.IsAllowed() {
		t.Error("unverified integration claim should deny")
	}
	if len(d.Contradicts) != 1 || d.Contradicts[0] != "Integrates with Kafka." {
		t.Errorf("contradicts = %v", d.Contradicts)
	}
}

func TestGateNilAndFailOpen(t *testing.T) {
	var g *Gate
	ok, denials, contradicts := g.Approve(context.Background(), brd.SectionResult{Name: "S"})
	if !ok || denials != nil || contradicts != nil {
		t.Error("nil gate must allow")
	}

	// A policy that fails to parse errors at evaluation; the gate fails open.
	broken := NewEngineWithPolicies([]*File{{
		Path:    "broken.rego",
		Name:    "broken",
		Content: "package brdgen.policy\n\ndeny contains msg if {\n",
	}})
	g = &Gate{Engine: broken}
	ok, _, _ = g.Approve(context.Background(), brd.SectionResult{Name: "S", Confidence: 0.9})
	if !ok {
		t.Error("gate must fail open on engine error")
	}
}

func TestGateBuildsInputFromSection(t *testing.T) {
	e, err := NewEngine(writePolicy(t, confidenceFloorPolicy), ".brdgen/policies")
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	g := &Gate{Engine: e}

	res := brd.SectionResult{
		Name:       "Functional Requirements",
		Confidence: 0.95,
		Claims: []brd.Claim{
			{
				Text:              "Talks to the billing API.",
				Kind:              brd.ClaimKindIntegration,
				Status:            brd.ClaimStatusUnverified,
				MentionedEntities: []string{"BillingClient", "BillingClient"},
			},
		},
	}
	ok, denials, contradicts := g.Approve(context.Background(), res)
	if ok {
		t.Error("expected denial from unverified integration claim")
	}
	if len(denials) != 1 {
		t.Errorf("denials = %v", denials)
	}
	if len(contradicts) != 1 || contradicts[0] != "Talks to the billing API." {
		t.Errorf("contradicts = %v", contradicts)
	}
}
