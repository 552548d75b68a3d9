package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/spf13/afero"

	"brdgen/internal/brd"
	"brdgen/internal/runlog"
)

// Package queried for acceptance rules.
const Package = "brdgen.policy"

// Engine evaluates loaded Rego policies against section inputs.
type Engine struct {
	files []*File
}

// NewEngine loads policies from dir over the given filesystem. An empty or
// missing directory yields an engine that allows everything.
func NewEngine(fs afero.Fs, dir string) (*Engine, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	files, err := NewLoader(fs, dir).LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	return &Engine{files: files}, nil
}

// NewEngineWithPolicies builds an engine from in-memory sources, mainly for
// tests.
func NewEngineWithPolicies(files []*File) *Engine {
	return &Engine{files: files}
}

// PolicyCount returns the number of loaded policy files.
func (e *Engine) PolicyCount() int {
	return len(e.files)
}

// Evaluate runs the deny and contradict rules against one section input.
// Deny strings block acceptance; contradict strings name claims the policy
// marks as contradicted.
func (e *Engine) Evaluate(ctx context.Context, input SectionInput) (*Decision, error) {
	decision := &Decision{
		DecisionID:  uuid.New().String(),
		Result:      ResultAllow,
		EvaluatedAt: time.Now().UTC(),
	}
	if len(e.files) == 0 {
		return decision, nil
	}

	modules := make([]func(*rego.Rego), len(e.files))
	for i, f := range e.files {
		modules[i] = rego.Module(f.Path, f.Content)
	}

	violations, err := e.querySet(ctx, input, "deny", modules)
	if err != nil {
		return nil, fmt.Errorf("query deny rules: %w", err)
	}
	// Contradict rules are optional.
	contradicts, err := e.querySet(ctx, input, "contradict", modules)
	if err != nil {
		contradicts = nil
	}

	if len(violations) > 0 {
		decision.Result = ResultDeny
		decision.Violations = violations
	}
	decision.Contradicts = contradicts
	return decision, nil
}

// querySet evaluates a set-generating rule and collects its string values.
// An undefined rule is treated as an empty set.
func (e *Engine) querySet(ctx context.Context, input any, ruleName string, modules []func(*rego.Rego)) ([]string, error) {
	opts := []func(*rego.Rego){
		rego.Query(fmt.Sprintf("data.%s.%s", Package, ruleName)),
		rego.Input(input),
	}
	opts = append(opts, modules...)

	rs, err := rego.New(opts...).Eval(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "undefined") {
			return nil, nil
		}
		return nil, err
	}

	var results []string
	for _, result := range rs {
		for _, expr := range result.Expressions {
			set, ok := expr.Value.([]any)
			if !ok {
				continue
			}
			for _, item := range set {
				if s, ok := item.(string); ok {
					results = append(results, s)
				}
			}
		}
	}
	return results, nil
}

// Gate is the orchestrator-facing wrapper: a nil gate or any engine error
// fails open, so a broken policy setup never blocks generation.
type Gate struct {
	Engine *Engine
	Log    *runlog.Logger
}

// Approve consults the policies for a section that met the confidence
// threshold. It returns whether the section may be accepted, the denial
// messages to feed back, and the texts of claims the policy contradicts.
func (g *Gate) Approve(ctx context.Context, res brd.SectionResult) (bool, []string, []string) {
	if g == nil || g.Engine == nil {
		return true, nil, nil
	}

	input := SectionInput{
		Section:    res.Name,
		Confidence: res.Confidence,
		Risk:       string(brd.RiskFromConfidence(res.Confidence)),
	}
	entitySet := make(map[string]bool)
	for _, c := range res.Claims {
		input.Claims = append(input.Claims, ClaimInput{
			Text:          c.Text,
			Kind:          string(c.Kind),
			Status:        string(c.Status),
			Confidence:    c.Confidence,
			EvidenceCount: len(c.Evidence),
		})
		for _, e := range c.MentionedEntities {
			if !entitySet[e] {
				entitySet[e] = true
				input.Entities = append(input.Entities, e)
			}
		}
	}

	decision, err := g.Engine.Evaluate(ctx, input)
	if err != nil {
		if g.Log != nil {
			g.Log.WithSection(res.Name).Warn("policy_evaluation_failed",
				"acceptance policy errored, failing open", map[string]any{"error": err.Error()})
		}
		return true, nil, nil
	}
	return decision.IsAllowed(), decision.Violations, decision.Contradicts
}
