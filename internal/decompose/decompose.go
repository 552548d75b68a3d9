/*
Package decompose turns an approved BRD artifact into delivery epics and
stories. The LLM proposes the grouping; when it fails or returns something
unparseable a deterministic fallback derives a plan from the structured
requirements, so decomposition always yields a usable result.
*/
package decompose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"

	"brdgen/internal/brd"
	"brdgen/internal/runlog"
	"brdgen/internal/utils"
	"brdgen/prompts"
)

// Plan is the decomposition result.
type Plan struct {
	Epics []Epic `json:"epics"`
}

// Epic groups stories by business capability.
type Epic struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Summary string  `json:"summary"`
	Stories []Story `json:"stories"`
}

// Story is one unit of deliverable work.
type Story struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	Requirements       []string `json:"requirements,omitempty"`
}

// StoryCount sums the stories across epics.
func (p *Plan) StoryCount() int {
	n := 0
	for _, e := range p.Epics {
		n += len(e.Stories)
	}
	return n
}

// planPayload is the JSON shape the model returns; IDs are assigned here.
type planPayload struct {
	Epics []struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
		Stories []struct {
			Title              string   `json:"title"`
			AcceptanceCriteria []string `json:"acceptance_criteria"`
			Requirements       []string `json:"requirements"`
		} `json:"stories"`
	} `json:"epics"`
}

// Decomposer drives the LLM chain with the deterministic fallback behind it.
type Decomposer struct {
	Model model.BaseChatModel

	// Timeout bounds the chain invocation. Zero means 300s.
	Timeout time.Duration

	// PromptOverridesDir lets projects replace the decomposition framing.
	PromptOverridesDir string

	Log *runlog.Logger
}

// Decompose builds the delivery plan for one artifact. A nil model goes
// straight to the fallback.
func (d *Decomposer) Decompose(ctx context.Context, artifact *brd.Artifact) (*Plan, error) {
	if artifact == nil {
		return nil, errors.New("decompose: nil artifact")
	}

	if d.Model != nil {
		plan, err := d.decomposeLLM(ctx, artifact)
		if err == nil && len(plan.Epics) > 0 {
			return plan, nil
		}
		if err != nil {
			if d.Log != nil {
				d.Log.Warn("decompose_llm_failed", "falling back to deterministic plan",
					map[string]any{"error": err.Error()})
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
	}

	return FallbackPlan(artifact), nil
}

func (d *Decomposer) decomposeLLM(ctx context.Context, artifact *brd.Artifact) (*Plan, error) {
	framing, err := prompts.Get(prompts.KeyDecompose, d.PromptOverridesDir)
	if err != nil {
		return nil, fmt.Errorf("load decompose prompt: %w", err)
	}

	chain, err := newJSONChain[planPayload](ctx, "decompose", d.Model,
		framing+"\n\n<brd>\n{{.markdown}}\n</brd>\n")
	if err != nil {
		return nil, fmt.Errorf("build decompose chain: %w", err)
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, elapsed, err := chain.Invoke(cctx, map[string]any{
		"markdown": artifact.BRD.RawMarkdown,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke decompose chain: %w", err)
	}
	if d.Log != nil {
		d.Log.Info("decompose_llm_completed", "plan proposed by model",
			map[string]any{"epics": len(payload.Epics), "duration_ms": elapsed.Milliseconds()})
	}

	return numberPlan(payload), nil
}

// numberPlan assigns stable EP-/ST- IDs and drops empty entries.
func numberPlan(payload planPayload) *Plan {
	plan := &Plan{}
	story := 0
	for _, e := range payload.Epics {
		if strings.TrimSpace(e.Title) == "" {
			continue
		}
		epic := Epic{
			ID:      fmt.Sprintf("EP-%03d", len(plan.Epics)+1),
			Title:   strings.TrimSpace(e.Title),
			Summary: strings.TrimSpace(e.Summary),
		}
		for _, s := range e.Stories {
			if strings.TrimSpace(s.Title) == "" {
				continue
			}
			story++
			epic.Stories = append(epic.Stories, Story{
				ID:                 fmt.Sprintf("ST-%03d", story),
				Title:              strings.TrimSpace(s.Title),
				AcceptanceCriteria: s.AcceptanceCriteria,
				Requirements:       s.Requirements,
			})
		}
		plan.Epics = append(plan.Epics, epic)
	}
	return plan
}

// FallbackPlan derives a plan from the structured requirements alone: one
// epic per BRD objective (or a single delivery epic), requirements spread
// across them in order, one story per requirement.
func FallbackPlan(artifact *brd.Artifact) *Plan {
	objectives := artifact.BRD.Objectives
	if len(objectives) == 0 {
		objectives = []string{"Delivery"}
	}

	plan := &Plan{Epics: make([]Epic, len(objectives))}
	for i, obj := range objectives {
		plan.Epics[i] = Epic{
			ID:      fmt.Sprintf("EP-%03d", i+1),
			Title:   utils.Truncate(obj, 80),
			Summary: obj,
		}
	}

	reqs := artifact.BRD.FunctionalRequirements
	for i, req := range reqs {
		epic := &plan.Epics[i%len(plan.Epics)]
		epic.Stories = append(epic.Stories, Story{
			ID:                 fmt.Sprintf("ST-%03d", i+1),
			Title:              utils.Truncate(req.Text, 80),
			AcceptanceCriteria: []string{req.Text},
			Requirements:       []string{req.ID},
		})
	}
	return plan
}

// Markdown renders the plan for human review.
func (p *Plan) Markdown() string {
	var b strings.Builder
	b.WriteString("# Delivery Plan\n")
	for _, e := range p.Epics {
		fmt.Fprintf(&b, "\n## %s: %s\n", e.ID, e.Title)
		if e.Summary != "" && e.Summary != e.Title {
			b.WriteString("\n" + e.Summary + "\n")
		}
		for _, s := range e.Stories {
			fmt.Fprintf(&b, "\n### %s: %s\n", s.ID, s.Title)
			for _, c := range s.AcceptanceCriteria {
				fmt.Fprintf(&b, "- [ ] %s\n", c)
			}
			if len(s.Requirements) > 0 {
				fmt.Fprintf(&b, "\nCovers: %s\n", strings.Join(s.Requirements, ", "))
			}
		}
	}
	return b.String()
}
