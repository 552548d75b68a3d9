package decompose

import (
	"context"
	"errors"
	"strings"
	"testing"

	"brdgen/internal/brd"
	"brdgen/internal/llm"
)

func sampleArtifact() *brd.Artifact {
	return &brd.Artifact{
		BRD: brd.Document{
			Title:      "User Auth",
			Objectives: []string{"Ship login", "Reduce churn"},
			FunctionalRequirements: []brd.Requirement{
				{ID: "FR-001", Text: "Users can log in with email and password."},
				{ID: "FR-002", Text: "Sessions expire after 24 hours."},
				{ID: "FR-003", Text: "Passwords are stored hashed."},
			},
			RawMarkdown: "# User Auth\n\n## Functional Requirements\n\n- Users can log in.",
		},
	}
}

const planJSON = `{
  "epics": [
    {
      "title": "Authentication",
      "summary": "Core login flow",
      "stories": [
        {"title": "Email login", "acceptance_criteria": ["User logs in"], "requirements": ["FR-001"]},
        {"title": "Session expiry", "acceptance_criteria": ["Session times out"], "requirements": ["FR-002"]}
      ]
    },
    {
      "title": "Security",
      "summary": "Credential storage",
      "stories": [
        {"title": "Password hashing", "requirements": ["FR-003"]}
      ]
    }
  ]
}`

func TestDecomposeViaModel(t *testing.T) {
	d := &Decomposer{Model: llm.NewMockModel([]string{planJSON})}

	plan, err := d.Decompose(context.Background(), sampleArtifact())
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	if len(plan.Epics) != 2 {
		t.Fatalf("epics = %+v", plan.Epics)
	}
	if plan.Epics[0].ID != "EP-001" || plan.Epics[1].ID != "EP-002" {
		t.Errorf("epic IDs = %s, %s", plan.Epics[0].ID, plan.Epics[1].ID)
	}
	// Story IDs number across epics.
	if plan.Epics[1].Stories[0].ID != "ST-003" {
		t.Errorf("story ID = %s", plan.Epics[1].Stories[0].ID)
	}
	if plan.StoryCount() != 3 {
		t.Errorf("story count = %d", plan.StoryCount())
	}
}

func TestDecomposePromptCarriesTriggerAndMarkdown(t *testing.T) {
	m := llm.NewMockModel([]string{planJSON})
	d := &Decomposer{Model: m}

	if _, err := d.Decompose(context.Background(), sampleArtifact()); err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	prompts := m.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("prompts = %d", len(prompts))
	}
	if !strings.HasPrefix(prompts[0], "decompose brd\n") {
		t.Error("prompt must start with the decompose trigger phrase")
	}
	if !strings.Contains(prompts[0], "## Functional Requirements") {
		t.Error("BRD markdown missing from prompt")
	}
}

func TestDecomposeFallsBackOnModelError(t *testing.T) {
	m := llm.NewMockModel(nil)
	m.Err = errors.New("provider down")
	d := &Decomposer{Model: m}

	plan, err := d.Decompose(context.Background(), sampleArtifact())
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	// Two objectives, so two epics; three requirements spread across them.
	if len(plan.Epics) != 2 || plan.StoryCount() != 3 {
		t.Errorf("fallback plan = %+v", plan)
	}
}

func TestDecomposeFallsBackOnUnparseableOutput(t *testing.T) {
	d := &Decomposer{Model: llm.NewMockModel([]string{"no json here"})}

	plan, err := d.Decompose(context.Background(), sampleArtifact())
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(plan.Epics) != 2 {
		t.Errorf("fallback plan = %+v", plan)
	}
}

func TestDecomposeNilModelUsesFallback(t *testing.T) {
	d := &Decomposer{}
	plan, err := d.Decompose(context.Background(), sampleArtifact())
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(plan.Epics) != 2 {
		t.Fatalf("epics = %+v", plan.Epics)
	}
}

func TestDecomposeNilArtifact(t *testing.T) {
	d := &Decomposer{}
	if _, err := d.Decompose(context.Background(), nil); err == nil {
		t.Error("expected error for nil artifact")
	}
}

func TestFallbackPlanWithoutObjectives(t *testing.T) {
	artifact := sampleArtifact()
	artifact.BRD.Objectives = nil

	plan := FallbackPlan(artifact)
	if len(plan.Epics) != 1 || plan.Epics[0].Title != "Delivery" {
		t.Fatalf("epics = %+v", plan.Epics)
	}
	if len(plan.Epics[0].Stories) != 3 {
		t.Errorf("stories = %+v", plan.Epics[0].Stories)
	}
	first := plan.Epics[0].Stories[0]
	if first.ID != "ST-001" || len(first.Requirements) != 1 || first.Requirements[0] != "FR-001" {
		t.Errorf("first story = %+v", first)
	}
	if len(first.AcceptanceCriteria) != 1 || first.AcceptanceCriteria[0] != "Users can log in with email and password." {
		t.Errorf("acceptance criteria = %v", first.AcceptanceCriteria)
	}
}

func TestPlanMarkdown(t *testing.T) {
	plan := FallbackPlan(sampleArtifact())
	md := plan.Markdown()

	for _, want := range []string{"# Delivery Plan", "## EP-001:", "### ST-001:", "- [ ]", "Covers: FR-001"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
