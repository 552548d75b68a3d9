package prompt

import (
	"strings"
	"testing"

	"brdgen/internal/brd"
	"brdgen/internal/config"
)

func sampleContext() *brd.AggregatedContext {
	return &brd.AggregatedContext{
		Request: "user authentication",
		Components: []brd.Component{
			{Name: "auth", Kind: "module", Path: "internal/auth", Dependencies: []string{"store"}},
		},
		KeyFiles: []brd.KeyFile{
			{Path: "internal/auth/login.go", Content: "func Login() {}", Relevance: 0.8},
		},
		Schema: brd.SchemaInfo{NodeLabels: []string{"function"}, RelationshipTypes: []string{"calls"}},
	}
}

func TestGenerationPromptSkeleton(t *testing.T) {
	c := &Composer{Detail: config.DetailStandard}
	got := c.Generation(GenerationInput{
		Section: config.SectionConfig{Name: "Executive Summary", Description: "Summarize.", TargetWords: 150},
		Context: sampleContext(),
	})

	if !strings.HasPrefix(got, "generate brd\n") {
		t.Error("prompt must start with the trigger phrase line")
	}
	for _, want := range []string{
		"## Section: Executive Summary",
		"about 150 words",
		"Guidelines: Summarize.",
		"auth (module) at internal/auth",
		"depends on: store",
		"internal/auth/login.go (relevance 0.80)",
		"labels [function], relations [calls]",
		"<thinking>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(got, "MUST address") {
		t.Error("feedback block present without feedback")
	}
}

func TestGenerationPromptCarriesPreviousSectionsTruncated(t *testing.T) {
	c := &Composer{}
	long := strings.Repeat("x", 2000)
	got := c.Generation(GenerationInput{
		Section:  config.SectionConfig{Name: "Business Context"},
		Context:  sampleContext(),
		Previous: []brd.SectionResult{{Name: "Executive Summary", Content: long}},
	})

	if !strings.Contains(got, "### Executive Summary") {
		t.Error("previous section missing")
	}
	if strings.Contains(got, long) {
		t.Error("previous section not truncated")
	}
}

func TestGenerationPromptIncludesFeedback(t *testing.T) {
	c := &Composer{}
	got := c.Generation(GenerationInput{
		Section:  config.SectionConfig{Name: "Executive Summary"},
		Context:  sampleContext(),
		Feedback: "- Unverified claim, remove or fix: \"uses Kafka\"",
	})
	if !strings.Contains(got, "MUST address") || !strings.Contains(got, "uses Kafka") {
		t.Error("feedback block missing")
	}
}

func TestDetailDirectives(t *testing.T) {
	tests := []struct {
		level config.DetailLevel
		want  string
	}{
		{config.DetailConcise, "1-2 tight paragraphs"},
		{config.DetailStandard, "2-4 paragraphs"},
		{config.DetailDetailed, "code references"},
	}
	for _, tt := range tests {
		c := &Composer{Detail: tt.level}
		got := c.Generation(GenerationInput{Section: config.SectionConfig{Name: "S"}, Context: sampleContext()})
		if !strings.Contains(got, tt.want) {
			t.Errorf("detail %s: missing %q", tt.level, tt.want)
		}
	}
}

func TestExtractionPrompt(t *testing.T) {
	c := &Composer{}
	got := c.Extraction("Functional Requirements", "The system hashes passwords.")
	if !strings.HasPrefix(got, "verify brd\n") {
		t.Error("extraction prompt must start with the verify trigger phrase")
	}
	if !strings.Contains(got, "The system hashes passwords.") {
		t.Error("section text missing")
	}
}

func TestFeedbackLimits(t *testing.T) {
	res := brd.SectionResult{
		Issues:      []string{"i1", "i2", "i3", "i4", "i5", "i6", "i7"},
		Suggestions: []string{"s1", "s2", "s3", "s4"},
	}
	for i := 0; i < 8; i++ {
		res.Claims = append(res.Claims, brd.Claim{
			Text:   "claim " + string(rune('a'+i)),
			Status: brd.ClaimStatusUnverified,
		})
	}

	got := Feedback(res)
	if strings.Contains(got, "i6") {
		t.Error("more than five issues included")
	}
	if strings.Contains(got, "claim f") {
		t.Error("more than five unverified claims included")
	}
	if strings.Contains(got, "s4") {
		t.Error("more than three suggestions included")
	}
	if !strings.Contains(got, "remove or fix") {
		t.Error("unverified claim directive missing")
	}
}

func TestFeedbackSkipsVerifiedClaims(t *testing.T) {
	res := brd.SectionResult{
		Claims: []brd.Claim{
			{Text: "good", Status: brd.ClaimStatusVerified, Confidence: 0.95},
			{Text: "bad", Status: brd.ClaimStatusUnverified},
		},
	}
	got := Feedback(res)
	if strings.Contains(got, `"good"`) {
		t.Error("verified claim listed in feedback")
	}
	if !strings.Contains(got, `"bad"`) {
		t.Error("unverified claim missing from feedback")
	}
}
