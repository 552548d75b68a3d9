/*
Package prompt builds the generation, claim-extraction, and feedback prompts
for the BRD pipeline. Prompts begin with trigger phrases that the LLM session
expands into skill instructions; this package never embeds skill bodies.
*/
package prompt

import (
	"fmt"
	"strings"

	"brdgen/internal/brd"
	"brdgen/internal/config"
	"brdgen/internal/utils"
	"brdgen/prompts"
)

// previousSectionChars bounds how much of each accepted section is carried
// into later prompts.
const previousSectionChars = 500

// Composer renders the pipeline's prompts.
type Composer struct {
	// Detail controls how expansive the generated sections should be.
	Detail config.DetailLevel

	// OverridesDir lets a project replace prompt skeletons
	// (.brdgen/prompts); empty uses the built-ins.
	OverridesDir string
}

// GenerationInput carries everything one section-generation prompt needs.
type GenerationInput struct {
	Section  config.SectionConfig
	Context  *brd.AggregatedContext
	Previous []brd.SectionResult
	Feedback string
}

// Generation renders the section-generation prompt with the fixed skeleton:
// trigger phrase, framing, section heading, context summary, previously
// accepted sections, feedback when present, detail directives, and the
// thinking instruction.
func (c *Composer) Generation(in GenerationInput) string {
	var b strings.Builder

	framing, err := prompts.Get(prompts.KeyGeneration, c.OverridesDir)
	if err != nil {
		framing = prompts.GenerationFraming
	}
	b.WriteString(framing)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Section: %s\n", in.Section.Name)
	if in.Section.TargetWords > 0 {
		fmt.Fprintf(&b, "Target length: about %d words.\n", in.Section.TargetWords)
	}
	if in.Section.Description != "" {
		fmt.Fprintf(&b, "Guidelines: %s\n", in.Section.Description)
	}
	b.WriteString("\n")

	c.writeContext(&b, in.Context)
	c.writePrevious(&b, in.Previous)

	if strings.TrimSpace(in.Feedback) != "" {
		b.WriteString(prompts.FeedbackHeader)
		b.WriteString("\n")
		b.WriteString(in.Feedback)
		b.WriteString("\n\n")
	}

	b.WriteString(c.detailDirective())
	b.WriteString("\n\n")
	b.WriteString(prompts.ThinkingInstruction)
	return b.String()
}

func (c *Composer) writeContext(b *strings.Builder, ac *brd.AggregatedContext) {
	if ac == nil {
		return
	}
	b.WriteString("## Codebase context\n\n")
	fmt.Fprintf(b, "Feature under documentation: %s\n\n", ac.Request)

	if len(ac.Components) > 0 {
		b.WriteString("Components:\n")
		for _, comp := range ac.Components {
			fmt.Fprintf(b, "- %s (%s) at %s\n", comp.Name, comp.Kind, comp.Path)
			if len(comp.Dependencies) > 0 {
				fmt.Fprintf(b, "  depends on: %s\n", strings.Join(comp.Dependencies, ", "))
			}
			if len(comp.Dependents) > 0 {
				fmt.Fprintf(b, "  used by: %s\n", strings.Join(comp.Dependents, ", "))
			}
		}
		b.WriteString("\n")
	}

	if len(ac.KeyFiles) > 0 {
		b.WriteString("Key files:\n")
		for _, f := range ac.KeyFiles {
			fmt.Fprintf(b, "- %s (relevance %.2f)\n", f.Path, f.Relevance)
		}
		b.WriteString("\n")
		for _, f := range ac.KeyFiles {
			fmt.Fprintf(b, "### %s\n```\n%s\n```\n\n", f.Path, f.Content)
		}
	}

	if len(ac.Schema.NodeLabels) > 0 || len(ac.Schema.RelationshipTypes) > 0 {
		fmt.Fprintf(b, "Code graph vocabulary: labels [%s], relations [%s]\n\n",
			strings.Join(ac.Schema.NodeLabels, ", "),
			strings.Join(ac.Schema.RelationshipTypes, ", "))
	}

	if len(ac.SimilarFeatures) > 0 {
		fmt.Fprintf(b, "Similar existing features: %s\n\n", strings.Join(ac.SimilarFeatures, ", "))
	}
}

func (c *Composer) writePrevious(b *strings.Builder, previous []brd.SectionResult) {
	if len(previous) == 0 {
		return
	}
	b.WriteString("## Previously written sections (for continuity)\n\n")
	for _, s := range previous {
		fmt.Fprintf(b, "### %s\n%s\n\n", s.Name, utils.Truncate(s.Content, previousSectionChars))
	}
}

func (c *Composer) detailDirective() string {
	switch c.Detail {
	case config.DetailConcise:
		return "Write 1-2 tight paragraphs. No filler."
	case config.DetailDetailed:
		return "Write a comprehensive section with concrete code references (file paths, entity names) for every statement."
	default:
		return "Write 2-4 paragraphs covering the essentials."
	}
}

// Extraction renders the claim-extraction prompt for one generated section.
func (c *Composer) Extraction(section, text string) string {
	framing, err := prompts.Get(prompts.KeyExtraction, c.OverridesDir)
	if err != nil {
		framing = prompts.ExtractionFraming
	}
	var b strings.Builder
	b.WriteString(framing)
	fmt.Fprintf(&b, "\n\n## Section: %s\n\n<section_text>\n%s\n</section_text>\n", section, text)
	return b.String()
}

// Feedback turns a below-threshold section result into the targeted feedback
// block for the next iteration: first five issues, first five unverified
// claims, first three suggestions.
func Feedback(res brd.SectionResult) string {
	var b strings.Builder

	for i, issue := range res.Issues {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "- %s\n", issue)
	}

	count := 0
	for _, cl := range res.Claims {
		if cl.Status != brd.ClaimStatusUnverified {
			continue
		}
		if count == 5 {
			break
		}
		fmt.Fprintf(&b, "- Unverified claim, remove or fix: %q\n", utils.Truncate(cl.Text, 200))
		count++
	}

	for i, s := range res.Suggestions {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "- Suggestion: %s\n", s)
	}

	return strings.TrimRight(b.String(), "\n")
}
