/*
Package assemble turns frozen section results into the final deliverables:
the Markdown document, the structured brd.Document view over it, and the
run-level evidence bundle. Assembly is pure - no backends, no LLM.
*/
package assemble

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"brdgen/internal/brd"
)

// Section names the structured extraction keys on. These match the default
// section plan; custom sections still render in Markdown but contribute
// nothing to the structured view.
const (
	sectionExecutiveSummary = "Executive Summary"
	sectionBusinessContext  = "Business Context"
	sectionFunctionalReqs   = "Functional Requirements"
	sectionTechnicalSpecs   = "Technical Specifications"
	sectionNonFunctional    = "Non-Functional Requirements"
	sectionDepsAndRisks     = "Dependencies and Risks"
)

var titleCaser = cases.Title(language.English)

// Markdown renders the full BRD document. Sections appear in the order
// they were processed, each under a level-two heading.
func Markdown(title string, sections []brd.SectionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", titleCaser.String(title))

	for _, s := range sections {
		b.WriteString("\n## ")
		b.WriteString(s.Name)
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(s.Content))
		b.WriteString("\n")
	}
	return b.String()
}

// Document builds the structured view over the assembled sections. The raw
// Markdown stays authoritative; extraction here is line-based and lossy by
// design.
func Document(title string, sections []brd.SectionResult) brd.Document {
	doc := brd.Document{
		Title:       titleCaser.String(title),
		Version:     "1.0",
		CreatedAt:   time.Now().UTC(),
		RawMarkdown: Markdown(title, sections),
	}

	var technical []string
	for _, s := range sections {
		switch s.Name {
		case sectionExecutiveSummary:
			doc.Objectives = bulletLines(s.Content)
		case sectionBusinessContext:
			doc.BusinessContext = strings.TrimSpace(s.Content)
		case sectionFunctionalReqs:
			doc.FunctionalRequirements = numberRequirements("FR", requirementLines(s.Content))
		case sectionTechnicalSpecs, sectionNonFunctional:
			technical = append(technical, requirementLines(s.Content)...)
		case sectionDepsAndRisks:
			for _, line := range bulletLines(s.Content) {
				if strings.Contains(strings.ToLower(line), "risk") {
					doc.Risks = append(doc.Risks, line)
				} else {
					doc.Dependencies = append(doc.Dependencies, line)
				}
			}
		}
	}
	doc.TechnicalRequirements = numberRequirements("TR", technical)
	return doc
}

// Bundle rolls the sections up into the run-level evidence summary.
func Bundle(sections []brd.SectionResult) brd.EvidenceBundle {
	return brd.NewEvidenceBundle(sections)
}

// requirementLines picks lines that read as individual requirements:
// pre-numbered FR-/REQ- lines and plain bullets. Prose paragraphs are not
// requirements.
func requirementLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "FR-"), strings.HasPrefix(line, "REQ-"):
			out = append(out, stripRequirementPrefix(line))
		case strings.HasPrefix(line, "- "):
			out = append(out, strings.TrimSpace(line[2:]))
		}
	}
	return out
}

// stripRequirementPrefix removes a leading "FR-12:"-style tag so the text
// can be renumbered consistently.
func stripRequirementPrefix(line string) string {
	if i := strings.IndexAny(line, ":."); i > 0 && i < 12 {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

func numberRequirements(prefix string, texts []string) []brd.Requirement {
	reqs := make([]brd.Requirement, 0, len(texts))
	for _, text := range texts {
		if text == "" {
			continue
		}
		reqs = append(reqs, brd.Requirement{
			ID:   fmt.Sprintf("%s-%03d", prefix, len(reqs)+1),
			Text: text,
		})
	}
	return reqs
}

func bulletLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range []string{"- ", "* "} {
			if strings.HasPrefix(line, marker) {
				if text := strings.TrimSpace(line[len(marker):]); text != "" {
					out = append(out, text)
				}
				break
			}
		}
	}
	return out
}
