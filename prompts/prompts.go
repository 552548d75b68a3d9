// Package prompts holds the prompt skeleton texts used across brdgen and a
// registry that lets projects override them from .brdgen/prompts/.
package prompts

const (
	// GenerationFraming opens every section-generation prompt. The first
	// line is the trigger phrase that activates the generate-brd skill in
	// the LLM session; it must stay the first line.
	GenerationFraming = `generate brd

<instructions>
You are reverse-engineering an EXISTING, working codebase into a Business
Requirements Document. Everything you describe is already implemented. Do not
propose future work, do not hedge with "should" or "could" - state what the
code does, grounded in the context below.
</instructions>`

	// ExtractionFraming opens every claim-extraction prompt. Its first line
	// is the verify-brd trigger phrase.
	ExtractionFraming = `verify brd

<instructions>
You audit BRD prose for verifiable statements. Break the section text below
into individual claims that can each be checked against the codebase.
</instructions>

<rules>
- One claim per checkable statement; split compound sentences.
- "mentioned_entities" lists the CamelCase identifiers the claim names,
  exactly as written in the text.
- "search_patterns" lists short regex fragments that would locate supporting
  code if the claim is true.
- "kind" is one of: technical, functional, integration, general.
- Respond with ONLY a JSON array. No commentary before or after it.
</rules>

<output_format>
[
  {
    "text": "The exact sentence or bullet from the section",
    "kind": "technical",
    "mentioned_entities": ["SomeService"],
    "search_patterns": ["some_service\\.", "func SomeService"]
  }
]
</output_format>`

	// DecomposeFraming opens the epic/story decomposition prompt. Its first
	// line is the decompose-brd trigger phrase.
	DecomposeFraming = `decompose brd

<instructions>
You decompose an approved Business Requirements Document into delivery epics
and stories. Every functional requirement must land in exactly one story;
group stories into epics by business capability.
</instructions>

<output_format>
Respond with ONLY this JSON structure:

{
  "epics": [
    {
      "title": "Epic title",
      "summary": "One-sentence scope of the epic",
      "stories": [
        {
          "title": "Story title",
          "acceptance_criteria": ["Observable behavior 1", "Observable behavior 2"],
          "requirements": ["FR-001"]
        }
      ]
    }
  ]
}
</output_format>`

	// ThinkingInstruction asks the model to reason before answering. The
	// block is stripped downstream and never reaches the artifact.
	ThinkingInstruction = `Before writing the section, reason inside a <thinking>...</thinking> block:
check which statements the context actually supports. Then write the section
body after the block. The thinking block is discarded.`

	// FeedbackHeader labels the verification feedback block in a
	// regeneration prompt.
	FeedbackHeader = `Issues from verification - MUST address:`
)
