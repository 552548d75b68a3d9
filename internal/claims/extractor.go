/*
Package claims turns generated section prose into structured, verifiable
claims by prompting the model for a JSON array and parsing it defensively.
A response that cannot be parsed yields an empty claim list, never an error:
the section is then treated as partial rather than failing the run.
*/
package claims

import (
	"context"
	"strings"

	"brdgen/internal/brd"
	"brdgen/internal/runlog"
	"brdgen/internal/util"
	"brdgen/internal/utils"
)

// Completer is the single LLM surface the extractor needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// PromptFunc renders the extraction prompt for one section.
type PromptFunc func(section, text string) string

// claimPayload is the JSON element shape the model is asked to return.
type claimPayload struct {
	Text              string   `json:"text"`
	Kind              string   `json:"kind"`
	MentionedEntities []string `json:"mentioned_entities"`
	SearchPatterns    []string `json:"search_patterns"`
}

// Extractor extracts claims from generated prose.
type Extractor struct {
	LLM    Completer
	Prompt PromptFunc

	// InitialConfidence is assigned to freshly extracted claims before
	// verification. Kept at 0 by default: the direct-query verifier is
	// canonical and an unverified claim must not look half-trusted.
	InitialConfidence float64

	Log *runlog.Logger
}

// Extract asks the model to decompose the section text into claims. Claims
// with empty text are dropped; unknown kinds normalize to general; no
// deduplication happens beyond order-preserving identity.
func (e *Extractor) Extract(ctx context.Context, section, text string) []brd.Claim {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	response, err := e.LLM.Complete(ctx, e.Prompt(section, text))
	if err != nil {
		e.logParseFailure(section, err)
		return nil
	}

	payloads, err := utils.ExtractJSON[[]claimPayload](response)
	if err != nil {
		e.logParseFailure(section, err)
		return nil
	}

	claims := make([]brd.Claim, 0, len(payloads))
	for _, p := range payloads {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		claims = append(claims, brd.Claim{
			ID:                util.NewClaimID(),
			Text:              strings.TrimSpace(p.Text),
			Section:           section,
			Kind:              brd.ClaimKindFromString(p.Kind),
			MentionedEntities: trimBlank(p.MentionedEntities),
			SearchPatterns:    trimBlank(p.SearchPatterns),
			Status:            brd.ClaimStatusUnverified,
			Confidence:        e.InitialConfidence,
		})
	}
	return claims
}

func (e *Extractor) logParseFailure(section string, err error) {
	if e.Log == nil {
		return
	}
	e.Log.WithSection(section).Error("claim_extraction_failed",
		"claim extraction produced no usable claims", err, nil)
}

func trimBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
