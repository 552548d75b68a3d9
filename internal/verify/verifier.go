/*
Package verify grounds claims against the code graph and the workspace with
direct backend queries; the LLM is never in this loop. The verifier returns
detached evidence and never mutates orchestrator-owned state itself.
*/
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brdgen/internal/brd"
	"brdgen/internal/config"
	"brdgen/internal/graph"
	"brdgen/internal/runlog"
	"brdgen/internal/workspace"
)

// Evidence weights by query kind. Entity hits are the strongest signal,
// pattern hits slightly weaker, raw content grep weaker still.
const (
	entityWeight  = 0.95
	patternWeight = 0.90
	contentWeight = 0.85
)

// ErrBackendUnavailable marks a backend failure that cost a claim some
// evidence. It is logged, never propagated as a section failure.
var ErrBackendUnavailable = errors.New("verification backend unavailable")

// Verifier checks claims with bounded direct queries.
type Verifier struct {
	Graph     graph.Service
	Workspace workspace.Service

	Limits config.VerificationLimits

	// MinConfidence is the approval threshold claims are judged against.
	MinConfidence float64

	// FilesystemFallback enables the workspace content search for patterns
	// the graph knows nothing about.
	FilesystemFallback bool

	// QueryTimeout bounds each backend call. Zero means 30s.
	QueryTimeout time.Duration

	Log *runlog.Logger

	// OnEvidence, when set, is called after each evidence item is found.
	OnEvidence func(c *brd.Claim, item brd.EvidenceItem)
}

// Verify collects evidence for one claim. Backend failures skip that entity
// or pattern only; the returned list is detached and the claim untouched.
func (v *Verifier) Verify(ctx context.Context, c *brd.Claim) []brd.EvidenceItem {
	var items []brd.EvidenceItem

	limits := v.Limits
	if limits.MaxEntitiesPerClaim <= 0 {
		limits.MaxEntitiesPerClaim = config.DefaultMaxEntitiesPerClaim
	}
	if limits.MaxPatternsPerClaim <= 0 {
		limits.MaxPatternsPerClaim = config.DefaultMaxPatternsPerClaim
	}
	if limits.ResultsPerQuery <= 0 {
		limits.ResultsPerQuery = config.DefaultResultsPerQuery
	}
	if limits.CodeRefsPerEvidence <= 0 {
		limits.CodeRefsPerEvidence = config.DefaultCodeRefsPerEvidence
	}

	for i, entity := range c.MentionedEntities {
		if i >= limits.MaxEntitiesPerClaim {
			break
		}
		if ctx.Err() != nil {
			return items
		}
		if item, ok := v.verifyEntity(ctx, entity, limits); ok {
			items = append(items, item)
			v.notify(c, item)
		}
	}

	for i, pattern := range c.SearchPatterns {
		if i >= limits.MaxPatternsPerClaim {
			break
		}
		if ctx.Err() != nil {
			return items
		}
		item, ok := v.verifyPattern(ctx, pattern, limits)
		if !ok && v.FilesystemFallback && v.Workspace != nil {
			item, ok = v.verifyContent(ctx, pattern, limits)
		}
		if ok {
			items = append(items, item)
			v.notify(c, item)
		}
	}

	return items
}

// Finalize attaches evidence to the claim and derives its confidence and
// status: confidence is the strongest evidence weight, zero without
// evidence; Verified requires meeting the approval threshold. Contradicted
// is never set here - only the acceptance policy may mark a claim
// contradicted.
func (v *Verifier) Finalize(c *brd.Claim, items []brd.EvidenceItem) {
	c.Evidence = append(c.Evidence, items...)
	c.Confidence = brd.MaxEvidenceWeight(c.Evidence)

	switch {
	case len(c.Evidence) == 0:
		c.Confidence = 0
		c.Status = brd.ClaimStatusUnverified
	case c.Confidence >= v.MinConfidence:
		c.Status = brd.ClaimStatusVerified
	default:
		c.Status = brd.ClaimStatusUnverified
	}
}

func (v *Verifier) verifyEntity(ctx context.Context, entity string, limits config.VerificationLimits) (brd.EvidenceItem, bool) {
	qctx, cancel := v.queryContext(ctx)
	defer cancel()

	rows, err := v.Graph.FindEntities(qctx, entity, limits.ResultsPerQuery)
	if err != nil {
		v.logSkip("entity", entity, err)
		return brd.EvidenceItem{}, false
	}
	if len(rows) == 0 {
		return brd.EvidenceItem{}, false
	}
	return brd.EvidenceItem{
		Source:      brd.EvidenceSourceGraph,
		Kind:        "entity",
		Description: fmt.Sprintf("entity %q found %d time(s) in the code graph", entity, len(rows)),
		Query:       fmt.Sprintf("name contains %q", entity),
		CodeRefs:    codeRefs(rows, limits.CodeRefsPerEvidence),
		Weight:      entityWeight,
	}, true
}

func (v *Verifier) verifyPattern(ctx context.Context, pattern string, limits config.VerificationLimits) (brd.EvidenceItem, bool) {
	qctx, cancel := v.queryContext(ctx)
	defer cancel()

	rows, err := v.Graph.SearchEntities(qctx, pattern, limits.ResultsPerQuery)
	if err != nil {
		v.logSkip("pattern", pattern, err)
		return brd.EvidenceItem{}, false
	}
	if len(rows) == 0 {
		return brd.EvidenceItem{}, false
	}
	return brd.EvidenceItem{
		Source:      brd.EvidenceSourceGraph,
		Kind:        "pattern",
		Description: fmt.Sprintf("pattern %q matched %d entit(ies) in the code graph", pattern, len(rows)),
		Query:       fmt.Sprintf("name matches /%s/i", pattern),
		CodeRefs:    codeRefs(rows, limits.CodeRefsPerEvidence),
		Weight:      patternWeight,
	}, true
}

func (v *Verifier) verifyContent(ctx context.Context, pattern string, limits config.VerificationLimits) (brd.EvidenceItem, bool) {
	qctx, cancel := v.queryContext(ctx)
	defer cancel()

	matches, err := v.Workspace.Grep(qctx, pattern, limits.ResultsPerQuery)
	if err != nil {
		v.logSkip("content", pattern, err)
		return brd.EvidenceItem{}, false
	}
	if len(matches) == 0 {
		return brd.EvidenceItem{}, false
	}

	refs := make([]brd.CodeRef, 0, min(len(matches), limits.CodeRefsPerEvidence))
	for i, m := range matches {
		if i >= limits.CodeRefsPerEvidence {
			break
		}
		refs = append(refs, brd.CodeRef{FilePath: m.Path, StartLine: m.Line, EndLine: m.Line})
	}
	return brd.EvidenceItem{
		Source:      brd.EvidenceSourceFilesystem,
		Kind:        "content",
		Description: fmt.Sprintf("pattern %q found in %d source line(s)", pattern, len(matches)),
		Query:       fmt.Sprintf("grep /%s/i", pattern),
		CodeRefs:    refs,
		Weight:      contentWeight,
	}, true
}

func (v *Verifier) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := v.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (v *Verifier) notify(c *brd.Claim, item brd.EvidenceItem) {
	if v.OnEvidence != nil {
		v.OnEvidence(c, item)
	}
}

func (v *Verifier) logSkip(kind, subject string, err error) {
	if v.Log == nil {
		return
	}
	v.Log.Warn("verification_query_skipped",
		fmt.Sprintf("%s query for %q skipped", kind, subject),
		map[string]any{"error": fmt.Sprintf("%v: %v", ErrBackendUnavailable, err)})
}

func codeRefs(rows []graph.Entity, limit int) []brd.CodeRef {
	refs := make([]brd.CodeRef, 0, min(len(rows), limit))
	for i, row := range rows {
		if i >= limit {
			break
		}
		refs = append(refs, row.CodeRef())
	}
	return refs
}
