/*
Package brd defines the domain types shared by the BRD generation pipeline:
claims extracted from generated prose, the evidence that grounds them, and
the section and run level rollups assembled into the final artifact.
*/
package brd

import "time"

// ClaimKind categorizes what a claim asserts about the codebase.
type ClaimKind string

const (
	ClaimKindTechnical   ClaimKind = "technical"
	ClaimKindFunctional  ClaimKind = "functional"
	ClaimKindIntegration ClaimKind = "integration"
	ClaimKindGeneral     ClaimKind = "general"
)

// ClaimKindFromString normalizes free-form kind strings coming back from the
// model. Unknown kinds collapse to general rather than failing the claim.
func ClaimKindFromString(s string) ClaimKind {
	switch ClaimKind(s) {
	case ClaimKindTechnical, ClaimKindFunctional, ClaimKindIntegration, ClaimKindGeneral:
		return ClaimKind(s)
	default:
		return ClaimKindGeneral
	}
}

// ClaimStatus tracks the verification state of a claim.
type ClaimStatus string

const (
	ClaimStatusUnverified   ClaimStatus = "unverified"
	ClaimStatusVerified     ClaimStatus = "verified"
	ClaimStatusContradicted ClaimStatus = "contradicted"
)

// EvidenceSource identifies which backend produced an evidence item.
type EvidenceSource string

const (
	EvidenceSourceGraph      EvidenceSource = "graph"
	EvidenceSourceFilesystem EvidenceSource = "filesystem"
)

// CodeRef points at a concrete location in the analyzed codebase.
type CodeRef struct {
	FilePath   string `json:"file_path"`
	StartLine  int    `json:"start_line,omitempty"`
	EndLine    int    `json:"end_line,omitempty"`
	EntityName string `json:"entity_name,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
}

// EvidenceItem is one backend query result supporting a claim.
// Items are immutable once attached to a claim.
type EvidenceItem struct {
	Source      EvidenceSource `json:"source"`
	Kind        string         `json:"kind"`
	Description string         `json:"description"`
	Query       string         `json:"query"`
	CodeRefs    []CodeRef      `json:"code_refs,omitempty"`
	Weight      float64        `json:"weight"`
}

// Claim is one verifiable statement extracted from generated prose.
type Claim struct {
	ID                string         `json:"id"`
	Text              string         `json:"text"`
	Section           string         `json:"section"`
	Kind              ClaimKind      `json:"kind"`
	MentionedEntities []string       `json:"mentioned_entities,omitempty"`
	SearchPatterns    []string       `json:"search_patterns,omitempty"`
	Evidence          []EvidenceItem `json:"evidence,omitempty"`
	Status            ClaimStatus    `json:"status"`
	Confidence        float64        `json:"confidence"`
}

// SectionResult is the frozen outcome of one section of the BRD.
// Confidence is the mean of claim confidences, zero when no claims exist.
type SectionResult struct {
	Name        string   `json:"name"`
	Content     string   `json:"generated_text"`
	Claims      []Claim  `json:"claims"`
	Confidence  float64  `json:"overall_confidence"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Iterations  int      `json:"iterations"`
	Accepted    bool     `json:"accepted"`
}

// Component is one code entity group discovered through the graph.
type Component struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Path         string   `json:"path"`
	Dependencies []string `json:"dependencies,omitempty"`
	Dependents   []string `json:"dependents,omitempty"`
}

// KeyFile is one source file selected for prompt context.
type KeyFile struct {
	Path      string  `json:"path"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
}

// SchemaInfo is the discovered code-graph vocabulary.
type SchemaInfo struct {
	NodeLabels        []string `json:"node_labels,omitempty"`
	RelationshipTypes []string `json:"relationship_types,omitempty"`
}

// AggregatedContext is the compact codebase snapshot built once per run.
// It is read-only after construction.
type AggregatedContext struct {
	Request         string      `json:"request"`
	Components      []Component `json:"components"`
	KeyFiles        []KeyFile   `json:"key_files"`
	Schema          SchemaInfo  `json:"schema"`
	SimilarFeatures []string    `json:"similar_features,omitempty"`
	EstimatedTokens int         `json:"estimated_tokens"`
}

// Requirement is one numbered requirement extracted from the BRD text.
type Requirement struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Document is the structured view over the generated BRD Markdown.
// The raw Markdown remains the authoritative content.
type Document struct {
	Title                  string        `json:"title"`
	Version                string        `json:"version"`
	CreatedAt              time.Time     `json:"created_at"`
	BusinessContext        string        `json:"business_context"`
	Objectives             []string      `json:"objectives,omitempty"`
	FunctionalRequirements []Requirement `json:"functional_requirements"`
	TechnicalRequirements  []Requirement `json:"technical_requirements"`
	Dependencies           []string      `json:"dependencies,omitempty"`
	Risks                  []string      `json:"risks,omitempty"`
	RawMarkdown            string        `json:"raw_markdown"`
}

// EvidenceBundle is the run-level verification rollup.
type EvidenceBundle struct {
	Sections          []SectionResult `json:"sections"`
	TotalClaims       int             `json:"total_claims"`
	VerifiedClaims    int             `json:"verified_claims"`
	OverallConfidence float64         `json:"overall_confidence"`
	HallucinationRisk RiskLevel       `json:"hallucination_risk"`
}

// RunMetadata captures run accounting for the final artifact.
type RunMetadata struct {
	RunID             string    `json:"run_id"`
	Iterations        int       `json:"iterations"`
	Regenerations     int       `json:"regenerations"`
	ClaimsVerified    int       `json:"claims_verified"`
	ClaimsFailed      int       `json:"claims_failed"`
	GenerationTimeMs  int64     `json:"generation_time_ms"`
	OverallConfidence float64   `json:"overall_confidence"`
	HallucinationRisk RiskLevel `json:"hallucination_risk"`
	Cancelled         bool      `json:"cancelled"`
}

// Artifact is the complete result of one generation run.
type Artifact struct {
	BRD      Document       `json:"brd"`
	Evidence EvidenceBundle `json:"evidence"`
	Metadata RunMetadata    `json:"metadata"`
}
