package config

// Default values applied by SetDefaults. Anything not listed here defaults
// to its zero value.
const (
	DefaultProvider    = "openai"
	DefaultDetailLevel = DetailStandard

	DefaultMaxIterations            = 3
	DefaultMinConfidenceForApproval = 0.7

	DefaultMaxEntitiesPerClaim = 10
	DefaultMaxPatternsPerClaim = 5
	DefaultResultsPerQuery     = 20
	DefaultCodeRefsPerEvidence = 10

	DefaultMaxContextTokens  = 100000
	DefaultFilesPerComponent = 5
	DefaultFileReadBytes     = 16384

	DefaultLLMTimeoutSeconds   = 300
	DefaultQueryTimeoutSeconds = 30

	DefaultGraphBackend     = "sqlite"
	DefaultGraphDSN         = ".brdgen/graph.db"
	DefaultWorkspaceBackend = "local"

	DefaultLogDir       = ".brdgen/logs"
	DefaultLogRetention = 5

	DefaultPolicyDir = ".brdgen/policies"
)

// DefaultModelForProvider returns the model used when none is configured.
func DefaultModelForProvider(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-sonnet-4-20250514"
	case "google":
		return "gemini-2.0-flash"
	case "ollama":
		return "llama3.2"
	case "openai":
		return "gpt-4o-mini"
	default:
		return ""
	}
}

// DefaultEmbeddingModelForProvider returns the embedding model used for
// context relevance ranking when none is configured. Anthropic has no
// embedding endpoint, so it borrows OpenAI's.
func DefaultEmbeddingModelForProvider(provider string) string {
	switch provider {
	case "google":
		return "text-embedding-004"
	case "ollama":
		return "nomic-embed-text"
	default:
		return "text-embedding-3-small"
	}
}

// DefaultSections is the BRD section plan used when the config file does
// not declare one.
func DefaultSections() []SectionConfig {
	return []SectionConfig{
		{
			Name:        "Executive Summary",
			Description: "One-paragraph summary of the feature, who it serves, and the expected outcome.",
			TargetWords: 150,
			Required:    true,
		},
		{
			Name:        "Business Context",
			Description: "The problem being solved, current limitations, and why this work matters now.",
			TargetWords: 300,
			Required:    true,
		},
		{
			Name:        "Functional Requirements",
			Description: "Numbered, testable requirements describing what the system must do.",
			TargetWords: 500,
			Required:    true,
		},
		{
			Name:        "Technical Specifications",
			Description: "How the feature integrates with the existing architecture, naming real components and files.",
			TargetWords: 500,
			Required:    true,
		},
		{
			Name:        "Non-Functional Requirements",
			Description: "Performance, security, and reliability expectations.",
			TargetWords: 250,
			Required:    false,
		},
		{
			Name:        "Dependencies and Risks",
			Description: "Upstream dependencies, open risks, and mitigations.",
			TargetWords: 250,
			Required:    false,
		},
	}
}
