// Package config holds brdgen's configuration model, defaults, and loading.
// All default values live here so there is a single source of truth.
package config

// DetailLevel controls how expansive generated sections are.
type DetailLevel string

const (
	DetailConcise  DetailLevel = "concise"
	DetailStandard DetailLevel = "standard"
	DetailDetailed DetailLevel = "detailed"
)

// Config is the complete application configuration.
type Config struct {
	LLM          LLMConfig          `mapstructure:"llm"`
	Verification VerificationConfig `mapstructure:"verification"`
	Context      ContextConfig      `mapstructure:"context"`
	Sections     []SectionConfig    `mapstructure:"sections" validate:"dive"`
	Graph        GraphConfig        `mapstructure:"graph"`
	Workspace    WorkspaceConfig    `mapstructure:"workspace"`
	Skills       SkillsConfig       `mapstructure:"skills"`
	Policy       PolicyConfig       `mapstructure:"policy"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// LLMConfig configures the model adapter.
type LLMConfig struct {
	Provider       string `mapstructure:"provider" validate:"omitempty,oneof=openai anthropic google ollama mock"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	// TimeoutSeconds bounds each completion call.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"omitempty,min=1,max=3600"`
	// FallbackMode substitutes a deterministic mock response when a call
	// fails, keeping the generation loop moving. On for production runs,
	// off in tests so failures surface.
	FallbackMode bool `mapstructure:"fallback_mode"`
}

// VerificationLimits bounds the per-claim query fan-out.
type VerificationLimits struct {
	MaxEntitiesPerClaim int `mapstructure:"max_entities_per_claim" validate:"omitempty,min=1"`
	MaxPatternsPerClaim int `mapstructure:"max_patterns_per_claim" validate:"omitempty,min=1"`
	ResultsPerQuery     int `mapstructure:"results_per_query" validate:"omitempty,min=1"`
	CodeRefsPerEvidence int `mapstructure:"code_refs_per_evidence" validate:"omitempty,min=1"`
}

// VerificationConfig drives the generate-verify-regenerate loop.
type VerificationConfig struct {
	MaxIterations            int     `mapstructure:"max_iterations" validate:"omitempty,min=1,max=10"`
	MinConfidenceForApproval float64 `mapstructure:"min_confidence_for_approval" validate:"omitempty,min=0,max=1"`
	// ConfidenceWhenUnparseable is the confidence assigned when a
	// verification response cannot be parsed. Defaults to 0: an unparseable
	// answer is treated as no answer rather than masked as half-verified.
	ConfidenceWhenUnparseable float64 `mapstructure:"confidence_when_unparseable" validate:"omitempty,min=0,max=1"`
	// FilesystemFallback lets the verifier grep the workspace for patterns
	// the graph knows nothing about.
	FilesystemFallback bool               `mapstructure:"filesystem_fallback"`
	QueryTimeoutSecs   int                `mapstructure:"query_timeout_seconds" validate:"omitempty,min=1,max=600"`
	Limits             VerificationLimits `mapstructure:"limits"`
}

// ContextConfig bounds context aggregation.
type ContextConfig struct {
	MaxContextTokens  int         `mapstructure:"max_context_tokens" validate:"omitempty,min=1000"`
	FilesPerComponent int         `mapstructure:"files_per_component" validate:"omitempty,min=1,max=50"`
	FileReadBytes     int         `mapstructure:"file_read_bytes" validate:"omitempty,min=256"`
	DetailLevel       DetailLevel `mapstructure:"detail_level" validate:"omitempty,oneof=concise standard detailed"`
}

// SectionConfig describes one BRD section to generate.
type SectionConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Description string `mapstructure:"description"`
	TargetWords int    `mapstructure:"target_words" validate:"omitempty,min=10"`
	Required    bool   `mapstructure:"required"`
}

// GraphConfig selects and configures the code-graph backend.
type GraphConfig struct {
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=sqlite mcp"`
	// DSN is the SQLite database path for the local backend.
	DSN string `mapstructure:"dsn"`
	// MCPCommand launches the external graph server for the mcp backend.
	MCPCommand []string `mapstructure:"mcp_command"`
}

// WorkspaceConfig selects and configures the filesystem backend.
type WorkspaceConfig struct {
	Root       string   `mapstructure:"root"`
	Backend    string   `mapstructure:"backend" validate:"omitempty,oneof=local mcp"`
	MCPCommand []string `mapstructure:"mcp_command"`
}

// SkillsConfig configures skill definition loading.
type SkillsConfig struct {
	Dirs           []string `mapstructure:"dirs"`
	DisableBuiltin bool     `mapstructure:"disable_builtin"`
}

// PolicyConfig enables the Rego acceptance gate.
type PolicyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// TelemetryConfig configures opt-in anonymous usage reporting.
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoggingConfig configures the JSONL run log.
type LoggingConfig struct {
	Dir       string `mapstructure:"dir"`
	Stderr    bool   `mapstructure:"stderr"`
	Retention int    `mapstructure:"retention" validate:"omitempty,min=1,max=100"`
}
