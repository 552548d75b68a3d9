package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// NewViper builds the viper instance the CLI binds flags into. Precedence
// ends up flags > BRDGEN_* environment > config file > defaults.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("BRDGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the effective configuration for a workspace: the workspace
// dot directory first, then the home fallback. A missing config file is
// fine; a malformed one is not.
func Load(v *viper.Viper, root string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(DotDir(root))
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, DotDirName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDerivedDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every known key so environment overrides bind.
func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", DefaultProvider)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.embedding_model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout_seconds", DefaultLLMTimeoutSeconds)
	v.SetDefault("llm.fallback_mode", true)

	v.SetDefault("verification.max_iterations", DefaultMaxIterations)
	v.SetDefault("verification.min_confidence_for_approval", DefaultMinConfidenceForApproval)
	v.SetDefault("verification.confidence_when_unparseable", 0.0)
	v.SetDefault("verification.filesystem_fallback", true)
	v.SetDefault("verification.query_timeout_seconds", DefaultQueryTimeoutSeconds)
	v.SetDefault("verification.limits.max_entities_per_claim", DefaultMaxEntitiesPerClaim)
	v.SetDefault("verification.limits.max_patterns_per_claim", DefaultMaxPatternsPerClaim)
	v.SetDefault("verification.limits.results_per_query", DefaultResultsPerQuery)
	v.SetDefault("verification.limits.code_refs_per_evidence", DefaultCodeRefsPerEvidence)

	v.SetDefault("context.max_context_tokens", DefaultMaxContextTokens)
	v.SetDefault("context.files_per_component", DefaultFilesPerComponent)
	v.SetDefault("context.file_read_bytes", DefaultFileReadBytes)
	v.SetDefault("context.detail_level", string(DefaultDetailLevel))

	v.SetDefault("graph.backend", DefaultGraphBackend)
	v.SetDefault("graph.dsn", DefaultGraphDSN)
	v.SetDefault("workspace.backend", DefaultWorkspaceBackend)
	v.SetDefault("workspace.root", "")

	v.SetDefault("skills.dirs", []string{})
	v.SetDefault("skills.disable_builtin", false)

	v.SetDefault("policy.enabled", false)
	v.SetDefault("policy.dir", DefaultPolicyDir)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.api_key", "")
	v.SetDefault("telemetry.endpoint", "")

	v.SetDefault("logging.dir", DefaultLogDir)
	v.SetDefault("logging.stderr", false)
	v.SetDefault("logging.retention", DefaultLogRetention)
}

// applyDerivedDefaults fills values that depend on other settings: models
// per provider, API keys from the provider's conventional environment
// variables, and the section plan.
func applyDerivedDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = DefaultProvider
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModelForProvider(cfg.LLM.Provider)
	}
	if cfg.LLM.EmbeddingModel == "" {
		cfg.LLM.EmbeddingModel = DefaultEmbeddingModelForProvider(cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = ResolveAPIKey(cfg.LLM.Provider)
	}
	if len(cfg.Sections) == 0 {
		cfg.Sections = DefaultSections()
	}
	if cfg.Context.DetailLevel == "" {
		cfg.Context.DetailLevel = DefaultDetailLevel
	}
}

// ResolveAPIKey reads the provider's conventional environment variables.
func ResolveAPIKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "google":
		if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GEMINI_API_KEY")
	default:
		return ""
	}
}

// Validate checks the configuration against the struct tags.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
