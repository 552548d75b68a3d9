// Package llm unifies chat-model access over CloudWeGo Eino: a provider
// factory, a timeout-and-fallback adapter, and a deterministic mock model
// for offline runs and tests.
package llm

import (
	"context"
	"fmt"
	"os"

	geminiEmbed "github.com/cloudwego/eino-ext/components/embedding/gemini"
	ollamaEmbed "github.com/cloudwego/eino-ext/components/embedding/ollama"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
)

// Supported provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
	ProviderMock      = "mock"

	DefaultOllamaURL = "http://localhost:11434"
)

// Config describes one model session.
type Config struct {
	Provider       string
	Model          string
	EmbeddingModel string
	APIKey         string
	BaseURL        string

	// TimeoutSeconds bounds each completion call. Zero means 300.
	TimeoutSeconds int

	// FallbackMode substitutes deterministic canned text when a call fails
	// so the generation loop keeps moving. Off in tests so failures surface.
	FallbackMode bool

	// SkillDirs are registered with the session once at creation so trigger
	// phrases in prompts activate skill instructions.
	SkillDirs []string
}

// NewChatModel creates the Eino chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		})

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})

	case ProviderGoogle:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		// The gemini extension reads its key from the environment.
		_ = os.Setenv("GOOGLE_API_KEY", cfg.APIKey)
		_ = os.Setenv("GEMINI_API_KEY", cfg.APIKey)
		return gemini.NewChatModel(ctx, &gemini.Config{
			Model: cfg.Model,
		})

	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   cfg.Model,
		})

	case ProviderMock:
		return NewMockModel(nil), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, anthropic, google, ollama, mock)", cfg.Provider)
	}
}

// NewEmbedder creates the embedding model used for context relevance
// ranking. Anthropic has no embedding endpoint; callers fall back to the
// default relevance score when this errors.
func NewEmbedder(ctx context.Context, cfg Config) (embedding.Embedder, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
			Model:  cfg.EmbeddingModel,
			APIKey: cfg.APIKey,
		})

	case ProviderGoogle:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		_ = os.Setenv("GOOGLE_API_KEY", cfg.APIKey)
		_ = os.Setenv("GEMINI_API_KEY", cfg.APIKey)
		return geminiEmbed.NewEmbedder(ctx, &geminiEmbed.EmbeddingConfig{
			Model: cfg.EmbeddingModel,
		})

	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		return ollamaEmbed.NewEmbedder(ctx, &ollamaEmbed.EmbeddingConfig{
			BaseURL: baseURL,
			Model:   cfg.EmbeddingModel,
		})

	default:
		return nil, fmt.Errorf("no embedding support for provider: %s", cfg.Provider)
	}
}
