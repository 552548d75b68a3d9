package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// starterConfig is written by `brdgen config init`. It documents the most
// commonly edited keys and leaves the rest to defaults.
const starterConfig = `# brdgen configuration.
# Precedence: flags > BRDGEN_* environment > this file > defaults.

llm:
  provider: openai # openai | anthropic | google | ollama | mock
  # model: gpt-4o-mini
  # api_key: read from OPENAI_API_KEY / ANTHROPIC_API_KEY / GOOGLE_API_KEY

verification:
  max_iterations: 3
  min_confidence_for_approval: 0.7
  filesystem_fallback: true

context:
  max_context_tokens: 100000
  detail_level: standard # concise | standard | detailed

graph:
  backend: sqlite # sqlite | mcp
  dsn: .brdgen/graph.db

# policy:
#   enabled: true
#   dir: .brdgen/policies

# telemetry:
#   enabled: true
#   api_key: phc_...
`

// WriteStarterConfig writes the starter config file into the workspace dot
// directory. It refuses to overwrite an existing file.
func WriteStarterConfig(root string) (string, error) {
	dir, err := EnsureDotDir(root)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", DotDirName, err)
	}
	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return "", fmt.Errorf("write starter config: %w", err)
	}
	return path, nil
}
