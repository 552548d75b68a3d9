package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key identifies one overridable prompt skeleton.
type Key string

const (
	// KeyGeneration is the section-generation framing.
	KeyGeneration Key = "Generation"
	// KeyExtraction is the claim-extraction framing.
	KeyExtraction Key = "Extraction"
	// KeyDecompose is the epic/story decomposition framing.
	KeyDecompose Key = "Decompose"
)

// promptConfig pairs a default text with its override filename.
type promptConfig struct {
	defaultContent string
	filename       string
}

var promptRegistry = map[Key]promptConfig{
	KeyGeneration: {defaultContent: GenerationFraming, filename: "generation.md"},
	KeyExtraction: {defaultContent: ExtractionFraming, filename: "extraction.md"},
	KeyDecompose:  {defaultContent: DecomposeFraming, filename: "decompose.md"},
}

// Get returns the prompt skeleton for key, preferring an override file in
// overridesDir (typically .brdgen/prompts) when one exists. An empty
// overridesDir always yields the built-in default.
func Get(key Key, overridesDir string) (string, error) {
	cfg, ok := promptRegistry[key]
	if !ok {
		return "", fmt.Errorf("unrecognized prompt key: %s", key)
	}
	if strings.TrimSpace(overridesDir) == "" {
		return cfg.defaultContent, nil
	}

	path := filepath.Join(overridesDir, cfg.filename)
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		return string(content), nil
	case os.IsNotExist(err):
		return cfg.defaultContent, nil
	default:
		return "", fmt.Errorf("read prompt override %s: %w", path, err)
	}
}

// MustGet is Get without an override directory; it cannot fail for the
// built-in keys.
func MustGet(key Key) string {
	s, err := Get(key, "")
	if err != nil {
		panic(err)
	}
	return s
}
