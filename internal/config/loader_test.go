package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	dir := DotDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()

	cfg, err := Load(NewViper(), root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Verification.MaxIterations != 3 || cfg.Verification.MinConfidenceForApproval != 0.7 {
		t.Errorf("verification = %+v", cfg.Verification)
	}
	if cfg.Context.MaxContextTokens != 100000 || cfg.Context.DetailLevel != DetailStandard {
		t.Errorf("context = %+v", cfg.Context)
	}
	if len(cfg.Sections) != 6 || cfg.Sections[0].Name != "Executive Summary" {
		t.Errorf("sections = %+v", cfg.Sections)
	}
	if cfg.Graph.Backend != "sqlite" || cfg.Graph.DSN != ".brdgen/graph.db" {
		t.Errorf("graph = %+v", cfg.Graph)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry must default off")
	}
}

func TestLoadConfigFile(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeConfig(t, root, `
llm:
  provider: ollama
  base_url: http://localhost:11434
verification:
  max_iterations: 5
sections:
  - name: Overview
    target_words: 100
    required: true
`)

	cfg, err := Load(NewViper(), root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.Model != "llama3.2" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Verification.MaxIterations != 5 {
		t.Errorf("max_iterations = %d", cfg.Verification.MaxIterations)
	}
	if len(cfg.Sections) != 1 || cfg.Sections[0].Name != "Overview" {
		t.Errorf("sections = %+v", cfg.Sections)
	}
	// Untouched keys keep their defaults.
	if cfg.Verification.Limits.ResultsPerQuery != DefaultResultsPerQuery {
		t.Errorf("limits = %+v", cfg.Verification.Limits)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeConfig(t, root, "llm:\n  provider: ollama\n")
	t.Setenv("BRDGEN_LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load(NewViper(), root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("provider = %s", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
}

func TestLoadRejectsInvalidProvider(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeConfig(t, root, "llm:\n  provider: watson\n")

	if _, err := Load(NewViper(), root); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeConfig(t, root, "llm: [unclosed\n")

	if _, err := Load(NewViper(), root); err == nil {
		t.Error("expected parse error")
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "ok")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gk")

	if got := ResolveAPIKey("openai"); got != "ok" {
		t.Errorf("openai key = %q", got)
	}
	if got := ResolveAPIKey("google"); got != "gk" {
		t.Errorf("google key = %q", got)
	}
	if got := ResolveAPIKey("ollama"); got != "" {
		t.Errorf("ollama key = %q", got)
	}
}

func TestWriteStarterConfig(t *testing.T) {
	root := t.TempDir()

	path, err := WriteStarterConfig(root)
	if err != nil {
		t.Fatalf("WriteStarterConfig: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "provider: openai") {
		t.Errorf("starter config content:\n%s", data)
	}

	if _, err := WriteStarterConfig(root); err == nil {
		t.Error("expected refusal to overwrite")
	}

	// The starter file parses and validates.
	isolateHome(t)
	if _, err := Load(NewViper(), root); err != nil {
		t.Errorf("starter config does not load: %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/ws", ".brdgen/graph.db"); got != filepath.Join("/ws", ".brdgen/graph.db") {
		t.Errorf("relative = %s", got)
	}
	if got := ResolvePath("/ws", "/abs/graph.db"); got != "/abs/graph.db" {
		t.Errorf("absolute = %s", got)
	}
	if got := ResolvePath("/ws", ""); got != "" {
		t.Errorf("empty = %s", got)
	}
}
