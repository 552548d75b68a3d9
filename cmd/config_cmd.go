package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"brdgen/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		sections := make([]string, 0, len(cfg.Sections))
		for _, s := range cfg.Sections {
			sections = append(sections, s.Name)
		}

		fmt.Printf("workspace: %s\n\n", workspaceRoot)
		fmt.Printf("llm:\n")
		fmt.Printf("  provider: %s\n", cfg.LLM.Provider)
		fmt.Printf("  model: %s\n", cfg.LLM.Model)
		fmt.Printf("  embedding_model: %s\n", cfg.LLM.EmbeddingModel)
		fmt.Printf("  api_key: %s\n", redact(cfg.LLM.APIKey))
		fmt.Printf("  timeout_seconds: %d\n", cfg.LLM.TimeoutSeconds)
		fmt.Printf("verification:\n")
		fmt.Printf("  max_iterations: %d\n", cfg.Verification.MaxIterations)
		fmt.Printf("  min_confidence_for_approval: %.2f\n", cfg.Verification.MinConfidenceForApproval)
		fmt.Printf("  filesystem_fallback: %t\n", cfg.Verification.FilesystemFallback)
		fmt.Printf("context:\n")
		fmt.Printf("  max_context_tokens: %d\n", cfg.Context.MaxContextTokens)
		fmt.Printf("  detail_level: %s\n", cfg.Context.DetailLevel)
		fmt.Printf("sections: %s\n", strings.Join(sections, ", "))
		fmt.Printf("graph:\n")
		fmt.Printf("  backend: %s\n", cfg.Graph.Backend)
		fmt.Printf("  dsn: %s\n", config.ResolvePath(workspaceRoot, cfg.Graph.DSN))
		fmt.Printf("policy:\n")
		fmt.Printf("  enabled: %t\n", cfg.Policy.Enabled)
		fmt.Printf("telemetry:\n")
		fmt.Printf("  enabled: %t\n", cfg.Telemetry.Enabled)
		fmt.Printf("logging:\n")
		fmt.Printf("  dir: %s\n", config.ResolvePath(workspaceRoot, cfg.Logging.Dir))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file into the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.WriteStarterConfig(workspaceRoot)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func redact(key string) string {
	if key == "" {
		return "(unset)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
