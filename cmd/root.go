/*
Package cmd implements the brdgen command-line interface. Every command
resolves the workspace root and loads the effective configuration before
running; the heavy lifting lives in the internal packages.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"brdgen/internal/config"
	"brdgen/internal/runlog"
	"brdgen/internal/telemetry"
	"brdgen/internal/workspace"
)

// appVersion is stamped at build time via -ldflags.
var appVersion = "dev"

var (
	flagWorkspace string
	flagVerbose   bool
	flagPlain     bool
)

var (
	workspaceRoot string
	cfg           *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "brdgen",
	Short: "Reverse-engineer a codebase into a verified requirements document",
	Long: `brdgen generates business requirements documents from existing code.

Each section is generated by an LLM, decomposed into checkable claims, and
every claim is verified against the code graph and the workspace before the
section is accepted. Sections that fail verification are regenerated with
targeted feedback.

Start with "brdgen index" to build the code graph, then "brdgen generate".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "C", "", "workspace root (default: auto-detected from the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output, including full error chains")
	rootCmd.PersistentFlags().BoolVar(&flagPlain, "plain", false, "line-oriented progress output instead of the interactive display")
}

// initApp resolves the workspace root and loads configuration. It runs
// before every command.
func initApp() error {
	// A .env in the working directory is a convenient place for API keys.
	_ = godotenv.Load()

	root := flagWorkspace
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		root = workspace.DetectRoot(cwd)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve workspace root: %w", err)
	}
	workspaceRoot = abs

	cfg, err = config.Load(config.NewViper(), workspaceRoot)
	return err
}

// Execute runs the root command and exits nonzero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// newRunLogger builds the per-run JSONL logger from the logging config.
func newRunLogger(runID string) (*runlog.Logger, error) {
	return runlog.New(runlog.Options{
		OutputDir:      config.ResolvePath(workspaceRoot, cfg.Logging.Dir),
		EnableStderr:   cfg.Logging.Stderr || flagVerbose,
		RetentionCount: cfg.Logging.Retention,
		RunID:          runID,
	})
}

// newTelemetry builds the opt-in telemetry client. Any setup failure
// silently degrades to the no-op client; telemetry must never break a run.
func newTelemetry() telemetry.Client {
	if !cfg.Telemetry.Enabled {
		return telemetry.NoopClient{}
	}
	dotDir, err := config.EnsureDotDir(workspaceRoot)
	if err != nil {
		return telemetry.NoopClient{}
	}
	id, err := telemetry.AnonymousID(dotDir)
	if err != nil {
		return telemetry.NoopClient{}
	}
	client, err := telemetry.New(telemetry.Options{
		APIKey:      cfg.Telemetry.APIKey,
		Endpoint:    cfg.Telemetry.Endpoint,
		Version:     appVersion,
		AnonymousID: id,
		Enabled:     true,
	})
	if err != nil {
		return telemetry.NoopClient{}
	}
	return client
}

// promptOverridesDir is where projects drop replacement prompt skeletons.
func promptOverridesDir() string {
	return filepath.Join(config.DotDir(workspaceRoot), "prompts")
}

// skillDirs returns the skill search path: the workspace skills directory
// followed by any configured extras.
func skillDirs() []string {
	dirs := []string{filepath.Join(config.DotDir(workspaceRoot), "skills")}
	for _, d := range cfg.Skills.Dirs {
		dirs = append(dirs, config.ResolvePath(workspaceRoot, d))
	}
	return dirs
}
