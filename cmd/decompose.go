package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/cobra"

	"brdgen/internal/brd"
	"brdgen/internal/config"
	"brdgen/internal/decompose"
	"brdgen/internal/llm"
	"brdgen/internal/telemetry"
	"brdgen/internal/util"
)

var (
	flagDecomposeOut     string
	flagDecomposeOffline bool
)

var decomposeCmd = &cobra.Command{
	Use:   "decompose [brd.json]",
	Short: "Break a generated BRD into an epic and story plan",
	Long: `Decompose reads a generated artifact and produces a delivery plan of
epics and stories with acceptance criteria, each story linked back to the
requirements it covers. Without a model the plan is derived directly from
the requirement list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecompose,
}

func init() {
	decomposeCmd.Flags().StringVarP(&flagDecomposeOut, "out", "o", "", "output directory (default: alongside the input)")
	decomposeCmd.Flags().BoolVar(&flagDecomposeOffline, "offline", false, "skip the model, use the deterministic plan")
	rootCmd.AddCommand(decomposeCmd)
}

func runDecompose(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inPath := filepath.Join(config.DotDir(workspaceRoot), "out", "brd.json")
	if len(args) > 0 {
		inPath = args[0]
	}
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	var artifact brd.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return fmt.Errorf("parse %s: %w", inPath, err)
	}

	log, err := newRunLogger(util.NewRunID())
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer func() { _ = log.Close() }()

	var chatModel model.BaseChatModel
	if !flagDecomposeOffline {
		llmCfg := llm.Config{
			Provider:       cfg.LLM.Provider,
			Model:          cfg.LLM.Model,
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}
		chatModel, err = llm.NewChatModel(ctx, llmCfg)
		if err != nil {
			log.Warn("decompose_model_unavailable", "using the deterministic plan",
				map[string]any{"error": err.Error()})
			chatModel = nil
		}
	}

	d := &decompose.Decomposer{
		Model:              chatModel,
		Timeout:            time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		PromptOverridesDir: promptOverridesDir(),
		Log:                log,
	}
	start := time.Now()
	plan, err := d.Decompose(ctx, &artifact)
	if err != nil {
		return err
	}

	outDir := flagDecomposeOut
	if outDir == "" {
		outDir = filepath.Dir(inPath)
	}
	if err := writePlan(outDir, plan); err != nil {
		return err
	}

	tel := newTelemetry()
	defer func() { _ = tel.Close() }()
	tel.Track(telemetry.EventDecomposeCompleted, telemetry.Properties{
		"epics":       len(plan.Epics),
		"stories":     plan.StoryCount(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	fmt.Printf("Planned %d epics, %d stories\n", len(plan.Epics), plan.StoryCount())
	fmt.Printf("Wrote plan.md, plan.json to %s\n", outDir)
	return nil
}

func writePlan(dir string, plan *decompose.Plan) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plan.json"), data, 0o644); err != nil {
		return fmt.Errorf("write plan.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plan.md"), []byte(plan.Markdown()), 0o644); err != nil {
		return fmt.Errorf("write plan.md: %w", err)
	}
	return nil
}
