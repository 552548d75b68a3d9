package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"brdgen/internal/aggregate"
	"brdgen/internal/brd"
	"brdgen/internal/claims"
	"brdgen/internal/config"
	"brdgen/internal/llm"
	"brdgen/internal/orchestrator"
	"brdgen/internal/policy"
	"brdgen/internal/progress"
	"brdgen/internal/prompt"
	"brdgen/internal/runlog"
	"brdgen/internal/ui"
	"brdgen/internal/util"
	"brdgen/internal/verify"
)

var (
	flagOut            string
	flagSections       []string
	flagDetail         string
	flagMaxIterations  int
	flagMinConfidence  float64
	flagHints          []string
	flagIncludeSimilar bool
	flagOffline        bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [request]",
	Short: "Generate a verified BRD for the workspace",
	Long: `Generate runs the full pipeline: aggregate codebase context, generate
each configured section, extract claims, verify them against the code graph
and the filesystem, and regenerate sections that fall short. The accepted
document and its evidence bundle are written to the output directory.`,
	Example: `  brdgen generate
  brdgen generate "document the payment flow" --hint PaymentService
  brdgen generate --sections "Executive Summary,Functional Requirements" --offline`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&flagOut, "out", "o", "", "output directory (default: .brdgen/out)")
	generateCmd.Flags().StringSliceVar(&flagSections, "sections", nil, "comma-separated section names, overriding the configured plan")
	generateCmd.Flags().StringVar(&flagDetail, "detail", "", "detail level: concise, standard, or detailed")
	generateCmd.Flags().IntVar(&flagMaxIterations, "max-iterations", 0, "verification attempts per section")
	generateCmd.Flags().Float64Var(&flagMinConfidence, "min-confidence", 0, "confidence threshold for section acceptance")
	generateCmd.Flags().StringArrayVar(&flagHints, "hint", nil, "entity name to pin context discovery to (repeatable)")
	generateCmd.Flags().BoolVar(&flagIncludeSimilar, "include-similar", false, "include similar existing features in context")
	generateCmd.Flags().BoolVar(&flagOffline, "offline", false, "use the deterministic mock model, no API calls")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applyGenerateFlags()

	runID := util.NewRunID()
	log, err := newRunLogger(runID)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer func() { _ = log.Close() }()

	graphSvc, closeGraph, err := openGraph(ctx)
	if err != nil {
		return err
	}
	defer closeGraph()

	wsSvc, closeWS, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer closeWS()

	llmCfg := llm.Config{
		Provider:       cfg.LLM.Provider,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		FallbackMode:   cfg.LLM.FallbackMode,
		SkillDirs:      skillDirs(),
	}
	chatModel, err := llm.NewChatModel(ctx, llmCfg)
	if err != nil {
		return fmt.Errorf("initialize %s model: %w", llmCfg.Provider, err)
	}
	adapter := llm.NewAdapter(chatModel, llmCfg)

	// No embedder means relevance ranking falls back to a flat score.
	embedder, err := llm.NewEmbedder(ctx, llmCfg)
	if err != nil {
		log.Debug("embedder_unavailable", "context ranking degrades to default relevance",
			map[string]any{"error": err.Error()})
		embedder = nil
	}

	composer := &prompt.Composer{
		Detail:       cfg.Context.DetailLevel,
		OverridesDir: promptOverridesDir(),
	}
	extractor := newExtractor(adapter, composer, log)
	verifier := &verify.Verifier{
		Graph:              graphSvc,
		Workspace:          wsSvc,
		Limits:             cfg.Verification.Limits,
		MinConfidence:      cfg.Verification.MinConfidenceForApproval,
		FilesystemFallback: cfg.Verification.FilesystemFallback,
		QueryTimeout:       time.Duration(cfg.Verification.QueryTimeoutSecs) * time.Second,
		Log:                log,
	}
	aggregator := &aggregate.Aggregator{
		Graph:     graphSvc,
		Workspace: wsSvc,
		Embedder:  embedder,
		Cfg:       cfg.Context,
		Log:       log,
	}

	var gate *policy.Gate
	if cfg.Policy.Enabled {
		engine, err := policy.NewEngine(afero.NewOsFs(), config.ResolvePath(workspaceRoot, cfg.Policy.Dir))
		if err != nil {
			return fmt.Errorf("load policies: %w", err)
		}
		gate = &policy.Gate{Engine: engine, Log: log}
	}

	tel := newTelemetry()
	defer func() { _ = tel.Close() }()

	req := orchestrator.Request{
		Text:           requestText(args),
		Sections:       requestedSections(),
		DetailLevel:    cfg.Context.DetailLevel,
		Hints:          flagHints,
		IncludeSimilar: flagIncludeSimilar,
	}

	run := func(ctx context.Context, sink progress.Sink) (*brd.Artifact, error) {
		reporter := progress.NewReporter(sink, nil)
		aggregator.Progress = reporter
		orch := orchestrator.New(orchestrator.Services{
			LLM:        adapter,
			Aggregator: aggregator,
			Composer:   composer,
			Extractor:  extractor,
			Verifier:   verifier,
			Policy:     gate,
			Progress:   reporter,
			Log:        log,
			Telemetry:  tel,
		}, cfg.Verification)
		return orch.Run(ctx, req)
	}

	var artifact *brd.Artifact
	var runErr error
	if flagPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		printer := ui.NewPlainPrinter(os.Stderr)
		artifact, runErr = run(ctx, printer.Sink())
	} else {
		artifact, runErr = runWithTUI(ctx, run)
	}
	if artifact == nil {
		return runErr
	}

	outDir := flagOut
	if outDir == "" {
		outDir = filepath.Join(config.DotDir(workspaceRoot), "out")
	}
	if err := writeArtifact(outDir, artifact); err != nil {
		return err
	}

	fmt.Println(ui.RenderSummary(artifact))
	fmt.Printf("Wrote brd.md, brd.json, evidence.json to %s\n", outDir)
	fmt.Printf("Run log: %s\n", log.LogPath())
	return runErr
}

// runWithTUI executes the run in the background while the terminal display
// consumes the progress stream. Pressing q cancels the run; the partial
// artifact is still returned and written.
func runWithTUI(ctx context.Context, run func(context.Context, progress.Sink) (*brd.Artifact, error)) (*brd.Artifact, error) {
	stream := progress.NewStream(64)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var artifact *brd.Artifact
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close()
		artifact, runErr = run(runCtx, stream.Sink())
	}()

	program := tea.NewProgram(ui.NewRunModel(stream), tea.WithOutput(os.Stderr))
	final, uiErr := program.Run()
	if m, ok := final.(ui.RunModel); ok && m.Quitting {
		cancel()
	}
	if uiErr != nil {
		// Display failure must not abandon the run; fall through and wait.
		cancel()
	}
	<-done
	return artifact, runErr
}

// newExtractor builds the claim extractor from the loaded config. Freshly
// extracted claims start at the configured unparseable-response confidence.
func newExtractor(completer claims.Completer, composer *prompt.Composer, log *runlog.Logger) *claims.Extractor {
	return &claims.Extractor{
		LLM:               completer,
		Prompt:            composer.Extraction,
		InitialConfidence: cfg.Verification.ConfidenceWhenUnparseable,
		Log:               log,
	}
}

// applyGenerateFlags overlays explicitly set flags onto the loaded config.
func applyGenerateFlags() {
	if flagOffline {
		cfg.LLM.Provider = llm.ProviderMock
		cfg.LLM.Model = "mock"
	}
	if flagDetail != "" {
		cfg.Context.DetailLevel = config.DetailLevel(flagDetail)
	}
	if flagMaxIterations > 0 {
		cfg.Verification.MaxIterations = flagMaxIterations
	}
	if flagMinConfidence > 0 {
		cfg.Verification.MinConfidenceForApproval = flagMinConfidence
	}
}

// requestedSections maps --sections names onto the configured plan where
// possible, so descriptions and word targets survive the override.
func requestedSections() []config.SectionConfig {
	if len(flagSections) == 0 {
		return cfg.Sections
	}
	byName := make(map[string]config.SectionConfig, len(cfg.Sections))
	for _, s := range cfg.Sections {
		byName[strings.ToLower(s.Name)] = s
	}
	var out []config.SectionConfig
	for _, name := range flagSections {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if s, ok := byName[strings.ToLower(name)]; ok {
			out = append(out, s)
			continue
		}
		out = append(out, config.SectionConfig{Name: name, Required: true})
	}
	return out
}

func requestText(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	return "Produce a business requirements document for this codebase."
}

// writeArtifact writes the document, the evidence bundle, and the combined
// artifact into the output directory.
func writeArtifact(dir string, artifact *brd.Artifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	full, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "brd.json"), full, 0o644); err != nil {
		return fmt.Errorf("write brd.json: %w", err)
	}

	evidence, err := json.MarshalIndent(artifact.Evidence, "", "  ")
	if err != nil {
		return fmt.Errorf("encode evidence: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "evidence.json"), evidence, 0o644); err != nil {
		return fmt.Errorf("write evidence.json: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "brd.md"), []byte(artifact.BRD.RawMarkdown), 0o644); err != nil {
		return fmt.Errorf("write brd.md: %w", err)
	}
	return nil
}
