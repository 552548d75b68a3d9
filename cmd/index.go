package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"brdgen/internal/config"
	"brdgen/internal/graph/sqlitegraph"
	"brdgen/internal/indexer"
	"brdgen/internal/util"
)

var (
	flagWatch        bool
	flagIndexWorkers int
	flagIndexExclude []string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the code graph for the workspace",
	Long: `Index parses the workspace sources (Go, Python, TypeScript) into the
local graph database that context aggregation and claim verification query.
With --watch it stays running and re-indexes files as they change.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "keep running and re-index on file changes")
	indexCmd.Flags().IntVar(&flagIndexWorkers, "workers", 0, "parse parallelism (default: number of CPUs)")
	indexCmd.Flags().StringSliceVar(&flagIndexExclude, "exclude", nil, "extra directory names to skip")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Graph.Backend != "sqlite" {
		return fmt.Errorf("indexing requires the sqlite graph backend, configured backend is %q", cfg.Graph.Backend)
	}

	store, err := sqlitegraph.Open(config.ResolvePath(workspaceRoot, cfg.Graph.DSN))
	if err != nil {
		return fmt.Errorf("open graph database: %w", err)
	}
	defer func() { _ = store.Close() }()

	log, err := newRunLogger(util.NewRunID())
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer func() { _ = log.Close() }()

	ix := &indexer.Indexer{
		Store:    store,
		Root:     workspaceRoot,
		Workers:  flagIndexWorkers,
		Excludes: flagIndexExclude,
		Log:      log,
	}
	if !flagPlain {
		ix.OnProgress = func(s indexer.Stats) {
			fmt.Fprintf(os.Stderr, "\rparsing... %d files", s.FilesScanned)
		}
	}

	if flagWatch {
		fmt.Printf("Indexing %s, watching for changes (ctrl-c to stop)\n", workspaceRoot)
		err := ix.Watch(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	stats, err := ix.Index(ctx)
	if err != nil {
		return err
	}
	if !flagPlain {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
	printIndexStats(stats)
	return nil
}

func printIndexStats(stats *indexer.Stats) {
	fmt.Printf("Indexed %d of %d files: %d entities, %d relations in %s\n",
		stats.FilesIndexed, stats.FilesScanned, stats.Entities, stats.Relations,
		stats.Duration.Round(time.Millisecond))
	if stats.FilesSkipped > 0 {
		fmt.Printf("Skipped %d files\n", stats.FilesSkipped)
	}
	if len(stats.Errors) > 0 {
		if flagVerbose {
			for _, e := range stats.Errors {
				fmt.Fprintf(os.Stderr, "  %s\n", e)
			}
		} else {
			fmt.Fprintf(os.Stderr, "%d files failed to parse, rerun with --verbose for details\n", len(stats.Errors))
		}
	}
}
