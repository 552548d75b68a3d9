package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"brdgen/internal/graph/sqlitegraph"
	"brdgen/internal/runlog"
)

// maxIndexFileSize skips generated monsters; real source files stay well
// under it.
const maxIndexFileSize = 1 << 20

// progressEvery throttles the OnProgress callback during parsing.
const progressEvery = 25

// Stats summarizes one indexing run.
type Stats struct {
	FilesScanned int
	FilesIndexed int
	FilesSkipped int
	Entities     int
	Relations    int
	Errors       []string
	Duration     time.Duration
}

// Indexer walks the workspace and populates the graph store. Log and
// OnProgress are optional.
type Indexer struct {
	Store *sqlitegraph.Store
	Root  string

	// Workers sets parse parallelism. Zero means runtime.NumCPU().
	Workers int

	// Excludes are extra directory names to skip, on top of the built-in
	// set (dotdirs, vendor, node_modules, testdata, dist, target,
	// __pycache__).
	Excludes []string

	Log        *runlog.Logger
	OnProgress func(Stats)

	regOnce  sync.Once
	registry *Registry
}

type fileJob struct {
	path string // absolute
	rel  string
}

type parseResult struct {
	rel    string
	result *FileResult
	err    error
}

// Index rebuilds the whole graph from the workspace. Parsing is parallel;
// writes are sequential because the store allows one writer.
func (ix *Indexer) Index(ctx context.Context) (*Stats, error) {
	if ix.Store == nil {
		return nil, fmt.Errorf("index: no graph store")
	}
	start := time.Now()
	stats := &Stats{}

	files, err := ix.findSourceFiles()
	if err != nil {
		return nil, fmt.Errorf("scan workspace: %w", err)
	}
	stats.FilesScanned = len(files)

	if err := ix.Store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear graph: %w", err)
	}
	if len(files) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	results := ix.parseAll(ctx, files, stats)
	if err := ix.write(ctx, results, stats); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	if ix.Log != nil {
		ix.Log.Info("index_completed", "workspace indexed", map[string]any{
			"files":       stats.FilesIndexed,
			"entities":    stats.Entities,
			"relations":   stats.Relations,
			"errors":      len(stats.Errors),
			"duration_ms": stats.Duration.Milliseconds(),
		})
	}
	if ix.OnProgress != nil {
		ix.OnProgress(*stats)
	}
	return stats, nil
}

// IndexFile re-indexes a single file in place, used by watch mode. The
// file's old entities are dropped first; cross-file relations rebuild on
// the next full index.
func (ix *Indexer) IndexFile(ctx context.Context, absPath string) error {
	rel, err := ix.relPath(absPath)
	if err != nil {
		return err
	}
	if err := ix.Store.DeleteByFile(ctx, rel); err != nil {
		return err
	}

	p := ix.parsers().ForFile(rel)
	if p == nil {
		return nil
	}
	src, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}
	res, err := p.Parse(rel, src)
	if err != nil {
		return fmt.Errorf("parse %s: %w", rel, err)
	}
	return ix.write(ctx, []*FileResult{res}, &Stats{})
}

// Remove drops a deleted file's entities from the graph.
func (ix *Indexer) Remove(ctx context.Context, absPath string) error {
	rel, err := ix.relPath(absPath)
	if err != nil {
		return err
	}
	return ix.Store.DeleteByFile(ctx, rel)
}

func (ix *Indexer) parsers() *Registry {
	ix.regOnce.Do(func() {
		ix.registry = NewRegistry(
			newGoParser(loadGoPackageDirs(ix.Root)),
			&pythonParser{},
			&tsParser{},
		)
	})
	return ix.registry
}

func (ix *Indexer) relPath(absPath string) (string, error) {
	rel, err := filepath.Rel(ix.Root, absPath)
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", absPath, err)
	}
	return filepath.ToSlash(rel), nil
}

// parseAll fans files out to a worker pool and collects the results in a
// deterministic order. Parser panics are confined to the offending file.
func (ix *Indexer) parseAll(ctx context.Context, files []fileJob, stats *Stats) []*FileResult {
	workers := ix.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan fileJob, len(files))
	out := make(chan parseResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ix.worker(ctx, jobs, out)
		}()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(out)
	}()

	byPath := make(map[string]*FileResult, len(files))
	done := 0
	for r := range out {
		done++
		if ix.OnProgress != nil && done%progressEvery == 0 {
			ix.OnProgress(Stats{FilesScanned: stats.FilesScanned, FilesIndexed: done})
		}
		if r.err != nil {
			stats.FilesSkipped++
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", r.rel, r.err))
			continue
		}
		stats.FilesIndexed++
		byPath[r.rel] = r.result
	}

	results := make([]*FileResult, 0, len(byPath))
	for _, f := range files {
		if r, ok := byPath[f.rel]; ok {
			results = append(results, r)
		}
	}
	return results
}

func (ix *Indexer) worker(ctx context.Context, jobs <-chan fileJob, out chan<- parseResult) {
	reg := ix.parsers()
	for job := range jobs {
		if ctx.Err() != nil {
			out <- parseResult{rel: job.rel, err: ctx.Err()}
			continue
		}
		out <- parseOne(reg, job)
	}
}

func parseOne(reg *Registry, job fileJob) (res parseResult) {
	res.rel = job.rel
	defer func() {
		if r := recover(); r != nil {
			res.result = nil
			res.err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	p := reg.ForFile(job.rel)
	if p == nil {
		res.err = fmt.Errorf("no parser for %s", job.rel)
		return res
	}
	src, err := os.ReadFile(job.path)
	if err != nil {
		res.err = err
		return res
	}
	res.result, res.err = p.Parse(job.rel, src)
	return res
}

// write upserts modules and symbols, then resolves imports and calls
// against the freshly written rows.
func (ix *Indexer) write(ctx context.Context, results []*FileResult, stats *Stats) error {
	moduleIDs := make(map[string]int64)
	callableIDs := make(map[string]int64)
	symbolIDs := make(map[string]int64)

	for _, res := range results {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		mid, ok := moduleIDs[res.Module.Qualified]
		if !ok {
			var err error
			mid, err = ix.Store.UpsertEntity(ctx, sqlitegraph.Entity{
				Name:          res.Module.Name,
				QualifiedName: res.Module.Qualified,
				Label:         LabelModule,
				FilePath:      res.Module.Dir,
			})
			if err != nil {
				stats.Errors = append(stats.Errors, err.Error())
				continue
			}
			moduleIDs[res.Module.Qualified] = mid
			stats.Entities++
		}

		for _, sym := range res.Symbols {
			id, err := ix.Store.UpsertEntity(ctx, sqlitegraph.Entity{
				Name:          sym.Name,
				QualifiedName: sym.Qualified,
				Label:         sym.Label,
				FilePath:      res.Path,
				StartLine:     sym.StartLine,
				EndLine:       sym.EndLine,
				Signature:     sym.Signature,
			})
			if err != nil {
				stats.Errors = append(stats.Errors, err.Error())
				continue
			}
			stats.Entities++
			symbolIDs[sym.Qualified] = id
			if sym.Label == LabelFunction || sym.Label == LabelMethod {
				if _, seen := callableIDs[sym.Name]; !seen {
					callableIDs[sym.Name] = id
				}
			}
			if err := ix.Store.AddRelation(ctx, mid, id, RelationContains); err == nil {
				stats.Relations++
			}
		}
	}

	moduleKeys := make([]string, 0, len(moduleIDs))
	for q := range moduleIDs {
		moduleKeys = append(moduleKeys, q)
	}
	sort.Strings(moduleKeys)

	for _, res := range results {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		mid := moduleIDs[res.Module.Qualified]

		for _, imp := range res.Imports {
			tid, ok := resolveModule(moduleIDs, moduleKeys, imp)
			if !ok || tid == mid {
				continue
			}
			if err := ix.Store.AddRelation(ctx, mid, tid, RelationImports); err == nil {
				stats.Relations++
			}
		}

		for _, call := range res.Calls {
			if call.Caller >= len(res.Symbols) {
				continue
			}
			from, ok := symbolIDs[res.Symbols[call.Caller].Qualified]
			if !ok {
				continue
			}
			to, ok := callableIDs[call.Callee]
			if !ok || to == from {
				continue
			}
			if err := ix.Store.AddRelation(ctx, from, to, RelationCalls); err == nil {
				stats.Relations++
			}
		}
	}
	return nil
}

// resolveModule matches an import specifier against the indexed modules:
// exact qualified name first, then a segment-boundary suffix match so Go
// import paths land on directory-derived modules and vice versa.
func resolveModule(moduleIDs map[string]int64, sortedKeys []string, imp string) (int64, bool) {
	if id, ok := moduleIDs[imp]; ok {
		return id, true
	}
	for _, q := range sortedKeys {
		if strings.HasSuffix(imp, "/"+q) || strings.HasSuffix(q, "/"+imp) {
			return moduleIDs[q], true
		}
	}
	return 0, false
}

func (ix *Indexer) findSourceFiles() ([]fileJob, error) {
	reg := ix.parsers()

	var files []fileJob
	err := filepath.WalkDir(ix.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != ix.Root && ix.skipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if isTestFile(name) || reg.ForFile(name) == nil {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > maxIndexFileSize {
			return nil
		}
		rel, err := ix.relPath(p)
		if err != nil {
			return nil
		}
		files = append(files, fileJob{path: p, rel: rel})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

func isTestFile(name string) bool {
	switch {
	case strings.HasSuffix(name, "_test.go"):
		return true
	case strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py"):
		return true
	case strings.Contains(name, ".test.") || strings.Contains(name, ".spec."):
		return true
	}
	return false
}
