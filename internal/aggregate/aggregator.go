/*
Package aggregate builds the one-shot codebase snapshot every section prompt
is grounded on: components from the code graph, key file contents from the
workspace, the graph schema vocabulary, and optionally similar existing
features. Build never fails on backend errors - each probe degrades to an
empty sub-result so generation can proceed on whatever context exists.
*/
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"brdgen/internal/brd"
	"brdgen/internal/config"
	"brdgen/internal/graph"
	"brdgen/internal/progress"
	"brdgen/internal/runlog"
	"brdgen/internal/utils"
	"brdgen/internal/workspace"
)

// Discovery and compression bounds. Compression keeps the strongest context
// and is applied in a fixed order until the estimate fits the budget.
const (
	componentLimit = 20
	neighborLimit  = 10
	similarLimit   = 10

	defaultRelevance = 0.5
	hintRelevance    = 0.8

	compressFileThreshold = 1000
	compressKeepChars     = 500
	compressedComponents  = 10
	compressedKeyFiles    = 10
	compressedSimilar     = 3
)

// fileGlobs is the extension set probed under each component path.
var fileGlobs = []string{"*.go", "*.py", "*.ts", "*.js", "*.java", "*.rs", "*.md", "*.yaml"}

// Aggregator assembles the generation context from the wired backends.
// Embedder is optional; without it file relevance stays at the fixed scores.
type Aggregator struct {
	Graph     graph.Service
	Workspace workspace.Service
	Embedder  embedding.Embedder

	Cfg      config.ContextConfig
	Log      *runlog.Logger
	Progress *progress.Reporter
}

// Build aggregates context for one generation request. Hints pin discovery
// to specific entities; without hints the top graph components are used.
func (a *Aggregator) Build(ctx context.Context, request string, hints []string, includeSimilar bool) (*brd.AggregatedContext, error) {
	if a == nil {
		return nil, errors.New("aggregate: nil aggregator")
	}
	stop := a.Log.StartPhase("context", map[string]any{"hints": len(hints)})
	defer stop(nil)

	maxTokens := a.Cfg.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxContextTokens
	}

	out := &brd.AggregatedContext{Request: request}

	a.Progress.Emit(progress.StepGraph, "discovering components")
	hinted := a.discoverComponents(ctx, hints, out)
	a.probe(func() {
		schema, err := a.Graph.Schema(ctx)
		if err != nil {
			a.warn("schema_probe_failed", err)
			return
		}
		out.Schema = schema
	})

	a.Progress.Emit(progress.StepFilesystem, "reading key files")
	a.collectKeyFiles(ctx, request, hinted, out)

	if includeSimilar {
		a.probe(func() {
			names, err := a.Graph.FeatureNames(ctx, requestKeywords(request), similarLimit)
			if err != nil {
				a.warn("similar_features_failed", err)
				return
			}
			out.SimilarFeatures = names
		})
	}

	out.EstimatedTokens = estimate(out)
	a.compress(out, maxTokens)
	return out, nil
}

// discoverComponents fills out.Components and returns the set of component
// names that came from explicit hints (they get the higher relevance score).
func (a *Aggregator) discoverComponents(ctx context.Context, hints []string, out *brd.AggregatedContext) map[string]bool {
	hinted := make(map[string]bool)

	a.probe(func() {
		if len(hints) == 0 {
			components, err := a.Graph.Components(ctx, componentLimit)
			if err != nil {
				a.warn("component_discovery_failed", err)
				return
			}
			out.Components = components
			return
		}
		for _, hint := range hints {
			rows, err := a.Graph.FindEntities(ctx, hint, 1)
			if err != nil || len(rows) == 0 {
				if err != nil {
					a.warn("hint_resolution_failed", err)
				}
				continue
			}
			e := rows[0]
			out.Components = append(out.Components, brd.Component{
				Name: e.Name,
				Kind: e.Label,
				Path: path.Dir(e.FilePath),
			})
			hinted[e.Name] = true
		}
	})

	for i := range out.Components {
		c := &out.Components[i]
		deps, dependents, err := a.Graph.Neighbors(ctx, c.Name, neighborLimit)
		if err != nil {
			a.warn("neighbor_lookup_failed", err)
			continue
		}
		c.Dependencies = deps
		c.Dependents = dependents
	}
	return hinted
}

// collectKeyFiles probes the workspace under each component path, reading
// at most the head of each matched file.
func (a *Aggregator) collectKeyFiles(ctx context.Context, request string, hinted map[string]bool, out *brd.AggregatedContext) {
	if a.Workspace == nil {
		return
	}
	perComponent := a.Cfg.FilesPerComponent
	if perComponent <= 0 {
		perComponent = config.DefaultFilesPerComponent
	}
	headBytes := a.Cfg.FileReadBytes
	if headBytes <= 0 {
		headBytes = config.DefaultFileReadBytes
	}

	seen := make(map[string]bool)
	for _, comp := range out.Components {
		if comp.Path == "" || comp.Path == "." {
			continue
		}
		taken := 0
		for _, glob := range fileGlobs {
			if taken >= perComponent {
				break
			}
			paths, err := a.Workspace.SearchFiles(ctx, path.Join(comp.Path, glob))
			if err != nil {
				a.warn("file_search_failed", err)
				continue
			}
			for _, p := range paths {
				if taken >= perComponent || seen[p] {
					continue
				}
				content, err := a.Workspace.ReadFile(ctx, p)
				if err != nil {
					a.warn("file_read_failed", err)
					continue
				}
				if len(content) > headBytes {
					content = content[:headBytes]
				}
				relevance := defaultRelevance
				if hinted[comp.Name] {
					relevance = hintRelevance
				}
				out.KeyFiles = append(out.KeyFiles, brd.KeyFile{Path: p, Content: content, Relevance: relevance})
				seen[p] = true
				taken++
			}
		}
	}

	a.scoreByEmbedding(ctx, request, out.KeyFiles)
}

// scoreByEmbedding replaces the fixed relevance scores with cosine
// similarity against the request when an embedder is wired. Any failure
// leaves the fixed scores in place.
func (a *Aggregator) scoreByEmbedding(ctx context.Context, request string, files []brd.KeyFile) {
	if a.Embedder == nil || len(files) == 0 {
		return
	}

	texts := make([]string, 0, len(files)+1)
	texts = append(texts, request)
	for _, f := range files {
		texts = append(texts, utils.Truncate(f.Content, 2000))
	}

	vectors, err := a.Embedder.EmbedStrings(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		if err != nil {
			a.warn("embedding_failed", err)
		}
		return
	}

	query := vectors[0]
	for i := range files {
		if score := cosine(query, vectors[i+1]); score > 0 {
			files[i].Relevance = score
		}
	}
}

// compress applies the reduction steps in order, stopping as soon as the
// estimate fits. Step order trades the cheapest information first.
func (a *Aggregator) compress(out *brd.AggregatedContext, maxTokens int) {
	if out.EstimatedTokens <= maxTokens {
		return
	}

	for i, f := range out.KeyFiles {
		if len([]rune(f.Content)) > compressFileThreshold {
			out.KeyFiles[i].Content = utils.TruncateMiddle(f.Content, compressKeepChars)
		}
	}
	if out.EstimatedTokens = estimate(out); out.EstimatedTokens <= maxTokens {
		return
	}

	if len(out.Components) > compressedComponents {
		out.Components = out.Components[:compressedComponents]
	}
	if out.EstimatedTokens = estimate(out); out.EstimatedTokens <= maxTokens {
		return
	}

	if len(out.KeyFiles) > compressedKeyFiles {
		sort.SliceStable(out.KeyFiles, func(i, j int) bool {
			return out.KeyFiles[i].Relevance > out.KeyFiles[j].Relevance
		})
		out.KeyFiles = out.KeyFiles[:compressedKeyFiles]
	}
	if out.EstimatedTokens = estimate(out); out.EstimatedTokens <= maxTokens {
		return
	}

	if len(out.SimilarFeatures) > compressedSimilar {
		out.SimilarFeatures = out.SimilarFeatures[:compressedSimilar]
	}
	out.EstimatedTokens = estimate(out)
}

// probe runs one backend interaction with panic isolation so a misbehaving
// backend degrades to missing context instead of killing the run.
func (a *Aggregator) probe(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			a.warn("backend_probe_panicked", fmt.Errorf("%v", rec))
		}
	}()
	fn()
}

func (a *Aggregator) warn(event string, err error) {
	if a.Log == nil {
		return
	}
	a.Log.Warn(event, "context probe degraded", map[string]any{"error": err.Error()})
}

func estimate(c *brd.AggregatedContext) int {
	total := utils.EstimateTokens(c.Request)
	for _, comp := range c.Components {
		total += utils.EstimateTokens(comp.Name + comp.Kind + comp.Path +
			strings.Join(comp.Dependencies, " ") + strings.Join(comp.Dependents, " "))
	}
	for _, f := range c.KeyFiles {
		total += utils.EstimateTokens(f.Path + f.Content)
	}
	for _, s := range c.SimilarFeatures {
		total += utils.EstimateTokens(s)
	}
	return total
}

// requestKeywords extracts lowercase search terms from the request,
// dropping short and stop words.
func requestKeywords(request string) []string {
	stop := map[string]bool{
		"the": true, "and": true, "for": true, "with": true, "that": true,
		"this": true, "from": true, "add": true, "new": true, "feature": true,
	}
	fields := strings.FieldsFunc(strings.ToLower(request), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) < 3 || stop[f] {
			continue
		}
		out = append(out, f)
		if len(out) == 5 {
			break
		}
	}
	return out
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
