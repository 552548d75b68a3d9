package aggregate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"brdgen/internal/brd"
	"brdgen/internal/config"
	"brdgen/internal/graph"
	"brdgen/internal/workspace"
)

type fakeGraph struct {
	components []brd.Component
	entities   map[string][]graph.Entity
	deps       map[string][]string
	schema     brd.SchemaInfo
	features   []string
	fail       bool
}

func (f *fakeGraph) FindEntities(_ context.Context, name string, _ int) ([]graph.Entity, error) {
	if f.fail {
		return nil, errors.New("graph down")
	}
	return f.entities[name], nil
}

func (f *fakeGraph) SearchEntities(context.Context, string, int) ([]graph.Entity, error) {
	return nil, nil
}

func (f *fakeGraph) Components(_ context.Context, limit int) ([]brd.Component, error) {
	if f.fail {
		return nil, errors.New("graph down")
	}
	if len(f.components) > limit {
		return f.components[:limit], nil
	}
	return f.components, nil
}

func (f *fakeGraph) Neighbors(_ context.Context, name string, _ int) ([]string, []string, error) {
	if f.fail {
		return nil, nil, errors.New("graph down")
	}
	return f.deps[name], nil, nil
}

func (f *fakeGraph) Schema(context.Context) (brd.SchemaInfo, error) {
	if f.fail {
		return brd.SchemaInfo{}, errors.New("graph down")
	}
	return f.schema, nil
}

func (f *fakeGraph) FeatureNames(_ context.Context, terms []string, _ int) ([]string, error) {
	if f.fail {
		return nil, errors.New("graph down")
	}
	if len(terms) == 0 {
		return nil, nil
	}
	return f.features, nil
}

type fakeWorkspace struct {
	globs map[string][]string
	files map[string]string
}

func (f *fakeWorkspace) ReadFile(_ context.Context, p string) (string, error) {
	content, ok := f.files[p]
	if !ok {
		return "", errors.New("no such file")
	}
	return content, nil
}

func (f *fakeWorkspace) SearchFiles(_ context.Context, glob string) ([]string, error) {
	return f.globs[glob], nil
}

func (f *fakeWorkspace) Exists(context.Context, string) bool { return false }
func (f *fakeWorkspace) Grep(context.Context, string, int) ([]workspace.Match, error) {
	return nil, nil
}
func (f *fakeWorkspace) Root() string { return "/ws" }

func healthyBackends() (*fakeGraph, *fakeWorkspace) {
	g := &fakeGraph{
		components: []brd.Component{
			{Name: "auth", Kind: "module", Path: "internal/auth"},
			{Name: "store", Kind: "module", Path: "internal/store"},
		},
		entities: map[string][]graph.Entity{
			"auth": {{Name: "auth", Label: "module", FilePath: "internal/auth/auth.go"}},
		},
		deps:     map[string][]string{"auth": {"store"}},
		schema:   brd.SchemaInfo{NodeLabels: []string{"function"}, RelationshipTypes: []string{"calls"}},
		features: []string{"password reset"},
	}
	ws := &fakeWorkspace{
		globs: map[string][]string{
			"internal/auth/*.go":  {"internal/auth/login.go"},
			"internal/store/*.go": {"internal/store/db.go"},
		},
		files: map[string]string{
			"internal/auth/login.go": "func Login() error { return nil }",
			"internal/store/db.go":   "type DB struct{}",
		},
	}
	return g, ws
}

func TestBuildWithoutHints(t *testing.T) {
	g, ws := healthyBackends()
	a := &Aggregator{Graph: g, Workspace: ws}

	got, err := a.Build(context.Background(), "user authentication", nil, true)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(got.Components) != 2 {
		t.Fatalf("components = %+v", got.Components)
	}
	if len(got.Components[0].Dependencies) != 1 || got.Components[0].Dependencies[0] != "store" {
		t.Errorf("dependencies not attached: %+v", got.Components[0])
	}
	if len(got.KeyFiles) != 2 {
		t.Fatalf("key files = %+v", got.KeyFiles)
	}
	if got.KeyFiles[0].Relevance != 0.5 {
		t.Errorf("default relevance = %v", got.KeyFiles[0].Relevance)
	}
	if len(got.Schema.NodeLabels) != 1 {
		t.Errorf("schema = %+v", got.Schema)
	}
	if len(got.SimilarFeatures) != 1 {
		t.Errorf("similar features = %v", got.SimilarFeatures)
	}
	if got.EstimatedTokens <= 0 {
		t.Error("token estimate missing")
	}
}

func TestBuildWithHints(t *testing.T) {
	g, ws := healthyBackends()
	a := &Aggregator{Graph: g, Workspace: ws}

	got, err := a.Build(context.Background(), "auth work", []string{"auth", "missing"}, false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Only the resolvable hint becomes a component.
	if len(got.Components) != 1 || got.Components[0].Name != "auth" {
		t.Fatalf("components = %+v", got.Components)
	}
	if len(got.KeyFiles) != 1 || got.KeyFiles[0].Relevance != 0.8 {
		t.Errorf("hinted file relevance = %+v", got.KeyFiles)
	}
	if got.SimilarFeatures != nil {
		t.Errorf("similar features requested off, got %v", got.SimilarFeatures)
	}
}

func TestBuildSurvivesBackendFailure(t *testing.T) {
	a := &Aggregator{Graph: &fakeGraph{fail: true}, Workspace: &fakeWorkspace{}}

	got, err := a.Build(context.Background(), "anything", nil, true)
	if err != nil {
		t.Fatalf("Build must not fail on backend errors: %v", err)
	}
	if len(got.Components) != 0 || len(got.KeyFiles) != 0 || len(got.SimilarFeatures) != 0 {
		t.Errorf("degraded build not empty: %+v", got)
	}
	if got.Request != "anything" {
		t.Errorf("request lost: %q", got.Request)
	}
}

func TestCompressionSteps(t *testing.T) {
	big := strings.Repeat("x", 4000)
	components := make([]brd.Component, 15)
	globs := map[string][]string{}
	files := map[string]string{}
	for i := range components {
		name := string(rune('a' + i))
		components[i] = brd.Component{Name: name, Kind: "module", Path: "pkg/" + name}
		path := "pkg/" + name + "/f.go"
		globs["pkg/"+name+"/*.go"] = []string{path}
		files[path] = big
	}
	g := &fakeGraph{components: components, features: []string{"f1", "f2", "f3", "f4", "f5"}}
	ws := &fakeWorkspace{globs: globs, files: files}

	a := &Aggregator{Graph: g, Workspace: ws, Cfg: config.ContextConfig{MaxContextTokens: 1000}}
	got, err := a.Build(context.Background(), "compress everything please", nil, true)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, f := range got.KeyFiles {
		if !strings.Contains(f.Content, "…[truncated]…") {
			t.Fatalf("file %s not middle-truncated", f.Path)
		}
		if len([]rune(f.Content)) > 1100 {
			t.Fatalf("file %s still %d chars", f.Path, len(f.Content))
		}
	}
	if len(got.Components) > 10 {
		t.Errorf("components not capped: %d", len(got.Components))
	}
	if len(got.KeyFiles) > 10 {
		t.Errorf("key files not capped: %d", len(got.KeyFiles))
	}
	if len(got.SimilarFeatures) > 3 {
		t.Errorf("similar features not capped: %d", len(got.SimilarFeatures))
	}
}

func TestCompressionSkippedUnderBudget(t *testing.T) {
	g, ws := healthyBackends()
	a := &Aggregator{Graph: g, Workspace: ws, Cfg: config.ContextConfig{MaxContextTokens: 100000}}

	got, err := a.Build(context.Background(), "small request", nil, true)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, f := range got.KeyFiles {
		if strings.Contains(f.Content, "…[truncated]…") {
			t.Error("content truncated while under budget")
		}
	}
}

func TestFileHeadBounded(t *testing.T) {
	g := &fakeGraph{components: []brd.Component{{Name: "a", Kind: "module", Path: "pkg/a"}}}
	ws := &fakeWorkspace{
		globs: map[string][]string{"pkg/a/*.go": {"pkg/a/f.go"}},
		files: map[string]string{"pkg/a/f.go": strings.Repeat("y", 5000)},
	}
	a := &Aggregator{Graph: g, Workspace: ws, Cfg: config.ContextConfig{FileReadBytes: 1024, MaxContextTokens: 100000}}

	got, err := a.Build(context.Background(), "r", nil, false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got.KeyFiles) != 1 || len(got.KeyFiles[0].Content) != 1024 {
		t.Errorf("head read not bounded: %d bytes", len(got.KeyFiles[0].Content))
	}
}

func TestRequestKeywords(t *testing.T) {
	got := requestKeywords("Add a new OAuth2 login feature for the mobile app")
	want := []string{"oauth2", "login", "mobile", "app"}
	if len(got) != len(want) {
		t.Fatalf("keywords = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float64{1, 0}, []float64{1, 0}); got != 1 {
		t.Errorf("identical vectors = %v", got)
	}
	if got := cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors = %v", got)
	}
	if got := cosine([]float64{1}, []float64{1, 2}); got != 0 {
		t.Errorf("mismatched lengths = %v", got)
	}
}
