package sqlitegraph

import (
	"context"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store) map[string]int64 {
	t.Helper()
	ctx := context.Background()
	ids := make(map[string]int64)
	for _, e := range []Entity{
		{Name: "orchestrator", QualifiedName: "internal/orchestrator", Label: "module", FilePath: "internal/orchestrator"},
		{Name: "verify", QualifiedName: "internal/verify", Label: "module", FilePath: "internal/verify"},
		{Name: "BRDGenerator", QualifiedName: "internal/orchestrator.BRDGenerator", Label: "class", FilePath: "internal/orchestrator/run.go", StartLine: 10, EndLine: 80},
		{Name: "VerifyClaim", QualifiedName: "internal/verify.VerifyClaim", Label: "function", FilePath: "internal/verify/verifier.go", StartLine: 5, EndLine: 40},
	} {
		id, err := s.UpsertEntity(ctx, e)
		if err != nil {
			t.Fatalf("UpsertEntity(%s): %v", e.Name, err)
		}
		ids[e.Name] = id
	}
	if err := s.AddRelation(ctx, ids["orchestrator"], ids["verify"], "imports"); err != nil {
		t.Fatalf("AddRelation: %v", err)
	}
	return ids
}

func TestUpsertEntityIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	e := Entity{Name: "Foo", QualifiedName: "pkg.Foo", Label: "function", FilePath: "pkg/foo.go", StartLine: 1, EndLine: 3}
	first, err := s.UpsertEntity(ctx, e)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	e.EndLine = 9
	second, err := s.UpsertEntity(ctx, e)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first != second {
		t.Errorf("upsert minted a new ID: %d != %d", first, second)
	}
	if n, _ := s.EntityCount(ctx); n != 1 {
		t.Errorf("EntityCount = %d, want 1", n)
	}
}

func TestFindEntitiesSubstring(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	tests := []struct {
		name     string
		contains string
		want     int
	}{
		{"exact", "BRDGenerator", 1},
		{"case insensitive", "brdgenerator", 1},
		{"substring", "Generator", 1},
		{"qualified name hit", "internal/verify", 2},
		{"miss", "NonexistentService", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindEntities(context.Background(), tt.contains, 20)
			if err != nil {
				t.Fatalf("FindEntities: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entities, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSearchEntitiesRegex(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	got, err := s.SearchEntities(context.Background(), `verify.*claim`, 20)
	if err != nil {
		t.Fatalf("SearchEntities: %v", err)
	}
	if len(got) != 1 || got[0].Name != "VerifyClaim" {
		t.Fatalf("got %v, want VerifyClaim", got)
	}

	if _, err := s.SearchEntities(context.Background(), `([`, 20); err == nil {
		t.Error("invalid pattern should error")
	}
}

func TestComponentsAndNeighbors(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	comps, err := s.Components(ctx, 10)
	if err != nil {
		t.Fatalf("Components: %v", err)
	}
	if len(comps) != 2 || comps[0].Name != "orchestrator" {
		t.Fatalf("components = %v, want orchestrator first", comps)
	}

	deps, dependents, err := s.Neighbors(ctx, "orchestrator", 10)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(deps) != 1 || deps[0] != "verify" {
		t.Errorf("deps = %v, want [verify]", deps)
	}
	if len(dependents) != 0 {
		t.Errorf("dependents = %v, want none", dependents)
	}
}

func TestSchemaVocabulary(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	info, err := s.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	wantLabels := map[string]bool{"module": true, "class": true, "function": true}
	if len(info.NodeLabels) != len(wantLabels) {
		t.Errorf("NodeLabels = %v", info.NodeLabels)
	}
	for _, l := range info.NodeLabels {
		if !wantLabels[l] {
			t.Errorf("unexpected label %q", l)
		}
	}
	if len(info.RelationshipTypes) != 1 || info.RelationshipTypes[0] != "imports" {
		t.Errorf("RelationshipTypes = %v, want [imports]", info.RelationshipTypes)
	}
}

func TestFeatureNames(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	names, err := s.FeatureNames(context.Background(), []string{"verify", "missing"}, 10)
	if err != nil {
		t.Fatalf("FeatureNames: %v", err)
	}
	if len(names) != 1 || names[0] != "VerifyClaim" {
		t.Errorf("names = %v, want [VerifyClaim]", names)
	}
}

func TestDeleteByFile(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	if err := s.DeleteByFile(ctx, "internal/verify/verifier.go"); err != nil {
		t.Fatalf("DeleteByFile: %v", err)
	}
	got, err := s.FindEntities(ctx, "VerifyClaim", 10)
	if err != nil {
		t.Fatalf("FindEntities: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("entity survived delete: %v", got)
	}
}
