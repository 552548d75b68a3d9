package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func memWorkspace(t *testing.T) *Local {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"main.go":                    "package main\n\nfunc main() { run() }\n",
		"internal/verify/verify.go":  "package verify\n\n// VerifyClaim checks one claim.\nfunc VerifyClaim() {}\n",
		"internal/verify/helpers.py": "def verify_claim():\n    pass\n",
		"docs/readme.md":             "# Sample\n",
		"node_modules/dep/index.js":  "function verifyClaim() {}\n",
	}
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewLocalWithFs(fs, "/ws")
}

func TestReadFileRejectsEscapes(t *testing.T) {
	l := memWorkspace(t)
	ctx := context.Background()

	for _, path := range []string{"../etc/passwd", "/etc/passwd", "..", "a/../../b"} {
		t.Run(path, func(t *testing.T) {
			_, err := l.ReadFile(ctx, path)
			if !errors.Is(err, ErrPathEscapesRoot) {
				t.Errorf("ReadFile(%q) err = %v, want ErrPathEscapesRoot", path, err)
			}
		})
	}
}

func TestReadFileReturnsContent(t *testing.T) {
	l := memWorkspace(t)
	got, err := l.ReadFile(context.Background(), "docs/readme.md")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != "# Sample\n" {
		t.Errorf("content = %q", got)
	}
}

func TestSearchFilesRecursiveGlob(t *testing.T) {
	l := memWorkspace(t)
	got, err := l.SearchFiles(context.Background(), "**/*.go")
	if err != nil {
		t.Fatalf("SearchFiles: %v", err)
	}
	want := []string{"internal/verify/verify.go", "main.go"}
	if len(got) != len(want) {
		t.Fatalf("matches = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("matches[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExists(t *testing.T) {
	l := memWorkspace(t)
	ctx := context.Background()
	if !l.Exists(ctx, "main.go") {
		t.Error("main.go should exist")
	}
	if l.Exists(ctx, "missing.go") {
		t.Error("missing.go should not exist")
	}
	if l.Exists(ctx, "../outside") {
		t.Error("escaping path should not exist")
	}
}

func TestGrepFindsMatchesAndSkipsVendoredDirs(t *testing.T) {
	l := memWorkspace(t)
	matches, err := l.Grep(context.Background(), `verify.?claim`, 10)
	if err != nil {
		t.Fatalf("Grep: %v", err)
	}
	// Hits in verify.go and helpers.py; node_modules is skipped.
	if len(matches) != 3 {
		t.Fatalf("matches = %v, want 3 hits", matches)
	}
	for _, m := range matches {
		if m.Path == "node_modules/dep/index.js" {
			t.Errorf("grep descended into node_modules: %v", m)
		}
	}
}

func TestGrepHonorsLimit(t *testing.T) {
	l := memWorkspace(t)
	matches, err := l.Grep(context.Background(), `verify`, 1)
	if err != nil {
		t.Fatalf("Grep: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("limit ignored: %d matches", len(matches))
	}
}

func TestGrepRejectsBadPattern(t *testing.T) {
	l := memWorkspace(t)
	if _, err := l.Grep(context.Background(), `([`, 10); err == nil {
		t.Error("invalid pattern should error")
	}
}
