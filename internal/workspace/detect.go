package workspace

import (
	"os"
	"path/filepath"
)

// rootMarkers identify a project root, checked in priority order. An
// existing .brdgen directory always wins so re-runs stay anchored to the
// same root.
var rootMarkers = []string{
	".brdgen",
	".git",
	"go.mod",
	"package.json",
	"pyproject.toml",
	"Cargo.toml",
	"pom.xml",
}

// DetectRoot walks up from start looking for a project root marker and
// returns the first directory that carries one. When nothing matches, start
// itself is returned.
func DetectRoot(start string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		return start
	}

	dir := abs
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		dir = parent
	}
}

// DotDir returns the .brdgen directory under a workspace root.
func DotDir(root string) string {
	return filepath.Join(root, ".brdgen")
}
