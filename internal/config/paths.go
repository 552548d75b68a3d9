package config

import (
	"os"
	"path/filepath"
)

// DotDirName is the per-workspace directory holding config, logs, the graph
// index, policies, and the telemetry ID.
const DotDirName = ".brdgen"

// DotDir returns the workspace dot directory path.
func DotDir(root string) string {
	return filepath.Join(root, DotDirName)
}

// EnsureDotDir creates the dot directory if needed and returns it.
func EnsureDotDir(root string) (string, error) {
	dir := DotDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ResolvePath anchors a relative config path at the workspace root.
// Absolute paths pass through.
func ResolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
