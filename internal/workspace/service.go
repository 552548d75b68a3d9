/*
Package workspace provides the filesystem backend for context aggregation and
claim verification: path-safe reads, glob search, and bounded content grep
rooted at the analyzed project.
*/
package workspace

import (
	"context"
	"errors"
)

// ErrPathEscapesRoot is returned when a requested path resolves outside the
// workspace root.
var ErrPathEscapesRoot = errors.New("path escapes workspace root")

// Match is one grep hit inside the workspace.
type Match struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Service is the narrow contract over a source tree. All paths are relative
// to the workspace root; escapes are rejected. Implementations must be safe
// for concurrent use by sibling runs.
type Service interface {
	// ReadFile returns the contents of one file.
	ReadFile(ctx context.Context, path string) (string, error)

	// SearchFiles returns paths matching a glob pattern, sorted.
	SearchFiles(ctx context.Context, glob string) ([]string, error)

	// Exists reports whether a path exists.
	Exists(ctx context.Context, path string) bool

	// Grep returns up to limit lines matching a case-insensitive regular
	// expression across source files.
	Grep(ctx context.Context, pattern string, limit int) ([]Match, error)

	// Root returns the absolute workspace root.
	Root() string
}
