/*
Package graph defines the code-graph backend consumed by context aggregation
and claim verification. Implementations answer bounded, read-only questions
about code entities; they never write.
*/
package graph

import (
	"context"

	"brdgen/internal/brd"
)

// Entity is one code entity row returned by a graph query.
type Entity struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualified_name,omitempty"`
	Label         string `json:"label"`
	FilePath      string `json:"file_path"`
	StartLine     int    `json:"start_line,omitempty"`
	EndLine       int    `json:"end_line,omitempty"`
}

// Service is the narrow contract over a code-graph backend. Every method is
// bounded by limit and honors context cancellation; implementations must be
// safe for concurrent use by sibling runs.
type Service interface {
	// FindEntities returns entities whose name or qualified name contains
	// the given substring, case-insensitive.
	FindEntities(ctx context.Context, nameContains string, limit int) ([]Entity, error)

	// SearchEntities returns entities whose name or qualified name matches
	// the given case-insensitive regular expression.
	SearchEntities(ctx context.Context, pattern string, limit int) ([]Entity, error)

	// Components lists the top-level components of the codebase in
	// discovery order.
	Components(ctx context.Context, limit int) ([]brd.Component, error)

	// Neighbors returns the names of entities the named component depends
	// on, and those depending on it.
	Neighbors(ctx context.Context, name string, limit int) (deps, dependents []string, err error)

	// Schema returns the discovered graph vocabulary.
	Schema(ctx context.Context) (brd.SchemaInfo, error)

	// FeatureNames returns names of existing features matching any of the
	// given terms, for similar-feature discovery.
	FeatureNames(ctx context.Context, terms []string, limit int) ([]string, error)
}

// CodeRef converts an entity into the evidence code-ref shape.
func (e Entity) CodeRef() brd.CodeRef {
	return brd.CodeRef{
		FilePath:   e.FilePath,
		StartLine:  e.StartLine,
		EndLine:    e.EndLine,
		EntityName: e.Name,
		EntityType: e.Label,
	}
}
