/*
Package indexer builds the local code graph. It walks the workspace, routes
source files through a small per-language parser registry, and writes the
extracted entities and relations into the sqlitegraph store that backs
context aggregation and claim verification.
*/
package indexer

import (
	"path"
	"strings"
)

// Entity labels written to the graph. Module rows double as components;
// the callable labels feed similar-feature discovery.
const (
	LabelModule    = "module"
	LabelClass     = "class"
	LabelFunction  = "function"
	LabelMethod    = "method"
	LabelInterface = "interface"
	LabelType      = "type"
)

// Relation kinds written to the graph.
const (
	RelationContains = "contains"
	RelationImports  = "imports"
	RelationCalls    = "calls"
)

// Module identifies the container a file's symbols belong to. Qualified is
// the graph key: the Go import path when resolvable, otherwise the
// workspace-relative directory (Go) or extension-less file path (Python,
// TypeScript).
type Module struct {
	Name      string
	Qualified string
	Dir       string
}

// Symbol is one extracted code entity.
type Symbol struct {
	Name      string
	Qualified string
	Label     string
	Signature string
	StartLine int
	EndLine   int
}

// Call records that the symbol at index Caller invokes something named
// Callee. Callees resolve against the indexed symbols after all files are
// parsed; unresolved calls are dropped.
type Call struct {
	Caller int
	Callee string
}

// FileResult is everything a parser extracted from one file. Paths are
// workspace-relative with forward slashes.
type FileResult struct {
	Path    string
	Module  Module
	Symbols []Symbol
	Imports []string
	Calls   []Call
}

// Parser extracts symbols from one source file.
type Parser interface {
	Language() string
	Extensions() []string
	Parse(relPath string, src []byte) (*FileResult, error)
}

// Registry routes files to parsers by extension.
type Registry struct {
	byExt map[string]Parser
}

// NewRegistry builds a registry over the given parsers. Later parsers win
// on extension conflicts.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{byExt: make(map[string]Parser)}
	for _, p := range parsers {
		for _, ext := range p.Extensions() {
			r.byExt[ext] = p
		}
	}
	return r
}

// ForFile returns the parser for the file's extension, or nil.
func (r *Registry) ForFile(relPath string) Parser {
	return r.byExt[strings.ToLower(path.Ext(relPath))]
}
