/*
Package skills indexes skill definitions: named instruction bundles the LLM
session activates when a trigger phrase appears in a prompt. The orchestrator
registers skill directories with the session once at startup; prompt
composition only ever inserts trigger phrases. Skill bodies never enter a
prompt from this side.
*/
package skills

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.md
var builtinFS embed.FS

// ErrNoSuchSkill is returned when a trigger or name resolves to nothing.
var ErrNoSuchSkill = errors.New("no such skill")

// Skill is one named instruction bundle.
type Skill struct {
	Name         string   `json:"name"`
	Triggers     []string `json:"triggers"`
	Instructions string   `json:"instructions"`
	Tools        []string `json:"tools,omitempty"`
	// Source is "builtin" or the file the skill was loaded from.
	Source string `json:"source"`
}

// frontmatter is the YAML header of a skill file.
type frontmatter struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
	Tools    []string `yaml:"tools"`
}

// Registry holds loaded skills keyed by name and by lowercased trigger.
type Registry struct {
	byName    map[string]*Skill
	byTrigger map[string]*Skill
	order     []string
	dirs      []string
}

// NewRegistry loads the embedded built-in skills unless disabled, then
// overlays skills from each dir in order; later definitions override earlier
// ones by name. Unreadable files are skipped with their error collected into
// the returned error, but loading always yields a usable registry.
func NewRegistry(dirs []string, disableBuiltin bool) (*Registry, error) {
	r := &Registry{
		byName:    make(map[string]*Skill),
		byTrigger: make(map[string]*Skill),
		dirs:      dirs,
	}

	var errs []error
	if !disableBuiltin {
		if err := r.loadBuiltin(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, dir := range dirs {
		if err := r.LoadDir(dir); err != nil {
			errs = append(errs, err)
		}
	}
	return r, errors.Join(errs...)
}

func (r *Registry) loadBuiltin() error {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return fmt.Errorf("read builtin skills: %w", err)
	}
	for _, entry := range entries {
		data, err := builtinFS.ReadFile("builtin/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read builtin skill %s: %w", entry.Name(), err)
		}
		skill, err := parseSkill(data, "builtin")
		if err != nil {
			return fmt.Errorf("parse builtin skill %s: %w", entry.Name(), err)
		}
		r.add(skill)
	}
	return nil
}

// LoadDir reads every *.md skill file in dir, overriding existing skills by
// name. A missing directory is not an error.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read skills directory %s: %w", dir, err)
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("read skill %s: %w", path, err))
			continue
		}
		skill, err := parseSkill(data, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse skill %s: %w", path, err))
			continue
		}
		r.add(skill)
	}
	return errors.Join(errs...)
}

func (r *Registry) add(s *Skill) {
	if prev, ok := r.byName[s.Name]; ok {
		// Override: drop the previous skill's trigger bindings.
		for _, t := range prev.Triggers {
			delete(r.byTrigger, strings.ToLower(strings.TrimSpace(t)))
		}
	} else {
		r.order = append(r.order, s.Name)
	}
	r.byName[s.Name] = s
	for _, t := range s.Triggers {
		r.byTrigger[strings.ToLower(strings.TrimSpace(t))] = s
	}
}

// ByTrigger resolves a trigger phrase, case-insensitive exact match.
func (r *Registry) ByTrigger(phrase string) (*Skill, error) {
	s, ok := r.byTrigger[strings.ToLower(strings.TrimSpace(phrase))]
	if !ok {
		return nil, fmt.Errorf("%w: trigger %q", ErrNoSuchSkill, phrase)
	}
	return s, nil
}

// ByName resolves a skill by its name.
func (r *Registry) ByName(name string) (*Skill, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchSkill, name)
	}
	return s, nil
}

// All returns loaded skills in load order.
func (r *Registry) All() []*Skill {
	out := make([]*Skill, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Triggers returns every registered trigger phrase, sorted.
func (r *Registry) Triggers() []string {
	out := make([]string, 0, len(r.byTrigger))
	for t := range r.byTrigger {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dirs returns the external skill directories, for one-shot registration
// with the LLM session.
func (r *Registry) Dirs() []string { return r.dirs }

// parseSkill splits YAML frontmatter from the Markdown instruction body.
func parseSkill(data []byte, source string) (*Skill, error) {
	text := strings.TrimSpace(string(data))
	body := text
	var fm frontmatter

	if after, ok := strings.CutPrefix(text, "---"); ok {
		head, rest, found := strings.Cut(after, "\n---")
		if !found {
			return nil, fmt.Errorf("unterminated frontmatter")
		}
		if err := yaml.Unmarshal([]byte(head), &fm); err != nil {
			return nil, fmt.Errorf("frontmatter: %w", err)
		}
		body = strings.TrimSpace(rest)
		// Drop the remainder of the closing delimiter line.
		if idx := strings.Index(rest, "\n"); idx >= 0 {
			body = strings.TrimSpace(rest[idx+1:])
		}
	}

	if fm.Name == "" {
		return nil, fmt.Errorf("skill has no name")
	}
	if len(fm.Triggers) == 0 {
		return nil, fmt.Errorf("skill %s has no triggers", fm.Name)
	}
	return &Skill{
		Name:         fm.Name,
		Triggers:     fm.Triggers,
		Instructions: body,
		Tools:        fm.Tools,
		Source:       source,
	}, nil
}
