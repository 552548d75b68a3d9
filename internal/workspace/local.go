package workspace

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// grepFileCap bounds how many files one Grep call will open.
const grepFileCap = 2000

// grepExtensions are the file types Grep examines.
var grepExtensions = map[string]bool{
	".go": true, ".py": true, ".ts": true, ".tsx": true, ".js": true,
	".jsx": true, ".java": true, ".rb": true, ".rs": true, ".md": true,
	".yaml": true, ".yml": true, ".json": true, ".sql": true, ".proto": true,
}

// skipDirs are directories never descended into.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "dist": true,
	"build": true, "target": true, "__pycache__": true,
}

// Local is the afero-backed Service rooted at one directory. The BasePathFs
// confines every operation to the root even before the explicit path guard.
type Local struct {
	fs   afero.Fs
	root string
}

// NewLocal creates a Service over the OS filesystem rooted at root.
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &Local{
		fs:   afero.NewBasePathFs(afero.NewOsFs(), abs),
		root: abs,
	}, nil
}

// NewLocalWithFs creates a Service over an arbitrary filesystem, for tests.
func NewLocalWithFs(fs afero.Fs, root string) *Local {
	return &Local{fs: fs, root: root}
}

// Root returns the absolute workspace root.
func (l *Local) Root() string { return l.root }

// resolve cleans a path and rejects escapes. The BasePathFs would also refuse
// them, but rejecting early yields a typed error the caller can test for.
func (l *Local) resolve(path string) (string, error) {
	clean := filepath.Clean(strings.TrimSpace(path))
	if clean == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, path)
	}
	return clean, nil
}

// ReadFile returns the contents of one file under the root.
func (l *Local) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := afero.ReadFile(l.fs, clean)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", clean, err)
	}
	return string(data), nil
}

// SearchFiles returns paths matching a glob pattern, sorted for determinism.
// A "**/" prefix is handled by walking the tree and matching basenames.
func (l *Local) SearchFiles(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if base, ok := strings.CutPrefix(pattern, "**/"); ok {
		return l.walkMatch(ctx, base)
	}
	clean, err := l.resolve(pattern)
	if err != nil {
		return nil, err
	}
	matches, err := afero.Glob(l.fs, clean)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func (l *Local) walkMatch(ctx context.Context, base string) ([]string, error) {
	var matches []string
	err := afero.Walk(l.fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if info.IsDir() {
			name := info.Name()
			if skipDirs[name] || (strings.HasPrefix(name, ".") && path != ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(base, info.Name()); ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Exists reports whether a path exists under the root.
func (l *Local) Exists(ctx context.Context, path string) bool {
	if ctx.Err() != nil {
		return false
	}
	clean, err := l.resolve(path)
	if err != nil {
		return false
	}
	ok, err := afero.Exists(l.fs, clean)
	return err == nil && ok
}

// Grep scans source files line by line for a case-insensitive regex match,
// stopping at limit hits.
func (l *Local) Grep(ctx context.Context, pattern string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 20
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	var matches []Match
	filesSeen := 0
	err = afero.Walk(l.fs, ".", func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if info.IsDir() {
			name := info.Name()
			if skipDirs[name] || (strings.HasPrefix(name, ".") && path != ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !grepExtensions[filepath.Ext(path)] {
			return nil
		}
		filesSeen++
		if filesSeen > grepFileCap {
			return filepath.SkipAll
		}

		f, err := l.fs.Open(path)
		if err != nil {
			return nil
		}
		defer func() { _ = f.Close() }()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if re.MatchString(line) {
				matches = append(matches, Match{Path: path, Line: lineNo, Text: strings.TrimSpace(line)})
				if len(matches) >= limit {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	// afero.Walk predates filepath.SkipAll and surfaces it as an error;
	// it only means the hit limit was reached.
	if err != nil && !errors.Is(err, filepath.SkipAll) {
		return matches, err
	}
	return matches, nil
}
