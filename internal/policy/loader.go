package policy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// File is one loaded Rego policy source.
type File struct {
	// Path is the path the file was loaded from, used as the Rego module name.
	Path string `json:"path"`
	// Name is the base name without the .rego extension.
	Name string `json:"name"`
	// Content is the raw Rego source.
	Content string `json:"content"`
}

// Loader scans a directory tree for .rego files over an afero filesystem,
// so tests can run against a MemMapFs.
type Loader struct {
	fs      afero.Fs
	baseDir string
}

// NewLoader creates a loader rooted at baseDir.
func NewLoader(fs afero.Fs, baseDir string) *Loader {
	return &Loader{fs: fs, baseDir: baseDir}
}

// LoadAll loads every .rego file under the base directory, recursively.
// A missing directory means no policies are configured and is not an error.
func (l *Loader) LoadAll() ([]*File, error) {
	exists, err := afero.DirExists(l.fs, l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("check policies directory: %w", err)
	}
	if !exists {
		return nil, nil
	}

	var files []*File
	err = afero.Walk(l.fs, l.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".rego") {
			return nil
		}
		f, err := l.loadFile(path)
		if err != nil {
			return fmt.Errorf("load policy %s: %w", path, err)
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk policies directory: %w", err)
	}
	return files, nil
}

func (l *Loader) loadFile(path string) (*File, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return &File{
		Path:    path,
		Name:    strings.TrimSuffix(filepath.Base(path), ".rego"),
		Content: string(content),
	}, nil
}
