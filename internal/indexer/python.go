package indexer

import (
	"path"
	"regexp"
	"strings"
)

// pythonParser extracts classes, functions, and methods with line regexes.
// Block extents come from indentation; decorators and docstrings are
// ignored.
type pythonParser struct{}

var (
	pyClassRe  = regexp.MustCompile(`^class\s+(\w+)`)
	pyDefRe    = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+(\w+)\s*(\([^)]*\))?`)
	pyImportRe = regexp.MustCompile(`^(?:from\s+([\w.]+)\s+import\b|import\s+([\w.]+))`)
)

func (p *pythonParser) Language() string     { return "python" }
func (p *pythonParser) Extensions() []string { return []string{".py"} }

func (p *pythonParser) Parse(relPath string, src []byte) (*FileResult, error) {
	stem := strings.TrimSuffix(path.Base(relPath), ".py")
	qualified := strings.TrimSuffix(relPath, ".py")

	res := &FileResult{
		Path:   relPath,
		Module: Module{Name: stem, Qualified: qualified, Dir: path.Dir(relPath)},
	}

	lines := strings.Split(string(src), "\n")
	currentClass := ""
	for i, line := range lines {
		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			mod := m[1]
			if mod == "" {
				mod = m[2]
			}
			res.Imports = append(res.Imports, strings.ReplaceAll(mod, ".", "/"))
			continue
		}

		if m := pyClassRe.FindStringSubmatch(line); m != nil {
			currentClass = m[1]
			res.Symbols = append(res.Symbols, Symbol{
				Name:      m[1],
				Qualified: qualified + "." + m[1],
				Label:     LabelClass,
				StartLine: i + 1,
				EndLine:   pyBlockEnd(lines, i, 0),
			})
			continue
		}

		if m := pyDefRe.FindStringSubmatch(line); m != nil {
			indent, name, params := len(m[1]), m[2], m[3]
			sym := Symbol{
				Name:      name,
				Qualified: qualified + "." + name,
				Label:     LabelFunction,
				Signature: name + params,
				StartLine: i + 1,
				EndLine:   pyBlockEnd(lines, i, indent),
			}
			if indent > 0 && currentClass != "" {
				sym.Label = LabelMethod
				sym.Qualified = qualified + "." + currentClass + "." + name
			}
			if indent == 0 {
				currentClass = ""
			}
			res.Symbols = append(res.Symbols, sym)
		}
	}
	return res, nil
}

// pyBlockEnd finds the last line of the block opened at start: the last
// non-blank line before indentation returns to the opening level.
func pyBlockEnd(lines []string, start, indent int) int {
	end := start + 1
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if len(lines[i])-len(strings.TrimLeft(lines[i], " \t")) <= indent {
			break
		}
		end = i + 1
	}
	return end
}
