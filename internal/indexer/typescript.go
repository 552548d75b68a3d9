package indexer

import (
	"path"
	"regexp"
	"strings"
)

// tsParser extracts classes, interfaces, functions, and methods from
// TypeScript and JavaScript with line regexes. Methods are only recognized
// while a class body is open; control-flow keywords are filtered because
// the method pattern cannot tell them apart.
type tsParser struct{}

var (
	tsClassRe     = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)`)
	tsInterfaceRe = regexp.MustCompile(`^(?:export\s+)?interface\s+(\w+)`)
	tsFuncRe      = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s+(\w+)\s*(\([^)]*\))?`)
	tsArrowRe     = regexp.MustCompile(`^(?:export\s+)?const\s+(\w+)\s*=\s*(?:async\s+)?(?:\([^)]*\)|\w+)[^=]*=>`)
	tsMethodRe    = regexp.MustCompile(`^\s+(?:(?:public|private|protected|static|readonly|async)\s+)*(\w+)\s*(\([^)]*\))\s*(?::[^{]*)?\{`)
	tsImportRe    = regexp.MustCompile(`(?:from\s+|require\()['"]([^'"]+)['"]`)
)

var tsKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"catch": true, "return": true, "function": true, "new": true,
}

func (p *tsParser) Language() string { return "typescript" }

func (p *tsParser) Extensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx"}
}

func (p *tsParser) Parse(relPath string, src []byte) (*FileResult, error) {
	ext := path.Ext(relPath)
	stem := strings.TrimSuffix(path.Base(relPath), ext)
	qualified := strings.TrimSuffix(relPath, ext)
	dir := path.Dir(relPath)

	res := &FileResult{
		Path:   relPath,
		Module: Module{Name: stem, Qualified: qualified, Dir: dir},
	}

	lines := strings.Split(string(src), "\n")
	currentClass := ""
	for i, line := range lines {
		if m := tsImportRe.FindStringSubmatch(line); m != nil {
			res.Imports = append(res.Imports, resolveRelativeImport(dir, m[1]))
			continue
		}

		if m := tsClassRe.FindStringSubmatch(line); m != nil {
			currentClass = m[1]
			res.Symbols = append(res.Symbols, Symbol{
				Name:      m[1],
				Qualified: qualified + "." + m[1],
				Label:     LabelClass,
				StartLine: i + 1,
				EndLine:   braceBlockEnd(lines, i),
			})
			continue
		}
		if m := tsInterfaceRe.FindStringSubmatch(line); m != nil {
			res.Symbols = append(res.Symbols, Symbol{
				Name:      m[1],
				Qualified: qualified + "." + m[1],
				Label:     LabelInterface,
				StartLine: i + 1,
				EndLine:   braceBlockEnd(lines, i),
			})
			continue
		}
		if m := tsFuncRe.FindStringSubmatch(line); m != nil {
			currentClass = ""
			res.Symbols = append(res.Symbols, Symbol{
				Name:      m[1],
				Qualified: qualified + "." + m[1],
				Label:     LabelFunction,
				Signature: m[1] + m[2],
				StartLine: i + 1,
				EndLine:   braceBlockEnd(lines, i),
			})
			continue
		}
		if m := tsArrowRe.FindStringSubmatch(line); m != nil {
			currentClass = ""
			res.Symbols = append(res.Symbols, Symbol{
				Name:      m[1],
				Qualified: qualified + "." + m[1],
				Label:     LabelFunction,
				StartLine: i + 1,
				EndLine:   braceBlockEnd(lines, i),
			})
			continue
		}
		if strings.HasPrefix(line, "}") {
			currentClass = ""
			continue
		}

		if currentClass == "" {
			continue
		}
		if m := tsMethodRe.FindStringSubmatch(line); m != nil && !tsKeywords[m[1]] {
			res.Symbols = append(res.Symbols, Symbol{
				Name:      m[1],
				Qualified: qualified + "." + currentClass + "." + m[1],
				Label:     LabelMethod,
				Signature: m[1] + m[2],
				StartLine: i + 1,
				EndLine:   braceBlockEnd(lines, i),
			})
		}
	}
	return res, nil
}

// braceBlockEnd tracks brace depth from the opening line to the matching
// close. Braces inside strings are not handled; an unbalanced block ends at
// the opening line.
func braceBlockEnd(lines []string, start int) int {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		depth += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		if strings.Contains(lines[i], "{") {
			opened = true
		}
		if opened && depth <= 0 {
			return i + 1
		}
	}
	return start + 1
}

// resolveRelativeImport turns "./auth" style specifiers into
// workspace-relative module paths; bare specifiers pass through.
func resolveRelativeImport(dir, spec string) string {
	if !strings.HasPrefix(spec, ".") {
		return spec
	}
	return path.Clean(path.Join(dir, spec))
}
