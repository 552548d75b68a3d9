package indexer

import (
	"go/ast"
	goparser "go/parser"
	"go/token"
	"go/types"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

// goParser extracts symbols from Go files with go/ast. Module qualified
// names come from go/packages when the workspace is a Go module, falling
// back to the relative directory otherwise.
type goParser struct {
	// pkgByDir maps workspace-relative directories to import paths.
	pkgByDir map[string]string
}

func newGoParser(pkgByDir map[string]string) *goParser {
	return &goParser{pkgByDir: pkgByDir}
}

func (p *goParser) Language() string     { return "go" }
func (p *goParser) Extensions() []string { return []string{".go"} }

func (p *goParser) Parse(relPath string, src []byte) (*FileResult, error) {
	fset := token.NewFileSet()
	file, err := goparser.ParseFile(fset, relPath, src, goparser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	dir := path.Dir(relPath)
	qualified := p.pkgByDir[dir]
	if qualified == "" {
		qualified = dir
		if qualified == "." {
			qualified = file.Name.Name
		}
	}

	res := &FileResult{
		Path:   relPath,
		Module: Module{Name: file.Name.Name, Qualified: qualified, Dir: dir},
	}
	for _, imp := range file.Imports {
		res.Imports = append(res.Imports, strings.Trim(imp.Path.Value, `"`))
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			p.addFunc(fset, d, qualified, res)
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				res.Symbols = append(res.Symbols, Symbol{
					Name:      ts.Name.Name,
					Qualified: qualified + "." + ts.Name.Name,
					Label:     typeLabel(ts.Type),
					StartLine: fset.Position(ts.Pos()).Line,
					EndLine:   fset.Position(ts.End()).Line,
				})
			}
		}
	}
	return res, nil
}

func (p *goParser) addFunc(fset *token.FileSet, d *ast.FuncDecl, module string, res *FileResult) {
	name := d.Name.Name
	label := LabelFunction
	qualified := module + "." + name
	if d.Recv != nil && len(d.Recv.List) > 0 {
		if recv := receiverName(d.Recv.List[0].Type); recv != "" {
			label = LabelMethod
			qualified = module + "." + recv + "." + name
		}
	}

	sym := Symbol{
		Name:      name,
		Qualified: qualified,
		Label:     label,
		Signature: name + strings.TrimPrefix(types.ExprString(d.Type), "func"),
		StartLine: fset.Position(d.Pos()).Line,
		EndLine:   fset.Position(d.End()).Line,
	}
	idx := len(res.Symbols)
	res.Symbols = append(res.Symbols, sym)

	if d.Body != nil {
		collectCalls(d.Body, idx, res)
	}
}

// collectCalls records plain identifier and selector callees. Resolution
// against the indexed symbols happens later; stdlib and builtin names
// simply never resolve.
func collectCalls(body *ast.BlockStmt, caller int, res *FileResult) {
	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		switch fn := call.Fun.(type) {
		case *ast.Ident:
			res.Calls = append(res.Calls, Call{Caller: caller, Callee: fn.Name})
		case *ast.SelectorExpr:
			res.Calls = append(res.Calls, Call{Caller: caller, Callee: fn.Sel.Name})
		}
		return true
	})
}

func receiverName(expr ast.Expr) string {
	for {
		switch t := expr.(type) {
		case *ast.Ident:
			return t.Name
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		default:
			return ""
		}
	}
}

func typeLabel(expr ast.Expr) string {
	switch expr.(type) {
	case *ast.StructType:
		return LabelClass
	case *ast.InterfaceType:
		return LabelInterface
	default:
		return LabelType
	}
}

// loadGoPackageDirs resolves import paths for every package under root.
// Any failure (no module, no toolchain) degrades to directory-derived
// qualified names, so errors are swallowed.
func loadGoPackageDirs(root string) map[string]string {
	if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
		return nil
	}
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles,
		Dir:  root,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil
	}

	byDir := make(map[string]string)
	for _, pkg := range pkgs {
		if pkg.PkgPath == "" || len(pkg.GoFiles) == 0 {
			continue
		}
		rel, err := filepath.Rel(root, filepath.Dir(pkg.GoFiles[0]))
		if err != nil {
			continue
		}
		byDir[filepath.ToSlash(rel)] = pkg.PkgPath
	}
	return byDir
}
