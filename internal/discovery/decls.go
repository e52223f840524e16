package discovery

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// PackageDecls returns the package-level identifiers declared by the Go
// files in dir, mapped to their positions. Files named in skip, test files
// and files excluded by build constraints are ignored. A missing dir has no
// declarations.
func (s *Scanner) PackageDecls(dir string, skip ...string) (map[string]string, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[name] = true
	}

	decls := make(map[string]string)
	fset := token.NewFileSet()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || skipped[name] || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		match, err := s.build.MatchFile(dir, name)
		if err != nil {
			return nil, fmt.Errorf("build constraints of %s: %w", name, err)
		}
		if !match {
			continue
		}
		filename := filepath.Join(dir, name)
		src, err := afero.ReadFile(s.fs, filename)
		if err != nil {
			return nil, err
		}
		f, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
		declare := func(id *ast.Ident) {
			if id.Name == "_" {
				return
			}
			if _, ok := decls[id.Name]; !ok {
				decls[id.Name] = fset.Position(id.Pos()).String()
			}
		}
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Recv == nil && d.Name.Name != "init" {
					declare(d.Name)
				}
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					switch sp := spec.(type) {
					case *ast.TypeSpec:
						declare(sp.Name)
					case *ast.ValueSpec:
						for _, id := range sp.Names {
							declare(id)
						}
					}
				}
			}
		}
	}
	return decls, nil
}
