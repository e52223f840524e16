// Package discovery finds declarations marked with the subscribe directive
// in Go source trees.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/build"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/mod/modfile"
	"golang.org/x/sync/errgroup"

	"github.com/drblury/eventbind/internal/model"
	loggingpkg "github.com/drblury/eventbind/internal/runtime/logging"
)

// Directive marks a method as a subscriber when it appears on its own line
// in the method's doc comment.
const Directive = "//eventbind:subscribe"

var ErrNoModule = errors.New("eventbind: no go.mod found")

// Scanner parses Go files from a filesystem.
type Scanner struct {
	fs      afero.Fs
	logger  loggingpkg.ServiceLogger
	workers int
	build   build.Context
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger routes scan diagnostics to logger.
func WithLogger(logger loggingpkg.ServiceLogger) Option {
	return func(s *Scanner) { s.logger = loggingpkg.OrDiscard(logger) }
}

// WithWorkers bounds the number of files parsed concurrently.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithBuildTags adds tags to the build constraints files must satisfy.
func WithBuildTags(tags ...string) Option {
	return func(s *Scanner) {
		s.build.BuildTags = append(s.build.BuildTags, tags...)
	}
}

func NewScanner(fs afero.Fs, opts ...Option) *Scanner {
	s := &Scanner{fs: fs, logger: loggingpkg.Discard(), workers: 8, build: newBuildContext(fs)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Module describes the module a directory belongs to.
type Module struct {
	Root string
	Path string
}

// ImportPath returns the import path of the package in dir.
func (m Module) ImportPath(dir string) (string, error) {
	rel, err := filepath.Rel(m.Root, dir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return m.Path, nil
	}
	if strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("eventbind: %s is outside module %s", dir, m.Path)
	}
	return path.Join(m.Path, rel), nil
}

// FindModule walks up from dir to the nearest go.mod.
func (s *Scanner) FindModule(dir string) (Module, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Module{}, err
	}
	for current := abs; ; {
		data, err := afero.ReadFile(s.fs, filepath.Join(current, "go.mod"))
		if err == nil {
			modPath := modfile.ModulePath(data)
			if modPath == "" {
				return Module{}, fmt.Errorf("eventbind: %s/go.mod declares no module path", current)
			}
			return Module{Root: current, Path: modPath}, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Module{}, err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return Module{}, fmt.Errorf("%w above %s", ErrNoModule, dir)
		}
		current = parent
	}
}

type sourceFile struct {
	path    string
	rel     string
	pkgPath string
}

// ScanDirs scans every directory and concatenates the results in argument
// order.
func (s *Scanner) ScanDirs(ctx context.Context, dirs ...string) ([]model.CandidateMethod, error) {
	var all []model.CandidateMethod
	for _, dir := range dirs {
		found, err := s.ScanDir(ctx, dir)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	return all, nil
}

// ScanDir scans dir recursively. Test files, testdata, vendor and hidden
// directories are skipped. Candidates are ordered by file path, then by
// source position.
func (s *Scanner) ScanDir(ctx context.Context, dir string) ([]model.CandidateMethod, error) {
	mod, err := s.FindModule(dir)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	files, err := s.collect(root, mod)
	if err != nil {
		return nil, err
	}

	results := make([][]model.CandidateMethod, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found, err := s.scanFile(f.path, f.rel, f.pkgPath)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.CandidateMethod
	for _, found := range results {
		out = append(out, found...)
	}
	s.logger.Debug("Scanned source tree", loggingpkg.LogFields{
		"dir":        dir,
		"module":     mod.Path,
		"files":      len(files),
		"candidates": len(out),
	})
	return out, nil
}

func (s *Scanner) collect(root string, mod Module) ([]sourceFile, error) {
	var files []sourceFile
	err := afero.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if info.IsDir() {
			if p != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}
		match, err := s.build.MatchFile(filepath.Dir(p), name)
		if err != nil {
			return fmt.Errorf("build constraints of %s: %w", p, err)
		}
		if !match {
			s.logger.Debug("Skipping file excluded by build constraints", loggingpkg.LogFields{"file": p})
			return nil
		}
		pkgPath, err := mod.ImportPath(filepath.Dir(p))
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(mod.Root, p)
		if err != nil {
			rel = p
		}
		files = append(files, sourceFile{path: p, rel: filepath.ToSlash(rel), pkgPath: pkgPath})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

// ScanFile scans one file whose package has import path pkgPath.
func (s *Scanner) ScanFile(filename, pkgPath string) ([]model.CandidateMethod, error) {
	return s.scanFile(filename, filepath.ToSlash(filename), pkgPath)
}

func (s *Scanner) scanFile(filename, display, pkgPath string) ([]model.CandidateMethod, error) {
	src, err := afero.ReadFile(s.fs, filename)
	if err != nil {
		return nil, err
	}
	return ParseSource(display, src, pkgPath)
}

// ParseSource extracts candidates from Go source. filename is only used for
// positions.
func ParseSource(filename string, src []byte, pkgPath string) ([]model.CandidateMethod, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	ctx := newFileContext(f, pkgPath)
	var out []model.CandidateMethod
	add := func(c model.CandidateMethod, pos token.Pos) {
		c.Package = ctx.pkg
		c.Position = fset.Position(pos).String()
		out = append(out, c)
	}

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if !hasDirective(d.Doc) {
				continue
			}
			add(ctx.funcCandidate(d), d.Pos())
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch sp := spec.(type) {
				case *ast.TypeSpec:
					if hasDirective(sp.Doc) || (len(d.Specs) == 1 && hasDirective(d.Doc)) {
						add(model.CandidateMethod{Name: sp.Name.Name, Kind: model.KindType}, sp.Pos())
					}
					for _, field := range fieldsOf(sp.Type) {
						if !hasDirective(field.Doc) {
							continue
						}
						name := sp.Name.Name
						if len(field.Names) > 0 {
							name = field.Names[0].Name
						}
						add(model.CandidateMethod{Name: name, Kind: model.KindField}, field.Pos())
					}
				case *ast.ValueSpec:
					if hasDirective(sp.Doc) || (len(d.Specs) == 1 && hasDirective(d.Doc)) {
						add(model.CandidateMethod{Name: sp.Names[0].Name, Kind: model.KindValue}, sp.Pos())
					}
				}
			}
		}
	}
	return out, nil
}

func hasDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		text := strings.TrimRight(c.Text, " \t")
		if text == Directive || strings.HasPrefix(text, Directive+" ") {
			return true
		}
	}
	return false
}

// fieldsOf returns the fields of struct types and the methods of interface
// types declared inline.
func fieldsOf(expr ast.Expr) []*ast.Field {
	switch t := expr.(type) {
	case *ast.StructType:
		return t.Fields.List
	case *ast.InterfaceType:
		return t.Methods.List
	}
	return nil
}
