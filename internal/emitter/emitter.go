// Package emitter turns a compiled binding result into Go source, a JSON
// manifest or an in-process binding table.
package emitter

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"path"
	"strconv"
	"strings"
	"text/template"

	"github.com/drblury/eventbind/internal/compiler"
	"github.com/drblury/eventbind/internal/model"
	loggingpkg "github.com/drblury/eventbind/internal/runtime/logging"
)

const (
	SourceFile   = "eventbind_gen.go"
	ManifestFile = "eventbind_manifest.json"
)

var (
	ErrResultRequired    = errors.New("eventbind: compile result is required")
	ErrPackageRequired   = errors.New("eventbind: output package name is required")
	ErrDirectNeedsSource = errors.New("eventbind: the direct strategy requires generated source")
	ErrNameCollision     = errors.New("eventbind: generated name is already declared")
)

// NameCollisionError reports a package-level declaration of the output
// package that the generated file would redeclare.
type NameCollisionError struct {
	Name     string
	Position string
}

func (e *NameCollisionError) Error() string {
	if e.Position == "" {
		return fmt.Sprintf("eventbind: %s is already declared in the output package", e.Name)
	}
	return fmt.Sprintf("eventbind: %s is already declared in the output package at %s", e.Name, e.Position)
}

func (e *NameCollisionError) Is(target error) bool {
	return target == ErrNameCollision
}

// Options configures the generated files.
type Options struct {
	// Package is the name of the output package.
	Package string
	// PackagePath is the import path of the output package. Types declared
	// in it are written without a qualifier.
	PackagePath string
	// Manifest adds eventbind_manifest.json to the artifacts.
	Manifest bool
	// Declared maps the package-level identifiers the output package already
	// declares outside the generated file to their positions. Thunk variables
	// and import aliases avoid them; Table, Finder and the fixed imports
	// cannot, and Generate fails with a NameCollisionError instead.
	Declared map[string]string
	Logger   loggingpkg.ServiceLogger
}

// Artifact is one generated file.
type Artifact struct {
	Name string
	Data []byte
}

// PackageName picks the output package name for pkgPath: the name of a
// bound package with that path, or the last path element otherwise.
func PackageName(result *compiler.Result, pkgPath string) string {
	if result != nil {
		for _, tb := range result.Types {
			if tb.Package.Path == pkgPath && tb.Package.Name != "" {
				return tb.Package.Name
			}
		}
	}
	name := strings.NewReplacer("-", "_", ".", "_").Replace(path.Base(pkgPath))
	if !token.IsIdentifier(name) {
		return "bindings"
	}
	return name
}

// Generate renders the artifacts for result. Output is deterministic for a
// given result and options.
func Generate(result *compiler.Result, opts Options) ([]Artifact, error) {
	if result == nil {
		return nil, ErrResultRequired
	}
	if opts.Package == "" {
		return nil, ErrPackageRequired
	}
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("eventbind: invalid package name %q", opts.Package)
	}

	src, err := renderSource(result, opts)
	if err != nil {
		return nil, err
	}
	artifacts := []Artifact{{Name: SourceFile, Data: src}}

	if opts.Manifest {
		data, err := renderManifest(result, opts)
		if err != nil {
			return nil, fmt.Errorf("render manifest: %w", err)
		}
		artifacts = append(artifacts, Artifact{Name: ManifestFile, Data: data})
	}
	return artifacts, nil
}

type sourceData struct {
	Package  string
	Strategy model.Strategy
	Imports  []importSpec
	Thunks   []thunkData
	Types    []typeData
}

type thunkData struct {
	Var    string
	Label  string
	Owner  string
	Method string
}

type typeData struct {
	Owner   string
	Binders []string
}

var sourceTemplate = template.Must(template.New("source").Parse(`// Code generated by eventbind-gen. DO NOT EDIT.

package {{ .Package }}

import (
{{- if .Types }}
	"reflect"
{{ end }}
	"github.com/drblury/eventbind/binding"
{{- range .Imports }}
	{{ .Alias }} {{ printf "%q" .Path }}
{{- end }}
)
{{ if .Thunks }}
var (
{{- range .Thunks }}
	{{ .Var }} = binding.Direct({{ printf "%q" .Label }}, ({{ .Owner }}).{{ .Method }})
{{- end }}
)
{{ end }}
// Table holds the subscriber bindings of this package ({{ .Strategy }} strategy).
var Table = binding.MustBuild(binding.NewTableBuilder(){{ range .Types }}.
	Bind(reflect.TypeFor[{{ .Owner }}](){{ range .Binders }},
		{{ . }}{{ end }},
	){{ end }}{{ if .Types }},
{{ end }})

// Finder returns Table for registration with a dispatcher.
func Finder() binding.Finder { return Table }
`))

// fixedNames returns the file and package scope names the generated source
// always declares.
func fixedNames(result *compiler.Result) []string {
	names := []string{"Table", "Finder", "binding"}
	if len(result.Types) > 0 {
		names = append(names, "reflect")
	}
	return names
}

func renderSource(result *compiler.Result, opts Options) ([]byte, error) {
	var collisions []error
	for _, name := range fixedNames(result) {
		if pos, ok := opts.Declared[name]; ok {
			collisions = append(collisions, &NameCollisionError{Name: name, Position: pos})
		}
	}
	if len(collisions) > 0 {
		return nil, errors.Join(collisions...)
	}

	imports := newImportSet(opts.PackagePath, result, opts.Declared)
	data := sourceData{
		Package:  opts.Package,
		Strategy: result.Strategy,
	}

	vars := make(map[string]bool, len(opts.Declared))
	for name := range opts.Declared {
		vars[name] = true
	}
	for _, tb := range result.Types {
		owner := imports.goType(tb.OwnerKey())
		td := typeData{Owner: owner}
		for _, g := range tb.Groups {
			for _, m := range g.Methods {
				if result.Strategy == model.StrategyDirect {
					v := thunkVar(tb.Type.Name, m.Name, vars)
					data.Thunks = append(data.Thunks, thunkData{
						Var:    v,
						Label:  m.QualifiedName(),
						Owner:  owner,
						Method: m.Name,
					})
					td.Binders = append(td.Binders, v)
					continue
				}
				td.Binders = append(td.Binders, fmt.Sprintf(
					"binding.Deferred(reflect.TypeFor[%s](), %s, reflect.TypeFor[%s]())",
					owner, strconv.Quote(m.Name), imports.goType(g.EventType.Key),
				))
			}
		}
		data.Types = append(data.Types, td)
	}
	data.Imports = imports.referenced()

	var buf bytes.Buffer
	if err := sourceTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", SourceFile, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", SourceFile, err)
	}
	return src, nil
}

func thunkVar(typeName, method string, used map[string]bool) string {
	base := "thunk" + typeName + method
	name := base
	for i := 2; used[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	used[name] = true
	return name
}
