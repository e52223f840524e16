package emitter

import (
	"go/token"
	"regexp"
	"sort"
	"strconv"

	"github.com/drblury/eventbind/internal/compiler"
	"github.com/drblury/eventbind/internal/model"
)

const bindingImportPath = "github.com/drblury/eventbind/binding"

// qualifier matches the {import/path}. prefix of a named type inside a key.
var qualifier = regexp.MustCompile(`\{([^{}]*)\}\.`)

// reservedNames cannot be used as import aliases in generated files.
var reservedNames = map[string]bool{
	"reflect": true,
	"binding": true,
	"Table":   true,
	"Finder":  true,
}

type importSpec struct {
	Alias string
	Path  string
}

// importSet allocates one alias per imported package. Packages equal to the
// output package are referenced without a qualifier.
type importSet struct {
	self    string
	aliases map[string]string
	specs   []importSpec
	used    map[string]bool
}

// newImportSet allocates aliases that differ from the reserved names and
// from every identifier in declared.
func newImportSet(self string, result *compiler.Result, declared map[string]string) *importSet {
	s := &importSet{self: self, aliases: make(map[string]string), used: make(map[string]bool)}

	names := make(map[string]string)
	add := func(ref model.PackageRef) {
		if ref.Path == "" || ref.Path == self {
			return
		}
		if _, ok := names[ref.Path]; !ok {
			names[ref.Path] = ref.Name
		}
	}
	for _, tb := range result.Types {
		add(tb.Package)
		for _, g := range tb.Groups {
			for _, imp := range g.EventType.Imports {
				add(imp)
			}
		}
	}

	paths := make([]string, 0, len(names))
	for p := range names {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	used := make(map[string]bool, len(declared))
	for name := range declared {
		used[name] = true
	}
	for _, p := range paths {
		alias := aliasFor(names[p], used)
		used[alias] = true
		s.aliases[p] = alias
		s.specs = append(s.specs, importSpec{Alias: alias, Path: p})
	}
	return s
}

func aliasFor(name string, used map[string]bool) string {
	if name == "" || !token.IsIdentifier(name) || name == "_" {
		name = "pkg"
	}
	candidate := name
	for i := 2; used[candidate] || reservedNames[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	return candidate
}

// goType spells a type key as Go source in the output package.
func (s *importSet) goType(key string) string {
	return qualifier.ReplaceAllStringFunc(key, func(m string) string {
		pkgPath := m[1 : len(m)-2]
		if pkgPath == s.self {
			return ""
		}
		s.used[pkgPath] = true
		return s.aliases[pkgPath] + "."
	})
}

// referenced lists the imports goType has produced so far, by path.
func (s *importSet) referenced() []importSpec {
	var out []importSpec
	for _, spec := range s.specs {
		if s.used[spec.Path] {
			out = append(out, spec)
		}
	}
	return out
}
