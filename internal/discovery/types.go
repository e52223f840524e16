package discovery

import (
	"go/ast"
	"go/token"
	"go/types"
	"path"
	"strconv"
	"strings"

	"github.com/drblury/eventbind/binding"
	"github.com/drblury/eventbind/internal/model"
)

// predeclared maps predeclared type names to their canonical keys.
var predeclared = map[string]string{
	"bool": "bool", "string": "string", "error": "error", "any": "any",
	"int": "int", "int8": "int8", "int16": "int16", "int32": "int32", "int64": "int64",
	"uint": "uint", "uint8": "uint8", "uint16": "uint16", "uint32": "uint32", "uint64": "uint64",
	"uintptr": "uintptr", "float32": "float32", "float64": "float64",
	"complex64": "complex64", "complex128": "complex128",
	"byte": "uint8", "rune": "int32",
}

type fileContext struct {
	pkg     model.PackageRef
	imports map[string]model.PackageRef
	// typeParams holds the receiver type parameters of the method being
	// converted.
	typeParams map[string]bool
}

func newFileContext(f *ast.File, pkgPath string) *fileContext {
	ctx := &fileContext{
		pkg:     model.PackageRef{Path: pkgPath, Name: f.Name.Name},
		imports: make(map[string]model.PackageRef),
	}
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		name := guessPackageName(p)
		local := name
		if imp.Name != nil {
			local = imp.Name.Name
		}
		if local == "_" || local == "." {
			continue
		}
		ctx.imports[local] = model.PackageRef{Path: p, Name: name}
	}
	return ctx
}

// guessPackageName derives a package name from its import path, skipping a
// trailing major version element.
func guessPackageName(importPath string) string {
	base := path.Base(importPath)
	if len(base) > 1 && base[0] == 'v' && isDigits(base[1:]) {
		if parent := path.Dir(importPath); parent != "." {
			base = path.Base(parent)
		}
	}
	if i := strings.LastIndex(base, ".v"); i > 0 && isDigits(base[i+2:]) {
		base = base[:i]
	}
	base = strings.TrimPrefix(base, "go-")
	return strings.NewReplacer("-", "_", ".", "_").Replace(base)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func (c *fileContext) funcCandidate(d *ast.FuncDecl) model.CandidateMethod {
	cand := model.CandidateMethod{Name: d.Name.Name, Kind: model.KindFunc}
	c.typeParams = nil
	if d.Recv != nil && len(d.Recv.List) > 0 {
		cand.Kind = model.KindMethod
		recv := c.receiverRef(d.Recv.List[0].Type)
		cand.Receiver = &recv
	}

	if params := d.Type.Params; params != nil {
		for _, field := range params.List {
			typ := field.Type
			if ell, ok := typ.(*ast.Ellipsis); ok {
				cand.Variadic = true
				typ = &ast.ArrayType{Elt: ell.Elt}
			}
			ref := c.typeRef(typ)
			if len(field.Names) == 0 {
				cand.Params = append(cand.Params, model.Param{Type: ref})
				continue
			}
			for _, name := range field.Names {
				cand.Params = append(cand.Params, model.Param{Name: name.Name, Type: ref})
			}
		}
	}
	if results := d.Type.Results; results != nil {
		for _, field := range results.List {
			ref := c.typeRef(field.Type)
			n := len(field.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				cand.Results = append(cand.Results, ref)
			}
		}
	}
	return cand
}

// receiverRef describes the base type of a method receiver and records its
// type parameters.
func (c *fileContext) receiverRef(expr ast.Expr) model.TypeRef {
	pointer := false
	if star, ok := expr.(*ast.StarExpr); ok {
		pointer = true
		expr = star.X
	}

	generic := false
	var params []ast.Expr
	switch t := expr.(type) {
	case *ast.IndexExpr:
		generic, expr, params = true, t.X, []ast.Expr{t.Index}
	case *ast.IndexListExpr:
		generic, expr, params = true, t.X, t.Indices
	}
	if len(params) > 0 {
		c.typeParams = make(map[string]bool, len(params))
		for _, p := range params {
			if id, ok := p.(*ast.Ident); ok {
				c.typeParams[id.Name] = true
			}
		}
	}

	ident, ok := expr.(*ast.Ident)
	if !ok {
		return model.TypeRef{Key: types.ExprString(expr), Pointer: pointer}
	}
	return model.TypeRef{
		Key:        binding.QualifiedKey(c.pkg.Path, ident.Name),
		Name:       ident.Name,
		PkgPath:    c.pkg.Path,
		PkgName:    c.pkg.Name,
		Pointer:    pointer,
		Accessible: token.IsExported(ident.Name) && !generic,
		Generic:    generic,
		Imports:    []model.PackageRef{c.pkg},
	}
}

// typeRef converts a type expression into its canonical form. Shapes that
// generated code cannot spell from another package are marked inaccessible.
func (c *fileContext) typeRef(expr ast.Expr) model.TypeRef {
	switch t := expr.(type) {
	case *ast.ParenExpr:
		return c.typeRef(t.X)

	case *ast.Ident:
		if c.typeParams[t.Name] {
			return model.TypeRef{Key: t.Name, Name: t.Name, Generic: true}
		}
		if key, ok := predeclared[t.Name]; ok {
			return model.TypeRef{Key: key, Name: key, Accessible: true}
		}
		return model.TypeRef{
			Key:        binding.QualifiedKey(c.pkg.Path, t.Name),
			Name:       t.Name,
			PkgPath:    c.pkg.Path,
			PkgName:    c.pkg.Name,
			Accessible: token.IsExported(t.Name),
			Imports:    []model.PackageRef{c.pkg},
		}

	case *ast.SelectorExpr:
		x, ok := t.X.(*ast.Ident)
		imp, known := c.imports[identName(x)]
		if !ok || !known {
			return model.TypeRef{Key: types.ExprString(t)}
		}
		return model.TypeRef{
			Key:        binding.QualifiedKey(imp.Path, t.Sel.Name),
			Name:       t.Sel.Name,
			PkgPath:    imp.Path,
			PkgName:    imp.Name,
			Accessible: token.IsExported(t.Sel.Name),
			Imports:    []model.PackageRef{imp},
		}

	case *ast.StarExpr:
		elem := c.typeRef(t.X)
		return wrap("*"+elem.Key, elem, true, elem)

	case *ast.ArrayType:
		elem := c.typeRef(t.Elt)
		if t.Len == nil {
			return wrap("[]"+elem.Key, elem, false, elem)
		}
		lit, ok := t.Len.(*ast.BasicLit)
		if !ok || lit.Kind != token.INT {
			ref := wrap("["+types.ExprString(t.Len)+"]"+elem.Key, elem, false, elem)
			ref.Accessible = false
			return ref
		}
		n, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return model.TypeRef{Key: types.ExprString(t)}
		}
		return wrap("["+strconv.FormatInt(n, 10)+"]"+elem.Key, elem, false, elem)

	case *ast.MapType:
		key := c.typeRef(t.Key)
		val := c.typeRef(t.Value)
		return wrap("map["+key.Key+"]"+val.Key, key, false, key, val)

	case *ast.ChanType:
		elem := c.typeRef(t.Value)
		prefix := "chan "
		switch t.Dir {
		case ast.RECV:
			prefix = "<-chan "
		case ast.SEND:
			prefix = "chan<- "
		}
		return wrap(prefix+elem.Key, elem, false, elem)

	case *ast.InterfaceType:
		if t.Methods == nil || len(t.Methods.List) == 0 {
			return model.TypeRef{Key: "any", Name: "any", Accessible: true}
		}

	case *ast.IndexExpr, *ast.IndexListExpr:
		return model.TypeRef{Key: types.ExprString(t), Generic: true}
	}
	return model.TypeRef{Key: types.ExprString(expr)}
}

// wrap builds a composite reference from its components.
func wrap(key string, base model.TypeRef, pointer bool, parts ...model.TypeRef) model.TypeRef {
	ref := model.TypeRef{Key: key, Pointer: pointer, Accessible: true}
	if pointer {
		ref.Name = base.Name
		ref.PkgPath = base.PkgPath
		ref.PkgName = base.PkgName
	}
	seen := make(map[string]bool)
	for _, p := range parts {
		ref.Accessible = ref.Accessible && p.Accessible
		ref.Generic = ref.Generic || p.Generic
		for _, imp := range p.Imports {
			if !seen[imp.Path] {
				seen[imp.Path] = true
				ref.Imports = append(ref.Imports, imp)
			}
		}
	}
	return ref
}

func identName(id *ast.Ident) string {
	if id == nil {
		return ""
	}
	return id.Name
}
