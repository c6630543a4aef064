// Package gotype is the type-system shim: given a type
// identifier opaque to the source writer, it renders a fully-qualified
// reference usable from a given package, a safe local identifier, and the
// set of import paths the reference requires.
//
// Go has no generic-arity ambiguity the way the .NET type system does
// (`List` vs `List<T>`), but generic instantiations, pointers, slices and
// maps all need to round-trip to syntactically valid Go source, which is
// what Ref and its String/LocalName methods guarantee.
package gotype

import (
	"strings"
	"unicode"
)

// Kind distinguishes the shapes a Ref can take.
type Kind int

const (
	// Named is a plain named type: either a builtin (int, string, error)
	// or a package-qualified type (pkg.Type).
	Named Kind = iota
	// Pointer wraps another Ref with a leading "*".
	Pointer
	// Slice wraps another Ref with a leading "[]".
	Slice
	// Generic is a named type instantiated with one or more type
	// arguments, e.g. Service[int].
	Generic
)

// Ref is an opaque type identifier.
//
// Ref is a value type and is safe to compare with ==: two Refs describing
// the same type produce identical field values.
type Ref struct {
	Kind Kind

	// ImportPath is the package import path, empty for builtins and for
	// types local to the file being rendered.
	ImportPath string
	// PkgName is the package's identifier as used at the call site
	// (defaults to the last import-path segment when empty).
	PkgName string
	// Name is the bare type name ("Config", "int", "error").
	Name string

	// Elem is the pointee/element type for Pointer and Slice kinds.
	Elem *Ref
	// Args are the type arguments for Generic kind.
	Args []Ref
}

// Ptr returns a Ref for a pointer to r.
func Ptr(r Ref) Ref { return Ref{Kind: Pointer, Elem: &r} }

// SliceOf returns a Ref for a slice of r.
func SliceOf(r Ref) Ref { return Ref{Kind: Slice, Elem: &r} }

// Inst returns a Ref for a generic instantiation of r with the given type
// arguments. r itself must be Named.
func Inst(r Ref, args ...Ref) Ref {
	return Ref{Kind: Generic, ImportPath: r.ImportPath, PkgName: r.PkgName, Name: r.Name, Args: args}
}

// Named1 is a convenience constructor for a package-qualified named type.
func Named1(importPath, name string) Ref {
	return Ref{Kind: Named, ImportPath: importPath, Name: name}
}

// Builtin is a convenience constructor for a predeclared type (int, error,
// string, bool, any, ...) which carries no import path.
func Builtin(name string) Ref {
	return Ref{Kind: Named, Name: name}
}

func (r Ref) pkgIdent() string {
	if r.PkgName != "" {
		return r.PkgName
	}
	if r.ImportPath == "" {
		return ""
	}
	segs := strings.Split(r.ImportPath, "/")
	return segs[len(segs)-1]
}

// String renders the fully-qualified reference as it should appear in
// generated source, e.g. "*context.Context", "[]string", "di.Scope[int]".
func (r Ref) String() string {
	switch r.Kind {
	case Pointer:
		return "*" + r.Elem.String()
	case Slice:
		return "[]" + r.Elem.String()
	case Generic:
		var args []string
		for _, a := range r.Args {
			args = append(args, a.String())
		}
		return r.qualifiedName() + "[" + strings.Join(args, ", ") + "]"
	default:
		return r.qualifiedName()
	}
}

func (r Ref) qualifiedName() string {
	if r.ImportPath == "" {
		return r.Name
	}
	return r.pkgIdent() + "." + r.Name
}

// Imports returns the set of import paths required to reference r from
// outside its own package, deduplicated but unordered (callers sort).
func (r Ref) Imports() []string {
	seen := map[string]bool{}
	var out []string
	var walk func(Ref)
	walk = func(rr Ref) {
		if rr.ImportPath != "" && !seen[rr.ImportPath] {
			seen[rr.ImportPath] = true
			out = append(out, rr.ImportPath)
		}
		if rr.Elem != nil {
			walk(*rr.Elem)
		}
		for _, a := range rr.Args {
			walk(a)
		}
	}
	walk(r)
	return out
}

// LocalName renders a safe local identifier for a variable of this type:
// the simple type name, lowercase-first, with any characters illegal in a
// Go identifier (generic brackets, dots, asterisks) stripped.
func (r Ref) LocalName() string {
	base := r.Name
	if base == "" {
		base = "v"
	}
	var b strings.Builder
	first := true
	for _, ch := range base {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			if first {
				b.WriteRune(unicode.ToLower(ch))
				first = false
			} else {
				b.WriteRune(ch)
			}
		}
	}
	name := b.String()
	if name == "" {
		name = "v"
	}
	if unicode.IsDigit([]rune(name)[0]) {
		name = "v" + name
	}
	return name
}

// IsGeneric reports whether r (or, for Pointer/Slice, its element) is a
// generic instantiation.
func (r Ref) IsGeneric() bool {
	if r.Kind == Generic {
		return true
	}
	if r.Elem != nil {
		return r.Elem.IsGeneric()
	}
	return false
}

// Key returns a canonical string uniquely identifying this type, suitable
// as a map key for duplicate-field detection (no two
// injected fields share the same variable-type).
func (r Ref) Key() string { return r.String() }
