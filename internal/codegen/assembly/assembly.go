// Package assembly is the assembly emitter. It takes the
// typebuilder.Type values produced for every operation, renders each to
// a complete, gofmt-formatted Go source file, hands the whole set to a
// resolve.Compiler, and binds the compiled result back to the
// operation.Descriptor it was generated for.
//
// File headers and the "one generated file per type, package inferred
// from namespace" layout follow the generator's own convention in this
// codebase's history (di2's "// Code generated by ...; DO NOT EDIT."
// banner and writeFormatted helper) — the difference is this package
// formats many files for one in-memory compile unit instead of writing
// one file to disk per invocation.
package assembly

import (
	"context"
	"go/format"
	"sort"
	"strconv"
	"strings"

	"github.com/blueprint-framework/blueprint/errs"
	"github.com/blueprint-framework/blueprint/internal/codegen/typebuilder"
	"github.com/blueprint-framework/blueprint/internal/codegen/writer"
	"github.com/blueprint-framework/blueprint/operation"
	"github.com/blueprint-framework/blueprint/resolve"
)

// Unit pairs one generated type with the operation descriptor it
// implements, the bookkeeping the assembly needs to bind a compiled
// constructor back to the right place in the registry.
type Unit struct {
	Descriptor *operation.Descriptor
	Type       *typebuilder.Type
}

// Assembly accumulates Units for one generation run and renders,
// compiles, and binds them as a batch.
type Assembly struct {
	units []Unit
}

// New returns an empty Assembly.
func New() *Assembly { return &Assembly{} }

// Add registers one built typebuilder.Type for desc. t.Build must already
// have succeeded; Add does not call it.
func (a *Assembly) Add(desc *operation.Descriptor, t *typebuilder.Type) {
	a.units = append(a.units, Unit{Descriptor: desc, Type: t})
}

// Render writes every unit's generated source, gofmt-formatted, keyed by
// the file path convention "<namespace>/<TypeName>_gen.go".
func (a *Assembly) Render() (map[string]string, error) {
	out := make(map[string]string, len(a.units))
	for _, u := range a.units {
		path := u.Type.Namespace + "/" + u.Type.Name + "_gen.go"
		src, err := renderOne(u.Type)
		if err != nil {
			return nil, err
		}
		out[path] = src
	}
	return out, nil
}

// renderOne writes one type's full source file: header banner, package
// clause, import block, then the type's own declarations.
func renderOne(t *typebuilder.Type) (string, error) {
	w := writer.New()
	w.Write("// <auto-generated />")
	w.Write("// Code generated by blueprint; DO NOT EDIT.")
	w.Comment(t.Name)
	w.BlankLine()
	w.Write("package " + packageName(t.Namespace))
	w.BlankLine()

	imports := t.Namespaces()
	if len(imports) > 0 {
		w.Write("import (")
		for _, p := range imports {
			w.Write(strconv.Quote(p))
		}
		w.Write(")")
		w.BlankLine()
	}

	if err := t.Emit(w); err != nil {
		return "", err
	}

	formatted, err := format.Source([]byte(w.String()))
	if err != nil {
		return "", errs.CompilationError{Diagnostics: []string{err.Error()}, Source: w.String()}
	}
	return string(formatted), nil
}

// packageName derives a Go package name from an import-path-shaped
// namespace: its final slash-delimited segment.
func packageName(namespace string) string {
	parts := strings.Split(namespace, "/")
	return parts[len(parts)-1]
}

// Compile renders every unit and hands the batch to compiler, returning
// the raw compiled units exactly as the compiler produced them.
func (a *Assembly) Compile(ctx context.Context, compiler resolve.Compiler) ([]resolve.CompiledUnit, error) {
	sources, err := a.Render()
	if err != nil {
		return nil, err
	}
	return compiler.Compile(ctx, sources)
}

// Bind matches each compiled unit back to the operation.Descriptor whose
// typebuilder.Type produced it, by (namespace, typeName) — the same key
// typebuilder.Type.Key already uses.
func (a *Assembly) Bind(compiled []resolve.CompiledUnit) (map[string]resolve.CompiledUnit, error) {
	byKey := make(map[string]resolve.CompiledUnit, len(compiled))
	for _, c := range compiled {
		byKey[c.Namespace+"."+c.TypeName] = c
	}

	out := make(map[string]resolve.CompiledUnit, len(a.units))
	var missing []string
	for _, u := range a.units {
		key := u.Type.Key()
		cu, ok := byKey[key]
		if !ok {
			missing = append(missing, u.Descriptor.Name)
			continue
		}
		out[u.Descriptor.Name] = cu
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errs.CompilationError{Diagnostics: []string{
			"blueprint: compiled output missing for operations: " + strings.Join(missing, ", "),
		}}
	}
	return out, nil
}
