// Package typebuilder is the type builder. It collects a
// generated executor's methods and injected fields, rejects two fields of
// the same concrete implementing type (catching interface-vs-concrete
// ambiguity), and emits the struct declaration, constructor, and method bodies.
package typebuilder

import (
	"sort"
	"strings"

	"github.com/blueprint-framework/blueprint/errs"
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/inject"
	"github.com/blueprint-framework/blueprint/internal/codegen/method"
	"github.com/blueprint-framework/blueprint/internal/codegen/writer"
)

// Type is one generated executor class: a name, the (namespace/import
// path) it lives under for (namespace, typeName) uniqueness, the
// interfaces it must satisfy, its injected fields, and its methods.
type Type struct {
	Name       string
	Namespace  string
	Interfaces []gotype.Ref
	Fields     []*inject.Field
	Methods    []*method.Method

	built []*method.Built
}

// Key returns the (namespace, typeName) pair this type must be unique
// under in the generated assembly.
func (t *Type) Key() string { return t.Namespace + "." + t.Name }

// Build validates field uniqueness and resolves every method's frame
// graph. It must be called once, after all middleware builders have
// contributed frames and fields, before Emit.
func (t *Type) Build(operation string, injector *inject.Provider) error {
	t.Fields = injector.Fields()
	if err := t.validateFields(); err != nil {
		return err
	}

	t.built = make([]*method.Built, len(t.Methods))
	for i, m := range t.Methods {
		b, err := m.Build(operation, injector)
		if err != nil {
			return err
		}
		t.built[i] = b
	}
	return nil
}

// validateFields implements the duplicate-argument guard: two
// injected fields requested under different (e.g. interface vs concrete)
// types that resolve to the same concrete implementation are ambiguous —
// the constructor cannot take two parameters for one underlying value
// without the composer disambiguating first.
func (t *Type) validateFields() error {
	byConcrete := map[string][]*inject.Field{}
	var order []string
	for _, f := range t.Fields {
		key := f.Concrete.Key()
		if _, ok := byConcrete[key]; !ok {
			order = append(order, key)
		}
		byConcrete[key] = append(byConcrete[key], f)
	}
	for _, key := range order {
		fs := byConcrete[key]
		if len(fs) > 1 {
			return errs.DuplicateInjectedField{Type: fs[0].Concrete.String()}
		}
	}
	return nil
}

// Emit writes the full class declaration: struct, constructor, interface
// assertions, and method bodies, in that order.
func (t *Type) Emit(w *writer.Writer) error {
	w.Write("BLOCK:type " + t.Name + " struct")
	for _, f := range t.Fields {
		w.Write(f.Name + " " + f.Requested.String())
	}
	w.FinishBlock()
	w.BlankLine()

	t.emitConstructor(w)
	w.BlankLine()

	for _, iface := range t.Interfaces {
		w.Write("var _ " + iface.String() + " = (*" + t.Name + ")(nil)")
	}
	if len(t.Interfaces) > 0 {
		w.BlankLine()
	}

	for i, m := range t.Methods {
		if err := m.Emit(w, t.Name, "b", t.built[i]); err != nil {
			return err
		}
		w.BlankLine()
	}
	return nil
}

func (t *Type) emitConstructor(w *writer.Writer) {
	var params []string
	for _, f := range t.Fields {
		params = append(params, f.Name+" "+f.Requested.String())
	}
	w.Write("BLOCK:func New" + t.Name + "(" + strings.Join(params, ", ") + ") *" + t.Name)
	w.Write("BLOCK:return &" + t.Name)
	for _, f := range t.Fields {
		w.Write(f.Name + ": " + f.Name + ",")
	}
	w.FinishBlock()
	w.FinishBlock()
}

// Namespaces returns the sorted, deduplicated set of import paths this
// type's fields, interfaces, and methods require, used by the assembly
// emitter to build the file's import block.
func (t *Type) Namespaces() []string {
	seen := map[string]bool{}
	var out []string
	add := func(paths []string) {
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	if len(t.Methods) > 0 {
		// Every method.Method.Emit signature takes a leading
		// "ctx context.Context", whether or not any field or param Ref
		// happens to route through this package.
		add([]string{"context"})
	}
	for _, f := range t.Fields {
		add(f.Requested.Imports())
	}
	for _, iface := range t.Interfaces {
		add(iface.Imports())
	}
	for _, m := range t.Methods {
		for _, p := range m.Params {
			add(p.Type.Imports())
		}
		add(m.ResultType.Imports())
	}
	for _, b := range t.built {
		if b == nil || b.Resolution == nil {
			continue
		}
		for _, f := range b.Resolution.Order {
			add(f.Imports)
		}
	}
	sort.Strings(out)
	return out
}
