// Package resolve holds the public collaborator contracts a host
// implements to plug its own container and compiled-code strategy into a
// blueprint.Host: the build-time service resolver consulted by the
// instance frame provider, the runtime per-request Scope the generated code
// calls into, and the Compiler that turns generated source into loadable Go
// types.
package resolve

import (
	"context"
	"io"

	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/inject"
)

// ServiceResolver is the host's build-time IoC model. It has the exact
// same method shape as internal/codegen/inject.ServiceResolver on
// purpose: any host implementation of this interface already satisfies
// that one directly, with no adapter, and the generator package never
// needs to know about resolve.ServiceResolver by name. Two separate
// interfaces exist because this one is the public contract hosts write
// against, and the generator's is private to how the instance frame provider actually
// uses it.
type ServiceResolver interface {
	ForType(requested gotype.Ref) (lifetime inject.Lifetime, concrete gotype.Ref, count int, err error)
}

// Scope is the runtime, per-request service container the generated
// executors call scope.Get against for every Scoped or Transient
// dependency, and for ambiguous multi-implementation bindings regardless
// of declared lifetime. Registry.ExecuteWithNewScope opens one Scope per
// call and closes it on every exit path, success or failure;
// Registry.Execute runs against a Scope the caller already opened.
type Scope interface {
	io.Closer
	// Get resolves a service by its requested type's rendered name (the
	// same string gotype.Ref.String() would produce for it). It is typed
	// as a string, not a gotype.Ref, because the generated code calling
	// it at runtime has no access to the codegen package — only to the
	// type name baked into the generated source as a literal.
	Get(requestedType string) (any, error)
}

// CompiledUnit binds one generated type, identified by (Namespace,
// TypeName), to a constructor the assembly emitter can call once the
// source compiles successfully.
type CompiledUnit struct {
	Namespace string
	TypeName  string
	// New constructs an instance of the compiled type from constructor
	// arguments supplied in the generated type's field-declaration order.
	New func(args ...any) (any, error)
}

// Compiler turns a set of generated source files into loadable Go types.
// sources is keyed by the generated file's import-path-qualified name
// (e.g. "x/gen/CreateWidgetExecutor_gen.go"); each CompiledUnit in the
// result corresponds to exactly one emitted typebuilder.Type.
type Compiler interface {
	Compile(ctx context.Context, sources map[string]string) ([]CompiledUnit, error)
}
