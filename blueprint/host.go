// Package blueprint is the composition root: Host wires a declared
// operation catalog, the registered middleware builders, a build-time
// service resolver, and a source compiler into a ready-to-dispatch
// registry.Registry, running the generation state machine exactly once
// per Build call.
package blueprint

import (
	"context"
	"log/slog"

	"github.com/blueprint-framework/blueprint/errs"
	"github.com/blueprint-framework/blueprint/internal/codegen/assembly"
	"github.com/blueprint-framework/blueprint/internal/codegen/graph"
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/inject"
	"github.com/blueprint-framework/blueprint/internal/codegen/method"
	"github.com/blueprint-framework/blueprint/internal/codegen/typebuilder"
	"github.com/blueprint-framework/blueprint/logging"
	"github.com/blueprint-framework/blueprint/operation"
	"github.com/blueprint-framework/blueprint/pipeline"
	"github.com/blueprint-framework/blueprint/registry"
	"github.com/blueprint-framework/blueprint/resolve"
)

// State is one phase of the generation state machine: a Host moves
// through these strictly in order and never revisits a phase once it
// has moved past it.
type State int

const (
	Unbuilt State = iota
	Composing
	Resolving
	Emitting
	Compiled
	Failed
)

func (s State) String() string {
	switch s {
	case Unbuilt:
		return "Unbuilt"
	case Composing:
		return "Composing"
	case Resolving:
		return "Resolving"
	case Emitting:
		return "Emitting"
	case Compiled:
		return "Compiled"
	case Failed:
		return "Failed"
	default:
		return "State(?)"
	}
}

// OperationSpec is the per-operation generation input a host supplies
// alongside its operation.Descriptor: the signature pieces the abstract
// Descriptor doesn't carry (the generated method's declared result type
// and parameter list beyond the implicit leading context/scope).
type OperationSpec struct {
	Descriptor *operation.Descriptor
	ResultType gotype.Ref
	Params     []*graph.Variable
	Interfaces []gotype.Ref
}

// Host is the public composition root. Construct one with New, register
// middleware builders with Use, then call Build once.
type Host struct {
	config     Config
	resolver   inject.ServiceResolver
	compiler   resolve.Compiler
	singletons resolve.Scope
	logger     *slog.Logger
	builders   []pipeline.Builder

	state State
}

// New returns a Host ready to accept middleware registrations.
// singletons is the app-lifetime container Host.Build consults to
// construct the injected-field values every compiled executor's
// constructor needs for its Singleton dependencies; it is never closed
// by Build, since it outlives any single generation run, and is handed
// back to the Registry as the scope every dispatch runs against.
func New(config Config, resolver resolve.ServiceResolver, compiler resolve.Compiler, singletons resolve.Scope, logger *slog.Logger) *Host {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Host{config: config, resolver: resolver, compiler: compiler, singletons: singletons, logger: logger, state: Unbuilt}
}

// Use registers one or more middleware builders, in call order. Builders
// registered across multiple Use calls keep their relative call order —
// this is the tie-break for two builders contributing to the same stage.
func (h *Host) Use(builders ...pipeline.Builder) {
	h.builders = append(h.builders, builders...)
}

// State reports the host's current generation phase.
func (h *Host) State() State { return h.state }

// Build runs the full generation pipeline for every operation in specs,
// in declaration order: compose each operation's middleware pipeline
// into a method, resolve its frame graph, emit and compile the whole
// assembly, construct one instance per compiled type, and bind the
// result into a dispatch-ready Registry.
//
// A Host's Build call is not safe to invoke twice — a second call on the
// same Host re-enters the state machine from whatever phase the first
// call left it in, which is never useful. Build a fresh Host per
// generation run instead.
func (h *Host) Build(ctx context.Context, catalog *operation.Catalog, specs []OperationSpec) (*registry.Registry, error) {
	h.state = Composing
	composer := pipeline.NewComposer(h.builders...)
	asm := assembly.New()
	types := make(map[string]*typebuilder.Type, len(specs))

	bySpec := make(map[string]OperationSpec, len(specs))
	for _, s := range specs {
		bySpec[s.Descriptor.Name] = s
	}

	for _, desc := range catalog.All() {
		spec, ok := bySpec[desc.Name]
		if !ok {
			h.state = Failed
			return nil, errs.MissingHandler{Operation: desc.Name}
		}

		injector := inject.New(h.resolver)
		m, err := composer.Compose(desc.Name, desc, spec.ResultType, spec.Params, injector)
		if err != nil {
			h.state = Failed
			return nil, err
		}

		h.state = Resolving
		typ := &typebuilder.Type{
			Name:       desc.Name,
			Namespace:  h.config.AssemblyName,
			Interfaces: spec.Interfaces,
			Methods:    []*method.Method{m},
		}
		if err := typ.Build(desc.Name, injector); err != nil {
			h.state = Failed
			return nil, err
		}
		asm.Add(desc, typ)
		types[desc.Name] = typ
	}

	h.state = Emitting
	sources, err := asm.Render()
	if err != nil {
		h.state = Failed
		return nil, err
	}
	compiled, err := asm.Compile(ctx, h.compiler)
	if err != nil {
		h.state = Failed
		return nil, err
	}

	bound, err := asm.Bind(compiled)
	if err != nil {
		h.state = Failed
		return nil, err
	}

	bindings, err := h.construct(catalog, types, bound, sourceByOperation(types, sources))
	if err != nil {
		h.state = Failed
		return nil, err
	}

	h.state = Compiled
	logger := &slogErrorLogger{logger: h.logger}
	return registry.New(catalog, bindings, h.scopeFactory, logger), nil
}

// construct builds one registry.Binding per bound operation by calling
// its CompiledUnit.New with the app-scoped singleton instances its
// constructor declares, in the field order typebuilder.Type.Emit used
// to write that same constructor.
func (h *Host) construct(catalog *operation.Catalog, types map[string]*typebuilder.Type, bound map[string]resolve.CompiledUnit, sourceFor map[string]string) (map[string]registry.Binding, error) {
	out := make(map[string]registry.Binding, len(bound))
	for name, cu := range bound {
		desc, ok := findDescriptor(catalog, name)
		if !ok {
			continue
		}
		typ := types[name]

		args := make([]any, 0, len(typ.Fields))
		for _, f := range typ.Fields {
			arg, err := h.singletons.Get(f.Requested.String())
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}

		instance, err := cu.New(args...)
		if err != nil {
			return nil, err
		}
		out[name] = registry.Binding{Descriptor: desc, Instance: instance, Source: sourceFor[name]}
	}
	return out, nil
}

func findDescriptor(catalog *operation.Catalog, name string) (*operation.Descriptor, bool) {
	for _, d := range catalog.All() {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// sourceByOperation re-keys the assembly's rendered sources (keyed by
// file path) by operation name, for registry.Registry's introspection
// methods.
func sourceByOperation(types map[string]*typebuilder.Type, sources map[string]string) map[string]string {
	out := make(map[string]string, len(types))
	for name, typ := range types {
		path := typ.Namespace + "/" + typ.Name + "_gen.go"
		out[name] = sources[path]
	}
	return out
}

// scopeFactory opens the scope a dispatch runs against. This Host
// rendition hands back its own app-lifetime singleton container
// directly rather than opening a child scope per call — hosts that need
// true per-request isolation (a new Scoped-lifetime container per
// dispatch) supply a singletons implementation whose Get delegates to a
// freshly created child container and whose Close is a no-op, since
// Registry closes whatever scopeFactory returns on every dispatch exit.
func (h *Host) scopeFactory(ctx context.Context) (resolve.Scope, error) {
	return h.singletons, nil
}
