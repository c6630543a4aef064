// Package inject is the DI-aware instance frame provider.
// For each service a frame requests, it asks a resolve.ServiceResolver for
// the binding's lifetime, concrete type, and implementation count, then
// decides whether the service is hoisted to a constructor-injected field
// (singleton, exactly one implementation) or fetched per-call from the
// request scope (everything else).
package inject

import (
	"github.com/blueprint-framework/blueprint/errs"
	"github.com/blueprint-framework/blueprint/internal/codegen/graph"
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/writer"
)

// Lifetime is the service lifetime reported by a ServiceResolver.
type Lifetime int

const (
	Singleton Lifetime = iota
	Scoped
	Transient
)

// ServiceResolver is the host's build-time IoC model: for a
// requested type it reports how the service would be constructed at
// runtime, without constructing it.
type ServiceResolver interface {
	// ForType reports the lifetime, concrete implementing type, and
	// implementation count for requested. count == 0 means no binding
	// exists; count > 1 means the binding is ambiguous and must be
	// resolved by the runtime container, never hoisted.
	ForType(requested gotype.Ref) (lifetime Lifetime, concrete gotype.Ref, count int, err error)
}

// Field is an injected field accumulated while resolving one executor's
// frames: a typed variable promoted to a constructor-initialized field.
type Field struct {
	// Requested is the type a frame asked for (may be an interface).
	Requested gotype.Ref
	// Concrete is the type the resolver says actually implements it.
	Concrete gotype.Ref
	// Name is the field identifier on the generated type.
	Name string
}

// Provider is the per-executor instance of the instance frame provider. A fresh Provider
// must be used for each operation's generation (no state is shared across
// operations, per the generator re-entrancy requirement in SPEC_FULL.md
// generation run).
type Provider struct {
	resolver ServiceResolver

	fields      map[string]*Field // keyed by Requested.Key()
	fieldsOrder []*Field
}

// New returns a Provider backed by resolver.
func New(resolver ServiceResolver) *Provider {
	return &Provider{resolver: resolver, fields: map[string]*Field{}}
}

// Resolve implements graph.InjectProvider.
func (p *Provider) Resolve(operation string, v *graph.Variable) (*graph.Frame, bool, error) {
	lifetime, concrete, count, err := p.resolver.ForType(v.Type)
	if err != nil || count == 0 {
		return nil, false, errs.UnresolvedService{Type: v.Type.String(), Operation: operation}
	}

	if count == 1 && lifetime == Singleton {
		field := p.fieldFor(v.Type, concrete)
		v.Name = "b." + field.Name
		return nil, true, nil
	}

	// Scoped, Transient, or an ambiguous multi-implementation binding:
	// never hoisted, always a per-call resolution delegated to the
	// runtime scope/container.
	frame := p.scopeGetFrame(v, concrete)
	return frame, false, nil
}

func (p *Provider) fieldFor(requested, concrete gotype.Ref) *Field {
	key := requested.Key()
	if f, ok := p.fields[key]; ok {
		return f
	}
	f := &Field{Requested: requested, Concrete: concrete, Name: requested.LocalName()}
	p.fields[key] = f
	p.fieldsOrder = append(p.fieldsOrder, f)
	return f
}

// Fields returns the accumulated injected fields in first-requested order.
func (p *Provider) Fields() []*Field { return p.fieldsOrder }

// scopeGetFrame builds the per-invocation frame that calls
// scope.Resolver.Get(requestedType) and type-asserts the result. The
// concrete type is recorded only in a comment: resolution is by
// requested type, never concrete type.
func (p *Provider) scopeGetFrame(v *graph.Variable, concrete gotype.Ref) *graph.Frame {
	requested := v.Type
	return &graph.Frame{
		ID:          "scope-get:" + requested.Key(),
		Creates:     []*graph.Variable{v},
		Imports:     []string{"fmt"},
		RequiresErr: true,
		FindVariables: func([]*graph.Variable) []*graph.Variable {
			return nil
		},
		Emit: func(w *writer.Writer, _ map[string]*graph.Variable) error {
			raw := v.Name + "Raw"
			w.Comment("concrete: " + concrete.String())
			w.Write(raw + ", err := scope.Get(" + quoted(requested.String()) + ")")
			w.Write("BLOCK:if err != nil")
			w.Write("return result, err")
			w.FinishBlock()
			w.Write(v.Name + ", ok := " + raw + ".(" + requested.String() + ")")
			w.Write("BLOCK:if !ok")
			w.Write("return result, fmt.Errorf(\"blueprint: service %T does not implement " + requested.String() + "\", " + raw + ")")
			w.FinishBlock()
			return nil
		},
	}
}

func quoted(s string) string { return "\"" + s + "\"" }
