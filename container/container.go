// Package container is a small, in-memory service container satisfying
// both of Blueprint's runtime collaborator contracts: resolve.Scope for
// the per-dispatch Get the generated executors call, and
// resolve.ServiceResolver for the build-time lifetime/concrete-type
// lookup the instance frame provider needs while generating those same executors.
//
// It is deliberately read-only at resolution time and side-effect free —
// the same posture the codebase's earlier build-time registry took —
// with bindings registered once up front via RegisterSingleton/
// RegisterScoped before a Host.Build call, then never mutated again.
package container

import (
	"github.com/blueprint-framework/blueprint/errs"
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/inject"
)

// Factory constructs a fresh instance of a Scoped or Transient binding.
type Factory func() (any, error)

type binding struct {
	lifetime inject.Lifetime
	concrete gotype.Ref
	instance any     // set for Singleton bindings
	factory  Factory // set for Scoped/Transient bindings
}

// Container is the default, in-process resolve.Scope/resolve.ServiceResolver
// implementation. The zero value is not usable; construct one with New.
type Container struct {
	byKey map[string]binding
}

// New returns an empty Container.
func New() *Container {
	return &Container{byKey: map[string]binding{}}
}

// RegisterSingleton binds requested to a single shared instance: every
// Get call, and every generated constructor's hoisted field, receives
// exactly this value.
func (c *Container) RegisterSingleton(requested gotype.Ref, instance any) *Container {
	c.byKey[requested.Key()] = binding{lifetime: inject.Singleton, concrete: requested, instance: instance}
	return c
}

// RegisterScoped binds requested to factory, called once per Get. concrete
// names the type factory actually produces, recorded only for the
// generated code's explanatory comment — resolution itself is always by
// requested type.
func (c *Container) RegisterScoped(requested, concrete gotype.Ref, factory Factory) *Container {
	c.byKey[requested.Key()] = binding{lifetime: inject.Scoped, concrete: concrete, factory: factory}
	return c
}

// ForType implements resolve.ServiceResolver: it reports the registered
// binding's lifetime and concrete type without constructing anything.
// An unregistered type reports count == 0, which the instance frame provider maps to
// errs.UnresolvedService.
func (c *Container) ForType(requested gotype.Ref) (inject.Lifetime, gotype.Ref, int, error) {
	b, ok := c.byKey[requested.Key()]
	if !ok {
		return 0, gotype.Ref{}, 0, nil
	}
	return b.lifetime, b.concrete, 1, nil
}

// Get implements resolve.Scope: it resolves requestedType by the same
// rendered-name key gotype.Ref.Key() produces. Singleton bindings always
// return the same instance; Scoped/Transient bindings call their factory
// fresh on every Get, since a Container used as the runtime Scope for a
// single dispatch has no narrower per-request cache to consult.
func (c *Container) Get(requestedType string) (any, error) {
	b, ok := c.byKey[requestedType]
	if !ok {
		return nil, errs.ServiceNotFound{Type: requestedType}
	}
	if b.factory != nil {
		return b.factory()
	}
	return b.instance, nil
}

// Close implements resolve.Scope. A Container holds no resources of its
// own to release; per-binding cleanup is each factory's responsibility.
func (c *Container) Close() error { return nil }
