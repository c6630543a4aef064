// Package operation models the catalog of declared API operations: an
// OperationDescriptor is built once at startup from host configuration
// and is read-only thereafter. It is Blueprint's "one-shot
// operation-descriptor builder" — the place reflection-like discovery
// happens, so the generated executor never needs it at request time.
package operation

import "github.com/blueprint-framework/blueprint/internal/codegen/gotype"

// SourcePart names where a property's value comes from on the wire.
type SourcePart int

const (
	Header SourcePart = iota
	Query
	Cookie
	Body
	Route
)

// Property describes one typed field of an operation's payload.
type Property struct {
	Name        string
	Type        gotype.Ref
	Nullable    bool
	Source      SourcePart
	// Required marks a property that must be present for the request to
	// pass the Validation stage (the Go rendition of a `[Required]`-style
	// attribute).
	Required bool
}

// ResponseCategory classifies a declared response.
type ResponseCategory int

const (
	Success ResponseCategory = iota
	ClientError
	ServerError
	Validation
)

// Response describes one declared response shape for an operation.
type Response struct {
	StatusCode int
	Type       gotype.Ref
	Category   ResponseCategory
}

// FeatureKind keys the optional feature bag an operation may carry (e.g.
// authorization policies, rate-limit config) — a deliberately open set so
// host-specific middleware builders can stash their own configuration
// without changing Descriptor's shape.
type FeatureKind string

// Definition is the host-supplied input used to build one Descriptor.
// This is the "declared catalog" entry point: hosts build a slice of
// Definitions and pass them to NewCatalog.
type Definition struct {
	Name                string
	PayloadType         gotype.Ref
	BaseType            *gotype.Ref
	Properties          []Property
	Responses           []Response
	Features            map[FeatureKind]any
	RequiresReturnValue bool
	Links               []string
}

// Descriptor is the immutable, read-only record built from a Definition.
type Descriptor struct {
	Name                string
	PayloadType         gotype.Ref
	BaseType            *gotype.Ref
	Properties          []Property
	Responses           []Response
	Features            map[FeatureKind]any
	RequiresReturnValue bool
	Links               []string
}

// Feature looks up a feature by kind, reporting whether it was set.
func (d *Descriptor) Feature(kind FeatureKind) (any, bool) {
	v, ok := d.Features[kind]
	return v, ok
}

// Catalog is the read-only set of operation descriptors built once at
// startup.
type Catalog struct {
	descriptors []*Descriptor
	byPayload   map[string]*Descriptor
	byBase      map[string]*Descriptor
}

// NewCatalog builds a Catalog from host-supplied definitions. It performs
// no validation beyond what Descriptor already guarantees by
// construction — duplicate operation names are allowed upstream (the
// generator, not the catalog, is where a name collision would surface as
// a duplicate generated type).
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{byPayload: map[string]*Descriptor{}, byBase: map[string]*Descriptor{}}
	for _, d := range defs {
		features := d.Features
		if features == nil {
			features = map[FeatureKind]any{}
		}
		desc := &Descriptor{
			Name:                d.Name,
			PayloadType:         d.PayloadType,
			BaseType:            d.BaseType,
			Properties:          d.Properties,
			Responses:           d.Responses,
			Features:            features,
			RequiresReturnValue: d.RequiresReturnValue,
			Links:               d.Links,
		}
		c.descriptors = append(c.descriptors, desc)
		c.byPayload[d.PayloadType.Key()] = desc
		if d.BaseType != nil {
			if _, claimed := c.byBase[d.BaseType.Key()]; !claimed {
				c.byBase[d.BaseType.Key()] = desc
			}
		}
	}
	return c
}

// All returns the catalog's descriptors in declaration order.
func (c *Catalog) All() []*Descriptor { return c.descriptors }

// ByPayloadType returns the descriptor registered for the exact payload
// type, if any.
func (c *Catalog) ByPayloadType(t gotype.Ref) (*Descriptor, bool) {
	d, ok := c.byPayload[t.Key()]
	return d, ok
}

// MatchRuntimeType finds the descriptor for a dispatched request's
// runtime payload type key (built the same way gotype.Ref.Key() would:
// "<lastImportSegment>.<TypeName>"). An exact PayloadType registration
// always wins over a BaseType fallback — the "most specific match" rule
// — so a concrete handler registered directly beats one only reachable
// through its declared base type.
func (c *Catalog) MatchRuntimeType(key string) (*Descriptor, bool) {
	if d, ok := c.byPayload[key]; ok {
		return d, true
	}
	d, ok := c.byBase[key]
	return d, ok
}
