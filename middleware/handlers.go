// Package middleware holds the built-in pipeline.Builder implementations:
// authentication/authorisation guards, required-property validation,
// handler execution, and post-execution telemetry. Hosts are free to
// register their own pipeline.Builder values alongside or instead of
// these; nothing here is privileged.
package middleware

import (
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/operation"
)

// FeatureHandlers keys the []HandlerSpec feature an operation.Descriptor
// carries to describe the handler types the Execution stage should call.
const FeatureHandlers operation.FeatureKind = "execution.handlers"

// HandlerSpec describes one handler the Execution stage calls, in the
// order handlers should be declared: base-type handlers before
// concrete-type handlers, matching the polymorphic-dispatch testable
// property.
type HandlerSpec struct {
	// Type is the handler's injected service type (usually an interface).
	Type gotype.Ref
	// Method is the method called on the resolved instance.
	Method string
	// Returns marks a handler whose return value can become the
	// operation's result. The last handler in declaration order that
	// both matches and Returns wins.
	Returns bool
	// ValueType is the handler method's non-error return type. Only
	// meaningful when Returns is true.
	ValueType gotype.Ref
}
