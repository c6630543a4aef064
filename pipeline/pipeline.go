// Package pipeline is the middleware pipeline composer. It
// drives the ordered stage list over an operation's registered Builders,
// collecting the frames they contribute into one method.Method ready for
// the frame graph's resolution.
//
// Exception handling (mapping a panicking or erroring handler to
// operation.UnhandledException) is deliberately NOT a frame this package
// emits into every generated method. Go already gives every call stack
// exactly one recover() boundary per goroutine; duplicating a
// defer/recover block into each generated executor would just be
// generated boilerplate for something the dispatcher can do once. See
// registry.Registry.Execute.
package pipeline

import (
	"strconv"

	"github.com/blueprint-framework/blueprint/internal/codegen/graph"
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/inject"
	"github.com/blueprint-framework/blueprint/internal/codegen/method"
	"github.com/blueprint-framework/blueprint/operation"
)

// Stage names one phase of the request pipeline, in execution order.
type Stage int

const (
	Setup Stage = iota
	Authentication
	Authorisation
	Validation
	OperationChecks
	PreExecute
	Execution
	PostExecute
	Teardown
)

var stageOrder = []Stage{
	Setup, Authentication, Authorisation, Validation, OperationChecks,
	PreExecute, Execution, PostExecute, Teardown,
}

// BuilderContext is the mutable state a Builder sees while contributing
// frames to one operation's method. Builders append their frames via
// AppendFrame rather than returning a slice, so that two builders
// matching the same stage can both contribute without either needing to
// know about the other.
type BuilderContext struct {
	Operation *operation.Descriptor
	Stage     Stage
	Params    []*graph.Variable
	Injector  *inject.Provider

	frames []*graph.Frame
}

// AppendFrame records a frame contributed by the builder currently
// running. Frames are kept in stage order, then append order within a
// stage — the same order the frame graph uses to break resolution ties.
func (c *BuilderContext) AppendFrame(f *graph.Frame) {
	c.frames = append(c.frames, f)
}

// Builder contributes zero or more frames to a single pipeline stage for
// operations it matches. Build may return a non-nil Variable to nominate
// it as the operation's result — the last Builder in stage order to do so
// wins, mirroring the "last handler that returns a value" rule for the
// Execution stage.
type Builder interface {
	Stage() Stage
	Matches(d *operation.Descriptor) bool
	Build(ctx *BuilderContext) (*graph.Variable, error)
}

// Composer holds the registered Builders for a host's entire generated
// assembly, queried once per operation during generation.
type Composer struct {
	builders []Builder
}

// NewComposer returns a Composer over builders, in registration order.
// Registration order is the tie-breaker within a stage: it is preserved
// exactly, never sorted, so that two builders for the same stage emit in
// the order the host declared them.
func NewComposer(builders ...Builder) *Composer {
	return &Composer{builders: builders}
}

// scopeType is the resolve.Scope parameter every generated ExecuteAsync
// method declares, whether or not a given operation's handlers end up
// needing it: the instance frame provider's scope-get frames (internal/codegen/inject)
// reference a bare "scope" identifier, so it must always be in scope
// (pun unavoidable) rather than threaded conditionally per operation.
var scopeType = gotype.Named1("github.com/blueprint-framework/blueprint/resolve", "Scope")

// Compose builds one method.Method for the named operation: for each
// stage, in order, every registered Builder matching both the stage and
// the descriptor is invoked, and its contributed frames are appended to
// the method's frame list in that order.
func (c *Composer) Compose(name string, desc *operation.Descriptor, resultType gotype.Ref, params []*graph.Variable, injector *inject.Provider) (*method.Method, error) {
	scopeParam := graph.NewParam(scopeType, "scope")
	allParams := append([]*graph.Variable{scopeParam}, params...)

	m := &method.Method{
		Name:                "ExecuteAsync",
		Params:              allParams,
		ResultType:          resultType,
		RequiresReturnValue: desc.RequiresReturnValue,
	}

	for _, stage := range stageOrder {
		ctx := &BuilderContext{Operation: desc, Stage: stage, Params: params, Injector: injector}
		for _, b := range c.stageBuilders(stage) {
			if !b.Matches(desc) {
				continue
			}
			result, err := b.Build(ctx)
			if err != nil {
				return nil, err
			}
			if result != nil {
				m.ResultVar = result
				m.LastHandlerFrame = result.Creator.ID
			}
		}
		m.Frames = append(m.Frames, ctx.frames...)
	}

	return m, nil
}

// stageBuilders returns the registered builders for stage, in
// registration order.
func (c *Composer) stageBuilders(stage Stage) []Builder {
	var out []Builder
	for _, b := range c.builders {
		if b.Stage() == stage {
			out = append(out, b)
		}
	}
	return out
}

// Stages returns the fixed stage execution order, exported for hosts and
// tests that need to enumerate it (e.g. to validate a custom Builder
// declares one of these values).
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// String renders a stage's name for diagnostics.
func (s Stage) String() string {
	switch s {
	case Setup:
		return "Setup"
	case Authentication:
		return "Authentication"
	case Authorisation:
		return "Authorisation"
	case Validation:
		return "Validation"
	case OperationChecks:
		return "OperationChecks"
	case PreExecute:
		return "PreExecute"
	case Execution:
		return "Execution"
	case PostExecute:
		return "PostExecute"
	case Teardown:
		return "Teardown"
	default:
		return "Stage(" + strconv.Itoa(int(s)) + ")"
	}
}
