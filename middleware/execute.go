package middleware

import (
	"github.com/blueprint-framework/blueprint/internal/codegen/graph"
	"github.com/blueprint-framework/blueprint/internal/codegen/writer"
	"github.com/blueprint-framework/blueprint/operation"
	"github.com/blueprint-framework/blueprint/pipeline"
)

// ExecutionBuilder emits one call frame per registered HandlerSpec, in
// declaration order. When more than one handler matches a payload's
// class hierarchy (base type and concrete type both have a registered
// handler), both run; the last one with Returns == true supplies the
// operation's result. If none of them Returns and the operation does not
// RequiresReturnValue, the method falls through to operation.NoResultValue.
type ExecutionBuilder struct{}

func (ExecutionBuilder) Stage() pipeline.Stage { return pipeline.Execution }

func (ExecutionBuilder) Matches(d *operation.Descriptor) bool {
	specs, ok := handlerSpecs(d)
	return ok && len(specs) > 0
}

func (ExecutionBuilder) Build(ctx *pipeline.BuilderContext) (*graph.Variable, error) {
	specs, _ := handlerSpecs(ctx.Operation)

	var resultVar *graph.Variable
	for _, h := range specs {
		h := h
		handlerVar := &graph.Variable{Type: h.Type, Name: h.Type.LocalName()}

		var created []*graph.Variable
		var rv *graph.Variable
		if h.Returns {
			rv = &graph.Variable{Type: h.ValueType, Name: h.Type.LocalName() + "Result"}
			created = []*graph.Variable{rv}
		}

		frame := &graph.Frame{
			ID:          "handler:" + h.Type.String() + ":" + h.Method,
			Creates:     created,
			RequiresErr: true,
			IsAsync:     true,
			FindVariables: func([]*graph.Variable) []*graph.Variable {
				return []*graph.Variable{handlerVar}
			},
			Emit: func(w *writer.Writer, _ map[string]*graph.Variable) error {
				call := handlerVar.Name + "." + h.Method + "(ctx, payload)"
				if h.Returns {
					w.Write(rv.Name + ", err := " + call)
				} else {
					w.Write("err = " + call)
				}
				w.Write("BLOCK:if err != nil")
				w.Write("return result, err")
				w.FinishBlock()
				return nil
			},
		}
		if h.Returns {
			rv.Creator = frame
		}

		ctx.AppendFrame(frame)
		if h.Returns {
			resultVar = rv
		}
	}

	return resultVar, nil
}

func handlerSpecs(d *operation.Descriptor) ([]HandlerSpec, bool) {
	raw, ok := d.Feature(FeatureHandlers)
	if !ok {
		return nil, false
	}
	specs, ok := raw.([]HandlerSpec)
	return specs, ok
}
