package middleware

import (
	"github.com/blueprint-framework/blueprint/internal/codegen/graph"
	"github.com/blueprint-framework/blueprint/internal/codegen/writer"
	"github.com/blueprint-framework/blueprint/operation"
	"github.com/blueprint-framework/blueprint/pipeline"
)

// ValidationBuilder emits one frame checking every operation.Property
// marked Required. A missing required property short-circuits the
// method with operation.ValidationFailed before Execution ever runs.
//
// Required-ness here is reduced to Go's zero value for the property's
// declared type (empty string, zero number, nil pointer/slice). Richer
// per-type validation rules are a host concern: a host can register its
// own pipeline.Builder on the same stage for anything this default
// can't express, and both builders' frames run in registration order.
type ValidationBuilder struct{}

func (ValidationBuilder) Stage() pipeline.Stage { return pipeline.Validation }

func (ValidationBuilder) Matches(d *operation.Descriptor) bool {
	for _, p := range d.Properties {
		if p.Required {
			return true
		}
	}
	return false
}

func (ValidationBuilder) Build(ctx *pipeline.BuilderContext) (*graph.Variable, error) {
	var required []operation.Property
	for _, p := range ctx.Operation.Properties {
		if p.Required {
			required = append(required, p)
		}
	}

	frame := &graph.Frame{
		ID:            "validate-required",
		FindVariables: func([]*graph.Variable) []*graph.Variable { return nil },
		Emit: func(w *writer.Writer, _ map[string]*graph.Variable) error {
			w.Write("validationErrors := map[string][]string{}")
			for _, p := range required {
				w.Write("BLOCK:if payload." + p.Name + " == " + zeroLiteral(p) + "")
				w.Write("validationErrors[" + quoted(p.Name) + "] = append(validationErrors[" + quoted(p.Name) + "], \"required\")")
				w.FinishBlock()
			}
			w.Write("BLOCK:if len(validationErrors) > 0")
			w.Write("return operation.ValidationFailure(validationErrors), nil")
			w.FinishBlock()
			return nil
		},
	}
	ctx.AppendFrame(frame)
	return nil, nil
}

func zeroLiteral(p operation.Property) string {
	switch p.Type.String() {
	case "string":
		return `""`
	case "int", "int32", "int64", "float32", "float64":
		return "0"
	default:
		return "nil"
	}
}

func quoted(s string) string { return "\"" + s + "\"" }
