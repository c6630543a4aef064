package middleware

import (
	"context"

	"github.com/blueprint-framework/blueprint/internal/codegen/graph"
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/writer"
	"github.com/blueprint-framework/blueprint/operation"
	"github.com/blueprint-framework/blueprint/pipeline"
)

// FeatureTelemetry keys a bool feature enabling PostExecuteBuilder.
const FeatureTelemetry operation.FeatureKind = "telemetry.enabled"

var telemetryType = gotype.Named1("github.com/blueprint-framework/blueprint/middleware", "Telemetry")

// Telemetry is the host-implemented service PostExecuteBuilder calls.
type Telemetry interface {
	RecordSuccess(ctx context.Context, operationName string)
}

// PostExecuteBuilder records a success signal after Execution. Its frame
// is only reachable at runtime along the success path: every earlier
// stage's failure short-circuits with its own return statement, so a
// request that reaches PostExecute has already produced a non-error,
// non-short-circuited result.
type PostExecuteBuilder struct{}

func (PostExecuteBuilder) Stage() pipeline.Stage { return pipeline.PostExecute }

func (PostExecuteBuilder) Matches(d *operation.Descriptor) bool {
	enabled, ok := d.Feature(FeatureTelemetry)
	b, _ := enabled.(bool)
	return ok && b
}

func (PostExecuteBuilder) Build(ctx *pipeline.BuilderContext) (*graph.Variable, error) {
	telemetryVar := &graph.Variable{Type: telemetryType, Name: "telemetry"}
	ctx.AppendFrame(&graph.Frame{
		ID:            "record-success",
		FindVariables: func([]*graph.Variable) []*graph.Variable { return []*graph.Variable{telemetryVar} },
		Emit: func(w *writer.Writer, _ map[string]*graph.Variable) error {
			w.Write(telemetryVar.Name + ".RecordSuccess(ctx, " + quoted(ctx.Operation.Name) + ")")
			return nil
		},
	})
	return nil, nil
}
