package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueprint-framework/blueprint/internal/codegen/graph"
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/inject"
	"github.com/blueprint-framework/blueprint/internal/codegen/writer"
	"github.com/blueprint-framework/blueprint/operation"
	"github.com/blueprint-framework/blueprint/pipeline"
)

type alwaysScoped struct{}

func (alwaysScoped) ForType(t gotype.Ref) (inject.Lifetime, gotype.Ref, int, error) {
	return inject.Scoped, t, 1, nil
}

type alwaysSingleton struct{}

func (alwaysSingleton) ForType(t gotype.Ref) (inject.Lifetime, gotype.Ref, int, error) {
	return inject.Singleton, t, 1, nil
}

func composeWithResolver(t *testing.T, desc *operation.Descriptor, resolver inject.ServiceResolver, builders ...pipeline.Builder) string {
	t.Helper()
	composer := pipeline.NewComposer(builders...)
	payload := graph.NewParam(gotype.Named1("x/operation", "Payload"), "payload")
	m, err := composer.Compose("Op", desc, gotype.Named1("x/operation", "Result"), []*graph.Variable{payload}, inject.New(resolver))
	require.NoError(t, err)

	built, err := m.Build("Op", inject.New(resolver))
	require.NoError(t, err)

	w := writer.New()
	require.NoError(t, m.Emit(w, "OpExecutor", "b", built))
	return w.String()
}

func compose(t *testing.T, desc *operation.Descriptor, builders ...pipeline.Builder) string {
	t.Helper()
	composer := pipeline.NewComposer(builders...)
	payload := graph.NewParam(gotype.Named1("x/operation", "Payload"), "payload")
	m, err := composer.Compose("Op", desc, gotype.Named1("x/operation", "Result"), []*graph.Variable{payload}, inject.New(alwaysScoped{}))
	require.NoError(t, err)

	built, err := m.Build("Op", inject.New(alwaysScoped{}))
	require.NoError(t, err)

	w := writer.New()
	require.NoError(t, m.Emit(w, "OpExecutor", "b", built))
	return w.String()
}

func TestAuthenticationBuilder_Matches_RequiresFeature(t *testing.T) {
	t.Parallel()

	b := AuthenticationBuilder{}
	assert.False(t, b.Matches(&operation.Descriptor{}))
	assert.True(t, b.Matches(&operation.Descriptor{Features: map[operation.FeatureKind]any{FeatureRequiresAuthentication: true}}))
}

func TestAuthenticationBuilder_EmitsUnauthorizedShortCircuit(t *testing.T) {
	t.Parallel()

	desc := &operation.Descriptor{Name: "Op", Features: map[operation.FeatureKind]any{FeatureRequiresAuthentication: true}}
	src := compose(t, desc, AuthenticationBuilder{})
	assert.Contains(t, src, "authenticator.Authenticate(ctx)")
	assert.Contains(t, src, "operation.Unauthorized")
}

func TestAuthenticationBuilder_SingletonLift_UsesFieldName(t *testing.T) {
	t.Parallel()

	desc := &operation.Descriptor{Name: "Op", Features: map[operation.FeatureKind]any{FeatureRequiresAuthentication: true}}
	src := composeWithResolver(t, desc, alwaysSingleton{}, AuthenticationBuilder{})
	assert.Contains(t, src, "b.authenticator.Authenticate(ctx)")
	assert.NotContains(t, src, "authenticated, err := authenticator.Authenticate(ctx)")
}

func TestAuthorisationBuilder_Matches_RequiresNonEmptyPolicy(t *testing.T) {
	t.Parallel()

	b := AuthorisationBuilder{}
	assert.False(t, b.Matches(&operation.Descriptor{}))
	assert.False(t, b.Matches(&operation.Descriptor{Features: map[operation.FeatureKind]any{FeatureAuthorizationPolicy: ""}}))
	assert.True(t, b.Matches(&operation.Descriptor{Features: map[operation.FeatureKind]any{FeatureAuthorizationPolicy: "admin"}}))
}

func TestAuthorisationBuilder_EmitsForbiddenShortCircuit(t *testing.T) {
	t.Parallel()

	desc := &operation.Descriptor{Name: "Op", Features: map[operation.FeatureKind]any{FeatureAuthorizationPolicy: "admin"}}
	src := compose(t, desc, AuthorisationBuilder{})
	assert.Contains(t, src, `authorizer.Authorize(ctx, "admin")`)
	assert.Contains(t, src, "operation.Forbidden")
}

func TestAuthorisationBuilder_SingletonLift_UsesFieldName(t *testing.T) {
	t.Parallel()

	desc := &operation.Descriptor{Name: "Op", Features: map[operation.FeatureKind]any{FeatureAuthorizationPolicy: "admin"}}
	src := composeWithResolver(t, desc, alwaysSingleton{}, AuthorisationBuilder{})
	assert.Contains(t, src, `b.authorizer.Authorize(ctx, "admin")`)
	assert.NotContains(t, src, `allowed, err := authorizer.Authorize(ctx, "admin")`)
}

func TestValidationBuilder_Matches_RequiresAtLeastOneRequiredProperty(t *testing.T) {
	t.Parallel()

	b := ValidationBuilder{}
	assert.False(t, b.Matches(&operation.Descriptor{Properties: []operation.Property{{Name: "X"}}}))
	assert.True(t, b.Matches(&operation.Descriptor{Properties: []operation.Property{{Name: "TheProperty", Required: true}}}))
}

func TestValidationBuilder_EmitsRequiredCheckAndShortCircuit(t *testing.T) {
	t.Parallel()

	desc := &operation.Descriptor{
		Name:       "Op",
		Properties: []operation.Property{{Name: "TheProperty", Type: gotype.Builtin("string"), Required: true}},
	}
	src := compose(t, desc, ValidationBuilder{})
	assert.Contains(t, src, `payload.TheProperty == ""`)
	assert.Contains(t, src, `validationErrors["TheProperty"]`)
	assert.Contains(t, src, "operation.ValidationFailure(validationErrors)")
}

func TestExecutionBuilder_LastReturningHandlerBecomesResult(t *testing.T) {
	t.Parallel()

	base := gotype.Named1("x/handlers", "BaseHandler")
	concrete := gotype.Named1("x/handlers", "ConcreteHandler")
	desc := &operation.Descriptor{
		Name:                "Op",
		RequiresReturnValue: true,
		Features: map[operation.FeatureKind]any{
			FeatureHandlers: []HandlerSpec{
				{Type: base, Method: "HandleAsync", Returns: false},
				{Type: concrete, Method: "HandleAsync", Returns: true, ValueType: gotype.Builtin("int")},
			},
		},
	}
	src := compose(t, desc, ExecutionBuilder{})
	assert.Contains(t, src, "baseHandler.HandleAsync(ctx, payload)")
	assert.Contains(t, src, "concreteHandler.HandleAsync(ctx, payload)")
	assert.Contains(t, src, "return concreteHandlerResult, nil")
}

func TestExecutionBuilder_NoReturningHandler_FallsThroughToZeroResult(t *testing.T) {
	t.Parallel()

	base := gotype.Named1("x/handlers", "BaseHandler")
	desc := &operation.Descriptor{
		Name: "Op",
		Features: map[operation.FeatureKind]any{
			FeatureHandlers: []HandlerSpec{{Type: base, Method: "HandleAsync"}},
		},
	}
	src := compose(t, desc, ExecutionBuilder{})
	assert.Contains(t, src, "return result, nil")
}

func TestExecutionBuilder_NoReturningHandler_AfterScopedDependency_DoesNotRedeclareErr(t *testing.T) {
	t.Parallel()

	base := gotype.Named1("x/handlers", "BaseHandler")
	desc := &operation.Descriptor{
		Name: "Op",
		Features: map[operation.FeatureKind]any{
			FeatureHandlers: []HandlerSpec{{Type: base, Method: "HandleAsync"}},
		},
	}
	// alwaysScoped makes the handler's own injected field resolve through a
	// scope-get frame, which also assigns err; err is declared once, in the
	// method preamble, before the handler frame's own assignment runs.
	src := compose(t, desc, ExecutionBuilder{})
	assert.Equal(t, 1, strings.Count(src, "var err error"))
	assert.Contains(t, src, "err = baseHandler.HandleAsync(ctx, payload)")
}

func TestPostExecuteBuilder_Matches_RequiresFeature(t *testing.T) {
	t.Parallel()

	b := PostExecuteBuilder{}
	assert.False(t, b.Matches(&operation.Descriptor{}))
	assert.True(t, b.Matches(&operation.Descriptor{Features: map[operation.FeatureKind]any{FeatureTelemetry: true}}))
}

func TestPostExecuteBuilder_EmitsRecordSuccessCall(t *testing.T) {
	t.Parallel()

	desc := &operation.Descriptor{Name: "CreateWidget", Features: map[operation.FeatureKind]any{FeatureTelemetry: true}}
	src := compose(t, desc, PostExecuteBuilder{})
	assert.Contains(t, src, `telemetry.RecordSuccess(ctx, "CreateWidget")`)
}

func TestPostExecuteBuilder_SingletonLift_UsesFieldName(t *testing.T) {
	t.Parallel()

	desc := &operation.Descriptor{Name: "CreateWidget", Features: map[operation.FeatureKind]any{FeatureTelemetry: true}}
	src := composeWithResolver(t, desc, alwaysSingleton{}, PostExecuteBuilder{})
	assert.Contains(t, src, `b.telemetry.RecordSuccess(ctx, "CreateWidget")`)
}

func TestExecutionBuilder_HandlerCallIsSuspensionPoint_EmitsCancellationCheck(t *testing.T) {
	t.Parallel()

	base := gotype.Named1("x/handlers", "BaseHandler")
	desc := &operation.Descriptor{
		Name: "Op",
		Features: map[operation.FeatureKind]any{
			FeatureHandlers: []HandlerSpec{{Type: base, Method: "HandleAsync"}},
		},
	}
	src := compose(t, desc, ExecutionBuilder{})
	assert.Contains(t, src, "err = baseHandler.HandleAsync(ctx, payload)")
	idx := strings.Index(src, "err = baseHandler.HandleAsync(ctx, payload)")
	require.NotEqual(t, -1, idx)
	after := src[idx:]
	assert.Contains(t, after, "if err := ctx.Err(); err != nil")
}
