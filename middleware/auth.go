package middleware

import (
	"context"

	"github.com/blueprint-framework/blueprint/internal/codegen/graph"
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/writer"
	"github.com/blueprint-framework/blueprint/operation"
	"github.com/blueprint-framework/blueprint/pipeline"
)

// FeatureRequiresAuthentication keys a bool feature: when true, the
// Authentication stage rejects the request with operation.Unauthorized
// before any other stage runs.
const FeatureRequiresAuthentication operation.FeatureKind = "auth.required"

// FeatureAuthorizationPolicy keys a string feature naming the policy the
// Authorisation stage must check. An empty or absent policy means no
// authorisation check is emitted.
const FeatureAuthorizationPolicy operation.FeatureKind = "auth.policy"

var authenticatorType = gotype.Named1("github.com/blueprint-framework/blueprint/middleware", "Authenticator")
var authorizerType = gotype.Named1("github.com/blueprint-framework/blueprint/middleware", "Authorizer")

// Authenticator is the host-implemented service the Authentication stage
// calls through DI. Its binding's lifetime is a host decision — most
// hosts register it as a Singleton.
type Authenticator interface {
	Authenticate(ctx context.Context) (ok bool, err error)
}

// Authorizer is the host-implemented service the Authorisation stage
// calls through DI to evaluate a named policy against the current
// request.
type Authorizer interface {
	Authorize(ctx context.Context, policy string) (allowed bool, err error)
}

// AuthenticationBuilder rejects unauthenticated requests before any
// other stage (including Validation) runs.
type AuthenticationBuilder struct{}

func (AuthenticationBuilder) Stage() pipeline.Stage { return pipeline.Authentication }

func (AuthenticationBuilder) Matches(d *operation.Descriptor) bool {
	required, ok := d.Feature(FeatureRequiresAuthentication)
	b, _ := required.(bool)
	return ok && b
}

func (AuthenticationBuilder) Build(ctx *pipeline.BuilderContext) (*graph.Variable, error) {
	authVar := &graph.Variable{Type: authenticatorType, Name: "authenticator"}
	ctx.AppendFrame(&graph.Frame{
		ID:            "authenticate",
		RequiresErr:   true,
		FindVariables: func([]*graph.Variable) []*graph.Variable { return []*graph.Variable{authVar} },
		Emit: func(w *writer.Writer, _ map[string]*graph.Variable) error {
			w.Write("authenticated, err := " + authVar.Name + ".Authenticate(ctx)")
			w.Write("BLOCK:if err != nil")
			w.Write("return result, err")
			w.FinishBlock()
			w.Write("BLOCK:if !authenticated")
			w.Write("return operation.Result{Kind: operation.Unauthorized}, nil")
			w.FinishBlock()
			return nil
		},
	})
	return nil, nil
}

// AuthorisationBuilder rejects requests that fail the operation's
// declared policy after authentication has already succeeded.
type AuthorisationBuilder struct{}

func (AuthorisationBuilder) Stage() pipeline.Stage { return pipeline.Authorisation }

func (AuthorisationBuilder) Matches(d *operation.Descriptor) bool {
	policy, ok := policyFor(d)
	return ok && policy != ""
}

func (AuthorisationBuilder) Build(ctx *pipeline.BuilderContext) (*graph.Variable, error) {
	policy, _ := policyFor(ctx.Operation)
	authVar := &graph.Variable{Type: authorizerType, Name: "authorizer"}
	ctx.AppendFrame(&graph.Frame{
		ID:            "authorize",
		RequiresErr:   true,
		FindVariables: func([]*graph.Variable) []*graph.Variable { return []*graph.Variable{authVar} },
		Emit: func(w *writer.Writer, _ map[string]*graph.Variable) error {
			w.Write("allowed, err := " + authVar.Name + ".Authorize(ctx, " + quoted(policy) + ")")
			w.Write("BLOCK:if err != nil")
			w.Write("return result, err")
			w.FinishBlock()
			w.Write("BLOCK:if !allowed")
			w.Write("return operation.Result{Kind: operation.Forbidden}, nil")
			w.FinishBlock()
			return nil
		},
	})
	return nil, nil
}

func policyFor(d *operation.Descriptor) (string, bool) {
	raw, ok := d.Feature(FeatureAuthorizationPolicy)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}
