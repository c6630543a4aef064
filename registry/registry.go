// Package registry is the executor registry and dispatcher: the one
// public entry point a host calls at request time. It
// matches an incoming payload to its operation.Descriptor, opens a
// per-request resolve.Scope, invokes the compiled executor through
// reflection (plugin-loaded types are only known by name, never by a
// static Go type the registry package could import), and guarantees the
// scope is closed on every exit path.
//
// Centralizing the panic/error-to-Result translation here, instead of in
// every generated method, is the Go rendition of "wrap the body in an
// exception-handling frame": one recover() per dispatch rather than one
// defer/recover generated into every executor.
package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/blueprint-framework/blueprint/errs"
	"github.com/blueprint-framework/blueprint/operation"
	"github.com/blueprint-framework/blueprint/resolve"
)

// ErrorLogger receives every error the registry maps to
// UnhandledException, including the retry count when the call went
// through Registry.ExecuteWithRetry (0 from Execute).
type ErrorLogger interface {
	LogError(ctx context.Context, operationName string, cause error, retryCount int)
}

// Binding is one compiled, constructed executor ready for dispatch.
type Binding struct {
	Descriptor *operation.Descriptor
	Instance   any
	Source     string
}

// Registry dispatches requests to compiled executors. Construct one with
// New once per Host.Build call; it is safe for concurrent use by
// multiple goroutines since Execute's only mutable state is the
// per-call Scope the caller supplies.
type Registry struct {
	catalog  *operation.Catalog
	bindings map[string]Binding // keyed by Descriptor.Name
	scopeNew func(ctx context.Context) (resolve.Scope, error)
	logger   ErrorLogger
}

// New returns a Registry over the given catalog and compiled bindings.
// scopeNew opens a fresh resolve.Scope for one request; logger may be
// nil, in which case UnhandledException causes are simply not logged.
func New(catalog *operation.Catalog, bindings map[string]Binding, scopeNew func(context.Context) (resolve.Scope, error), logger ErrorLogger) *Registry {
	return &Registry{catalog: catalog, bindings: bindings, scopeNew: scopeNew, logger: logger}
}

// GeneratedSource concatenates every bound operation's generated source,
// in operation-name order, for introspection and debugging.
func (r *Registry) GeneratedSource() string {
	var names []string
	for name := range r.bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(r.bindings[name].Source)
		b.WriteString("\n")
	}
	return b.String()
}

// GeneratedSourceFor returns one operation's generated source.
func (r *Registry) GeneratedSourceFor(operationName string) (string, bool) {
	b, ok := r.bindings[operationName]
	if !ok {
		return "", false
	}
	return b.Source, true
}

// ExecuteWithNewScope matches payload to its operation by runtime type
// (most specific registration wins, see operation.Catalog.MatchRuntimeType),
// opens a fresh Scope for the call, and guarantees it is closed before
// returning — on success, on a handled operation.Result failure, and on
// panic.
func (r *Registry) ExecuteWithNewScope(ctx context.Context, payload any) (operation.Result, error) {
	desc, ok := r.catalog.MatchRuntimeType(runtimeTypeKey(payload))
	if !ok {
		return operation.Result{}, errs.MissingHandler{Operation: fmt.Sprintf("%T", payload)}
	}

	scope, err := r.scopeNew(ctx)
	if err != nil {
		return operation.Result{}, err
	}
	defer scope.Close()

	return r.Execute(ctx, desc, scope, payload)
}

// Execute runs one already-matched operation against an already-open
// scope. Hosts that manage their own Scope lifetime (e.g. to share one
// scope across several calls) use this directly instead of
// ExecuteWithNewScope.
func (r *Registry) Execute(ctx context.Context, desc *operation.Descriptor, scope resolve.Scope, payload any) (operation.Result, error) {
	if _, ok := r.bindings[desc.Name]; !ok {
		return operation.Result{}, errs.MissingHandler{Operation: desc.Name}
	}
	result, cause := r.dispatch(ctx, desc, scope, payload)
	if cause != nil {
		r.logError(ctx, desc.Name, cause, 0)
	}
	return result, nil
}

// ExecuteWithRetry runs one operation, retrying up to maxAttempts times
// when the handler fails with an unhandled exception (not on a handled
// Result like ValidationFailed, and not on context cancellation, which
// retrying would never resolve). Every attempt before the last is
// rethrown silently — the error logger is never consulted for it — per
// the "transient attempts are rethrown silently" rule for the background
// retry infrastructure; a success is never logged, and only a failing
// final attempt is, with RetryCount set to the attempt number it gave up
// on.
func (r *Registry) ExecuteWithRetry(ctx context.Context, desc *operation.Descriptor, scope resolve.Scope, payload any, maxAttempts int) (operation.Result, error) {
	if _, ok := r.bindings[desc.Name]; !ok {
		return operation.Result{}, errs.MissingHandler{Operation: desc.Name}
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var result operation.Result
	var cause error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, cause = r.dispatch(ctx, desc, scope, payload)
		if cause == nil {
			return result, nil
		}
		if attempt == maxAttempts {
			r.logError(ctx, desc.Name, cause, attempt)
			return result, nil
		}
		// transient attempt: rethrown silently, no logging.
	}
	return result, nil
}

// dispatch invokes desc's bound executor and classifies the outcome. It
// returns a non-nil cause only for an unhandled exception (panic or
// handler error, excluding context cancellation) — the one case a
// caller may want to retry or log — leaving logging itself to the
// caller so ExecuteWithRetry can suppress it for transient attempts.
func (r *Registry) dispatch(ctx context.Context, desc *operation.Descriptor, scope resolve.Scope, payload any) (result operation.Result, cause error) {
	binding, ok := r.bindings[desc.Name]
	if !ok {
		return operation.Result{}, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			cause = panicCause(rec)
			result = operation.ExceptionResult(cause)
		}
	}()

	out, callErr := callExecuteAsync(binding.Instance, ctx, scope, payload)
	if callErr == nil {
		return out, nil
	}
	if errors.Is(callErr, context.Canceled) || errors.Is(callErr, context.DeadlineExceeded) {
		return operation.CancelledResult(callErr), nil
	}
	return operation.ExceptionResult(callErr), callErr
}

func (r *Registry) logError(ctx context.Context, operationName string, cause error, retryCount int) {
	if r.logger == nil {
		return
	}
	r.logger.LogError(ctx, operationName, cause, retryCount)
}

func panicCause(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("%v", rec)
}

// callExecuteAsync invokes a compiled executor's ExecuteAsync method
// through reflection. The registry package cannot import a static Go
// type for instance — PluginCompiler loads it from a dynamically built
// .so, and TypeCheckCompiler never produces a runnable instance at all —
// so method lookup by name is the only option.
func callExecuteAsync(instance any, ctx context.Context, scope resolve.Scope, payload any) (operation.Result, error) {
	v := reflect.ValueOf(instance)
	m := v.MethodByName("ExecuteAsync")
	if !m.IsValid() {
		return operation.Result{}, fmt.Errorf("blueprint: compiled executor %T has no ExecuteAsync method", instance)
	}

	args := []reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(scope), reflect.ValueOf(payload)}
	out := m.Call(args)
	if len(out) != 2 {
		return operation.Result{}, fmt.Errorf("blueprint: compiled executor %T.ExecuteAsync has unexpected signature", instance)
	}

	result, _ := out[0].Interface().(operation.Result)
	if out[1].IsNil() {
		return result, nil
	}
	callErr, _ := out[1].Interface().(error)
	return result, callErr
}

// runtimeTypeKey builds the same "<lastImportSegment>.<TypeName>" key
// gotype.Ref.Key() would for the value's concrete (pointer-dereferenced)
// Go type.
func runtimeTypeKey(payload any) string {
	t := reflect.TypeOf(payload)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	pkg := t.PkgPath()
	if pkg == "" {
		return t.Name()
	}
	segs := strings.Split(pkg, "/")
	return segs[len(segs)-1] + "." + t.Name()
}
