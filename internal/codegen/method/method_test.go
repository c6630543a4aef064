package method

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueprint-framework/blueprint/errs"
	"github.com/blueprint-framework/blueprint/internal/codegen/graph"
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/writer"
)

type passInjector struct{}

func (passInjector) Resolve(operation string, v *graph.Variable) (*graph.Frame, bool, error) {
	return nil, false, errs.UnresolvedService{Type: v.Type.String(), Operation: operation}
}

func emitLine(text string) func(*writer.Writer, map[string]*graph.Variable) error {
	return func(w *writer.Writer, _ map[string]*graph.Variable) error {
		w.Write(text)
		return nil
	}
}

func TestBuild_RequiresReturnValueButNoResultVar_Fails(t *testing.T) {
	t.Parallel()

	m := &Method{
		Name:                "ExecuteAsync",
		ResultType:          gotype.Named1("x/operation", "Result"),
		RequiresReturnValue: true,
		LastHandlerFrame:    "HandleBase",
	}

	_, err := m.Build("HasReturnOp", passInjector{})
	require.Error(t, err)
	var mrv errs.MissingReturnValue
	require.ErrorAs(t, err, &mrv)
	assert.Equal(t, "HasReturnOp", mrv.Operation)
	assert.Equal(t, "HandleBase", mrv.Handler)
}

func TestBuild_RequiresReturnValueSatisfied_Succeeds(t *testing.T) {
	t.Parallel()

	resultVar := &graph.Variable{Type: gotype.Builtin("int"), Name: "handlerResult"}
	handlerFrame := &graph.Frame{
		ID:            "handler",
		Creates:       []*graph.Variable{resultVar},
		FindVariables: func([]*graph.Variable) []*graph.Variable { return nil },
		Emit:          emitLine("handlerResult := 12345"),
	}
	resultVar.Creator = handlerFrame

	m := &Method{
		Name:                "ExecuteAsync",
		ResultType:          gotype.Builtin("int"),
		RequiresReturnValue: true,
		Frames:              []*graph.Frame{handlerFrame},
		ResultVar:           resultVar,
	}

	built, err := m.Build("Op", passInjector{})
	require.NoError(t, err)

	w := writer.New()
	require.NoError(t, m.Emit(w, "OpExecutor", "b", built))
	src := w.String()
	assert.Contains(t, src, "handlerResult := 12345")
	assert.Contains(t, src, "return handlerResult, nil")
	assert.NotContains(t, src, "return result, nil")
}

func TestEmit_NoReturnValue_ReturnsZeroResult(t *testing.T) {
	t.Parallel()

	m := &Method{
		Name:       "ExecuteAsync",
		ResultType: gotype.Named1("x/operation", "Result"),
	}

	built, err := m.Build("Op", passInjector{})
	require.NoError(t, err)

	w := writer.New()
	require.NoError(t, m.Emit(w, "OpExecutor", "b", built))
	assert.Contains(t, w.String(), "return result, nil")
}

func TestEmit_AsyncFrameInsertsCancellationCheck(t *testing.T) {
	t.Parallel()

	f := &graph.Frame{
		ID:            "await-handler",
		IsAsync:       true,
		FindVariables: func([]*graph.Variable) []*graph.Variable { return nil },
		Emit:          emitLine("doWork()"),
	}

	m := &Method{Name: "ExecuteAsync", ResultType: gotype.Builtin("int"), Frames: []*graph.Frame{f}}
	built, err := m.Build("Op", passInjector{})
	require.NoError(t, err)

	w := writer.New()
	require.NoError(t, m.Emit(w, "OpExecutor", "b", built))
	src := w.String()
	assert.Contains(t, src, "doWork()")
	assert.Contains(t, src, "ctx.Err()")
}

func TestEmit_SignatureIncludesContextAndParams(t *testing.T) {
	t.Parallel()

	param := graph.NewParam(gotype.Named1("x/operation", "Payload"), "payload")
	m := &Method{Name: "ExecuteAsync", Params: []*graph.Variable{param}, ResultType: gotype.Builtin("int")}
	built, err := m.Build("Op", passInjector{})
	require.NoError(t, err)

	w := writer.New()
	require.NoError(t, m.Emit(w, "OpExecutor", "b", built))
	src := w.String()
	assert.Contains(t, src, "func (b *OpExecutor) ExecuteAsync(ctx context.Context, payload operation.Payload) (int, error)")
}

func TestEmit_NoFrameRequiresErr_OmitsErrDeclaration(t *testing.T) {
	t.Parallel()

	f := &graph.Frame{
		ID:            "literal",
		FindVariables: func([]*graph.Variable) []*graph.Variable { return nil },
		Emit:          emitLine("x := 1"),
	}

	m := &Method{Name: "ExecuteAsync", ResultType: gotype.Builtin("int"), Frames: []*graph.Frame{f}}
	built, err := m.Build("Op", passInjector{})
	require.NoError(t, err)

	w := writer.New()
	require.NoError(t, m.Emit(w, "OpExecutor", "b", built))
	assert.NotContains(t, w.String(), "var err error")
}

func TestEmit_MultipleFramesRequiringErr_DeclaresOnceAndNeverRedeclares(t *testing.T) {
	t.Parallel()

	v1 := &graph.Variable{Type: gotype.Builtin("int"), Name: "first"}
	f1 := &graph.Frame{
		ID:            "scope-get",
		Creates:       []*graph.Variable{v1},
		RequiresErr:   true,
		FindVariables: func([]*graph.Variable) []*graph.Variable { return nil },
		Emit:          emitLine("firstRaw, err := scope.Get(\"first\")"),
	}
	v1.Creator = f1

	f2 := &graph.Frame{
		ID:            "non-returning-handler",
		RequiresErr:   true,
		FindVariables: func([]*graph.Variable) []*graph.Variable { return []*graph.Variable{v1} },
		Emit:          emitLine("err = callHandler(first)"),
	}

	m := &Method{Name: "ExecuteAsync", ResultType: gotype.Builtin("int"), Frames: []*graph.Frame{f1, f2}}
	built, err := m.Build("Op", passInjector{})
	require.NoError(t, err)

	w := writer.New()
	require.NoError(t, m.Emit(w, "OpExecutor", "b", built))
	src := w.String()
	assert.Equal(t, 1, strings.Count(src, "var err error"))
	assert.Contains(t, src, "firstRaw, err := scope.Get(\"first\")")
	assert.Contains(t, src, "err = callHandler(first)")
}

func TestSignature_MatchesEmittedHeader(t *testing.T) {
	t.Parallel()

	param := graph.NewParam(gotype.Builtin("string"), "name")
	m := &Method{Name: "Greet", Params: []*graph.Variable{param}, ResultType: gotype.Builtin("string")}
	assert.Equal(t, "Greet(ctx context.Context, name string) (string, error)", m.Signature())
}
