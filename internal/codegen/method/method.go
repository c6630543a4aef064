// Package method is the method builder. It owns one generated method's
// worth of contributor frames, runs the frame graph's resolution algorithm
// over them, and writes the method's body: signature, frame bodies in
// resolved order, and a trailing return.
package method

import (
	"strings"

	"github.com/blueprint-framework/blueprint/errs"
	"github.com/blueprint-framework/blueprint/internal/codegen/graph"
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/writer"
)

// Method is the method builder's input: a method name, its declared parameters
// (beyond the implicit leading context.Context), the pipeline's declared
// result type, whether the operation requires a return value, and the
// frames contributed by the middleware pipeline composer in stage-then-
// insertion order.
type Method struct {
	Name                string
	Params              []*graph.Variable
	ResultType          gotype.Ref
	RequiresReturnValue bool
	Frames              []*graph.Frame

	// ResultVar, if non-nil, is the variable the Execution stage
	// designated as the operation's result. It must have been produced
	// by one of Frames (its Creator chain must resolve), or Build fails
	// with errs.MissingReturnValue when RequiresReturnValue is true.
	ResultVar *graph.Variable

	// LastHandlerFrame names the frame that was expected to produce
	// ResultVar, for the MissingReturnValue diagnostic.
	LastHandlerFrame string
}

// Built is the output of resolving a Method: the frame order and whether
// the method must thread context cancellation checks.
type Built struct {
	Resolution *graph.Resolution
}

// Build runs the frame graph's resolution algorithm over m.Frames. It does not
// write source; call Emit afterwards with the returned Built.
func (m *Method) Build(operation string, injector graph.InjectProvider) (*Built, error) {
	res, err := graph.Resolve(operation, m.Params, m.Frames, injector)
	if err != nil {
		return nil, err
	}
	if m.RequiresReturnValue && (m.ResultVar == nil || m.ResultVar.Creator == nil) {
		return nil, errs.MissingReturnValue{Operation: operation, Handler: m.LastHandlerFrame}
	}
	return &Built{Resolution: res}, nil
}

// Emit writes the method's full declaration — signature, body, trailing
// return — to w. receiver is the generated type's receiver variable name
// (e.g. "b"), used to qualify nothing here directly but kept for parity
// with how injected-field access expressions are already pre-rendered
// into variable names by the instance frame provider.
func (m *Method) Emit(w *writer.Writer, receiverType, receiver string, built *Built) error {
	sig := "func (" + receiver + " *" + receiverType + ") " + m.Name + "(ctx context.Context"
	for _, p := range m.Params {
		sig += ", " + p.Name + " " + p.Type.String()
	}
	sig += ") (" + m.ResultType.String() + ", error)"
	w.Write("BLOCK:" + sig)

	w.Write("var result " + m.ResultType.String())
	w.Write("_ = result")
	if requiresErr(built.Resolution.Order) {
		w.Write("var err error")
	}

	live := map[string]*graph.Variable{}
	for _, p := range m.Params {
		live[p.Name] = p
	}

	for _, f := range built.Resolution.Order {
		if err := f.Emit(w, live); err != nil {
			return err
		}
		for _, c := range f.Creates {
			live[c.Name] = c
		}
		if f.IsAsync {
			w.Write("BLOCK:if err := ctx.Err(); err != nil")
			w.Write("return result, err")
			w.FinishBlock()
		}
	}

	if m.RequiresReturnValue {
		w.Write("return " + m.ResultVar.Name + ", nil")
	} else {
		w.Write("return result, nil")
	}

	w.FinishBlock()
	return nil
}

// requiresErr reports whether any placed frame reads or assigns the
// shared "err" identifier, so Emit knows whether to declare it once in
// the preamble.
func requiresErr(order []*graph.Frame) bool {
	for _, f := range order {
		if f.RequiresErr {
			return true
		}
	}
	return false
}

// Signature returns the method's Go signature string without a body,
// useful for interface declarations and diagnostics.
func (m *Method) Signature() string {
	var params []string
	params = append(params, "ctx context.Context")
	for _, p := range m.Params {
		params = append(params, p.Name+" "+p.Type.String())
	}
	return m.Name + "(" + strings.Join(params, ", ") + ") (" + m.ResultType.String() + ", error)"
}
