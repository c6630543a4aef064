// Package graph is the variable & frame graph — the generator's central
// algorithm. It models values (Variable) with types and producers, models
// imperative snippets (Frame) with read/write dependencies, and performs
// deterministic topological placement of frames in final emission order.
package graph

import (
	"github.com/blueprint-framework/blueprint/internal/codegen/gotype"
	"github.com/blueprint-framework/blueprint/internal/codegen/writer"
)

// Variable is a named, typed value available in a generated method. It is
// either a method parameter (Creator == nil, no DependsOn), an injected
// field (resolved out-of-band by an InjectProvider, Creator == nil), or
// the sole output of exactly one Frame (Creator != nil).
type Variable struct {
	Type    gotype.Ref
	Name    string
	Creator *Frame
	// DependsOn records that this variable's value is derived from
	// another variable already in scope (e.g. a field access), purely
	// for introspection — the resolver does not chase DependsOn the way
	// it chases Creator.
	DependsOn *Variable
}

// NewParam returns a Variable representing a method parameter: it has no
// producing frame and is assumed present in the initial chain.
func NewParam(t gotype.Ref, name string) *Variable {
	return &Variable{Type: t, Name: name}
}

// Frame is a unit of imperative code contributing zero or more Variables
// and consuming zero or more Variables.
type Frame struct {
	// ID identifies the frame for diagnostics (cycle paths, source
	// comments). It need not be unique across an entire assembly, only
	// within one method's contributor list.
	ID string

	// IsAsync marks a frame as introducing a suspension point: a Go
	// statement that may block and that threads a context.Context.
	IsAsync bool

	// Creates lists the variables this frame produces, in emission
	// order. A frame producing zero variables is valid (e.g. a
	// validation short-circuit or a side-effecting log call).
	Creates []*Variable

	// FindVariables returns the variables this frame reads, given the
	// chain of variables already known to be live at this point in the
	// method. Implementations may ignore the chain argument if their
	// reads are static.
	FindVariables func(chain []*Variable) []*Variable

	// Emit writes this frame's body to w. live is the variable chain at
	// the point this frame executes (after all of its own dependencies
	// have been placed, before its own Creates are added).
	Emit func(w *writer.Writer, live map[string]*Variable) error

	// Imports lists import paths this frame's Emit references directly
	// (e.g. "fmt" for an fmt.Errorf call) that aren't already captured by
	// any Variable's gotype.Ref. The file-level import block must union
	// these in with the field/param/result Refs.
	Imports []string

	// RequiresErr marks a frame whose Emit reads or assigns the method
	// body's shared "err" identifier. method.Method.Emit declares "var
	// err error" in the preamble exactly when at least one placed frame
	// sets this, so a frame that only ever assigns err alongside a fresh
	// variable (e.g. "raw, err := ...") still compiles, and a frame that
	// assigns err on its own ("err = ...") never redeclares it.
	RequiresErr bool
}

func (f *Frame) id() string {
	if f.ID != "" {
		return f.ID
	}
	return "<frame>"
}
