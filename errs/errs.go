// Package errs defines the generation-time error kinds a Blueprint host can
// fail on at startup. Each kind is a distinct struct type rather than a
// sentinel, so callers can carry structured context (the offending
// operation, type, or frame path) without parsing strings.
//
// Error() implementations avoid fmt.Errorf on the construction path and
// build messages with plain string concatenation, matching the style the
// DI package in this codebase's history used for its own structured
// errors.
package errs

import "strconv"

// UnresolvedService is returned when the DI-aware instance frame provider
// cannot bind a requested type to any registered implementation.
type UnresolvedService struct {
	Type      string
	Operation string
}

func (e UnresolvedService) Error() string {
	return "blueprint: unresolved service " + strconv.Quote(e.Type) +
		" for operation " + strconv.Quote(e.Operation)
}

// MissingHandler is returned when the Execution stage finds no registered
// handler for an operation.
type MissingHandler struct {
	Operation string
}

func (e MissingHandler) Error() string {
	return "blueprint: no handler registered for operation " + strconv.Quote(e.Operation)
}

// MissingReturnValue is returned when an operation requires a return value
// but no placed frame produced the method's result variable.
type MissingReturnValue struct {
	Operation string
	Handler   string
}

func (e MissingReturnValue) Error() string {
	return "blueprint: operation " + strconv.Quote(e.Operation) +
		" requires a return value but handler " + strconv.Quote(e.Handler) +
		" is not guaranteed to produce one (interface operation dispatched to a concrete handler)"
}

// DuplicateInjectedField is returned when the type builder is asked to
// inject the same variable-type twice under conflicting kinds (e.g. once
// as an interface and once as a concrete implementer).
type DuplicateInjectedField struct {
	Type string
}

func (e DuplicateInjectedField) Error() string {
	return "blueprint: duplicate constructor argument for injected field type " + strconv.Quote(e.Type)
}

// PipelineCycle is returned when the frame/variable graph's producer chain
// revisits a frame before it has been placed.
type PipelineCycle struct {
	Operation string
	FramePath []string
}

func (e PipelineCycle) Error() string {
	msg := "blueprint: pipeline cycle in operation " + strconv.Quote(e.Operation) + ": "
	for i, f := range e.FramePath {
		if i > 0 {
			msg += " -> "
		}
		msg += f
	}
	return msg
}

// ServiceNotFound is returned at runtime when a resolve.Scope has no
// binding for a requested type — the runtime counterpart of
// UnresolvedService, which is a build-time-only failure.
type ServiceNotFound struct {
	Type string
}

func (e ServiceNotFound) Error() string {
	return "blueprint: no service registered for type " + strconv.Quote(e.Type)
}

// CompilationError is returned when the configured Compiler rejects
// generated source. The full offending source is attached for diagnosis —
// compilation failures are never silently summarized away.
type CompilationError struct {
	Diagnostics []string
	Source      string
}

func (e CompilationError) Error() string {
	msg := "blueprint: compilation failed:"
	for _, d := range e.Diagnostics {
		msg += "\n  " + d
	}
	return msg
}
