package graph

import "github.com/blueprint-framework/blueprint/errs"

// InjectProvider resolves a Variable that no contributor frame claims to
// produce. This is the graph's hook into the DI-aware instance frame
// provider: an unresolved read is either an injected field (isField ==
// true, and the provider has already rewritten v.Name to the field-access
// expression) or a fresh per-call frame that the resolver must place like
// any other frame (producedFrame != nil, already wired so that
// producedFrame.Creates == []*Variable{v}).
type InjectProvider interface {
	Resolve(operation string, v *Variable) (producedFrame *Frame, isField bool, err error)
}

// Resolution is the output of Resolve: the frames in final emission
// order, and whether any of them is async.
type Resolution struct {
	Order []*Frame
	Async bool
}

// Resolve runs the deterministic frame placement procedure: build the
// variable chain from params, then for each contributor frame (already in
// stage-then-insertion order) recursively place whatever produces its
// unresolved reads before placing the frame itself.
//
// Cycle detection uses DFS white/grey/black coloring: revisiting a grey
// frame is a cycle, reported as errs.PipelineCycle with the frame path
// that led back to it.
func Resolve(operation string, params []*Variable, frames []*Frame, injector InjectProvider) (*Resolution, error) {
	const (
		white = 0
		grey  = 1
		black = 2
	)

	chainIndex := make(map[string]int, len(params))
	var chainOrder []*Variable
	addToChain := func(v *Variable) {
		if _, ok := chainIndex[v.Name]; ok {
			return
		}
		chainIndex[v.Name] = len(chainOrder)
		chainOrder = append(chainOrder, v)
	}
	for _, p := range params {
		addToChain(p)
	}

	color := make(map[*Frame]int, len(frames))
	var stack []string
	var order []*Frame
	async := false

	var place func(f *Frame) error
	place = func(f *Frame) error {
		switch color[f] {
		case black:
			return nil
		case grey:
			path := append(append([]string{}, stack...), f.id())
			return errs.PipelineCycle{Operation: operation, FramePath: path}
		}

		color[f] = grey
		stack = append(stack, f.id())

		// Pass a stable copy: chainOrder's insertion order is
		// deterministic across runs for a fixed catalog and middleware
		// registration, which is what the source-determinism testable
		// property requires.
		reads := f.FindVariables(append([]*Variable{}, chainOrder...))
		for _, v := range reads {
			if v == nil {
				continue
			}
			if _, ok := chainIndex[v.Name]; ok {
				continue
			}
			if v.Creator != nil {
				if err := place(v.Creator); err != nil {
					return err
				}
				continue
			}

			producedFrame, isField, err := injector.Resolve(operation, v)
			if err != nil {
				return err
			}
			if isField {
				addToChain(v)
				continue
			}
			if producedFrame != nil {
				if err := place(producedFrame); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[f] = black
		order = append(order, f)
		if f.IsAsync {
			async = true
		}
		for _, c := range f.Creates {
			addToChain(c)
		}
		return nil
	}

	for _, f := range frames {
		if err := place(f); err != nil {
			return nil, err
		}
	}

	return &Resolution{Order: order, Async: async}, nil
}
