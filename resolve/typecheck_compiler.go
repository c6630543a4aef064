package resolve

import (
	"context"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"

	"github.com/blueprint-framework/blueprint/errs"
)

// TypeCheckCompiler is the test-mode Compiler: it parses and
// type-checks generated sources with go/types, resolving their imports
// from package source, but never builds or loads a plugin, so it has none
// of PluginCompiler's build cost or its one-way "a process can never
// unload a plugin" constraint. It cannot produce runnable constructors —
// CompiledUnit.New on its results always returns an error; it only proves
// the generator produced valid Go.
//
// The generator's own test suite uses it to assert that emitted source is
// well-formed without running `go build` for every test case. A
// blueprint.Host uses whichever Compiler is passed to blueprint.New; it
// does not pick one from Config.CompileStrategy.
type TypeCheckCompiler struct{}

func (TypeCheckCompiler) Compile(ctx context.Context, sources map[string]string) ([]CompiledUnit, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	fset := token.NewFileSet()
	files := make([]*ast.File, 0, len(names))
	for _, name := range names {
		f, err := parser.ParseFile(fset, name, sources[name], parser.AllErrors)
		if err != nil {
			return nil, errs.CompilationError{
				Diagnostics: []string{err.Error()},
				Source:      sources[name],
			}
		}
		files = append(files, f)
	}

	var diags []string
	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil), Error: func(err error) { diags = append(diags, err.Error()) }}
	pkg := types.NewPackage("generated", "")
	checker := types.NewChecker(&conf, fset, pkg, nil)
	if err := checker.Files(files); err != nil {
		diags = append(diags, err.Error())
	}
	if len(diags) > 0 {
		return nil, errs.CompilationError{Diagnostics: diags, Source: joinedSources(names, sources)}
	}

	var units []CompiledUnit
	for _, name := range names {
		tn := findTypeName(sources[name])
		if tn == "" {
			continue
		}
		units = append(units, CompiledUnit{
			Namespace: filepath.ToSlash(filepath.Dir(name)),
			TypeName:  tn,
			New: func(args ...any) (any, error) {
				return nil, errs.CompilationError{
					Diagnostics: []string{"blueprint: TypeCheckCompiler does not produce runnable instances, use PluginCompiler in production"},
				}
			},
		})
	}
	return units, nil
}
