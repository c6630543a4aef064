package resolve

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"plugin"
	"reflect"
	"sort"
	"strings"

	"github.com/blueprint-framework/blueprint/errs"
)

// PluginCompiler is the production Compiler: it writes the generated
// sources to a scratch module directory, shells out to the Go toolchain
// with -buildmode=plugin, and loads the result with plugin.Open. This is
// the real analogue of "compile generated source and bind the result" —
// Go has no in-process compiler, so producing an actually-loadable type
// from generated text means going through a real go build.
//
// Each generated file must export a constructor named New<TypeName>
// taking the type's fields as positional arguments and returning
// *TypeName — exactly what typebuilder.Type.Emit writes.
type PluginCompiler struct {
	// ModulePath is the module path the scratch directory's go.mod
	// declares. It must match the import path the generated sources use
	// to reference each other (namespace values from typebuilder.Type).
	ModulePath string
	// GoModRequire lists extra require lines (module + version) the
	// scratch go.mod needs to resolve imports the generated code pulls
	// in beyond the host module itself, e.g. the host's own packages
	// providing Authenticator/Authorizer/Telemetry implementations.
	GoModRequire []string
	// WorkDir, if set, is reused across calls instead of a fresh
	// temporary directory; callers that recompile on every request
	// should set this to avoid leaking one plugin .so per request (Go
	// plugins can never be unloaded from a running process).
	WorkDir string
}

func (c *PluginCompiler) Compile(ctx context.Context, sources map[string]string) ([]CompiledUnit, error) {
	dir := c.WorkDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "blueprint-build-")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir)
	}

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	typeNames := map[string]string{} // file path -> TypeName, parsed from source
	for _, name := range names {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		src := sources[name]
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			return nil, err
		}
		if tn := findTypeName(src); tn != "" {
			typeNames[name] = tn
		}
	}

	goMod := "module " + c.ModulePath + "\n\ngo 1.25\n"
	for _, req := range c.GoModRequire {
		goMod += "require " + req + "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(goMod), 0o644); err != nil {
		return nil, err
	}

	soPath := filepath.Join(dir, "generated.so")
	cmd := exec.CommandContext(ctx, "go", "build", "-buildmode=plugin", "-o", soPath, "./...")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errs.CompilationError{
			Diagnostics: strings.Split(strings.TrimSpace(string(out)), "\n"),
			Source:      joinedSources(names, sources),
		}
	}

	p, err := plugin.Open(soPath)
	if err != nil {
		return nil, err
	}

	var units []CompiledUnit
	for name, typeName := range typeNames {
		sym, err := p.Lookup("New" + typeName)
		if err != nil {
			return nil, err
		}
		units = append(units, CompiledUnit{
			Namespace: filepath.ToSlash(filepath.Dir(name)),
			TypeName:  typeName,
			New:       reflectConstructor(sym),
		})
	}
	return units, nil
}

// reflectConstructor adapts a plugin-loaded constructor symbol (a Go
// function value of unknown-but-fixed signature, New<TypeName>(fields...)
// *TypeName) into the any-args New signature CompiledUnit exposes.
func reflectConstructor(sym plugin.Symbol) func(args ...any) (any, error) {
	fn := reflect.ValueOf(sym)
	return func(args ...any) (any, error) {
		if fn.Type().NumIn() != len(args) {
			return nil, fmt.Errorf("blueprint: constructor expects %d arguments, got %d", fn.Type().NumIn(), len(args))
		}
		in := make([]reflect.Value, len(args))
		for i, a := range args {
			in[i] = reflect.ValueOf(a)
		}
		out := fn.Call(in)
		if len(out) != 1 {
			return nil, fmt.Errorf("blueprint: constructor returned %d values, expected 1", len(out))
		}
		return out[0].Interface(), nil
	}
}

func joinedSources(names []string, sources map[string]string) string {
	var b strings.Builder
	for _, n := range names {
		b.WriteString("// " + n + "\n")
		b.WriteString(sources[n])
		b.WriteString("\n")
	}
	return b.String()
}

// findTypeName extracts the first "type <Name> struct" declaration from
// generated source text. Generated files are produced entirely by
// typebuilder.Type.Emit, which always emits exactly one such declaration
// per file, so a full AST parse is unnecessary just to recover the name.
func findTypeName(src string) string {
	const marker = "type "
	idx := strings.Index(src, marker)
	for idx != -1 {
		rest := src[idx+len(marker):]
		if sp := strings.IndexByte(rest, ' '); sp != -1 && strings.HasPrefix(strings.TrimLeft(rest[sp:], " "), "struct") {
			return rest[:sp]
		}
		next := strings.Index(src[idx+len(marker):], marker)
		if next == -1 {
			break
		}
		idx = idx + len(marker) + next
	}
	return ""
}
