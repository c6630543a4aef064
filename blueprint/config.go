package blueprint

import (
	"os"

	"gopkg.in/yaml.v3"
)

// CompileStrategy names a compile strategy in Config. Host does not read
// it; the resolve.Compiler a Host uses is the one passed to New.
type CompileStrategy string

const (
	// Plugin shells out to "go build -buildmode=plugin" and loads the
	// result with the standard library plugin package
	// (resolve.PluginCompiler).
	Plugin CompileStrategy = "Plugin"
	// InMemory type-checks generated source without building a plugin,
	// and never produces a runnable instance (resolve.TypeCheckCompiler).
	// LoadConfig uses it when the strategy is left empty. Used by tests
	// and by hosts that only want to validate the pipeline compiles.
	InMemory CompileStrategy = "InMemory"
)

// OptimizationLevel selects how aggressively the generated source favors
// debuggability over runtime characteristics. Neither Compiler in this
// module currently branches on it; it is carried through Config so a
// host-supplied resolve.Compiler can.
type OptimizationLevel string

const (
	Debug   OptimizationLevel = "Debug"
	Release OptimizationLevel = "Release"
)

// Config is the host-supplied configuration for one Build run.
type Config struct {
	AppName           string            `yaml:"appName"`
	AssemblyName      string            `yaml:"assemblyName"`
	OptimizationLevel OptimizationLevel `yaml:"optimizationLevel"`
	CompileStrategy   CompileStrategy   `yaml:"compileStrategy"`
	LogFormat         string            `yaml:"logFormat"`
	LogLevel          string            `yaml:"logLevel"`
}

// LoadConfig reads a YAML-encoded Config from path. Hosts that prefer to
// build Config literally (as every test in this module does) never need
// this function — it exists for the CLI entry point in cmd/blueprintctl.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.CompileStrategy == "" {
		cfg.CompileStrategy = InMemory
	}
	if cfg.OptimizationLevel == "" {
		cfg.OptimizationLevel = Debug
	}
	return cfg, nil
}
