// Package project locates and decodes v4c.toml.
package project

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config mirrors v4c.toml.
type Config struct {
	Build   BuildConfig   `toml:"build"`
	Runtime RuntimeConfig `toml:"runtime"`
	Codegen CodegenConfig `toml:"codegen"`
	Output  OutputConfig  `toml:"output"`
}

type BuildConfig struct {
	// Inputs are IR bundles, relative to the project root.
	Inputs []string `toml:"inputs"`
	// Jobs bounds parallel builds; 0 means one per CPU.
	Jobs int `toml:"jobs"`
}

type RuntimeConfig struct {
	// Library is a textual LLVM module declaring the runtime ABI. Empty
	// selects the builtin catalogue.
	Library string `toml:"library"`
}

type CodegenConfig struct {
	Passes []string `toml:"passes"`
	Triple string   `toml:"triple"`
}

type OutputConfig struct {
	Mode    string `toml:"mode"`
	Dir     string `toml:"dir"`
	KeepTmp bool   `toml:"keep_tmp"`
}

// Project is a loaded configuration and where it came from.
type Project struct {
	Path   string
	Root   string
	Config Config
}

// Default is the configuration used without a v4c.toml.
func Default() Config {
	return Config{
		Codegen: CodegenConfig{Passes: []string{"unreachable", "dead-slot"}},
		Output:  OutputConfig{Mode: "ll", Dir: "target"},
	}
}

// Load decodes path over Default. Unknown keys are an error so that typos
// do not silently fall back to defaults.
func Load(path string) (*Project, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Build.Jobs < 0 {
		return nil, fmt.Errorf("%s: [build].jobs must not be negative", path)
	}
	return &Project{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

// Discover finds and loads the nearest v4c.toml above startDir. Without
// one it returns defaults rooted at startDir and ok=false.
func Discover(startDir string) (proj *Project, ok bool, err error) {
	path, ok, err := FindConfig(startDir)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		root, absErr := filepath.Abs(startDir)
		if absErr != nil {
			root = startDir
		}
		return &Project{Root: root, Config: Default()}, false, nil
	}
	proj, err = Load(path)
	return proj, err == nil, err
}

// Resolve makes a config-relative path absolute.
func (p *Project) Resolve(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// Inputs returns the configured inputs, resolved and with duplicates
// removed.
func (p *Project) Inputs() []string {
	out := make([]string, 0, len(p.Config.Build.Inputs))
	for _, in := range p.Config.Build.Inputs {
		if path := p.Resolve(in); !slices.Contains(out, path) {
			out = append(out, path)
		}
	}
	return out
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// WriteDefault creates dir/v4c.toml, refusing to overwrite an existing one.
func WriteDefault(dir string, cfg Config) (string, error) {
	path := filepath.Join(dir, ConfigName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := Encode(f, cfg); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, f.Close()
}
