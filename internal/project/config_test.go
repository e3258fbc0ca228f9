package project

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[build]
inputs = ["a.v4ir", "sub/b.v4ir", "a.v4ir"]
jobs = 2

[runtime]
library = "runtime/v4_runtime.ll"

[codegen]
passes = ["dead-slot"]

[output]
mode = "obj"
keep_tmp = true
`)
	proj, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := proj.Config
	if cfg.Output.Mode != "obj" || !cfg.Output.KeepTmp || cfg.Build.Jobs != 2 {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.Output.Dir != "target" {
		t.Fatalf("unset output dir must keep its default, got %q", cfg.Output.Dir)
	}
	if !slices.Equal(cfg.Codegen.Passes, []string{"dead-slot"}) {
		t.Fatalf("passes = %v", cfg.Codegen.Passes)
	}
	want := []string{filepath.Join(dir, "a.v4ir"), filepath.Join(dir, "sub", "b.v4ir")}
	if got := proj.Inputs(); !slices.Equal(got, want) {
		t.Fatalf("Inputs = %v, want %v", got, want)
	}
	if got := proj.Resolve(cfg.Runtime.Library); got != filepath.Join(dir, "runtime", "v4_runtime.ll") {
		t.Fatalf("Resolve = %s", got)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key": "[codegen]\npass = [\"dead-slot\"]\n",
		"negative":    "[build]\njobs = -1\n",
		"syntax":      "[output\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, t.TempDir(), body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[output]\nmode = \"asm\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatal(err)
	}
	proj, ok, err := Discover(nested)
	if err != nil || !ok {
		t.Fatalf("Discover = %v, %v", ok, err)
	}
	if proj.Root != root || proj.Config.Output.Mode != "asm" {
		t.Fatalf("project = %+v", proj)
	}

	empty := t.TempDir()
	proj, ok, err = Discover(empty)
	if err != nil || ok || proj.Config.Output.Mode != "ll" {
		t.Fatalf("Discover without config = %+v, %v, %v", proj, ok, err)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Runtime.Library = "runtime/v4_runtime.ll"
	path, err := WriteDefault(dir, cfg)
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	proj, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if proj.Config.Runtime.Library != cfg.Runtime.Library || !slices.Equal(proj.Config.Codegen.Passes, cfg.Codegen.Passes) {
		t.Fatalf("round trip = %+v", proj.Config)
	}
	if _, err := WriteDefault(dir, cfg); err == nil || !strings.Contains(err.Error(), ConfigName) {
		t.Fatalf("second WriteDefault must refuse to overwrite, got %v", err)
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	if err := os.WriteFile(a, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	d1, err := HashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(a, []byte("y"), 0o600); err != nil {
		t.Fatal(err)
	}
	d2, _ := HashFile(a)
	if d1 == d2 {
		t.Fatalf("digest must change with content")
	}
	if Combine(d1) == Combine(d1, d2) {
		t.Fatalf("Combine must depend on deps")
	}
}
