package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"v4c/internal/backend/llvm"
	"v4c/internal/irpack"
	"v4c/internal/project"
)

// runtimeStub is where init writes the declaration-only runtime library.
const runtimeStub = "runtime/v4_runtime.ll"

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a v4c.toml and a runtime ABI stub",
	Long: `Create v4c.toml in [path] (default: the current directory) listing every
*.v4ir bundle already present, and write runtime/v4_runtime.ll declaring the
runtime ABI. An existing v4c.toml is never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	cfg := project.Default()
	cfg.Runtime.Library = runtimeStub
	bundles, err := filepath.Glob(filepath.Join(target, "*"+irpack.Extension))
	if err != nil {
		return err
	}
	for _, b := range bundles {
		cfg.Build.Inputs = append(cfg.Build.Inputs, filepath.Base(b))
	}

	configPath, err := project.WriteDefault(target, cfg)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("project already initialized: %s exists", filepath.Join(target, project.ConfigName))
		}
		return err
	}

	stubPath := filepath.Join(target, filepath.FromSlash(runtimeStub))
	createdStub := false
	if _, err := os.Stat(stubPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(stubPath), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(stubPath, []byte(llvm.DefaultRuntime().Text()), 0o600); err != nil {
			return fmt.Errorf("failed to write runtime stub: %w", err)
		}
		createdStub = true
	}

	if quiet(cmd) {
		return nil
	}
	out := cmd.OutOrStdout()
	rel := target
	if wd, err := os.Getwd(); err == nil {
		if r, err := filepath.Rel(wd, target); err == nil {
			rel = r
		}
	}
	fmt.Fprintf(out, "Initialized v4c project in %s\n", rel)
	fmt.Fprintf(out, "  - %s (%d input(s))\n", filepath.Base(configPath), len(cfg.Build.Inputs))
	if createdStub {
		fmt.Fprintf(out, "  - %s\n", runtimeStub)
	} else {
		fmt.Fprintf(out, "  - %s (existing)\n", runtimeStub)
	}
	return nil
}
