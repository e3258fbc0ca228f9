package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrToolchain marks failures of external LLVM tools.
var ErrToolchain = errors.New("toolchain")

// CommandRunner runs external tools. Tests substitute a fake.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
	LookPath(name string) (string, error)
}

// ExecRunner runs tools with os/exec.
type ExecRunner struct {
	// PrintCommands echoes every command line to Stdout before running it.
	PrintCommands bool
	Stdout        io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	out := r.Stdout
	if out == nil {
		out = os.Stdout
	}
	if r.PrintCommands {
		if _, err := fmt.Fprintf(out, "%s %s\n", name, strings.Join(args, " ")); err != nil {
			return fmt.Errorf("failed to print command: %w", err)
		}
	}
	// #nosec G204 -- tool names come from the fixed LLVM toolchain set
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ToolError{Tool: name, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// ToolError is a failed tool invocation with its captured stderr.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return e.Tool + ": " + e.Err.Error()
	}
	return e.Tool + ": " + e.Stderr
}

func (e *ToolError) Unwrap() []error { return []error{ErrToolchain, e.Err} }

// ExitCode returns the exit status of a failed tool, or -1.
func (e *ToolError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func requireTool(r CommandRunner, name string) error {
	if _, err := r.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s not found; install with: sudo apt-get update && sudo apt-get install -y clang llvm", ErrToolchain, name)
	}
	return nil
}

// compileIR turns a textual module into an object file or assembly with
// clang, falling back to llc.
func compileIR(ctx context.Context, r CommandRunner, mode Mode, llPath, outPath, triple string) error {
	flag := "-c"
	filetype := "obj"
	if mode == ModeAsm {
		flag = "-S"
		filetype = "asm"
	}
	args := []string{flag, "-x", "ir", llPath, "-o", outPath}
	if triple != "" {
		args = append([]string{"-target", triple}, args...)
	}
	clangErr := requireTool(r, "clang")
	if clangErr == nil {
		if clangErr = r.Run(ctx, "clang", args...); clangErr == nil {
			return nil
		}
	}
	if err := requireTool(r, "llc"); err != nil {
		return fmt.Errorf("clang failed and llc not found: %w", errors.Join(clangErr, err))
	}
	llcArgs := []string{"-filetype=" + filetype, llPath, "-o", outPath}
	if triple != "" {
		llcArgs = append([]string{"-mtriple=" + triple}, llcArgs...)
	}
	if err := r.Run(ctx, "llc", llcArgs...); err != nil {
		return fmt.Errorf("clang and llc failed: %w", errors.Join(clangErr, err))
	}
	return nil
}
