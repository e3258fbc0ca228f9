package buildpipeline

import (
	"context"
	"errors"
	"fmt"

	"v4c/internal/backend/llvm"
)

// Trampoline executes a lowered module that carries a host main and
// returns main's status.
type Trampoline interface {
	Run(ctx context.Context, modulePath string, rt *llvm.Runtime) (int, error)
}

// LLITrampoline interprets the module with lli, loading the runtime
// library as an extra module.
type LLITrampoline struct {
	Runner CommandRunner
	// LLI overrides the interpreter binary.
	LLI string
	Args []string
}

func (t LLITrampoline) Run(ctx context.Context, modulePath string, rt *llvm.Runtime) (int, error) {
	if rt == nil || rt.Path == "" {
		return -1, &llvm.Error{Kind: llvm.ErrBackendLinkFailure, Msg: "jit needs a runtime library; set [runtime] library in v4c.toml"}
	}
	runner := t.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	lli := t.LLI
	if lli == "" {
		lli = "lli"
	}
	if err := requireTool(runner, lli); err != nil {
		return -1, err
	}
	args := []string{"--extra-module=" + rt.Path, modulePath}
	args = append(args, t.Args...)
	err := runner.Run(ctx, lli, args...)
	if err == nil {
		return 0, nil
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		if code := toolErr.ExitCode(); code > 0 {
			// a nonzero exit from main is a result, not a failure
			return code, nil
		}
	}
	return -1, fmt.Errorf("jit: %w", err)
}
