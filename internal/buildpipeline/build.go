// Package buildpipeline drives an IR module from bundle to artifact.
package buildpipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"v4c/internal/irpack"
	"v4c/internal/trace"
)

// BuildRequest configures output generation for a compilation.
type BuildRequest struct {
	CompileRequest
	Mode Mode
	// OutputName is the artifact base name; defaults to the input's.
	OutputName string
	// OutputDir defaults to "target" under the working directory.
	OutputDir string
	KeepTmp   bool
	Runner    CommandRunner
	// Trampoline runs JIT builds; defaults to LLITrampoline.
	Trampoline Trampoline
}

// BuildResult captures build artefacts and timings.
type BuildResult struct {
	// OutputPath is empty in JIT mode.
	OutputPath string
	TmpDir     string
	// Status is the entry point's exit status in JIT mode.
	Status  int
	Timings Timings
	Compile CompileResult
}

// Build compiles one input and emits the artifact of req.Mode.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	reqCopy := *req
	req = &reqCopy
	if ctx == nil {
		ctx = context.Background()
	}

	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return result, err
	}
	if req.OutputName == "" {
		req.OutputName = OutputBase(req.InputPath)
	}
	if req.Runner == nil {
		req.Runner = ExecRunner{}
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "build:"+req.OutputName, trace.CurrentSpan(ctx).SpanID)
	defer span.End(string(mode))
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

	compileRes, err := Compile(ctx, &req.CompileRequest)
	result.Compile = compileRes
	result.Timings = compileRes.Timings
	if err != nil {
		return result, err
	}
	lowered := compileRes.Lowered

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = "target"
	}
	tmpDir := filepath.Join(outputDir, ".tmp", req.OutputName)
	result.TmpDir = tmpDir
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return result, fmt.Errorf("failed to create output dir: %w", err)
	}

	buildStart := time.Now()
	emitStage(req.Progress, req.File, StageBuild, StatusWorking, nil, 0)
	fail := func(stage Stage, err error) (BuildResult, error) {
		emitStage(req.Progress, req.File, stage, StatusError, err, 0)
		return result, err
	}

	switch mode {
	case ModeLL:
		result.OutputPath = filepath.Join(outputDir, req.OutputName+mode.Suffix())
		if err := writeFileAtomic(result.OutputPath, []byte(lowered.String())); err != nil {
			return fail(StageBuild, err)
		}
		result.Timings.Set(StageBuild, time.Since(buildStart))

	case ModeObj, ModeAsm:
		if err := os.MkdirAll(tmpDir, 0o750); err != nil {
			return fail(StageBuild, fmt.Errorf("failed to create tmp dir: %w", err))
		}
		llPath := filepath.Join(tmpDir, "out.ll")
		if err := os.WriteFile(llPath, []byte(lowered.String()), 0o600); err != nil {
			return fail(StageBuild, fmt.Errorf("failed to write LLVM IR: %w", err))
		}
		result.OutputPath = filepath.Join(outputDir, req.OutputName+mode.Suffix())
		if err := compileIR(ctx, req.Runner, mode, llPath, result.OutputPath, req.Triple); err != nil {
			return fail(StageBuild, err)
		}
		result.Timings.Set(StageBuild, time.Since(buildStart))

	case ModeJIT:
		if err := lowered.AddHostMain(); err != nil {
			return fail(StageLink, err)
		}
		if err := os.MkdirAll(tmpDir, 0o750); err != nil {
			return fail(StageBuild, fmt.Errorf("failed to create tmp dir: %w", err))
		}
		llPath := filepath.Join(tmpDir, "jit.ll")
		if err := os.WriteFile(llPath, []byte(lowered.String()), 0o600); err != nil {
			return fail(StageBuild, fmt.Errorf("failed to write LLVM IR: %w", err))
		}
		result.Timings.Set(StageBuild, time.Since(buildStart))

		runStart := time.Now()
		emitStage(req.Progress, req.File, StageRun, StatusWorking, nil, 0)
		tramp := req.Trampoline
		if tramp == nil {
			tramp = LLITrampoline{Runner: req.Runner}
		}
		status, err := tramp.Run(ctx, llPath, req.Runtime)
		if err != nil {
			return fail(StageRun, err)
		}
		result.Status = status
		result.Timings.Set(StageRun, time.Since(runStart))
		emitStage(req.Progress, req.File, StageRun, StatusDone, nil, result.Timings.Duration(StageRun))
	}

	if !req.KeepTmp {
		if err := os.RemoveAll(tmpDir); err != nil {
			return result, fmt.Errorf("failed to clean tmp dir: %w", err)
		}
	}
	emitStage(req.Progress, req.File, StageBuild, StatusDone, nil, result.Timings.Duration(StageBuild))
	return result, nil
}

// OutputBase derives an artifact base name from an input path.
func OutputBase(input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, irpack.Extension)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "a"
	}
	return base
}

// writeFileAtomic writes through a temp file and rename so that a failed
// build never leaves a truncated artifact behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}
