package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"v4c/internal/backend/llvm"
	"v4c/internal/ir"
	"v4c/internal/irpack"
	"v4c/internal/trace"
)

// ErrInvalidIR marks input that decoded but failed ir.Validate.
var ErrInvalidIR = errors.New("invalid IR")

// CompileRequest configures the shared compilation pipeline.
type CompileRequest struct {
	// InputPath is an IR bundle written by irpack.
	InputPath string
	// Module skips loading when set; InputPath is then only a label.
	Module   *ir.Module
	Runtime  *llvm.Runtime
	Passes   []string
	Triple   string
	Progress ProgressSink
	// File is the display name used in progress events.
	File string
}

// CompileResult captures compilation artefacts and stage timings.
type CompileResult struct {
	Module  *ir.Module
	Lowered *llvm.Result
	Timings Timings
}

// Compile loads, validates and lowers one IR module.
func Compile(ctx context.Context, req *CompileRequest) (CompileResult, error) {
	var result CompileResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing compile request")
	}
	if req.InputPath == "" && req.Module == nil {
		return result, fmt.Errorf("missing input path")
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "compile", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

	emitQueued(req.Progress, req.File)

	mod := req.Module
	if mod == nil {
		start := time.Now()
		emitStage(req.Progress, req.File, StageLoad, StatusWorking, nil, 0)
		m, err := irpack.ReadFile(req.InputPath)
		if err != nil {
			emitStage(req.Progress, req.File, StageLoad, StatusError, err, 0)
			return result, err
		}
		mod = m
		result.Timings.Set(StageLoad, time.Since(start))
	}
	result.Module = mod

	start := time.Now()
	emitStage(req.Progress, req.File, StageValidate, StatusWorking, nil, 0)
	if err := ir.Validate(mod); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidIR, err)
		emitStage(req.Progress, req.File, StageValidate, StatusError, err, 0)
		return result, err
	}
	result.Timings.Set(StageValidate, time.Since(start))

	start = time.Now()
	emitStage(req.Progress, req.File, StageLower, StatusWorking, nil, 0)
	sel, err := llvm.NewSelector(llvm.Options{
		Runtime: req.Runtime,
		Passes:  req.Passes,
		Triple:  req.Triple,
		Source:  req.InputPath,
	})
	if err != nil {
		emitStage(req.Progress, req.File, StageLower, StatusError, err, 0)
		return result, err
	}
	lowered, err := sel.Run(ctx, mod)
	if err != nil {
		emitStage(req.Progress, req.File, StageLower, StatusError, err, 0)
		return result, err
	}
	result.Lowered = lowered
	result.Timings.Set(StageLower, time.Since(start))
	emitStage(req.Progress, req.File, StageLower, StatusDone, nil, result.Timings.Duration(StageLower))
	return result, nil
}

func emitQueued(sink ProgressSink, file string) {
	if sink == nil || file == "" {
		return
	}
	sink.OnEvent(Event{File: file, Stage: StageLoad, Status: StatusQueued})
}

func emitStage(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
