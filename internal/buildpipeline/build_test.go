package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"v4c/internal/backend/llvm"
	"v4c/internal/ir"
	"v4c/internal/irpack"
	"v4c/internal/types"
)

type fakeRunner struct {
	mu    sync.Mutex
	tools map[string]bool
	fail  map[string]error
	calls []string
}

func newFakeRunner(tools ...string) *fakeRunner {
	r := &fakeRunner{tools: map[string]bool{}, fail: map[string]error{}}
	for _, tool := range tools {
		r.tools[tool] = true
	}
	return r
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	r.mu.Unlock()
	if err := r.fail[name]; err != nil {
		return err
	}
	if i := slices.Index(args, "-o"); i >= 0 && i+1 < len(args) {
		return os.WriteFile(args[i+1], []byte(name), 0o600)
	}
	return nil
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.tools[name] {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("not found")
}

type fakeTrampoline struct {
	status int
	sawIR  string
}

func (t *fakeTrampoline) Run(_ context.Context, modulePath string, _ *llvm.Runtime) (int, error) {
	data, err := os.ReadFile(modulePath)
	if err != nil {
		return -1, err
	}
	t.sawIR = string(data)
	return t.status, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) has(stage Stage, status Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.Stage == stage && ev.Status == status {
			return true
		}
	}
	return false
}

// entryModule is "%entry" returning x + 1 where x is a global name.
func entryModule() *ir.Module {
	m := ir.NewModule()
	f := m.NewFunction(ir.EntryName)
	b := f.NewBasicBlock()
	t0 := f.NewTemp()
	b.Move(b.Temp(types.Var, t0), b.Binop(ir.OpAdd, b.Name("x", 1, 1), b.Number(1)), ir.OpInvalid)
	b.Ret(b.Temp(types.Var, t0), types.Var, 1, 1)
	return m
}

func writeBundle(t *testing.T, dir, name string, m *ir.Module) string {
	t.Helper()
	path := filepath.Join(dir, name+irpack.Extension)
	if err := irpack.WriteFile(path, m); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestBuildLL(t *testing.T) {
	dir := t.TempDir()
	input := writeBundle(t, dir, "prog", entryModule())
	sink := &recordingSink{}
	res, err := Build(context.Background(), &BuildRequest{
		CompileRequest: CompileRequest{InputPath: input, Passes: llvm.DefaultPasses, Progress: sink, File: "prog"},
		Mode:           ModeLL,
		OutputDir:      filepath.Join(dir, "out"),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := filepath.Join(dir, "out", "prog.ll"); res.OutputPath != want {
		t.Fatalf("output = %s, want %s", res.OutputPath, want)
	}
	data, err := os.ReadFile(res.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "@"+llvm.EntrySymbol) || !strings.Contains(string(data), "@rt_add") {
		t.Fatalf("unexpected module:\n%s", data)
	}
	for _, stage := range []Stage{StageLoad, StageValidate, StageLower} {
		if !res.Timings.Has(stage) {
			t.Errorf("missing timing for %s", stage)
		}
	}
	if !sink.has(StageLower, StatusDone) || !sink.has(StageBuild, StatusDone) {
		t.Fatalf("missing progress events: %+v", sink.events)
	}
	if _, err := os.Stat(res.TmpDir); !os.IsNotExist(err) {
		t.Fatalf("tmp dir should be removed, stat err = %v", err)
	}
}

func TestBuildObjectAndAssembly(t *testing.T) {
	tests := []struct {
		mode   Mode
		tools  []string
		failOn string
		want   string
		suffix string
	}{
		{ModeObj, []string{"clang", "llc"}, "", "clang -c -x ir", ".o"},
		{ModeAsm, []string{"clang", "llc"}, "", "clang -S -x ir", ".s"},
		{ModeObj, []string{"clang", "llc"}, "clang", "llc -filetype=obj", ".o"},
		{ModeAsm, []string{"llc"}, "", "llc -filetype=asm", ".s"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.want, func(t *testing.T) {
			dir := t.TempDir()
			runner := newFakeRunner(tt.tools...)
			if tt.failOn != "" {
				runner.fail[tt.failOn] = &ToolError{Tool: tt.failOn, Stderr: "boom", Err: errors.New("exit 1")}
			}
			res, err := Build(context.Background(), &BuildRequest{
				CompileRequest: CompileRequest{Module: entryModule(), InputPath: "mem.v4ir"},
				Mode:           tt.mode,
				OutputDir:      dir,
				Runner:         runner,
			})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if filepath.Ext(res.OutputPath) != tt.suffix {
				t.Fatalf("output %s, want suffix %s", res.OutputPath, tt.suffix)
			}
			last := runner.calls[len(runner.calls)-1]
			if !strings.HasPrefix(last, tt.want) {
				t.Fatalf("last command %q, want prefix %q", last, tt.want)
			}
			if _, err := os.Stat(res.OutputPath); err != nil {
				t.Fatalf("artifact missing: %v", err)
			}
		})
	}
}

func TestBuildWithoutToolchain(t *testing.T) {
	_, err := Build(context.Background(), &BuildRequest{
		CompileRequest: CompileRequest{Module: entryModule(), InputPath: "mem.v4ir"},
		Mode:           ModeObj,
		OutputDir:      t.TempDir(),
		Runner:         newFakeRunner(),
	})
	if !errors.Is(err, ErrToolchain) {
		t.Fatalf("err = %v, want toolchain error", err)
	}
}

func TestBuildJIT(t *testing.T) {
	tramp := &fakeTrampoline{status: 3}
	res, err := Build(context.Background(), &BuildRequest{
		CompileRequest: CompileRequest{Module: entryModule(), InputPath: "mem.v4ir"},
		Mode:           ModeJIT,
		OutputDir:      t.TempDir(),
		Trampoline:     tramp,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Status != 3 || res.OutputPath != "" {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(tramp.sawIR, "define i32 @main()") || !strings.Contains(tramp.sawIR, "@rt_context_create") {
		t.Fatalf("trampoline did not get a host main:\n%s", tramp.sawIR)
	}
}

func TestBuildJITNeedsEntry(t *testing.T) {
	m := ir.NewModule()
	b := m.NewFunction("helper").NewBasicBlock()
	b.Ret(ir.NoExpr, types.Undefined, 1, 1)
	_, err := Build(context.Background(), &BuildRequest{
		CompileRequest: CompileRequest{Module: m, InputPath: "mem.v4ir"},
		Mode:           ModeJIT,
		OutputDir:      t.TempDir(),
		Trampoline:     &fakeTrampoline{},
	})
	if llvm.KindOf(err) != llvm.ErrBackendLinkFailure {
		t.Fatalf("err = %v, want link failure", err)
	}
}

func TestLLITrampolineNeedsLibrary(t *testing.T) {
	_, err := LLITrampoline{Runner: newFakeRunner("lli")}.Run(context.Background(), "x.ll", llvm.DefaultRuntime())
	if llvm.KindOf(err) != llvm.ErrBackendLinkFailure {
		t.Fatalf("err = %v, want link failure", err)
	}
}

func TestCompileRejectsInvalidIR(t *testing.T) {
	m := ir.NewModule()
	b := m.NewFunction("open").NewBasicBlock()
	b.Exp(b.Name("x", 1, 1)) // no terminator
	sink := &recordingSink{}
	_, err := Compile(context.Background(), &CompileRequest{Module: m, InputPath: "mem", Progress: sink, File: "mem"})
	if !errors.Is(err, ErrInvalidIR) {
		t.Fatalf("err = %v, want ErrInvalidIR", err)
	}
	if !sink.has(StageValidate, StatusError) {
		t.Fatalf("missing validate error event")
	}
}

func TestCompileLowersDynamicUnary(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("neg")
	f.AddFormal("x")
	b := f.NewBasicBlock()
	t0 := b.NewTemp(types.Var)
	b.Move(t0, b.Unop(ir.OpUMinus, b.Param(types.Var, 0)), ir.OpInvalid)
	b.Ret(t0, types.Var, 1, 1)
	res, err := Compile(context.Background(), &CompileRequest{Module: m, InputPath: "mem", File: "mem"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Lowered.Stats.RuntimeCalls["rt_uminus"] != 1 {
		t.Fatalf("runtime calls = %v, want one rt_uminus", res.Lowered.Stats.RuntimeCalls)
	}
}

func TestFailedBuildWritesNothing(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction(ir.EntryName)
	b := f.NewBasicBlock()
	t0, t1 := f.NewTemp(), f.NewTemp()
	b.Move(b.Temp(types.Var, t0), b.Binop(ir.OpOr, b.Temp(types.Var, t0), b.Temp(types.Var, t1)), ir.OpInvalid)
	b.Ret(b.Temp(types.Var, t0), types.Var, 1, 1)

	dir := t.TempDir()
	_, err := Build(context.Background(), &BuildRequest{
		CompileRequest: CompileRequest{Module: m, InputPath: "bad.v4ir"},
		Mode:           ModeLL,
		OutputDir:      dir,
	})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "bad.ll")); !os.IsNotExist(statErr) {
		t.Fatalf("artifact written despite failure")
	}
}

func TestBuildAll(t *testing.T) {
	dir := t.TempDir()
	var reqs []*BuildRequest
	for _, name := range []string{"a", "b", "c"} {
		reqs = append(reqs, &BuildRequest{
			CompileRequest: CompileRequest{InputPath: writeBundle(t, dir, name, entryModule())},
			Mode:           ModeLL,
			OutputDir:      filepath.Join(dir, "out"),
		})
	}
	results, err := BuildAll(context.Background(), reqs, 2)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	for i, name := range []string{"a", "b", "c"} {
		if filepath.Base(results[i].OutputPath) != name+".ll" {
			t.Errorf("result %d = %s", i, results[i].OutputPath)
		}
	}
}

func TestParseModeAndSuffix(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeLL {
		t.Fatalf("default mode = %v, %v", m, err)
	}
	if _, err := ParseMode("wasm"); err == nil {
		t.Fatalf("unknown mode must fail")
	}
	if ModeJIT.Suffix() != "" || ModeObj.Suffix() != ".o" || ModeAsm.Suffix() != ".s" || ModeLL.Suffix() != ".ll" {
		t.Fatalf("suffix mismatch")
	}
	if OutputBase("dir/prog.v4ir") != "prog" || OutputBase("") != "a" {
		t.Fatalf("OutputBase mismatch")
	}
}

func TestDisplayNames(t *testing.T) {
	got := DisplayNames([]string{"/src/b.v4ir", "/src/a.v4ir", "/src/a.v4ir", "/other/c.v4ir"}, "/src")
	want := []string{"/other/c.v4ir", "a.v4ir", "b.v4ir"}
	if !slices.Equal(got, want) {
		t.Fatalf("DisplayNames = %v, want %v", got, want)
	}
}

func TestChannelSinkDropsAfterDone(t *testing.T) {
	ch := make(chan Event, 1)
	done := make(chan struct{})
	sink := ChannelSink{Ch: ch, Done: done}
	sink.OnEvent(Event{File: "a", Stage: StageLoad, Status: StatusWorking})
	close(done)
	// the buffer is full; this must return instead of blocking
	sink.OnEvent(Event{File: "a", Stage: StageLower, Status: StatusWorking})
	if got := <-ch; got.Stage != StageLoad {
		t.Fatalf("first event = %+v", got)
	}
}
