package llvm

import (
	"context"
	"strings"
	"testing"

	lir "github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"

	"v4c/internal/ir"
	"v4c/internal/types"
)

func newTestSelector(t *testing.T, passes ...string) *Selector {
	t.Helper()
	sel, err := NewSelector(Options{Passes: passes, Source: "test.js"})
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	return sel
}

// buildIncrement builds function f(x) { t0 = x + 1; return t0; }.
func buildIncrement() *ir.Module {
	m := ir.NewModule()
	f := m.NewFunction("f")
	f.AddFormal("x")
	b := f.NewBasicBlock()
	t0 := f.NewTemp()
	b.Move(b.Temp(types.Number, t0), b.Binop(ir.OpAdd, b.Param(types.Var, 0), b.Number(1)), ir.OpInvalid)
	b.Ret(b.Temp(types.Number, t0), types.Number, 1, 1)
	return m
}

func TestLowerIncrement(t *testing.T) {
	res, err := newTestSelector(t, DefaultPasses...).Run(context.Background(), buildIncrement())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	f := FindFunc(res.Module, NativePrefix+"f")
	if f == nil {
		t.Fatalf("no target function for f in\n%s", res)
	}
	if err := Verify(f); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	calls := CountRuntimeCalls(f)
	if calls["rt_add"] != 1 || calls["rt_return"] != 1 {
		t.Fatalf("runtime calls = %v, want one rt_add and one rt_return", calls)
	}
	if calls["rt_get_argument"] != 1 || calls["rt_init_number"] != 1 {
		t.Fatalf("runtime calls = %v", calls)
	}
	if res.Stats.Functions != 1 || res.Stats.RuntimeCalls["rt_add"] != 1 {
		t.Fatalf("stats = %+v", res.Stats)
	}
	if res.Entry != nil {
		t.Fatalf("module without %s must not have an entry", ir.EntryName)
	}
	if _, ok := f.Blocks[len(f.Blocks)-1].Term.(*lir.TermRet); !ok {
		t.Fatalf("last block must return")
	}
}

func TestUnsupportedShapes(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *ir.Function)
	}{
		{"short-circuit and", func(f *ir.Function) {
			b := f.NewBasicBlock()
			t0, t1 := f.NewTemp(), f.NewTemp()
			b.Move(b.Temp(types.Var, t0), b.Binop(ir.OpAnd, b.Temp(types.Var, t0), b.Temp(types.Var, t1)), ir.OpInvalid)
			b.Ret(b.Temp(types.Var, t0), types.Var, 1, 1)
		}},
		{"short-circuit or", func(f *ir.Function) {
			b := f.NewBasicBlock()
			t0 := f.NewTemp()
			b.Exp(b.Binop(ir.OpOr, b.Temp(types.Var, t0), b.Name("y", 1, 1)))
			b.Ret(ir.NoExpr, types.Undefined, 1, 1)
		}},
		{"return of a constant", func(f *ir.Function) {
			b := f.NewBasicBlock()
			b.Ret(b.Number(1), types.Number, 1, 1)
		}},
		{"unterminated block", func(f *ir.Function) {
			b := f.NewBasicBlock()
			b.Exp(b.Name("y", 1, 1))
		}},
		{"builtin as value", func(f *ir.Function) {
			b := f.NewBasicBlock()
			b.Exp(b.Builtin(ir.BuiltinThrow))
			b.Ret(ir.NoExpr, types.Undefined, 1, 1)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ir.NewModule()
			tt.build(m.NewFunction("bad"))
			res, err := newTestSelector(t).Run(context.Background(), m)
			if err == nil {
				t.Fatalf("expected failure, got\n%s", res)
			}
			if KindOf(err) != ErrUnsupportedIRShape {
				t.Fatalf("kind = %s, want %s (%v)", KindOf(err), ErrUnsupportedIRShape, err)
			}
			if !strings.Contains(err.Error(), "function bad") {
				t.Fatalf("error %q does not name the function", err)
			}
		})
	}
}

func TestFailedFunctionIsDetached(t *testing.T) {
	m := ir.NewModule()
	good := m.NewFunction("good")
	gb := good.NewBasicBlock()
	gb.Ret(ir.NoExpr, types.Undefined, 1, 1)
	bad := m.NewFunction("bad")
	bb := bad.NewBasicBlock()
	bb.Ret(bb.Number(2), types.Number, 1, 1)

	sel := newTestSelector(t)
	if _, err := sel.Run(context.Background(), m); err == nil {
		t.Fatalf("expected failure")
	}
	if FindFunc(sel.abi.mod, NativePrefix+"bad") != nil {
		t.Fatalf("half-lowered function left in the target module")
	}
	if FindFunc(sel.abi.mod, NativePrefix+"good") == nil {
		t.Fatalf("earlier function should still be in the scratch module")
	}
}

func TestCompoundMoves(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("c")
	b := f.NewBasicBlock()
	t0 := f.NewTemp()
	b.Move(b.Temp(types.Number, t0), b.Number(1), ir.OpInvalid)
	// fused: temp or constant sources
	b.Move(b.Member(b.Name("o", 1, 1), "p"), b.Temp(types.Number, t0), ir.OpAdd)
	b.Move(b.Subscript(b.Name("a", 1, 1), b.Number(0)), b.Number(2), ir.OpLShift)
	b.Move(b.Name("n", 1, 1), b.Number(3), ir.OpBitOr)
	b.Move(b.Temp(types.Number, t0), b.Number(4), ir.OpMul)
	// generic: any other source
	b.Move(b.Name("n", 1, 1), b.Name("k", 1, 1), ir.OpSub)
	b.Ret(b.Temp(types.Number, t0), types.Number, 1, 1)

	res, err := newTestSelector(t).Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	calls := res.Stats.RuntimeCalls
	for _, name := range []string{
		"rt_inplace_add_member", "rt_inplace_shl_element",
		"rt_inplace_bit_or_name", "rt_inplace_mul_value", "rt_sub",
	} {
		if calls[name] != 1 {
			t.Errorf("%s called %d time(s), want 1 (%v)", name, calls[name], calls)
		}
	}
	if calls["rt_inplace_sub_name"] != 0 || calls["rt_set_activation_property"] != 1 {
		t.Errorf("generic compound move must read, operate and write back: %v", calls)
	}
}

func TestCallClassification(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("calls")
	b := f.NewBasicBlock()
	t0 := f.NewTemp()
	b.Exp(b.Call(b.Member(b.Name("o", 1, 1), "m"), b.Number(1), b.StringLit("s")))
	b.Exp(b.Call(b.Name("print", 1, 1)))
	b.Exp(b.Call(b.Temp(types.Var, t0), b.Number(1)))
	b.Exp(b.New(b.Name("Object", 1, 1)))
	b.Exp(b.New(b.Member(b.Name("o", 1, 1), "C")))
	b.Exp(b.New(b.Temp(types.Var, t0)))
	b.Exp(b.Call(b.Builtin(ir.BuiltinTypeof), b.Member(b.Name("o", 1, 1), "p")))
	b.Exp(b.Call(b.Builtin(ir.BuiltinTypeof), b.Name("x", 1, 1)))
	b.Exp(b.Call(b.Builtin(ir.BuiltinDelete), b.Subscript(b.Name("a", 1, 1), b.Number(0))))
	b.Exp(b.Call(b.Builtin(ir.BuiltinDelete), b.Temp(types.Var, t0)))
	b.Exp(b.Call(b.Builtin(ir.BuiltinThrow), b.Temp(types.Var, t0)))
	b.Ret(ir.NoExpr, types.Undefined, 1, 1)

	res, err := newTestSelector(t).Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := map[string]int{
		"rt_call_property":                 1,
		"rt_call_activation_property":      1,
		"rt_call_value":                    1,
		"rt_construct_activation_property": 1,
		"rt_construct_property":            1,
		"rt_construct_value":               1,
		"rt_typeof_member":                 1,
		"rt_typeof_name":                   1,
		"rt_delete_element":                1,
		"rt_delete_value":                  1,
		"rt_throw":                         1,
		"rt_init_string":                   1,
	}
	for name, n := range want {
		if got := res.Stats.RuntimeCalls[name]; got != n {
			t.Errorf("%s called %d time(s), want %d", name, got, n)
		}
	}
}

func TestNewOfBuiltinIsUnsupported(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("n")
	b := f.NewBasicBlock()
	b.Exp(b.New(b.Builtin(ir.BuiltinGetException)))
	b.Ret(ir.NoExpr, types.Undefined, 1, 1)
	_, err := newTestSelector(t).Run(context.Background(), m)
	if KindOf(err) != ErrUnsupportedIRShape {
		t.Fatalf("err = %v, want unsupported shape", err)
	}
}

func TestBranchesAndClosures(t *testing.T) {
	m := ir.NewModule()
	entry := m.NewFunction(ir.EntryName)
	inner := m.NewFunction("")
	ib := inner.NewBasicBlock()
	ib.Ret(ir.NoExpr, types.Undefined, 1, 1)

	b0, b1, b2, dead := entry.NewBasicBlock(), entry.NewBasicBlock(), entry.NewBasicBlock(), entry.NewBasicBlock()
	t0 := entry.NewTemp()
	b0.Move(b0.Temp(types.Object, t0), b0.Closure(inner), ir.OpInvalid)
	b0.CJump(b0.Temp(types.Object, t0), b1, b2)
	b1.Enter(b1.Name("scope", 1, 1))
	b1.Leave()
	b1.Jump(b2)
	b2.Ret(b2.Temp(types.Object, t0), types.Object, 1, 1)
	dead.Ret(ir.NoExpr, types.Undefined, 1, 1)

	res, err := newTestSelector(t, "unreachable").Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Entry == nil || res.Entry.Name() != EntrySymbol {
		t.Fatalf("entry = %v, want %s", res.Entry, EntrySymbol)
	}
	if FindFunc(res.Module, NativePrefix+"anon1") == nil {
		t.Fatalf("anonymous function not named by id:\n%s", res)
	}
	// prologue + L0..L2; L3 is unreachable
	if got := len(res.Entry.Blocks); got != 4 {
		t.Fatalf("entry has %d blocks, want 4", got)
	}
	if res.Stats.DroppedBlocks != 1 || len(res.Notes) != 1 {
		t.Fatalf("stats = %+v notes = %v", res.Stats, res.Notes)
	}
	calls := res.Stats.RuntimeCalls
	if calls["rt_to_boolean"] != 1 || calls["rt_push_with_scope"] != 1 || calls["rt_pop_scope"] != 1 || calls["rt_init_native_function"] != 1 {
		t.Fatalf("runtime calls = %v", calls)
	}
}

func TestDeadSlotPass(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("slots")
	b := f.NewBasicBlock()
	f.NewTemp() // never used
	b.Ret(ir.NoExpr, types.Undefined, 1, 1)

	res, err := newTestSelector(t, "dead-slot").Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stats.RemovedSlots != 1 {
		t.Fatalf("removed %d slots, want 1", res.Stats.RemovedSlots)
	}
	if err := Verify(FindFunc(res.Module, NativePrefix+"slots")); err != nil {
		t.Fatalf("Verify after pass: %v", err)
	}
}

func TestUnknownPass(t *testing.T) {
	if _, err := NewSelector(Options{Passes: []string{"inline"}}); err == nil {
		t.Fatalf("unknown pass must be rejected")
	}
}

func TestAddHostMain(t *testing.T) {
	m := ir.NewModule()
	b := m.NewFunction(ir.EntryName).NewBasicBlock()
	b.Ret(ir.NoExpr, types.Undefined, 1, 1)
	res, err := newTestSelector(t).Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := res.AddHostMain(); err != nil {
		t.Fatalf("AddHostMain: %v", err)
	}
	main := FindFunc(res.Module, "main")
	if main == nil {
		t.Fatalf("no main")
	}
	if err := Verify(main); err != nil {
		t.Fatalf("Verify(main): %v", err)
	}
	if err := res.AddHostMain(); KindOf(err) != ErrBackendLinkFailure {
		t.Fatalf("second AddHostMain: %v", err)
	}

	noEntry, err := newTestSelector(t).Run(context.Background(), buildIncrement())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := noEntry.AddHostMain(); KindOf(err) != ErrBackendLinkFailure {
		t.Fatalf("AddHostMain without entry: %v", err)
	}
}

func TestRuntimeRoundTrip(t *testing.T) {
	text := DefaultRuntime().Text()
	rt, err := ParseRuntime("rt.ll", text)
	if err != nil {
		t.Fatalf("ParseRuntime: %v", err)
	}
	if !rt.Has("rt_add") || rt.Library() == nil {
		t.Fatalf("parsed runtime is incomplete")
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "@rt_throw(") {
			kept = append(kept, line)
		}
	}
	_, err = ParseRuntime("partial.ll", strings.Join(kept, "\n"))
	if KindOf(err) != ErrBackendLinkFailure || !strings.Contains(err.Error(), "rt_throw") {
		t.Fatalf("missing entry point: err = %v", err)
	}

	bad := strings.Replace(text, "declare void @rt_return(%ExecutionContext* %p0, %Value* %p1)",
		"declare void @rt_return(%ExecutionContext* %p0)", 1)
	if bad != text {
		if _, err := ParseRuntime("bad.ll", bad); KindOf(err) != ErrBackendLinkFailure {
			t.Fatalf("mismatched signature: err = %v", err)
		}
	}
}

func TestCanceledRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestSelector(t).Run(ctx, buildIncrement()); err == nil {
		t.Fatalf("canceled run must fail")
	}
}

func TestVerifyRejectsUnterminated(t *testing.T) {
	m := lir.NewModule()
	f := m.NewFunc("f", lltypes.Void)
	f.NewBlock("")
	if KindOf(Verify(f)) != ErrVerifyFailure {
		t.Fatalf("unterminated block must fail verification")
	}
}
