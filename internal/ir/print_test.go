package ir_test

import (
	"strings"
	"testing"

	"v4c/internal/ir"
	"v4c/internal/types"
)

// buildBranchy builds
//
//	function g(x) { if (x < 1) t0 = "a\n"; else t0 = o.m(x); return t0; }
func buildBranchy(t *testing.T) (*ir.Module, *ir.Function) {
	t.Helper()
	m := ir.NewModule()
	f := m.NewFunction("g")
	f.AddFormal("x")
	entry, then, els, exit := f.NewBasicBlock(), f.NewBasicBlock(), f.NewBasicBlock(), f.NewBasicBlock()
	x := entry.Param(types.Var, 0)
	t0 := f.NewTemp()
	entry.CJump(entry.Binop(ir.OpLt, x, entry.Number(1)), then, els)
	then.Move(then.Temp(types.String, t0), then.StringLit("a\n"), ir.OpInvalid)
	then.Jump(exit)
	els.Move(els.Temp(types.Var, t0), els.Call(els.Member(els.Name("o", 2, 5), "m"), els.Param(types.Var, 0)), ir.OpInvalid)
	els.Jump(exit)
	exit.Ret(exit.Temp(types.Var, t0), types.Var, 3, 1)
	return m, f
}

func TestDumpHIR(t *testing.T) {
	m, _ := buildBranchy(t)
	var sb strings.Builder
	if err := ir.Dump(&sb, m, ir.HIR); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	want := "function g() {\n" +
		"L0:\n" +
		"\tif (x < 1) goto L1; else goto L2;\n" +
		"L1:\n" +
		"\tt0 = \"a\\n\";\n" +
		"\tgoto L3;\n" +
		"L2:\n" +
		"\tt0 = o.m(x);\n" +
		"\tgoto L3;\n" +
		"L3:\n" +
		"\treturn t0;\n" +
		"}\n"
	if got := sb.String(); got != want {
		t.Fatalf("HIR dump mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestDumpMIR(t *testing.T) {
	m, f := buildBranchy(t)
	f.LinkEdges()
	var sb strings.Builder
	if err := ir.Dump(&sb, m, ir.MIR); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	got := sb.String()
	if !strings.Contains(got, "\tif (x < 1) goto L1;\n") {
		t.Fatalf("MIR cjump must drop the false branch:\n%s", got)
	}
	if strings.Contains(got, "else goto") {
		t.Fatalf("MIR dump rendered an else branch:\n%s", got)
	}
	if !strings.Contains(got, "L3:\t\t// preds: L1, L2\n") {
		t.Fatalf("MIR dump lacks predecessor comment:\n%s", got)
	}
}

func TestDumpCompoundMove(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("h")
	b := f.NewBasicBlock()
	t0 := b.NewTemp(types.Number)
	b.Move(b.Subscript(b.Name("a", 0, 0), b.Number(2)), t0, ir.OpURShift)
	b.MoveForReturn(t0, b.Unop(ir.OpNot, b.Const(types.Null, 0)))
	b.Exp(b.Call(b.Builtin(ir.BuiltinThrow), t0))
	b.Ret(ir.NoExpr, types.Undefined, 0, 0)
	var sb strings.Builder
	if err := ir.DumpFunction(&sb, f, ir.HIR); err != nil {
		t.Fatalf("DumpFunction: %v", err)
	}
	for _, line := range []string{
		"\ta[2] >>>= t0;\n",
		"\tt0 = !null; // return value\n",
		"\tbuiltin_throw(t0);\n",
		"\treturn;\n",
	} {
		if !strings.Contains(sb.String(), line) {
			t.Errorf("dump lacks %q:\n%s", line, sb.String())
		}
	}
}

func TestEscape(t *testing.T) {
	got := ir.Escape("a\"b'c\\d\ne\r")
	want := `a\"b\'c\\d\ne\r`
	if got != want {
		t.Fatalf("Escape = %s, want %s", got, want)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ir.ParseMode("MIR"); err != nil || m != ir.MIR {
		t.Fatalf("ParseMode(MIR) = %v, %v", m, err)
	}
	if _, err := ir.ParseMode("lir"); err == nil {
		t.Fatalf("unknown mode must fail")
	}
}
