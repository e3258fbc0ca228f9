package ir_test

import (
	"math"
	"testing"

	"v4c/internal/ir"
	"v4c/internal/types"
)

func newBlock(t *testing.T) (*ir.Module, *ir.Function, *ir.BasicBlock) {
	t.Helper()
	m := ir.NewModule()
	f := m.NewFunction("f")
	return m, f, f.NewBasicBlock()
}

func TestFoldAddConstants(t *testing.T) {
	m, _, b := newBlock(t)
	before, _, _ := m.Counts()
	id := b.Binop(ir.OpAdd, b.Number(3), b.Number(4))
	e := m.Expr(id)
	if e.Kind != ir.ExprConst {
		t.Fatalf("3 + 4 built %s, want const", e.Kind)
	}
	if e.Const.Value != 7 || e.Type != types.Number {
		t.Fatalf("3 + 4 = %v (%s), want 7 (number)", e.Const.Value, e.Type)
	}
	after, _, _ := m.Counts()
	if after-before != 3 {
		t.Fatalf("allocated %d exprs, want 3 (two operands and the result)", after-before)
	}
	for i := 0; i < after; i++ {
		if m.Expr(ir.ExprID(i)).Kind == ir.ExprBinop {
			t.Fatalf("binop node allocated for a foldable expression")
		}
	}
}

func TestFoldTable(t *testing.T) {
	tests := []struct {
		op    ir.AluOp
		l, r  float64
		want  float64
		wantT types.Type
	}{
		{ir.OpSub, 10, 4, 6, types.Number},
		{ir.OpMul, 2.5, 4, 10, types.Number},
		{ir.OpDiv, 1, 4, 0.25, types.Number},
		{ir.OpMod, -7, 3, -1, types.Number},
		{ir.OpMod, 5.5, 2, 1.5, types.Number},
		{ir.OpBitAnd, 6, 3, 2, types.Number},
		{ir.OpBitOr, 4294967297, 2, 3, types.Number},
		{ir.OpBitXor, -1, 1, -2, types.Number},
		{ir.OpLShift, 1, 31, -2147483648, types.Number},
		{ir.OpLShift, 1, 33, 2, types.Number},
		{ir.OpRShift, -8, 1, -4, types.Number},
		{ir.OpURShift, -1, 0, 4294967295, types.Number},
		{ir.OpURShift, -8, 1, 2147483644, types.Number},
		{ir.OpLt, 1, 2, 1, types.Bool},
		{ir.OpGe, 1, 2, 0, types.Bool},
		{ir.OpEqual, 2, 2, 1, types.Bool},
		{ir.OpStrictNotEqual, 2, 3, 1, types.Bool},
		{ir.OpAnd, 0, 5, 0, types.Number},
		{ir.OpAnd, 2, 5, 5, types.Number},
		{ir.OpOr, 0, 5, 5, types.Number},
		{ir.OpOr, 2, 5, 2, types.Number},
	}
	for _, tt := range tests {
		m, _, b := newBlock(t)
		e := m.Expr(b.Binop(tt.op, b.Number(tt.l), b.Number(tt.r)))
		if e.Kind != ir.ExprConst {
			t.Errorf("%v %s %v: built %s, want const", tt.l, tt.op, tt.r, e.Kind)
			continue
		}
		if e.Const.Value != tt.want || e.Type != tt.wantT {
			t.Errorf("%v %s %v = %v (%s), want %v (%s)", tt.l, tt.op, tt.r, e.Const.Value, e.Type, tt.want, tt.wantT)
		}
	}
}

func TestFoldJSConversions(t *testing.T) {
	m, _, b := newBlock(t)
	nan := m.Expr(b.Binop(ir.OpAdd, b.Undefined(), b.Number(1)))
	if !math.IsNaN(nan.Const.Value) {
		t.Fatalf("undefined + 1 = %v, want NaN", nan.Const.Value)
	}
	null := m.Expr(b.Binop(ir.OpAdd, b.Const(types.Null, 0), b.Bool(true)))
	if null.Const.Value != 1 {
		t.Fatalf("null + true = %v, want 1", null.Const.Value)
	}
	loose := m.Expr(b.Binop(ir.OpEqual, b.Undefined(), b.Const(types.Null, 0)))
	strict := m.Expr(b.Binop(ir.OpStrictEqual, b.Undefined(), b.Const(types.Null, 0)))
	if loose.Const.Value != 1 || strict.Const.Value != 0 {
		t.Fatalf("undefined ==/=== null = %v/%v, want true/false", loose.Const.Value, strict.Const.Value)
	}
	boolNum := m.Expr(b.Binop(ir.OpStrictEqual, b.Bool(true), b.Number(1)))
	if boolNum.Const.Value != 0 {
		t.Fatalf("true === 1 must be false")
	}
	andPick := m.Expr(b.Binop(ir.OpAnd, b.Const(types.Null, 0), b.Number(3)))
	if andPick.Type != types.Null {
		t.Fatalf("null && 3 = %s, want the null operand", andPick.Type)
	}
}

func TestFoldStringConcat(t *testing.T) {
	m, f, b := newBlock(t)
	e := m.Expr(b.Binop(ir.OpAdd, b.StringLit("a"), b.StringLit("b")))
	if e.Kind != ir.ExprString || f.Str(e.String.Value) != "ab" {
		t.Fatalf("\"a\" + \"b\" built %s %q", e.Kind, f.Str(e.String.Value))
	}
	sub := m.Expr(b.Binop(ir.OpSub, b.StringLit("a"), b.StringLit("b")))
	if sub.Kind != ir.ExprBinop {
		t.Fatalf("string subtraction must not fold")
	}
}

func TestBinopTyping(t *testing.T) {
	m, f, b := newBlock(t)
	f.AddFormal("x")
	x := b.Param(types.Var, 0)
	tests := []struct {
		name string
		id   ir.ExprID
		want types.Type
	}{
		{"var + const", b.Binop(ir.OpAdd, x, b.Number(1)), types.Number},
		{"string + var", b.Binop(ir.OpAdd, b.StringLit("s"), x), types.String},
		{"var | const", b.Binop(ir.OpBitOr, x, b.Number(1)), types.Int},
		{"var < var", b.Binop(ir.OpLt, x, x), types.Bool},
		{"var instanceof var", b.Binop(ir.OpInstanceof, x, x), types.Bool},
		{"unary op as binary", b.Binop(ir.OpNot, x, x), types.Invalid},
		{"missing operand", b.Binop(ir.OpAdd, x, ir.NoExpr), types.Invalid},
		{"-var", b.Unop(ir.OpUMinus, x), types.Invalid},
		{"invalid + const", b.Binop(ir.OpAdd, b.Unop(ir.OpUMinus, x), b.Number(1)), types.Number},
		{"invalid < const", b.Binop(ir.OpLt, b.Unop(ir.OpCompl, x), b.Number(1)), types.Bool},
		{"member of invalid", b.Member(b.Unop(ir.OpUPlus, x), "p"), types.Var},
		{"call member of invalid", b.Call(b.Member(b.Unop(ir.OpUPlus, x), "p")), types.Var},
		{"!var", b.Unop(ir.OpNot, x), types.Bool},
		{"-int", b.Unop(ir.OpUMinus, b.NewTemp(types.Int)), types.Number},
		{"binary op as unary", b.Unop(ir.OpAdd, x), types.Invalid},
		{"call const", b.Call(b.Number(1)), types.Invalid},
		{"call member", b.Call(b.Member(x, "m"), x), types.Var},
		{"typeof arity", b.Call(b.Builtin(ir.BuiltinTypeof)), types.Invalid},
		{"closure", b.Closure(f), types.Object},
	}
	for _, tt := range tests {
		if got := m.Expr(tt.id).Type; got != tt.want {
			t.Errorf("%s: type %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestForeignExpressionsRejected(t *testing.T) {
	m := ir.NewModule()
	fb := m.NewFunction("f").NewBasicBlock()
	g := m.NewFunction("g")
	gb := g.NewBasicBlock()
	next := g.NewBasicBlock()
	foreign := fb.Name("x", 1, 1)

	if gb.Exp(foreign) != ir.NoStmt {
		t.Fatalf("Exp accepted an expression built in another function")
	}
	if gb.Move(gb.NewTemp(types.Var), foreign, ir.OpInvalid) != ir.NoStmt {
		t.Fatalf("Move accepted a foreign source")
	}
	wrapped := gb.Binop(ir.OpAdd, foreign, gb.Number(1))
	if ty := m.Expr(wrapped).Type; ty != types.Invalid {
		t.Fatalf("binop over a foreign operand typed %s, want invalid", ty)
	}
	if gb.Exp(wrapped) != ir.NoStmt {
		t.Fatalf("Exp accepted a tree with a foreign operand")
	}
	if gb.CJump(foreign, next, next) != ir.NoStmt {
		t.Fatalf("CJump accepted a foreign condition")
	}
	if gb.Ret(fb.NewTemp(types.Var), types.Var, 0, 0) != ir.NoStmt {
		t.Fatalf("Ret accepted a foreign temp")
	}
	if len(gb.Stmts) != 0 {
		t.Fatalf("block holds %d statements, want 0", len(gb.Stmts))
	}
}

func TestSingleTerminator(t *testing.T) {
	m, f, b := newBlock(t)
	next := f.NewBasicBlock()
	t0 := b.NewTemp(types.Number)
	if b.Move(t0, b.Number(1), ir.OpInvalid) == ir.NoStmt {
		t.Fatalf("move rejected")
	}
	if b.Jump(next) == ir.NoStmt {
		t.Fatalf("first terminator rejected")
	}
	n := len(b.Stmts)
	if id := b.Ret(t0, types.Number, 0, 0); id != ir.NoStmt {
		t.Fatalf("second terminator appended as %d", id)
	}
	if id := b.CJump(t0, next, next); id != ir.NoStmt {
		t.Fatalf("cjump after terminator appended as %d", id)
	}
	if id := b.Jump(next); id != ir.NoStmt {
		t.Fatalf("jump after terminator appended as %d", id)
	}
	if id := b.Exp(t0); id != ir.NoStmt {
		t.Fatalf("exp after terminator appended as %d", id)
	}
	if len(b.Stmts) != n {
		t.Fatalf("statement list changed: %d -> %d", n, len(b.Stmts))
	}
	if m.Stmt(b.Stmts[len(b.Stmts)-1]).Kind != ir.StmtJump {
		t.Fatalf("terminator is not last")
	}
}

func TestTempIndexScheme(t *testing.T) {
	m, f, b := newBlock(t)
	f.AddFormal("a")
	f.AddFormal("b")
	f.AddFormal("c")
	for want := int32(0); want < 4; want++ {
		e := m.Expr(b.NewTemp(types.Var))
		if e.Temp.Index != want {
			t.Fatalf("temp %d has index %d", want, e.Temp.Index)
		}
	}
	if f.TempCount != 4 {
		t.Fatalf("TempCount = %d, want 4", f.TempCount)
	}
	for i := 0; i < 3; i++ {
		e := m.Expr(b.Param(types.Var, i))
		if e.Temp.Index != int32(-(i+1)) || !e.Temp.IsParam() || e.Temp.Ordinal() != i {
			t.Fatalf("param %d has index %d", i, e.Temp.Index)
		}
	}
	if f.TempCount != 4 {
		t.Fatalf("parameter references must not allocate temps")
	}
}

func TestMoveTargets(t *testing.T) {
	_, f, b := newBlock(t)
	f.AddFormal("o")
	o := b.Param(types.Var, 0)
	src := b.Number(1)
	tests := []struct {
		name   string
		target ir.ExprID
		op     ir.AluOp
		ok     bool
	}{
		{"temp", b.NewTemp(types.Var), ir.OpInvalid, true},
		{"name", b.Name("g", 1, 1), ir.OpAdd, true},
		{"member", b.Member(o, "p"), ir.OpURShift, true},
		{"subscript", b.Subscript(o, b.Number(0)), ir.OpMod, true},
		{"const", b.Number(2), ir.OpInvalid, false},
		{"builtin", b.Builtin(ir.BuiltinThrow), ir.OpInvalid, false},
		{"call", b.Call(o), ir.OpInvalid, false},
		{"logical compound", b.NewTemp(types.Var), ir.OpAnd, false},
	}
	for _, tt := range tests {
		got := b.Move(tt.target, src, tt.op) != ir.NoStmt
		if got != tt.ok {
			t.Errorf("%s: accepted=%v, want %v", tt.name, got, tt.ok)
		}
	}
}

func TestCallArgumentList(t *testing.T) {
	m, _, b := newBlock(t)
	args := []ir.ExprID{b.Number(1), b.StringLit("x"), b.NewTemp(types.Var)}
	call := m.Expr(b.Call(b.Name("print", 3, 7), args...))
	got := m.Args(call.Call.Args)
	if len(got) != len(args) {
		t.Fatalf("args = %v, want %v", got, args)
	}
	for i := range args {
		if got[i] != args[i] {
			t.Fatalf("args[%d] = %d, want %d", i, got[i], args[i])
		}
	}
	if m.Expr(b.Call(b.Name("f", 0, 0))).Call.Args != ir.NoList {
		t.Fatalf("empty argument list must be NoList")
	}
}
