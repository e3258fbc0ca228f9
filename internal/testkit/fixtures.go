// Package testkit holds IR fixtures and lowering invariants shared by the
// backend, pipeline and command tests.
package testkit

import (
	"v4c/internal/ir"
	"v4c/internal/types"
)

// Increment builds `function f(x) { return x + 1; }`.
func Increment() *ir.Module {
	m := ir.NewModule()
	f := m.NewFunction("f")
	f.AddFormal("x")
	b := f.NewBasicBlock()
	t0 := f.NewTemp()
	b.Move(b.Temp(types.Number, t0), b.Binop(ir.OpAdd, b.Param(types.Var, 0), b.Number(1)), ir.OpInvalid)
	b.Ret(b.Temp(types.Number, t0), types.Number, 1, 1)
	return m
}

// Branchy builds an entry point with a conditional and one block nothing
// branches to:
//
//	if (a < 10) r = "small"; else r = a;
//	return r;
func Branchy() *ir.Module {
	m := ir.NewModule()
	f := m.NewFunction(ir.EntryName)
	entry := f.NewBasicBlock()
	then := f.NewBasicBlock()
	els := f.NewBasicBlock()
	exit := f.NewBasicBlock()
	dead := f.NewBasicBlock()
	r := f.NewTemp()

	entry.CJump(entry.Binop(ir.OpLt, entry.Name("a", 1, 5), entry.Number(10)), then, els)
	then.Move(then.Temp(types.Var, r), then.StringLit("small"), ir.OpInvalid)
	then.Jump(exit)
	els.Move(els.Temp(types.Var, r), els.Name("a", 2, 1), ir.OpInvalid)
	els.Jump(exit)
	exit.Ret(exit.Temp(types.Var, r), types.Var, 3, 1)
	dead.Ret(ir.NoExpr, types.Undefined, 4, 1)
	return m
}

// KitchenSink exercises every statement kind and every lowerable expression
// kind at least once. It lowers without errors under the default runtime.
func KitchenSink() *ir.Module {
	m := ir.NewModule()

	cb := m.NewFunction("")
	cb.AddFormal("v")
	cbb := cb.NewBasicBlock()
	ct := cb.NewTemp()
	cbb.Move(cbb.Temp(types.Var, ct), cbb.Unop(ir.OpUMinus, cbb.Param(types.Var, 0)), ir.OpInvalid)
	cbb.Ret(cbb.Temp(types.Var, ct), types.Var, 1, 1)

	f := m.NewFunction(ir.EntryName)
	f.AddLocal("o")
	b := f.NewBasicBlock()
	loop := f.NewBasicBlock()
	done := f.NewBasicBlock()
	obj, key, res, fn := f.NewTemp(), f.NewTemp(), f.NewTemp(), f.NewTemp()

	b.Enter(b.Name("scope", 1, 1))
	b.Move(b.Temp(types.Object, obj), b.New(b.Name("Object", 2, 9)), ir.OpInvalid)
	b.Move(b.Member(b.Temp(types.Object, obj), "count"), b.Number(0), ir.OpInvalid)
	b.Move(b.Subscript(b.Temp(types.Object, obj), b.StringLit("k")), b.Bool(true), ir.OpInvalid)
	b.Move(b.Name("o", 3, 1), b.Temp(types.Object, obj), ir.OpInvalid)
	b.Move(b.Member(b.Temp(types.Object, obj), "count"), b.Number(2), ir.OpAdd)
	b.Move(b.Temp(types.Var, fn), b.Closure(cb), ir.OpInvalid)
	b.Move(b.Temp(types.Var, key), b.Call(b.Builtin(ir.BuiltinForeachIteratorObject), b.Temp(types.Object, obj)), ir.OpInvalid)
	b.Leave()
	b.Jump(loop)

	loop.Move(loop.Temp(types.Var, res), loop.Call(loop.Builtin(ir.BuiltinForeachNextPropertyName), loop.Temp(types.Var, key)), ir.OpInvalid)
	loop.Exp(loop.Call(loop.Member(loop.Name("console", 5, 1), "log"), loop.Temp(types.Var, res), loop.Const(types.Null, 0)))
	loop.CJump(loop.Unop(ir.OpNot, loop.Temp(types.Var, res)), done, loop)

	done.Move(done.Temp(types.Var, res), done.Call(done.Temp(types.Var, fn), done.Binop(ir.OpStrictEqual, done.Name("o", 7, 8), done.Undefined())), ir.OpInvalid)
	done.Exp(done.Call(done.Builtin(ir.BuiltinTypeof), done.Member(done.Name("o", 8, 1), "count")))
	done.Ret(done.Temp(types.Var, res), types.Var, 9, 1)
	return m
}
