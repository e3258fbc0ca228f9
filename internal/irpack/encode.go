package irpack

import (
	"v4c/internal/ir"
)

// FromModule flattens m into a bundle.
func FromModule(m *ir.Module, source string) *Bundle {
	b := &Bundle{Format: FormatVersion, Source: source}
	for _, f := range m.Funcs {
		b.Functions = append(b.Functions, encodeFunc(m, f))
	}
	return b
}

func encodeFunc(m *ir.Module, f *ir.Function) Function {
	out := Function{
		Name:      f.Name,
		TempCount: f.TempCount,
	}
	for _, id := range f.Formals {
		out.Formals = append(out.Formals, f.Str(id))
	}
	for _, id := range f.Locals {
		out.Locals = append(out.Locals, f.Str(id))
	}
	if f.UsesDirectEval {
		out.Flags |= FlagDirectEval
	}
	if f.UsesArgumentsObject {
		out.Flags |= FlagArgumentsObject
	}
	if f.IsStrict {
		out.Flags |= FlagStrict
	}
	e := encoder{m: m, f: f}
	for _, blk := range f.Blocks {
		var block Block
		for _, sid := range blk.Stmts {
			block.Stmts = append(block.Stmts, e.stmt(m.Stmt(sid)))
		}
		out.Blocks = append(out.Blocks, block)
	}
	return out
}

type encoder struct {
	m *ir.Module
	f *ir.Function
}

func (e encoder) stmt(s *ir.Stmt) Stmt {
	out := Stmt{Kind: s.Kind.String()}
	switch s.Kind {
	case ir.StmtExp:
		out.Expr = e.exprPtr(s.Exp.Expr)
	case ir.StmtEnter:
		out.Expr = e.exprPtr(s.Enter.Expr)
	case ir.StmtMove:
		out.Target = e.exprPtr(s.Move.Target)
		out.Source = e.exprPtr(s.Move.Source)
		if s.Move.Op != ir.OpInvalid {
			out.Op = s.Move.Op.String() + "="
		}
		out.ForReturn = s.Move.ForReturn
	case ir.StmtJump:
		out.Targets = []int32{int32(s.Jump.Target)}
	case ir.StmtCJump:
		out.Expr = e.exprPtr(s.CJump.Cond)
		out.Targets = []int32{int32(s.CJump.True), int32(s.CJump.False)}
	case ir.StmtRet:
		if s.Ret.Expr != ir.NoExpr {
			out.Expr = e.exprPtr(s.Ret.Expr)
		}
		out.Type = s.Ret.Type.String()
		out.Line, out.Column = s.Ret.Line, s.Ret.Column
	}
	return out
}

func (e encoder) exprPtr(id ir.ExprID) *Expr {
	x := e.expr(id)
	return &x
}

func (e encoder) expr(id ir.ExprID) Expr {
	n := e.m.Expr(id)
	if n == nil {
		return Expr{Kind: ir.ExprInvalid.String()}
	}
	out := Expr{Kind: n.Kind.String(), Type: n.Type.String()}
	switch n.Kind {
	case ir.ExprConst:
		out.Value = n.Const.Value
	case ir.ExprString:
		out.Text = e.f.Str(n.String.Value)
	case ir.ExprName:
		if n.Name.Builtin != ir.BuiltinInvalid {
			out.Builtin = n.Name.Builtin.String()
		} else {
			out.Text = e.f.Str(n.Name.ID)
		}
		out.Line, out.Column = n.Name.Line, n.Name.Column
	case ir.ExprTemp:
		out.Index = n.Temp.Index
	case ir.ExprClosure:
		out.Func = int32(n.Closure.Func)
	case ir.ExprUnop:
		out.Op = n.Unop.Op.String()
		out.Operands = []Expr{e.expr(n.Unop.Expr)}
	case ir.ExprBinop:
		out.Op = n.Binop.Op.String()
		out.Operands = []Expr{e.expr(n.Binop.Left), e.expr(n.Binop.Right)}
	case ir.ExprCall, ir.ExprNew:
		out.Operands = append(out.Operands, e.expr(n.Call.Base))
		for _, arg := range e.m.Args(n.Call.Args) {
			out.Operands = append(out.Operands, e.expr(arg))
		}
	case ir.ExprSubscript:
		out.Operands = []Expr{e.expr(n.Subscript.Base), e.expr(n.Subscript.Index)}
	case ir.ExprMember:
		out.Text = e.f.Str(n.Member.Name)
		out.Operands = []Expr{e.expr(n.Member.Base)}
	}
	return out
}
