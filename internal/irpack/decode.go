package irpack

import (
	"errors"
	"fmt"

	"v4c/internal/ir"
	"v4c/internal/token"
	"v4c/internal/types"
)

var unaryOps = map[string]ir.AluOp{
	"(bool)": ir.OpIfTrue,
	"!":      ir.OpNot,
	"-":      ir.OpUMinus,
	"+":      ir.OpUPlus,
	"~":      ir.OpCompl,
}

var (
	exprKinds = map[string]ir.ExprKind{}
	stmtKinds = map[string]ir.StmtKind{}
	builtins  = map[string]ir.Builtin{}
)

func init() {
	for k := ir.ExprConst; k <= ir.ExprMember; k++ {
		exprKinds[k.String()] = k
	}
	for k := ir.StmtExp; k <= ir.StmtRet; k++ {
		stmtKinds[k.String()] = k
	}
	for b := ir.BuiltinTypeof; b <= ir.BuiltinForeachNextPropertyName; b++ {
		builtins[b.String()] = b
	}
}

// ToModule rebuilds a module through the IR factories, so constant operands
// fold exactly as they would have in the front end.
func ToModule(b *Bundle) (*ir.Module, error) {
	if b == nil {
		return nil, errors.New("nil bundle")
	}
	if err := CheckFormat(b.Format); err != nil {
		return nil, err
	}
	m := ir.NewModule()
	for i := range b.Functions {
		src := &b.Functions[i]
		f := m.NewFunction(src.Name)
		for _, name := range src.Formals {
			f.AddFormal(name)
		}
		for _, name := range src.Locals {
			f.AddLocal(name)
		}
		f.TempCount = src.TempCount
		f.UsesDirectEval = src.Flags&FlagDirectEval != 0
		f.UsesArgumentsObject = src.Flags&FlagArgumentsObject != 0
		f.IsStrict = src.Flags&FlagStrict != 0
		for range src.Blocks {
			f.NewBasicBlock()
		}
	}
	var errs []error
	for i := range b.Functions {
		f := m.Funcs[i]
		for bi, blk := range b.Functions[i].Blocks {
			d := decoder{m: m, b: f.Blocks[bi]}
			for si := range blk.Stmts {
				if err := d.stmt(&blk.Stmts[si]); err != nil {
					errs = append(errs, fmt.Errorf("function %s L%d stmt %d: %w", f.Name, bi, si, err))
				}
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

type decoder struct {
	m *ir.Module
	b *ir.BasicBlock
}

func (d decoder) block(idx int32) (*ir.BasicBlock, error) {
	blk := d.b.Function().Block(ir.BlockID(idx))
	if blk == nil {
		return nil, fmt.Errorf("branch to missing block %d", idx)
	}
	return blk, nil
}

func (d decoder) stmt(s *Stmt) error {
	kind, ok := stmtKinds[s.Kind]
	if !ok {
		return fmt.Errorf("unknown statement kind %q", s.Kind)
	}
	var id ir.StmtID
	switch kind {
	case ir.StmtExp, ir.StmtEnter:
		e, err := d.exprPtr(s.Expr)
		if err != nil {
			return err
		}
		if kind == ir.StmtExp {
			id = d.b.Exp(e)
		} else {
			id = d.b.Enter(e)
		}
	case ir.StmtLeave:
		id = d.b.Leave()
	case ir.StmtMove:
		target, err := d.exprPtr(s.Target)
		if err != nil {
			return err
		}
		source, err := d.exprPtr(s.Source)
		if err != nil {
			return err
		}
		op := ir.OpInvalid
		if s.Op != "" {
			if op = ir.CompoundOperator(token.Lookup(s.Op)); op == ir.OpInvalid {
				return fmt.Errorf("unknown compound operator %q", s.Op)
			}
		}
		if s.ForReturn && op == ir.OpInvalid {
			id = d.b.MoveForReturn(target, source)
		} else {
			id = d.b.Move(target, source, op)
		}
	case ir.StmtJump:
		if len(s.Targets) != 1 {
			return fmt.Errorf("jump needs 1 target, got %d", len(s.Targets))
		}
		to, err := d.block(s.Targets[0])
		if err != nil {
			return err
		}
		id = d.b.Jump(to)
	case ir.StmtCJump:
		if len(s.Targets) != 2 {
			return fmt.Errorf("cjump needs 2 targets, got %d", len(s.Targets))
		}
		cond, err := d.exprPtr(s.Expr)
		if err != nil {
			return err
		}
		iftrue, err := d.block(s.Targets[0])
		if err != nil {
			return err
		}
		iffalse, err := d.block(s.Targets[1])
		if err != nil {
			return err
		}
		id = d.b.CJump(cond, iftrue, iffalse)
	case ir.StmtRet:
		e := ir.NoExpr
		if s.Expr != nil {
			var err error
			if e, err = d.expr(s.Expr); err != nil {
				return err
			}
		}
		ty, _ := types.Parse(s.Type)
		id = d.b.Ret(e, ty, s.Line, s.Column)
	}
	if id == ir.NoStmt {
		return fmt.Errorf("%s rejected by block L%d", kind, d.b.Index)
	}
	return nil
}

func (d decoder) exprPtr(e *Expr) (ir.ExprID, error) {
	if e == nil {
		return ir.NoExpr, errors.New("missing operand")
	}
	return d.expr(e)
}

func (d decoder) operands(e *Expr, n int) ([]ir.ExprID, error) {
	if n >= 0 && len(e.Operands) != n {
		return nil, fmt.Errorf("%s needs %d operands, got %d", e.Kind, n, len(e.Operands))
	}
	if len(e.Operands) == 0 {
		return nil, fmt.Errorf("%s needs operands", e.Kind)
	}
	out := make([]ir.ExprID, len(e.Operands))
	for i := range e.Operands {
		id, err := d.expr(&e.Operands[i])
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func (d decoder) expr(e *Expr) (ir.ExprID, error) {
	kind, ok := exprKinds[e.Kind]
	if !ok {
		return ir.NoExpr, fmt.Errorf("unknown expression kind %q", e.Kind)
	}
	ty, _ := types.Parse(e.Type)
	b := d.b
	switch kind {
	case ir.ExprConst:
		return b.Const(ty, e.Value), nil
	case ir.ExprString:
		return b.StringLit(e.Text), nil
	case ir.ExprName:
		if e.Builtin != "" {
			bi, ok := builtins[e.Builtin]
			if !ok {
				return ir.NoExpr, fmt.Errorf("unknown builtin %q", e.Builtin)
			}
			return b.Builtin(bi), nil
		}
		return b.Name(e.Text, e.Line, e.Column), nil
	case ir.ExprTemp:
		return b.Temp(ty, e.Index), nil
	case ir.ExprClosure:
		fn := d.m.Func(ir.FuncID(e.Func))
		if fn == nil {
			return ir.NoExpr, fmt.Errorf("closure over missing function %d", e.Func)
		}
		return b.Closure(fn), nil
	case ir.ExprUnop:
		op, ok := unaryOps[e.Op]
		if !ok {
			return ir.NoExpr, fmt.Errorf("unknown unary operator %q", e.Op)
		}
		ops, err := d.operands(e, 1)
		if err != nil {
			return ir.NoExpr, err
		}
		return b.Unop(op, ops[0]), nil
	case ir.ExprBinop:
		op := ir.BinaryOperator(token.Lookup(e.Op))
		if op == ir.OpInvalid {
			return ir.NoExpr, fmt.Errorf("unknown binary operator %q", e.Op)
		}
		ops, err := d.operands(e, 2)
		if err != nil {
			return ir.NoExpr, err
		}
		return b.Binop(op, ops[0], ops[1]), nil
	case ir.ExprCall, ir.ExprNew:
		ops, err := d.operands(e, -1)
		if err != nil {
			return ir.NoExpr, err
		}
		if kind == ir.ExprNew {
			return b.New(ops[0], ops[1:]...), nil
		}
		return b.Call(ops[0], ops[1:]...), nil
	case ir.ExprSubscript:
		ops, err := d.operands(e, 2)
		if err != nil {
			return ir.NoExpr, err
		}
		return b.Subscript(ops[0], ops[1]), nil
	case ir.ExprMember:
		ops, err := d.operands(e, 1)
		if err != nil {
			return ir.NoExpr, err
		}
		return b.Member(ops[0], e.Text), nil
	}
	return ir.NoExpr, fmt.Errorf("unhandled expression kind %s", kind)
}
