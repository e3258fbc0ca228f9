package ir

import (
	"math"

	"fortio.org/safecast"

	"v4c/internal/types"
)

// Expression factories. Every node is allocated from the module arena and
// gets its type at construction.

func (b *BasicBlock) newExpr(e Expr) ExprID {
	e.Owner = b.fn.ID
	return b.arena().newExpr(e)
}

// local returns the node for id when it was built inside b's function.
func (b *BasicBlock) local(id ExprID) *Expr {
	if e := b.arena().Expr(id); e != nil && e.Owner == b.fn.ID {
		return e
	}
	return nil
}

// owns reports whether id and all of its operands belong to b's function.
func (b *BasicBlock) owns(id ExprID) bool {
	if b.local(id) == nil {
		return false
	}
	ok := true
	b.arena().Walk(id, func(_ ExprID, e *Expr) bool {
		if e.Owner != b.fn.ID {
			ok = false
		}
		return ok
	})
	return ok
}

func (b *BasicBlock) exprType(id ExprID) types.Type {
	if e := b.local(id); e != nil {
		return e.Type
	}
	return types.Invalid
}

// Const builds a constant. Int and Float tags are stored as Number.
func (b *BasicBlock) Const(t types.Type, v float64) ExprID {
	t = constTag(t)
	if t == types.Bool && v != 0 {
		v = 1
	}
	return b.newExpr(Expr{Kind: ExprConst, Type: t, Const: ConstExpr{Value: v}})
}

func (b *BasicBlock) Undefined() ExprID { return b.Const(types.Undefined, 0) }

func (b *BasicBlock) Number(v float64) ExprID { return b.Const(types.Number, v) }

func (b *BasicBlock) Bool(v bool) ExprID {
	if v {
		return b.Const(types.Bool, 1)
	}
	return b.Const(types.Bool, 0)
}

// StringLit builds a string constant.
func (b *BasicBlock) StringLit(s string) ExprID {
	return b.newExpr(Expr{Kind: ExprString, Type: types.String, String: StringExpr{Value: b.fn.Intern(s)}})
}

// Name builds a free-variable reference.
func (b *BasicBlock) Name(name string, line, column uint32) ExprID {
	return b.newExpr(Expr{
		Kind: ExprName,
		Type: types.Var,
		Name: NameExpr{ID: b.fn.Intern(name), Line: line, Column: column},
	})
}

// Builtin builds a reference to a compiler intrinsic.
func (b *BasicBlock) Builtin(bi Builtin) ExprID {
	ty := types.Var
	if bi.Arity() < 0 {
		ty = types.Invalid
	}
	return b.newExpr(Expr{Kind: ExprName, Type: ty, Name: NameExpr{ID: NoStr, Builtin: bi}})
}

// NewTemp allocates a fresh temp and returns a reference to it.
func (b *BasicBlock) NewTemp(t types.Type) ExprID {
	return b.Temp(t, b.fn.NewTemp())
}

// Temp references an existing temp index.
func (b *BasicBlock) Temp(t types.Type, index int32) ExprID {
	return b.newExpr(Expr{Kind: ExprTemp, Type: t, Temp: TempExpr{Index: index}})
}

// Param references formal parameter ordinal (0-based).
func (b *BasicBlock) Param(t types.Type, ordinal int) ExprID {
	idx, err := safecast.Conv[int32](ordinal + 1)
	if err != nil || ordinal < 0 {
		return b.newExpr(Expr{Kind: ExprTemp, Type: types.Invalid, Temp: TempExpr{Index: math.MinInt32}})
	}
	return b.Temp(t, -idx)
}

// Closure references another function of the same module.
func (b *BasicBlock) Closure(fn *Function) ExprID {
	id, ty := NoFuncID, types.Invalid
	if fn != nil && fn.mod == b.fn.mod {
		id, ty = fn.ID, types.Object
	}
	return b.newExpr(Expr{Kind: ExprClosure, Type: ty, Closure: ClosureExpr{Func: id}})
}

func (b *BasicBlock) Unop(op AluOp, expr ExprID) ExprID {
	ty := types.Invalid
	if e := b.local(expr); e != nil {
		ty = UnopType(op, e.Type)
	}
	return b.newExpr(Expr{
		Kind: ExprUnop,
		Type: ty,
		Unop: UnopExpr{Op: op, Expr: expr},
	})
}

// Binop builds a binary operation, folding it when both operands are
// constants (or, for '+', both strings). A missing operand types the node
// Invalid.
func (b *BasicBlock) Binop(op AluOp, left, right ExprID) ExprID {
	l, r := b.local(left), b.local(right)
	ty := types.Invalid
	if l != nil && r != nil {
		ty = BinopType(op, l.Type, r.Type)
		if l.Kind == ExprConst && r.Kind == ExprConst && op.Foldable() {
			lv := constValue{ty: l.Type, v: l.Const.Value}
			rv := constValue{ty: r.Type, v: r.Const.Value}
			if res, ok := foldBinary(op, lv, rv); ok {
				return b.Const(res.ty, res.v)
			}
		}
		if l.Kind == ExprString && r.Kind == ExprString && op == OpAdd {
			return b.StringLit(b.fn.Str(l.String.Value) + b.fn.Str(r.String.Value))
		}
	}
	return b.newExpr(Expr{
		Kind:  ExprBinop,
		Type:  ty,
		Binop: BinopExpr{Op: op, Left: left, Right: right},
	})
}

// ExprList links args into an argument list.
func (b *BasicBlock) ExprList(args ...ExprID) ListID {
	return b.arena().newList(args)
}

func (b *BasicBlock) Call(base ExprID, args ...ExprID) ExprID {
	return b.newExpr(Expr{
		Kind: ExprCall,
		Type: b.callType(base, len(args)),
		Call: CallExpr{Base: base, Args: b.ExprList(args...)},
	})
}

func (b *BasicBlock) New(base ExprID, args ...ExprID) ExprID {
	return b.newExpr(Expr{
		Kind: ExprNew,
		Type: b.callType(base, len(args)),
		Call: CallExpr{Base: base, Args: b.ExprList(args...)},
	})
}

// callType is Var for callable bases (member, temp, name) and Invalid
// otherwise. Intrinsic calls must match the intrinsic's arity.
func (b *BasicBlock) callType(base ExprID, argc int) types.Type {
	e := b.local(base)
	if e == nil {
		return types.Invalid
	}
	switch e.Kind {
	case ExprMember, ExprTemp:
		return types.Var
	case ExprName:
		if e.Name.Builtin != BuiltinInvalid && e.Name.Builtin.Arity() != argc {
			return types.Invalid
		}
		return types.Var
	default:
		return types.Invalid
	}
}

func (b *BasicBlock) Subscript(base, index ExprID) ExprID {
	return b.newExpr(Expr{Kind: ExprSubscript, Type: types.Var, Subscript: SubscriptExpr{Base: base, Index: index}})
}

func (b *BasicBlock) Member(base ExprID, name string) ExprID {
	return b.newExpr(Expr{Kind: ExprMember, Type: types.Var, Member: MemberExpr{Base: base, Name: b.fn.Intern(name)}})
}

// Statement factories. Once the block holds a terminator every append is a
// no-op returning NoStmt.

func (b *BasicBlock) appendStmt(s Stmt) StmtID {
	if b.IsTerminated() {
		return NoStmt
	}
	id := b.arena().newStmt(s)
	b.Stmts = append(b.Stmts, id)
	return id
}

func (b *BasicBlock) Exp(expr ExprID) StmtID {
	if !b.owns(expr) {
		return NoStmt
	}
	return b.appendStmt(Stmt{Kind: StmtExp, Exp: ExpStmt{Expr: expr}})
}

func (b *BasicBlock) Enter(expr ExprID) StmtID {
	if !b.owns(expr) {
		return NoStmt
	}
	return b.appendStmt(Stmt{Kind: StmtEnter, Enter: EnterStmt{Expr: expr}})
}

func (b *BasicBlock) Leave() StmtID {
	return b.appendStmt(Stmt{Kind: StmtLeave})
}

// Move assigns source to target. op is OpInvalid for a plain store or one of
// the read-modify-write operators. Illegal targets are rejected.
func (b *BasicBlock) Move(target, source ExprID, op AluOp) StmtID {
	if !b.local(target).IsLValue() || !b.owns(target) || !b.owns(source) {
		return NoStmt
	}
	if op != OpInvalid && !op.Fusable() {
		return NoStmt
	}
	return b.appendStmt(Stmt{Kind: StmtMove, Move: MoveStmt{Target: target, Source: source, Op: op}})
}

// MoveForReturn is Move for the value a following Ret hands back.
func (b *BasicBlock) MoveForReturn(target, source ExprID) StmtID {
	id := b.Move(target, source, OpInvalid)
	if s := b.arena().Stmt(id); s != nil {
		s.Move.ForReturn = true
	}
	return id
}

func (b *BasicBlock) Jump(target *BasicBlock) StmtID {
	if target == nil || target.fn != b.fn {
		return NoStmt
	}
	return b.appendStmt(Stmt{Kind: StmtJump, Jump: JumpStmt{Target: target.Index}})
}

func (b *BasicBlock) CJump(cond ExprID, iftrue, iffalse *BasicBlock) StmtID {
	if !b.owns(cond) || iftrue == nil || iffalse == nil ||
		iftrue.fn != b.fn || iffalse.fn != b.fn {
		return NoStmt
	}
	return b.appendStmt(Stmt{Kind: StmtCJump, CJump: CJumpStmt{Cond: cond, True: iftrue.Index, False: iffalse.Index}})
}

// Ret ends the block. expr may be NoExpr for a bare return.
func (b *BasicBlock) Ret(expr ExprID, t types.Type, line, column uint32) StmtID {
	if expr != NoExpr && !b.owns(expr) {
		return NoStmt
	}
	return b.appendStmt(Stmt{Kind: StmtRet, Ret: RetStmt{Expr: expr, Type: t, Line: line, Column: column}})
}
