package llvm

import (
	"github.com/llir/llvm/ir/value"

	"v4c/internal/ir"
)

// runtime operator names of the fusable and binary AluOps
var opNames = map[ir.AluOp]string{
	ir.OpBitAnd:         "bit_and",
	ir.OpBitOr:          "bit_or",
	ir.OpBitXor:         "bit_xor",
	ir.OpAdd:            "add",
	ir.OpSub:            "sub",
	ir.OpMul:            "mul",
	ir.OpDiv:            "div",
	ir.OpMod:            "mod",
	ir.OpLShift:         "shl",
	ir.OpRShift:         "shr",
	ir.OpURShift:        "ushr",
	ir.OpGt:             "gt",
	ir.OpLt:             "lt",
	ir.OpGe:             "ge",
	ir.OpLe:             "le",
	ir.OpEqual:          "eq",
	ir.OpNotEqual:       "ne",
	ir.OpStrictEqual:    "se",
	ir.OpStrictNotEqual: "sne",
	ir.OpInstanceof:     "instanceof",
	ir.OpIn:             "in",
}

var unaryNames = map[ir.AluOp]string{
	ir.OpNot:    "not",
	ir.OpUMinus: "uminus",
	ir.OpUPlus:  "uplus",
	ir.OpCompl:  "compl",
}

func (fl *funcLowering) stmt(s *ir.Stmt) error {
	if s == nil {
		return unsupported("dangling statement")
	}
	switch s.Kind {
	case ir.StmtExp:
		_, err := fl.expr(s.Exp.Expr, nil)
		return err
	case ir.StmtEnter:
		scope, err := fl.expr(s.Enter.Expr, nil)
		if err != nil {
			return err
		}
		_, err = fl.call("push_with_scope", scope)
		return err
	case ir.StmtLeave:
		_, err := fl.call("pop_scope")
		return err
	case ir.StmtMove:
		if s.Move.Op == ir.OpInvalid {
			return fl.move(s.Move)
		}
		return fl.compoundMove(s.Move)
	case ir.StmtJump:
		target, err := fl.block(s.Jump.Target)
		if err != nil {
			return err
		}
		fl.cur.NewBr(target)
		return nil
	case ir.StmtCJump:
		return fl.cjump(s.CJump)
	case ir.StmtRet:
		return fl.ret(s.Ret)
	default:
		return unsupported("statement kind %s", s.Kind)
	}
}

func (fl *funcLowering) move(mv ir.MoveStmt) error {
	target := fl.arena.Expr(mv.Target)
	if target == nil {
		return unsupported("move without target")
	}
	switch target.Kind {
	case ir.ExprTemp:
		if !target.Temp.IsParam() {
			slot, err := fl.tempSlot(target.Temp)
			if err != nil {
				return err
			}
			_, err = fl.expr(mv.Source, slot)
			return err
		}
		src, err := fl.expr(mv.Source, nil)
		if err != nil {
			return err
		}
		_, err = fl.call("set_argument", i32(target.Temp.Ordinal()), src)
		return err
	case ir.ExprName:
		if target.Name.Builtin != ir.BuiltinInvalid {
			return unsupported("assignment to %s", target.Name.Builtin)
		}
		id, err := fl.identifier(fl.fn.Str(target.Name.ID))
		if err != nil {
			return err
		}
		src, err := fl.expr(mv.Source, nil)
		if err != nil {
			return err
		}
		_, err = fl.call("set_activation_property", id, src)
		return err
	case ir.ExprMember:
		base, err := fl.expr(target.Member.Base, nil)
		if err != nil {
			return err
		}
		id, err := fl.identifier(fl.fn.Str(target.Member.Name))
		if err != nil {
			return err
		}
		src, err := fl.expr(mv.Source, nil)
		if err != nil {
			return err
		}
		_, err = fl.call("set_property", base, id, src)
		return err
	case ir.ExprSubscript:
		base, err := fl.expr(target.Subscript.Base, nil)
		if err != nil {
			return err
		}
		index, err := fl.expr(target.Subscript.Index, nil)
		if err != nil {
			return err
		}
		src, err := fl.expr(mv.Source, nil)
		if err != nil {
			return err
		}
		_, err = fl.call("set_element", base, index, src)
		return err
	default:
		return unsupported("move into %s", target.Kind)
	}
}

// compoundMove lowers "target op= source". Temp and Const sources use the
// fused inplace entry points; anything else reads, operates and writes
// back.
func (fl *funcLowering) compoundMove(mv ir.MoveStmt) error {
	op, ok := opNames[mv.Op]
	if !ok || !mv.Op.Fusable() {
		return unsupported("compound operator %s", mv.Op)
	}
	target, source := fl.arena.Expr(mv.Target), fl.arena.Expr(mv.Source)
	if target == nil || source == nil {
		return unsupported("compound move with missing operand")
	}
	fused := source.Kind == ir.ExprTemp || source.Kind == ir.ExprConst

	switch target.Kind {
	case ir.ExprTemp:
		if target.Temp.IsParam() {
			cur, err := fl.scratchCall("get_argument", i32(target.Temp.Ordinal()))
			if err != nil {
				return err
			}
			src, err := fl.expr(mv.Source, nil)
			if err != nil {
				return err
			}
			if _, err := fl.call(op, cur, cur, src); err != nil {
				return err
			}
			_, err = fl.call("set_argument", i32(target.Temp.Ordinal()), cur)
			return err
		}
		slot, err := fl.tempSlot(target.Temp)
		if err != nil {
			return err
		}
		src, err := fl.expr(mv.Source, nil)
		if err != nil {
			return err
		}
		if fused {
			_, err = fl.call("inplace_"+op+"_value", slot, src)
		} else {
			_, err = fl.call(op, slot, slot, src)
		}
		return err

	case ir.ExprName:
		if target.Name.Builtin != ir.BuiltinInvalid {
			return unsupported("assignment to %s", target.Name.Builtin)
		}
		id, err := fl.identifier(fl.fn.Str(target.Name.ID))
		if err != nil {
			return err
		}
		src, err := fl.expr(mv.Source, nil)
		if err != nil {
			return err
		}
		if fused {
			_, err = fl.call("inplace_"+op+"_name", id, src)
			return err
		}
		cur, err := fl.scratchCall("get_activation_property", id)
		if err != nil {
			return err
		}
		if _, err := fl.call(op, cur, cur, src); err != nil {
			return err
		}
		_, err = fl.call("set_activation_property", id, cur)
		return err

	case ir.ExprMember:
		base, err := fl.expr(target.Member.Base, nil)
		if err != nil {
			return err
		}
		id, err := fl.identifier(fl.fn.Str(target.Member.Name))
		if err != nil {
			return err
		}
		src, err := fl.expr(mv.Source, nil)
		if err != nil {
			return err
		}
		if fused {
			_, err = fl.call("inplace_"+op+"_member", base, id, src)
			return err
		}
		cur, err := fl.scratchCall("get_property", base, id)
		if err != nil {
			return err
		}
		if _, err := fl.call(op, cur, cur, src); err != nil {
			return err
		}
		_, err = fl.call("set_property", base, id, cur)
		return err

	case ir.ExprSubscript:
		base, err := fl.expr(target.Subscript.Base, nil)
		if err != nil {
			return err
		}
		index, err := fl.expr(target.Subscript.Index, nil)
		if err != nil {
			return err
		}
		src, err := fl.expr(mv.Source, nil)
		if err != nil {
			return err
		}
		if fused {
			_, err = fl.call("inplace_"+op+"_element", base, index, src)
			return err
		}
		cur, err := fl.scratchCall("get_element", base, index)
		if err != nil {
			return err
		}
		if _, err := fl.call(op, cur, cur, src); err != nil {
			return err
		}
		_, err = fl.call("set_element", base, index, cur)
		return err

	default:
		return unsupported("compound move into %s", target.Kind)
	}
}

func (fl *funcLowering) cjump(cj ir.CJumpStmt) error {
	iftrue, err := fl.block(cj.True)
	if err != nil {
		return err
	}
	iffalse, err := fl.block(cj.False)
	if err != nil {
		return err
	}
	cond, err := fl.condition(cj.Cond)
	if err != nil {
		return err
	}
	fl.cur.NewCondBr(cond, iftrue, iffalse)
	return nil
}

// condition lowers e to a native i1 through the runtime truthiness
// predicate.
func (fl *funcLowering) condition(id ir.ExprID) (value.Value, error) {
	e := fl.arena.Expr(id)
	if e == nil {
		return nil, unsupported("missing condition")
	}
	var v value.Value
	var err error
	if e.Kind == ir.ExprTemp && !e.Temp.IsParam() {
		v, err = fl.tempSlot(e.Temp)
	} else {
		v, err = fl.expr(id, nil)
	}
	if err != nil {
		return nil, err
	}
	return fl.call("to_boolean", v)
}

func (fl *funcLowering) ret(r ir.RetStmt) error {
	var v value.Value
	if r.Expr == ir.NoExpr {
		slot := fl.slot()
		if _, err := fl.call("init_undefined", slot); err != nil {
			return err
		}
		v = slot
	} else {
		e := fl.arena.Expr(r.Expr)
		if e == nil || e.Kind != ir.ExprTemp {
			kind := "missing"
			if e != nil {
				kind = e.Kind.String()
			}
			return unsupported("return operand must be a temp, got %s", kind)
		}
		var err error
		if v, err = fl.expr(r.Expr, nil); err != nil {
			return err
		}
	}
	if _, err := fl.call("return", v); err != nil {
		return err
	}
	fl.cur.NewRet(nil)
	return nil
}
