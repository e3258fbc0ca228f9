package llvm

import (
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"v4c/internal/ir"
	"v4c/internal/types"
)

// expr lowers the expression id into dst, or into a fresh slot when dst is
// nil, and returns the Value* holding the result.
func (fl *funcLowering) expr(id ir.ExprID, dst value.Value) (value.Value, error) {
	e := fl.arena.Expr(id)
	if e == nil {
		return nil, unsupported("missing expression %d", id)
	}
	if e.Kind == ir.ExprTemp {
		return fl.temp(e.Temp, dst)
	}
	if dst == nil {
		dst = fl.slot()
	}

	switch e.Kind {
	case ir.ExprConst:
		return dst, fl.constant(e.Type, e.Const.Value, dst)

	case ir.ExprString:
		ptr, n, err := fl.sel.utf16Constant(fl.fn.Str(e.String.Value))
		if err != nil {
			return nil, err
		}
		_, err = fl.call("init_string", dst, ptr, i32(n))
		return dst, err

	case ir.ExprName:
		if e.Name.Builtin != ir.BuiltinInvalid {
			return nil, unsupported("%s used as a value", e.Name.Builtin)
		}
		name := fl.fn.Str(e.Name.ID)
		if name == "this" {
			_, err := fl.call("get_this_object", dst)
			return dst, err
		}
		id, err := fl.identifier(name)
		if err != nil {
			return nil, err
		}
		_, err = fl.call("get_activation_property", dst, id)
		return dst, err

	case ir.ExprClosure:
		target := fl.sel.mod.Func(e.Closure.Func)
		if target == nil {
			return nil, unsupported("closure over missing function %d", e.Closure.Func)
		}
		_, err := fl.call("init_native_function", dst, fl.sel.funcFor(target))
		return dst, err

	case ir.ExprUnop:
		return dst, fl.unop(e.Unop, dst)

	case ir.ExprBinop:
		op, ok := opNames[e.Binop.Op]
		if !ok {
			return nil, unsupported("binary operator %s must be lowered to branches", e.Binop.Op)
		}
		left, err := fl.expr(e.Binop.Left, nil)
		if err != nil {
			return nil, err
		}
		right, err := fl.expr(e.Binop.Right, nil)
		if err != nil {
			return nil, err
		}
		_, err = fl.call(op, dst, left, right)
		return dst, err

	case ir.ExprCall:
		return dst, fl.callExpr(e.Call, dst)

	case ir.ExprNew:
		return dst, fl.newExpr(e.Call, dst)

	case ir.ExprSubscript:
		base, err := fl.expr(e.Subscript.Base, nil)
		if err != nil {
			return nil, err
		}
		index, err := fl.expr(e.Subscript.Index, nil)
		if err != nil {
			return nil, err
		}
		_, err = fl.call("get_element", dst, base, index)
		return dst, err

	case ir.ExprMember:
		base, err := fl.expr(e.Member.Base, nil)
		if err != nil {
			return nil, err
		}
		id, err := fl.identifier(fl.fn.Str(e.Member.Name))
		if err != nil {
			return nil, err
		}
		_, err = fl.call("get_property", dst, base, id)
		return dst, err

	default:
		return nil, unsupported("expression kind %s", e.Kind)
	}
}

func (fl *funcLowering) constant(t types.Type, v float64, dst value.Value) error {
	var err error
	switch {
	case t == types.Undefined || t == types.Void:
		_, err = fl.call("init_undefined", dst)
	case t == types.Null:
		_, err = fl.call("init_null", dst)
	case t == types.Bool:
		_, err = fl.call("init_boolean", dst, constant.NewBool(v != 0))
	case types.IsNumber(t):
		_, err = fl.call("init_number", dst, constant.NewFloat(lltypes.Double, v))
	default:
		err = unsupported("constant of type %s", t)
	}
	return err
}

func (fl *funcLowering) unop(u ir.UnopExpr, dst value.Value) error {
	operand, err := fl.expr(u.Expr, nil)
	if err != nil {
		return err
	}
	if u.Op == ir.OpIfTrue {
		b, err := fl.call("to_boolean", operand)
		if err != nil {
			return err
		}
		_, err = fl.call("init_boolean", dst, b)
		return err
	}
	name, ok := unaryNames[u.Op]
	if !ok {
		return unsupported("unary operator %s", u.Op)
	}
	_, err = fl.call(name, dst, operand)
	return err
}

// temp returns the slot of a local temp, copying it into dst when one is
// requested. Parameters are fetched through the runtime.
func (fl *funcLowering) temp(t ir.TempExpr, dst value.Value) (value.Value, error) {
	if t.IsParam() {
		if dst == nil {
			dst = fl.slot()
		}
		_, err := fl.call("get_argument", dst, i32(t.Ordinal()))
		return dst, err
	}
	slot, err := fl.tempSlot(t)
	if err != nil {
		return nil, err
	}
	if dst == nil || dst == slot {
		return slot, nil
	}
	v := fl.cur.NewLoad(fl.sel.abi.value, slot)
	fl.cur.NewStore(v, dst)
	return dst, nil
}

func (fl *funcLowering) tempSlot(t ir.TempExpr) (value.Value, error) {
	if t.IsParam() || int(t.Index) >= len(fl.temps) {
		return nil, unsupported("temp t%d is out of range", t.Index)
	}
	return fl.temps[t.Index], nil
}

// scratchCall calls a runtime getter into a fresh slot.
func (fl *funcLowering) scratchCall(name string, args ...value.Value) (value.Value, error) {
	slot := fl.slot()
	_, err := fl.call(name, append([]value.Value{slot}, args...)...)
	return slot, err
}

// identifier interns name through the runtime.
func (fl *funcLowering) identifier(name string) (value.Value, error) {
	return fl.call("identifier_from_utf8", fl.sel.utf8Constant(name), i32(len(name)))
}
