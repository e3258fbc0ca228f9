package llvm

import (
	"fortio.org/safecast"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"

	"v4c/internal/ir"
)

// args evaluates a call argument list into a fresh argument array and
// returns its base pointer and length. An empty list passes null.
func (fl *funcLowering) args(head ir.ListID) (value.Value, int, error) {
	exprs := fl.arena.Args(head)
	if len(exprs) == 0 {
		return constant.NewNull(fl.sel.abi.valuePtr), 0, nil
	}
	if _, err := safecast.Conv[int32](len(exprs)); err != nil {
		return nil, 0, unsupported("call with %d arguments", len(exprs))
	}
	arr := fl.argArray(len(exprs))
	for i, id := range exprs {
		elem := fl.cur.NewGetElementPtr(fl.sel.abi.value, arr, i32(i))
		if _, err := fl.expr(id, elem); err != nil {
			return nil, 0, err
		}
	}
	return arr, len(exprs), nil
}

func (fl *funcLowering) callExpr(c ir.CallExpr, dst value.Value) error {
	base := fl.arena.Expr(c.Base)
	if base == nil {
		return unsupported("call without callee")
	}
	switch base.Kind {
	case ir.ExprName:
		if base.Name.Builtin != ir.BuiltinInvalid {
			return fl.builtinCall(base.Name.Builtin, c.Args, dst)
		}
		id, err := fl.identifier(fl.fn.Str(base.Name.ID))
		if err != nil {
			return err
		}
		argv, argc, err := fl.args(c.Args)
		if err != nil {
			return err
		}
		_, err = fl.call("call_activation_property", dst, id, argv, i32(argc))
		return err

	case ir.ExprMember:
		object, err := fl.expr(base.Member.Base, nil)
		if err != nil {
			return err
		}
		id, err := fl.identifier(fl.fn.Str(base.Member.Name))
		if err != nil {
			return err
		}
		argv, argc, err := fl.args(c.Args)
		if err != nil {
			return err
		}
		_, err = fl.call("call_property", dst, object, id, argv, i32(argc))
		return err

	case ir.ExprTemp:
		callee, err := fl.expr(c.Base, nil)
		if err != nil {
			return err
		}
		argv, argc, err := fl.args(c.Args)
		if err != nil {
			return err
		}
		this := constant.NewNull(fl.sel.abi.valuePtr)
		_, err = fl.call("call_value", dst, this, callee, argv, i32(argc))
		return err

	default:
		return unsupported("call through %s", base.Kind)
	}
}

func (fl *funcLowering) newExpr(c ir.CallExpr, dst value.Value) error {
	base := fl.arena.Expr(c.Base)
	if base == nil {
		return unsupported("new without constructor")
	}
	switch base.Kind {
	case ir.ExprName:
		if base.Name.Builtin != ir.BuiltinInvalid {
			return unsupported("new %s", base.Name.Builtin)
		}
		id, err := fl.identifier(fl.fn.Str(base.Name.ID))
		if err != nil {
			return err
		}
		argv, argc, err := fl.args(c.Args)
		if err != nil {
			return err
		}
		_, err = fl.call("construct_activation_property", dst, id, argv, i32(argc))
		return err

	case ir.ExprMember:
		object, err := fl.expr(base.Member.Base, nil)
		if err != nil {
			return err
		}
		id, err := fl.identifier(fl.fn.Str(base.Member.Name))
		if err != nil {
			return err
		}
		argv, argc, err := fl.args(c.Args)
		if err != nil {
			return err
		}
		_, err = fl.call("construct_property", dst, object, id, argv, i32(argc))
		return err

	case ir.ExprTemp:
		callee, err := fl.expr(c.Base, nil)
		if err != nil {
			return err
		}
		argv, argc, err := fl.args(c.Args)
		if err != nil {
			return err
		}
		_, err = fl.call("construct_value", dst, callee, argv, i32(argc))
		return err

	default:
		return unsupported("new through %s", base.Kind)
	}
}

func (fl *funcLowering) builtinCall(b ir.Builtin, head ir.ListID, dst value.Value) error {
	args := fl.arena.Args(head)
	if want := b.Arity(); want >= 0 && len(args) != want {
		return unsupported("%s takes %d argument(s), got %d", b, want, len(args))
	}
	switch b {
	case ir.BuiltinTypeof:
		return fl.reflect("typeof", args[0], dst)
	case ir.BuiltinDelete:
		return fl.reflect("delete", args[0], dst)
	case ir.BuiltinThrow:
		v, err := fl.expr(args[0], nil)
		if err != nil {
			return err
		}
		if _, err := fl.call("throw", v); err != nil {
			return err
		}
		_, err = fl.call("init_undefined", dst)
		return err
	case ir.BuiltinCreateExceptionHandler:
		_, err := fl.call("create_exception_handler", dst)
		return err
	case ir.BuiltinDeleteExceptionHandler:
		if _, err := fl.call("delete_exception_handler"); err != nil {
			return err
		}
		_, err := fl.call("init_undefined", dst)
		return err
	case ir.BuiltinGetException:
		_, err := fl.call("get_exception", dst)
		return err
	case ir.BuiltinForeachIteratorObject:
		v, err := fl.expr(args[0], nil)
		if err != nil {
			return err
		}
		_, err = fl.call("foreach_iterator_object", dst, v)
		return err
	case ir.BuiltinForeachNextPropertyName:
		v, err := fl.expr(args[0], nil)
		if err != nil {
			return err
		}
		_, err = fl.call("foreach_next_property_name", dst, v)
		return err
	default:
		return unsupported("call to %s", b)
	}
}

// reflect lowers typeof and delete, which dispatch on the shape of their
// operand rather than its value.
func (fl *funcLowering) reflect(prefix string, arg ir.ExprID, dst value.Value) error {
	e := fl.arena.Expr(arg)
	if e == nil {
		return unsupported("%s without operand", prefix)
	}
	switch {
	case e.Kind == ir.ExprMember:
		base, err := fl.expr(e.Member.Base, nil)
		if err != nil {
			return err
		}
		id, err := fl.identifier(fl.fn.Str(e.Member.Name))
		if err != nil {
			return err
		}
		_, err = fl.call(prefix+"_member", dst, base, id)
		return err
	case e.Kind == ir.ExprSubscript:
		base, err := fl.expr(e.Subscript.Base, nil)
		if err != nil {
			return err
		}
		index, err := fl.expr(e.Subscript.Index, nil)
		if err != nil {
			return err
		}
		_, err = fl.call(prefix+"_element", dst, base, index)
		return err
	case e.Kind == ir.ExprName && e.Name.Builtin == ir.BuiltinInvalid:
		id, err := fl.identifier(fl.fn.Str(e.Name.ID))
		if err != nil {
			return err
		}
		_, err = fl.call(prefix+"_name", dst, id)
		return err
	default:
		v, err := fl.expr(arg, nil)
		if err != nil {
			return err
		}
		_, err = fl.call(prefix+"_value", dst, v)
		return err
	}
}
