package ir

import "v4c/internal/types"

type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprConst
	ExprString
	ExprName
	ExprTemp
	ExprClosure
	ExprUnop
	ExprBinop
	ExprCall
	ExprNew
	ExprSubscript
	ExprMember
)

func (k ExprKind) String() string {
	switch k {
	case ExprConst:
		return "const"
	case ExprString:
		return "string"
	case ExprName:
		return "name"
	case ExprTemp:
		return "temp"
	case ExprClosure:
		return "closure"
	case ExprUnop:
		return "unop"
	case ExprBinop:
		return "binop"
	case ExprCall:
		return "call"
	case ExprNew:
		return "new"
	case ExprSubscript:
		return "subscript"
	case ExprMember:
		return "member"
	default:
		return "invalid"
	}
}

// Builtin names a compiler intrinsic reachable through a Name expression.
type Builtin uint8

const (
	BuiltinInvalid Builtin = iota
	BuiltinTypeof
	BuiltinThrow
	BuiltinDelete
	BuiltinCreateExceptionHandler
	BuiltinDeleteExceptionHandler
	BuiltinGetException
	BuiltinForeachIteratorObject
	BuiltinForeachNextPropertyName
)

func (b Builtin) String() string {
	switch b {
	case BuiltinTypeof:
		return "builtin_typeof"
	case BuiltinThrow:
		return "builtin_throw"
	case BuiltinDelete:
		return "builtin_delete"
	case BuiltinCreateExceptionHandler:
		return "builtin_create_exception_handler"
	case BuiltinDeleteExceptionHandler:
		return "builtin_delete_exception_handler"
	case BuiltinGetException:
		return "builtin_get_exception"
	case BuiltinForeachIteratorObject:
		return "builtin_foreach_iterator_object"
	case BuiltinForeachNextPropertyName:
		return "builtin_foreach_next_property_name"
	default:
		return "builtin_invalid"
	}
}

// Arity is the number of call arguments the intrinsic takes.
func (b Builtin) Arity() int {
	switch b {
	case BuiltinTypeof, BuiltinThrow, BuiltinDelete,
		BuiltinForeachIteratorObject, BuiltinForeachNextPropertyName:
		return 1
	case BuiltinCreateExceptionHandler, BuiltinDeleteExceptionHandler, BuiltinGetException:
		return 0
	default:
		return -1
	}
}

// Expr is a typed expression node. Kind selects which payload is meaningful;
// Type is computed once when the node is built.
//
// Owner is the function whose block built the node. String, Name and Member
// payloads index Owner's string pool, so a node is only usable inside Owner.
type Expr struct {
	Kind  ExprKind
	Type  types.Type
	Owner FuncID

	Const     ConstExpr
	String    StringExpr
	Name      NameExpr
	Temp      TempExpr
	Closure   ClosureExpr
	Unop      UnopExpr
	Binop     BinopExpr
	Call      CallExpr // ExprCall and ExprNew
	Subscript SubscriptExpr
	Member    MemberExpr
}

type ConstExpr struct {
	Value float64
}

type StringExpr struct {
	Value StrID
}

// NameExpr is either a named lookup (ID set, Builtin unset) or an intrinsic.
type NameExpr struct {
	ID      StrID
	Builtin Builtin
	Line    uint32
	Column  uint32
}

// TempExpr indexes a virtual register. Negative indices address incoming
// parameters: ordinal = -(Index+1).
type TempExpr struct {
	Index int32
}

// IsParam reports whether the temp refers to a formal parameter.
func (t TempExpr) IsParam() bool { return t.Index < 0 }

// Ordinal returns the parameter ordinal of a parameter temp.
func (t TempExpr) Ordinal() int { return int(-(t.Index + 1)) }

type ClosureExpr struct {
	Func FuncID
}

type UnopExpr struct {
	Op   AluOp
	Expr ExprID
}

type BinopExpr struct {
	Op    AluOp
	Left  ExprID
	Right ExprID
}

type CallExpr struct {
	Base ExprID
	Args ListID
}

type SubscriptExpr struct {
	Base  ExprID
	Index ExprID
}

type MemberExpr struct {
	Base ExprID
	Name StrID
}

// IsLValue reports whether the expression may be the target of a Move.
func (e *Expr) IsLValue() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ExprTemp, ExprSubscript, ExprMember:
		return true
	case ExprName:
		return e.Name.Builtin == BuiltinInvalid
	default:
		return false
	}
}

// Children returns the direct operand expressions of e, in evaluation order.
func (a *Arena) Children(id ExprID) []ExprID {
	e := a.Expr(id)
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ExprUnop:
		return []ExprID{e.Unop.Expr}
	case ExprBinop:
		return []ExprID{e.Binop.Left, e.Binop.Right}
	case ExprCall, ExprNew:
		return append([]ExprID{e.Call.Base}, a.Args(e.Call.Args)...)
	case ExprSubscript:
		return []ExprID{e.Subscript.Base, e.Subscript.Index}
	case ExprMember:
		return []ExprID{e.Member.Base}
	default:
		return nil
	}
}

// Walk visits id and its operands depth first. Returning false from fn
// skips the operands of that node.
func (a *Arena) Walk(id ExprID, fn func(ExprID, *Expr) bool) {
	e := a.Expr(id)
	if e == nil {
		return
	}
	if !fn(id, e) {
		return
	}
	for _, child := range a.Children(id) {
		a.Walk(child, fn)
	}
}
