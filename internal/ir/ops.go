package ir

import (
	"v4c/internal/token"
	"v4c/internal/types"
)

// AluOp tags the operator of a Unop, Binop or compound Move.
type AluOp uint8

const (
	OpInvalid AluOp = iota

	OpIfTrue
	OpNot
	OpUMinus
	OpUPlus
	OpCompl

	OpBitAnd
	OpBitOr
	OpBitXor

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	OpLShift
	OpRShift
	OpURShift

	OpGt
	OpLt
	OpGe
	OpLe
	OpEqual
	OpNotEqual
	OpStrictEqual
	OpStrictNotEqual

	OpInstanceof
	OpIn

	OpAnd
	OpOr

	opCount
)

var opNames = [opCount]string{
	OpInvalid:        "?",
	OpIfTrue:         "(bool)",
	OpNot:            "!",
	OpUMinus:         "-",
	OpUPlus:          "+",
	OpCompl:          "~",
	OpBitAnd:         "&",
	OpBitOr:          "|",
	OpBitXor:         "^",
	OpAdd:            "+",
	OpSub:            "-",
	OpMul:            "*",
	OpDiv:            "/",
	OpMod:            "%",
	OpLShift:         "<<",
	OpRShift:         ">>",
	OpURShift:        ">>>",
	OpGt:             ">",
	OpLt:             "<",
	OpGe:             ">=",
	OpLe:             "<=",
	OpEqual:          "==",
	OpNotEqual:       "!=",
	OpStrictEqual:    "===",
	OpStrictNotEqual: "!==",
	OpInstanceof:     "instanceof",
	OpIn:             "in",
	OpAnd:            "&&",
	OpOr:             "||",
}

// String returns the source spelling of op.
func (op AluOp) String() string {
	if op >= opCount {
		return opNames[OpInvalid]
	}
	return opNames[op]
}

func (op AluOp) IsUnary() bool {
	return op >= OpIfTrue && op <= OpCompl
}

func (op AluOp) IsBinary() bool {
	return op >= OpBitAnd && op <= OpOr
}

func (op AluOp) IsBitwise() bool {
	return op >= OpBitAnd && op <= OpBitXor || op >= OpLShift && op <= OpURShift
}

func (op AluOp) IsRelational() bool {
	return op >= OpGt && op <= OpIn
}

func (op AluOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// Foldable reports whether a Binop with two Const operands is evaluated at
// construction time.
func (op AluOp) Foldable() bool {
	return op.IsBinary() && op != OpInstanceof && op != OpIn
}

// Fusable reports whether op has read-modify-write runtime entry points.
func (op AluOp) Fusable() bool {
	return op >= OpBitAnd && op <= OpURShift
}

// BinaryOperator maps a front-end operator token to its AluOp. Tokens with no
// binary meaning map to OpInvalid.
func BinaryOperator(k token.Kind) AluOp {
	switch k {
	case token.Plus:
		return OpAdd
	case token.Minus:
		return OpSub
	case token.Star:
		return OpMul
	case token.Slash:
		return OpDiv
	case token.Percent:
		return OpMod
	case token.Amp:
		return OpBitAnd
	case token.Pipe:
		return OpBitOr
	case token.Caret:
		return OpBitXor
	case token.Shl:
		return OpLShift
	case token.Shr:
		return OpRShift
	case token.UShr:
		return OpURShift
	case token.AndAnd:
		return OpAnd
	case token.OrOr:
		return OpOr
	case token.EqEq:
		return OpEqual
	case token.BangEq:
		return OpNotEqual
	case token.EqEqEq:
		return OpStrictEqual
	case token.BangEqEq:
		return OpStrictNotEqual
	case token.Lt:
		return OpLt
	case token.LtEq:
		return OpLe
	case token.Gt:
		return OpGt
	case token.GtEq:
		return OpGe
	case token.KwInstanceof:
		return OpInstanceof
	case token.KwIn:
		return OpIn
	default:
		return OpInvalid
	}
}

// CompoundOperator maps a compound assignment token ('+=') to the AluOp a
// Move carries. Plain '=' and non-assignments map to OpInvalid.
func CompoundOperator(k token.Kind) AluOp {
	if !k.IsCompoundAssign() {
		return OpInvalid
	}
	return BinaryOperator(k.BinaryOf())
}

// UnopType is the static type of a unary operation on an operand of type
// operand.
func UnopType(op AluOp, operand types.Type) types.Type {
	switch op {
	case OpIfTrue, OpNot:
		return types.Bool
	case OpUMinus, OpUPlus, OpCompl:
		return types.MaxType(operand, types.Number)
	default:
		return types.Invalid
	}
}

// BinopType is the static type of a binary operation. Only the left
// operand decides whether '+' is a string concatenation.
func BinopType(op AluOp, left, right types.Type) types.Type {
	switch {
	case op.IsBitwise():
		return types.Int
	case op == OpAdd:
		if left == types.String {
			return types.String
		}
		return types.Number
	case op == OpSub, op == OpMul, op == OpDiv, op == OpMod:
		return types.Number
	case op.IsLogical(), op.IsRelational():
		return types.Bool
	default:
		return types.Invalid
	}
}
