package ir

import (
	"math"

	"v4c/internal/types"
)

// constValue is the payload of a Const operand seen by the folder.
type constValue struct {
	ty types.Type
	v  float64
}

func (c constValue) nullish() bool {
	return c.ty == types.Undefined || c.ty == types.Null || c.ty == types.Void
}

func (c constValue) number() float64 {
	switch c.ty {
	case types.Null:
		return 0
	case types.Undefined, types.Void:
		return math.NaN()
	default:
		return c.v
	}
}

func (c constValue) truthy() bool {
	switch c.ty {
	case types.Undefined, types.Null, types.Void:
		return false
	default:
		return c.v != 0 && !math.IsNaN(c.v)
	}
}

// toInt32 implements the ECMAScript ToInt32 conversion.
func toInt32(v float64) int32 {
	return int32(toUint32(v))
}

func toUint32(v float64) uint32 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	v = math.Trunc(v)
	v = math.Mod(v, 1<<32)
	if v < 0 {
		v += 1 << 32
	}
	return uint32(v)
}

func boolValue(b bool) constValue {
	if b {
		return constValue{ty: types.Bool, v: 1}
	}
	return constValue{ty: types.Bool, v: 0}
}

func numberValue(v float64) constValue {
	return constValue{ty: types.Number, v: v}
}

func strictEqual(l, r constValue) bool {
	if l.nullish() || r.nullish() {
		lu := l.ty == types.Undefined || l.ty == types.Void
		ru := r.ty == types.Undefined || r.ty == types.Void
		return l.nullish() && r.nullish() && lu == ru
	}
	if (l.ty == types.Bool) != (r.ty == types.Bool) {
		return false
	}
	return l.v == r.v
}

func looseEqual(l, r constValue) bool {
	if l.nullish() || r.nullish() {
		return l.nullish() && r.nullish()
	}
	return l.number() == r.number()
}

// foldBinary evaluates op over two constants. ok is false when op is not
// fold-eligible.
func foldBinary(op AluOp, l, r constValue) (constValue, bool) {
	a, b := l.number(), r.number()
	switch op {
	case OpAdd:
		return numberValue(a + b), true
	case OpSub:
		return numberValue(a - b), true
	case OpMul:
		return numberValue(a * b), true
	case OpDiv:
		return numberValue(a / b), true
	case OpMod:
		return numberValue(math.Mod(a, b)), true
	case OpBitAnd:
		return numberValue(float64(toInt32(a) & toInt32(b))), true
	case OpBitOr:
		return numberValue(float64(toInt32(a) | toInt32(b))), true
	case OpBitXor:
		return numberValue(float64(toInt32(a) ^ toInt32(b))), true
	case OpLShift:
		return numberValue(float64(toInt32(a) << (toUint32(b) & 31))), true
	case OpRShift:
		return numberValue(float64(toInt32(a) >> (toUint32(b) & 31))), true
	case OpURShift:
		return numberValue(float64(toUint32(a) >> (toUint32(b) & 31))), true
	case OpGt:
		return boolValue(a > b), true
	case OpLt:
		return boolValue(a < b), true
	case OpGe:
		return boolValue(a >= b), true
	case OpLe:
		return boolValue(a <= b), true
	case OpEqual:
		return boolValue(looseEqual(l, r)), true
	case OpNotEqual:
		return boolValue(!looseEqual(l, r)), true
	case OpStrictEqual:
		return boolValue(strictEqual(l, r)), true
	case OpStrictNotEqual:
		return boolValue(!strictEqual(l, r)), true
	case OpAnd:
		if !l.truthy() {
			return l, true
		}
		return r, true
	case OpOr:
		if l.truthy() {
			return l, true
		}
		return r, true
	default:
		return constValue{}, false
	}
}

// constTag normalizes the tag of a Const node. Numeric tags collapse to
// Number (Bool is kept); tags outside the const set are Invalid.
func constTag(t types.Type) types.Type {
	switch t {
	case types.Undefined, types.Null, types.Void, types.Bool, types.Number:
		return t
	case types.Int, types.Float:
		return types.Number
	default:
		return types.Invalid
	}
}
