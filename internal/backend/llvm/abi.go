package llvm

import (
	"strconv"

	lir "github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"
)

// abi holds the target-side type handles of one target module and the
// runtime entry points declared in it so far.
type abi struct {
	mod *lir.Module

	value    lltypes.Type // %Value = type { i64 }
	valuePtr *lltypes.PointerType
	ctx      lltypes.Type // %ExecutionContext = type opaque
	ctxPtr   *lltypes.PointerType
	str      lltypes.Type // %String = type opaque
	strPtr   *lltypes.PointerType
	native   *lltypes.FuncType // void (%ExecutionContext*)
	utf16Ptr *lltypes.PointerType
	utf8Ptr  *lltypes.PointerType

	declared map[string]*lir.Func
}

func newABI(m *lir.Module) *abi {
	a := &abi{mod: m, declared: make(map[string]*lir.Func)}
	a.value = m.NewTypeDef("Value", lltypes.NewStruct(lltypes.I64))
	a.valuePtr = lltypes.NewPointer(a.value)
	a.ctx = m.NewTypeDef("ExecutionContext", &lltypes.StructType{Opaque: true})
	a.ctxPtr = lltypes.NewPointer(a.ctx)
	a.str = m.NewTypeDef("String", &lltypes.StructType{Opaque: true})
	a.strPtr = lltypes.NewPointer(a.str)
	a.native = lltypes.NewFunc(lltypes.Void, a.ctxPtr)
	a.utf16Ptr = lltypes.NewPointer(lltypes.I16)
	a.utf8Ptr = lltypes.NewPointer(lltypes.I8)
	return a
}

func (a *abi) typeOf(k abiKind) lltypes.Type {
	switch k {
	case kCtx:
		return a.ctxPtr
	case kValue:
		return a.valuePtr
	case kString:
		return a.strPtr
	case kI1:
		return lltypes.I1
	case kI32:
		return lltypes.I32
	case kDouble:
		return lltypes.Double
	case kUTF16:
		return a.utf16Ptr
	case kUTF8:
		return a.utf8Ptr
	case kNative:
		return lltypes.NewPointer(a.native)
	default:
		return lltypes.Void
	}
}

func (a *abi) signature(d builtinDecl) *lltypes.FuncType {
	params := make([]lltypes.Type, len(d.params))
	for i, p := range d.params {
		params[i] = a.typeOf(p)
	}
	return lltypes.NewFunc(a.typeOf(d.ret), params...)
}

// declare adds (once) a body-less declaration of d to the target module.
func (a *abi) declare(d builtinDecl) *lir.Func {
	if f, ok := a.declared[d.name]; ok {
		return f
	}
	params := make([]*lir.Param, len(d.params))
	for i, p := range d.params {
		params[i] = lir.NewParam("p"+strconv.Itoa(i), a.typeOf(p))
	}
	f := a.mod.NewFunc(d.name, a.typeOf(d.ret), params...)
	a.declared[d.name] = f
	return f
}
