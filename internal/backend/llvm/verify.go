package llvm

import (
	"errors"
	"fmt"

	lir "github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

type successors interface {
	Succs() []*lir.Block
}

// Verify checks the structural well-formedness of a lowered function:
// every block is terminated, branches stay inside the function, stack
// slots live in the entry block, and calls, loads and stores are type
// consistent. All problems are reported together.
func Verify(f *lir.Func) error {
	if f == nil {
		return &Error{Kind: ErrVerifyFailure, Msg: "nil function"}
	}
	if len(f.Blocks) == 0 {
		return &Error{Kind: ErrVerifyFailure, Msg: fmt.Sprintf("%s has no body", f.Name())}
	}
	own := make(map[*lir.Block]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		own[b] = true
	}

	var errs []error
	report := func(b *lir.Block, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", blockName(b), fmt.Sprintf(format, args...)))
	}
	for i, b := range f.Blocks {
		for _, inst := range b.Insts {
			switch in := inst.(type) {
			case *lir.InstAlloca:
				if i != 0 {
					report(b, "alloca outside the entry block")
				}
			case *lir.InstCall:
				if msg := checkCall(in.Callee, in.Args); msg != "" {
					report(b, "%s", msg)
				}
			case *lir.InstStore:
				if !pointsTo(in.Dst.Type(), in.Src.Type()) {
					report(b, "store of %s through %s", in.Src.Type(), in.Dst.Type())
				}
			case *lir.InstLoad:
				if !pointsTo(in.Src.Type(), in.ElemType) {
					report(b, "load of %s from %s", in.ElemType, in.Src.Type())
				}
			}
		}
		if b.Term == nil {
			report(b, "missing terminator")
			continue
		}
		if ret, ok := b.Term.(*lir.TermRet); ok {
			want := f.Sig.RetType
			switch {
			case ret.X == nil && !want.Equal(lltypes.Void):
				report(b, "ret void from a function returning %s", want)
			case ret.X != nil && ret.X.Type().String() != want.String():
				report(b, "ret %s from a function returning %s", ret.X.Type(), want)
			}
		}
		if s, ok := b.Term.(successors); ok {
			for _, succ := range s.Succs() {
				if !own[succ] {
					report(b, "branch to a block of another function")
				}
			}
		}
	}
	if len(errs) > 0 {
		return &Error{Kind: ErrVerifyFailure, Msg: f.Name(), Err: errors.Join(errs...)}
	}
	return nil
}

func checkCall(callee value.Value, args []value.Value) string {
	ptr, ok := callee.Type().(*lltypes.PointerType)
	if !ok {
		return fmt.Sprintf("call through non-pointer %s", callee.Type())
	}
	sig, ok := ptr.ElemType.(*lltypes.FuncType)
	if !ok {
		return fmt.Sprintf("call through %s", callee.Type())
	}
	name := callee.Ident()
	if len(args) != len(sig.Params) && !(sig.Variadic && len(args) > len(sig.Params)) {
		return fmt.Sprintf("call to %s with %d argument(s), want %d", name, len(args), len(sig.Params))
	}
	for i, p := range sig.Params {
		if args[i].Type().String() != p.String() {
			return fmt.Sprintf("call to %s: argument %d is %s, want %s", name, i, args[i].Type(), p)
		}
	}
	return ""
}

func pointsTo(ptr, elem lltypes.Type) bool {
	p, ok := ptr.(*lltypes.PointerType)
	return ok && p.ElemType.String() == elem.String()
}

func blockName(b *lir.Block) string {
	if b.LocalName != "" {
		return b.LocalName
	}
	return b.Ident()
}
