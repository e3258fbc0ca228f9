package testkit

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"
	lir "github.com/llir/llvm/ir"

	"v4c/internal/backend/llvm"
	"v4c/internal/ir"
)

// CheckLowered runs the structural invariants every successful lowering of
// m must satisfy:
// 1) each IR function has exactly one defined target function
// 2) every defined target function verifies
// 3) every target function opens with the prologue block and adds no other
//    block to those of its IR source
// 4) Result.Entry is set exactly when m has an entry function
func CheckLowered(m *ir.Module, res *llvm.Result) error {
	if m == nil || res == nil || res.Module == nil {
		return errors.New("nil module or result")
	}
	defined := make(map[string]*lir.Func)
	for _, f := range res.Module.Funcs {
		if len(f.Blocks) == 0 || f.Name() == "main" {
			continue
		}
		if !strings.HasPrefix(f.Name(), llvm.EntrySymbol) && !strings.HasPrefix(f.Name(), llvm.NativePrefix) {
			return fmt.Errorf("unexpected definition %s", f.Name())
		}
		defined[f.Name()] = f
	}
	if len(defined) != len(m.Funcs) {
		return fmt.Errorf("%d target functions for %d IR functions", len(defined), len(m.Funcs))
	}

	var errs []error
	for _, f := range m.Funcs {
		tf := defined[symbolOf(f)]
		if tf == nil {
			errs = append(errs, fmt.Errorf("function %s: no target function %s", f.Name, symbolOf(f)))
			continue
		}
		if err := llvm.Verify(tf); err != nil {
			errs = append(errs, err)
		}
		n, err := safecast.Conv[int32](len(tf.Blocks))
		if err != nil {
			errs = append(errs, fmt.Errorf("function %s: block count: %w", f.Name, err))
			continue
		}
		if int(n) > len(f.Blocks)+1 {
			errs = append(errs, fmt.Errorf("function %s: %d target blocks for %d IR blocks", f.Name, n, len(f.Blocks)))
		}
		if n == 0 || tf.Blocks[0].Name() != prologueName {
			errs = append(errs, fmt.Errorf("function %s: entry block is not the prologue", f.Name))
		}
	}
	if (m.Entry() != nil) != (res.Entry != nil) {
		errs = append(errs, fmt.Errorf("entry mismatch: ir=%v target=%v", m.Entry() != nil, res.Entry != nil))
	}
	return errors.Join(errs...)
}

const prologueName = "prologue"

// symbolOf mirrors the selector's naming for modules without name clashes.
func symbolOf(f *ir.Function) string {
	switch f.Name {
	case ir.EntryName:
		return llvm.EntrySymbol
	case "":
		return fmt.Sprintf("%sanon%d", llvm.NativePrefix, f.ID)
	default:
		return llvm.NativePrefix + f.Name
	}
}
