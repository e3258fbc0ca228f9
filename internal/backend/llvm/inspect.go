package llvm

import (
	"strings"

	lir "github.com/llir/llvm/ir"
)

// CountRuntimeCalls counts the calls f makes to each runtime entry point.
func CountRuntimeCalls(f *lir.Func) map[string]int {
	counts := make(map[string]int)
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			call, ok := inst.(*lir.InstCall)
			if !ok {
				continue
			}
			callee, ok := call.Callee.(*lir.Func)
			if !ok {
				continue
			}
			if name := callee.Name(); strings.HasPrefix(name, RuntimePrefix) {
				counts[name]++
			}
		}
	}
	return counts
}

// FindFunc returns the function of m named name.
func FindFunc(m *lir.Module, name string) *lir.Func {
	for _, f := range m.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}
