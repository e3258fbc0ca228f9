package llvm

import (
	"fmt"
	"slices"
	"strings"

	lir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// PassResult reports what a pass removed.
type PassResult struct {
	RemovedSlots  int
	DroppedBlocks int
}

// Pass is a per-function cleanup run on verified target code.
type Pass interface {
	Name() string
	Run(f *lir.Func) PassResult
}

// DefaultPasses is the pipeline used when none is configured.
var DefaultPasses = []string{"unreachable", "dead-slot"}

var passRegistry = map[string]func() Pass{
	"dead-slot":   func() Pass { return deadSlots{} },
	"unreachable": func() Pass { return unreachableBlocks{} },
}

// PassNames lists the registered passes, sorted.
func PassNames() []string {
	names := make([]string, 0, len(passRegistry))
	for name := range passRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParsePasses resolves a pipeline by name.
func ParsePasses(names []string) ([]Pass, error) {
	pipeline := make([]Pass, 0, len(names))
	for _, name := range names {
		mk, ok := passRegistry[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown pass %q (known: %s)", name, strings.Join(PassNames(), ", "))
		}
		pipeline = append(pipeline, mk())
	}
	return pipeline, nil
}

type operandUser interface {
	Operands() []*value.Value
}

// deadSlots removes entry-block slots that are only ever stored to.
type deadSlots struct{}

func (deadSlots) Name() string { return "dead-slot" }

func (deadSlots) Run(f *lir.Func) PassResult {
	if len(f.Blocks) == 0 {
		return PassResult{}
	}
	live := make(map[value.Value]bool)
	mark := func(u any, skipStoreDst bool) {
		if st, ok := u.(*lir.InstStore); ok && skipStoreDst {
			live[st.Src] = true
			return
		}
		if ou, ok := u.(operandUser); ok {
			for _, op := range ou.Operands() {
				live[*op] = true
			}
		}
	}
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			mark(inst, true)
		}
		if b.Term != nil {
			mark(b.Term, false)
		}
	}

	dead := make(map[value.Value]bool)
	entry := f.Blocks[0]
	for _, inst := range entry.Insts {
		if a, ok := inst.(*lir.InstAlloca); ok && !live[a] {
			dead[a] = true
		}
	}
	if len(dead) == 0 {
		return PassResult{}
	}
	for _, b := range f.Blocks {
		b.Insts = slices.DeleteFunc(b.Insts, func(inst lir.Instruction) bool {
			switch in := inst.(type) {
			case *lir.InstAlloca:
				return dead[in]
			case *lir.InstStore:
				return dead[in.Dst]
			}
			return false
		})
	}
	return PassResult{RemovedSlots: len(dead)}
}

// unreachableBlocks drops blocks the entry block cannot reach.
type unreachableBlocks struct{}

func (unreachableBlocks) Name() string { return "unreachable" }

func (unreachableBlocks) Run(f *lir.Func) PassResult {
	if len(f.Blocks) == 0 {
		return PassResult{}
	}
	seen := map[*lir.Block]bool{f.Blocks[0]: true}
	work := []*lir.Block{f.Blocks[0]}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		s, ok := b.Term.(successors)
		if !ok {
			continue
		}
		for _, succ := range s.Succs() {
			if !seen[succ] {
				seen[succ] = true
				work = append(work, succ)
			}
		}
	}
	before := len(f.Blocks)
	f.Blocks = slices.DeleteFunc(f.Blocks, func(b *lir.Block) bool { return !seen[b] })
	return PassResult{DroppedBlocks: before - len(f.Blocks)}
}
