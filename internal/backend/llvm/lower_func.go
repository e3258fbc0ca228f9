package llvm

import (
	"errors"
	"fmt"

	lir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"v4c/internal/ir"
	"v4c/internal/trace"
)

type loweringState uint8

const (
	stateNotStarted loweringState = iota
	stateBlocksCreated
	stateSlotsDeclared
	stateLowering
	stateVerified
	stateOptimized
	stateDone
)

func (st loweringState) String() string {
	switch st {
	case stateNotStarted:
		return "not-started"
	case stateBlocksCreated:
		return "blocks-created"
	case stateSlotsDeclared:
		return "slots-declared"
	case stateLowering:
		return "lowering"
	case stateVerified:
		return "verified"
	case stateOptimized:
		return "optimized"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// funcLowering is the state of lowering one function. It is owned by a
// single lowerFunction call.
type funcLowering struct {
	sel   *Selector
	fn    *ir.Function
	arena *ir.Arena
	state loweringState

	target   *lir.Func
	ctx      value.Value
	prologue *lir.Block
	blocks   []*lir.Block
	temps    []*lir.InstAlloca
	scalars  []*lir.InstAlloca // zero-initialised in the prologue
	cur      *lir.Block
}

func (fl *funcLowering) advance(next loweringState) error {
	if next != fl.state+1 {
		return unsupported("lowering state %s cannot move to %s", fl.state, next)
	}
	fl.state = next
	return nil
}

func (s *Selector) lowerFunction(tracer trace.Tracer, f *ir.Function, parent uint64) (err error) {
	fl := &funcLowering{
		sel:    s,
		fn:     f,
		arena:  &s.mod.Arena,
		target: s.funcFor(f),
	}
	defer func() {
		if err == nil {
			return
		}
		s.detach(f)
		var e *Error
		if errors.As(err, &e) && e.Func == "" {
			e.Func = f.Name
		}
	}()

	if len(fl.target.Blocks) > 0 {
		return unsupported("function lowered twice")
	}
	fl.ctx = fl.target.Params[0]

	// Blocks first so that forward branches resolve.
	fl.prologue = fl.target.NewBlock("prologue")
	for _, b := range f.Blocks {
		fl.blocks = append(fl.blocks, fl.target.NewBlock(fmt.Sprintf("L%d", b.Index)))
	}
	if len(fl.blocks) == 0 {
		return unsupported("function has no blocks")
	}
	if err := fl.advance(stateBlocksCreated); err != nil {
		return err
	}

	fl.temps = make([]*lir.InstAlloca, f.TempCount)
	for i := range fl.temps {
		fl.temps[i] = fl.slot()
	}
	if err := fl.advance(stateSlotsDeclared); err != nil {
		return err
	}

	if err := fl.advance(stateLowering); err != nil {
		return err
	}
	for i, b := range f.Blocks {
		fl.cur = fl.blocks[i]
		for _, sid := range b.Stmts {
			if err := fl.stmt(fl.arena.Stmt(sid)); err != nil {
				return atBlock(err, b.Index)
			}
			if tracer.Level().ShouldEmit(trace.ScopeStmt) {
				trace.Point(tracer, trace.ScopeStmt, "stmt", fl.arena.Stmt(sid).Kind.String(), parent)
			}
		}
		if fl.cur.Term == nil {
			return unsupported("L%d has no terminator", b.Index)
		}
	}
	if err := fl.finishPrologue(); err != nil {
		return err
	}

	if err := Verify(fl.target); err != nil {
		return err
	}
	if err := fl.advance(stateVerified); err != nil {
		return err
	}

	for _, p := range s.pipeline {
		res := p.Run(fl.target)
		s.stats.RemovedSlots += res.RemovedSlots
		s.stats.DroppedBlocks += res.DroppedBlocks
		if res.DroppedBlocks > 0 {
			s.notes = append(s.notes, Note{Func: f.Name, Msg: fmt.Sprintf("%s dropped %d unreachable block(s)", p.Name(), res.DroppedBlocks)})
		}
	}
	if err := fl.advance(stateOptimized); err != nil {
		return err
	}

	s.stats.Functions++
	s.stats.Blocks += len(fl.target.Blocks)
	s.stats.Slots += len(fl.scalars)
	return fl.advance(stateDone)
}

// slot declares a zero-initialised Value slot in the prologue.
func (fl *funcLowering) slot() *lir.InstAlloca {
	a := fl.prologue.NewAlloca(fl.sel.abi.value)
	fl.scalars = append(fl.scalars, a)
	return a
}

// argArray declares an n-element argument array in the prologue.
func (fl *funcLowering) argArray(n int) *lir.InstAlloca {
	a := fl.prologue.NewAlloca(fl.sel.abi.value)
	a.NElems = i32(n)
	return a
}

// finishPrologue zeroes every scalar slot, initialises this and branches
// to the first IR block. Slots are declared lazily during lowering, so the
// prologue only gets its stores once lowering is over.
func (fl *funcLowering) finishPrologue() error {
	zero := constant.NewZeroInitializer(fl.sel.abi.value)
	for _, a := range fl.scalars {
		fl.prologue.NewStore(zero, a)
	}
	initThis, err := fl.sel.runtimeFunc(RuntimePrefix + "init_this_object")
	if err != nil {
		return err
	}
	fl.prologue.NewCall(initThis, fl.ctx)
	fl.prologue.NewBr(fl.blocks[0])
	return nil
}

// call emits a runtime call in the current block. The context argument is
// prepended.
func (fl *funcLowering) call(name string, args ...value.Value) (*lir.InstCall, error) {
	callee, err := fl.sel.runtimeFunc(RuntimePrefix + name)
	if err != nil {
		return nil, err
	}
	return fl.cur.NewCall(callee, append([]value.Value{fl.ctx}, args...)...), nil
}

func (fl *funcLowering) block(id ir.BlockID) (*lir.Block, error) {
	if id < 0 || int(id) >= len(fl.blocks) {
		return nil, unsupported("branch to missing block L%d", id)
	}
	return fl.blocks[id], nil
}

// atBlock prefixes err with the IR block it came from.
func atBlock(err error, idx ir.BlockID) error {
	var e *Error
	if errors.As(err, &e) {
		e.Msg = fmt.Sprintf("L%d: %s", idx, e.Msg)
		return err
	}
	return &Error{Kind: ErrUnsupportedIRShape, Msg: fmt.Sprintf("L%d", idx), Err: err}
}

func i32(n int) constant.Constant {
	return constant.NewInt(lltypes.I32, int64(n))
}
