package llvm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"

	"fortio.org/safecast"
	lir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"golang.org/x/text/encoding/unicode"

	"v4c/internal/ir"
	"v4c/internal/trace"
)

const (
	// EntrySymbol is the target name of the module entry function.
	EntrySymbol = "__v4_entry"
	// NativePrefix starts the target name of every other function.
	NativePrefix = "__v4_native_"
)

type Options struct {
	// Runtime defaults to DefaultRuntime.
	Runtime *Runtime
	// Passes is the per-function optimizer pipeline, in order.
	Passes []string
	// Triple is written into the target module when set.
	Triple string
	// Source names the compilation unit in the target module.
	Source string
}

// Selector lowers one IR module at a time to an LLVM module.
type Selector struct {
	rt       *Runtime
	pipeline []Pass
	triple   string
	source   string
	running  atomic.Bool

	// per-run state, rebuilt by Run
	abi      *abi
	mod      *ir.Module
	funcs    map[ir.FuncID]*lir.Func
	names    map[string]ir.FuncID
	utf16    map[string]*lir.Global
	utf8     map[string]*lir.Global
	stats    Stats
	notes    []Note
	parentID uint64
}

// Note is a non-fatal observation made while lowering.
type Note struct {
	Func string
	Msg  string
}

// Stats summarizes one run.
type Stats struct {
	Functions     int
	Blocks        int
	Slots         int
	RemovedSlots  int
	DroppedBlocks int
	RuntimeCalls  map[string]int
}

// Result is the lowered target module.
type Result struct {
	Module *lir.Module
	// Entry is the target function of the module entry point, if any.
	Entry *lir.Func
	Stats Stats
	Notes []Note

	abi *abi
	rt  *Runtime
}

// NewSelector validates the pass pipeline up front so that a bad
// configuration fails before any function is lowered.
func NewSelector(opts Options) (*Selector, error) {
	pipeline, err := ParsePasses(opts.Passes)
	if err != nil {
		return nil, err
	}
	rt := opts.Runtime
	if rt == nil {
		rt = DefaultRuntime()
	}
	return &Selector{
		rt:       rt,
		pipeline: pipeline,
		triple:   opts.Triple,
		source:   opts.Source,
	}, nil
}

// Run lowers every function of m in declaration order. On failure nothing
// of the target module is returned.
func (s *Selector) Run(ctx context.Context, m *ir.Module) (*Result, error) {
	if m == nil {
		return nil, errors.New("nil module")
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, errors.New("selector is already lowering a module")
	}
	defer s.running.Store(false)

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "isel", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")
	s.reset(m)
	s.parentID = span.ID()

	for _, f := range m.Funcs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fspan := trace.Begin(tracer, trace.ScopeFunction, "func:"+f.Name, span.ID())
		err := s.lowerFunction(tracer, f, fspan.ID())
		fspan.WithExtra("temps", strconv.Itoa(int(f.TempCount))).End(errDetail(err))
		if err != nil {
			return nil, err
		}
	}
	res := &Result{
		Module: s.abi.mod,
		Stats:  s.stats,
		Notes:  s.notes,
		abi:    s.abi,
		rt:     s.rt,
	}
	if entry := m.Entry(); entry != nil {
		res.Entry = s.funcs[entry.ID]
	}
	res.Stats.RuntimeCalls = make(map[string]int)
	for _, f := range res.Module.Funcs {
		for name, n := range CountRuntimeCalls(f) {
			res.Stats.RuntimeCalls[name] += n
		}
	}
	span.WithExtra("functions", strconv.Itoa(res.Stats.Functions))
	return res, nil
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *Selector) reset(m *ir.Module) {
	tm := lir.NewModule()
	tm.SourceFilename = s.source
	tm.TargetTriple = s.triple
	s.abi = newABI(tm)
	s.mod = m
	s.funcs = make(map[ir.FuncID]*lir.Func)
	s.names = make(map[string]ir.FuncID)
	s.utf16 = make(map[string]*lir.Global)
	s.utf8 = make(map[string]*lir.Global)
	s.stats = Stats{}
	s.notes = nil
}

// runtimeFunc declares (once) the named runtime entry point in the target
// module.
func (s *Selector) runtimeFunc(name string) (*lir.Func, error) {
	d, ok := s.rt.decls[name]
	if !ok {
		return nil, linkFailure(nil, "runtime entry point %s is not in the ABI", name)
	}
	return s.abi.declare(d), nil
}

// targetName maps an IR function to its symbol.
func (s *Selector) targetName(f *ir.Function) string {
	if f.Name == ir.EntryName {
		return EntrySymbol
	}
	name := f.Name
	if name == "" {
		name = "anon" + strconv.Itoa(int(f.ID))
	}
	sym := NativePrefix + name
	if owner, taken := s.names[sym]; taken && owner != f.ID {
		sym += "_" + strconv.Itoa(int(f.ID))
	}
	s.names[sym] = f.ID
	return sym
}

// funcFor returns the target function of f, creating it on first use.
func (s *Selector) funcFor(f *ir.Function) *lir.Func {
	if tf, ok := s.funcs[f.ID]; ok {
		return tf
	}
	tf := s.abi.mod.NewFunc(s.targetName(f), lltypes.Void, lir.NewParam("ctx", s.abi.ctxPtr))
	s.funcs[f.ID] = tf
	return tf
}

// detach removes a half-lowered function from the target module.
func (s *Selector) detach(f *ir.Function) {
	tf, ok := s.funcs[f.ID]
	if !ok {
		return
	}
	s.abi.mod.Funcs = slices.DeleteFunc(s.abi.mod.Funcs, func(x *lir.Func) bool { return x == tf })
	delete(s.funcs, f.ID)
}

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// utf16Constant returns a pointer to a private UTF-16 copy of str and its
// length in code units.
func (s *Selector) utf16Constant(str string) (constant.Constant, int, error) {
	g, ok := s.utf16[str]
	if !ok {
		raw, err := utf16LE.NewEncoder().String(str)
		if err != nil {
			return nil, 0, fmt.Errorf("encode string constant: %w", err)
		}
		units := make([]constant.Constant, len(raw)/2)
		for i := range units {
			units[i] = constant.NewInt(lltypes.I16, int64(binary.LittleEndian.Uint16([]byte(raw[2*i:]))))
		}
		arr := constant.NewArray(lltypes.NewArray(uint64(len(units)), lltypes.I16), units...)
		g = s.abi.mod.NewGlobalDef(".str."+strconv.Itoa(len(s.utf16)), arr)
		g.Immutable = true
		g.Linkage = enum.LinkagePrivate
		s.utf16[str] = g
	}
	n, err := safecast.Conv[int32](g.ContentType.(*lltypes.ArrayType).Len)
	if err != nil {
		return nil, 0, unsupported("string constant of %d code units", g.ContentType.(*lltypes.ArrayType).Len)
	}
	if n == 0 {
		return constant.NewNull(s.abi.utf16Ptr), 0, nil
	}
	zero := constant.NewInt(lltypes.I32, 0)
	return constant.NewGetElementPtr(g.ContentType, g, zero, zero), int(n), nil
}

// utf8Constant returns a pointer to a private NUL-terminated copy of name.
func (s *Selector) utf8Constant(name string) constant.Constant {
	g, ok := s.utf8[name]
	if !ok {
		g = s.abi.mod.NewGlobalDef(".id."+strconv.Itoa(len(s.utf8)), constant.NewCharArrayFromString(name+"\x00"))
		g.Immutable = true
		g.Linkage = enum.LinkagePrivate
		s.utf8[name] = g
	}
	zero := constant.NewInt(lltypes.I32, 0)
	return constant.NewGetElementPtr(g.ContentType, g, zero, zero)
}

// AddHostMain appends "i32 main()" which creates a context, runs the entry
// point and returns the context's exit status.
func (r *Result) AddHostMain() error {
	if r.Entry == nil {
		return linkFailure(nil, "module has no %s function", ir.EntryName)
	}
	for _, f := range r.Module.Funcs {
		if f.Name() == "main" {
			return linkFailure(nil, "module already defines main")
		}
	}
	create := r.abi.declare(r.rt.decls[RuntimePrefix+"context_create"])
	finish := r.abi.declare(r.rt.decls[RuntimePrefix+"context_finish"])
	main := r.Module.NewFunc("main", lltypes.I32)
	b := main.NewBlock("")
	ctx := b.NewCall(create)
	b.NewCall(r.Entry, ctx)
	b.NewRet(b.NewCall(finish, ctx))
	return nil
}

// String renders the target module as textual LLVM IR.
func (r *Result) String() string { return r.Module.String() }
