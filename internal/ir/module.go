package ir

// Module is one compilation unit: an arena plus its functions in
// declaration order.
type Module struct {
	Arena
	Funcs []*Function
}

func NewModule() *Module {
	return &Module{}
}

// NewFunction creates and registers a function. The module keeps ownership;
// the returned handle stays valid for the module's lifetime.
func (m *Module) NewFunction(name string) *Function {
	f := &Function{
		mod:      m,
		ID:       FuncID(len(m.Funcs)),
		Name:     name,
		strIndex: make(map[string]StrID),
	}
	m.Funcs = append(m.Funcs, f)
	return f
}

// Func returns the function with the given id, or nil.
func (m *Module) Func(id FuncID) *Function {
	if id < 0 || int(id) >= len(m.Funcs) {
		return nil
	}
	return m.Funcs[id]
}

// Entry returns the function carrying EntryName, or nil.
func (m *Module) Entry() *Function {
	for _, f := range m.Funcs {
		if f.Name == EntryName {
			return f
		}
	}
	return nil
}

// Function owns an ordered list of blocks (the first is the entry block), a
// temp counter and a string pool.
type Function struct {
	mod *Module

	ID     FuncID
	Name   string
	Blocks []*BasicBlock

	// TempCount is the number of allocated non-negative temps.
	TempCount int32

	Formals []StrID
	Locals  []StrID

	UsesDirectEval      bool
	UsesArgumentsObject bool
	IsStrict            bool

	strings  []string
	strIndex map[string]StrID
}

func (f *Function) Module() *Module { return f.mod }

// NewBasicBlock appends a fresh block to f.
func (f *Function) NewBasicBlock() *BasicBlock {
	b := &BasicBlock{
		fn:    f,
		Index: BlockID(len(f.Blocks)),
	}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Block returns the block with the given index, or nil.
func (f *Function) Block(id BlockID) *BasicBlock {
	if id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return f.Blocks[id]
}

// NewTemp reserves the next temp index. Indices are never reused.
func (f *Function) NewTemp() int32 {
	idx := f.TempCount
	f.TempCount++
	return idx
}

// Intern adds s to the string pool.
func (f *Function) Intern(s string) StrID {
	if id, ok := f.strIndex[s]; ok {
		return id
	}
	id := StrID(len(f.strings))
	f.strings = append(f.strings, s)
	f.strIndex[s] = id
	return id
}

// Str resolves a pool id; unknown ids resolve to "".
func (f *Function) Str(id StrID) string {
	if id < 0 || int(id) >= len(f.strings) {
		return ""
	}
	return f.strings[id]
}

// Strings returns the pool in id order.
func (f *Function) Strings() []string { return f.strings }

// AddFormal declares the next formal parameter and returns its ordinal.
func (f *Function) AddFormal(name string) int {
	f.Formals = append(f.Formals, f.Intern(name))
	return len(f.Formals) - 1
}

func (f *Function) AddLocal(name string) {
	f.Locals = append(f.Locals, f.Intern(name))
}

// BasicBlock holds an ordered statement list ending in at most one
// terminator.
type BasicBlock struct {
	fn *Function

	Index BlockID
	Stmts []StmtID

	Preds []BlockID
	Succs []BlockID

	LiveIn  BitVector
	LiveOut BitVector
}

func (b *BasicBlock) Function() *Function { return b.fn }

func (b *BasicBlock) arena() *Arena { return &b.fn.mod.Arena }

// Terminator returns the block's last statement when it is a terminator.
func (b *BasicBlock) Terminator() *Stmt {
	if b == nil || len(b.Stmts) == 0 {
		return nil
	}
	s := b.arena().Stmt(b.Stmts[len(b.Stmts)-1])
	if !s.IsTerminator() {
		return nil
	}
	return s
}

func (b *BasicBlock) IsTerminated() bool {
	return b.Terminator() != nil
}
