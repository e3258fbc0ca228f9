package ir

import "math/bits"

// BitVector is a fixed-size set of temp indices.
type BitVector []uint64

func NewBitVector(n int) BitVector {
	return make(BitVector, (n+63)/64)
}

func (v BitVector) Set(i int) {
	if i >= 0 && i/64 < len(v) {
		v[i/64] |= 1 << (uint(i) % 64)
	}
}

func (v BitVector) Has(i int) bool {
	return i >= 0 && i/64 < len(v) && v[i/64]&(1<<(uint(i)%64)) != 0
}

// Union merges o into v and reports whether v changed.
func (v BitVector) Union(o BitVector) bool {
	changed := false
	for i := range v {
		if i >= len(o) {
			break
		}
		next := v[i] | o[i]
		if next != v[i] {
			v[i] = next
			changed = true
		}
	}
	return changed
}

func (v BitVector) Len() int {
	n := 0
	for _, w := range v {
		n += bits.OnesCount64(w)
	}
	return n
}

// Indices lists the members in increasing order.
func (v BitVector) Indices() []int {
	var out []int
	for i, w := range v {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			out = append(out, i*64+tz)
			w &= w - 1
		}
	}
	return out
}

// LinkEdges rebuilds predecessor and successor lists from block terminators.
func (f *Function) LinkEdges() {
	for _, b := range f.Blocks {
		b.Preds = b.Preds[:0]
		b.Succs = b.Succs[:0]
	}
	for _, b := range f.Blocks {
		for _, succ := range b.Terminator().Successors() {
			target := f.Block(succ)
			if target == nil {
				continue
			}
			b.Succs = append(b.Succs, succ)
			target.Preds = append(target.Preds, b.Index)
		}
	}
}

// ComputeLiveness fills LiveIn/LiveOut of every block over non-negative
// temps. Edges are linked first.
func (f *Function) ComputeLiveness() {
	f.LinkEdges()
	n := int(f.TempCount)
	a := &f.mod.Arena
	gen := make([]BitVector, len(f.Blocks))
	kill := make([]BitVector, len(f.Blocks))
	for i, b := range f.Blocks {
		gen[i], kill[i] = NewBitVector(n), NewBitVector(n)
		use := func(id ExprID) {
			a.Walk(id, func(_ ExprID, e *Expr) bool {
				if e.Kind == ExprTemp && !e.Temp.IsParam() && !kill[i].Has(int(e.Temp.Index)) {
					gen[i].Set(int(e.Temp.Index))
				}
				return true
			})
		}
		for _, sid := range b.Stmts {
			s := a.Stmt(sid)
			switch s.Kind {
			case StmtExp:
				use(s.Exp.Expr)
			case StmtEnter:
				use(s.Enter.Expr)
			case StmtCJump:
				use(s.CJump.Cond)
			case StmtRet:
				use(s.Ret.Expr)
			case StmtMove:
				use(s.Move.Source)
				t := a.Expr(s.Move.Target)
				if t.Kind != ExprTemp {
					use(s.Move.Target)
					continue
				}
				if t.Temp.IsParam() {
					continue
				}
				if s.Move.Op != OpInvalid {
					use(s.Move.Target)
				}
				kill[i].Set(int(t.Temp.Index))
			}
		}
		b.LiveIn, b.LiveOut = NewBitVector(n), NewBitVector(n)
	}

	for changed := true; changed; {
		changed = false
		for i := len(f.Blocks) - 1; i >= 0; i-- {
			b := f.Blocks[i]
			for _, succ := range b.Succs {
				if b.LiveOut.Union(f.Blocks[succ].LiveIn) {
					changed = true
				}
			}
			in := NewBitVector(n)
			copy(in, b.LiveOut)
			for w := range in {
				in[w] &^= kill[i][w]
				in[w] |= gen[i][w]
			}
			if b.LiveIn.Union(in) {
				changed = true
			}
		}
	}
}
