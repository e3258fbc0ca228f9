package ir

const chunkSize = 256

// chunked stores values in fixed-size chunks so that pointers handed out by
// at stay valid while the store grows.
type chunked[T any] struct {
	chunks [][]T
	n      int
}

func (c *chunked[T]) alloc() (int, *T) {
	idx := c.n
	if idx%chunkSize == 0 {
		c.chunks = append(c.chunks, make([]T, chunkSize))
	}
	c.n++
	return idx, &c.chunks[idx/chunkSize][idx%chunkSize]
}

func (c *chunked[T]) at(idx int) *T {
	if idx < 0 || idx >= c.n {
		return nil
	}
	return &c.chunks[idx/chunkSize][idx%chunkSize]
}

func (c *chunked[T]) len() int { return c.n }

// ExprList is one cell of a singly linked argument list.
type ExprList struct {
	Expr ExprID
	Next ListID
}

// Arena owns every Expr, Stmt and ExprList of a Module. Nodes are never
// freed individually; the whole arena goes away with its Module.
type Arena struct {
	exprs chunked[Expr]
	stmts chunked[Stmt]
	lists chunked[ExprList]
}

func (a *Arena) newExpr(e Expr) ExprID {
	idx, slot := a.exprs.alloc()
	*slot = e
	return ExprID(idx)
}

func (a *Arena) newStmt(s Stmt) StmtID {
	idx, slot := a.stmts.alloc()
	*slot = s
	return StmtID(idx)
}

func (a *Arena) newList(exprs []ExprID) ListID {
	head := NoList
	for i := len(exprs) - 1; i >= 0; i-- {
		idx, slot := a.lists.alloc()
		*slot = ExprList{Expr: exprs[i], Next: head}
		head = ListID(idx)
	}
	return head
}

// Expr returns the node for id, or nil when id is out of range.
func (a *Arena) Expr(id ExprID) *Expr { return a.exprs.at(int(id)) }

// Stmt returns the node for id, or nil when id is out of range.
func (a *Arena) Stmt(id StmtID) *Stmt { return a.stmts.at(int(id)) }

// List returns the list cell for id, or nil when id is NoList.
func (a *Arena) List(id ListID) *ExprList { return a.lists.at(int(id)) }

// Args flattens the list starting at head.
func (a *Arena) Args(head ListID) []ExprID {
	var out []ExprID
	for cell := a.List(head); cell != nil; cell = a.List(cell.Next) {
		out = append(out, cell.Expr)
	}
	return out
}

// Counts reports how many nodes of each class the arena holds.
func (a *Arena) Counts() (exprs, stmts, lists int) {
	return a.exprs.len(), a.stmts.len(), a.lists.len()
}
