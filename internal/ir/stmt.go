package ir

import "v4c/internal/types"

type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtExp
	StmtEnter
	StmtLeave
	StmtMove
	StmtJump
	StmtCJump
	StmtRet
)

func (k StmtKind) String() string {
	switch k {
	case StmtExp:
		return "exp"
	case StmtEnter:
		return "enter"
	case StmtLeave:
		return "leave"
	case StmtMove:
		return "move"
	case StmtJump:
		return "jump"
	case StmtCJump:
		return "cjump"
	case StmtRet:
		return "ret"
	default:
		return "invalid"
	}
}

type Stmt struct {
	Kind StmtKind

	Exp   ExpStmt
	Enter EnterStmt
	Move  MoveStmt
	Jump  JumpStmt
	CJump CJumpStmt
	Ret   RetStmt
}

type ExpStmt struct {
	Expr ExprID
}

type EnterStmt struct {
	Expr ExprID
}

// MoveStmt assigns Source to Target. A non-invalid Op turns it into a
// read-modify-write (target op= source).
type MoveStmt struct {
	Target    ExprID
	Source    ExprID
	Op        AluOp
	ForReturn bool
}

type JumpStmt struct {
	Target BlockID
}

type CJumpStmt struct {
	Cond  ExprID
	True  BlockID
	False BlockID
}

type RetStmt struct {
	Expr   ExprID
	Type   types.Type
	Line   uint32
	Column uint32
}

// IsTerminator reports whether s transfers control out of its block.
func (s *Stmt) IsTerminator() bool {
	if s == nil {
		return false
	}
	switch s.Kind {
	case StmtJump, StmtCJump, StmtRet:
		return true
	default:
		return false
	}
}

// Successors lists the blocks a terminator may transfer to.
func (s *Stmt) Successors() []BlockID {
	if s == nil {
		return nil
	}
	switch s.Kind {
	case StmtJump:
		return []BlockID{s.Jump.Target}
	case StmtCJump:
		if s.CJump.True == s.CJump.False {
			return []BlockID{s.CJump.True}
		}
		return []BlockID{s.CJump.True, s.CJump.False}
	default:
		return nil
	}
}
