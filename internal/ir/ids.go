package ir

type FuncID int32
type BlockID int32
type ExprID int32
type StmtID int32
type ListID int32

// StrID indexes a Function's string pool.
type StrID int32

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
	NoExpr    ExprID  = -1
	NoStmt    StmtID  = -1
	NoList    ListID  = -1
	NoStr     StrID   = -1
)

// EntryName is the reserved name of the module entry function.
const EntryName = "%entry"
