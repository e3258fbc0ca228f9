package ir

import (
	"errors"
	"fmt"
)

// Validate checks module invariants the instruction selector relies on.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	entries := 0
	for _, f := range m.Funcs {
		if f.Name == EntryName {
			entries++
		}
		if err := validateFunc(m, f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", displayName(f), err))
		}
	}
	if entries > 1 {
		errs = append(errs, fmt.Errorf("%d functions named %s", entries, EntryName))
	}
	return errors.Join(errs...)
}

func displayName(f *Function) string {
	if f.Name == "" {
		return fmt.Sprintf("#%d", f.ID)
	}
	return f.Name
}

func validateFunc(m *Module, f *Function) error {
	var errs []error
	if len(f.Blocks) == 0 {
		errs = append(errs, errors.New("no blocks"))
	}
	for _, b := range f.Blocks {
		if !b.IsTerminated() {
			errs = append(errs, fmt.Errorf("L%d: unterminated block", b.Index))
		}
		for i, sid := range b.Stmts {
			s := m.Stmt(sid)
			if s == nil {
				errs = append(errs, fmt.Errorf("L%d: dangling statement %d", b.Index, sid))
				continue
			}
			if s.IsTerminator() && i != len(b.Stmts)-1 {
				errs = append(errs, fmt.Errorf("L%d: terminator before end of block", b.Index))
			}
			if err := validateStmt(m, f, s); err != nil {
				errs = append(errs, fmt.Errorf("L%d: %s: %w", b.Index, s.Kind, err))
			}
		}
	}
	return errors.Join(errs...)
}

func validateStmt(m *Module, f *Function, s *Stmt) error {
	checkTarget := func(id BlockID) error {
		if f.Block(id) == nil {
			return fmt.Errorf("branch to missing block L%d", id)
		}
		return nil
	}
	switch s.Kind {
	case StmtExp:
		return validateExpr(m, f, s.Exp.Expr)
	case StmtEnter:
		return validateExpr(m, f, s.Enter.Expr)
	case StmtLeave:
		return nil
	case StmtMove:
		if !m.Expr(s.Move.Target).IsLValue() {
			return errors.New("move target is not assignable")
		}
		if s.Move.Op != OpInvalid && !s.Move.Op.Fusable() {
			return fmt.Errorf("operator %s cannot be compound", s.Move.Op)
		}
		return errors.Join(validateExpr(m, f, s.Move.Target), validateExpr(m, f, s.Move.Source))
	case StmtJump:
		return checkTarget(s.Jump.Target)
	case StmtCJump:
		return errors.Join(
			validateExpr(m, f, s.CJump.Cond),
			checkTarget(s.CJump.True),
			checkTarget(s.CJump.False),
		)
	case StmtRet:
		if s.Ret.Expr == NoExpr {
			return nil
		}
		if e := m.Expr(s.Ret.Expr); e == nil || e.Kind != ExprTemp {
			return errors.New("return operand must be a temp")
		}
		return validateExpr(m, f, s.Ret.Expr)
	default:
		return fmt.Errorf("unknown statement kind %d", s.Kind)
	}
}

func validateExpr(m *Module, f *Function, root ExprID) error {
	if m.Expr(root) == nil {
		return fmt.Errorf("missing expression %d", root)
	}
	var errs []error
	m.Walk(root, func(id ExprID, e *Expr) bool {
		if e.Owner != f.ID {
			errs = append(errs, fmt.Errorf("%s expression %d belongs to function %d", e.Kind, id, e.Owner))
			return false
		}
		switch e.Kind {
		case ExprTemp:
			if e.Temp.IsParam() {
				if e.Temp.Ordinal() >= len(f.Formals) {
					errs = append(errs, fmt.Errorf("parameter %d out of range (%d formals)", e.Temp.Ordinal(), len(f.Formals)))
				}
			} else if e.Temp.Index >= f.TempCount {
				errs = append(errs, fmt.Errorf("temp t%d out of range (%d temps)", e.Temp.Index, f.TempCount))
			}
		case ExprName:
			if e.Name.ID == NoStr && e.Name.Builtin.Arity() < 0 {
				errs = append(errs, fmt.Errorf("name %d has neither a string nor an intrinsic", id))
			}
		case ExprClosure:
			if m.Func(e.Closure.Func) == nil {
				errs = append(errs, fmt.Errorf("closure over missing function %d", e.Closure.Func))
			}
		case ExprBinop:
			if !e.Binop.Op.IsBinary() {
				errs = append(errs, fmt.Errorf("binop %d carries unary operator %s", id, e.Binop.Op))
			}
			if e.Binop.Op.IsLogical() {
				errs = append(errs, fmt.Errorf("unlowered short-circuit operator %s", e.Binop.Op))
			}
			for _, operand := range []ExprID{e.Binop.Left, e.Binop.Right} {
				if m.Expr(operand) == nil {
					errs = append(errs, fmt.Errorf("binop %d has a missing operand", id))
				}
			}
		case ExprUnop:
			if !e.Unop.Op.IsUnary() {
				errs = append(errs, fmt.Errorf("unop %d carries binary operator %s", id, e.Unop.Op))
			}
			if m.Expr(e.Unop.Expr) == nil {
				errs = append(errs, fmt.Errorf("unop %d has a missing operand", id))
			}
		case ExprCall, ExprNew:
			if err := validateCallee(m, id, e); err != nil {
				errs = append(errs, err)
			}
		}
		return true
	})
	return errors.Join(errs...)
}

// validateCallee checks the shape rules Call and New typing is derived from.
func validateCallee(m *Module, id ExprID, e *Expr) error {
	base := m.Expr(e.Call.Base)
	if base == nil {
		return fmt.Errorf("%s %d has a missing callee", e.Kind, id)
	}
	switch base.Kind {
	case ExprMember, ExprTemp:
		return nil
	case ExprName:
		bi := base.Name.Builtin
		if argc := len(m.Args(e.Call.Args)); bi != BuiltinInvalid && bi.Arity() != argc {
			return fmt.Errorf("%s takes %d arguments, got %d", bi, bi.Arity(), argc)
		}
		return nil
	default:
		return fmt.Errorf("%s %d has an uncallable %s callee", e.Kind, id, base.Kind)
	}
}
