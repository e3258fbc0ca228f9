package ir

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"v4c/internal/types"
)

// Mode selects the dump flavour.
type Mode uint8

const (
	// HIR renders both branches of a conditional jump.
	HIR Mode = iota
	// MIR renders only the true branch; the false branch is the fallthrough.
	MIR
)

func (m Mode) String() string {
	if m == MIR {
		return "mir"
	}
	return "hir"
}

// ParseMode accepts "hir" or "mir".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "hir":
		return HIR, nil
	case "mir":
		return MIR, nil
	default:
		return HIR, fmt.Errorf("unknown dump mode %q", s)
	}
}

// Dump writes every function of m in declaration order.
func Dump(w io.Writer, m *Module, mode Mode) error {
	if w == nil || m == nil {
		return nil
	}
	for i, f := range m.Funcs {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := DumpFunction(w, f, mode); err != nil {
			return err
		}
	}
	return nil
}

func DumpFunction(w io.Writer, f *Function, mode Mode) error {
	p := printer{f: f, a: &f.mod.Arena, mode: mode}
	fmt.Fprintf(&p.sb, "function %s() {\n", f.Name)
	for _, b := range f.Blocks {
		p.block(b)
	}
	p.sb.WriteString("}\n")
	_, err := io.WriteString(w, p.sb.String())
	return err
}

type printer struct {
	sb   strings.Builder
	f    *Function
	a    *Arena
	mode Mode
}

func (p *printer) block(b *BasicBlock) {
	fmt.Fprintf(&p.sb, "L%d:", b.Index)
	if p.mode == MIR && len(b.Preds) > 0 {
		preds := make([]string, len(b.Preds))
		for i, pred := range b.Preds {
			preds[i] = "L" + strconv.Itoa(int(pred))
		}
		fmt.Fprintf(&p.sb, "\t\t// preds: %s", strings.Join(preds, ", "))
	}
	p.sb.WriteByte('\n')
	for _, sid := range b.Stmts {
		p.sb.WriteByte('\t')
		p.stmt(p.a.Stmt(sid))
		p.sb.WriteByte('\n')
	}
}

func (p *printer) stmt(s *Stmt) {
	if s == nil {
		p.sb.WriteString("<nil>;")
		return
	}
	switch s.Kind {
	case StmtExp:
		p.expr(s.Exp.Expr)
		p.sb.WriteByte(';')
	case StmtEnter:
		p.sb.WriteString("enter(")
		p.expr(s.Enter.Expr)
		p.sb.WriteString(");")
	case StmtLeave:
		p.sb.WriteString("leave;")
	case StmtMove:
		p.expr(s.Move.Target)
		p.sb.WriteByte(' ')
		if s.Move.Op != OpInvalid {
			p.sb.WriteString(s.Move.Op.String())
		}
		p.sb.WriteString("= ")
		p.expr(s.Move.Source)
		p.sb.WriteByte(';')
		if s.Move.ForReturn && p.mode == HIR {
			p.sb.WriteString(" // return value")
		}
	case StmtJump:
		fmt.Fprintf(&p.sb, "goto L%d;", s.Jump.Target)
	case StmtCJump:
		p.sb.WriteString("if (")
		p.expr(s.CJump.Cond)
		fmt.Fprintf(&p.sb, ") goto L%d;", s.CJump.True)
		if p.mode == HIR {
			fmt.Fprintf(&p.sb, " else goto L%d;", s.CJump.False)
		}
	case StmtRet:
		if s.Ret.Expr == NoExpr {
			p.sb.WriteString("return;")
			return
		}
		p.sb.WriteString("return ")
		p.expr(s.Ret.Expr)
		p.sb.WriteByte(';')
	default:
		p.sb.WriteString("<invalid>;")
	}
}

func (p *printer) expr(id ExprID) {
	e := p.a.Expr(id)
	if e == nil {
		p.sb.WriteString("<nil>")
		return
	}
	switch e.Kind {
	case ExprConst:
		p.sb.WriteString(ConstString(e.Type, e.Const.Value))
	case ExprString:
		p.sb.WriteByte('"')
		p.sb.WriteString(Escape(p.f.Str(e.String.Value)))
		p.sb.WriteByte('"')
	case ExprName:
		if e.Name.Builtin != BuiltinInvalid {
			p.sb.WriteString(e.Name.Builtin.String())
			return
		}
		p.sb.WriteString(p.f.Str(e.Name.ID))
	case ExprTemp:
		p.temp(e.Temp)
	case ExprClosure:
		name := "?"
		if fn := p.f.mod.Func(e.Closure.Func); fn != nil {
			name = fn.Name
		}
		fmt.Fprintf(&p.sb, "closure(%s)", name)
	case ExprUnop:
		p.sb.WriteString(e.Unop.Op.String())
		p.operand(e.Unop.Expr)
	case ExprBinop:
		p.operand(e.Binop.Left)
		fmt.Fprintf(&p.sb, " %s ", e.Binop.Op)
		p.operand(e.Binop.Right)
	case ExprCall, ExprNew:
		if e.Kind == ExprNew {
			p.sb.WriteString("new ")
		}
		p.expr(e.Call.Base)
		p.sb.WriteByte('(')
		for i, arg := range p.a.Args(e.Call.Args) {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.expr(arg)
		}
		p.sb.WriteByte(')')
	case ExprSubscript:
		p.expr(e.Subscript.Base)
		p.sb.WriteByte('[')
		p.expr(e.Subscript.Index)
		p.sb.WriteByte(']')
	case ExprMember:
		p.expr(e.Member.Base)
		p.sb.WriteByte('.')
		p.sb.WriteString(p.f.Str(e.Member.Name))
	default:
		p.sb.WriteString("<invalid>")
	}
}

// operand parenthesizes nested operators.
func (p *printer) operand(id ExprID) {
	if e := p.a.Expr(id); e != nil && (e.Kind == ExprBinop || e.Kind == ExprUnop) {
		p.sb.WriteByte('(')
		p.expr(id)
		p.sb.WriteByte(')')
		return
	}
	p.expr(id)
}

func (p *printer) temp(t TempExpr) {
	if !t.IsParam() {
		fmt.Fprintf(&p.sb, "t%d", t.Index)
		return
	}
	ord := t.Ordinal()
	if ord < len(p.f.Formals) {
		p.sb.WriteString(p.f.Str(p.f.Formals[ord]))
		return
	}
	fmt.Fprintf(&p.sb, "a%d", ord)
}

// ConstString renders a constant the way scripts spell it.
func ConstString(t types.Type, v float64) string {
	switch t {
	case types.Undefined:
		return "undefined"
	case types.Null:
		return "null"
	case types.Void:
		return "void 0"
	case types.Bool:
		if v != 0 {
			return "true"
		}
		return "false"
	}
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

var escaper = strings.NewReplacer(
	"\\", "\\\\",
	"\n", "\\n",
	"\r", "\\r",
	"\"", "\\\"",
	"'", "\\'",
)

// Escape quotes s for the dump.
func Escape(s string) string {
	return escaper.Replace(s)
}
