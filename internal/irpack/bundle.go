// Package irpack reads and writes IR bundles, the msgpack hand-off format
// between the script front end and the code generator.
package irpack

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// FormatVersion is written into every bundle.
const FormatVersion = "1.1.0"

// supportedFormats is the range of bundle versions this reader decodes.
const supportedFormats = ">= 1.0.0, < 2.0.0"

// Extension is the conventional bundle file suffix.
const Extension = ".v4ir"

type Bundle struct {
	Format    string     `msgpack:"format"`
	Source    string     `msgpack:"source,omitempty"`
	Functions []Function `msgpack:"functions"`
}

type Function struct {
	Name      string   `msgpack:"name"`
	Formals   []string `msgpack:"formals,omitempty"`
	Locals    []string `msgpack:"locals,omitempty"`
	TempCount int32    `msgpack:"temps"`
	Flags     uint8    `msgpack:"flags,omitempty"`
	Blocks    []Block  `msgpack:"blocks"`
}

const (
	FlagDirectEval uint8 = 1 << iota
	FlagArgumentsObject
	FlagStrict
)

type Block struct {
	Stmts []Stmt `msgpack:"stmts"`
}

// Stmt is a statement. Operands of Exp/Enter/CJump/Ret live in Expr; Move
// uses Target and Source. Jump targets are block indices.
type Stmt struct {
	Kind      string  `msgpack:"k"`
	Expr      *Expr   `msgpack:"e,omitempty"`
	Target    *Expr   `msgpack:"dst,omitempty"`
	Source    *Expr   `msgpack:"src,omitempty"`
	Op        string  `msgpack:"op,omitempty"`
	ForReturn bool    `msgpack:"fr,omitempty"`
	Targets   []int32 `msgpack:"to,omitempty"`
	Type      string  `msgpack:"t,omitempty"`
	Line      uint32  `msgpack:"line,omitempty"`
	Column    uint32  `msgpack:"col,omitempty"`
}

// Expr is an expression tree. Operands holds children in evaluation order:
// unop [e], binop [l r], call/new [base args...], subscript [base index],
// member [base].
type Expr struct {
	Kind     string  `msgpack:"k"`
	Type     string  `msgpack:"t,omitempty"`
	Value    float64 `msgpack:"v,omitempty"`
	Text     string  `msgpack:"s,omitempty"`
	Builtin  string  `msgpack:"b,omitempty"`
	Index    int32   `msgpack:"i,omitempty"`
	Func     int32   `msgpack:"f,omitempty"`
	Op       string  `msgpack:"op,omitempty"`
	Operands []Expr  `msgpack:"x,omitempty"`
	Line     uint32  `msgpack:"line,omitempty"`
	Column   uint32  `msgpack:"col,omitempty"`
}

// CheckFormat reports whether a bundle's format version can be decoded.
func CheckFormat(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("bundle format %q: %w", version, err)
	}
	c, err := semver.NewConstraint(supportedFormats)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("bundle format %s not supported (want %s)", v, supportedFormats)
	}
	return nil
}
