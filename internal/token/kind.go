// Package token defines the operator token set of the script front end.
// The IR builder only sees these kinds through ir.BinaryOperator; the
// front end itself lives outside this module.
package token

// Kind identifies an operator token produced by the front end.
type Kind uint8

const (
	// Invalid indicates an erroneous or unknown token.
	Invalid Kind = iota

	// Plus is '+'.
	Plus
	// Minus is '-'.
	Minus
	// Star is '*'.
	Star
	// Slash is '/'.
	Slash
	// Percent is '%'.
	Percent

	// Amp is '&'.
	Amp
	// Pipe is '|'.
	Pipe
	// Caret is '^'.
	Caret
	// Shl is '<<'.
	Shl
	// Shr is '>>'.
	Shr
	// UShr is '>>>'.
	UShr

	// AndAnd is '&&'.
	AndAnd
	// OrOr is '||'.
	OrOr

	// EqEq is '=='.
	EqEq
	// BangEq is '!='.
	BangEq
	// EqEqEq is '==='.
	EqEqEq
	// BangEqEq is '!=='.
	BangEqEq
	// Lt is '<'.
	Lt
	// LtEq is '<='.
	LtEq
	// Gt is '>'.
	Gt
	// GtEq is '>='.
	GtEq

	// KwInstanceof is the 'instanceof' keyword operator.
	KwInstanceof
	// KwIn is the 'in' keyword operator.
	KwIn

	// Bang is the prefix '!'.
	Bang
	// Tilde is the prefix '~'.
	Tilde

	// Assign is '='.
	Assign
	// PlusAssign is '+='.
	PlusAssign
	// MinusAssign is '-='.
	MinusAssign
	// StarAssign is '*='.
	StarAssign
	// SlashAssign is '/='.
	SlashAssign
	// PercentAssign is '%='.
	PercentAssign
	// AmpAssign is '&='.
	AmpAssign
	// PipeAssign is '|='.
	PipeAssign
	// CaretAssign is '^='.
	CaretAssign
	// ShlAssign is '<<='.
	ShlAssign
	// ShrAssign is '>>='.
	ShrAssign
	// UShrAssign is '>>>='.
	UShrAssign

	// Comma is ','.
	Comma
	// Question is '?'.
	Question

	kindCount
)

var spellings = [kindCount]string{
	Invalid:       "<invalid>",
	Plus:          "+",
	Minus:         "-",
	Star:          "*",
	Slash:         "/",
	Percent:       "%",
	Amp:           "&",
	Pipe:          "|",
	Caret:         "^",
	Shl:           "<<",
	Shr:           ">>",
	UShr:          ">>>",
	AndAnd:        "&&",
	OrOr:          "||",
	EqEq:          "==",
	BangEq:        "!=",
	EqEqEq:        "===",
	BangEqEq:      "!==",
	Lt:            "<",
	LtEq:          "<=",
	Gt:            ">",
	GtEq:          ">=",
	KwInstanceof:  "instanceof",
	KwIn:          "in",
	Bang:          "!",
	Tilde:         "~",
	Assign:        "=",
	PlusAssign:    "+=",
	MinusAssign:   "-=",
	StarAssign:    "*=",
	SlashAssign:   "/=",
	PercentAssign: "%=",
	AmpAssign:     "&=",
	PipeAssign:    "|=",
	CaretAssign:   "^=",
	ShlAssign:     "<<=",
	ShrAssign:     ">>=",
	UShrAssign:    ">>>=",
	Comma:         ",",
	Question:      "?",
}

var bySpelling = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := Invalid + 1; k < kindCount; k++ {
		m[spellings[k]] = k
	}
	return m
}()

func (k Kind) String() string {
	if k >= kindCount {
		return spellings[Invalid]
	}
	return spellings[k]
}

// Lookup returns the kind spelled s, or Invalid.
func Lookup(s string) Kind {
	return bySpelling[s]
}

// IsAssign reports whether k is '=' or a compound assignment.
func (k Kind) IsAssign() bool {
	return k >= Assign && k <= UShrAssign
}

// IsCompoundAssign reports whether k is a read-modify-write assignment.
func (k Kind) IsCompoundAssign() bool {
	return k > Assign && k <= UShrAssign
}

// BinaryOf returns the binary operator underlying a compound assignment
// ('+=' -> '+'). Other kinds map to Invalid.
func (k Kind) BinaryOf() Kind {
	switch k {
	case PlusAssign:
		return Plus
	case MinusAssign:
		return Minus
	case StarAssign:
		return Star
	case SlashAssign:
		return Slash
	case PercentAssign:
		return Percent
	case AmpAssign:
		return Amp
	case PipeAssign:
		return Pipe
	case CaretAssign:
		return Caret
	case ShlAssign:
		return Shl
	case ShrAssign:
		return Shr
	case UShrAssign:
		return UShr
	default:
		return Invalid
	}
}
