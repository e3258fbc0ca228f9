package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// code generation
	UnsupportedIRShape Code = 1001
	BackendLinkFailure Code = 1002
	VerifyFailure      Code = 1003
	InvalidIR          Code = 1004

	// environment
	IOError        Code = 2001
	ToolchainError Code = 2002

	// warnings
	UnreachableBlockDropped Code = 3001
)

var codeDescription = map[Code]string{
	UnknownCode:             "unknown error",
	UnsupportedIRShape:      "unsupported-ir-shape",
	BackendLinkFailure:      "backend-link-failure",
	VerifyFailure:           "verify-failure",
	InvalidIR:               "invalid-ir",
	IOError:                 "io",
	ToolchainError:          "toolchain",
	UnreachableBlockDropped: "unreachable-block-dropped",
}

// ID is the stable short form: E1001, W3001.
func (c Code) ID() string {
	if c >= 3000 && c < 4000 {
		return fmt.Sprintf("W%04d", int(c))
	}
	return fmt.Sprintf("E%04d", int(c))
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Severity is the default severity of diagnostics with this code.
func (c Code) Severity() Severity {
	if c >= 3000 && c < 4000 {
		return SevWarning
	}
	return SevError
}
