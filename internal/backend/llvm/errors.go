package llvm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies selector failures.
type ErrorKind uint8

const (
	// ErrUnsupportedIRShape means the input IR left the grammar the
	// selector lowers (an upstream contract violation).
	ErrUnsupportedIRShape ErrorKind = iota + 1
	// ErrBackendLinkFailure covers runtime library loading and linking.
	ErrBackendLinkFailure
	// ErrVerifyFailure means a lowered function failed verification.
	ErrVerifyFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupportedIRShape:
		return "unsupported-ir-shape"
	case ErrBackendLinkFailure:
		return "backend-link-failure"
	case ErrVerifyFailure:
		return "verify-failure"
	default:
		return "unknown"
	}
}

// Error is returned by every failing selector operation.
type Error struct {
	Kind ErrorKind
	Func string // IR function name, empty for module-level failures
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if e.Func != "" {
		return fmt.Sprintf("%s: function %s: %s", e.Kind, e.Func, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func unsupported(format string, args ...any) *Error {
	return &Error{Kind: ErrUnsupportedIRShape, Msg: fmt.Sprintf(format, args...)}
}

func linkFailure(err error, format string, args ...any) *Error {
	return &Error{Kind: ErrBackendLinkFailure, Msg: fmt.Sprintf(format, args...), Err: err}
}
