package diag

import (
	"errors"
	"io/fs"

	"v4c/internal/backend/llvm"
	"v4c/internal/buildpipeline"
)

// Classify maps a pipeline error to its diagnostic code.
func Classify(err error) Code {
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return UnknownCode
	case errors.Is(err, buildpipeline.ErrInvalidIR):
		return InvalidIR
	case errors.Is(err, buildpipeline.ErrToolchain):
		return ToolchainError
	}
	switch llvm.KindOf(err) {
	case llvm.ErrUnsupportedIRShape:
		return UnsupportedIRShape
	case llvm.ErrBackendLinkFailure:
		return BackendLinkFailure
	case llvm.ErrVerifyFailure:
		return VerifyFailure
	}
	if errors.As(err, &pathErr) {
		return IOError
	}
	return UnknownCode
}

// FromError builds the diagnostic for err. The function name of selector
// errors is carried separately from the message.
func FromError(err error) Diagnostic {
	code := Classify(err)
	var le *llvm.Error
	if errors.As(err, &le) && le.Func != "" {
		msg := le.Msg
		if le.Err != nil {
			if msg != "" {
				msg += ": "
			}
			msg += le.Err.Error()
		}
		return New(code, le.Func, msg)
	}
	return New(code, "", err.Error())
}

// FromNotes turns selector notes into warnings.
func FromNotes(notes []llvm.Note) []Diagnostic {
	out := make([]Diagnostic, 0, len(notes))
	for _, n := range notes {
		out = append(out, New(UnreachableBlockDropped, n.Func, n.Msg))
	}
	return out
}
