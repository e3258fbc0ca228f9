package diag

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"v4c/internal/backend/llvm"
	"v4c/internal/buildpipeline"
)

func TestCodeIDs(t *testing.T) {
	tests := []struct {
		code Code
		id   string
		sev  Severity
	}{
		{UnsupportedIRShape, "E1001", SevError},
		{InvalidIR, "E1004", SevError},
		{ToolchainError, "E2002", SevError},
		{UnreachableBlockDropped, "W3001", SevWarning},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.id {
			t.Errorf("%d.ID() = %s, want %s", tt.code, got, tt.id)
		}
		if got := tt.code.Severity(); got != tt.sev {
			t.Errorf("%s severity = %s, want %s", tt.id, got, tt.sev)
		}
	}
	if Code(999).Title() != "unknown error" {
		t.Fatalf("unknown code title")
	}
}

func TestClassify(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/here")
	tests := []struct {
		err  error
		want Code
	}{
		{&llvm.Error{Kind: llvm.ErrUnsupportedIRShape, Msg: "x"}, UnsupportedIRShape},
		{fmt.Errorf("wrapped: %w", &llvm.Error{Kind: llvm.ErrBackendLinkFailure}), BackendLinkFailure},
		{&llvm.Error{Kind: llvm.ErrVerifyFailure}, VerifyFailure},
		{fmt.Errorf("%w: bad", buildpipeline.ErrInvalidIR), InvalidIR},
		{&buildpipeline.ToolError{Tool: "clang", Err: errors.New("exit 1")}, ToolchainError},
		{statErr, IOError},
		{errors.New("other"), UnknownCode},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.err, got.ID(), tt.want.ID())
		}
	}
}

func TestFormat(t *testing.T) {
	d := FromError(&llvm.Error{Kind: llvm.ErrUnsupportedIRShape, Func: "f", Msg: "L0: return operand must be a temp, got const"})
	want := "error[E1001]: function f: L0: return operand must be a temp, got const\n"
	if got := Format(d, false); got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
	n := New(UnreachableBlockDropped, "g", "dropped 1 block").WithNote("L3")
	if got := Format(n, false); got != "warning[W3001]: function g: dropped 1 block\n  note: L3\n" {
		t.Fatalf("Format = %q", got)
	}
	if colored := Format(d, true); !strings.Contains(colored, "\x1b[") {
		t.Fatalf("colored output lacks escapes: %q", colored)
	}
}

func TestPrinterAndBag(t *testing.T) {
	var sb strings.Builder
	p := NewPrinter(&sb, ColorAuto)
	p.Report(New(UnreachableBlockDropped, "g", "w"))
	p.Report(New(IOError, "", "e"))
	if p.Errors() != 1 || strings.Contains(sb.String(), "\x1b[") {
		t.Fatalf("printer: errors=%d out=%q", p.Errors(), sb.String())
	}

	bag := NewBag(2)
	r := BagReporter{Bag: bag}
	r.Report(New(UnreachableBlockDropped, "b", "w"))
	r.Report(New(IOError, "", "e"))
	if bag.Add(New(InvalidIR, "", "dropped")) {
		t.Fatalf("bag must honor its limit")
	}
	bag.Sort()
	if !bag.HasErrors() || bag.Items()[0].Code != IOError {
		t.Fatalf("bag = %+v", bag.Items())
	}
}

func TestParseColorMode(t *testing.T) {
	if m, err := ParseColorMode("ON"); err != nil || m != ColorOn {
		t.Fatalf("ParseColorMode(ON) = %v, %v", m, err)
	}
	if _, err := ParseColorMode("sometimes"); err == nil {
		t.Fatalf("invalid mode must fail")
	}
}
