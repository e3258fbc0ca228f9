// Package diag is the compiler's plain-text diagnostic stream.
//
// A Diagnostic is a severity, a stable code and a message, optionally tied
// to the IR function it concerns. Producers hand diagnostics to a Reporter;
// the CLI uses a Printer that renders one line per diagnostic:
//
//	error[E1001]: function f: return operand must be a temp, got const
//
// Codes are grouped by the hundreds: E1xxx for code generation, E2xxx for
// the environment (files, external tools) and W3xxx for warnings. Classify
// maps the errors returned by the pipeline to their code.
package diag
