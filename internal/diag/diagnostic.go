package diag

type Diagnostic struct {
	Severity Severity
	Code     Code
	// Func is the IR function the diagnostic concerns, if any.
	Func    string
	Message string
	Notes   []string
}

func New(code Code, fn, msg string) Diagnostic {
	return Diagnostic{Severity: code.Severity(), Code: code, Func: fn, Message: msg}
}

func (d Diagnostic) WithNote(msg string) Diagnostic {
	d.Notes = append(d.Notes, msg)
	return d
}
