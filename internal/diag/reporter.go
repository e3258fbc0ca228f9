package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Reporter receives diagnostics from the pipeline.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter stores diagnostics in a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// ColorMode selects colored output.
type ColorMode string

const (
	ColorAuto ColorMode = "auto"
	ColorOn   ColorMode = "on"
	ColorOff  ColorMode = "off"
)

// ParseColorMode accepts auto, on and off.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(s)); m {
	case ColorAuto, ColorOn, ColorOff:
		return m, nil
	case "":
		return ColorAuto, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (expected auto|on|off)", s)
	}
}

// UseColor decides whether output to w is colored. Auto colors terminals
// only.
func UseColor(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorOn:
		return true
	case ColorOff:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Printer renders diagnostics as text lines. It is safe for concurrent use.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
	count [SevError + 1]int
}

func NewPrinter(w io.Writer, mode ColorMode) *Printer {
	return &Printer{w: w, color: UseColor(mode, w)}
}

func (p *Printer) Report(d Diagnostic) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d.Severity <= SevError {
		p.count[d.Severity]++
	}
	_, _ = io.WriteString(p.w, Format(d, p.color))
}

// Errors returns how many error diagnostics were printed.
func (p *Printer) Errors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count[SevError]
}

// Format renders d (and its notes) as newline-terminated lines.
func Format(d Diagnostic, colored bool) string {
	head := fmt.Sprintf("%s[%s]", d.Severity, d.Code.ID())
	if colored {
		head = severityColor(d.Severity).Sprint(head)
	}
	var b strings.Builder
	b.WriteString(head)
	b.WriteString(": ")
	if d.Func != "" {
		b.WriteString("function ")
		b.WriteString(d.Func)
		b.WriteString(": ")
	}
	b.WriteString(d.Message)
	b.WriteByte('\n')
	for _, n := range d.Notes {
		note := "note"
		if colored {
			note = color.New(color.FgCyan).Sprint(note)
		}
		fmt.Fprintf(&b, "  %s: %s\n", note, n)
	}
	return b.String()
}

func severityColor(s Severity) *color.Color {
	c := color.New(color.Bold)
	switch s {
	case SevError:
		c.Add(color.FgRed)
	case SevWarning:
		c.Add(color.FgYellow)
	default:
		c.Add(color.FgBlue)
	}
	// colored was already decided by the caller
	c.EnableColor()
	return c
}
