package diag

import (
	"github.com/nikandfor/hacked/hfmt"

	"github.com/M3tex/arc/compiler/ast"
)

type (
	// Source maps positions of the preprocessed text back to the files they came from.
	Source interface {
		Line(n int) []byte
		Origin(n int) (file string, line int)
	}

	Printer struct {
		Src   Source
		Color bool

		// Debug adds the place the fatal error was detected.
		Debug bool
	}
)

const (
	colorReset  = "\x1b[0m"
	colorBold   = "\x1b[1m"
	colorRed    = "\x1b[1;31m"
	colorYellow = "\x1b[1;33m"
	colorGreen  = "\x1b[1;32m"
)

func (p Printer) AppendError(b []byte, e *Error) []byte {
	b = p.appendDiag(b, "erreur", colorRed, e.Span, e.Msg)

	if p.Debug && e.PC != 0 {
		b = hfmt.Appendf(b, "  (%v, code %d %v)\n", e.PC, int(e.Code), e.Code)
	}

	return b
}

func (p Printer) AppendWarning(b []byte, w Warning) []byte {
	return p.appendDiag(b, "attention", colorYellow, w.Span, w.Msg)
}

func (p Printer) appendDiag(b []byte, sev, color string, s ast.Span, msg string) []byte {
	file, line := p.origin(s.Line)

	b = p.paint(b, colorBold)

	switch {
	case s.Line == 0 && file == "":
	case s.Line == 0:
		b = hfmt.Appendf(b, "%s: ", file)
	default:
		b = hfmt.Appendf(b, "%s:%d:%d: ", file, line, s.Col)
	}

	b = p.paint(b, colorReset)
	b = p.paint(b, color)
	b = append(b, sev...)
	b = append(b, ':')
	b = p.paint(b, colorReset)
	b = hfmt.Appendf(b, " %s\n", msg)

	if p.Src == nil || s.Line == 0 {
		return b
	}

	text := p.Src.Line(s.Line)
	if text == nil {
		return b
	}

	b = hfmt.Appendf(b, "%5d | %s\n", line, text)

	end := s.EndCol
	if s.EndLine != s.Line || end < s.Col {
		end = len(text)
	}

	if end < s.Col {
		end = s.Col
	}

	b = append(b, "      | "...)

	for i := 1; i < s.Col; i++ {
		if i <= len(text) && text[i-1] == '\t' {
			b = append(b, '\t')
		} else {
			b = append(b, ' ')
		}
	}

	b = p.paint(b, colorGreen)
	b = append(b, '^')

	for i := s.Col; i < end; i++ {
		b = append(b, '~')
	}

	b = p.paint(b, colorReset)
	b = append(b, '\n')

	return b
}

func (p Printer) origin(n int) (string, int) {
	if p.Src == nil {
		return "", n
	}

	return p.Src.Origin(n)
}

func (p Printer) paint(b []byte, c string) []byte {
	if !p.Color {
		return b
	}

	return append(b, c...)
}
