package diag

import (
	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/heap"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler/ast"
)

type (
	// Code is the process exit code of a fatal diagnostic.
	Code int

	// Error is a fatal diagnostic. Compilation stops at the first one.
	Error struct {
		Code Code
		Span ast.Span
		Msg  string

		// PC is where the condition was detected.
		PC loc.PC
	}

	Warning struct {
		Span ast.Span
		Msg  string

		seq int
	}

	// Reporter batches warnings and hands them back in source order.
	Reporter struct {
		h   heap.Heap[Warning]
		seq int
	}
)

const (
	AllocFailed Code = 1 + iota
	LexError
	SyntaxError
	InputError
	TableNotInit
	UndefContext
	UndefIdent
	SemanticError
	InternalError
	RuntimeFault
)

// NoSpan marks a diagnostic without a source position.
var NoSpan ast.Span

func Fatalf(code Code, s ast.Span, format string, args ...any) *Error {
	e := &Error{
		Code: code,
		Span: s,
		Msg:  string(hfmt.Appendf(nil, format, args...)),
		PC:   loc.Caller(1),
	}

	tlog.V("diag").Printw("fatal", "code", code, "span", s, "msg", e.Msg, "from", e.PC)

	return e
}

func (e *Error) Error() string {
	if e.Span.Line == 0 {
		return e.Msg
	}

	return e.Span.String() + ": " + e.Msg
}

// As finds the first *Error in the err chain.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}

		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}

		err = u.Unwrap()
	}

	return nil, false
}

func NewReporter() *Reporter {
	return &Reporter{
		h: heap.Heap[Warning]{Less: warningLess},
	}
}

func (r *Reporter) Warn(s ast.Span, format string, args ...any) {
	w := Warning{
		Span: s,
		Msg:  string(hfmt.Appendf(nil, format, args...)),
		seq:  r.seq,
	}

	r.seq++

	tlog.V("diag").Printw("warning", "span", s, "msg", w.Msg, "from", loc.Caller(1))

	r.h.Push(w)
}

func (r *Reporter) Len() int {
	return r.h.Len()
}

// Drain returns queued warnings ordered by position and empties the queue.
func (r *Reporter) Drain() []Warning {
	l := make([]Warning, 0, r.h.Len())

	for r.h.Len() != 0 {
		l = append(l, r.h.Pop())
	}

	return l
}

func warningLess(d []Warning, i, j int) bool {
	a, b := d[i].Span, d[j].Span

	if a.Line != b.Line {
		return a.Line < b.Line
	}

	if a.Col != b.Col {
		return a.Col < b.Col
	}

	return d[i].seq < d[j].seq
}

func (c Code) String() string {
	switch c {
	case AllocFailed:
		return "alloc_failed"
	case LexError:
		return "lex_error"
	case SyntaxError:
		return "syntax_error"
	case InputError:
		return "input_error"
	case TableNotInit:
		return "table_not_init"
	case UndefContext:
		return "undefined_context"
	case UndefIdent:
		return "undefined_identifier"
	case SemanticError:
		return "semantic_error"
	case InternalError:
		return "internal_error"
	case RuntimeFault:
		return "runtime_fault"
	default:
		return "unknown"
	}
}
