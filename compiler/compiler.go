package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler/back"
	"github.com/M3tex/arc/compiler/diag"
	"github.com/M3tex/arc/compiler/front"
)

type (
	Options struct {
		Include []string
		Stdlib  string

		MemSize int

		// Check stops after semantic analysis.
		Check bool
	}

	Result struct {
		*front.Front

		Object *back.Object

		// Text is the program in RAM machine assembly.
		Text []byte

		Warnings []diag.Warning
	}
)

// CompileFile reads and compiles name.
// On a fatal diagnostic both the partial Result and the *diag.Error are returned.
func CompileFile(ctx context.Context, name string, opts Options) (*Result, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, diag.Fatalf(diag.InputError, diag.NoSpan, "impossible d'ouvrir %s: %v", name, err)
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, opts)
}

func Compile(ctx context.Context, name string, text []byte, opts Options) (r *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name)
	defer tr.Finish("err", &err)

	st := front.New()
	st.Include = opts.Include
	st.Stdlib = opts.Stdlib
	st.MemSize = opts.MemSize

	r = &Result{Front: st}

	defer func() {
		r.Warnings = st.Warnings.Drain()
	}()

	err = st.AddFile(ctx, name, text)
	if err != nil {
		return r, errors.Wrap(err, "preprocess")
	}

	err = st.Parse(ctx)
	if err != nil {
		return r, errors.Wrap(err, "parse text")
	}

	err = st.Analyze(ctx)
	if err != nil {
		return r, errors.Wrap(err, "analyze")
	}

	if opts.Check {
		return r, nil
	}

	r.Object, err = st.Compile(ctx)
	if err != nil {
		return r, errors.Wrap(err, "compile")
	}

	r.Text = r.Object.Code.Append(nil)

	return r, nil
}

// ExitCode maps an error returned by Compile to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	if e, ok := diag.As(err); ok {
		return int(e.Code)
	}

	return int(diag.InternalError)
}
