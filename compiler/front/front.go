package front

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler/analyze"
	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/back"
	"github.com/M3tex/arc/compiler/diag"
	"github.com/M3tex/arc/compiler/parse"
)

type (
	// Front is a compilation session for one program.
	Front struct {
		// Include and Stdlib are searched for $ INCLURE files after the including file's directory.
		Include []string
		Stdlib  string

		MemSize int

		Warnings *diag.Reporter

		files   []*file
		seen    map[string]bool
		origins []origin
		text    []byte

		Prog   *ast.Program
		Result *analyze.Result
		Object *back.Object
	}
)

func New() *Front {
	return &Front{
		Warnings: diag.NewReporter(),
		seen:     make(map[string]bool),
	}
}

// AddFile sets the program source and expands its includes.
func (c *Front) AddFile(ctx context.Context, name string, text []byte) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: add file", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	if len(c.files) != 0 {
		return errors.New("program source is already set")
	}

	path := ""
	if name != "" {
		path, err = abs(name)
		if err != nil {
			return errors.Wrap(err, "abs path")
		}
	}

	err = c.include(ctx, newFile(name, path, text), nil)
	if err != nil {
		return err
	}

	tr.Printw("preprocessed", "files", len(c.files), "lines", len(c.origins), "size", len(c.text))

	return nil
}

func (c *Front) Parse(ctx context.Context) (err error) {
	c.Prog, err = parse.Parse(ctx, c.text)
	if err != nil {
		return err
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("dump_ast") {
		ast.Walk(c.Prog, func(x ast.Node) bool {
			tr.Printw("node", "kind", ast.Name(x), "span", x.Info().Span)
			return true
		})
	}

	return nil
}

func (c *Front) Analyze(ctx context.Context) (err error) {
	if c.Prog == nil {
		return errors.New("nothing to analyze")
	}

	c.Result, err = analyze.Analyze(ctx, c.Prog, c.Warnings)

	return err
}

func (c *Front) Compile(ctx context.Context) (obj *back.Object, err error) {
	if c.Result == nil {
		return nil, errors.New("program is not analyzed")
	}

	bc := back.New()
	bc.MemSize = c.MemSize

	c.Object, err = bc.CompileProgram(ctx, c.Prog, c.Result)
	if err != nil {
		return nil, err
	}

	return c.Object, nil
}

// Text is the preprocessed program text.
func (c *Front) Text() []byte { return c.text }

// Line returns source line n of the preprocessed text as it reads in its own file.
func (c *Front) Line(n int) []byte {
	if n <= 0 || n > len(c.origins) {
		return nil
	}

	o := c.origins[n-1]
	f := c.files[o.file]

	if o.line > len(f.lines) {
		return nil
	}

	return f.lines[o.line-1]
}

// Origin maps line n of the preprocessed text to its file and line.
func (c *Front) Origin(n int) (string, int) {
	if n <= 0 || n > len(c.origins) {
		if len(c.files) == 0 {
			return "", n
		}

		return c.files[0].name, n
	}

	o := c.origins[n-1]

	return c.files[o.file].name, o.line
}

// Files lists the source files in inclusion order, the main file first.
func (c *Front) Files() []string {
	l := make([]string, len(c.files))

	for i, f := range c.files {
		l[i] = f.name
	}

	return l
}

// Lookup is the inverse of Origin: it finds the preprocessed line of line in file.
func (c *Front) Lookup(file string, line int) (int, bool) {
	for n, o := range c.origins {
		if o.line == line && c.files[o.file].name == file {
			return n + 1, true
		}
	}

	return 0, false
}
