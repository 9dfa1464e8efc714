package front

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/diag"
)

type (
	// origin is where a line of the preprocessed text comes from.
	origin struct {
		file int
		line int
	}

	file struct {
		name  string
		path  string
		lines [][]byte
	}

	// Directive is a preprocessor line kept aside by SplitDirectives.
	Directive struct {
		Line int
		Text []byte
	}
)

const directive = "INCLURE"

// include appends the lines of f to the session text, expanding $ INCLURE lines.
func (c *Front) include(ctx context.Context, f *file, stack []string) (err error) {
	tr := tlog.SpanFromContext(ctx)

	fi := len(c.files)
	c.files = append(c.files, f)

	if f.path != "" {
		c.seen[f.path] = true
	}

	stack = append(stack, f.path)

	for n, l := range f.lines {
		c.origins = append(c.origins, origin{file: fi, line: n + 1})

		name, ok, err := parseDirective(l)
		if err != nil {
			return diag.Fatalf(diag.SyntaxError, c.lineSpan(len(c.origins), l), "instruction préprocesseur invalide: %s", bytes.TrimSpace(l))
		}

		if !ok {
			c.text = append(c.text, l...)
			c.text = append(c.text, '\n')

			continue
		}

		// the directive line itself stays as an empty line
		c.text = append(c.text, '\n')

		path, err := c.search(name, filepath.Dir(f.path))
		if err != nil {
			return diag.Fatalf(diag.InputError, c.lineSpan(len(c.origins), l), "le fichier %s n'a pas été trouvé", name)
		}

		for _, p := range stack {
			if p == path {
				return diag.Fatalf(diag.InputError, c.lineSpan(len(c.origins), l), "inclusion récursive de %s", name)
			}
		}

		if c.seen[path] {
			if tr.If("include") {
				tr.Printw("already included", "name", name, "path", path)
			}

			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return diag.Fatalf(diag.InputError, c.lineSpan(len(c.origins), l), "impossible de lire %s: %v", name, err)
		}

		tr.V("include").Printw("include", "name", name, "path", path, "size", len(data), "from", f.name)

		err = c.include(ctx, newFile(name, path, data), stack)
		if err != nil {
			return err
		}
	}

	return nil
}

// search finds name next to the including file, then in Include dirs, then in Stdlib.
func (c *Front) search(name, dir string) (string, error) {
	if filepath.IsAbs(name) {
		return abs(name)
	}

	dirs := make([]string, 0, len(c.Include)+2)

	if dir != "" {
		dirs = append(dirs, dir)
	}

	dirs = append(dirs, c.Include...)

	if c.Stdlib != "" {
		dirs = append(dirs, c.Stdlib)
	}

	for _, d := range dirs {
		p := filepath.Join(d, name)

		st, err := os.Stat(p)
		if err != nil || st.IsDir() {
			continue
		}

		return abs(p)
	}

	return "", errors.New("%v: not found in %v", name, dirs)
}

// parseDirective recognizes `$ INCLURE name` lines.
func parseDirective(l []byte) (name string, ok bool, err error) {
	l = bytes.TrimSpace(l)

	if len(l) == 0 || l[0] != '$' {
		return "", false, nil
	}

	f := bytes.Fields(l[1:])

	if len(f) != 2 || string(f[0]) != directive {
		return "", false, errors.New("bad directive")
	}

	name = string(bytes.Trim(f[1], `"`))
	if name == "" {
		return "", false, errors.New("empty file name")
	}

	return name, true, nil
}

// SplitDirectives separates preprocessor lines from the program text.
// Directive lines are blanked in the returned text so line numbers are kept.
func SplitDirectives(text []byte) (prog []byte, dirs []Directive) {
	prog = make([]byte, 0, len(text))

	for n, l := range splitLines(text) {
		if _, ok, err := parseDirective(l); ok || err != nil {
			dirs = append(dirs, Directive{Line: n + 1, Text: bytes.TrimSpace(l)})
			l = nil
		}

		prog = append(prog, l...)
		prog = append(prog, '\n')
	}

	return prog, dirs
}

func (c *Front) lineSpan(n int, l []byte) ast.Span {
	end := len(bytes.TrimRight(l, " \t\r"))
	if end == 0 {
		end = 1
	}

	return ast.Span{Line: n, Col: 1, EndLine: n, EndCol: end}
}

func newFile(name, path string, data []byte) *file {
	return &file{
		name:  name,
		path:  path,
		lines: splitLines(data),
	}
}

func splitLines(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}

	data = bytes.TrimSuffix(data, []byte{'\n'})

	l := bytes.Split(data, []byte{'\n'})

	for i := range l {
		l[i] = bytes.TrimSuffix(l[i], []byte{'\r'})
	}

	return l
}

func abs(p string) (string, error) {
	p, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	return filepath.Clean(p), nil
}
