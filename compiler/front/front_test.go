package front

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M3tex/arc/compiler/diag"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for name, text := range files {
		p := filepath.Join(dir, name)

		err := os.MkdirAll(filepath.Dir(p), 0o755)
		require.NoError(t, err)

		err = os.WriteFile(p, []byte(text), 0o644)
		require.NoError(t, err)
	}

	return dir
}

func load(t *testing.T, dir, name string, setup func(c *Front)) (*Front, error) {
	t.Helper()

	p := filepath.Join(dir, name)

	text, err := os.ReadFile(p)
	require.NoError(t, err)

	c := New()

	if setup != nil {
		setup(c)
	}

	return c, c.AddFile(context.Background(), p, text)
}

func TestInclude(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.algo": "$ INCLURE lib.algo\nPROGRAMME()\nDEBUT\n\tECRIRE un()\nFIN\n",
		"lib.algo":  "FONCTION un()\nDEBUT\n\tRETOURNER 1\nFIN\n",
	})

	c, err := load(t, dir, "main.algo", nil)
	require.NoError(t, err)

	assert.Equal(t, "\nFONCTION un()\nDEBUT\n\tRETOURNER 1\nFIN\nPROGRAMME()\nDEBUT\n\tECRIRE un()\nFIN\n", string(c.Text()))

	file, line := c.Origin(3)
	assert.Equal(t, "lib.algo", file)
	assert.Equal(t, 2, line)

	file, line = c.Origin(7)
	assert.Equal(t, filepath.Join(dir, "main.algo"), file)
	assert.Equal(t, 3, line)

	n, ok := c.Lookup(filepath.Join(dir, "main.algo"), 3)
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = c.Lookup("lib.algo", 2)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = c.Lookup("lib.algo", 9)
	assert.False(t, ok)

	assert.Equal(t, "\tRETOURNER 1", string(c.Line(4)))
	assert.Equal(t, []string{filepath.Join(dir, "main.algo"), "lib.algo"}, c.Files())

	err = c.Parse(context.Background())
	require.NoError(t, err)

	err = c.Analyze(context.Background())
	require.NoError(t, err)

	obj, err := c.Compile(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, obj.Code)
}

func TestIncludeOnce(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.algo": "$ INCLURE a.algo\n$ INCLURE b.algo\nPROGRAMME()\nDEBUT\nFIN\n",
		"a.algo":    "$ INCLURE b.algo\nVAR a\n",
		"b.algo":    "VAR b\n",
	})

	c, err := load(t, dir, "main.algo", nil)
	require.NoError(t, err)

	assert.Equal(t, "\n\nVAR b\nVAR a\n\nPROGRAMME()\nDEBUT\nFIN\n", string(c.Text()))
	assert.Len(t, c.Files(), 3)
}

func TestIncludeCycle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.algo": "$ INCLURE a.algo\nPROGRAMME()\nDEBUT\nFIN\n",
		"a.algo":    "$ INCLURE b.algo\n",
		"b.algo":    "VAR b\n$ INCLURE a.algo\n",
	})

	_, err := load(t, dir, "main.algo", nil)

	e, ok := diag.As(err)
	require.True(t, ok, "%v", err)

	assert.Equal(t, diag.InputError, e.Code)
	assert.Equal(t, "inclusion récursive de a.algo", e.Msg)
	assert.Equal(t, 4, e.Span.Line)
}

func TestIncludeSearch(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/main.algo":   "$ INCLURE util.algo\n$ INCLURE maths.algo\nPROGRAMME()\nDEBUT\nFIN\n",
		"inc/util.algo":   "VAR u\n",
		"std/maths.algo":  "VAR m\n",
		"std/util.algo":   "VAR shadowed\n",
		"other/junk.algo": "VAR j\n",
	})

	c, err := load(t, dir, "src/main.algo", func(c *Front) {
		c.Include = []string{filepath.Join(dir, "inc")}
		c.Stdlib = filepath.Join(dir, "std")
	})
	require.NoError(t, err)

	assert.Equal(t, "\nVAR u\n\nVAR m\nPROGRAMME()\nDEBUT\nFIN\n", string(c.Text()))
}

func TestIncludeMissing(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.algo": "VAR x\n$ INCLURE nope.algo\n",
	})

	_, err := load(t, dir, "main.algo", nil)

	e, ok := diag.As(err)
	require.True(t, ok, "%v", err)

	assert.Equal(t, diag.InputError, e.Code)
	assert.Equal(t, "le fichier nope.algo n'a pas été trouvé", e.Msg)
	assert.Equal(t, 2, e.Span.Line)
}

func TestBadDirective(t *testing.T) {
	c := New()

	err := c.AddFile(context.Background(), "", []byte("VAR x\n$ DEFINIR x\n"))

	e, ok := diag.As(err)
	require.True(t, ok, "%v", err)

	assert.Equal(t, diag.SyntaxError, e.Code)
	assert.Equal(t, "instruction préprocesseur invalide: $ DEFINIR x", e.Msg)
}

func TestSplitDirectives(t *testing.T) {
	prog, dirs := SplitDirectives([]byte("$ INCLURE a.algo\nVAR x\n  $ INCLURE \"b.algo\"\nPROGRAMME()\n"))

	assert.Equal(t, "\nVAR x\n\nPROGRAMME()\n", string(prog))
	assert.Equal(t, []Directive{
		{Line: 1, Text: []byte("$ INCLURE a.algo")},
		{Line: 3, Text: []byte(`$ INCLURE "b.algo"`)},
	}, dirs)
}
