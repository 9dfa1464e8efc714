package debuginfo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M3tex/arc/compiler"
	"github.com/M3tex/arc/compiler/ast"
)

func TestDebugInfo(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.algo")

	require.NoError(t, os.WriteFile(main, []byte("$ INCLURE lib.algo\nPROGRAMME()\nDEBUT\n\tECRIRE un()\nFIN\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.algo"), []byte("FONCTION un()\nDEBUT\n\tRETOURNER 1\nFIN\n"), 0o644))

	r, err := compiler.CompileFile(context.Background(), main, compiler.Options{})
	require.NoError(t, err)

	d, err := New(r)
	require.NoError(t, err)

	assert.Equal(t, main, d.Source)
	assert.Equal(t, []string{main, "lib.algo"}, d.Files)
	assert.Equal(t, 17, d.Entry)
	assert.Equal(t, []Func{
		{Name: "un", Adr: 7, Codelen: 10},
		{Name: ast.EntryPoint, Adr: 17, Codelen: 23},
	}, d.Funcs)
	require.Len(t, d.Lines, 40)

	file, line, ok := d.Where(7)
	assert.True(t, ok)
	assert.Equal(t, "lib.algo", file)
	assert.Equal(t, 3, line)

	file, line, _ = d.Where(17)
	assert.Equal(t, main, file)
	assert.Equal(t, 4, line)

	_, _, ok = d.Where(40)
	assert.False(t, ok)

	f, ok := d.Func(10)
	assert.True(t, ok)
	assert.Equal(t, "un", f.Name)

	_, ok = d.Func(3)
	assert.False(t, ok)

	name := filepath.Join(dir, "main.dbg")

	require.NoError(t, WriteFile(name, d))

	d2, err := ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, d, d2)
}

func TestNotCompiled(t *testing.T) {
	r, err := compiler.Compile(context.Background(), "", []byte("PROGRAMME()\nDEBUT\nFIN\n"), compiler.Options{Check: true})
	require.NoError(t, err)

	_, err = New(r)
	assert.Error(t, err)
}
