package compiler

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/nikandfor/hacked/hfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M3tex/arc/compiler/diag"
	"github.com/M3tex/arc/compiler/testcase"
	"github.com/M3tex/arc/ram"
)

func TestTestdata(t *testing.T) {
	files, err := filepath.Glob("testdata/*.md")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".md"), func(t *testing.T) {
			data, err := os.ReadFile(file)
			require.NoError(t, err)

			l, err := testcase.Extract(data)
			require.NoError(t, err)

			for _, tc := range l {
				t.Run(tc.Name, func(t *testing.T) {
					runCase(t, tc)
				})
			}
		})
	}
}

func runCase(t *testing.T, tc testcase.TestCase) {
	ctx := context.Background()

	r, err := Compile(ctx, "", []byte(tc.Source), Options{})
	require.NotNil(t, r)

	exit := 0

	if a, ok := tc.Find(testcase.Exit); ok {
		var perr error

		exit, perr = strconv.Atoi(a.Content)
		require.NoError(t, perr, "line %d", a.Line)
	}

	code := ExitCode(err)
	require.Equal(t, exit, code, "compile error: %v", err)

	if code != 0 {
		assert.Nil(t, r.Object, "no code on a fatal error")
	}

	if a, ok := tc.Find(testcase.Diagnostics); ok {
		assert.Equal(t, a.Content, diagnostics(r.Warnings, err), "line %d", a.Line)
	}

	if a, ok := tc.Find(testcase.Asm); ok {
		require.NotNil(t, r.Object)
		assert.Equal(t, a.Content, strings.TrimRight(string(r.Text), "\n"), "line %d", a.Line)
	}

	if a, ok := tc.Find(testcase.Output); ok {
		require.NotNil(t, r.Object)

		var out bytes.Buffer

		m := ram.New(r.Object.MemSize, strings.NewReader(tc.Stdin), &out)

		err = m.Run(ctx, r.Object.Code)
		require.NoError(t, err, "output so far: %q", out.String())

		assert.Equal(t, a.Content, strings.TrimRight(out.String(), "\n"), "line %d", a.Line)
	}
}

func diagnostics(ws []diag.Warning, err error) string {
	var b []byte

	for _, w := range ws {
		b = hfmt.Appendf(b, "%d: attention: %s\n", w.Span.Line, w.Msg)
	}

	if e, ok := diag.As(err); ok {
		b = hfmt.Appendf(b, "%d: erreur: %s\n", e.Span.Line, e.Msg)
	}

	return strings.TrimRight(string(b), "\n")
}
