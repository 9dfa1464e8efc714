package format

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M3tex/arc/compiler/analyze"
	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/parse"
)

func formatText(t *testing.T, text string) string {
	t.Helper()

	ctx := context.Background()

	p, err := parse.Parse(ctx, []byte(text))
	require.NoError(t, err, "%s", text)

	b, err := Format(ctx, nil, p)
	require.NoError(t, err)

	return string(b)
}

func TestFormat(t *testing.T) {
	src := `VAR a <- 1, t[3] <- [1, 2, 3]
VAR @p
FONCTION f(x, @q);
FONCTION f(x,@q)
VAR s
DEBUT
  SI x > 0 ALORS RETOURNER (x + 1) * 2
  s <- -(x - 1)
  RETOURNER NON (s = 0) ET s
FIN
PROGRAMME()
VAR u[]<-[4,5]
DEBUT
  LIRE a
  POUR a DE 0 A 3 FAIRE ECRIRE t[a] FPOUR
  TANT QUE a > 0 FAIRE
    a <- a - 1
    SI a = 1 ALORS ECRIRE 1 SINON ECRIRE 2
  FTQ
  FAIRE
    ALLOUER(p, 2)
    @(p + 1) <- LIRE()
  TANT QUE NON a
  ECRIRE f(a, u)
FIN
`

	want := `VAR a <- 1, t[3] <- [1, 2, 3], @p
FONCTION f(x, @q);
FONCTION f(x, @q)
VAR s
DEBUT
	SI x > 0 ALORS
		RETOURNER (x + 1) * 2
	FSI
	s <- -(x - 1)
	RETOURNER NON s = 0 ET s
FIN

PROGRAMME()
VAR u[] <- [4, 5]
DEBUT
	LIRE a
	POUR a DE 0 A 3 FAIRE
		ECRIRE t[a]
	FPOUR
	TANT QUE a > 0 FAIRE
		a <- a - 1
		SI a = 1 ALORS
			ECRIRE 1
		SINON
			ECRIRE 2
		FSI
	FTQ
	FAIRE
		ALLOUER(p, 2)
		LIRE @(p + 1)
	TANT QUE NON a
	ECRIRE f(a, u)
FIN
`

	got := formatText(t, src)
	assert.Equal(t, want, got)

	assert.Equal(t, want, formatText(t, got), "formatting is not idempotent")
}

func TestFormatParens(t *testing.T) {
	for _, tc := range []struct {
		in, out string
	}{
		{"(1 + 2) * -(3) - (4 - 5)", "(1 + 2) * -3 - (4 - 5)"},
		{"1 + (2 + 3)", "1 + (2 + 3)"},
		{"(1 + 2) + 3", "1 + 2 + 3"},
		{"(a < b) = 1", "(a < b) = 1"},
		{"NON (a OU b)", "NON (a OU b)"},
		{"(a ET b) OU c", "a ET b OU c"},
		{"a ET (b OU c)", "a ET (b OU c)"},
		{"-(NON a)", "-(NON a)"},
		{"@@p", "@@p"},
		{"&x + t[i * 2]", "&x + t[i * 2]"},
	} {
		src := "PROGRAMME()\nDEBUT\n\tECRIRE " + tc.in + "\nFIN\n"
		want := "PROGRAMME()\nDEBUT\n\tECRIRE " + tc.out + "\nFIN\n"

		assert.Equal(t, want, formatText(t, src), "%s", tc.in)
	}
}

func TestTree(t *testing.T) {
	ctx := context.Background()

	p, err := parse.Parse(ctx, []byte("VAR x <- 2\nPROGRAMME()\nDEBUT\n\tECRIRE x + 1\nFIN\n"))
	require.NoError(t, err)

	_, err = analyze.Analyze(ctx, p, nil)
	require.NoError(t, err)

	dump := string(Tree(nil, p))
	lines := strings.Split(strings.TrimSuffix(dump, "\n"), "\n")

	n := 0
	ast.Walk(p, func(ast.Node) bool { n++; return true })

	assert.Len(t, lines, n)
	assert.True(t, strings.HasPrefix(lines[0], "program"), "%q", lines[0])
	assert.Contains(t, dump, "\t\t\tbin_op")
	assert.Contains(t, dump, "  +\n")
	assert.Contains(t, dump, "  x\n")
}

func TestTable(t *testing.T) {
	ctx := context.Background()

	p, err := parse.Parse(ctx, []byte("VAR x <- 2\nFONCTION f(@q)\nDEBUT\n\tRETOURNER q[0]\nFIN\nPROGRAMME()\nDEBUT\n\tECRIRE f(&x)\nFIN\n"))
	require.NoError(t, err)

	r, err := analyze.Analyze(ctx, p, nil)
	require.NoError(t, err)

	dump := string(Table(nil, r.Table))

	assert.Contains(t, dump, "global\n")
	assert.Contains(t, dump, "\nf\n")
	assert.Contains(t, dump, "\tx ")
	assert.Contains(t, dump, "\tq ")
	assert.Contains(t, dump, "pointeur")
	assert.Contains(t, dump, "fonction")
}
