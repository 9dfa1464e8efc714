package analyze

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M3tex/arc/compiler/asm"
	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/diag"
	"github.com/M3tex/arc/compiler/parse"
	"github.com/M3tex/arc/compiler/symtab"
	"github.com/M3tex/arc/compiler/tp"
)

func analyzeText(t *testing.T, text string) (*ast.Program, *Result, []string, error) {
	t.Helper()

	ctx := context.Background()

	p, err := parse.Parse(ctx, []byte(text))
	require.NoError(t, err)

	w := diag.NewReporter()

	r, err := Analyze(ctx, p, w)

	var msgs []string
	for _, x := range w.Drain() {
		msgs = append(msgs, x.Msg)
	}

	return p, r, msgs, err
}

func TestStaticLayout(t *testing.T) {
	p, r, warns, err := analyzeText(t, `VAR x <- 5
PROGRAMME()
DEBUT
	ECRIRE x
FIN
`)
	require.NoError(t, err)
	assert.Empty(t, warns)

	x, err := r.Table.GetSymbol(symtab.Global, "x")
	require.NoError(t, err)
	assert.Equal(t, asm.StaticStart, x.Adr)
	assert.Equal(t, tp.Static, x.Zone)
	assert.Equal(t, tp.Int, x.Kind)
	assert.True(t, x.IsInit)
	assert.True(t, x.IsUsed)

	assert.Equal(t, 2, p.Decls.Codelen)
	assert.Equal(t, 3, p.Main.Codelen)
	assert.Equal(t, 11, p.Codelen)
	assert.Equal(t, 11, r.Len)
	assert.Equal(t, 8, r.Entry)
	assert.Equal(t, 1, r.Static)
}

func TestFunctionLayout(t *testing.T) {
	p, r, warns, err := analyzeText(t, `FONCTION f(a, b)
VAR c
DEBUT
	c <- a + b
	RETOURNER c
FIN

PROGRAMME()
DEBUT
	ECRIRE f(1, 2)
FIN
`)
	require.NoError(t, err)
	assert.Empty(t, warns)

	f := p.Decls.Decls[0].(*ast.FuncDecl)

	for i, id := range []string{"a", "b", "c"} {
		s, err := r.Table.SearchSymbol("f", id)
		require.NoError(t, err)
		require.NotNil(t, s, id)

		assert.Equal(t, tp.Stack, s.Zone, id)
		assert.Equal(t, i+1, s.Adr, id)
	}

	fs, err := r.Table.GetSymbol("f", "f")
	require.NoError(t, err)
	assert.Equal(t, tp.Func, fs.Kind)
	assert.Equal(t, 2, fs.Size)
	assert.Equal(t, asm.BootLen+1, fs.Adr)
	assert.Equal(t, fs.Adr, f.MemAdr)

	assert.Equal(t, 31, f.Body.Codelen)
	assert.Equal(t, 33, f.Codelen)

	call := p.Main.Body.Stmts[0].(*ast.IO).X.(*ast.Call)
	assert.Equal(t, 27, call.Codelen)
	assert.Equal(t, fs.Adr, call.Func.MemAdr)

	assert.Equal(t, 29, p.Main.Codelen)
	assert.Equal(t, 68, p.Codelen)
	assert.Equal(t, 39, r.Entry)

	require.Len(t, r.Funcs, 2)
	assert.Same(t, f, r.Funcs[0])
	assert.Same(t, p.Main, r.Funcs[1])
}

func TestImplicitReturn(t *testing.T) {
	p, _, _, err := analyzeText(t, `FONCTION f()
DEBUT
	ECRIRE 1
FIN
PROGRAMME()
DEBUT
	f()
FIN
`)
	require.NoError(t, err)

	f := p.Decls.Decls[0].(*ast.FuncDecl)
	require.Len(t, f.Body.Stmts, 2)

	r, ok := f.Body.Stmts[1].(*ast.Return)
	require.True(t, ok)
	assert.Equal(t, 0, r.X.(*ast.Number).Value)
	assert.Equal(t, 10, r.Codelen)
	assert.Equal(t, 1+2+10, f.Codelen)
}

func TestStackArrays(t *testing.T) {
	p, r, warns, err := analyzeText(t, `PROGRAMME()
VAR t[3] <- [1, 2, 3], @p
DEBUT
	p <- t
	ECRIRE p[1] + t[2]
FIN
`)
	require.NoError(t, err)
	assert.Empty(t, warns)

	ts, err := r.Table.SearchSymbol(ast.EntryPoint, "t")
	require.NoError(t, err)
	assert.Equal(t, tp.Array, ts.Kind)
	assert.Equal(t, 3, ts.Size)
	assert.Equal(t, 2, ts.Adr)

	ps, err := r.Table.SearchSymbol(ast.EntryPoint, "p")
	require.NoError(t, err)
	assert.Equal(t, tp.Ptr, ps.Kind)
	assert.Equal(t, 3, ps.Adr)

	decls := p.Main.Decls.Decls
	assert.Equal(t, 24, decls[0].Info().Codelen)
	assert.Equal(t, 1, decls[1].Info().Codelen)

	stmts := p.Main.Body.Stmts
	assert.Equal(t, 8, stmts[0].Info().Codelen)
	assert.Equal(t, 21, stmts[1].Info().Codelen)
	assert.Equal(t, 55, p.Main.Codelen)
	assert.Equal(t, 0, r.Static)
}

func TestScopeFallback(t *testing.T) {
	_, _, _, err := analyzeText(t, `VAR g <- 1
FONCTION f()
DEBUT
	RETOURNER g
FIN
PROGRAMME()
DEBUT
	ECRIRE f()
FIN
`)
	require.NoError(t, err)

	_, _, _, err = analyzeText(t, `FONCTION f()
VAR loc
DEBUT
	loc <- 1
	RETOURNER loc
FIN
FONCTION g()
DEBUT
	RETOURNER loc
FIN
PROGRAMME()
DEBUT
	ECRIRE f() + g()
FIN
`)
	require.Error(t, err)

	e, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.UndefIdent, e.Code)
	assert.Equal(t, "identifiant non déclaré: loc", e.Msg)
	assert.Equal(t, ast.Span{Line: 9, Col: 12, EndLine: 9, EndCol: 14}, e.Span)
}

func TestWarnings(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
		want []string
	}{
		{"unused", "VAR x <- 5\nPROGRAMME()\nDEBUT\nFIN\n", []string{"identifiant inutilisé: x"}},
		{"uninit", "VAR x\nPROGRAMME()\nDEBUT\n\tECRIRE x\nFIN\n", []string{"identifiant non initialisé: x"}},
		{"duplicate", "VAR x <- 1, x <- 2\nPROGRAMME()\nDEBUT\n\tECRIRE x\nFIN\n", []string{"le symbole x est déjà déclaré dans le contexte global"}},
		{"range", "PROGRAMME()\nDEBUT\n\tECRIRE 40000\nFIN\n", []string{"la valeur 40000 dépasse la capacité d'un entier 16 bits"}},
		{"unused_func", "FONCTION f()\nDEBUT\nFIN\nPROGRAMME()\nDEBUT\nFIN\n", []string{"fonction inutilisée: f"}},
		{"unused_param", "FONCTION f(a)\nDEBUT\nFIN\nPROGRAMME()\nDEBUT\n\tf(1)\nFIN\n", []string{"identifiant inutilisé: a"}},
		{"unreachable", "FONCTION f()\nDEBUT\n\tRETOURNER 1\n\tECRIRE 2\n\tECRIRE 3\nFIN\nPROGRAMME()\nDEBUT\n\tECRIRE f()\nFIN\n", []string{"instruction inaccessible"}},
		{"loop", "PROGRAMME()\nVAR i, s <- 0\nDEBUT\n\tPOUR i DE 0 A 10 FAIRE\n\t\ts <- s + i\n\tFPOUR\n\tECRIRE s\nFIN\n", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, warns, err := analyzeText(t, tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, warns)
		})
	}
}

func TestDuplicateKeepsFirst(t *testing.T) {
	p, r, _, err := analyzeText(t, "VAR x <- 1, x[4]\nPROGRAMME()\nDEBUT\n\tECRIRE x\nFIN\n")
	require.NoError(t, err)

	x, err := r.Table.GetSymbol(symtab.Global, "x")
	require.NoError(t, err)
	assert.Equal(t, tp.Int, x.Kind)
	assert.Equal(t, asm.StaticStart, x.Adr)
	assert.Equal(t, 1, r.Static)

	assert.Equal(t, x.Adr, p.Decls.Decls[1].Info().MemAdr)
}

func TestUnreachableNotCounted(t *testing.T) {
	p, _, _, err := analyzeText(t, "FONCTION f()\nDEBUT\n\tRETOURNER 1\n\tECRIRE 2\nFIN\nPROGRAMME()\nDEBUT\n\tECRIRE f()\nFIN\n")
	require.NoError(t, err)

	f := p.Decls.Decls[0].(*ast.FuncDecl)
	require.Len(t, f.Body.Stmts, 2)
	assert.Equal(t, 10, f.Body.Codelen)
	assert.Equal(t, 2, f.Body.Stmts[1].Info().Codelen)
}

func TestFatal(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
		code diag.Code
		msg  string
	}{
		{"array_size", "VAR t[3] <- [1, 2, 3, 4]\nPROGRAMME()\nDEBUT\nFIN\n", diag.SemanticError,
			"la taille du tableau t (3) ne correspond pas au nombre d'éléments (4)"},
		{"undeclared", "PROGRAMME()\nDEBUT\n\tECRIRE y\nFIN\n", diag.UndefIdent, "identifiant non déclaré: y"},
		{"return_main", "PROGRAMME()\nDEBUT\n\tRETOURNER 1\nFIN\n", diag.SemanticError, "RETOURNER en dehors d'une fonction"},
		{"arity", "FONCTION f(a)\nDEBUT\n\tRETOURNER a\nFIN\nPROGRAMME()\nDEBUT\n\tECRIRE f(1, 2)\nFIN\n", diag.SemanticError,
			"la fonction f attend 1 arguments, 2 donnés"},
		{"proto_arity", "FONCTION f(a);\nFONCTION f(a, b)\nDEBUT\nFIN\nPROGRAMME()\nDEBUT\nFIN\n", diag.SemanticError,
			"la fonction f attend 1 paramètres, 2 déclarés"},
		{"never_defined", "FONCTION f();\nPROGRAMME()\nDEBUT\n\tf()\nFIN\n", diag.SemanticError,
			"la fonction f est appelée mais jamais définie"},
		{"deref_int", "VAR x <- 1\nPROGRAMME()\nDEBUT\n\tECRIRE @x\nFIN\n", diag.SemanticError, "déréférencement d'une valeur de type entier"},
		{"alloc_int", "VAR x\nPROGRAMME()\nDEBUT\n\tALLOUER(x, 3)\nFIN\n", diag.SemanticError, "ALLOUER attend un pointeur, x est de type entier"},
		{"assign_array", "VAR t[2]\nPROGRAMME()\nDEBUT\n\tt <- 1\nFIN\n", diag.SemanticError, "impossible d'affecter au tableau t"},
		{"index_int", "VAR x <- 1\nPROGRAMME()\nDEBUT\n\tECRIRE x[0]\nFIN\n", diag.SemanticError, "x de type entier n'est pas indexable"},
		{"func_value", "FONCTION f()\nDEBUT\nFIN\nPROGRAMME()\nDEBUT\n\tECRIRE f\nFIN\n", diag.SemanticError,
			"la fonction f ne peut pas être utilisée comme valeur"},
		{"loop_var", "VAR t[2]\nPROGRAMME()\nDEBUT\n\tPOUR t DE 0 A 2 FAIRE\n\t\tECRIRE 1\n\tFPOUR\nFIN\n", diag.SemanticError,
			"la variable de boucle t doit être scalaire, pas tableau"},
		{"no_size", "VAR t[]\nPROGRAMME()\nDEBUT\nFIN\n", diag.SemanticError, "taille de tableau invalide: t"},
		{"not_func", "VAR x <- 1\nPROGRAMME()\nDEBUT\n\tx()\nFIN\n", diag.SemanticError, "x n'est pas une fonction"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, r, _, err := analyzeText(t, tc.text)
			require.Error(t, err)
			assert.Nil(t, r)

			e, ok := diag.As(err)
			require.True(t, ok, "%v", err)
			assert.Equal(t, tc.code, e.Code)
			assert.Equal(t, tc.msg, e.Msg)
			assert.NotZero(t, e.Span.Line)
		})
	}
}

func TestUnsupportedNode(t *testing.T) {
	s := New(nil)

	err := s.stmt(context.Background(), &ast.Number{Value: 1})
	require.Error(t, err)

	var u UnsupportedNodeError
	require.ErrorAs(t, err, &u)
	assert.Equal(t, "unsupported node: number", u.Error())
}
