package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/tp"
)

type warnings []string

func (w *warnings) Warn(s ast.Span, format string, args ...any) {
	*w = append(*w, format)
}

func TestScopeFallback(t *testing.T) {
	var w warnings
	tb := New(Global, &w)

	tb.AddSymbol(Global, &Symbol{ID: "g", Kind: tp.Int, Size: 1, Adr: 16, Zone: tp.Static})
	tb.AddContext("f", ast.Span{})
	tb.AddContext("h", ast.Span{})
	tb.AddSymbol("f", &Symbol{ID: "loc", Kind: tp.Int, Size: 1, Adr: 1, Zone: tp.Stack})

	s, err := tb.GetSymbol("h", "g")
	require.NoError(t, err)
	assert.Equal(t, 16, s.Adr)

	s, err = tb.GetSymbol("f", "loc")
	require.NoError(t, err)
	assert.Equal(t, tp.Stack, s.Zone)

	_, err = tb.GetSymbol("h", "loc")
	assert.Equal(t, UndeclaredError{Context: "h", ID: "loc"}, err)

	_, err = tb.GetSymbol("nope", "g")
	assert.Equal(t, UnknownContextError{Context: "nope"}, err)

	assert.Empty(t, w)
}

func TestSearchSymbol(t *testing.T) {
	tb := New(Global, nil)

	s, err := tb.SearchSymbol(Global, "x")
	assert.NoError(t, err)
	assert.Nil(t, s)

	_, err = tb.SearchSymbol("f", "x")
	assert.ErrorAs(t, err, &UnknownContextError{})

	var nilTable *Table
	_, err = nilTable.SearchSymbol(Global, "x")
	assert.ErrorIs(t, err, ErrNotInit)
}

func TestDuplicates(t *testing.T) {
	var w warnings
	tb := New(Global, &w)

	first := tb.AddSymbol(Global, &Symbol{ID: "x", Kind: tp.Int, Size: 1, Adr: 16, Zone: tp.Static})
	got := tb.AddSymbol(Global, &Symbol{ID: "x", Kind: tp.Array, Size: 3, Adr: 17, Zone: tp.Static})

	assert.Same(t, first, got)
	assert.Equal(t, tp.Int, got.Kind)
	assert.Equal(t, 16, got.Adr)
	assert.Len(t, w, 1)
	assert.Equal(t, 1, tb.Symbols())

	// same name in another context shadows silently
	tb.AddSymbol("f", &Symbol{ID: "x", Kind: tp.Int, Size: 1, Adr: 1, Zone: tp.Stack})
	assert.Len(t, w, 1)
	assert.NotNil(t, tb.SearchContext("f"))

	c1 := tb.AddContext("g", ast.Span{})
	c2 := tb.AddContext("g", ast.Span{})
	assert.Same(t, c1, c2)
	assert.Len(t, w, 2)

	var names []string
	for _, c := range tb.Contexts {
		names = append(names, c.Name)
	}

	assert.Equal(t, []string{Global, "f", "g"}, names)
}
