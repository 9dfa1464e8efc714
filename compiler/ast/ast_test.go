package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sp(l, c, el, ec int) Span { return Span{Line: l, Col: c, EndLine: el, EndCol: ec} }

func TestSpan(t *testing.T) {
	s := sp(2, 3, 2, 7)

	assert.True(t, s.Contains(2, 3))
	assert.True(t, s.Contains(2, 7))
	assert.False(t, s.Contains(2, 8))
	assert.False(t, s.Contains(1, 5))

	j := Join(sp(2, 3, 2, 7), sp(1, 9, 1, 10))
	assert.Equal(t, sp(1, 9, 2, 7), j)

	assert.Equal(t, s, Join(s, Span{}))
	assert.Equal(t, "2:3", s.String())
}

func TestWalkFind(t *testing.T) {
	x := &Ident{Base: At(sp(1, 8, 1, 8)), Name: "x"}
	y := &Ident{Base: At(sp(1, 12, 1, 12)), Name: "y"}

	sum := &BinOp{Base: At(sp(1, 8, 1, 12)), Op: Add, Left: x, Right: y}
	wr := &IO{Base: At(sp(1, 1, 1, 12)), Write: true, X: sum}

	prog := &Program{
		Base:  At(sp(1, 1, 1, 12)),
		Decls: &DeclList{},
		Main: &FuncDecl{
			Base:  At(sp(1, 1, 1, 12)),
			Name:  &Ident{Name: EntryPoint},
			Decls: &DeclList{},
			Body:  &Block{Base: At(sp(1, 1, 1, 12)), Stmts: []Node{wr}},
			Entry: true,
		},
	}

	var kinds []string
	Walk(wr, func(n Node) bool {
		kinds = append(kinds, Name(n))
		return true
	})

	assert.Equal(t, []string{"io", "bin_op", "ident", "ident"}, kinds)

	id, ok := Find[*Ident](prog, 1, 12)
	require.True(t, ok)
	assert.Same(t, y, id)

	_, ok = Find[*Ident](prog, 1, 10)
	assert.False(t, ok)

	assert.Equal(t, -1, x.Info().MemAdr)
}

func TestOps(t *testing.T) {
	assert.True(t, Add.Arith())
	assert.False(t, Lt.Arith())
	assert.True(t, Le.Compare())
	assert.False(t, And.Compare())
}
