package format

import (
	"github.com/nikandfor/hacked/hfmt"

	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/symtab"
)

// Tree appends an indented dump of x, one node per line.
func Tree(b []byte, x ast.Node) []byte {
	return tree(b, x, 0)
}

func tree(b []byte, x ast.Node, d int) []byte {
	i := x.Info()

	b = app(b, d, "%-11s %-6v mem_adr %-5d codelen %d", ast.Name(x), i.Span, i.MemAdr, i.Codelen)

	switch x := x.(type) {
	case *ast.Number:
		b = hfmt.Appendf(b, "  %d", x.Value)
	case *ast.Ident:
		b = hfmt.Appendf(b, "  %s", x.Name)
	case *ast.BinOp:
		b = hfmt.Appendf(b, "  %s", x.Op)
	case *ast.UnOp:
		b = hfmt.Appendf(b, "  %s", x.Op)
	case *ast.VarDecl:
		if x.Pointer {
			b = append(b, "  @"...)
		}
	case *ast.ArrayDecl:
		b = hfmt.Appendf(b, "  [%d]", x.Size)
	case *ast.IO:
		if x.Write {
			b = append(b, "  ECRIRE"...)
		} else {
			b = append(b, "  LIRE"...)
		}
	}

	b = append(b, '\n')

	for _, c := range ast.Children(x) {
		b = tree(b, c, d+1)
	}

	return b
}

// Table appends the symbols of t grouped by context.
func Table(b []byte, t *symtab.Table) []byte {
	for _, c := range t.Contexts {
		b = hfmt.Appendf(b, "%s\n", c.Name)

		for _, s := range c.Symbols {
			b = app(b, 1, "%-12s %-9v %-8v adr %-5d size %-4d %s\n", s.ID, s.Kind, s.Zone, s.Adr, s.Size, flags(s))
		}
	}

	return b
}

func flags(s *symtab.Symbol) string {
	f := []byte("----")

	if s.IsUsed {
		f[0] = 'u'
	}
	if s.IsInit {
		f[1] = 'i'
	}
	if s.IsModified {
		f[2] = 'm'
	}
	if s.IsChecked {
		f[3] = 'c'
	}

	return string(f)
}
