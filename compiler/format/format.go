package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/M3tex/arc/compiler/ast"
)

// operator precedence, loosest first
const (
	precOr = 1 + iota
	precAnd
	precNot
	precCmp
	precSum
	precTerm
	precUnary
	precPrimary
)

// Format appends x in canonical source layout.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ast.Program:
		return formatProgram(ctx, b, x, d)
	case *ast.FuncDecl:
		return formatFunc(ctx, b, x, d)
	case *ast.Block:
		return formatBlock(ctx, b, x, d)
	case ast.Node:
		return formatExpr(ctx, b, x, 0)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatProgram(ctx context.Context, b []byte, x *ast.Program, d int) (_ []byte, err error) {
	var vars []ast.Node

	flush := func() error {
		if len(vars) == 0 {
			return nil
		}

		b, err = formatVars(ctx, b, vars, d)
		vars = vars[:0]

		return err
	}

	for _, n := range x.Decls.Decls {
		switch n := n.(type) {
		case *ast.VarDecl, *ast.ArrayDecl:
			vars = append(vars, n)
			continue
		}

		if err = flush(); err != nil {
			return nil, err
		}

		switch n := n.(type) {
		case *ast.Proto:
			b = app(b, d, "FONCTION %s(", n.Name.Name)
			b = formatParams(b, n.Params)
			b = append(b, ");\n"...)
		case *ast.FuncDecl:
			b, err = formatFunc(ctx, b, n, d)
			if err != nil {
				return nil, errors.Wrap(err, "func %v", n.Name.Name)
			}

			b = append(b, '\n')
		default:
			return nil, errors.New("unsupported decl: %T", n)
		}
	}

	if err = flush(); err != nil {
		return nil, err
	}

	return formatFunc(ctx, b, x.Main, d)
}

func formatFunc(ctx context.Context, b []byte, x *ast.FuncDecl, d int) (_ []byte, err error) {
	if x.Entry {
		b = app(b, d, "%s(", x.Name.Name)
	} else {
		b = app(b, d, "FONCTION %s(", x.Name.Name)
	}

	b = formatParams(b, x.Params)
	b = append(b, ")\n"...)

	if x.Decls != nil && len(x.Decls.Decls) != 0 {
		b, err = formatVars(ctx, b, x.Decls.Decls, d)
		if err != nil {
			return nil, errors.Wrap(err, "decls")
		}
	}

	b = app(b, d, "DEBUT\n")

	b, err = formatBlock(ctx, b, x.Body, d+1)
	if err != nil {
		return nil, errors.Wrap(err, "body")
	}

	b = app(b, d, "FIN\n")

	return b, nil
}

func formatParams(b []byte, l []*ast.VarDecl) []byte {
	for i, p := range l {
		if i != 0 {
			b = append(b, ", "...)
		}

		if p.Pointer {
			b = append(b, '@')
		}

		b = append(b, p.Name.Name...)
	}

	return b
}

func formatVars(ctx context.Context, b []byte, l []ast.Node, d int) (_ []byte, err error) {
	b = app(b, d, "VAR ")

	for i, n := range l {
		if i != 0 {
			b = append(b, ", "...)
		}

		switch n := n.(type) {
		case *ast.VarDecl:
			if n.Pointer {
				b = append(b, '@')
			}

			b = append(b, n.Name.Name...)

			if n.Init != nil {
				b = append(b, " <- "...)

				b, err = formatExpr(ctx, b, n.Init, 0)
				if err != nil {
					return nil, errors.Wrap(err, "%v", n.Name.Name)
				}
			}
		case *ast.ArrayDecl:
			b = append(b, n.Name.Name...)
			b = append(b, '[')

			if n.Size >= 0 {
				b = hfmt.Appendf(b, "%d", n.Size)
			}

			b = append(b, ']')

			if !n.HasInit {
				break
			}

			b = append(b, " <- ["...)

			b, err = formatList(ctx, b, n.Elems)
			if err != nil {
				return nil, errors.Wrap(err, "%v", n.Name.Name)
			}

			b = append(b, ']')
		default:
			return nil, errors.New("unsupported decl: %T", n)
		}
	}

	b = append(b, '\n')

	return b, nil
}

func formatBlock(ctx context.Context, b []byte, x *ast.Block, d int) (_ []byte, err error) {
	for _, s := range x.Stmts {
		b, err = formatStmt(ctx, b, s, d)
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}

func formatStmt(ctx context.Context, b []byte, s ast.Node, d int) (_ []byte, err error) {
	switch s := s.(type) {
	case *ast.Assign:
		if io, ok := s.Value.(*ast.IO); ok && !io.Write {
			b = app(b, d, "LIRE ")

			b, err = formatExpr(ctx, b, s.Target, 0)
			if err != nil {
				return nil, errors.Wrap(err, "LIRE")
			}

			break
		}

		b = app(b, d, "")

		b, err = formatExpr(ctx, b, s.Target, 0)
		if err != nil {
			return nil, errors.Wrap(err, "lhs")
		}

		b = append(b, " <- "...)

		b, err = formatExpr(ctx, b, s.Value, 0)
		if err != nil {
			return nil, errors.Wrap(err, "rhs")
		}
	case *ast.IO:
		b = app(b, d, "ECRIRE ")

		b, err = formatExpr(ctx, b, s.X, 0)
		if err != nil {
			return nil, errors.Wrap(err, "ECRIRE")
		}
	case *ast.Call:
		b = app(b, d, "")

		b, err = formatExpr(ctx, b, s, 0)
		if err != nil {
			return nil, err
		}
	case *ast.Return:
		b = app(b, d, "RETOURNER")

		if s.X != nil {
			b = append(b, ' ')

			b, err = formatExpr(ctx, b, s.X, 0)
			if err != nil {
				return nil, errors.Wrap(err, "RETOURNER")
			}
		}
	case *ast.Alloc:
		b = app(b, d, "ALLOUER(%s, ", s.Ptr.Name)

		b, err = formatExpr(ctx, b, s.Size, 0)
		if err != nil {
			return nil, errors.Wrap(err, "ALLOUER")
		}

		b = append(b, ')')
	case *ast.If:
		b = app(b, d, "SI ")

		b, err = formatExpr(ctx, b, s.Cond, 0)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, " ALORS\n"...)

		b, err = formatBlock(ctx, b, s.Then, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "then block")
		}

		if s.Else != nil && len(s.Else.Stmts) != 0 {
			b = app(b, d, "SINON\n")

			b, err = formatBlock(ctx, b, s.Else, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "else block")
			}
		}

		b = app(b, d, "FSI")
	case *ast.While:
		b = app(b, d, "TANT QUE ")

		b, err = formatExpr(ctx, b, s.Cond, 0)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, " FAIRE\n"...)

		b, err = formatBlock(ctx, b, s.Body, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}

		b = app(b, d, "FTQ")
	case *ast.DoWhile:
		b = app(b, d, "FAIRE\n")

		b, err = formatBlock(ctx, b, s.Body, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}

		b = app(b, d, "TANT QUE ")

		b, err = formatExpr(ctx, b, s.Cond, 0)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}
	case *ast.For:
		b = app(b, d, "POUR %s DE ", s.Var.Name)

		b, err = formatExpr(ctx, b, s.Init.Value, 0)
		if err != nil {
			return nil, errors.Wrap(err, "from")
		}

		b = append(b, " A "...)

		b, err = formatExpr(ctx, b, s.Cond.Right, 0)
		if err != nil {
			return nil, errors.Wrap(err, "to")
		}

		b = append(b, " FAIRE\n"...)

		b, err = formatBlock(ctx, b, s.Body, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}

		b = app(b, d, "FPOUR")
	default:
		return nil, errors.New("unsupported stmt: %T", s)
	}

	b = append(b, '\n')

	return b, nil
}

// formatExpr wraps x in parentheses if it binds looser than prec.
func formatExpr(ctx context.Context, b []byte, x ast.Node, prec int) (_ []byte, err error) {
	p := precedence(x)

	if p < prec {
		b = append(b, '(')
	}

	switch x := x.(type) {
	case *ast.Number:
		b = hfmt.Appendf(b, "%d", x.Value)
	case *ast.Ident:
		b = append(b, x.Name...)
	case *ast.BinOp:
		l, r := p, p+1
		if x.Op.Compare() {
			l = p + 1
		}

		b, err = formatExpr(ctx, b, x.Left, l)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = append(b, ' ')
		b = append(b, x.Op...)
		b = append(b, ' ')

		b, err = formatExpr(ctx, b, x.Right, r)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
	case *ast.UnOp:
		b = append(b, x.Op...)

		if x.Op == ast.Not {
			b = append(b, ' ')
		}

		b, err = formatExpr(ctx, b, x.X, p)
		if err != nil {
			return nil, errors.Wrap(err, "%v", x.Op)
		}
	case *ast.Index:
		b = append(b, x.Array.Name...)
		b = append(b, '[')

		b, err = formatExpr(ctx, b, x.Index, 0)
		if err != nil {
			return nil, errors.Wrap(err, "index")
		}

		b = append(b, ']')
	case *ast.Call:
		b = append(b, x.Func.Name...)
		b = append(b, '(')

		b, err = formatList(ctx, b, x.Args)
		if err != nil {
			return nil, errors.Wrap(err, "%v", x.Func.Name)
		}

		b = append(b, ')')
	case *ast.IO:
		if x.Write {
			return nil, errors.New("ECRIRE is not an expression")
		}

		b = append(b, "LIRE()"...)
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	if p < prec {
		b = append(b, ')')
	}

	return b, nil
}

func formatList(ctx context.Context, b []byte, l []ast.Node) (_ []byte, err error) {
	for i, e := range l {
		if i != 0 {
			b = append(b, ", "...)
		}

		b, err = formatExpr(ctx, b, e, 0)
		if err != nil {
			return nil, errors.Wrap(err, "elem %d", i)
		}
	}

	return b, nil
}

func precedence(x ast.Node) int {
	switch x := x.(type) {
	case *ast.BinOp:
		switch {
		case x.Op == ast.Or:
			return precOr
		case x.Op == ast.And:
			return precAnd
		case x.Op.Compare():
			return precCmp
		case x.Op == ast.Add || x.Op == ast.Sub:
			return precSum
		default:
			return precTerm
		}
	case *ast.UnOp:
		if x.Op == ast.Not {
			return precNot
		}

		return precUnary
	}

	return precPrimary
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
