package parse

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/diag"
)

type (
	State struct {
		b []byte

		lines []int // line start offsets
	}

	SyntaxError struct {
		Pos int
		End int
		Msg string
	}
)

var (
	sumOps  = map[Token]ast.Op{Char('+'): ast.Add, Char('-'): ast.Sub}
	termOps = map[Token]ast.Op{Char('*'): ast.Mul, Char('/'): ast.Div, Char('%'): ast.Mod}
)

func ParseFile(ctx context.Context, name string) (*ast.Program, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, data)
}

func Parse(ctx context.Context, text []byte) (*ast.Program, error) {
	return New(text).Parse(ctx)
}

func New(text []byte) *State {
	s := &State{
		b:     text,
		lines: []int{0},
	}

	for i, c := range text {
		if c == '\n' {
			s.lines = append(s.lines, i+1)
		}
	}

	return s
}

// Parse returns a *diag.Error on bad input.
func (s *State) Parse(ctx context.Context) (p *ast.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse", "size", len(s.b), "lines", len(s.lines))
	defer tr.Finish("err", &err)

	p, _, err = s.parseProgram(ctx, 0)
	if err != nil {
		return nil, s.fatal(ctx, err)
	}

	return p, nil
}

// LineCol converts an offset to 1-based line and column.
func (s *State) LineCol(pos int) (line, col int) {
	l := sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > pos }) - 1

	return l + 1, pos - s.lines[l] + 1
}

// Span covers [pos, end).
func (s *State) Span(pos, end int) (r ast.Span) {
	r.Line, r.Col = s.LineCol(pos)

	if end <= pos {
		r.EndLine, r.EndCol = r.Line, r.Col
		return
	}

	r.EndLine, r.EndCol = s.LineCol(end - 1)

	return
}

func (s *State) fatal(ctx context.Context, err error) error {
	switch e := cause(err).(type) {
	case UnexpectedError:
		_, tst, i := s.next(ctx, e.Pos)

		code := diag.SyntaxError
		if _, ok := e.Token.(Bad); ok {
			code = diag.LexError
		}

		return diag.Fatalf(code, s.Span(tst, i), "%v", e)
	case SyntaxError:
		return diag.Fatalf(diag.SyntaxError, s.Span(e.Pos, e.End), "%s", e.Msg)
	default:
		return err
	}
}

func (s *State) parseProgram(ctx context.Context, st int) (p *ast.Program, i int, err error) {
	p = &ast.Program{
		Decls: &ast.DeclList{Base: ast.At(ast.Span{})},
	}

	i = s.skipLines(ctx, st)

	for {
		tk, tst, j := s.next(ctx, i)

		switch tk {
		case Keyword("VAR"):
			var l []ast.Node

			l, i, err = s.parseVarDecl(ctx, j)
			if err != nil {
				return
			}

			p.Decls.Decls = append(p.Decls.Decls, l...)
		case Keyword("FONCTION"):
			var f ast.Node

			f, i, err = s.parseFunc(ctx, tst, j)
			if err != nil {
				return
			}

			p.Decls.Decls = append(p.Decls.Decls, f)
		case Keyword("PROGRAMME"):
			p.Main, i, err = s.parseMain(ctx, tst, j)
			if err != nil {
				return
			}

			i = s.skipLines(ctx, i)

			if tk, tst, _ := s.next(ctx, i); tk != nil {
				return nil, tst, NewUnexpected(tst, tk, nil)
			}

			for _, d := range p.Decls.Decls {
				p.Decls.Span = ast.Join(p.Decls.Span, d.Info().Span)
			}

			p.Base = ast.At(s.Span(st, i))

			return p, i, nil
		default:
			return nil, tst, NewUnexpected(tst, tk, Keyword("VAR"), Keyword("FONCTION"), Keyword("PROGRAMME"))
		}

		i = s.skipLines(ctx, i)
	}
}

func (s *State) parseVarDecl(ctx context.Context, st int) (l []ast.Node, i int, err error) {
	i = st

	for {
		var x ast.Node

		x, i, err = s.parseVarItem(ctx, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "var")
		}

		l = append(l, x)

		tk, _, j := s.next(ctx, i)
		if tk != Char(',') {
			return l, i, nil
		}

		i = j
	}
}

func (s *State) parseVarItem(ctx context.Context, st int) (x ast.Node, i int, err error) {
	tk, tst, i := s.next(ctx, st)

	pointer := tk == Char('@')
	if pointer {
		tk, _, i = s.next(ctx, i)
	}

	id, err := s.ident(tk, i)
	if err != nil {
		return nil, i, err
	}

	tk, _, j := s.next(ctx, i)

	if tk == Char('[') && !pointer {
		return s.parseArrayDecl(ctx, tst, j, id)
	}

	d := &ast.VarDecl{
		Name:    id,
		Pointer: pointer,
	}

	if tk == Op("<-") {
		d.Init, i, err = s.parseExpr(ctx, j)
		if err != nil {
			return nil, i, errors.Wrap(err, "init")
		}
	}

	d.Base = ast.At(s.Span(tst, i))

	return d, i, nil
}

func (s *State) parseArrayDecl(ctx context.Context, st, i int, id *ast.Ident) (x ast.Node, _ int, err error) {
	d := &ast.ArrayDecl{
		Name: id,
		Size: -1,
	}

	tk, tst, j := s.next(ctx, i)
	if n, ok := tk.(Number); ok {
		d.Size, err = s.atoi(tst, j, string(n))
		if err != nil {
			return nil, tst, err
		}

		i = j
	}

	i, err = s.expect(ctx, i, Char(']'))
	if err != nil {
		return nil, i, err
	}

	if tk, _, j := s.next(ctx, i); tk == Op("<-") {
		d.HasInit = true

		d.Elems, i, err = s.parseList(ctx, j, Char('['), Char(']'))
		if err != nil {
			return nil, i, errors.Wrap(err, "array init")
		}
	}

	d.Base = ast.At(s.Span(st, i))

	return d, i, nil
}

// parseList parses open [expr {, expr}] close.
func (s *State) parseList(ctx context.Context, st int, open, close Char) (l []ast.Node, i int, err error) {
	i, err = s.expect(ctx, st, open)
	if err != nil {
		return nil, i, err
	}

	if tk, _, j := s.next(ctx, i); tk == close {
		return nil, j, nil
	}

	for {
		var x ast.Node

		x, i, err = s.parseExpr(ctx, i)
		if err != nil {
			return nil, i, err
		}

		l = append(l, x)

		tk, tst, j := s.next(ctx, i)
		switch tk {
		case Char(','):
			i = j
		case close:
			return l, j, nil
		default:
			return nil, tst, NewUnexpected(tst, tk, Char(','), close)
		}
	}
}

func (s *State) parseFunc(ctx context.Context, st, i int) (x ast.Node, _ int, err error) {
	tk, _, i := s.next(ctx, i)

	name, err := s.ident(tk, i)
	if err != nil {
		return nil, i, err
	}

	params, i, err := s.parseParams(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "func %v", name.Name)
	}

	if tk, _, j := s.next(ctx, i); tk == Char(';') {
		return &ast.Proto{
			Base:   ast.At(s.Span(st, j)),
			Name:   name,
			Params: params,
		}, j, nil
	}

	f := &ast.FuncDecl{
		Name:   name,
		Params: params,
	}

	f.Decls, f.Body, i, err = s.parseBody(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "func %v", name.Name)
	}

	f.Base = ast.At(s.Span(st, i))

	return f, i, nil
}

func (s *State) parseMain(ctx context.Context, st, i int) (f *ast.FuncDecl, _ int, err error) {
	f = &ast.FuncDecl{
		Name:  &ast.Ident{Base: ast.At(s.Span(st, i)), Name: ast.EntryPoint},
		Entry: true,
	}

	f.Params, i, err = s.parseParams(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "%v", ast.EntryPoint)
	}

	if len(f.Params) != 0 {
		p := f.Params[0].Span

		return nil, i, SyntaxError{Pos: s.offset(p.Line, p.Col), End: s.offset(p.EndLine, p.EndCol) + 1, Msg: ast.EntryPoint + " ne prend pas de paramètre"}
	}

	f.Decls, f.Body, i, err = s.parseBody(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "%v", ast.EntryPoint)
	}

	f.Base = ast.At(s.Span(st, i))

	return f, i, nil
}

func (s *State) parseParams(ctx context.Context, st int) (l []*ast.VarDecl, i int, err error) {
	i, err = s.expect(ctx, st, Char('('))
	if err != nil {
		return nil, i, err
	}

	if tk, _, j := s.next(ctx, i); tk == Char(')') {
		return nil, j, nil
	}

	for {
		tk, tst, j := s.next(ctx, i)

		pointer := tk == Char('@')
		if pointer {
			tk, _, j = s.next(ctx, j)
		}

		id, err := s.ident(tk, j)
		if err != nil {
			return nil, j, err
		}

		l = append(l, &ast.VarDecl{
			Base:    ast.At(s.Span(tst, j)),
			Name:    id,
			Pointer: pointer,
		})

		tk, tst, i = s.next(ctx, j)
		switch tk {
		case Char(','):
		case Char(')'):
			return l, i, nil
		default:
			return nil, tst, NewUnexpected(tst, tk, Char(','), Char(')'))
		}
	}
}

func (s *State) parseBody(ctx context.Context, st int) (decls *ast.DeclList, body *ast.Block, i int, err error) {
	decls = &ast.DeclList{Base: ast.At(ast.Span{})}

	i = s.skipLines(ctx, st)

	for {
		tk, _, j := s.next(ctx, i)
		if tk != Keyword("VAR") {
			break
		}

		var l []ast.Node

		l, i, err = s.parseVarDecl(ctx, j)
		if err != nil {
			return
		}

		for _, d := range l {
			decls.Span = ast.Join(decls.Span, d.Info().Span)
		}

		decls.Decls = append(decls.Decls, l...)

		i = s.skipLines(ctx, i)
	}

	i, err = s.expect(ctx, i, Keyword("DEBUT"))
	if err != nil {
		return
	}

	body, i, err = s.parseStmts(ctx, i, false)
	if err != nil {
		return
	}

	i, err = s.expect(ctx, i, Keyword("FIN"))

	return
}

// parseStmts parses statements up to a closing keyword, which is not consumed.
// In a FAIRE body (dw) a TANT QUE not followed by FAIRE closes the body too.
func (s *State) parseStmts(ctx context.Context, st int, dw bool) (b *ast.Block, i int, err error) {
	b = &ast.Block{Base: ast.At(ast.Span{})}

	i = st

	for {
		i = s.skipLines(ctx, i)

		tk, _, j := s.next(ctx, i)

		switch tk {
		case nil, Keyword("SINON"), Keyword("FSI"), Keyword("FTQ"), Keyword("FPOUR"), Keyword("FIN"):
			return b, i, nil
		case Keyword("TANT"):
			if dw && !s.whileAhead(ctx, j) {
				return b, i, nil
			}
		}

		var x ast.Node

		x, i, err = s.parseStatement(ctx, i, dw)
		if err != nil {
			return nil, i, err
		}

		b.Stmts = append(b.Stmts, x)
		b.Span = ast.Join(b.Span, x.Info().Span)
	}
}

// whileAhead reports whether QUE expr FAIRE follows on the same line.
func (s *State) whileAhead(ctx context.Context, st int) bool {
	i, err := s.expect(ctx, st, Keyword("QUE"))
	if err != nil {
		return false
	}

	_, i, err = s.parseExpr(ctx, i)
	if err != nil {
		return false
	}

	return s.peek(ctx, i) == Keyword("FAIRE")
}

func (s *State) parseStatement(ctx context.Context, st int, dw bool) (x ast.Node, i int, err error) {
	tk, tst, i := s.next(ctx, st)

	switch tk := tk.(type) {
	case Ident:
		if s.peek(ctx, i) == Char('(') {
			return s.parsePrimary(ctx, st)
		}

		return s.parseAssign(ctx, st)
	case Char:
		if tk == '@' {
			return s.parseAssign(ctx, st)
		}
	case Keyword:
		switch tk {
		case "ECRIRE":
			e, i, err := s.parseExpr(ctx, i)
			if err != nil {
				return nil, i, errors.Wrap(err, "ECRIRE")
			}

			return &ast.IO{Base: ast.At(s.Span(tst, i)), Write: true, X: e}, i, nil
		case "LIRE":
			target, i, err := s.parseLvalue(ctx, i)
			if err != nil {
				return nil, i, errors.Wrap(err, "LIRE")
			}

			sp := s.Span(tst, i)

			return &ast.Assign{
				Base:   ast.At(sp),
				Target: target,
				Value:  &ast.IO{Base: ast.At(s.Span(tst, tst+len("LIRE")))},
			}, i, nil
		case "SI":
			return s.parseIf(ctx, tst, i, dw)
		case "TANT":
			return s.parseWhile(ctx, tst, i)
		case "FAIRE":
			return s.parseDoWhile(ctx, tst, i)
		case "POUR":
			return s.parseFor(ctx, tst, i)
		case "RETOURNER":
			return s.parseReturn(ctx, tst, i)
		case "ALLOUER":
			return s.parseAlloc(ctx, tst, i)
		}
	}

	return nil, tst, NewUnexpected(tst, tk, Ident(""), Keyword(""))
}

func (s *State) parseLvalue(ctx context.Context, st int) (x ast.Node, i int, err error) {
	tk, tst, i := s.next(ctx, st)

	switch tk := tk.(type) {
	case Ident:
		id, _ := s.ident(tk, i)

		if s.peek(ctx, i) != Char('[') {
			return id, i, nil
		}

		return s.parseIndex(ctx, tst, i, id)
	case Char:
		if tk != '@' {
			break
		}

		p, i, err := s.parseUnary(ctx, i)
		if err != nil {
			return nil, i, err
		}

		return &ast.UnOp{Base: ast.At(s.Span(tst, i)), Op: ast.Deref, X: p}, i, nil
	}

	return nil, tst, NewUnexpected(tst, tk, Ident(""), Char('@'))
}

func (s *State) parseAssign(ctx context.Context, st int) (x ast.Node, i int, err error) {
	target, i, err := s.parseLvalue(ctx, st)
	if err != nil {
		return nil, i, err
	}

	i, err = s.expect(ctx, i, Op("<-"))
	if err != nil {
		return nil, i, err
	}

	v, i, err := s.parseExpr(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "rhs")
	}

	tlog.SpanFromContext(ctx).V("parse_stmt").Printw("assignment", "lhs", target, "rhs", v)

	return &ast.Assign{
		Base:   ast.At(ast.Join(target.Info().Span, v.Info().Span)),
		Target: target,
		Value:  v,
	}, i, nil
}

// parseIf parses both layouts:
// SI c ALORS s SINON s [FSI] on one line, or branches on their own lines closed by FSI.
func (s *State) parseIf(ctx context.Context, st, i int, dw bool) (x ast.Node, _ int, err error) {
	n := &ast.If{}

	n.Cond, i, err = s.parseExpr(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "SI")
	}

	i, err = s.expect(ctx, s.skipLines(ctx, i), Keyword("ALORS"))
	if err != nil {
		return nil, i, err
	}

	block := s.peek(ctx, i) == Char('\n')

	n.Then, i, err = s.parseBranch(ctx, i, dw, block)
	if err != nil {
		return nil, i, err
	}

	n.Else = &ast.Block{Base: ast.At(ast.Span{})}

	j := i
	if block {
		j = s.skipLines(ctx, i)
	}

	if tk, _, e := s.next(ctx, j); tk == Keyword("SINON") {
		eblock := s.peek(ctx, e) == Char('\n')
		block = block || eblock

		n.Else, i, err = s.parseBranch(ctx, e, dw, eblock)
		if err != nil {
			return nil, i, err
		}
	}

	if block {
		i, err = s.expect(ctx, s.skipLines(ctx, i), Keyword("FSI"))
		if err != nil {
			return nil, i, err
		}
	} else if tk, _, j := s.next(ctx, i); tk == Keyword("FSI") {
		i = j
	}

	n.Base = ast.At(s.Span(st, i))

	return n, i, nil
}

func (s *State) parseBranch(ctx context.Context, st int, dw, block bool) (b *ast.Block, i int, err error) {
	if block {
		return s.parseStmts(ctx, st, dw)
	}

	return s.parseLine(ctx, st, dw)
}

// parseLine parses statements up to the end of the line or a closing keyword.
func (s *State) parseLine(ctx context.Context, st int, dw bool) (b *ast.Block, i int, err error) {
	b = &ast.Block{Base: ast.At(ast.Span{})}

	i = st

	for {
		tk, _, j := s.next(ctx, i)

		switch tk {
		case Char(';'):
			i = j
			continue
		case nil, Char('\n'), Keyword("SINON"), Keyword("FSI"), Keyword("FTQ"), Keyword("FPOUR"), Keyword("FIN"):
			return b, i, nil
		case Keyword("TANT"):
			if dw && !s.whileAhead(ctx, j) {
				return b, i, nil
			}
		}

		var x ast.Node

		x, i, err = s.parseStatement(ctx, i, dw)
		if err != nil {
			return nil, i, err
		}

		b.Stmts = append(b.Stmts, x)
		b.Span = ast.Join(b.Span, x.Info().Span)
	}
}

func (s *State) parseWhile(ctx context.Context, st, i int) (x ast.Node, _ int, err error) {
	i, err = s.expect(ctx, i, Keyword("QUE"))
	if err != nil {
		return nil, i, err
	}

	n := &ast.While{}

	n.Cond, i, err = s.parseExpr(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "TANT QUE")
	}

	i, err = s.expect(ctx, i, Keyword("FAIRE"))
	if err != nil {
		return nil, i, err
	}

	n.Body, i, err = s.parseStmts(ctx, i, false)
	if err != nil {
		return nil, i, err
	}

	i, err = s.expect(ctx, i, Keyword("FTQ"))
	if err != nil {
		return nil, i, err
	}

	n.Base = ast.At(s.Span(st, i))

	return n, i, nil
}

func (s *State) parseDoWhile(ctx context.Context, st, i int) (x ast.Node, _ int, err error) {
	n := &ast.DoWhile{}

	n.Body, i, err = s.parseStmts(ctx, i, true)
	if err != nil {
		return nil, i, err
	}

	i, err = s.expect(ctx, i, Keyword("TANT"))
	if err != nil {
		return nil, i, err
	}

	i, err = s.expect(ctx, i, Keyword("QUE"))
	if err != nil {
		return nil, i, err
	}

	n.Cond, i, err = s.parseExpr(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "FAIRE TANT QUE")
	}

	n.Base = ast.At(s.Span(st, i))

	return n, i, nil
}

func (s *State) parseFor(ctx context.Context, st, i int) (x ast.Node, _ int, err error) {
	tk, _, i := s.next(ctx, i)

	v, err := s.ident(tk, i)
	if err != nil {
		return nil, i, err
	}

	i, err = s.expect(ctx, i, Keyword("DE"))
	if err != nil {
		return nil, i, err
	}

	from, i, err := s.parseExpr(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "POUR DE")
	}

	i, err = s.expect(ctx, i, Keyword("A"))
	if err != nil {
		return nil, i, err
	}

	to, i, err := s.parseExpr(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "POUR A")
	}

	i, err = s.expect(ctx, i, Keyword("FAIRE"))
	if err != nil {
		return nil, i, err
	}

	n := &ast.For{
		Var: v,
		Init: &ast.Assign{
			Base:   ast.At(ast.Join(v.Span, from.Info().Span)),
			Target: s.copyIdent(v),
			Value:  from,
		},
		Cond: &ast.BinOp{
			Base:  ast.At(ast.Join(v.Span, to.Info().Span)),
			Op:    ast.Lt,
			Left:  s.copyIdent(v),
			Right: to,
		},
	}

	n.Body, i, err = s.parseStmts(ctx, i, false)
	if err != nil {
		return nil, i, err
	}

	i, err = s.expect(ctx, i, Keyword("FPOUR"))
	if err != nil {
		return nil, i, err
	}

	n.Base = ast.At(s.Span(st, i))

	return n, i, nil
}

func (s *State) parseReturn(ctx context.Context, st, i int) (x ast.Node, _ int, err error) {
	n := &ast.Return{}

	if startsExpr(s.peek(ctx, i)) {
		n.X, i, err = s.parseExpr(ctx, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "RETOURNER")
		}
	}

	n.Base = ast.At(s.Span(st, i))

	return n, i, nil
}

func (s *State) parseAlloc(ctx context.Context, st, i int) (x ast.Node, _ int, err error) {
	args, i, err := s.parseList(ctx, i, Char('('), Char(')'))
	if err != nil {
		return nil, i, errors.Wrap(err, "ALLOUER")
	}

	sp := s.Span(st, i)

	if len(args) != 2 {
		return nil, i, SyntaxError{Pos: st, End: i, Msg: fmt.Sprintf("ALLOUER attend 2 arguments, %d donnés", len(args))}
	}

	p, ok := args[0].(*ast.Ident)
	if !ok {
		psp := args[0].Info().Span
		return nil, i, SyntaxError{Pos: s.offset(psp.Line, psp.Col), End: s.offset(psp.EndLine, psp.EndCol) + 1, Msg: "ALLOUER attend un pointeur en premier argument"}
	}

	return &ast.Alloc{
		Base: ast.At(sp),
		Ptr:  p,
		Size: args[1],
	}, i, nil
}

func (s *State) parseExpr(ctx context.Context, st int) (x ast.Node, i int, err error) {
	return s.parseOr(ctx, st)
}

func (s *State) parseOr(ctx context.Context, st int) (x ast.Node, i int, err error) {
	return s.parseLogic(ctx, st, Keyword("OU"), ast.Or, s.parseAnd)
}

func (s *State) parseAnd(ctx context.Context, st int) (x ast.Node, i int, err error) {
	return s.parseLogic(ctx, st, Keyword("ET"), ast.And, s.parseNot)
}

func (s *State) parseLogic(ctx context.Context, st int, kw Keyword, op ast.Op, sub func(context.Context, int) (ast.Node, int, error)) (x ast.Node, i int, err error) {
	x, i, err = sub(ctx, st)
	if err != nil {
		return
	}

	for {
		tk, _, j := s.next(ctx, i)
		if tk != kw {
			return x, i, nil
		}

		var r ast.Node

		r, i, err = sub(ctx, j)
		if err != nil {
			return nil, i, errors.Wrap(err, "%v", op)
		}

		x = s.bin(op, x, r)
	}
}

func (s *State) parseNot(ctx context.Context, st int) (x ast.Node, i int, err error) {
	tk, tst, i := s.next(ctx, st)
	if tk != Keyword("NON") {
		return s.parseCmp(ctx, st)
	}

	x, i, err = s.parseNot(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "NON")
	}

	return &ast.UnOp{
		Base: ast.At(ast.Join(s.Span(tst, tst+3), x.Info().Span)),
		Op:   ast.Not,
		X:    x,
	}, i, nil
}

func (s *State) parseCmp(ctx context.Context, st int) (x ast.Node, i int, err error) {
	x, i, err = s.parseSum(ctx, st)
	if err != nil {
		return
	}

	var op ast.Op

	tk, _, j := s.next(ctx, i)

	switch tk {
	case Char('<'):
		op = ast.Lt
	case Char('>'):
		op = ast.Gt
	case Char('='):
		op = ast.Eq
	case Op("<="):
		op = ast.Le
	case Op(">="):
		op = ast.Ge
	case Op("!="):
		op = ast.Ne
	default:
		return x, i, nil
	}

	r, i, err := s.parseSum(ctx, j)
	if err != nil {
		return nil, i, errors.Wrap(err, "%v", op)
	}

	return s.bin(op, x, r), i, nil
}

func (s *State) parseSum(ctx context.Context, st int) (x ast.Node, i int, err error) {
	return s.parseArith(ctx, st, sumOps, s.parseTerm)
}

func (s *State) parseTerm(ctx context.Context, st int) (x ast.Node, i int, err error) {
	return s.parseArith(ctx, st, termOps, s.parseUnary)
}

func (s *State) parseArith(ctx context.Context, st int, ops map[Token]ast.Op, sub func(context.Context, int) (ast.Node, int, error)) (x ast.Node, i int, err error) {
	x, i, err = sub(ctx, st)
	if err != nil {
		return
	}

	for {
		tk, _, j := s.next(ctx, i)

		op, ok := ops[tk]
		if !ok {
			return x, i, nil
		}

		var r ast.Node

		r, i, err = sub(ctx, j)
		if err != nil {
			return nil, i, errors.Wrap(err, "%v", op)
		}

		x = s.bin(op, x, r)
	}
}

func (s *State) parseUnary(ctx context.Context, st int) (x ast.Node, i int, err error) {
	tk, tst, i := s.next(ctx, st)

	var op ast.Op

	switch tk {
	case Char('-'):
		if n, ok := s.peek(ctx, i).(Number); ok {
			_, nst, e := s.next(ctx, i)

			v, err := s.atoi(nst, e, string(n))
			if err != nil {
				return nil, nst, err
			}

			return &ast.Number{Base: ast.At(s.Span(tst, e)), Value: -v}, e, nil
		}

		op = ast.Neg
	case Char('@'):
		op = ast.Deref
	case Char('&'):
		op = ast.Addr
	default:
		return s.parsePrimary(ctx, st)
	}

	x, i, err = s.parseUnary(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "%v", op)
	}

	return &ast.UnOp{
		Base: ast.At(ast.Join(s.Span(tst, tst+1), x.Info().Span)),
		Op:   op,
		X:    x,
	}, i, nil
}

func (s *State) parsePrimary(ctx context.Context, st int) (x ast.Node, i int, err error) {
	tk, tst, i := s.next(ctx, st)

	switch tk := tk.(type) {
	case Number:
		v, err := s.atoi(tst, i, string(tk))
		if err != nil {
			return nil, tst, err
		}

		return &ast.Number{Base: ast.At(s.Span(tst, i)), Value: v}, i, nil
	case Ident:
		id, _ := s.ident(tk, i)

		switch s.peek(ctx, i) {
		case Char('('):
			args, e, err := s.parseList(ctx, i, Char('('), Char(')'))
			if err != nil {
				return nil, e, errors.Wrap(err, "call %v", id.Name)
			}

			return &ast.Call{Base: ast.At(s.Span(tst, e)), Func: id, Args: args}, e, nil
		case Char('['):
			return s.parseIndex(ctx, tst, i, id)
		}

		return id, i, nil
	case Keyword:
		if tk != "LIRE" {
			break
		}

		i, err = s.expect(ctx, i, Char('('))
		if err != nil {
			return nil, i, err
		}

		i, err = s.expect(ctx, i, Char(')'))
		if err != nil {
			return nil, i, err
		}

		return &ast.IO{Base: ast.At(s.Span(tst, i))}, i, nil
	case Char:
		if tk != '(' {
			break
		}

		x, i, err = s.parseExpr(ctx, i)
		if err != nil {
			return nil, i, err
		}

		i, err = s.expect(ctx, i, Char(')'))
		if err != nil {
			return nil, i, err
		}

		return x, i, nil
	}

	return nil, tst, NewUnexpected(tst, tk, Number(""), Ident(""), Char('('))
}

func (s *State) parseIndex(ctx context.Context, st, i int, id *ast.Ident) (x ast.Node, _ int, err error) {
	i, err = s.expect(ctx, i, Char('['))
	if err != nil {
		return nil, i, err
	}

	idx, i, err := s.parseExpr(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "index %v", id.Name)
	}

	i, err = s.expect(ctx, i, Char(']'))
	if err != nil {
		return nil, i, err
	}

	return &ast.Index{Base: ast.At(s.Span(st, i)), Array: id, Index: idx}, i, nil
}

func (s *State) bin(op ast.Op, l, r ast.Node) *ast.BinOp {
	return &ast.BinOp{
		Base:  ast.At(ast.Join(l.Info().Span, r.Info().Span)),
		Op:    op,
		Left:  l,
		Right: r,
	}
}

// ident converts tk ending at end to an identifier node.
func (s *State) ident(tk Token, end int) (*ast.Ident, error) {
	name, ok := tk.(Ident)
	if !ok {
		return nil, NewUnexpected(end-tokenLen(tk), tk, Ident(""))
	}

	return &ast.Ident{
		Base: ast.At(s.Span(end-len(name), end)),
		Name: string(name),
	}, nil
}

func (s *State) copyIdent(id *ast.Ident) *ast.Ident {
	return &ast.Ident{Base: ast.At(id.Span), Name: id.Name}
}

func (s *State) atoi(pos, end int, n string) (int, error) {
	v, err := strconv.Atoi(n)
	if err != nil {
		return 0, SyntaxError{Pos: pos, End: end, Msg: "nombre trop grand: " + n}
	}

	return v, nil
}

func (s *State) offset(line, col int) int {
	if line < 1 || line > len(s.lines) {
		return len(s.b)
	}

	return s.lines[line-1] + col - 1
}

func cause(err error) error {
	for {
		switch err.(type) {
		case UnexpectedError, SyntaxError:
			return err
		}

		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}

		next := u.Unwrap()
		if next == nil {
			return err
		}

		err = next
	}
}

func startsExpr(tk Token) bool {
	switch tk := tk.(type) {
	case Number, Ident:
		return true
	case Char:
		return tk == '(' || tk == '-' || tk == '@' || tk == '&'
	case Keyword:
		return tk == "NON" || tk == "LIRE"
	}

	return false
}

func tokenLen(tk Token) int {
	switch tk := tk.(type) {
	case Char, Bad:
		return 1
	case Op:
		return len(tk)
	case Keyword:
		return len(tk)
	case Number:
		return len(tk)
	default:
		return 0
	}
}

func (e SyntaxError) Error() string {
	return e.Msg
}
