package analyze

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler/asm"
	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/diag"
	"github.com/M3tex/arc/compiler/symtab"
	"github.com/M3tex/arc/compiler/tp"
)

const (
	minInt = -1 << 15
	maxInt = 1<<15 - 1
)

// Pass1 resolves symbols, types expressions, lays out memory and computes every node's Codelen.
func (s *State) Pass1(ctx context.Context, p *ast.Program) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "pass1")
	defer tr.Finish("err", &err)

	n := 0

	for _, d := range p.Decls.Decls {
		err = s.decl(ctx, d)
		if err != nil {
			return err
		}

		n += d.Info().Codelen
	}

	p.Decls.Codelen = n

	err = s.function(ctx, p.Main)
	if err != nil {
		return errors.Wrap(err, "%v", ast.EntryPoint)
	}

	p.Codelen = asm.BootLen + p.Decls.Codelen + p.Main.Codelen

	return nil
}

func (s *State) decl(ctx context.Context, x ast.Node) error {
	switch x := x.(type) {
	case *ast.VarDecl:
		return s.varDecl(ctx, x)
	case *ast.ArrayDecl:
		return s.arrayDecl(ctx, x)
	case *ast.FuncDecl:
		return s.function(ctx, x)
	case *ast.Proto:
		return s.proto(ctx, x)
	default:
		return NewUnsupportedNode(x)
	}
}

func (s *State) varDecl(ctx context.Context, d *ast.VarDecl) error {
	k := tp.Int
	if d.Pointer {
		k = tp.Ptr
	}

	if d.Init != nil {
		_, err := s.expr(ctx, d.Init)
		if err != nil {
			return errors.Wrap(err, "init %v", d.Name.Name)
		}
	}

	decl := &symtab.Symbol{
		ID:   d.Name.Name,
		Kind: k,
		Size: 1,
		Span: d.Name.Span,
	}

	sym := s.declare(decl, 1)

	s.bind(d.Name, sym)
	d.MemAdr = sym.Adr

	if sym != decl {
		d.Discarded = true
		d.Codelen = 0

		return nil
	}

	n := 0

	if d.Init != nil {
		setInit(sym)

		n = d.Init.Info().Codelen + storeLen(sym)
	}

	if s.zone() == tp.Stack {
		n++
	}

	d.Codelen = n

	if tr := tlog.SpanFromContext(ctx); tr.If("symbols") {
		tr.Printw("declare", "sym", sym, "ctx", s.ctx, "codelen", n)
	}

	return nil
}

func (s *State) arrayDecl(ctx context.Context, d *ast.ArrayDecl) error {
	size := d.Size

	if d.HasInit {
		if size >= 0 && size != len(d.Elems) {
			return diag.Fatalf(diag.SemanticError, d.Span, "la taille du tableau %s (%d) ne correspond pas au nombre d'éléments (%d)", d.Name.Name, size, len(d.Elems))
		}

		size = len(d.Elems)
	}

	if size <= 0 {
		return diag.Fatalf(diag.SemanticError, d.Span, "taille de tableau invalide: %s", d.Name.Name)
	}

	for _, e := range d.Elems {
		_, err := s.expr(ctx, e)
		if err != nil {
			return errors.Wrap(err, "init %v", d.Name.Name)
		}
	}

	decl := &symtab.Symbol{
		ID:   d.Name.Name,
		Kind: tp.Array,
		Size: size,
		Span: d.Name.Span,
	}

	sym := s.declare(decl, size)

	s.bind(d.Name, sym)
	d.MemAdr = sym.Adr

	if sym != decl {
		d.Discarded = true
		d.Codelen = 0

		return nil
	}

	if d.HasInit {
		setInit(sym)
	}

	n := 0
	store := 1

	if s.zone() == tp.Stack {
		n = 3
		store = 6
	}

	for _, e := range d.Elems {
		n += e.Info().Codelen + store
	}

	d.Codelen = n

	if tr := tlog.SpanFromContext(ctx); tr.If("symbols") {
		tr.Printw("declare", "sym", sym, "ctx", s.ctx, "codelen", n)
	}

	return nil
}

// funcSymbol returns the global function symbol for id, registering it if new.
func (s *State) funcSymbol(id *ast.Ident, params int) (*symtab.Symbol, error) {
	sym, err := s.table.SearchSymbol(symtab.Global, id.Name)
	if err != nil {
		return nil, tableError(id.Span, err)
	}

	if sym == nil {
		sym = s.table.AddSymbol(symtab.Global, &symtab.Symbol{
			ID:   id.Name,
			Kind: tp.Func,
			Size: params,
			Adr:  -1,
			Zone: tp.Static,
			Span: id.Span,
		})
	}

	if sym.Kind != tp.Func {
		return nil, diag.Fatalf(diag.SemanticError, id.Span, "%s est déjà déclaré comme %v", id.Name, sym.Kind)
	}

	if sym.Size != params {
		return nil, diag.Fatalf(diag.SemanticError, id.Span, "la fonction %s attend %d paramètres, %d déclarés", id.Name, sym.Size, params)
	}

	s.uses[id] = sym

	return sym, nil
}

func (s *State) proto(ctx context.Context, p *ast.Proto) error {
	_, err := s.funcSymbol(p.Name, len(p.Params))
	if err != nil {
		return err
	}

	p.Codelen = 0

	return nil
}

func (s *State) function(ctx context.Context, f *ast.FuncDecl) (err error) {
	name := f.Name.Name

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "function", "name", name, "params", len(f.Params))
	defer tr.Finish("err", &err)

	sym, err := s.funcSymbol(f.Name, len(f.Params))
	if err != nil {
		return err
	}

	sym.IsInit = true

	s.funcs = append(s.funcs, f)

	prevCtx, prevStack, prevEntry := s.ctx, s.stack, s.entry
	defer func() {
		s.ctx, s.stack, s.entry = prevCtx, prevStack, prevEntry
	}()

	s.table.AddContext(name, f.Name.Span)

	s.ctx = name
	s.entry = f.Entry
	s.stack = 1

	if f.Entry {
		s.stack = 0
		sym.IsUsed = true
	}

	for _, p := range f.Params {
		k := tp.Int
		if p.Pointer {
			k = tp.Ptr
		}

		psym := s.declare(&symtab.Symbol{
			ID:     p.Name.Name,
			Kind:   k,
			Size:   1,
			Span:   p.Name.Span,
			IsInit: true,
		}, 1)

		s.bind(p.Name, psym)
		p.MemAdr = psym.Adr
		p.Codelen = 0
	}

	n := 0

	for _, d := range f.Decls.Decls {
		err = s.decl(ctx, d)
		if err != nil {
			return err
		}

		n += d.Info().Codelen
	}

	f.Decls.Codelen = n

	if !f.Entry && !returns(f.Body) {
		end := ast.Span{Line: f.Span.EndLine, Col: f.Span.EndCol, EndLine: f.Span.EndLine, EndCol: f.Span.EndCol}

		f.Body.Stmts = append(f.Body.Stmts, &ast.Return{Base: ast.At(end)})
	}

	err = s.block(ctx, f.Body)
	if err != nil {
		return err
	}

	// +1 is the skip jump before a function and STOP after the entry point.
	f.Codelen = f.Decls.Codelen + f.Body.Codelen + 1

	tr.Printw("function", "name", name, "codelen", f.Codelen, "stack", s.stack)

	return nil
}

func returns(b *ast.Block) bool {
	for _, x := range b.Stmts {
		if _, ok := x.(*ast.Return); ok {
			return true
		}
	}

	return false
}

// block sums statements up to the first return. Later statements are analyzed but not counted.
func (s *State) block(ctx context.Context, b *ast.Block) error {
	n := 0
	done := false

	for _, x := range b.Stmts {
		err := s.stmt(ctx, x)
		if err != nil {
			return err
		}

		if done {
			continue
		}

		n += x.Info().Codelen

		if _, ok := x.(*ast.Return); ok {
			done = true
		}
	}

	b.Codelen = n

	return nil
}

func (s *State) stmt(ctx context.Context, x ast.Node) (err error) {
	switch x := x.(type) {
	case *ast.Assign:
		return s.assign(ctx, x)
	case *ast.IO:
		if !x.Write {
			_, err = s.expr(ctx, x)
			return err
		}

		_, err = s.expr(ctx, x.X)
		if err != nil {
			return errors.Wrap(err, "ECRIRE")
		}

		x.Codelen = x.X.Info().Codelen + 1
	case *ast.Call:
		_, err = s.call(ctx, x)
		return err
	case *ast.If:
		_, err = s.expr(ctx, x.Cond)
		if err != nil {
			return errors.Wrap(err, "SI")
		}

		err = s.block(ctx, x.Then)
		if err != nil {
			return err
		}

		err = s.block(ctx, x.Else)
		if err != nil {
			return err
		}

		x.Codelen = x.Cond.Info().Codelen + x.Then.Codelen + x.Else.Codelen + 2
	case *ast.While:
		_, err = s.expr(ctx, x.Cond)
		if err != nil {
			return errors.Wrap(err, "TANT QUE")
		}

		err = s.block(ctx, x.Body)
		if err != nil {
			return err
		}

		x.Codelen = x.Cond.Info().Codelen + x.Body.Codelen + 2
	case *ast.DoWhile:
		err = s.block(ctx, x.Body)
		if err != nil {
			return err
		}

		_, err = s.expr(ctx, x.Cond)
		if err != nil {
			return errors.Wrap(err, "TANT QUE")
		}

		x.Codelen = x.Body.Codelen + x.Cond.Info().Codelen + 2
	case *ast.For:
		return s.forLoop(ctx, x)
	case *ast.Return:
		return s.ret(ctx, x)
	case *ast.Alloc:
		return s.alloc(ctx, x)
	default:
		return NewUnsupportedNode(x)
	}

	return nil
}

func (s *State) assign(ctx context.Context, a *ast.Assign) (err error) {
	_, err = s.expr(ctx, a.Value)
	if err != nil {
		return errors.Wrap(err, "value")
	}

	val := a.Value.Info().Codelen

	switch t := a.Target.(type) {
	case *ast.Ident:
		sym, err := s.lookup(t)
		if err != nil {
			return err
		}

		switch sym.Kind {
		case tp.Array:
			return diag.Fatalf(diag.SemanticError, t.Span, "impossible d'affecter au tableau %s", t.Name)
		case tp.Func:
			return diag.Fatalf(diag.SemanticError, t.Span, "impossible d'affecter à la fonction %s", t.Name)
		}

		setInit(sym)

		t.Codelen = 0
		a.Codelen = val + storeLen(sym)
	case *ast.UnOp:
		if t.Op != ast.Deref {
			return diag.Fatalf(diag.SemanticError, t.Span, "cible d'affectation invalide")
		}

		k, err := s.expr(ctx, t.X)
		if err != nil {
			return err
		}

		if !pointer(k) {
			return diag.Fatalf(diag.SemanticError, t.X.Info().Span, "déréférencement d'une valeur de type %v", k)
		}

		t.Codelen = t.X.Info().Codelen
		a.Codelen = val + t.Codelen + 6
	case *ast.Index:
		sym, base, err := s.index(ctx, t)
		if err != nil {
			return err
		}

		if sym.Kind == tp.Array {
			setInit(sym)
		} else {
			sym.IsUsed = true
		}

		t.Codelen = t.Index.Info().Codelen + base
		a.Codelen = val + t.Codelen + 6
	default:
		return NewUnsupportedNode(t)
	}

	return nil
}

func (s *State) forLoop(ctx context.Context, f *ast.For) (err error) {
	sym, err := s.lookup(f.Var)
	if err != nil {
		return err
	}

	if !sym.Kind.Scalar() {
		return diag.Fatalf(diag.SemanticError, f.Var.Span, "la variable de boucle %s doit être scalaire, pas %v", f.Var.Name, sym.Kind)
	}

	err = s.assign(ctx, f.Init)
	if err != nil {
		return errors.Wrap(err, "POUR")
	}

	_, err = s.expr(ctx, f.Cond)
	if err != nil {
		return errors.Wrap(err, "POUR")
	}

	err = s.block(ctx, f.Body)
	if err != nil {
		return err
	}

	sym.IsModified = true

	f.Codelen = f.Init.Codelen + f.Cond.Codelen + f.Body.Codelen + 2 + incLen(sym)

	return nil
}

func (s *State) ret(ctx context.Context, r *ast.Return) (err error) {
	if s.entry {
		return diag.Fatalf(diag.SemanticError, r.Span, "RETOURNER en dehors d'une fonction")
	}

	if r.X == nil {
		r.X = &ast.Number{Base: ast.At(r.Span)}
	}

	_, err = s.expr(ctx, r.X)
	if err != nil {
		return errors.Wrap(err, "RETOURNER")
	}

	r.Codelen = r.X.Info().Codelen + 9

	return nil
}

func (s *State) alloc(ctx context.Context, a *ast.Alloc) (err error) {
	sym, err := s.lookup(a.Ptr)
	if err != nil {
		return err
	}

	if sym.Kind != tp.Ptr {
		return diag.Fatalf(diag.SemanticError, a.Ptr.Span, "ALLOUER attend un pointeur, %s est de type %v", a.Ptr.Name, sym.Kind)
	}

	_, err = s.expr(ctx, a.Size)
	if err != nil {
		return errors.Wrap(err, "ALLOUER")
	}

	setInit(sym)

	a.Codelen = a.Size.Info().Codelen + 7 + storeLen(sym)

	return nil
}

// expr analyzes an expression and returns its type.
func (s *State) expr(ctx context.Context, x ast.Node) (k tp.Kind, err error) {
	switch x := x.(type) {
	case *ast.Number:
		if x.Value < minInt || x.Value > maxInt {
			s.warn(x.Span, "la valeur %d dépasse la capacité d'un entier 16 bits", x.Value)
		}

		x.Codelen = 1

		return tp.Int, nil
	case *ast.Ident:
		sym, err := s.lookup(x)
		if err != nil {
			return tp.Unknown, err
		}

		if sym.Kind == tp.Func {
			return tp.Unknown, diag.Fatalf(diag.SemanticError, x.Span, "la fonction %s ne peut pas être utilisée comme valeur", x.Name)
		}

		sym.IsUsed = true
		x.Codelen = loadLen(sym)

		if sym.Kind == tp.Array {
			// the address escapes, the elements may be written through it
			sym.IsInit = true

			return tp.Ptr, nil
		}

		return sym.Kind, nil
	case *ast.BinOp:
		return s.binOp(ctx, x)
	case *ast.UnOp:
		return s.unOp(ctx, x)
	case *ast.Call:
		return s.call(ctx, x)
	case *ast.Index:
		sym, base, err := s.index(ctx, x)
		if err != nil {
			return tp.Unknown, err
		}

		sym.IsUsed = true
		x.Codelen = x.Index.Info().Codelen + base + 2

		return tp.Int, nil
	case *ast.IO:
		if x.Write {
			return tp.Unknown, NewUnsupportedNode(x)
		}

		x.Codelen = 1

		return tp.Int, nil
	default:
		return tp.Unknown, NewUnsupportedNode(x)
	}
}

func (s *State) binOp(ctx context.Context, x *ast.BinOp) (k tp.Kind, err error) {
	l, err := s.expr(ctx, x.Left)
	if err != nil {
		return tp.Unknown, err
	}

	r, err := s.expr(ctx, x.Right)
	if err != nil {
		return tp.Unknown, err
	}

	n := x.Left.Info().Codelen + x.Right.Info().Codelen
	k = tp.Int

	switch x.Op {
	case ast.Add, ast.Sub:
		if l == tp.Ptr || r == tp.Ptr {
			k = tp.Ptr
		}

		n += 4
	case ast.Mul, ast.Div, ast.Mod:
		n += 4
	case ast.Lt, ast.Gt, ast.Eq, ast.Ne:
		n += 8
	case ast.Le, ast.Ge:
		n += 9
	case ast.And:
		n += 5
	case ast.Or:
		n += 6
	default:
		return tp.Unknown, NewUnsupportedNode(x)
	}

	x.Codelen = n

	return k, nil
}

func (s *State) unOp(ctx context.Context, x *ast.UnOp) (k tp.Kind, err error) {
	if x.Op == ast.Addr {
		id, ok := x.X.(*ast.Ident)
		if !ok {
			return tp.Unknown, diag.Fatalf(diag.SemanticError, x.Span, "& s'applique à un identifiant")
		}

		sym, err := s.lookup(id)
		if err != nil {
			return tp.Unknown, err
		}

		if sym.Kind == tp.Func {
			return tp.Unknown, diag.Fatalf(diag.SemanticError, id.Span, "impossible de prendre l'adresse de la fonction %s", id.Name)
		}

		sym.IsUsed = true
		sym.IsInit = true

		id.Codelen = 0

		if sym.Kind == tp.Array {
			x.Codelen = loadLen(sym)
		} else {
			x.Codelen = addrLen(sym)
		}

		return tp.Ptr, nil
	}

	k, err = s.expr(ctx, x.X)
	if err != nil {
		return tp.Unknown, err
	}

	n := x.X.Info().Codelen

	switch x.Op {
	case ast.Neg:
		x.Codelen = n + 1
	case ast.Not:
		x.Codelen = n + 4
	case ast.Deref:
		if !pointer(k) {
			return tp.Unknown, diag.Fatalf(diag.SemanticError, x.X.Info().Span, "déréférencement d'une valeur de type %v", k)
		}

		x.Codelen = n + 2
	default:
		return tp.Unknown, NewUnsupportedNode(x)
	}

	return tp.Int, nil
}

func (s *State) call(ctx context.Context, c *ast.Call) (k tp.Kind, err error) {
	sym, err := s.lookup(c.Func)
	if err != nil {
		return tp.Unknown, err
	}

	if sym.Kind != tp.Func {
		return tp.Unknown, diag.Fatalf(diag.SemanticError, c.Func.Span, "%s n'est pas une fonction", c.Func.Name)
	}

	if len(c.Args) != sym.Size {
		return tp.Unknown, diag.Fatalf(diag.SemanticError, c.Span, "la fonction %s attend %d arguments, %d donnés", c.Func.Name, sym.Size, len(c.Args))
	}

	sym.IsUsed = true

	n := 21

	for i, a := range c.Args {
		_, err = s.expr(ctx, a)
		if err != nil {
			return tp.Unknown, errors.Wrap(err, "%v: argument %d", c.Func.Name, i)
		}

		n += a.Info().Codelen + 2
	}

	c.Func.Codelen = 0
	c.Codelen = n

	return tp.Unknown, nil
}

// index resolves t[i] and returns the cost of adding the base address.
func (s *State) index(ctx context.Context, x *ast.Index) (sym *symtab.Symbol, base int, err error) {
	sym, err = s.lookup(x.Array)
	if err != nil {
		return nil, 0, err
	}

	if !sym.Kind.Indexable() {
		return nil, 0, diag.Fatalf(diag.SemanticError, x.Array.Span, "%s de type %v n'est pas indexable", x.Array.Name, sym.Kind)
	}

	_, err = s.expr(ctx, x.Index)
	if err != nil {
		return nil, 0, errors.Wrap(err, "index")
	}

	x.Array.Codelen = 0

	return sym, baseLen(sym), nil
}

func setInit(sym *symtab.Symbol) {
	if sym.IsInit {
		sym.IsModified = true
	}

	sym.IsInit = true
}

func pointer(k tp.Kind) bool {
	return k == tp.Ptr || k == tp.Unknown
}
