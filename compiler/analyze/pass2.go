package analyze

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler/asm"
	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/diag"
	"github.com/M3tex/arc/compiler/symtab"
	"github.com/M3tex/arc/compiler/tp"
)

// Pass2 assigns function addresses and reports unused and uninitialized symbols.
// Pass1 must have succeeded on p.
func (s *State) Pass2(ctx context.Context, p *ast.Program) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "pass2")
	defer tr.Finish("err", &err)

	pc := asm.BootLen

	for _, d := range p.Decls.Decls {
		if f, ok := d.(*ast.FuncDecl); ok {
			s.place(ctx, f, pc+1)
		}

		pc += d.Info().Codelen
	}

	s.place(ctx, p.Main, pc)
	s.entryAdr = pc

	s.ctx = symtab.Global

	return s.check(ctx, p, nil)
}

// place sets the address of a function definition.
// The first definition of a name wins.
func (s *State) place(ctx context.Context, f *ast.FuncDecl, adr int) {
	f.MemAdr = adr
	f.Name.MemAdr = adr

	sym := s.uses[f.Name]
	if sym != nil && sym.Adr == -1 {
		sym.Adr = adr
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("symbols") {
		tr.Printw("function address", "name", f.Name.Name, "adr", adr, "codelen", f.Codelen)
	}
}

func (s *State) check(ctx context.Context, x, parent ast.Node) (err error) {
	switch x := x.(type) {
	case *ast.Program:
		err = s.check(ctx, x.Decls, x)
		if err != nil {
			return err
		}

		return s.check(ctx, x.Main, x)
	case *ast.FuncDecl:
		prev := s.ctx
		s.ctx = x.Name.Name

		defer func() {
			s.ctx = prev
		}()

		if !x.Entry {
			s.unused(x.Name, "fonction inutilisée: %s")
		}

		for _, p := range x.Params {
			s.unused(p.Name, "identifiant inutilisé: %s")
		}

		err = s.check(ctx, x.Decls, x)
		if err != nil {
			return err
		}

		return s.check(ctx, x.Body, x)
	case *ast.Proto:
		s.unused(x.Name, "fonction inutilisée: %s")

		return nil
	case *ast.VarDecl:
		s.unused(x.Name, "identifiant inutilisé: %s")

		if x.Init != nil {
			return s.check(ctx, x.Init, x)
		}

		return nil
	case *ast.ArrayDecl:
		s.unused(x.Name, "identifiant inutilisé: %s")

		return s.checkList(ctx, x.Elems, x)
	case *ast.Block:
		return s.block2(ctx, x)
	case *ast.Ident:
		s.uninit(x)

		return nil
	case *ast.Assign:
		err = s.check(ctx, x.Value, x)
		if err != nil {
			return err
		}

		switch t := x.Target.(type) {
		case *ast.UnOp:
			return s.check(ctx, t.X, t)
		case *ast.Index:
			if sym := s.uses[t.Array]; sym != nil && sym.Kind == tp.Ptr {
				s.uninit(t.Array)
			}

			return s.check(ctx, t.Index, t)
		}

		return nil
	case *ast.Index:
		s.uninit(x.Array)

		return s.check(ctx, x.Index, x)
	case *ast.UnOp:
		if x.Op == ast.Addr {
			return nil
		}

		return s.check(ctx, x.X, x)
	case *ast.Call:
		sym := s.uses[x.Func]
		if sym == nil {
			return diag.Fatalf(diag.InternalError, x.Func.Span, "appel non résolu: %s", x.Func.Name)
		}

		if !sym.IsInit {
			return diag.Fatalf(diag.SemanticError, x.Func.Span, "la fonction %s est appelée mais jamais définie", x.Func.Name)
		}

		x.Func.MemAdr = sym.Adr

		return s.checkList(ctx, x.Args, x)
	case *ast.Alloc:
		return s.check(ctx, x.Size, x)
	case *ast.For:
		err = s.check(ctx, x.Init.Value, x)
		if err != nil {
			return err
		}

		err = s.check(ctx, x.Cond, x)
		if err != nil {
			return err
		}

		return s.check(ctx, x.Body, x)
	}

	return s.checkList(ctx, ast.Children(x), x)
}

func (s *State) checkList(ctx context.Context, l []ast.Node, parent ast.Node) error {
	for _, x := range l {
		err := s.check(ctx, x, parent)
		if err != nil {
			return err
		}
	}

	return nil
}

// block2 checks statements and warns once about code after a return.
func (s *State) block2(ctx context.Context, b *ast.Block) error {
	ret, warned := false, false

	for _, x := range b.Stmts {
		if ret && !warned {
			s.warn(x.Info().Span, "instruction inaccessible")
			warned = true
		}

		err := s.check(ctx, x, b)
		if err != nil {
			return err
		}

		if _, ok := x.(*ast.Return); ok {
			ret = true
		}
	}

	return nil
}

func (s *State) unused(id *ast.Ident, format string) {
	sym := s.uses[id]
	if sym == nil || sym.IsChecked || sym.IsUsed {
		return
	}

	sym.IsChecked = true

	s.warn(id.Span, format, id.Name)
}

func (s *State) uninit(id *ast.Ident) {
	sym := s.uses[id]
	if sym == nil || sym.IsChecked || sym.IsInit {
		return
	}

	sym.IsChecked = true

	s.warn(id.Span, "identifiant non initialisé: %s", id.Name)
}
