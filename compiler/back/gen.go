package back

import (
	"context"

	"tlog.app/go/errors"

	"github.com/M3tex/arc/compiler/analyze"
	"github.com/M3tex/arc/compiler/asm"
	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/symtab"
	"github.com/M3tex/arc/compiler/tp"
)

var arith = map[ast.Op]asm.Op{
	ast.Add: asm.Add,
	ast.Sub: asm.Sub,
	ast.Mul: asm.Mul,
	ast.Div: asm.Div,
	ast.Mod: asm.Mod,
}

func (g *progContext) emit(ctx context.Context, x ast.Node) (err error) {
	switch x := x.(type) {
	case *ast.DeclList:
		for _, d := range x.Decls {
			err = g.node(ctx, d)
			if err != nil {
				return err
			}
		}
	case *ast.VarDecl:
		if x.Discarded {
			return nil
		}

		sym, err := g.sym(x.Name)
		if err != nil {
			return err
		}

		if sym.Zone == tp.Stack {
			g.dir(asm.Dec, asm.SP)
		}

		if x.Init != nil {
			err = g.node(ctx, x.Init)
			if err != nil {
				return err
			}

			g.store(sym)
		}
	case *ast.ArrayDecl:
		return g.arrayDecl(ctx, x)
	case *ast.Proto:
	case *ast.FuncDecl:
		return g.function(ctx, x)
	case *ast.Block:
		for _, s := range x.Stmts {
			err = g.node(ctx, s)
			if err != nil {
				return err
			}

			if _, ok := s.(*ast.Return); ok {
				break
			}
		}
	case *ast.Number:
		g.imm(asm.Load, x.Value)
	case *ast.Ident:
		sym, err := g.sym(x)
		if err != nil {
			return err
		}

		g.load(sym)
	case *ast.BinOp:
		return g.binOp(ctx, x)
	case *ast.UnOp:
		return g.unOp(ctx, x)
	case *ast.Call:
		return g.call(ctx, x)
	case *ast.Index:
		sym, err := g.sym(x.Array)
		if err != nil {
			return err
		}

		err = g.node(ctx, x.Index)
		if err != nil {
			return err
		}

		g.base(sym)
		g.dir(asm.Store, asm.IDX)
		g.ind(asm.Load, asm.IDX)
	case *ast.IO:
		if !x.Write {
			g.op(asm.Read)
			break
		}

		err = g.node(ctx, x.X)
		if err != nil {
			return err
		}

		g.op(asm.Write)
	case *ast.Assign:
		return g.assign(ctx, x)
	case *ast.If:
		err = g.node(ctx, x.Cond)
		if err != nil {
			return err
		}

		g.jump(asm.Jumz, g.pc()+x.Then.Codelen+2)

		err = g.node(ctx, x.Then)
		if err != nil {
			return err
		}

		g.jump(asm.Jump, g.pc()+x.Else.Codelen+1)

		return g.node(ctx, x.Else)
	case *ast.While:
		st := g.pc()

		err = g.node(ctx, x.Cond)
		if err != nil {
			return err
		}

		g.jump(asm.Jumz, st+x.Codelen)

		err = g.node(ctx, x.Body)
		if err != nil {
			return err
		}

		g.jump(asm.Jump, st)
	case *ast.DoWhile:
		st := g.pc()

		err = g.node(ctx, x.Body)
		if err != nil {
			return err
		}

		err = g.node(ctx, x.Cond)
		if err != nil {
			return err
		}

		g.jump(asm.Jumz, g.pc()+2)
		g.jump(asm.Jump, st)
	case *ast.For:
		return g.forLoop(ctx, x)
	case *ast.Return:
		err = g.node(ctx, x.X)
		if err != nil {
			return err
		}

		g.dir(asm.Store, asm.RETVAL)

		l := g.pc()

		g.dir(asm.Load, asm.REL)
		g.dir(asm.Sub, asm.SP)
		g.jump(asm.Jumz, l+5)
		g.dir(asm.Inc, asm.SP)
		g.jump(asm.Jump, l)
		g.ind(asm.Load, asm.SP)
		g.dir(asm.Store, asm.RETADR)
		g.ind(asm.Jump, asm.RETADR)
	case *ast.Alloc:
		sym, err := g.sym(x.Ptr)
		if err != nil {
			return err
		}

		err = g.node(ctx, x.Size)
		if err != nil {
			return err
		}

		g.jump(asm.Jumg, g.pc()+2)
		g.op(asm.Stop)
		g.dir(asm.Add, asm.HP)
		g.dir(asm.Store, asm.IDX)
		g.dir(asm.Load, asm.HP)
		g.store(sym)
		g.dir(asm.Load, asm.IDX)
		g.dir(asm.Store, asm.HP)
	default:
		return analyze.NewUnsupportedNode(x)
	}

	return nil
}

func (g *progContext) function(ctx context.Context, f *ast.FuncDecl) (err error) {
	prev := g.ctx
	g.ctx = f.Name.Name

	defer func() {
		g.ctx = prev
	}()

	if !f.Entry {
		g.jump(asm.Jump, g.pc()+f.Codelen)
	}

	err = g.node(ctx, f.Decls)
	if err != nil {
		return errors.Wrap(err, "%v", f.Name.Name)
	}

	err = g.node(ctx, f.Body)
	if err != nil {
		return errors.Wrap(err, "%v", f.Name.Name)
	}

	if f.Entry {
		g.op(asm.Stop)
	}

	return nil
}

func (g *progContext) arrayDecl(ctx context.Context, d *ast.ArrayDecl) error {
	if d.Discarded {
		return nil
	}

	sym, err := g.sym(d.Name)
	if err != nil {
		return err
	}

	if sym.Zone == tp.Stack {
		g.dir(asm.Load, asm.SP)
		g.imm(asm.Sub, sym.Size)
		g.dir(asm.Store, asm.SP)
	}

	for i, e := range d.Elems {
		err = g.node(ctx, e)
		if err != nil {
			return err
		}

		if sym.Zone == tp.Static {
			g.dir(asm.Store, sym.Adr+i)
			continue
		}

		g.stackStore(sym.Adr - i)
	}

	return nil
}

func (g *progContext) binOp(ctx context.Context, x *ast.BinOp) (err error) {
	st := g.pc()
	end := st + x.Codelen

	switch x.Op {
	case ast.And, ast.Or:
		err = g.node(ctx, x.Left)
		if err != nil {
			return err
		}

		if x.Op == ast.Or {
			g.jump(asm.Jumz, g.pc()+2)
			g.jump(asm.Jump, end-3)
		} else {
			g.jump(asm.Jumz, end-1)
		}

		err = g.node(ctx, x.Right)
		if err != nil {
			return err
		}

		g.jump(asm.Jumz, end-1)
		g.imm(asm.Load, 1)
		g.jump(asm.Jump, end)
		g.imm(asm.Load, 0)

		return nil
	}

	err = g.node(ctx, x.Right)
	if err != nil {
		return err
	}

	g.push()

	err = g.node(ctx, x.Left)
	if err != nil {
		return err
	}

	g.dir(asm.Inc, asm.SP)

	if op, ok := arith[x.Op]; ok {
		g.ind(op, asm.SP)

		return nil
	}

	g.ind(asm.Sub, asm.SP)

	p := g.pc()

	switch x.Op {
	case ast.Lt, ast.Gt, ast.Eq:
		j := map[ast.Op]asm.Op{ast.Lt: asm.Juml, ast.Gt: asm.Jumg, ast.Eq: asm.Jumz}[x.Op]

		g.jump(j, p+3)
		g.imm(asm.Load, 0)
		g.jump(asm.Jump, p+4)
		g.imm(asm.Load, 1)
	case ast.Ne:
		g.jump(asm.Jumz, p+3)
		g.imm(asm.Load, 1)
		g.jump(asm.Jump, p+4)
		g.imm(asm.Load, 0)
	case ast.Le, ast.Ge:
		j := asm.Juml
		if x.Op == ast.Ge {
			j = asm.Jumg
		}

		g.jump(j, p+4)
		g.jump(asm.Jumz, p+4)
		g.imm(asm.Load, 0)
		g.jump(asm.Jump, p+5)
		g.imm(asm.Load, 1)
	default:
		return analyze.NewUnsupportedNode(x)
	}

	return nil
}

func (g *progContext) unOp(ctx context.Context, x *ast.UnOp) (err error) {
	if x.Op == ast.Addr {
		id, ok := x.X.(*ast.Ident)
		if !ok {
			return analyze.NewUnsupportedNode(x)
		}

		sym, err := g.sym(id)
		if err != nil {
			return err
		}

		switch {
		case sym.Kind == tp.Array:
			g.load(sym)
		case sym.Zone == tp.Static:
			g.imm(asm.Load, sym.Adr)
		default:
			g.stackAdr(sym.Adr)
		}

		return nil
	}

	err = g.node(ctx, x.X)
	if err != nil {
		return err
	}

	switch x.Op {
	case ast.Neg:
		g.imm(asm.Mul, -1)
	case ast.Not:
		p := g.pc()

		g.jump(asm.Jumz, p+3)
		g.imm(asm.Load, 0)
		g.jump(asm.Jump, p+4)
		g.imm(asm.Load, 1)
	case ast.Deref:
		g.dir(asm.Store, asm.IDX)
		g.ind(asm.Load, asm.IDX)
	default:
		return analyze.NewUnsupportedNode(x)
	}

	return nil
}

// call saves FRAME and REL, pushes the return address and the arguments,
// then enters the callee with REL at the return address cell.
func (g *progContext) call(ctx context.Context, c *ast.Call) (err error) {
	sym, err := g.sym(c.Func)
	if err != nil {
		return err
	}

	ret := g.pc() + c.Codelen - 7

	g.dir(asm.Load, asm.FRAME)
	g.push()
	g.dir(asm.Load, asm.REL)
	g.push()
	g.dir(asm.Load, asm.SP)
	g.dir(asm.Store, asm.FRAME)
	g.imm(asm.Load, ret)
	g.push()

	for i, a := range c.Args {
		err = g.node(ctx, a)
		if err != nil {
			return errors.Wrap(err, "%v: argument %d", c.Func.Name, i)
		}

		g.push()
	}

	g.dir(asm.Load, asm.FRAME)
	g.dir(asm.Store, asm.REL)
	g.jump(asm.Jump, sym.Adr)

	g.pop()
	g.dir(asm.Store, asm.REL)
	g.pop()
	g.dir(asm.Store, asm.FRAME)
	g.dir(asm.Load, asm.RETVAL)

	return nil
}

func (g *progContext) assign(ctx context.Context, a *ast.Assign) (err error) {
	err = g.node(ctx, a.Value)
	if err != nil {
		return err
	}

	switch t := a.Target.(type) {
	case *ast.Ident:
		sym, err := g.sym(t)
		if err != nil {
			return err
		}

		g.store(sym)

		return nil
	case *ast.UnOp:
		g.push()

		err = g.node(ctx, t.X)
		if err != nil {
			return err
		}
	case *ast.Index:
		sym, err := g.sym(t.Array)
		if err != nil {
			return err
		}

		g.push()

		err = g.node(ctx, t.Index)
		if err != nil {
			return err
		}

		g.base(sym)
	default:
		return analyze.NewUnsupportedNode(t)
	}

	g.dir(asm.Store, asm.IDX)
	g.pop()
	g.ind(asm.Store, asm.IDX)

	return nil
}

func (g *progContext) forLoop(ctx context.Context, f *ast.For) (err error) {
	sym, err := g.sym(f.Var)
	if err != nil {
		return err
	}

	end := g.pc() + f.Codelen

	err = g.node(ctx, f.Init)
	if err != nil {
		return err
	}

	l := g.pc()

	err = g.node(ctx, f.Cond)
	if err != nil {
		return err
	}

	g.jump(asm.Jumz, end)

	err = g.node(ctx, f.Body)
	if err != nil {
		return err
	}

	if sym.Zone == tp.Static {
		g.dir(asm.Inc, sym.Adr)
	} else {
		g.stackAdr(sym.Adr)
		g.dir(asm.Store, asm.STKADR)
		g.ind(asm.Inc, asm.STKADR)
	}

	g.jump(asm.Jump, l)

	return nil
}

// load puts the value of sym in the accumulator. Arrays evaluate to their address.
func (g *progContext) load(sym *symtab.Symbol) {
	switch {
	case sym.Kind == tp.Array && sym.Zone == tp.Static:
		g.imm(asm.Load, sym.Adr)
	case sym.Kind == tp.Array:
		g.stackAdr(sym.Adr)
	case sym.Zone == tp.Static:
		g.dir(asm.Load, sym.Adr)
	default:
		g.stackAdr(sym.Adr)
		g.dir(asm.Store, asm.STKADR)
		g.ind(asm.Load, asm.STKADR)
	}
}

// store saves the accumulator into sym.
func (g *progContext) store(sym *symtab.Symbol) {
	if sym.Zone == tp.Static {
		g.dir(asm.Store, sym.Adr)
		return
	}

	g.stackStore(sym.Adr)
}

func (g *progContext) stackStore(off int) {
	g.dir(asm.Store, asm.SWP)
	g.stackAdr(off)
	g.dir(asm.Store, asm.STKADR)
	g.dir(asm.Load, asm.SWP)
	g.ind(asm.Store, asm.STKADR)
}

// stackAdr loads the address of stack offset off.
func (g *progContext) stackAdr(off int) {
	g.dir(asm.Load, asm.REL)
	g.imm(asm.Sub, off)
}

// base adds the start address of t to the index in the accumulator.
func (g *progContext) base(sym *symtab.Symbol) {
	switch {
	case sym.Kind == tp.Array && sym.Zone == tp.Static:
		g.imm(asm.Add, sym.Adr)
	case sym.Zone == tp.Static:
		g.dir(asm.Add, sym.Adr)
	case sym.Kind == tp.Array:
		g.dir(asm.Store, asm.IDX)
		g.stackAdr(sym.Adr)
		g.dir(asm.Add, asm.IDX)
	default:
		g.dir(asm.Store, asm.IDX)
		g.stackAdr(sym.Adr)
		g.dir(asm.Store, asm.STKADR)
		g.ind(asm.Load, asm.STKADR)
		g.dir(asm.Add, asm.IDX)
	}
}
