package back

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler/analyze"
	"github.com/M3tex/arc/compiler/asm"
	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/symtab"
)

type (
	Compiler struct {
		// MemSize is the number of machine cells, asm.DefaultMemSize if zero.
		MemSize int
	}

	// Object is a compiled program.
	Object struct {
		Code asm.Program

		// Lines holds the source line of every instruction.
		Lines []int

		MemSize  int
		StackTop int
		HeapBase int
		Entry    int
	}

	progContext struct {
		*analyze.Result

		code  asm.Program
		lines []int

		ctx  string // function being compiled
		line int
	}

	CodelenMismatchError struct {
		Node ast.Node
		PC   int
		Want int
		Got  int
	}
)

func New() *Compiler {
	return &Compiler{}
}

// CompileProgram emits code for an analyzed program.
// Jump targets are computed from Codelen ahead of emission, the code is never patched.
func (c *Compiler) CompileProgram(ctx context.Context, p *ast.Program, res *analyze.Result) (obj *Object, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile program", "len", p.Codelen)
	defer tr.Finish("err", &err)

	mem := c.MemSize
	if mem == 0 {
		mem = asm.DefaultMemSize
	}

	heap := asm.StaticStart + res.Static

	if heap >= asm.StackTop(mem) {
		return nil, errors.New("static data (%d cells) does not fit %d cells of memory", res.Static, mem)
	}

	g := &progContext{
		Result: res,
		code:   make(asm.Program, 0, p.Codelen),
		lines:  make([]int, 0, p.Codelen),
		ctx:    symtab.Global,
	}

	g.line = p.Span.Line

	g.imm(asm.Load, asm.StackTop(mem))
	g.dir(asm.Store, asm.SP)
	g.dir(asm.Store, asm.REL)
	g.dir(asm.Store, asm.FRAME)
	g.imm(asm.Load, heap)
	g.dir(asm.Store, asm.HP)

	for _, d := range p.Decls.Decls {
		err = g.node(ctx, d)
		if err != nil {
			return nil, err
		}
	}

	err = g.node(ctx, p.Main)
	if err != nil {
		return nil, errors.Wrap(err, "%v", ast.EntryPoint)
	}

	if len(g.code) != p.Codelen {
		return nil, CodelenMismatchError{Node: p, Want: p.Codelen, Got: len(g.code)}
	}

	err = asm.Validate(g.code)
	if err != nil {
		return nil, errors.Wrap(err, "validate")
	}

	if tr.If("dump_code") {
		for pc, x := range g.code {
			tr.Printw("instr", "pc", pc, "x", x, "line", g.lines[pc])
		}
	}

	obj = &Object{
		Code:     g.code,
		Lines:    g.lines,
		MemSize:  mem,
		StackTop: asm.StackTop(mem),
		HeapBase: heap,
		Entry:    res.Entry,
	}

	return obj, nil
}

// node emits x and checks the emitted length against its Codelen.
func (g *progContext) node(ctx context.Context, x ast.Node) (err error) {
	st := g.pc()

	prev := g.line
	if l := x.Info().Span.Line; l != 0 {
		g.line = l
	}

	defer func() {
		g.line = prev
	}()

	err = g.emit(ctx, x)
	if err != nil {
		return err
	}

	if got := g.pc() - st; got != x.Info().Codelen {
		return CodelenMismatchError{Node: x, PC: st, Want: x.Info().Codelen, Got: got}
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("codegen") {
		tr.Printw("node", "kind", ast.Name(x), "pc", st, "codelen", x.Info().Codelen, "span", x.Info().Span)
	}

	return nil
}

func (g *progContext) pc() int { return len(g.code) }

func (g *progContext) instr(op asm.Op, mode asm.Mode, arg int) {
	g.code = append(g.code, asm.Instr{Op: op, Mode: mode, Arg: arg})
	g.lines = append(g.lines, g.line)
}

func (g *progContext) op(op asm.Op)          { g.instr(op, asm.Direct, 0) }
func (g *progContext) dir(op asm.Op, a int)  { g.instr(op, asm.Direct, a) }
func (g *progContext) ind(op asm.Op, a int)  { g.instr(op, asm.Indirect, a) }
func (g *progContext) imm(op asm.Op, v int)  { g.instr(op, asm.Immediate, v) }
func (g *progContext) jump(op asm.Op, t int) { g.instr(op, asm.Direct, t) }

func (g *progContext) push() {
	g.ind(asm.Store, asm.SP)
	g.dir(asm.Dec, asm.SP)
}

func (g *progContext) pop() {
	g.dir(asm.Inc, asm.SP)
	g.ind(asm.Load, asm.SP)
}

func (g *progContext) sym(id *ast.Ident) (*symtab.Symbol, error) {
	if s, ok := g.Uses[id]; ok {
		return s, nil
	}

	s, err := g.Table.GetSymbol(g.ctx, id.Name)
	if err != nil {
		return nil, errors.Wrap(err, "%v", id.Span)
	}

	return s, nil
}

func (e CodelenMismatchError) Error() string {
	return fmt.Sprintf("%v at %v: emitted %d instructions, codelen is %d", ast.Name(e.Node), e.Node.Info().Span, e.Got, e.Want)
}
