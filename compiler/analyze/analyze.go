package analyze

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler/asm"
	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/diag"
	"github.com/M3tex/arc/compiler/symtab"
	"github.com/M3tex/arc/compiler/tp"
)

type (
	// State is the analysis state shared by both passes.
	State struct {
		ctx   string // current context
		entry bool   // inside the entry point

		static int // next static address
		stack  int // next stack offset in the current function

		table *symtab.Table
		w     symtab.Warner

		uses  map[*ast.Ident]*symtab.Symbol
		funcs []*ast.FuncDecl

		entryAdr int
	}

	Result struct {
		Table *symtab.Table

		// Uses maps every resolved identifier, declarations included, to its symbol.
		Uses map[*ast.Ident]*symtab.Symbol

		// Funcs are the function definitions in program order, the entry point last.
		Funcs []*ast.FuncDecl

		// Static is the number of cells used from asm.StaticStart.
		Static int

		// Entry is the address of the entry point code.
		Entry int

		// Len is the program length in instructions.
		Len int
	}

	UnsupportedNodeError struct {
		T ast.Node
	}
)

// Analyze runs both passes over p.
// Fatal conditions are returned as *diag.Error, warnings go to w.
func Analyze(ctx context.Context, p *ast.Program, w symtab.Warner) (r *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "analyze")
	defer tr.Finish("err", &err)

	s := New(w)

	err = s.Pass1(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "pass 1")
	}

	err = s.Pass2(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "pass 2")
	}

	r = s.Result(p)

	tr.Printw("analyzed", "symbols", r.Table.Symbols(), "static", r.Static, "entry", r.Entry, "len", r.Len)

	return r, nil
}

func New(w symtab.Warner) *State {
	return &State{
		ctx:    symtab.Global,
		static: asm.StaticStart,
		table:  symtab.New(symtab.Global, w),
		w:      w,
		uses:   make(map[*ast.Ident]*symtab.Symbol),
	}
}

func (s *State) Table() *symtab.Table { return s.table }

func (s *State) Result(p *ast.Program) *Result {
	return &Result{
		Table:  s.table,
		Uses:   s.uses,
		Funcs:  s.funcs,
		Static: s.static - asm.StaticStart,
		Entry:  s.entryAdr,
		Len:    p.Codelen,
	}
}

func (s *State) zone() tp.Zone {
	if s.ctx == symtab.Global {
		return tp.Static
	}

	return tp.Stack
}

// declare registers sym in the current context and assigns its address.
// A duplicate gets the existing symbol back and no new cells.
func (s *State) declare(sym *symtab.Symbol, cells int) *symtab.Symbol {
	sym.Zone = s.zone()

	if sym.Zone == tp.Static {
		sym.Adr = s.static
	} else {
		sym.Adr = s.stack + cells - 1
	}

	r := s.table.AddSymbol(s.ctx, sym)
	if r != sym {
		return r
	}

	if sym.Zone == tp.Static {
		s.static += cells
	} else {
		s.stack += cells
	}

	return sym
}

func (s *State) bind(id *ast.Ident, sym *symtab.Symbol) {
	s.uses[id] = sym
	id.MemAdr = sym.Adr
}

// lookup resolves id in the current context with the global fallback.
func (s *State) lookup(id *ast.Ident) (*symtab.Symbol, error) {
	sym, err := s.table.GetSymbol(s.ctx, id.Name)
	if err != nil {
		return nil, tableError(id.Span, err)
	}

	s.bind(id, sym)

	return sym, nil
}

func (s *State) warn(sp ast.Span, format string, args ...any) {
	if s.w == nil {
		return
	}

	s.w.Warn(sp, format, args...)
}

func tableError(sp ast.Span, err error) error {
	switch e := err.(type) {
	case symtab.UndeclaredError:
		return diag.Fatalf(diag.UndefIdent, sp, "%v", e)
	case symtab.UnknownContextError:
		return diag.Fatalf(diag.UndefContext, sp, "%v", e)
	}

	if err == symtab.ErrNotInit {
		return diag.Fatalf(diag.TableNotInit, sp, "%v", err)
	}

	return err
}

// storeLen is the cost of storing the accumulator into sym.
func storeLen(sym *symtab.Symbol) int {
	if sym.Zone == tp.Static {
		return 1
	}

	return 6
}

// loadLen is the cost of loading the value of sym.
func loadLen(sym *symtab.Symbol) int {
	switch {
	case sym.Kind == tp.Array && sym.Zone == tp.Static:
		return 1
	case sym.Kind == tp.Array:
		return 2
	case sym.Zone == tp.Static:
		return 1
	default:
		return 4
	}
}

// addrLen is the cost of &sym.
func addrLen(sym *symtab.Symbol) int {
	if sym.Zone == tp.Static {
		return 1
	}

	return 2
}

// baseLen is the cost of adding the base address of t to the index in the accumulator.
func baseLen(sym *symtab.Symbol) int {
	switch {
	case sym.Zone == tp.Static:
		return 1
	case sym.Kind == tp.Array:
		return 4
	default:
		return 6
	}
}

// incLen is the cost of incrementing a loop variable.
func incLen(sym *symtab.Symbol) int {
	if sym.Zone == tp.Static {
		return 1
	}

	return 4
}

func NewUnsupportedNode(x ast.Node) UnsupportedNodeError {
	return UnsupportedNodeError{
		T: x,
	}
}

func (e UnsupportedNodeError) Error() string {
	return fmt.Sprintf("unsupported node: %v", ast.Name(e.T))
}
