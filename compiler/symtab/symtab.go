package symtab

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"

	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/tp"
)

// Global is the context every lookup falls back to.
const Global = "global"

type (
	Symbol struct {
		ID   string
		Kind tp.Kind

		// Size is the element count of an array, the parameter count of a function, 1 otherwise.
		Size int

		// Adr is absolute in the static zone and an offset from the relative stack start in the stack zone.
		Adr  int
		Zone tp.Zone

		// Span is where the symbol was declared.
		Span ast.Span

		IsUsed     bool
		IsInit     bool
		IsModified bool
		IsChecked  bool
	}

	Context struct {
		Name    string
		Symbols []*Symbol

		index map[string]*Symbol
	}

	// Table holds the contexts in creation order.
	// It has exactly two visibility tiers: the named context and Global.
	Table struct {
		Contexts []*Context

		index map[string]*Context

		w Warner
	}

	Warner interface {
		Warn(s ast.Span, format string, args ...any)
	}

	UnknownContextError struct {
		Context string
	}

	UndeclaredError struct {
		Context string
		ID      string
	}
)

var ErrNotInit = errors.New("symbol table is not initialized")

// New creates a table with the first context named name.
// Duplicate declarations are reported to w, which may be nil.
func New(name string, w Warner) *Table {
	t := &Table{
		index: make(map[string]*Context),
		w:     w,
	}

	t.appendContext(name)

	return t
}

func (t *Table) SearchContext(name string) *Context {
	if t == nil {
		return nil
	}

	return t.index[name]
}

// SearchSymbol looks id up in ctx only.
// It returns nil, nil if ctx has no such symbol.
func (t *Table) SearchSymbol(ctx, id string) (*Symbol, error) {
	if t == nil {
		return nil, ErrNotInit
	}

	c := t.SearchContext(ctx)
	if c == nil {
		return nil, UnknownContextError{Context: ctx}
	}

	return c.index[id], nil
}

// GetSymbol resolves id in ctx, then in Global.
func (t *Table) GetSymbol(ctx, id string) (*Symbol, error) {
	s, err := t.SearchSymbol(ctx, id)
	if err != nil {
		return nil, err
	}

	if s != nil {
		return s, nil
	}

	if ctx != Global {
		s, err = t.SearchSymbol(Global, id)
		if err != nil {
			return nil, err
		}

		if s != nil {
			return s, nil
		}
	}

	return nil, UndeclaredError{Context: ctx, ID: id}
}

// AddContext appends an empty context.
// An existing context with the same name is returned instead with a warning at span.
func (t *Table) AddContext(name string, span ast.Span) *Context {
	if c := t.SearchContext(name); c != nil {
		t.warn(span, "le contexte %s existe déjà", name)

		return c
	}

	return t.appendContext(name)
}

// AddSymbol appends s to ctx, creating ctx if needed.
// If ctx already has the id, the existing symbol is returned, s is discarded and a warning issued.
func (t *Table) AddSymbol(ctx string, s *Symbol) *Symbol {
	c := t.SearchContext(ctx)
	if c == nil {
		c = t.appendContext(ctx)
	}

	if old, ok := c.index[s.ID]; ok {
		t.warn(s.Span, "le symbole %s est déjà déclaré dans le contexte %s", s.ID, ctx)

		return old
	}

	c.Symbols = append(c.Symbols, s)
	c.index[s.ID] = s

	return s
}

// Symbols counts symbols in all contexts.
func (t *Table) Symbols() (n int) {
	for _, c := range t.Contexts {
		n += len(c.Symbols)
	}

	return n
}

func (t *Table) appendContext(name string) *Context {
	c := &Context{
		Name:  name,
		index: make(map[string]*Symbol),
	}

	t.Contexts = append(t.Contexts, c)
	t.index[name] = c

	return c
}

func (t *Table) warn(s ast.Span, format string, args ...any) {
	if t.w == nil {
		return
	}

	t.w.Warn(s, format, args...)
}

func (s *Symbol) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if s == nil {
		return e.AppendNil(b)
	}

	b = e.AppendMap(b, 5)

	b = e.AppendKey(b, "id")
	b = e.AppendString(b, s.ID)
	b = e.AppendKey(b, "kind")
	b = e.AppendString(b, s.Kind.String())
	b = e.AppendKeyInt(b, "size", s.Size)
	b = e.AppendKeyInt(b, "adr", s.Adr)
	b = e.AppendKey(b, "zone")
	b = e.AppendString(b, s.Zone.String())

	return b
}

func (e UnknownContextError) Error() string {
	return fmt.Sprintf("le contexte %s est inconnu", e.Context)
}

func (e UndeclaredError) Error() string {
	return fmt.Sprintf("identifiant non déclaré: %s", e.ID)
}
