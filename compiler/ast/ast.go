package ast

import (
	"strconv"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Span is a source range. Lines and columns are 1-based, EndCol is inclusive.
	Span struct {
		Line    int
		Col     int
		EndLine int
		EndCol  int
	}

	Node interface {
		Info() *Base
	}

	// Base is carried by every node.
	// MemAdr is -1 until the analyzer resolves an address.
	// Codelen is the exact number of instructions the node compiles to.
	Base struct {
		Span    Span `tlog:"span"`
		MemAdr  int  `tlog:"mem_adr"`
		Codelen int  `tlog:"codelen"`
	}

	Op string

	Number struct {
		Base `tlog:",embed"`

		Value int
	}

	Ident struct {
		Base `tlog:",embed"`

		Name string
	}

	BinOp struct {
		Base `tlog:",embed"`

		Op    Op
		Left  Node
		Right Node
	}

	UnOp struct {
		Base `tlog:",embed"`

		Op Op
		X  Node
	}

	// Assign stores Value into Target, which is an *Ident, an *Index or an @ dereference.
	Assign struct {
		Base `tlog:",embed"`

		Target Node
		Value  Node
	}

	Block struct {
		Base `tlog:",embed"`

		Stmts []Node
	}

	DeclList struct {
		Base `tlog:",embed"`

		Decls []Node
	}

	VarDecl struct {
		Base `tlog:",embed"`

		Name    *Ident
		Pointer bool
		Init    Node

		// Discarded marks a redeclaration. It emits no code.
		Discarded bool
	}

	// ArrayDecl is t[Size] with an optional initializer.
	// Size is -1 when it is taken from the initializer.
	ArrayDecl struct {
		Base `tlog:",embed"`

		Name    *Ident
		Size    int
		Elems   []Node
		HasInit bool

		Discarded bool
	}

	FuncDecl struct {
		Base `tlog:",embed"`

		Name   *Ident
		Params []*VarDecl
		Decls  *DeclList
		Body   *Block
		Entry  bool
	}

	Proto struct {
		Base `tlog:",embed"`

		Name   *Ident
		Params []*VarDecl
	}

	Call struct {
		Base `tlog:",embed"`

		Func *Ident
		Args []Node
	}

	Return struct {
		Base `tlog:",embed"`

		X Node
	}

	While struct {
		Base `tlog:",embed"`

		Cond Node
		Body *Block
	}

	DoWhile struct {
		Base `tlog:",embed"`

		Body *Block
		Cond Node
	}

	If struct {
		Base `tlog:",embed"`

		Cond Node
		Then *Block
		Else *Block
	}

	// For is POUR Var DE Init.Value A Cond.Right.
	// Init and Cond are built by the parser: Var <- from and Var < to.
	For struct {
		Base `tlog:",embed"`

		Var  *Ident
		Init *Assign
		Cond *BinOp
		Body *Block
	}

	// IO is ECRIRE X when Write is set, or the LIRE() expression.
	IO struct {
		Base `tlog:",embed"`

		Write bool
		X     Node
	}

	Index struct {
		Base `tlog:",embed"`

		Array *Ident
		Index Node
	}

	Alloc struct {
		Base `tlog:",embed"`

		Ptr  *Ident
		Size Node
	}

	Program struct {
		Base `tlog:",embed"`

		Decls *DeclList
		Main  *FuncDecl
	}
)

const (
	Add Op = "+"
	Sub Op = "-"
	Mul Op = "*"
	Div Op = "/"
	Mod Op = "%"

	Lt Op = "<"
	Gt Op = ">"
	Le Op = "<="
	Ge Op = ">="
	Eq Op = "="
	Ne Op = "!="

	And Op = "ET"
	Or  Op = "OU"
	Not Op = "NON"

	Neg   Op = "-"
	Deref Op = "@"
	Addr  Op = "&"
)

// EntryPoint is the name of the function the program starts in.
const EntryPoint = "PROGRAMME"

// At returns a Base for a node spanning s with no address resolved yet.
func At(s Span) Base {
	return Base{Span: s, MemAdr: -1}
}

func (b *Base) Info() *Base { return b }

func (op Op) Arith() bool {
	switch op {
	case Add, Sub, Mul, Div, Mod:
		return true
	}

	return false
}

func (op Op) Compare() bool {
	switch op {
	case Lt, Gt, Le, Ge, Eq, Ne:
		return true
	}

	return false
}

// Join returns the smallest span covering both a and b.
func Join(a, b Span) Span {
	if b.Line == 0 {
		return a
	}
	if a.Line == 0 {
		return b
	}

	r := a

	if b.Line < r.Line || b.Line == r.Line && b.Col < r.Col {
		r.Line, r.Col = b.Line, b.Col
	}

	if b.EndLine > r.EndLine || b.EndLine == r.EndLine && b.EndCol > r.EndCol {
		r.EndLine, r.EndCol = b.EndLine, b.EndCol
	}

	return r
}

// Contains reports whether line:col falls in the span.
func (s Span) Contains(line, col int) bool {
	if line < s.Line || line > s.EndLine {
		return false
	}
	if line == s.Line && col < s.Col {
		return false
	}
	if line == s.EndLine && col > s.EndCol {
		return false
	}

	return true
}

func (s Span) String() string {
	b := strconv.AppendInt(nil, int64(s.Line), 10)
	b = append(b, ':')
	b = strconv.AppendInt(b, int64(s.Col), 10)

	return string(b)
}

func (s Span) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	return e.AppendString(b, s.String())
}
