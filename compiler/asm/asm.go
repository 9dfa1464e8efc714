package asm

import (
	"tlog.app/go/tlog/tlwire"
)

type (
	Op   byte
	Mode byte

	// Instr is one RAM machine instruction.
	Instr struct {
		Op   Op
		Mode Mode
		Arg  int
	}

	Program []Instr
)

const (
	Nop Op = iota
	Read
	Write
	Load
	Store
	Inc
	Dec
	Add
	Sub
	Mul
	Div
	Mod
	Jump
	Jumz
	Juml
	Jumg
	Stop

	numOps
)

const (
	Direct    Mode = 0
	Indirect  Mode = '@'
	Immediate Mode = '#'
)

var names = [numOps]string{
	Nop:   "NOP",
	Read:  "READ",
	Write: "WRITE",
	Load:  "LOAD",
	Store: "STORE",
	Inc:   "INC",
	Dec:   "DEC",
	Add:   "ADD",
	Sub:   "SUB",
	Mul:   "MUL",
	Div:   "DIV",
	Mod:   "MOD",
	Jump:  "JUMP",
	Jumz:  "JUMZ",
	Juml:  "JUML",
	Jumg:  "JUMG",
	Stop:  "STOP",
}

func Lookup(name string) (Op, bool) {
	for op, n := range names {
		if n == name {
			return Op(op), true
		}
	}

	return 0, false
}

func (op Op) String() string {
	if op >= numOps {
		return "?"
	}

	return names[op]
}

// HasOperand is false for READ, WRITE, STOP and NOP.
func (op Op) HasOperand() bool {
	switch op {
	case Read, Write, Stop, Nop:
		return false
	}

	return true
}

func (op Op) IsJump() bool {
	switch op {
	case Jump, Jumz, Juml, Jumg:
		return true
	}

	return false
}

// Writes reports whether the operand names a cell the instruction writes to.
func (op Op) Writes() bool {
	switch op {
	case Store, Inc, Dec:
		return true
	}

	return false
}

func (x Instr) String() string {
	return string(AppendInstr(nil, x))
}

func (x Instr) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	return e.AppendString(b, x.String())
}
