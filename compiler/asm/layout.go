package asm

// Cells with a fixed role.
const (
	ACC = iota

	// SP is the stack pointer. It points to the next free cell, the stack grows down.
	SP
	// HP is the heap pointer, the next cell ALLOUER hands out.
	HP
	// REL is the relative stack start of the running function.
	REL
	// STKADR holds a stack address computed from REL.
	STKADR
	// SWP saves the accumulator around an address computation.
	SWP
	// IDX holds an address for an indirect access.
	IDX
	// FRAME is the relative stack start of the call being built.
	FRAME
	RETVAL
	RETADR
)

const (
	StaticStart = 16

	DefaultMemSize = 1 << 16

	// BootLen is the length of the bootstrap sequence at address 0.
	BootLen = 6
)

var regNames = [...]string{
	ACC:    "ACC",
	SP:     "SP",
	HP:     "HP",
	REL:    "REL",
	STKADR: "STKADR",
	SWP:    "SWP",
	IDX:    "IDX",
	FRAME:  "FRAME",
	RETVAL: "RETVAL",
	RETADR: "RETADR",
}

// StackTop is the first stack cell for a memory of size cells.
func StackTop(size int) int {
	return size - 1
}

// RegName names fixed cells, "" for others.
func RegName(adr int) string {
	if adr < 0 || adr >= len(regNames) {
		return ""
	}

	return regNames[adr]
}
