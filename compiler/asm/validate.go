package asm

import (
	"fmt"

	"github.com/M3tex/arc/compiler/set"
)

type (
	JumpTargetError struct {
		PC     int
		Target int
		Len    int
	}
)

// Targets collects direct jump targets.
func Targets(p Program) set.Bitmap {
	s := set.MakeBitmap(len(p))

	for _, x := range p {
		if x.Op.IsJump() && x.Mode == Direct && x.Arg >= 0 {
			s.Set(x.Arg)
		}
	}

	return s
}

// Validate checks every direct jump lands inside the program.
func Validate(p Program) error {
	for pc, x := range p {
		if !x.Op.IsJump() || x.Mode != Direct {
			continue
		}

		if x.Arg < 0 || x.Arg >= len(p) {
			return JumpTargetError{PC: pc, Target: x.Arg, Len: len(p)}
		}
	}

	return nil
}

func (e JumpTargetError) Error() string {
	return fmt.Sprintf("jump at %d to %d: outside of [0, %d)", e.PC, e.Target, e.Len)
}
