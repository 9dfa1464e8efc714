package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/M3tex/arc/compiler/asm"
	"github.com/M3tex/arc/compiler/debuginfo"
	"github.com/M3tex/arc/ram"
)

func TestAppendFault(t *testing.T) {
	f := ram.Fault{PC: 8, Instr: asm.Instr{Op: asm.Write}, Msg: "entrée épuisée"}

	assert.Equal(t, "erreur d'exécution: pc 8 (WRITE;): entrée épuisée\n", string(appendFault(nil, f, nil)))

	d := &debuginfo.Info{
		Files: []string{"main.algo", "lib.algo"},
		Funcs: []debuginfo.Func{{Name: "f", Adr: 7, Codelen: 4}},
	}

	for i := 0; i < 12; i++ {
		d.Lines = append(d.Lines, debuginfo.Location{File: 1, Line: 3})
	}

	assert.Equal(t, "lib.algo:3: erreur d'exécution: pc 8 (WRITE;): entrée épuisée (dans f)\n", string(appendFault(nil, f, d)))
}
