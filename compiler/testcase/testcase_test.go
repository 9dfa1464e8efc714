package testcase

import (
	"testing"

	"github.com/nalgeon/be"
)

const fence = "```"

func TestExtract(t *testing.T) {
	md := `# Sorties

Some prose, and a plain block:

` + fence + `
not a test
` + fence + `

## Test: write
` + fence + `algo
PROGRAMME()
DEBUT
	ECRIRE 1
FIN
` + fence + `
` + fence + `output
1
` + fence + `

## Test: read
` + fence + `algo
VAR x
PROGRAMME()
DEBUT
	LIRE x
	ECRIRE x
FIN
` + fence + `
` + fence + `stdin
42
` + fence + `
` + fence + `output
42
` + fence + `
` + fence + `exit
0
` + fence + `
`

	l, err := Extract([]byte(md))
	be.Err(t, err, nil)
	be.Equal(t, len(l), 2)

	tc := l[0]
	be.Equal(t, tc.Name, "write")
	be.Equal(t, tc.Line, 9)
	be.Equal(t, tc.Source, "PROGRAMME()\nDEBUT\n\tECRIRE 1\nFIN\n")
	be.Equal(t, len(tc.Assertions), 1)
	be.Equal(t, tc.Assertions[0].Kind, Output)
	be.Equal(t, tc.Assertions[0].Content, "1")

	tc = l[1]
	be.Equal(t, tc.Name, "read")
	be.Equal(t, tc.Stdin, "42\n")
	be.Equal(t, len(tc.Assertions), 2)

	a, ok := tc.Find(Exit)
	be.True(t, ok)
	be.Equal(t, a.Content, "0")

	_, ok = tc.Find(Asm)
	be.True(t, !ok)
}

func TestExtractErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		md   string
		err  string
	}{
		{"outside", fence + "algo\nPROGRAMME()\n" + fence + "\n", "line 2: algo fence outside of a test case"},
		{"unknown", "## Test: x\n" + fence + "rust\nfn main() {}\n" + fence + "\n", `line 3: unknown fence "rust" in test "x"`},
		{"no_program", "## Test: x\n" + fence + "output\n1\n" + fence + "\n", `line 1: test "x" has no program`},
		{"no_assertions", "## Test: x\n" + fence + "algo\nPROGRAMME()\n" + fence + "\n", `line 1: test "x" has no assertions`},
		{"two_programs", "## Test: x\n" + fence + "algo\nA\n" + fence + "\n" + fence + "algo\nB\n" + fence + "\n", `line 6: test "x" has more than one program`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract([]byte(tc.md))
			be.True(t, err != nil)
			be.Equal(t, err.Error(), tc.err)
		})
	}
}
