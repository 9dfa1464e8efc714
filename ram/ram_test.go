package ram

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M3tex/arc/compiler/asm"
)

func run(t *testing.T, text, in string) (*Machine, string, error) {
	t.Helper()

	p, err := asm.Parse([]byte(text))
	require.NoError(t, err)

	var out bytes.Buffer

	m := New(64, strings.NewReader(in), &out)

	err = m.Run(context.Background(), p)

	return m, out.String(), err
}

func TestAddressing(t *testing.T) {
	m, out, err := run(t, `
LOAD #20;
STORE 10;   cell 10 = 20
LOAD #7;
STORE @10;  cell 20 = 7
LOAD @10;
ADD 10;
WRITE;
INC 20;
DEC 10;
STOP;
`, "")
	require.NoError(t, err)

	assert.Equal(t, "27\n", out)
	assert.Equal(t, 8, m.Mem[20])
	assert.Equal(t, 19, m.Mem[10])
	assert.Equal(t, 10, m.Steps)
}

func TestJumps(t *testing.T) {
	// counts down from 3
	_, out, err := run(t, `
LOAD #3;
STORE 10;
LOAD 10;
JUMZ 8;
WRITE;
DEC 10;
JUMP 2;
NOP;
STOP;
`, "")
	require.NoError(t, err)

	assert.Equal(t, "3\n2\n1\n", out)
}

func TestArith(t *testing.T) {
	_, out, err := run(t, `
READ;
STORE 10;
READ;
STORE 11;
LOAD 10;
DIV 11;
WRITE;
LOAD 10;
MOD 11;
WRITE;
LOAD 10;
MUL #-2;
SUB #1;
WRITE;
STOP;
`, "17 5")
	require.NoError(t, err)

	assert.Equal(t, "3\n2\n-35\n", out)
}

func TestFaults(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
		pc   int
		msg  string
	}{
		{"div_zero", "LOAD #1;\nDIV #0;\nSTOP;", 1, "division par zéro"},
		{"out_of_memory", "LOAD #1;\nSTORE 64;\nSTOP;", 1, "adresse hors mémoire: 64"},
		{"indirect_out", "LOAD #-1;\nSTORE 10;\nLOAD @10;\nSTOP;", 2, "adresse hors mémoire: -1"},
		{"jump_out", "LOAD #100;\nSTORE 10;\nJUMP @10;", 2, "saut hors du programme: 100"},
		{"input", "READ;\nSTOP;", 0, "entrée épuisée"},
		{"fall_through", "LOAD #1;", 1, "exécution hors du programme"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := run(t, tc.text, "")

			var f Fault
			require.ErrorAs(t, err, &f)

			assert.Equal(t, tc.pc, f.PC)
			assert.Contains(t, f.Msg, tc.msg)
		})
	}
}

func TestImmediateTarget(t *testing.T) {
	p := asm.Program{
		{Op: asm.Store, Mode: asm.Immediate, Arg: 3},
		{Op: asm.Stop},
	}

	err := New(64, nil, nil).Run(context.Background(), p)

	var f Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, 0, f.PC)
	assert.Equal(t, "adressage immédiat interdit", f.Msg)
}

func TestStrict(t *testing.T) {
	p, err := asm.Parse([]byte("LOAD 10;\nSTOP;"))
	require.NoError(t, err)

	m := New(64, nil, nil)

	err = m.Run(context.Background(), p)
	assert.NoError(t, err)

	m = New(64, nil, nil)
	m.Strict = true

	err = m.Run(context.Background(), p)

	var f Fault
	require.ErrorAs(t, err, &f)
	assert.Contains(t, f.Msg, "jamais écrite")
}

func TestStepLimit(t *testing.T) {
	p, err := asm.Parse([]byte("JUMP 0;"))
	require.NoError(t, err)

	m := New(64, nil, nil)
	m.MaxSteps = 1000

	err = m.Run(context.Background(), p)

	var f Fault
	require.ErrorAs(t, err, &f)
	assert.Contains(t, f.Msg, "limite de 1000 pas")
	assert.Equal(t, 1000, m.Steps)
}

func TestCanceled(t *testing.T) {
	p, err := asm.Parse([]byte("JUMP 0;"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := New(64, nil, nil)
	m.MaxSteps = 0

	err = m.Run(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrace(t *testing.T) {
	p, err := asm.Parse([]byte("LOAD #4;\nSTOP;"))
	require.NoError(t, err)

	var tr bytes.Buffer

	m := New(64, nil, nil)
	m.Trace = &tr

	err = m.Run(context.Background(), p)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(tr.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	assert.Contains(t, lines[0], "LOAD")
	assert.Contains(t, lines[0], "acc=0")
	assert.Contains(t, lines[1], "STOP")
	assert.Contains(t, lines[1], "acc=4")
}
