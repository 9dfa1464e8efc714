package ram

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler/asm"
	"github.com/M3tex/arc/compiler/set"
)

type (
	// Machine is a RAM machine: one accumulator at cell 0 and numbered memory cells.
	Machine struct {
		Mem []int
		PC  int

		Steps    int
		MaxSteps int

		// Strict faults on reads of cells never written.
		Strict bool

		// Trace gets one line per executed instruction if set.
		Trace io.Writer

		in  *bufio.Reader
		out io.Writer

		written set.Bitmap
		tbuf    []byte
	}

	Fault struct {
		PC    int
		Instr asm.Instr
		Msg   string
	}
)

const DefaultMaxSteps = 10_000_000

func New(memSize int, in io.Reader, out io.Writer) *Machine {
	if memSize == 0 {
		memSize = asm.DefaultMemSize
	}

	if in == nil {
		in = eofReader{}
	}

	if out == nil {
		out = io.Discard
	}

	return &Machine{
		Mem:      make([]int, memSize),
		MaxSteps: DefaultMaxSteps,
		in:       bufio.NewReader(in),
		out:      out,
		written:  set.MakeBitmap(memSize),
	}
}

func (m *Machine) ACC() int { return m.Mem[asm.ACC] }

// Run executes p from address 0 until STOP.
func (m *Machine) Run(ctx context.Context, p asm.Program) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "ram: run", "len", len(p), "mem", len(m.Mem))
	defer func() {
		tr.Finish("err", err, "steps", m.Steps)
	}()

	m.written.Set(asm.ACC)

	for {
		if m.PC < 0 || m.PC >= len(p) {
			return Fault{PC: m.PC, Msg: fmt.Sprintf("exécution hors du programme (%d instructions)", len(p))}
		}

		if m.MaxSteps > 0 && m.Steps >= m.MaxSteps {
			return m.fault(p, "limite de %d pas atteinte", m.MaxSteps)
		}

		if m.Steps&0xffff == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		m.Steps++

		x := p[m.PC]

		if m.Trace != nil {
			m.tbuf = hfmt.Appendf(m.tbuf[:0], "%6d  %-16v acc=%d\n", m.PC, x, m.Mem[asm.ACC])
			_, _ = m.Trace.Write(m.tbuf)
		}

		stop, err := m.step(p, x)
		if err != nil {
			return err
		}

		if stop {
			return nil
		}
	}
}

func (m *Machine) step(p asm.Program, x asm.Instr) (stop bool, err error) {
	next := m.PC + 1

	switch x.Op {
	case asm.Nop:
	case asm.Stop:
		return true, nil
	case asm.Read:
		var v int

		_, err := fmt.Fscan(m.in, &v)
		if err != nil {
			return false, m.fault(p, "entrée épuisée ou invalide: %v", err)
		}

		m.set(asm.ACC, v)
	case asm.Write:
		_, err = fmt.Fprintf(m.out, "%d\n", m.Mem[asm.ACC])
		if err != nil {
			return false, err
		}
	case asm.Load, asm.Add, asm.Sub, asm.Mul, asm.Div, asm.Mod:
		v, err := m.operand(p, x)
		if err != nil {
			return false, err
		}

		acc := m.Mem[asm.ACC]

		switch x.Op {
		case asm.Load:
			acc = v
		case asm.Add:
			acc += v
		case asm.Sub:
			acc -= v
		case asm.Mul:
			acc *= v
		case asm.Div, asm.Mod:
			if v == 0 {
				return false, m.fault(p, "division par zéro")
			}

			if x.Op == asm.Div {
				acc /= v
			} else {
				acc %= v
			}
		}

		m.set(asm.ACC, acc)
	case asm.Store, asm.Inc, asm.Dec:
		a, err := m.target(p, x)
		if err != nil {
			return false, err
		}

		switch x.Op {
		case asm.Store:
			m.set(a, m.Mem[asm.ACC])
		case asm.Inc:
			m.set(a, m.Mem[a]+1)
		case asm.Dec:
			m.set(a, m.Mem[a]-1)
		}
	case asm.Jump, asm.Jumz, asm.Juml, asm.Jumg:
		t, err := m.target(p, x)
		if err != nil {
			return false, err
		}

		acc := m.Mem[asm.ACC]

		if x.Op == asm.Jump || x.Op == asm.Jumz && acc == 0 || x.Op == asm.Juml && acc < 0 || x.Op == asm.Jumg && acc > 0 {
			if t < 0 || t >= len(p) {
				return false, m.fault(p, "saut hors du programme: %d", t)
			}

			next = t
		}
	default:
		return false, m.fault(p, "instruction inconnue")
	}

	m.PC = next

	return false, nil
}

// operand returns the value x reads: #n is n, n is cell n, @n is the cell addressed by cell n.
func (m *Machine) operand(p asm.Program, x asm.Instr) (int, error) {
	if x.Mode == asm.Immediate {
		return x.Arg, nil
	}

	a, err := m.target(p, x)
	if err != nil {
		return 0, err
	}

	return m.get(p, a)
}

// target returns the cell written by x, or the jump destination.
func (m *Machine) target(p asm.Program, x asm.Instr) (int, error) {
	switch x.Mode {
	case asm.Direct:
		if !x.Op.IsJump() {
			if err := m.check(p, x.Arg); err != nil {
				return 0, err
			}
		}

		return x.Arg, nil
	case asm.Indirect:
		a, err := m.get(p, x.Arg)
		if err != nil {
			return 0, err
		}

		if !x.Op.IsJump() {
			if err := m.check(p, a); err != nil {
				return 0, err
			}
		}

		return a, nil
	default:
		return 0, m.fault(p, "adressage immédiat interdit")
	}
}

func (m *Machine) get(p asm.Program, a int) (int, error) {
	if err := m.check(p, a); err != nil {
		return 0, err
	}

	if m.Strict && !m.written.IsSet(a) {
		return 0, m.fault(p, "lecture de la case %d jamais écrite", a)
	}

	return m.Mem[a], nil
}

func (m *Machine) set(a, v int) {
	m.Mem[a] = v
	m.written.Set(a)
}

func (m *Machine) check(p asm.Program, a int) error {
	if a < 0 || a >= len(m.Mem) {
		return m.fault(p, "adresse hors mémoire: %d", a)
	}

	return nil
}

func (m *Machine) fault(p asm.Program, format string, args ...any) Fault {
	f := Fault{
		PC:  m.PC,
		Msg: string(hfmt.Appendf(nil, format, args...)),
	}

	if m.PC >= 0 && m.PC < len(p) {
		f.Instr = p[m.PC]
	}

	return f
}

func (f Fault) Error() string {
	return fmt.Sprintf("pc %d (%v): %s", f.PC, f.Instr, f.Msg)
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
