package asm

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
)

type (
	ParseError struct {
		Line int
		Text string
		Msg  string
	}
)

// AppendInstr appends x as MNEMONIC <mode><operand>; without a newline.
func AppendInstr(b []byte, x Instr) []byte {
	if !x.Op.HasOperand() {
		return hfmt.Appendf(b, "%s;", x.Op)
	}

	b = hfmt.Appendf(b, "%-6s ", x.Op)

	if x.Mode != Direct {
		b = append(b, byte(x.Mode))
	}

	b = strconv.AppendInt(b, int64(x.Arg), 10)
	b = append(b, ';')

	return b
}

func (p Program) Append(b []byte) []byte {
	for _, x := range p {
		b = AppendInstr(b, x)
		b = append(b, '\n')
	}

	return b
}

// Parse decodes program text. Anything after ';' on a line is a comment.
func Parse(text []byte) (p Program, err error) {
	for n, l := 1, text; len(l) != 0; n++ {
		var line []byte

		if i := bytes.IndexByte(l, '\n'); i >= 0 {
			line, l = l[:i], l[i+1:]
		} else {
			line, l = l, nil
		}

		if i := bytes.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		x, err := parseInstr(line)
		if err != nil {
			return nil, ParseError{Line: n, Text: string(line), Msg: err.Error()}
		}

		p = append(p, x)
	}

	return p, nil
}

func parseInstr(line []byte) (x Instr, err error) {
	f := bytes.Fields(line)
	if len(f) > 2 {
		return x, fmt.Errorf("too many operands")
	}

	name := f[0]

	var rest []byte
	if len(f) == 2 {
		rest = f[1]
	}

	op, ok := Lookup(string(bytes.ToUpper(name)))
	if !ok {
		return x, fmt.Errorf("unknown mnemonic %q", name)
	}

	x.Op = op

	if !op.HasOperand() {
		if len(rest) != 0 {
			return x, fmt.Errorf("%v takes no operand", op)
		}

		return x, nil
	}

	if len(rest) == 0 {
		return x, fmt.Errorf("%v needs an operand", op)
	}

	switch rest[0] {
	case '@', '#':
		x.Mode = Mode(rest[0])
		rest = rest[1:]
	}

	v, err := strconv.Atoi(string(rest))
	if err != nil {
		return x, fmt.Errorf("bad operand %q", rest)
	}

	x.Arg = v

	if x.Mode == Immediate && (op.Writes() || op.IsJump()) {
		return x, fmt.Errorf("%v can't take an immediate operand", op)
	}

	return x, nil
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Msg, e.Text)
}
