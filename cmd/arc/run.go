package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler"
	"github.com/M3tex/arc/compiler/asm"
	"github.com/M3tex/arc/compiler/debuginfo"
	"github.com/M3tex/arc/compiler/diag"
	"github.com/M3tex/arc/ram"
)

func runAct(c *cli.Command) (err error) {
	ctx := newContext()

	if len(c.Args) != 1 {
		return errors.New("expected one program")
	}

	name := c.Args[0]

	cfg, err := loadConfig(c, name)
	if err != nil {
		return err
	}

	if v := c.Int("max-steps"); v != 0 {
		cfg.Run.MaxSteps = v
	}

	if c.Bool("strict") {
		cfg.Run.Strict = true
	}

	var (
		prog asm.Program
		dbg  *debuginfo.Info
	)

	memSize := cfg.Compiler.MemSize

	if strings.HasSuffix(name, ".algo") {
		r, err := compiler.CompileFile(ctx, name, options(c, cfg))
		report(c, r, err)

		if err != nil {
			os.Exit(compiler.ExitCode(err))
		}

		prog = r.Object.Code
		memSize = r.Object.MemSize

		dbg, err = debuginfo.New(r)
		if err != nil {
			return errors.Wrap(err, "debug info")
		}
	} else {
		text, err := os.ReadFile(name)
		if err != nil {
			return errors.Wrap(err, "read program")
		}

		prog, err = asm.Parse(text)
		if err != nil {
			return errors.Wrap(err, "parse %v", name)
		}

		if p := c.String("debug-info"); p != "" {
			dbg, err = debuginfo.ReadFile(p)
			if err != nil {
				return errors.Wrap(err, "read debug info")
			}

			memSize = dbg.MemSize
		}
	}

	var in io.Reader = os.Stdin

	if p := c.String("input"); p != "" {
		f, err := os.Open(p)
		if err != nil {
			return errors.Wrap(err, "open input")
		}

		defer f.Close()

		in = f
	}

	out := bufio.NewWriter(os.Stdout)
	defer func() {
		e := out.Flush()
		if err == nil {
			err = e
		}
	}()

	m := ram.New(memSize, in, out)
	m.MaxSteps = cfg.Run.MaxSteps
	m.Strict = cfg.Run.Strict

	if c.Bool("trace") {
		m.Trace = os.Stderr
	}

	err = run(ctx, m, prog)

	f, ok := err.(ram.Fault)
	if !ok {
		return err
	}

	_ = out.Flush()

	os.Stderr.Write(appendFault(nil, f, dbg))
	os.Exit(int(diag.RuntimeFault))

	return nil
}

func run(ctx context.Context, m *ram.Machine, p asm.Program) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "run", "len", len(p), "mem", len(m.Mem), "strict", m.Strict)
	defer tr.Finish("err", &err)

	err = asm.Validate(p)
	if err != nil {
		return errors.Wrap(err, "validate")
	}

	err = m.Run(ctx, p)

	tr.Printw("stopped", "steps", m.Steps, "pc", m.PC, "acc", m.ACC())

	return err
}

// appendFault renders a runtime fault, with the source position when debug info is known.
func appendFault(b []byte, f ram.Fault, d *debuginfo.Info) []byte {
	if d != nil {
		if file, line, ok := d.Where(f.PC); ok {
			b = hfmt.Appendf(b, "%s:%d: ", file, line)
		}
	}

	b = hfmt.Appendf(b, "erreur d'exécution: %v", f)

	if d != nil {
		if fn, ok := d.Func(f.PC); ok {
			b = hfmt.Appendf(b, " (dans %s)", fn.Name)
		}
	}

	return append(b, '\n')
}
