package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/nikandfor/hacked/hfmt"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/M3tex/arc/compiler"
	"github.com/M3tex/arc/compiler/config"
	"github.com/M3tex/arc/compiler/debuginfo"
	"github.com/M3tex/arc/compiler/diag"
	"github.com/M3tex/arc/compiler/format"
	"github.com/M3tex/arc/compiler/front"
	"github.com/M3tex/arc/compiler/parse"
	"github.com/M3tex/arc/lsp"
)

var version = "dev"

var logging bool

func main() {
	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile a program to RAM machine code",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file"),
			cli.NewFlag("include,I", "", "include directories, path list separated"),
			cli.NewFlag("mem-size", 0, "memory size in cells"),
			cli.NewFlag("print-tree", false, "print the annotated syntax tree"),
			cli.NewFlag("print-table", false, "print the symbol table"),
			cli.NewFlag("debug-info", "", "write debug info to file"),
			cli.NewFlag("color", false, "colored diagnostics"),
			cli.NewFlag("config", "", "config file (default: arc.toml found from the source directory)"),
			cli.NewFlag("debug,d", false, "show where fatal diagnostics were detected"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "run a program on the RAM machine simulator",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("input", "", "program input file (default: stdin)"),
			cli.NewFlag("max-steps", 0, "stop after that many instructions"),
			cli.NewFlag("strict", false, "fault on reads of never written memory"),
			cli.NewFlag("trace", false, "print every executed instruction to stderr"),
			cli.NewFlag("debug-info", "", "debug info file of a compiled program"),
			cli.NewFlag("include,I", "", "include directories, path list separated"),
			cli.NewFlag("mem-size", 0, "memory size in cells"),
			cli.NewFlag("color", false, "colored diagnostics"),
			cli.NewFlag("config", "", "config file"),
		},
	}

	checkCmd := &cli.Command{
		Name:        "check",
		Description: "report diagnostics without generating code",
		Action:      checkAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("include,I", "", "include directories, path list separated"),
			cli.NewFlag("color", false, "colored diagnostics"),
			cli.NewFlag("config", "", "config file"),
		},
	}

	fmtCmd := &cli.Command{
		Name:        "fmt",
		Description: "print a program in canonical layout",
		Action:      fmtAct,
		Args:        cli.Args{},
	}

	lspCmd := &cli.Command{
		Name:        "lsp",
		Description: "language server over stdio",
		Action:      lspAct,
		Flags: []*cli.Flag{
			cli.NewFlag("include,I", "", "include directories, path list separated"),
			cli.NewFlag("stdlib", "", "standard library directory"),
		},
	}

	app := &cli.Command{
		Name:        "arc",
		Description: "arc compiles algorithmic language programs for the RAM machine",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("log", false, "log compiler stages to stderr"),
			cli.NewFlag("verbosity,v", "", "log verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			compileCmd,
			runCmd,
			checkCmd,
			fmtCmd,
			lspCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	logging = c.Bool("log")

	if logging {
		tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags))
	}

	if v := c.String("verbosity"); v != "" {
		tlog.SetVerbosity(v)
	}

	return nil
}

func newContext() context.Context {
	ctx := context.Background()

	if logging {
		ctx = tlog.ContextWithSpan(ctx, tlog.Root())
	}

	return ctx
}

func compileAct(c *cli.Command) (err error) {
	ctx := newContext()

	if len(c.Args) != 1 {
		return errors.New("expected one source file")
	}

	src := c.Args[0]

	cfg, err := loadConfig(c, src)
	if err != nil {
		return err
	}

	if o := c.String("output"); o != "" {
		cfg.Compiler.Output = o
	}

	r, err := compiler.CompileFile(ctx, src, options(c, cfg))
	report(c, r, err)

	if r != nil && r.Prog != nil && c.Bool("print-tree") {
		os.Stdout.Write(format.Tree(nil, r.Prog))
	}

	if r != nil && r.Front.Result != nil && c.Bool("print-table") {
		os.Stdout.Write(format.Table(nil, r.Front.Result.Table))
	}

	if err != nil {
		os.Exit(compiler.ExitCode(err))
	}

	err = os.WriteFile(cfg.Compiler.Output, r.Text, 0o644)
	if err != nil {
		return errors.Wrap(err, "write output")
	}

	if name := c.String("debug-info"); name != "" {
		d, err := debuginfo.New(r)
		if err != nil {
			return errors.Wrap(err, "debug info")
		}

		err = debuginfo.WriteFile(name, d)
		if err != nil {
			return errors.Wrap(err, "write debug info")
		}
	}

	return nil
}

func checkAct(c *cli.Command) (err error) {
	ctx := newContext()

	if len(c.Args) == 0 {
		return errors.New("expected source files")
	}

	code := 0

	for _, src := range c.Args {
		cfg, err := loadConfig(c, src)
		if err != nil {
			return err
		}

		opts := options(c, cfg)
		opts.Check = true

		r, err := compiler.CompileFile(ctx, src, opts)
		report(c, r, err)

		if x := compiler.ExitCode(err); x != 0 && code == 0 {
			code = x
		}
	}

	if code != 0 {
		os.Exit(code)
	}

	return nil
}

func fmtAct(c *cli.Command) (err error) {
	ctx := newContext()

	if len(c.Args) != 1 {
		return errors.New("expected one source file")
	}

	text, err := os.ReadFile(c.Args[0])
	if err != nil {
		return errors.Wrap(err, "read source")
	}

	prog, dirs := front.SplitDirectives(text)

	p, err := parse.Parse(ctx, prog)
	if err != nil {
		return errors.Wrap(err, "parse %v", c.Args[0])
	}

	var b []byte

	for _, d := range dirs {
		b = append(b, d.Text...)
		b = append(b, '\n')
	}

	if len(dirs) != 0 {
		b = append(b, '\n')
	}

	b, err = format.Format(ctx, b, p)
	if err != nil {
		return errors.Wrap(err, "format")
	}

	_, err = os.Stdout.Write(b)

	return err
}

func lspAct(c *cli.Command) (err error) {
	verbosity := -4 // none
	if logging {
		verbosity = 1
	}

	commonlog.Configure(verbosity, nil)

	s := lsp.New(compiler.Options{
		Include: filepath.SplitList(c.String("include")),
		Stdlib:  c.String("stdlib"),
	})
	s.Version = version

	return s.Run(logging)
}

// loadConfig merges arc.toml, the environment and the command flags.
func loadConfig(c *cli.Command, src string) (cfg *config.Config, err error) {
	if p := c.String("config"); p != "" {
		cfg, err = config.Load(p)
	} else {
		cfg, err = config.FindAndLoad(filepath.Dir(src))
	}
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	err = cfg.ApplyEnv()
	if err != nil {
		return nil, errors.Wrap(err, "environment")
	}

	if c.Flag("mem-size") != nil {
		if v := c.Int("mem-size"); v != 0 {
			cfg.Compiler.MemSize = v
		}
	}

	return cfg, cfg.Validate()
}

func options(c *cli.Command, cfg *config.Config) compiler.Options {
	var inc []string

	if l := c.String("include"); l != "" {
		inc = filepath.SplitList(l)
	}

	return compiler.Options{
		Include: append(inc, cfg.IncludeDirs()...),
		Stdlib:  cfg.Compiler.Stdlib,
		MemSize: cfg.Compiler.MemSize,
	}
}

// report prints warnings and the fatal diagnostic to stderr.
func report(c *cli.Command, r *compiler.Result, err error) {
	p := diag.Printer{
		Color: c.Flag("color") != nil && c.Bool("color"),
		Debug: c.Flag("debug") != nil && c.Bool("debug"),
	}

	var b []byte

	if r != nil {
		p.Src = r.Front

		for _, w := range r.Warnings {
			b = p.AppendWarning(b, w)
		}
	}

	if e, ok := diag.As(err); ok {
		b = p.AppendError(b, e)
	} else if err != nil {
		b = hfmt.Appendf(b, "erreur: %v\n", err)
	}

	os.Stderr.Write(b)
}
