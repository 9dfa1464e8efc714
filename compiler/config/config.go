// Package config handles arc.toml project configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"
	"tlog.app/go/errors"

	"github.com/M3tex/arc/compiler/asm"
	"github.com/M3tex/arc/ram"
)

const FileName = "arc.toml"

type (
	Config struct {
		Compiler Compiler `toml:"compiler"`
		Run      Run      `toml:"run"`

		// Dir is the directory containing the arc.toml file (set at load time).
		Dir string `toml:"-"`
	}

	Compiler struct {
		MemSize int      `toml:"mem_size"`
		Include []string `toml:"include"`
		Stdlib  string   `toml:"stdlib"`
		Output  string   `toml:"output"`
	}

	Run struct {
		MaxSteps int  `toml:"max_steps"`
		Strict   bool `toml:"strict"`
	}
)

func Default() *Config {
	return &Config{
		Compiler: Compiler{
			MemSize: asm.DefaultMemSize,
			Output:  "a.out",
		},
		Run: Run{
			MaxSteps: ram.DefaultMaxSteps,
		},
	}
}

// Load parses the file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	c := Default()

	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, errors.Wrap(err, "parse %v", path)
	}

	if u := md.Undecoded(); len(u) != 0 {
		return nil, errors.New("%v: unknown key %v", path, u[0].String())
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrap(err, "resolve %v", path)
	}

	return c, c.Validate()
}

// FindAndLoad walks up from startDir to find an arc.toml file.
// The defaults are returned if there is none.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}

		dir = parent
	}
}

// ApplyEnv overrides the settings with ARC_* environment variables.
func (c *Config) ApplyEnv() error {
	c.Compiler.MemSize = env.Int("ARC_MEM_SIZE", c.Compiler.MemSize)
	c.Compiler.Stdlib = env.Str("ARC_STDLIB", c.Compiler.Stdlib)
	c.Compiler.Output = env.Str("ARC_OUTPUT", c.Compiler.Output)

	if l := env.Str("ARC_INCLUDE"); l != "" {
		c.Compiler.Include = filepath.SplitList(l)
	}

	c.Run.MaxSteps = env.Int("ARC_MAX_STEPS", c.Run.MaxSteps)

	if env.Has("ARC_STRICT") {
		c.Run.Strict = env.Bool("ARC_STRICT")
	}

	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Compiler.MemSize <= asm.StaticStart+1 {
		return errors.New("mem_size %d is too small", c.Compiler.MemSize)
	}

	if c.Run.MaxSteps < 0 {
		return errors.New("max_steps is negative: %d", c.Run.MaxSteps)
	}

	return nil
}

// IncludeDirs returns the include directories resolved against Dir.
func (c *Config) IncludeDirs() []string {
	l := make([]string, 0, len(c.Compiler.Include))

	for _, d := range c.Compiler.Include {
		if d = strings.TrimSpace(d); d == "" {
			continue
		}

		if !filepath.IsAbs(d) && c.Dir != "" {
			d = filepath.Join(c.Dir, d)
		}

		l = append(l, d)
	}

	return l
}
