// Package debuginfo maps a compiled program back to its source.
package debuginfo

import (
	"os"

	"github.com/fxamacker/cbor/v2"
	"tlog.app/go/errors"

	"github.com/M3tex/arc/compiler"
)

type (
	Info struct {
		Source   string `cbor:"source"`
		MemSize  int    `cbor:"mem_size"`
		Entry    int    `cbor:"entry"`
		HeapBase int    `cbor:"heap_base"`

		Files []string   `cbor:"files"`
		Funcs []Func     `cbor:"funcs"`
		Syms  []Symbol   `cbor:"symbols"`
		Lines []Location `cbor:"lines"`
	}

	Func struct {
		Name    string `cbor:"name"`
		Adr     int    `cbor:"adr"`
		Codelen int    `cbor:"codelen"`
		Arity   int    `cbor:"arity"`
	}

	Symbol struct {
		Context string `cbor:"context"`
		Name    string `cbor:"name"`
		Kind    string `cbor:"kind"`
		Zone    string `cbor:"zone"`
		Adr     int    `cbor:"adr"`
		Size    int    `cbor:"size"`
	}

	// Location is the source position of one instruction.
	Location struct {
		_    struct{} `cbor:",toarray"`
		File int
		Line int
	}
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	encMode = em
}

// New collects debug info of a compiled program.
func New(r *compiler.Result) (*Info, error) {
	if r == nil || r.Object == nil || r.Front.Result == nil {
		return nil, errors.New("program is not compiled")
	}

	obj := r.Object

	d := &Info{
		MemSize:  obj.MemSize,
		Entry:    obj.Entry,
		HeapBase: obj.HeapBase,
		Files:    r.Files(),
	}

	if len(d.Files) != 0 {
		d.Source = d.Files[0]
	}

	files := make(map[string]int, len(d.Files))
	for i, f := range d.Files {
		files[f] = i
	}

	for _, f := range r.Front.Result.Funcs {
		n := f.Codelen
		if !f.Entry {
			n-- // the skip jump is before Adr
		}

		d.Funcs = append(d.Funcs, Func{
			Name:    f.Name.Name,
			Adr:     f.MemAdr,
			Codelen: n,
			Arity:   len(f.Params),
		})
	}

	for _, c := range r.Front.Result.Table.Contexts {
		for _, s := range c.Symbols {
			d.Syms = append(d.Syms, Symbol{
				Context: c.Name,
				Name:    s.ID,
				Kind:    s.Kind.String(),
				Zone:    s.Zone.String(),
				Adr:     s.Adr,
				Size:    s.Size,
			})
		}
	}

	d.Lines = make([]Location, len(obj.Lines))

	for pc, l := range obj.Lines {
		name, line := r.Origin(l)

		d.Lines[pc] = Location{File: files[name], Line: line}
	}

	return d, nil
}

// Where returns the source file and line of the instruction at pc.
func (d *Info) Where(pc int) (string, int, bool) {
	if pc < 0 || pc >= len(d.Lines) {
		return "", 0, false
	}

	l := d.Lines[pc]

	if l.File >= len(d.Files) {
		return "", l.Line, true
	}

	return d.Files[l.File], l.Line, true
}

// Func returns the function the instruction at pc belongs to.
func (d *Info) Func(pc int) (Func, bool) {
	for _, f := range d.Funcs {
		if pc >= f.Adr && pc < f.Adr+f.Codelen {
			return f, true
		}
	}

	return Func{}, false
}

func Marshal(d *Info) ([]byte, error) {
	return encMode.Marshal(d)
}

func Unmarshal(data []byte) (*Info, error) {
	var d Info

	err := cbor.Unmarshal(data, &d)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal debug info")
	}

	return &d, nil
}

func WriteFile(name string, d *Info) error {
	data, err := Marshal(d)
	if err != nil {
		return errors.Wrap(err, "marshal debug info")
	}

	return os.WriteFile(name, data, 0o644)
}

func ReadFile(name string) (*Info, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	return Unmarshal(data)
}
