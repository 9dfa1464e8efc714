package tp

type (
	// Kind is the static type of a symbol or expression.
	Kind int

	// Zone is where a symbol is stored.
	Zone byte
)

const (
	Unknown Kind = iota
	Int
	Ptr
	Array
	Func
)

const (
	Static Zone = 'h'
	Stack  Zone = 's'
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "entier"
	case Ptr:
		return "pointeur"
	case Array:
		return "tableau"
	case Func:
		return "fonction"
	default:
		return "inconnu"
	}
}

// Scalar reports whether a value of the kind fits a single cell.
func (k Kind) Scalar() bool {
	return k == Int || k == Ptr
}

// Indexable reports whether t[i] is allowed on the kind.
func (k Kind) Indexable() bool {
	return k == Array || k == Ptr
}

func (z Zone) String() string {
	switch z {
	case Static:
		return "statique"
	case Stack:
		return "pile"
	default:
		return "?"
	}
}
