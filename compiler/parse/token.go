package parse

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

type (
	Token interface{}

	Char    byte
	Op      string
	Keyword string
	Ident   string
	Number  string

	// Bad is a byte no token starts with.
	Bad byte

	UnexpectedError struct {
		Pos   int
		Token Token
		Want  []Token
	}
)

var keywords = map[string]bool{
	"VAR": true, "FONCTION": true, "PROGRAMME": true, "DEBUT": true, "FIN": true,
	"SI": true, "ALORS": true, "SINON": true, "FSI": true,
	"TANT": true, "QUE": true, "FAIRE": true, "FTQ": true,
	"POUR": true, "DE": true, "A": true, "FPOUR": true,
	"RETOURNER": true, "ECRIRE": true, "LIRE": true, "ALLOUER": true,
	"ET": true, "OU": true, "NON": true,
}

// IsKeyword reports whether w is reserved.
func IsKeyword(w string) bool {
	return keywords[w]
}

func (s *State) next(ctx context.Context, st int) (tk Token, tst int, i int) {
	if tr := tlog.SpanFromContext(ctx); tr.If("next_token") {
		defer func(st int) {
			tr.Printw("next token", "st", st, "tk", tk, "tst", tst, "i", i, "from", loc.Callers(1, 3))
		}(st)
	}

	st = skipBlank(s.b, st)
	i = st

	if i == len(s.b) {
		return nil, st, i
	}

	c := s.b[i]

	var c1 byte
	if i+1 < len(s.b) {
		c1 = s.b[i+1]
	}

	switch {
	case c == '<' && c1 == '-':
		return Op("<-"), st, i + 2
	case c == '<' && c1 == '=':
		return Op("<="), st, i + 2
	case c == '>' && c1 == '=':
		return Op(">="), st, i + 2
	case c == '!' && c1 == '=':
		return Op("!="), st, i + 2
	}

	switch c {
	case '(', ')', '[', ']', ',', ';', '@', '&', '+', '-', '*', '/', '%', '<', '>', '=', '\n':
		return Char(c), st, i + 1
	}

	switch {
	case isIdentStart(c):
		e := skipIdent(s.b, i)
		w := string(s.b[i:e])

		if keywords[w] {
			return Keyword(w), st, e
		}

		return Ident(w), st, e
	case c >= '0' && c <= '9':
		e := skipNum(s.b, i)

		return Number(s.b[i:e]), st, e
	default:
		return Bad(c), st, i + 1
	}
}

// peek returns the next token without consuming it.
func (s *State) peek(ctx context.Context, st int) Token {
	tk, _, _ := s.next(ctx, st)

	return tk
}

// skipLines skips newlines and semicolons.
func (s *State) skipLines(ctx context.Context, st int) int {
	for {
		tk, _, i := s.next(ctx, st)
		if tk != Char('\n') && tk != Char(';') {
			return st
		}

		st = i
	}
}

func (s *State) expect(ctx context.Context, st int, want Token) (end int, err error) {
	tk, tst, i := s.next(ctx, st)
	if tk != want {
		return tst, NewUnexpected(tst, tk, want)
	}

	return i, nil
}

func NewUnexpected(pos int, got Token, want ...Token) error {
	return UnexpectedError{
		Pos:   pos,
		Token: got,
		Want:  want,
	}
}

func (e UnexpectedError) Error() string {
	var b strings.Builder

	if e.Token == nil {
		b.WriteString("fin de fichier inattendue")
	} else {
		fmt.Fprintf(&b, "symbole inattendu: %v", describe(e.Token))
	}

	if len(e.Want) == 0 {
		return b.String()
	}

	b.WriteString(", attendu: ")

	for i, w := range e.Want {
		if i != 0 {
			b.WriteString(" ou ")
		}

		b.WriteString(describe(w))
	}

	return b.String()
}

func describe(tk Token) string {
	switch tk := tk.(type) {
	case nil:
		return "fin de fichier"
	case Char:
		if tk == '\n' {
			return "fin de ligne"
		}

		return fmt.Sprintf("'%c'", byte(tk))
	case Op:
		return fmt.Sprintf("'%s'", string(tk))
	case Keyword:
		if tk == "" {
			return "mot-clé"
		}

		return string(tk)
	case Ident:
		if tk == "" {
			return "identifiant"
		}

		return fmt.Sprintf("identifiant %s", string(tk))
	case Number:
		if tk == "" {
			return "nombre"
		}

		return fmt.Sprintf("nombre %s", string(tk))
	case Bad:
		if tk >= 0x80 {
			return fmt.Sprintf("octet 0x%02x", byte(tk))
		}

		return fmt.Sprintf("caractère %q", rune(tk))
	default:
		return fmt.Sprintf("%v", tk)
	}
}

func (c Char) String() string {
	return string(c)
}
