// Package testcase extracts end-to-end compiler test cases from markdown documents.
//
// A test case starts at a heading "Test: name" and holds one algo fence with the program
// followed by assertion fences:
//
//	output       expected program output
//	stdin        program input
//	diagnostics  expected warnings and errors, one "line:col: severity: message" per line
//	exit         expected compiler exit code
//	asm          expected generated code
package testcase

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"tlog.app/go/errors"
)

type (
	Kind string

	Assertion struct {
		Kind    Kind
		Content string
		Line    int
	}

	TestCase struct {
		Name string
		Line int

		Source string
		Stdin  string

		Assertions []Assertion
	}
)

const (
	Source      Kind = "algo"
	Stdin       Kind = "stdin"
	Output      Kind = "output"
	Diagnostics Kind = "diagnostics"
	Exit        Kind = "exit"
	Asm         Kind = "asm"
)

const prefix = "Test: "

// Extract parses a markdown document and returns its test cases in document order.
func Extract(markdown []byte) ([]TestCase, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))

	var (
		l   []TestCase
		cur *TestCase
	)

	flush := func() error {
		if cur == nil {
			return nil
		}

		if err := validate(cur); err != nil {
			return err
		}

		l = append(l, *cur)

		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			title := nodeText(n, markdown)
			if !strings.HasPrefix(title, prefix) {
				return ast.WalkContinue, nil
			}

			if err := flush(); err != nil {
				return ast.WalkStop, err
			}

			cur = &TestCase{
				Name: strings.TrimSpace(strings.TrimPrefix(title, prefix)),
				Line: lineOf(n, markdown),
			}
		case *ast.FencedCodeBlock:
			lang := Kind(n.Language(markdown))
			line := lineOf(n, markdown)

			if cur == nil {
				if lang != "" {
					return ast.WalkStop, errors.New("line %d: %s fence outside of a test case", line, lang)
				}

				return ast.WalkContinue, nil
			}

			content := blockText(n, markdown)

			switch lang {
			case Source:
				if cur.Source != "" {
					return ast.WalkStop, errors.New("line %d: test %q has more than one program", line, cur.Name)
				}

				cur.Source = content
			case Stdin:
				cur.Stdin = content
			case Output, Diagnostics, Exit, Asm:
				cur.Assertions = append(cur.Assertions, Assertion{
					Kind:    lang,
					Content: strings.TrimRight(content, "\n"),
					Line:    line,
				})
			default:
				return ast.WalkStop, errors.New("line %d: unknown fence %q in test %q", line, lang, cur.Name)
			}
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	if err = flush(); err != nil {
		return nil, err
	}

	return l, nil
}

// Find returns the first assertion of kind k.
func (tc *TestCase) Find(k Kind) (Assertion, bool) {
	for _, a := range tc.Assertions {
		if a.Kind == k {
			return a, true
		}
	}

	return Assertion{}, false
}

func validate(tc *TestCase) error {
	if tc.Source == "" {
		return errors.New("line %d: test %q has no program", tc.Line, tc.Name)
	}

	if len(tc.Assertions) == 0 {
		return errors.New("line %d: test %q has no assertions", tc.Line, tc.Name)
	}

	return nil
}

func nodeText(node ast.Node, src []byte) string {
	var b bytes.Buffer

	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(src))
		}

		return ast.WalkContinue, nil
	})

	return b.String()
}

func blockText(n *ast.FencedCodeBlock, src []byte) string {
	var b bytes.Buffer

	lines := n.Lines()

	for i := 0; i < lines.Len(); i++ {
		s := lines.At(i)
		b.Write(s.Value(src))
	}

	return b.String()
}

// lineOf returns the line of the first content line of n.
func lineOf(n ast.Node, src []byte) int {
	if n.Lines().Len() == 0 {
		return 0
	}

	pos := n.Lines().At(0).Start

	return bytes.Count(src[:pos], []byte{'\n'}) + 1
}
