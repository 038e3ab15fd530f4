package dataverse

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// predicate is a compiled $filter expression
type predicate func(Record) bool

// compileFilter parses the subset of OData $filter syntax this application
// emits: or/and/not, parentheses, eq/ne/lt/le/gt/ge and contains().
func compileFilter(src string) (predicate, error) {
	if strings.TrimSpace(src) == "" {
		return func(Record) bool { return true }, nil
	}
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	pred, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("filter: unexpected %q", p.toks[p.pos].text)
	}
	return pred, nil
}

type tokKind int

const (
	tokWord tokKind = iota
	tokString
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	text string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	r := []rune(s)
	for i := 0; i < len(r); {
		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case c == '\'':
			var b strings.Builder
			i++
			for {
				if i >= len(r) {
					return nil, fmt.Errorf("filter: unterminated string")
				}
				if r[i] == '\'' {
					if i+1 < len(r) && r[i+1] == '\'' {
						b.WriteRune('\'')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteRune(r[i])
				i++
			}
			toks = append(toks, token{tokString, b.String()})
		default:
			j := i
			for j < len(r) && !unicode.IsSpace(r[j]) && !strings.ContainsRune("(),'", r[j]) {
				j++
			}
			toks = append(toks, token{tokWord, string(r[i:j])})
			i = j
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peekWord(w string) bool {
	return p.pos < len(p.toks) && p.toks[p.pos].kind == tokWord && strings.EqualFold(p.toks[p.pos].text, w)
}

func (p *parser) next() (token, error) {
	if p.pos >= len(p.toks) {
		return token{}, fmt.Errorf("filter: unexpected end")
	}
	t := p.toks[p.pos]
	p.pos++
	return t, nil
}

func (p *parser) expect(k tokKind) error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t.kind != k {
		return fmt.Errorf("filter: unexpected %q", t.text)
	}
	return nil
}

func (p *parser) or() (predicate, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peekWord("or") {
		p.pos++
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		l := left
		left = func(r Record) bool { return l(r) || right(r) }
	}
	return left, nil
}

func (p *parser) and() (predicate, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.peekWord("and") {
		p.pos++
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		l := left
		left = func(r Record) bool { return l(r) && right(r) }
	}
	return left, nil
}

func (p *parser) unary() (predicate, error) {
	if p.peekWord("not") {
		p.pos++
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return func(r Record) bool { return !inner(r) }, nil
	}
	return p.primary()
}

func (p *parser) primary() (predicate, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.kind == tokLParen {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		return inner, p.expect(tokRParen)
	}
	if t.kind != tokWord {
		return nil, fmt.Errorf("filter: unexpected %q", t.text)
	}
	if strings.EqualFold(t.text, "contains") {
		return p.contains()
	}

	field := t.text
	op, err := p.next()
	if err != nil {
		return nil, err
	}
	lit, err := p.next()
	if err != nil {
		return nil, err
	}
	cmp, err := comparator(strings.ToLower(op.text))
	if err != nil {
		return nil, err
	}
	want := literal(lit)
	return func(r Record) bool { return cmp(r[field], want) }, nil
}

func (p *parser) contains() (predicate, error) {
	if err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	f, err := p.next()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokComma); err != nil {
		return nil, err
	}
	lit, err := p.next()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	needle := strings.ToLower(lit.text)
	return func(r Record) bool {
		return strings.Contains(strings.ToLower(r.String(f.text)), needle)
	}, nil
}

// literal converts a token into nil, bool, float64 or string
func literal(t token) any {
	if t.kind == tokString {
		return t.text
	}
	switch strings.ToLower(t.text) {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(t.text, 64); err == nil {
		return f
	}
	return t.text
}

func comparator(op string) (func(got, want any) bool, error) {
	switch op {
	case "eq":
		return equal, nil
	case "ne":
		return func(got, want any) bool { return !equal(got, want) }, nil
	case "lt":
		return ordered(func(c int) bool { return c < 0 }), nil
	case "le":
		return ordered(func(c int) bool { return c <= 0 }), nil
	case "gt":
		return ordered(func(c int) bool { return c > 0 }), nil
	case "ge":
		return ordered(func(c int) bool { return c >= 0 }), nil
	}
	return nil, fmt.Errorf("filter: unknown operator %q", op)
}

func equal(got, want any) bool {
	if want == nil {
		return got == nil
	}
	if got == nil {
		return false
	}
	c, ok := compare(got, want)
	return ok && c == 0
}

func ordered(test func(int) bool) func(got, want any) bool {
	return func(got, want any) bool {
		if got == nil || want == nil {
			return false
		}
		c, ok := compare(got, want)
		return ok && test(c)
	}
}

// compare orders a record value against a literal. Strings compare without
// case, as the backend's collation does.
func compare(got, want any) (int, bool) {
	switch w := want.(type) {
	case bool:
		g, ok := got.(bool)
		if !ok {
			return 0, false
		}
		if g == w {
			return 0, true
		}
		return 1, true
	case float64:
		g, ok := Record{"v": got}.Int("v")
		if !ok {
			return 0, false
		}
		switch {
		case float64(g) < w:
			return -1, true
		case float64(g) > w:
			return 1, true
		}
		return 0, true
	case string:
		g := Record{"v": got}.String("v")
		return strings.Compare(strings.ToLower(g), strings.ToLower(w)), true
	}
	return 0, false
}
