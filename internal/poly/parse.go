package poly

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Parse builds a polynomial from a human-authored expression over the
// given variable names, e.g. "x^2*y^2*(x^2+y^2-1) + 1/27".
//
// Grammar: sums and differences of products of powers; parentheses;
// division only by numeric literals; exponents are non-negative integers.
func Parse(expr string, names []string) (Polynomial, error) {
	if len(names) == 0 {
		return Polynomial{}, fmt.Errorf("parse: no variables declared")
	}
	index := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := index[n]; dup {
			return Polynomial{}, fmt.Errorf("parse: duplicate variable %q", n)
		}
		index[n] = i
	}
	p := &parser{input: expr, vars: len(names), index: index}
	poly, err := p.parseExpr()
	if err != nil {
		return Polynomial{}, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return Polynomial{}, fmt.Errorf("parse: unexpected %q at offset %d", p.input[p.pos], p.pos)
	}
	return poly, nil
}

// MustParse is Parse for trusted built-in expressions.
func MustParse(expr string, names []string) Polynomial {
	p, err := Parse(expr, names)
	if err != nil {
		panic(err)
	}
	return p
}

type parser struct {
	input string
	pos   int
	vars  int
	index map[string]int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// parseExpr handles sums: term (('+'|'-') term)*
func (p *parser) parseExpr() (Polynomial, error) {
	left, err := p.parseTerm()
	if err != nil {
		return Polynomial{}, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return Polynomial{}, err
			}
			left = left.Add(right)
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return Polynomial{}, err
			}
			left = left.Sub(right)
		default:
			return left, nil
		}
	}
}

// parseTerm handles products and numeric division: factor (('*'|'/') factor)*
func (p *parser) parseTerm() (Polynomial, error) {
	left, err := p.parseFactor()
	if err != nil {
		return Polynomial{}, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return Polynomial{}, err
			}
			left = left.Mul(right)
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return Polynomial{}, err
			}
			c, ok := constantValue(right)
			if !ok || c == 0 {
				return Polynomial{}, fmt.Errorf("parse: division only by nonzero constants")
			}
			left = left.Scale(1 / c)
		default:
			return left, nil
		}
	}
}

// parseFactor handles unary minus, powers and atoms.
func (p *parser) parseFactor() (Polynomial, error) {
	if p.peek() == '-' {
		p.pos++
		f, err := p.parseFactor()
		if err != nil {
			return Polynomial{}, err
		}
		return f.Scale(-1), nil
	}
	base, err := p.parseAtom()
	if err != nil {
		return Polynomial{}, err
	}
	if p.peek() == '^' {
		p.pos++
		p.skipSpace()
		start := p.pos
		for p.pos < len(p.input) && unicode.IsDigit(rune(p.input[p.pos])) {
			p.pos++
		}
		if start == p.pos {
			return Polynomial{}, fmt.Errorf("parse: expected integer exponent at offset %d", start)
		}
		n, _ := strconv.Atoi(p.input[start:p.pos])
		return base.Pow(n), nil
	}
	return base, nil
}

// parseAtom handles numbers, variables and parenthesized expressions.
func (p *parser) parseAtom() (Polynomial, error) {
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return Polynomial{}, err
		}
		if p.peek() != ')' {
			return Polynomial{}, fmt.Errorf("parse: missing closing parenthesis at offset %d", p.pos)
		}
		p.pos++
		return inner, nil
	case unicode.IsDigit(rune(c)) || c == '.':
		start := p.pos
		for p.pos < len(p.input) {
			ch := p.input[p.pos]
			if unicode.IsDigit(rune(ch)) || ch == '.' || ch == 'e' || ch == 'E' {
				p.pos++
				continue
			}
			if (ch == '+' || ch == '-') && p.pos > start &&
				(p.input[p.pos-1] == 'e' || p.input[p.pos-1] == 'E') {
				p.pos++
				continue
			}
			break
		}
		v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return Polynomial{}, fmt.Errorf("parse: bad number %q: %w", p.input[start:p.pos], err)
		}
		return Constant(p.vars, v), nil
	case unicode.IsLetter(rune(c)) || c == '_':
		start := p.pos
		for p.pos < len(p.input) {
			ch := rune(p.input[p.pos])
			if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
				p.pos++
				continue
			}
			break
		}
		name := p.input[start:p.pos]
		i, ok := p.index[name]
		if !ok {
			return Polynomial{}, fmt.Errorf("parse: unknown variable %q", name)
		}
		return Var(p.vars, i), nil
	case c == 0:
		return Polynomial{}, fmt.Errorf("parse: unexpected end of expression")
	default:
		return Polynomial{}, fmt.Errorf("parse: unexpected %q at offset %d", c, p.pos)
	}
}

// constantValue reports whether p is a constant and returns its value.
func constantValue(p Polynomial) (float64, bool) {
	if len(p.terms) == 0 {
		return 0, true
	}
	if len(p.terms) > 1 {
		return 0, false
	}
	for key, c := range p.terms {
		if ParseKey(key).Degree() == 0 {
			return c, true
		}
	}
	return 0, false
}

// VarNames returns the default variable names x0..x(n-1) used by String.
func VarNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "x" + strconv.Itoa(i)
	}
	return names
}

// ParseVars splits a comma-separated variable declaration like "x,y".
func ParseVars(s string) ([]string, error) {
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			return nil, fmt.Errorf("parse: empty variable name in %q", s)
		}
		names = append(names, name)
	}
	return names, nil
}
