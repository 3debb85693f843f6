package poly

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Exponents is one monomial: a non-negative exponent per variable.
type Exponents []int

// Key returns a stable string encoding used as map key.
func (e Exponents) Key() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// ParseKey decodes an encoded exponent tuple.
func ParseKey(key string) Exponents {
	parts := strings.Split(key, ",")
	e := make(Exponents, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			panic("poly: malformed exponent key: " + key)
		}
		e[i] = v
	}
	return e
}

// Degree returns the total degree (sum of exponents).
func (e Exponents) Degree() int {
	d := 0
	for _, v := range e {
		d += v
	}
	return d
}

// Add returns the component-wise sum of two tuples.
func (e Exponents) Add(o Exponents) Exponents {
	if len(e) != len(o) {
		panic("poly: exponent arity mismatch")
	}
	sum := make(Exponents, len(e))
	for i := range e {
		sum[i] = e[i] + o[i]
	}
	return sum
}

// Clone returns an independent copy.
func (e Exponents) Clone() Exponents {
	c := make(Exponents, len(e))
	copy(c, e)
	return c
}

// CompareGrlex orders tuples by graded-lexicographic order:
// lower total degree first, then lexicographic within a degree.
func CompareGrlex(a, b Exponents) int {
	da, db := a.Degree(), b.Degree()
	if da != db {
		if da < db {
			return -1
		}
		return 1
	}
	for i := range a {
		if a[i] != b[i] {
			if a[i] > b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Term is one monomial with its coefficient.
type Term struct {
	Exp  Exponents
	Coef float64
}

// Polynomial maps exponent tuples to real coefficients over a fixed
// number of variables. Instances are immutable: all arithmetic returns
// new polynomials, and zero-coefficient terms are dropped.
type Polynomial struct {
	vars  int
	terms map[string]float64
}

// Zero returns the zero polynomial over vars variables.
func Zero(vars int) Polynomial {
	if vars <= 0 {
		panic("poly: variable count must be positive")
	}
	return Polynomial{vars: vars, terms: map[string]float64{}}
}

// Constant returns the constant polynomial c.
func Constant(vars int, c float64) Polynomial {
	p := Zero(vars)
	if c != 0 {
		p.terms[make(Exponents, vars).Key()] = c
	}
	return p
}

// Var returns the polynomial x_i.
func Var(vars, i int) Polynomial {
	if i < 0 || i >= vars {
		panic(fmt.Sprintf("poly: variable index %d out of range [0,%d)", i, vars))
	}
	e := make(Exponents, vars)
	e[i] = 1
	return Monomial(e, 1)
}

// Monomial returns the single-term polynomial c * x^e.
func Monomial(e Exponents, c float64) Polynomial {
	p := Zero(len(e))
	if c != 0 {
		p.terms[e.Key()] = c
	}
	return p
}

// Vars returns the number of variables.
func (p Polynomial) Vars() int { return p.vars }

// IsZero reports whether the polynomial has no terms.
func (p Polynomial) IsZero() bool { return len(p.terms) == 0 }

// Coeff returns the coefficient of x^e (zero if absent).
func (p Polynomial) Coeff(e Exponents) float64 { return p.terms[e.Key()] }

// Degree returns the maximum total degree over nonzero terms.
// The zero polynomial has degree 0.
func (p Polynomial) Degree() int {
	d := 0
	for key := range p.terms {
		if dk := ParseKey(key).Degree(); dk > d {
			d = dk
		}
	}
	return d
}

// Terms returns all terms in graded-lexicographic order.
// The order is deterministic across calls.
func (p Polynomial) Terms() []Term {
	out := make([]Term, 0, len(p.terms))
	for key, c := range p.terms {
		out = append(out, Term{Exp: ParseKey(key), Coef: c})
	}
	sort.Slice(out, func(i, j int) bool {
		return CompareGrlex(out[i].Exp, out[j].Exp) < 0
	})
	return out
}

func (p Polynomial) clone() Polynomial {
	q := Polynomial{vars: p.vars, terms: make(map[string]float64, len(p.terms))}
	for k, v := range p.terms {
		q.terms[k] = v
	}
	return q
}

func (p Polynomial) checkArity(o Polynomial) {
	if p.vars != o.vars {
		panic(fmt.Sprintf("poly: arity mismatch (%d vs %d variables)", p.vars, o.vars))
	}
}

// Add returns p + o.
func (p Polynomial) Add(o Polynomial) Polynomial {
	p.checkArity(o)
	sum := p.clone()
	for k, c := range o.terms {
		sum.terms[k] += c
		if sum.terms[k] == 0 {
			delete(sum.terms, k)
		}
	}
	return sum
}

// Sub returns p - o.
func (p Polynomial) Sub(o Polynomial) Polynomial {
	return p.Add(o.Scale(-1))
}

// Scale returns c * p.
func (p Polynomial) Scale(c float64) Polynomial {
	if c == 0 {
		return Zero(p.vars)
	}
	q := Zero(p.vars)
	for k, v := range p.terms {
		q.terms[k] = c * v
	}
	return q
}

// Mul returns p * o.
func (p Polynomial) Mul(o Polynomial) Polynomial {
	p.checkArity(o)
	prod := Zero(p.vars)
	for ka, ca := range p.terms {
		ea := ParseKey(ka)
		for kb, cb := range o.terms {
			key := ea.Add(ParseKey(kb)).Key()
			prod.terms[key] += ca * cb
			if prod.terms[key] == 0 {
				delete(prod.terms, key)
			}
		}
	}
	return prod
}

// Pow returns p raised to the non-negative integer power n.
func (p Polynomial) Pow(n int) Polynomial {
	if n < 0 {
		panic("poly: negative exponent")
	}
	out := Constant(p.vars, 1)
	for i := 0; i < n; i++ {
		out = out.Mul(p)
	}
	return out
}

// Eval evaluates the polynomial at the given point.
func (p Polynomial) Eval(x []float64) float64 {
	if len(x) != p.vars {
		panic(fmt.Sprintf("poly: point has %d coordinates, want %d", len(x), p.vars))
	}
	sum := 0.0
	for key, c := range p.terms {
		term := c
		for i, e := range ParseKey(key) {
			if e > 0 {
				term *= math.Pow(x[i], float64(e))
			}
		}
		sum += term
	}
	return sum
}

// Substitute fixes a subset of variables to numeric values and returns
// the resulting polynomial over the same variable count (the substituted
// variables simply no longer occur).
func (p Polynomial) Substitute(assign map[int]float64) Polynomial {
	out := Zero(p.vars)
	for key, c := range p.terms {
		e := ParseKey(key)
		coef := c
		reduced := e.Clone()
		for i, v := range assign {
			if e[i] > 0 {
				coef *= math.Pow(v, float64(e[i]))
				reduced[i] = 0
			}
		}
		k := reduced.Key()
		out.terms[k] += coef
		if out.terms[k] == 0 {
			delete(out.terms, k)
		}
	}
	return out
}

// String renders the polynomial with variables named x0, x1, ...
func (p Polynomial) String() string {
	names := make([]string, p.vars)
	for i := range names {
		names[i] = fmt.Sprintf("x%d", i)
	}
	return p.Format(names)
}

// Format renders the polynomial with the given variable names.
func (p Polynomial) Format(names []string) string {
	terms := p.Terms()
	if len(terms) == 0 {
		return "0"
	}
	var b strings.Builder
	for n, t := range terms {
		c := t.Coef
		if n == 0 {
			if c < 0 {
				b.WriteString("-")
				c = -c
			}
		} else {
			if c < 0 {
				b.WriteString(" - ")
				c = -c
			} else {
				b.WriteString(" + ")
			}
		}
		mono := formatMonomial(t.Exp, names)
		if mono == "" {
			b.WriteString(strconv.FormatFloat(c, 'g', -1, 64))
			continue
		}
		if c != 1 {
			b.WriteString(strconv.FormatFloat(c, 'g', -1, 64))
			b.WriteString("*")
		}
		b.WriteString(mono)
	}
	return b.String()
}

func formatMonomial(e Exponents, names []string) string {
	var parts []string
	for i, v := range e {
		switch {
		case v == 1:
			parts = append(parts, names[i])
		case v > 1:
			parts = append(parts, fmt.Sprintf("%s^%d", names[i], v))
		}
	}
	return strings.Join(parts, "*")
}
