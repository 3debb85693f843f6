// Package basis enumerates monomial bases for moment relaxations.
package basis

import (
	"fmt"

	"github.com/cwbudde/momentsolve/internal/poly"
)

// InvalidDegreeError reports a malformed basis request.
type InvalidDegreeError struct {
	Vars   int
	Degree int
}

func (e *InvalidDegreeError) Error() string {
	return fmt.Sprintf("basis: invalid request (%d variables, degree %d)", e.Vars, e.Degree)
}

func (e *InvalidDegreeError) Is(target error) bool {
	_, ok := target.(*InvalidDegreeError)
	return ok
}

// ErrInvalidDegree matches any InvalidDegreeError via errors.Is.
var ErrInvalidDegree = &InvalidDegreeError{}

// Basis is the ordered set of all monomials of total degree <= Degree
// over Vars variables, in graded-lexicographic order. The order is
// deterministic and stable across calls.
type Basis struct {
	Vars      int
	Degree    int
	Monomials []poly.Exponents

	index map[string]int
}

// Build enumerates the monomial basis for the given variable count and
// degree bound. The result has exactly C(Vars+Degree, Degree) entries.
func Build(vars, degree int) (*Basis, error) {
	if vars <= 0 || degree < 0 {
		return nil, &InvalidDegreeError{Vars: vars, Degree: degree}
	}

	b := &Basis{
		Vars:   vars,
		Degree: degree,
		index:  make(map[string]int),
	}

	// Graded enumeration: degree 0, then 1, ... each level in lex order.
	for d := 0; d <= degree; d++ {
		exp := make(poly.Exponents, vars)
		enumerate(exp, 0, d, func(e poly.Exponents) {
			m := e.Clone()
			b.index[m.Key()] = len(b.Monomials)
			b.Monomials = append(b.Monomials, m)
		})
	}
	return b, nil
}

// enumerate visits all tuples with exponents summing to exactly remaining,
// assigning positions from pos on, in lexicographic (first-variable-major,
// descending) order.
func enumerate(exp poly.Exponents, pos, remaining int, visit func(poly.Exponents)) {
	if pos == len(exp)-1 {
		exp[pos] = remaining
		visit(exp)
		exp[pos] = 0
		return
	}
	for v := remaining; v >= 0; v-- {
		exp[pos] = v
		enumerate(exp, pos+1, remaining-v, visit)
	}
	exp[pos] = 0
}

// Size returns the number of monomials in the basis.
func (b *Basis) Size() int { return len(b.Monomials) }

// Index returns the position of a monomial in the basis.
func (b *Basis) Index(e poly.Exponents) (int, bool) {
	i, ok := b.index[e.Key()]
	return i, ok
}

// Truncate returns the leading sub-basis of degree <= d. The returned
// basis shares no state with b.
func (b *Basis) Truncate(d int) (*Basis, error) {
	if d < 0 || d > b.Degree {
		return nil, &InvalidDegreeError{Vars: b.Vars, Degree: d}
	}
	return Build(b.Vars, d)
}

// Count returns C(vars+degree, degree), the basis size, without
// enumerating it. Degree escalation is exponential in this quantity, so
// callers use it to report and bound relaxation growth.
func Count(vars, degree int) (int, error) {
	if vars <= 0 || degree < 0 {
		return 0, &InvalidDegreeError{Vars: vars, Degree: degree}
	}
	n := 1
	for i := 1; i <= degree; i++ {
		n = n * (vars + i) / i
	}
	return n, nil
}
