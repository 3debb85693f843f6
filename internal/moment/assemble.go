// Package moment assembles the semidefinite relaxation of a polynomial
// program: the symbolic moment matrix, one localizing matrix per
// inequality constraint, and the linear equalities tying moments to the
// problem data.
package moment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/momentsolve/internal/basis"
	"github.com/cwbudde/momentsolve/internal/poly"
)

// DegreeMismatchError reports a constraint or objective whose degree
// exceeds what the requested relaxation order can represent.
type DegreeMismatchError struct {
	What             string
	Degree           int
	RelaxationDegree int
}

func (e *DegreeMismatchError) Error() string {
	return fmt.Sprintf("moment: %s degree %d exceeds relaxation degree %d",
		e.What, e.Degree, e.RelaxationDegree)
}

func (e *DegreeMismatchError) Is(target error) bool {
	_, ok := target.(*DegreeMismatchError)
	return ok
}

// ErrDegreeMismatch matches any DegreeMismatchError via errors.Is.
var ErrDegreeMismatch = &DegreeMismatchError{}

// Entry is one coefficient on one consolidated moment variable.
type Entry struct {
	Var  int
	Coef float64
}

// Block is a symbolic symmetric matrix constrained PSD: cell (i,j) is a
// linear combination of moment variables.
type Block struct {
	Size  int
	Cells [][][]Entry // Cells[i][j] -> terms
}

func newBlock(size int) Block {
	cells := make([][][]Entry, size)
	for i := range cells {
		cells[i] = make([][]Entry, size)
	}
	return Block{Size: size, Cells: cells}
}

// Materialize evaluates the block at a concrete moment vector.
func (b Block) Materialize(y []float64) *mat.SymDense {
	m := mat.NewSymDense(b.Size, nil)
	for i := 0; i < b.Size; i++ {
		for j := i; j < b.Size; j++ {
			v := 0.0
			for _, e := range b.Cells[i][j] {
				v += e.Coef * y[e.Var]
			}
			m.SetSym(i, j, v)
		}
	}
	return m
}

// LinearEq is one scalar equality over the moment vector.
type LinearEq struct {
	Terms []Entry
	RHS   float64
}

// Relaxation is the order-t moment relaxation of a polynomial program.
// Moment variables are consolidated: every matrix cell whose monomial
// product is the same exponent tuple references the same variable index,
// which is what makes the relaxation exact rather than loosened.
type Relaxation struct {
	Order int // t; moments cover total degree <= 2t
	Vars  int

	Basis   *basis.Basis     // degree-t basis indexing the moment matrix
	Moments []poly.Exponents // moment variables, graded-lex up to degree 2t

	Objective  []Entry
	Moment     Block   // indexed by Basis
	Localizing []Block // one per inequality constraint, in input order
	Equalities []LinearEq
}

// Assemble builds the order-t relaxation for the given objective and
// constraints. It fails with DegreeMismatchError when the objective or a
// constraint needs moments beyond degree 2t.
func Assemble(objective poly.Polynomial, cons []Constraint, order int) (*Relaxation, error) {
	vars := objective.Vars()
	if order <= 0 {
		return nil, &basis.InvalidDegreeError{Vars: vars, Degree: order}
	}

	b, err := basis.Build(vars, order)
	if err != nil {
		return nil, err
	}
	full, err := basis.Build(vars, 2*order)
	if err != nil {
		return nil, err
	}

	r := &Relaxation{
		Order:   order,
		Vars:    vars,
		Basis:   b,
		Moments: full.Monomials,
	}
	momIndex := func(e poly.Exponents) (int, error) {
		i, ok := full.Index(e)
		if !ok {
			return 0, &DegreeMismatchError{
				What:             "moment",
				Degree:           e.Degree(),
				RelaxationDegree: 2 * order,
			}
		}
		return i, nil
	}

	// Objective functional.
	if objective.Degree() > 2*order {
		return nil, &DegreeMismatchError{
			What:             "objective",
			Degree:           objective.Degree(),
			RelaxationDegree: 2 * order,
		}
	}
	for _, t := range objective.Terms() {
		i, err := momIndex(t.Exp)
		if err != nil {
			return nil, err
		}
		r.Objective = append(r.Objective, Entry{Var: i, Coef: t.Coef})
	}

	// Moment matrix: cell (i,j) is the moment of monomial_i * monomial_j.
	r.Moment = newBlock(b.Size())
	for i, mi := range b.Monomials {
		for j, mj := range b.Monomials {
			k, err := momIndex(mi.Add(mj))
			if err != nil {
				return nil, err
			}
			r.Moment.Cells[i][j] = []Entry{{Var: k, Coef: 1}}
		}
	}

	// Normalization: the zero-degree moment is 1.
	r.Equalities = append(r.Equalities, LinearEq{Terms: []Entry{{Var: 0, Coef: 1}}, RHS: 1})

	for n, c := range cons {
		switch c.Kind {
		case Inequality:
			lb, err := localizingBasis(b, c, order)
			if err != nil {
				return nil, err
			}
			blk := newBlock(lb.Size())
			for i, mi := range lb.Monomials {
				for j, mj := range lb.Monomials {
					var cell []Entry
					for _, t := range c.Poly.Terms() {
						k, err := momIndex(mi.Add(mj).Add(t.Exp))
						if err != nil {
							return nil, err
						}
						cell = append(cell, Entry{Var: k, Coef: t.Coef})
					}
					blk.Cells[i][j] = cell
				}
			}
			r.Localizing = append(r.Localizing, blk)

		case MomentEquality:
			if c.Degree() > 2*order {
				return nil, &DegreeMismatchError{
					What:             fmt.Sprintf("constraint %d", n),
					Degree:           c.Degree(),
					RelaxationDegree: 2 * order,
				}
			}
			eq := LinearEq{RHS: c.Target}
			for _, t := range c.Poly.Terms() {
				i, err := momIndex(t.Exp)
				if err != nil {
					return nil, err
				}
				eq.Terms = append(eq.Terms, Entry{Var: i, Coef: t.Coef})
			}
			r.Equalities = append(r.Equalities, eq)

		default:
			return nil, fmt.Errorf("moment: unsupported constraint kind %v", c.Kind)
		}
	}

	return r, nil
}

// localizingBasis returns the reduced basis for an inequality constraint:
// the localizing matrix loses half the constraint's degree (rounded up)
// so its entries stay within the moment budget.
func localizingBasis(b *basis.Basis, c Constraint, order int) (*basis.Basis, error) {
	half := (c.Degree() + 1) / 2
	if half > order {
		return nil, &DegreeMismatchError{
			What:             "inequality constraint",
			Degree:           c.Degree(),
			RelaxationDegree: 2 * order,
		}
	}
	return b.Truncate(order - half)
}

// NumMoments returns the number of consolidated moment variables.
func (r *Relaxation) NumMoments() int { return len(r.Moments) }

// MomentMatrix evaluates the moment matrix at a concrete moment vector.
func (r *Relaxation) MomentMatrix(y []float64) *mat.SymDense {
	return r.Moment.Materialize(y)
}
