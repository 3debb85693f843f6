package moment

import (
	"fmt"

	"github.com/cwbudde/momentsolve/internal/poly"
)

// Kind distinguishes the two supported constraint forms.
type Kind int

const (
	// Inequality constrains the measure's support: g(x) >= 0.
	Inequality Kind = iota
	// MomentEquality constrains the linear functional: L(h) = Target.
	MomentEquality
)

func (k Kind) String() string {
	switch k {
	case Inequality:
		return "inequality"
	case MomentEquality:
		return "moment-equality"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Constraint is one side condition of a generalized moment problem.
type Constraint struct {
	Kind   Kind
	Poly   poly.Polynomial
	Target float64 // right-hand side, MomentEquality only
}

// Ineq builds the support constraint g(x) >= 0.
func Ineq(g poly.Polynomial) Constraint {
	return Constraint{Kind: Inequality, Poly: g}
}

// MomentEq builds the moment constraint L(h) = target.
func MomentEq(h poly.Polynomial, target float64) Constraint {
	return Constraint{Kind: MomentEquality, Poly: h, Target: target}
}

// Degree returns the degree of the constraint polynomial.
func (c Constraint) Degree() int { return c.Poly.Degree() }
