// Package problem turns human-authored problem definitions into the
// polynomial objective and constraint list the relaxation driver
// consumes. It is the only bridge between the expression front-end and
// the numeric core.
package problem

import (
	"fmt"

	"github.com/cwbudde/momentsolve/internal/moment"
	"github.com/cwbudde/momentsolve/internal/poly"
	"github.com/cwbudde/momentsolve/internal/sdp"
	"github.com/cwbudde/momentsolve/internal/store"
)

// Definition is the expression form of a generalized moment problem.
// It is the same type the checkpoint store persists.
type Definition = store.ProblemConfig

// Build parses the definition into an objective and constraints.
func Build(def Definition) (poly.Polynomial, []moment.Constraint, error) {
	if len(def.Vars) == 0 {
		return poly.Polynomial{}, nil, fmt.Errorf("problem: no variables declared")
	}
	if def.Objective == "" {
		return poly.Polynomial{}, nil, fmt.Errorf("problem: no objective")
	}

	objective, err := poly.Parse(def.Objective, def.Vars)
	if err != nil {
		return poly.Polynomial{}, nil, fmt.Errorf("problem: objective: %w", err)
	}

	var cons []moment.Constraint
	for i, expr := range def.Inequalities {
		g, err := poly.Parse(expr, def.Vars)
		if err != nil {
			return poly.Polynomial{}, nil, fmt.Errorf("problem: inequality %d: %w", i, err)
		}
		cons = append(cons, moment.Ineq(g))
	}
	for i, me := range def.MomentEqualities {
		h, err := poly.Parse(me.Expr, def.Vars)
		if err != nil {
			return poly.Polynomial{}, nil, fmt.Errorf("problem: moment equality %d: %w", i, err)
		}
		cons = append(cons, moment.MomentEq(h, me.Target))
	}
	return objective, cons, nil
}

// DriverOptions maps the definition's tuning knobs onto driver options.
func DriverOptions(def Definition) sdp.Options {
	return sdp.Options{
		MaxRounds: def.MaxRounds,
		MinOrder:  def.MinOrder,
		RankTol:   def.RankTol,
	}
}
