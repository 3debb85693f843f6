package sdp

import (
	"fmt"

	"github.com/hrautila/cvx"
	"github.com/hrautila/cvx/sets"
	"github.com/hrautila/matrix"

	"github.com/cwbudde/momentsolve/internal/moment"
)

// ConeSolver adapts the external cvx cone solver to the Solver
// interface. The relaxation is posed as a cone LP over the moment
// vector y:
//
//	minimize  c'y
//	s.t.      A y  = b          (normalization + moment equalities)
//	          G y + s = 0,  s in a product of PSD cones
//
// where each PSD slack block recovers one symbolic matrix (the moment
// matrix plus one localizing matrix per inequality constraint).
type ConeSolver struct {
	maxIter      int
	feasTol      float64
	showProgress bool
}

// NewConeSolver creates an adapter for the external cone solver.
// feasTol <= 0 selects the solver's own default tolerance.
func NewConeSolver(maxIter int, feasTol float64, showProgress bool) *ConeSolver {
	if maxIter <= 0 {
		maxIter = 100
	}
	return &ConeSolver{maxIter: maxIter, feasTol: feasTol, showProgress: showProgress}
}

// Solve translates the relaxation into cone LP form and invokes the
// external solver.
func (s *ConeSolver) Solve(rel *moment.Relaxation) (*Solution, error) {
	n := rel.NumMoments()

	// Objective vector over the moment variables.
	c := matrix.FloatZeros(n, 1)
	for _, e := range rel.Objective {
		c.SetAt(e.Var, 0, c.GetAt(e.Var, 0)+e.Coef)
	}

	// PSD blocks: the moment matrix first, then the localizing matrices.
	blocks := append([]moment.Block{rel.Moment}, rel.Localizing...)
	rows := 0
	sizes := make([]int, len(blocks))
	for i, b := range blocks {
		sizes[i] = b.Size
		rows += b.Size * b.Size
	}

	// G y + s = 0 with s the stacked, column-major vectorized blocks,
	// so G carries the negated symbolic coefficients.
	G := matrix.FloatZeros(rows, n)
	offset := 0
	for _, b := range blocks {
		for i := 0; i < b.Size; i++ {
			for j := 0; j < b.Size; j++ {
				row := offset + j*b.Size + i
				for _, e := range b.Cells[i][j] {
					G.SetAt(row, e.Var, G.GetAt(row, e.Var)-e.Coef)
				}
			}
		}
		offset += b.Size * b.Size
	}
	h := matrix.FloatZeros(rows, 1)

	// Linear equalities.
	A := matrix.FloatZeros(len(rel.Equalities), n)
	b := matrix.FloatZeros(len(rel.Equalities), 1)
	for i, eq := range rel.Equalities {
		for _, e := range eq.Terms {
			A.SetAt(i, e.Var, A.GetAt(i, e.Var)+e.Coef)
		}
		b.SetAt(i, 0, eq.RHS)
	}

	dims := sets.NewDimensionSet("l", "q", "s")
	dims.Set("l", []int{0})
	dims.Set("s", sizes)

	var solopts cvx.SolverOptions
	solopts.MaxIter = s.maxIter
	solopts.ShowProgress = s.showProgress
	if s.feasTol > 0 {
		solopts.FeasTol = s.feasTol
	}

	sol, err := cvx.ConeLp(c, G, h, A, b, dims, &solopts, nil, nil)
	if sol == nil {
		if err != nil {
			return nil, fmt.Errorf("cone solver: %w", err)
		}
		return nil, fmt.Errorf("cone solver returned no solution")
	}

	out := &Solution{Status: mapStatus(sol.Status)}
	if out.Status == StatusOptimal || out.Status == StatusUnknown {
		xs := sol.Result.At("x")
		if len(xs) > 0 && xs[0] != nil {
			y := xs[0].FloatArray()
			out.Moments = make([]float64, n)
			copy(out.Moments, y)
			obj := 0.0
			for _, e := range rel.Objective {
				obj += e.Coef * out.Moments[e.Var]
			}
			out.Objective = obj
		}
	}
	return out, nil
}

func mapStatus(st cvx.StatusCode) Status {
	switch st {
	case cvx.Optimal:
		return StatusOptimal
	case cvx.PrimalInfeasible:
		return StatusInfeasible
	case cvx.DualInfeasible:
		return StatusUnbounded
	default:
		return StatusUnknown
	}
}
