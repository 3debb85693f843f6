// Package sdp drives the moment-SOS relaxation hierarchy: it hands
// assembled relaxations to an external semidefinite solver and escalates
// the relaxation order until the moment matrix certifies convergence or
// the round budget runs out.
package sdp

import (
	"errors"

	"github.com/cwbudde/momentsolve/internal/moment"
)

// Status is the outcome class reported by the SDP solver.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "unknown"
	}
}

// ErrInfeasible is returned by the driver when the relaxation itself has
// no feasible point; the problem as posed cannot be solved by escalating.
var ErrInfeasible = errors.New("sdp: relaxation infeasible")

// Solution is the outcome of a single SDP solve.
type Solution struct {
	Status    Status
	Objective float64
	// Moments holds the optimal moment vector, indexed like
	// Relaxation.Moments, when the solver produced a primal point
	// (optimal or unknown); nil otherwise.
	Moments []float64
}

// Solver solves one assembled moment relaxation. Implementations wrap an
// external semidefinite solver; a solve call is atomic and cannot be
// cancelled from the outside.
type Solver interface {
	Solve(rel *moment.Relaxation) (*Solution, error)
}
