package sdp

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/momentsolve/internal/basis"
	"github.com/cwbudde/momentsolve/internal/moment"
	"github.com/cwbudde/momentsolve/internal/poly"
)

// State identifies a phase of the relaxation driver.
type State int

const (
	StateInit State = iota
	StateAssembling
	StateSolving
	StateChecking
	StateConverged
	StateEscalating
	StateExhausted
	StateInfeasible
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAssembling:
		return "assembling"
	case StateSolving:
		return "solving"
	case StateChecking:
		return "checking"
	case StateConverged:
		return "converged"
	case StateEscalating:
		return "escalating"
	case StateExhausted:
		return "exhausted"
	case StateInfeasible:
		return "infeasible"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures one driver run. The zero value selects the
// defaults; tolerances are configurable because rank decisions depend on
// the numerical scale of the problem.
type Options struct {
	// MaxRounds bounds the number of relaxation rounds (default 6).
	MaxRounds int
	// MinOrder forces a minimum starting relaxation order.
	MinOrder int
	// RankTol is the relative eigenvalue cutoff for numerical rank
	// decisions (default 1e-6).
	RankTol float64
	// Quiet suppresses per-round progress logging.
	Quiet bool
	// OnRound, when set, receives each round's progress record.
	OnRound func(RoundReport)
}

func (o Options) withDefaults() Options {
	if o.MaxRounds <= 0 {
		o.MaxRounds = 6
	}
	if o.RankTol <= 0 {
		o.RankTol = 1e-6
	}
	return o
}

// RoundReport is the structured progress record emitted once per round.
type RoundReport struct {
	Round     int     `json:"round"`
	Order     int     `json:"order"`
	BasisSize int     `json:"basisSize"`
	Rank      int     `json:"rank"`
	Objective float64 `json:"objective"`
	Status    string  `json:"status"`
	State     string  `json:"state"`
}

// Result is the final state of a driver run. When Converged is false the
// moment data is best-effort: extraction may still be attempted but its
// correctness is not guaranteed.
type Result struct {
	Status     Status
	Converged  bool
	Objective  float64
	Order      int
	Moments    []float64
	Relaxation *moment.Relaxation
	Rounds     []RoundReport
}

// Driver runs the relaxation hierarchy against a Solver. It owns all
// per-round state and exposes only the final round's result.
type Driver struct {
	solver Solver
	opts   Options
}

// NewDriver creates a driver over the given solver.
func NewDriver(solver Solver, opts Options) *Driver {
	return &Driver{solver: solver, opts: opts.withDefaults()}
}

// Run executes relaxation rounds of increasing order until the moment
// matrix certifies convergence (flat extension), the relaxation is
// infeasible, or the round budget is exhausted. The context is checked
// between rounds only; a single solver call is atomic.
func (d *Driver) Run(ctx context.Context, objective poly.Polynomial, cons []moment.Constraint) (*Result, error) {
	order := initialOrder(objective, cons, d.opts.MinOrder)
	res := &Result{Status: StatusUnknown}

	for round := 1; round <= d.opts.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rel, err := moment.Assemble(objective, cons, order)
		if err != nil {
			// Assembly failures are programming errors; abort the solve.
			return res, fmt.Errorf("round %d: %w", round, err)
		}

		sol, err := d.solver.Solve(rel)
		if err != nil {
			return res, fmt.Errorf("round %d: %w", round, err)
		}

		report := RoundReport{
			Round:     round,
			Order:     order,
			BasisSize: rel.Basis.Size(),
			Status:    sol.Status.String(),
		}

		switch sol.Status {
		case StatusInfeasible:
			report.State = StateInfeasible.String()
			d.emit(report, res)
			res.Status = StatusInfeasible
			return res, ErrInfeasible

		case StatusOptimal, StatusUnknown:
			if sol.Moments != nil {
				res.Status = sol.Status
				res.Objective = sol.Objective
				res.Order = order
				res.Moments = sol.Moments
				res.Relaxation = rel
				report.Objective = sol.Objective

				m := rel.MomentMatrix(sol.Moments)
				rank := moment.NumericalRank(m, d.opts.RankTol)
				report.Rank = rank

				if sol.Status == StatusOptimal && d.flat(rel, m, rank) {
					report.State = StateConverged.String()
					d.emit(report, res)
					res.Converged = true
					return res, nil
				}
			}

		case StatusUnbounded:
			res.Status = StatusUnbounded
		}

		if round == d.opts.MaxRounds {
			report.State = StateExhausted.String()
			d.emit(report, res)
			return res, nil
		}
		report.State = StateEscalating.String()
		d.emit(report, res)
		order++
	}

	return res, nil
}

// flat reports whether the moment matrix satisfies the flat-extension
// rank condition: its numerical rank equals the rank of its principal
// submatrix one degree down.
func (d *Driver) flat(rel *moment.Relaxation, m *mat.SymDense, rank int) bool {
	if rel.Order < 1 {
		return false
	}
	k, err := basis.Count(rel.Vars, rel.Order-1)
	if err != nil || k <= 0 || k > rel.Basis.Size() {
		return false
	}
	prev := moment.PrincipalSubmatrix(m, k)
	return moment.NumericalRank(prev, d.opts.RankTol) == rank
}

func (d *Driver) emit(r RoundReport, res *Result) {
	res.Rounds = append(res.Rounds, r)
	if !d.opts.Quiet {
		slog.Info("relaxation round",
			"round", r.Round,
			"order", r.Order,
			"basis_size", r.BasisSize,
			"rank", r.Rank,
			"objective", r.Objective,
			"status", r.Status,
			"state", r.State,
		)
	}
	if d.opts.OnRound != nil {
		d.opts.OnRound(r)
	}
}

// initialOrder picks the starting relaxation order: half the largest
// degree among objective and constraints (rounded up), at least one,
// raised to any explicit minimum.
func initialOrder(objective poly.Polynomial, cons []moment.Constraint, min int) int {
	deg := objective.Degree()
	for _, c := range cons {
		if d := c.Degree(); d > deg {
			deg = d
		}
	}
	order := (deg + 1) / 2
	if order < 1 {
		order = 1
	}
	if order < min {
		order = min
	}
	return order
}
