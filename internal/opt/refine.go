package opt

import (
	"log/slog"

	"github.com/cwbudde/momentsolve/internal/poly"
)

// Refine polishes extracted atoms by bounded derivative-free
// minimization of the objective polynomial around each atom. radius
// bounds the search box per coordinate. Atoms whose refined cost is not
// better keep their original coordinates.
func Refine(objective poly.Polynomial, atoms [][]float64, radius float64, optimizer Optimizer) [][]float64 {
	if radius <= 0 {
		radius = 1
	}

	refined := make([][]float64, len(atoms))
	for n, atom := range atoms {
		dim := len(atom)
		lower := make([]float64, dim)
		upper := make([]float64, dim)
		for i, v := range atom {
			lower[i] = v - radius
			upper[i] = v + radius
		}

		before := objective.Eval(atom)
		best, cost := optimizer.Run(objective.Eval, lower, upper, dim)

		if cost < before {
			refined[n] = append([]float64(nil), best...)
			slog.Debug("atom refined", "atom", n, "before", before, "after", cost)
		} else {
			refined[n] = append([]float64(nil), atom...)
		}
	}
	return refined
}
