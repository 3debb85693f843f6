package opt

import (
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter adapts the external mayfly swarm optimizer to the
// Optimizer interface used for atom polishing. The library accepts one
// scalar bound pair for all dimensions, so the adapter searches the unit
// cube and rescales each coordinate into its own [lower, upper] interval.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a mayfly optimizer adapter.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run minimizes eval over the per-dimension box [lower, upper].
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	scaled := func(u []float64) []float64 {
		x := make([]float64, dim)
		for i := range x {
			x[i] = lower[i] + u[i]*(upper[i]-lower[i])
		}
		return x
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(u []float64) float64 { return eval(scaled(u)) }
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1

	// Seeded for reproducible refinement runs.
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		// Fall back to the box center when the search fails.
		mid := make([]float64, dim)
		for i := range mid {
			mid[i] = (lower[i] + upper[i]) / 2
		}
		return mid, eval(mid)
	}

	return scaled(result.GlobalBest.Position), result.GlobalBest.Cost
}
