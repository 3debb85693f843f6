package opt

import (
	"math"
	"testing"

	"github.com/cwbudde/momentsolve/internal/poly"
)

// stubOptimizer returns a fixed point regardless of the objective.
type stubOptimizer struct {
	point []float64
}

func (s *stubOptimizer) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	p := make([]float64, dim)
	copy(p, s.point)
	return p, eval(p)
}

func parseObjective(t *testing.T, expr string, names []string) poly.Polynomial {
	t.Helper()
	p, err := poly.Parse(expr, names)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", expr, err)
	}
	return p
}

func TestRefine_AdoptsImprovement(t *testing.T) {
	// Minimum of x^2 + y^2 is at the origin; the stub moves the atom
	// from (0.5, 0.5) onto it.
	objective := parseObjective(t, "x^2 + y^2", []string{"x", "y"})
	atoms := [][]float64{{0.5, 0.5}}

	refined := Refine(objective, atoms, 1, &stubOptimizer{point: []float64{0, 0}})

	if len(refined) != 1 {
		t.Fatalf("Expected 1 atom, got %d", len(refined))
	}
	for i, v := range refined[0] {
		if math.Abs(v) > 1e-12 {
			t.Errorf("Coordinate %d = %v, want 0", i, v)
		}
	}
}

func TestRefine_KeepsAtomWhenNotImproved(t *testing.T) {
	objective := parseObjective(t, "x^2", []string{"x"})
	atoms := [][]float64{{0}}

	// Moving away from the minimum must be rejected.
	refined := Refine(objective, atoms, 1, &stubOptimizer{point: []float64{0.3}})

	if refined[0][0] != 0 {
		t.Errorf("Atom moved to %v despite worse cost", refined[0][0])
	}
}

func TestRefine_DoesNotMutateInput(t *testing.T) {
	objective := parseObjective(t, "x^2", []string{"x"})
	atoms := [][]float64{{2}}

	refined := Refine(objective, atoms, 1, &stubOptimizer{point: []float64{1}})

	if atoms[0][0] != 2 {
		t.Errorf("Input atom mutated to %v", atoms[0][0])
	}
	if refined[0][0] != 1 {
		t.Errorf("Refined atom = %v, want 1", refined[0][0])
	}
}

func TestRefine_MayflyFindsMinimum(t *testing.T) {
	objective := parseObjective(t, "(x - 1)^2 + (y + 2)^2", []string{"x", "y"})
	atoms := [][]float64{{1.4, -1.6}}

	refined := Refine(objective, atoms, 1, NewMayfly(150, 25, 1))

	if math.Abs(refined[0][0]-1) > 0.05 || math.Abs(refined[0][1]+2) > 0.05 {
		t.Errorf("Refined atom = %v, want near (1, -2)", refined[0])
	}
}
