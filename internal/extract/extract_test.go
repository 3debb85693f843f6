package extract

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/cwbudde/momentsolve/internal/moment"
	"github.com/cwbudde/momentsolve/internal/poly"
	"github.com/cwbudde/momentsolve/internal/sdp"
)

// solvedMeasure assembles an order-t relaxation and fills in the exact
// moment vector of the given discrete measure, mimicking a solved run.
func solvedMeasure(t *testing.T, expr string, names []string, order int, atoms [][]float64, weights []float64) *sdp.Result {
	t.Helper()

	objective, err := poly.Parse(expr, names)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	rel, err := moment.Assemble(objective, nil, order)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	y := make([]float64, rel.NumMoments())
	for i, e := range rel.Moments {
		for k, atom := range atoms {
			v := weights[k]
			for j, p := range e {
				for n := 0; n < p; n++ {
					v *= atom[j]
				}
			}
			y[i] += v
		}
	}

	return &sdp.Result{
		Status:     sdp.StatusOptimal,
		Converged:  true,
		Order:      order,
		Moments:    y,
		Relaxation: rel,
	}
}

func TestSolutions_SingleAtom(t *testing.T) {
	res := solvedMeasure(t, "x^2 + y^2", []string{"x", "y"}, 2,
		[][]float64{{2, 2}}, []float64{1})

	set, err := Solutions(res, Options{})
	if err != nil {
		t.Fatalf("Solutions failed: %v", err)
	}

	if set.Rank != 1 || len(set.Atoms) != 1 {
		t.Fatalf("Expected one atom, got rank %d with %d atoms", set.Rank, len(set.Atoms))
	}
	for k, v := range set.Atoms[0] {
		if math.Abs(v-2) > 1e-6 {
			t.Errorf("Coordinate %d = %v, want 2", k, v)
		}
	}
	if math.Abs(set.Weights[0]-1) > 1e-6 {
		t.Errorf("Weight = %v, want 1", set.Weights[0])
	}
	if set.Residual > 1e-6 {
		t.Errorf("Residual = %v, want ~0", set.Residual)
	}
}

func TestSolutions_TwoAtoms(t *testing.T) {
	res := solvedMeasure(t, "x", []string{"x"}, 2,
		[][]float64{{1}, {2}}, []float64{0.5, 0.5})

	set, err := Solutions(res, Options{})
	if err != nil {
		t.Fatalf("Solutions failed: %v", err)
	}

	if set.Rank != 2 || len(set.Atoms) != 2 {
		t.Fatalf("Expected two atoms, got rank %d with %d atoms", set.Rank, len(set.Atoms))
	}

	// Order of recovered atoms is arbitrary.
	got := []float64{set.Atoms[0][0], set.Atoms[1][0]}
	sort.Float64s(got)
	if math.Abs(got[0]-1) > 1e-6 || math.Abs(got[1]-2) > 1e-6 {
		t.Errorf("Atoms = %v, want {1, 2}", got)
	}
	for i, w := range set.Weights {
		if math.Abs(w-0.5) > 1e-6 {
			t.Errorf("Weight %d = %v, want 0.5", i, w)
		}
	}
}

func TestSolutions_ThreeAtomsTwoVars(t *testing.T) {
	atoms := [][]float64{{0, 0}, {1, 2}, {-1, 1}}
	weights := []float64{0.2, 0.3, 0.5}
	res := solvedMeasure(t, "x^2 + y^2", []string{"x", "y"}, 3, atoms, weights)

	set, err := Solutions(res, Options{})
	if err != nil {
		t.Fatalf("Solutions failed: %v", err)
	}
	if set.Rank != 3 {
		t.Fatalf("Expected rank 3, got %d", set.Rank)
	}

	// Match each true atom to the nearest recovered one.
	for i, want := range atoms {
		best := math.Inf(1)
		bestIdx := -1
		for j, got := range set.Atoms {
			d := math.Hypot(got[0]-want[0], got[1]-want[1])
			if d < best {
				best = d
				bestIdx = j
			}
		}
		if best > 1e-5 {
			t.Errorf("True atom %v not recovered (closest at distance %v)", want, best)
			continue
		}
		if math.Abs(set.Weights[bestIdx]-weights[i]) > 1e-5 {
			t.Errorf("Atom %v weight = %v, want %v", want, set.Weights[bestIdx], weights[i])
		}
	}
}

func TestSolutions_Idempotent(t *testing.T) {
	res := solvedMeasure(t, "x", []string{"x"}, 2,
		[][]float64{{1}, {2}}, []float64{0.5, 0.5})

	first, err := Solutions(res, Options{Seed: 7})
	if err != nil {
		t.Fatalf("First extraction failed: %v", err)
	}
	second, err := Solutions(res, Options{Seed: 7})
	if err != nil {
		t.Fatalf("Second extraction failed: %v", err)
	}

	for i := range first.Atoms {
		for k := range first.Atoms[i] {
			if first.Atoms[i][k] != second.Atoms[i][k] {
				t.Fatalf("Extraction is not idempotent: %v vs %v", first.Atoms, second.Atoms)
			}
		}
		if first.Weights[i] != second.Weights[i] {
			t.Fatalf("Weights differ between runs: %v vs %v", first.Weights, second.Weights)
		}
	}
}

func TestSolutions_TruncatedDegree(t *testing.T) {
	// A rank-one measure stays extractable from the degree-1 block.
	res := solvedMeasure(t, "x^2 + y^2", []string{"x", "y"}, 2,
		[][]float64{{2, 2}}, []float64{1})

	set, err := Solutions(res, Options{Degree: 1})
	if err != nil {
		t.Fatalf("Solutions failed: %v", err)
	}
	if len(set.Atoms) != 1 {
		t.Fatalf("Expected one atom, got %d", len(set.Atoms))
	}
	for k, v := range set.Atoms[0] {
		if math.Abs(v-2) > 1e-6 {
			t.Errorf("Coordinate %d = %v, want 2", k, v)
		}
	}
}

func TestSolutions_DegreeOutOfRange(t *testing.T) {
	res := solvedMeasure(t, "x", []string{"x"}, 2,
		[][]float64{{1}}, []float64{1})

	if _, err := Solutions(res, Options{Degree: 3}); !errors.Is(err, ErrInsufficientRank) {
		t.Errorf("Degree above order should fail with ErrInsufficientRank, got %v", err)
	}
	if _, err := Solutions(res, Options{Degree: -1}); !errors.Is(err, ErrInsufficientRank) {
		t.Errorf("Negative degree should fail with ErrInsufficientRank, got %v", err)
	}
}

func TestSolutions_ZeroMoments(t *testing.T) {
	res := solvedMeasure(t, "x", []string{"x"}, 1,
		[][]float64{{1}}, []float64{1})
	for i := range res.Moments {
		res.Moments[i] = 0
	}

	if _, err := Solutions(res, Options{}); !errors.Is(err, ErrInsufficientRank) {
		t.Errorf("Zero moment matrix should fail with ErrInsufficientRank, got %v", err)
	}
}

func TestSolutions_NoData(t *testing.T) {
	if _, err := Solutions(nil, Options{}); err == nil {
		t.Error("Nil result should fail")
	}
	if _, err := Solutions(&sdp.Result{}, Options{}); err == nil {
		t.Error("Result without relaxation should fail")
	}
}

func TestSolutionSet_Coordinates(t *testing.T) {
	set := &SolutionSet{
		Atoms:   [][]float64{{1, 10}, {2, 20}},
		Weights: []float64{0.5, 0.5},
	}

	xs := set.Coordinates(0)
	ys := set.Coordinates(1)
	if len(xs) != 2 || xs[0] != 1 || xs[1] != 2 {
		t.Errorf("Coordinates(0) = %v", xs)
	}
	if len(ys) != 2 || ys[0] != 10 || ys[1] != 20 {
		t.Errorf("Coordinates(1) = %v", ys)
	}
}
