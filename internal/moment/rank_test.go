package moment

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNumericalRank(t *testing.T) {
	// Rank-1: outer product of (1, 2, 4).
	v := []float64{1, 2, 4}
	m := mat.NewSymDense(3, nil)
	for i := range v {
		for j := i; j < len(v); j++ {
			m.SetSym(i, j, v[i]*v[j])
		}
	}
	if got := NumericalRank(m, 1e-9); got != 1 {
		t.Errorf("Rank of outer product = %d, want 1", got)
	}

	// Identity has full rank.
	id := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		id.SetSym(i, i, 1)
	}
	if got := NumericalRank(id, 1e-9); got != 3 {
		t.Errorf("Rank of identity = %d, want 3", got)
	}

	// Zero matrix has rank 0.
	if got := NumericalRank(mat.NewSymDense(3, nil), 1e-9); got != 0 {
		t.Errorf("Rank of zero = %d, want 0", got)
	}
}

func TestNumericalRank_ToleranceCutoff(t *testing.T) {
	m := mat.NewSymDense(2, nil)
	m.SetSym(0, 0, 1)
	m.SetSym(1, 1, 1e-10)

	if got := NumericalRank(m, 1e-6); got != 1 {
		t.Errorf("Near-zero eigenvalue should be cut, got rank %d", got)
	}
	if got := NumericalRank(m, 1e-12); got != 2 {
		t.Errorf("Tight tolerance should keep both, got rank %d", got)
	}
}

func TestPrincipalSubmatrix(t *testing.T) {
	m := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			m.SetSym(i, j, float64(i*3+j))
		}
	}

	sub := PrincipalSubmatrix(m, 2)
	r, c := sub.Dims()
	if r != 2 || c != 2 {
		t.Fatalf("Dims = %dx%d, want 2x2", r, c)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if sub.At(i, j) != m.At(i, j) {
				t.Errorf("sub[%d][%d] = %v, want %v", i, j, sub.At(i, j), m.At(i, j))
			}
		}
	}
}
