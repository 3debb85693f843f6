package moment

import "gonum.org/v1/gonum/mat"

// NumericalRank counts the eigenvalues of a symmetric matrix above
// tol relative to the largest eigenvalue magnitude. A matrix that is
// numerically zero has rank 0.
func NumericalRank(m *mat.SymDense, tol float64) int {
	var eig mat.EigenSym
	if ok := eig.Factorize(m, false); !ok {
		return 0
	}
	vals := eig.Values(nil)

	largest := 0.0
	for _, v := range vals {
		if a := abs(v); a > largest {
			largest = a
		}
	}
	if largest == 0 {
		return 0
	}

	rank := 0
	for _, v := range vals {
		if abs(v) > tol*largest {
			rank++
		}
	}
	return rank
}

// PrincipalSubmatrix returns the leading k-by-k block. With graded-lex
// basis ordering this restricts a moment matrix to a lower degree.
func PrincipalSubmatrix(m *mat.SymDense, k int) *mat.SymDense {
	sub := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			sub.SetSym(i, j, m.At(i, j))
		}
	}
	return sub
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
