// Package extract recovers atomic measures from converged moment
// matrices via Lasserre's rank-based extraction: numerical rank gives
// the atom count, a column echelon of the low-rank factor gives a
// generating monomial basis, and the joint eigenvalues of the
// per-variable multiplication matrices give the atom coordinates.
package extract

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/momentsolve/internal/basis"
	"github.com/cwbudde/momentsolve/internal/moment"
	"github.com/cwbudde/momentsolve/internal/sdp"
)

// InsufficientRankError reports that no r-atom measure could be
// recovered from the given matrix. It carries enough diagnostics for the
// caller to retry with a different degree or tolerance.
type InsufficientRankError struct {
	Rank      int
	BasisSize int
	Degree    int
	Tol       float64
	Reason    string
}

func (e *InsufficientRankError) Error() string {
	return fmt.Sprintf("extract: insufficient rank (%s): rank %d, basis size %d, degree %d, tol %g",
		e.Reason, e.Rank, e.BasisSize, e.Degree, e.Tol)
}

func (e *InsufficientRankError) Is(target error) bool {
	_, ok := target.(*InsufficientRankError)
	return ok
}

// ErrInsufficientRank matches any InsufficientRankError via errors.Is.
var ErrInsufficientRank = &InsufficientRankError{}

// Options configures one extraction call.
type Options struct {
	// Degree is the target extraction degree t; it must not exceed the
	// relaxation order. Zero selects the relaxation order itself.
	Degree int
	// Tol is the relative eigenvalue cutoff for rank decisions
	// (default 1e-6). Matrices with eigenvalues near the cutoff have
	// inherently ambiguous rank; that fragility is reported, not fixed.
	Tol float64
	// Seed fixes the random combination of multiplication matrices so
	// repeated calls on the same matrix return the same atoms.
	Seed int64
}

func (o Options) withDefaults(order int) Options {
	if o.Degree == 0 {
		o.Degree = order
	}
	if o.Tol <= 0 {
		o.Tol = 1e-6
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
	return o
}

// SolutionSet is the recovered discrete measure. Index i across Atoms
// and Weights identifies one recovered point; the order carries no
// meaning beyond being shared.
type SolutionSet struct {
	// Atoms holds one coordinate vector per recovered point.
	Atoms [][]float64
	// Weights holds the measure weight of each atom.
	Weights []float64
	// Rank is the numerical rank used as the atom count.
	Rank int
	// Residual is the mass unaccounted for, |1 - sum(Weights)|.
	// Diagnostic only; no recovery action is defined.
	Residual float64
}

// Coordinates returns the sequence of values of variable k, one per
// atom, sharing the atom order of Weights.
func (s *SolutionSet) Coordinates(k int) []float64 {
	out := make([]float64, len(s.Atoms))
	for i, a := range s.Atoms {
		out[i] = a[k]
	}
	return out
}

// Solutions extracts the atoms of the measure behind a solved
// relaxation. It is a pure function of the moment data and the options;
// it owns no state.
func Solutions(res *sdp.Result, opts Options) (*SolutionSet, error) {
	if res == nil || res.Relaxation == nil || res.Moments == nil {
		return nil, fmt.Errorf("extract: no moment data to extract from")
	}
	rel := res.Relaxation
	opts = opts.withDefaults(rel.Order)

	if opts.Degree > rel.Order || opts.Degree < 1 {
		return nil, &InsufficientRankError{
			Degree: opts.Degree,
			Tol:    opts.Tol,
			Reason: fmt.Sprintf("extraction degree must be in [1,%d]", rel.Order),
		}
	}

	sub, err := basis.Build(rel.Vars, opts.Degree)
	if err != nil {
		return nil, err
	}
	n := sub.Size()

	// Restrict the moment matrix to the degree-t sub-basis. Graded-lex
	// ordering makes that the leading principal block.
	full := rel.MomentMatrix(res.Moments)
	m := moment.PrincipalSubmatrix(full, n)

	return fromMomentMatrix(m, sub, res.Moments, opts)
}

func fromMomentMatrix(m *mat.SymDense, sub *basis.Basis, moments []float64, opts Options) (*SolutionSet, error) {
	n := sub.Size()

	var eig mat.EigenSym
	if ok := eig.Factorize(m, true); !ok {
		return nil, fmt.Errorf("extract: eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	largest := 0.0
	for _, v := range vals {
		if a := math.Abs(v); a > largest {
			largest = a
		}
	}
	if largest == 0 {
		return nil, &InsufficientRankError{BasisSize: n, Degree: sub.Degree, Tol: opts.Tol, Reason: "zero moment matrix"}
	}

	// Numerical rank = atom count.
	var keep []int
	for i, v := range vals {
		if v > opts.Tol*largest {
			keep = append(keep, i)
		}
	}
	r := len(keep)
	if r == 0 || r > n {
		return nil, &InsufficientRankError{Rank: r, BasisSize: n, Degree: sub.Degree, Tol: opts.Tol, Reason: "no usable rank"}
	}

	// Low-rank factor V (n x r), columns scaled by sqrt(eigenvalue).
	V := mat.NewDense(n, r, nil)
	for j, idx := range keep {
		scale := math.Sqrt(vals[idx])
		for i := 0; i < n; i++ {
			V.Set(i, j, scale*vecs.At(i, idx))
		}
	}

	// Column echelon form: row-reduce V' so pivot columns identify the
	// generating monomials of the quotient basis.
	W, pivots, err := reducedEchelon(V, opts.Tol)
	if err != nil {
		return nil, &InsufficientRankError{Rank: r, BasisSize: n, Degree: sub.Degree, Tol: opts.Tol, Reason: err.Error()}
	}

	// Multiplication matrices: column j of N_k expresses x_k * beta_j in
	// the pivot-monomial basis.
	mult := make([]*mat.Dense, sub.Vars)
	for k := 0; k < sub.Vars; k++ {
		Nk := mat.NewDense(r, r, nil)
		for j, p := range pivots {
			shifted := sub.Monomials[p].Clone()
			shifted[k]++
			col, ok := sub.Index(shifted)
			if !ok {
				return nil, &InsufficientRankError{
					Rank:      r,
					BasisSize: n,
					Degree:    sub.Degree,
					Tol:       opts.Tol,
					Reason:    fmt.Sprintf("monomial x%d*%v leaves the degree-%d basis", k, shifted, sub.Degree),
				}
			}
			for i := 0; i < r; i++ {
				Nk.Set(i, j, W.At(i, col))
			}
		}
		mult[k] = Nk
	}

	atoms, err := jointEigenvalues(mult, r, opts.Seed)
	if err != nil {
		return nil, err
	}

	weights, residual := fitWeights(sub, moments, atoms)
	if residual > 1e-6 {
		slog.Debug("extraction lost mass", "residual", residual, "atoms", r)
	}

	return &SolutionSet{Atoms: atoms, Weights: weights, Rank: r, Residual: residual}, nil
}

// reducedEchelon row-reduces the transpose of V with relative pivot
// tolerance and returns the reduced r x n matrix together with the
// pivot column indices, in ascending (graded) order.
func reducedEchelon(V *mat.Dense, tol float64) (*mat.Dense, []int, error) {
	n, r := V.Dims()
	W := mat.NewDense(r, n, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < n; j++ {
			W.Set(i, j, V.At(j, i))
		}
	}

	maxAbs := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < n; j++ {
			if a := math.Abs(W.At(i, j)); a > maxAbs {
				maxAbs = a
			}
		}
	}
	if maxAbs == 0 {
		return nil, nil, fmt.Errorf("zero factor")
	}

	var pivots []int
	row := 0
	for col := 0; col < n && row < r; col++ {
		// Partial pivoting within the column.
		pivot := row
		for i := row + 1; i < r; i++ {
			if math.Abs(W.At(i, col)) > math.Abs(W.At(pivot, col)) {
				pivot = i
			}
		}
		if math.Abs(W.At(pivot, col)) <= tol*maxAbs {
			continue
		}
		swapRows(W, row, pivot)

		p := W.At(row, col)
		for j := 0; j < n; j++ {
			W.Set(row, j, W.At(row, j)/p)
		}
		for i := 0; i < r; i++ {
			if i == row {
				continue
			}
			f := W.At(i, col)
			if f == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				W.Set(i, j, W.At(i, j)-f*W.At(row, j))
			}
		}
		pivots = append(pivots, col)
		row++
	}

	if len(pivots) < r {
		return nil, nil, fmt.Errorf("factor rank %d below expected %d", len(pivots), r)
	}
	return W, pivots, nil
}

func swapRows(m *mat.Dense, a, b int) {
	if a == b {
		return
	}
	_, cols := m.Dims()
	for j := 0; j < cols; j++ {
		va, vb := m.At(a, j), m.At(b, j)
		m.Set(a, j, vb)
		m.Set(b, j, va)
	}
}

// jointEigenvalues simultaneously diagonalizes the multiplication
// matrices by eigendecomposing a random convex combination and reading
// each variable off as a Rayleigh quotient in the shared eigenvectors.
func jointEigenvalues(mult []*mat.Dense, r int, seed int64) ([][]float64, error) {
	vars := len(mult)
	rng := rand.New(rand.NewSource(seed))

	comb := mat.NewDense(r, r, nil)
	total := 0.0
	coeffs := make([]float64, vars)
	for k := range coeffs {
		coeffs[k] = rng.Float64() + 0.1
		total += coeffs[k]
	}
	for k, c := range coeffs {
		var scaled mat.Dense
		scaled.Scale(c/total, mult[k])
		comb.Add(comb, &scaled)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(comb, mat.EigenRight); !ok {
		return nil, fmt.Errorf("extract: eigendecomposition of multiplication matrix failed")
	}
	var cvecs mat.CDense
	eig.VectorsTo(&cvecs)

	atoms := make([][]float64, r)
	for j := 0; j < r; j++ {
		v := make([]float64, r)
		norm := 0.0
		for i := 0; i < r; i++ {
			v[i] = real(cvecs.At(i, j))
			norm += v[i] * v[i]
		}
		if norm == 0 {
			return nil, fmt.Errorf("extract: degenerate eigenvector")
		}

		coords := make([]float64, vars)
		for k := 0; k < vars; k++ {
			num := 0.0
			for a := 0; a < r; a++ {
				row := 0.0
				for b := 0; b < r; b++ {
					row += mult[k].At(a, b) * v[b]
				}
				num += v[a] * row
			}
			coords[k] = num / norm
		}
		atoms[j] = coords
	}
	return atoms, nil
}

// fitWeights solves the least-squares system matching the recovered
// atoms against the moment vector over the extraction basis, and
// returns the weights together with the lost-mass residual.
func fitWeights(sub *basis.Basis, moments []float64, atoms [][]float64) ([]float64, float64) {
	n := sub.Size()
	r := len(atoms)

	A := mat.NewDense(n, r, nil)
	y := mat.NewVecDense(n, nil)
	for i, mono := range sub.Monomials {
		y.SetVec(i, moments[i])
		for j, atom := range atoms {
			v := 1.0
			for k, e := range mono {
				if e > 0 {
					v *= math.Pow(atom[k], float64(e))
				}
			}
			A.Set(i, j, v)
		}
	}

	w := mat.NewVecDense(r, nil)
	if err := w.SolveVec(A, y); err != nil {
		// Fall back to equal weights when the system is singular.
		for j := 0; j < r; j++ {
			w.SetVec(j, 1/float64(r))
		}
	}

	weights := make([]float64, r)
	sum := 0.0
	for j := 0; j < r; j++ {
		weights[j] = w.AtVec(j)
		sum += weights[j]
	}
	return weights, math.Abs(1 - sum)
}
