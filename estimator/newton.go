package estimator

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/errs"
)

// solveNewton finds f such that F(f) = 0, where F and its Jacobian H are
// the GMH equations of spec.md §4.3:
//
//	F_i(f) = -1 + exp(f_i + logsumexp_{b in B\{x0}}(lnw_i(b)+ln(sumN(b))-lnD(b)))
//	            + exp(f_i + lnw_i(x0) + lnG(x0))   [only if N_i(x0) > 0]
//
// lnD(b) = logsumexp_k(ln(n_k)+lnw_k(b)+f_k), taken over k with N_k(b) > 0.
//
// f is updated in place with the converged solution. It returns
// NoSolutionError if Newton's method fails to converge within
// m.MaxIterations.
func (m *MLE) solveNewton(f []float64, nmat []*array.Array, nk []float64, lnw [][]float64, sumN []float64, supportExclX0 []int, nbins, x0 int, lnGx0 float64) error {
	K := len(f)
	if K == 0 {
		return nil
	}

	var lastErr error
	for iter := 0; iter < m.MaxIterations; iter++ {
		lnD := logDenominators(f, nmat, nk, lnw, nbins)

		F := make([]float64, K)
		// lnA[i] = logsumexp over b in supportExclX0 of (lnw_i(b)+ln(sumN(b))-lnD(b))
		lnA := make([]float64, K)
		for i := 0; i < K; i++ {
			lnA[i] = math.Inf(-1)
		}
		for _, b := range supportExclX0 {
			if sumN[b] <= 0 {
				continue
			}
			for i := 0; i < K; i++ {
				if nmat[i].At(b) <= 0 {
					continue
				}
				lnA[i] = logAddExp(lnA[i], lnw[i][b]+math.Log(sumN[b])-lnD[b])
			}
		}
		for i := 0; i < K; i++ {
			v := -1.0
			if !math.IsInf(lnA[i], -1) {
				v += math.Exp(f[i] + lnA[i])
			}
			if nmat[i].At(x0) > 0 {
				v += math.Exp(f[i] + lnw[i][x0] + lnGx0)
			}
			F[i] = v
		}

		norm := 0.0
		for _, v := range F {
			if math.Abs(v) > norm {
				norm = math.Abs(v)
			}
		}
		if norm < m.Tolerance {
			return nil
		}

		H := mat.NewDense(K, K, nil)
		for i := 0; i < K; i++ {
			for j := i; j < K; j++ {
				lnSum := math.Inf(-1)
				for _, b := range supportExclX0 {
					if nmat[i].At(b) <= 0 || nmat[j].At(b) <= 0 || sumN[b] <= 0 {
						continue
					}
					lnSum = logAddExp(lnSum, lnw[i][b]+lnw[j][b]+math.Log(sumN[b])-2*lnD[b])
				}
				var hij float64
				if !math.IsInf(lnSum, -1) {
					hij = -nk[j] * math.Exp(f[i]+f[j]+lnSum)
				}
				if i == j {
					hij += F[i] + 1
				}
				H.Set(i, j, hij)
				if i != j {
					H.Set(j, i, hij*nk[j]/nk[i])
				}
			}
		}

		var delta mat.VecDense
		rhs := mat.NewVecDense(K, negate(F))
		if err := delta.SolveVec(H, rhs); err != nil {
			lastErr = err
			break
		}
		for i := 0; i < K; i++ {
			f[i] += delta.AtVec(i)
		}
	}
	return &errs.NoSolutionError{Iterations: m.MaxIterations, Err: lastErr}
}

func negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}

// logDenominators computes lnD(b) for every bin in one pass.
func logDenominators(f []float64, nmat []*array.Array, nk []float64, lnw [][]float64, nbins int) []float64 {
	lnD := make([]float64, nbins)
	K := len(f)
	for b := 0; b < nbins; b++ {
		acc := math.Inf(-1)
		for k := 0; k < K; k++ {
			if nmat[k].At(b) <= 0 {
				continue
			}
			acc = logAddExp(acc, math.Log(nk[k])+lnw[k][b]+f[k])
		}
		lnD[b] = acc
	}
	return lnD
}
