package weight

import (
	"math"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/history"
)

// InvK implements the 1/k weight scheme of spec.md §4.4: a tempered
// alternative to multicanonical weights, where K(E) = sum_{E'<=E} g(E').
// lnw is computed as a running (prefix) log-sum-exp of lnG over the
// supported bins in increasing-bin-index order, then offset so the
// maximum-entropy bin satisfies lnw + lnG = 0.
type InvK struct{}

var _ Scheme = InvK{}

// GetWeights implements Scheme.
func (InvK) GetWeights(est *estimate.Estimate, hist *history.History, bnr binner.Binner) *array.Array {
	return prefixWeights(est, 1)
}

// InvKP implements the 1/k^p weight scheme: the same prefix computation as
// InvK, blended with the multicanonical term by the exponent P.
type InvKP struct {
	P float64
}

var _ Scheme = InvKP{}

// GetWeights implements Scheme.
func (s InvKP) GetWeights(est *estimate.Estimate, hist *history.History, bnr binner.Binner) *array.Array {
	return prefixWeights(est, s.P)
}

// prefixWeights computes lnw(b_i) = -p*lnk_i + (1-p)*(-lnG(b_i)) over the
// supported bins in traversal order, where lnk_i is the running
// logsumexp of lnG. p=1 reduces to plain 1/k weights.
func prefixWeights(est *estimate.Estimate, p float64) *array.Array {
	out := array.New(est.NBins())
	lnk := math.Inf(-1)
	first := true
	for i := 0; i < out.Len(); i++ {
		if !est.Support.At(i) {
			continue
		}
		s := est.LnG.At(i)
		if first {
			lnk = s
			first = false
		} else {
			lnk = logAddExp(lnk, s)
		}
		out.Set(i, -p*lnk+(1-p)*(-s))
	}
	offsetToMaxEntropyBin(out, est)
	return out
}

// offsetToMaxEntropyBin shifts every in-support weight by a constant so
// that, at the bin with the largest lnG, lnw+lnG = 0 (the same convention
// Multicanonical satisfies everywhere).
func offsetToMaxEntropyBin(out *array.Array, est *estimate.Estimate) {
	best, bestIdx := math.Inf(-1), -1
	for i := 0; i < out.Len(); i++ {
		if est.Support.At(i) && est.LnG.At(i) > best {
			best = est.LnG.At(i)
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return
	}
	offset := -best - out.At(bestIdx)
	for i := 0; i < out.Len(); i++ {
		if est.Support.At(i) {
			out.Set(i, out.At(i)+offset)
		}
	}
}

func logAddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a > b {
		return a + math.Log1p(math.Exp(b-a))
	}
	return b + math.Log1p(math.Exp(a-b))
}
