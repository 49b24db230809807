// Package estimator implements the maximum-likelihood (MLE) estimator: it
// solves the Generalized Multi-Histogram (GMH) equations over a History to
// produce a single, consistent ln g(E) Estimate with a support mask
// (spec.md §4.3).
package estimator

import (
	"math"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/errs"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/history"
	"github.com/jfrellsen/muninn/internal/mlog"
)

// Mode selects how the GMH equations attribute per-bin observation counts
// across histograms.
type Mode int

const (
	// Accumulated (the default) replaces each histogram's raw counts with
	// its accumulation over itself and every newer histogram; this is
	// numerically more stable when older histograms had narrow support.
	Accumulated Mode = iota
	// RestrictedIndividualSupport uses each histogram's raw counts
	// directly: a bin's per-histogram contribution set is exactly the
	// histograms with a nonzero raw count there.
	RestrictedIndividualSupport
)

// MLE is the maximum-likelihood estimator of spec.md §4.3.
type MLE struct {
	Mode          Mode
	MaxIterations int
	Tolerance     float64
}

// NewMLE constructs an MLE estimator with the given mode and Newton solver
// limits.
func NewMLE(mode Mode, maxIterations int, tolerance float64) *MLE {
	if maxIterations <= 0 {
		maxIterations = 200
	}
	if tolerance <= 0 {
		tolerance = 1e-10
	}
	return &MLE{Mode: mode, MaxIterations: maxIterations, Tolerance: tolerance}
}

// Estimate solves the GMH equations over hist and writes the result into
// est in place. On NoOverlapError or NoSolutionError, est's LnG, Support
// and reference bin are left unmodified so the orchestrator can keep the
// previous weights; free energies of entries no longer in hist have
// already been dropped from est.FreeEnergies by then.
func (m *MLE) Estimate(hist *history.History, est *estimate.Estimate) error {
	entries := hist.Entries() // oldest first, newest last
	K := len(entries)
	nbins := hist.NBins()

	support := hist.SupportMask()
	if support.Count() == 0 {
		mlog.Warnf("estimator: support is empty (no bin has sum_N >= min_count); setting lnG=0 everywhere")
		est.LnG = array.New(nbins)
		est.Support = array.NewBool(nbins)
		return nil
	}

	x0 := est.X0
	if !est.X0Explicit || hist.SumN().At(x0) < hist.MinCount() {
		x0 = argMaxArray(hist.SumN())
	}

	nmat := m.attributionMatrix(entries, support)
	nk := make([]float64, K)
	for k := range nmat {
		nk[k] = maskedSum(nmat[k], support)
	}

	est.PruneFreeEnergies(entries)
	f := make([]float64, K)
	for k, e := range entries {
		if v, ok := est.FreeEnergies[e.ID]; ok {
			f[k] = v
		}
	}
	if K > 0 {
		guess, err := m.initialGuessNewest(hist, entries, nmat, nk, support, est, x0)
		if err != nil {
			return err
		}
		f[K-1] = guess
	}

	lnw := make([][]float64, K)
	for k, e := range entries {
		lnw[k] = e.Hist.Lnw.Data()
	}
	sumN := hist.SumN().Data()
	supportIdx := supportIndices(support, x0)

	lnGx0 := est.LnG.At(x0)
	if err := m.solveNewton(f, nmat, nk, lnw, sumN, supportIdx, support.Len(), x0, lnGx0); err != nil {
		return err
	}

	lnG := computeLnG(f, nmat, nk, lnw, sumN, support)
	est.LnG = lnG
	est.Support = support
	est.SetReferenceBin(x0)
	for k, e := range entries {
		est.FreeEnergies[e.ID] = f[k]
	}
	return nil
}

// attributionMatrix returns, for each histogram k, the per-bin count array
// the GMH equations should use, according to m.Mode.
func (m *MLE) attributionMatrix(entries []*history.Entry, support *array.BoolArray) []*array.Array {
	K := len(entries)
	out := make([]*array.Array, K)
	switch m.Mode {
	case RestrictedIndividualSupport:
		for k, e := range entries {
			out[k] = e.Hist.N
		}
	default: // Accumulated
		acc := array.New(support.Len())
		// Walk newest to oldest, accumulating; entries[k] gets the sum of
		// itself and every newer (higher-index) histogram.
		for k := K - 1; k >= 0; k-- {
			array.AddTo(acc, acc, entries[k].Hist.N)
			out[k] = acc.Clone()
		}
	}
	return out
}

func maskedSum(a *array.Array, mask *array.BoolArray) float64 {
	sum := 0.0
	for i := 0; i < a.Len(); i++ {
		if mask.At(i) {
			sum += a.At(i)
		}
	}
	return sum
}

func argMaxArray(a *array.Array) int {
	best, idx := math.Inf(-1), 0
	for i := 0; i < a.Len(); i++ {
		if a.At(i) > best {
			best, idx = a.At(i), i
		}
	}
	return idx
}

// supportIndices returns the support bin indices, and separately those
// excluding x0 (used by F_k's logsumexp term).
func supportIndices(support *array.BoolArray, x0 int) (idxExclX0 []int) {
	for i := 0; i < support.Len(); i++ {
		if support.At(i) && i != x0 {
			idxExclX0 = append(idxExclX0, i)
		}
	}
	return idxExclX0
}

// initialGuessNewest computes the initial free-energy guess for the
// newest histogram per spec.md §4.3. For K>1, a bin is usable only when
// the newest histogram actually observed it (N_newest(b) > 0) *and* the
// rest of the history still meets min_count there once the newest
// histogram's own count is excluded (sum_N(b) - N_newest(b) >= min_count)
// — the overlap test of original_source/muninn/MLE/MLE.cpp's "usable"
// flag. A histogram with no usable bin has no overlap with the rest of
// the history and its free energy cannot be seeded.
func (m *MLE) initialGuessNewest(hist *history.History, entries []*history.Entry, nmat []*array.Array, nk []float64, support *array.BoolArray, est *estimate.Estimate, x0 int) (float64, error) {
	K := len(entries)
	newIdx := K - 1
	newest := entries[newIdx].Hist

	if K == 1 {
		lnGx0 := est.LnG.At(x0)
		return -lnGx0 - newest.Lnw.At(x0) - math.Log(nk[newIdx]) + math.Log(nmat[newIdx].At(x0)), nil
	}

	var lnZIn float64 = math.Inf(-1)
	var nIn, nOut float64
	rawNew := newest.N
	sumN := hist.SumN()
	minCount := hist.MinCount()
	for b := 0; b < support.Len(); b++ {
		n := rawNew.At(b)
		if n <= 0 {
			continue
		}
		if sumN.At(b)-n < minCount {
			continue
		}
		lnZIn = logAddExp(lnZIn, est.LnG.At(b)+newest.Lnw.At(b))
		nIn += n
	}
	nOut = nk[newIdx] - nIn
	if nIn == 0 {
		return 0, &errs.NoOverlapError{}
	}
	lnZ := lnZIn + math.Log(1+nOut/nIn)
	return -lnZ, nil
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

// computeLnG computes lnG(b) = ln(sum_N(b)) - logsumexp_k(ln(n_k)+lnw_k(b)+f_k)
// for each supported bin, leaving unsupported bins at 0.
func computeLnG(f []float64, nmat []*array.Array, nk []float64, lnw [][]float64, sumN []float64, support *array.BoolArray) *array.Array {
	nbins := len(sumN)
	out := array.New(nbins)
	K := len(f)
	terms := make([]float64, 0, K)
	for b := 0; b < nbins; b++ {
		if !support.At(b) {
			continue
		}
		terms = terms[:0]
		for k := 0; k < K; k++ {
			if nmat[k].At(b) <= 0 {
				continue
			}
			terms = append(terms, math.Log(nk[k])+lnw[k][b]+f[k])
		}
		lnDenom := array.NewFromData(append([]float64(nil), terms...), len(terms)).LogSumExp()
		out.Set(b, math.Log(sumN[b])-lnDenom)
	}
	return out
}
