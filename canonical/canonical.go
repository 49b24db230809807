// Package canonical implements the canonical-average utility of
// spec.md §4.9: given a finished entropy estimate and a set of sampled
// energies drawn under some (possibly non-Boltzmann) weight, it returns
// per-sample importance weights whose weighted average reproduces the
// canonical expectation at a target inverse temperature beta.
package canonical

import (
	"math"
	"sort"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/errs"
)

// Weights computes per-sample weights w_i such that sum_i w_i*f(samples[i])
// estimates <f>_beta, for edges/lnG/support describing a finished
// 1-D entropy estimate. Samples outside [edges[0], edges[len(edges)-1])
// receive weight 0, as do samples in unsupported bins.
func Weights(edges []float64, lnG *array.Array, support *array.BoolArray, samples []float64, beta float64) ([]float64, error) {
	nbins := len(edges) - 1
	if nbins <= 0 {
		return nil, &errs.ConfigError{Msg: "canonical: edges must describe at least one bin"}
	}
	if lnG.Len() != nbins || support.Len() != nbins {
		return nil, &errs.ShapeMismatchError{Want: []int{nbins}, Got: []int{lnG.Len()}}
	}

	bins := make([]int, len(samples))
	counts := make([]float64, nbins)
	for i, e := range samples {
		b := calcBin(edges, e)
		bins[i] = b
		if b >= 0 && b < nbins {
			counts[b]++
		}
	}

	combined := array.NewBool(nbins)
	for b := 0; b < nbins; b++ {
		combined.Set(b, counts[b] > 0 && support.At(b))
	}

	centers := make([]float64, nbins)
	for b := 0; b < nbins; b++ {
		centers[b] = (edges[b] + edges[b+1]) / 2
	}

	lnZ := math.Inf(-1)
	for b := 0; b < nbins; b++ {
		if combined.At(b) {
			lnZ = logAddExp(lnZ, lnG.At(b)-beta*centers[b])
		}
	}

	weights := make([]float64, len(samples))
	if math.IsInf(lnZ, -1) {
		return weights, nil
	}
	for i, b := range bins {
		if b < 0 || b >= nbins || !combined.At(b) {
			continue
		}
		p := math.Exp(-beta*centers[b] + lnG.At(b) - lnZ)
		weights[i] = p / counts[b]
	}
	return weights, nil
}

// calcBin returns the index of the bin containing value, or -1/len(edges)-1
// if value falls outside [edges[0], edges[len(edges)-1]).
func calcBin(edges []float64, value float64) int {
	if value < edges[0] {
		return -1
	}
	if value >= edges[len(edges)-1] {
		return len(edges) - 1
	}
	i := sort.Search(len(edges), func(i int) bool { return edges[i] > value })
	return i - 1
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
