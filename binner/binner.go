// Package binner implements the one-dimensional, adaptively-extending
// partition of the energy axis that the rest of Muninn bins observations
// into. Two implementations are provided: UniformBinner (fixed bin width)
// and NonUniformDynamicBinner (variable width, chosen so that neighboring
// bins differ in log-weight by approximately a target resolution).
package binner

import (
	"fmt"
	"math"
	"sort"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/history"
)

// Binner is the interface both binner implementations satisfy. It is the
// Go rendering of the original C++ abstract base class: a capability set
// rather than a class hierarchy, per Design Notes §9.
type Binner interface {
	// Initialize prepares the binning from a bootstrap sample collected
	// while the driver used canonical weights w(E)=exp(-beta*E).
	Initialize(values []float64, beta float64) error

	// CalcBin returns the signed bin index for value: negative if value is
	// below the binned range, >= NBins() if above.
	CalcBin(value float64) int

	// CalcBinValidated is CalcBin plus an in-range flag.
	CalcBinValidated(value float64) (bin int, inRange bool)

	// Extend grows the binning to cover value, returning the number of
	// bins added on the left and right respectively. It may fail with
	// *muninn.MaxBinsExceededError.
	Extend(value float64, est *estimate.Estimate, hist *history.History, lnw *array.Array) (addLeft, addRight int, err error)

	// Include behaves like Extend but with any extend-side padding
	// temporarily disabled, used by CGEcollection to align chains' ranges
	// without padding.
	Include(value float64, est *estimate.Estimate, hist *history.History, lnw *array.Array) (addLeft, addRight int, err error)

	GetBinning() []float64         // nbins+1 edges
	GetBinningCentered() []float64 // nbins centers
	GetBinWidths() []float64       // nbins widths

	NBins() int
	IsUniform() bool

	// LoadBinning replaces the binning with an already-known set of edges
	// (ascending, length nbins+1), bypassing the bootstrap-sample-driven
	// Initialize. Used when reconstructing a CGE from a statistics log
	// (spec.md §6 read_statistics_log_filename), where the edges are read
	// back verbatim rather than re-derived from a sample.
	LoadBinning(edges []float64) error
}

// calcBinValidated is the shared default implementation of
// Binner.CalcBinValidated, matching the inline helper on the original C++
// Binner base class.
func calcBinValidated(b Binner, value float64) (int, bool) {
	bin := b.CalcBin(value)
	return bin, 0 <= bin && bin < b.NBins()
}

// boundaryFractiles returns (v16, v84), the empirical 15.87% and 84.13%
// fractiles of a bootstrap sample, used to estimate a Gaussian-equivalent
// scale sigma = (v84-v16)/2. It sorts a copy of values; the caller's slice
// is left untouched.
func boundaryFractiles(values []float64) (v16, v84 float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return empiricalQuantile(sorted, 0.1587), empiricalQuantile(sorted, 0.8413)
}

// empiricalQuantile implements the "Empirical" cumulant-kind quantile over
// an already-sorted slice, the same convention gonum/stat's Quantile uses
// for CumulantKind Empirical: walk the cumulative mass and return the
// first value whose cumulative count reaches p*n.
func empiricalQuantile(sorted []float64, p float64) float64 {
	n := float64(len(sorted))
	target := p * n
	cum := 0.0
	for _, v := range sorted {
		cum++
		if cum >= target {
			return v
		}
	}
	return sorted[len(sorted)-1]
}

// estimateScale returns sigma = (v84-v16)/2 for a bootstrap sample,
// failing if the sample is degenerate: if 68% or more of the values are
// equal, there is no scale to estimate (spec.md §4.1).
func estimateScale(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("binner: empty bootstrap sample")
	}
	if fractionEqualToMode(values) >= 0.68 {
		return 0, fmt.Errorf("binner: bootstrap sample is degenerate (>=68%% of values are equal); cannot estimate a scale")
	}
	v16, v84 := boundaryFractiles(values)
	sigma := (v84 - v16) / 2
	if sigma <= 0 {
		return 0, fmt.Errorf("binner: bootstrap sample is degenerate; cannot estimate a scale")
	}
	return sigma, nil
}

// fractionEqualToMode returns the fraction of values equal to the most
// frequent value in the sample (within float64 equality), used to detect
// the degenerate-sample case.
func fractionEqualToMode(values []float64) float64 {
	counts := make(map[float64]int, len(values))
	best := 0
	for _, v := range values {
		counts[v]++
		if counts[v] > best {
			best = counts[v]
		}
	}
	return float64(best) / float64(len(values))
}

func minMax(values []float64) (min, max float64) {
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// WeightedSlope estimates the local slope of the entropy estimate at bin
// b0, using a Gaussian-kernel, Poisson-weighted average of two-point
// slopes between adjacent supported bins, per spec.md §4.1. kernelRadius
// is sigma: the search window must hold at least 3*kernelRadius supported
// bins in total. centers and sumN must have the same length as
// the estimate; support is typically estimate.Support.
func WeightedSlope(b0 int, lnG *array.Array, support *array.BoolArray, sumN *array.Array, centers []float64, kernelRadius int) float64 {
	n := lnG.Len()
	minSupported := 3 * kernelRadius
	if minSupported < 1 {
		minSupported = 1
	}

	// Find the smallest symmetric window [lo, hi] around b0 containing at
	// least minSupported supported bins.
	lo, hi := b0, b0
	supportedCount := func() int {
		c := 0
		for i := lo; i <= hi; i++ {
			if i >= 0 && i < n && support.At(i) {
				c++
			}
		}
		return c
	}
	for supportedCount() < minSupported && (lo > 0 || hi < n-1) {
		if lo > 0 {
			lo--
		}
		if hi < n-1 {
			hi++
		}
	}

	distToStart := b0 - lo
	distToEnd := hi - b0
	kernelWidthBins := float64(distToStart)
	if float64(distToEnd) > kernelWidthBins {
		kernelWidthBins = float64(distToEnd)
	}
	kernel := kernelWidthBins / 3
	if kernel <= 0 {
		kernel = 1
	}

	var num, den float64
	var prevSupported = -1
	for i := lo; i <= hi; i++ {
		if i < 0 || i >= n || !support.At(i) {
			continue
		}
		if prevSupported >= 0 {
			j := prevSupported
			xi, xj := centers[j], centers[i]
			si, sj := lnG.At(j), lnG.At(i)
			alpha := (sj - si) / (xj - xi)
			ni, nj := sumN.At(j), sumN.At(i)
			wP := 0.0
			if ni+nj > 0 {
				wP = ni * nj / (ni + nj)
			}
			wD := (xj - xi) * (xj - xi)
			mid := (xi + xj) / 2
			x0 := centers[b0]
			wG := math.Exp(-(mid-x0)*(mid-x0) / (2 * kernel * kernel))
			w := wP * wD * wG
			num += alpha * w
			den += w
		}
		prevSupported = i
	}
	if den == 0 {
		return 0
	}
	return num / den
}
