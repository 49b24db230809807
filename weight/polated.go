package weight

import (
	"math"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/history"
)

// Boundary caches the last extrapolation computed at one edge of the
// supported region: the bin it was anchored at, the slope used beyond it,
// and that bin's center (spec.md §3, weight-scheme state).
type Boundary struct {
	Bin    int
	Slope  float64
	Center float64
	Lnw    float64
}

// LinearPolated wraps a base weight scheme and adds interior-gap
// interpolation, boundary extrapolation with slope-factor scaling and
// beta-range clamping, and optional thermodynamic slope capping inside
// support (spec.md §4.4). It is the only weight scheme with non-trivial
// state: the last computed left/right extrapolation boundary, used by
// GetExtrapolatedWeight to answer lookups for out-of-range energies
// without mutating the binning.
type LinearPolated struct {
	Base Scheme

	// SlopeFactorUp/Down scale the estimated boundary slope depending on
	// whether it pushes weights up or down as energy moves away from the
	// support.
	SlopeFactorUp, SlopeFactorDown float64
	// MinBeta/MaxBeta bound the (signed) extrapolation slope to
	// [-MaxBeta, -MinBeta].
	MinBeta, MaxBeta float64
	// KernelRadius is sigma, passed through to the boundary slope
	// estimate (binner.WeightedSlope) and to the "at least sigma
	// supported bins on its side" guard for thermodynamic capping.
	KernelRadius int
	// BetaMaxThermo/BetaMinThermo, if non-zero, cap the interior slope of
	// lnw walking away from the energy E* at which <E>_beta = E*, on the
	// left and right respectively.
	BetaMaxThermo, BetaMinThermo float64

	Left, Right Boundary
}

var _ Scheme = (*LinearPolated)(nil)

// GetWeights implements Scheme.
func (s *LinearPolated) GetWeights(est *estimate.Estimate, hist *history.History, bnr binner.Binner) *array.Array {
	out := s.Base.GetWeights(est, hist, bnr)
	centers := centersOf(est, bnr)

	s.interpolateInteriorGaps(out, est, centers)
	s.extrapolateBoundaries(out, est, hist, centers)
	if s.BetaMaxThermo != 0 || s.BetaMinThermo != 0 {
		s.capThermodynamicSlope(out, est, centers)
	}
	return out
}

func centersOf(est *estimate.Estimate, bnr binner.Binner) []float64 {
	if bnr != nil {
		return bnr.GetBinningCentered()
	}
	centers := make([]float64, est.NBins())
	for i := range centers {
		centers[i] = float64(i)
	}
	return centers
}

// interpolateInteriorGaps fills every maximal run of unsupported bins that
// has a supported bin on both sides with a linear function connecting the
// two neighbors' weights (spec.md §4.4, §8.4).
func (s *LinearPolated) interpolateInteriorGaps(out *array.Array, est *estimate.Estimate, centers []float64) {
	n := out.Len()
	i := 0
	for i < n {
		if est.Support.At(i) {
			i++
			continue
		}
		start := i
		for i < n && !est.Support.At(i) {
			i++
		}
		end := i // first supported bin after the gap, or n
		if start == 0 || end == n {
			// Not an interior gap; leave for boundary extrapolation.
			continue
		}
		left, right := start-1, end
		x0, x1 := centers[left], centers[right]
		y0, y1 := out.At(left), out.At(right)
		slope := (y1 - y0) / (x1 - x0)
		for b := start; b < end; b++ {
			out.Set(b, y0+slope*(centers[b]-x0))
		}
	}
}

// extrapolateBoundaries fills bins outside [firstSupported, lastSupported]
// with an affine extension of the boundary slope, and refreshes the cached
// Left/Right Boundary state consumed by GetExtrapolatedWeight.
func (s *LinearPolated) extrapolateBoundaries(out *array.Array, est *estimate.Estimate, hist *history.History, centers []float64) {
	n := out.Len()
	first, last := -1, -1
	for i := 0; i < n; i++ {
		if est.Support.At(i) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return
	}

	leftSlope := s.scaledClampedSlope(binner.WeightedSlope(first, est.LnG, est.Support, hist.SumN(), centers, s.KernelRadius))
	s.Left = Boundary{Bin: first, Slope: leftSlope, Center: centers[first], Lnw: out.At(first)}
	for b := 0; b < first; b++ {
		out.Set(b, s.Left.Lnw+leftSlope*(centers[b]-s.Left.Center))
	}

	rightSlope := s.scaledClampedSlope(binner.WeightedSlope(last, est.LnG, est.Support, hist.SumN(), centers, s.KernelRadius))
	s.Right = Boundary{Bin: last, Slope: rightSlope, Center: centers[last], Lnw: out.At(last)}
	for b := last + 1; b < n; b++ {
		out.Set(b, s.Right.Lnw+rightSlope*(centers[b]-s.Right.Center))
	}
}

// scaledClampedSlope applies the slope-factor scaling and the
// [-MaxBeta, -MinBeta] clamp to an estimated entropy slope dS/dE, and
// returns the corresponding weight slope -dS/dE (since lnw ~ -lnG on
// support).
func (s *LinearPolated) scaledClampedSlope(entropySlope float64) float64 {
	weightSlope := -entropySlope
	if weightSlope > 0 {
		weightSlope *= s.SlopeFactorUp
	} else {
		weightSlope *= s.SlopeFactorDown
	}
	lo, hi := -s.MaxBeta, -s.MinBeta
	if s.MaxBeta != 0 && weightSlope < lo {
		weightSlope = lo
	}
	if s.MinBeta != 0 && weightSlope > hi {
		weightSlope = hi
	}
	return weightSlope
}

// GetExtrapolatedWeight returns the linear extrapolation of lnw at value,
// which must lie outside the current binning, using the last computed
// boundary state. It never mutates the binning, which is what lets the
// orchestrator use it on the lookup-only path (spec.md §4.5's
// get_lnweights when the weight scheme is extrapolation-capable).
func (s *LinearPolated) GetExtrapolatedWeight(value float64, lnw *array.Array, est *estimate.Estimate, hist *history.History, bnr binner.Binner) float64 {
	centers := centersOf(est, bnr)
	if value < centers[0] {
		return s.Left.Lnw + s.Left.Slope*(value-s.Left.Center)
	}
	return s.Right.Lnw + s.Right.Slope*(value-s.Right.Center)
}

// capThermodynamicSlope finds the bin closest to the energy E* at which
// the canonical average <E>_BetaMaxThermo equals E*, then walks outward
// clamping two-point slopes that exceed the configured thermodynamic
// bound, accumulating the resulting offset so the function stays
// continuous (spec.md §4.4).
func (s *LinearPolated) capThermodynamicSlope(out *array.Array, est *estimate.Estimate, centers []float64) {
	if s.BetaMaxThermo != 0 {
		capSide(out, est, centers, s.BetaMaxThermo, s.KernelRadius, true)
	}
	if s.BetaMinThermo != 0 {
		capSide(out, est, centers, s.BetaMinThermo, s.KernelRadius, false)
	}
}

func capSide(out *array.Array, est *estimate.Estimate, centers []float64, beta float64, kernelRadius int, left bool) {
	target := canonicalMeanEnergy(est, centers, beta)
	bin := nearestBin(centers, target)
	if !enoughSupportedOnSide(est, bin, kernelRadius, left) {
		return
	}

	offset := 0.0
	if left {
		for b := bin - 1; b >= 0; b-- {
			if !est.Support.At(b) || !est.Support.At(b+1) {
				continue
			}
			slope := (out.At(b+1) - (out.At(b) + offset)) / (centers[b+1] - centers[b])
			if slope < -beta {
				clamped := -beta
				newVal := out.At(b+1) - clamped*(centers[b+1]-centers[b])
				offset = newVal - out.At(b)
				out.Set(b, newVal)
			} else {
				out.Set(b, out.At(b)+offset)
			}
		}
	} else {
		for b := bin + 1; b < out.Len(); b++ {
			if !est.Support.At(b) || !est.Support.At(b-1) {
				continue
			}
			slope := (out.At(b) + offset - out.At(b-1)) / (centers[b] - centers[b-1])
			if slope < -beta {
				clamped := -beta
				newVal := out.At(b-1) + clamped*(centers[b]-centers[b-1])
				offset = newVal - out.At(b)
				out.Set(b, newVal)
			} else {
				out.Set(b, out.At(b)+offset)
			}
		}
	}
}

func enoughSupportedOnSide(est *estimate.Estimate, bin, kernelRadius int, left bool) bool {
	count := 0
	if left {
		for b := bin; b >= 0; b-- {
			if est.Support.At(b) {
				count++
			}
		}
	} else {
		for b := bin; b < est.Support.Len(); b++ {
			if est.Support.At(b) {
				count++
			}
		}
	}
	return count >= kernelRadius
}

func nearestBin(centers []float64, value float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centers {
		d := math.Abs(c - value)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// canonicalMeanEnergy returns <E>_beta = sum_b P_beta(b)*center(b) over
// the supported bins, with P_beta(b) ~ exp(lnG(b)-beta*center(b)).
func canonicalMeanEnergy(est *estimate.Estimate, centers []float64, beta float64) float64 {
	lnZ := math.Inf(-1)
	for i := 0; i < est.LnG.Len(); i++ {
		if !est.Support.At(i) {
			continue
		}
		lnZ = logAddExp(lnZ, est.LnG.At(i)-beta*centers[i])
	}
	if math.IsInf(lnZ, -1) {
		return 0
	}
	mean := 0.0
	for i := 0; i < est.LnG.Len(); i++ {
		if !est.Support.At(i) {
			continue
		}
		p := math.Exp(est.LnG.At(i) - beta*centers[i] - lnZ)
		mean += p * centers[i]
	}
	return mean
}
