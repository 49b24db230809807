package weight

import (
	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/history"
)

// Fixed wraps a base scheme and overwrites a contiguous region of bins
// with caller-supplied fixed log-weights, shifting the base weights on
// either side of the region so the final log-weight function has no jump
// at the two splice points (spec.md §4.4).
type Fixed struct {
	Base Scheme
	// RefBin is the bin index at which the fixed region W starts.
	RefBin int
	// W are the fixed log-weights for bins [RefBin, RefBin+len(W)).
	W []float64
}

var _ Scheme = Fixed{}

// GetWeights implements Scheme.
func (s Fixed) GetWeights(est *estimate.Estimate, hist *history.History, bnr binner.Binner) *array.Array {
	base := s.Base.GetWeights(est, hist, bnr)
	if len(s.W) == 0 {
		return base
	}
	start := s.RefBin
	end := start + len(s.W)

	if start < base.Len() {
		leftShift := s.W[0] - base.At(start)
		for i := 0; i < start; i++ {
			base.Set(i, base.At(i)+leftShift)
		}
	}
	last := len(s.W) - 1
	if end-1 < base.Len() {
		rightShift := s.W[last] - base.At(end-1)
		for i := end; i < base.Len(); i++ {
			base.Set(i, base.At(i)+rightShift)
		}
	}
	for i, v := range s.W {
		bin := start + i
		if bin >= 0 && bin < base.Len() {
			base.Set(bin, v)
		}
	}
	return base
}
