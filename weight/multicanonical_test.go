package weight

import (
	"math"
	"testing"

	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/estimate"
)

// TestMulticanonicalUniformBinsIsExactInverse checks spec.md §8.5: on a
// uniform binner (equal bin widths, so the ln(bin_width) correction is a
// constant and conventionally dropped) multicanonical weighting is exactly
// lnw(b) = -lnG(b) on support, the choice that makes every supported bin
// equally likely to be visited in the canonical random walk.
func TestMulticanonicalUniformBinsIsExactInverse(t *testing.T) {
	const nbins = 5
	est := estimate.New(nbins)
	lnGValues := []float64{1, 2, -1, 0.5, 3}
	for i, v := range lnGValues {
		est.LnG.Set(i, v)
		est.Support.Set(i, true)
	}
	u := binner.NewUniformBinner(1, 0, 0)
	_ = u.Initialize([]float64{0, 1, 2, 3, 4}, 0)

	out := Multicanonical{}.GetWeights(est, nil, u)
	for i, v := range lnGValues {
		if math.Abs(out.At(i)-(-v)) > 1e-12 {
			t.Errorf("bin %d: lnw=%v, want %v", i, out.At(i), -v)
		}
	}
}

// TestMulticanonicalUnsupportedBinsAreZero checks that bins outside
// support are left at 0, regardless of lnG there.
func TestMulticanonicalUnsupportedBinsAreZero(t *testing.T) {
	const nbins = 3
	est := estimate.New(nbins)
	est.LnG.Set(1, 7)
	est.Support.Set(1, true)

	out := Multicanonical{}.GetWeights(est, nil, nil)
	if out.At(0) != 0 || out.At(2) != 0 {
		t.Errorf("unsupported bins should be 0, got %v", out.Data())
	}
	if out.At(1) != -7 {
		t.Errorf("bin 1: lnw=%v, want -7", out.At(1))
	}
}
