package weight

import (
	"math"
	"testing"

	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/histogram"
	"github.com/jfrellsen/muninn/history"
)

func newLinearPolatedFixture(t *testing.T) (*LinearPolated, *estimate.Estimate, *history.History, *binner.UniformBinner) {
	t.Helper()
	const nbins = 7
	est := estimate.New(nbins)
	supported := map[int]float64{1: 0, 2: 1, 4: 3, 5: 3.5}
	for b, v := range supported {
		est.LnG.Set(b, v)
		est.Support.Set(b, true)
	}

	u := binner.NewUniformBinner(1, 0, 0)
	if err := u.Initialize([]float64{0, 1, 2, 3, 4, 5, 6}, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	counts := make([]float64, nbins)
	for b := range supported {
		counts[b] = 20
	}
	hist := history.New(nbins, 5, 1, history.DropNone)
	hist.AddHistogram(histogram.NewFromData(counts, make([]float64, nbins)))

	s := &LinearPolated{Base: Multicanonical{}, SlopeFactorUp: 1, SlopeFactorDown: 1, KernelRadius: 1}
	return s, est, hist, u
}

// TestLinearPolatedInteriorGapIsAffine checks spec.md §8.4: a gap between
// two supported bins is filled with the straight line connecting them.
func TestLinearPolatedInteriorGapIsAffine(t *testing.T) {
	s, est, hist, u := newLinearPolatedFixture(t)
	out := s.GetWeights(est, hist, u)

	centers := u.GetBinningCentered()
	y0, y1 := out.At(2), out.At(4)
	x0, x1 := centers[2], centers[4]
	slope := (y1 - y0) / (x1 - x0)
	want := y0 + slope*(centers[3]-x0)
	if math.Abs(out.At(3)-want) > 1e-9 {
		t.Errorf("interior gap bin 3: lnw=%v, want %v (affine between bins 2 and 4)", out.At(3), want)
	}
}

// TestLinearPolatedBoundaryExtrapolationIsAffine checks spec.md §8.4: bins
// outside the supported range extend the boundary weight along a single
// slope, and GetExtrapolatedWeight agrees with the values written into the
// returned array for bins just beyond support.
func TestLinearPolatedBoundaryExtrapolationIsAffine(t *testing.T) {
	s, est, hist, u := newLinearPolatedFixture(t)
	out := s.GetWeights(est, hist, u)
	centers := u.GetBinningCentered()

	// Bins 0 (left of first-supported bin 1) and 6 (right of
	// last-supported bin 5) must lie on the cached boundary slope.
	wantLeft := s.Left.Lnw + s.Left.Slope*(centers[0]-s.Left.Center)
	if math.Abs(out.At(0)-wantLeft) > 1e-9 {
		t.Errorf("left boundary bin 0: lnw=%v, want %v", out.At(0), wantLeft)
	}
	wantRight := s.Right.Lnw + s.Right.Slope*(centers[6]-s.Right.Center)
	if math.Abs(out.At(6)-wantRight) > 1e-9 {
		t.Errorf("right boundary bin 6: lnw=%v, want %v", out.At(6), wantRight)
	}

	// GetExtrapolatedWeight must answer a lookup beyond the binning
	// consistently with the boundary slope just used.
	got := s.GetExtrapolatedWeight(centers[6]+1, out, est, hist, u)
	want := s.Right.Lnw + s.Right.Slope*(centers[6]+1-s.Right.Center)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("GetExtrapolatedWeight beyond support: got %v, want %v", got, want)
	}
}
