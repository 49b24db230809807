package estimator

import (
	"errors"
	"math"
	"testing"

	"github.com/jfrellsen/muninn/errs"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/histogram"
	"github.com/jfrellsen/muninn/history"
)

func TestEstimateSymmetricHistoriesConverge(t *testing.T) {
	const nbins = 3
	flat := []float64{0, 0, 0}

	hist := history.New(nbins, 10, 5, history.DropNone)
	hist.AddHistogram(histogram.NewFromData([]float64{10, 10, 10}, flat))
	hist.AddHistogram(histogram.NewFromData([]float64{10, 10, 10}, flat))

	m := NewMLE(Accumulated, 200, 1e-10)
	est := estimate.New(nbins)
	if err := m.Estimate(hist, est); err != nil {
		t.Fatalf("Estimate returned error: %v", err)
	}
	if !est.X0Explicit {
		t.Fatal("expected a reference bin to be chosen")
	}
	if est.Support.Count() != nbins {
		t.Fatalf("expected every bin to be supported, got %d/%d", est.Support.Count(), nbins)
	}

	// The problem is fully symmetric across bins (identical counts,
	// identical flat weights on both histograms), so the MLE solution
	// must assign every bin the same lnG, up to Newton's tolerance.
	ref := est.LnG.At(0)
	for b := 1; b < nbins; b++ {
		if math.Abs(est.LnG.At(b)-ref) > 1e-6 {
			t.Errorf("bin %d: lnG=%v, want approximately %v (symmetric problem)", b, est.LnG.At(b), ref)
		}
	}
}

func TestEstimateNoOverlapBetweenDisjointHistograms(t *testing.T) {
	const nbins = 4
	flat := make([]float64, nbins)

	hist := history.New(nbins, 10, 5, history.DropNone)
	// Old histogram only ever observed bins 0-1; the newest only observed
	// bins 2-3 -- disjoint support, so the newest has no usable bin to
	// seed its free energy from.
	hist.AddHistogram(histogram.NewFromData([]float64{20, 20, 0, 0}, flat))
	hist.AddHistogram(histogram.NewFromData([]float64{0, 0, 20, 20}, flat))

	m := NewMLE(Accumulated, 200, 1e-10)
	est := estimate.New(nbins)
	err := m.Estimate(hist, est)
	if err == nil {
		t.Fatal("expected a NoOverlapError for disjoint histories")
	}
	var noOverlap *errs.NoOverlapError
	if !errors.As(err, &noOverlap) {
		t.Errorf("expected *errs.NoOverlapError, got %T: %v", err, err)
	}
}

func TestEstimateSingleHistogramIsExactOnItsOwnCounts(t *testing.T) {
	const nbins = 3
	lnw := []float64{0, 0, 0}

	hist := history.New(nbins, 10, 1, history.DropNone)
	hist.AddHistogram(histogram.NewFromData([]float64{1, 2, 4}, lnw))

	m := NewMLE(Accumulated, 200, 1e-10)
	est := estimate.New(nbins)
	if err := m.Estimate(hist, est); err != nil {
		t.Fatalf("Estimate returned error: %v", err)
	}

	// With a single histogram and flat weights, the MLE's lnG must equal
	// ln(N(b)) up to a single additive constant fixed at the reference bin.
	offset := math.Log(1) - est.LnG.At(0)
	for b, n := range []float64{1, 2, 4} {
		want := math.Log(n) - offset
		if math.Abs(est.LnG.At(b)-want) > 1e-6 {
			t.Errorf("bin %d: lnG=%v, want %v", b, est.LnG.At(b), want)
		}
	}
}
