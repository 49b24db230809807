package muninn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/estimator"
	"github.com/jfrellsen/muninn/history"
	"github.com/jfrellsen/muninn/update"
	"github.com/jfrellsen/muninn/weight"
)

// gaussianEnergies is a small deterministic (seeded) stand-in for a host's
// energy stream: draws from a fixed-seed Gaussian, which is enough to
// exercise initial collection, binner extension and a handful of GMH
// re-estimation rounds without flaking.
func gaussianEnergies(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = r.NormFloat64() * 2
	}
	return out
}

func testSettings() Settings {
	return Settings{
		Binner:                 binner.NewUniformBinner(0.5, 2, 0),
		UpdateScheme:           update.NewIncreaseFactor(50, 1.5, -1, 5),
		WeightScheme:           weight.Multicanonical{},
		EstimatorMode:          estimator.Accumulated,
		EstimatorMaxIterations: 200,
		EstimatorTolerance:     1e-8,
		HistoryMemory:          10,
		HistoryMinCount:        5,
		HistoryMode:            history.DropNone,
		Beta0:                  0,
	}
}

func TestCGELeavesInitialCollectionAndEstimates(t *testing.T) {
	cge, err := NewCGE(testSettings())
	if err != nil {
		t.Fatalf("NewCGE: %v", err)
	}

	energies := gaussianEnergies(2000, 1)
	for _, e := range energies {
		if err := cge.AddObservation(e); err != nil {
			t.Fatalf("AddObservation(%v): %v", e, err)
		}
	}

	if cge.Initializing() {
		t.Fatal("CGE should have left initial collection after 2000 observations")
	}
	if cge.History().Len() == 0 {
		t.Fatal("expected at least one completed round in the history")
	}
	est := cge.Estimate()
	if est.Support.Count() == 0 {
		t.Fatal("expected a nonempty support mask after several rounds")
	}

	lnw, err := cge.GetLnWeights(0)
	if err != nil {
		t.Fatalf("GetLnWeights: %v", err)
	}
	if math.IsNaN(lnw) {
		t.Error("GetLnWeights returned NaN")
	}
}

func TestCGEOutOfRangeExtendsBinning(t *testing.T) {
	cge, err := NewCGE(testSettings())
	if err != nil {
		t.Fatalf("NewCGE: %v", err)
	}
	for _, e := range gaussianEnergies(60, 2) {
		if err := cge.AddObservation(e); err != nil {
			t.Fatalf("AddObservation: %v", err)
		}
	}
	if cge.Initializing() {
		t.Fatal("should have left initial collection")
	}

	before := len(cge.Binning())
	far := cge.Binning()[len(cge.Binning())-1] + 100
	if err := cge.AddObservation(far); err != nil {
		t.Fatalf("AddObservation(far): %v", err)
	}
	after := len(cge.Binning())
	if after <= before {
		t.Errorf("expected the binning to grow past the far observation: before=%d after=%d", before, after)
	}
}
