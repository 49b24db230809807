package canonical

import (
	"math"
	"testing"

	"github.com/jfrellsen/muninn/array"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestWeightsUniformSupportRecoversBoltzmann(t *testing.T) {
	edges := []float64{0, 1, 2, 3, 4}
	lnG := array.NewFromData([]float64{0, 0, 0, 0}, 4) // flat density of states
	support := array.NewBoolFromData([]bool{true, true, true, true}, 4)
	samples := []float64{0.5, 1.5, 2.5, 3.5}

	beta := 1.0
	w, err := Weights(edges, lnG, support, samples, beta)
	if err != nil {
		t.Fatalf("Weights returned error: %v", err)
	}

	var sum float64
	for _, v := range w {
		sum += v
	}
	if !approxEqual(sum, 1, 1e-9) {
		t.Errorf("weights should sum to 1, got %v", sum)
	}

	// With one sample per bin, each weight is exp(-beta*center)/Z.
	centers := []float64{0.5, 1.5, 2.5, 3.5}
	lnZ := math.Inf(-1)
	for _, c := range centers {
		v := -beta * c
		if math.IsInf(lnZ, -1) {
			lnZ = v
		} else if v > lnZ {
			lnZ = v + math.Log1p(math.Exp(lnZ-v))
		} else {
			lnZ = lnZ + math.Log1p(math.Exp(v-lnZ))
		}
	}
	for i, c := range centers {
		want := math.Exp(-beta*c - lnZ)
		if !approxEqual(w[i], want, 1e-9) {
			t.Errorf("weight[%d] = %v, want %v", i, w[i], want)
		}
	}
}

func TestWeightsOutOfRangeAndUnsupportedAreZero(t *testing.T) {
	edges := []float64{0, 1, 2}
	lnG := array.NewFromData([]float64{0, 0}, 2)
	support := array.NewBoolFromData([]bool{true, false}, 2)
	samples := []float64{-1, 0.5, 1.5, 5}

	w, err := Weights(edges, lnG, support, samples, 0)
	if err != nil {
		t.Fatalf("Weights returned error: %v", err)
	}
	if w[0] != 0 {
		t.Errorf("below-range sample should get weight 0, got %v", w[0])
	}
	if w[2] != 0 {
		t.Errorf("unsupported-bin sample should get weight 0, got %v", w[2])
	}
	if w[3] != 0 {
		t.Errorf("above-range sample should get weight 0, got %v", w[3])
	}
	if w[1] == 0 {
		t.Errorf("in-range supported sample should get a nonzero weight")
	}
}

func TestWeightsShapeMismatch(t *testing.T) {
	edges := []float64{0, 1, 2}
	lnG := array.New(3)
	support := array.NewBool(3)
	if _, err := Weights(edges, lnG, support, nil, 1); err == nil {
		t.Fatal("expected a shape-mismatch error, got nil")
	}
}
