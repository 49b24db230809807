package binner

import (
	"math"
	"math/rand"
	"testing"
)

func gaussianSample(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = r.NormFloat64() * 3
	}
	return out
}

// TestUniformBinnerRoundTrip checks spec.md §8.7: for any in-range value v,
// edges[CalcBin(v)] <= v < edges[CalcBin(v)+1].
func TestUniformBinnerRoundTrip(t *testing.T) {
	sample := gaussianSample(500, 1)
	u := NewUniformBinner(0, 0, 0)
	if err := u.Initialize(sample, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	edges := u.GetBinning()

	r := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		v := edges[0] + r.Float64()*(edges[len(edges)-1]-edges[0])
		bin, inRange := u.CalcBinValidated(v)
		if !inRange {
			t.Fatalf("value %v in [edges[0], edges[last]) reported out of range", v)
		}
		if !(edges[bin] <= v && v < edges[bin+1]) {
			t.Errorf("value %v: bin %d has edges [%v, %v), round-trip violated", v, bin, edges[bin], edges[bin+1])
		}
	}
}

// TestNonUniformDynamicBinnerRoundTrip mirrors
// TestUniformBinnerRoundTrip for the variable-width binner.
func TestNonUniformDynamicBinnerRoundTrip(t *testing.T) {
	sample := gaussianSample(500, 3)
	d := NewNonUniformDynamicBinner(0.5, 0)
	if err := d.Initialize(sample, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	edges := d.GetBinning()

	r := rand.New(rand.NewSource(4))
	for i := 0; i < 1000; i++ {
		v := edges[0] + r.Float64()*(edges[len(edges)-1]-edges[0])
		bin, inRange := d.CalcBinValidated(v)
		if !inRange {
			t.Fatalf("value %v in [edges[0], edges[last]) reported out of range", v)
		}
		if !(edges[bin] <= v && v < edges[bin+1]) {
			t.Errorf("value %v: bin %d has edges [%v, %v), round-trip violated", v, bin, edges[bin], edges[bin+1])
		}
	}
}

// TestNonUniformDynamicBinnerConstantResolution checks spec.md §8.8: an
// extension chosen from boundary slope alpha picks a width w such that
// w*|alpha| is approximately Resolution, by construction of
// w = |Resolution/alpha|.
func TestNonUniformDynamicBinnerConstantResolution(t *testing.T) {
	sample := gaussianSample(200, 5)
	const resolution = 0.3
	d := NewNonUniformDynamicBinner(resolution, 0)
	if err := d.Initialize(sample, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	alpha := 0.05
	d.PresetSlopeRight = &alpha

	edgesBefore := d.GetBinning()
	beyond := edgesBefore[len(edgesBefore)-1] + 50
	addLeft, addRight, err := d.Extend(beyond, nil, nil, nil)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if addLeft != 0 || addRight == 0 {
		t.Fatalf("expected a right-only extension, got addLeft=%d addRight=%d", addLeft, addRight)
	}

	widths := d.GetBinWidths()
	newWidth := widths[len(widths)-1]
	got := newWidth * math.Abs(alpha)
	if math.Abs(got-resolution) > 1e-9 {
		t.Errorf("width*alpha = %v, want %v (Resolution)", got, resolution)
	}
}
