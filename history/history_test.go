package history

import (
	"testing"

	"github.com/jfrellsen/muninn/histogram"
)

// TestDropOldestPossibleKeepsSupportIntact checks spec.md §8.9/scenario D:
// when evicting the oldest histogram would drop a bin below min_count, the
// history keeps it (growing past Memory) instead of shrinking support.
func TestDropOldestPossibleKeepsSupportIntact(t *testing.T) {
	const minCount = 5
	h := New(2, 2, minCount, DropOldestPossible)

	h.AddHistogram(histogram.NewFromData([]float64{5, 1}, []float64{0, 0})) // uniquely covers bin 0
	h.AddHistogram(histogram.NewFromData([]float64{0, 5}, []float64{0, 0}))
	h.AddHistogram(histogram.NewFromData([]float64{0, 5}, []float64{0, 0}))

	if h.Len() != 3 {
		t.Fatalf("expected History to keep all 3 histograms (removing the oldest would shrink bin 0's support), got Len()=%d", h.Len())
	}
	if h.SumN().At(0) < minCount {
		t.Errorf("bin 0's support was shrunk: sum_N(0)=%v, want >= %v", h.SumN().At(0), minCount)
	}
}

// TestDropOldestPossibleEvictsWhenSafe checks the counterpart case: once a
// bin's support no longer depends on the oldest histogram, eviction
// proceeds normally down to Memory.
func TestDropOldestPossibleEvictsWhenSafe(t *testing.T) {
	const minCount = 5
	h := New(1, 2, minCount, DropOldestPossible)

	h.AddHistogram(histogram.NewFromData([]float64{5}, []float64{0}))
	h.AddHistogram(histogram.NewFromData([]float64{5}, []float64{0}))
	h.AddHistogram(histogram.NewFromData([]float64{5}, []float64{0}))

	if h.Len() != 2 {
		t.Fatalf("expected History to settle at Memory=2, got Len()=%d", h.Len())
	}
	if h.SumN().At(0) < minCount {
		t.Errorf("sum_N(0)=%v, want >= %v", h.SumN().At(0), minCount)
	}
}

// TestDropAnyPossibleSkipsBlockedEntryAndRemovesNextSafeOne checks spec.md
// §8.9's DropAnyPossible: it scans past the oldest entries within the
// current overflow and removes the first one whose removal preserves
// support, even when the strictly oldest entry is not removable.
func TestDropAnyPossibleSkipsBlockedEntryAndRemovesNextSafeOne(t *testing.T) {
	const minCount = 5
	h := New(2, 1, minCount, DropAnyPossible)

	h0 := histogram.NewFromData([]float64{5, 0}, []float64{0, 0}) // uniquely covers bin 0
	h1 := histogram.NewFromData([]float64{0, 0}, []float64{0, 0}) // contributes nothing; always safe to drop
	h2 := histogram.NewFromData([]float64{0, 5}, []float64{0, 0}) // uniquely covers bin 1

	h.AddHistogram(h0)
	h.AddHistogram(h1)
	h.AddHistogram(h2)

	if h.Len() != 2 {
		t.Fatalf("expected History to settle at 2 (h0 and h2 block removal, h1 does not), got Len()=%d", h.Len())
	}
	remaining := h.Entries()
	if len(remaining) != 2 || remaining[0].Hist != h0 || remaining[1].Hist != h2 {
		t.Fatalf("expected the surviving entries to be h0 and h2 (h1 removed), got %d entries", len(remaining))
	}
	if h.SumN().At(0) < minCount || h.SumN().At(1) < minCount {
		t.Errorf("sum_N=%v, want every bin >= %v", h.SumN().Data(), minCount)
	}
}

// TestExtendGrowsEveryStoredHistogramAndSumN checks that Extend keeps
// sum_N consistent with the padded per-histogram counts.
func TestExtendGrowsEveryStoredHistogramAndSumN(t *testing.T) {
	h := New(2, 10, 1, DropNone)
	h.AddHistogram(histogram.NewFromData([]float64{3, 4}, []float64{0, 0}))
	h.Extend(1, 2)

	if h.NBins() != 5 {
		t.Fatalf("NBins()=%d, want 5", h.NBins())
	}
	want := []float64{0, 3, 4, 0, 0}
	for i, v := range want {
		if h.SumN().At(i) != v {
			t.Errorf("sum_N[%d]=%v, want %v", i, h.SumN().At(i), v)
		}
	}
}
