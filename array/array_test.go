package array

import (
	"math"
	"testing"
)

// TestLogSumExpShiftInvariance checks spec.md §8.6:
// logsumexp(x+c) = logsumexp(x) + c for any shift c, including large ones
// that would overflow/underflow a naive sum-of-exp implementation.
func TestLogSumExpShiftInvariance(t *testing.T) {
	base := []float64{-3, 0.5, 2, -1, 4}
	for _, c := range []float64{0, 50, -50, 700, -700} {
		a := NewFromData(append([]float64(nil), base...), len(base))
		b := NewFromData(shift(base, c), len(base))

		got := b.LogSumExp()
		want := a.LogSumExp() + c
		if math.IsInf(want, 0) {
			if !math.IsInf(got, sign(want)) {
				t.Errorf("shift %v: logsumexp=%v, want %v", c, got, want)
			}
			continue
		}
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("shift %v: logsumexp=%v, want %v", c, got, want)
		}
	}
}

func shift(xs []float64, c float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x + c
	}
	return out
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

// TestLogSumExpAtLeastMax checks spec.md §8.6: logsumexp(x) >= max(x),
// with equality only in the degenerate single-element case.
func TestLogSumExpAtLeastMax(t *testing.T) {
	data := []float64{-10, 3, 3, -1000, 1e6}
	a := NewFromData(append([]float64(nil), data...), len(data))
	got := a.LogSumExp()
	if got < a.Max() {
		t.Errorf("logsumexp=%v, want >= max=%v", got, a.Max())
	}
}

// TestLogSumExpMaskedEmptyIsNegInf checks that an all-false mask yields
// the log of an empty sum.
func TestLogSumExpMaskedEmptyIsNegInf(t *testing.T) {
	a := NewFromData([]float64{1, 2, 3}, 3)
	mask := NewBool(3)
	got := a.LogSumExpMasked(mask)
	if !math.IsInf(got, -1) {
		t.Errorf("LogSumExpMasked with empty mask = %v, want -Inf", got)
	}
}

// TestLogSumExpMaskedMatchesSubsetLogSumExp checks that masking picks out
// exactly the selected elements.
func TestLogSumExpMaskedMatchesSubsetLogSumExp(t *testing.T) {
	a := NewFromData([]float64{1, 2, 3, 4}, 4)
	mask := NewBoolFromData([]bool{true, false, true, false}, 4)
	got := a.LogSumExpMasked(mask)
	want := NewFromData([]float64{1, 3}, 2).LogSumExp()
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("LogSumExpMasked=%v, want %v", got, want)
	}
}

func TestExtend1DPadsWithZerosAndPreservesData(t *testing.T) {
	a := NewFromData([]float64{1, 2, 3}, 3)
	out := a.Extend1D(2, 1)
	want := []float64{0, 0, 1, 2, 3, 0}
	for i, v := range want {
		if out.At(i) != v {
			t.Errorf("index %d: got %v, want %v", i, out.At(i), v)
		}
	}
}
