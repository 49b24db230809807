// Package array implements the numeric container shared by the rest of
// Muninn: an N-dimensional array of float64 (or, via BoolArray, bool) with
// element-wise arithmetic, reductions, shape extension and masked
// iteration. Every other package in this module stores its per-bin state
// (counts, log-weights, support masks, ...) in one of these containers.
//
// The reductions reuse gonum's numerically stable slice routines rather
// than reimplementing them; Array only adds shape bookkeeping and masking
// on top.
package array

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Array is a dense, row-major, N-dimensional array of float64.
type Array struct {
	shape []int
	data  []float64
}

// New allocates a zero-filled Array of the given shape.
func New(shape ...int) *Array {
	n := size(shape)
	return &Array{shape: append([]int(nil), shape...), data: make([]float64, n)}
}

// NewFromData wraps data (taken by reference, not copied) with shape.
// It panics if len(data) does not match the product of shape.
func NewFromData(data []float64, shape ...int) *Array {
	if len(data) != size(shape) {
		panic(fmt.Sprintf("array: data length %d does not match shape %v", len(data), shape))
	}
	return &Array{shape: append([]int(nil), shape...), data: data}
}

// Full returns a new Array of the given shape with every element set to v.
func Full(v float64, shape ...int) *Array {
	a := New(shape...)
	for i := range a.data {
		a.data[i] = v
	}
	return a
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Shape returns the array's dimensions. The returned slice must not be
// mutated by the caller.
func (a *Array) Shape() []int { return a.shape }

// Len returns the total number of elements.
func (a *Array) Len() int { return len(a.data) }

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.shape) }

// Data exposes the underlying backing slice in row-major order. Callers may
// read or write through it; it aliases the Array.
func (a *Array) Data() []float64 { return a.data }

// At returns the element at the given linear (1-D) index. Muninn binnings
// are strictly 1-D (see Binner), so every call site in this module uses the
// 1-D form; the N-D shape machinery exists for ShapeMismatch-checked
// element-wise ops and for parity with the general-purpose kernel the
// design notes describe.
func (a *Array) At(i int) float64 { return a.data[i] }

// Set assigns the element at linear index i.
func (a *Array) Set(i int, v float64) { a.data[i] = v }

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	data := make([]float64, len(a.data))
	copy(data, a.data)
	return &Array{shape: append([]int(nil), a.shape...), data: data}
}

// SameShape reports whether a and b have identical shapes.
func (a *Array) SameShape(b *Array) bool {
	if len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	return true
}

// checkShape panics with a ShapeMismatch-flavored message if a and b differ
// in shape. Shape mismatches are programmer errors (see the error taxonomy
// in the top-level package) and are therefore not propagated as values here.
func (a *Array) checkShape(b *Array) {
	if !a.SameShape(b) {
		panic(fmt.Sprintf("array: shape mismatch: %v vs %v", a.shape, b.shape))
	}
}

// AddTo performs dst = a + b element-wise, returning dst.
func AddTo(dst, a, b *Array) *Array {
	a.checkShape(b)
	dst.checkShape(a)
	floats.AddTo(dst.data, a.data, b.data)
	return dst
}

// Add returns a new array holding a + b element-wise.
func Add(a, b *Array) *Array {
	return AddTo(New(a.shape...), a, b)
}

// Scale multiplies every element of a by c in place.
func (a *Array) Scale(c float64) {
	floats.Scale(c, a.data)
}

// AddScalar adds c to every element of a in place.
func (a *Array) AddScalar(c float64) {
	floats.AddConst(c, a.data)
}

// Sum returns the sum of all elements.
func (a *Array) Sum() float64 {
	return floats.Sum(a.data)
}

// Max returns the maximum element and panics on an empty array.
func (a *Array) Max() float64 {
	return floats.Max(a.data)
}

// ArgMax returns the index of the maximum element.
func (a *Array) ArgMax() int {
	return floats.MaxIdx(a.data)
}

// LogSumExp returns ln(sum(exp(a))), computed in a numerically stable
// fashion (factoring out the maximum before exponentiating), delegating to
// gonum/floats' implementation of the same trick used throughout the
// estimator.
func (a *Array) LogSumExp() float64 {
	return floats.LogSumExp(a.data)
}

// LogSumExpMasked returns ln(sum_{i : mask[i]} exp(a[i])). If no element of
// mask is true, it returns math.Inf(-1) (the log of an empty sum).
func (a *Array) LogSumExpMasked(mask *BoolArray) float64 {
	a.checkShapeBool(mask)
	var tmp []float64
	for i, v := range a.data {
		if mask.data[i] {
			tmp = append(tmp, v)
		}
	}
	if len(tmp) == 0 {
		return math.Inf(-1)
	}
	return floats.LogSumExp(tmp)
}

// checkShapeBool panics on shape mismatch between a float Array and a
// BoolArray mask.
func (a *Array) checkShapeBool(m *BoolArray) {
	if len(a.shape) != len(m.shape) {
		panic(fmt.Sprintf("array: shape mismatch: %v vs %v", a.shape, m.shape))
	}
	for i := range a.shape {
		if a.shape[i] != m.shape[i] {
			panic(fmt.Sprintf("array: shape mismatch: %v vs %v", a.shape, m.shape))
		}
	}
}

// Extend1D returns a new 1-D array padded with padLeft zeros on the left and
// padRight zeros on the right. It panics if a is not rank 1; the 1-D
// binners are the only callers.
func (a *Array) Extend1D(padLeft, padRight int) *Array {
	if len(a.shape) != 1 {
		panic("array: Extend1D requires a rank-1 array")
	}
	if padLeft < 0 || padRight < 0 {
		panic("array: negative padding")
	}
	out := New(a.shape[0] + padLeft + padRight)
	copy(out.data[padLeft:padLeft+len(a.data)], a.data)
	return out
}

// Iter1D calls f for every index of a rank-1 array in order.
func (a *Array) Iter1D(f func(i int, v float64)) {
	for i, v := range a.data {
		f(i, v)
	}
}

// BoolArray is the mask counterpart of Array: a dense N-D array of bool,
// used throughout Muninn to track which bins are "in support"
// (sum_N >= min_count).
type BoolArray struct {
	shape []int
	data  []bool
}

// NewBool allocates a false-filled BoolArray of the given shape.
func NewBool(shape ...int) *BoolArray {
	return &BoolArray{shape: append([]int(nil), shape...), data: make([]bool, size(shape))}
}

// NewBoolFromData wraps data (by reference) with shape.
func NewBoolFromData(data []bool, shape ...int) *BoolArray {
	if len(data) != size(shape) {
		panic(fmt.Sprintf("array: data length %d does not match shape %v", len(data), shape))
	}
	return &BoolArray{shape: append([]int(nil), shape...), data: data}
}

// Shape returns the mask's dimensions.
func (m *BoolArray) Shape() []int { return m.shape }

// Len returns the total number of elements.
func (m *BoolArray) Len() int { return len(m.data) }

// Data exposes the underlying backing slice in row-major order.
func (m *BoolArray) Data() []bool { return m.data }

// At returns the element at linear index i.
func (m *BoolArray) At(i int) bool { return m.data[i] }

// Set assigns the element at linear index i.
func (m *BoolArray) Set(i int, v bool) { m.data[i] = v }

// Clone returns a deep copy.
func (m *BoolArray) Clone() *BoolArray {
	data := make([]bool, len(m.data))
	copy(data, m.data)
	return &BoolArray{shape: append([]int(nil), m.shape...), data: data}
}

// Count returns the number of true elements.
func (m *BoolArray) Count() int {
	n := 0
	for _, v := range m.data {
		if v {
			n++
		}
	}
	return n
}

// Extend1D returns a new 1-D mask padded with padLeft/padRight false values.
func (m *BoolArray) Extend1D(padLeft, padRight int) *BoolArray {
	if len(m.shape) != 1 {
		panic("array: Extend1D requires a rank-1 array")
	}
	out := NewBool(m.shape[0] + padLeft + padRight)
	copy(out.data[padLeft:padLeft+len(m.data)], m.data)
	return out
}

// And returns the element-wise logical AND of m and other.
func (m *BoolArray) And(other *BoolArray) *BoolArray {
	if !sameShape(m.shape, other.shape) {
		panic("array: shape mismatch")
	}
	out := NewBool(m.shape...)
	for i := range m.data {
		out.data[i] = m.data[i] && other.data[i]
	}
	return out
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GreaterEqualScalar returns a mask with true wherever a's element is >= c.
func GreaterEqualScalar(a *Array, c float64) *BoolArray {
	out := NewBool(a.shape...)
	for i, v := range a.data {
		out.data[i] = v >= c
	}
	return out
}
