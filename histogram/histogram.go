// Package histogram implements the per-round count/log-weight pair that
// Muninn accumulates observations into and that History stores a bounded
// sequence of.
package histogram

import "github.com/jfrellsen/muninn/array"

// Histogram holds observation counts N and log-weights Lnw over a shared
// 1-D shape, plus the running total N_ = sum(N). Extension pads N with
// zeros and either installs caller-supplied log-weights or pads Lnw with
// zeros; SetLnw replaces only Lnw.
type Histogram struct {
	N   *array.Array // counts, one non-negative float64 per bin
	Lnw *array.Array // log-weights, one per bin

	n float64 // cached sum(N); kept in sync by AddObservation/Extend
}

// New allocates an empty Histogram of the given number of bins, with Lnw
// initialized to the supplied log-weights (e.g. -beta0*center(bin) during
// initial collection, or the weight scheme's output after a round).
func New(nbins int, lnw []float64) *Histogram {
	if len(lnw) != nbins {
		panic("histogram: len(lnw) does not match nbins")
	}
	return &Histogram{
		N:   array.New(nbins),
		Lnw: array.NewFromData(append([]float64(nil), lnw...), nbins),
	}
}

// NewFromData allocates a Histogram with pre-existing counts and
// log-weights (e.g. a round recovered from a statistics log), keeping the
// cached sum(N) consistent with the supplied counts.
func NewFromData(n, lnw []float64) *Histogram {
	if len(n) != len(lnw) {
		panic("histogram: NewFromData: len(n) does not match len(lnw)")
	}
	h := &Histogram{
		N:   array.NewFromData(append([]float64(nil), n...), len(n)),
		Lnw: array.NewFromData(append([]float64(nil), lnw...), len(lnw)),
	}
	for _, v := range n {
		h.n += v
	}
	return h
}

// NBins returns the number of bins.
func (h *Histogram) NBins() int { return h.N.Len() }

// Count returns n = sum(N).
func (h *Histogram) Count() float64 { return h.n }

// AddObservation increments N at bin and updates the running count.
// bin must be in [0, NBins()).
func (h *Histogram) AddObservation(bin int) {
	h.N.Set(bin, h.N.At(bin)+1)
	h.n++
}

// SetLnw replaces the log-weight array in place; N is untouched.
func (h *Histogram) SetLnw(lnw *array.Array) {
	if lnw.Len() != h.NBins() {
		panic("histogram: SetLnw shape mismatch")
	}
	h.Lnw = lnw
}

// Extend pads N with padLeft/padRight zero counts and Lnw with the
// corresponding values (typically computed by the weight scheme for the
// newly created bins before this call).
func (h *Histogram) Extend(padLeft, padRight int, newLnw *array.Array) {
	h.N = h.N.Extend1D(padLeft, padRight)
	if newLnw != nil {
		if newLnw.Len() != h.N.Len() {
			panic("histogram: Extend newLnw shape mismatch")
		}
		h.Lnw = newLnw
	} else {
		h.Lnw = h.Lnw.Extend1D(padLeft, padRight)
	}
}

// Clone returns a deep copy.
func (h *Histogram) Clone() *Histogram {
	return &Histogram{N: h.N.Clone(), Lnw: h.Lnw.Clone(), n: h.n}
}

// Collection is a small typed slice of Histograms, modeling the original
// implementation's HistogramCollection: GE tracks a (possibly >1) set of
// "current" in-flight histograms, even though CGE, the 1-D host-facing
// type, always keeps exactly one.
type Collection struct {
	Histograms []*Histogram
}

// NewCollection wraps the given histograms.
func NewCollection(hs ...*Histogram) *Collection {
	return &Collection{Histograms: hs}
}

// Empty reports whether every histogram in the collection has zero count.
func (c *Collection) Empty() bool {
	for _, h := range c.Histograms {
		if h.Count() > 0 {
			return false
		}
	}
	return true
}
