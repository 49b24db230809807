package binner

import (
	"math"
	"sort"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/errs"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/history"
	"github.com/jfrellsen/muninn/statlog"
)

// NonUniformDynamicBinner partitions the energy axis into variable-width
// bins chosen so that, approximately, neighboring bins differ in
// log-weight by Resolution (spec.md §4.1). Extension estimates the local
// slope of the entropy estimate at the support boundary and picks a new
// bin width from it.
type NonUniformDynamicBinner struct {
	// Resolution is r, the target per-bin change in log-weight.
	Resolution float64
	// InitialWidthIsMaxLeft/Right cap the newly chosen width at the
	// initial bin width w0 on that side.
	InitialWidthIsMaxLeft, InitialWidthIsMaxRight bool
	// MaxBins caps the total number of bins an Extend may grow to.
	MaxBins int
	// ExtendFactor adds ExtendFactor/Resolution extra bins to every
	// extension, beyond what is strictly required to cover the value.
	ExtendFactor float64
	// KernelRadius is sigma: the local-slope estimate's search window must
	// contain at least 3*KernelRadius supported bins.
	KernelRadius int
	// PresetSlopeLeft/Right, if non-nil, are used instead of the
	// estimated boundary slope on that side. CGEcollection's
	// UnifyBinnersExtension sets these so pooled chains extend with a
	// consistent width.
	PresetSlopeLeft, PresetSlopeRight *float64

	edges []float64 // nbins+1 edges, ascending
	w0    float64   // initial uniform bin width, from Initialize

	lastAlphaLeft, lastAlphaRight float64 // boundary slopes used by the most recent extend, kept for the statistics log
}

var _ Binner = (*NonUniformDynamicBinner)(nil)

// NewNonUniformDynamicBinner constructs a binner with the given resolution
// and bin cap; other fields may be set on the returned value before the
// first Initialize/Extend call.
func NewNonUniformDynamicBinner(resolution float64, maxBins int) *NonUniformDynamicBinner {
	return &NonUniformDynamicBinner{Resolution: resolution, MaxBins: maxBins}
}

// Initialize implements Binner. If beta is 0, an initial beta is derived
// from the bootstrap sample's fractile-estimated scale sigma as
// beta0 = 1/sigma, mirroring UniformBinner's width = sigma/StdBins: both
// binners size their first bins off the same Gaussian-equivalent scale
// estimate.
func (d *NonUniformDynamicBinner) Initialize(values []float64, beta float64) error {
	if beta == 0 {
		sigma, err := estimateScale(values)
		if err != nil {
			return err
		}
		beta = 1 / sigma
	}
	d.w0 = math.Abs(d.Resolution / beta)
	if d.w0 <= 0 {
		return &errs.ConfigError{Msg: "non-uniform binner: derived initial bin width is non-positive"}
	}

	min, max := minMax(values)
	e0 := min - d.w0/2
	eMax := max + d.w0/2
	nbins := int(math.Ceil((eMax - e0) / d.w0))
	if nbins < 1 {
		nbins = 1
	}
	edges := make([]float64, nbins+1)
	for i := range edges {
		edges[i] = e0 + float64(i)*d.w0
	}
	d.edges = edges
	return nil
}

// LoadBinning implements Binner. w0, the reference width used to cap
// newly chosen extension widths, is taken from the first gap; it only
// ever matters again if InitialWidthIsMaxLeft/Right is set.
func (d *NonUniformDynamicBinner) LoadBinning(edges []float64) error {
	if len(edges) < 2 {
		return &errs.ConfigError{Msg: "non-uniform binner: LoadBinning needs at least two edges"}
	}
	d.edges = append([]float64(nil), edges...)
	d.w0 = edges[1] - edges[0]
	return nil
}

// CalcBin implements Binner. Non-uniform bins require a search; since
// edges is sorted, out-of-range values are reported as -1 (below) or
// NBins() (above) rather than a distance-bearing offset, as that distance
// has no fixed meaning over variable-width bins.
func (d *NonUniformDynamicBinner) CalcBin(value float64) int {
	if value < d.edges[0] {
		return -1
	}
	if value >= d.edges[len(d.edges)-1] {
		return d.NBins()
	}
	// edges[i] <= value < edges[i+1]; sort.Search finds the first edge
	// strictly greater than value, so the bin is that index minus one.
	i := sort.Search(len(d.edges), func(i int) bool { return d.edges[i] > value })
	return i - 1
}

// CalcBinValidated implements Binner.
func (d *NonUniformDynamicBinner) CalcBinValidated(value float64) (int, bool) {
	return calcBinValidated(d, value)
}

// NBins implements Binner.
func (d *NonUniformDynamicBinner) NBins() int { return len(d.edges) - 1 }

// IsUniform implements Binner.
func (d *NonUniformDynamicBinner) IsUniform() bool { return false }

// GetBinning implements Binner.
func (d *NonUniformDynamicBinner) GetBinning() []float64 {
	return append([]float64(nil), d.edges...)
}

// GetBinningCentered implements Binner.
func (d *NonUniformDynamicBinner) GetBinningCentered() []float64 {
	n := d.NBins()
	centers := make([]float64, n)
	for i := 0; i < n; i++ {
		centers[i] = (d.edges[i] + d.edges[i+1]) / 2
	}
	return centers
}

// GetBinWidths implements Binner.
func (d *NonUniformDynamicBinner) GetBinWidths() []float64 {
	n := d.NBins()
	widths := make([]float64, n)
	for i := 0; i < n; i++ {
		widths[i] = d.edges[i+1] - d.edges[i]
	}
	return widths
}

// Extend implements Binner.
func (d *NonUniformDynamicBinner) Extend(value float64, est *estimate.Estimate, hist *history.History, lnw *array.Array) (int, int, error) {
	return d.extend(value, est, hist, d.ExtendFactor)
}

// Include implements Binner.
func (d *NonUniformDynamicBinner) Include(value float64, est *estimate.Estimate, hist *history.History, lnw *array.Array) (int, int, error) {
	return d.extend(value, est, hist, 0)
}

func (d *NonUniformDynamicBinner) extend(value float64, est *estimate.Estimate, hist *history.History, extendFactor float64) (int, int, error) {
	bin, inRange := d.CalcBinValidated(value)
	if inRange {
		return 0, 0, nil
	}
	left := bin < 0

	boundary := d.supportBoundary(est, left)
	alpha := d.boundarySlope(boundary, est, hist, left)
	if alpha == 0 {
		alpha = d.Resolution / d.w0
	}
	if left {
		d.lastAlphaLeft = alpha
	} else {
		d.lastAlphaRight = alpha
	}
	wNew := math.Abs(d.Resolution / alpha)
	if left && d.InitialWidthIsMaxLeft && wNew > d.w0 {
		wNew = d.w0
	}
	if !left && d.InitialWidthIsMaxRight && wNew > d.w0 {
		wNew = d.w0
	}

	var gap float64
	if left {
		gap = d.edges[0] - value
	} else {
		gap = value - d.edges[len(d.edges)-1]
	}
	extra := 0.0
	if d.Resolution > 0 {
		extra = extendFactor / d.Resolution
	}
	nAdd := int(math.Ceil(math.Abs(gap)/wNew)) + 1 + int(math.Ceil(extra))

	newTotal := d.NBins() + nAdd
	if d.MaxBins > 0 && newTotal > d.MaxBins {
		return 0, 0, &errs.MaxBinsExceededError{Requested: newTotal, Max: d.MaxBins}
	}

	if left {
		newEdges := make([]float64, nAdd+len(d.edges))
		for i := 0; i < nAdd; i++ {
			newEdges[i] = d.edges[0] - float64(nAdd-i)*wNew
		}
		copy(newEdges[nAdd:], d.edges)
		d.edges = newEdges
		return nAdd, 0, nil
	}
	newEdges := append([]float64(nil), d.edges...)
	last := newEdges[len(newEdges)-1]
	for i := 1; i <= nAdd; i++ {
		newEdges = append(newEdges, last+float64(i)*wNew)
	}
	d.edges = newEdges
	return 0, nAdd, nil
}

// supportBoundary returns the outermost supported bin on the given side,
// falling back to the outermost bin if nothing is supported yet.
func (d *NonUniformDynamicBinner) supportBoundary(est *estimate.Estimate, left bool) int {
	n := d.NBins()
	if est == nil || est.Support == nil || est.Support.Len() != n {
		if left {
			return 0
		}
		return n - 1
	}
	if left {
		for i := 0; i < n; i++ {
			if est.Support.At(i) {
				return i
			}
		}
		return 0
	}
	for i := n - 1; i >= 0; i-- {
		if est.Support.At(i) {
			return i
		}
	}
	return n - 1
}

var _ statlog.Loggable = (*NonUniformDynamicBinner)(nil)

// AddStatisticsToLog implements statlog.Loggable, recording the boundary
// slopes used by the most recent extension alongside the entropy
// estimate, so a log reader can see why a given bin width was chosen.
func (d *NonUniformDynamicBinner) AddStatisticsToLog(w *statlog.Writer) {
	w.AddEntry("boundary_slope_left", d.lastAlphaLeft)
	w.AddEntry("boundary_slope_right", d.lastAlphaRight)
}

// LastBoundarySlopes returns the left/right slopes used by the most
// recent Extend/Include call on either side, for a pooled collection's
// unification pass (package collection) to copy between chains.
func (d *NonUniformDynamicBinner) LastBoundarySlopes() (left, right float64) {
	return d.lastAlphaLeft, d.lastAlphaRight
}

func (d *NonUniformDynamicBinner) boundarySlope(b0 int, est *estimate.Estimate, hist *history.History, left bool) float64 {
	if left && d.PresetSlopeLeft != nil {
		return *d.PresetSlopeLeft
	}
	if !left && d.PresetSlopeRight != nil {
		return *d.PresetSlopeRight
	}
	if est == nil || est.Support == nil || est.Support.Count() == 0 || hist == nil {
		return 0
	}
	centers := d.GetBinningCentered()
	return WeightedSlope(b0, est.LnG, est.Support, hist.SumN(), centers, d.KernelRadius)
}
