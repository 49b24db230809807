package binner

import (
	"math"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/errs"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/history"
)

// StdBins is the default number of bins per estimated standard deviation
// used to pick the uniform bin width when one isn't preset (spec.md §4.1).
const StdBins = 20

// UniformBinner partitions the energy axis into nbins bins of a single
// fixed width. CalcBin and extension are both O(1).
type UniformBinner struct {
	// BinWidth, if > 0, fixes the bin width; Initialize will not derive it
	// from the bootstrap sample. Corresponds to the "bin_width" setting.
	BinWidth float64
	// ExtendPad is the number of extra bins appended beyond what is
	// strictly required to cover an out-of-range value (the original's
	// "extend_nbins"), absorbed on the overshooting side only.
	ExtendPad int
	// MaxBins caps the total number of bins an Extend may grow to.
	MaxBins int

	e0    float64
	width float64
	nbins int
}

var _ Binner = (*UniformBinner)(nil)

// NewUniformBinner constructs a binner with the given fixed width (0 to
// derive it from the bootstrap sample), extend padding and bin cap.
func NewUniformBinner(binWidth float64, extendPad, maxBins int) *UniformBinner {
	return &UniformBinner{BinWidth: binWidth, ExtendPad: extendPad, MaxBins: maxBins}
}

// Initialize implements Binner.
func (u *UniformBinner) Initialize(values []float64, beta float64) error {
	width := u.BinWidth
	if width <= 0 {
		sigma, err := estimateScale(values)
		if err != nil {
			return err
		}
		width = sigma / StdBins
	}
	min, max := minMax(values)
	e0 := min - width/2
	eMax := max + width/2
	nbins := int(math.Ceil((eMax - e0) / width))
	if nbins < 1 {
		nbins = 1
	}

	u.width = width
	u.e0 = e0
	u.nbins = nbins
	return nil
}

// LoadBinning implements Binner by treating edges as already uniformly
// spaced (the width is taken from the first gap) rather than re-deriving
// a width from a bootstrap sample.
func (u *UniformBinner) LoadBinning(edges []float64) error {
	if len(edges) < 2 {
		return &errs.ConfigError{Msg: "uniform binner: LoadBinning needs at least two edges"}
	}
	u.e0 = edges[0]
	u.width = edges[1] - edges[0]
	u.nbins = len(edges) - 1
	if u.width <= 0 {
		return &errs.ConfigError{Msg: "uniform binner: LoadBinning edges must be strictly ascending"}
	}
	return nil
}

// CalcBin implements Binner.
func (u *UniformBinner) CalcBin(value float64) int {
	return int(math.Floor((value - u.e0) / u.width))
}

// CalcBinValidated implements Binner.
func (u *UniformBinner) CalcBinValidated(value float64) (int, bool) {
	return calcBinValidated(u, value)
}

// Extend implements Binner.
func (u *UniformBinner) Extend(value float64, est *estimate.Estimate, hist *history.History, lnw *array.Array) (int, int, error) {
	return u.extend(value, u.ExtendPad)
}

// Include implements Binner.
func (u *UniformBinner) Include(value float64, est *estimate.Estimate, hist *history.History, lnw *array.Array) (int, int, error) {
	return u.extend(value, 0)
}

func (u *UniformBinner) extend(value float64, pad int) (int, int, error) {
	bin, inRange := u.CalcBinValidated(value)
	if inRange {
		return 0, 0, nil
	}
	var addLeft, addRight int
	if bin < 0 {
		energyOvershoot := u.e0 - value
		addLeft = int(math.Ceil(energyOvershoot/u.width)) + pad
	} else {
		energyOvershoot := value - (u.e0 + float64(u.nbins)*u.width)
		addRight = int(math.Floor(energyOvershoot/u.width)) + 1 + pad
	}
	newTotal := u.nbins + addLeft + addRight
	if u.MaxBins > 0 && newTotal > u.MaxBins {
		return 0, 0, &errs.MaxBinsExceededError{Requested: newTotal, Max: u.MaxBins}
	}
	u.e0 -= float64(addLeft) * u.width
	u.nbins = newTotal
	return addLeft, addRight, nil
}

// GetBinning implements Binner.
func (u *UniformBinner) GetBinning() []float64 {
	edges := make([]float64, u.nbins+1)
	for i := range edges {
		edges[i] = u.e0 + float64(i)*u.width
	}
	return edges
}

// GetBinningCentered implements Binner.
func (u *UniformBinner) GetBinningCentered() []float64 {
	centers := make([]float64, u.nbins)
	for i := range centers {
		centers[i] = u.e0 + (float64(i)+0.5)*u.width
	}
	return centers
}

// GetBinWidths implements Binner.
func (u *UniformBinner) GetBinWidths() []float64 {
	widths := make([]float64, u.nbins)
	for i := range widths {
		widths[i] = u.width
	}
	return widths
}

// NBins implements Binner.
func (u *UniformBinner) NBins() int { return u.nbins }

// IsUniform implements Binner.
func (u *UniformBinner) IsUniform() bool { return true }
