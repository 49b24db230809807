package weight

import (
	"math"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/history"
)

// Multicanonical implements lnw(b) = -lnG(b) on support, 0 off support.
// When the binning is non-uniform, ln(bin_width(b)) is added to every
// in-support entry, restoring the density g ~= G/deltaE (spec.md §4.4).
type Multicanonical struct{}

var _ Scheme = Multicanonical{}

// GetWeights implements Scheme.
func (Multicanonical) GetWeights(est *estimate.Estimate, hist *history.History, bnr binner.Binner) *array.Array {
	out := array.New(est.NBins())
	var widths []float64
	if bnr != nil && !bnr.IsUniform() {
		widths = bnr.GetBinWidths()
	}
	for i := 0; i < out.Len(); i++ {
		if !est.Support.At(i) {
			continue
		}
		v := -est.LnG.At(i)
		if widths != nil {
			v += math.Log(widths[i])
		}
		out.Set(i, v)
	}
	return out
}
