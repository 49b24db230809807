// Package weight turns a density-of-states estimate into the log-weights
// a host MCMC driver uses for its Metropolis acceptance rule: it
// implements the multicanonical, 1/k, 1/k^p and fixed-weight schemes of
// spec.md §4.4, plus the LinearPolated wrapper that interpolates interior
// gaps and extrapolates (with slope limiting) outside support.
package weight

import (
	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/history"
)

// Scheme is the interface every weight scheme implements.
type Scheme interface {
	// GetWeights returns a fresh log-weight array over est's shape. bnr
	// may be nil when the binning is known to be uniform.
	GetWeights(est *estimate.Estimate, hist *history.History, bnr binner.Binner) *array.Array
}

// Extrapolator is implemented by weight schemes that can answer a
// lookup outside the current binning without extending it (currently
// only *LinearPolated). A caller type-asserts a Scheme to this interface
// rather than to the concrete *LinearPolated type, so the capability
// check stays in terms of what the scheme can do, not what it is.
type Extrapolator interface {
	GetExtrapolatedWeight(value float64, lnw *array.Array, est *estimate.Estimate, hist *history.History, bnr binner.Binner) float64
}

var _ Extrapolator = (*LinearPolated)(nil)
