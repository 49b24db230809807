// Package collection implements CGEcollection pooling (spec.md §4.7): a
// set of independent CGE chains (typically one per parallel replica) that
// share energy observations during initial collection and, once every
// chain has left it, get their binners unified so later extensions grow in
// lockstep rather than drifting apart bin by bin.
package collection

import (
	"fmt"
	"math"

	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/errs"
)

// Collection pools a fixed set of chains sharing one binning policy. The
// orchestrator that drives each chain's AddObservation/GetLnWeights stays
// the host's responsibility (or the root muninn package's, for a host that
// wants it); Collection only owns the cross-chain unification step.
type Collection struct {
	Chains []Chain
	// Tolerance bounds CheckConsistentBinning's per-edge comparison.
	Tolerance float64
}

// New returns a Collection over the given chains with the given
// consistency tolerance.
func New(tolerance float64, chains ...Chain) *Collection {
	return &Collection{Chains: chains, Tolerance: tolerance}
}

// UnifyRange runs UnifyBinnersRange over the collection's chains.
func (c *Collection) UnifyRange() error {
	return UnifyBinnersRange(c.Chains)
}

// UnifyExtension runs UnifyBinnersExtension over the collection's chains.
func (c *Collection) UnifyExtension(lowestSupportedBin, highestSupportedBin []int) error {
	return UnifyBinnersExtension(c.Chains, lowestSupportedBin, highestSupportedBin)
}

// ConsistentBinning runs CheckConsistentBinning over the collection's
// chains at its configured Tolerance.
func (c *Collection) ConsistentBinning() bool {
	return CheckConsistentBinning(c.Chains, c.Tolerance)
}

// Chain is the subset of *muninn.CGE the collection operates on. It is
// declared locally, rather than importing the root package, to avoid an
// import cycle (the root package is the natural place to expose
// "NewCollection(settings...)" convenience constructors on top of this
// package, so the dependency has to run collection -> binner only).
type Chain interface {
	Binner() binner.Binner

	// Initializing reports whether the chain is still buffering a
	// bootstrap sample, i.e. which of unify_binners_range's two branches
	// applies.
	Initializing() bool
	// InitialObservations returns the chain's buffered bootstrap sample
	// during initial collection.
	InitialObservations() []float64
	// ReinitializeBinner re-derives the chain's binning from samples
	// (typically the pool's merged bootstrap sample).
	ReinitializeBinner(samples []float64) error
	// IncludeValue grows the chain's binning (without extend-side
	// padding) to cover value.
	IncludeValue(value float64) error
}

// UnifyBinnersRange implements spec.md §4.7's unify_binners_range: while
// every chain is still in initial collection, it merges all chains'
// buffered energies and re-initializes every chain's binner from that
// combined sample, so the pool starts out on identical binning rather
// than each chain's own (differently sized) sample. Once chains have left
// initial collection, it instead finds the lowest and highest bin center
// across all chains' binnings and calls IncludeValue with each on every
// chain, so every chain's binning grows to cover the full pooled range.
// Every bin center counts, whether or not the bin is in an estimate's
// support. Which branch runs is decided by the first chain alone.
func UnifyBinnersRange(chains []Chain) error {
	if len(chains) == 0 {
		return nil
	}

	if chains[0].Initializing() {
		var merged []float64
		for _, c := range chains {
			merged = append(merged, c.InitialObservations()...)
		}
		for _, c := range chains {
			if err := c.ReinitializeBinner(merged); err != nil {
				return err
			}
		}
		return nil
	}

	minValue, maxValue := math.Inf(1), math.Inf(-1)
	for _, c := range chains {
		centers := c.Binner().GetBinningCentered()
		if len(centers) == 0 {
			continue
		}
		if centers[0] < minValue {
			minValue = centers[0]
		}
		if centers[len(centers)-1] > maxValue {
			maxValue = centers[len(centers)-1]
		}
	}
	if math.IsInf(minValue, 1) {
		return nil
	}

	for _, c := range chains {
		if err := c.IncludeValue(minValue); err != nil {
			return err
		}
		if err := c.IncludeValue(maxValue); err != nil {
			return err
		}
	}
	return nil
}

// UnifyBinnersExtension finds, among the collection's dynamic binners, the
// chain with the widest supported range on each side and pushes that
// chain's boundary slope into every other chain's preset slope on that
// side. Unlike UnifyBinnersRange (which re-aligns every chain's actual
// edges), this only aligns the slope future extensions will use, so each
// side is considered independently: the left preset may come from one
// chain and the right from another.
func UnifyBinnersExtension(chains []Chain, lowestSupportedBin, highestSupportedBin []int) error {
	if len(chains) != len(lowestSupportedBin) || len(chains) != len(highestSupportedBin) {
		return &errs.ConfigError{Msg: "collection: chains and bin-index slices must have the same length"}
	}
	dyns, err := dynamicBinners(chains)
	if err != nil {
		return err
	}
	if len(dyns) == 0 {
		return nil
	}

	leftIdx, rightIdx := 0, 0
	for i := range dyns {
		if lowestSupportedBin[i] < lowestSupportedBin[leftIdx] {
			leftIdx = i
		}
		if highestSupportedBin[i] > highestSupportedBin[rightIdx] {
			rightIdx = i
		}
	}
	leftSlope, _ := dyns[leftIdx].LastBoundarySlopes()
	_, rightSlope := dyns[rightIdx].LastBoundarySlopes()

	for _, d := range dyns {
		d.PresetSlopeLeft = floatPtr(leftSlope)
		d.PresetSlopeRight = floatPtr(rightSlope)
	}
	return nil
}

// CheckConsistentBinning reports whether every chain's binner has the same
// number of edges, within the given absolute tolerance per edge. A pooled
// collection relies on this invariant after UnifyBinnersRange/Extension;
// callers typically check it once after initial collection and log (rather
// than fail) on mismatch, since a one-bin-off pool is still usable.
func CheckConsistentBinning(chains []Chain, tolerance float64) bool {
	if len(chains) == 0 {
		return true
	}
	first := chains[0].Binner().GetBinning()
	for _, c := range chains[1:] {
		edges := c.Binner().GetBinning()
		if len(edges) != len(first) {
			return false
		}
		for i := range edges {
			if math.Abs(edges[i]-first[i]) > tolerance {
				return false
			}
		}
	}
	return true
}

// dynamicBinners downcasts every chain's binner to
// *binner.NonUniformDynamicBinner, the only kind UnifyBinnersExtension's
// slope bookkeeping understands (mirroring the original library's
// NonUniformDynamicBinner::cast_from_base guard). The result is aligned
// chain-for-chain with chains, so a caller's chain-space index (e.g. from
// lowestSupportedBin) indexes it directly.
func dynamicBinners(chains []Chain) ([]*binner.NonUniformDynamicBinner, error) {
	dyns := make([]*binner.NonUniformDynamicBinner, len(chains))
	for i, c := range chains {
		d, ok := c.Binner().(*binner.NonUniformDynamicBinner)
		if !ok {
			return nil, &errs.CastMismatchError{
				Want: "*binner.NonUniformDynamicBinner",
				Got:  fmt.Sprintf("%T", c.Binner()),
			}
		}
		dyns[i] = d
	}
	return dyns, nil
}

func floatPtr(v float64) *float64 { return &v }
