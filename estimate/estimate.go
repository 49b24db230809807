// Package estimate defines the Estimate type produced by an estimator
// (package estimator) and consumed by weight schemes (package weight) and
// the canonical-average utility (package canonical).
package estimate

import (
	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/history"
)

// Estimate holds a density-of-states estimate lnG over a 1-D shape, the
// support mask it was computed on, the reference bin x0 at which lnG is
// held fixed during re-estimation, and the MLE's per-histogram free
// energies (keyed by history.Entry.ID rather than pointer identity, so an
// evicted history entry's contribution can be dropped deterministically).
type Estimate struct {
	LnG        *array.Array
	Support    *array.BoolArray
	X0         int  // reference bin index; -1 means "not yet chosen"
	X0Explicit bool // true once x0 has been set at least once

	// FreeEnergies maps history.Entry.ID to the MLE's converged free
	// energy for that histogram, seeded afresh whenever a history entry is
	// evicted or not yet present.
	FreeEnergies map[int64]float64
}

// New allocates an empty Estimate (lnG=0, unsupported everywhere) over
// nbins bins, with no reference bin chosen yet.
func New(nbins int) *Estimate {
	return &Estimate{
		LnG:          array.New(nbins),
		Support:      array.NewBool(nbins),
		X0:           -1,
		FreeEnergies: make(map[int64]float64),
	}
}

// NBins returns the shared shape size.
func (e *Estimate) NBins() int { return e.LnG.Len() }

// Extend pads lnG and the support mask with padLeft/padRight zero/false
// bins, and shifts X0 to track the same energy if padLeft > 0.
func (e *Estimate) Extend(padLeft, padRight int) {
	e.LnG = e.LnG.Extend1D(padLeft, padRight)
	e.Support = e.Support.Extend1D(padLeft, padRight)
	if e.X0Explicit {
		e.X0 += padLeft
	}
}

// PruneFreeEnergies drops map entries for history entries no longer
// present, keyed against the current set of live IDs.
func (e *Estimate) PruneFreeEnergies(live []*history.Entry) {
	liveSet := make(map[int64]bool, len(live))
	for _, entry := range live {
		liveSet[entry.ID] = true
	}
	for id := range e.FreeEnergies {
		if !liveSet[id] {
			delete(e.FreeEnergies, id)
		}
	}
}

// SetReferenceBin moves x0 to bin, carrying forward lnG(x0) unless this is
// the very first time a reference bin is chosen, in which case lnG(x0) is
// defined to be 0 (spec.md §4.3 reference bin policy).
func (e *Estimate) SetReferenceBin(bin int) {
	if !e.X0Explicit {
		e.LnG.Set(bin, 0)
	} else if bin != e.X0 {
		e.LnG.Set(bin, e.LnG.At(e.X0))
	}
	e.X0 = bin
	e.X0Explicit = true
}
