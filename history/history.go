// Package history implements the bounded-length ordered sequence of
// finished histograms (the "multi-histogram history" of the GMH
// estimator) along with its deletion policies.
package history

import (
	"container/list"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/histogram"
	"github.com/jfrellsen/muninn/internal/mlog"
)

// DeletionMode selects how History enforces its Memory bound.
type DeletionMode int

const (
	// DropNone never removes histograms; History grows without bound.
	DropNone DeletionMode = iota
	// DropOldest removes the oldest histogram whenever size > Memory,
	// unconditionally.
	DropOldest
	// DropOldestPossible removes the oldest histogram whenever size >
	// Memory only if doing so does not shrink the support mask
	// (sum_N >= min_count everywhere it used to); otherwise it stops and
	// warns, keeping the history larger than Memory.
	DropOldestPossible
	// DropAnyPossible scans oldest-to-newest past position Memory and
	// removes any histogram whose removal does not shrink support.
	DropAnyPossible
)

// Entry wraps a stored Histogram with a generation-stable identifier.
// Estimators key their per-histogram free-energy map off ID rather than
// pointer identity, so the map entry for an evicted histogram can be
// dropped deterministically (Design Notes: weak back-references).
type Entry struct {
	ID   int64
	Hist *histogram.Histogram
}

// History is the MultiHistogramHistory of spec.md §3: a deque of
// Histograms (newest first logically, though stored oldest-first
// internally for simpler sum_N bookkeeping) sharing a shape, a running
// sum_N, a memory bound and a minimum observation count used to derive the
// support mask.
type History struct {
	nbins    int
	memory   int
	minCount float64
	mode     DeletionMode

	entries  *list.List // of *Entry, oldest at Front(), newest at Back()
	sumN     *array.Array
	nextID   int64
	warnOnce bool
}

// New creates an empty History over nbins bins.
func New(nbins, memory int, minCount float64, mode DeletionMode) *History {
	return &History{
		nbins:    nbins,
		memory:   memory,
		minCount: minCount,
		mode:     mode,
		entries:  list.New(),
		sumN:     array.New(nbins),
	}
}

// NBins returns the shared shape size.
func (h *History) NBins() int { return h.nbins }

// Len returns the number of stored histograms.
func (h *History) Len() int { return h.entries.Len() }

// Memory returns the configured target size.
func (h *History) Memory() int { return h.memory }

// MinCount returns c_min, the minimum sum_N for a bin to be in support.
func (h *History) MinCount() float64 { return h.minCount }

// SumN returns the running sum of counts across all stored histograms.
// The returned array aliases internal state and must not be mutated.
func (h *History) SumN() *array.Array { return h.sumN }

// SupportMask returns the mask {b : sum_N[b] >= min_count}.
func (h *History) SupportMask() *array.BoolArray {
	return array.GreaterEqualScalar(h.sumN, h.minCount)
}

// Entries returns the stored entries, oldest first.
func (h *History) Entries() []*Entry {
	out := make([]*Entry, 0, h.entries.Len())
	for e := h.entries.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Entry))
	}
	return out
}

// Newest returns the most recently added entry, or nil if empty.
func (h *History) Newest() *Entry {
	if h.entries.Len() == 0 {
		return nil
	}
	return h.entries.Back().Value.(*Entry)
}

// AddHistogram pushes hist as the newest entry, updates sum_N, assigns it a
// fresh ID, and enforces the deletion policy. It returns the new entry's ID.
func (h *History) AddHistogram(hist *histogram.Histogram) int64 {
	if hist.NBins() != h.nbins {
		panic("history: histogram shape does not match history shape")
	}
	h.nextID++
	id := h.nextID
	h.entries.PushBack(&Entry{ID: id, Hist: hist})
	array.AddTo(h.sumN, h.sumN, hist.N)
	h.enforcePolicy()
	return id
}

// RemoveNewest pops the most recently added histogram back off the
// history (used by the orchestrator to roll back a round that failed to
// estimate) and returns it.
func (h *History) RemoveNewest() *histogram.Histogram {
	back := h.entries.Back()
	if back == nil {
		return nil
	}
	entry := back.Value.(*Entry)
	h.entries.Remove(back)
	subtract(h.sumN, entry.Hist.N)
	return entry.Hist
}

// Extend pads every stored histogram and sum_N with padLeft/padRight zero
// bins, growing the shared shape.
func (h *History) Extend(padLeft, padRight int) {
	h.nbins += padLeft + padRight
	h.sumN = h.sumN.Extend1D(padLeft, padRight)
	for e := h.entries.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*Entry)
		entry.Hist.Extend(padLeft, padRight, nil)
	}
}

func subtract(dst, sub *array.Array) {
	for i := 0; i < dst.Len(); i++ {
		dst.Set(i, dst.At(i)-sub.At(i))
	}
}

// enforcePolicy removes histograms per h.mode after a push. It is the only
// place eviction happens.
func (h *History) enforcePolicy() {
	switch h.mode {
	case DropNone:
		return
	case DropOldest:
		for h.entries.Len() > h.memory {
			h.evictFront()
		}
	case DropOldestPossible:
		for h.entries.Len() > h.memory {
			front := h.entries.Front().Value.(*Entry)
			if h.removalShrinksSupport(front.Hist) {
				mlog.Warnf("history: DropOldestPossible keeping %d histograms (target %d): "+
					"removing the oldest would shrink the support mask", h.entries.Len(), h.memory)
				return
			}
			h.evictFront()
		}
	case DropAnyPossible:
		h.dropAnyPossibleScan()
	}
}

// dropAnyPossibleScan repeatedly scans the oldest entries past position
// Memory (oldest-to-newest) and removes the first one whose removal does
// not shrink the support mask, until size <= Memory or no entry qualifies.
func (h *History) dropAnyPossibleScan() {
	for h.entries.Len() > h.memory {
		removed := false
		pos := 0
		overflow := h.entries.Len() - h.memory
		for e := h.entries.Front(); e != nil; e = e.Next() {
			pos++
			if pos <= overflow {
				// Within the first `overflow` oldest entries: eligible.
				entry := e.Value.(*Entry)
				if !h.removalShrinksSupport(entry.Hist) {
					h.entries.Remove(e)
					subtract(h.sumN, entry.Hist.N)
					removed = true
					break
				}
			}
		}
		if !removed {
			mlog.Warnf("history: DropAnyPossible keeping %d histograms (target %d): "+
				"no removable entry preserves the support mask", h.entries.Len(), h.memory)
			return
		}
	}
}

func (h *History) evictFront() {
	front := h.entries.Front()
	entry := front.Value.(*Entry)
	h.entries.Remove(front)
	subtract(h.sumN, entry.Hist.N)
}

// removalShrinksSupport reports whether removing hist's counts from sum_N
// would drop any bin below min_count that currently meets it.
func (h *History) removalShrinksSupport(hist *histogram.Histogram) bool {
	for i := 0; i < h.sumN.Len(); i++ {
		before := h.sumN.At(i)
		if before < h.minCount {
			continue
		}
		after := before - hist.N.At(i)
		if after < h.minCount {
			return true
		}
	}
	return false
}
