// Package update implements Muninn's update scheme: the policy that
// decides when an observation round ends and hands control back to the
// orchestrator so it can fold the finished histogram into the history and
// re-estimate weights.
package update

import (
	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/histogram"
	"github.com/jfrellsen/muninn/history"
	"github.com/jfrellsen/muninn/statlog"
)

// Scheme is the interface the orchestrator drives an update scheme
// through.
type Scheme interface {
	// UpdateRequired reports whether the current round should end.
	UpdateRequired(current *histogram.Histogram, hist *history.History) bool
	// UpdatingHistory is called just before current is folded into hist,
	// giving the scheme a chance to retune its round-length target.
	UpdatingHistory(current *histogram.Histogram, hist *history.History)
	// Prolong extends the current round after a failed estimate.
	Prolong()
	// ResetProlonging clears any accumulated prolonging after a
	// successful estimate.
	ResetProlonging()
	// InitialMax is the observation budget for the very first
	// (initial-collection) round.
	InitialMax() float64
	// ThisMax is the current round's observation budget target, excluding
	// any accumulated prolonging. Exposed for the statistics log (spec.md
	// §6 "this_max").
	ThisMax() float64
}

// IncreaseFactor is the update scheme of spec.md §4.6: the round's
// observation budget (ThisMax) grows geometrically by IncreaseFactor, but
// only once the support mask has stopped growing relative to the previous
// round — so early rounds, where every new observation plausibly extends
// support, stay short, while later rounds, which mostly refine an already
// explored region, grow long.
type IncreaseFactor struct {
	// InitialMaxValue is the observation budget for the first round.
	InitialMaxValue float64
	// Factor (gamma) is the geometric growth factor applied to ThisMax
	// once growth has stalled.
	Factor float64
	// SupportGrowthThreshold (phi): if the number of newly-supported bins
	// is less than phi times the previously-supported count (or zero when
	// phi < 0), the round budget grows.
	SupportGrowthThreshold float64
	// MinCount is c_min, used to determine which bins of current/history
	// count as "supported" for the growth comparison.
	MinCount float64

	thisMax    float64
	prolonging float64
}

var _ Scheme = (*IncreaseFactor)(nil)

// NewIncreaseFactor constructs an IncreaseFactor scheme with its round
// budget initialized to initialMax.
func NewIncreaseFactor(initialMax, factor, supportGrowthThreshold, minCount float64) *IncreaseFactor {
	return &IncreaseFactor{
		InitialMaxValue:        initialMax,
		Factor:                 factor,
		SupportGrowthThreshold: supportGrowthThreshold,
		MinCount:               minCount,
		thisMax:                initialMax,
	}
}

// InitialMax implements Scheme.
func (s *IncreaseFactor) InitialMax() float64 { return s.InitialMaxValue }

// ThisMax implements Scheme.
func (s *IncreaseFactor) ThisMax() float64 { return s.thisMax }

// UpdateRequired implements Scheme: the round ends once the current
// histogram has accumulated ThisMax + any prolonging observations.
func (s *IncreaseFactor) UpdateRequired(current *histogram.Histogram, hist *history.History) bool {
	return current.Count() >= s.thisMax+s.prolonging
}

// UpdatingHistory implements Scheme.
func (s *IncreaseFactor) UpdatingHistory(current *histogram.Histogram, hist *history.History) {
	prevSupport := array.GreaterEqualScalar(hist.SumN(), s.MinCount)
	newSupport := array.GreaterEqualScalar(current.N, s.MinCount)

	prevCount := prevSupport.Count()
	newObserved := 0
	for i := 0; i < newSupport.Len(); i++ {
		if newSupport.At(i) && !prevSupport.At(i) {
			newObserved++
		}
	}

	grow := false
	if s.SupportGrowthThreshold < 0 {
		grow = newObserved == 0
	} else {
		grow = float64(newObserved) < s.SupportGrowthThreshold*float64(prevCount)
	}
	if grow {
		s.thisMax = float64(int64(s.thisMax * s.Factor))
	}
}

// Prolong implements Scheme.
func (s *IncreaseFactor) Prolong() { s.prolonging += s.thisMax / 4 }

// ResetProlonging implements Scheme.
func (s *IncreaseFactor) ResetProlonging() { s.prolonging = 0 }

var _ statlog.Loggable = (*IncreaseFactor)(nil)

// AddStatisticsToLog implements statlog.Loggable, recording the round
// budget and any accumulated prolonging alongside the entropy estimate.
func (s *IncreaseFactor) AddStatisticsToLog(w *statlog.Writer) {
	w.AddEntry("this_max", s.thisMax)
	w.AddEntry("prolonging", s.prolonging)
}
