package muninn

import (
	"errors"

	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/errs"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/estimator"
	"github.com/jfrellsen/muninn/histogram"
	"github.com/jfrellsen/muninn/history"
	"github.com/jfrellsen/muninn/internal/mlog"
	"github.com/jfrellsen/muninn/statlog"
	"github.com/jfrellsen/muninn/update"
	"github.com/jfrellsen/muninn/weight"
)

// GE is the generalized-ensemble orchestrator of spec.md §4.5: it drives a
// History, an Estimate, and a currently-accumulating histogram.Collection
// through the round-by-round add-observation / re-estimate cycle. It works
// purely in terms of bin indices; CGE adds the energy-to-bin binning layer
// a host actually talks to.
//
// Current holds a histogram.Collection rather than a single Histogram,
// matching the original implementation's support for several simultaneous
// "current" histograms (e.g. independent replicas sharing one history);
// CGE, the 1-D host-facing type, always keeps exactly one.
type GE struct {
	History      *history.History
	Estimate     *estimate.Estimate
	Current      *histogram.Collection
	UpdateScheme update.Scheme
	WeightScheme weight.Scheme
	Estimator    *estimator.MLE
	Binner       binner.Binner
	Logger       *statlog.Logger
}

// newGE constructs a GE with a single freshly seeded current histogram.
func newGE(nbins int, initialLnw []float64, s Settings, bnr binner.Binner) *GE {
	maxIter := s.EstimatorMaxIterations
	tol := s.EstimatorTolerance
	return &GE{
		History:      history.New(nbins, s.HistoryMemory, s.HistoryMinCount, s.HistoryMode),
		Estimate:     estimate.New(nbins),
		Current:      histogram.NewCollection(histogram.New(nbins, initialLnw)),
		UpdateScheme: s.UpdateScheme,
		WeightScheme: s.WeightScheme,
		Estimator:    estimator.NewMLE(s.EstimatorMode, maxIter, tol),
		Binner:       bnr,
		Logger:       s.Logger,
	}
}

// CurrentHistogram returns the sole in-flight histogram CGE drives.
func (g *GE) CurrentHistogram() *histogram.Histogram {
	return g.Current.Histograms[0]
}

// GetLnWeight returns the current round's log-weight at bin.
func (g *GE) GetLnWeight(bin int) float64 {
	return g.CurrentHistogram().Lnw.At(bin)
}

// AddObservationBin records an observation at bin and, once the update
// scheme decides the round is over, re-estimates and installs fresh
// weights. A *errs.NoOverlapError or *errs.NoSolutionError from the
// estimator is recoverable: the round is rolled back and prolonged, and
// AddObservationBin returns nil so the host's loop is unaffected; the
// error is only surfaced via the warning log (spec.md §4.5).
func (g *GE) AddObservationBin(bin int) error {
	g.CurrentHistogram().AddObservation(bin)
	if !g.UpdateScheme.UpdateRequired(g.CurrentHistogram(), g.History) {
		return nil
	}
	return g.endRound()
}

func (g *GE) endRound() error {
	current := g.CurrentHistogram()
	g.UpdateScheme.UpdatingHistory(current, g.History)
	g.History.AddHistogram(current)

	if err := g.Estimator.Estimate(g.History, g.Estimate); err != nil {
		var noOverlap *errs.NoOverlapError
		var noSolution *errs.NoSolutionError
		if errors.As(err, &noOverlap) || errors.As(err, &noSolution) {
			mlog.Warnf("muninn: round failed to estimate (%v); rolling back and prolonging", err)
			g.History.RemoveNewest()
			g.UpdateScheme.Prolong()
			return nil
		}
		return err
	}

	newLnw := g.WeightScheme.GetWeights(g.Estimate, g.History, g.Binner)
	g.log()
	g.Current = histogram.NewCollection(histogram.New(current.NBins(), newLnw.Data()))
	g.UpdateScheme.ResetProlonging()
	mlog.Infof("muninn: round complete: %d histograms in history, %d supported bins", g.History.Len(), g.Estimate.Support.Count())
	return nil
}

// Extend pads the history, estimate and current histogram's shape by
// padLeft/padRight bins, then recomputes the current histogram's
// log-weights over the new shape so the padded bins carry a real weight
// rather than a zero placeholder.
func (g *GE) Extend(padLeft, padRight int) {
	if padLeft == 0 && padRight == 0 {
		return
	}
	g.History.Extend(padLeft, padRight)
	g.Estimate.Extend(padLeft, padRight)
	current := g.CurrentHistogram()
	newLnw := g.WeightScheme.GetWeights(g.Estimate, g.History, g.Binner)
	current.Extend(padLeft, padRight, newLnw)
}

func (g *GE) log() {
	if g.Logger == nil {
		return
	}
	entries := g.History.Entries()
	logEntries := make([]statlog.HistoryEntry, len(entries))
	for i, e := range entries {
		logEntries[i] = statlog.HistoryEntry{N: e.Hist.N, Lnw: e.Hist.Lnw}
	}
	rec := statlog.Record{
		N:       g.CurrentHistogram().N,
		Lnw:     g.CurrentHistogram().Lnw,
		LnG:     g.Estimate.LnG,
		Support: g.Estimate.Support,
		Binner:  g.Binner,
	}
	if loggable, ok := g.UpdateScheme.(statlog.Loggable); ok {
		rec.Extras = append(rec.Extras, loggable)
	}
	if loggable, ok := g.Binner.(statlog.Loggable); ok {
		rec.Extras = append(rec.Extras, loggable)
	}
	if err := g.Logger.Log(rec, logEntries); err != nil {
		mlog.Warnf("muninn: statistics log write failed: %v", err)
	}
}
