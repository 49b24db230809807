package muninn

import (
	"errors"
	"math"

	"github.com/spf13/afero"

	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/errs"
	"github.com/jfrellsen/muninn/estimate"
	"github.com/jfrellsen/muninn/estimator"
	"github.com/jfrellsen/muninn/histogram"
	"github.com/jfrellsen/muninn/history"
	"github.com/jfrellsen/muninn/internal/mlog"
	"github.com/jfrellsen/muninn/statlog"
	"github.com/jfrellsen/muninn/weight"
)

// CGE is the 1-D, energy-addressed host-facing type of spec.md §4.5/§6:
// it wraps a GE with a Binner and an initial-collection pre-phase that
// buffers raw energies (weighted canonically at Beta0) until enough have
// been seen to bootstrap the binning.
type CGE struct {
	Settings Settings

	initializing bool
	buffer       []float64

	ge *GE
}

// NewCGE validates settings and returns a CGE ready to begin initial
// collection, or, if settings.ReadStatisticsLogFilename is set, a CGE
// reconstructed from that log (spec.md §6).
func NewCGE(settings Settings) (*CGE, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.ReadStatisticsLogFilename != "" {
		return newCGEFromLog(settings)
	}
	return &CGE{Settings: settings, initializing: true}, nil
}

// newCGEFromLog rebuilds a CGE's binning, estimate and history from a
// previously written statistics log (spec.md §4.5/§4.8/§6, scenario F):
// it seeds Estimate.LnG/Support from the log's last recognized block,
// replays the logged per-round (N, lnw) pairs into a fresh History, and
// recomputes the current round's weights from that estimate, exactly as
// GE.endRound does after a live re-estimation.
func newCGEFromLog(settings Settings) (*CGE, error) {
	fs := settings.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	reader, err := statlog.ReadLogFile(fs, settings.ReadStatisticsLogFilename, 0)
	if err != nil {
		return nil, err
	}
	if len(reader.Ns) == 0 {
		return nil, &errs.ReadError{Msg: "statlog: no recognized N/lnw block found for resume"}
	}

	edges := reader.BinningArray()
	if edges == nil {
		return nil, &errs.ReadError{Msg: "statlog: no binning block found for resume"}
	}
	if err := settings.Binner.LoadBinning(edges); err != nil {
		return nil, err
	}
	nbins := settings.Binner.NBins()

	rounds := reader.Ns
	lnws := reader.Lnws
	if len(rounds) != len(lnws) {
		return nil, &errs.ReadError{Msg: "statlog: mismatched N/lnw block counts"}
	}
	if reader.Mode == statlog.Current {
		// Current mode labels the newest histogram 0; replay oldest first.
		rounds = append([]statlog.Entry(nil), rounds...)
		lnws = append([]statlog.Entry(nil), lnws...)
		for i, j := 0, len(rounds)-1; i < j; i, j = i+1, j-1 {
			rounds[i], rounds[j] = rounds[j], rounds[i]
			lnws[i], lnws[j] = lnws[j], lnws[i]
		}
	}
	if settings.HistoryMemory > 0 && len(rounds) != settings.HistoryMemory {
		mlog.Warnf("muninn: resuming from %q with %d recoverable histories, Settings.HistoryMemory is %d",
			settings.ReadStatisticsLogFilename, len(rounds), settings.HistoryMemory)
		if len(rounds) > settings.HistoryMemory {
			drop := len(rounds) - settings.HistoryMemory
			rounds = rounds[drop:]
			lnws = lnws[drop:]
		}
	}

	hist := history.New(nbins, settings.HistoryMemory, settings.HistoryMinCount, settings.HistoryMode)
	for i := range rounds {
		hist.AddHistogram(histogram.NewFromData(rounds[i].Data, lnws[i].Data))
	}

	est := estimate.New(nbins)
	if lnG := reader.LnGArray(); lnG != nil {
		est.LnG = lnG
	}
	if support := reader.SupportArray(); support != nil {
		est.Support = support
	}
	if x0, ok := reader.ReferenceBin(); ok {
		est.X0 = x0
		est.X0Explicit = true
	}

	if settings.Logger != nil && settings.ContinueStatisticsLog {
		settings.Logger.SetCounter(len(reader.Ns))
	}

	currentLnw := settings.WeightScheme.GetWeights(est, hist, settings.Binner).Data()
	ge := &GE{
		History:      hist,
		Estimate:     est,
		Current:      histogram.NewCollection(histogram.New(nbins, currentLnw)),
		UpdateScheme: settings.UpdateScheme,
		WeightScheme: settings.WeightScheme,
		Estimator:    estimator.NewMLE(settings.EstimatorMode, settings.EstimatorMaxIterations, settings.EstimatorTolerance),
		Binner:       settings.Binner,
		Logger:       settings.Logger,
	}
	mlog.Infof("muninn: resumed from %q: %d bins, %d recovered histories", settings.ReadStatisticsLogFilename, nbins, hist.Len())
	return &CGE{Settings: settings, ge: ge}, nil
}

// Initializing reports whether CGE is still buffering a bootstrap sample
// before the binning has been chosen.
func (c *CGE) Initializing() bool { return c.initializing }

// Binner returns the configured binner, satisfying collection.Chain so a
// set of CGEs can be pooled into a collection.Collection.
func (c *CGE) Binner() binner.Binner { return c.Settings.Binner }

// InitialObservations returns the energies buffered so far during initial
// collection (nil once the CGE has left it), satisfying collection.Chain.
func (c *CGE) InitialObservations() []float64 { return c.buffer }

// ReinitializeBinner replaces the binner's edges by re-running Initialize
// over samples, satisfying collection.Chain's initial-collection branch of
// CGEcollection.unify_binners_range (spec.md §4.7): every pooled chain's
// binner is re-derived from the same merged bootstrap sample, so the pool
// starts out on identical binning rather than each chain's own sample.
func (c *CGE) ReinitializeBinner(samples []float64) error {
	return c.Settings.Binner.Initialize(samples, c.Settings.Beta0)
}

// IncludeValue grows the binner (without the Extend side's extra padding)
// to cover value and propagates the resulting padding into the GE,
// satisfying collection.Chain's post-initial-collection branch of
// unify_binners_range. It is a no-op while still in initial collection.
func (c *CGE) IncludeValue(value float64) error {
	if c.ge == nil {
		return nil
	}
	addLeft, addRight, err := c.ge.Binner.Include(value, c.ge.Estimate, c.ge.History, c.ge.CurrentHistogram().Lnw)
	if err != nil {
		return err
	}
	c.ge.Extend(addLeft, addRight)
	return nil
}

// Binning returns the current bin edges, or nil during initial collection.
func (c *CGE) Binning() []float64 {
	if c.ge == nil {
		return nil
	}
	return c.ge.Binner.GetBinning()
}

// Estimate returns the live entropy estimate, or nil during initial
// collection.
func (c *CGE) Estimate() *estimate.Estimate {
	if c.ge == nil {
		return nil
	}
	return c.ge.Estimate
}

// History returns the live multi-histogram history, or nil during initial
// collection.
func (c *CGE) History() *history.History {
	if c.ge == nil {
		return nil
	}
	return c.ge.History
}

// CurrentCount returns the number of observations folded into the current,
// not-yet-estimated round (0 during initial collection).
func (c *CGE) CurrentCount() float64 {
	if c.ge == nil {
		return 0
	}
	return c.ge.CurrentHistogram().Count()
}

// AddObservation records one sampled energy. During initial collection it
// is buffered; once the bootstrap budget (UpdateScheme.InitialMax
// observations) is reached, the binning is initialized from the buffer and
// every buffered energy is replayed through the steady-state path.
func (c *CGE) AddObservation(energy float64) error {
	if c.initializing {
		c.buffer = append(c.buffer, energy)
		if float64(len(c.buffer)) < c.Settings.UpdateScheme.InitialMax() {
			return nil
		}
		return c.transitionToSteadyState()
	}
	return c.addObservationSteady(energy)
}

func (c *CGE) transitionToSteadyState() error {
	if err := c.Settings.Binner.Initialize(c.buffer, c.Settings.Beta0); err != nil {
		return err
	}
	nbins := c.Settings.Binner.NBins()
	centers := c.Settings.Binner.GetBinningCentered()
	lnw := make([]float64, nbins)
	for i, e := range centers {
		lnw[i] = -c.Settings.Beta0 * e
	}
	c.ge = newGE(nbins, lnw, c.Settings, c.Settings.Binner)
	mlog.Infof("muninn: leaving initial collection after %d observations, %d initial bins", len(c.buffer), nbins)

	buffered := c.buffer
	c.buffer = nil
	c.initializing = false
	for _, e := range buffered {
		if err := c.addObservationSteady(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *CGE) addObservationSteady(energy float64) error {
	bin, inRange := c.ge.Binner.CalcBinValidated(energy)
	if !inRange {
		addLeft, addRight, err := c.ge.Binner.Extend(energy, c.ge.Estimate, c.ge.History, c.ge.CurrentHistogram().Lnw)
		if err != nil {
			return err
		}
		c.ge.Extend(addLeft, addRight)
		bin, inRange = c.ge.Binner.CalcBinValidated(energy)
		if !inRange {
			return &errs.ConfigError{Msg: "muninn: energy still out of range after binner extension"}
		}
	}
	return c.ge.AddObservationBin(bin)
}

// GetLnWeights returns the current round's log-weight at energy, for use
// in a host's Metropolis acceptance rule. If energy falls outside the
// current binning, it is answered in order by: (1) the weight scheme's own
// extrapolation, if it implements one, without touching the binning; (2) a
// non-padding binner extension (Binner.Include), recomputing weights over
// the grown shape; (3), if that extension would exceed the binner's bin
// cap, +Inf — a weight of zero, so the host's acceptance rule rejects the
// move rather than erroring (spec.md §4.5).
func (c *CGE) GetLnWeights(energy float64) (float64, error) {
	if c.initializing {
		return -c.Settings.Beta0 * energy, nil
	}
	bin, inRange := c.ge.Binner.CalcBinValidated(energy)
	if inRange {
		return c.ge.GetLnWeight(bin), nil
	}

	if scheme, ok := c.Settings.WeightScheme.(weight.Extrapolator); ok {
		return scheme.GetExtrapolatedWeight(energy, c.ge.CurrentHistogram().Lnw, c.ge.Estimate, c.ge.History, c.ge.Binner), nil
	}

	addLeft, addRight, err := c.ge.Binner.Include(energy, c.ge.Estimate, c.ge.History, c.ge.CurrentHistogram().Lnw)
	if err != nil {
		var maxBins *errs.MaxBinsExceededError
		if errors.As(err, &maxBins) {
			mlog.Warnf("muninn: weight lookup at %v exceeds the bin cap (%v); returning +Inf", energy, err)
			return math.Inf(1), nil
		}
		return 0, err
	}
	c.ge.Extend(addLeft, addRight)
	bin, inRange = c.ge.Binner.CalcBinValidated(energy)
	if !inRange {
		return 0, &errs.ConfigError{Msg: "muninn: energy still out of range after forced extension"}
	}
	return c.ge.GetLnWeight(bin), nil
}

// ForceStatisticsLog writes a statistics-log record immediately, bypassing
// the usual once-per-round cadence. It is a no-op during initial
// collection or if no Logger is configured.
func (c *CGE) ForceStatisticsLog() error {
	if c.ge == nil || c.ge.Logger == nil {
		return nil
	}
	c.ge.log()
	return nil
}
