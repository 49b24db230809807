package muninn

import (
	"github.com/spf13/afero"

	"github.com/jfrellsen/muninn/binner"
	"github.com/jfrellsen/muninn/errs"
	"github.com/jfrellsen/muninn/estimator"
	"github.com/jfrellsen/muninn/history"
	"github.com/jfrellsen/muninn/statlog"
	"github.com/jfrellsen/muninn/update"
	"github.com/jfrellsen/muninn/weight"
)

// Settings is the configuration record a host supplies when constructing
// a CGE (spec.md §6): the collaborators it binds together, plus the
// history and logging policy. Every field with a concrete default is
// optional; DefaultSettings returns the library's stock choices.
type Settings struct {
	// Binner partitions the energy axis. Required.
	Binner binner.Binner
	// UpdateScheme decides when a round ends. Required.
	UpdateScheme update.Scheme
	// WeightScheme turns an estimate into log-weights. Required.
	WeightScheme weight.Scheme

	// EstimatorMode selects the GMH attribution mode (estimator.Accumulated
	// by default).
	EstimatorMode estimator.Mode
	// EstimatorMaxIterations/EstimatorTolerance bound the Newton solve;
	// zero values fall back to estimator.NewMLE's defaults.
	EstimatorMaxIterations int
	EstimatorTolerance     float64

	// HistoryMemory is M, the target number of retained histograms.
	HistoryMemory int
	// HistoryMinCount is c_min, the minimum sum_N for a bin to be
	// considered in support.
	HistoryMinCount float64
	// HistoryMode selects the deletion policy. The zero value is
	// history.DropNone; DefaultSettings uses history.DropOldestPossible.
	HistoryMode history.DeletionMode

	// Beta0 is the inverse temperature used to derive log-weights
	// (-Beta0*E) during initial collection, before the first histogram
	// exists.
	Beta0 float64

	// Logger, if non-nil, receives a record after every completed
	// estimation round.
	Logger *statlog.Logger

	// ReadStatisticsLogFilename, if non-empty, reconstructs the CGE from a
	// previously written statistics log instead of starting initial
	// collection from scratch: the binning, estimate and history are
	// seeded from the log's last recognized block (spec.md §6
	// read_statistics_log_filename, scenario F).
	ReadStatisticsLogFilename string
	// ContinueStatisticsLog, when reconstructing from
	// ReadStatisticsLogFilename, makes Logger (if set, and normally
	// pointed at the same file) continue the round numbering from where
	// the log left off instead of restarting it at 0.
	ContinueStatisticsLog bool
	// Fs is the filesystem ReadStatisticsLogFilename is read from.
	// Defaults to the OS filesystem.
	Fs afero.Fs
}

// DefaultSettings returns a Settings with a NonUniformDynamicBinner,
// IncreaseFactor update scheme, LinearPolated-wrapped Multicanonical
// weights, and history/estimator defaults matching the original
// library's out-of-the-box configuration.
func DefaultSettings() Settings {
	minCount := 30.0
	dyn := binner.NewNonUniformDynamicBinner(0.4, 0)
	dyn.KernelRadius = 5
	dyn.ExtendFactor = 1
	return Settings{
		Binner:                 dyn,
		UpdateScheme:           update.NewIncreaseFactor(2000, 1.2, 0.05, minCount),
		WeightScheme:           &weight.LinearPolated{Base: weight.Multicanonical{}, SlopeFactorUp: 1, SlopeFactorDown: 1, KernelRadius: 5},
		EstimatorMode:          estimator.Accumulated,
		HistoryMemory:          20,
		HistoryMinCount:        minCount,
		HistoryMode:            history.DropOldestPossible,
		Beta0:                  0,
		Logger:                 nil,
	}
}

// Validate checks that the required collaborators are present and the
// numeric fields are sane.
func (s Settings) Validate() error {
	if s.Binner == nil {
		return &errs.ConfigError{Msg: "muninn: Settings.Binner is required"}
	}
	if s.UpdateScheme == nil {
		return &errs.ConfigError{Msg: "muninn: Settings.UpdateScheme is required"}
	}
	if s.WeightScheme == nil {
		return &errs.ConfigError{Msg: "muninn: Settings.WeightScheme is required"}
	}
	if s.HistoryMemory <= 0 {
		return &errs.ConfigError{Msg: "muninn: Settings.HistoryMemory must be positive"}
	}
	if s.HistoryMinCount < 0 {
		return &errs.ConfigError{Msg: "muninn: Settings.HistoryMinCount must be non-negative"}
	}
	return nil
}
